package gpu

import (
	"fmt"
	"image"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/particlefx/rt/core"
	"github.com/gekko3d/particlefx/rt/shaders"
	"github.com/go-gl/mathgl/mgl32"
)

const cameraUniformSize = 64 // mat4x4<f32>

// ParticlePass is the webgpu backend of core.RenderContext. Draws are
// recorded into a DrawList during the frame and replayed by Encode with one
// buffer upload and one pipeline/bind-group switch per material run.
type ParticlePass struct {
	Device *wgpu.Device
	Format wgpu.TextureFormat

	module     *wgpu.ShaderModule
	cameraBGL  *wgpu.BindGroupLayout
	textureBGL *wgpu.BindGroupLayout
	layout     *wgpu.PipelineLayout
	sampler    *wgpu.Sampler
	cameraBuf  *wgpu.Buffer
	cameraBG   *wgpu.BindGroup
	pipelines  map[core.ShaderType]*wgpu.RenderPipeline
	textures   map[core.TextureID]*textureBinding
	vertexBuf  *wgpu.Buffer
	indexBuf   *wgpu.Buffer
	viewProj   mgl32.Mat4
	list       core.DrawList
	missingTex map[core.TextureID]bool
	log        core.Logger
}

type textureBinding struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
	group   *wgpu.BindGroup
}

func NewParticlePass(device *wgpu.Device, format wgpu.TextureFormat, log core.Logger) (*ParticlePass, error) {
	p := &ParticlePass{
		Device:     device,
		Format:     format,
		pipelines:  make(map[core.ShaderType]*wgpu.RenderPipeline),
		textures:   make(map[core.TextureID]*textureBinding),
		missingTex: make(map[core.TextureID]bool),
		log:        core.OrNop(log).Named("gpu"),
	}

	var err error
	p.module, err = device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "ParticleShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.ParticlesWGSL},
	})
	if err != nil {
		return nil, err
	}

	p.cameraBGL, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "ParticleCameraBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: cameraUniformSize,
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	p.textureBGL, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "ParticleTextureBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	p.layout, err = device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "ParticlePipelineLayout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{p.cameraBGL, p.textureBGL},
	})
	if err != nil {
		return nil, err
	}

	p.sampler, err = device.CreateSampler(&wgpu.SamplerDescriptor{
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MinFilter:     wgpu.FilterModeLinear,
		MagFilter:     wgpu.FilterModeLinear,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, err
	}

	p.cameraBuf, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "ParticleCameraBuffer",
		Size:  cameraUniformSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	p.cameraBG, err = device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "ParticleCameraBG",
		Layout: p.cameraBGL,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: p.cameraBuf, Size: cameraUniformSize},
		},
	})
	if err != nil {
		return nil, err
	}

	// TextureID 0 is the untextured material: a single white texel.
	white := image.NewRGBA(image.Rect(0, 0, 1, 1))
	copy(white.Pix, []uint8{255, 255, 255, 255})
	if err := p.RegisterTexture(0, white); err != nil {
		return nil, err
	}
	return p, nil
}

// RegisterTexture uploads img and binds it under id, replacing any previous
// texture with that id.
func (p *ParticlePass) RegisterTexture(id core.TextureID, img *image.RGBA) error {
	w, h := uint32(img.Bounds().Dx()), uint32(img.Bounds().Dy())
	extent := wgpu.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1}
	tex, err := p.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         fmt.Sprintf("ParticleTexture%d", id),
		Size:          extent,
		Format:        wgpu.TextureFormatRGBA8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension:     wgpu.TextureDimension2D,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return err
	}
	err = p.Device.GetQueue().WriteTexture(tex.AsImageCopy(), img.Pix, &wgpu.TextureDataLayout{
		Offset:       0,
		BytesPerRow:  uint32(img.Stride),
		RowsPerImage: h,
	}, &extent)
	if err != nil {
		tex.Release()
		return err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return err
	}
	group, err := p.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  fmt.Sprintf("ParticleTextureBG%d", id),
		Layout: p.textureBGL,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: view},
			{Binding: 1, Sampler: p.sampler},
		},
	})
	if err != nil {
		view.Release()
		tex.Release()
		return err
	}
	if old, ok := p.textures[id]; ok {
		old.release()
	}
	p.textures[id] = &textureBinding{texture: tex, view: view, group: group}
	delete(p.missingTex, id)
	return nil
}

func (t *textureBinding) release() {
	t.group.Release()
	t.view.Release()
	t.texture.Release()
}

// Begin starts recording a frame.
func (p *ParticlePass) Begin(viewProj mgl32.Mat4, cam core.Camera) {
	p.viewProj = viewProj
	p.list.Reset(cam)
}

func (p *ParticlePass) Camera() core.Camera { return p.list.Camera() }

func (p *ParticlePass) BindMaterial(key core.MaterialKey) error {
	return p.list.BindMaterial(key)
}

func (p *ParticlePass) DrawIndexed(vertices []core.ParticleVertex, indices []uint32) error {
	return p.list.DrawIndexed(vertices, indices)
}

// Stats reports the recorded frame: RenderContext calls and merged GPU draws.
func (p *ParticlePass) Stats() (binds, draws, commands int) {
	return p.list.Binds, p.list.Draws, len(p.list.Commands)
}

// Encode uploads the recorded frame and replays it into pass.
func (p *ParticlePass) Encode(pass *wgpu.RenderPassEncoder) error {
	if len(p.list.Commands) == 0 {
		return nil
	}
	queue := p.Device.GetQueue()
	if err := queue.WriteBuffer(p.cameraBuf, 0, wgpu.ToBytes(p.viewProj[:])); err != nil {
		return err
	}

	vSize := uint64(len(p.list.Vertices)) * uint64(unsafe.Sizeof(core.ParticleVertex{}))
	if err := p.ensureBuffer(&p.vertexBuf, "ParticleVertexBuffer", vSize, wgpu.BufferUsageVertex); err != nil {
		return err
	}
	if err := queue.WriteBuffer(p.vertexBuf, 0, wgpu.ToBytes(p.list.Vertices)); err != nil {
		return err
	}
	iSize := uint64(len(p.list.Indices)) * 4
	if err := p.ensureBuffer(&p.indexBuf, "ParticleIndexBuffer", iSize, wgpu.BufferUsageIndex); err != nil {
		return err
	}
	if err := queue.WriteBuffer(p.indexBuf, 0, wgpu.ToBytes(p.list.Indices)); err != nil {
		return err
	}

	pass.SetBindGroup(0, p.cameraBG, nil)
	pass.SetVertexBuffer(0, p.vertexBuf, 0, vSize)
	pass.SetIndexBuffer(p.indexBuf, wgpu.IndexFormatUint32, 0, iSize)

	var current *wgpu.RenderPipeline
	for _, cmd := range p.list.Commands {
		pipeline, err := p.pipelineFor(cmd.Material.Shader)
		if err != nil {
			return err
		}
		if pipeline != current {
			pass.SetPipeline(pipeline)
			current = pipeline
		}
		pass.SetBindGroup(1, p.textureGroup(cmd.Material.Texture), nil)
		pass.DrawIndexed(cmd.IndexCount, 1, cmd.FirstIndex, 0, 0)
	}
	return nil
}

// ensureBuffer grows *buf to hold at least size bytes, with headroom.
func (p *ParticlePass) ensureBuffer(buf **wgpu.Buffer, label string, size uint64, usage wgpu.BufferUsage) error {
	if *buf != nil && (*buf).GetSize() >= size {
		return nil
	}
	if *buf != nil {
		(*buf).Release()
		*buf = nil
	}
	b, err := p.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  grownSize(size),
		Usage: usage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}
	*buf = b
	return nil
}

// grownSize rounds up to the next power of two, at least 4 KiB.
func grownSize(size uint64) uint64 {
	n := uint64(4096)
	for n < size {
		n <<= 1
	}
	return n
}

func (p *ParticlePass) textureGroup(id core.TextureID) *wgpu.BindGroup {
	if t, ok := p.textures[id]; ok {
		return t.group
	}
	if !p.missingTex[id] {
		p.missingTex[id] = true
		p.log.Warnf("texture %d not registered, drawing untextured", id)
	}
	return p.textures[0].group
}

func (p *ParticlePass) pipelineFor(shader core.ShaderType) (*wgpu.RenderPipeline, error) {
	if pl, ok := p.pipelines[shader]; ok {
		return pl, nil
	}
	pl, err := p.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "ParticlePipeline_" + shader.String(),
		Layout: p.layout,
		Vertex: wgpu.VertexState{
			Module:     p.module,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{{
				ArrayStride: uint64(unsafe.Sizeof(core.ParticleVertex{})),
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes: []wgpu.VertexAttribute{
					{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
					{Format: wgpu.VertexFormatFloat32x2, Offset: 12, ShaderLocation: 1},
					{Format: wgpu.VertexFormatFloat32x4, Offset: 20, ShaderLocation: 2},
				},
			}},
		},
		Fragment: &wgpu.FragmentState{
			Module:     p.module,
			EntryPoint: fragmentEntry(shader),
			Targets: []wgpu.ColorTargetState{{
				Format:    p.Format,
				Blend:     blendFor(shader),
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("particle pipeline %s: %w", shader, err)
	}
	p.pipelines[shader] = pl
	return pl, nil
}

func fragmentEntry(shader core.ShaderType) string {
	switch shader {
	case core.ShaderAlphaTest:
		return "fs_alpha_test"
	case core.ShaderMultiply:
		return "fs_multiply"
	}
	return "fs_main"
}

// blendFor maps a shader type to its color target blend. Alpha-test output
// is opaque and needs none.
func blendFor(shader core.ShaderType) *wgpu.BlendState {
	switch shader {
	case core.ShaderAdditive:
		return &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				Operation: wgpu.BlendOperationAdd,
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOne,
			},
			Alpha: wgpu.BlendComponent{
				Operation: wgpu.BlendOperationAdd,
				SrcFactor: wgpu.BlendFactorZero,
				DstFactor: wgpu.BlendFactorOne,
			},
		}
	case core.ShaderMultiply:
		return &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				Operation: wgpu.BlendOperationAdd,
				SrcFactor: wgpu.BlendFactorDst,
				DstFactor: wgpu.BlendFactorZero,
			},
			Alpha: wgpu.BlendComponent{
				Operation: wgpu.BlendOperationAdd,
				SrcFactor: wgpu.BlendFactorZero,
				DstFactor: wgpu.BlendFactorOne,
			},
		}
	case core.ShaderAlphaTest:
		return nil
	}
	return &wgpu.BlendState{
		Color: wgpu.BlendComponent{
			Operation: wgpu.BlendOperationAdd,
			SrcFactor: wgpu.BlendFactorSrcAlpha,
			DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		},
		Alpha: wgpu.BlendComponent{
			Operation: wgpu.BlendOperationAdd,
			SrcFactor: wgpu.BlendFactorOne,
			DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		},
	}
}

func (p *ParticlePass) Release() {
	for _, t := range p.textures {
		t.release()
	}
	clear(p.textures)
	for _, pl := range p.pipelines {
		pl.Release()
	}
	clear(p.pipelines)
	for _, b := range []*wgpu.Buffer{p.vertexBuf, p.indexBuf, p.cameraBuf} {
		if b != nil {
			b.Release()
		}
	}
	p.vertexBuf, p.indexBuf, p.cameraBuf = nil, nil, nil
	if p.cameraBG != nil {
		p.cameraBG.Release()
	}
	if p.sampler != nil {
		p.sampler.Release()
	}
	if p.layout != nil {
		p.layout.Release()
	}
	if p.textureBGL != nil {
		p.textureBGL.Release()
	}
	if p.cameraBGL != nil {
		p.cameraBGL.Release()
	}
	if p.module != nil {
		p.module.Release()
	}
}
