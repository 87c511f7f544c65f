package main

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// viewer owns the GLFW window and the surface the particle pass draws into.
type viewer struct {
	window  *glfw.Window
	surface *wgpu.Surface
	adapter *wgpu.Adapter
	device  *wgpu.Device
	queue   *wgpu.Queue
	config  *wgpu.SurfaceConfiguration
}

func openViewer(width, height int, title string) (*viewer, error) {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("initializing glfw: %w", err)
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("creating window: %w", err)
	}

	instance := wgpu.CreateInstance(nil)
	defer instance.Release()
	surface := instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(win))
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return nil, fmt.Errorf("requesting adapter: %w", err)
	}
	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{Label: "Particle Device"})
	if err != nil {
		return nil, fmt.Errorf("requesting device: %w", err)
	}

	fbw, fbh := win.GetFramebufferSize()
	caps := surface.GetCapabilities(adapter)
	v := &viewer{
		window:  win,
		surface: surface,
		adapter: adapter,
		device:  device,
		queue:   device.GetQueue(),
		config: &wgpu.SurfaceConfiguration{
			Usage:       wgpu.TextureUsageRenderAttachment,
			Format:      caps.Formats[0],
			Width:       uint32(fbw),
			Height:      uint32(fbh),
			PresentMode: wgpu.PresentModeFifo,
			AlphaMode:   caps.AlphaModes[0],
		},
	}
	surface.Configure(adapter, device, v.config)
	return v, nil
}

// resize reconfigures the surface when the framebuffer changed. Returns false
// while the window is minimized.
func (v *viewer) resize() bool {
	w, h := v.window.GetFramebufferSize()
	if w == 0 || h == 0 {
		return false
	}
	if uint32(w) != v.config.Width || uint32(h) != v.config.Height {
		v.config.Width, v.config.Height = uint32(w), uint32(h)
		v.surface.Configure(v.adapter, v.device, v.config)
	}
	return true
}

func (v *viewer) aspect() float32 {
	return float32(v.config.Width) / float32(v.config.Height)
}

// present encodes one render pass through draw and presents it.
func (v *viewer) present(draw func(pass *wgpu.RenderPassEncoder) error) error {
	next, err := v.surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("acquiring surface texture: %w", err)
	}
	defer next.Release()
	view, err := next.CreateView(nil)
	if err != nil {
		return err
	}
	defer view.Release()

	encoder, err := v.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	defer encoder.Release()
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 0.05, G: 0.06, B: 0.08, A: 1},
		}},
	})
	drawErr := draw(pass)
	if err := pass.End(); err != nil {
		return err
	}
	pass.Release()
	if drawErr != nil {
		return drawErr
	}
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return err
	}
	defer cmd.Release()
	v.queue.Submit(cmd)
	v.surface.Present()
	return nil
}

func (v *viewer) close() {
	if v.queue != nil {
		v.queue.Release()
	}
	if v.device != nil {
		v.device.Release()
	}
	if v.adapter != nil {
		v.adapter.Release()
	}
	if v.surface != nil {
		v.surface.Release()
	}
	v.window.Destroy()
	glfw.Terminate()
}
