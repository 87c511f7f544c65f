package particle

import (
	"math"

	"github.com/gekko3d/particlefx/rt/core"
	"github.com/go-gl/mathgl/mgl32"
)

// Render binds the template material and submits all live slots as one draw.
func (s *System) Render(ctx core.RenderContext) error {
	if s.live == 0 || s.state == Dead {
		return nil
	}
	if err := ctx.BindMaterial(s.Material()); err != nil {
		return err
	}
	return s.Draw(ctx)
}

// Draw submits geometry assuming the material is already bound. Drawable
// particles render through their attachment and produce no geometry here.
func (s *System) Draw(ctx core.RenderContext) error {
	if s.live == 0 {
		return nil
	}
	s.vertices = s.vertices[:0]
	s.indices = s.indices[:0]

	cam := ctx.Camera()
	switch s.tmpl.Kind {
	case core.KindBillboard:
		s.appendBillboards(cam)
	case core.KindStreak:
		s.appendStreaks(cam)
	case core.KindDrawable:
		return nil
	}
	if len(s.indices) == 0 {
		return nil
	}
	return ctx.DrawIndexed(s.vertices, s.indices)
}

func rgba(c mgl32.Vec3, a float32) [4]float32 {
	return [4]float32{c.X(), c.Y(), c.Z(), a}
}

func (s *System) appendQuad(corners [4]mgl32.Vec3, color [4]float32) {
	base := uint32(len(s.vertices))
	uvs := [4][2]float32{{0, 1}, {1, 1}, {1, 0}, {0, 0}}
	for i, c := range corners {
		s.vertices = append(s.vertices, core.ParticleVertex{Pos: c, UV: uvs[i], Color: color})
	}
	s.indices = append(s.indices, base, base+1, base+2, base, base+2, base+3)
}

func (s *System) appendBillboards(cam core.Camera) {
	right, up := cam.Right, cam.Up
	if s.tmpl.GroundAligned {
		right, up = mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}
	}
	for i := range s.particles {
		p := &s.particles[i]
		if p.Dead {
			continue
		}
		half := p.Size * 0.5
		sin, cos := math.Sincos(float64(p.AngleZ))
		r := right.Mul(float32(cos)).Add(up.Mul(float32(sin))).Mul(half)
		u := up.Mul(float32(cos)).Sub(right.Mul(float32(sin))).Mul(half)
		pos := p.Position
		s.appendQuad([4]mgl32.Vec3{
			pos.Sub(r).Add(u), // top-left
			pos.Add(r).Add(u), // top-right
			pos.Add(r).Sub(u), // bottom-right
			pos.Sub(r).Sub(u), // bottom-left
		}, rgba(p.Color, p.Alpha))
	}
}

// appendStreaks emits a camera-facing ribbon along each trail; alpha fades
// toward the oldest point.
func (s *System) appendStreaks(cam core.Camera) {
	for i := range s.particles {
		p := &s.particles[i]
		if p.Dead || p.Trail == nil || p.Trail.Len() < 2 {
			continue
		}
		n := p.Trail.Len()
		half := p.Size * 0.5
		base := uint32(len(s.vertices))
		for j := 0; j < n; j++ {
			pt := p.Trail.At(j)
			var dir mgl32.Vec3
			if j+1 < n {
				dir = p.Trail.At(j + 1).Sub(pt)
			} else {
				dir = pt.Sub(p.Trail.At(j - 1))
			}
			side := dir.Cross(cam.Position.Sub(pt))
			if side.Len() < 1e-6 {
				side = cam.Right
			}
			side = side.Normalize().Mul(half)
			fade := 1 - float32(j)/float32(n-1)
			color := rgba(p.Color, p.Alpha*fade)
			v := float32(j) / float32(n-1)
			s.vertices = append(s.vertices,
				core.ParticleVertex{Pos: pt.Sub(side), UV: [2]float32{0, v}, Color: color},
				core.ParticleVertex{Pos: pt.Add(side), UV: [2]float32{1, v}, Color: color},
			)
		}
		for j := uint32(0); j+1 < uint32(n); j++ {
			a := base + 2*j
			s.indices = append(s.indices, a, a+1, a+3, a, a+3, a+2)
		}
	}
}
