package particle

import (
	"github.com/gekko3d/particlefx/rt/core"
	"github.com/go-gl/mathgl/mgl32"
)

// EntryHandle identifies a particle's entry in the manager's budget sequences.
// Gen guards against reuse of the arena node after removal.
type EntryHandle struct {
	Index int32
	Gen   uint32
}

var noEntry = EntryHandle{Index: -1}

func (h EntryHandle) Valid() bool { return h.Index >= 0 }

type alphaKey struct {
	time  float32
	value float32
}

// Particle is one simulated slot of a System.
type Particle struct {
	Position        mgl32.Vec3
	EmitterPosition mgl32.Vec3
	Velocity        mgl32.Vec3
	VelocityDamping float32

	Size            float32
	SizeRate        float32
	SizeRateDamping float32

	AngleZ         float32
	AngularRateZ   float32
	AngularDamping float32

	Lifetime  int // ticks
	Remaining int // ticks
	Dead      bool

	ColorScale float32
	Color      mgl32.Vec3
	Alpha      float32

	alphaKeys [core.MaxKeyframes]alphaKey
	numAlpha  int

	// Kind payload: Trail is set for streaks, Attach for drawables.
	Kind   core.ParticleKind
	Trail  *Trail
	Attach core.Attachment

	entry EntryHandle
}

// Age is the number of ticks the particle has lived.
func (p *Particle) Age() int { return p.Lifetime - p.Remaining }

// LifeFraction is age over lifetime, in [0,1].
func (p *Particle) LifeFraction() float32 {
	if p.Lifetime <= 0 {
		return 1
	}
	f := float32(p.Age()) / float32(p.Lifetime)
	return mgl32.Clamp(f, 0, 1)
}

func (p *Particle) sampleAlpha(frac float32) float32 {
	switch {
	case p.numAlpha == 0:
		return 1
	case frac <= p.alphaKeys[0].time:
		return p.alphaKeys[0].value
	}
	for i := 1; i < p.numAlpha; i++ {
		k0, k1 := p.alphaKeys[i-1], p.alphaKeys[i]
		if frac <= k1.time {
			span := k1.time - k0.time
			if span <= 0 {
				return k1.value
			}
			t := (frac - k0.time) / span
			return k0.value + (k1.value-k0.value)*t
		}
	}
	return p.alphaKeys[p.numAlpha-1].value
}

func sampleColor(keys []core.ColorKey, frac float32) mgl32.Vec3 {
	switch {
	case len(keys) == 0:
		return mgl32.Vec3{1, 1, 1}
	case frac <= keys[0].Time:
		return keys[0].Color
	}
	for i := 1; i < len(keys); i++ {
		k0, k1 := keys[i-1], keys[i]
		if frac <= k1.Time {
			span := k1.Time - k0.Time
			if span <= 0 {
				return k1.Color
			}
			t := (frac - k0.Time) / span
			return k0.Color.Add(k1.Color.Sub(k0.Color).Mul(t))
		}
	}
	return keys[len(keys)-1].Color
}

// integrate advances the particle by one tick of dt seconds.
func (p *Particle) integrate(tmpl *core.Template, dt float32) {
	p.Velocity = p.Velocity.Mul(p.VelocityDamping)
	p.Velocity[1] -= tmpl.Gravity * dt
	p.Position = p.Position.Add(p.Velocity.Mul(dt))

	p.SizeRate *= p.SizeRateDamping
	p.Size += p.SizeRate * dt
	if p.Size < 0 {
		p.Size = 0
	}

	p.AngularRateZ *= p.AngularDamping
	p.AngleZ += p.AngularRateZ * dt

	p.Remaining--

	frac := p.LifeFraction()
	p.Alpha = p.sampleAlpha(frac)
	c := sampleColor(tmpl.ColorKeys, frac)
	scale := p.ColorScale * float32(p.Age())
	p.Color = mgl32.Vec3{
		mgl32.Clamp(c.X()+scale, 0, 1),
		mgl32.Clamp(c.Y()+scale, 0, 1),
		mgl32.Clamp(c.Z()+scale, 0, 1),
	}

	if p.Kind == core.KindStreak && p.Trail != nil {
		p.Trail.Push(p.Position)
	}
}

// worldMatrix places an attached drawable at the particle.
func (p *Particle) worldMatrix() mgl32.Mat4 {
	s := p.Size
	if s <= 0 {
		s = 1
	}
	return mgl32.Translate3D(p.Position.X(), p.Position.Y(), p.Position.Z()).
		Mul4(mgl32.HomogRotate3DZ(p.AngleZ)).
		Mul4(mgl32.Scale3D(s, s, s))
}
