package core

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxKeyframes bounds the alpha and color curves of a template.
const MaxKeyframes = 8

// Rand is the random source used for emission; *rand.Rand satisfies it.
type Rand interface {
	Float32() float32
}

// Range is an inclusive float interval sampled uniformly.
type Range struct {
	Min, Max float32
}

func Fixed(v float32) Range { return Range{Min: v, Max: v} }

func (r Range) Sample(rng Rand) float32 {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + (r.Max-r.Min)*rng.Float32()
}

// IntRange is an inclusive integer interval, used for tick counts.
type IntRange struct {
	Min, Max int
}

func (r IntRange) Sample(rng Rand) int {
	if r.Max <= r.Min {
		return r.Min
	}
	v := r.Min + int(rng.Float32()*float32(r.Max-r.Min+1))
	if v > r.Max {
		v = r.Max
	}
	return v
}

// AlphaKey is one alpha keyframe; Time is the lifetime fraction in [0,1].
type AlphaKey struct {
	Time  float32
	Value Range
}

// ColorKey is one color keyframe; Time is the lifetime fraction in [0,1].
type ColorKey struct {
	Time  float32
	Color mgl32.Vec3
}

type VolumeType uint8

const (
	VolumePoint VolumeType = iota
	VolumeSphere
	VolumeBox
	VolumeCylinder
	VolumeLine
)

// EmissionVolume is the emitter-local region new particles spawn in.
// Only the fields of the selected Type are read.
type EmissionVolume struct {
	Type        VolumeType
	Radius      float32    // sphere, cylinder
	Length      float32    // cylinder, along +Y
	HalfExtents mgl32.Vec3 // box
	Start, End  mgl32.Vec3 // line
	Hollow      bool       // sphere/cylinder: surface only
}

// Sample returns an emitter-local spawn offset.
func (v EmissionVolume) Sample(rng Rand) mgl32.Vec3 {
	switch v.Type {
	case VolumeSphere:
		r := v.Radius
		if !v.Hollow {
			r *= float32(math.Cbrt(float64(rng.Float32())))
		}
		return unitSphere(rng).Mul(r)
	case VolumeBox:
		h := v.HalfExtents
		return mgl32.Vec3{
			(rng.Float32()*2 - 1) * h.X(),
			(rng.Float32()*2 - 1) * h.Y(),
			(rng.Float32()*2 - 1) * h.Z(),
		}
	case VolumeCylinder:
		r := v.Radius
		if !v.Hollow {
			r *= float32(math.Sqrt(float64(rng.Float32())))
		}
		phi := 2 * math.Pi * float64(rng.Float32())
		return mgl32.Vec3{
			r * float32(math.Cos(phi)),
			rng.Float32() * v.Length,
			r * float32(math.Sin(phi)),
		}
	case VolumeLine:
		t := rng.Float32()
		return v.Start.Add(v.End.Sub(v.Start).Mul(t))
	}
	return mgl32.Vec3{}
}

type VelocityType uint8

const (
	VelocityOrtho VelocityType = iota
	VelocitySpherical
	VelocityHemispherical
	VelocityOutward
)

// EmissionVelocity is the initial velocity distribution, in units per second.
type EmissionVelocity struct {
	Type       VelocityType
	X, Y, Z    Range // ortho
	Speed      Range // spherical, hemispherical, outward
	OtherSpeed Range // outward: extra speed along emitter +Y
}

// Sample returns an emitter-local velocity for a particle spawned at offset.
func (v EmissionVelocity) Sample(rng Rand, offset mgl32.Vec3) mgl32.Vec3 {
	switch v.Type {
	case VelocitySpherical:
		return unitSphere(rng).Mul(v.Speed.Sample(rng))
	case VelocityHemispherical:
		d := unitSphere(rng)
		if d.Y() < 0 {
			d[1] = -d[1]
		}
		return d.Mul(v.Speed.Sample(rng))
	case VelocityOutward:
		dir := mgl32.Vec3{0, 1, 0}
		if offset.Len() > 1e-6 {
			dir = offset.Normalize()
		}
		return dir.Mul(v.Speed.Sample(rng)).Add(mgl32.Vec3{0, v.OtherSpeed.Sample(rng), 0})
	}
	return mgl32.Vec3{v.X.Sample(rng), v.Y.Sample(rng), v.Z.Sample(rng)}
}

func unitSphere(rng Rand) mgl32.Vec3 {
	z := rng.Float32()*2 - 1
	phi := 2 * math.Pi * float64(rng.Float32())
	s := float32(math.Sqrt(float64(1 - z*z)))
	return mgl32.Vec3{s * float32(math.Cos(phi)), z, s * float32(math.Sin(phi))}
}

// Template is the read-only emission description shared by every system
// instantiated from it. Do not mutate a Template after the first system uses it.
type Template struct {
	Name     string
	Priority Priority
	Kind     ParticleKind

	Shader        ShaderType
	GroundAligned bool
	TextureName   string
	Texture       TextureID

	Capacity int

	// Tick counts. SystemLifetime 0 emits until stopped.
	Lifetime       IntRange
	SystemLifetime int
	InitialDelay   IntRange
	BurstDelay     IntRange
	BurstCount     IntRange
	OneShot        bool

	Size            Range
	StartSizeRate   Range
	SizeRate        Range
	SizeRateDamping Range

	AngleZ         Range
	AngularRateZ   Range
	AngularDamping Range

	VelocityDamping Range
	Gravity         float32

	ColorScale Range
	AlphaKeys  []AlphaKey
	ColorKeys  []ColorKey

	Volume   EmissionVolume
	Velocity EmissionVelocity

	TrailLength  int    // streak only
	DrawableName string // drawable only
}

// MaterialKey is the render-state identity of systems using this template.
func (t *Template) MaterialKey() MaterialKey {
	return MaterialKey{
		Shader:        t.Shader,
		GroundAligned: t.GroundAligned,
		Texture:       t.Texture,
	}
}

// Validate checks the structural constraints every system relies on.
func (t *Template) Validate() error {
	if t == nil {
		return ErrNilTemplate
	}
	if t.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidTemplate)
	}
	if t.Capacity <= 0 {
		return fmt.Errorf("%w: %s: capacity must be positive", ErrInvalidTemplate, t.Name)
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("%w: %s: priority %d out of range", ErrInvalidTemplate, t.Name, t.Priority)
	}
	if t.Lifetime.Min <= 0 {
		return fmt.Errorf("%w: %s: particle lifetime must be at least one tick", ErrInvalidTemplate, t.Name)
	}
	if len(t.AlphaKeys) > MaxKeyframes || len(t.ColorKeys) > MaxKeyframes {
		return fmt.Errorf("%w: %s: more than %d keyframes", ErrInvalidTemplate, t.Name, MaxKeyframes)
	}
	for i := 1; i < len(t.AlphaKeys); i++ {
		if t.AlphaKeys[i].Time < t.AlphaKeys[i-1].Time {
			return fmt.Errorf("%w: %s: alpha keyframes out of order", ErrInvalidTemplate, t.Name)
		}
	}
	for i := 1; i < len(t.ColorKeys); i++ {
		if t.ColorKeys[i].Time < t.ColorKeys[i-1].Time {
			return fmt.Errorf("%w: %s: color keyframes out of order", ErrInvalidTemplate, t.Name)
		}
	}
	if t.Kind == KindStreak && t.TrailLength < 2 {
		return fmt.Errorf("%w: %s: streak needs trail length >= 2", ErrInvalidTemplate, t.Name)
	}
	return nil
}
