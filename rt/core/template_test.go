package core

import (
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedRand float32

func (r fixedRand) Float32() float32 { return float32(r) }

func validTemplate() *Template {
	return &Template{
		Name:       "spark",
		Priority:   PriorityWeaponTrail,
		Capacity:   8,
		Lifetime:   IntRange{Min: 10, Max: 20},
		BurstCount: IntRange{Min: 1, Max: 1},
	}
}

func TestTemplateValidate(t *testing.T) {
	require.NoError(t, validTemplate().Validate())

	var nilTmpl *Template
	assert.ErrorIs(t, nilTmpl.Validate(), ErrNilTemplate)

	tests := []struct {
		name   string
		mutate func(*Template)
	}{
		{"empty name", func(t *Template) { t.Name = "" }},
		{"zero capacity", func(t *Template) { t.Capacity = 0 }},
		{"bad priority", func(t *Template) { t.Priority = Priority(NumPriorities) }},
		{"zero lifetime", func(t *Template) { t.Lifetime = IntRange{} }},
		{"too many alpha keys", func(t *Template) { t.AlphaKeys = make([]AlphaKey, MaxKeyframes+1) }},
		{"unordered color keys", func(t *Template) {
			t.ColorKeys = []ColorKey{{Time: 0.5}, {Time: 0.2}}
		}},
		{"short streak", func(t *Template) { t.Kind = KindStreak; t.TrailLength = 1 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tmpl := validTemplate()
			tc.mutate(tmpl)
			assert.ErrorIs(t, tmpl.Validate(), ErrInvalidTemplate)
		})
	}
}

func TestTemplateMaterialKey(t *testing.T) {
	tmpl := validTemplate()
	tmpl.Shader = ShaderAdditive
	tmpl.GroundAligned = true
	tmpl.Texture = 7
	assert.Equal(t, MaterialKey{Shader: ShaderAdditive, GroundAligned: true, Texture: 7}, tmpl.MaterialKey())
	assert.Equal(t, "additive/ground=true/tex=7", tmpl.MaterialKey().String())
}

func TestRangeSample(t *testing.T) {
	assert.Equal(t, float32(3), Fixed(3).Sample(fixedRand(0.9)))
	assert.Equal(t, float32(2), Range{Min: 2, Max: 4}.Sample(fixedRand(0)))
	assert.Equal(t, float32(3), Range{Min: 2, Max: 4}.Sample(fixedRand(0.5)))

	r := IntRange{Min: 1, Max: 3}
	assert.Equal(t, 1, r.Sample(fixedRand(0)))
	assert.Equal(t, 3, r.Sample(fixedRand(0.99)))
	assert.Equal(t, 5, IntRange{Min: 5, Max: 2}.Sample(fixedRand(0.5)))

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		v := r.Sample(rng)
		require.GreaterOrEqual(t, v, 1)
		require.LessOrEqual(t, v, 3)
	}
}

func TestEmissionVolumeSample(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	sphere := EmissionVolume{Type: VolumeSphere, Radius: 2}
	hollow := EmissionVolume{Type: VolumeSphere, Radius: 2, Hollow: true}
	box := EmissionVolume{Type: VolumeBox, HalfExtents: mgl32.Vec3{1, 2, 3}}
	for i := 0; i < 200; i++ {
		assert.LessOrEqual(t, sphere.Sample(rng).Len(), float32(2.0001))
		assert.InDelta(t, 2, hollow.Sample(rng).Len(), 1e-4)
		p := box.Sample(rng)
		assert.LessOrEqual(t, abs32(p.X()), float32(1))
		assert.LessOrEqual(t, abs32(p.Y()), float32(2))
		assert.LessOrEqual(t, abs32(p.Z()), float32(3))
	}

	line := EmissionVolume{Type: VolumeLine, Start: mgl32.Vec3{0, 0, 0}, End: mgl32.Vec3{4, 0, 0}}
	assert.Equal(t, mgl32.Vec3{2, 0, 0}, line.Sample(fixedRand(0.5)))
	assert.Equal(t, mgl32.Vec3{}, EmissionVolume{}.Sample(rng))
}

func TestEmissionVelocitySample(t *testing.T) {
	ortho := EmissionVelocity{X: Fixed(1), Y: Fixed(2), Z: Fixed(3)}
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, ortho.Sample(fixedRand(0.5), mgl32.Vec3{}))

	rng := rand.New(rand.NewSource(5))
	hemi := EmissionVelocity{Type: VelocityHemispherical, Speed: Fixed(4)}
	for i := 0; i < 100; i++ {
		v := hemi.Sample(rng, mgl32.Vec3{})
		assert.GreaterOrEqual(t, v.Y(), float32(0))
		assert.InDelta(t, 4, v.Len(), 1e-4)
	}

	out := EmissionVelocity{Type: VelocityOutward, Speed: Fixed(2), OtherSpeed: Fixed(1)}
	v := out.Sample(fixedRand(0), mgl32.Vec3{3, 0, 0})
	assert.InDelta(t, 2, v.X(), 1e-5)
	assert.InDelta(t, 1, v.Y(), 1e-5)
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
