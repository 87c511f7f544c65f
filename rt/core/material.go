package core

import (
	"fmt"
	"strings"
)

// ShaderType selects the blend configuration of a particle pipeline.
type ShaderType uint8

const (
	ShaderAlpha ShaderType = iota
	ShaderAdditive
	ShaderAlphaTest
	ShaderMultiply
)

func (s ShaderType) String() string {
	switch s {
	case ShaderAlpha:
		return "alpha"
	case ShaderAdditive:
		return "additive"
	case ShaderAlphaTest:
		return "alpha_test"
	case ShaderMultiply:
		return "multiply"
	}
	return fmt.Sprintf("shader(%d)", uint8(s))
}

func ParseShaderType(s string) (ShaderType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "alpha":
		return ShaderAlpha, nil
	case "additive":
		return ShaderAdditive, nil
	case "alpha_test":
		return ShaderAlphaTest, nil
	case "multiply":
		return ShaderMultiply, nil
	}
	return 0, fmt.Errorf("unknown particle shader %q", s)
}

// TextureID is a compact texture identifier assigned by the asset layer.
// Zero means "untextured".
type TextureID uint32

// MaterialKey identifies render-state-compatible particle systems.
// Equal keys can share one pipeline and resource-set binding.
type MaterialKey struct {
	Shader        ShaderType
	GroundAligned bool
	Texture       TextureID
}

func (k MaterialKey) String() string {
	return fmt.Sprintf("%s/ground=%t/tex=%d", k.Shader, k.GroundAligned, k.Texture)
}

// ParticleKind is the closed set of particle render variants.
type ParticleKind uint8

const (
	KindBillboard ParticleKind = iota
	KindStreak
	KindDrawable
)

func (k ParticleKind) String() string {
	switch k {
	case KindBillboard:
		return "billboard"
	case KindStreak:
		return "streak"
	case KindDrawable:
		return "drawable"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

func ParseParticleKind(s string) (ParticleKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "billboard", "particle":
		return KindBillboard, nil
	case "streak":
		return KindStreak, nil
	case "drawable":
		return KindDrawable, nil
	}
	return 0, fmt.Errorf("unknown particle kind %q", s)
}
