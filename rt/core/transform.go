package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// TransformSource resolves an emitter's current world matrix.
type TransformSource interface {
	WorldMatrix() mgl32.Mat4
}

// FixedTransform is a TransformSource that never changes.
type FixedTransform mgl32.Mat4

func (f FixedTransform) WorldMatrix() mgl32.Mat4 { return mgl32.Mat4(f) }

// At returns a fixed translation-only transform.
func At(pos mgl32.Vec3) FixedTransform {
	return FixedTransform(mgl32.Translate3D(pos.X(), pos.Y(), pos.Z()))
}

// TransformFunc resolves the world matrix each tick.
type TransformFunc func() mgl32.Mat4

func (f TransformFunc) WorldMatrix() mgl32.Mat4 { return f() }

// Transform is a TRS transform usable as a live TransformSource.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

func NewTransform() *Transform {
	return &Transform{
		Position: mgl32.Vec3{0, 0, 0},
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// WorldMatrix is T * R * S.
func (t *Transform) WorldMatrix() mgl32.Mat4 {
	translate := mgl32.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z())
	rotate := t.Rotation.Mat4()
	scale := mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z())
	return translate.Mul4(rotate).Mul4(scale)
}
