package core

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// ParticleVertex matches the WGSL layout in particles.wgsl:
// struct VertexInput { vec3 pos; vec2 uv; vec4 color; }
type ParticleVertex struct {
	Pos   [3]float32
	UV    [2]float32
	Color [4]float32
}

// Camera carries the axes billboards are expanded along.
type Camera struct {
	Position mgl32.Vec3
	Right    mgl32.Vec3
	Up       mgl32.Vec3
}

// CameraFromView extracts world-space right/up from a view matrix.
func CameraFromView(view mgl32.Mat4, position mgl32.Vec3) Camera {
	return Camera{
		Position: position,
		Right:    mgl32.Vec3{view.At(0, 0), view.At(0, 1), view.At(0, 2)},
		Up:       mgl32.Vec3{view.At(1, 0), view.At(1, 1), view.At(1, 2)},
	}
}

// RenderContext is the GPU-facing surface particle renderers draw through.
// A bind stays in effect for every following draw until the next bind.
type RenderContext interface {
	Camera() Camera
	BindMaterial(key MaterialKey) error
	DrawIndexed(vertices []ParticleVertex, indices []uint32) error
}

// Renderable is one entry of a render bucket.
type Renderable interface {
	Bounds() AABB
	Material() MaterialKey
	Render(ctx RenderContext) error
}

// BucketID orders render buckets; lower ids draw first.
type BucketID uint8

const (
	BucketTerrain BucketID = iota
	BucketRoads
	BucketWater
	BucketOpaque
	BucketParticles
	BucketOverlay

	NumBuckets = int(BucketOverlay) + 1
)

func (b BucketID) String() string {
	switch b {
	case BucketTerrain:
		return "terrain"
	case BucketRoads:
		return "roads"
	case BucketWater:
		return "water"
	case BucketOpaque:
		return "opaque"
	case BucketParticles:
		return "particles"
	case BucketOverlay:
		return "overlay"
	}
	return fmt.Sprintf("bucket(%d)", uint8(b))
}

// RenderBucket is the scene-side render submission sink.
type RenderBucket interface {
	AddRenderable(bucket BucketID, r Renderable)
	RemoveRenderable(bucket BucketID, r Renderable)
}
