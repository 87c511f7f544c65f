package particlefx

import (
	"slices"

	"github.com/gekko3d/particlefx/rt/core"
	"github.com/go-gl/mathgl/mgl32"
)

// RenderStats describes one RenderList pass.
type RenderStats struct {
	Entries  int
	Culled   int
	Rendered int
}

// RenderList is a scene-side core.RenderBucket: one submission-ordered list
// per bucket, drawn bucket by bucket.
type RenderList struct {
	buckets [core.NumBuckets][]core.Renderable
	frustum *[6]mgl32.Vec4
}

func NewRenderList() *RenderList {
	return &RenderList{}
}

func (l *RenderList) AddRenderable(bucket core.BucketID, r core.Renderable) {
	if int(bucket) >= core.NumBuckets {
		return
	}
	l.buckets[bucket] = append(l.buckets[bucket], r)
}

func (l *RenderList) RemoveRenderable(bucket core.BucketID, r core.Renderable) {
	if int(bucket) >= core.NumBuckets {
		return
	}
	if i := slices.Index(l.buckets[bucket], r); i >= 0 {
		l.buckets[bucket] = slices.Delete(l.buckets[bucket], i, i+1)
	}
}

// Bucket returns the renderables of one bucket in submission order.
func (l *RenderList) Bucket(bucket core.BucketID) []core.Renderable {
	if int(bucket) >= core.NumBuckets {
		return nil
	}
	return l.buckets[bucket]
}

// SetViewProj enables frustum culling against viewProj.
func (l *RenderList) SetViewProj(viewProj mgl32.Mat4) {
	planes := core.ExtractFrustum(viewProj)
	l.frustum = &planes
}

// DisableCulling draws every entry regardless of bounds.
func (l *RenderList) DisableCulling() { l.frustum = nil }

// Render draws every bucket in order, skipping entries outside the frustum.
func (l *RenderList) Render(ctx core.RenderContext) (RenderStats, error) {
	var st RenderStats
	for b := range l.buckets {
		for _, r := range l.buckets[b] {
			st.Entries++
			if l.frustum != nil && !r.Bounds().InFrustum(*l.frustum) {
				st.Culled++
				continue
			}
			if err := r.Render(ctx); err != nil {
				return st, err
			}
			st.Rendered++
		}
	}
	return st, nil
}
