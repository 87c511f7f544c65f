package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// AABB is an axis-aligned world-space bounding box.
// The zero value is a zero-sized box at the origin.
type AABB struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// EmptyAABB returns an inverted box that any Extend call will replace.
func EmptyAABB() AABB {
	inf := float32(1e20)
	return AABB{
		Min: mgl32.Vec3{inf, inf, inf},
		Max: mgl32.Vec3{-inf, -inf, -inf},
	}
}

func (b AABB) IsEmpty() bool {
	return b.Min.X() > b.Max.X() || b.Min.Y() > b.Max.Y() || b.Min.Z() > b.Max.Z()
}

// ExtendPoint grows b to contain p padded by radius.
func (b AABB) ExtendPoint(p mgl32.Vec3, radius float32) AABB {
	r := mgl32.Vec3{radius, radius, radius}
	lo, hi := p.Sub(r), p.Add(r)
	return AABB{
		Min: mgl32.Vec3{min(b.Min.X(), lo.X()), min(b.Min.Y(), lo.Y()), min(b.Min.Z(), lo.Z())},
		Max: mgl32.Vec3{max(b.Max.X(), hi.X()), max(b.Max.Y(), hi.Y()), max(b.Max.Z(), hi.Z())},
	}
}

// Union returns the smallest box containing both. Empty operands are ignored.
func (b AABB) Union(o AABB) AABB {
	if o.IsEmpty() {
		return b
	}
	if b.IsEmpty() {
		return o
	}
	return AABB{
		Min: mgl32.Vec3{min(b.Min.X(), o.Min.X()), min(b.Min.Y(), o.Min.Y()), min(b.Min.Z(), o.Min.Z())},
		Max: mgl32.Vec3{max(b.Max.X(), o.Max.X()), max(b.Max.Y(), o.Max.Y()), max(b.Max.Z(), o.Max.Z())},
	}
}

// OrZero collapses an empty box to the zero box at the origin.
func (b AABB) OrZero() AABB {
	if b.IsEmpty() {
		return AABB{}
	}
	return b
}

func (b AABB) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Transform returns a conservative world box for b under m.
func (b AABB) Transform(m mgl32.Mat4) AABB {
	if b.IsEmpty() {
		return b
	}
	corners := [8]mgl32.Vec3{
		{b.Min.X(), b.Min.Y(), b.Min.Z()},
		{b.Max.X(), b.Min.Y(), b.Min.Z()},
		{b.Min.X(), b.Max.Y(), b.Min.Z()},
		{b.Max.X(), b.Max.Y(), b.Min.Z()},
		{b.Min.X(), b.Min.Y(), b.Max.Z()},
		{b.Max.X(), b.Min.Y(), b.Max.Z()},
		{b.Min.X(), b.Max.Y(), b.Max.Z()},
		{b.Max.X(), b.Max.Y(), b.Max.Z()},
	}
	out := EmptyAABB()
	for _, c := range corners {
		out = out.ExtendPoint(m.Mul4x1(c.Vec4(1.0)).Vec3(), 0)
	}
	return out
}

// InFrustum checks if the box is visible within the frustum defined by 6 planes.
// Planes are in Ax+By+Cz+D=0 form with the normal pointing inside.
func (b AABB) InFrustum(planes [6]mgl32.Vec4) bool {
	for i := 0; i < 6; i++ {
		plane := planes[i]
		// Most-inside corner along the plane normal; if it is behind, all are.
		var p mgl32.Vec3
		for axis := 0; axis < 3; axis++ {
			if plane[axis] > 0 {
				p[axis] = b.Max[axis]
			} else {
				p[axis] = b.Min[axis]
			}
		}
		if plane[0]*p[0]+plane[1]*p[1]+plane[2]*p[2]+plane[3] < 0 {
			return false
		}
	}
	return true
}

// ExtractFrustum returns the six inward-facing planes of a view-projection matrix.
func ExtractFrustum(viewProj mgl32.Mat4) [6]mgl32.Vec4 {
	row := func(i int) mgl32.Vec4 { return viewProj.Row(i) }
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)
	planes := [6]mgl32.Vec4{
		r3.Add(r0), // left
		r3.Sub(r0), // right
		r3.Add(r1), // bottom
		r3.Sub(r1), // top
		r3.Add(r2), // near (GL-style -1..1 depth)
		r3.Sub(r2), // far
	}
	for i := range planes {
		n := planes[i].Vec3().Len()
		if n > 0 {
			planes[i] = planes[i].Mul(1 / n)
		}
	}
	return planes
}
