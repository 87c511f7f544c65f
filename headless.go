package particlefx

import (
	"github.com/gekko3d/particlefx/rt/core"
)

// HeadlessContext is a RenderContext that records geometry without a GPU,
// for benchmarks and tests.
type HeadlessContext struct {
	core.DrawList

	Frames     int
	TotalDraws int
	TotalVerts int
}

func NewHeadlessContext(cam core.Camera) *HeadlessContext {
	h := &HeadlessContext{}
	h.Reset(cam)
	return h
}

// BeginFrame folds the previous frame into the totals and clears the list.
func (h *HeadlessContext) BeginFrame() {
	h.TotalDraws += h.Draws
	h.TotalVerts += len(h.Vertices)
	h.Frames++
	h.Reset(h.Cam)
}
