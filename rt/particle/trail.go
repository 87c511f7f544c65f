package particle

import "github.com/go-gl/mathgl/mgl32"

// Trail is a fixed-capacity ring of recent positions, most recent first.
type Trail struct {
	points []mgl32.Vec3
	head   int
	n      int
}

func NewTrail(capacity int) *Trail {
	if capacity < 1 {
		capacity = 1
	}
	return &Trail{points: make([]mgl32.Vec3, capacity)}
}

func (t *Trail) Push(p mgl32.Vec3) {
	c := len(t.points)
	t.head = (t.head - 1 + c) % c
	t.points[t.head] = p
	if t.n < c {
		t.n++
	}
}

func (t *Trail) Len() int { return t.n }

func (t *Trail) Cap() int { return len(t.points) }

// At returns the i-th most recent position; At(0) is the newest.
func (t *Trail) At(i int) mgl32.Vec3 {
	return t.points[(t.head+i)%len(t.points)]
}

func (t *Trail) Reset() {
	t.head = 0
	t.n = 0
}
