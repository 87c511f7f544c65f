package core

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// DrawableHandle is an opaque slot handle into an external drawable store.
type DrawableHandle uint32

// Drawable is an externally owned renderable a particle can carry.
type Drawable interface {
	ID() uuid.UUID
	SetWorldMatrix(m mgl32.Mat4)
}

// DrawableHost owns drawables. Handles may be recycled, so a lookup must be
// confirmed against the identity recorded at attach time.
type DrawableHost interface {
	Spawn(name string) (DrawableHandle, uuid.UUID, bool)
	Lookup(h DrawableHandle) (Drawable, bool)
	Release(h DrawableHandle)
}

// Attachment is a weak reference from a particle to a drawable.
type Attachment struct {
	Handle DrawableHandle
	ID     uuid.UUID
}

func (a Attachment) Valid() bool { return a.ID != uuid.Nil }

// Resolve returns the attached drawable, or false when the attachment is
// empty or stale.
func (a Attachment) Resolve(host DrawableHost) (Drawable, bool) {
	if !a.Valid() || host == nil {
		return nil, false
	}
	d, ok := host.Lookup(a.Handle)
	if !ok || d == nil || d.ID() != a.ID {
		return nil, false
	}
	return d, true
}
