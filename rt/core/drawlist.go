package core

// DrawCommand is one indexed draw over a DrawList's shared buffers.
type DrawCommand struct {
	Material   MaterialKey
	FirstIndex uint32
	IndexCount uint32
}

// DrawList records a frame of particle draws into one vertex and one index
// array. Consecutive draws under the same bind are merged into a single
// command; indices are rebased onto the shared vertex array.
type DrawList struct {
	Cam      Camera
	Vertices []ParticleVertex
	Indices  []uint32
	Commands []DrawCommand

	// Binds and Draws count RenderContext calls, before merging.
	Binds int
	Draws int

	current MaterialKey
	bound   bool
	fresh   bool
}

// Reset empties the list for a new frame, keeping allocations.
func (d *DrawList) Reset(cam Camera) {
	d.Cam = cam
	d.Vertices = d.Vertices[:0]
	d.Indices = d.Indices[:0]
	d.Commands = d.Commands[:0]
	d.Binds, d.Draws = 0, 0
	d.bound = false
}

func (d *DrawList) Camera() Camera { return d.Cam }

func (d *DrawList) BindMaterial(key MaterialKey) error {
	d.Binds++
	if d.bound && d.current == key {
		return nil
	}
	d.current = key
	d.bound = true
	d.fresh = true
	return nil
}

func (d *DrawList) DrawIndexed(vertices []ParticleVertex, indices []uint32) error {
	if !d.bound {
		return ErrNoMaterial
	}
	d.Draws++
	if len(indices) == 0 {
		return nil
	}
	base := uint32(len(d.Vertices))
	first := uint32(len(d.Indices))
	d.Vertices = append(d.Vertices, vertices...)
	for _, i := range indices {
		d.Indices = append(d.Indices, base+i)
	}
	n := uint32(len(indices))
	if !d.fresh && len(d.Commands) > 0 {
		d.Commands[len(d.Commands)-1].IndexCount += n
		return nil
	}
	d.Commands = append(d.Commands, DrawCommand{Material: d.current, FirstIndex: first, IndexCount: n})
	d.fresh = false
	return nil
}
