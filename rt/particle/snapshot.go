package particle

import (
	"github.com/gekko3d/particlefx/rt/core"
	"github.com/go-gl/mathgl/mgl32"
)

// ParticleState is the persisted form of one live slot.
type ParticleState struct {
	Slot            int        `yaml:"slot"`
	Position        [3]float32 `yaml:"position,flow"`
	EmitterPosition [3]float32 `yaml:"emitter,flow"`
	Velocity        [3]float32 `yaml:"velocity,flow"`
	VelocityDamping float32    `yaml:"velocity_damping"`
	Size            float32    `yaml:"size"`
	SizeRate        float32    `yaml:"size_rate"`
	SizeRateDamping float32    `yaml:"size_rate_damping"`
	AngleZ          float32    `yaml:"angle_z"`
	AngularRateZ    float32    `yaml:"angular_rate_z"`
	AngularDamping  float32    `yaml:"angular_damping"`
	Lifetime        int        `yaml:"lifetime"`
	Remaining       int        `yaml:"remaining"`
	ColorScale      float32    `yaml:"color_scale"`
	AlphaTimes      []float32  `yaml:"alpha_times,flow,omitempty"`
	AlphaValues     []float32  `yaml:"alpha_values,flow,omitempty"`
}

// Snapshot is the persisted form of a System, minus its template and
// transform which the loader supplies.
type Snapshot struct {
	State      string          `yaml:"state"`
	Ticks      int             `yaml:"ticks"`
	Delay      int             `yaml:"delay"`
	BurstTimer int             `yaml:"burst_timer"`
	Particles  []ParticleState `yaml:"particles"`
}

// Snapshot captures live slots in slot order.
func (s *System) Snapshot() Snapshot {
	snap := Snapshot{
		State:      s.state.String(),
		Ticks:      s.ticks,
		Delay:      s.delay,
		BurstTimer: s.burstTimer,
	}
	for i := range s.particles {
		p := &s.particles[i]
		if p.Dead {
			continue
		}
		ps := ParticleState{
			Slot:            i,
			Position:        p.Position,
			EmitterPosition: p.EmitterPosition,
			Velocity:        p.Velocity,
			VelocityDamping: p.VelocityDamping,
			Size:            p.Size,
			SizeRate:        p.SizeRate,
			SizeRateDamping: p.SizeRateDamping,
			AngleZ:          p.AngleZ,
			AngularRateZ:    p.AngularRateZ,
			AngularDamping:  p.AngularDamping,
			Lifetime:        p.Lifetime,
			Remaining:       p.Remaining,
			ColorScale:      p.ColorScale,
		}
		for k := 0; k < p.numAlpha; k++ {
			ps.AlphaTimes = append(ps.AlphaTimes, p.alphaKeys[k].time)
			ps.AlphaValues = append(ps.AlphaValues, p.alphaKeys[k].value)
		}
		snap.Particles = append(snap.Particles, ps)
	}
	return snap
}

// Restore loads a snapshot into a freshly created system. Each particle is
// re-admitted through the Admitter in snapshot order; denied or out-of-range
// entries are dropped. Returns the number of particles restored.
func (s *System) Restore(snap Snapshot) (int, error) {
	state, err := ParseState(snap.State)
	if err != nil {
		return 0, err
	}
	s.ticks = snap.Ticks
	s.delay = snap.Delay
	s.burstTimer = snap.BurstTimer

	restored := 0
	for _, ps := range snap.Particles {
		if !s.claimSlot(ps.Slot) {
			continue
		}
		entry := noEntry
		if s.opts.Admitter != nil {
			h, ok := s.opts.Admitter.AddParticle(s, ps.Slot, s.tmpl.Priority)
			if !ok {
				s.free = append(s.free, ps.Slot)
				s.denied++
				continue
			}
			entry = h
		}
		s.restoreSlot(ps, entry)
		restored++
	}

	s.state = state
	if s.state != Active && s.live == 0 {
		s.state = Dead
	}
	s.recomputeBounds()
	return restored, nil
}

// claimSlot removes a specific slot from the free list.
func (s *System) claimSlot(slot int) bool {
	if slot < 0 || slot >= len(s.particles) || !s.particles[slot].Dead {
		return false
	}
	for i, f := range s.free {
		if f == slot {
			s.free = append(s.free[:i], s.free[i+1:]...)
			return true
		}
	}
	return false
}

func (s *System) restoreSlot(ps ParticleState, entry EntryHandle) {
	p := &s.particles[ps.Slot]
	trail := p.Trail
	*p = Particle{
		Position:        mgl32.Vec3(ps.Position),
		EmitterPosition: mgl32.Vec3(ps.EmitterPosition),
		Velocity:        mgl32.Vec3(ps.Velocity),
		VelocityDamping: ps.VelocityDamping,
		Size:            ps.Size,
		SizeRate:        ps.SizeRate,
		SizeRateDamping: ps.SizeRateDamping,
		AngleZ:          ps.AngleZ,
		AngularRateZ:    ps.AngularRateZ,
		AngularDamping:  ps.AngularDamping,
		Lifetime:        ps.Lifetime,
		Remaining:       ps.Remaining,
		ColorScale:      ps.ColorScale,
		Kind:            s.tmpl.Kind,
		Trail:           trail,
		entry:           entry,
	}
	for k := 0; k < len(ps.AlphaTimes) && k < len(ps.AlphaValues) && k < core.MaxKeyframes; k++ {
		p.alphaKeys[k] = alphaKey{time: ps.AlphaTimes[k], value: ps.AlphaValues[k]}
		p.numAlpha++
	}
	frac := p.LifeFraction()
	p.Alpha = p.sampleAlpha(frac)
	p.Color = sampleColor(s.tmpl.ColorKeys, frac)
	if trail != nil {
		trail.Reset()
		trail.Push(p.Position)
	}
	s.live++
}
