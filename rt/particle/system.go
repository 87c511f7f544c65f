package particle

import (
	"fmt"
	"math/rand"

	"github.com/gekko3d/particlefx/rt/core"
	"github.com/go-gl/mathgl/mgl32"
)

// State is the lifecycle of a System.
type State uint8

const (
	// Active systems emit and integrate.
	Active State = iota
	// Inactive systems no longer emit; live particles run out.
	Inactive
	// Dead systems have no live particles and no pending emission. Terminal.
	Dead
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Inactive:
		return "inactive"
	case Dead:
		return "dead"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

func ParseState(s string) (State, error) {
	switch s {
	case "active":
		return Active, nil
	case "inactive":
		return Inactive, nil
	case "dead":
		return Dead, nil
	}
	return 0, fmt.Errorf("unknown particle system state %q", s)
}

// Admitter grants budget slots to newly emitted particles.
type Admitter interface {
	AddParticle(sys *System, slot int, priority core.Priority) (EntryHandle, bool)
	RemoveParticle(priority core.Priority, h EntryHandle)
}

// Options are the optional collaborators of a System.
type Options struct {
	// Admitter budgets emission. Nil admits every emission.
	Admitter Admitter
	// Rand drives emission sampling. Nil uses a source seeded from the id.
	Rand core.Rand
	// Drawables backs KindDrawable particles. Nil leaves them unattached.
	Drawables core.DrawableHost
}

// System owns a fixed array of particle slots sharing one template.
type System struct {
	id        uint64
	tmpl      *core.Template
	transform core.TransformSource
	opts      Options
	rng       core.Rand

	state     State
	particles []Particle
	free      []int
	live      int

	ticks      int
	delay      int
	burstTimer int
	world      mgl32.Mat4
	bounds     core.AABB

	emitted int
	denied  int

	vertices []core.ParticleVertex
	indices  []uint32
}

// NewSystem creates an Active system with no particles. Only a nil template
// or transform source is rejected.
func NewSystem(id uint64, tmpl *core.Template, transform core.TransformSource, opts Options) (*System, error) {
	if tmpl == nil {
		return nil, core.ErrNilTemplate
	}
	if transform == nil {
		return nil, core.ErrNilTransform
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(int64(id)))
	}
	capacity := tmpl.Capacity
	if capacity < 0 {
		capacity = 0
	}
	s := &System{
		id:        id,
		tmpl:      tmpl,
		transform: transform,
		opts:      opts,
		rng:       rng,
		state:     Active,
		particles: make([]Particle, capacity),
		free:      make([]int, 0, capacity),
		world:     transform.WorldMatrix(),
	}
	// Pop order hands out low slots first.
	for i := capacity - 1; i >= 0; i-- {
		p := &s.particles[i]
		p.Dead = true
		p.Kind = tmpl.Kind
		p.entry = noEntry
		if tmpl.Kind == core.KindStreak {
			p.Trail = NewTrail(tmpl.TrailLength)
		}
		s.free = append(s.free, i)
	}
	s.delay = tmpl.InitialDelay.Sample(rng)
	return s, nil
}

func (s *System) ID() uint64                 { return s.id }
func (s *System) Template() *core.Template   { return s.tmpl }
func (s *System) State() State               { return s.state }
func (s *System) LiveCount() int             { return s.live }
func (s *System) Capacity() int              { return len(s.particles) }
func (s *System) Priority() core.Priority    { return s.tmpl.Priority }
func (s *System) Material() core.MaterialKey { return s.tmpl.MaterialKey() }

// Bounds is the box around live particles as of the last Update; a system
// without particles reports the zero box at the origin.
func (s *System) Bounds() core.AABB { return s.bounds }

// WorldMatrix is the emitter transform resolved at the last Update.
func (s *System) WorldMatrix() mgl32.Mat4 { return s.world }

// Emitted and Denied count emissions admitted and refused by the budget.
func (s *System) Emitted() int { return s.emitted }
func (s *System) Denied() int  { return s.denied }

// Particle exposes slot i for inspection. Callers must not keep the pointer
// across ticks.
func (s *System) Particle(i int) *Particle {
	if i < 0 || i >= len(s.particles) {
		return nil
	}
	return &s.particles[i]
}

// Stop ends emission. Live particles keep integrating.
func (s *System) Stop() {
	if s.state == Active {
		s.state = Inactive
	}
}

// Update advances the system by one simulation tick of dt seconds.
func (s *System) Update(dt float32) {
	if s.state == Dead {
		return
	}
	s.world = s.transform.WorldMatrix()

	for i := range s.particles {
		p := &s.particles[i]
		if p.Dead {
			continue
		}
		p.integrate(s.tmpl, dt)
		if p.Remaining <= 0 {
			s.retire(i)
			continue
		}
		if p.Kind == core.KindDrawable {
			if d, ok := p.Attach.Resolve(s.opts.Drawables); ok {
				d.SetWorldMatrix(p.worldMatrix())
			}
		}
	}

	if s.state == Active {
		s.emit()
	}

	if s.state == Inactive && s.live == 0 {
		s.state = Dead
	}
	s.recomputeBounds()
}

func (s *System) emit() {
	s.ticks++
	if s.delay > 0 {
		s.delay--
	} else if s.burstTimer > 0 {
		s.burstTimer--
	} else {
		n := s.tmpl.BurstCount.Sample(s.rng)
		for i := 0; i < n; i++ {
			s.emitOne()
		}
		s.burstTimer = s.tmpl.BurstDelay.Sample(s.rng)
		if s.tmpl.OneShot {
			s.state = Inactive
		}
	}
	if s.tmpl.SystemLifetime > 0 && s.ticks >= s.tmpl.SystemLifetime {
		s.state = Inactive
	}
}

// emitOne spawns one particle if a slot is free and the budget admits it.
func (s *System) emitOne() bool {
	slot, ok := s.takeSlot()
	if !ok {
		return false
	}
	entry := noEntry
	if s.opts.Admitter != nil {
		h, admitted := s.opts.Admitter.AddParticle(s, slot, s.tmpl.Priority)
		if !admitted {
			s.free = append(s.free, slot)
			s.denied++
			return false
		}
		entry = h
	}
	s.spawn(slot, entry)
	s.emitted++
	return true
}

func (s *System) takeSlot() (int, bool) {
	n := len(s.free)
	if n == 0 {
		return 0, false
	}
	slot := s.free[n-1]
	s.free = s.free[:n-1]
	return slot, true
}

// spawn fully reinitializes a slot so nothing leaks from its previous tenant.
func (s *System) spawn(slot int, entry EntryHandle) {
	t := s.tmpl
	rng := s.rng
	p := &s.particles[slot]
	trail := p.Trail

	offset := t.Volume.Sample(rng)
	vel := t.Velocity.Sample(rng, offset)
	origin := s.world.Col(3).Vec3()

	*p = Particle{
		Position:        s.world.Mul4x1(offset.Vec4(1)).Vec3(),
		EmitterPosition: origin,
		Velocity:        s.world.Mul4x1(vel.Vec4(0)).Vec3(),
		VelocityDamping: damping(t.VelocityDamping.Sample(rng)),
		Size:            t.Size.Sample(rng),
		SizeRate:        t.StartSizeRate.Sample(rng) + t.SizeRate.Sample(rng),
		SizeRateDamping: damping(t.SizeRateDamping.Sample(rng)),
		AngleZ:          t.AngleZ.Sample(rng),
		AngularRateZ:    t.AngularRateZ.Sample(rng),
		AngularDamping:  damping(t.AngularDamping.Sample(rng)),
		ColorScale:      t.ColorScale.Sample(rng),
		Kind:            t.Kind,
		Trail:           trail,
		entry:           entry,
	}
	p.Lifetime = t.Lifetime.Sample(rng)
	if p.Lifetime < 1 {
		p.Lifetime = 1
	}
	p.Remaining = p.Lifetime
	for i, k := range t.AlphaKeys {
		if i == core.MaxKeyframes {
			break
		}
		p.alphaKeys[i] = alphaKey{time: k.Time, value: k.Value.Sample(rng)}
		p.numAlpha++
	}
	p.Alpha = p.sampleAlpha(0)
	p.Color = sampleColor(t.ColorKeys, 0)

	if trail != nil {
		trail.Reset()
		trail.Push(p.Position)
	}
	if t.Kind == core.KindDrawable && s.opts.Drawables != nil {
		if h, id, ok := s.opts.Drawables.Spawn(t.DrawableName); ok {
			p.Attach = core.Attachment{Handle: h, ID: id}
			if d, ok := p.Attach.Resolve(s.opts.Drawables); ok {
				d.SetWorldMatrix(p.worldMatrix())
			}
		}
	}
	s.live++
}

// Non-positive damping means undamped.
func damping(v float32) float32 {
	if v <= 0 {
		return 1
	}
	return v
}

// retire ends a particle's natural life and releases its budget entry.
func (s *System) retire(slot int) {
	p := &s.particles[slot]
	entry := p.entry
	s.kill(slot)
	if s.opts.Admitter != nil && entry.Valid() {
		s.opts.Admitter.RemoveParticle(s.tmpl.Priority, entry)
	}
}

// MarkParticleDead forces immediate death of a slot. Budget bookkeeping is
// the caller's responsibility; this never calls back into the Admitter.
func (s *System) MarkParticleDead(slot int) {
	if slot < 0 || slot >= len(s.particles) || s.particles[slot].Dead {
		return
	}
	s.kill(slot)
}

func (s *System) kill(slot int) {
	p := &s.particles[slot]
	// A stale handle may already belong to someone else.
	if _, ok := p.Attach.Resolve(s.opts.Drawables); ok {
		s.opts.Drawables.Release(p.Attach.Handle)
	}
	p.Attach = core.Attachment{}
	p.entry = noEntry
	p.Dead = true
	if p.Trail != nil {
		p.Trail.Reset()
	}
	s.live--
	s.free = append(s.free, slot)
}

// Dispose kills every live particle, releases their budget entries and
// leaves the system Dead.
func (s *System) Dispose() {
	for i := range s.particles {
		if !s.particles[i].Dead {
			s.retire(i)
		}
	}
	s.state = Dead
	s.bounds = core.AABB{}
}

func (s *System) recomputeBounds() {
	b := core.EmptyAABB()
	for i := range s.particles {
		p := &s.particles[i]
		if p.Dead {
			continue
		}
		b = b.ExtendPoint(p.Position, p.Size*0.5)
		if p.Trail != nil {
			for j := 1; j < p.Trail.Len(); j++ {
				b = b.ExtendPoint(p.Trail.At(j), p.Size*0.5)
			}
		}
	}
	s.bounds = b.OrZero()
}
