package manager

import (
	"math/rand"
	"slices"

	"github.com/gekko3d/particlefx/rt/core"
	"github.com/gekko3d/particlefx/rt/particle"
)

// Config wires a Manager to its scene. Only MaxParticles or CapProvider is
// required.
type Config struct {
	// MaxParticles is the global cap used when CapProvider is nil.
	MaxParticles int
	// CapProvider supplies the cap from the quality layer. It is read once at
	// construction unless LiveCap is set, in which case it is re-read at the
	// start of every Update.
	CapProvider func() int
	LiveCap     bool

	// Batching groups systems by material key into BatchRenderers.
	Batching bool
	// Bucket receives render submissions under core.BucketParticles.
	Bucket core.RenderBucket

	Drawables core.DrawableHost
	Logger    core.Logger
	Seed      int64
}

// Stats is a point-in-time view of manager counters. Admitted, Denied and
// Evicted accumulate since construction.
type Stats struct {
	Systems         int
	ActiveParticles int
	MaxParticles    int
	Levels          [core.NumPriorities]int

	Admitted uint64
	Denied   uint64
	Evicted  uint64

	CacheHits   uint64
	CacheMisses uint64
	Groups      int
	Submitted   int
}

// Manager owns every live particle system of one scene, enforces the global
// particle budget and batches systems for rendering. It is not safe for
// concurrent use; all calls belong to the frame-owning goroutine.
type Manager struct {
	cfg Config
	log core.Logger

	nextID  uint64
	systems []*particle.System
	budget  budget
	max     int

	cache      *BatchingCache
	setupGen   uint64
	resubmit   bool
	submitted  []core.Renderable
	groupCount int

	admitted, denied, evicted uint64
	tickDenied, tickEvicted   int
}

func New(cfg Config) *Manager {
	m := &Manager{
		cfg:    cfg,
		log:    core.OrNop(cfg.Logger).Named("manager"),
		budget: newBudget(),
		max:    cfg.MaxParticles,
		cache:  NewBatchingCache(),
	}
	if cfg.CapProvider != nil {
		m.max = cfg.CapProvider()
	}
	return m
}

// CreateSystem instantiates a system from a shared template. The system joins
// the render submission on the next Update.
func (m *Manager) CreateSystem(tmpl *core.Template, transform core.TransformSource) (*particle.System, error) {
	m.nextID++
	id := m.nextID
	sys, err := particle.NewSystem(id, tmpl, transform, particle.Options{
		Admitter:  m,
		Rand:      rand.New(rand.NewSource(m.cfg.Seed + int64(id))),
		Drawables: m.cfg.Drawables,
	})
	if err != nil {
		m.nextID--
		return nil, err
	}
	m.systems = append(m.systems, sys)
	m.compositionChanged()
	m.log.Debugf("created system %d from %q (%s)", id, tmpl.Name, tmpl.Priority)
	return sys, nil
}

// RemoveSystem disposes a system and releases its budget entries.
func (m *Manager) RemoveSystem(sys *particle.System) bool {
	i := slices.Index(m.systems, sys)
	if i < 0 {
		return false
	}
	m.systems = slices.Delete(m.systems, i, i+1)
	sys.Dispose()
	m.compositionChanged()
	return true
}

func (m *Manager) compositionChanged() {
	m.cache.Invalidate()
	m.resubmit = true
}

// InvalidateBatches forces regrouping and resubmission on the next Update,
// e.g. after a template's texture was reassigned.
func (m *Manager) InvalidateBatches() { m.compositionChanged() }

// Systems returns the live systems in draw order. The slice is owned by the
// manager and only valid until the next mutating call.
func (m *Manager) Systems() []*particle.System { return m.systems }

func (m *Manager) ActiveParticles() int { return m.budget.total }
func (m *Manager) MaxParticles() int    { return m.max }

// LevelLen is the number of budgeted particles at priority p.
func (m *Manager) LevelLen(p core.Priority) int {
	if !p.Valid() {
		return 0
	}
	return m.budget.levels[p].n
}

// Cache exposes the batching cache, mainly for diagnostics.
func (m *Manager) Cache() *BatchingCache { return m.cache }

// Update runs one simulation tick: integrate and emit, reap dead systems,
// re-sort, then regroup and resubmit if composition changed.
func (m *Manager) Update(dt float32) {
	if m.cfg.LiveCap && m.cfg.CapProvider != nil {
		if c := m.cfg.CapProvider(); c != m.max {
			m.log.Debugf("cap changed %d -> %d", m.max, c)
			m.max = c
		}
	}
	m.tickDenied, m.tickEvicted = 0, 0

	for _, sys := range m.systems {
		sys.Update(dt)
	}
	m.reap()
	m.SortSystemsByPriority()
	m.refreshSubmissions()

	if m.tickDenied > 0 || m.tickEvicted > 0 {
		m.log.Debugf("tick evicted %d, denied %d, active %d/%d",
			m.tickEvicted, m.tickDenied, m.budget.total, m.max)
	}
}

func (m *Manager) reap() {
	kept := m.systems[:0]
	reaped := 0
	for _, sys := range m.systems {
		if sys.State() == particle.Dead {
			sys.Dispose()
			reaped++
			m.log.Debugf("reaped system %d (%q)", sys.ID(), sys.Template().Name)
			continue
		}
		kept = append(kept, sys)
	}
	clear(m.systems[len(kept):])
	m.systems = kept
	if reaped > 0 {
		m.compositionChanged()
	}
}

func (m *Manager) refreshSubmissions() {
	if m.cfg.Bucket == nil {
		return
	}
	if !m.cfg.Batching {
		if m.resubmit {
			m.submitIndividually()
		}
		return
	}
	groups := m.cache.GetOrUpdate(m.GroupSystemsByMaterial, len(m.systems))
	if m.resubmit || m.cache.Generation() != m.setupGen {
		m.SetupBatchRendering(groups)
	}
}

func (m *Manager) withdraw() {
	for _, r := range m.submitted {
		m.cfg.Bucket.RemoveRenderable(core.BucketParticles, r)
	}
	clear(m.submitted)
	m.submitted = m.submitted[:0]
	m.groupCount = 0
}

func (m *Manager) submit(r core.Renderable) {
	m.cfg.Bucket.AddRenderable(core.BucketParticles, r)
	m.submitted = append(m.submitted, r)
}

func (m *Manager) submitIndividually() {
	m.withdraw()
	for _, sys := range m.systems {
		m.submit(sys)
	}
	m.resubmit = false
}

// Close disposes every system and withdraws all render submissions.
func (m *Manager) Close() {
	for _, sys := range m.systems {
		sys.Dispose()
	}
	clear(m.systems)
	m.systems = m.systems[:0]
	if m.cfg.Bucket != nil {
		m.withdraw()
	}
	m.cache.Invalidate()
	m.checkInvariants()
}

func (m *Manager) Stats() Stats {
	s := Stats{
		Systems:         len(m.systems),
		ActiveParticles: m.budget.total,
		MaxParticles:    m.max,
		Admitted:        m.admitted,
		Denied:          m.denied,
		Evicted:         m.evicted,
		CacheHits:       m.cache.Hits(),
		CacheMisses:     m.cache.Misses(),
		Groups:          m.groupCount,
		Submitted:       len(m.submitted),
	}
	for i := range s.Levels {
		s.Levels[i] = m.budget.levels[i].n
	}
	return s
}
