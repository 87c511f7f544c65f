package manager

import (
	"github.com/gekko3d/particlefx/rt/core"
	"github.com/gekko3d/particlefx/rt/particle"
)

// AddParticle admits a newly emitted particle of sys at slot into the budget.
//
// AlwaysRender bypasses the cap. Otherwise, when the budget is full, the
// oldest particles of strictly lower priority are culled to make room. If the
// lower levels cannot cover the shortfall the request is denied and nothing is
// culled; equal or higher priority particles are never sacrificed.
func (m *Manager) AddParticle(sys *particle.System, slot int, priority core.Priority) (particle.EntryHandle, bool) {
	if !priority.Valid() {
		return particle.EntryHandle{Index: -1}, false
	}
	if priority != core.PriorityAlwaysRender && m.budget.total >= m.max {
		need := m.budget.total - m.max + 1
		if m.budget.countBelow(priority) < need {
			m.denied++
			m.tickDenied++
			return particle.EntryHandle{Index: -1}, false
		}
		m.RemoveOldestParticles(priority, need)
	}
	h := m.budget.push(priority, sys, slot)
	m.admitted++
	m.checkInvariants()
	return h, true
}

// RemoveParticle drops the entry of a particle that died naturally. Stale or
// foreign handles are ignored.
func (m *Manager) RemoveParticle(priority core.Priority, h particle.EntryHandle) {
	idx, ok := m.budget.lookup(priority, h)
	if !ok {
		return
	}
	m.budget.unlink(idx)
	m.checkInvariants()
}

// RemoveOldestParticles culls up to count particles from levels strictly
// below priority, lowest level first and oldest first within a level. The
// culled particles are killed in their owning systems. Returns how many were
// culled.
func (m *Manager) RemoveOldestParticles(priority core.Priority, count int) int {
	freed := 0
	for lv := 0; lv < int(priority) && lv < core.NumPriorities && freed < count; lv++ {
		l := &m.budget.levels[lv]
		for l.head != nilNode && freed < count {
			idx := l.head
			n := m.budget.nodes[idx]
			m.budget.unlink(idx)
			n.sys.MarkParticleDead(n.slot)
			freed++
		}
	}
	m.evicted += uint64(freed)
	m.tickEvicted += freed
	m.checkInvariants()
	return freed
}

// CheckInvariants verifies the budget sequences against the running total.
func (m *Manager) CheckInvariants() error {
	return m.budget.check()
}

func (m *Manager) checkInvariants() {
	if !debugChecks {
		return
	}
	if err := m.budget.check(); err != nil {
		m.log.Errorf("%v", err)
		panic(err)
	}
}
