package manager

import (
	"github.com/gekko3d/particlefx/rt/core"
	"github.com/gekko3d/particlefx/rt/particle"
)

// MaterialGroup is the set of systems sharing one material key, in manager
// sort order. Groups are rebuilt, never edited.
type MaterialGroup struct {
	Key     core.MaterialKey
	Systems []*particle.System
}

// GroupSystemsByMaterial groups the manager's live, non-empty systems.
func (m *Manager) GroupSystemsByMaterial() []MaterialGroup {
	return GroupByMaterial(m.systems)
}

// GroupByMaterial makes a single pass over sorted systems. Groups appear in
// the order their key is first encountered, so group order follows priority
// even though members of neighbouring groups may interleave priorities.
func GroupByMaterial(systems []*particle.System) []MaterialGroup {
	var groups []MaterialGroup
	index := make(map[core.MaterialKey]int)
	for _, sys := range systems {
		if sys.State() == particle.Dead || sys.LiveCount() == 0 {
			continue
		}
		key := sys.Material()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, MaterialGroup{Key: key})
		}
		groups[i].Systems = append(groups[i].Systems, sys)
	}
	return groups
}
