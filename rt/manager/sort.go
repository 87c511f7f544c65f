package manager

import (
	"cmp"
	"slices"
	"strings"

	"github.com/gekko3d/particlefx/rt/particle"
)

// SortSystemsByPriority orders live systems by descending template priority,
// then ascending template name, then ascending id. Stable and idempotent.
func (m *Manager) SortSystemsByPriority() {
	SortByPriority(m.systems)
}

func SortByPriority(systems []*particle.System) {
	slices.SortStableFunc(systems, comparePriority)
}

func comparePriority(a, b *particle.System) int {
	if c := cmp.Compare(b.Priority(), a.Priority()); c != 0 {
		return c
	}
	if c := strings.Compare(a.Template().Name, b.Template().Name); c != 0 {
		return c
	}
	return cmp.Compare(a.ID(), b.ID())
}
