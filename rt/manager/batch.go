package manager

import (
	"github.com/gekko3d/particlefx/rt/core"
	"github.com/gekko3d/particlefx/rt/particle"
)

// BatchRenderer draws one material group as a single render entry: one
// material bind, then each member's geometry.
type BatchRenderer struct {
	group MaterialGroup
}

func NewBatchRenderer(g MaterialGroup) *BatchRenderer {
	return &BatchRenderer{group: g}
}

func (b *BatchRenderer) Group() MaterialGroup { return b.group }

// Bounds is the union of member bounds; an empty group is the zero box at
// the origin.
func (b *BatchRenderer) Bounds() core.AABB {
	box := core.EmptyAABB()
	for _, sys := range b.group.Systems {
		if sys.LiveCount() == 0 {
			continue
		}
		box = box.Union(sys.Bounds())
	}
	return box.OrZero()
}

// Material comes from the first member; every member shares the key.
func (b *BatchRenderer) Material() core.MaterialKey {
	if len(b.group.Systems) == 0 {
		return b.group.Key
	}
	return b.group.Systems[0].Material()
}

// Render skips members that went quiet since grouping and binds the
// material only if something is drawn.
func (b *BatchRenderer) Render(ctx core.RenderContext) error {
	bound := false
	for _, sys := range b.group.Systems {
		if skipMember(sys) {
			continue
		}
		if !bound {
			if err := ctx.BindMaterial(b.Material()); err != nil {
				return err
			}
			bound = true
		}
		if err := sys.Draw(ctx); err != nil {
			return err
		}
	}
	return nil
}

func skipMember(sys *particle.System) bool {
	return sys.State() == particle.Dead || sys.LiveCount() == 0
}

// SetupBatchRendering replaces the manager's render submissions. Systems are
// walked in draw order: each group's BatchRenderer is submitted where its
// first member appears and ungrouped systems are submitted in place, so the
// bucket keeps priority order.
func (m *Manager) SetupBatchRendering(groups []MaterialGroup) {
	if m.cfg.Bucket == nil {
		return
	}
	m.withdraw()
	groupOf := make(map[*particle.System]int)
	for i, g := range groups {
		for _, sys := range g.Systems {
			groupOf[sys] = i
		}
	}
	done := make([]bool, len(groups))
	for _, sys := range m.systems {
		i, ok := groupOf[sys]
		if !ok {
			m.submit(sys)
			continue
		}
		if !done[i] {
			m.submit(NewBatchRenderer(groups[i]))
			done[i] = true
		}
	}
	// Groups whose members all left the manager still get their entry.
	for i, g := range groups {
		if !done[i] {
			m.submit(NewBatchRenderer(g))
		}
	}
	m.groupCount = len(groups)
	m.setupGen = m.cache.Generation()
	m.resubmit = false
}
