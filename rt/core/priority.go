package core

import (
	"fmt"
	"strings"
)

// Priority orders particle systems for both budget eviction and draw order.
// Levels compare by ordinal; AlwaysRender is the only level exempt from the cap.
type Priority uint8

const (
	PriorityWeaponExplosion Priority = iota
	PriorityScorchmark
	PriorityDustTrail
	PriorityBuildup
	PriorityDebrisTrail
	PriorityUnitDamageFx
	PriorityDeathExplosion
	PrioritySemiConstant
	PriorityConstant
	PriorityWeaponTrail
	PriorityAreaEffect
	PriorityCritical
	PriorityAlwaysRender

	NumPriorities = int(PriorityAlwaysRender) + 1
)

var priorityNames = [NumPriorities]string{
	"weapon_explosion",
	"scorchmark",
	"dust_trail",
	"buildup",
	"debris_trail",
	"unit_damage_fx",
	"death_explosion",
	"semi_constant",
	"constant",
	"weapon_trail",
	"area_effect",
	"critical",
	"always_render",
}

func (p Priority) String() string {
	if int(p) < NumPriorities {
		return priorityNames[p]
	}
	return fmt.Sprintf("priority(%d)", uint8(p))
}

func (p Priority) Valid() bool { return int(p) < NumPriorities }

// ParsePriority accepts the snake_case level names, case-insensitively.
func ParsePriority(s string) (Priority, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range priorityNames {
		if name == s {
			return Priority(i), nil
		}
	}
	return 0, fmt.Errorf("unknown particle priority %q", s)
}
