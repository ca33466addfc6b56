package correlator

import (
	"strings"

	"github.com/kravein/starfeed/internal/conf"
	"github.com/kravein/starfeed/internal/model"
)

func isCollisionDamage(dmg string) bool {
	d := strings.ToLower(dmg)
	return strings.Contains(d, "collision") || strings.Contains(d, "crash") || strings.Contains(d, "vehicledestruction")
}

// classifyDestruction maps a destroy-level transition to a death type.
// Level 2 and above is a hull loss, level 1 a disable. Self-inflicted
// disables starting from an intact hull follow the configured policy because
// the game reports them inconsistently across builds.
func classifyDestruction(sig *model.RawIncidentSignal, selfInflicted bool, policy conf.SelfInflictedPolicy) model.DeathType {
	if sig.DestroyLevel >= 2 {
		return model.DeathHard
	}
	if sig.DestroyLevel <= 0 {
		return model.DeathUnknown
	}

	if isCollisionDamage(sig.DamageType) {
		if selfInflicted {
			return model.DeathCrash
		}
		return model.DeathCollision
	}
	if selfInflicted && sig.FromLevel == 0 {
		if policy == conf.SelfInflictedCrash {
			return model.DeathCrash
		}
		return model.DeathUnknown
	}
	if sig.CausedBy == "" {
		return model.DeathUnknown
	}
	return model.DeathSoft
}

// classifyDeath maps an on-foot death signal to a death type.
func classifyDeath(sig *model.RawIncidentSignal) model.DeathType {
	switch strings.ToLower(sig.DamageType) {
	case "bleedout":
		return model.DeathBleedOut
	case "suffocation", "suffocate":
		return model.DeathSuffocation
	}

	victim := ""
	if len(sig.Victims) > 0 {
		victim = sig.Victims[0]
	}
	killer := ""
	if len(sig.Killers) > 0 {
		killer = sig.Killers[0]
	}

	if isCollisionDamage(sig.DamageType) {
		if killer == "" || strings.EqualFold(killer, victim) {
			return model.DeathCrash
		}
		return model.DeathCollision
	}
	if killer == "" && sig.Weapon == "" && sig.DamageType == "" {
		return model.DeathUnknown
	}
	return model.DeathCombat
}
