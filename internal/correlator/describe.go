package correlator

import (
	"fmt"
	"strings"

	"github.com/kravein/starfeed/internal/model"
)

func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return "an unknown party"
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
	}
}

// describe renders the one-line feed text for an event. Every death type has
// a template; anything unclassified falls back to the generic form.
func describe(e *model.KillEvent) string {
	killers := joinNames(e.Killers)
	victims := joinNames(e.Victims)

	vehicle := e.VehicleModel
	if vehicle == "" {
		vehicle = e.VehicleType
	}

	switch e.DeathType {
	case model.DeathHard:
		if vehicle != "" {
			return fmt.Sprintf("%s destroyed %s's %s", killers, victims, vehicle)
		}
		return fmt.Sprintf("%s destroyed %s", killers, victims)
	case model.DeathSoft:
		if vehicle != "" {
			return fmt.Sprintf("%s disabled %s's %s", killers, victims, vehicle)
		}
		return fmt.Sprintf("%s disabled %s", killers, victims)
	case model.DeathCrash:
		if vehicle != "" {
			return fmt.Sprintf("%s crashed their %s", victims, vehicle)
		}
		return fmt.Sprintf("%s died in a crash", victims)
	case model.DeathCollision:
		return fmt.Sprintf("%s rammed %s", killers, victims)
	case model.DeathBleedOut:
		return fmt.Sprintf("%s bled out", victims)
	case model.DeathSuffocation:
		return fmt.Sprintf("%s suffocated", victims)
	case model.DeathUnknown:
		if len(e.Killers) == 0 {
			return fmt.Sprintf("%s died", victims)
		}
	}
	return fmt.Sprintf("%s defeated %s", killers, victims)
}
