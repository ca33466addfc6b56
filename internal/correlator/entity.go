package correlator

import (
	"regexp"
	"strings"
)

// Vehicle tokens arrive as MANUFACTURER_Model_Variant_123456789; the trailing
// number is the per-spawn entity id.
var trailingIDRe = regexp.MustCompile(`_\d{6,}$`)

// NPC entity tokens follow archetype naming rather than player handles.
var npcTokenRe = regexp.MustCompile(`(?i)^(PU_|NPC_|AIModule_|Kopion_|Marok_|vlk_|hazard_)|_NPC_|^(ARGO|AEGS|ANVL|BANU|CNOU|CRUS|DRAK|ESPR|GAMA|GRIN|KRIG|MISC|MRAI|ORIG|RSI|TMBL|VNCL|XIAN|XNAA)_`)

var manufacturers = map[string]string{
	"AEGS": "Aegis",
	"ANVL": "Anvil",
	"ARGO": "Argo",
	"BANU": "Banu",
	"CNOU": "C.O.",
	"CRUS": "Crusader",
	"DRAK": "Drake",
	"ESPR": "Esperia",
	"GAMA": "Gatac",
	"GRIN": "Greycat",
	"KRIG": "Kruger",
	"MISC": "MISC",
	"MRAI": "Mirai",
	"ORIG": "Origin",
	"RSI":  "RSI",
	"TMBL": "Tumbril",
	"VNCL": "Vanduul",
	"XIAN": "Xi'an",
	"XNAA": "Xi'an",
}

// baseVehicle strips the per-spawn entity id so repeated references to the
// same hull family compare equal.
func baseVehicle(token string) string {
	return trailingIDRe.ReplaceAllString(strings.TrimSpace(token), "")
}

// vehicleLabel splits a vehicle token into manufacturer and model display
// names. Unknown prefixes keep the whole cleaned token as the model.
func vehicleLabel(token string) (manufacturer, modelName string) {
	base := baseVehicle(token)
	if base == "" {
		return "", ""
	}
	parts := strings.SplitN(base, "_", 2)
	if len(parts) == 2 {
		if m, ok := manufacturers[strings.ToUpper(parts[0])]; ok {
			return m, strings.ReplaceAll(parts[1], "_", " ")
		}
	}
	return "", strings.ReplaceAll(base, "_", " ")
}

// isNPC reports whether an entity token names a game-controlled actor or
// object rather than a player handle.
func isNPC(token string) bool {
	return npcTokenRe.MatchString(token)
}

// displayEntity renders an entity token for the feed: player handles pass
// through, NPC archetypes collapse to a generic label, vehicle tokens become
// their model name.
func displayEntity(token string) string {
	t := strings.TrimSpace(token)
	if t == "" {
		return ""
	}
	if !isNPC(t) {
		return trailingIDRe.ReplaceAllString(t, "")
	}
	if _, m := vehicleLabel(t); m != "" && looksLikeVehicle(t) {
		return m
	}
	return "NPC"
}

func looksLikeVehicle(token string) bool {
	parts := strings.SplitN(baseVehicle(token), "_", 2)
	if len(parts) < 2 {
		return false
	}
	_, ok := manufacturers[strings.ToUpper(parts[0])]
	return ok
}
