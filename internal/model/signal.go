package model

import "time"

// Death wire formats in fixed priority order. When two formats report the
// same player within the coincidence window, the higher priority wins.
const (
	MethodDestruction = "vehicle-destruction"

	MethodActorDeath = "actor-death" // newest format, full killer/weapon info
	MethodCorpse     = "corpse"      // older name-bearing corpse notice
	MethodKillSpam   = "kill-spam"   // carries no victim name
	MethodIncap      = "incap"       // incapacitation notice
	MethodEnviron    = "environment" // bleed-out / suffocation
)

// MethodPriority returns the fixed format priority for a death method.
// Higher means more authoritative.
func MethodPriority(method string) int {
	switch method {
	case MethodActorDeath:
		return 3
	case MethodCorpse:
		return 2
	default:
		return 1
	}
}

// RawIncidentSignal is the ephemeral, per-line extraction result handed from
// the scanner to the correlation engine. It is never persisted.
type RawIncidentSignal struct {
	Timestamp   time.Time
	Method      string
	Killers     []string
	Victims     []string
	DamageType  string
	Weapon      string
	ZoneToken   string
	Coordinates *Coordinates

	// Vehicle destruction fields. DestroyLevel is -1 for non-destruction
	// signals.
	VehicleToken string
	Driver       string
	CausedBy     string
	FromLevel    int
	DestroyLevel int
}

// IsDestruction reports whether the signal came from a vehicle-destruction
// line.
func (s *RawIncidentSignal) IsDestruction() bool {
	return s.VehicleToken != "" && s.DestroyLevel >= 0
}
