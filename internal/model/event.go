package model

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"
)

// DeathType classifies how a victim died.
type DeathType string

const (
	DeathCombat      DeathType = "Combat"
	DeathHard        DeathType = "Hard"
	DeathSoft        DeathType = "Soft"
	DeathCollision   DeathType = "Collision"
	DeathCrash       DeathType = "Crash"
	DeathBleedOut    DeathType = "BleedOut"
	DeathSuffocation DeathType = "Suffocation"
	DeathUnknown     DeathType = "Unknown"
)

// GameMode is the stable, externally published game mode.
type GameMode string

const (
	ModePU      GameMode = "PU"
	ModeAC      GameMode = "AC"
	ModeUnknown GameMode = "Unknown"
)

// EventSource tags where a stored event came from.
type EventSource string

const (
	SourceLocal  EventSource = "local"
	SourceServer EventSource = "server"
	SourceMerged EventSource = "merged"
)

// Coordinates is an optional 3D position carried by vehicle-destruction
// signals. Absent everywhere else.
type Coordinates struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Profile holds per-participant display metadata filled in by the external
// profile lookup. Zero value means "not enriched yet".
type Profile struct {
	Org       string `json:"org,omitempty"`
	OrgTag    string `json:"orgTag,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Enlisted  string `json:"enlisted,omitempty"`
	IsNPC     bool   `json:"isNpc,omitempty"`
}

// KillEvent is the durable unit of the kill feed. One event describes one
// real-world incident; it may be updated in place (same ID) when a later log
// signal resolves a placeholder victim or when profile enrichment lands.
type KillEvent struct {
	ID             string             `json:"id"`
	Timestamp      time.Time          `json:"timestamp"`
	Killers        []string           `json:"killers"`
	Victims        []string           `json:"victims"`
	DeathType      DeathType          `json:"deathType"`
	VehicleType    string             `json:"vehicleType,omitempty"`
	VehicleModel   string             `json:"vehicleModel,omitempty"`
	Location       string             `json:"location,omitempty"`
	Weapon         string             `json:"weapon,omitempty"`
	DamageType     string             `json:"damageType,omitempty"`
	GameMode       GameMode           `json:"gameMode"`
	GameVersion    string             `json:"gameVersion,omitempty"`
	Coordinates    *Coordinates       `json:"coordinates,omitempty"`
	Description    string             `json:"description"`
	PlayerInvolved bool               `json:"playerInvolved"`
	Profiles       map[string]Profile `json:"profiles,omitempty"`
}

// IncidentID derives a stable event ID from incident identity parts, so that
// repeated log lines describing the same incident collide on the same ID.
// The parts must not include the victim list: a placeholder victim is later
// replaced by the confirmed player without changing the ID.
func IncidentID(ts time.Time, parts ...string) string {
	h := xxhash.New()
	h.WriteString(ts.UTC().Truncate(time.Minute).Format(time.RFC3339))
	for _, p := range parts {
		h.WriteString("|")
		h.WriteString(strings.ToLower(p))
	}
	return fmt.Sprintf("kill-%016x", h.Sum64())
}

// Fingerprint derives the content dedup key: sorted killer and victim sets,
// timestamp rounded to the minute, location, vehicle and death type. Two
// reports of the same incident arriving via different code paths produce the
// same fingerprint even when their IDs differ.
func (e *KillEvent) Fingerprint() string {
	killers := append([]string(nil), e.Killers...)
	victims := append([]string(nil), e.Victims...)
	sort.Strings(killers)
	sort.Strings(victims)

	h := xxhash.New()
	h.WriteString(strings.ToLower(strings.Join(killers, ",")))
	h.WriteString("|")
	h.WriteString(strings.ToLower(strings.Join(victims, ",")))
	h.WriteString("|")
	h.WriteString(e.Timestamp.UTC().Truncate(time.Minute).Format(time.RFC3339))
	h.WriteString("|")
	h.WriteString(strings.ToLower(e.Location))
	h.WriteString("|")
	h.WriteString(strings.ToLower(e.VehicleType))
	h.WriteString("|")
	h.WriteString(string(e.DeathType))
	return fmt.Sprintf("%016x", h.Sum64())
}

// SearchText returns the derived text blob indexed for full-text search:
// description, participants, location, weapon and vehicle concatenated.
func (e *KillEvent) SearchText() string {
	parts := []string{e.Description}
	parts = append(parts, e.Killers...)
	parts = append(parts, e.Victims...)
	parts = append(parts, e.Location, e.Weapon, e.VehicleType, e.VehicleModel, string(e.DeathType))
	var fields []string
	for _, p := range parts {
		if p != "" {
			fields = append(fields, p)
		}
	}
	return strings.Join(fields, " ")
}

// MarshalPayload serializes the event for the store's payload column.
func (e *KillEvent) MarshalPayload() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalPayload deserializes a stored payload back into an event.
func UnmarshalPayload(data []byte) (*KillEvent, error) {
	e := &KillEvent{}
	if err := json.Unmarshal(data, e); err != nil {
		return nil, fmt.Errorf("decoding event payload: %w", err)
	}
	return e, nil
}

// Involves reports whether the given player appears as killer or victim.
// Comparison is case-insensitive since the game log mixes handle casing
// across formats.
func (e *KillEvent) Involves(player string) bool {
	if player == "" {
		return false
	}
	for _, k := range e.Killers {
		if strings.EqualFold(k, player) {
			return true
		}
	}
	for _, v := range e.Victims {
		if strings.EqualFold(v, player) {
			return true
		}
	}
	return false
}
