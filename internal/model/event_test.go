package model

import (
	"strings"
	"testing"
	"time"
)

func TestIncidentIDStable(t *testing.T) {
	ts := time.Date(2026, 3, 14, 12, 0, 30, 0, time.UTC)

	a := IncidentID(ts, "destruction", "AEGS_Avenger_Titan_123", "OOC_Stanton_2")
	b := IncidentID(ts, "Destruction", "aegs_avenger_titan_123", "ooc_stanton_2")
	if a != b {
		t.Errorf("ID must be case-insensitive: %s vs %s", a, b)
	}
	if !strings.HasPrefix(a, "kill-") || len(a) != len("kill-")+16 {
		t.Errorf("unexpected ID shape %q", a)
	}

	// Seconds within the same minute do not change the ID.
	c := IncidentID(ts.Add(20*time.Second), "destruction", "AEGS_Avenger_Titan_123", "OOC_Stanton_2")
	if a != c {
		t.Error("ID must be stable within the minute bucket")
	}

	// A different minute or a different part does.
	if a == IncidentID(ts.Add(time.Minute), "destruction", "AEGS_Avenger_Titan_123", "OOC_Stanton_2") {
		t.Error("different minute must change the ID")
	}
	if a == IncidentID(ts, "destruction", "AEGS_Avenger_Titan_999", "OOC_Stanton_2") {
		t.Error("different hull must change the ID")
	}
}

func TestFingerprintOrderInsensitive(t *testing.T) {
	ts := time.Date(2026, 3, 14, 12, 0, 10, 0, time.UTC)
	a := &KillEvent{
		Timestamp: ts,
		Killers:   []string{"Kelvin", "Ada"},
		Victims:   []string{"TestPilot"},
		Location:  "Daymar",
		DeathType: DeathCombat,
	}
	b := &KillEvent{
		Timestamp: ts.Add(40 * time.Second), // same minute
		Killers:   []string{"ada", "KELVIN"},
		Victims:   []string{"testpilot"},
		Location:  "daymar",
		DeathType: DeathCombat,
	}
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("fingerprints must agree across ordering, casing and sub-minute skew")
	}

	c := *a
	c.Victims = []string{"SomeoneElse"}
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("different victims must change the fingerprint")
	}

	d := *a
	d.Timestamp = ts.Add(2 * time.Minute)
	if a.Fingerprint() == d.Fingerprint() {
		t.Error("different minute must change the fingerprint")
	}
}

func TestInvolves(t *testing.T) {
	e := &KillEvent{
		Killers: []string{"Kelvin"},
		Victims: []string{"TestPilot"},
	}
	for _, name := range []string{"Kelvin", "kelvin", "TESTPILOT"} {
		if !e.Involves(name) {
			t.Errorf("Involves(%q) = false", name)
		}
	}
	if e.Involves("Bystander") {
		t.Error("uninvolved player matched")
	}
	if e.Involves("") {
		t.Error("empty handle must never match")
	}
}

func TestSearchTextSkipsEmptyFields(t *testing.T) {
	e := &KillEvent{
		Killers:     []string{"Kelvin"},
		Victims:     []string{"TestPilot"},
		Description: "Kelvin defeated TestPilot",
		Location:    "Grim Hex",
		DeathType:   DeathCombat,
	}
	text := e.SearchText()
	for _, want := range []string{"Kelvin", "TestPilot", "Grim Hex", "Combat"} {
		if !strings.Contains(text, want) {
			t.Errorf("search text missing %q: %q", want, text)
		}
	}
	if strings.Contains(text, "  ") {
		t.Errorf("empty fields leaked separators: %q", text)
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	e := &KillEvent{
		ID:             "kill-0011223344556677",
		Timestamp:      time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
		Killers:        []string{"Kelvin"},
		Victims:        []string{"TestPilot"},
		DeathType:      DeathHard,
		VehicleModel:   "Aegis Avenger Titan",
		Coordinates:    &Coordinates{X: 1, Y: 2, Z: 3},
		PlayerInvolved: true,
		Profiles:       map[string]Profile{"Kelvin": {OrgTag: "XYZ"}},
	}

	data, err := e.MarshalPayload()
	if err != nil {
		t.Fatal(err)
	}
	got, err := UnmarshalPayload(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != e.ID || got.DeathType != DeathHard || !got.PlayerInvolved {
		t.Errorf("round trip lost fields: %+v", got)
	}
	if got.Coordinates == nil || got.Coordinates.Z != 3 {
		t.Errorf("coordinates lost: %+v", got.Coordinates)
	}
	if got.Profiles["Kelvin"].OrgTag != "XYZ" {
		t.Errorf("profiles lost: %+v", got.Profiles)
	}

	if _, err := UnmarshalPayload([]byte("{broken")); err == nil {
		t.Error("malformed payload must error")
	}
}
