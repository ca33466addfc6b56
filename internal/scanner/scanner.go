// Package scanner turns raw game-log text into session-state updates and
// raw incident signals. Lines are dispatched against an ordered recognizer
// table; the first match wins and unmatched lines are ignored. A failure on
// one line never aborts the rest of the chunk.
package scanner

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kravein/starfeed/internal/logging"
	"github.com/kravein/starfeed/internal/model"
	"github.com/kravein/starfeed/internal/session"
	"github.com/kravein/starfeed/internal/zone"
)

// Sink receives the incident signals the scanner extracts. Implemented by
// the correlation engine.
type Sink interface {
	HandleIncident(sig *model.RawIncidentSignal)
}

// Stats are cumulative scanner counters for the diagnostics panel.
type Stats struct {
	LinesScanned        uint64 `json:"linesScanned"`
	LinesMatched        uint64 `json:"linesMatched"`
	LinesFailed         uint64 `json:"linesFailed"`
	DuplicatesPrevented uint64 `json:"duplicatesPrevented"`
}

// recognizer pairs a line pattern with its handler. The table is ordered and
// mutually exclusive: evaluation stops at the first match, so adding a new
// wire format is an additive table change.
type recognizer struct {
	name   string
	re     *regexp.Regexp
	handle func(s *Scanner, ts time.Time, m map[string]string) error
}

var lineTimestampRe = regexp.MustCompile(`^<(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?Z)>`)

var recognizers = []recognizer{
	{
		name:   "login-character-status",
		re:     regexp.MustCompile(`<AccountLoginCharacterStatus_Character>.*?name\s+(?P<name>[\w-]+)\s+-\s+state\s+STATE_CURRENT`),
		handle: (*Scanner).handleLogin,
	},
	{
		name:   "login-legacy",
		re:     regexp.MustCompile(`\[Legacy login response\].*?Handle\[(?P<name>[\w-]+)\]`),
		handle: (*Scanner).handleLogin,
	},
	{
		name:   "mode-load-pu",
		re:     regexp.MustCompile(`ContextEstablisherTaskFinished.*?map="megamap".*?gamerules="SC_Default"`),
		handle: func(s *Scanner, ts time.Time, m map[string]string) error { s.ctx.ForceMode(model.ModePU); return nil },
	},
	{
		name:   "mode-load-ac",
		re:     regexp.MustCompile(`ContextEstablisherTaskFinished.*?gamerules="EA_[\w]+"`),
		handle: func(s *Scanner, ts time.Time, m map[string]string) error { s.ctx.ForceMode(model.ModeAC); return nil },
	},
	{
		name:   "mode-frontend",
		re:     regexp.MustCompile(`Changing State To:\s*Frontend|Loading screen for frontend`),
		handle: func(s *Scanner, ts time.Time, m map[string]string) error { s.ctx.ForceMode(model.ModeUnknown); return nil },
	},
	{
		name:   "mode-quit",
		re:     regexp.MustCompile(`CSystem::Quit|<SystemQuit>|FastShutdown requested`),
		handle: func(s *Scanner, ts time.Time, m map[string]string) error { s.ctx.ForceMode(model.ModeUnknown); return nil },
	},
	{
		name:   "mode-hint-pu",
		re:     regexp.MustCompile(`ContextEstablisherTaskProgress.*?gamerules="SC_Default"`),
		handle: func(s *Scanner, ts time.Time, m map[string]string) error { s.ctx.ObserveMode(model.ModePU); return nil },
	},
	{
		name:   "mode-hint-ac",
		re:     regexp.MustCompile(`ContextEstablisherTaskProgress.*?gamerules="EA_[\w]+"`),
		handle: func(s *Scanner, ts time.Time, m map[string]string) error { s.ctx.ObserveMode(model.ModeAC); return nil },
	},
	{
		name:   "build-version",
		re:     regexp.MustCompile(`>\s*Branch:\s*(?P<branch>[\w.\-]+)`),
		handle: (*Scanner).handleVersion,
	},
	{
		name:   "vehicle-control",
		re:     regexp.MustCompile(`<Vehicle Control Flow>.*?'(?P<vehicle>[A-Za-z0-9_-]+)'.*?granting control token`),
		handle: (*Scanner).handleVehicle,
	},
	{
		name:   "session-start",
		re:     regexp.MustCompile(`<Spawn Flow>.*?requested spawn|CReplicationModel::OnClientConnected`),
		handle: (*Scanner).handleSessionStart,
	},
	{
		name:   "vehicle-destruction",
		re:     regexp.MustCompile(`CVehicle::OnAdvanceDestroyLevel:\s*Vehicle\s+'(?P<vehicle>[^']+)'\s*(?:\[\d+\])?\s*in zone\s+'(?P<zone>[^']+)'(?:\s*\[pos x:\s*(?P<x>-?[\d.]+),\s*y:\s*(?P<y>-?[\d.]+),\s*z:\s*(?P<z>-?[\d.]+)[^\]]*\])?\s*driven by\s+'(?P<driver>[^']*)'\s*(?:\[\d+\])?\s*advanced from destroy level\s+(?P<from>\d+)\s+to\s+(?P<to>\d+)\s+caused by\s+'(?P<causer>[^']*)'\s*(?:\[\d+\])?(?:\s+with\s+'(?P<dmg>[^']*)')?`),
		handle: (*Scanner).handleVehicleDestruction,
	},
	{
		name:   "actor-death",
		re:     regexp.MustCompile(`CActor::Kill:\s*'(?P<victim>[^']+)'\s*(?:\[\d+\])?\s*in zone\s+'(?P<zone>[^']+)'\s*killed by\s+'(?P<killer>[^']+)'\s*(?:\[\d+\])?\s*using\s+'(?P<weapon>[^']*)'\s*(?:\[Class [^\]]*\])?\s*with damage type\s+'(?P<dmg>[^']+)'`),
		handle: (*Scanner).handleActorDeath,
	},
	{
		name:   "corpse",
		re:     regexp.MustCompile(`\[ACTOR STATE\]\[SSCActorStateCVars::LogCorpse\]\s*Player\s+'(?P<victim>[^']+)'(?:.*?vehicle\s+'(?P<vehicle>[^']+)')?`),
		handle: (*Scanner).handleCorpse,
	},
	{
		name:   "kill-spam",
		re:     regexp.MustCompile(`\[ACTOR STATE\]\[SSCActorStateCVars::LogCorpse\]\s*Running corpsify for local player`),
		handle: (*Scanner).handleKillSpam,
	},
	{
		name:   "environmental-death",
		re:     regexp.MustCompile(`CActorDeathComponent::DoDeath:\s*'(?P<victim>[^']*)'\s*with damage type\s+'(?P<dmg>BleedOut|Suffocation)'`),
		handle: (*Scanner).handleEnvironmentalDeath,
	},
	{
		name:   "incapacitation",
		re:     regexp.MustCompile(`Logged an incap\.+!?\s*nickname:\s*(?P<victim>[\w-]+)(?:,\s*causes:\s*\[(?P<cause>[^\]]*)\])?`),
		handle: (*Scanner).handleIncap,
	},
}

// Scanner is the stateful line scanner for one watch session. It owns the
// session context and zone history mutations; no other writer touches them.
type Scanner struct {
	ctx     *session.Context
	history *zone.History
	sink    Sink
	deduper *deathDeduper

	mu    sync.Mutex
	stats Stats

	log zerolog.Logger
}

// New creates a scanner. coincidenceWindow and recentDeathTTL control the
// death format-priority dedup window (see deathDeduper).
func New(ctx *session.Context, history *zone.History, sink Sink, coincidenceWindow, recentDeathTTL time.Duration) *Scanner {
	return &Scanner{
		ctx:     ctx,
		history: history,
		sink:    sink,
		deduper: newDeathDeduper(coincidenceWindow, recentDeathTTL),
		log:     logging.Component("scanner"),
	}
}

// Parse processes one chunk of log text. The caller delivers chunks in file
// order with complete lines; empty lines are skipped. Failures are per-line:
// the chunk always runs to completion.
func (s *Scanner) Parse(chunk string) {
	for _, line := range strings.Split(chunk, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		s.scanLine(line)
	}
}

// Stats returns a copy of the cumulative counters.
func (s *Scanner) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.DuplicatesPrevented = s.deduper.prevented()
	return st
}

// Reset clears dedup state and counters for a rescan. The session context is
// reset separately by the owner, which knows the last durable player.
func (s *Scanner) Reset() {
	s.mu.Lock()
	s.stats = Stats{}
	s.mu.Unlock()
	s.deduper.reset()
}

func (s *Scanner) scanLine(line string) {
	s.mu.Lock()
	s.stats.LinesScanned++
	s.mu.Unlock()

	for i := range recognizers {
		r := &recognizers[i]
		m := r.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		ts, err := lineTimestamp(line)
		if err == nil {
			caps := captures(r.re, m)
			err = r.handle(s, ts, caps)
		}
		s.mu.Lock()
		if err != nil {
			s.stats.LinesFailed++
		} else {
			s.stats.LinesMatched++
		}
		s.mu.Unlock()
		if err != nil {
			s.log.Warn().Err(err).Str("recognizer", r.name).Str("line", truncate(line, 160)).Msg("skipping malformed line")
		}
		return
	}
}

// lineTimestamp extracts the leading <RFC3339> timestamp. Lines without one
// (continuation output) use the current time; a present but unparsable
// timestamp is a malformed-line error.
func lineTimestamp(line string) (time.Time, error) {
	m := lineTimestampRe.FindStringSubmatch(line)
	if m == nil {
		if strings.HasPrefix(line, "<") {
			if end := strings.IndexByte(line, '>'); end > 0 && end <= 40 && strings.ContainsAny(line[:end], "-:") {
				return time.Time{}, fmt.Errorf("unparsable timestamp %q", line[:end+1])
			}
		}
		return time.Now().UTC(), nil
	}
	ts, err := time.Parse(time.RFC3339, m[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", m[1], err)
	}
	return ts.UTC(), nil
}

func captures(re *regexp.Regexp, m []string) map[string]string {
	caps := make(map[string]string)
	for i, name := range re.SubexpNames() {
		if name != "" && i < len(m) {
			caps[name] = m[i]
		}
	}
	return caps
}

// -- Recognizer handlers --

func (s *Scanner) handleLogin(ts time.Time, m map[string]string) error {
	name := m["name"]
	if name == "" {
		return fmt.Errorf("login line without a handle")
	}
	s.ctx.SetPlayer(name)
	return nil
}

func (s *Scanner) handleVersion(ts time.Time, m map[string]string) error {
	s.ctx.SetGameVersion(m["branch"])
	return nil
}

func (s *Scanner) handleVehicle(ts time.Time, m map[string]string) error {
	s.ctx.SetVehicle(m["vehicle"])
	return nil
}

func (s *Scanner) handleSessionStart(ts time.Time, m map[string]string) error {
	// A fresh spawn invalidates the previous session's movement trail.
	s.history.Reset()
	return nil
}

func (s *Scanner) handleVehicleDestruction(ts time.Time, m map[string]string) error {
	from, err := strconv.Atoi(m["from"])
	if err != nil {
		return fmt.Errorf("destroy level %q: %w", m["from"], err)
	}
	to, err := strconv.Atoi(m["to"])
	if err != nil {
		return fmt.Errorf("destroy level %q: %w", m["to"], err)
	}

	var coords *model.Coordinates
	if m["x"] != "" {
		x, errX := strconv.ParseFloat(m["x"], 64)
		y, errY := strconv.ParseFloat(m["y"], 64)
		z, errZ := strconv.ParseFloat(m["z"], 64)
		if errX != nil || errY != nil || errZ != nil {
			return fmt.Errorf("unparsable coordinates in destruction line")
		}
		coords = &model.Coordinates{X: x, Y: y, Z: z}
	}

	s.observeZone(m["zone"], coords, ts)

	sig := &model.RawIncidentSignal{
		Timestamp:    ts,
		Method:       model.MethodDestruction,
		VehicleToken: m["vehicle"],
		Driver:       cleanEntity(m["driver"]),
		CausedBy:     cleanEntity(m["causer"]),
		DamageType:   m["dmg"],
		ZoneToken:    m["zone"],
		Coordinates:  coords,
		FromLevel:    from,
		DestroyLevel: to,
	}
	if sig.CausedBy != "" {
		sig.Killers = []string{sig.CausedBy}
	}
	s.forward(sig)
	return nil
}

func (s *Scanner) handleActorDeath(ts time.Time, m map[string]string) error {
	victim := cleanEntity(m["victim"])
	if victim == "" {
		return fmt.Errorf("actor death without a victim")
	}
	if !s.deduper.admit(victim, model.MethodActorDeath, ts) {
		return nil
	}
	s.observeZone(m["zone"], nil, ts)

	sig := &model.RawIncidentSignal{
		Timestamp:    ts,
		Method:       model.MethodActorDeath,
		Victims:      []string{victim},
		Weapon:       m["weapon"],
		DamageType:   m["dmg"],
		ZoneToken:    m["zone"],
		DestroyLevel: -1,
	}
	if killer := cleanEntity(m["killer"]); killer != "" && !strings.EqualFold(killer, victim) {
		sig.Killers = []string{killer}
	}
	s.forward(sig)
	return nil
}

func (s *Scanner) handleCorpse(ts time.Time, m map[string]string) error {
	victim := cleanEntity(m["victim"])
	if victim == "" {
		return fmt.Errorf("corpse line without a player")
	}
	if !s.deduper.admit(victim, model.MethodCorpse, ts) {
		return nil
	}
	sig := &model.RawIncidentSignal{
		Timestamp:    ts,
		Method:       model.MethodCorpse,
		Victims:      []string{victim},
		VehicleToken: m["vehicle"],
		DestroyLevel: -1,
	}
	s.forward(sig)
	return nil
}

// handleKillSpam covers the newer notice that carries no player name; the
// death is attributed to the current session player.
func (s *Scanner) handleKillSpam(ts time.Time, m map[string]string) error {
	player := s.ctx.Player()
	if player == "" {
		return nil // nobody to attribute the death to yet
	}
	if !s.deduper.admit(player, model.MethodKillSpam, ts) {
		return nil
	}
	s.forward(&model.RawIncidentSignal{
		Timestamp:    ts,
		Method:       model.MethodKillSpam,
		Victims:      []string{player},
		DestroyLevel: -1,
	})
	return nil
}

func (s *Scanner) handleEnvironmentalDeath(ts time.Time, m map[string]string) error {
	victim := cleanEntity(m["victim"])
	if victim == "" {
		victim = s.ctx.Player()
	}
	if victim == "" {
		return nil
	}
	if !s.deduper.admit(victim, model.MethodEnviron, ts) {
		return nil
	}
	s.forward(&model.RawIncidentSignal{
		Timestamp:    ts,
		Method:       model.MethodEnviron,
		Victims:      []string{victim},
		DamageType:   m["dmg"],
		DestroyLevel: -1,
	})
	return nil
}

func (s *Scanner) handleIncap(ts time.Time, m map[string]string) error {
	victim := cleanEntity(m["victim"])
	if victim == "" {
		return fmt.Errorf("incap line without a nickname")
	}
	if !s.deduper.admit(victim, model.MethodIncap, ts) {
		return nil
	}
	s.forward(&model.RawIncidentSignal{
		Timestamp:    ts,
		Method:       model.MethodIncap,
		Victims:      []string{victim},
		DamageType:   m["cause"],
		DestroyLevel: -1,
	})
	return nil
}

func (s *Scanner) observeZone(token string, coords *model.Coordinates, ts time.Time) {
	if token == "" {
		return
	}
	res := s.history.Add(token, "log", coords, ts)
	s.ctx.SetLocation(res.Zone.DisplayName)
}

func (s *Scanner) forward(sig *model.RawIncidentSignal) {
	if s.sink != nil {
		s.sink.HandleIncident(sig)
	}
}

// cleanEntity normalizes entity tokens: the log uses 'unknown' and
// 'Unknown Entity' placeholders for missing parties.
func cleanEntity(name string) string {
	n := strings.TrimSpace(name)
	switch strings.ToLower(n) {
	case "", "unknown", "unknown entity", "nil":
		return ""
	}
	return n
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
