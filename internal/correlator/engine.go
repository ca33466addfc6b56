// Package correlator merges the scanner's raw incident signals into durable
// kill events. A vehicle destruction and the death notices for its occupants
// arrive as separate lines, in either order; the engine folds them into one
// event and keeps the event's identity stable while doing so.
package correlator

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/kravein/starfeed/internal/conf"
	"github.com/kravein/starfeed/internal/database"
	"github.com/kravein/starfeed/internal/logging"
	"github.com/kravein/starfeed/internal/model"
	"github.com/kravein/starfeed/internal/profile"
	"github.com/kravein/starfeed/internal/session"
	"github.com/kravein/starfeed/internal/zone"
)

// pendingDestruction is a destruction event persisted with a placeholder
// victim, waiting for the death notice that names the pilot.
type pendingDestruction struct {
	eventID     string
	vehicleBase string
	placeholder string
	at          time.Time
}

// Stats are cumulative correlation counters for the diagnostics panel.
type Stats struct {
	EventsCreated    uint64 `json:"eventsCreated"`
	EventsMerged     uint64 `json:"eventsMerged"`
	SignalsDropped   uint64 `json:"signalsDropped"`
	PlaceholdersOpen int    `json:"placeholdersOpen"`
}

// Engine implements scanner.Sink. It owns the two correlation caches: open
// placeholder destructions and recently created death events. Both are
// TTL-bounded so a missed counterpart line cannot leak state.
type Engine struct {
	cfg      conf.CorrelationConfig
	ctx      *session.Context
	history  *zone.History
	resolver *zone.Resolver
	store    database.Store
	mirror   *database.Mirror
	profiles profile.Provider

	mu      sync.Mutex
	pending *cache.Cache // lower(vehicle base) -> *pendingDestruction
	recent  *cache.Cache // lower(victim) -> event id

	nCreated atomic.Uint64
	nMerged  atomic.Uint64
	nDropped atomic.Uint64

	log zerolog.Logger
}

// New creates a correlation engine. mirror and profiles may be nil.
func New(cfg conf.CorrelationConfig, ctx *session.Context, history *zone.History, resolver *zone.Resolver, store database.Store, mirror *database.Mirror, profiles profile.Provider) *Engine {
	if profiles == nil {
		profiles = profile.Noop{}
	}
	return &Engine{
		cfg:      cfg,
		ctx:      ctx,
		history:  history,
		resolver: resolver,
		store:    store,
		mirror:   mirror,
		profiles: profiles,
		pending:  cache.New(cfg.DestructionWindow, cfg.DestructionWindow),
		recent:   cache.New(cfg.RecentDeathTTL, cfg.RecentDeathTTL),
		log:      logging.Component("correlator"),
	}
}

// HandleIncident receives one signal from the scanner.
func (e *Engine) HandleIncident(sig *model.RawIncidentSignal) {
	if sig.IsDestruction() {
		e.handleDestruction(sig)
		return
	}
	e.handleDeath(sig)
}

// Stats returns a copy of the cumulative counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	open := e.pending.ItemCount()
	e.mu.Unlock()
	return Stats{
		EventsCreated:    e.nCreated.Load(),
		EventsMerged:     e.nMerged.Load(),
		SignalsDropped:   e.nDropped.Load(),
		PlaceholdersOpen: open,
	}
}

// Reset clears correlation state for a rescan.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.pending.Flush()
	e.recent.Flush()
	e.mu.Unlock()
	e.nCreated.Store(0)
	e.nMerged.Store(0)
	e.nDropped.Store(0)
}

func (e *Engine) handleDestruction(sig *model.RawIncidentSignal) {
	// Destroy levels below 1 are damage-state chatter, not a loss.
	if sig.DestroyLevel < 1 {
		e.nDropped.Add(1)
		return
	}

	base := baseVehicle(sig.VehicleToken)
	self := isSelfInflicted(sig)
	deathType := classifyDestruction(sig, self, e.cfg.SelfInflictedLevelZero)

	manufacturer, modelName := vehicleLabel(sig.VehicleToken)
	vehicleDisplay := modelName
	if manufacturer != "" {
		vehicleDisplay = manufacturer + " " + modelName
	}

	driver := ""
	if !isNPC(sig.Driver) {
		driver = displayEntity(sig.Driver)
	}

	// A death notice for the pilot may have landed first; fold the
	// destruction into that event instead of opening a second one.
	if driver != "" {
		if id, ok := e.recent.Get(strings.ToLower(driver)); ok {
			if e.mergeDestructionInto(id.(string), sig, deathType, base, vehicleDisplay) {
				return
			}
		}
	}

	ev := &model.KillEvent{
		ID:           model.IncidentID(sig.Timestamp, "destruction", sig.VehicleToken, sig.ZoneToken),
		Timestamp:    sig.Timestamp,
		DeathType:    deathType,
		VehicleType:  base,
		VehicleModel: vehicleDisplay,
		Location:     e.locate(sig),
		DamageType:   sig.DamageType,
		GameMode:     e.ctx.Mode(),
		GameVersion:  e.ctx.GameVersion(),
		Coordinates:  sig.Coordinates,
	}
	if !self && sig.CausedBy != "" {
		ev.Killers = []string{displayEntity(sig.CausedBy)}
	}

	placeholder := ""
	if driver != "" {
		ev.Victims = []string{driver}
		e.recent.SetDefault(strings.ToLower(driver), ev.ID)
	} else {
		placeholder = placeholderVictim(modelName)
		ev.Victims = []string{placeholder}
	}

	player := e.ctx.Player()
	ev.PlayerInvolved = ev.Involves(player) ||
		strings.EqualFold(base, baseVehicle(e.ctx.Vehicle()))

	// Resolved, uninvolved destructions are other people's business and
	// are dropped. Placeholder events must survive: the pilot may turn
	// out to be the session player.
	if placeholder == "" && player != "" && !ev.PlayerInvolved {
		e.nDropped.Add(1)
		return
	}

	ev.Description = describe(ev)
	e.persist(ev, model.SourceLocal, true)

	if placeholder != "" {
		e.mu.Lock()
		e.pending.SetDefault(strings.ToLower(base), &pendingDestruction{
			eventID:     ev.ID,
			vehicleBase: base,
			placeholder: placeholder,
			at:          sig.Timestamp,
		})
		e.mu.Unlock()
	}
}

// mergeDestructionInto enriches an existing death event with the vehicle loss
// details. Returns false when the event is gone (evicted), in which case the
// caller creates a fresh one.
func (e *Engine) mergeDestructionInto(id string, sig *model.RawIncidentSignal, deathType model.DeathType, base, vehicleDisplay string) bool {
	stored, err := e.store.GetEvent(id)
	if err != nil || stored == nil {
		return false
	}
	ev := stored.Event
	ev.VehicleType = base
	ev.VehicleModel = vehicleDisplay
	if sig.Coordinates != nil {
		ev.Coordinates = sig.Coordinates
	}
	if deathType == model.DeathHard || deathType == model.DeathSoft {
		ev.DeathType = deathType
	}
	if len(ev.Killers) == 0 && !isSelfInflicted(sig) && sig.CausedBy != "" {
		ev.Killers = []string{displayEntity(sig.CausedBy)}
	}
	ev.Description = describe(ev)
	if err := e.store.UpdateEvent(ev, model.SourceMerged); err != nil {
		e.log.Error().Err(err).Str("event", id).Msg("merging destruction failed")
		return false
	}
	e.nMerged.Add(1)
	return true
}

// mergeDeathInto backfills killer, weapon and damage detail from a death
// notice onto the event that already records this victim's loss.
func (e *Engine) mergeDeathInto(id string, sig *model.RawIncidentSignal) bool {
	stored, err := e.store.GetEvent(id)
	if err != nil || stored == nil {
		return false
	}
	ev := stored.Event
	if len(ev.Killers) == 0 {
		for _, k := range sig.Killers {
			if name := displayEntity(k); name != "" {
				ev.Killers = append(ev.Killers, name)
			}
		}
	}
	if ev.Weapon == "" {
		ev.Weapon = sig.Weapon
	}
	if ev.DamageType == "" {
		ev.DamageType = sig.DamageType
	}
	ev.PlayerInvolved = ev.PlayerInvolved || ev.Involves(e.ctx.Player())
	ev.Description = describe(ev)
	if err := e.store.UpdateEvent(ev, model.SourceMerged); err != nil {
		e.log.Error().Err(err).Str("event", id).Msg("merging death detail failed")
		return false
	}
	e.nMerged.Add(1)
	return true
}

func (e *Engine) handleDeath(sig *model.RawIncidentSignal) {
	if len(sig.Victims) == 0 {
		return
	}
	victim := displayEntity(sig.Victims[0])
	if victim == "" {
		return
	}

	if e.adoptPlaceholder(sig, victim) {
		return
	}

	// A destruction that already named this pilot covers the death; fold
	// any extra detail into it rather than opening a duplicate.
	if id, ok := e.recent.Get(strings.ToLower(victim)); ok {
		if e.mergeDeathInto(id.(string), sig) {
			return
		}
	}

	ev := &model.KillEvent{
		ID:          model.IncidentID(sig.Timestamp, "death", victim, sig.ZoneToken, sig.DamageType),
		Timestamp:   sig.Timestamp,
		Victims:     []string{victim},
		DeathType:   classifyDeath(sig),
		Location:    e.locate(sig),
		Weapon:      sig.Weapon,
		DamageType:  sig.DamageType,
		GameMode:    e.ctx.Mode(),
		GameVersion: e.ctx.GameVersion(),
	}
	for _, k := range sig.Killers {
		if name := displayEntity(k); name != "" {
			ev.Killers = append(ev.Killers, name)
		}
	}
	if sig.VehicleToken != "" {
		ev.VehicleType = baseVehicle(sig.VehicleToken)
		if m, name := vehicleLabel(sig.VehicleToken); name != "" {
			ev.VehicleModel = strings.TrimSpace(m + " " + name)
		}
	}

	player := e.ctx.Player()
	ev.PlayerInvolved = ev.Involves(player)
	if player != "" && !ev.PlayerInvolved {
		e.nDropped.Add(1)
		return
	}

	ev.Description = describe(ev)
	e.recent.SetDefault(strings.ToLower(victim), ev.ID)
	e.persist(ev, model.SourceLocal, true)
}

// adoptPlaceholder resolves an open placeholder destruction with the victim
// from a death notice. The event keeps its id, so subscribers see an update
// rather than a duplicate. Preference order: the destruction whose hull
// matches the vehicle named by the notice, then the most recent open one
// within the window.
func (e *Engine) adoptPlaceholder(sig *model.RawIncidentSignal, victim string) bool {
	inWindow := func(p *pendingDestruction) bool {
		d := sig.Timestamp.Sub(p.at)
		if d < 0 {
			d = -d
		}
		return d <= e.cfg.DestructionWindow
	}

	e.mu.Lock()
	var match *pendingDestruction
	if sig.VehicleToken != "" {
		if v, ok := e.pending.Get(strings.ToLower(baseVehicle(sig.VehicleToken))); ok {
			if p := v.(*pendingDestruction); inWindow(p) {
				match = p
			}
		}
	}
	if match == nil {
		for _, item := range e.pending.Items() {
			p := item.Object.(*pendingDestruction)
			if !inWindow(p) {
				continue
			}
			if match == nil || p.at.After(match.at) {
				match = p
			}
		}
	}
	if match != nil {
		e.pending.Delete(strings.ToLower(match.vehicleBase))
	}
	e.mu.Unlock()

	if match == nil {
		return false
	}

	stored, err := e.store.GetEvent(match.eventID)
	if err != nil || stored == nil {
		return false
	}
	ev := stored.Event
	ev.Victims = []string{victim}
	if len(ev.Killers) == 0 {
		for _, k := range sig.Killers {
			if name := displayEntity(k); name != "" {
				ev.Killers = append(ev.Killers, name)
			}
		}
	}
	if sig.Weapon != "" && ev.Weapon == "" {
		ev.Weapon = sig.Weapon
	}
	ev.PlayerInvolved = ev.Involves(e.ctx.Player()) || ev.PlayerInvolved
	ev.Description = describe(ev)

	if err := e.store.UpdateEvent(ev, model.SourceMerged); err != nil {
		e.log.Error().Err(err).Str("event", ev.ID).Msg("placeholder resolution failed")
		return false
	}
	e.recent.SetDefault(strings.ToLower(victim), ev.ID)
	e.nMerged.Add(1)
	go e.enrich(ev)
	return true
}

// persist writes the event, falling back to the in-memory mirror when the
// store rejects it so the feed still shows the incident.
func (e *Engine) persist(ev *model.KillEvent, source model.EventSource, enrich bool) {
	res, err := e.store.AddEvent(ev, source)
	if err != nil {
		e.log.Error().Err(err).Str("event", ev.ID).Msg("persisting event failed")
		if e.mirror != nil {
			e.mirror.AddFallback(ev)
		}
		return
	}
	if res.IsNew {
		e.nCreated.Add(1)
	} else {
		e.nMerged.Add(1)
	}
	if enrich {
		go e.enrich(ev)
	}
}

// enrich fetches profile metadata for the event's participants and patches
// the stored event. Runs off the hot path; failures only log.
func (e *Engine) enrich(ev *model.KillEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var names []string
	for _, n := range append(append([]string{}, ev.Killers...), ev.Victims...) {
		if n == "" || n == "NPC" || isPlaceholderVictim(n) {
			continue
		}
		names = append(names, n)
	}

	// ev is the same pointer the store handed to its subscribers; the feed
	// may be serializing it right now. Patch a copy and store that.
	patched := *ev
	patched.Profiles = make(map[string]model.Profile, len(names))
	for k, v := range ev.Profiles {
		patched.Profiles[k] = v
	}

	changed := false
	for _, name := range names {
		if _, ok := patched.Profiles[name]; ok {
			continue
		}
		prof, err := e.profiles.Lookup(ctx, name)
		if err != nil {
			e.log.Debug().Err(err).Str("handle", name).Msg("profile lookup failed")
			continue
		}
		if prof == (model.Profile{}) {
			continue
		}
		patched.Profiles[name] = prof
		changed = true
	}
	if !changed {
		return
	}
	if err := e.store.UpdateEvent(&patched, model.SourceLocal); err != nil {
		e.log.Warn().Err(err).Str("event", patched.ID).Msg("profile patch failed")
	}
}

// locate renders the best location string for a signal: the resolved zone,
// with its primary appended when the movement trail can place a secondary
// zone on a body. Falls back to the session's last known location.
func (e *Engine) locate(sig *model.RawIncidentSignal) string {
	if sig.ZoneToken == "" {
		return e.ctx.Location()
	}
	res := e.resolver.Resolve(sig.ZoneToken, sig.Coordinates)
	if res.FallbackUsed {
		if loc := e.ctx.Location(); loc != "" {
			return loc
		}
		return res.Zone.DisplayName
	}
	name := res.Zone.DisplayName
	if res.Zone.Classification == zone.Secondary {
		if p := e.history.MatchSecondaryToPrimary(res.Zone); p != nil {
			name = name + ", " + p.DisplayName
		}
	}
	return name
}

// isSelfInflicted reports whether a destruction was caused by its own pilot
// or by the vehicle itself.
func isSelfInflicted(sig *model.RawIncidentSignal) bool {
	if sig.CausedBy == "" {
		return false
	}
	if sig.Driver != "" && strings.EqualFold(sig.CausedBy, sig.Driver) {
		return true
	}
	return strings.EqualFold(baseVehicle(sig.CausedBy), baseVehicle(sig.VehicleToken))
}

func placeholderVictim(modelName string) string {
	if modelName == "" {
		return "unknown pilot"
	}
	return modelName + " pilot"
}

func isPlaceholderVictim(name string) bool {
	return name == "unknown pilot" || strings.HasSuffix(name, " pilot")
}
