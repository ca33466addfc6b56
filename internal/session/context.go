// Package session holds the mutable per-watch-session state extracted from
// the log: the logged-in player, current vehicle, stable game mode, build
// version and last known location. All mutation funnels through the scanner;
// there are no concurrent writers apart from the debounce timer.
package session

import (
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/rs/zerolog"

	"github.com/kravein/starfeed/internal/logging"
	"github.com/kravein/starfeed/internal/model"
)

// Info is a read-only snapshot of the session state for diagnostics and the
// frontend status panel.
type Info struct {
	Player       string         `json:"player"`
	Vehicle      string         `json:"vehicle"`
	Mode         model.GameMode `json:"mode"`
	RawMode      model.GameMode `json:"rawMode"`
	GameVersion  string         `json:"gameVersion"`
	LastLocation string         `json:"lastLocation"`
}

// Context tracks one watch session. Game-mode changes observed from
// ambiguous lines are debounced: a raw observation is promoted to the stable
// mode only after it stays the most recent observation for the quiet window.
// Unambiguous transitions bypass the debounce entirely.
type Context struct {
	mu           sync.Mutex
	player       string
	vehicle      string
	stableMode   model.GameMode
	rawMode      model.GameMode
	gameVersion  string
	lastLocation string

	// generation invalidates pending debounce promotions on Reset and on
	// forced transitions; the timer itself cannot be reached once armed.
	generation uint64
	debounced  func(func())
	log        zerolog.Logger
}

// New creates a session context with the given mode-debounce quiet window.
func New(modeDebounce time.Duration) *Context {
	return &Context{
		stableMode: model.ModeUnknown,
		rawMode:    model.ModeUnknown,
		debounced:  debounce.New(modeDebounce),
		log:        logging.Component("session"),
	}
}

// SetPlayer records the logged-in player handle.
func (c *Context) SetPlayer(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if name != "" && name != c.player {
		c.log.Info().Str("player", name).Msg("session player identified")
	}
	c.player = name
}

// Player returns the current player handle, empty when not yet seen.
func (c *Context) Player() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.player
}

// SetVehicle records the player's current vehicle token.
func (c *Context) SetVehicle(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vehicle = name
}

// Vehicle returns the current vehicle token.
func (c *Context) Vehicle() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vehicle
}

// SetGameVersion records the build identifier from the log header.
func (c *Context) SetGameVersion(v string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gameVersion = v
}

// GameVersion returns the recorded build identifier.
func (c *Context) GameVersion() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gameVersion
}

// SetLocation records the most recent location token.
func (c *Context) SetLocation(loc string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if loc != "" {
		c.lastLocation = loc
	}
}

// Location returns the last known location token.
func (c *Context) Location() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastLocation
}

// ObserveMode records a raw mode observation. The observation becomes the
// stable mode only if no contradicting observation arrives within the quiet
// window; a contradiction restarts the window with the newer candidate.
func (c *Context) ObserveMode(m model.GameMode) {
	c.mu.Lock()
	c.rawMode = m
	gen := c.generation
	c.mu.Unlock()

	c.debounced(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.generation != gen || c.rawMode != m {
			return
		}
		if c.stableMode != m {
			c.log.Info().Str("mode", string(m)).Msg("game mode stabilized")
		}
		c.stableMode = m
	})
}

// ForceMode sets the stable mode immediately, for unambiguous lines
// (loading into PU/AC, frontend return, system quit). Any pending debounced
// promotion is invalidated.
func (c *Context) ForceMode(m model.GameMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.rawMode = m
	c.stableMode = m
}

// Mode returns the stable, externally visible game mode.
func (c *Context) Mode() model.GameMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stableMode
}

// RawMode returns the most recently observed (possibly unpromoted) mode.
func (c *Context) RawMode() model.GameMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rawMode
}

// Reset restores initial state for a rescan. The player identity is not
// cleared blindly: the caller passes the durable last-known-user value,
// which may be empty. Pending mode promotions are cancelled.
func (c *Context) Reset(lastKnownPlayer string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.player = lastKnownPlayer
	c.vehicle = ""
	c.stableMode = model.ModeUnknown
	c.rawMode = model.ModeUnknown
	c.gameVersion = ""
	c.lastLocation = ""
}

// Snapshot returns a copy of the session state.
func (c *Context) Snapshot() Info {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Info{
		Player:       c.player,
		Vehicle:      c.vehicle,
		Mode:         c.stableMode,
		RawMode:      c.rawMode,
		GameVersion:  c.gameVersion,
		LastLocation: c.lastLocation,
	}
}
