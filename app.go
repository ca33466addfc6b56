package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/kravein/starfeed/internal/conf"
	"github.com/kravein/starfeed/internal/correlator"
	"github.com/kravein/starfeed/internal/csvexport"
	"github.com/kravein/starfeed/internal/database"
	"github.com/kravein/starfeed/internal/logging"
	"github.com/kravein/starfeed/internal/model"
	"github.com/kravein/starfeed/internal/profile"
	"github.com/kravein/starfeed/internal/query"
	"github.com/kravein/starfeed/internal/scanner"
	"github.com/kravein/starfeed/internal/session"
	"github.com/kravein/starfeed/internal/tailer"
	"github.com/kravein/starfeed/internal/zone"
)

// App is the main application struct that Wails binds to the frontend.
// All exported methods become callable from JavaScript.
type App struct {
	ctx context.Context
	cfg *conf.Settings

	store   database.Store
	mirror  *database.Mirror
	session *session.Context
	history *zone.History
	engine  *correlator.Engine
	scanner *scanner.Scanner

	detachMirror func()
	unsubscribe  func()

	mu            sync.Mutex
	watchCancel   context.CancelFunc
	watchDone     chan struct{}
	watchPath     string
	lastKnownUser string

	log zerolog.Logger
}

// appState is the small bit of state that survives restarts: who was logged
// in last (deaths before the next login line still attribute correctly) and
// which log was being watched.
type appState struct {
	LastKnownUser string `json:"lastKnownUser"`
	LastLogPath   string `json:"lastLogPath"`
}

// NewApp creates a new App instance.
func NewApp() *App {
	return &App{log: logging.Component("app")}
}

// startup is called when the app starts. The context is saved so we can call
// runtime methods (dialogs, events, etc.)
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	cfg, err := conf.Load("")
	if err != nil {
		a.log.Error().Err(err).Msg("config rejected, using defaults")
		cfg = conf.Default()
	}
	a.cfg = cfg
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	store, err := database.OpenStore(cfg.Store.Driver, a.storePath(), database.Options{
		MaxEvents:         cfg.Store.MaxEvents,
		FingerprintWindow: cfg.Correlation.FingerprintWindow,
	})
	if err != nil {
		a.log.Error().Err(err).Msg("opening event store failed")
	} else {
		a.store = store
	}

	a.session = session.New(cfg.Session.ModeDebounce)
	resolver := zone.NewResolver(cfg.Zones.ConfidenceThreshold)
	a.history = zone.NewHistory(resolver, cfg.Zones.HistorySize, cfg.Zones.ProximityRadius)

	if a.store != nil {
		a.mirror = database.NewMirror(cfg.Store.MirrorSize)
		if detach, err := a.mirror.Attach(a.store); err != nil {
			a.log.Warn().Err(err).Msg("seeding feed mirror failed")
		} else {
			a.detachMirror = detach
		}
		a.unsubscribe = a.store.Subscribe(a.forwardNotification)
		profiles := profile.NewCached(profile.Noop{}, 15*time.Minute)
		a.engine = correlator.New(cfg.Correlation, a.session, a.history, resolver, a.store, a.mirror, profiles)
		a.scanner = scanner.New(a.session, a.history, a.engine,
			cfg.Correlation.CoincidenceWindow, cfg.Correlation.RecentDeathTTL)
	}

	state := a.loadState()
	a.lastKnownUser = state.LastKnownUser
	a.session.SetPlayer(state.LastKnownUser)
	if state.LastLogPath != "" {
		if _, err := os.Stat(state.LastLogPath); err == nil {
			a.StartWatching(state.LastLogPath)
		}
	}
}

// shutdown is called when the app is closing.
func (a *App) shutdown(ctx context.Context) {
	a.StopWatching()
	a.saveState()
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	if a.detachMirror != nil {
		a.detachMirror()
	}
	if a.store != nil {
		a.store.Close()
	}
}

// forwardNotification relays store changes to the frontend.
func (a *App) forwardNotification(n database.Notification) {
	if a.ctx == nil {
		return
	}
	switch n.Kind {
	case database.NotifyCleared:
		runtime.EventsEmit(a.ctx, "killfeed:cleared")
	default:
		runtime.EventsEmit(a.ctx, "killfeed:event", n)
	}

	// Keep the durable last-known-user current: the session player is the
	// most reliable identity we have once events start flowing.
	if p := a.session.Player(); p != "" {
		a.mu.Lock()
		if p != a.lastKnownUser {
			a.lastKnownUser = p
			a.mu.Unlock()
			a.saveState()
			return
		}
		a.mu.Unlock()
	}
}

// -- Watch lifecycle --

// OpenGameLog opens a file dialog and starts watching the chosen log.
func (a *App) OpenGameLog() (string, error) {
	path, err := runtime.OpenFileDialog(a.ctx, runtime.OpenDialogOptions{
		Title: "Open Game.log",
		Filters: []runtime.FileFilter{
			{DisplayName: "Game Log (*.log)", Pattern: "*.log"},
			{DisplayName: "All Files (*.*)", Pattern: "*.*"},
		},
	})
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", nil // user cancelled
	}
	if err := a.StartWatching(path); err != nil {
		return "", err
	}
	return path, nil
}

// StartWatching begins tailing the given log file. Any previous watch is
// stopped first. The whole file is scanned from the top so past sessions in
// the current log land in the feed, then new lines stream in live.
func (a *App) StartWatching(path string) error {
	if a.scanner == nil {
		return fmt.Errorf("event store unavailable")
	}
	a.StopWatching()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	a.mu.Lock()
	a.watchCancel = cancel
	a.watchDone = done
	a.watchPath = path
	a.mu.Unlock()

	tl := tailer.New(path, a.scanner.Parse)
	go func() {
		defer close(done)
		if err := tl.Run(ctx); err != nil && ctx.Err() == nil {
			a.log.Error().Err(err).Str("path", path).Msg("tail stopped")
		}
	}()

	a.log.Info().Str("path", path).Msg("watching game log")
	a.emitWatchStatus(true, path)
	a.saveState()
	return nil
}

// StopWatching stops the current tail, if any.
func (a *App) StopWatching() {
	a.mu.Lock()
	cancel := a.watchCancel
	done := a.watchDone
	path := a.watchPath
	a.watchCancel = nil
	a.watchDone = nil
	a.watchPath = ""
	a.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		a.log.Warn().Msg("tail did not stop in time")
	}
	a.log.Info().Str("path", path).Msg("stopped watching")
	a.emitWatchStatus(false, "")
}

// Rescan replays the current log from the top with fresh pipeline state.
// Stored events are untouched; replayed incidents dedupe against them.
func (a *App) Rescan() error {
	a.mu.Lock()
	path := a.watchPath
	a.mu.Unlock()
	if path == "" {
		return fmt.Errorf("not watching a log")
	}

	a.StopWatching()
	a.scanner.Reset()
	a.engine.Reset()
	a.history.Reset()
	a.mu.Lock()
	last := a.lastKnownUser
	a.mu.Unlock()
	a.session.Reset(last)
	return a.StartWatching(path)
}

func (a *App) emitWatchStatus(watching bool, path string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, "watch:status", map[string]interface{}{
		"watching": watching,
		"path":     path,
	})
}

// -- Feed queries --

// QueryRequest selects a page of stored events.
type QueryRequest struct {
	Limit      int    `json:"limit"`
	Offset     int    `json:"offset"`
	PlayerOnly bool   `json:"playerOnly"`
	Search     string `json:"search"`
	From       string `json:"from"` // RFC3339, optional
	To         string `json:"to"`
}

func (r QueryRequest) options() (database.QueryOptions, error) {
	opts := database.QueryOptions{
		Limit:      r.Limit,
		Offset:     r.Offset,
		PlayerOnly: r.PlayerOnly,
		Search:     r.Search,
	}
	var err error
	if r.From != "" {
		if opts.From, err = time.Parse(time.RFC3339, r.From); err != nil {
			return opts, fmt.Errorf("bad from timestamp: %w", err)
		}
	}
	if r.To != "" {
		if opts.To, err = time.Parse(time.RFC3339, r.To); err != nil {
			return opts, fmt.Errorf("bad to timestamp: %w", err)
		}
	}
	return opts, nil
}

// QueryEvents returns a page of stored events, newest first.
func (a *App) QueryEvents(req QueryRequest) (*database.QueryResult, error) {
	if a.store == nil {
		return nil, fmt.Errorf("event store unavailable")
	}
	opts, err := req.options()
	if err != nil {
		return nil, err
	}
	return a.store.Query(opts)
}

// GetFeed returns the live in-memory feed, newest first.
func (a *App) GetFeed() []*model.KillEvent {
	if a.mirror == nil {
		return nil
	}
	return a.mirror.Events()
}

// GetTimeline returns per-minute event counts for the histogram strip.
func (a *App) GetTimeline(req QueryRequest) ([]database.TimelineBucket, error) {
	if a.store == nil {
		return nil, fmt.Errorf("event store unavailable")
	}
	opts, err := req.options()
	if err != nil {
		return nil, err
	}

	f := query.NewFilter()
	if opts.PlayerOnly {
		f.Add(query.PlayerInvolved())
	}
	f.Add(query.TimeRange(opts.From, opts.To))
	clause, args := f.Build()
	return a.store.GetTimelineHistogram(clause, args)
}

// ClearEvents removes all stored events.
func (a *App) ClearEvents() error {
	if a.store == nil {
		return fmt.Errorf("event store unavailable")
	}
	return a.store.ClearAllEvents()
}

// ExportCSV writes the events matching the request to a CSV file chosen by
// the user. Returns a summary string, or "" on cancel.
func (a *App) ExportCSV(req QueryRequest) (string, error) {
	if a.store == nil {
		return "", fmt.Errorf("event store unavailable")
	}
	savePath, err := runtime.SaveFileDialog(a.ctx, runtime.SaveDialogOptions{
		Title:           "Export Kill Feed",
		DefaultFilename: "killfeed.csv",
		Filters: []runtime.FileFilter{
			{DisplayName: "CSV Files (*.csv)", Pattern: "*.csv"},
		},
	})
	if err != nil {
		return "", err
	}
	if savePath == "" {
		return "", nil // user cancelled
	}

	opts, err := req.options()
	if err != nil {
		return "", err
	}
	opts.Limit = a.cfg.Store.MaxEvents
	opts.Offset = 0

	res, err := a.store.Query(opts)
	if err != nil {
		return "", fmt.Errorf("querying events: %w", err)
	}
	if err := csvexport.WriteEvents(savePath, res.Events); err != nil {
		return "", fmt.Errorf("writing CSV: %w", err)
	}
	return fmt.Sprintf("Exported %d events to %s", len(res.Events), savePath), nil
}

// -- Diagnostics --

// Diagnostics is the status panel payload.
type Diagnostics struct {
	Watching    bool              `json:"watching"`
	WatchPath   string            `json:"watchPath"`
	Session     session.Info      `json:"session"`
	Scanner     scanner.Stats     `json:"scanner"`
	Correlation correlator.Stats  `json:"correlation"`
	Zones       zone.HistoryStats `json:"zones"`
	StoredCount int64             `json:"storedCount"`
	StorePath   string            `json:"storePath"`
}

// GetDiagnostics returns a snapshot of the whole pipeline's state.
func (a *App) GetDiagnostics() (*Diagnostics, error) {
	a.mu.Lock()
	watching := a.watchCancel != nil
	path := a.watchPath
	a.mu.Unlock()

	d := &Diagnostics{
		Watching:  watching,
		WatchPath: path,
		Session:   a.session.Snapshot(),
		Zones:     a.history.Stats(),
	}
	if a.scanner != nil {
		d.Scanner = a.scanner.Stats()
	}
	if a.engine != nil {
		d.Correlation = a.engine.Stats()
	}
	if a.store != nil {
		d.StorePath = a.store.Path()
		count, err := a.store.CountEvents()
		if err != nil {
			return nil, err
		}
		d.StoredCount = count
	}
	return d, nil
}

// GetSessionInfo returns the current session snapshot.
func (a *App) GetSessionInfo() session.Info {
	return a.session.Snapshot()
}

// GetVersion returns the application version string.
func (a *App) GetVersion() string {
	return Version
}

// -- State persistence --

func (a *App) configDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	dir := filepath.Join(base, "starfeed")
	os.MkdirAll(dir, 0o755)
	return dir
}

func (a *App) storePath() string {
	if a.cfg.Store.Driver != "sqlite" {
		return a.cfg.Store.Path // connection string
	}
	if filepath.IsAbs(a.cfg.Store.Path) {
		return a.cfg.Store.Path
	}
	return filepath.Join(a.configDir(), a.cfg.Store.Path)
}

func (a *App) statePath() string {
	return filepath.Join(a.configDir(), "state.json")
}

func (a *App) loadState() appState {
	var st appState
	data, err := os.ReadFile(a.statePath())
	if err != nil {
		return st
	}
	if err := json.Unmarshal(data, &st); err != nil {
		a.log.Warn().Err(err).Msg("state file unreadable, starting fresh")
		return appState{}
	}
	return st
}

func (a *App) saveState() {
	a.mu.Lock()
	st := appState{
		LastKnownUser: a.lastKnownUser,
		LastLogPath:   a.watchPath,
	}
	a.mu.Unlock()

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return
	}
	if err := os.WriteFile(a.statePath(), data, 0o644); err != nil {
		a.log.Warn().Err(err).Msg("persisting state failed")
	}
}
