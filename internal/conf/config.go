// Package conf holds the application settings: simple scalar knobs loaded
// from defaults, an optional YAML file, and STARFEED_ environment overrides.
package conf

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where a config file is searched, in order.
var DefaultConfigPaths = []string{
	"starfeed.yaml",
	"starfeed.yml",
}

// envPrefix is stripped from environment variables before mapping them onto
// config keys, e.g. STARFEED_STORE_MAX_EVENTS -> store.max_events.
const envPrefix = "STARFEED_"

// SelfInflictedPolicy names the death-type choice for self-inflicted,
// non-collision, level-0 vehicle losses. The reference behavior differed
// between revisions, so it is an explicit policy rather than a constant.
type SelfInflictedPolicy string

const (
	SelfInflictedUnknown SelfInflictedPolicy = "unknown"
	SelfInflictedCrash   SelfInflictedPolicy = "crash"
)

// StoreConfig configures the durable event store and its in-memory mirror.
type StoreConfig struct {
	Driver     string `koanf:"driver"` // "sqlite" or "postgres"
	Path       string `koanf:"path"`   // file path (sqlite) or conn string (postgres)
	MaxEvents  int    `koanf:"max_events"`
	MirrorSize int    `koanf:"mirror_size"`
}

// SessionConfig configures the session context tracker.
type SessionConfig struct {
	ModeDebounce time.Duration `koanf:"mode_debounce"`
}

// CorrelationConfig configures the correlation and dedup engine.
type CorrelationConfig struct {
	DestructionWindow      time.Duration       `koanf:"destruction_window"`
	FingerprintWindow      time.Duration       `koanf:"fingerprint_window"`
	RecentDeathTTL         time.Duration       `koanf:"recent_death_ttl"`
	CoincidenceWindow      time.Duration       `koanf:"coincidence_window"`
	SelfInflictedLevelZero SelfInflictedPolicy `koanf:"self_inflicted_level_zero"`
}

// ZonesConfig configures the zone resolver and history manager.
type ZonesConfig struct {
	HistorySize         int     `koanf:"history_size"`
	ConfidenceThreshold float64 `koanf:"confidence_threshold"`
	ProximityRadius     float64 `koanf:"proximity_radius"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // "console" or "json"
}

// Settings is the root configuration object.
type Settings struct {
	Store       StoreConfig       `koanf:"store"`
	Session     SessionConfig     `koanf:"session"`
	Correlation CorrelationConfig `koanf:"correlation"`
	Zones       ZonesConfig       `koanf:"zones"`
	Logging     LoggingConfig     `koanf:"logging"`
}

// Default returns the settings with every knob at its reference value.
func Default() *Settings {
	return &Settings{
		Store: StoreConfig{
			Driver:     "sqlite",
			Path:       "starfeed.db",
			MaxEvents:  1000,
			MirrorSize: 250,
		},
		Session: SessionConfig{
			ModeDebounce: 2 * time.Second,
		},
		Correlation: CorrelationConfig{
			DestructionWindow:      15 * time.Second,
			FingerprintWindow:      10 * time.Second,
			RecentDeathTTL:         60 * time.Second,
			CoincidenceWindow:      5 * time.Second,
			SelfInflictedLevelZero: SelfInflictedUnknown,
		},
		Zones: ZonesConfig{
			HistorySize:         10,
			ConfidenceThreshold: 0.7,
			ProximityRadius:     100000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load builds the settings from defaults, then an optional YAML file, then
// environment overrides. An empty path searches DefaultConfigPaths; a missing
// file is not an error, defaults simply apply.
func Load(path string) (*Settings, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path == "" {
		for _, p := range DefaultConfigPaths {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	// Sections are single words, so only the first underscore separates the
	// section from the key; the rest belong to the key (store.max_events).
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".", 1)
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("loading environment overrides: %w", err)
	}

	cfg := &Settings{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the pipeline cannot run with.
func (s *Settings) Validate() error {
	if s.Store.Driver != "sqlite" && s.Store.Driver != "postgres" {
		return fmt.Errorf("unsupported store driver: %s", s.Store.Driver)
	}
	if s.Store.MaxEvents <= 0 {
		return fmt.Errorf("store.max_events must be positive, got %d", s.Store.MaxEvents)
	}
	if s.Store.MirrorSize <= 0 {
		return fmt.Errorf("store.mirror_size must be positive, got %d", s.Store.MirrorSize)
	}
	if s.Zones.HistorySize <= 0 {
		return fmt.Errorf("zones.history_size must be positive, got %d", s.Zones.HistorySize)
	}
	if s.Zones.ConfidenceThreshold < 0 || s.Zones.ConfidenceThreshold > 1 {
		return fmt.Errorf("zones.confidence_threshold must be in [0,1], got %f", s.Zones.ConfidenceThreshold)
	}
	switch s.Correlation.SelfInflictedLevelZero {
	case SelfInflictedUnknown, SelfInflictedCrash:
	default:
		return fmt.Errorf("unknown self_inflicted_level_zero policy: %s", s.Correlation.SelfInflictedLevelZero)
	}
	return nil
}
