package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := map[string]func(*Settings){
		"bad driver":          func(s *Settings) { s.Store.Driver = "oracle" },
		"zero max events":     func(s *Settings) { s.Store.MaxEvents = 0 },
		"zero mirror":         func(s *Settings) { s.Store.MirrorSize = 0 },
		"zero history":        func(s *Settings) { s.Zones.HistorySize = 0 },
		"threshold too large": func(s *Settings) { s.Zones.ConfidenceThreshold = 1.5 },
		"bad policy":          func(s *Settings) { s.Correlation.SelfInflictedLevelZero = "explode" },
	}
	for name, mutate := range cases {
		s := Default()
		mutate(s)
		if err := s.Validate(); err == nil {
			t.Errorf("%s: expected a validation error", name)
		}
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err == nil {
		t.Fatal("an explicitly named missing file must error")
	}

	// An empty path with no file present just applies defaults.
	cfg, err = Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Store.Driver != "sqlite" || cfg.Store.MaxEvents != 1000 {
		t.Errorf("defaults not applied: %+v", cfg.Store)
	}
}

func TestLoadFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "starfeed.yaml")
	data := []byte("store:\n  max_events: 42\ncorrelation:\n  destruction_window: 30s\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Store.MaxEvents != 42 {
		t.Errorf("max_events = %d", cfg.Store.MaxEvents)
	}
	if cfg.Correlation.DestructionWindow != 30*time.Second {
		t.Errorf("destruction_window = %s", cfg.Correlation.DestructionWindow)
	}
	// Untouched knobs keep their defaults.
	if cfg.Store.MirrorSize != 250 {
		t.Errorf("mirror_size = %d", cfg.Store.MirrorSize)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("STARFEED_STORE_DRIVER", "postgres")
	t.Setenv("STARFEED_LOGGING_LEVEL", "debug")
	t.Setenv("STARFEED_STORE_MAX_EVENTS", "5000")
	t.Setenv("STARFEED_CORRELATION_DESTRUCTION_WINDOW", "45s")
	t.Setenv("STARFEED_CORRELATION_SELF_INFLICTED_LEVEL_ZERO", "crash")
	t.Setenv("STARFEED_ZONES_CONFIDENCE_THRESHOLD", "0.9")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Store.Driver != "postgres" {
		t.Errorf("driver = %q", cfg.Store.Driver)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %q", cfg.Logging.Level)
	}
	if cfg.Store.MaxEvents != 5000 {
		t.Errorf("max_events = %d", cfg.Store.MaxEvents)
	}
	if cfg.Correlation.DestructionWindow != 45*time.Second {
		t.Errorf("destruction_window = %s", cfg.Correlation.DestructionWindow)
	}
	if cfg.Correlation.SelfInflictedLevelZero != SelfInflictedCrash {
		t.Errorf("policy = %q", cfg.Correlation.SelfInflictedLevelZero)
	}
	if cfg.Zones.ConfidenceThreshold != 0.9 {
		t.Errorf("confidence_threshold = %f", cfg.Zones.ConfidenceThreshold)
	}
}

func TestLoadRejectsInvalidFileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "starfeed.yaml")
	if err := os.WriteFile(path, []byte("store:\n  driver: oracle\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("invalid driver must fail validation")
	}
}
