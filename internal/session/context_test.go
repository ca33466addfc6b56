package session

import (
	"testing"
	"time"

	"github.com/kravein/starfeed/internal/model"
)

func waitForMode(t *testing.T, c *Context, want model.GameMode) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.Mode() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("mode never stabilized to %s, still %s", want, c.Mode())
}

func TestObserveModePromotesAfterQuietWindow(t *testing.T) {
	c := New(30 * time.Millisecond)

	c.ObserveMode(model.ModePU)
	if c.Mode() != model.ModeUnknown {
		t.Fatal("observation must not promote immediately")
	}
	if c.RawMode() != model.ModePU {
		t.Fatal("raw mode should reflect the observation at once")
	}
	waitForMode(t, c, model.ModePU)
}

func TestObserveModeContradictionRestartsWindow(t *testing.T) {
	c := New(40 * time.Millisecond)

	// PU, AC, PU in quick succession: only the last observation may win.
	c.ObserveMode(model.ModePU)
	time.Sleep(10 * time.Millisecond)
	c.ObserveMode(model.ModeAC)
	time.Sleep(10 * time.Millisecond)
	c.ObserveMode(model.ModePU)

	waitForMode(t, c, model.ModePU)
	if c.Mode() != model.ModePU {
		t.Fatalf("mode = %s", c.Mode())
	}
}

func TestForceModeBypassesDebounce(t *testing.T) {
	c := New(time.Hour) // debounce would never fire in this test

	c.ForceMode(model.ModeAC)
	if c.Mode() != model.ModeAC {
		t.Fatal("forced mode must apply immediately")
	}
}

func TestForceModeInvalidatesPendingPromotion(t *testing.T) {
	c := New(30 * time.Millisecond)

	c.ObserveMode(model.ModePU)
	c.ForceMode(model.ModeUnknown) // quit while a promotion is pending

	time.Sleep(80 * time.Millisecond)
	if c.Mode() != model.ModeUnknown {
		t.Fatalf("stale promotion applied, mode = %s", c.Mode())
	}
}

func TestResetKeepsLastKnownPlayer(t *testing.T) {
	c := New(30 * time.Millisecond)
	c.SetPlayer("TestPilot")
	c.SetVehicle("AEGS_Avenger_Titan")
	c.ForceMode(model.ModePU)
	c.SetGameVersion("sc-alpha-4.2")
	c.SetLocation("Daymar")

	c.Reset("TestPilot")

	info := c.Snapshot()
	if info.Player != "TestPilot" {
		t.Errorf("player = %q", info.Player)
	}
	if info.Vehicle != "" || info.GameVersion != "" || info.LastLocation != "" {
		t.Errorf("volatile state survived reset: %+v", info)
	}
	if info.Mode != model.ModeUnknown || info.RawMode != model.ModeUnknown {
		t.Errorf("mode survived reset: %+v", info)
	}
}

func TestSetLocationIgnoresEmpty(t *testing.T) {
	c := New(30 * time.Millisecond)
	c.SetLocation("Daymar")
	c.SetLocation("")
	if c.Location() != "Daymar" {
		t.Errorf("location = %q", c.Location())
	}
}
