package correlator

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kravein/starfeed/internal/conf"
	"github.com/kravein/starfeed/internal/database"
	"github.com/kravein/starfeed/internal/model"
	"github.com/kravein/starfeed/internal/scanner"
	"github.com/kravein/starfeed/internal/session"
	"github.com/kravein/starfeed/internal/zone"
)

// Drives raw log text through the scanner into a real engine and store, so
// the conventions between the two stages (destruction routing, entity
// cleaning, placeholder adoption) are pinned end to end.
func TestRawLogLinesProduceOneResolvedEvent(t *testing.T) {
	store, err := database.OpenStore("sqlite", filepath.Join(t.TempDir(), "events.db"), database.Options{
		FingerprintWindow: 10 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := conf.Default()
	sctx := session.New(cfg.Session.ModeDebounce)
	sctx.SetPlayer("TestPilot")
	resolver := zone.NewResolver(cfg.Zones.ConfidenceThreshold)
	history := zone.NewHistory(resolver, cfg.Zones.HistorySize, cfg.Zones.ProximityRadius)
	engine := New(cfg.Correlation, sctx, history, resolver, store, nil, nil)
	sc := scanner.New(sctx, history, engine, cfg.Correlation.CoincidenceWindow, cfg.Correlation.RecentDeathTTL)

	sc.Parse("<2026-03-14T12:00:00.000Z> CVehicle::OnAdvanceDestroyLevel: Vehicle 'DRAK_Cutlass_Black_123456789' [321] in zone 'OOC_Stanton_2_Crusader' driven by 'unknown' advanced from destroy level 1 to 2 caused by 'Kelvin' [789] with 'Combat'\n" +
		"<2026-03-14T12:00:05.000Z> [ACTOR STATE][SSCActorStateCVars::LogCorpse] Player 'TestPilot' <remote client>: searching landing zone for vehicle 'DRAK_Cutlass_Black_123456789'\n")

	count, err := store.CountEvents()
	require.NoError(t, err)
	require.EqualValues(t, 1, count, "destruction and corpse must fold into one incident")

	ev := onlyEvent(t, store)
	require.Equal(t, []string{"Kelvin"}, ev.Killers)
	require.Equal(t, []string{"TestPilot"}, ev.Victims)
	require.Equal(t, model.DeathHard, ev.DeathType)
	require.Equal(t, "DRAK_Cutlass_Black", ev.VehicleType)
	require.Equal(t, "Drake Cutlass Black", ev.VehicleModel)
	require.True(t, ev.PlayerInvolved)

	stats := engine.Stats()
	require.EqualValues(t, 1, stats.EventsCreated)
	require.EqualValues(t, 1, stats.EventsMerged)
	require.Zero(t, stats.PlaceholdersOpen)
}
