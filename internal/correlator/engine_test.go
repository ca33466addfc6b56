package correlator

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kravein/starfeed/internal/conf"
	"github.com/kravein/starfeed/internal/database"
	"github.com/kravein/starfeed/internal/model"
	"github.com/kravein/starfeed/internal/session"
	"github.com/kravein/starfeed/internal/zone"
)

type testRig struct {
	engine *Engine
	store  database.Store
	ctx    *session.Context
}

func newTestRig(t *testing.T, policy conf.SelfInflictedPolicy) *testRig {
	t.Helper()
	store, err := database.OpenStore("sqlite", filepath.Join(t.TempDir(), "events.db"), database.Options{
		FingerprintWindow: 10 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := conf.Default().Correlation
	cfg.SelfInflictedLevelZero = policy
	ctx := session.New(50 * time.Millisecond)
	resolver := zone.NewResolver(0.7)
	history := zone.NewHistory(resolver, 10, 100000)

	return &testRig{
		engine: New(cfg, ctx, history, resolver, store, nil, nil),
		store:  store,
		ctx:    ctx,
	}
}

func onlyEvent(t *testing.T, store database.Store) *model.KillEvent {
	t.Helper()
	res, err := store.Query(database.QueryOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, res.Events, 1, "expected exactly one stored event")
	return res.Events[0]
}

func TestDestructionThenDeathResolvesPlaceholder(t *testing.T) {
	rig := newTestRig(t, conf.SelfInflictedUnknown)
	rig.ctx.SetPlayer("TestPilot")
	ts := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	rig.engine.HandleIncident(&model.RawIncidentSignal{
		Timestamp:    ts,
		Method:       model.MethodDestruction,
		VehicleToken: "AEGS_Avenger_Titan_123456789",
		ZoneToken:    "OOC_Stanton_2_Crusader",
		CausedBy:     "Kelvin",
		Killers:      []string{"Kelvin"},
		DamageType:   "Combat",
		FromLevel:    1,
		DestroyLevel: 2,
	})

	placeholder := onlyEvent(t, rig.store)
	require.Equal(t, []string{"Kelvin"}, placeholder.Killers)
	require.True(t, isPlaceholderVictim(placeholder.Victims[0]))
	require.Equal(t, model.DeathHard, placeholder.DeathType)

	// The corpse notice names a different hull; the engine still adopts
	// the only open placeholder within the window.
	rig.engine.HandleIncident(&model.RawIncidentSignal{
		Timestamp:    ts.Add(3 * time.Second),
		Method:       model.MethodCorpse,
		Victims:      []string{"TestPilot"},
		VehicleToken: "DRAK_Cutlass_Black_555555555",
		DestroyLevel: -1,
	})

	resolved := onlyEvent(t, rig.store)
	require.Equal(t, placeholder.ID, resolved.ID, "placeholder swap must keep the event id")
	require.Equal(t, []string{"Kelvin"}, resolved.Killers)
	require.Equal(t, []string{"TestPilot"}, resolved.Victims)
	require.Equal(t, model.DeathHard, resolved.DeathType)
	require.True(t, resolved.PlayerInvolved)
}

func TestDeathBeforeDestructionMerges(t *testing.T) {
	rig := newTestRig(t, conf.SelfInflictedUnknown)
	rig.ctx.SetPlayer("TestPilot")
	ts := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	rig.engine.HandleIncident(&model.RawIncidentSignal{
		Timestamp:    ts,
		Method:       model.MethodActorDeath,
		Victims:      []string{"TestPilot"},
		Killers:      []string{"Kelvin"},
		Weapon:       "KLWE_LaserRepeater",
		DamageType:   "VehicleDestruction",
		ZoneToken:    "OOC_Stanton_2_Crusader",
		DestroyLevel: -1,
	})

	death := onlyEvent(t, rig.store)
	require.Equal(t, []string{"TestPilot"}, death.Victims)

	rig.engine.HandleIncident(&model.RawIncidentSignal{
		Timestamp:    ts.Add(2 * time.Second),
		Method:       model.MethodDestruction,
		VehicleToken: "AEGS_Avenger_Titan_123456789",
		Driver:       "TestPilot",
		CausedBy:     "Kelvin",
		DamageType:   "Combat",
		FromLevel:    1,
		DestroyLevel: 2,
	})

	merged := onlyEvent(t, rig.store)
	require.Equal(t, death.ID, merged.ID, "destruction should fold into the death event")
	require.Equal(t, model.DeathHard, merged.DeathType)
	require.Equal(t, "AEGS_Avenger_Titan", merged.VehicleType)
	require.Equal(t, "Aegis Avenger Titan", merged.VehicleModel)

	stats := rig.engine.Stats()
	require.EqualValues(t, 1, stats.EventsCreated)
	require.EqualValues(t, 1, stats.EventsMerged)
}

func TestUninvolvedDeathDropped(t *testing.T) {
	rig := newTestRig(t, conf.SelfInflictedUnknown)
	rig.ctx.SetPlayer("TestPilot")
	ts := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	rig.engine.HandleIncident(&model.RawIncidentSignal{
		Timestamp:    ts,
		Method:       model.MethodActorDeath,
		Victims:      []string{"Bystander"},
		Killers:      []string{"Raider"},
		DamageType:   "Bullet",
		DestroyLevel: -1,
	})

	count, err := rig.store.CountEvents()
	require.NoError(t, err)
	require.Zero(t, count)
	require.EqualValues(t, 1, rig.engine.Stats().SignalsDropped)
}

func TestUnknownPlayerKeepsEverything(t *testing.T) {
	rig := newTestRig(t, conf.SelfInflictedUnknown)
	ts := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	rig.engine.HandleIncident(&model.RawIncidentSignal{
		Timestamp:    ts,
		Method:       model.MethodActorDeath,
		Victims:      []string{"Bystander"},
		Killers:      []string{"Raider"},
		DamageType:   "Bullet",
		DestroyLevel: -1,
	})

	ev := onlyEvent(t, rig.store)
	require.False(t, ev.PlayerInvolved)
}

func TestSelfInflictedDisablePolicy(t *testing.T) {
	ts := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	sig := func() *model.RawIncidentSignal {
		return &model.RawIncidentSignal{
			Timestamp:    ts,
			Method:       model.MethodDestruction,
			VehicleToken: "MISC_Freelancer_987654321",
			Driver:       "TestPilot",
			CausedBy:     "TestPilot",
			DamageType:   "SelfDestruct",
			FromLevel:    0,
			DestroyLevel: 1,
		}
	}

	rig := newTestRig(t, conf.SelfInflictedUnknown)
	rig.ctx.SetPlayer("TestPilot")
	rig.engine.HandleIncident(sig())
	require.Equal(t, model.DeathUnknown, onlyEvent(t, rig.store).DeathType)

	rig = newTestRig(t, conf.SelfInflictedCrash)
	rig.ctx.SetPlayer("TestPilot")
	rig.engine.HandleIncident(sig())
	ev := onlyEvent(t, rig.store)
	require.Equal(t, model.DeathCrash, ev.DeathType)
	require.Empty(t, ev.Killers, "self-inflicted losses carry no killer")
}

func TestPlaceholderExpiresOutsideWindow(t *testing.T) {
	rig := newTestRig(t, conf.SelfInflictedUnknown)
	rig.ctx.SetPlayer("TestPilot")
	ts := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	rig.engine.HandleIncident(&model.RawIncidentSignal{
		Timestamp:    ts,
		Method:       model.MethodDestruction,
		VehicleToken: "AEGS_Avenger_Titan_123456789",
		CausedBy:     "Kelvin",
		DamageType:   "Combat",
		FromLevel:    1,
		DestroyLevel: 2,
	})

	// 30 seconds is past the 15-second destruction window; the death
	// stands alone.
	rig.engine.HandleIncident(&model.RawIncidentSignal{
		Timestamp:    ts.Add(30 * time.Second),
		Method:       model.MethodCorpse,
		Victims:      []string{"TestPilot"},
		DestroyLevel: -1,
	})

	res, err := rig.store.Query(database.QueryOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, res.Events, 2)
}

func TestDestructionBelowLossLevelIgnored(t *testing.T) {
	rig := newTestRig(t, conf.SelfInflictedUnknown)
	rig.ctx.SetPlayer("TestPilot")

	rig.engine.HandleIncident(&model.RawIncidentSignal{
		Timestamp:    time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
		Method:       model.MethodDestruction,
		VehicleToken: "AEGS_Avenger_Titan_123456789",
		ZoneToken:    "OOC_Stanton_2_Crusader",
		CausedBy:     "Kelvin",
		DamageType:   "Combat",
		FromLevel:    0,
		DestroyLevel: 0,
	})

	count, err := rig.store.CountEvents()
	require.NoError(t, err)
	require.Zero(t, count, "damage-state chatter must not persist")
	stats := rig.engine.Stats()
	require.EqualValues(t, 1, stats.SignalsDropped)
	require.Zero(t, stats.PlaceholdersOpen)
}

type stubProfiles struct {
	profs map[string]model.Profile
}

func (s stubProfiles) Lookup(_ context.Context, handle string) (model.Profile, error) {
	return s.profs[handle], nil
}

func TestEnrichmentPatchesACopy(t *testing.T) {
	store, err := database.OpenStore("sqlite", filepath.Join(t.TempDir(), "events.db"), database.Options{
		FingerprintWindow: 10 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	// Capture the exact pointers the store hands to its subscribers: the
	// feed mirror and the frontend see these, so enrichment must never
	// write into them.
	var mu sync.Mutex
	var published []*model.KillEvent
	unsub := store.Subscribe(func(n database.Notification) {
		if n.Event == nil {
			return
		}
		mu.Lock()
		published = append(published, n.Event)
		mu.Unlock()
	})
	t.Cleanup(unsub)

	sctx := session.New(50 * time.Millisecond)
	sctx.SetPlayer("TestPilot")
	resolver := zone.NewResolver(0.7)
	history := zone.NewHistory(resolver, 10, 100000)
	engine := New(conf.Default().Correlation, sctx, history, resolver, store, nil,
		stubProfiles{profs: map[string]model.Profile{"Kelvin": {OrgTag: "XYZ"}}})

	engine.HandleIncident(&model.RawIncidentSignal{
		Timestamp:    time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
		Method:       model.MethodActorDeath,
		Victims:      []string{"TestPilot"},
		Killers:      []string{"Kelvin"},
		DamageType:   "Bullet",
		DestroyLevel: -1,
	})
	require.NotEmpty(t, onlyEvent(t, store).ID)

	var last *model.KillEvent
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		if n := len(published); n >= 2 && len(published[n-1].Profiles) > 0 {
			last = published[n-1]
		}
		mu.Unlock()
		if last != nil {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.NotNil(t, last, "profile patch notification never arrived")
	require.Equal(t, "XYZ", last.Profiles["Kelvin"].OrgTag)

	mu.Lock()
	defer mu.Unlock()
	require.Empty(t, published[0].Profiles, "the published creation event must stay untouched")
	require.NotSame(t, published[0], last, "the patch must ship on a fresh event value")

	stored, err := store.GetEvent(last.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, "XYZ", stored.Event.Profiles["Kelvin"].OrgTag)
}

func TestResetClearsCorrelationState(t *testing.T) {
	rig := newTestRig(t, conf.SelfInflictedUnknown)
	rig.ctx.SetPlayer("TestPilot")
	ts := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	rig.engine.HandleIncident(&model.RawIncidentSignal{
		Timestamp:    ts,
		Method:       model.MethodDestruction,
		VehicleToken: "AEGS_Avenger_Titan_123456789",
		CausedBy:     "Kelvin",
		DamageType:   "Combat",
		FromLevel:    1,
		DestroyLevel: 2,
	})
	require.Equal(t, 1, rig.engine.Stats().PlaceholdersOpen)

	rig.engine.Reset()
	stats := rig.engine.Stats()
	require.Zero(t, stats.PlaceholdersOpen)
	require.Zero(t, stats.EventsCreated)
}
