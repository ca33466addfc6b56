package zone

import (
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kravein/starfeed/internal/logging"
	"github.com/kravein/starfeed/internal/model"
)

// HistoryEntry records one visited zone. Dwell is filled in retroactively
// when the next entry arrives.
type HistoryEntry struct {
	Timestamp      time.Time          `json:"timestamp"`
	ZoneID         string             `json:"zoneId"`
	DisplayName    string             `json:"displayName"`
	Classification Classification     `json:"classification"`
	System         System             `json:"system"`
	Source         string             `json:"source"`
	Coordinates    *model.Coordinates `json:"coordinates,omitempty"`
	Dwell          time.Duration      `json:"dwell"`
	EventCount     int                `json:"eventCount"`
}

// HistoryStats aggregates the session's movement for diagnostics.
type HistoryStats struct {
	TotalVisits    int                    `json:"totalVisits"`
	VisitCounts    map[string]int         `json:"visitCounts"`
	DwellByZone    map[string]float64     `json:"dwellSecondsByZone"`
	BySystem       map[System]int         `json:"bySystem"`
	ByClass        map[Classification]int `json:"byClassification"`
	CurrentZone    string                 `json:"currentZone"`
	OldestRetained time.Time              `json:"oldestRetained"`
}

// History keeps an ordered, bounded record of zones visited during one watch
// session and answers secondary→primary placement queries from it.
type History struct {
	mu              sync.Mutex
	resolver        *Resolver
	entries         []HistoryEntry
	maxEntries      int
	proximityRadius float64
	log             zerolog.Logger
}

// NewHistory creates a history manager bounded to maxEntries visits.
func NewHistory(resolver *Resolver, maxEntries int, proximityRadius float64) *History {
	return &History{
		resolver:        resolver,
		maxEntries:      maxEntries,
		proximityRadius: proximityRadius,
		log:             logging.Component("zone-history"),
	}
}

// Add resolves the token and appends a visit. A token resolving to the same
// zone as the most recent entry is a no-op that returns the same resolution;
// the entry's event counter still increments so dwell statistics stay honest.
func (h *History) Add(token, source string, coords *model.Coordinates, ts time.Time) Resolution {
	res := h.resolver.Resolve(token, coords)
	if ts.IsZero() {
		ts = time.Now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if n := len(h.entries); n > 0 && h.entries[n-1].ZoneID == res.Zone.ID {
		h.entries[n-1].EventCount++
		return res
	}

	if n := len(h.entries); n > 0 {
		h.entries[n-1].Dwell = ts.Sub(h.entries[n-1].Timestamp)
	}

	h.entries = append(h.entries, HistoryEntry{
		Timestamp:      ts,
		ZoneID:         res.Zone.ID,
		DisplayName:    res.Zone.DisplayName,
		Classification: res.Zone.Classification,
		System:         res.Zone.System,
		Source:         source,
		Coordinates:    coords,
		EventCount:     1,
	})
	if len(h.entries) > h.maxEntries {
		h.entries = h.entries[len(h.entries)-h.maxEntries:]
	}
	return res
}

// MatchSecondaryToPrimary places a secondary zone under a primary one,
// trying in order: the secondary's own primary reference, the most recent
// primary visited in the same system, the nearest visited primary within the
// proximity radius, and finally the per-system default. Returns nil only
// when even the system default is unknown.
func (h *History) MatchSecondaryToPrimary(sec Zone) *Zone {
	if sec.PrimaryID != "" {
		if z, ok := h.resolver.Lookup(sec.PrimaryID); ok {
			return &z
		}
	}

	h.mu.Lock()
	entries := append([]HistoryEntry(nil), h.entries...)
	h.mu.Unlock()

	// Most recent primary in the same system.
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.Classification == Primary && e.System == sec.System && sec.System != SystemUnknown {
			if z, ok := h.resolver.Lookup(e.ZoneID); ok {
				return &z
			}
		}
	}

	// Nearest visited primary by coordinates.
	if sec.ID != "" {
		if z := h.nearestPrimary(entries, sec); z != nil {
			return z
		}
	}

	if id, ok := systemDefaultPrimary[sec.System]; ok {
		if z, ok := h.resolver.Lookup(id); ok {
			h.log.Debug().Str("secondary", sec.ID).Str("primary", id).Msg("placed secondary via system default")
			return &z
		}
	}
	return nil
}

// nearestPrimary finds the closest previously visited primary zone within
// the proximity radius of the secondary's last known coordinates.
func (h *History) nearestPrimary(entries []HistoryEntry, sec Zone) *Zone {
	var secCoords *model.Coordinates
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].ZoneID == sec.ID && entries[i].Coordinates != nil {
			secCoords = entries[i].Coordinates
			break
		}
	}
	if secCoords == nil {
		return nil
	}

	var best *Zone
	bestDist := h.proximityRadius
	for i := range entries {
		e := entries[i]
		if e.Classification != Primary || e.Coordinates == nil {
			continue
		}
		d := distance(*secCoords, *e.Coordinates)
		if d <= bestDist {
			if z, ok := h.resolver.Lookup(e.ZoneID); ok {
				bestDist = d
				best = &z
			}
		}
	}
	return best
}

// Current returns the most recent entry, if any.
func (h *History) Current() (HistoryEntry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == 0 {
		return HistoryEntry{}, false
	}
	return h.entries[len(h.entries)-1], true
}

// Entries returns a copy of the retained history, oldest first.
func (h *History) Entries() []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]HistoryEntry(nil), h.entries...)
}

// Reset clears the history at the start of a new watch session.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = nil
}

// Stats computes aggregate visit statistics over the retained history.
func (h *History) Stats() HistoryStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := HistoryStats{
		VisitCounts: make(map[string]int),
		DwellByZone: make(map[string]float64),
		BySystem:    make(map[System]int),
		ByClass:     make(map[Classification]int),
	}
	for _, e := range h.entries {
		s.TotalVisits++
		s.VisitCounts[e.ZoneID]++
		s.DwellByZone[e.ZoneID] += e.Dwell.Seconds()
		s.BySystem[e.System]++
		s.ByClass[e.Classification]++
	}
	if len(h.entries) > 0 {
		s.CurrentZone = h.entries[len(h.entries)-1].ZoneID
		s.OldestRetained = h.entries[0].Timestamp
	}
	return s
}

func distance(a, b model.Coordinates) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
