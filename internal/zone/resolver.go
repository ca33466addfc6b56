package zone

import (
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/kravein/starfeed/internal/logging"
	"github.com/kravein/starfeed/internal/model"
)

// Resolver owns the zone knowledge base: a seeded set of known zones plus
// pattern-classified zones learned during the session. Resolution is total;
// see Resolve.
type Resolver struct {
	mu                  sync.RWMutex
	zones               map[string]Zone // keyed by lowercase id
	byName              map[string]string
	source              string // "local" seed or "server" authoritative
	version             string
	confidenceThreshold float64
	log                 zerolog.Logger
}

// NewResolver builds a resolver seeded with the shipped knowledge base.
// Pattern resolutions at or above confidenceThreshold are cached back into
// the knowledge base so repeated tokens resolve exactly.
func NewResolver(confidenceThreshold float64) *Resolver {
	r := &Resolver{
		zones:               make(map[string]Zone),
		byName:              make(map[string]string),
		source:              "local",
		version:             "seed",
		confidenceThreshold: confidenceThreshold,
		log:                 logging.Component("zones"),
	}
	for _, z := range seedZones() {
		r.index(z)
	}
	return r
}

func (r *Resolver) index(z Zone) {
	id := strings.ToLower(z.ID)
	r.zones[id] = z
	r.byName[strings.ToLower(z.DisplayName)] = id
}

// Resolve maps a raw token to a zone. Attempt order: exact knowledge-base
// match (confidence 1.0), pattern classification (0.6-0.8), then the
// zero-confidence "Unknown" fallback. It never returns an error and never
// panics on arbitrary input.
func (r *Resolver) Resolve(token string, coords *model.Coordinates) Resolution {
	t := strings.ToLower(strings.TrimSpace(token))
	if t == "" {
		return Fallback()
	}

	r.mu.RLock()
	if z, ok := r.zones[t]; ok {
		r.mu.RUnlock()
		return Resolution{Zone: z, Confidence: 1.0, MatchMethod: MatchExact}
	}
	if id, ok := r.byName[t]; ok {
		z := r.zones[id]
		r.mu.RUnlock()
		return Resolution{Zone: z, Confidence: 1.0, MatchMethod: MatchExact}
	}
	r.mu.RUnlock()

	z := ClassifyZone(token)
	if z.Confidence > 0 {
		if z.Confidence >= r.confidenceThreshold {
			r.mu.Lock()
			if _, exists := r.zones[z.ID]; !exists {
				r.index(z)
				r.log.Debug().Str("zone", z.ID).Float64("confidence", z.Confidence).Msg("learned zone from pattern")
			}
			r.mu.Unlock()
		}
		return Resolution{Zone: z, Confidence: z.Confidence, MatchMethod: MatchPattern}
	}

	return Fallback()
}

// Lookup returns a zone by id without going through pattern classification.
func (r *Resolver) Lookup(id string) (Zone, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	z, ok := r.zones[strings.ToLower(id)]
	return z, ok
}

// ReplaceDatabase swaps the knowledge base for an authoritative update.
// Source is "local" for a reseed or "server" for a remote update; learned
// pattern zones are discarded.
func (r *Resolver) ReplaceDatabase(zones []Zone, version, source string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.zones = make(map[string]Zone, len(zones))
	r.byName = make(map[string]string, len(zones))
	for _, z := range zones {
		r.index(z)
	}
	r.source = source
	r.version = version
	r.log.Info().Str("source", source).Str("version", version).Int("zones", len(zones)).Msg("zone database replaced")
}

// DatabaseInfo reports the knowledge base source tag, version and size.
func (r *Resolver) DatabaseInfo() (source, version string, count int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.source, r.version, len(r.zones)
}
