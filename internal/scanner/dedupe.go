package scanner

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/kravein/starfeed/internal/model"
)

// deathRecord is what we remember about the first report of a death within
// its coincidence window.
type deathRecord struct {
	method   string
	priority int
	seenAt   time.Time
}

// deathDeduper suppresses duplicate death reports for the same player
// arriving via different wire formats within a short coincidence window.
// Records are keyed by player + minute bucket and pruned on a TTL so a
// player dying again a minute later is a fresh incident.
type deathDeduper struct {
	mu         sync.Mutex
	window     time.Duration
	recent     *cache.Cache
	nPrevented atomic.Uint64
}

func newDeathDeduper(window, ttl time.Duration) *deathDeduper {
	return &deathDeduper{
		window: window,
		recent: cache.New(ttl, ttl),
	}
}

// admit reports whether this death report should proceed to correlation.
// The first report for a player+minute always proceeds. A later report
// within the coincidence window is suppressed and counted; if it outranks
// the recorded format, the recorded method is upgraded in place so the
// window remembers the most authoritative source.
func (d *deathDeduper) admit(player, method string, ts time.Time) bool {
	key := fmt.Sprintf("%s|%s", strings.ToLower(player), ts.UTC().Truncate(time.Minute).Format("15:04"))
	prio := model.MethodPriority(method)

	d.mu.Lock()
	defer d.mu.Unlock()

	if v, ok := d.recent.Get(key); ok {
		rec := v.(*deathRecord)
		if ts.Sub(rec.seenAt) <= d.window {
			if prio > rec.priority {
				rec.method = method
				rec.priority = prio
			}
			d.nPrevented.Add(1)
			return false
		}
	}
	d.recent.SetDefault(key, &deathRecord{method: method, priority: prio, seenAt: ts})
	return true
}

func (d *deathDeduper) prevented() uint64 {
	return d.nPrevented.Load()
}

func (d *deathDeduper) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recent.Flush()
	d.nPrevented.Store(0)
}
