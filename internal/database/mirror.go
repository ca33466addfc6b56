package database

import (
	"sync"

	"github.com/kravein/starfeed/internal/model"
)

// Mirror is a bounded, newest-first in-memory view of the store, kept current
// through change notifications. The UI reads from the mirror so a render
// never touches the database, and events that fail to persist can still be
// surfaced through AddFallback.
type Mirror struct {
	mu     sync.RWMutex
	events []*model.KillEvent // newest first
	byID   map[string]int
	max    int
}

// NewMirror creates a mirror holding at most max events. A non-positive max
// defaults to 250.
func NewMirror(max int) *Mirror {
	if max <= 0 {
		max = 250
	}
	return &Mirror{
		byID: make(map[string]int),
		max:  max,
	}
}

// Attach seeds the mirror from the store and subscribes to its changes. The
// returned function detaches the subscription.
func (m *Mirror) Attach(store Store) (func(), error) {
	res, err := store.Query(QueryOptions{Limit: m.max})
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.events = m.events[:0]
	m.byID = make(map[string]int)
	for _, e := range res.Events {
		m.byID[e.ID] = len(m.events)
		m.events = append(m.events, e)
	}
	m.mu.Unlock()

	return store.Subscribe(m.Apply), nil
}

// Apply folds one store notification into the mirror.
func (m *Mirror) Apply(n Notification) {
	switch n.Kind {
	case NotifyAdded, NotifyUpdated:
		if n.Event != nil {
			m.put(n.Event)
		}
	case NotifyCleared:
		m.mu.Lock()
		m.events = m.events[:0]
		m.byID = make(map[string]int)
		m.mu.Unlock()
	}
}

// AddFallback records an event directly, for when persistence failed but the
// feed should still show the incident.
func (m *Mirror) AddFallback(e *model.KillEvent) {
	m.put(e)
}

func (m *Mirror) put(e *model.KillEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i, ok := m.byID[e.ID]; ok {
		m.events[i] = e
		return
	}

	// Insert keeping newest-first order; new events almost always land at
	// the front.
	pos := 0
	for pos < len(m.events) && m.events[pos].Timestamp.After(e.Timestamp) {
		pos++
	}
	m.events = append(m.events, nil)
	copy(m.events[pos+1:], m.events[pos:])
	m.events[pos] = e

	if len(m.events) > m.max {
		m.events = m.events[:m.max]
	}
	m.reindex()
}

func (m *Mirror) reindex() {
	m.byID = make(map[string]int, len(m.events))
	for i, e := range m.events {
		m.byID[e.ID] = i
	}
}

// Events returns a copy of the mirrored events, newest first.
func (m *Mirror) Events() []*model.KillEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.KillEvent, len(m.events))
	copy(out, m.events)
	return out
}

// Len reports how many events the mirror currently holds.
func (m *Mirror) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}
