package database

import (
	"time"

	"github.com/kravein/starfeed/internal/model"
)

// AddResult reports what AddEvent did with an event.
type AddResult struct {
	ID    string `json:"id"`
	IsNew bool   `json:"isNew"`
}

// QueryOptions selects a page of events. Search performs full-text matching
// over the event's derived text blob with prefix/partial-term semantics.
type QueryOptions struct {
	Limit      int
	Offset     int
	PlayerOnly bool
	Search     string
	From       time.Time // optional timestamp range, zero = unbounded
	To         time.Time
}

// QueryResult is one page of events plus pagination bookkeeping.
type QueryResult struct {
	Events  []*model.KillEvent `json:"events"`
	Total   int64              `json:"total"`
	HasMore bool               `json:"hasMore"`
}

// StoredEvent is one row of the store: the event plus its storage metadata.
type StoredEvent struct {
	Event       *model.KillEvent  `json:"event"`
	Source      model.EventSource `json:"source"`
	Fingerprint string            `json:"fingerprint"`
	InsertedAt  time.Time         `json:"insertedAt"`
}

// Notification kinds emitted to subscribers.
const (
	NotifyAdded   = "added"
	NotifyUpdated = "updated"
	NotifyCleared = "cleared"
)

// Notification describes one store change. Cleared notifications carry a nil
// event.
type Notification struct {
	Kind   string            `json:"kind"`
	Event  *model.KillEvent  `json:"event,omitempty"`
	Source model.EventSource `json:"source,omitempty"`
}

// TimelineBucket represents a single histogram bucket with a timestamp label
// and event count.
type TimelineBucket struct {
	Timestamp string `json:"timestamp"`
	Count     int64  `json:"count"`
}

// Store defines the interface for all event persistence operations. The app
// and the pipeline depend on this interface, not on a concrete backend.
type Store interface {
	// AddEvent persists an event. An existing row with the same id, or the
	// same content fingerprint within the dedup window, makes this an
	// update rather than an insert. Subscribers are notified either way.
	AddEvent(e *model.KillEvent, source model.EventSource) (AddResult, error)

	// UpdateEvent upserts by id and always re-emits an update notification,
	// even when only the payload changed. Used for placeholder resolution
	// and enrichment patches.
	UpdateEvent(e *model.KillEvent, source model.EventSource) error

	// GetEvent fetches one row by id; returns (nil, nil) when absent.
	GetEvent(id string) (*StoredEvent, error)

	// Query returns a page of events, newest first.
	Query(opts QueryOptions) (*QueryResult, error)

	// RecentEvents returns stored events with timestamps in [since, now],
	// newest first, for correlation lookback.
	RecentEvents(since time.Time) ([]*StoredEvent, error)

	CountEvents() (int64, error)

	// GetTimelineHistogram returns event counts bucketed by time interval
	// over the optional WHERE clause (including the "WHERE" keyword).
	GetTimelineHistogram(whereClause string, whereArgs []interface{}) ([]TimelineBucket, error)

	// ClearAllEvents removes every row and notifies subscribers.
	ClearAllEvents() error

	// Subscribe registers a change listener; the returned function removes
	// it. Listeners are invoked synchronously in write order.
	Subscribe(fn func(Notification)) (unsubscribe func())

	Close() error
	Path() string
}
