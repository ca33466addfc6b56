package database

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kravein/starfeed/internal/logging"
	"github.com/kravein/starfeed/internal/model"
	"github.com/kravein/starfeed/internal/query"
)

// timeLayout is the fixed-width UTC layout used for every timestamp column.
// Fixed width means lexical ordering matches chronological ordering, so range
// queries work identically on both backends.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// SQLStore implements Store on top of database/sql with all backend-specific
// SQL delegated to a Dialect.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	path    string

	maxEvents         int
	fingerprintWindow time.Duration

	mu          sync.Mutex
	subscribers map[string]func(Notification)
	log         zerolog.Logger
}

// Options tunes store behavior beyond the connection itself.
type Options struct {
	// MaxEvents caps the table size; oldest rows are evicted past it.
	// Zero means no cap.
	MaxEvents int

	// FingerprintWindow is how close in time two events must be for a
	// matching content fingerprint to count as the same incident.
	FingerprintWindow time.Duration
}

// Open connects to the backend, creates the schema if needed, and returns a
// ready store.
func Open(dialect Dialect, pathOrConnStr string, opts Options) (*SQLStore, error) {
	db, err := sql.Open(dialect.DriverName(), dialect.DSN(pathOrConnStr))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &SQLStore{
		db:                db,
		dialect:           dialect,
		path:              pathOrConnStr,
		maxEvents:         opts.MaxEvents,
		fingerprintWindow: opts.FingerprintWindow,
		subscribers:       make(map[string]func(Notification)),
		log:               logging.Component("database"),
	}
	if s.fingerprintWindow <= 0 {
		s.fingerprintWindow = 10 * time.Second
	}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) createSchema() error {
	if _, err := s.db.Exec(s.dialect.CreateTableSQL()); err != nil {
		return fmt.Errorf("creating kill_events table: %w", err)
	}
	for _, ddl := range s.dialect.AuxiliaryDDL() {
		if _, err := s.db.Exec(ddl); err != nil {
			return fmt.Errorf("creating auxiliary schema: %w", err)
		}
	}
	indexes := []struct{ name, column string }{
		{"idx_kill_events_timestamp", "timestamp"},
		{"idx_kill_events_player", "player_involved"},
		{"idx_kill_events_source", "source"},
		{"idx_kill_events_fingerprint", "fingerprint"},
	}
	for _, idx := range indexes {
		stmt := s.dialect.CreateIndexSQL(idx.name, "kill_events", idx.column)
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("creating index %s: %w", idx.name, err)
		}
	}
	return nil
}

func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) Path() string { return s.path }

// AddEvent persists an event, deduplicating two ways: an existing row with
// the same id is updated in place, and an existing row whose content
// fingerprint matches within the fingerprint window absorbs this event under
// the old row's id.
func (s *SQLStore) AddEvent(e *model.KillEvent, source model.EventSource) (AddResult, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return AddResult{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	isNew := true

	var existing string
	q := fmt.Sprintf("SELECT id FROM kill_events WHERE id = %s", s.dialect.Placeholder(1))
	err = tx.QueryRow(q, e.ID).Scan(&existing)
	switch {
	case err == sql.ErrNoRows:
		// Not stored under this id; check for a content duplicate nearby.
		fp := e.Fingerprint()
		lo := formatTime(e.Timestamp.Add(-s.fingerprintWindow))
		hi := formatTime(e.Timestamp.Add(s.fingerprintWindow))
		q = fmt.Sprintf(
			"SELECT id FROM kill_events WHERE fingerprint = %s AND timestamp >= %s AND timestamp <= %s",
			s.dialect.Placeholder(1), s.dialect.Placeholder(2), s.dialect.Placeholder(3))
		err = tx.QueryRow(q, fp, lo, hi).Scan(&existing)
		if err == nil {
			e.ID = existing
			isNew = false
		} else if err != sql.ErrNoRows {
			return AddResult{}, fmt.Errorf("checking fingerprint: %w", err)
		}
	case err == nil:
		isNew = false
	default:
		return AddResult{}, fmt.Errorf("checking existing event: %w", err)
	}

	if err := s.upsertTx(tx, e, source); err != nil {
		return AddResult{}, err
	}
	if isNew && s.maxEvents > 0 {
		if err := s.evictTx(tx); err != nil {
			return AddResult{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return AddResult{}, fmt.Errorf("committing event: %w", err)
	}

	kind := NotifyAdded
	if !isNew {
		kind = NotifyUpdated
	}
	s.notify(Notification{Kind: kind, Event: e, Source: source})
	return AddResult{ID: e.ID, IsNew: isNew}, nil
}

// UpdateEvent upserts by id and always emits an update notification. Callers
// use it for placeholder resolution and profile enrichment patches.
func (s *SQLStore) UpdateEvent(e *model.KillEvent, source model.EventSource) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.upsertTx(tx, e, source); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing update: %w", err)
	}
	s.notify(Notification{Kind: NotifyUpdated, Event: e, Source: source})
	return nil
}

func (s *SQLStore) upsertTx(tx *sql.Tx, e *model.KillEvent, source model.EventSource) error {
	payload, err := e.MarshalPayload()
	if err != nil {
		return fmt.Errorf("encoding event payload: %w", err)
	}
	involved := 0
	if e.PlayerInvolved {
		involved = 1
	}
	searchText := e.SearchText()

	_, err = tx.Exec(s.dialect.UpsertEventSQL(),
		e.ID, formatTime(e.Timestamp), string(payload), involved,
		string(source), formatTime(time.Now()), e.Fingerprint(), searchText)
	if err != nil {
		return fmt.Errorf("writing event %s: %w", e.ID, err)
	}

	if del := s.dialect.DeleteSearchRowSQL(); del != "" {
		if _, err := tx.Exec(del, e.ID); err != nil {
			return fmt.Errorf("clearing search row: %w", err)
		}
		if _, err := tx.Exec(s.dialect.InsertSearchRowSQL(), e.ID, searchText); err != nil {
			return fmt.Errorf("writing search row: %w", err)
		}
	}
	return nil
}

// evictTx removes oldest-first rows beyond the cap inside the write
// transaction, keeping the full-text index aligned.
func (s *SQLStore) evictTx(tx *sql.Tx) error {
	var count int64
	if err := tx.QueryRow("SELECT COUNT(*) FROM kill_events").Scan(&count); err != nil {
		return fmt.Errorf("counting events: %w", err)
	}
	excess := count - int64(s.maxEvents)
	if excess <= 0 {
		return nil
	}

	q := fmt.Sprintf(
		"SELECT id FROM kill_events ORDER BY timestamp ASC, id ASC LIMIT %s",
		s.dialect.Placeholder(1))
	rows, err := tx.Query(q, excess)
	if err != nil {
		return fmt.Errorf("selecting eviction candidates: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scanning eviction candidate: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating eviction candidates: %w", err)
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = s.dialect.Placeholder(i + 1)
		args[i] = id
	}
	in := strings.Join(placeholders, ", ")

	if del := s.dialect.DeleteSearchRowSQL(); del != "" {
		stmt := fmt.Sprintf("DELETE FROM kill_events_fts WHERE event_id IN (%s)", in)
		if _, err := tx.Exec(stmt, args...); err != nil {
			return fmt.Errorf("evicting search rows: %w", err)
		}
	}
	stmt := fmt.Sprintf("DELETE FROM kill_events WHERE id IN (%s)", in)
	if _, err := tx.Exec(stmt, args...); err != nil {
		return fmt.Errorf("evicting events: %w", err)
	}
	s.log.Debug().Int("evicted", len(ids)).Msg("retention cap enforced")
	return nil
}

// GetEvent fetches one row by id; (nil, nil) when absent.
func (s *SQLStore) GetEvent(id string) (*StoredEvent, error) {
	q := fmt.Sprintf(
		"SELECT payload, source, fingerprint, inserted_at FROM kill_events WHERE id = %s",
		s.dialect.Placeholder(1))
	var payload, source, fp, insertedAt string
	err := s.db.QueryRow(q, id).Scan(&payload, &source, &fp, &insertedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching event %s: %w", id, err)
	}
	e, err := model.UnmarshalPayload([]byte(payload))
	if err != nil {
		return nil, fmt.Errorf("decoding event %s: %w", id, err)
	}
	return &StoredEvent{
		Event:       e,
		Source:      model.EventSource(source),
		Fingerprint: fp,
		InsertedAt:  parseTime(insertedAt),
	}, nil
}

// Query returns a page of events, newest first.
func (s *SQLStore) Query(opts QueryOptions) (*QueryResult, error) {
	where, args := s.buildConditions(opts)

	countQ := "SELECT COUNT(*) FROM kill_events" + where
	var total int64
	if err := s.db.QueryRow(countQ, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting query results: %w", err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	pageQ := fmt.Sprintf(
		"SELECT payload FROM kill_events%s ORDER BY timestamp DESC, id DESC LIMIT %s OFFSET %s",
		where, s.dialect.Placeholder(len(args)+1), s.dialect.Placeholder(len(args)+2))
	pageArgs := append(append([]interface{}{}, args...), limit, opts.Offset)

	rows, err := s.db.Query(pageQ, pageArgs...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []*model.KillEvent
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning event row: %w", err)
		}
		e, err := model.UnmarshalPayload([]byte(payload))
		if err != nil {
			s.log.Warn().Err(err).Msg("skipping undecodable event payload")
			continue
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}

	return &QueryResult{
		Events:  events,
		Total:   total,
		HasMore: int64(opts.Offset+len(events)) < total,
	}, nil
}

func (s *SQLStore) buildConditions(opts QueryOptions) (string, []interface{}) {
	var conds []string
	var args []interface{}

	if opts.PlayerOnly {
		conds = append(conds, fmt.Sprintf("player_involved = %s", s.dialect.Placeholder(len(args)+1)))
		args = append(args, 1)
	}
	if !opts.From.IsZero() {
		conds = append(conds, fmt.Sprintf("timestamp >= %s", s.dialect.Placeholder(len(args)+1)))
		args = append(args, formatTime(opts.From))
	}
	if !opts.To.IsZero() {
		conds = append(conds, fmt.Sprintf("timestamp <= %s", s.dialect.Placeholder(len(args)+1)))
		args = append(args, formatTime(opts.To))
	}
	if q := strings.TrimSpace(opts.Search); q != "" {
		conds = append(conds, s.dialect.SearchCondition(len(args)+1))
		args = append(args, s.dialect.SearchQueryString(q))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// RecentEvents returns stored events with timestamps at or after since,
// newest first.
func (s *SQLStore) RecentEvents(since time.Time) ([]*StoredEvent, error) {
	q := fmt.Sprintf(
		"SELECT payload, source, fingerprint, inserted_at FROM kill_events WHERE timestamp >= %s ORDER BY timestamp DESC, id DESC",
		s.dialect.Placeholder(1))
	rows, err := s.db.Query(q, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("querying recent events: %w", err)
	}
	defer rows.Close()

	var out []*StoredEvent
	for rows.Next() {
		var payload, source, fp, insertedAt string
		if err := rows.Scan(&payload, &source, &fp, &insertedAt); err != nil {
			return nil, fmt.Errorf("scanning recent event: %w", err)
		}
		e, err := model.UnmarshalPayload([]byte(payload))
		if err != nil {
			s.log.Warn().Err(err).Msg("skipping undecodable event payload")
			continue
		}
		out = append(out, &StoredEvent{
			Event:       e,
			Source:      model.EventSource(source),
			Fingerprint: fp,
			InsertedAt:  parseTime(insertedAt),
		})
	}
	return out, rows.Err()
}

func (s *SQLStore) CountEvents() (int64, error) {
	var count int64
	err := s.db.QueryRow("SELECT COUNT(*) FROM kill_events").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting events: %w", err)
	}
	return count, nil
}

// GetTimelineHistogram buckets event counts by minute for timeline display.
// The clause may use "?" placeholders; it is rebound for the backend.
func (s *SQLStore) GetTimelineHistogram(whereClause string, whereArgs []interface{}) ([]TimelineBucket, error) {
	bucket := s.dialect.DateFormatSQL("timestamp", "%Y-%m-%d %H:%M")
	q := fmt.Sprintf(
		"SELECT %s AS bucket, COUNT(*) FROM kill_events %s GROUP BY bucket ORDER BY bucket ASC",
		bucket, query.Rebind(whereClause, s.dialect))
	rows, err := s.db.Query(q, whereArgs...)
	if err != nil {
		return nil, fmt.Errorf("querying timeline histogram: %w", err)
	}
	defer rows.Close()

	var buckets []TimelineBucket
	for rows.Next() {
		var b TimelineBucket
		if err := rows.Scan(&b.Timestamp, &b.Count); err != nil {
			return nil, fmt.Errorf("scanning histogram bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

// ClearAllEvents removes every row and notifies subscribers.
func (s *SQLStore) ClearAllEvents() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if s.dialect.DeleteSearchRowSQL() != "" {
		if _, err := tx.Exec("DELETE FROM kill_events_fts"); err != nil {
			return fmt.Errorf("clearing search rows: %w", err)
		}
	}
	if _, err := tx.Exec("DELETE FROM kill_events"); err != nil {
		return fmt.Errorf("clearing events: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing clear: %w", err)
	}
	s.notify(Notification{Kind: NotifyCleared})
	return nil
}

// Subscribe registers a change listener; the returned function removes it.
func (s *SQLStore) Subscribe(fn func(Notification)) func() {
	id := uuid.NewString()
	s.mu.Lock()
	s.subscribers[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

func (s *SQLStore) notify(n Notification) {
	s.mu.Lock()
	fns := make([]func(Notification), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(n)
	}
}
