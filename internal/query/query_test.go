package query

import (
	"reflect"
	"testing"
	"time"
)

func TestSimplePredicate(t *testing.T) {
	p := Simple("source", Equal, "local")
	if p == nil {
		t.Fatal("expected predicate, got nil")
	}
	sql, args := p.WhereClause()
	if sql != "(source = ?)" {
		t.Errorf("sql = %q", sql)
	}
	if !reflect.DeepEqual(args, []interface{}{"local"}) {
		t.Errorf("args = %v", args)
	}
}

func TestSimpleLikeWrapsValue(t *testing.T) {
	p := Simple("fingerprint", Like, "abc")
	sql, args := p.WhereClause()
	if sql != "(fingerprint LIKE ?)" {
		t.Errorf("sql = %q", sql)
	}
	if !reflect.DeepEqual(args, []interface{}{"%abc%"}) {
		t.Errorf("args = %v", args)
	}
}

func TestSimpleRejectsUnknownColumn(t *testing.T) {
	if p := Simple("payload; DROP TABLE kill_events", Equal, "x"); p != nil {
		t.Error("expected nil for invalid column")
	}
	if p := Simple("source", Operator("BOGUS"), "x"); p != nil {
		t.Error("expected nil for invalid operator")
	}
}

func TestTimeRange(t *testing.T) {
	from := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 14, 13, 0, 0, 0, time.UTC)

	sql, args := TimeRange(from, to).WhereClause()
	if sql != "(timestamp BETWEEN ? AND ?)" {
		t.Errorf("sql = %q", sql)
	}
	want := []interface{}{"2026-03-14T12:00:00.000Z", "2026-03-14T13:00:00.000Z"}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("args = %v, want %v", args, want)
	}

	sql, _ = TimeRange(from, time.Time{}).WhereClause()
	if sql != "(timestamp >= ?)" {
		t.Errorf("open-ended sql = %q", sql)
	}
	if TimeRange(time.Time{}, time.Time{}) != nil {
		t.Error("fully open range should be nil")
	}
}

func TestCombine(t *testing.T) {
	a := Simple("source", Equal, "local")
	b := PlayerInvolved()
	c := Simple("source", NotEqual, "merged")

	if Combine(nil, AND) != nil {
		t.Error("empty combine should be nil")
	}
	if got := Combine([]*Predicate{nil, a, nil}, AND); got != a {
		t.Error("single predicate should pass through")
	}

	sql, args := Combine([]*Predicate{a, b, c}, OR).WhereClause()
	want := "(((source = ?) OR (player_involved = ?)) OR (source != ?))"
	if sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}
	if len(args) != 3 {
		t.Errorf("args = %v", args)
	}
}

func TestFilterBuild(t *testing.T) {
	f := NewFilter()
	if clause, args := f.Build(); clause != "" || args != nil {
		t.Errorf("empty filter: %q %v", clause, args)
	}

	f.Add(PlayerInvolved())
	f.Add(Simple("source", Equal, "local"))
	f.Add(nil)

	clause, args := f.Build()
	want := "WHERE ((player_involved = ?) AND (source = ?))"
	if clause != want {
		t.Errorf("clause = %q, want %q", clause, want)
	}
	if !reflect.DeepEqual(args, []interface{}{1, "local"}) {
		t.Errorf("args = %v", args)
	}

	cols := f.Fields()
	if !reflect.DeepEqual(cols, []string{"player_involved", "source"}) {
		t.Errorf("fields = %v", cols)
	}
}

func TestFilterRemoveAndClear(t *testing.T) {
	f := NewFilter()
	a := PlayerInvolved()
	b := Simple("source", Equal, "server")
	f.Add(a)
	f.Add(b)

	f.Remove(a)
	clause, _ := f.Build()
	if clause != "WHERE (source = ?)" {
		t.Errorf("after remove: %q", clause)
	}

	f.Clear()
	if !f.Empty() {
		t.Error("expected empty filter after Clear")
	}
}

type pgDialect struct{}

func (pgDialect) Placeholder(i int) string {
	return map[int]string{1: "$1", 2: "$2", 3: "$3"}[i]
}

func TestRebind(t *testing.T) {
	in := "WHERE (timestamp BETWEEN ? AND ?) AND (source = ?)"
	got := Rebind(in, pgDialect{})
	want := "WHERE (timestamp BETWEEN $1 AND $2) AND (source = $3)"
	if got != want {
		t.Errorf("Rebind = %q, want %q", got, want)
	}

	if got := Rebind(in, DefaultDialect); got != in {
		t.Errorf("sqlite rebind changed clause: %q", got)
	}

	quoted := "WHERE (source = '?') AND (player_involved = ?)"
	got = Rebind(quoted, pgDialect{})
	if got != "WHERE (source = '?') AND (player_involved = $1)" {
		t.Errorf("quoted rebind = %q", got)
	}
}
