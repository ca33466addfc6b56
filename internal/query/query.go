package query

import (
	"fmt"
	"strings"
	"time"
)

// Columns are the kill_events columns that predicates may reference. The
// event body lives in the payload JSON; filterable attributes are promoted
// to real columns by the store's write path.
var Columns = []string{
	"id", "timestamp", "player_involved", "source", "fingerprint", "inserted_at",
}

// timeLayout matches the fixed-width UTC format the store writes, so string
// comparison on the timestamp column orders chronologically.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// Logic determines how multiple predicates are combined.
type Logic int

const (
	AND Logic = iota
	OR
)

// Operator represents a SQL comparison operator.
type Operator string

const (
	Equal          Operator = "="
	NotEqual       Operator = "!="
	Like           Operator = "LIKE"
	NotLike        Operator = "NOT LIKE"
	GreaterOrEqual Operator = ">="
	LessOrEqual    Operator = "<="
)

// validOperators is the set of allowed operators for validation.
var validOperators = map[Operator]bool{
	Equal: true, NotEqual: true, Like: true, NotLike: true,
	GreaterOrEqual: true, LessOrEqual: true,
}

// Predicate represents a single filter condition or a composite of
// conditions. Predicates use parameterized values to prevent SQL injection.
type Predicate struct {
	kind  predicateKind
	field string
	op    Operator
	value interface{}
	from  time.Time
	to    time.Time
	left  *Predicate
	right *Predicate
	logic Logic
}

type predicateKind int

const (
	predNone predicateKind = iota
	predSimple
	predTimeRange
	predComposite
)

// Simple creates a predicate that compares a column to a value.
// Returns nil if the column name is invalid or the operator is unrecognized.
func Simple(field string, op Operator, value interface{}) *Predicate {
	if !isValidColumn(field) || !validOperators[op] {
		return nil
	}
	return &Predicate{
		kind:  predSimple,
		field: field,
		op:    op,
		value: value,
	}
}

// TimeRange creates a predicate filtering events between two instants
// (inclusive). A zero bound is open on that side.
func TimeRange(from, to time.Time) *Predicate {
	if from.IsZero() && to.IsZero() {
		return nil
	}
	return &Predicate{kind: predTimeRange, from: from, to: to}
}

// PlayerInvolved creates a predicate selecting events the session player
// participated in.
func PlayerInvolved() *Predicate {
	return Simple("player_involved", Equal, 1)
}

// Combine joins multiple predicates with the given logic (AND or OR).
// Returns nil for an empty slice. Returns the single predicate if only one is
// given. Nil predicates in the slice are skipped.
func Combine(preds []*Predicate, logic Logic) *Predicate {
	filtered := make([]*Predicate, 0, len(preds))
	for _, p := range preds {
		if p != nil {
			filtered = append(filtered, p)
		}
	}

	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}

	result := &Predicate{
		kind:  predComposite,
		left:  filtered[0],
		right: filtered[1],
		logic: logic,
	}
	for i := 2; i < len(filtered); i++ {
		result = &Predicate{
			kind:  predComposite,
			left:  result,
			right: filtered[i],
			logic: logic,
		}
	}
	return result
}

// WhereClause returns the SQL WHERE fragment and its parameter values.
// For example: "(source = ?)", []interface{}{"local"}
func (p *Predicate) WhereClause() (string, []interface{}) {
	if p == nil {
		return "", nil
	}

	switch p.kind {
	case predNone:
		return "", nil

	case predSimple:
		if p.op == Like || p.op == NotLike {
			return fmt.Sprintf("(%s %s ?)", p.field, p.op),
				[]interface{}{"%" + fmt.Sprint(p.value) + "%"}
		}
		return fmt.Sprintf("(%s %s ?)", p.field, p.op),
			[]interface{}{p.value}

	case predTimeRange:
		switch {
		case p.from.IsZero():
			return "(timestamp <= ?)",
				[]interface{}{p.to.UTC().Format(timeLayout)}
		case p.to.IsZero():
			return "(timestamp >= ?)",
				[]interface{}{p.from.UTC().Format(timeLayout)}
		default:
			return "(timestamp BETWEEN ? AND ?)", []interface{}{
				p.from.UTC().Format(timeLayout),
				p.to.UTC().Format(timeLayout),
			}
		}

	case predComposite:
		leftSQL, leftArgs := p.left.WhereClause()
		rightSQL, rightArgs := p.right.WhereClause()

		if leftSQL == "" && rightSQL == "" {
			return "", nil
		}
		if leftSQL == "" {
			return rightSQL, rightArgs
		}
		if rightSQL == "" {
			return leftSQL, leftArgs
		}

		logicStr := "AND"
		if p.logic == OR {
			logicStr = "OR"
		}

		sql := fmt.Sprintf("(%s %s %s)", leftSQL, logicStr, rightSQL)
		args := append(leftArgs, rightArgs...)
		return sql, args

	default:
		return "", nil
	}
}

// Fields returns the list of column names referenced by this predicate tree.
func (p *Predicate) Fields() []string {
	if p == nil {
		return nil
	}

	switch p.kind {
	case predNone:
		return nil
	case predSimple:
		return []string{p.field}
	case predTimeRange:
		return []string{"timestamp"}
	case predComposite:
		seen := make(map[string]bool)
		var result []string
		for _, f := range p.left.Fields() {
			if !seen[f] {
				seen[f] = true
				result = append(result, f)
			}
		}
		for _, f := range p.right.Fields() {
			if !seen[f] {
				seen[f] = true
				result = append(result, f)
			}
		}
		return result
	default:
		return nil
	}
}

// Filter collects predicates and renders them into the WHERE clause consumed
// by the store's histogram and export paths.
type Filter struct {
	predicates []*Predicate
	logic      Logic
}

// NewFilter creates an empty filter combining predicates with AND.
func NewFilter() *Filter {
	return &Filter{logic: AND}
}

// SetLogic sets how top-level predicates are combined (AND or OR).
func (f *Filter) SetLogic(logic Logic) {
	f.logic = logic
}

// Add appends a predicate to the filter. Nil predicates are ignored.
func (f *Filter) Add(p *Predicate) {
	if p != nil {
		f.predicates = append(f.predicates, p)
	}
}

// Remove removes the first occurrence of a predicate from the filter.
func (f *Filter) Remove(p *Predicate) {
	for i, pred := range f.predicates {
		if pred == p {
			f.predicates = append(f.predicates[:i], f.predicates[i+1:]...)
			return
		}
	}
}

// Clear removes all predicates.
func (f *Filter) Clear() {
	f.predicates = nil
}

// Empty reports whether the filter has no predicates.
func (f *Filter) Empty() bool {
	return len(f.predicates) == 0
}

// Build renders the filter as a WHERE clause (including the WHERE keyword)
// plus its parameter values. An empty filter renders as "".
func (f *Filter) Build() (string, []interface{}) {
	combined := Combine(f.predicates, f.logic)
	if combined == nil {
		return "", nil
	}
	whereSQL, args := combined.WhereClause()
	if whereSQL == "" {
		return "", nil
	}
	return "WHERE " + whereSQL, args
}

// Fields returns all column names referenced across all predicates.
func (f *Filter) Fields() []string {
	seen := make(map[string]bool)
	var result []string
	for _, p := range f.predicates {
		for _, col := range p.Fields() {
			if !seen[col] {
				seen[col] = true
				result = append(result, col)
			}
		}
	}
	return result
}

// isValidColumn checks a column name against the known columns.
func isValidColumn(name string) bool {
	for _, c := range Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Describe renders the filter in a human-readable form for diagnostics.
func (f *Filter) Describe() string {
	clause, args := f.Build()
	if clause == "" {
		return "(unfiltered)"
	}
	out := clause
	for _, a := range args {
		out = strings.Replace(out, "?", fmt.Sprintf("%v", a), 1)
	}
	return out
}
