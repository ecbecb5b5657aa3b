// Package memory is an in-process implementation of store.Remote. It backs
// local development runs without a database and the test suites.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"immoflow/store"
)

// Call records one operation issued against the store.
type Call struct {
	Op     string
	Table  string
	Filter store.Filter
	Row    store.Row
}

type reference struct {
	child, column, parent string
}

type subscription struct {
	table    string
	filter   store.Filter
	onInsert func(store.Row)
}

type failure struct {
	op, table string
	err       error
}

var _ store.Remote = (*Store)(nil)

// Store keeps every table as an insertion-ordered slice of rows.
type Store struct {
	mu       sync.Mutex
	tables   map[string][]store.Row
	refs     []reference
	subs     map[int]subscription
	nextSub  int
	calls    []Call
	failures []failure
	now      func() time.Time
}

type Option func(*Store)

// WithReference declares that child.column points at parent.id. Deleting a
// parent row that is still referenced fails with a foreign key violation.
func WithReference(child, column, parent string) Option {
	return func(s *Store) {
		s.refs = append(s.refs, reference{child: child, column: column, parent: parent})
	}
}

// WithReferences declares every reference in refs.
func WithReferences(refs ...store.Reference) Option {
	return func(s *Store) {
		for _, ref := range refs {
			s.refs = append(s.refs, reference{child: ref.Child, column: ref.Column, parent: ref.Parent})
		}
	}
}

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{
		tables: make(map[string][]store.Row),
		subs:   make(map[int]subscription),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seed appends rows to table without recording calls or notifying
// subscribers.
func (s *Store) Seed(table string, rows ...store.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		norm, err := store.Encode(row)
		if err != nil {
			return err
		}
		s.tables[table] = append(s.tables[table], norm)
	}
	return nil
}

// Rows returns a copy of table's current rows.
func (s *Store) Rows(table string) []store.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.Row, 0, len(s.tables[table]))
	for _, row := range s.tables[table] {
		out = append(out, row.Clone())
	}
	return out
}

// Calls returns every operation issued so far, in order.
func (s *Store) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// FailNext makes the next op ("select", "insert", "update", "delete") on table
// return err. An empty table matches any table.
func (s *Store) FailNext(op, table string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{op: op, table: table, err: err})
}

func (s *Store) record(op, table string, filter store.Filter, row store.Row) error {
	s.calls = append(s.calls, Call{Op: op, Table: table, Filter: filter, Row: row})
	for i, f := range s.failures {
		if f.op == op && (f.table == "" || f.table == table) {
			s.failures = append(s.failures[:i], s.failures[i+1:]...)
			return f.err
		}
	}
	return nil
}

func (s *Store) Select(ctx context.Context, table string, q store.Query) ([]store.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("select", table, q.Filter, nil); err != nil {
		return nil, err
	}

	var out []store.Row
	for _, row := range s.tables[table] {
		if store.Match(q.Filter, row) {
			out = append(out, row)
		}
	}
	if len(q.Order) > 0 {
		sort.SliceStable(out, func(i, j int) bool {
			for _, o := range q.Order {
				c := store.Compare(out[i][o.Column], out[j][o.Column])
				if c == 0 {
					continue
				}
				if o.Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return project(out, q.Columns), nil
}

func project(rows []store.Row, columns []string) []store.Row {
	out := make([]store.Row, 0, len(rows))
	for _, row := range rows {
		if len(columns) == 0 {
			out = append(out, row.Clone())
			continue
		}
		picked := make(store.Row, len(columns))
		for _, col := range columns {
			if v, ok := row[col]; ok {
				picked[col] = v
			}
		}
		out = append(out, picked)
	}
	return out
}

func (s *Store) Insert(ctx context.Context, table string, row store.Row) (store.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	if err := s.record("insert", table, nil, row.Clone()); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	stored, err := store.Encode(row)
	if err != nil {
		s.mu.Unlock()
		return nil, &store.Error{Code: store.CodeInvalidQuery, Message: err.Error()}
	}
	if stored.String("id") == "" {
		stored["id"] = uuid.NewString()
	}
	if _, ok := stored["created_at"]; !ok || stored["created_at"] == nil {
		stored["created_at"] = s.now().UTC().Format(time.RFC3339Nano)
	}
	for _, existing := range s.tables[table] {
		if existing.String("id") == stored.String("id") {
			s.mu.Unlock()
			return nil, &store.Error{
				Code:    store.CodeUniqueViolation,
				Message: "duplicate key value violates unique constraint",
				Details: fmt.Sprintf("%s.id=%s", table, stored.String("id")),
			}
		}
	}
	s.tables[table] = append(s.tables[table], stored)

	var notify []func(store.Row)
	for _, sub := range s.subs {
		if sub.table == table && store.Match(sub.filter, stored) {
			notify = append(notify, sub.onInsert)
		}
	}
	s.mu.Unlock()

	for _, fn := range notify {
		fn(stored.Clone())
	}
	return stored.Clone(), nil
}

func (s *Store) Update(ctx context.Context, table string, filter store.Filter, patch store.Row) (store.Row, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("update", table, filter, patch.Clone()); err != nil {
		return nil, false, err
	}

	norm, err := store.Encode(patch)
	if err != nil {
		return nil, false, &store.Error{Code: store.CodeInvalidQuery, Message: err.Error()}
	}
	var first store.Row
	for i, row := range s.tables[table] {
		if !store.Match(filter, row) {
			continue
		}
		updated := row.Clone()
		for k, v := range norm {
			updated[k] = v
		}
		s.tables[table][i] = updated
		if first == nil {
			first = updated.Clone()
		}
	}
	return first, first != nil, nil
}

func (s *Store) Delete(ctx context.Context, table string, filter store.Filter) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("delete", table, filter, nil); err != nil {
		return err
	}
	if len(filter) == 0 {
		return &store.Error{Code: store.CodeInvalidQuery, Message: "delete requires a filter"}
	}

	var kept []store.Row
	var removed []store.Row
	for _, row := range s.tables[table] {
		if store.Match(filter, row) {
			removed = append(removed, row)
		} else {
			kept = append(kept, row)
		}
	}
	for _, row := range removed {
		if err := s.checkReferences(table, row.String("id")); err != nil {
			return err
		}
	}
	s.tables[table] = kept
	return nil
}

func (s *Store) checkReferences(parent, id string) error {
	for _, ref := range s.refs {
		if ref.parent != parent {
			continue
		}
		for _, child := range s.tables[ref.child] {
			if child.String(ref.column) == id {
				return &store.Error{
					Code:    store.CodeForeignKeyViolation,
					Message: "constraint violation",
					Details: fmt.Sprintf("%s %s is still referenced from %s.%s", parent, id, ref.child, ref.column),
				}
			}
		}
	}
	return nil
}

func (s *Store) Subscribe(ctx context.Context, table string, filter store.Filter, onInsert func(store.Row)) (store.Unsubscribe, error) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = subscription{table: table, filter: filter, onInsert: onInsert}
	s.mu.Unlock()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
	context.AfterFunc(ctx, stop)
	return stop, nil
}
