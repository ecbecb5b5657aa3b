// Package postgres implements store.Remote on top of the shared gorm pool,
// with realtime insert notifications delivered over LISTEN/NOTIFY.
package postgres

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"immoflow/store"
)

var _ store.Remote = (*Store)(nil)

type Store struct {
	db     *gorm.DB
	dsn    string
	logger *logrus.Entry

	mu         sync.Mutex
	subs       map[int]subscription
	nextSub    int
	stopListen context.CancelFunc
}

type subscription struct {
	table    string
	filter   store.Filter
	onInsert func(store.Row)
}

// New wraps db. dsn is used to open the dedicated LISTEN connection the first
// time someone subscribes.
func New(db *gorm.DB, dsn string, logger *logrus.Entry) *Store {
	return &Store{
		db:     db,
		dsn:    dsn,
		logger: logger.WithField("component", "postgres_store"),
		subs:   make(map[int]subscription),
	}
}

func (s *Store) query(ctx context.Context, sql string, args []any) ([]store.Row, error) {
	var raw []map[string]interface{}
	if err := s.db.WithContext(ctx).Raw(sql, args...).Scan(&raw).Error; err != nil {
		return nil, translate(err)
	}
	rows := make([]store.Row, len(raw))
	for i, r := range raw {
		rows[i] = store.Row(r)
	}
	return rows, nil
}

func (s *Store) Select(ctx context.Context, table string, q store.Query) ([]store.Row, error) {
	sql, args, err := buildSelect(table, q)
	if err != nil {
		return nil, err
	}
	return s.query(ctx, sql, args)
}

func (s *Store) Insert(ctx context.Context, table string, row store.Row) (store.Row, error) {
	sql, args, err := buildInsert(table, row)
	if err != nil {
		return nil, err
	}
	rows, err := s.query(ctx, sql, args)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &store.Error{Code: store.CodeNoRows, Message: "insert returned no row"}
	}
	return rows[0], nil
}

func (s *Store) Update(ctx context.Context, table string, filter store.Filter, patch store.Row) (store.Row, bool, error) {
	if len(patch) == 0 {
		rows, err := s.Select(ctx, table, store.Query{Filter: filter, Limit: 1})
		if err != nil || len(rows) == 0 {
			return nil, false, err
		}
		return rows[0], true, nil
	}
	sql, args, err := buildUpdate(table, filter, patch)
	if err != nil {
		return nil, false, err
	}
	rows, err := s.query(ctx, sql, args)
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return rows[0], true, nil
}

func (s *Store) Delete(ctx context.Context, table string, filter store.Filter) error {
	sql, args, err := buildDelete(table, filter)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Exec(sql, args...).Error; err != nil {
		return translate(err)
	}
	return nil
}

// Close stops the realtime listener, if running.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopListen != nil {
		s.stopListen()
		s.stopListen = nil
	}
}

func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &store.Error{Code: pgErr.Code, Message: pgErr.Message, Details: pgErr.Detail}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &store.Error{Code: store.CodeUnavailable, Message: err.Error()}
}
