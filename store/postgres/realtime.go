package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"gorm.io/gorm"

	"immoflow/store"
)

// ChangesChannel is the NOTIFY channel insert triggers publish on.
const ChangesChannel = "crm_changes"

const reconnectDelay = 5 * time.Second

type change struct {
	Table string    `json:"table"`
	Op    string    `json:"op"`
	Row   store.Row `json:"row"`
}

// InstallRealtime creates the notify function and an AFTER INSERT trigger on
// each table. Safe to run on every start.
func InstallRealtime(db *gorm.DB, tables ...string) error {
	fn := fmt.Sprintf(`
		CREATE OR REPLACE FUNCTION crm_notify_insert() RETURNS trigger AS $$
		BEGIN
			PERFORM pg_notify('%s', json_build_object(
				'table', TG_TABLE_NAME,
				'op', TG_OP,
				'row', row_to_json(NEW)
			)::text);
			RETURN NEW;
		END;
		$$ LANGUAGE plpgsql;`, ChangesChannel)
	if err := db.Exec(fn).Error; err != nil {
		return fmt.Errorf("create notify function: %w", err)
	}
	for _, table := range tables {
		tbl, err := quote(table)
		if err != nil {
			return err
		}
		trigger := "crm_notify_" + table
		if err := db.Exec(fmt.Sprintf(`DROP TRIGGER IF EXISTS %s ON %s`, trigger, tbl)).Error; err != nil {
			return fmt.Errorf("drop trigger on %s: %w", table, err)
		}
		if err := db.Exec(fmt.Sprintf(
			`CREATE TRIGGER %s AFTER INSERT ON %s FOR EACH ROW EXECUTE FUNCTION crm_notify_insert()`,
			trigger, tbl)).Error; err != nil {
			return fmt.Errorf("create trigger on %s: %w", table, err)
		}
	}
	return nil
}

func (s *Store) Subscribe(ctx context.Context, table string, filter store.Filter, onInsert func(store.Row)) (store.Unsubscribe, error) {
	if _, err := quote(table); err != nil {
		return nil, err
	}
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = subscription{table: table, filter: filter, onInsert: onInsert}
	if s.stopListen == nil {
		listenCtx, cancel := context.WithCancel(context.Background())
		s.stopListen = cancel
		go s.listen(listenCtx)
	}
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

func (s *Store) listen(ctx context.Context) {
	for {
		err := s.listenOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		s.logger.WithError(err).Warn("Realtime listener dropped, reconnecting")
		select {
		case <-time.After(reconnectDelay):
		case <-ctx.Done():
			return
		}
	}
}

func (s *Store) listenOnce(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, s.dsn)
	if err != nil {
		return fmt.Errorf("connect listener: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+ChangesChannel); err != nil {
		return fmt.Errorf("listen %s: %w", ChangesChannel, err)
	}
	s.logger.Info("Realtime listener attached")

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		s.dispatch([]byte(n.Payload))
	}
}

func (s *Store) dispatch(payload []byte) {
	var ev change
	if err := json.Unmarshal(payload, &ev); err != nil {
		s.logger.WithError(err).Warn("Dropping malformed change notification")
		return
	}
	if ev.Op != "" && ev.Op != "INSERT" {
		return
	}

	s.mu.Lock()
	var targets []func(store.Row)
	for _, sub := range s.subs {
		if sub.table == ev.Table && store.Match(sub.filter, ev.Row) {
			targets = append(targets, sub.onInsert)
		}
	}
	s.mu.Unlock()

	for _, fn := range targets {
		fn(ev.Row.Clone())
	}
}
