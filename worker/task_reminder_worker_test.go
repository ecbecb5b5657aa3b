package worker

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"immoflow/store"
	"immoflow/store/memory"
	"immoflow/utils"
)

type recordingMailer struct {
	enabled bool
	fail    error
	sent    []utils.EmailData
}

func (m *recordingMailer) Enabled() bool { return m.enabled }

func (m *recordingMailer) Send(data utils.EmailData) error {
	if m.fail != nil {
		return m.fail
	}
	m.sent = append(m.sent, data)
	return nil
}

var clock = time.Date(2024, 5, 10, 14, 0, 0, 0, time.UTC)

func reminderStore(t *testing.T) *memory.Store {
	t.Helper()
	s := memory.New()
	seed := func(table string, rows ...store.Row) {
		if err := s.Seed(table, rows...); err != nil {
			t.Fatal(err)
		}
	}
	seed("users", store.Row{"id": "u1", "name": "Carlos", "email": "carlos@immoflow.pe", "active": true})
	seed("leads",
		store.Row{"id": "l1", "name": "Ana Torres", "phone": "987654321", "advisor_id": "u1"},
		store.Row{"id": "l2", "name": "Luis Quispe", "phone": "912345678"},
	)
	at := func(d time.Duration) string { return clock.Add(d).Format(time.RFC3339) }
	seed("lead_tasks",
		store.Row{"id": "t1", "lead_id": "l1", "description": "Visita depa Miraflores", "datetime": at(10 * time.Minute), "status": "pendiente"},
		store.Row{"id": "t2", "lead_id": "l2", "description": "Llamar", "datetime": at(5 * time.Minute), "status": "pendiente"},
		store.Row{"id": "t3", "lead_id": "l1", "description": "Mañana", "datetime": at(24 * time.Hour), "status": "pendiente"},
		store.Row{"id": "t4", "lead_id": "l1", "description": "Ya hecha", "datetime": at(5 * time.Minute), "status": "completado"},
		store.Row{"id": "t5", "description": "Reunión interna", "datetime": at(-time.Hour), "status": "pendiente"},
	)
	return s
}

func newTestWorker(remote store.Remote, mailer Notifier) *TaskReminderWorker {
	l := logrus.New()
	l.SetOutput(io.Discard)
	w := NewTaskReminderWorker(remote, mailer, 15*time.Minute, logrus.NewEntry(l))
	w.now = func() time.Time { return clock }
	return w
}

func TestRunOnceRemindsDueTasksOnce(t *testing.T) {
	mailer := &recordingMailer{enabled: true}
	w := newTestWorker(reminderStore(t), mailer)

	n, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if n != 2 {
		t.Fatalf("sent %d reminders, want 2", n)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("emails = %d, want 1 (only l1 has an advisor)", len(mailer.sent))
	}
	email := mailer.sent[0]
	if email.To[0] != "carlos@immoflow.pe" || email.Subject != "Recordatorio: Visita depa Miraflores" {
		t.Errorf("email = %+v", email)
	}
	if data := email.Data.(map[string]string); data["LeadName"] != "Ana Torres" || data["AdvisorName"] != "Carlos" {
		t.Errorf("data = %v", data)
	}

	n, _ = w.RunOnce(context.Background())
	if n != 0 || len(mailer.sent) != 1 {
		t.Errorf("second run sent %d (emails %d)", n, len(mailer.sent))
	}
}

func TestRunOnceWithoutSMTPOnlyLogs(t *testing.T) {
	mailer := &recordingMailer{}
	w := newTestWorker(reminderStore(t), mailer)
	if n, err := w.RunOnce(context.Background()); err != nil || n != 2 {
		t.Fatalf("RunOnce = %d, %v", n, err)
	}
	if len(mailer.sent) != 0 {
		t.Error("disabled mailer sent mail")
	}
}

func TestRunOnceRetriesFailedDelivery(t *testing.T) {
	mailer := &recordingMailer{enabled: true, fail: errors.New("smtp down")}
	w := newTestWorker(reminderStore(t), mailer)

	if n, _ := w.RunOnce(context.Background()); n != 1 {
		t.Fatalf("sent %d, want 1 (the advisor-less task)", n)
	}
	mailer.fail = nil
	if n, _ := w.RunOnce(context.Background()); n != 1 || len(mailer.sent) != 1 {
		t.Errorf("retry sent %d, emails %d", n, len(mailer.sent))
	}
}

func TestRunOnceStoreError(t *testing.T) {
	s := reminderStore(t)
	s.FailNext("select", "lead_tasks", &store.Error{Code: store.CodeUnavailable, Message: "timeout"})
	if _, err := newTestWorker(s, &recordingMailer{}).RunOnce(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestPruneForgetsPastTasks(t *testing.T) {
	w := newTestWorker(reminderStore(t), &recordingMailer{})
	w.sent["old"] = clock.Add(-time.Hour)
	w.sent["recent"] = clock.Add(-time.Minute)
	w.prune(clock)
	if _, ok := w.sent["old"]; ok {
		t.Error("old entry kept")
	}
	if _, ok := w.sent["recent"]; !ok {
		t.Error("recent entry dropped")
	}
}
