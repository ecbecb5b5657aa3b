package state

import (
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"immoflow/models"
	"immoflow/store"
	"immoflow/store/memory"
)

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func seededStore(t *testing.T, opts ...memory.Option) *memory.Store {
	t.Helper()
	s := memory.New(opts...)
	seed := func(table string, rows ...store.Row) {
		if err := s.Seed(table, rows...); err != nil {
			t.Fatalf("seed %s: %v", table, err)
		}
	}
	seed("leads",
		store.Row{"id": "l1", "name": "Carlos Sanchez", "phone": "+51900111222", "budget": 150000, "created_at": "2025-01-02T10:00:00Z"},
		store.Row{"id": "l2", "name": "Maria Lopez", "phone": "+51933444555", "budget": 85000, "created_at": "2025-01-01T10:00:00Z"},
	)
	seed("sales",
		store.Row{"id": "s1", "lead_id": "l1", "sale_amount": 142000, "created_at": "2025-01-03T10:00:00Z"},
		store.Row{"id": "s2", "lead_id": "l1", "sale_amount": 63000, "created_at": "2025-01-04T10:00:00Z"},
		store.Row{"id": "s3", "lead_id": "l2", "sale_amount": 50000, "created_at": "2025-01-05T10:00:00Z"},
	)
	seed("income_expenses",
		store.Row{"id": "ie1", "type": "ingreso", "sale_id": "s1", "amount_usd": 1000, "created_at": "2025-01-03T11:00:00Z"},
		store.Row{"id": "ie2", "type": "ingreso", "sale_id": "s2", "amount_usd": 2000, "created_at": "2025-01-04T11:00:00Z"},
		store.Row{"id": "ie3", "type": "egreso", "sale_id": nil, "amount_usd": 300, "created_at": "2025-01-04T12:00:00Z"},
	)
	seed("lead_tasks",
		store.Row{"id": "t1", "lead_id": "l1", "description": "Llamar", "datetime": "2025-01-06T09:00:00Z", "status": "pendiente"},
		store.Row{"id": "t2", "lead_id": "l2", "description": "Visita", "datetime": "2025-01-07T09:00:00Z", "status": "pendiente"},
	)
	seed("properties", store.Row{"id": "prop1", "description": "Depa 201", "price": 145000, "created_at": "2024-01-10T10:00:00Z"})
	return s
}

func newSession(t *testing.T, remote store.Remote, opts ...Option) *Controller {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	c := NewController(remote, opts...)
	t.Cleanup(c.Close)
	c.Bootstrap(context.Background())
	return c
}

func callsAfter(s *memory.Store, n int) []memory.Call {
	return s.Calls()[n:]
}

func TestBootstrapLoadsRemoteCollections(t *testing.T) {
	s := seededStore(t)
	c := newSession(t, s)

	if c.Offline() {
		t.Fatal("expected online session")
	}
	tree := c.Snapshot()
	if len(tree.Leads) != 2 || tree.Leads[0].ID != "l1" {
		t.Errorf("expected leads newest first, got %+v", tree.Leads)
	}
	if len(tree.Sales) != 3 || tree.Sales[0].ID != "s3" {
		t.Errorf("expected sales newest first, got %+v", tree.Sales)
	}
	if tree.Properties[0].Status != models.PropertyAvailable {
		t.Errorf("expected empty property status to default to disponible, got %q", tree.Properties[0].Status)
	}
	if len(tree.Projects) != 0 {
		t.Errorf("expected empty projects from an empty table, got %d", len(tree.Projects))
	}
}

func TestBootstrapFallsBackPerCollection(t *testing.T) {
	s := seededStore(t)
	s.FailNext("select", "projects", &store.Error{Message: "permission denied"})
	c := newSession(t, s)

	if c.Offline() {
		t.Fatal("a secondary failure must not switch to demo mode")
	}
	tree := c.Snapshot()
	if len(tree.Projects) != 2 || tree.Projects[0].ID != "p1" {
		t.Errorf("expected demo projects, got %+v", tree.Projects)
	}
	if len(tree.Leads) != 2 {
		t.Errorf("expected remote leads, got %d", len(tree.Leads))
	}
}

func TestOfflineModeIsSticky(t *testing.T) {
	s := seededStore(t)
	s.FailNext("select", "leads", errors.New("dial tcp: connection refused"))
	c := newSession(t, s)

	if !c.Offline() {
		t.Fatal("expected demo mode after leads failure")
	}
	if got := len(c.Snapshot().Leads); got != 5 {
		t.Fatalf("expected 5 demo leads, got %d", got)
	}

	before := len(s.Calls())
	ctx := context.Background()
	created := Leads.Create(ctx, c, store.Row{"name": "Ana", "phone": "999"})
	if created == nil || created.ID == "" || created.CreatedAt.IsZero() {
		t.Fatalf("expected synthesized identity, got %+v", created)
	}
	Leads.Update(ctx, c, "l2", store.Row{"name": "Maria L."})
	Properties.Delete(ctx, c, "prop3")
	c.DeleteLead(ctx, "l1")
	c.SendMessage(ctx, "l3", "hola")

	if calls := callsAfter(s, before); len(calls) != 0 {
		t.Fatalf("expected no remote calls in demo mode, got %+v", calls)
	}
	if got := c.Feedback().Current(KindSuccess); got != "Purga local completada" {
		t.Errorf("unexpected feedback %q", got)
	}
	tree := c.Snapshot()
	if tree.Leads[0].Name != "Ana" {
		t.Errorf("expected created lead first, got %s", tree.Leads[0].Name)
	}
	for _, sale := range tree.Sales {
		if sale.LeadID == "l1" {
			t.Error("sales of purged lead survived")
		}
	}
}

func TestNilRemoteRunsOnDemoData(t *testing.T) {
	c := newSession(t, nil)
	if !c.Offline() {
		t.Fatal("expected demo mode without a remote")
	}
	if c.Settings() == nil || c.Settings().CompanyName != "ImmoFlow" {
		t.Errorf("expected demo settings, got %+v", c.Settings())
	}
	if len(c.Snapshot().IncomeExpenses) != 0 {
		t.Error("demo cashbook starts empty")
	}
}

func TestCreateStripsForbiddenFields(t *testing.T) {
	s := seededStore(t)
	c := newSession(t, s)
	before := len(s.Calls())

	rec := Leads.Create(context.Background(), c, store.Row{
		"id":           "",
		"name":         "Ana",
		"interest":     "",
		"created_at":   "2020-01-01T00:00:00Z",
		"price_per_m2": 10,
		"last_message": "hola",
	})
	if rec == nil {
		t.Fatal("expected created lead")
	}
	Users.Create(context.Background(), c, store.Row{"name": "Eva", "email": "eva@immoflow.com", "password": "secret"})

	calls := callsAfter(s, before)
	if len(calls) != 2 {
		t.Fatalf("expected 2 inserts, got %+v", calls)
	}
	sent := calls[0].Row
	for _, k := range []string{"id", "created_at", "price_per_m2", "last_message"} {
		if _, ok := sent[k]; ok {
			t.Errorf("%s must not be sent, got %v", k, sent)
		}
	}
	if v, ok := sent["interest"]; !ok || v != nil {
		t.Errorf("expected empty string converted to null, got %v", sent["interest"])
	}
	if _, ok := calls[1].Row["password"]; ok {
		t.Error("password must never reach the users table")
	}
}

func TestCreateLeadScenario(t *testing.T) {
	s := seededStore(t)
	c := newSession(t, s)

	rec := Leads.Create(context.Background(), c, store.Row{"name": "Ana", "phone": "999", "budget": 100})
	if rec == nil {
		t.Fatal("expected created lead")
	}
	if rec.ID == "" || rec.CreatedAt.IsZero() {
		t.Errorf("expected server issued id and created_at, got %+v", rec)
	}
	if rec.Budget != 100 || rec.Phone != "999" {
		t.Errorf("unexpected record %+v", rec)
	}
	if first := c.Snapshot().Leads[0]; first.ID != rec.ID {
		t.Errorf("expected new lead at index 0, got %s", first.ID)
	}
	if got := c.Feedback().Current(KindSuccess); got != "Registro creado con éxito" {
		t.Errorf("unexpected feedback %q", got)
	}
}

func TestCreateFailureLeavesStateUnchanged(t *testing.T) {
	s := seededStore(t)
	c := newSession(t, s)
	before := c.Snapshot().Leads

	s.FailNext("insert", "leads", &store.Error{Code: store.CodeUniqueViolation, Message: "duplicate key"})
	if rec := Leads.Create(context.Background(), c, store.Row{"name": "Ana"}); rec != nil {
		t.Fatalf("expected nil, got %+v", rec)
	}
	if !reflect.DeepEqual(before, c.Snapshot().Leads) {
		t.Error("failed create must not touch the collection")
	}
	if got := c.Feedback().Current(KindError); got != "duplicate key" {
		t.Errorf("unexpected error feedback %q", got)
	}
}

func TestCreateRejectsMistypedPayloadBeforeInsert(t *testing.T) {
	s := seededStore(t)
	c := newSession(t, s)
	before := c.Snapshot().Leads
	remoteBefore := len(s.Rows("leads"))
	callsBefore := len(s.Calls())

	if rec := Leads.Create(context.Background(), c, store.Row{"name": "Ana", "budget": "cien"}); rec != nil {
		t.Fatalf("expected nil, got %+v", rec)
	}
	if got := len(s.Rows("leads")); got != remoteBefore {
		t.Errorf("remote leads = %d, want %d", got, remoteBefore)
	}
	if len(s.Calls()) != callsBefore {
		t.Errorf("no remote call expected, got %v", s.Calls()[callsBefore:])
	}
	if !reflect.DeepEqual(before, c.Snapshot().Leads) {
		t.Error("rejected create must not touch the collection")
	}
	if got := c.Feedback().Current(KindError); !strings.Contains(got, "budget") {
		t.Errorf("unexpected error feedback %q", got)
	}
}

func TestUpdateReplacesWithReturnedRow(t *testing.T) {
	s := seededStore(t)
	c := newSession(t, s)

	rec := Leads.Update(context.Background(), c, "l1", store.Row{"id": "other", "name": "Carlos S.", "last_message": "x"})
	if rec == nil || rec.Name != "Carlos S." || rec.ID != "l1" {
		t.Fatalf("unexpected result %+v", rec)
	}
	last := s.Calls()[len(s.Calls())-1]
	if _, ok := last.Row["id"]; ok {
		t.Error("id must be stripped from the patch")
	}
	if _, ok := last.Row["last_message"]; ok {
		t.Error("last_message must be stripped from the patch")
	}
	got, _ := Leads.Find(c, "l1")
	if got.Name != "Carlos S." || got.Phone != "+51900111222" {
		t.Errorf("unexpected local record %+v", got)
	}
}

func TestUpdateWithNoMatchingRowKeepsPatch(t *testing.T) {
	s := seededStore(t)
	c := newSession(t, s)
	// The row disappears remotely after the session loaded it.
	if err := s.Delete(context.Background(), "lead_tasks", store.Filter{store.Eq("id", "t1")}); err != nil {
		t.Fatal(err)
	}

	rec := Tasks.Update(context.Background(), c, "t1", store.Row{"status": models.TaskCompleted})
	if rec == nil {
		t.Fatal("zero matched rows must not fail the update")
	}
	want, _ := Tasks.Find(c, "t1")
	if rec.ID != "t1" || rec.Status != models.TaskCompleted || rec.Description != "Llamar" {
		t.Errorf("expected patch merged over previous record, got %+v", rec)
	}
	if !reflect.DeepEqual(*rec, want) {
		t.Errorf("local record %+v differs from result %+v", want, *rec)
	}
}

func TestUpdateFailureLeavesRecord(t *testing.T) {
	s := seededStore(t)
	c := newSession(t, s)
	before, _ := Leads.Find(c, "l2")

	s.FailNext("update", "leads", &store.Error{})
	if rec := Leads.Update(context.Background(), c, "l2", store.Row{"name": "X"}); rec != nil {
		t.Fatalf("expected nil, got %+v", rec)
	}
	after, _ := Leads.Find(c, "l2")
	if !reflect.DeepEqual(before, after) {
		t.Error("failed update must leave the record untouched")
	}
	if got := c.Feedback().Current(KindError); got != "Error al actualizar" {
		t.Errorf("unexpected error feedback %q", got)
	}
}

func TestDeleteRollbackRestoresCollection(t *testing.T) {
	s := seededStore(t)
	c := newSession(t, s)
	before := Sales.Items(c)

	s.FailNext("delete", "sales", &store.Error{Message: "timeout"})
	Sales.Delete(context.Background(), c, "s2")

	if !reflect.DeepEqual(before, Sales.Items(c)) {
		t.Error("expected collection restored to its pre-delete state")
	}
	if got := c.Feedback().Current(KindError); got != "Fallo: timeout" {
		t.Errorf("unexpected error feedback %q", got)
	}
}

func TestDeleteRemovesRecord(t *testing.T) {
	s := seededStore(t)
	c := newSession(t, s)

	Properties.Delete(context.Background(), c, "prop1")
	if _, ok := Properties.Find(c, "prop1"); ok {
		t.Error("expected property removed")
	}
	if len(s.Rows("properties")) != 0 {
		t.Error("expected remote row removed")
	}
	if got := c.Feedback().Current(KindSuccess); got != "Cloud: Eliminado" {
		t.Errorf("unexpected feedback %q", got)
	}
}

func TestLookupDispatchesByTable(t *testing.T) {
	s := seededStore(t)
	c := newSession(t, s)

	m, ok := Lookup("lead_sources")
	if !ok {
		t.Fatal("expected lead_sources to be registered")
	}
	rec, ok := m.CreateRow(context.Background(), c, store.Row{"name": "Radio"})
	if !ok {
		t.Fatal("expected create through registry")
	}
	if src, _ := rec.(*models.LeadSource); src == nil || src.Name != "Radio" {
		t.Errorf("unexpected record %#v", rec)
	}
	if _, ok := Lookup("payments"); ok {
		t.Error("unknown tables must not resolve")
	}
}

func TestPurgePromptReflectsBlastRadius(t *testing.T) {
	lead := models.Lead{Name: "Carlos"}
	if got := purgePrompt(lead, 2); !strings.Contains(got, "2 ventas") || !strings.Contains(got, "TODO el historial de Carlos") {
		t.Errorf("unexpected prompt %q", got)
	}
	if got := purgePrompt(lead, 0); got != "¿Eliminar permanentemente a Carlos?" {
		t.Errorf("unexpected prompt %q", got)
	}
}

func TestFeedbackTimersFire(t *testing.T) {
	f := NewFeedback(20*time.Millisecond, 20*time.Millisecond)
	defer f.Close()
	f.Success("ok")
	deadline := time.Now().Add(time.Second)
	for f.Current(KindSuccess) != "" {
		if time.Now().After(deadline) {
			t.Fatal("success message never expired")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
