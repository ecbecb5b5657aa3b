// Package state keeps the in-memory CRM tree of one session in sync with the
// remote store. Mutations are applied optimistically where the workflow
// allows it and reconciled with the store afterwards; failures never escape
// as errors but surface on the session's Feedback channel.
package state

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"immoflow/models"
	"immoflow/store"
)

// Confirmer asks the person driving the session to approve a destructive
// action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool { return f(ctx, prompt) }

// AutoConfirm approves every prompt. Used by headless sessions.
var AutoConfirm = ConfirmFunc(func(context.Context, string) bool { return true })

type Controller struct {
	remote    store.Remote
	feedback  *Feedback
	confirm   Confirmer
	messenger Messenger
	logger    *logrus.Entry
	now       func() time.Time
	onMessage func(models.Message)

	mu      sync.Mutex
	tree    Tree
	offline bool
}

type Option func(*Controller)

func WithConfirmer(cf Confirmer) Option { return func(c *Controller) { c.confirm = cf } }

func WithMessenger(m Messenger) Option { return func(c *Controller) { c.messenger = m } }

func WithLogger(l *logrus.Entry) Option { return func(c *Controller) { c.logger = l } }

func WithFeedback(f *Feedback) Option { return func(c *Controller) { c.feedback = f } }

func WithClock(now func() time.Time) Option { return func(c *Controller) { c.now = now } }

// WithMessageListener registers fn to receive realtime inbound messages
// after they have been added to the tree.
func WithMessageListener(fn func(models.Message)) Option {
	return func(c *Controller) { c.onMessage = fn }
}

// NewController creates a session controller. A nil remote yields a session
// that runs on demo data once bootstrapped.
func NewController(remote store.Remote, opts ...Option) *Controller {
	c := &Controller{
		remote:  remote,
		confirm: AutoConfirm,
		logger:  logrus.NewEntry(logrus.StandardLogger()),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.feedback == nil {
		c.feedback = NewFeedback(DefaultSuccessTTL, DefaultErrorTTL)
	}
	c.logger = c.logger.WithField("component", "state")
	return c
}

func (c *Controller) Feedback() *Feedback { return c.feedback }

// Offline reports whether the session runs on local data only. Once true it
// stays true.
func (c *Controller) Offline() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offline || c.remote == nil
}

// Snapshot returns a deep copy of the current tree.
func (c *Controller) Snapshot() Tree {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tree.Clone()
}

func (c *Controller) Settings() *models.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tree.Settings == nil {
		return nil
	}
	s := *c.tree.Settings
	return &s
}

// Close releases the session's timers.
func (c *Controller) Close() {
	c.feedback.Close()
}

// loadStep fetches one collection and returns how to place it in the tree.
type loadStep func(ctx context.Context, r store.Remote) (apply func(*Tree), err error)

func loadInto[T Record](col Collection[T]) loadStep {
	return func(ctx context.Context, r store.Remote) (func(*Tree), error) {
		items, err := col.fetch(ctx, r)
		if err != nil {
			return nil, err
		}
		return func(t *Tree) { *col.slot(t) = items }, nil
	}
}

func fallbackFrom[T Record](col Collection[T], demo *Tree) func(*Tree) {
	return func(t *Tree) { *col.slot(t) = *col.slot(demo) }
}

// Bootstrap loads every collection concurrently. When the leads query
// fails, or no remote is configured, the session switches to demo data for
// good. Any other failing collection falls back to its demo slice.
func (c *Controller) Bootstrap(ctx context.Context) {
	demo := DemoTree(c.now())

	if c.Offline() {
		c.enterOffline(demo, nil)
		return
	}

	secondary := []struct {
		table    string
		load     loadStep
		fallback func(*Tree)
	}{
		{Projects.Table, loadInto(Projects), fallbackFrom(Projects, &demo)},
		{Stages.Table, loadInto(Stages), fallbackFrom(Stages, &demo)},
		{Users.Table, loadInto(Users), fallbackFrom(Users, &demo)},
		{Properties.Table, loadInto(Properties), fallbackFrom(Properties, &demo)},
		{Tasks.Table, loadInto(Tasks), fallbackFrom(Tasks, &demo)},
		{Sales.Table, loadInto(Sales), fallbackFrom(Sales, &demo)},
		{IncomeExpenses.Table, loadInto(IncomeExpenses), func(t *Tree) { t.IncomeExpenses = nil }},
		{LeadSources.Table, loadInto(LeadSources), fallbackFrom(LeadSources, &demo)},
	}

	g, gctx := errgroup.WithContext(ctx)

	var applyLeads func(*Tree)
	g.Go(func() error {
		apply, err := loadInto(Leads)(gctx, c.remote)
		applyLeads = apply
		return err
	})

	applies := make([]func(*Tree), len(secondary))
	for i, step := range secondary {
		g.Go(func() error {
			apply, err := step.load(gctx, c.remote)
			if err != nil {
				c.logger.WithError(err).WithField("collection", step.table).Warn("Collection unavailable, using demo data")
				apply = step.fallback
			}
			applies[i] = apply
			return nil
		})
	}

	var settings *models.Settings
	g.Go(func() error {
		rows, err := c.remote.Select(gctx, "settings", store.Query{Limit: 1})
		if err != nil || len(rows) == 0 {
			if err != nil {
				c.logger.WithError(err).Warn("Settings unavailable")
			}
			return nil
		}
		s, err := store.Decode[models.Settings](rows[0])
		if err == nil {
			settings = &s
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		c.enterOffline(demo, err)
		return
	}

	var tree Tree
	applyLeads(&tree)
	for _, apply := range applies {
		apply(&tree)
	}
	tree.Settings = settings
	normalize(&tree)

	c.mu.Lock()
	c.tree = tree
	c.mu.Unlock()
	c.logger.WithField("leads", len(tree.Leads)).Info("Session bootstrapped from remote store")
}

func (c *Controller) enterOffline(demo Tree, cause error) {
	normalize(&demo)
	c.mu.Lock()
	c.offline = true
	c.tree = demo
	c.mu.Unlock()

	entry := c.logger
	if cause != nil {
		entry = entry.WithError(cause)
	}
	entry.Warn("Remote store unreachable, running in demo mode")
}

func normalize(t *Tree) {
	for i := range t.Properties {
		if t.Properties[i].Status == "" {
			t.Properties[i].Status = models.PropertyAvailable
		}
	}
}

// optimistic runs mutate against the tree, then commit against the remote
// store. If commit fails, the state captured by snapshot is put back.
// committed is false when the session is offline and commit was skipped.
func (c *Controller) optimistic(
	ctx context.Context,
	snapshot func(*Tree) func(*Tree),
	mutate func(*Tree),
	commit func(context.Context) error,
) (committed bool, err error) {
	c.mu.Lock()
	restore := snapshot(&c.tree)
	mutate(&c.tree)
	offline := c.offline || c.remote == nil
	c.mu.Unlock()

	if offline {
		return false, nil
	}
	if err := commit(ctx); err != nil {
		c.mu.Lock()
		restore(&c.tree)
		c.mu.Unlock()
		return true, err
	}
	return true, nil
}

func wholeTree(t *Tree) func(*Tree) {
	saved := t.Clone()
	return func(t *Tree) { *t = saved }
}
