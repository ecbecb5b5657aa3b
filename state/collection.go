package state

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"immoflow/models"
	"immoflow/store"
)

// Record is implemented by every entity held in the tree.
type Record interface {
	RecordID() string
}

// Collection binds an entity type to its remote table and its slice in the
// tree.
type Collection[T Record] struct {
	Table string
	Order []store.Order
	slot  func(*Tree) *[]T
}

var (
	Leads = Collection[models.Lead]{
		Table: "leads",
		Order: []store.Order{store.Desc("created_at")},
		slot:  func(t *Tree) *[]models.Lead { return &t.Leads },
	}
	Tasks = Collection[models.Task]{
		Table: "lead_tasks",
		Order: []store.Order{store.Asc("datetime")},
		slot:  func(t *Tree) *[]models.Task { return &t.Tasks },
	}
	Sales = Collection[models.Sale]{
		Table: "sales",
		Order: []store.Order{store.Desc("created_at")},
		slot:  func(t *Tree) *[]models.Sale { return &t.Sales },
	}
	IncomeExpenses = Collection[models.IncomeExpense]{
		Table: "income_expenses",
		Order: []store.Order{store.Desc("created_at")},
		slot:  func(t *Tree) *[]models.IncomeExpense { return &t.IncomeExpenses },
	}
	Properties = Collection[models.Property]{
		Table: "properties",
		Order: []store.Order{store.Desc("created_at")},
		slot:  func(t *Tree) *[]models.Property { return &t.Properties },
	}
	Projects = Collection[models.Project]{
		Table: "projects",
		Order: []store.Order{store.Asc("name")},
		slot:  func(t *Tree) *[]models.Project { return &t.Projects },
	}
	Users = Collection[models.User]{
		Table: "users",
		slot:  func(t *Tree) *[]models.User { return &t.Users },
	}
	Stages = Collection[models.PipelineStage]{
		Table: "pipeline_stages",
		Order: []store.Order{store.Asc("order")},
		slot:  func(t *Tree) *[]models.PipelineStage { return &t.Stages },
	}
	LeadSources = Collection[models.LeadSource]{
		Table: "lead_sources",
		Order: []store.Order{store.Asc("name")},
		slot:  func(t *Tree) *[]models.LeadSource { return &t.LeadSources },
	}
	Messages = Collection[models.Message]{
		Table: "messages",
		Order: []store.Order{store.Desc("created_at")},
		slot:  func(t *Tree) *[]models.Message { return &t.Messages },
	}
)

// Items returns a copy of the collection's current records.
func (col Collection[T]) Items(c *Controller) []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(*col.slot(&c.tree))
}

// Find returns the record with id, if present.
func (col Collection[T]) Find(c *Controller, id string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := *col.slot(&c.tree)
	if i := indexOf(items, id); i >= 0 {
		return items[i], true
	}
	var zero T
	return zero, false
}

func indexOf[T Record](items []T, id string) int {
	return slices.IndexFunc(items, func(r T) bool { return r.RecordID() == id })
}

func (col Collection[T]) prepend(t *Tree, rec T) {
	s := col.slot(t)
	*s = append([]T{rec}, *s...)
}

func (col Collection[T]) snapshot(t *Tree) func(*Tree) {
	saved := slices.Clone(*col.slot(t))
	return func(t *Tree) { *col.slot(t) = saved }
}

func (col Collection[T]) fetch(ctx context.Context, r store.Remote) ([]T, error) {
	rows, err := r.Select(ctx, col.Table, store.Query{Order: col.Order})
	if err != nil {
		return nil, err
	}
	return store.DecodeAll[T](rows)
}

// Create inserts payload and returns the stored record, or nil on failure.
func (col Collection[T]) Create(ctx context.Context, c *Controller, payload store.Row) *T {
	clean := CleanCreatePayload(col.Table, payload)
	log := c.logger.WithFields(logrus.Fields{"collection": col.Table, "op": "create"})

	if _, err := store.Decode[T](clean); err != nil {
		log.WithError(err).Warn("Rejected record")
		c.feedback.Error(err.Error())
		return nil
	}

	if c.Offline() {
		clean["id"] = uuid.NewString()
		clean["created_at"] = c.now().UTC()
		rec, err := store.Decode[T](clean)
		if err != nil {
			log.WithError(err).Warn("Rejected local record")
			c.feedback.Error(err.Error())
			return nil
		}
		c.mu.Lock()
		col.prepend(&c.tree, rec)
		c.mu.Unlock()
		return &rec
	}

	row, err := c.remote.Insert(ctx, col.Table, clean)
	if err != nil {
		log.WithError(err).Error("Insert failed")
		c.feedback.Error(store.Message(err, "Error al crear"))
		return nil
	}
	rec, err := store.Decode[T](row)
	if err != nil {
		log.WithError(err).Error("Inserted row could not be decoded")
		c.feedback.Error(err.Error())
		return nil
	}
	c.mu.Lock()
	col.prepend(&c.tree, rec)
	c.mu.Unlock()

	log.WithField("id", rec.RecordID()).Info("Record created")
	c.feedback.Success("Registro creado con éxito")
	return &rec
}

// Update applies patch to the record with id and returns the result, or nil
// when the remote store rejects it. A patch that matches no remote row is
// kept as {id, ...patch} over the previous local record.
func (col Collection[T]) Update(ctx context.Context, c *Controller, id string, patch store.Row) *T {
	clean := CleanUpdatePatch(patch)
	log := c.logger.WithFields(logrus.Fields{"collection": col.Table, "op": "update", "id": id})

	if c.Offline() {
		c.mu.Lock()
		rec, err := col.merge(&c.tree, id, clean)
		if err == nil {
			col.replace(&c.tree, rec)
		}
		c.mu.Unlock()
		if err != nil {
			log.WithError(err).Warn("Rejected local patch")
			c.feedback.Error(err.Error())
			return nil
		}
		return &rec
	}

	row, found, err := c.remote.Update(ctx, col.Table, store.Filter{store.Eq("id", id)}, clean)
	if err != nil {
		log.WithError(err).Error("Update failed")
		c.feedback.Error(store.Message(err, "Error al actualizar"))
		return nil
	}

	c.mu.Lock()
	var rec T
	if found {
		rec, err = store.Decode[T](row)
	} else {
		log.Warn("Update matched no remote row, keeping local patch")
		rec, err = col.merge(&c.tree, id, clean)
	}
	if err == nil {
		col.replace(&c.tree, rec)
	}
	c.mu.Unlock()

	if err != nil {
		log.WithError(err).Error("Updated row could not be decoded")
		c.feedback.Error(store.Message(err, "Error al actualizar"))
		return nil
	}
	c.feedback.Success("Actualizado correctamente")
	return &rec
}

// merge overlays {id, ...patch} on the local record with id. Caller holds
// c.mu.
func (col Collection[T]) merge(t *Tree, id string, patch store.Row) (T, error) {
	base := store.Row{}
	items := *col.slot(t)
	if i := indexOf(items, id); i >= 0 {
		prev, err := store.Encode(items[i])
		if err != nil {
			var zero T
			return zero, err
		}
		base = prev
	}
	for k, v := range patch {
		base[k] = v
	}
	base["id"] = id
	return store.Decode[T](base)
}

// replace swaps the record sharing rec's id. Caller holds c.mu.
func (col Collection[T]) replace(t *Tree, rec T) {
	items := *col.slot(t)
	if i := indexOf(items, rec.RecordID()); i >= 0 {
		items[i] = rec
	}
}

// Delete removes the record optimistically and restores the collection if
// the remote delete fails.
func (col Collection[T]) Delete(ctx context.Context, c *Controller, id string) {
	log := c.logger.WithFields(logrus.Fields{"collection": col.Table, "op": "delete", "id": id})

	committed, err := c.optimistic(ctx,
		col.snapshot,
		func(t *Tree) {
			s := col.slot(t)
			*s = slices.DeleteFunc(slices.Clone(*s), func(r T) bool { return r.RecordID() == id })
		},
		func(ctx context.Context) error {
			return c.remote.Delete(ctx, col.Table, store.Filter{store.Eq("id", id)})
		},
	)
	switch {
	case !committed:
		c.feedback.Success("Local: Eliminado")
	case err != nil:
		log.WithError(err).Error("Delete failed, collection restored")
		c.feedback.Error("Fallo: " + store.Message(err, "Error al eliminar"))
	default:
		log.Info("Record deleted")
		c.feedback.Success("Cloud: Eliminado")
	}
}

// Mutator is the untyped view of a Collection used when commands arrive over
// the wire with a table name.
type Mutator interface {
	CreateRow(ctx context.Context, c *Controller, payload store.Row) (any, bool)
	UpdateRow(ctx context.Context, c *Controller, id string, patch store.Row) (any, bool)
	DeleteRow(ctx context.Context, c *Controller, id string)
}

func (col Collection[T]) CreateRow(ctx context.Context, c *Controller, payload store.Row) (any, bool) {
	rec := col.Create(ctx, c, payload)
	return rec, rec != nil
}

func (col Collection[T]) UpdateRow(ctx context.Context, c *Controller, id string, patch store.Row) (any, bool) {
	rec := col.Update(ctx, c, id, patch)
	return rec, rec != nil
}

func (col Collection[T]) DeleteRow(ctx context.Context, c *Controller, id string) {
	col.Delete(ctx, c, id)
}

var registry = map[string]Mutator{
	Leads.Table:          Leads,
	Tasks.Table:          Tasks,
	Sales.Table:          Sales,
	IncomeExpenses.Table: IncomeExpenses,
	Properties.Table:     Properties,
	Projects.Table:       Projects,
	Users.Table:          Users,
	Stages.Table:         Stages,
	LeadSources.Table:    LeadSources,
}

// Lookup resolves a remote table name to its collection.
func Lookup(table string) (Mutator, bool) {
	m, ok := registry[table]
	return m, ok
}
