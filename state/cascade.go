package state

import (
	"context"
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"

	"immoflow/models"
	"immoflow/store"
)

// Stage names a step of the lead purge workflow.
type Stage string

const (
	StageConfirming            Stage = "confirming"
	StageIdle                  Stage = "idle"
	StageOptimisticallyRemoved Stage = "optimistically_removed"
	StageRemovingCashEntries   Stage = "removing_cash_entries"
	StageRemovingSales         Stage = "removing_sales"
	StageRemovingTasks         Stage = "removing_tasks"
	StageRemovingLead          Stage = "removing_lead"
	StageDone                  Stage = "done"
	StageRolledBack            Stage = "rolled_back"
)

// Dependency is a child collection whose rows reference a parent row through
// Column. Children of a dependency are purged before the dependency itself.
type Dependency struct {
	Table  string
	Column string
	Stage  Stage
	// Sweep issues the remote delete by parent key even when no local row
	// references the parent.
	Sweep    bool
	Children []Dependency

	collect func(t *Tree, parents map[string]bool) []string
	remove  func(t *Tree, ids map[string]bool)
}

func dependsOn[T Record](col Collection[T], column string, stage Stage, parentOf func(T) string, children ...Dependency) Dependency {
	return Dependency{
		Table:    col.Table,
		Column:   column,
		Stage:    stage,
		Children: children,
		collect: func(t *Tree, parents map[string]bool) []string {
			var ids []string
			for _, rec := range *col.slot(t) {
				if parents[parentOf(rec)] {
					ids = append(ids, rec.RecordID())
				}
			}
			return ids
		},
		remove: func(t *Tree, ids map[string]bool) {
			s := col.slot(t)
			*s = slices.DeleteFunc(slices.Clone(*s), func(r T) bool { return ids[r.RecordID()] })
		},
	}
}

func swept(d Dependency) Dependency {
	d.Sweep = true
	return d
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// LeadCascade lists everything that must go before a lead row can be
// deleted: its sales (and their cash entries) and its tasks.
var LeadCascade = []Dependency{
	dependsOn(Sales, "lead_id", StageRemovingSales,
		func(s models.Sale) string { return s.LeadID },
		dependsOn(IncomeExpenses, "sale_id", StageRemovingCashEntries,
			func(e models.IncomeExpense) string { return deref(e.SaleID) }),
	),
	swept(dependsOn(Tasks, "lead_id", StageRemovingTasks,
		func(t models.Task) string { return deref(t.LeadID) })),
}

type purgeStep struct {
	stage  Stage
	table  string
	filter store.Filter
}

type purgePlan struct {
	steps    []purgeStep
	removals []func(*Tree)
}

// planPurge walks deps depth first and emits remote deletes children first.
// Top level dependencies are deleted by the root's id; nested ones by the
// ids of their locally known parents, and are skipped when there are none.
func planPurge(t *Tree, rootID string, deps []Dependency) purgePlan {
	var plan purgePlan
	var walk func(deps []Dependency, parentIDs []string, top bool)
	walk = func(deps []Dependency, parentIDs []string, top bool) {
		parents := make(map[string]bool, len(parentIDs))
		for _, id := range parentIDs {
			parents[id] = true
		}
		for _, dep := range deps {
			ids := dep.collect(t, parents)
			walk(dep.Children, ids, false)

			set := make(map[string]bool, len(ids))
			for _, id := range ids {
				set[id] = true
			}
			remove := dep.remove
			plan.removals = append(plan.removals, func(t *Tree) { remove(t, set) })

			switch {
			case top && (len(ids) > 0 || dep.Sweep):
				plan.steps = append(plan.steps, purgeStep{dep.Stage, dep.Table, store.Filter{store.Eq(dep.Column, rootID)}})
			case !top && len(parentIDs) > 0:
				plan.steps = append(plan.steps, purgeStep{dep.Stage, dep.Table, store.Filter{store.In(dep.Column, parentIDs)}})
			}
		}
	}
	walk(deps, []string{rootID}, true)
	return plan
}

func purgePrompt(lead models.Lead, sales int) string {
	if sales > 0 {
		return fmt.Sprintf("¡ATENCIÓN! Este lead tiene %d ventas y registros financieros vinculados. ¿Deseas purgar TODO el historial de %s?", sales, lead.Name)
	}
	return fmt.Sprintf("¿Eliminar permanentemente a %s?", lead.Name)
}

// DeleteLead removes a lead together with its tasks, its sales and the cash
// entries of those sales. The whole tree is restored if any remote step
// fails; remote deletes that already succeeded are not undone.
func (c *Controller) DeleteLead(ctx context.Context, id string) {
	log := c.logger.WithFields(logrus.Fields{"op": "delete_lead", "lead_id": id})
	stage := func(s Stage) { log.WithField("stage", s).Info("Lead purge") }

	lead, ok := Leads.Find(c, id)
	if !ok {
		return
	}
	sales := 0
	for _, s := range Sales.Items(c) {
		if s.LeadID == id {
			sales++
		}
	}

	stage(StageConfirming)
	if !c.confirm.Confirm(ctx, purgePrompt(lead, sales)) {
		stage(StageIdle)
		return
	}

	var plan purgePlan
	committed, err := c.optimistic(ctx,
		wholeTree,
		func(t *Tree) {
			plan = planPurge(t, id, LeadCascade)
			for _, remove := range plan.removals {
				remove(t)
			}
			t.Leads = slices.DeleteFunc(slices.Clone(t.Leads), func(l models.Lead) bool { return l.ID == id })
			plan.steps = append(plan.steps, purgeStep{StageRemovingLead, Leads.Table, store.Filter{store.Eq("id", id)}})
			stage(StageOptimisticallyRemoved)
		},
		func(ctx context.Context) error {
			for _, step := range plan.steps {
				stage(step.stage)
				if err := c.remote.Delete(ctx, step.table, step.filter); err != nil {
					return err
				}
			}
			return nil
		},
	)

	switch {
	case !committed:
		stage(StageDone)
		c.feedback.Success("Purga local completada")
	case err != nil:
		log.WithError(err).WithField("stage", StageRolledBack).Error("Lead purge failed, state restored")
		c.feedback.Error("Fallo en purga: " + store.Message(err, "error desconocido"))
	default:
		stage(StageDone)
		c.feedback.Success("Lead y registros vinculados purgados con éxito")
	}
}
