package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"immoflow/models"
	"immoflow/store"
	"immoflow/utils"
)

const (
	defaultReminderInterval  = time.Minute
	defaultReminderLookahead = 15 * time.Minute
)

// Notifier delivers reminder e-mails. *utils.Mailer satisfies it.
type Notifier interface {
	Enabled() bool
	Send(data utils.EmailData) error
}

// TaskReminderWorker reminds advisors of pending tasks that are about to
// start. Each task is reminded once per process.
type TaskReminderWorker struct {
	Store     store.Remote
	Mailer    Notifier
	Logger    *logrus.Entry
	Interval  time.Duration
	Lookahead time.Duration

	now  func() time.Time
	sent map[string]time.Time
}

func NewTaskReminderWorker(remote store.Remote, mailer Notifier, lookahead time.Duration, logger *logrus.Entry) *TaskReminderWorker {
	if lookahead <= 0 {
		lookahead = defaultReminderLookahead
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &TaskReminderWorker{
		Store:     remote,
		Mailer:    mailer,
		Logger:    logger.WithField("component", "task_reminders"),
		Interval:  defaultReminderInterval,
		Lookahead: lookahead,
		now:       time.Now,
		sent:      make(map[string]time.Time),
	}
}

func (tw *TaskReminderWorker) Start(ctx context.Context) {
	tw.Logger.WithField("lookahead", tw.Lookahead).Info("Task reminder worker started")

	ticker := time.NewTicker(tw.Interval)
	defer ticker.Stop()

	for {
		if _, err := tw.RunOnce(ctx); err != nil {
			tw.Logger.WithError(err).Error("Task reminder run failed")
		}
		select {
		case <-ctx.Done():
			tw.Logger.Info("Task reminder worker shutting down...")
			return
		case <-ticker.C:
		}
	}
}

type reminder struct {
	task    models.Task
	lead    *models.Lead
	advisor *models.User
}

// RunOnce sends the reminders due now and returns how many were sent.
func (tw *TaskReminderWorker) RunOnce(ctx context.Context) (int, error) {
	now := tw.now()
	tw.prune(now)

	rows, err := tw.Store.Select(ctx, "lead_tasks", store.Query{
		Filter: store.Filter{
			store.Eq("status", models.TaskPending),
			store.Gte("datetime", now.UTC().Format(time.RFC3339)),
			store.Lte("datetime", now.Add(tw.Lookahead).UTC().Format(time.RFC3339)),
		},
		Order: []store.Order{store.Asc("datetime")},
	})
	if err != nil {
		return 0, fmt.Errorf("fetch due tasks: %w", err)
	}
	tasks, err := store.DecodeAll[models.Task](rows)
	if err != nil {
		return 0, err
	}

	var due []models.Task
	for _, t := range tasks {
		if _, done := tw.sent[t.ID]; !done {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return 0, nil
	}

	reminders, err := tw.resolve(ctx, due)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, r := range reminders {
		if err := tw.notify(r); err != nil {
			utils.LogError("task_reminder", err, map[string]interface{}{"task_id": r.task.ID})
			continue
		}
		tw.sent[r.task.ID] = r.task.Datetime
		sent++
	}
	return sent, nil
}

// resolve attaches each task's lead and that lead's advisor.
func (tw *TaskReminderWorker) resolve(ctx context.Context, tasks []models.Task) ([]reminder, error) {
	var leadIDs []string
	for _, t := range tasks {
		if t.LeadID != nil {
			leadIDs = append(leadIDs, *t.LeadID)
		}
	}

	leads := make(map[string]models.Lead)
	advisors := make(map[string]models.User)
	if len(leadIDs) > 0 {
		rows, err := tw.Store.Select(ctx, "leads", store.Query{
			Columns: []string{"id", "name", "phone", "advisor_id"},
			Filter:  store.Filter{store.In("id", leadIDs)},
		})
		if err != nil {
			return nil, fmt.Errorf("fetch task leads: %w", err)
		}
		found, err := store.DecodeAll[models.Lead](rows)
		if err != nil {
			return nil, err
		}
		var advisorIDs []string
		for _, l := range found {
			leads[l.ID] = l
			if l.AdvisorID != nil {
				advisorIDs = append(advisorIDs, *l.AdvisorID)
			}
		}

		if len(advisorIDs) > 0 {
			rows, err := tw.Store.Select(ctx, "users", store.Query{
				Columns: []string{"id", "name", "email"},
				Filter:  store.Filter{store.In("id", advisorIDs)},
			})
			if err != nil {
				return nil, fmt.Errorf("fetch advisors: %w", err)
			}
			users, err := store.DecodeAll[models.User](rows)
			if err != nil {
				return nil, err
			}
			for _, u := range users {
				advisors[u.ID] = u
			}
		}
	}

	out := make([]reminder, 0, len(tasks))
	for _, t := range tasks {
		r := reminder{task: t}
		if t.LeadID != nil {
			if l, ok := leads[*t.LeadID]; ok {
				r.lead = &l
				if l.AdvisorID != nil {
					if u, ok := advisors[*l.AdvisorID]; ok {
						r.advisor = &u
					}
				}
			}
		}
		out = append(out, r)
	}
	return out, nil
}

func (tw *TaskReminderWorker) notify(r reminder) error {
	fields := logrus.Fields{
		"task_id":     r.task.ID,
		"description": r.task.Description,
		"due":         r.task.Datetime.Format(time.RFC3339),
	}
	data := map[string]string{
		"Description": r.task.Description,
		"Time":        r.task.Datetime.Local().Format("15:04"),
	}
	if r.lead != nil {
		fields["lead"] = r.lead.Name
		data["LeadName"] = r.lead.Name
		data["LeadPhone"] = r.lead.Phone
	}
	tw.Logger.WithFields(fields).Info("⏰ Task due soon")

	if r.advisor == nil || r.advisor.Email == "" || !tw.Mailer.Enabled() {
		return nil
	}
	data["AdvisorName"] = r.advisor.Name
	return tw.Mailer.Send(utils.EmailData{
		Subject:  "Recordatorio: " + r.task.Description,
		To:       []string{r.advisor.Email},
		Template: "task_reminder",
		Data:     data,
	})
}

// prune forgets tasks whose time has long passed.
func (tw *TaskReminderWorker) prune(now time.Time) {
	for id, due := range tw.sent {
		if now.Sub(due) > tw.Lookahead {
			delete(tw.sent, id)
		}
	}
}
