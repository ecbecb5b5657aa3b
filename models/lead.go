package models

import "time"

// Lead is a prospective buyer moving through the sales pipeline.
type Lead struct {
	ID             string  `gorm:"primaryKey;default:gen_random_uuid()" json:"id"`
	Name           string  `gorm:"not null" json:"name"`
	Phone          string  `gorm:"index" json:"phone"`
	Budget         float64 `gorm:"type:double precision;default:0" json:"budget"`
	BudgetCurrency string  `gorm:"default:USD" json:"budget_currency"` // USD, PEN
	Interest       string  `json:"interest"`

	ProjectID       *string `gorm:"index" json:"project_id"`
	AdvisorID       *string `gorm:"index" json:"advisor_id"`
	PipelineStageID *string `gorm:"index" json:"pipeline_stage_id"`
	SourceID        *string `json:"source_id"`

	Status         string `json:"status"`
	ChatbotEnabled bool   `gorm:"default:true" json:"chatbot_enabled"`

	// Denormalized cache of the latest conversation message
	LastMessage string `json:"last_message"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (l Lead) RecordID() string { return l.ID }

// Task is a calendar entry. A nil LeadID marks an internal task.
type Task struct {
	ID          string    `gorm:"primaryKey;default:gen_random_uuid()" json:"id"`
	LeadID      *string   `gorm:"index" json:"lead_id"`
	Description string    `gorm:"not null" json:"description"`
	Datetime    time.Time `gorm:"index" json:"datetime"`
	Status      string    `gorm:"default:pendiente" json:"status"` // pendiente, completado, reprogramado, vencido, descartado
	Notes       string    `json:"notes"`
}

func (Task) TableName() string { return "lead_tasks" }

func (t Task) RecordID() string { return t.ID }

// Task statuses
const (
	TaskPending     = "pendiente"
	TaskCompleted   = "completado"
	TaskRescheduled = "reprogramado"
	TaskOverdue     = "vencido"
	TaskDiscarded   = "descartado"
)
