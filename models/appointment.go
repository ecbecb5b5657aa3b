package models

import "time"

// Appointment is a property visit booked through the chatbot facade.
type Appointment struct {
	ID            string    `gorm:"primaryKey;default:gen_random_uuid()" json:"id"`
	PropertyID    string    `gorm:"not null;index" json:"property_id"`
	AgentID       *string   `gorm:"index" json:"agent_id"`
	ClientName    string    `gorm:"not null" json:"client_name"`
	ClientPhone   string    `gorm:"not null;index" json:"client_phone"`
	ScheduledDate string    `gorm:"not null" json:"scheduled_date"` // YYYY-MM-DD
	ScheduledTime string    `gorm:"not null" json:"scheduled_time"` // HH:MM
	Status        string    `gorm:"default:agendado" json:"status"`
	Notes         *string   `json:"notes"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (a Appointment) RecordID() string { return a.ID }

const (
	AppointmentScheduled = "agendado"
	AppointmentCancelled = "cancelado"
)
