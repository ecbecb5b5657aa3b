package models

import "time"

// Message is one WhatsApp conversation entry for a lead.
type Message struct {
	ID         string    `gorm:"primaryKey;default:gen_random_uuid()" json:"id"`
	LeadID     string    `gorm:"not null;index" json:"lead_id"`
	Content    string    `json:"content"`
	Direction  string    `gorm:"not null" json:"direction"` // inbound, outbound
	Type       string    `gorm:"default:text" json:"type"`  // text, image, audio, document
	Status     string    `json:"status"`
	WhatsappID string    `gorm:"column:whatsapp_id" json:"whatsapp_id"`
	MediaURL   string    `gorm:"column:media_url" json:"media_url"`
	MediaType  string    `json:"media_type"`
	FileName   string    `json:"file_name"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (m Message) RecordID() string { return m.ID }

const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)
