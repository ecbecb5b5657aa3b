package models

import "time"

// Sale closes a lead against a property.
type Sale struct {
	ID                   string    `gorm:"primaryKey;default:gen_random_uuid()" json:"id"`
	LeadID               string    `gorm:"not null;index" json:"lead_id"`
	PropertyID           *string   `gorm:"index" json:"property_id"`
	AdvisorID            *string   `gorm:"index" json:"advisor_id"`
	ProjectID            *string   `json:"project_id"`
	SaleAmount           float64   `gorm:"type:double precision;not null" json:"sale_amount"`
	Currency             string    `gorm:"default:USD" json:"currency"`
	SaleType             string    `gorm:"default:completa" json:"sale_type"` // completa, compartida
	CommissionPercentage float64   `gorm:"type:double precision" json:"commission_percentage"`
	ExchangeRate         float64   `gorm:"type:double precision" json:"exchange_rate"`
	CreatedAt            time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (s Sale) RecordID() string { return s.ID }

// IncomeExpense is a cashbook entry, optionally originating from a sale.
type IncomeExpense struct {
	ID           string    `gorm:"primaryKey;default:gen_random_uuid()" json:"id"`
	Type         string    `gorm:"not null" json:"type"` // ingreso, egreso
	Category     string    `json:"category"`
	Description  string    `json:"description"`
	AmountUSD    float64   `gorm:"column:amount_usd;type:double precision" json:"amount_usd"`
	AmountPEN    float64   `gorm:"column:amount_pen;type:double precision" json:"amount_pen"`
	Currency     string    `json:"currency"`
	ExchangeRate float64   `gorm:"type:double precision" json:"exchange_rate"`
	SaleID       *string   `gorm:"index" json:"sale_id"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (IncomeExpense) TableName() string { return "income_expenses" }

func (e IncomeExpense) RecordID() string { return e.ID }
