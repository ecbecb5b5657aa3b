package models

import "time"

// Property is an inventory unit.
type Property struct {
	ID           string  `gorm:"primaryKey;default:gen_random_uuid()" json:"id"`
	Description  string  `gorm:"not null" json:"description"`
	ProjectID    *string `gorm:"index" json:"project_id"`
	Location     string  `gorm:"index" json:"location"`
	Price        float64 `gorm:"type:double precision" json:"price"`
	Currency     string  `gorm:"default:USD" json:"currency"`
	Area         float64 `gorm:"type:double precision" json:"area"`
	PricePerM2   float64 `gorm:"column:price_per_m2;type:double precision" json:"price_per_m2"` // derived
	Details      string  `json:"details"`
	Status       string  `gorm:"default:disponible;index" json:"status"` // disponible, vendido, separado, bloqueado
	PropertyType string  `json:"property_type"`
	Bedrooms     int     `json:"bedrooms"`
	Bathrooms    int     `json:"bathrooms"`
	BuiltArea    float64 `gorm:"type:double precision" json:"built_area"`
	Floors       int     `json:"floors"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (p Property) RecordID() string { return p.ID }

const PropertyAvailable = "disponible"

// Project groups properties built by one developer.
type Project struct {
	ID        string `gorm:"primaryKey;default:gen_random_uuid()" json:"id"`
	Name      string `gorm:"not null" json:"name"`
	Developer string `json:"developer"`
	Units     int    `json:"units"`
	Phone     string `json:"phone"`
	Status    string `json:"status"`
}

func (p Project) RecordID() string { return p.ID }
