package models

import "time"

// User is an advisor or administrator. Credentials live with the auth
// provider, never in this table.
type User struct {
	ID        string    `gorm:"primaryKey;default:gen_random_uuid()" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Email     string    `gorm:"uniqueIndex" json:"email"`
	Phone     string    `json:"phone"`
	Avatar    string    `json:"avatar"`
	Role      string    `gorm:"default:ejecutivo" json:"role"` // admin, ejecutivo
	Active    bool      `gorm:"default:true;index" json:"active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (u User) RecordID() string { return u.ID }
