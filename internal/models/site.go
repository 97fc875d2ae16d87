package models

import "time"

// Site identifies a tenant brand. Organizations and users may each be bound
// to at most one site; a nil site reference means "global".
type Site struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	Domain    string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"domain"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
