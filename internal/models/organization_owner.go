package models

import "time"

// OrganizationOwner designates which membership owns the organization.
// Exactly zero or one row exists per organization; it is created when the
// first member joins and only ever moves through an explicit ownership
// transfer. While it exists, the referenced membership cannot be deleted
// directly.
type OrganizationOwner struct {
	ID             uint64    `gorm:"primarykey" json:"id"`
	OrganizationID uint64    `gorm:"uniqueIndex;not null" json:"organization_id"`
	UserID         uint64    `gorm:"not null" json:"user_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Relations
	Organization Organization       `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	Member       OrganizationMember `gorm:"foreignKey:OrganizationID,UserID;references:OrganizationID,UserID" json:"member,omitempty"`
}
