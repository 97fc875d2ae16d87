package models

import "time"

// OrganizationMember links a user to an organization. At most one membership
// exists per (organization, user) pair; memberships are owned by their
// organization and are deleted with it.
type OrganizationMember struct {
	OrganizationID uint64    `gorm:"primarykey" json:"organization_id"`
	UserID         uint64    `gorm:"primarykey" json:"user_id"`
	IsAdmin        bool      `gorm:"not null;default:false" json:"is_admin"`
	IsModerator    bool      `gorm:"not null;default:false" json:"is_moderator"`
	CreatedAt      time.Time `json:"created_at"`

	// Relations
	Organization Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	User         User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
