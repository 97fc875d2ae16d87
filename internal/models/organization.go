package models

import (
	"time"

	"gorm.io/gorm"
)

// Organization is a named group. It may be tied to a single site so that it
// is not visible outside that brand, and it may be a subgroup of a parent
// organization. The hierarchy is at most two levels deep: a subgroup cannot
// itself become a parent.
type Organization struct {
	ID                uint64         `gorm:"primarykey" json:"id"`
	Name              string         `gorm:"type:varchar(255);not null" json:"name"`
	Slug              string         `gorm:"type:varchar(200);uniqueIndex;not null" json:"slug"`
	Description       string         `gorm:"type:text" json:"description"`
	InviteCode        string         `gorm:"type:varchar(50);uniqueIndex;not null" json:"invite_code"`
	IsActive          bool           `gorm:"not null;default:true;index:idx_organizations_visibility,priority:2" json:"is_active"`
	IsHidden          bool           `gorm:"not null;default:false;index:idx_organizations_visibility,priority:3" json:"is_hidden"`
	SendSignupMessage bool           `gorm:"not null;default:false" json:"send_signup_message"`
	SignupMessage     string         `gorm:"type:text" json:"signup_message"`
	SiteID            *uint64        `gorm:"index:idx_organizations_visibility,priority:1" json:"site_id"`
	ParentID          *uint64        `gorm:"index:idx_organizations_visibility,priority:4" json:"parent_id"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Site      *Site                `gorm:"foreignKey:SiteID" json:"site,omitempty"`
	Parent    *Organization        `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	Subgroups []Organization       `gorm:"foreignKey:ParentID" json:"subgroups,omitempty"`
	Members   []OrganizationMember `gorm:"foreignKey:OrganizationID" json:"members,omitempty"`
	Owner     *OrganizationOwner   `gorm:"foreignKey:OrganizationID" json:"owner,omitempty"`
}

// IsSubgroup reports whether the organization sits under a parent.
func (o *Organization) IsSubgroup() bool {
	return o.ParentID != nil
}
