package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID           uint64         `gorm:"primarykey" json:"id"`
	Username     string         `gorm:"type:varchar(150);uniqueIndex;not null" json:"username"`
	PasswordHash string         `gorm:"type:varchar(255);not null" json:"-"`
	IsActive     bool           `gorm:"not null;default:true" json:"is_active"`
	IsSuperuser  bool           `gorm:"not null;default:false" json:"-"`
	IsSupervisor bool           `gorm:"not null;default:false" json:"-"`
	IsStaff      bool           `gorm:"not null;default:false" json:"-"`
	SiteID       *uint64        `gorm:"index" json:"site_id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Site        *Site                `gorm:"foreignKey:SiteID" json:"site,omitempty"`
	Memberships []OrganizationMember `gorm:"foreignKey:UserID" json:"-"`
}
