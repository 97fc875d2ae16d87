package dto

import (
	"time"

	"github.com/minawano/group-management-api/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID        uint64    `json:"id"`
	Username  string    `json:"username"`
	SiteID    *uint64   `json:"site_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ToUserDTO converts a user model to DTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:        user.ID,
		Username:  user.Username,
		SiteID:    user.SiteID,
		CreatedAt: user.CreatedAt,
	}
}
