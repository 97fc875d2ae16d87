package dto

import (
	"time"

	"github.com/minawano/group-management-api/internal/models"
)

// OrganizationDTO represents an organization in API responses
type OrganizationDTO struct {
	ID          uint64  `json:"id"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Description string  `json:"description,omitempty"`
	InviteCode  string  `json:"invite_code,omitempty"`
	IsActive    bool    `json:"is_active"`
	IsHidden    bool    `json:"is_hidden"`
	SiteID      *uint64 `json:"site_id,omitempty"`
	ParentID    *uint64 `json:"parent_id,omitempty"`
}

// ToOrganizationDTO converts an organization to DTO. The invite code is only
// included when withInviteCode is set (admin-facing responses).
func ToOrganizationDTO(org models.Organization, withInviteCode bool) OrganizationDTO {
	dto := OrganizationDTO{
		ID:          org.ID,
		Name:        org.Name,
		Slug:        org.Slug,
		Description: org.Description,
		IsActive:    org.IsActive,
		IsHidden:    org.IsHidden,
		SiteID:      org.SiteID,
		ParentID:    org.ParentID,
	}
	if withInviteCode {
		dto.InviteCode = org.InviteCode
	}
	return dto
}

// OrganizationMemberDTO represents a member in an organization
type OrganizationMemberDTO struct {
	User        UserDTO   `json:"user"`
	IsAdmin     bool      `json:"is_admin"`
	IsModerator bool      `json:"is_moderator"`
	JoinedAt    time.Time `json:"joined_at"`
}

// ToOrganizationMemberDTO converts a member to DTO
func ToOrganizationMemberDTO(member models.OrganizationMember) OrganizationMemberDTO {
	return OrganizationMemberDTO{
		User:        ToUserDTO(member.User),
		IsAdmin:     member.IsAdmin,
		IsModerator: member.IsModerator,
		JoinedAt:    member.CreatedAt,
	}
}

// MembershipDTO represents one of the caller's memberships with its group
type MembershipDTO struct {
	Organization OrganizationDTO `json:"organization"`
	IsAdmin      bool            `json:"is_admin"`
}

// ToMembershipDTO converts a membership with preloaded organization to DTO
func ToMembershipDTO(member models.OrganizationMember) MembershipDTO {
	return MembershipDTO{
		Organization: ToOrganizationDTO(member.Organization, false),
		IsAdmin:      member.IsAdmin,
	}
}

// OrganizationDetailDTO represents detailed organization information
type OrganizationDetailDTO struct {
	OrganizationDTO
	Members      []OrganizationMemberDTO `json:"members"`
	Subgroups    []OrganizationDTO       `json:"subgroups"`
	YouAreAdmin  bool                    `json:"you_are_admin"`
	OwnerUserID  *uint64                 `json:"owner_user_id,omitempty"`
}

// ToOrganizationDetailDTO converts an organization with members and
// subgroups to a detailed DTO
func ToOrganizationDetailDTO(org models.Organization, members []models.OrganizationMember, subgroups []models.Organization, youAreAdmin bool, ownerUserID *uint64) OrganizationDetailDTO {
	memberDTOs := make([]OrganizationMemberDTO, len(members))
	for i, member := range members {
		memberDTOs[i] = ToOrganizationMemberDTO(member)
	}

	subgroupDTOs := make([]OrganizationDTO, len(subgroups))
	for i, sub := range subgroups {
		subgroupDTOs[i] = ToOrganizationDTO(sub, false)
	}

	return OrganizationDetailDTO{
		OrganizationDTO: ToOrganizationDTO(org, youAreAdmin),
		Members:         memberDTOs,
		Subgroups:       subgroupDTOs,
		YouAreAdmin:     youAreAdmin,
		OwnerUserID:     ownerUserID,
	}
}
