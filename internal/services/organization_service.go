package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/minawano/group-management-api/internal/models"
	"github.com/minawano/group-management-api/internal/repository"
	"github.com/minawano/group-management-api/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrOrganizationNotFound       = errors.New("organization not found")
	ErrInvalidOrganizationName    = errors.New("organization name cannot be empty")
	ErrInviteCodeGenerationFailed = errors.New("failed to generate invite code")
	ErrInvalidInviteCode          = errors.New("invalid invite code")
	ErrNestedSubgroup             = errors.New("subgroups cannot have their own subgroups")
	ErrParentNotFound             = errors.New("parent organization not found")
)

// OrganizationService provides business logic for organization lifecycle
// operations. Membership mutations are delegated to the membership engine so
// the first-member-becomes-owner rule holds on creation too.
type OrganizationService struct {
	orgRepo    repository.OrganizationRepository
	membership *MembershipService
	slugger    utils.SlugStrategy
}

// NewOrganizationService creates a new OrganizationService.
func NewOrganizationService(orgRepo repository.OrganizationRepository, membership *MembershipService, slugger utils.SlugStrategy) *OrganizationService {
	if slugger == nil {
		slugger = utils.Slugify
	}
	return &OrganizationService{
		orgRepo:    orgRepo,
		membership: membership,
		slugger:    slugger,
	}
}

// CreateOrganizationInput represents parameters to create a new organization.
type CreateOrganizationInput struct {
	Name        string
	Description string
	SiteID      *uint64
	ParentID    *uint64
	IsHidden    bool
	CreatorID   uint64
}

// CreateOrganization creates a new organization and adds the creator as its
// first member, which makes them admin and owner.
func (s *OrganizationService) CreateOrganization(ctx context.Context, input CreateOrganizationInput) (*models.Organization, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrInvalidOrganizationName
	}

	if input.ParentID != nil {
		parent, err := s.orgRepo.FindByID(ctx, *input.ParentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrParentNotFound
			}
			return nil, fmt.Errorf("failed to find parent organization: %w", err)
		}
		// Two levels only: a subgroup cannot become a parent.
		if parent.IsSubgroup() {
			return nil, ErrNestedSubgroup
		}
	}

	slug, err := s.uniqueSlug(ctx, input.Name)
	if err != nil {
		return nil, err
	}

	inviteCode, err := utils.GenerateInviteCode()
	if err != nil {
		return nil, ErrInviteCodeGenerationFailed
	}

	org := &models.Organization{
		Name:        input.Name,
		Slug:        slug,
		Description: input.Description,
		InviteCode:  inviteCode,
		IsActive:    true,
		IsHidden:    input.IsHidden,
		SiteID:      input.SiteID,
		ParentID:    input.ParentID,
	}

	if err := s.orgRepo.Create(ctx, org); err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	if _, err := s.membership.AddMember(ctx, org.ID, input.CreatorID, true); err != nil {
		// Do not leave an ownerless organization behind.
		if delErr := s.orgRepo.Delete(ctx, org.ID); delErr != nil {
			return nil, fmt.Errorf("failed to add creator (%v) and to roll back organization: %w", err, delErr)
		}
		return nil, fmt.Errorf("failed to add creator to organization: %w", err)
	}

	return org, nil
}

func (s *OrganizationService) uniqueSlug(ctx context.Context, name string) (string, error) {
	slug := s.slugger(name)
	if slug == "" {
		return "", ErrInvalidOrganizationName
	}

	if _, err := s.orgRepo.FindBySlug(ctx, slug); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return slug, nil
		}
		return "", fmt.Errorf("failed to check slug: %w", err)
	}

	// Slug taken: disambiguate with a random suffix.
	suffix, err := utils.GenerateInviteCode()
	if err != nil {
		return "", ErrInviteCodeGenerationFailed
	}
	return slug + "-" + suffix[:4], nil
}

// GetOrganization returns an organization by ID.
func (s *OrganizationService) GetOrganization(ctx context.Context, orgID uint64) (*models.Organization, error) {
	org, err := s.orgRepo.FindByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to find organization: %w", err)
	}
	return org, nil
}

// GetOrganizationWithMembers returns an organization and its members. For a
// site-bound organization, only members registered to the same site are
// listed.
func (s *OrganizationService) GetOrganizationWithMembers(ctx context.Context, orgID uint64) (*models.Organization, []models.OrganizationMember, error) {
	org, err := s.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, nil, err
	}

	members, err := s.membership.Members(ctx, org, MembersOptions{
		IncludeAdmins: true,
		IncludeUsers:  true,
		SameSiteOnly:  true,
	})
	if err != nil {
		return nil, nil, err
	}

	return org, members, nil
}

// UpdateOrganizationInput holds the updatable organization fields; nil means
// leave unchanged.
type UpdateOrganizationInput struct {
	Name        *string
	Description *string
	IsHidden    *bool
}

// UpdateOrganization updates an organization's editable fields.
func (s *OrganizationService) UpdateOrganization(ctx context.Context, orgID uint64, input UpdateOrganizationInput) (*models.Organization, error) {
	org, err := s.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, ErrInvalidOrganizationName
		}
		org.Name = *input.Name
	}
	if input.Description != nil {
		org.Description = *input.Description
	}
	if input.IsHidden != nil {
		org.IsHidden = *input.IsHidden
	}

	if err := s.orgRepo.Update(ctx, org); err != nil {
		return nil, fmt.Errorf("failed to update organization: %w", err)
	}

	return org, nil
}

// DeactivateOrganization soft-deletes an organization by clearing is_active.
func (s *OrganizationService) DeactivateOrganization(ctx context.Context, orgID uint64) (*models.Organization, error) {
	org, err := s.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}

	org.IsActive = false
	if err := s.orgRepo.Update(ctx, org); err != nil {
		return nil, fmt.Errorf("failed to deactivate organization: %w", err)
	}

	return org, nil
}

// DeleteOrganization removes an organization and everything it owns.
func (s *OrganizationService) DeleteOrganization(ctx context.Context, orgID uint64) error {
	return s.membership.DeleteOrganization(ctx, orgID)
}

// JoinOrganizationByInvite adds a user to an organization via invite code.
func (s *OrganizationService) JoinOrganizationByInvite(ctx context.Context, userID uint64, inviteCode string) (*models.Organization, error) {
	org, err := s.orgRepo.FindByInviteCode(ctx, inviteCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidInviteCode
		}
		return nil, fmt.Errorf("failed to find organization by invite code: %w", err)
	}

	_, created, err := s.membership.GetOrAddMember(ctx, org.ID, userID, false)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, ErrDuplicateMembership
	}

	return org, nil
}

// RegenerateInviteCode generates a new invite code for the organization.
func (s *OrganizationService) RegenerateInviteCode(ctx context.Context, orgID uint64) (*models.Organization, error) {
	org, err := s.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}

	code, err := utils.GenerateInviteCode()
	if err != nil {
		return nil, ErrInviteCodeGenerationFailed
	}

	org.InviteCode = code
	if err := s.orgRepo.Update(ctx, org); err != nil {
		return nil, fmt.Errorf("failed to update invite code: %w", err)
	}

	return org, nil
}

// TransferOwnership moves the owner record to another member of the
// organization.
func (s *OrganizationService) TransferOwnership(ctx context.Context, orgID, newOwnerUserID uint64) error {
	member, err := s.orgRepo.FindMember(ctx, orgID, newOwnerUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("failed to find organization member: %w", err)
	}

	return s.membership.ChangeOwner(ctx, orgID, member)
}
