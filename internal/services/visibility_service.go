package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/minawano/group-management-api/internal/authority"
	"github.com/minawano/group-management-api/internal/models"
	"github.com/minawano/group-management-api/internal/repository"
	"github.com/minawano/group-management-api/internal/utils"
	"gorm.io/gorm"
)

// VisibilityFilter narrows the set of organizations returned by
// VisibleOrganizations.
type VisibilityFilter struct {
	AdminOnly     bool
	ParentsOnly   bool
	SubgroupsOnly bool
	// IncludeInactive lifts the default is_active filter.
	IncludeInactive bool
	// VisibleOnly additionally requires is_hidden == false for everyone,
	// admins included.
	VisibleOnly bool
	// Pagination, when set, limits the result to one page.
	Pagination *utils.PaginationParams
}

// VisibilityService answers which organizations a user can see or join and
// how groups relate in the two-level hierarchy. Read-only.
type VisibilityService struct {
	orgRepo repository.OrganizationRepository
	auth    authority.Provider
}

// NewVisibilityService creates a new VisibilityService.
func NewVisibilityService(orgRepo repository.OrganizationRepository, auth authority.Provider) *VisibilityService {
	return &VisibilityService{
		orgRepo: orgRepo,
		auth:    auth,
	}
}

// VisibleOrganizations lists the organizations the user can see on a site,
// plus the total number of matches before pagination. Superusers see every
// group that is global or on the site; site supervisors see every group on
// their site; everyone else sees groups they belong to, hidden groups only
// when they administer them.
func (s *VisibilityService) VisibleOrganizations(ctx context.Context, user *models.User, siteID *uint64, filter VisibilityFilter) ([]models.Organization, int64, error) {
	q := repository.VisibilityQuery{
		UserID:          user.ID,
		IsSuperuser:     s.auth.IsSuperuser(ctx, user),
		IsSupervisor:    s.auth.IsSiteSupervisor(ctx, user, siteID),
		SiteID:          siteID,
		AdminOnly:       filter.AdminOnly,
		ParentsOnly:     filter.ParentsOnly,
		SubgroupsOnly:   filter.SubgroupsOnly,
		IncludeInactive: filter.IncludeInactive,
		VisibleOnly:     filter.VisibleOnly,
		Pagination:      filter.Pagination,
	}

	orgs, total, err := s.orgRepo.ListVisible(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list visible organizations: %w", err)
	}
	return orgs, total, nil
}

// OrganizationsForSite lists the active, non-hidden organizations bound to a
// site, optionally restricted to parent groups or subgroups.
func (s *VisibilityService) OrganizationsForSite(ctx context.Context, siteID *uint64, parentsOnly, subgroupsOnly bool) ([]models.Organization, error) {
	orgs, err := s.orgRepo.ListForSite(ctx, siteID, parentsOnly, subgroupsOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations for site: %w", err)
	}
	return orgs, nil
}

// ParentsOf returns the organization's ancestors from nearest outward. The
// hierarchy is two levels deep, so the result holds at most one parent (plus
// the organization itself when includeSelf is set).
func (s *VisibilityService) ParentsOf(ctx context.Context, org *models.Organization, includeSelf bool) ([]models.Organization, error) {
	var parents []models.Organization
	if includeSelf {
		parents = append(parents, *org)
	}
	if org.ParentID == nil {
		return parents, nil
	}

	parent, err := s.orgRepo.FindByID(ctx, *org.ParentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return parents, nil
		}
		return nil, fmt.Errorf("failed to find parent organization: %w", err)
	}

	return append(parents, *parent), nil
}

// SubgroupsOf returns the organizations whose parent is the given one.
func (s *VisibilityService) SubgroupsOf(ctx context.Context, orgID uint64) ([]models.Organization, error) {
	subgroups, err := s.orgRepo.ListSubgroups(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subgroups: %w", err)
	}
	return subgroups, nil
}
