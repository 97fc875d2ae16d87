package repository

import (
	"context"

	"github.com/minawano/group-management-api/internal/models"
	"github.com/minawano/group-management-api/internal/utils"
)

// VisibilityQuery holds filtering options for listing the organizations a
// user can see. The conjunction of filters mirrors the capability rules:
// superusers see everything on their site or global, site supervisors see
// everything on their site, everyone else sees only groups they belong to
// (hidden groups only when they administer them).
type VisibilityQuery struct {
	UserID       uint64
	IsSuperuser  bool
	IsSupervisor bool
	SiteID       *uint64

	AdminOnly       bool
	ParentsOnly     bool
	SubgroupsOnly   bool
	IncludeInactive bool
	VisibleOnly     bool

	// Pagination, when set, limits the result to one page. The returned
	// total always counts the full match.
	Pagination *utils.PaginationParams
}

// MemberFilter holds filtering options for listing an organization's members.
type MemberFilter struct {
	OrganizationIDs []uint64
	IncludeAdmins   bool
	IncludeUsers    bool
	SameSiteID      *uint64
	IncludeSupers   bool
}

// OrganizationRepository defines the interface for organization data access
type OrganizationRepository interface {
	// Transaction runs fn inside a single transaction; the repository passed
	// to fn is bound to that transaction.
	Transaction(ctx context.Context, fn func(tx OrganizationRepository) error) error

	// Create creates a new organization
	Create(ctx context.Context, org *models.Organization) error

	// FindByID finds an organization by ID
	FindByID(ctx context.Context, id uint64) (*models.Organization, error)

	// FindByIDForUpdate finds an organization by ID and locks the row for the
	// duration of the surrounding transaction, where the dialect supports it
	FindByIDForUpdate(ctx context.Context, id uint64) (*models.Organization, error)

	// FindBySlug finds an organization by slug
	FindBySlug(ctx context.Context, slug string) (*models.Organization, error)

	// FindByInviteCode finds an organization by invite code
	FindByInviteCode(ctx context.Context, code string) (*models.Organization, error)

	// Update updates an organization
	Update(ctx context.Context, org *models.Organization) error

	// Delete deletes an organization, its memberships and its owner record
	Delete(ctx context.Context, id uint64) error

	// CountMembers counts the memberships of an organization
	CountMembers(ctx context.Context, organizationID uint64) (int64, error)

	// CreateMember inserts a membership
	CreateMember(ctx context.Context, member *models.OrganizationMember) error

	// DeleteMember removes a membership
	DeleteMember(ctx context.Context, organizationID, userID uint64) error

	// FindMember finds a specific organization member
	FindMember(ctx context.Context, organizationID, userID uint64) (*models.OrganizationMember, error)

	// ListMembers lists members matching the filter
	ListMembers(ctx context.Context, filter MemberFilter) ([]models.OrganizationMember, error)

	// ListMembershipsByUser lists all memberships a user holds
	ListMembershipsByUser(ctx context.Context, userID uint64) ([]models.OrganizationMember, error)

	// FindOwner returns the owner record for an organization
	FindOwner(ctx context.Context, organizationID uint64) (*models.OrganizationOwner, error)

	// CreateOwner inserts the owner record for an organization
	CreateOwner(ctx context.Context, owner *models.OrganizationOwner) error

	// SaveOwner persists changes to an existing owner record
	SaveOwner(ctx context.Context, owner *models.OrganizationOwner) error

	// ListVisible lists organizations visible to a user and the total number
	// of matches
	ListVisible(ctx context.Context, q VisibilityQuery) ([]models.Organization, int64, error)

	// ListForSite lists active, non-hidden organizations bound to a site
	ListForSite(ctx context.Context, siteID *uint64, parentsOnly, subgroupsOnly bool) ([]models.Organization, error)

	// ListSubgroups lists organizations whose parent is the given organization
	ListSubgroups(ctx context.Context, parentID uint64) ([]models.Organization, error)
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindByUsername finds a user by username
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// SiteRepository defines the interface for site data access
type SiteRepository interface {
	// Create creates a new site
	Create(ctx context.Context, site *models.Site) error

	// FindByID finds a site by ID
	FindByID(ctx context.Context, id uint64) (*models.Site, error)

	// FindByDomain finds a site by its domain
	FindByDomain(ctx context.Context, domain string) (*models.Site, error)
}
