package repository

import (
	"context"

	"github.com/minawano/group-management-api/internal/database"
	"github.com/minawano/group-management-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrganizationRepository is a GORM implementation of OrganizationRepository
type GormOrganizationRepository struct {
	db *gorm.DB
}

// NewOrganizationRepository creates a new OrganizationRepository
func NewOrganizationRepository(db *gorm.DB) OrganizationRepository {
	return &GormOrganizationRepository{db: db}
}

// Transaction runs fn with a repository bound to a single transaction.
func (r *GormOrganizationRepository) Transaction(ctx context.Context, fn func(tx OrganizationRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormOrganizationRepository{db: tx})
	})
}

// Create creates a new organization
func (r *GormOrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	return r.db.WithContext(ctx).Create(org).Error
}

// FindByID finds an organization by ID
func (r *GormOrganizationRepository) FindByID(ctx context.Context, id uint64) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.WithContext(ctx).First(&org, id).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

// FindByIDForUpdate locks the organization row until the surrounding
// transaction ends. SQLite has no SELECT ... FOR UPDATE; its single writer
// already serializes, so the clause is only added for server databases.
func (r *GormOrganizationRepository) FindByIDForUpdate(ctx context.Context, id uint64) (*models.Organization, error) {
	tx := r.db.WithContext(ctx)
	switch r.db.Dialector.Name() {
	case "postgres", "mysql":
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var org models.Organization
	if err := tx.First(&org, id).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

// FindBySlug finds an organization by slug
func (r *GormOrganizationRepository) FindBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&org).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

// FindByInviteCode finds an organization by invite code
func (r *GormOrganizationRepository) FindByInviteCode(ctx context.Context, code string) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.WithContext(ctx).Where("invite_code = ?", code).First(&org).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

// Update updates an organization
func (r *GormOrganizationRepository) Update(ctx context.Context, org *models.Organization) error {
	return r.db.WithContext(ctx).Save(org).Error
}

// Delete deletes an organization and all related data in a transaction
func (r *GormOrganizationRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Memberships first, then the owner record, then the organization
		if err := tx.Where("organization_id = ?", id).Delete(&models.OrganizationMember{}).Error; err != nil {
			return err
		}

		if err := tx.Where("organization_id = ?", id).Delete(&models.OrganizationOwner{}).Error; err != nil {
			return err
		}

		// Detach subgroups rather than deleting them
		if err := tx.Model(&models.Organization{}).
			Where("parent_id = ?", id).
			Update("parent_id", nil).Error; err != nil {
			return err
		}

		if err := tx.Delete(&models.Organization{}, id).Error; err != nil {
			return err
		}

		return nil
	})
}

// CountMembers counts the memberships of an organization
func (r *GormOrganizationRepository) CountMembers(ctx context.Context, organizationID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.OrganizationMember{}).
		Where("organization_id = ?", organizationID).
		Count(&count).Error
	return count, err
}

// CreateMember inserts a membership
func (r *GormOrganizationRepository) CreateMember(ctx context.Context, member *models.OrganizationMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

// DeleteMember removes a membership
func (r *GormOrganizationRepository) DeleteMember(ctx context.Context, organizationID, userID uint64) error {
	return r.db.WithContext(ctx).
		Where("organization_id = ? AND user_id = ?", organizationID, userID).
		Delete(&models.OrganizationMember{}).Error
}

// FindMember finds a specific organization member
func (r *GormOrganizationRepository) FindMember(ctx context.Context, organizationID, userID uint64) (*models.OrganizationMember, error) {
	var member models.OrganizationMember
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND user_id = ?", organizationID, userID).
		First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// ListMembers lists members matching the filter
func (r *GormOrganizationRepository) ListMembers(ctx context.Context, filter MemberFilter) ([]models.OrganizationMember, error) {
	tx := r.db.WithContext(ctx).Model(&models.OrganizationMember{}).
		Joins("JOIN users ON users.id = organization_members.user_id").
		Where("users.is_active = ?", true).
		Where("organization_members.organization_id IN ?", filter.OrganizationIDs)

	if filter.IncludeAdmins && !filter.IncludeUsers {
		tx = tx.Where("organization_members.is_admin = ?", true)
	} else if !filter.IncludeAdmins && filter.IncludeUsers {
		tx = tx.Where("organization_members.is_admin = ?", false)
	}

	if filter.SameSiteID != nil {
		tx = tx.Where("users.site_id = ?", *filter.SameSiteID)
	}

	if !filter.IncludeSupers {
		tx = tx.Where("users.is_superuser = ?", false)
	}

	var members []models.OrganizationMember
	if err := tx.Preload("User").Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// ListMembershipsByUser lists all memberships a user holds
func (r *GormOrganizationRepository) ListMembershipsByUser(ctx context.Context, userID uint64) ([]models.OrganizationMember, error) {
	var memberships []models.OrganizationMember
	if err := r.db.WithContext(ctx).Preload("Organization").
		Where("user_id = ?", userID).
		Find(&memberships).Error; err != nil {
		return nil, err
	}
	return memberships, nil
}

// FindOwner returns the owner record for an organization
func (r *GormOrganizationRepository) FindOwner(ctx context.Context, organizationID uint64) (*models.OrganizationOwner, error) {
	var owner models.OrganizationOwner
	if err := r.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		First(&owner).Error; err != nil {
		return nil, err
	}
	return &owner, nil
}

// CreateOwner inserts the owner record for an organization
func (r *GormOrganizationRepository) CreateOwner(ctx context.Context, owner *models.OrganizationOwner) error {
	return r.db.WithContext(ctx).Create(owner).Error
}

// SaveOwner persists changes to an existing owner record
func (r *GormOrganizationRepository) SaveOwner(ctx context.Context, owner *models.OrganizationOwner) error {
	return r.db.WithContext(ctx).Save(owner).Error
}

// ListVisible lists organizations visible to a user per the capability rules.
func (r *GormOrganizationRepository) ListVisible(ctx context.Context, q VisibilityQuery) ([]models.Organization, int64, error) {
	tx := r.db.WithContext(ctx).Model(&models.Organization{})

	if !q.IncludeInactive {
		tx = tx.Where("organizations.is_active = ?", true)
	}
	if q.VisibleOnly {
		tx = tx.Where("organizations.is_hidden = ?", false)
	}

	switch {
	case q.IsSuperuser:
		tx = siteOrGlobal(tx, q.SiteID)
	case q.IsSupervisor && q.SiteID != nil:
		tx = tx.Where("organizations.site_id = ?", *q.SiteID)
	default:
		tx = siteOrGlobal(tx, q.SiteID).
			Joins("JOIN organization_members ON organization_members.organization_id = organizations.id AND organization_members.user_id = ?", q.UserID)
		if q.AdminOnly {
			tx = tx.Where("organization_members.is_admin = ?", true)
		} else {
			// Hidden groups only for their admins
			tx = tx.Where("organization_members.is_admin = ? OR organizations.is_hidden = ?", true, false)
		}
	}

	if q.ParentsOnly {
		tx = tx.Where("organizations.parent_id IS NULL")
	}
	if q.SubgroupsOnly {
		tx = tx.Where("organizations.parent_id IS NOT NULL")
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if q.Pagination != nil {
		tx = tx.Scopes(database.Paginate(*q.Pagination))
	}

	var orgs []models.Organization
	if err := tx.Find(&orgs).Error; err != nil {
		return nil, 0, err
	}
	return orgs, total, nil
}

func siteOrGlobal(tx *gorm.DB, siteID *uint64) *gorm.DB {
	if siteID == nil {
		return tx.Where("organizations.site_id IS NULL")
	}
	return tx.Where("organizations.site_id IS NULL OR organizations.site_id = ?", *siteID)
}

// ListForSite lists active, non-hidden organizations bound to a site
func (r *GormOrganizationRepository) ListForSite(ctx context.Context, siteID *uint64, parentsOnly, subgroupsOnly bool) ([]models.Organization, error) {
	tx := r.db.WithContext(ctx).Model(&models.Organization{}).
		Where("is_active = ? AND is_hidden = ?", true, false)

	if siteID == nil {
		tx = tx.Where("site_id IS NULL")
	} else {
		tx = tx.Where("site_id = ?", *siteID)
	}

	if parentsOnly {
		tx = tx.Where("parent_id IS NULL")
	}
	if subgroupsOnly {
		tx = tx.Where("parent_id IS NOT NULL")
	}

	var orgs []models.Organization
	if err := tx.Find(&orgs).Error; err != nil {
		return nil, err
	}
	return orgs, nil
}

// ListSubgroups lists organizations whose parent is the given organization
func (r *GormOrganizationRepository) ListSubgroups(ctx context.Context, parentID uint64) ([]models.Organization, error) {
	var orgs []models.Organization
	if err := r.db.WithContext(ctx).
		Where("parent_id = ?", parentID).
		Order("name").
		Find(&orgs).Error; err != nil {
		return nil, err
	}
	return orgs, nil
}
