package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/minawano/group-management-api/internal/authority"
	"github.com/minawano/group-management-api/internal/events"
	"github.com/minawano/group-management-api/internal/models"
	"github.com/minawano/group-management-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrSiteMismatch         = errors.New("users registered to a different brand cannot join this group")
	ErrOwnershipRequired    = errors.New("cannot delete organization owner before deleting the organization or transferring ownership")
	ErrOrganizationMismatch = errors.New("the new owner must be a member of the same organization")
	ErrDuplicateMembership  = errors.New("user is already a member of this organization")
	ErrMemberNotFound       = errors.New("organization member not found")
	ErrOwnerNotFound        = errors.New("organization has no owner")
	ErrNotParentGroup       = errors.New("cannot add user: organization is itself a subgroup")
	ErrNotSubgroup          = errors.New("cannot add user: organization has no parent")
	ErrNoMemberKind         = errors.New("member listing must include admins or regular users")
)

// MembershipConfig carries the construction-time knobs of the engine.
type MembershipConfig struct {
	// SiteScoping enables the brand boundary check on every add.
	SiteScoping bool
	// Now supplies timestamps; defaults to time.Now.
	Now func() time.Time
}

// MembershipService is the invariant-preserving core for organization
// membership. Every mutation either fully commits or has no effect, and the
// first-member sequence (count, insert membership, insert owner) is
// serialized per organization so two concurrent first adds cannot both seed
// ownership.
type MembershipService struct {
	orgRepo  repository.OrganizationRepository
	userRepo repository.UserRepository
	auth     authority.Provider
	sink     events.Sink
	logger   *zap.Logger

	siteScoping bool
	now         func() time.Time

	// one mutex per organization, keyed by ID
	orgLocks sync.Map
}

// NewMembershipService creates a new MembershipService.
func NewMembershipService(
	orgRepo repository.OrganizationRepository,
	userRepo repository.UserRepository,
	auth authority.Provider,
	sink events.Sink,
	logger *zap.Logger,
	cfg MembershipConfig,
) *MembershipService {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if sink == nil {
		sink = events.NopSink{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MembershipService{
		orgRepo:     orgRepo,
		userRepo:    userRepo,
		auth:        auth,
		sink:        sink,
		logger:      logger,
		siteScoping: cfg.SiteScoping,
		now:         cfg.Now,
	}
}

func (s *MembershipService) lockOrganization(id uint64) func() {
	v, _ := s.orgLocks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *MembershipService) findOrganization(ctx context.Context, orgID uint64) (*models.Organization, error) {
	org, err := s.orgRepo.FindByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to find organization: %w", err)
	}
	return org, nil
}

// checkSiteBoundary enforces that site-bound organizations only admit users
// registered to the same site. Superusers pass regardless.
func (s *MembershipService) checkSiteBoundary(ctx context.Context, org *models.Organization, user *models.User) error {
	if !s.siteScoping || org.SiteID == nil {
		return nil
	}
	if s.auth.IsSuperuser(ctx, user) {
		return nil
	}
	if user.SiteID == nil || *user.SiteID != *org.SiteID {
		return ErrSiteMismatch
	}
	return nil
}

// AddMember adds a user to an organization. The first member is always made
// an admin, regardless of the hint, and seeds the organization's owner
// record; this is the only path that creates owner records.
func (s *MembershipService) AddMember(ctx context.Context, orgID, userID uint64, isAdmin bool) (*models.OrganizationMember, error) {
	org, err := s.findOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := s.checkSiteBoundary(ctx, org, user); err != nil {
		return nil, err
	}

	member, _, err := s.insertMember(ctx, org, userID, isAdmin, false)
	if err != nil {
		return nil, err
	}

	s.emitMemberAdded(ctx, org, userID)
	return member, nil
}

// GetOrAddMember behaves like AddMember but returns the existing membership
// unchanged when one already exists. The boolean reports whether a
// membership was created by this call.
func (s *MembershipService) GetOrAddMember(ctx context.Context, orgID, userID uint64, isAdmin bool) (*models.OrganizationMember, bool, error) {
	org, err := s.findOrganization(ctx, orgID)
	if err != nil {
		return nil, false, err
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrUserNotFound
		}
		return nil, false, fmt.Errorf("failed to find user: %w", err)
	}

	if existing, err := s.orgRepo.FindMember(ctx, orgID, userID); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("failed to check membership: %w", err)
	}

	if err := s.checkSiteBoundary(ctx, org, user); err != nil {
		return nil, false, err
	}

	member, created, err := s.insertMember(ctx, org, userID, isAdmin, true)
	if err != nil {
		return nil, false, err
	}

	if created {
		s.emitMemberAdded(ctx, org, userID)
	}
	return member, created, nil
}

// insertMember runs the count-then-insert sequence inside a single
// transaction, serialized per organization. With getOrCreate set, an
// existing membership is returned instead of ErrDuplicateMembership.
func (s *MembershipService) insertMember(ctx context.Context, org *models.Organization, userID uint64, isAdmin, getOrCreate bool) (*models.OrganizationMember, bool, error) {
	unlock := s.lockOrganization(org.ID)
	defer unlock()

	var member *models.OrganizationMember
	created := false

	err := s.orgRepo.Transaction(ctx, func(tx repository.OrganizationRepository) error {
		if _, err := tx.FindByIDForUpdate(ctx, org.ID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrganizationNotFound
			}
			return fmt.Errorf("failed to lock organization: %w", err)
		}

		if existing, err := tx.FindMember(ctx, org.ID, userID); err == nil {
			if getOrCreate {
				member = existing
				return nil
			}
			return ErrDuplicateMembership
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check membership: %w", err)
		}

		count, err := tx.CountMembers(ctx, org.ID)
		if err != nil {
			return fmt.Errorf("failed to count members: %w", err)
		}

		// The first member is always an admin and becomes the owner.
		if count == 0 {
			isAdmin = true
		}

		member = &models.OrganizationMember{
			OrganizationID: org.ID,
			UserID:         userID,
			IsAdmin:        isAdmin,
			CreatedAt:      s.now(),
		}
		if err := tx.CreateMember(ctx, member); err != nil {
			return fmt.Errorf("failed to create membership: %w", err)
		}

		if count == 0 {
			owner := &models.OrganizationOwner{
				OrganizationID: org.ID,
				UserID:         userID,
			}
			if err := tx.CreateOwner(ctx, owner); err != nil {
				return fmt.Errorf("failed to create owner record: %w", err)
			}
		}

		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return member, created, nil
}

// RemoveMember deletes a user's membership. Removing a user who is not a
// member is a no-op. Removing the current owner fails with
// ErrOwnershipRequired and leaves both rows untouched.
func (s *MembershipService) RemoveMember(ctx context.Context, orgID, userID uint64) error {
	org, err := s.findOrganization(ctx, orgID)
	if err != nil {
		return err
	}

	if _, err := s.orgRepo.FindMember(ctx, orgID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("failed to find organization member: %w", err)
	}

	owner, err := s.orgRepo.FindOwner(ctx, orgID)
	if err == nil && owner.UserID == userID {
		return ErrOwnershipRequired
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to find owner record: %w", err)
	}

	if err := s.orgRepo.DeleteMember(ctx, orgID, userID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	s.emitMemberRemoved(ctx, org, userID)
	return nil
}

// RemoveMemberCascade removes a user from an organization and from each of
// its subgroups. Subgroup removals are best effort: a failure there is
// logged and the remaining subgroups are still attempted. A failure on the
// primary organization propagates.
func (s *MembershipService) RemoveMemberCascade(ctx context.Context, orgID, userID uint64) error {
	if err := s.RemoveMember(ctx, orgID, userID); err != nil {
		return err
	}

	subgroups, err := s.orgRepo.ListSubgroups(ctx, orgID)
	if err != nil {
		return fmt.Errorf("failed to list subgroups: %w", err)
	}

	for _, sub := range subgroups {
		if err := s.RemoveMember(ctx, sub.ID, userID); err != nil {
			s.logger.Warn("failed to remove member from subgroup",
				zap.Uint64("organization_id", sub.ID),
				zap.Uint64("user_id", userID),
				zap.Error(err),
			)
		}
	}

	return nil
}

// AddMemberToUniqueParentGroup adds the user to a parent-level group after
// removing them from every other parent-level group on the same site.
func (s *MembershipService) AddMemberToUniqueParentGroup(ctx context.Context, orgID, userID uint64, isAdmin bool) (*models.OrganizationMember, error) {
	org, err := s.findOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org.IsSubgroup() {
		return nil, ErrNotParentGroup
	}

	others, err := s.orgRepo.ListForSite(ctx, org.SiteID, true, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list parent groups: %w", err)
	}
	for _, o := range others {
		if o.ID == org.ID {
			continue
		}
		if err := s.RemoveMemberCascade(ctx, o.ID, userID); err != nil {
			s.logger.Warn("failed to leave previous parent group",
				zap.Uint64("organization_id", o.ID),
				zap.Uint64("user_id", userID),
				zap.Error(err),
			)
		}
	}

	return s.AddMember(ctx, orgID, userID, isAdmin)
}

// AddMemberToUniqueSubgroup adds the user to a subgroup after removing them
// from the subgroup's siblings.
func (s *MembershipService) AddMemberToUniqueSubgroup(ctx context.Context, orgID, userID uint64, isAdmin bool) (*models.OrganizationMember, error) {
	org, err := s.findOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if !org.IsSubgroup() {
		return nil, ErrNotSubgroup
	}

	siblings, err := s.orgRepo.ListSubgroups(ctx, *org.ParentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sibling subgroups: %w", err)
	}
	for _, o := range siblings {
		if o.ID == org.ID {
			continue
		}
		if err := s.RemoveMember(ctx, o.ID, userID); err != nil {
			s.logger.Warn("failed to leave sibling subgroup",
				zap.Uint64("organization_id", o.ID),
				zap.Uint64("user_id", userID),
				zap.Error(err),
			)
		}
	}

	return s.AddMember(ctx, orgID, userID, isAdmin)
}

// ChangeOwner transfers ownership to another membership of the same
// organization. Admin flags of the old and new owner are left untouched.
func (s *MembershipService) ChangeOwner(ctx context.Context, orgID uint64, newOwner *models.OrganizationMember) error {
	if newOwner == nil || newOwner.OrganizationID != orgID {
		return ErrOrganizationMismatch
	}

	org, err := s.findOrganization(ctx, orgID)
	if err != nil {
		return err
	}

	if _, err := s.orgRepo.FindMember(ctx, orgID, newOwner.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("failed to find organization member: %w", err)
	}

	owner, err := s.orgRepo.FindOwner(ctx, orgID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOwnerNotFound
		}
		return fmt.Errorf("failed to find owner record: %w", err)
	}

	oldUserID := owner.UserID
	owner.UserID = newOwner.UserID
	if err := s.orgRepo.SaveOwner(ctx, owner); err != nil {
		return fmt.Errorf("failed to save owner record: %w", err)
	}

	s.emitOwnerChanged(ctx, org, oldUserID, newOwner.UserID)
	return nil
}

// DeleteOrganization removes the organization, its memberships and its owner
// record in one transaction. The owner deletion guard does not apply here.
func (s *MembershipService) DeleteOrganization(ctx context.Context, orgID uint64) error {
	if _, err := s.findOrganization(ctx, orgID); err != nil {
		return err
	}

	if err := s.orgRepo.Delete(ctx, orgID); err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}

	return nil
}

// IsAdmin reports whether the user administers the organization: a direct
// admin membership, a superuser, or a supervisor of the organization's site.
// Recomputed on every call.
func (s *MembershipService) IsAdmin(ctx context.Context, org *models.Organization, user *models.User) (bool, error) {
	if s.auth.IsSuperuser(ctx, user) {
		return true, nil
	}

	member, err := s.orgRepo.FindMember(ctx, org.ID, user.ID)
	if err == nil && member.IsAdmin {
		return true, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("failed to find organization member: %w", err)
	}

	if s.auth.IsSiteSupervisor(ctx, user, org.SiteID) {
		return true, nil
	}

	return false, nil
}

// MembershipsOf lists every membership a user holds, with organizations
// preloaded.
func (s *MembershipService) MembershipsOf(ctx context.Context, userID uint64) ([]models.OrganizationMember, error) {
	memberships, err := s.orgRepo.ListMembershipsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	return memberships, nil
}

// Owner returns the organization's owner record.
func (s *MembershipService) Owner(ctx context.Context, orgID uint64) (*models.OrganizationOwner, error) {
	owner, err := s.orgRepo.FindOwner(ctx, orgID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOwnerNotFound
		}
		return nil, fmt.Errorf("failed to find owner record: %w", err)
	}
	return owner, nil
}

// HasMember reports whether the user holds a membership in the organization.
func (s *MembershipService) HasMember(ctx context.Context, orgID, userID uint64) (bool, error) {
	if _, err := s.orgRepo.FindMember(ctx, orgID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to find organization member: %w", err)
	}
	return true, nil
}

// MembersOptions controls which memberships Members returns.
type MembersOptions struct {
	IncludeAdmins     bool
	IncludeUsers      bool
	SameSiteOnly      bool
	IncludeParents    bool
	IncludeSuperusers bool
}

// Members lists an organization's memberships, optionally restricted to
// admins or regular members, to users on the organization's own site, and
// optionally widened to the parent organization.
func (s *MembershipService) Members(ctx context.Context, org *models.Organization, opts MembersOptions) ([]models.OrganizationMember, error) {
	if !opts.IncludeAdmins && !opts.IncludeUsers {
		return nil, ErrNoMemberKind
	}

	orgIDs := []uint64{org.ID}
	if opts.IncludeParents && org.ParentID != nil {
		orgIDs = append(orgIDs, *org.ParentID)
	}

	filter := repository.MemberFilter{
		OrganizationIDs: orgIDs,
		IncludeAdmins:   opts.IncludeAdmins,
		IncludeUsers:    opts.IncludeUsers,
		IncludeSupers:   opts.IncludeSuperusers,
	}
	if opts.SameSiteOnly && org.SiteID != nil {
		filter.SameSiteID = org.SiteID
	}

	members, err := s.orgRepo.ListMembers(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list organization members: %w", err)
	}
	return members, nil
}

// Event emission is best effort: sink failures are logged, never propagated.

func (s *MembershipService) emitMemberAdded(ctx context.Context, org *models.Organization, userID uint64) {
	if err := s.sink.MemberAdded(ctx, org, userID); err != nil {
		s.logger.Warn("member added event sink failed",
			zap.Uint64("organization_id", org.ID),
			zap.Uint64("user_id", userID),
			zap.Error(err),
		)
	}
}

func (s *MembershipService) emitMemberRemoved(ctx context.Context, org *models.Organization, userID uint64) {
	if err := s.sink.MemberRemoved(ctx, org, userID); err != nil {
		s.logger.Warn("member removed event sink failed",
			zap.Uint64("organization_id", org.ID),
			zap.Uint64("user_id", userID),
			zap.Error(err),
		)
	}
}

func (s *MembershipService) emitOwnerChanged(ctx context.Context, org *models.Organization, oldUserID, newUserID uint64) {
	if err := s.sink.OwnerChanged(ctx, org, oldUserID, newUserID); err != nil {
		s.logger.Warn("owner changed event sink failed",
			zap.Uint64("organization_id", org.ID),
			zap.Uint64("old_user_id", oldUserID),
			zap.Uint64("new_user_id", newUserID),
			zap.Error(err),
		)
	}
}
