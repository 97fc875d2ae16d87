package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/minawano/group-management-api/internal/authority"
	"github.com/minawano/group-management-api/internal/models"
	"github.com/minawano/group-management-api/internal/repository"
	"gorm.io/gorm"
)

// Denial reasons shown to the user.
const (
	ReasonMembershipRequired = "you must be a member of this group to view this page"
	ReasonHiddenGroup        = "you must be a member of this group to view it"
	ReasonAdminRequired      = "you must be a group administrator to view this page"
	ReasonOwnerRequired      = "you must be the group owner to view this page"
)

// Decision is the outcome of a capability check. A denial carries a
// user-facing reason; it is a value, not an error.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// PolicyService decides, per request, whether a user holds a capability on
// an organization. The capability levels form a partial order
// (member < admin < owner) with platform staff parallel to admin. It never
// mutates state; the absence of a membership is a denial, not an error.
type PolicyService struct {
	orgRepo    repository.OrganizationRepository
	auth       authority.Provider
	membership *MembershipService
}

// NewPolicyService creates a new PolicyService.
func NewPolicyService(orgRepo repository.OrganizationRepository, auth authority.Provider, membership *MembershipService) *PolicyService {
	return &PolicyService{
		orgRepo:    orgRepo,
		auth:       auth,
		membership: membership,
	}
}

// RequireMember allows superusers and group admins outright. For everyone
// else, hidden groups deny access and ordinary groups require a membership.
func (p *PolicyService) RequireMember(ctx context.Context, org *models.Organization, user *models.User) (Decision, error) {
	isAdmin, err := p.membership.IsAdmin(ctx, org, user)
	if err != nil {
		return Decision{}, err
	}
	if isAdmin {
		return allow(), nil
	}

	if org.IsHidden {
		return deny(ReasonHiddenGroup), nil
	}

	hasMember, err := p.membership.HasMember(ctx, org.ID, user.ID)
	if err != nil {
		return Decision{}, err
	}
	if !hasMember {
		return deny(ReasonMembershipRequired), nil
	}
	return allow(), nil
}

// RequireAdmin allows group admins, site supervisors of the group's site and
// superusers.
func (p *PolicyService) RequireAdmin(ctx context.Context, org *models.Organization, user *models.User) (Decision, error) {
	isAdmin, err := p.membership.IsAdmin(ctx, org, user)
	if err != nil {
		return Decision{}, err
	}
	if isAdmin {
		return allow(), nil
	}
	return deny(ReasonAdminRequired), nil
}

// RequireStaff allows group admins and platform staff.
func (p *PolicyService) RequireStaff(ctx context.Context, org *models.Organization, user *models.User) (Decision, error) {
	isAdmin, err := p.membership.IsAdmin(ctx, org, user)
	if err != nil {
		return Decision{}, err
	}
	if isAdmin || p.auth.IsStaff(ctx, user) {
		return allow(), nil
	}
	return deny(ReasonAdminRequired), nil
}

// RequireOwner allows the user the owner record points at, and superusers.
// A group without an owner record denies everyone else.
func (p *PolicyService) RequireOwner(ctx context.Context, org *models.Organization, user *models.User) (Decision, error) {
	if p.auth.IsSuperuser(ctx, user) {
		return allow(), nil
	}

	owner, err := p.orgRepo.FindOwner(ctx, org.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return deny(ReasonOwnerRequired), nil
		}
		return Decision{}, fmt.Errorf("failed to find owner record: %w", err)
	}

	if owner.UserID == user.ID {
		return allow(), nil
	}
	return deny(ReasonOwnerRequired), nil
}
