package authority

import (
	"context"

	"github.com/minawano/group-management-api/internal/models"
)

// Provider answers the role questions the policy evaluator and membership
// engine consult but do not define. Deployments may plug in their own source
// of truth; the default reads the flags stored on the user row.
type Provider interface {
	// IsSuperuser reports whether the user bypasses all capability checks.
	IsSuperuser(ctx context.Context, user *models.User) bool

	// IsSiteSupervisor reports whether the user supervises the given site.
	IsSiteSupervisor(ctx context.Context, user *models.User, siteID *uint64) bool

	// IsStaff reports whether the user holds the platform staff flag.
	IsStaff(ctx context.Context, user *models.User) bool
}

// ModelProvider derives authority from the user model's role flags.
type ModelProvider struct{}

// NewModelProvider creates the default Provider.
func NewModelProvider() *ModelProvider {
	return &ModelProvider{}
}

func (p *ModelProvider) IsSuperuser(_ context.Context, user *models.User) bool {
	return user != nil && user.IsSuperuser
}

// IsSiteSupervisor is true only when the user's supervisor flag is set and
// their registered site matches the site in question.
func (p *ModelProvider) IsSiteSupervisor(_ context.Context, user *models.User, siteID *uint64) bool {
	if user == nil || !user.IsSupervisor {
		return false
	}
	if user.SiteID == nil || siteID == nil {
		return user.SiteID == nil && siteID == nil
	}
	return *user.SiteID == *siteID
}

func (p *ModelProvider) IsStaff(_ context.Context, user *models.User) bool {
	return user != nil && user.IsStaff
}
