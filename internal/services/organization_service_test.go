package services

import (
	"context"
	"testing"

	"github.com/minawano/group-management-api/internal/models"
	"github.com/stretchr/testify/require"
)

func TestOrganizationService_CreateOrganization(t *testing.T) {
	env := setupServiceTestEnv(t)
	ctx := context.Background()

	alice := seedUser(t, env.db, "alice", nil)

	org, err := env.orgService.CreateOrganization(ctx, CreateOrganizationInput{
		Name:        "Engineering Guild",
		Description: "all things engineering",
		CreatorID:   alice.ID,
	})
	require.NoError(t, err)
	require.Equal(t, "engineering-guild", org.Slug)
	require.NotEmpty(t, org.InviteCode)
	require.True(t, org.IsActive)

	// The creator is seeded as admin and owner.
	member, err := env.orgRepo.FindMember(ctx, org.ID, alice.ID)
	require.NoError(t, err)
	require.True(t, member.IsAdmin)

	owner, err := env.orgRepo.FindOwner(ctx, org.ID)
	require.NoError(t, err)
	require.Equal(t, alice.ID, owner.UserID)
}

func TestOrganizationService_CreateOrganization_EmptyName(t *testing.T) {
	env := setupServiceTestEnv(t)
	ctx := context.Background()

	alice := seedUser(t, env.db, "alice", nil)

	_, err := env.orgService.CreateOrganization(ctx, CreateOrganizationInput{
		Name:      "   ",
		CreatorID: alice.ID,
	})
	require.ErrorIs(t, err, ErrInvalidOrganizationName)
}

func TestOrganizationService_CreateOrganization_SlugCollision(t *testing.T) {
	env := setupServiceTestEnv(t)
	ctx := context.Background()

	alice := seedUser(t, env.db, "alice", nil)

	first, err := env.orgService.CreateOrganization(ctx, CreateOrganizationInput{
		Name:      "Engineering",
		CreatorID: alice.ID,
	})
	require.NoError(t, err)

	second, err := env.orgService.CreateOrganization(ctx, CreateOrganizationInput{
		Name:      "Engineering",
		CreatorID: alice.ID,
	})
	require.NoError(t, err)
	require.NotEqual(t, first.Slug, second.Slug)
	require.Contains(t, second.Slug, "engineering-")
}

func TestOrganizationService_CreateOrganization_Subgroups(t *testing.T) {
	env := setupServiceTestEnv(t)
	ctx := context.Background()

	alice := seedUser(t, env.db, "alice", nil)

	parent, err := env.orgService.CreateOrganization(ctx, CreateOrganizationInput{
		Name:      "Parent",
		CreatorID: alice.ID,
	})
	require.NoError(t, err)

	sub, err := env.orgService.CreateOrganization(ctx, CreateOrganizationInput{
		Name:      "Sub",
		ParentID:  &parent.ID,
		CreatorID: alice.ID,
	})
	require.NoError(t, err)
	require.True(t, sub.IsSubgroup())

	// The hierarchy stops at two levels.
	_, err = env.orgService.CreateOrganization(ctx, CreateOrganizationInput{
		Name:      "Sub of Sub",
		ParentID:  &sub.ID,
		CreatorID: alice.ID,
	})
	require.ErrorIs(t, err, ErrNestedSubgroup)

	missing := uint64(999999)
	_, err = env.orgService.CreateOrganization(ctx, CreateOrganizationInput{
		Name:      "Orphan",
		ParentID:  &missing,
		CreatorID: alice.ID,
	})
	require.ErrorIs(t, err, ErrParentNotFound)
}

func TestOrganizationService_CreateOrganization_RollbackOnCreatorFailure(t *testing.T) {
	env := setupServiceTestEnv(t)
	ctx := context.Background()

	site := seedSite(t, env.db, "brand-a", "a.example.com")
	other := seedSite(t, env.db, "brand-b", "b.example.com")
	alice := seedUser(t, env.db, "alice", func(u *models.User) {
		u.SiteID = &other.ID
	})

	// Creator is on a different site, so adding them fails and the
	// organization must not survive.
	_, err := env.orgService.CreateOrganization(ctx, CreateOrganizationInput{
		Name:      "Unreachable",
		SiteID:    &site.ID,
		CreatorID: alice.ID,
	})
	require.ErrorIs(t, err, ErrSiteMismatch)

	var count int64
	require.NoError(t, env.db.Model(&models.Organization{}).
		Where("name = ?", "Unreachable").
		Count(&count).Error)
	require.Zero(t, count)
}

func TestOrganizationService_UpdateOrganization(t *testing.T) {
	env := setupServiceTestEnv(t)
	ctx := context.Background()

	org := seedOrganization(t, env.db, "alpha", nil)

	newName := "Alpha Renamed"
	hidden := true
	updated, err := env.orgService.UpdateOrganization(ctx, org.ID, UpdateOrganizationInput{
		Name:     &newName,
		IsHidden: &hidden,
	})
	require.NoError(t, err)
	require.Equal(t, "Alpha Renamed", updated.Name)
	require.True(t, updated.IsHidden)
	// The slug is stable across renames.
	require.Equal(t, org.Slug, updated.Slug)

	empty := "  "
	_, err = env.orgService.UpdateOrganization(ctx, org.ID, UpdateOrganizationInput{Name: &empty})
	require.ErrorIs(t, err, ErrInvalidOrganizationName)
}

func TestOrganizationService_DeactivateOrganization(t *testing.T) {
	env := setupServiceTestEnv(t)
	ctx := context.Background()

	org := seedOrganization(t, env.db, "alpha", nil)

	updated, err := env.orgService.DeactivateOrganization(ctx, org.ID)
	require.NoError(t, err)
	require.False(t, updated.IsActive)

	// Memberships survive a deactivation.
	reloaded, err := env.orgService.GetOrganization(ctx, org.ID)
	require.NoError(t, err)
	require.False(t, reloaded.IsActive)
}

func TestOrganizationService_JoinOrganizationByInvite(t *testing.T) {
	env := setupServiceTestEnv(t)
	ctx := context.Background()

	org := seedOrganization(t, env.db, "alpha", nil)
	alice := seedUser(t, env.db, "alice", nil)

	joined, err := env.orgService.JoinOrganizationByInvite(ctx, alice.ID, org.InviteCode)
	require.NoError(t, err)
	require.Equal(t, org.ID, joined.ID)

	_, err = env.orgService.JoinOrganizationByInvite(ctx, alice.ID, org.InviteCode)
	require.ErrorIs(t, err, ErrDuplicateMembership)

	_, err = env.orgService.JoinOrganizationByInvite(ctx, alice.ID, "no-such-code")
	require.ErrorIs(t, err, ErrInvalidInviteCode)
}

func TestOrganizationService_RegenerateInviteCode(t *testing.T) {
	env := setupServiceTestEnv(t)
	ctx := context.Background()

	org := seedOrganization(t, env.db, "alpha", nil)

	updated, err := env.orgService.RegenerateInviteCode(ctx, org.ID)
	require.NoError(t, err)
	require.NotEmpty(t, updated.InviteCode)
	require.NotEqual(t, org.InviteCode, updated.InviteCode)

	// The old code no longer resolves.
	alice := seedUser(t, env.db, "alice", nil)
	_, err = env.orgService.JoinOrganizationByInvite(ctx, alice.ID, org.InviteCode)
	require.ErrorIs(t, err, ErrInvalidInviteCode)
}

func TestOrganizationService_TransferOwnership(t *testing.T) {
	env := setupServiceTestEnv(t)
	ctx := context.Background()

	org := seedOrganization(t, env.db, "alpha", nil)
	alice := seedUser(t, env.db, "alice", nil)
	bob := seedUser(t, env.db, "bob", nil)

	_, err := env.membership.AddMember(ctx, org.ID, alice.ID, false)
	require.NoError(t, err)

	// Bob is not a member yet.
	err = env.orgService.TransferOwnership(ctx, org.ID, bob.ID)
	require.ErrorIs(t, err, ErrMemberNotFound)

	_, err = env.membership.AddMember(ctx, org.ID, bob.ID, false)
	require.NoError(t, err)

	require.NoError(t, env.orgService.TransferOwnership(ctx, org.ID, bob.ID))

	owner, err := env.orgRepo.FindOwner(ctx, org.ID)
	require.NoError(t, err)
	require.Equal(t, bob.ID, owner.UserID)
}

func TestOrganizationService_GetOrganization_NotFound(t *testing.T) {
	env := setupServiceTestEnv(t)
	ctx := context.Background()

	_, err := env.orgService.GetOrganization(ctx, 424242)
	require.ErrorIs(t, err, ErrOrganizationNotFound)
}
