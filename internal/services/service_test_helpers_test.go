package services

import (
	"context"
	"sync"
	"testing"

	"github.com/minawano/group-management-api/internal/authority"
	"github.com/minawano/group-management-api/internal/events"
	"github.com/minawano/group-management-api/internal/models"
	"github.com/minawano/group-management-api/internal/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type serviceTestEnv struct {
	db         *gorm.DB
	orgRepo    repository.OrganizationRepository
	userRepo   repository.UserRepository
	membership *MembershipService
	visibility *VisibilityService
	policy     *PolicyService
	orgService *OrganizationService
	sink       *recordingSink
}

// recordingSink captures emitted events for assertions. Mutations happen
// under a mutex because events fire from concurrent test writers.
type recordingSink struct {
	mu      sync.Mutex
	added   []uint64
	removed []uint64
	owners  [][2]uint64
	fail    bool
}

type sinkError struct{}

func (sinkError) Error() string { return "sink unavailable" }

func (s *recordingSink) MemberAdded(_ context.Context, _ *models.Organization, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return sinkError{}
	}
	s.added = append(s.added, userID)
	return nil
}

func (s *recordingSink) MemberRemoved(_ context.Context, _ *models.Organization, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return sinkError{}
	}
	s.removed = append(s.removed, userID)
	return nil
}

func (s *recordingSink) OwnerChanged(_ context.Context, _ *models.Organization, oldID, newID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return sinkError{}
	}
	s.owners = append(s.owners, [2]uint64{oldID, newID})
	return nil
}

var _ events.Sink = (*recordingSink)(nil)

func setupServiceTestEnv(t *testing.T) serviceTestEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single connection keeps the in-memory database alive and serializes
	// concurrent test writers the way a server database's locks would.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	err = db.AutoMigrate(
		&models.Site{},
		&models.User{},
		&models.Organization{},
		&models.OrganizationMember{},
		&models.OrganizationOwner{},
	)
	require.NoError(t, err)

	orgRepo := repository.NewOrganizationRepository(db)
	userRepo := repository.NewUserRepository(db)
	auth := authority.NewModelProvider()
	sink := &recordingSink{}

	membership := NewMembershipService(orgRepo, userRepo, auth, sink, zap.NewNop(), MembershipConfig{
		SiteScoping: true,
	})
	visibility := NewVisibilityService(orgRepo, auth)
	policy := NewPolicyService(orgRepo, auth, membership)
	orgService := NewOrganizationService(orgRepo, membership, nil)

	return serviceTestEnv{
		db:         db,
		orgRepo:    orgRepo,
		userRepo:   userRepo,
		membership: membership,
		visibility: visibility,
		policy:     policy,
		orgService: orgService,
		sink:       sink,
	}
}

func seedUser(t *testing.T, db *gorm.DB, username string, mutate func(*models.User)) *models.User {
	t.Helper()
	user := &models.User{
		Username:     username,
		PasswordHash: "hashed",
		IsActive:     true,
	}
	if mutate != nil {
		mutate(user)
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedSite(t *testing.T, db *gorm.DB, name, domain string) *models.Site {
	t.Helper()
	site := &models.Site{Name: name, Domain: domain}
	require.NoError(t, db.Create(site).Error)
	return site
}

// seedMember inserts a membership row directly, bypassing the engine's
// owner seeding and site checks.
func seedMember(t *testing.T, db *gorm.DB, orgID, userID uint64, isAdmin bool) {
	t.Helper()
	require.NoError(t, db.Create(&models.OrganizationMember{
		OrganizationID: orgID,
		UserID:         userID,
		IsAdmin:        isAdmin,
	}).Error)
}

func seedOrganization(t *testing.T, db *gorm.DB, name string, mutate func(*models.Organization)) *models.Organization {
	t.Helper()
	org := &models.Organization{
		Name:       name,
		Slug:       name + "-slug",
		InviteCode: name + "-code",
		IsActive:   true,
	}
	if mutate != nil {
		mutate(org)
	}
	require.NoError(t, db.Create(org).Error)
	return org
}
