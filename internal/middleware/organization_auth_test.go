package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/minawano/group-management-api/internal/authority"
	"github.com/minawano/group-management-api/internal/constants"
	"github.com/minawano/group-management-api/internal/models"
	"github.com/minawano/group-management-api/internal/repository"
	"github.com/minawano/group-management-api/internal/services"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type middlewareTestEnv struct {
	db          *gorm.DB
	orgService  *services.OrganizationService
	authService *services.AuthService
	policy      *services.PolicyService
	membership  *services.MembershipService
}

func setupMiddlewareTestEnv(t *testing.T) middlewareTestEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
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

	membership := services.NewMembershipService(orgRepo, userRepo, auth, nil, nil, services.MembershipConfig{})
	orgService := services.NewOrganizationService(orgRepo, membership, nil)
	authService := services.NewAuthService(userRepo, repository.NewSiteRepository(db))
	policy := services.NewPolicyService(orgRepo, auth, membership)

	return middlewareTestEnv{
		db:          db,
		orgService:  orgService,
		authService: authService,
		policy:      policy,
		membership:  membership,
	}
}

// middlewareTestRouter wires the capability chain behind a stub auth layer
// that injects the acting user ID.
func middlewareTestRouter(env middlewareTestEnv, userID uint64, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(constants.ContextKeyUserID, userID)
	})

	chain := []gin.HandlerFunc{RequireOrganizationAccess(env.orgService, env.authService, env.policy)}
	chain = append(chain, extra...)
	chain = append(chain, func(c *gin.Context) {
		org, _ := GetOrganization(c)
		c.JSON(http.StatusOK, gin.H{"organization_id": org.ID})
	})

	r.GET("/orgs/:id", chain...)
	return r
}

func middlewareTestUser(t *testing.T, db *gorm.DB, username string, mutate func(*models.User)) *models.User {
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

func getOrg(t *testing.T, r *gin.Engine, orgID uint64) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/orgs/"+strconv.FormatUint(orgID, 10), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireOrganizationAccess(t *testing.T) {
	env := setupMiddlewareTestEnv(t)
	ctx := context.Background()

	founder := middlewareTestUser(t, env.db, "founder", nil)
	outsider := middlewareTestUser(t, env.db, "outsider", nil)

	org, err := env.orgService.CreateOrganization(ctx, services.CreateOrganizationInput{
		Name:      "Guild",
		CreatorID: founder.ID,
	})
	require.NoError(t, err)

	w := getOrg(t, middlewareTestRouter(env, founder.ID), org.ID)
	require.Equal(t, http.StatusOK, w.Code)

	w = getOrg(t, middlewareTestRouter(env, outsider.ID), org.ID)
	require.Equal(t, http.StatusForbidden, w.Code)

	var response struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, services.ReasonMembershipRequired, response.Message)

	w = getOrg(t, middlewareTestRouter(env, founder.ID), 424242)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRequireOrganizationAccess_HiddenGroup(t *testing.T) {
	env := setupMiddlewareTestEnv(t)
	ctx := context.Background()

	founder := middlewareTestUser(t, env.db, "founder", nil)
	member := middlewareTestUser(t, env.db, "member", nil)

	org, err := env.orgService.CreateOrganization(ctx, services.CreateOrganizationInput{
		Name:      "Covert",
		IsHidden:  true,
		CreatorID: founder.ID,
	})
	require.NoError(t, err)

	_, err = env.membership.AddMember(ctx, org.ID, member.ID, false)
	require.NoError(t, err)

	// The founder administers the hidden group; a plain member is denied.
	w := getOrg(t, middlewareTestRouter(env, founder.ID), org.ID)
	require.Equal(t, http.StatusOK, w.Code)

	w = getOrg(t, middlewareTestRouter(env, member.ID), org.ID)
	require.Equal(t, http.StatusForbidden, w.Code)

	var response struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, services.ReasonHiddenGroup, response.Message)
}

func TestRequireOrganizationCapabilities(t *testing.T) {
	env := setupMiddlewareTestEnv(t)
	ctx := context.Background()

	founder := middlewareTestUser(t, env.db, "founder", nil)
	member := middlewareTestUser(t, env.db, "member", nil)
	staff := middlewareTestUser(t, env.db, "staff", func(u *models.User) {
		u.IsStaff = true
	})

	org, err := env.orgService.CreateOrganization(ctx, services.CreateOrganizationInput{
		Name:      "Guild",
		CreatorID: founder.ID,
	})
	require.NoError(t, err)
	_, err = env.membership.AddMember(ctx, org.ID, member.ID, false)
	require.NoError(t, err)
	_, err = env.membership.AddMember(ctx, org.ID, staff.ID, false)
	require.NoError(t, err)

	// Admin capability: the founder passes, a plain member does not.
	w := getOrg(t, middlewareTestRouter(env, founder.ID, RequireOrganizationAdmin(env.policy)), org.ID)
	require.Equal(t, http.StatusOK, w.Code)
	w = getOrg(t, middlewareTestRouter(env, member.ID, RequireOrganizationAdmin(env.policy)), org.ID)
	require.Equal(t, http.StatusForbidden, w.Code)

	// Staff capability: platform staff pass without being group admin.
	w = getOrg(t, middlewareTestRouter(env, staff.ID, RequireOrganizationStaff(env.policy)), org.ID)
	require.Equal(t, http.StatusOK, w.Code)
	w = getOrg(t, middlewareTestRouter(env, member.ID, RequireOrganizationStaff(env.policy)), org.ID)
	require.Equal(t, http.StatusForbidden, w.Code)

	// Owner capability: only the founder holds the owner record.
	w = getOrg(t, middlewareTestRouter(env, founder.ID, RequireOrganizationOwner(env.policy)), org.ID)
	require.Equal(t, http.StatusOK, w.Code)
	w = getOrg(t, middlewareTestRouter(env, member.ID, RequireOrganizationOwner(env.policy)), org.ID)
	require.Equal(t, http.StatusForbidden, w.Code)
}
