package main

import (
	"log"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/minawano/group-management-api/internal/authority"
	"github.com/minawano/group-management-api/internal/config"
	"github.com/minawano/group-management-api/internal/constants"
	"github.com/minawano/group-management-api/internal/database"
	"github.com/minawano/group-management-api/internal/events"
	"github.com/minawano/group-management-api/internal/handlers"
	"github.com/minawano/group-management-api/internal/middleware"
	"github.com/minawano/group-management-api/internal/repository"
	"github.com/minawano/group-management-api/internal/services"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	gin.SetMode(cfg.GinMode)

	var logger *zap.Logger
	var err error
	if cfg.GinMode == "release" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	db := database.GetDB()

	// Repositories
	orgRepo := repository.NewOrganizationRepository(db)
	userRepo := repository.NewUserRepository(db)
	siteRepo := repository.NewSiteRepository(db)

	// Core services
	auth := authority.NewModelProvider()
	sink := events.NewLogSink(logger)
	membershipService := services.NewMembershipService(orgRepo, userRepo, auth, sink, logger, services.MembershipConfig{
		SiteScoping: cfg.SiteScoping,
	})
	visibilityService := services.NewVisibilityService(orgRepo, auth)
	policyService := services.NewPolicyService(orgRepo, auth, membershipService)
	orgService := services.NewOrganizationService(orgRepo, membershipService, nil)
	authService := services.NewAuthService(userRepo, siteRepo)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	orgHandler := handlers.NewOrganizationHandler(orgService, membershipService, visibilityService, authService)
	memberHandler := handlers.NewMemberHandler(membershipService, orgService)

	r := gin.New()
	r.Use(middleware.Logger(logger), gin.Recovery())

	// Session middleware with Redis
	redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
	store, err := redisStore.NewStore(
		10,
		"tcp",
		redisAddr,
		"",
		"",
		[]byte(cfg.SessionSecret),
	)
	if err != nil {
		log.Fatalf("Failed to create Redis store: %v", err)
	}
	isProduction := cfg.GinMode == "release"
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: 2, // Lax
	})
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Group Management API is running",
		})
	})

	orgAccess := middleware.RequireOrganizationAccess(orgService, authService, policyService)
	orgAdmin := middleware.RequireOrganizationAdmin(policyService)
	orgStaff := middleware.RequireOrganizationStaff(policyService)
	orgOwner := middleware.RequireOrganizationOwner(policyService)

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", middleware.RequireAuth(), authHandler.GetCurrentUser)
		}

		orgs := api.Group("/organizations")
		orgs.Use(middleware.RequireAuth())
		{
			orgs.POST("", orgHandler.CreateOrganization)
			orgs.GET("", orgHandler.ListOrganizations)
			orgs.GET("/mine", orgHandler.ListMyMemberships)
			orgs.POST("/join", orgHandler.JoinOrganization)

			orgs.GET("/:id", orgAccess, orgHandler.GetOrganization)
			orgs.PUT("/:id", orgAccess, orgStaff, orgHandler.UpdateOrganization)
			orgs.POST("/:id/deactivate", orgAccess, orgOwner, orgHandler.DeactivateOrganization)
			orgs.DELETE("/:id", orgAccess, orgOwner, orgHandler.DeleteOrganization)
			orgs.POST("/:id/regenerate-code", orgAccess, orgAdmin, orgHandler.RegenerateInviteCode)

			orgs.GET("/:id/members", orgAccess, memberHandler.ListMembers)
			orgs.POST("/:id/members", orgAccess, orgAdmin, memberHandler.AddMember)
			orgs.DELETE("/:id/members/:user_id", orgAccess, orgAdmin, memberHandler.RemoveMember)
			orgs.POST("/:id/owner", orgAccess, orgOwner, memberHandler.TransferOwnership)
		}
	}

	logger.Info("server listening", zap.String("port", cfg.ServerPort))
	if err := r.Run(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
