package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/minawano/group-management-api/internal/dto"
	apierrors "github.com/minawano/group-management-api/internal/errors"
	"github.com/minawano/group-management-api/internal/middleware"
	"github.com/minawano/group-management-api/internal/services"
	"github.com/minawano/group-management-api/internal/utils"
)

// OrganizationHandler coordinates organization-level HTTP handlers.
type OrganizationHandler struct {
	orgService *services.OrganizationService
	membership *services.MembershipService
	visibility *services.VisibilityService
	authService *services.AuthService
}

// NewOrganizationHandler creates a new OrganizationHandler.
func NewOrganizationHandler(
	orgService *services.OrganizationService,
	membership *services.MembershipService,
	visibility *services.VisibilityService,
	authService *services.AuthService,
) *OrganizationHandler {
	return &OrganizationHandler{
		orgService:  orgService,
		membership:  membership,
		visibility:  visibility,
		authService: authService,
	}
}

// CreateOrganization creates a new organization with the caller as its
// first member (and therefore admin and owner).
func (h *OrganizationHandler) CreateOrganization(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type CreateOrgRequest struct {
		Name        string  `json:"name" binding:"required"`
		Description string  `json:"description"`
		SiteID      *uint64 `json:"site_id"`
		ParentID    *uint64 `json:"parent_id"`
		IsHidden    bool    `json:"is_hidden"`
	}

	var req CreateOrgRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	org, err := h.orgService.CreateOrganization(c.Request.Context(), services.CreateOrganizationInput{
		Name:        req.Name,
		Description: req.Description,
		SiteID:      req.SiteID,
		ParentID:    req.ParentID,
		IsHidden:    req.IsHidden,
		CreatorID:   userID,
	})
	if err != nil {
		respondOrganizationError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToOrganizationDTO(*org, true))
}

// ListOrganizations returns the organizations visible to the caller on
// their site.
func (h *OrganizationHandler) ListOrganizations(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	user, err := h.authService.GetUser(c.Request.Context(), userID)
	if err != nil {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	params := utils.GetPaginationParams(c)
	filter := services.VisibilityFilter{
		AdminOnly:     c.Query("admin_only") == "true",
		ParentsOnly:   c.Query("parents_only") == "true",
		SubgroupsOnly: c.Query("subgroups_only") == "true",
		Pagination:    &params,
	}

	orgs, total, err := h.visibility.VisibleOrganizations(c.Request.Context(), user, user.SiteID, filter)
	if err != nil {
		apierrors.InternalError(c, "Failed to fetch organizations")
		return
	}

	orgDTOs := make([]dto.OrganizationDTO, len(orgs))
	for i, org := range orgs {
		orgDTOs[i] = dto.ToOrganizationDTO(org, false)
	}

	c.JSON(http.StatusOK, gin.H{
		"organizations": orgDTOs,
		"pagination": utils.PaginationResponse{
			Page:  params.Page,
			Limit: params.Limit,
			Total: total,
		},
	})
}

// ListMyMemberships returns the caller's memberships with their groups.
func (h *OrganizationHandler) ListMyMemberships(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	memberships, err := h.membership.MembershipsOf(c.Request.Context(), userID)
	if err != nil {
		apierrors.InternalError(c, "Failed to fetch memberships")
		return
	}

	membershipDTOs := make([]dto.MembershipDTO, len(memberships))
	for i, m := range memberships {
		membershipDTOs[i] = dto.ToMembershipDTO(m)
	}

	c.JSON(http.StatusOK, gin.H{
		"memberships": membershipDTOs,
	})
}

// GetOrganization returns organization details including members, subgroups
// and the caller's admin standing.
func (h *OrganizationHandler) GetOrganization(c *gin.Context) {
	org, _ := middleware.GetOrganization(c)
	user, _ := middleware.GetCurrentUser(c)
	if org == nil || user == nil {
		apierrors.InternalError(c, "Organization not resolved")
		return
	}

	ctx := c.Request.Context()

	_, members, err := h.orgService.GetOrganizationWithMembers(ctx, org.ID)
	if err != nil {
		respondOrganizationError(c, err)
		return
	}

	subgroups, err := h.visibility.SubgroupsOf(ctx, org.ID)
	if err != nil {
		apierrors.InternalError(c, "Failed to fetch subgroups")
		return
	}

	isAdmin, err := h.membership.IsAdmin(ctx, org, user)
	if err != nil {
		apierrors.InternalError(c, "Failed to resolve admin standing")
		return
	}

	var ownerUserID *uint64
	if owner, err := h.membership.Owner(ctx, org.ID); err == nil {
		ownerUserID = &owner.UserID
	}

	c.JSON(http.StatusOK, dto.ToOrganizationDetailDTO(*org, members, subgroups, isAdmin, ownerUserID))
}

// UpdateOrganization updates an organization's editable fields.
func (h *OrganizationHandler) UpdateOrganization(c *gin.Context) {
	org, _ := middleware.GetOrganization(c)
	if org == nil {
		apierrors.InternalError(c, "Organization not resolved")
		return
	}

	type UpdateOrgRequest struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		IsHidden    *bool   `json:"is_hidden"`
	}

	var req UpdateOrgRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	updated, err := h.orgService.UpdateOrganization(c.Request.Context(), org.ID, services.UpdateOrganizationInput{
		Name:        req.Name,
		Description: req.Description,
		IsHidden:    req.IsHidden,
	})
	if err != nil {
		respondOrganizationError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToOrganizationDTO(*updated, true))
}

// DeactivateOrganization soft-deletes an organization.
func (h *OrganizationHandler) DeactivateOrganization(c *gin.Context) {
	org, _ := middleware.GetOrganization(c)
	if org == nil {
		apierrors.InternalError(c, "Organization not resolved")
		return
	}

	if _, err := h.orgService.DeactivateOrganization(c.Request.Context(), org.ID); err != nil {
		respondOrganizationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Organization deactivated",
	})
}

// DeleteOrganization deletes an organization, its memberships and its owner
// record.
func (h *OrganizationHandler) DeleteOrganization(c *gin.Context) {
	org, _ := middleware.GetOrganization(c)
	if org == nil {
		apierrors.InternalError(c, "Organization not resolved")
		return
	}

	if err := h.orgService.DeleteOrganization(c.Request.Context(), org.ID); err != nil {
		respondOrganizationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Organization deleted successfully",
	})
}

// JoinOrganization allows a user to join via invite code.
func (h *OrganizationHandler) JoinOrganization(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type JoinRequest struct {
		InviteCode string `json:"invite_code" binding:"required"`
	}

	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	org, err := h.orgService.JoinOrganizationByInvite(c.Request.Context(), userID, req.InviteCode)
	if err != nil {
		respondOrganizationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Successfully joined organization",
		"organization": dto.ToOrganizationDTO(*org, false),
	})
}

// RegenerateInviteCode generates a new invite code for the organization.
func (h *OrganizationHandler) RegenerateInviteCode(c *gin.Context) {
	org, _ := middleware.GetOrganization(c)
	if org == nil {
		apierrors.InternalError(c, "Organization not resolved")
		return
	}

	updated, err := h.orgService.RegenerateInviteCode(c.Request.Context(), org.ID)
	if err != nil {
		respondOrganizationError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToOrganizationDTO(*updated, true))
}

func respondOrganizationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrOrganizationNotFound),
		errors.Is(err, services.ErrParentNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrMemberNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrInvalidOrganizationName),
		errors.Is(err, services.ErrNestedSubgroup),
		errors.Is(err, services.ErrSiteMismatch),
		errors.Is(err, services.ErrOrganizationMismatch),
		errors.Is(err, services.ErrNoMemberKind):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrInvalidInviteCode):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrDuplicateMembership),
		errors.Is(err, services.ErrOwnershipRequired):
		apierrors.Conflict(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
