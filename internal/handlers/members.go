package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/minawano/group-management-api/internal/dto"
	apierrors "github.com/minawano/group-management-api/internal/errors"
	"github.com/minawano/group-management-api/internal/middleware"
	"github.com/minawano/group-management-api/internal/services"
)

// MemberHandler coordinates membership HTTP handlers. All routes run behind
// RequireOrganizationAccess, so the organization is resolved in context.
type MemberHandler struct {
	membership *services.MembershipService
	orgService *services.OrganizationService
}

// NewMemberHandler creates a new MemberHandler.
func NewMemberHandler(membership *services.MembershipService, orgService *services.OrganizationService) *MemberHandler {
	return &MemberHandler{
		membership: membership,
		orgService: orgService,
	}
}

// ListMembers lists the organization's members.
func (h *MemberHandler) ListMembers(c *gin.Context) {
	org, _ := middleware.GetOrganization(c)
	if org == nil {
		apierrors.InternalError(c, "Organization not resolved")
		return
	}

	opts := services.MembersOptions{
		IncludeAdmins:  true,
		IncludeUsers:   true,
		SameSiteOnly:   true,
		IncludeParents: c.Query("include_parents") == "true",
	}
	switch c.Query("kind") {
	case "admins":
		opts.IncludeUsers = false
	case "users":
		opts.IncludeAdmins = false
	}

	members, err := h.membership.Members(c.Request.Context(), org, opts)
	if err != nil {
		respondOrganizationError(c, err)
		return
	}

	memberDTOs := make([]dto.OrganizationMemberDTO, len(members))
	for i, member := range members {
		memberDTOs[i] = dto.ToOrganizationMemberDTO(member)
	}

	c.JSON(http.StatusOK, gin.H{
		"members": memberDTOs,
	})
}

// AddMember adds a user to the organization.
func (h *MemberHandler) AddMember(c *gin.Context) {
	org, _ := middleware.GetOrganization(c)
	if org == nil {
		apierrors.InternalError(c, "Organization not resolved")
		return
	}

	type AddMemberRequest struct {
		UserID  uint64 `json:"user_id" binding:"required"`
		IsAdmin bool   `json:"is_admin"`
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	member, created, err := h.membership.GetOrAddMember(c.Request.Context(), org.ID, req.UserID, req.IsAdmin)
	if err != nil {
		respondOrganizationError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"organization_id": member.OrganizationID,
		"user_id":         member.UserID,
		"is_admin":        member.IsAdmin,
		"created":         created,
	})
}

// RemoveMember removes a member from the organization. With cascade=true the
// user is also removed from the organization's subgroups.
func (h *MemberHandler) RemoveMember(c *gin.Context) {
	org, _ := middleware.GetOrganization(c)
	if org == nil {
		apierrors.InternalError(c, "Organization not resolved")
		return
	}

	targetUserID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid user ID")
		return
	}

	if c.Query("cascade") == "true" {
		err = h.membership.RemoveMemberCascade(c.Request.Context(), org.ID, targetUserID)
	} else {
		err = h.membership.RemoveMember(c.Request.Context(), org.ID, targetUserID)
	}
	if err != nil {
		respondOrganizationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Member removed successfully",
	})
}

// TransferOwnership moves the owner record to another member.
func (h *MemberHandler) TransferOwnership(c *gin.Context) {
	org, _ := middleware.GetOrganization(c)
	if org == nil {
		apierrors.InternalError(c, "Organization not resolved")
		return
	}

	type TransferRequest struct {
		UserID uint64 `json:"user_id" binding:"required"`
	}

	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.orgService.TransferOwnership(c.Request.Context(), org.ID, req.UserID); err != nil {
		respondOrganizationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Ownership transferred",
	})
}
