package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appposting "github.com/hera/finance/internal/application/posting"
)

// AdminHandler handles operational endpoints for the posting engine
type AdminHandler struct {
	BaseHandler
	registry *appposting.ProcessorRegistry
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(registry *appposting.ProcessorRegistry) *AdminHandler {
	return &AdminHandler{registry: registry}
}

// ReloadResultResponse confirms a processor cache invalidation
type ReloadResultResponse struct {
	OrganizationID string `json:"organization_id,omitempty"`
	Reloaded       bool   `json:"reloaded"`
}

// ReloadOrganization drops the cached posting processor for one
// organization so the next event rebuilds it against fresh rules and
// configuration
func (h *AdminHandler) ReloadOrganization(c *gin.Context) {
	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid organization ID format")
		return
	}

	h.registry.Invalidate(orgID)
	h.Success(c, ReloadResultResponse{
		OrganizationID: orgID.String(),
		Reloaded:       true,
	})
}

// ReloadAll drops every cached posting processor
func (h *AdminHandler) ReloadAll(c *gin.Context) {
	h.registry.InvalidateAll()
	h.Success(c, ReloadResultResponse{Reloaded: true})
}
