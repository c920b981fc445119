package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hera/finance/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Organization context keys
const (
	OrganizationIDKey     = "organization_id"
	OrganizationHeaderKey = "X-Organization-ID"
)

// OrganizationMiddlewareConfig holds configuration for organization middleware
type OrganizationMiddlewareConfig struct {
	// HeaderEnabled enables X-Organization-ID header extraction (development fallback)
	HeaderEnabled bool
	// JWTEnabled enables JWT claim extraction (requires JWT middleware to run first)
	JWTEnabled bool
	// SkipPaths are paths that don't require organization context
	SkipPaths []string
	// Required determines if organization context is mandatory
	Required bool
	// Logger for middleware logging
	Logger *zap.Logger
}

// DefaultOrganizationConfig returns default organization middleware configuration
func DefaultOrganizationConfig() OrganizationMiddlewareConfig {
	return OrganizationMiddlewareConfig{
		HeaderEnabled: true,
		JWTEnabled:    true,
		SkipPaths:     []string{"/health", "/healthz", "/ready", "/api/v1/health"},
		Required:      true,
	}
}

// OrganizationMiddleware extracts the organization from the request.
// Extraction order: JWT claims > X-Organization-ID header.
func OrganizationMiddleware() gin.HandlerFunc {
	return OrganizationMiddlewareWithConfig(DefaultOrganizationConfig())
}

// OrganizationMiddlewareWithConfig returns organization middleware with custom configuration
func OrganizationMiddlewareWithConfig(cfg OrganizationMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skipPath := range cfg.SkipPaths {
			if path == skipPath || strings.HasPrefix(path, skipPath+"/") {
				c.Next()
				return
			}
		}

		var organizationID string

		// Priority 1: JWT claims (if JWT middleware has already run)
		if cfg.JWTEnabled {
			organizationID = GetJWTOrganizationID(c)
		}

		// Priority 2: X-Organization-ID header
		if organizationID == "" && cfg.HeaderEnabled {
			organizationID = c.GetHeader(OrganizationHeaderKey)
		}

		if organizationID != "" {
			if _, err := uuid.Parse(organizationID); err != nil {
				respondUnauthorized(c, "Invalid organization ID format")
				return
			}
		}

		if organizationID == "" && cfg.Required {
			respondUnauthorized(c, "Organization identification required")
			return
		}

		if organizationID != "" {
			c.Set(OrganizationIDKey, organizationID)

			// Propagate through the request context for the service layer
			ctx := c.Request.Context()
			log := logger.FromContext(ctx)
			ctx, _ = logger.WithOrganizationID(ctx, log, organizationID)
			c.Request = c.Request.WithContext(ctx)

			if cfg.Logger != nil {
				cfg.Logger.Debug("Organization identified",
					zap.String("organization_id", organizationID),
				)
			}
		}

		c.Next()
	}
}

// respondUnauthorized sends an unauthorized response
func respondUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "ERR_UNAUTHORIZED",
			"message": message,
		},
	})
}

// GetOrganizationID retrieves the organization ID from gin.Context
func GetOrganizationID(c *gin.Context) string {
	if organizationID, exists := c.Get(OrganizationIDKey); exists {
		if id, ok := organizationID.(string); ok {
			return id
		}
	}
	return ""
}

// GetOrganizationUUID retrieves the organization ID as UUID from gin.Context
func GetOrganizationUUID(c *gin.Context) (uuid.UUID, error) {
	organizationID := GetOrganizationID(c)
	if organizationID == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(organizationID)
}
