package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func orgTestRouter(cfg OrganizationMiddlewareConfig) (*gin.Engine, *string) {
	var captured string
	r := gin.New()
	r.Use(OrganizationMiddlewareWithConfig(cfg))
	r.GET("/events", func(c *gin.Context) {
		captured = GetOrganizationID(c)
		c.Status(http.StatusOK)
	})
	r.GET("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r, &captured
}

func TestOrganizationMiddleware(t *testing.T) {
	orgID := uuid.New().String()

	t.Run("extracts organization from header", func(t *testing.T) {
		r, captured := orgTestRouter(DefaultOrganizationConfig())

		req := httptest.NewRequest(http.MethodGet, "/events", nil)
		req.Header.Set(OrganizationHeaderKey, orgID)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, orgID, *captured)
	})

	t.Run("prefers JWT claim over header", func(t *testing.T) {
		jwtOrgID := uuid.New().String()
		var captured string

		r := gin.New()
		r.Use(func(c *gin.Context) {
			c.Set(JWTOrganizationIDKey, jwtOrgID)
		})
		r.Use(OrganizationMiddlewareWithConfig(DefaultOrganizationConfig()))
		r.GET("/events", func(c *gin.Context) {
			captured = GetOrganizationID(c)
			c.Status(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/events", nil)
		req.Header.Set(OrganizationHeaderKey, orgID)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, jwtOrgID, captured)
	})

	t.Run("rejects missing organization when required", func(t *testing.T) {
		r, _ := orgTestRouter(DefaultOrganizationConfig())

		req := httptest.NewRequest(http.MethodGet, "/events", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Organization identification required")
	})

	t.Run("rejects malformed organization id", func(t *testing.T) {
		r, _ := orgTestRouter(DefaultOrganizationConfig())

		req := httptest.NewRequest(http.MethodGet, "/events", nil)
		req.Header.Set(OrganizationHeaderKey, "not-a-uuid")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid organization ID format")
	})

	t.Run("skips configured paths", func(t *testing.T) {
		r, _ := orgTestRouter(DefaultOrganizationConfig())

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("optional config lets requests through without organization", func(t *testing.T) {
		cfg := DefaultOrganizationConfig()
		cfg.Required = false
		r, captured := orgTestRouter(cfg)

		req := httptest.NewRequest(http.MethodGet, "/events", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, *captured)
	})
}

func TestGetOrganizationUUID(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	id, err := GetOrganizationUUID(c)
	assert.NoError(t, err)
	assert.Equal(t, uuid.Nil, id)

	orgID := uuid.New()
	c.Set(OrganizationIDKey, orgID.String())

	id, err = GetOrganizationUUID(c)
	assert.NoError(t, err)
	assert.Equal(t, orgID, id)
}
