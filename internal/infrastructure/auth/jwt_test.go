package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/hera/finance/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-for-jwt-signing-32ch",
		Issuer:                "finance-engine",
		AccessTokenExpiration: 15 * time.Minute,
	})
}

func TestJWTService_GenerateAndValidate(t *testing.T) {
	svc := newTestService()
	orgID := uuid.New()

	token, err := svc.GenerateAccessToken(orgID, "user-1", "salon-pos")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, orgID.String(), claims.OrganizationID)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "salon-pos", claims.SourceSystem)
	assert.Equal(t, "finance-engine", claims.Issuer)

	parsed, err := claims.GetOrganizationUUID()
	require.NoError(t, err)
	assert.Equal(t, orgID, parsed)
}

func TestJWTService_ValidateAccessToken_Errors(t *testing.T) {
	svc := newTestService()

	t.Run("rejects garbage token", func(t *testing.T) {
		_, err := svc.ValidateAccessToken("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects token signed with different secret", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{
			Secret:                "another-secret-entirely-for-testing!",
			Issuer:                "finance-engine",
			AccessTokenExpiration: 15 * time.Minute,
		})
		token, err := other.GenerateAccessToken(uuid.New(), "user-1", "")
		require.NoError(t, err)

		_, err = svc.ValidateAccessToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects expired token", func(t *testing.T) {
		expired := NewJWTService(config.JWTConfig{
			Secret:                "test-secret-key-for-jwt-signing-32ch",
			Issuer:                "finance-engine",
			AccessTokenExpiration: -time.Minute,
		})
		token, err := expired.GenerateAccessToken(uuid.New(), "user-1", "")
		require.NoError(t, err)

		_, err = svc.ValidateAccessToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("rejects token without organization claim", func(t *testing.T) {
		now := time.Now()
		claims := &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "finance-engine",
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
				IssuedAt:  jwt.NewNumericDate(now),
			},
		}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		signed, err := token.SignedString([]byte("test-secret-key-for-jwt-signing-32ch"))
		require.NoError(t, err)

		_, err = svc.ValidateAccessToken(signed)
		assert.ErrorIs(t, err, ErrMissingOrganizationID)
	})

	t.Run("rejects unexpected signing method", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{OrganizationID: uuid.New().String()})
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.ValidateAccessToken(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
