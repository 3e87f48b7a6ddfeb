package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-attendance/internal/models"
)

// TokenValidator parses bearer tokens issued at login and rejects revoked ones.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*models.JWTClaims, error)
}

// BearerToken returns the token of an "Authorization: Bearer <token>" header.
func BearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// bearerIdentity resolves the role marker carried by a valid bearer token.
func bearerIdentity(c *gin.Context, tokens TokenValidator) (models.SessionIdentity, bool) {
	if tokens == nil {
		return models.SessionIdentity{}, false
	}
	raw, ok := BearerToken(c)
	if !ok {
		return models.SessionIdentity{}, false
	}
	claims, err := tokens.ValidateToken(c.Request.Context(), raw)
	if err != nil {
		return models.SessionIdentity{}, false
	}
	return claims.Identity(), true
}
