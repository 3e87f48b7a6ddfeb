package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-attendance/internal/models"
	appErrors "github.com/noah-isme/school-attendance/pkg/errors"
	"github.com/noah-isme/school-attendance/pkg/response"
)

// LoginPath is where denied browser requests are sent.
const LoginPath = "/account/login"

// Authorize reports whether current is one of required. An empty current role
// is never authorized.
func Authorize(required []models.Role, current models.Role) bool {
	if current == "" {
		return false
	}
	for _, r := range required {
		if r == current {
			return true
		}
	}
	return false
}

// IsMachineRequest reports whether the caller is a script rather than a browser
// navigation: XHR requests and bearer-token clients.
func IsMachineRequest(c *gin.Context) bool {
	if c.GetHeader("X-Requested-With") == "XMLHttpRequest" {
		return true
	}
	_, ok := BearerToken(c)
	return ok
}

// RequireRoles rejects callers whose role is not in roles. Machine requests get
// 401; browsers are redirected to the login page.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	allowed := append([]models.Role(nil), roles...)
	return func(c *gin.Context) {
		identity, _ := CurrentIdentity(c)
		if Authorize(allowed, identity.Role) {
			c.Next()
			return
		}
		if IsMachineRequest(c) {
			response.Error(c, appErrors.ErrUnauthorized)
		} else {
			response.Redirect(c, LoginPath)
		}
		c.Abort()
	}
}
