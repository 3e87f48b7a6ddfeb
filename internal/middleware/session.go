package middleware

import (
	"fmt"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-attendance/internal/models"
	"github.com/noah-isme/school-attendance/pkg/logger"
)

// ContextIdentityKey is the gin context key storing the caller's SessionIdentity.
const ContextIdentityKey = "currentIdentity"

const (
	sessionRoleKey        = "Role"
	sessionSubjectIDKey   = "SubjectId"
	sessionSubjectNameKey = "SubjectName"
)

// Identity loads the caller's role marker from a bearer token or, failing
// that, from the session. It never rejects a request; RequireRoles does.
func Identity(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := bearerIdentity(c, tokens)
		if !ok {
			identity, ok = sessionIdentity(sessions.Default(c))
		}
		if ok {
			c.Set(ContextIdentityKey, identity)
			c.Set(logger.RoleContextKey, string(identity.Role))
		}
		c.Next()
	}
}

// CurrentIdentity returns the identity loaded by Identity.
func CurrentIdentity(c *gin.Context) (models.SessionIdentity, bool) {
	v, exists := c.Get(ContextIdentityKey)
	if !exists {
		return models.SessionIdentity{}, false
	}
	identity, ok := v.(models.SessionIdentity)
	return identity, ok && !identity.Empty()
}

// SaveIdentity stores the role marker in the caller's session, replacing any
// previous values.
func SaveIdentity(c *gin.Context, identity models.SessionIdentity) error {
	session := sessions.Default(c)
	session.Clear()
	session.Set(sessionRoleKey, string(identity.Role))
	session.Set(sessionSubjectIDKey, identity.SubjectID)
	session.Set(sessionSubjectNameKey, identity.SubjectName)
	if err := session.Save(); err != nil {
		return fmt.Errorf("save session identity: %w", err)
	}
	c.Set(ContextIdentityKey, identity)
	return nil
}

// ClearSession drops every value from the caller's session in one save.
func ClearSession(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	c.Set(ContextIdentityKey, models.SessionIdentity{})
	return nil
}

func sessionIdentity(session sessions.Session) (models.SessionIdentity, bool) {
	rawRole, _ := session.Get(sessionRoleKey).(string)
	role, ok := models.ParseRole(rawRole)
	if !ok {
		return models.SessionIdentity{}, false
	}
	subjectID, _ := session.Get(sessionSubjectIDKey).(int64)
	name, _ := session.Get(sessionSubjectNameKey).(string)
	identity := models.SessionIdentity{Role: role, SubjectID: subjectID, SubjectName: name}
	return identity, !identity.Empty()
}
