package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/memstore"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-attendance/internal/models"
)

type stubTokens struct {
	claims *models.JWTClaims
}

func (s stubTokens) ValidateToken(_ context.Context, token string) (*models.JWTClaims, error) {
	if s.claims == nil || token != "good" {
		return nil, errors.New("bad token")
	}
	return s.claims, nil
}

func newRouter(tokens TokenValidator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(sessions.Sessions("test_session", memstore.NewStore([]byte("secret"))))
	r.Use(Identity(tokens))
	r.POST("/login/:role", func(c *gin.Context) {
		role, _ := models.ParseRole(c.Param("role"))
		if err := SaveIdentity(c, models.SessionIdentity{Role: role, SubjectID: 7, SubjectName: "Ada"}); err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})
	r.POST("/logout", func(c *gin.Context) {
		_ = ClearSession(c)
		c.Status(http.StatusOK)
	})
	r.GET("/teachers", RequireRoles(models.RoleTeacher, models.RoleAdmin), func(c *gin.Context) {
		identity, _ := CurrentIdentity(c)
		c.String(http.StatusOK, "%s:%d", identity.Role, identity.SubjectID)
	})
	return r
}

func withCookies(req *http.Request, rec *httptest.ResponseRecorder) *http.Request {
	for _, ck := range rec.Result().Cookies() {
		req.AddCookie(ck)
	}
	return req
}

func TestAuthorize(t *testing.T) {
	teacherOnly := []models.Role{models.RoleTeacher}
	assert.True(t, Authorize(teacherOnly, models.RoleTeacher))
	assert.False(t, Authorize(teacherOnly, models.RoleStudent))
	assert.False(t, Authorize(teacherOnly, ""))
	assert.False(t, Authorize(nil, models.RoleAdmin))
}

func TestRequireRolesRedirectsBrowser(t *testing.T) {
	r := newRouter(nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/teachers", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, LoginPath, rec.Header().Get("Location"))
}

func TestRequireRolesRejectsXHR(t *testing.T) {
	r := newRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/teachers", nil)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
}

func TestSessionIdentityRoundTrip(t *testing.T) {
	r := newRouter(nil)

	login := httptest.NewRecorder()
	r.ServeHTTP(login, httptest.NewRequest(http.MethodPost, "/login/Teacher", nil))
	require.Equal(t, http.StatusOK, login.Code)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, withCookies(httptest.NewRequest(http.MethodGet, "/teachers", nil), login))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Teacher:7", rec.Body.String())
}

func TestSessionWrongRoleDenied(t *testing.T) {
	r := newRouter(nil)

	login := httptest.NewRecorder()
	r.ServeHTTP(login, httptest.NewRequest(http.MethodPost, "/login/Student", nil))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, withCookies(httptest.NewRequest(http.MethodGet, "/teachers", nil), login))
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestClearSessionDropsIdentity(t *testing.T) {
	r := newRouter(nil)

	login := httptest.NewRecorder()
	r.ServeHTTP(login, httptest.NewRequest(http.MethodPost, "/login/Admin", nil))

	logout := httptest.NewRecorder()
	r.ServeHTTP(logout, withCookies(httptest.NewRequest(http.MethodPost, "/logout", nil), login))
	require.Equal(t, http.StatusOK, logout.Code)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, withCookies(httptest.NewRequest(http.MethodGet, "/teachers", nil), logout))
	assert.Equal(t, http.StatusFound, rec.Code)

	// a copy of the cookie taken before logout is no longer honoured
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, withCookies(httptest.NewRequest(http.MethodGet, "/teachers", nil), login))
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestBearerTokenIdentity(t *testing.T) {
	r := newRouter(stubTokens{claims: &models.JWTClaims{SubjectID: 3, Role: models.RoleAdmin, SubjectName: "Root"}})

	req := httptest.NewRequest(http.MethodGet, "/teachers", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Admin:3", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/teachers", nil)
	req.Header.Set("Authorization", "Bearer forged")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
