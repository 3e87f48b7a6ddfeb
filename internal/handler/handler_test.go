package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/memstore"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-attendance/internal/middleware"
	"github.com/noah-isme/school-attendance/internal/models"
)

type envelopeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type responseEnvelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *envelopeError         `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

// newTestRouter installs a server-side session and, when identity is non-empty,
// pretends the caller is logged in as identity.
func newTestRouter(identity models.SessionIdentity) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(sessions.Sessions("test_session", memstore.NewStore([]byte("secret"))))
	r.Use(func(c *gin.Context) {
		if !identity.Empty() {
			c.Set(middleware.ContextIdentityKey, identity)
		}
		c.Next()
	})
	return r
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func xhr(req *http.Request) *http.Request {
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	return req
}

var (
	teacherSeven = models.SessionIdentity{Role: models.RoleTeacher, SubjectID: 7, SubjectName: "Ms. Rivera"}
	studentNine  = models.SessionIdentity{Role: models.RoleStudent, SubjectID: 9, SubjectName: "Lee"}
	adminOne     = models.SessionIdentity{Role: models.RoleAdmin, SubjectID: 1, SubjectName: "Principal"}
)
