package repository

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/memstore"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-attendance/internal/models"
)

func TestMemoryResetCodeStore(t *testing.T) {
	store := NewMemoryResetCodeStore()
	ctx := context.Background()

	_, found, err := store.Get(ctx, "a@example.com")
	require.NoError(t, err)
	assert.False(t, found)

	code := models.ResetCode{Code: "004211", ExpiresAt: time.Now().Add(time.Minute)}
	require.NoError(t, store.Put(ctx, "a@example.com", code, time.Minute))

	got, found, err := store.Get(ctx, "a@example.com")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "004211", got.Code)

	require.NoError(t, store.Delete(ctx, "a@example.com"))
	_, found, _ = store.Get(ctx, "a@example.com")
	assert.False(t, found)
}

func TestSessionResetCodeStoreRoundTrip(t *testing.T) {
	gin.SetMode(gin.TestMode)
	expires := time.Date(2024, 3, 4, 9, 15, 0, 0, time.UTC)

	r := gin.New()
	r.Use(sessions.Sessions("test_session", memstore.NewStore([]byte("secret"))))
	r.POST("/put", func(c *gin.Context) {
		store := NewSessionResetCodeStore(sessions.Default(c))
		if err := store.Put(c, "a@example.com", models.ResetCode{Code: "123456", ExpiresAt: expires}, 15*time.Minute); err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNoContent)
	})
	r.GET("/get", func(c *gin.Context) {
		store := NewSessionResetCodeStore(sessions.Default(c))
		code, found, err := store.Get(c, "a@example.com")
		if err != nil || !found {
			c.Status(http.StatusNotFound)
			return
		}
		c.JSON(http.StatusOK, code)
	})
	r.POST("/delete", func(c *gin.Context) {
		store := NewSessionResetCodeStore(sessions.Default(c))
		_ = store.Delete(c, "a@example.com")
		c.Status(http.StatusNoContent)
	})

	put := httptest.NewRecorder()
	r.ServeHTTP(put, httptest.NewRequest(http.MethodPost, "/put", nil))
	require.Equal(t, http.StatusNoContent, put.Code)
	cookies := put.Result().Cookies()
	require.NotEmpty(t, cookies)

	get := httptest.NewRequest(http.MethodGet, "/get", nil)
	for _, ck := range cookies {
		get.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, get)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "123456")

	// a browser without the cookie cannot see the code
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/get", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	del := httptest.NewRequest(http.MethodPost, "/delete", nil)
	for _, ck := range cookies {
		del.AddCookie(ck)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, del)
	cleared := w.Result().Cookies()
	require.NotEmpty(t, cleared)

	get = httptest.NewRequest(http.MethodGet, "/get", nil)
	for _, ck := range cleared {
		get.AddCookie(ck)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, get)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// the cookie captured before the delete points at the same server-side session
	get = httptest.NewRequest(http.MethodGet, "/get", nil)
	for _, ck := range cookies {
		get.AddCookie(ck)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, get)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCacheRepositoryNilClientMisses(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	var dest []models.TimetableEntry
	err := repo.Get(context.Background(), "timetable:class:1", &dest)
	assert.Error(t, err)
	assert.NoError(t, repo.Set(context.Background(), "k", dest, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(context.Background(), "timetable:*"))
	assert.NoError(t, repo.Ping(context.Background()))
}
