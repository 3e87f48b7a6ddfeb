package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-attendance/internal/models"
	appErrors "github.com/noah-isme/school-attendance/pkg/errors"
)

type fakeAdminSrv struct {
	overview *models.AdminOverview
	err      error
}

func (f *fakeAdminSrv) Overview(context.Context) (*models.AdminOverview, error) {
	return f.overview, f.err
}

func TestAdminDashboardReturnsCounts(t *testing.T) {
	r := newTestRouter(adminOne)
	r.GET("/admin/dashboard", NewAdminHandler(&fakeAdminSrv{overview: &models.AdminOverview{Teachers: 4, Students: 120, Classes: 9, Timetables: 31}}).Dashboard)

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Overview models.AdminOverview `json:"overview"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &body))
	assert.Equal(t, int64(120), body.Overview.Students)
	assert.Equal(t, int64(31), body.Overview.Timetables)
}

func TestAdminDashboardError(t *testing.T) {
	r := newTestRouter(adminOne)
	srv := &fakeAdminSrv{err: appErrors.Wrap(errors.New("down"), appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load overview")}
	r.GET("/admin/dashboard", NewAdminHandler(srv).Dashboard)

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
