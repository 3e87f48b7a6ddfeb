package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-attendance/internal/models"
	"github.com/noah-isme/school-attendance/internal/service"
	appErrors "github.com/noah-isme/school-attendance/pkg/errors"
	"github.com/noah-isme/school-attendance/pkg/export"
)

type fakeTeacherSrv struct {
	dashboard *service.TeacherDashboard
	err       error
	calls     []int64
}

func (f *fakeTeacherSrv) Dashboard(_ context.Context, id int64) (*service.TeacherDashboard, error) {
	f.calls = append(f.calls, id)
	return f.dashboard, f.err
}

type fakeRosterSrv struct {
	roster *models.Roster
}

func (f *fakeRosterSrv) Today(_ context.Context, classID int64) (*models.Roster, error) {
	roster := *f.roster
	roster.ClassID = classID
	return &roster, nil
}

type fakeSaver struct {
	edits   map[int64]string
	classID int64
	result  *models.SaveAttendanceResult
	err     error
}

func (f *fakeSaver) SaveToday(_ context.Context, classID int64, edits map[int64]string) (*models.SaveAttendanceResult, error) {
	f.classID = classID
	f.edits = edits
	return f.result, f.err
}

type fakeExporter struct {
	format export.Format
}

func (f *fakeExporter) ExportRoster(_ context.Context, classID int64, format export.Format) (*service.ExportResult, error) {
	f.format = format
	return &service.ExportResult{Filename: "attendance-3-2024-03-04.csv", ContentType: format.ContentType(), Body: []byte("Record,Student ID\n")}, nil
}

type teacherFixture struct {
	teachers *fakeTeacherSrv
	saver    *fakeSaver
	exporter *fakeExporter
}

func teacherRouter(f *teacherFixture, identity models.SessionIdentity) *gin.Engine {
	roster := &fakeRosterSrv{roster: &models.Roster{ClassName: "Biology", TeacherID: 7, Records: []models.AttendanceRecord{{ID: 5, StudentID: 9}}}}
	h := NewTeacherHandler(f.teachers, roster, f.saver, f.exporter, nil)
	r := newTestRouter(identity)
	r.GET("/teachers/:id/dashboard", h.Dashboard)
	r.GET("/teachers/attendance/:classId", h.Attendance)
	r.POST("/teachers/attendance/:classId", h.SaveAttendance)
	r.GET("/teachers/attendance/:classId/export", h.ExportAttendance)
	return r
}

func newTeacherFixture() *teacherFixture {
	return &teacherFixture{
		teachers: &fakeTeacherSrv{dashboard: &service.TeacherDashboard{Teacher: models.Teacher{ID: 7, Name: "Ms. Rivera"}}},
		saver:    &fakeSaver{result: &models.SaveAttendanceResult{Changed: 1, Message: service.MessageAttendanceSaved}},
		exporter: &fakeExporter{},
	}
}

func TestTeacherDashboardRedirectsToActiveClass(t *testing.T) {
	f := newTeacherFixture()
	f.teachers.dashboard.Active = &models.TimetableEntry{ID: 1, ClassID: 3}
	r := teacherRouter(f, teacherSeven)

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/teachers/7/dashboard", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/teachers/attendance/3", rec.Header().Get("Location"))
}

func TestTeacherDashboardNoClassNow(t *testing.T) {
	f := newTeacherFixture()
	r := teacherRouter(f, teacherSeven)

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/teachers/7/dashboard", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var view teacherDashboardView
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &view))
	assert.Equal(t, "Ms. Rivera", view.Teacher.Name)
	assert.Equal(t, messageNoClassNow, view.Message)
}

func TestTeacherDashboardOtherTeacherRedirected(t *testing.T) {
	f := newTeacherFixture()
	r := teacherRouter(f, teacherSeven)

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/teachers/8/dashboard", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/teachers/7/dashboard", rec.Header().Get("Location"))
	assert.Empty(t, f.teachers.calls)
}

func TestTeacherDashboardUnknownTeacher(t *testing.T) {
	f := newTeacherFixture()
	f.teachers.err = appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	r := teacherRouter(f, adminOne)

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/teachers/99/dashboard", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, []int64{99}, f.teachers.calls)
}

func TestTeacherAttendanceShowsRoster(t *testing.T) {
	r := teacherRouter(newTeacherFixture(), teacherSeven)

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/teachers/attendance/3", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var roster models.Roster
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &roster))
	assert.Equal(t, int64(3), roster.ClassID)
	assert.Equal(t, "Biology", roster.ClassName)
	assert.Len(t, roster.Records, 1)
}

func TestTeacherSaveAttendanceFromForm(t *testing.T) {
	f := newTeacherFixture()
	r := teacherRouter(f, teacherSeven)

	rec := serve(r, formRequest(http.MethodPost, "/teachers/attendance/3", url.Values{
		"status_5":   {"Present"},
		"status_6":   {""},
		"status_bad": {"Absent"},
		"csrf_token": {"ignored"},
	}))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/teachers/7/dashboard", rec.Header().Get("Location"))
	assert.Equal(t, int64(3), f.saver.classID)
	assert.Equal(t, map[int64]string{5: "Present", 6: ""}, f.saver.edits)
}

func TestTeacherSaveAttendanceFromJSON(t *testing.T) {
	f := newTeacherFixture()
	r := teacherRouter(f, teacherSeven)

	req := xhr(httptest.NewRequest(http.MethodPost, "/teachers/attendance/3", strings.NewReader(`{"edits":{"5":"Absent"}}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := serve(r, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var result models.SaveAttendanceResult
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &result))
	assert.Equal(t, service.MessageAttendanceSaved, result.Message)
	assert.Equal(t, map[int64]string{5: "Absent"}, f.saver.edits)
}

func TestTeacherSaveAttendanceFailure(t *testing.T) {
	f := newTeacherFixture()
	f.saver.err = appErrors.Clone(appErrors.ErrSaveFailed, "")
	r := teacherRouter(f, teacherSeven)

	rec := serve(r, xhr(formRequest(http.MethodPost, "/teachers/attendance/3", url.Values{"status_5": {"Absent"}})))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	envelope := decodeEnvelope(t, rec)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "Failed to save attendance.", envelope.Error.Message)
}

func TestTeacherExportAttendance(t *testing.T) {
	f := newTeacherFixture()
	r := teacherRouter(f, teacherSeven)

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/teachers/attendance/3/export?format=csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.FormatCSV, f.exporter.format)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attendance-3-2024-03-04.csv")

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/teachers/attendance/3/export?format=xlsx", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
