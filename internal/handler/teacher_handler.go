package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/school-attendance/internal/middleware"
	"github.com/noah-isme/school-attendance/internal/models"
	"github.com/noah-isme/school-attendance/internal/service"
	appErrors "github.com/noah-isme/school-attendance/pkg/errors"
	"github.com/noah-isme/school-attendance/pkg/export"
	"github.com/noah-isme/school-attendance/pkg/logger"
	"github.com/noah-isme/school-attendance/pkg/response"
)

const (
	statusFieldPrefix = "status_"
	messageNoClassNow = "You have no class in session right now."
)

type teacherDashboardService interface {
	Dashboard(ctx context.Context, teacherID int64) (*service.TeacherDashboard, error)
}

type rosterReader interface {
	Today(ctx context.Context, classID int64) (*models.Roster, error)
}

type attendanceSaver interface {
	SaveToday(ctx context.Context, classID int64, edits map[int64]string) (*models.SaveAttendanceResult, error)
}

type rosterExporter interface {
	ExportRoster(ctx context.Context, classID int64, format export.Format) (*service.ExportResult, error)
}

// TeacherHandler serves the teacher dashboard and the daily attendance roster.
type TeacherHandler struct {
	teachers   teacherDashboardService
	rosters    rosterReader
	attendance attendanceSaver
	exports    rosterExporter
	logger     *zap.Logger
}

// NewTeacherHandler constructs a TeacherHandler.
func NewTeacherHandler(teachers teacherDashboardService, rosters rosterReader, attendance attendanceSaver, exports rosterExporter, logger *zap.Logger) *TeacherHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherHandler{teachers: teachers, rosters: rosters, attendance: attendance, exports: exports, logger: logger}
}

type teacherDashboardView struct {
	Teacher     models.Teacher         `json:"teacher"`
	Active      *models.TimetableEntry `json:"active,omitempty"`
	RedirectURL string                 `json:"redirect_url,omitempty"`
	Message     string                 `json:"message,omitempty"`
	Messages    []string               `json:"messages,omitempty"`
}

type rosterView struct {
	*models.Roster
	Messages []string `json:"messages,omitempty"`
}

// Dashboard godoc
// @Summary Teacher dashboard
// @Description Sends the teacher to the attendance page of the class in session, if any
// @Tags Teachers
// @Produce json
// @Param id path int true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Success 302 {string} string "redirect to attendance page"
// @Failure 404 {object} response.Envelope
// @Router /teachers/{id}/dashboard [get]
func (h *TeacherHandler) Dashboard(c *gin.Context) {
	teacherID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	identity, _ := identityFromContext(c)
	if identity.Role == models.RoleTeacher && identity.SubjectID != teacherID {
		response.Redirect(c, teacherDashboardURL(identity.SubjectID))
		return
	}

	dashboard, err := h.teachers.Dashboard(c.Request.Context(), teacherID)
	if err != nil {
		response.Error(c, err)
		return
	}

	view := teacherDashboardView{Teacher: dashboard.Teacher, Active: dashboard.Active}
	if dashboard.Active != nil {
		view.RedirectURL = attendanceURL(dashboard.Active.ClassID)
		if !middleware.IsMachineRequest(c) {
			response.Redirect(c, view.RedirectURL)
			return
		}
	} else {
		view.Message = messageNoClassNow
	}
	view.Messages = popFlashes(c)
	response.JSON(c, http.StatusOK, view)
}

// Attendance godoc
// @Summary Today's roster
// @Description Materializes today's attendance rows for the class on first access
// @Tags Attendance
// @Produce json
// @Param classId path int true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /teachers/attendance/{classId} [get]
func (h *TeacherHandler) Attendance(c *gin.Context) {
	classID, ok := int64Param(c, "classId")
	if !ok {
		return
	}
	roster, err := h.rosters.Today(c.Request.Context(), classID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rosterView{Roster: roster, Messages: popFlashes(c)})
}

// SaveAttendance godoc
// @Summary Save today's attendance
// @Description Accepts status_<recordId> form fields or a JSON edits map. Only changed rows of this class and date are written.
// @Tags Attendance
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param classId path int true "Class ID"
// @Param payload body models.SaveAttendanceRequest false "Edits keyed by record id"
// @Success 200 {object} response.Envelope
// @Success 302 {string} string "redirect to dashboard"
// @Failure 500 {object} response.Envelope
// @Router /teachers/attendance/{classId} [post]
func (h *TeacherHandler) SaveAttendance(c *gin.Context) {
	classID, ok := int64Param(c, "classId")
	if !ok {
		return
	}
	edits, err := bindEdits(c)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload"))
		return
	}

	result, err := h.attendance.SaveToday(c.Request.Context(), classID, edits)
	if err != nil {
		logger.FromContext(c, h.logger).Warn("save attendance", zap.Int64("class_id", classID), zap.Error(err))
		response.Error(c, err)
		return
	}

	if middleware.IsMachineRequest(c) {
		response.JSON(c, http.StatusOK, result)
		return
	}
	identity, _ := identityFromContext(c)
	pushFlash(c, result.Message)
	response.Redirect(c, teacherDashboardURL(identity.SubjectID))
}

// ExportAttendance godoc
// @Summary Export today's roster
// @Tags Attendance
// @Produce text/csv,application/pdf
// @Param classId path int true "Class ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /teachers/attendance/{classId}/export [get]
func (h *TeacherHandler) ExportAttendance(c *gin.Context) {
	classID, ok := int64Param(c, "classId")
	if !ok {
		return
	}
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "format must be csv or pdf"))
		return
	}
	result, err := h.exports.ExportRoster(c.Request.Context(), classID, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, result.ContentType, result.Body)
}

// bindEdits reads record edits from a JSON body or from status_<id> form fields.
// Form fields whose suffix is not a record id are ignored.
func bindEdits(c *gin.Context) (map[int64]string, error) {
	if strings.HasPrefix(c.ContentType(), gin.MIMEJSON) {
		var req models.SaveAttendanceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, err
		}
		return req.Edits, nil
	}

	if err := c.Request.ParseForm(); err != nil {
		return nil, err
	}
	edits := make(map[int64]string)
	for key, values := range c.Request.PostForm {
		if !strings.HasPrefix(key, statusFieldPrefix) || len(values) == 0 {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimPrefix(key, statusFieldPrefix), 10, 64)
		if err != nil {
			continue
		}
		edits[id] = values[0]
	}
	return edits, nil
}
