package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-attendance/internal/models"
	"github.com/noah-isme/school-attendance/pkg/response"
)

type studentPortalService interface {
	Get(ctx context.Context, id int64) (*models.Student, error)
	History(ctx context.Context, id int64) ([]models.AttendanceRecord, error)
}

// StudentHandler serves the student's own dashboard and attendance history.
type StudentHandler struct {
	service studentPortalService
}

// NewStudentHandler constructs a StudentHandler.
func NewStudentHandler(svc studentPortalService) *StudentHandler {
	return &StudentHandler{service: svc}
}

type studentAttendanceView struct {
	Student models.Student            `json:"student"`
	Records []models.AttendanceRecord `json:"records"`
}

// Dashboard godoc
// @Summary Student dashboard
// @Tags Students
// @Produce json
// @Param id path int true "Student ID"
// @Success 200 {object} response.Envelope
// @Success 302 {string} string "redirect to the caller's own dashboard"
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/dashboard [get]
func (h *StudentHandler) Dashboard(c *gin.Context) {
	studentID, ok := h.ownStudentID(c, studentDashboardURL)
	if !ok {
		return
	}
	student, err := h.service.Get(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"student": student, "messages": popFlashes(c)})
}

// Attendance godoc
// @Summary Student attendance history
// @Tags Students
// @Produce json
// @Param id path int true "Student ID"
// @Success 200 {object} response.Envelope
// @Success 302 {string} string "redirect to the caller's own history"
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/attendance [get]
func (h *StudentHandler) Attendance(c *gin.Context) {
	studentID, ok := h.ownStudentID(c, studentAttendanceURL)
	if !ok {
		return
	}
	student, err := h.service.Get(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	records, err := h.service.History(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if records == nil {
		records = []models.AttendanceRecord{}
	}
	response.JSON(c, http.StatusOK, studentAttendanceView{Student: *student, Records: records})
}

// ownStudentID returns the requested id, redirecting a student who asks for
// someone else's page to their own.
func (h *StudentHandler) ownStudentID(c *gin.Context, page func(int64) string) (int64, bool) {
	studentID, ok := int64Param(c, "id")
	if !ok {
		return 0, false
	}
	identity, _ := identityFromContext(c)
	if identity.Role == models.RoleStudent && identity.SubjectID != studentID {
		response.Redirect(c, page(identity.SubjectID))
		return 0, false
	}
	return studentID, true
}
