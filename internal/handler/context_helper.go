package handler

import (
	"fmt"
	"strconv"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-attendance/internal/middleware"
	"github.com/noah-isme/school-attendance/internal/models"
	appErrors "github.com/noah-isme/school-attendance/pkg/errors"
	"github.com/noah-isme/school-attendance/pkg/response"
)

func identityFromContext(c *gin.Context) (models.SessionIdentity, bool) {
	return middleware.CurrentIdentity(c)
}

// int64Param parses a positive path parameter, writing a 400 when it is not.
func int64Param(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid %s", name)))
		return 0, false
	}
	return id, true
}

func teacherDashboardURL(teacherID int64) string {
	return fmt.Sprintf("/teachers/%d/dashboard", teacherID)
}

func attendanceURL(classID int64) string {
	return fmt.Sprintf("/teachers/attendance/%d", classID)
}

func studentDashboardURL(studentID int64) string {
	return fmt.Sprintf("/students/%d/dashboard", studentID)
}

func studentAttendanceURL(studentID int64) string {
	return fmt.Sprintf("/students/%d/attendance", studentID)
}

const adminDashboardURL = "/admin/dashboard"

// homeURL is the landing page for a logged in identity.
func homeURL(identity models.SessionIdentity) string {
	switch identity.Role {
	case models.RoleStudent:
		return studentDashboardURL(identity.SubjectID)
	case models.RoleAdmin:
		return adminDashboardURL
	default:
		return teacherDashboardURL(identity.SubjectID)
	}
}

// pushFlash queues a message for the next page the browser lands on.
func pushFlash(c *gin.Context, message string) {
	session := sessions.Default(c)
	session.AddFlash(message)
	_ = session.Save()
}

// popFlashes drains queued messages.
func popFlashes(c *gin.Context) []string {
	session := sessions.Default(c)
	raw := session.Flashes()
	if len(raw) == 0 {
		return nil
	}
	_ = session.Save()
	messages := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			messages = append(messages, s)
		}
	}
	return messages
}
