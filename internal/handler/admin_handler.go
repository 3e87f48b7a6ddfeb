package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-attendance/internal/models"
	"github.com/noah-isme/school-attendance/pkg/response"
)

type adminOverviewService interface {
	Overview(ctx context.Context) (*models.AdminOverview, error)
}

// AdminHandler serves the administrator's landing page.
type AdminHandler struct {
	service adminOverviewService
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(svc adminOverviewService) *AdminHandler {
	return &AdminHandler{service: svc}
}

// Dashboard godoc
// @Summary Admin dashboard
// @Description Counts of teachers, students, classes and timetable slots
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /admin/dashboard [get]
func (h *AdminHandler) Dashboard(c *gin.Context) {
	overview, err := h.service.Overview(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"overview": overview, "messages": popFlashes(c)})
}
