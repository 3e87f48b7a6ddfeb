package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-attendance/internal/models"
	appErrors "github.com/noah-isme/school-attendance/pkg/errors"
	"github.com/noah-isme/school-attendance/pkg/response"
)

type timetableAdminService interface {
	List(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableEntry, error)
	Get(ctx context.Context, id int64) (*models.TimetableEntry, error)
	Create(ctx context.Context, entry models.TimetableEntry) (*models.TimetableEntry, error)
	Update(ctx context.Context, id int64, entry models.TimetableEntry) (*models.TimetableEntry, error)
	Delete(ctx context.Context, id int64) error
}

// TimetableHandler exposes timetable administration.
type TimetableHandler struct {
	service timetableAdminService
}

// NewTimetableHandler constructs a TimetableHandler.
func NewTimetableHandler(svc timetableAdminService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// List godoc
// @Summary List timetable entries
// @Tags Timetables
// @Produce json
// @Param class_id query int false "Class ID"
// @Param teacher_id query int false "Teacher ID"
// @Param day query string false "Weekday name or 0-6"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/timetables [get]
func (h *TimetableHandler) List(c *gin.Context) {
	filter, err := parseTimetableFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	entries, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	if entries == nil {
		entries = []models.TimetableEntry{}
	}
	response.JSON(c, http.StatusOK, entries, map[string]interface{}{"count": len(entries)})
}

// Get godoc
// @Summary Get timetable entry
// @Tags Timetables
// @Produce json
// @Param id path int true "Entry ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/timetables/{id} [get]
func (h *TimetableHandler) Get(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	entry, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry)
}

// Create godoc
// @Summary Create timetable entry
// @Description end_time must be after start_time
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body models.TimetableEntry true "Entry"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/timetables [post]
func (h *TimetableHandler) Create(c *gin.Context) {
	var entry models.TimetableEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable payload"))
		return
	}
	created, err := h.service.Create(c.Request.Context(), entry)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Update godoc
// @Summary Update timetable entry
// @Tags Timetables
// @Accept json
// @Produce json
// @Param id path int true "Entry ID"
// @Param payload body models.TimetableEntry true "Entry"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/timetables/{id} [put]
func (h *TimetableHandler) Update(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var entry models.TimetableEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable payload"))
		return
	}
	updated, err := h.service.Update(c.Request.Context(), id, entry)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated)
}

// Delete godoc
// @Summary Delete timetable entry
// @Tags Timetables
// @Param id path int true "Entry ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /admin/timetables/{id} [delete]
func (h *TimetableHandler) Delete(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func parseTimetableFilter(c *gin.Context) (models.TimetableFilter, error) {
	var filter models.TimetableFilter
	var err error
	if raw := c.Query("class_id"); raw != "" {
		if filter.ClassID, err = strconv.ParseInt(raw, 10, 64); err != nil || filter.ClassID <= 0 {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid class_id")
		}
	}
	if raw := c.Query("teacher_id"); raw != "" {
		if filter.TeacherID, err = strconv.ParseInt(raw, 10, 64); err != nil || filter.TeacherID <= 0 {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid teacher_id")
		}
	}
	if raw := c.Query("day"); raw != "" {
		day, err := models.ParseWeekday(raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid day")
		}
		filter.Day = &day
	}
	return filter, nil
}
