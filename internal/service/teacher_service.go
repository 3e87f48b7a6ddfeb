package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/noah-isme/school-attendance/internal/models"
	appErrors "github.com/noah-isme/school-attendance/pkg/errors"
)

type teacherReader interface {
	FindByID(ctx context.Context, id int64) (*models.Teacher, error)
}

type teacherScheduleResolver interface {
	ActiveForTeacher(ctx context.Context, teacherID int64) *models.TimetableEntry
}

// TeacherDashboard is what a teacher sees when no class redirect applies.
type TeacherDashboard struct {
	Teacher models.Teacher         `json:"teacher"`
	Active  *models.TimetableEntry `json:"active,omitempty"`
}

// TeacherService builds the teacher dashboard.
type TeacherService struct {
	teachers teacherReader
	schedule teacherScheduleResolver
}

// NewTeacherService constructs a TeacherService.
func NewTeacherService(teachers teacherReader, schedule teacherScheduleResolver) *TeacherService {
	return &TeacherService{teachers: teachers, schedule: schedule}
}

// Dashboard loads the teacher and the session they are teaching now, if any.
func (s *TeacherService) Dashboard(ctx context.Context, teacherID int64) (*TeacherDashboard, error) {
	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return &TeacherDashboard{Teacher: *teacher, Active: s.schedule.ActiveForTeacher(ctx, teacherID)}, nil
}
