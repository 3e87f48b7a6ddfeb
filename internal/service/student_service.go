package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/noah-isme/school-attendance/internal/models"
	appErrors "github.com/noah-isme/school-attendance/pkg/errors"
)

type studentReader interface {
	FindByID(ctx context.Context, id int64) (*models.Student, error)
}

type studentHistoryReader interface {
	ListByStudent(ctx context.Context, studentID int64) ([]models.AttendanceRecord, error)
}

// StudentService serves the student dashboard and attendance history.
type StudentService struct {
	students   studentReader
	attendance studentHistoryReader
}

// NewStudentService constructs a StudentService.
func NewStudentService(students studentReader, attendance studentHistoryReader) *StudentService {
	return &StudentService{students: students, attendance: attendance}
}

// Get returns a student by id.
func (s *StudentService) Get(ctx context.Context, id int64) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// History returns the student's attendance records, newest first.
func (s *StudentService) History(ctx context.Context, id int64) ([]models.AttendanceRecord, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	records, err := s.attendance.ListByStudent(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance history")
	}
	if records == nil {
		records = []models.AttendanceRecord{}
	}
	return records, nil
}
