package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/noah-isme/school-attendance/internal/models"
	"github.com/noah-isme/school-attendance/pkg/clock"
	appErrors "github.com/noah-isme/school-attendance/pkg/errors"
)

const unknownClassName = "(unknown)"

type rosterStore interface {
	ListByClassAndDate(ctx context.Context, classID int64, date time.Time) ([]models.AttendanceRecord, error)
	InsertBatch(ctx context.Context, records []models.AttendanceRecord) (int, error)
}

type enrollmentSource interface {
	RegisteredStudentIDs(ctx context.Context, classID int64) ([]int64, error)
	SectionStudentIDs(ctx context.Context, classID int64) ([]int64, error)
}

type classReader interface {
	FindByID(ctx context.Context, id int64) (*models.Class, error)
}

// RosterService materializes the default attendance roster of a class for a
// date. Concurrent calls for the same (class, date) share one materialization
// and the store's unique index on (class_id, student_id, date) discards any
// duplicate rows written by another instance.
type RosterService struct {
	attendance rosterStore
	enrollment enrollmentSource
	classes    classReader
	clock      clock.Clock
	metrics    *MetricsService
	logger     *zap.Logger
	group      singleflight.Group
}

// NewRosterService constructs a RosterService.
func NewRosterService(attendance rosterStore, enrollment enrollmentSource, classes classReader, clk clock.Clock, metrics *MetricsService, logger *zap.Logger) *RosterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.System()
	}
	return &RosterService{attendance: attendance, enrollment: enrollment, classes: classes, clock: clk, metrics: metrics, logger: logger}
}

// EnsureRoster returns the attendance records of classID on date, creating one
// "Absent" record per enrolled student when none exist yet. Existing records
// are returned untouched. A class with no enrolled students yields an empty
// roster and writes nothing.
func (s *RosterService) EnsureRoster(ctx context.Context, classID int64, date time.Time) ([]models.AttendanceRecord, error) {
	date = clock.Today(date)
	key := fmt.Sprintf("%d|%s", classID, date.Format("2006-01-02"))

	// shared work must not die with the first caller's request
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		return s.materialize(shared, classID, date)
	})
	if err != nil {
		return nil, err
	}
	records := v.([]models.AttendanceRecord)
	out := make([]models.AttendanceRecord, len(records))
	copy(out, records)
	return out, nil
}

// Today returns the roster page for classID on the current date.
func (s *RosterService) Today(ctx context.Context, classID int64) (*models.Roster, error) {
	roster := &models.Roster{ClassID: classID, ClassName: unknownClassName, Date: clock.Today(s.clock.Now())}

	class, err := s.classes.FindByID(ctx, classID)
	switch {
	case err == nil:
		roster.ClassName = class.ClassName
		roster.TeacherID = class.TeacherID
	case errors.Is(err, sql.ErrNoRows):
		// the roster still renders for a class row that has gone
	default:
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	records, err := s.EnsureRoster(ctx, classID, roster.Date)
	if err != nil {
		return nil, err
	}
	roster.Records = records
	return roster, nil
}

func (s *RosterService) materialize(ctx context.Context, classID int64, date time.Time) ([]models.AttendanceRecord, error) {
	existing, err := s.attendance.ListByClassAndDate(ctx, classID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	if len(existing) > 0 {
		return existing, nil
	}

	students, err := s.enrolledStudents(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve enrollment")
	}
	if len(students) == 0 {
		return []models.AttendanceRecord{}, nil
	}

	batch := make([]models.AttendanceRecord, 0, len(students))
	for _, studentID := range students {
		batch = append(batch, models.AttendanceRecord{
			ClassID:   classID,
			StudentID: studentID,
			Date:      date,
			Status:    models.StatusAbsent,
		})
	}
	inserted, err := s.attendance.InsertBatch(ctx, batch)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create attendance roster")
	}
	if inserted > 0 {
		s.metrics.RecordRosterMaterialized(inserted)
		s.logger.Info("attendance roster materialized",
			zap.Int64("class_id", classID),
			zap.String("date", date.Format("2006-01-02")),
			zap.Int("records", inserted),
		)
	}

	records, err := s.attendance.ListByClassAndDate(ctx, classID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload attendance")
	}
	return records, nil
}

func (s *RosterService) enrolledStudents(ctx context.Context, classID int64) ([]int64, error) {
	registered, err := s.enrollment.RegisteredStudentIDs(ctx, classID)
	if err != nil {
		return nil, err
	}
	if len(registered) > 0 {
		return dedupeIDs(registered), nil
	}
	section, err := s.enrollment.SectionStudentIDs(ctx, classID)
	if err != nil {
		return nil, err
	}
	return dedupeIDs(section), nil
}

func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
