package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-attendance/internal/models"
	"github.com/noah-isme/school-attendance/pkg/clock"
	appErrors "github.com/noah-isme/school-attendance/pkg/errors"
)

// Messages reported after a save.
const (
	MessageAttendanceSaved = "Attendance saved."
	MessageNoChanges       = "No changes detected."
)

type attendanceWriter interface {
	FindByIDs(ctx context.Context, ids []int64) ([]models.AttendanceRecord, error)
	UpdateStatuses(ctx context.Context, records []models.AttendanceRecord) error
}

// AttendanceService reconciles submitted status edits against a roster.
type AttendanceService struct {
	repo    attendanceWriter
	clock   clock.Clock
	metrics *MetricsService
	logger  *zap.Logger
}

// NewAttendanceService constructs an AttendanceService.
func NewAttendanceService(repo attendanceWriter, clk clock.Clock, metrics *MetricsService, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.System()
	}
	return &AttendanceService{repo: repo, clock: clk, metrics: metrics, logger: logger}
}

// ApplyUpdates writes every edit whose record belongs to classID on date and
// whose status differs from the stored one, and returns how many changed.
// Unknown ids, records of another class or date and blank statuses are
// skipped. The write is all-or-nothing; any failure yields ErrSaveFailed.
func (s *AttendanceService) ApplyUpdates(ctx context.Context, classID int64, date time.Time, edits map[int64]string) (int, error) {
	if len(edits) == 0 {
		return 0, nil
	}
	date = clock.Today(date)

	ids := make([]int64, 0, len(edits))
	for id := range edits {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	records, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return 0, s.saveFailed(err, classID)
	}
	byID := make(map[int64]models.AttendanceRecord, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec
	}

	var dirty []models.AttendanceRecord
	for _, id := range ids {
		status := strings.TrimSpace(edits[id])
		if status == "" {
			continue
		}
		rec, ok := byID[id]
		if !ok || rec.ClassID != classID || !clock.Today(rec.Date).Equal(date) {
			continue
		}
		if rec.Status == status {
			continue
		}
		rec.Status = status
		dirty = append(dirty, rec)
	}
	if len(dirty) == 0 {
		return 0, nil
	}

	if err := s.repo.UpdateStatuses(ctx, dirty); err != nil {
		return 0, s.saveFailed(err, classID)
	}
	s.metrics.RecordAttendanceChanges(len(dirty))
	return len(dirty), nil
}

// SaveToday reconciles edits against today's roster and phrases the outcome.
func (s *AttendanceService) SaveToday(ctx context.Context, classID int64, edits map[int64]string) (*models.SaveAttendanceResult, error) {
	changed, err := s.ApplyUpdates(ctx, classID, s.clock.Now(), edits)
	if err != nil {
		return nil, err
	}
	result := &models.SaveAttendanceResult{Changed: changed, Message: MessageNoChanges}
	if changed > 0 {
		result.Message = MessageAttendanceSaved
	}
	return result, nil
}

func (s *AttendanceService) saveFailed(err error, classID int64) error {
	s.metrics.RecordAttendanceSaveFailure()
	s.logger.Error("attendance save failed", zap.Int64("class_id", classID), zap.Error(err))
	return appErrors.Wrap(err, appErrors.ErrSaveFailed.Code, appErrors.ErrSaveFailed.Status, appErrors.ErrSaveFailed.Message)
}
