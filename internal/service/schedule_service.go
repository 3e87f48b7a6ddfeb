package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-attendance/internal/models"
	"github.com/noah-isme/school-attendance/pkg/clock"
)

const timetableCachePattern = "timetable:*"

type timetableReader interface {
	List(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableEntry, error)
}

// ResolveActive returns the entry running on day at tod. Entries are active on
// [StartTime, EndTime). When several match, the earliest start wins, then the
// lowest id.
func ResolveActive(entries []models.TimetableEntry, day models.Weekday, tod models.TimeOfDay) (models.TimetableEntry, bool) {
	var matches []models.TimetableEntry
	for _, entry := range entries {
		if entry.Covers(day, tod) {
			matches = append(matches, entry)
		}
	}
	if len(matches) == 0 {
		return models.TimetableEntry{}, false
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].StartTime != matches[j].StartTime {
			return matches[i].StartTime < matches[j].StartTime
		}
		return matches[i].ID < matches[j].ID
	})
	return matches[0], true
}

// ScheduleService answers which timetable entry, if any, is in session.
type ScheduleService struct {
	repo     timetableReader
	cache    *CacheService
	clock    clock.Clock
	metrics  *MetricsService
	logger   *zap.Logger
	cacheTTL time.Duration
}

// NewScheduleService constructs a ScheduleService. cache may be nil.
func NewScheduleService(repo timetableReader, cache *CacheService, clk clock.Clock, metrics *MetricsService, logger *zap.Logger, cacheTTL time.Duration) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.System()
	}
	return &ScheduleService{repo: repo, cache: cache, clock: clk, metrics: metrics, logger: logger, cacheTTL: cacheTTL}
}

// Resolve returns the entry matching filter on day at tod, or nil when nothing
// is in session. Read failures are logged and reported as nil.
func (s *ScheduleService) Resolve(ctx context.Context, filter models.TimetableFilter, day models.Weekday, tod models.TimeOfDay) *models.TimetableEntry {
	entries, err := s.entriesFor(ctx, filter, day)
	if err != nil {
		s.metrics.RecordScheduleLookupFailure()
		s.logger.Warn("timetable lookup failed, treating as no active session",
			zap.Int64("class_id", filter.ClassID),
			zap.Int64("teacher_id", filter.TeacherID),
			zap.Error(err),
		)
		return nil
	}
	entry, ok := ResolveActive(entries, day, tod)
	if !ok {
		return nil
	}
	return &entry
}

// ActiveForTeacher resolves the session running now for any class the teacher owns.
func (s *ScheduleService) ActiveForTeacher(ctx context.Context, teacherID int64) *models.TimetableEntry {
	now := s.clock.Now()
	return s.Resolve(ctx, models.TimetableFilter{TeacherID: teacherID}, models.WeekdayOf(now), models.TimeOfDayOf(now))
}

// ActiveForClass resolves the session running now for the class.
func (s *ScheduleService) ActiveForClass(ctx context.Context, classID int64) *models.TimetableEntry {
	now := s.clock.Now()
	return s.Resolve(ctx, models.TimetableFilter{ClassID: classID}, models.WeekdayOf(now), models.TimeOfDayOf(now))
}

func (s *ScheduleService) entriesFor(ctx context.Context, filter models.TimetableFilter, day models.Weekday) ([]models.TimetableEntry, error) {
	if filter.ClassID <= 0 && filter.TeacherID <= 0 {
		return nil, fmt.Errorf("timetable filter requires a class or teacher")
	}
	filter.Day = &day
	key := timetableCacheKey(filter, day)

	var cached []models.TimetableEntry
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}
	entries, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, entries, s.cacheTTL)
	return entries, nil
}

func timetableCacheKey(filter models.TimetableFilter, day models.Weekday) string {
	if filter.TeacherID > 0 {
		return fmt.Sprintf("timetable:teacher:%d:%d", filter.TeacherID, int(day))
	}
	return fmt.Sprintf("timetable:class:%d:%d", filter.ClassID, int(day))
}
