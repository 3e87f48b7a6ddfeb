package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-attendance/internal/models"
	appErrors "github.com/noah-isme/school-attendance/pkg/errors"
)

const endAfterStartTag = "end_after_start"

type timetableStore interface {
	timetableReader
	FindByID(ctx context.Context, id int64) (*models.TimetableEntry, error)
	Create(ctx context.Context, entry *models.TimetableEntry) error
	Update(ctx context.Context, entry *models.TimetableEntry) error
	Delete(ctx context.Context, id int64) error
}

// RegisterTimetableRules adds the weekday, time_of_day and end-after-start rules to v.
func RegisterTimetableRules(v *validator.Validate) {
	_ = v.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
		return models.Weekday(fl.Field().Int()).Valid()
	})
	_ = v.RegisterValidation("time_of_day", func(fl validator.FieldLevel) bool {
		return models.TimeOfDay(fl.Field().Int()).Valid()
	})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		entry := sl.Current().Interface().(models.TimetableEntry)
		if entry.EndTime <= entry.StartTime {
			sl.ReportError(entry.EndTime, "EndTime", "end_time", endAfterStartTag, "")
		}
	}, models.TimetableEntry{})
}

// TimetableService administers timetable entries. Every write is validated
// before persistence and invalidates cached lookups.
type TimetableService struct {
	repo      timetableStore
	validator *validator.Validate
	cache     *CacheService
	logger    *zap.Logger
}

// NewTimetableService constructs a TimetableService.
func NewTimetableService(repo timetableStore, validate *validator.Validate, cache *CacheService, logger *zap.Logger) *TimetableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	RegisterTimetableRules(validate)
	return &TimetableService{repo: repo, validator: validate, cache: cache, logger: logger}
}

// List returns entries matching filter.
func (s *TimetableService) List(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableEntry, error) {
	entries, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetable")
	}
	if entries == nil {
		entries = []models.TimetableEntry{}
	}
	return entries, nil
}

// Get returns one entry.
func (s *TimetableService) Get(ctx context.Context, id int64) (*models.TimetableEntry, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable entry")
	}
	return entry, nil
}

// Create validates and stores a new entry.
func (s *TimetableService) Create(ctx context.Context, entry models.TimetableEntry) (*models.TimetableEntry, error) {
	entry.ID = 0
	if err := s.validate(entry); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, &entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timetable entry")
	}
	s.cache.Invalidate(ctx, timetableCachePattern)
	s.logger.Info("timetable entry created", zap.Int64("id", entry.ID), zap.Int64("class_id", entry.ClassID))
	return &entry, nil
}

// Update validates and overwrites an entry.
func (s *TimetableService) Update(ctx context.Context, id int64, entry models.TimetableEntry) (*models.TimetableEntry, error) {
	entry.ID = id
	if err := s.validate(entry); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, &entry); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update timetable entry")
	}
	s.cache.Invalidate(ctx, timetableCachePattern)
	return &entry, nil
}

// Delete removes an entry.
func (s *TimetableService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable entry not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timetable entry")
	}
	s.cache.Invalidate(ctx, timetableCachePattern)
	return nil
}

func (s *TimetableService) validate(entry models.TimetableEntry) error {
	err := s.validator.Struct(entry)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Tag() == endAfterStartTag {
				return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "End time must be after start time.")
			}
		}
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable entry")
}
