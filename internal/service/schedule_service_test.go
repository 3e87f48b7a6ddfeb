package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-attendance/internal/models"
	"github.com/noah-isme/school-attendance/pkg/clock"
)

func slot(id, classID int64, day time.Weekday, start, end models.TimeOfDay) models.TimetableEntry {
	return models.TimetableEntry{ID: id, ClassID: classID, Day: models.Weekday(day), StartTime: start, EndTime: end}
}

func TestResolveActiveHalfOpenInterval(t *testing.T) {
	entries := []models.TimetableEntry{slot(1, 5, time.Monday, models.NewTimeOfDay(9, 0, 0), models.NewTimeOfDay(10, 0, 0))}
	mon := models.Weekday(time.Monday)

	cases := []struct {
		name   string
		at     models.TimeOfDay
		active bool
	}{
		{"at start", models.NewTimeOfDay(9, 0, 0), true},
		{"last minute", models.NewTimeOfDay(9, 59, 0), true},
		{"at end", models.NewTimeOfDay(10, 0, 0), false},
		{"before start", models.NewTimeOfDay(8, 59, 0), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := ResolveActive(entries, mon, tc.at)
			assert.Equal(t, tc.active, ok)
		})
	}

	_, ok := ResolveActive(entries, models.Weekday(time.Tuesday), models.NewTimeOfDay(9, 30, 0))
	assert.False(t, ok)
}

func TestResolveActiveTieBreak(t *testing.T) {
	nine, ten := models.NewTimeOfDay(9, 0, 0), models.NewTimeOfDay(10, 0, 0)
	entries := []models.TimetableEntry{
		slot(7, 5, time.Monday, nine, ten),
		slot(3, 5, time.Monday, nine, ten),
		slot(2, 5, time.Monday, models.NewTimeOfDay(9, 15, 0), ten),
	}
	mon := models.Weekday(time.Monday)

	for i := 0; i < 20; i++ {
		entry, ok := ResolveActive(entries, mon, models.NewTimeOfDay(9, 30, 0))
		require.True(t, ok)
		assert.Equal(t, int64(3), entry.ID)
	}

	// input order must not matter
	entries[0], entries[1] = entries[1], entries[0]
	entry, _ := ResolveActive(entries, mon, models.NewTimeOfDay(9, 30, 0))
	assert.Equal(t, int64(3), entry.ID)
}

func TestScheduleServiceActiveForTeacher(t *testing.T) {
	repo := &fakeTimetableRepo{
		entries: []models.TimetableEntry{
			slot(1, 5, time.Monday, models.NewTimeOfDay(9, 0, 0), models.NewTimeOfDay(10, 0, 0)),
			slot(2, 6, time.Monday, models.NewTimeOfDay(9, 0, 0), models.NewTimeOfDay(10, 0, 0)),
		},
		classes: map[int64]int64{5: 100, 6: 200},
	}
	clk := clock.NewFixed(monday)
	svc := NewScheduleService(repo, nil, clk, nil, nil, 0)

	active := svc.ActiveForTeacher(context.Background(), 200)
	require.NotNil(t, active)
	assert.Equal(t, int64(6), active.ClassID)

	clk.Set(time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC))
	assert.Nil(t, svc.ActiveForTeacher(context.Background(), 200))
	assert.Nil(t, svc.ActiveForTeacher(context.Background(), 300))
}

func TestScheduleServiceSwallowsReadErrors(t *testing.T) {
	repo := &fakeTimetableRepo{err: errStoreDown}
	metrics := NewMetricsService()
	svc := NewScheduleService(repo, nil, clock.NewFixed(monday), metrics, nil, 0)

	assert.Nil(t, svc.ActiveForClass(context.Background(), 5))
	assert.Nil(t, svc.ActiveForTeacher(context.Background(), 1))

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	var failures float64
	for _, fam := range families {
		if fam.GetName() == "schedule_lookup_failures_total" {
			failures = fam.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(2), failures)
}

func TestScheduleServiceUsesCache(t *testing.T) {
	repo := &fakeTimetableRepo{entries: []models.TimetableEntry{
		slot(1, 5, time.Monday, models.NewTimeOfDay(9, 0, 0), models.NewTimeOfDay(10, 0, 0)),
	}}
	cacheRepo := newFakeCacheRepo()
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	svc := NewScheduleService(repo, cache, clock.NewFixed(monday), nil, nil, time.Minute)

	first := svc.ActiveForClass(context.Background(), 5)
	second := svc.ActiveForClass(context.Background(), 5)
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, *first, *second)
	assert.Equal(t, 1, repo.calls)
	assert.Contains(t, cacheRepo.items, "timetable:class:5:1")
}
