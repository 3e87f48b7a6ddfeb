package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeOfDayParseAndFormat(t *testing.T) {
	tod, err := ParseTimeOfDay("09:30")
	require.NoError(t, err)
	assert.Equal(t, NewTimeOfDay(9, 30, 0), tod)
	assert.Equal(t, "09:30:00", tod.String())

	_, err = ParseTimeOfDay("25:00")
	assert.Error(t, err)
}

func TestTimeOfDayScan(t *testing.T) {
	var tod TimeOfDay
	require.NoError(t, tod.Scan([]byte("10:15:30.000000")))
	assert.Equal(t, NewTimeOfDay(10, 15, 30), tod)

	require.NoError(t, tod.Scan(time.Date(0, 1, 1, 8, 0, 0, 0, time.UTC)))
	assert.Equal(t, NewTimeOfDay(8, 0, 0), tod)

	assert.Error(t, tod.Scan(42))
}

func TestWeekdayText(t *testing.T) {
	for _, raw := range []string{"Monday", "mon", "MONDAY", "1"} {
		d, err := ParseWeekday(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, Weekday(time.Monday), d)
	}
	_, err := ParseWeekday("funday")
	assert.Error(t, err)
	_, err = ParseWeekday("7")
	assert.Error(t, err)

	text, err := Weekday(time.Friday).MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "Friday", string(text))
}

func TestTimetableEntryJSON(t *testing.T) {
	var entry TimetableEntry
	require.NoError(t, json.Unmarshal([]byte(`{"class_id":3,"day_of_week":2,"start_time":"08:00","end_time":"08:45"}`), &entry))
	assert.Equal(t, Weekday(time.Tuesday), entry.Day)
	assert.Equal(t, NewTimeOfDay(8, 45, 0), entry.EndTime)

	out, err := json.Marshal(entry)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"day_of_week":"Tuesday"`)
	assert.Contains(t, string(out), `"start_time":"08:00:00"`)

	var back TimetableEntry
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, entry, back)
}

func TestTimetableEntryCoversHalfOpen(t *testing.T) {
	entry := TimetableEntry{Day: Weekday(time.Monday), StartTime: NewTimeOfDay(9, 0, 0), EndTime: NewTimeOfDay(10, 0, 0)}
	mon := Weekday(time.Monday)

	assert.True(t, entry.Covers(mon, NewTimeOfDay(9, 0, 0)))
	assert.True(t, entry.Covers(mon, NewTimeOfDay(9, 59, 59)))
	assert.False(t, entry.Covers(mon, NewTimeOfDay(10, 0, 0)))
	assert.False(t, entry.Covers(mon, NewTimeOfDay(8, 59, 59)))
	assert.False(t, entry.Covers(Weekday(time.Tuesday), NewTimeOfDay(9, 30, 0)))
}

func TestResetCodeValidAt(t *testing.T) {
	now := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	code := ResetCode{Code: "012345", ExpiresAt: now.Add(15 * time.Minute)}

	assert.True(t, code.ValidAt(now.Add(14*time.Minute+59*time.Second)))
	assert.False(t, code.ValidAt(now.Add(15*time.Minute)))
	assert.False(t, ResetCode{}.ValidAt(now))
}

func TestTeacherRole(t *testing.T) {
	assert.Equal(t, RoleTeacher, Teacher{}.Role())
	assert.Equal(t, RoleAdmin, Teacher{IsAdmin: true}.Role())
	_, ok := ParseRole("SUPERADMIN")
	assert.False(t, ok)
}
