package models

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Weekday mirrors time.Weekday (Sunday = 0) and is stored as an integer.
type Weekday int

// WeekdayOf returns the weekday of t.
func WeekdayOf(t time.Time) Weekday {
	return Weekday(t.Weekday())
}

// Valid reports whether d is Sunday..Saturday.
func (d Weekday) Valid() bool {
	return d >= 0 && d <= 6
}

func (d Weekday) String() string {
	if !d.Valid() {
		return "Weekday(" + strconv.Itoa(int(d)) + ")"
	}
	return time.Weekday(d).String()
}

// MarshalText renders the English day name.
func (d Weekday) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid weekday %d", int(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText accepts full or three-letter English names, case-insensitive, or 0-6.
func (d *Weekday) UnmarshalText(text []byte) error {
	parsed, err := ParseWeekday(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// UnmarshalJSON accepts a quoted day name or a bare number.
func (d *Weekday) UnmarshalJSON(data []byte) error {
	return d.UnmarshalText([]byte(strings.Trim(string(data), `"`)))
}

// ParseWeekday parses a day name or number.
func ParseWeekday(raw string) (Weekday, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		day := Weekday(n)
		if !day.Valid() {
			return 0, fmt.Errorf("invalid weekday %q", raw)
		}
		return day, nil
	}
	lower := strings.ToLower(raw)
	for i := time.Sunday; i <= time.Saturday; i++ {
		name := strings.ToLower(i.String())
		if lower == name || (len(lower) == 3 && strings.HasPrefix(name, lower)) {
			return Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("invalid weekday %q", raw)
}

// TimeOfDay is an offset from local midnight, without a date.
type TimeOfDay time.Duration

const day = TimeOfDay(24 * time.Hour)

// NewTimeOfDay builds a TimeOfDay from clock components.
func NewTimeOfDay(hour, minute, second int) TimeOfDay {
	return TimeOfDay(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute + time.Duration(second)*time.Second)
}

// TimeOfDayOf returns the time-of-day component of t in t's location.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return NewTimeOfDay(t.Hour(), t.Minute(), t.Second()) + TimeOfDay(t.Nanosecond())
}

// ParseTimeOfDay accepts "15:04" or "15:04:05".
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return NewTimeOfDay(t.Hour(), t.Minute(), t.Second()), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q", raw)
}

// Valid reports whether t lies within a single day.
func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < day
}

func (t TimeOfDay) String() string {
	d := time.Duration(t)
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	s := int((d % time.Minute) / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// MarshalText renders HH:MM:SS.
func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses HH:MM or HH:MM:SS.
func (t *TimeOfDay) UnmarshalText(text []byte) error {
	parsed, err := ParseTimeOfDay(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Value stores the value as a postgres TIME literal.
func (t TimeOfDay) Value() (driver.Value, error) {
	return t.String(), nil
}

// Scan reads postgres TIME values, which lib/pq returns as text, or a time.Time.
func (t *TimeOfDay) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*t = 0
		return nil
	case time.Time:
		*t = TimeOfDayOf(v)
		return nil
	case []byte:
		return t.scanString(string(v))
	case string:
		return t.scanString(v)
	default:
		return fmt.Errorf("cannot scan %T into TimeOfDay", src)
	}
}

func (t *TimeOfDay) scanString(raw string) error {
	// drop fractional seconds
	if i := strings.IndexByte(raw, '.'); i >= 0 {
		raw = raw[:i]
	}
	parsed, err := ParseTimeOfDay(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// TimetableEntry is a weekly recurring slot bound to a class.
type TimetableEntry struct {
	ID        int64     `db:"id" json:"id"`
	ClassID   int64     `db:"class_id" json:"class_id" validate:"required,gt=0"`
	SectionID *int64    `db:"section_id" json:"section_id,omitempty" validate:"omitempty,gt=0"`
	Day       Weekday   `db:"day_of_week" json:"day_of_week" validate:"weekday"`
	StartTime TimeOfDay `db:"start_time" json:"start_time" validate:"time_of_day"`
	EndTime   TimeOfDay `db:"end_time" json:"end_time" validate:"time_of_day"`
}

// Covers reports whether the entry is running on day at tod. The interval is
// half-open: active at StartTime, ended at EndTime.
func (e TimetableEntry) Covers(d Weekday, tod TimeOfDay) bool {
	return e.Day == d && e.StartTime <= tod && tod < e.EndTime
}

// TimetableFilter narrows timetable reads. TeacherID matches the owning
// teacher of the entry's class.
type TimetableFilter struct {
	ClassID   int64
	TeacherID int64
	Day       *Weekday
}
