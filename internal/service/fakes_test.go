package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/school-attendance/internal/models"
	appErrors "github.com/noah-isme/school-attendance/pkg/errors"
)

var monday = time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)

type fakeTimetableRepo struct {
	mu      sync.Mutex
	entries []models.TimetableEntry
	classes map[int64]int64 // class id -> teacher id
	err     error
	calls   int
	nextID  int64
}

func (f *fakeTimetableRepo) List(_ context.Context, filter models.TimetableFilter) ([]models.TimetableEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []models.TimetableEntry
	for _, e := range f.entries {
		if filter.ClassID > 0 && e.ClassID != filter.ClassID {
			continue
		}
		if filter.TeacherID > 0 && f.classes[e.ClassID] != filter.TeacherID {
			continue
		}
		if filter.Day != nil && e.Day != *filter.Day {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeTimetableRepo) FindByID(_ context.Context, id int64) (*models.TimetableEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.ID == id {
			entry := e
			return &entry, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeTimetableRepo) Create(_ context.Context, entry *models.TimetableEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	entry.ID = f.nextID
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeTimetableRepo) Update(_ context.Context, entry *models.TimetableEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, e := range f.entries {
		if e.ID == entry.ID {
			f.entries[i] = *entry
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeTimetableRepo) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, e := range f.entries {
		if e.ID == id {
			f.entries = append(f.entries[:i], f.entries[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

// fakeAttendanceStore enforces no uniqueness of its own, so duplicate rows
// would surface in tests.
type fakeAttendanceStore struct {
	mu          sync.Mutex
	records     []models.AttendanceRecord
	nextID      int64
	insertCalls int
	insertDelay time.Duration
	updateErr   error
	findErr     error
	updates     int
}

func (f *fakeAttendanceStore) ListByClassAndDate(_ context.Context, classID int64, date time.Time) ([]models.AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.AttendanceRecord
	for _, r := range f.records {
		if r.ClassID == classID && r.Date.Equal(date) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeAttendanceStore) ListByStudent(_ context.Context, studentID int64) ([]models.AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.AttendanceRecord
	for _, r := range f.records {
		if r.StudentID == studentID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeAttendanceStore) InsertBatch(_ context.Context, records []models.AttendanceRecord) (int, error) {
	if f.insertDelay > 0 {
		time.Sleep(f.insertDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertCalls++
	for _, r := range records {
		f.nextID++
		r.ID = f.nextID
		f.records = append(f.records, r)
	}
	return len(records), nil
}

func (f *fakeAttendanceStore) FindByIDs(_ context.Context, ids []int64) ([]models.AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []models.AttendanceRecord
	for _, r := range f.records {
		if want[r.ID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeAttendanceStore) UpdateStatuses(_ context.Context, records []models.AttendanceRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates++
	for _, rec := range records {
		for i := range f.records {
			if f.records[i].ID == rec.ID {
				f.records[i].Status = rec.Status
			}
		}
	}
	return nil
}

func (f *fakeAttendanceStore) statuses() map[int64]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[int64]string, len(f.records))
	for _, r := range f.records {
		out[r.ID] = r.Status
	}
	return out
}

type fakeEnrollment struct {
	registered map[int64][]int64
	section    map[int64][]int64
	err        error
}

func (f *fakeEnrollment) RegisteredStudentIDs(_ context.Context, classID int64) ([]int64, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.registered[classID], nil
}

func (f *fakeEnrollment) SectionStudentIDs(_ context.Context, classID int64) ([]int64, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.section[classID], nil
}

type fakeClassRepo struct {
	classes map[int64]models.Class
}

func (f *fakeClassRepo) FindByID(_ context.Context, id int64) (*models.Class, error) {
	class, ok := f.classes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &class, nil
}

type fakeTeacherRepo struct {
	mu       sync.Mutex
	teachers []models.Teacher
	err      error
}

func (f *fakeTeacherRepo) FindByID(_ context.Context, id int64) (*models.Teacher, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, t := range f.teachers {
		if t.ID == id {
			teacher := t
			return &teacher, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeTeacherRepo) FindByEmail(_ context.Context, email string) (*models.Teacher, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, t := range f.teachers {
		if strings.EqualFold(t.Email, email) {
			teacher := t
			return &teacher, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeTeacherRepo) UpdatePassword(_ context.Context, id int64, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.teachers {
		if f.teachers[i].ID == id {
			f.teachers[i].Password = password
			return nil
		}
	}
	return sql.ErrNoRows
}

type fakeStudentRepo struct {
	mu       sync.Mutex
	students []models.Student
}

func (f *fakeStudentRepo) FindByID(_ context.Context, id int64) (*models.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.students {
		if s.ID == id {
			student := s
			return &student, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStudentRepo) FindByEmail(_ context.Context, email string) (*models.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.students {
		if strings.EqualFold(s.Email, email) {
			student := s
			return &student, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStudentRepo) UpdatePassword(_ context.Context, id int64, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.students {
		if f.students[i].ID == id {
			f.students[i].Password = password
			return nil
		}
	}
	return sql.ErrNoRows
}

type fakeCacheRepo struct {
	mu          sync.Mutex
	items       map[string][]byte
	invalidated []string
}

func newFakeCacheRepo() *fakeCacheRepo {
	return &fakeCacheRepo{items: make(map[string][]byte)}
}

func (f *fakeCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakeCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.items[key] = raw
	return nil
}

func (f *fakeCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range f.items {
		if strings.HasPrefix(key, prefix) {
			delete(f.items, key)
		}
	}
	return nil
}

type fakeMailer struct {
	mu   sync.Mutex
	err  error
	sent []string
}

func (f *fakeMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to+"|"+subject+"|"+htmlBody)
	return nil
}

var errStoreDown = errors.New("store unavailable")
