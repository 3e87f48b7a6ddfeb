package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/school-attendance/internal/models"
)

// AttendanceRepository persists per-class attendance records. The attendances
// table carries a unique index on (class_id, student_id, date).
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs an AttendanceRepository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// ListByClassAndDate returns the roster for a class on a date ordered by id.
func (r *AttendanceRepository) ListByClassAndDate(ctx context.Context, classID int64, date time.Time) ([]models.AttendanceRecord, error) {
	const query = `SELECT a.id, a.class_id, a.student_id, COALESCE(s.name, '') AS student_name, a.date, a.status
FROM attendances a
LEFT JOIN students s ON s.id = a.student_id
WHERE a.class_id = $1 AND a.date = $2
ORDER BY a.id`
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, classID, date); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return records, nil
}

// ListByStudent returns a student's attendance history, newest first.
func (r *AttendanceRepository) ListByStudent(ctx context.Context, studentID int64) ([]models.AttendanceRecord, error) {
	const query = `SELECT a.id, a.class_id, COALESCE(c.class_name, '') AS class_name, a.student_id, a.date, a.status
FROM attendances a
LEFT JOIN classes c ON c.id = a.class_id
WHERE a.student_id = $1
ORDER BY a.date DESC, a.id`
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, studentID); err != nil {
		return nil, fmt.Errorf("list student attendance: %w", err)
	}
	return records, nil
}

// FindByIDs loads the records with the given ids. Unknown ids are absent from the result.
func (r *AttendanceRepository) FindByIDs(ctx context.Context, ids []int64) ([]models.AttendanceRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `SELECT id, class_id, student_id, date, status FROM attendances WHERE id = ANY($1)`
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find attendance by ids: %w", err)
	}
	return records, nil
}

// InsertBatch inserts records in one transaction. Rows that already exist for
// the same (class, student, date) are skipped. Returns the number inserted.
func (r *AttendanceRepository) InsertBatch(ctx context.Context, records []models.AttendanceRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin attendance insert: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO attendances (class_id, student_id, date, status)
VALUES ($1, $2, $3, $4)
ON CONFLICT (class_id, student_id, date) DO NOTHING`
	inserted := 0
	for _, rec := range records {
		res, err := tx.ExecContext(ctx, query, rec.ClassID, rec.StudentID, rec.Date, rec.Status)
		if err != nil {
			return 0, fmt.Errorf("insert attendance: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit attendance insert: %w", err)
	}
	committed = true
	return inserted, nil
}

// UpdateStatuses writes the status of every given record in one transaction.
// Either all rows are updated or none are.
func (r *AttendanceRepository) UpdateStatuses(ctx context.Context, records []models.AttendanceRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin attendance update: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	for _, rec := range records {
		if _, err := tx.ExecContext(ctx, `UPDATE attendances SET status = $1 WHERE id = $2`, rec.Status, rec.ID); err != nil {
			return fmt.Errorf("update attendance %d: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit attendance update: %w", err)
	}
	committed = true
	return nil
}
