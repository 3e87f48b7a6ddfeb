package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-attendance/internal/models"
)

const timetableColumns = "t.id, t.class_id, t.section_id, t.day_of_week, t.start_time, t.end_time"

// TimetableRepository manages persistence for weekly timetable entries.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs a TimetableRepository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

// List returns timetable entries matching the filter ordered by day, start and id.
func (r *TimetableRepository) List(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableEntry, error) {
	from := "FROM timetables t"
	var conditions []string
	var args []interface{}

	if filter.TeacherID > 0 {
		from += " JOIN classes c ON c.id = t.class_id"
		conditions = append(conditions, fmt.Sprintf("c.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.ClassID > 0 {
		conditions = append(conditions, fmt.Sprintf("t.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.Day != nil {
		conditions = append(conditions, fmt.Sprintf("t.day_of_week = $%d", len(args)+1))
		args = append(args, int(*filter.Day))
	}

	query := fmt.Sprintf("SELECT %s %s", timetableColumns, from)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY t.day_of_week, t.start_time, t.id"

	var entries []models.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list timetables: %w", err)
	}
	return entries, nil
}

// FindByID fetches a timetable entry by id.
func (r *TimetableRepository) FindByID(ctx context.Context, id int64) (*models.TimetableEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM timetables t WHERE t.id = $1", timetableColumns)
	var entry models.TimetableEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Create inserts a timetable entry and records the assigned id.
func (r *TimetableRepository) Create(ctx context.Context, entry *models.TimetableEntry) error {
	const query = `INSERT INTO timetables (class_id, section_id, day_of_week, start_time, end_time)
VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, entry.ClassID, entry.SectionID, int(entry.Day), entry.StartTime, entry.EndTime).Scan(&entry.ID); err != nil {
		return fmt.Errorf("create timetable: %w", err)
	}
	return nil
}

// Update overwrites a timetable entry. Returns sql.ErrNoRows when the id is unknown.
func (r *TimetableRepository) Update(ctx context.Context, entry *models.TimetableEntry) error {
	const query = `UPDATE timetables SET class_id = $1, section_id = $2, day_of_week = $3, start_time = $4, end_time = $5 WHERE id = $6`
	res, err := r.db.ExecContext(ctx, query, entry.ClassID, entry.SectionID, int(entry.Day), entry.StartTime, entry.EndTime, entry.ID)
	if err != nil {
		return fmt.Errorf("update timetable: %w", err)
	}
	return requireAffected(res, "update timetable")
}

// Delete removes a timetable entry. Returns sql.ErrNoRows when the id is unknown.
func (r *TimetableRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM timetables WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete timetable: %w", err)
	}
	return requireAffected(res, "delete timetable")
}

func requireAffected(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
