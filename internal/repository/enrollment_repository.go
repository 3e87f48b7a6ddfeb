package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// EnrollmentRepository resolves which students belong to a class.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs an EnrollmentRepository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// RegisteredStudentIDs returns students explicitly registered for the class.
func (r *EnrollmentRepository) RegisteredStudentIDs(ctx context.Context, classID int64) ([]int64, error) {
	const query = `SELECT DISTINCT student_id FROM registrations WHERE class_id = $1 ORDER BY student_id`
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, classID); err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return ids, nil
}

// SectionStudentIDs returns the students of the section referenced by the
// class's first timetable entry that names one.
func (r *EnrollmentRepository) SectionStudentIDs(ctx context.Context, classID int64) ([]int64, error) {
	const query = `SELECT s.id FROM students s
WHERE s.section_id = (
    SELECT t.section_id FROM timetables t
    WHERE t.class_id = $1 AND t.section_id IS NOT NULL
    ORDER BY t.id LIMIT 1
)
ORDER BY s.id`
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, classID); err != nil {
		return nil, fmt.Errorf("list section students: %w", err)
	}
	return ids, nil
}
