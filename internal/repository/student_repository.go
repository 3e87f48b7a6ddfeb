package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-attendance/internal/models"
)

const studentColumns = "id, name, email, password, section_id"

// StudentRepository reads student identities.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID fetches a student by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id int64) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE id = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByEmail fetches a student by email, case-insensitively.
func (r *StudentRepository) FindByEmail(ctx context.Context, email string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE LOWER(email) = LOWER($1) ORDER BY id LIMIT 1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, email); err != nil {
		return nil, err
	}
	return &student, nil
}

// UpdatePassword replaces the stored credential.
func (r *StudentRepository) UpdatePassword(ctx context.Context, id int64, password string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE students SET password = $1 WHERE id = $2`, password, id)
	if err != nil {
		return fmt.Errorf("update student password: %w", err)
	}
	return requireAffected(res, "update student password")
}
