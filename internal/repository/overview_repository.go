package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-attendance/internal/models"
)

// OverviewRepository counts records for the admin dashboard.
type OverviewRepository struct {
	db *sqlx.DB
}

// NewOverviewRepository constructs an OverviewRepository.
func NewOverviewRepository(db *sqlx.DB) *OverviewRepository {
	return &OverviewRepository{db: db}
}

// Counts returns the number of teachers, students, classes and timetable slots.
func (r *OverviewRepository) Counts(ctx context.Context) (*models.AdminOverview, error) {
	const query = `SELECT
	(SELECT COUNT(*) FROM teachers) AS teachers,
	(SELECT COUNT(*) FROM students) AS students,
	(SELECT COUNT(*) FROM classes) AS classes,
	(SELECT COUNT(*) FROM timetables) AS timetables`
	var overview models.AdminOverview
	if err := r.db.GetContext(ctx, &overview, query); err != nil {
		return nil, fmt.Errorf("count overview: %w", err)
	}
	return &overview, nil
}
