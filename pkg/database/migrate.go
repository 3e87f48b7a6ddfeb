package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is idempotent. attendances_unique_day backs the roster insert's
// ON CONFLICT clause; timetables_end_after_start mirrors the write-time check.
const schema = `
CREATE TABLE IF NOT EXISTS teachers (
	id       BIGSERIAL PRIMARY KEY,
	name     TEXT NOT NULL,
	email    TEXT NOT NULL,
	password TEXT NOT NULL,
	is_admin BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS students (
	id         BIGSERIAL PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL,
	password   TEXT NOT NULL,
	section_id BIGINT
);

CREATE TABLE IF NOT EXISTS classes (
	id         BIGSERIAL PRIMARY KEY,
	class_name TEXT NOT NULL,
	teacher_id BIGINT NOT NULL REFERENCES teachers(id)
);

CREATE TABLE IF NOT EXISTS registrations (
	id         BIGSERIAL PRIMARY KEY,
	class_id   BIGINT NOT NULL REFERENCES classes(id) ON DELETE CASCADE,
	student_id BIGINT NOT NULL REFERENCES students(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS timetables (
	id          BIGSERIAL PRIMARY KEY,
	class_id    BIGINT NOT NULL REFERENCES classes(id) ON DELETE CASCADE,
	section_id  BIGINT,
	day_of_week SMALLINT NOT NULL CHECK (day_of_week BETWEEN 0 AND 6),
	start_time  TIME NOT NULL,
	end_time    TIME NOT NULL,
	CONSTRAINT timetables_end_after_start CHECK (end_time > start_time)
);

CREATE TABLE IF NOT EXISTS attendances (
	id         BIGSERIAL PRIMARY KEY,
	class_id   BIGINT NOT NULL REFERENCES classes(id) ON DELETE CASCADE,
	student_id BIGINT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
	date       DATE NOT NULL,
	status     TEXT NOT NULL DEFAULT 'Absent',
	CONSTRAINT attendances_unique_day UNIQUE (class_id, student_id, date)
);

CREATE INDEX IF NOT EXISTS idx_teachers_email ON teachers (LOWER(email));
CREATE INDEX IF NOT EXISTS idx_students_email ON students (LOWER(email));
CREATE INDEX IF NOT EXISTS idx_registrations_class ON registrations (class_id);
CREATE INDEX IF NOT EXISTS idx_timetables_day ON timetables (day_of_week, class_id);
CREATE INDEX IF NOT EXISTS idx_attendances_student ON attendances (student_id, date);
`

// Migrate creates the attendance tables when they are missing.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database not configured")
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
