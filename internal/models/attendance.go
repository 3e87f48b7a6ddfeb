package models

import "time"

// Status values written by the roster workflow. The UI may submit others.
const (
	StatusAbsent  = "Absent"
	StatusPresent = "Present"
)

// AttendanceRecord stores one student's status for a class on a calendar date.
// At most one record exists per (class, student, date).
type AttendanceRecord struct {
	ID          int64     `db:"id" json:"id"`
	ClassID     int64     `db:"class_id" json:"class_id"`
	StudentID   int64     `db:"student_id" json:"student_id"`
	StudentName string    `db:"student_name" json:"student_name,omitempty"`
	ClassName   string    `db:"class_name" json:"class_name,omitempty"`
	Date        time.Time `db:"date" json:"date"`
	Status      string    `db:"status" json:"status"`
}

// Roster is the attendance page payload for one class on one date.
type Roster struct {
	ClassID   int64              `json:"class_id"`
	ClassName string             `json:"class_name"`
	TeacherID int64              `json:"teacher_id"`
	Date      time.Time          `json:"date"`
	Records   []AttendanceRecord `json:"records"`
}

// SaveAttendanceRequest carries status edits keyed by record id.
type SaveAttendanceRequest struct {
	Edits map[int64]string `json:"edits"`
}

// SaveAttendanceResult reports the outcome of a reconciliation.
type SaveAttendanceResult struct {
	Changed int    `json:"changed"`
	Message string `json:"message"`
}
