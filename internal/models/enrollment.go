package models

// Registration explicitly enrolls a student in a class.
type Registration struct {
	ID        int64 `db:"id" json:"id"`
	ClassID   int64 `db:"class_id" json:"class_id"`
	StudentID int64 `db:"student_id" json:"student_id"`
}
