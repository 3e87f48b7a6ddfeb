package models

// Class is a course offering owned by one teacher.
type Class struct {
	ID        int64  `db:"id" json:"id"`
	ClassName string `db:"class_name" json:"class_name"`
	TeacherID int64  `db:"teacher_id" json:"teacher_id"`
}
