package models

// Student represents a learner record.
type Student struct {
	ID        int64  `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	Email     string `db:"email" json:"email"`
	Password  string `db:"password" json:"-"`
	SectionID *int64 `db:"section_id" json:"section_id,omitempty"`
}
