package models

// Teacher represents an instructor record. IsAdmin grants the Admin role on login.
type Teacher struct {
	ID       int64  `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Email    string `db:"email" json:"email"`
	Password string `db:"password" json:"-"`
	IsAdmin  bool   `db:"is_admin" json:"is_admin"`
}

// Role returns the role a teacher logs in with.
func (t Teacher) Role() Role {
	if t.IsAdmin {
		return RoleAdmin
	}
	return RoleTeacher
}
