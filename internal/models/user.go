package models

// Role is the closed set of roles recognised by the role gate.
type Role string

const (
	RoleStudent Role = "Student"
	RoleTeacher Role = "Teacher"
	RoleAdmin   Role = "Admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	default:
		return false
	}
}

// ParseRole converts a stored role string back into a Role.
func ParseRole(raw string) (Role, bool) {
	r := Role(raw)
	return r, r.Valid()
}

// SessionIdentity is the role marker kept in the caller's session after login.
type SessionIdentity struct {
	Role        Role   `json:"role"`
	SubjectID   int64  `json:"subject_id"`
	SubjectName string `json:"subject_name"`
}

// Empty reports whether no identity is present.
func (s SessionIdentity) Empty() bool {
	return s.Role == "" || s.SubjectID == 0
}
