package models

// AdminOverview counts the records an administrator manages.
type AdminOverview struct {
	Teachers   int64 `db:"teachers" json:"teachers"`
	Students   int64 `db:"students" json:"students"`
	Classes    int64 `db:"classes" json:"classes"`
	Timetables int64 `db:"timetables" json:"timetables"`
}
