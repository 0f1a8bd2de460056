package models

// Course is referenced by enrollments, groups and sessions.
type Course struct {
	ID           string  `db:"id" json:"id"`
	Name         string  `db:"name" json:"name"`
	DepartmentID *string `db:"department_id" json:"department_id,omitempty"`
}

// Teacher is referenced by groups and sessions.
type Teacher struct {
	ID       string `db:"id" json:"id"`
	FullName string `db:"full_name" json:"full_name"`
	Active   bool   `db:"active" json:"active"`
}

// Student is referenced by enrollments.
type Student struct {
	ID       string `db:"id" json:"id"`
	FullName string `db:"full_name" json:"full_name"`
}

// Room is a bookable location.
type Room struct {
	ID       string `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Capacity int    `db:"capacity" json:"capacity"`
	Location string `db:"location" json:"location"`
	Active   bool   `db:"active" json:"active"`
}
