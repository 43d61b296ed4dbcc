package domain

import "time"

// RoleCaregiver is the role value that keeps a user visible as a caregiver.
const RoleCaregiver = "caregiver"

// User is a locally replicated read-cache row for a caregiver owned by the
// identity service (users table). Rows are never removed, only marked
// inactive or soft-deleted, so historical session attribution keeps working.
type User struct {
	ID        string     `db:"id"` // external id, PRIMARY KEY
	FirstName string     `db:"first_name"`
	LastName  string     `db:"last_name"`
	Email     string     `db:"email"`
	Role      string     `db:"role"`
	Active    bool       `db:"active"`
	UpdatedAt time.Time  `db:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at"`
}

// FullName joins first/last for report rows.
func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
