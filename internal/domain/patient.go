package domain

import "time"

// Patient is a locally replicated read-cache row for a patient owned by the
// patient service (patients table). Not authoritative; kept current by the
// cache sync consumer and used only for joins and existence checks.
type Patient struct {
	ID        string     `db:"id"` // external id, PRIMARY KEY
	FirstName string     `db:"first_name"`
	LastName  string     `db:"last_name"`
	Email     string     `db:"email"`
	Active    bool       `db:"active"`
	UpdatedAt time.Time  `db:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at"`
}

// FullName joins first/last for report rows.
func (p *Patient) FullName() string {
	if p.FirstName == "" {
		return p.LastName
	}
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}
