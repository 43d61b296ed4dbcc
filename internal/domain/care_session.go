package domain

import "time"

// SessionStatus care-session lifecycle state
type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
)

// Valid reports whether s is a known status.
func (s SessionStatus) Valid() bool {
	return s == SessionInProgress || s == SessionCompleted
}

// AutoCompleteThreshold is how long an in_progress session may idle before a
// read transitions it to completed.
const AutoCompleteThreshold = 2 * time.Hour

// AutoCompleteNote is appended to caregiver notes when a session is closed by
// the staleness policy.
const AutoCompleteNote = "[AUTO-COMPLETED] Session exceeded 2 hour timeout"

// CareSession is one caregiver visit to one patient (care_sessions table).
type CareSession struct {
	ID string `db:"id"` // UUID, PRIMARY KEY

	// SessionCode is the human-readable sequence code, e.g. "CS-0001".
	// Unique and monotonically assigned per tenant.
	SessionCode string `db:"session_code"`

	PatientID   string `db:"patient_id"`
	CaregiverID string `db:"caregiver_id"`

	CheckInTime  time.Time  `db:"check_in_time"`
	CheckOutTime *time.Time `db:"check_out_time"` // nullable while in_progress

	Status         SessionStatus `db:"status"`
	CaregiverNotes string        `db:"caregiver_notes"` // free text, may be empty

	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at"`
}

// DurationMinutes returns floor((check_out-check_in)/1min), or nil while the
// session is open. Never reports a duration for an open session.
func (s *CareSession) DurationMinutes() *int {
	if s.CheckOutTime == nil {
		return nil
	}
	m := int(s.CheckOutTime.Sub(s.CheckInTime).Seconds()) / 60
	return &m
}
