package domain

import "time"

// Rating bounds for patient feedback.
const (
	MinRating = 1
	MaxRating = 3
)

// SatisfactionLevel named bucket for a rating value
type SatisfactionLevel string

const (
	Dissatisfied SatisfactionLevel = "dissatisfied" // rating 1
	Neutral      SatisfactionLevel = "neutral"      // rating 2
	Satisfied    SatisfactionLevel = "satisfied"    // rating 3
)

// SatisfactionLevelFor maps a rating to its bucket. Out-of-range ratings map
// to Neutral rather than failing; validation happens before persistence.
func SatisfactionLevelFor(rating int) SatisfactionLevel {
	switch rating {
	case 1:
		return Dissatisfied
	case 3:
		return Satisfied
	default:
		return Neutral
	}
}

// Feedback is one patient rating for one care session (feedback table).
// At most one row exists per care session.
type Feedback struct {
	ID            string `db:"id"` // UUID, PRIMARY KEY
	CareSessionID string `db:"care_session_id"` // UNIQUE
	PatientID     string `db:"patient_id"`

	// CaregiverID is denormalized from the session at creation time so
	// caregiver analytics survive session edits.
	CaregiverID string `db:"caregiver_id"`

	Rating          int    `db:"rating"` // 1..3
	PatientFeedback string `db:"patient_feedback"` // optional free text

	CreatedAt time.Time  `db:"created_at"`
	DeletedAt *time.Time `db:"deleted_at"`
}
