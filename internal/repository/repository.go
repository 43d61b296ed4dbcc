package repository

import (
	"context"
	"time"

	"care-session-service/internal/domain"
)

// SessionsFilter narrows ListSessions. Zero values mean "no filter".
type SessionsFilter struct {
	CaregiverID string
	PatientID   string
	Status      string
	StartDate   *time.Time // inclusive lower bound on check_in_time
	EndDate     *time.Time // inclusive upper bound on check_in_time
}

// SessionUpdate carries the admin partial-update fields. Nil means "leave as is".
type SessionUpdate struct {
	CheckInTime    *time.Time
	CheckOutTime   *time.Time
	Status         *domain.SessionStatus
	CaregiverNotes *string
}

// SessionsRepository owns all care_sessions persistence for one tenant schema
// per call. The schema argument is never cached across calls.
type SessionsRepository interface {
	CreateSession(ctx context.Context, schema Schema, s *domain.CareSession) error
	GetSession(ctx context.Context, schema Schema, id string) (*domain.CareSession, error)
	// GetActiveSessionForPatient returns the patient's in_progress session or
	// domain.ErrSessionNotFound.
	GetActiveSessionForPatient(ctx context.Context, schema Schema, patientID string) (*domain.CareSession, error)
	ListSessions(ctx context.Context, schema Schema, filter SessionsFilter, page, size int) ([]*domain.CareSession, int, error)
	UpdateSession(ctx context.Context, schema Schema, id string, upd SessionUpdate) (*domain.CareSession, error)
	// SaveCompletions persists status/check_out/notes for already-mutated
	// sessions in a single transaction (auto-completion batches).
	SaveCompletions(ctx context.Context, schema Schema, sessions []*domain.CareSession) error
	SoftDeleteSession(ctx context.Context, schema Schema, id string) error
	// MaxSessionCodeSuffix returns the largest numeric suffix among existing
	// session codes, 0 when the table is empty. Used to seed the sequence
	// allocator.
	MaxSessionCodeSuffix(ctx context.Context, schema Schema) (int, error)
}

// FeedbackFilter narrows ListFeedback. Zero values mean "no filter".
type FeedbackFilter struct {
	PatientID   string
	CaregiverID string
	Rating      int
	StartDate   *time.Time
	EndDate     *time.Time
}

// FeedbackRepository owns all feedback persistence.
type FeedbackRepository interface {
	CreateFeedback(ctx context.Context, schema Schema, f *domain.Feedback) error
	GetFeedback(ctx context.Context, schema Schema, id string) (*domain.Feedback, error)
	GetFeedbackBySession(ctx context.Context, schema Schema, sessionID string) (*domain.Feedback, error)
	ListFeedback(ctx context.Context, schema Schema, filter FeedbackFilter, page, size int) ([]*domain.Feedback, int, error)
	// ListFeedbackBetween returns all feedback created in [start, end] for
	// analytics aggregation.
	ListFeedbackBetween(ctx context.Context, schema Schema, start, end time.Time) ([]*domain.Feedback, error)
	ListFeedbackForPatient(ctx context.Context, schema Schema, patientID string) ([]*domain.Feedback, error)
	SoftDeleteFeedback(ctx context.Context, schema Schema, id string) error
}

// PatientsRepository maintains the patient read cache. Writes belong to the
// cache sync consumer only.
type PatientsRepository interface {
	GetPatient(ctx context.Context, schema Schema, id string) (*domain.Patient, error)
	GetPatientsByIDs(ctx context.Context, schema Schema, ids []string) (map[string]*domain.Patient, error)
	// UpsertPatient applies p unless the cached row carries a newer
	// updated_at. Returns whether the row was written.
	UpsertPatient(ctx context.Context, schema Schema, p *domain.Patient) (bool, error)
	MarkPatientDeleted(ctx context.Context, schema Schema, id string, at time.Time) error
	SetPatientActive(ctx context.Context, schema Schema, id string, active bool, at time.Time) error
}

// UsersRepository maintains the caregiver read cache. Writes belong to the
// cache sync consumer only.
type UsersRepository interface {
	GetUser(ctx context.Context, schema Schema, id string) (*domain.User, error)
	GetUsersByIDs(ctx context.Context, schema Schema, ids []string) (map[string]*domain.User, error)
	UpsertUser(ctx context.Context, schema Schema, u *domain.User) (bool, error)
	MarkUserDeleted(ctx context.Context, schema Schema, id string, at time.Time) error
	SetUserActive(ctx context.Context, schema Schema, id string, active bool, at time.Time) error
	// SetUserRole updates the cached role and flips the active flag when the
	// role moves into or out of caregiver.
	SetUserRole(ctx context.Context, schema Schema, id, role string, at time.Time) error
}

// TagsRepository is a read-only view of the externally-owned nfc_tags table.
type TagsRepository interface {
	// GetActiveTag returns the tag or domain.ErrTagNotFound when the tag is
	// missing or inactive.
	GetActiveTag(ctx context.Context, schema Schema, tagID string) (*domain.NFCTag, error)
}

// TenantsRepository reads the central tenant registry (public schema).
type TenantsRepository interface {
	// GetTenantByOrgID returns domain.ErrTenantNotFound when no active row
	// matches.
	GetTenantByOrgID(ctx context.Context, orgID string) (*domain.Tenant, error)
}

// SessionReportRow is one enriched report item: session joined with cached
// patient/caregiver names and feedback.
type SessionReportRow struct {
	SessionID       string
	SessionCode     string
	PatientID       string
	PatientName     string
	CaregiverID     string
	CaregiverName   string
	CheckInTime     time.Time
	CheckOutTime    *time.Time
	Status          domain.SessionStatus
	DurationMinutes *int
	CaregiverNotes  string
	Rating          *int
	PatientFeedback string
	CreatedAt       time.Time
}

// ReportQuery selects and pages report rows. When ByCreatedAt is set the
// ordering timestamp is created_at (the "all sessions" report); otherwise
// check_in_time (the period report).
type ReportQuery struct {
	StartDate   *time.Time
	EndDate     *time.Time
	Limit       int
	After       *CursorKey
	ByCreatedAt bool
}

// ReportsRepository provides the read-only cross-entity report queries.
type ReportsRepository interface {
	// ListSessionReports fetches one page ordered by (timestamp DESC, id
	// DESC) and returns the key for the next page, nil when exhausted.
	ListSessionReports(ctx context.Context, schema Schema, q ReportQuery) ([]*SessionReportRow, *CursorKey, error)
	GetSessionReport(ctx context.Context, schema Schema, sessionID string) (*SessionReportRow, error)
}
