package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"care-session-service/internal/domain"
	"care-session-service/internal/repository"
	"care-session-service/internal/store"
)

// EventPublisher emits session domain events for downstream consumers. The
// events are notifications only; publish failures never fail the request.
type EventPublisher interface {
	SessionCreated(schema repository.Schema, s *domain.CareSession) error
	SessionCompleted(schema repository.Schema, s *domain.CareSession) error
}

// SessionService owns all CareSession mutation.
type SessionService struct {
	sessions  repository.SessionsRepository
	tags      repository.TagsRepository
	patients  repository.PatientsRepository
	sequences store.SequenceAllocator
	events    EventPublisher // optional
	logger    *zap.Logger
	now       func() time.Time
}

func NewSessionService(
	sessions repository.SessionsRepository,
	tags repository.TagsRepository,
	patients repository.PatientsRepository,
	sequences store.SequenceAllocator,
	events EventPublisher,
	logger *zap.Logger,
) *SessionService {
	return &SessionService{
		sessions:  sessions,
		tags:      tags,
		patients:  patients,
		sequences: sequences,
		events:    events,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateSession starts a visit from an NFC scan. The repository's uniqueness
// constraint is the real duplicate guard; the lookup here is a fast path that
// produces a friendly conflict before the insert.
func (s *SessionService) CreateSession(ctx context.Context, schema repository.Schema, tagID, caregiverID string) (*domain.CareSession, error) {
	tag, err := s.tags.GetActiveTag(ctx, schema, tagID)
	if err != nil {
		return nil, err
	}

	patient, err := s.patients.GetPatient(ctx, schema, tag.PatientID)
	if err != nil {
		return nil, err
	}
	if patient.DeletedAt != nil || !patient.Active {
		return nil, fmt.Errorf("%w: patient inactive", domain.ErrPatientNotFound)
	}

	if _, err := s.sessions.GetActiveSessionForPatient(ctx, schema, tag.PatientID); err == nil {
		return nil, domain.ErrDuplicateActiveSession
	} else if !errors.Is(err, domain.ErrSessionNotFound) {
		return nil, err
	}

	code, err := s.sequences.NextSessionCode(ctx, schema.String())
	if err != nil {
		return nil, fmt.Errorf("failed to allocate session code: %w", err)
	}

	now := s.now()
	session := &domain.CareSession{
		ID:          uuid.NewString(),
		SessionCode: code,
		PatientID:   tag.PatientID,
		CaregiverID: caregiverID,
		CheckInTime: now,
		Status:      domain.SessionInProgress,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.sessions.CreateSession(ctx, schema, session); err != nil {
		return nil, err
	}

	if s.events != nil {
		if err := s.events.SessionCreated(schema, session); err != nil {
			s.logger.Warn("failed to publish session created event",
				zap.String("session_id", session.ID), zap.Error(err))
		}
	}
	return session, nil
}

// GetSession fetches one session, first running the staleness policy. The
// read is therefore potentially mutating around the two-hour boundary. When
// the conditional write cannot be committed the refreshed view is still
// returned; the failure is only logged.
func (s *SessionService) GetSession(ctx context.Context, schema repository.Schema, id string) (*domain.CareSession, error) {
	session, err := s.sessions.GetSession(ctx, schema, id)
	if err != nil {
		return nil, err
	}
	if AutoCompleteStale(session, s.now()) {
		if err := s.sessions.SaveCompletions(ctx, schema, []*domain.CareSession{session}); err != nil {
			s.logger.Error("auto-complete persist failed",
				zap.String("session_id", session.ID), zap.Error(err))
		}
	}
	return session, nil
}

// CompleteSession transitions in_progress → completed. Only the owning
// caregiver may complete a session.
func (s *SessionService) CompleteSession(ctx context.Context, schema repository.Schema, id, caregiverID, notes string) (*domain.CareSession, error) {
	session, err := s.sessions.GetSession(ctx, schema, id)
	if err != nil {
		return nil, err
	}
	if session.Status != domain.SessionInProgress {
		return nil, domain.ErrSessionNotInProgress
	}
	if session.CaregiverID != caregiverID {
		return nil, domain.ErrNotSessionCaregiver
	}

	checkOut := s.now()
	if !checkOut.After(session.CheckInTime) {
		return nil, domain.ErrInvalidSessionTimes
	}

	status := domain.SessionCompleted
	updated, err := s.sessions.UpdateSession(ctx, schema, id, repository.SessionUpdate{
		CheckOutTime:   &checkOut,
		Status:         &status,
		CaregiverNotes: &notes,
	})
	if err != nil {
		return nil, err
	}

	if s.events != nil {
		if err := s.events.SessionCompleted(schema, updated); err != nil {
			s.logger.Warn("failed to publish session completed event",
				zap.String("session_id", updated.ID), zap.Error(err))
		}
	}
	return updated, nil
}

// UpdateSession is the administrative correction path: any subset of
// check-in/check-out/notes/status, validated as a whole before writing.
func (s *SessionService) UpdateSession(ctx context.Context, schema repository.Schema, id string, upd repository.SessionUpdate) (*domain.CareSession, error) {
	if upd.Status != nil && !upd.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, *upd.Status)
	}

	current, err := s.sessions.GetSession(ctx, schema, id)
	if err != nil {
		return nil, err
	}

	checkIn := current.CheckInTime
	if upd.CheckInTime != nil {
		checkIn = *upd.CheckInTime
	}
	checkOut := current.CheckOutTime
	if upd.CheckOutTime != nil {
		checkOut = upd.CheckOutTime
	}
	if checkOut != nil && !checkOut.After(checkIn) {
		return nil, domain.ErrInvalidSessionTimes
	}

	return s.sessions.UpdateSession(ctx, schema, id, upd)
}

// DeleteSession soft-deletes; the row stays for admin recovery.
func (s *SessionService) DeleteSession(ctx context.Context, schema repository.Schema, id string) error {
	return s.sessions.SoftDeleteSession(ctx, schema, id)
}

// ListSessions returns one page plus the total count, running the staleness
// policy over the page with a single commit when anything mutated.
func (s *SessionService) ListSessions(ctx context.Context, schema repository.Schema, filter repository.SessionsFilter, page, size int) ([]*domain.CareSession, int, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}

	sessions, total, err := s.sessions.ListSessions(ctx, schema, filter, page, size)
	if err != nil {
		return nil, 0, err
	}

	now := s.now()
	mutated := []*domain.CareSession{}
	for _, session := range sessions {
		if AutoCompleteStale(session, now) {
			mutated = append(mutated, session)
		}
	}
	if len(mutated) > 0 {
		if err := s.sessions.SaveCompletions(ctx, schema, mutated); err != nil {
			s.logger.Error("auto-complete persist failed",
				zap.Int("count", len(mutated)), zap.Error(err))
		}
	}
	return sessions, total, nil
}
