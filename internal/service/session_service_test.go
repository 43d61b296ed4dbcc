package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"care-session-service/internal/domain"
	"care-session-service/internal/repository"
	"care-session-service/internal/store"
)

const testSchema = repository.Schema("org_test")

type sessionFixture struct {
	svc *SessionService
	mem *repository.MemoryRepo
	now time.Time
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	mem := repository.NewMemoryRepo()
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	ctx := context.Background()
	_, err := mem.UpsertPatient(ctx, testSchema, &domain.Patient{
		ID: "patient-1", FirstName: "Pat", LastName: "One", Active: true, UpdatedAt: now,
	})
	require.NoError(t, err)
	_, err = mem.UpsertPatient(ctx, testSchema, &domain.Patient{
		ID: "patient-2", FirstName: "Pat", LastName: "Two", Active: false, UpdatedAt: now,
	})
	require.NoError(t, err)
	mem.PutTag(testSchema, domain.NFCTag{TagID: "tag-1", PatientID: "patient-1", Active: true})
	mem.PutTag(testSchema, domain.NFCTag{TagID: "tag-2", PatientID: "patient-2", Active: true})
	mem.PutTag(testSchema, domain.NFCTag{TagID: "tag-inactive", PatientID: "patient-1", Active: false})

	svc := NewSessionService(mem, mem, mem, store.NewMemorySequences(nil), nil, zap.NewNop())
	f := &sessionFixture{svc: svc, mem: mem, now: now}
	svc.now = func() time.Time { return f.now }
	return f
}

func TestCreateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("valid scan starts a session", func(t *testing.T) {
		f := newSessionFixture(t)
		s, err := f.svc.CreateSession(ctx, testSchema, "tag-1", "caregiver-1")
		require.NoError(t, err)
		assert.Equal(t, "CS-0001", s.SessionCode)
		assert.Equal(t, "patient-1", s.PatientID)
		assert.Equal(t, "caregiver-1", s.CaregiverID)
		assert.Equal(t, domain.SessionInProgress, s.Status)
		assert.True(t, s.CheckInTime.Equal(f.now))
	})

	t.Run("codes increment per tenant", func(t *testing.T) {
		f := newSessionFixture(t)
		s1, err := f.svc.CreateSession(ctx, testSchema, "tag-1", "caregiver-1")
		require.NoError(t, err)
		f.now = f.now.Add(time.Minute)
		_, err = f.svc.CompleteSession(ctx, testSchema, s1.ID, "caregiver-1", "")
		require.NoError(t, err)
		s2, err := f.svc.CreateSession(ctx, testSchema, "tag-1", "caregiver-1")
		require.NoError(t, err)
		assert.Equal(t, "CS-0002", s2.SessionCode)
	})

	t.Run("second active session for patient conflicts", func(t *testing.T) {
		f := newSessionFixture(t)
		_, err := f.svc.CreateSession(ctx, testSchema, "tag-1", "caregiver-1")
		require.NoError(t, err)
		_, err = f.svc.CreateSession(ctx, testSchema, "tag-1", "caregiver-2")
		assert.ErrorIs(t, err, domain.ErrDuplicateActiveSession)
	})

	t.Run("unknown or inactive tag", func(t *testing.T) {
		f := newSessionFixture(t)
		_, err := f.svc.CreateSession(ctx, testSchema, "tag-nope", "caregiver-1")
		assert.ErrorIs(t, err, domain.ErrTagNotFound)
		_, err = f.svc.CreateSession(ctx, testSchema, "tag-inactive", "caregiver-1")
		assert.ErrorIs(t, err, domain.ErrTagNotFound)
	})

	t.Run("inactive patient", func(t *testing.T) {
		f := newSessionFixture(t)
		_, err := f.svc.CreateSession(ctx, testSchema, "tag-2", "caregiver-1")
		assert.ErrorIs(t, err, domain.ErrPatientNotFound)
	})
}

func TestCompleteSession(t *testing.T) {
	ctx := context.Background()

	t.Run("owning caregiver completes", func(t *testing.T) {
		f := newSessionFixture(t)
		s, err := f.svc.CreateSession(ctx, testSchema, "tag-1", "caregiver-1")
		require.NoError(t, err)

		f.now = f.now.Add(30 * time.Minute)
		done, err := f.svc.CompleteSession(ctx, testSchema, s.ID, "caregiver-1", "all good")
		require.NoError(t, err)
		assert.Equal(t, domain.SessionCompleted, done.Status)
		require.NotNil(t, done.CheckOutTime)
		assert.True(t, done.CheckOutTime.After(done.CheckInTime))
		assert.Equal(t, "all good", done.CaregiverNotes)
	})

	t.Run("another caregiver is rejected", func(t *testing.T) {
		f := newSessionFixture(t)
		s, err := f.svc.CreateSession(ctx, testSchema, "tag-1", "caregiver-1")
		require.NoError(t, err)

		f.now = f.now.Add(30 * time.Minute)
		_, err = f.svc.CompleteSession(ctx, testSchema, s.ID, "caregiver-2", "")
		assert.ErrorIs(t, err, domain.ErrNotSessionCaregiver)
	})

	t.Run("completing twice fails", func(t *testing.T) {
		f := newSessionFixture(t)
		s, err := f.svc.CreateSession(ctx, testSchema, "tag-1", "caregiver-1")
		require.NoError(t, err)

		f.now = f.now.Add(30 * time.Minute)
		_, err = f.svc.CompleteSession(ctx, testSchema, s.ID, "caregiver-1", "")
		require.NoError(t, err)
		_, err = f.svc.CompleteSession(ctx, testSchema, s.ID, "caregiver-1", "")
		assert.ErrorIs(t, err, domain.ErrSessionNotInProgress)
	})

	t.Run("missing session", func(t *testing.T) {
		f := newSessionFixture(t)
		_, err := f.svc.CompleteSession(ctx, testSchema, "nope", "caregiver-1", "")
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})
}

func TestGetSessionAutoCompletes(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)

	s, err := f.svc.CreateSession(ctx, testSchema, "tag-1", "caregiver-1")
	require.NoError(t, err)

	// Three hours later the read itself completes the session.
	f.now = f.now.Add(3 * time.Hour)
	got, err := f.svc.GetSession(ctx, testSchema, s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionCompleted, got.Status)
	require.NotNil(t, got.CheckOutTime)
	assert.Contains(t, got.CaregiverNotes, domain.AutoCompleteNote)

	// The mutation was committed, not just a view.
	again, err := f.svc.GetSession(ctx, testSchema, s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionCompleted, again.Status)
	assert.Contains(t, again.CaregiverNotes, domain.AutoCompleteNote)
}

func TestUpdateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("check-out must follow check-in", func(t *testing.T) {
		f := newSessionFixture(t)
		s, err := f.svc.CreateSession(ctx, testSchema, "tag-1", "caregiver-1")
		require.NoError(t, err)

		bad := s.CheckInTime.Add(-time.Minute)
		_, err = f.svc.UpdateSession(ctx, testSchema, s.ID, repository.SessionUpdate{CheckOutTime: &bad})
		assert.ErrorIs(t, err, domain.ErrInvalidSessionTimes)
	})

	t.Run("unknown status", func(t *testing.T) {
		f := newSessionFixture(t)
		s, err := f.svc.CreateSession(ctx, testSchema, "tag-1", "caregiver-1")
		require.NoError(t, err)

		status := domain.SessionStatus("paused")
		_, err = f.svc.UpdateSession(ctx, testSchema, s.ID, repository.SessionUpdate{Status: &status})
		assert.ErrorIs(t, err, domain.ErrInvalidStatus)
	})

	t.Run("partial correction", func(t *testing.T) {
		f := newSessionFixture(t)
		s, err := f.svc.CreateSession(ctx, testSchema, "tag-1", "caregiver-1")
		require.NoError(t, err)

		notes := "corrected by admin"
		updated, err := f.svc.UpdateSession(ctx, testSchema, s.ID, repository.SessionUpdate{CaregiverNotes: &notes})
		require.NoError(t, err)
		assert.Equal(t, notes, updated.CaregiverNotes)
		assert.Equal(t, domain.SessionInProgress, updated.Status)
	})
}

func TestDeleteSessionHidesFromReads(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)

	s, err := f.svc.CreateSession(ctx, testSchema, "tag-1", "caregiver-1")
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteSession(ctx, testSchema, s.ID))

	_, err = f.svc.GetSession(ctx, testSchema, s.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	// The deleted session no longer blocks a new check-in for the patient.
	_, err = f.svc.CreateSession(ctx, testSchema, "tag-1", "caregiver-1")
	require.NoError(t, err)
}

func TestListSessions(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)

	s, err := f.svc.CreateSession(ctx, testSchema, "tag-1", "caregiver-1")
	require.NoError(t, err)

	// Stale sessions are completed as a side effect of listing.
	f.now = f.now.Add(3 * time.Hour)
	sessions, total, err := f.svc.ListSessions(ctx, testSchema, repository.SessionsFilter{}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, sessions, 1)
	assert.Equal(t, s.ID, sessions[0].ID)
	assert.Equal(t, domain.SessionCompleted, sessions[0].Status)

	filtered, total, err := f.svc.ListSessions(ctx, testSchema, repository.SessionsFilter{CaregiverID: "other"}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, filtered)
}
