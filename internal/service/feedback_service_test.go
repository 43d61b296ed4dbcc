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
)

type feedbackFixture struct {
	svc *FeedbackService
	mem *repository.MemoryRepo
	now time.Time
}

func newFeedbackFixture(t *testing.T) *feedbackFixture {
	t.Helper()
	mem := repository.NewMemoryRepo()
	now := time.Date(2026, 8, 26, 14, 0, 0, 0, time.UTC) // Wednesday

	svc := NewFeedbackService(mem, mem, zap.NewNop())
	f := &feedbackFixture{svc: svc, mem: mem, now: now}
	svc.now = func() time.Time { return f.now }
	return f
}

func (f *feedbackFixture) addSession(t *testing.T, id, patientID, caregiverID string) {
	t.Helper()
	checkOut := f.now.Add(-time.Hour)
	require.NoError(t, f.mem.CreateSession(context.Background(), testSchema, &domain.CareSession{
		ID:           id,
		SessionCode:  "CS-" + id,
		PatientID:    patientID,
		CaregiverID:  caregiverID,
		CheckInTime:  f.now.Add(-2 * time.Hour),
		CheckOutTime: &checkOut,
		Status:       domain.SessionCompleted,
		CreatedAt:    f.now.Add(-2 * time.Hour),
		UpdatedAt:    f.now.Add(-time.Hour),
	}))
}

func TestCreateFeedback(t *testing.T) {
	ctx := context.Background()

	t.Run("rating is recorded with the session's caregiver", func(t *testing.T) {
		f := newFeedbackFixture(t)
		f.addSession(t, "s1", "patient-1", "caregiver-1")

		fb, err := f.svc.CreateFeedback(ctx, testSchema, "s1", "patient-1", 3, "very kind")
		require.NoError(t, err)
		assert.Equal(t, "caregiver-1", fb.CaregiverID)
		assert.Equal(t, 3, fb.Rating)
		assert.Equal(t, "very kind", fb.PatientFeedback)
		assert.True(t, fb.CreatedAt.Equal(f.now))
	})

	t.Run("rating outside 1..3", func(t *testing.T) {
		f := newFeedbackFixture(t)
		f.addSession(t, "s1", "patient-1", "caregiver-1")

		_, err := f.svc.CreateFeedback(ctx, testSchema, "s1", "patient-1", 0, "")
		assert.ErrorIs(t, err, domain.ErrInvalidRating)
		_, err = f.svc.CreateFeedback(ctx, testSchema, "s1", "patient-1", 4, "")
		assert.ErrorIs(t, err, domain.ErrInvalidRating)
	})

	t.Run("one feedback per session", func(t *testing.T) {
		f := newFeedbackFixture(t)
		f.addSession(t, "s1", "patient-1", "caregiver-1")

		_, err := f.svc.CreateFeedback(ctx, testSchema, "s1", "patient-1", 2, "")
		require.NoError(t, err)
		_, err = f.svc.CreateFeedback(ctx, testSchema, "s1", "patient-1", 3, "")
		assert.ErrorIs(t, err, domain.ErrFeedbackExists)
	})

	t.Run("unknown session", func(t *testing.T) {
		f := newFeedbackFixture(t)
		_, err := f.svc.CreateFeedback(ctx, testSchema, "nope", "patient-1", 2, "")
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})
}

func TestListFeedbackWithMetrics(t *testing.T) {
	ctx := context.Background()
	f := newFeedbackFixture(t)
	for i, rating := range []int{1, 2, 3, 3} {
		id := string(rune('a' + i))
		f.addSession(t, id, "patient-1", "caregiver-1")
		_, err := f.svc.CreateFeedback(ctx, testSchema, id, "patient-1", rating, "")
		require.NoError(t, err)
	}

	items, total, metrics, err := f.svc.ListFeedback(ctx, testSchema, repository.FeedbackFilter{}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, items, 4)
	assert.Equal(t, 2.25, metrics.AverageRating)
	assert.Equal(t, 75.0, metrics.SatisfactionIndex)

	onlyTop, total, _, err := f.svc.ListFeedback(ctx, testSchema, repository.FeedbackFilter{Rating: 3}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, onlyTop, 2)
}

func TestWeeklyAnalytics(t *testing.T) {
	ctx := context.Background()
	f := newFeedbackFixture(t)

	// Two caregivers inside the week, one outside it.
	f.addSession(t, "s1", "patient-1", "cg-a")
	_, err := f.svc.CreateFeedback(ctx, testSchema, "s1", "patient-1", 3, "")
	require.NoError(t, err)
	f.addSession(t, "s2", "patient-2", "cg-b")
	_, err = f.svc.CreateFeedback(ctx, testSchema, "s2", "patient-2", 1, "")
	require.NoError(t, err)

	f.now = f.now.AddDate(0, 0, 14)
	f.addSession(t, "s3", "patient-1", "cg-c")
	_, err = f.svc.CreateFeedback(ctx, testSchema, "s3", "patient-1", 2, "")
	require.NoError(t, err)

	ranked, err := f.svc.WeeklyByCaregiver(ctx, testSchema, time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, "cg-a", ranked[0].CaregiverID)
	assert.Equal(t, 3.0, ranked[0].AverageRating)
	assert.Equal(t, "cg-b", ranked[1].CaregiverID)

	top, err := f.svc.TopCaregivers(ctx, testSchema, time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC), 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "cg-a", top[0].CaregiverID)
}

func TestPatientLifetime(t *testing.T) {
	ctx := context.Background()
	f := newFeedbackFixture(t)

	f.addSession(t, "s1", "patient-1", "cg-a")
	_, err := f.svc.CreateFeedback(ctx, testSchema, "s1", "patient-1", 1, "")
	require.NoError(t, err)
	f.addSession(t, "s2", "patient-2", "cg-a")
	_, err = f.svc.CreateFeedback(ctx, testSchema, "s2", "patient-2", 3, "")
	require.NoError(t, err)

	m, err := f.svc.PatientLifetime(ctx, testSchema, "patient-1")
	require.NoError(t, err)
	assert.Equal(t, 1, m.TotalCount)
	assert.Equal(t, 1.0, m.AverageRating)
	assert.Equal(t, 33.33, m.SatisfactionIndex)
}

func TestDeleteFeedbackAllowsResubmission(t *testing.T) {
	ctx := context.Background()
	f := newFeedbackFixture(t)
	f.addSession(t, "s1", "patient-1", "cg-a")

	fb, err := f.svc.CreateFeedback(ctx, testSchema, "s1", "patient-1", 2, "")
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteFeedback(ctx, testSchema, fb.ID))

	_, err = f.svc.GetFeedback(ctx, testSchema, fb.ID)
	assert.ErrorIs(t, err, domain.ErrFeedbackNotFound)

	_, err = f.svc.CreateFeedback(ctx, testSchema, "s1", "patient-1", 3, "")
	require.NoError(t, err)
}
