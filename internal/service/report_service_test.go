package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"care-session-service/internal/domain"
	"care-session-service/internal/repository"
)

func newReportFixture(t *testing.T) (*ReportService, *repository.MemoryRepo, time.Time) {
	t.Helper()
	mem := repository.NewMemoryRepo()
	now := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)

	ctx := context.Background()
	_, err := mem.UpsertPatient(ctx, testSchema, &domain.Patient{
		ID: "patient-1", FirstName: "Pat", LastName: "One", Active: true, UpdatedAt: now,
	})
	require.NoError(t, err)
	_, err = mem.UpsertUser(ctx, testSchema, &domain.User{
		ID: "cg-1", FirstName: "Casey", LastName: "Green", Role: domain.RoleCaregiver, Active: true, UpdatedAt: now,
	})
	require.NoError(t, err)

	return NewReportService(mem, zap.NewNop()), mem, now
}

// addCompleted inserts a completed session with a fixed check-in time.
func addCompleted(t *testing.T, mem *repository.MemoryRepo, id string, checkIn time.Time) {
	t.Helper()
	checkOut := checkIn.Add(45 * time.Minute)
	require.NoError(t, mem.CreateSession(context.Background(), testSchema, &domain.CareSession{
		ID:           id,
		SessionCode:  "CS-" + id,
		PatientID:    "patient-1",
		CaregiverID:  "cg-1",
		CheckInTime:  checkIn,
		CheckOutTime: &checkOut,
		Status:       domain.SessionCompleted,
		CreatedAt:    checkIn,
		UpdatedAt:    checkOut,
	}))
}

func TestPeriodReportPagination(t *testing.T) {
	ctx := context.Background()
	svc, mem, now := newReportFixture(t)

	// Five sessions sharing one check-in time force the id tiebreak.
	for i := 1; i <= 5; i++ {
		addCompleted(t, mem, fmt.Sprintf("s%d", i), now)
	}
	start := now.Add(-time.Hour)
	end := now.Add(time.Hour)

	page1, err := svc.PeriodReport(ctx, testSchema, start, end, 2, "")
	require.NoError(t, err)
	require.Len(t, page1.Items, 2)
	require.NotNil(t, page1.NextCursor)
	assert.Equal(t, "s5", page1.Items[0].SessionID)
	assert.Equal(t, "s4", page1.Items[1].SessionID)

	page2, err := svc.PeriodReport(ctx, testSchema, start, end, 2, *page1.NextCursor)
	require.NoError(t, err)
	require.Len(t, page2.Items, 2)
	require.NotNil(t, page2.NextCursor)
	assert.Equal(t, "s3", page2.Items[0].SessionID)
	assert.Equal(t, "s2", page2.Items[1].SessionID)

	page3, err := svc.PeriodReport(ctx, testSchema, start, end, 2, *page2.NextCursor)
	require.NoError(t, err)
	require.Len(t, page3.Items, 1)
	assert.Equal(t, "s1", page3.Items[0].SessionID)
	assert.Nil(t, page3.NextCursor)
}

func TestPeriodReportValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, now := newReportFixture(t)

	_, err := svc.PeriodReport(ctx, testSchema, now, now.Add(-time.Hour), 10, "")
	assert.ErrorIs(t, err, domain.ErrInvalidPeriod)

	_, err = svc.PeriodReport(ctx, testSchema, now.Add(-time.Hour), now, 10, "not-a-cursor%%%")
	assert.ErrorIs(t, err, domain.ErrInvalidCursor)
}

func TestPeriodReportWindow(t *testing.T) {
	ctx := context.Background()
	svc, mem, now := newReportFixture(t)

	addCompleted(t, mem, "inside", now)
	addCompleted(t, mem, "before", now.Add(-48*time.Hour))

	page, err := svc.PeriodReport(ctx, testSchema, now.Add(-time.Hour), now.Add(time.Hour), 10, "")
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "inside", page.Items[0].SessionID)
}

func TestAllSessionsReportOrdersByCreation(t *testing.T) {
	ctx := context.Background()
	svc, mem, now := newReportFixture(t)

	addCompleted(t, mem, "old", now.Add(-2*time.Hour))
	addCompleted(t, mem, "new", now)

	page, err := svc.AllSessionsReport(ctx, testSchema, 10, "")
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "new", page.Items[0].SessionID)
	assert.Equal(t, "old", page.Items[1].SessionID)
	assert.Nil(t, page.NextCursor)
}

func TestGetSessionReportJoins(t *testing.T) {
	ctx := context.Background()
	svc, mem, now := newReportFixture(t)

	addCompleted(t, mem, "s1", now)
	require.NoError(t, mem.CreateFeedback(ctx, testSchema, &domain.Feedback{
		ID:              "fb1",
		CareSessionID:   "s1",
		PatientID:       "patient-1",
		CaregiverID:     "cg-1",
		Rating:          3,
		PatientFeedback: "lovely visit",
		CreatedAt:       now.Add(time.Hour),
	}))

	row, err := svc.GetSessionReport(ctx, testSchema, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Pat One", row.PatientName)
	assert.Equal(t, "Casey Green", row.CaregiverName)
	require.NotNil(t, row.Rating)
	assert.Equal(t, 3, *row.Rating)
	assert.Equal(t, "lovely visit", row.PatientFeedback)
	require.NotNil(t, row.DurationMinutes)
	assert.Equal(t, 45, *row.DurationMinutes)

	_, err = svc.GetSessionReport(ctx, testSchema, "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
