package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"care-session-service/internal/domain"
)

func ratings(values ...int) []*domain.Feedback {
	items := make([]*domain.Feedback, 0, len(values))
	for _, v := range values {
		items = append(items, &domain.Feedback{Rating: v})
	}
	return items
}

func TestComputeMetrics(t *testing.T) {
	t.Run("mixed ratings", func(t *testing.T) {
		m := ComputeMetrics(ratings(1, 2, 3, 3))
		assert.Equal(t, 4, m.TotalCount)
		assert.Equal(t, 2.25, m.AverageRating)
		assert.Equal(t, 75.0, m.SatisfactionIndex)
		assert.Equal(t, 50.0, m.Distribution["3_satisfied"])
		assert.Equal(t, 25.0, m.Distribution["2_neutral"])
		assert.Equal(t, 25.0, m.Distribution["1_dissatisfied"])
		assert.Equal(t, 2, m.Counts["3_satisfied"])
		assert.Equal(t, 1, m.Counts["2_neutral"])
		assert.Equal(t, 1, m.Counts["1_dissatisfied"])
	})

	t.Run("empty input yields zeros", func(t *testing.T) {
		m := ComputeMetrics(nil)
		assert.Equal(t, 0, m.TotalCount)
		assert.Equal(t, 0.0, m.AverageRating)
		assert.Equal(t, 0.0, m.SatisfactionIndex)
		assert.Equal(t, 0.0, m.Distribution["3_satisfied"])
		assert.Equal(t, 0, m.Counts["1_dissatisfied"])
	})

	t.Run("all dissatisfied", func(t *testing.T) {
		m := ComputeMetrics(ratings(1, 1, 1))
		assert.Equal(t, 1.0, m.AverageRating)
		assert.Equal(t, 33.33, m.SatisfactionIndex)
		assert.Equal(t, 100.0, m.Distribution["1_dissatisfied"])
	})
}

func TestAggregateDaily(t *testing.T) {
	day := func(d int, rating int) *domain.Feedback {
		return &domain.Feedback{
			Rating:    rating,
			CreatedAt: time.Date(2026, 8, d, 10, 0, 0, 0, time.UTC),
		}
	}
	daily := AggregateDaily([]*domain.Feedback{
		day(20, 3), day(18, 1), day(20, 2), day(19, 3),
	})
	require.Len(t, daily, 3)
	assert.Equal(t, "2026-08-18", daily[0].Date)
	assert.Equal(t, "2026-08-19", daily[1].Date)
	assert.Equal(t, "2026-08-20", daily[2].Date)
	assert.Equal(t, 2, daily[2].Count)
	assert.Equal(t, 2.5, daily[2].AverageRating)
}

func TestAggregateByCaregiver(t *testing.T) {
	fb := func(caregiver string, rating int) *domain.Feedback {
		return &domain.Feedback{CaregiverID: caregiver, Rating: rating}
	}
	ranked := AggregateByCaregiver([]*domain.Feedback{
		fb("cg-b", 3), fb("cg-a", 3), fb("cg-c", 1), fb("cg-c", 2),
	})
	require.Len(t, ranked, 3)
	// Equal averages break ties by caregiver id ascending.
	assert.Equal(t, "cg-a", ranked[0].CaregiverID)
	assert.Equal(t, "cg-b", ranked[1].CaregiverID)
	assert.Equal(t, "cg-c", ranked[2].CaregiverID)
	assert.Equal(t, 1.5, ranked[2].AverageRating)
	assert.Equal(t, 2, ranked[2].Count)
}

func TestWeekWindow(t *testing.T) {
	monday := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

	t.Run("mid-week normalizes to monday", func(t *testing.T) {
		start, end := WeekWindow(time.Date(2026, 8, 26, 15, 30, 0, 0, time.UTC))
		assert.True(t, start.Equal(monday))
		assert.True(t, end.Equal(monday.AddDate(0, 0, 7).Add(-time.Nanosecond)))
	})

	t.Run("sunday belongs to the preceding monday", func(t *testing.T) {
		start, _ := WeekWindow(time.Date(2026, 8, 30, 23, 0, 0, 0, time.UTC))
		assert.True(t, start.Equal(monday))
	})

	t.Run("monday maps to itself", func(t *testing.T) {
		start, _ := WeekWindow(monday)
		assert.True(t, start.Equal(monday))
	})
}
