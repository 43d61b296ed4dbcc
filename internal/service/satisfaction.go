package service

import (
	"math"
	"sort"
	"time"

	"care-session-service/internal/domain"
)

// Distribution keys, one per rating value.
const (
	bucketSatisfied    = "3_satisfied"
	bucketNeutral      = "2_neutral"
	bucketDissatisfied = "1_dissatisfied"
)

// SatisfactionMetrics summarizes a collection of ratings.
type SatisfactionMetrics struct {
	TotalCount    int     `json:"total_count"`
	AverageRating float64 `json:"average_rating"`
	// SatisfactionIndex is (average/max_rating)*100, rounded to 2 decimals.
	SatisfactionIndex float64 `json:"satisfaction_index"`
	// Distribution holds the percentage share per rating bucket.
	Distribution map[string]float64 `json:"distribution"`
	// Counts holds the absolute count per rating bucket.
	Counts map[string]int `json:"counts"`
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ComputeMetrics is a pure function over feedback ratings. An empty input
// yields a defined all-zero result rather than dividing by zero.
func ComputeMetrics(items []*domain.Feedback) SatisfactionMetrics {
	metrics := SatisfactionMetrics{
		Distribution: map[string]float64{
			bucketSatisfied:    0,
			bucketNeutral:      0,
			bucketDissatisfied: 0,
		},
		Counts: map[string]int{
			bucketSatisfied:    0,
			bucketNeutral:      0,
			bucketDissatisfied: 0,
		},
	}
	if len(items) == 0 {
		return metrics
	}

	sum := 0
	for _, f := range items {
		sum += f.Rating
		switch f.Rating {
		case 1:
			metrics.Counts[bucketDissatisfied]++
		case 2:
			metrics.Counts[bucketNeutral]++
		case 3:
			metrics.Counts[bucketSatisfied]++
		}
	}

	total := len(items)
	metrics.TotalCount = total
	metrics.AverageRating = round2(float64(sum) / float64(total))
	metrics.SatisfactionIndex = round2(metrics.AverageRating / float64(domain.MaxRating) * 100)
	for bucket, count := range metrics.Counts {
		metrics.Distribution[bucket] = round2(float64(count) / float64(total) * 100)
	}
	return metrics
}

// DailyFeedback is one calendar day's aggregate.
type DailyFeedback struct {
	Date          string  `json:"date"` // YYYY-MM-DD, UTC
	Count         int     `json:"count"`
	AverageRating float64 `json:"average_rating"`
}

// AggregateDaily groups feedback by calendar day, oldest first.
func AggregateDaily(items []*domain.Feedback) []DailyFeedback {
	type acc struct {
		count int
		sum   int
	}
	byDay := map[string]*acc{}
	for _, f := range items {
		day := f.CreatedAt.UTC().Format("2006-01-02")
		a, ok := byDay[day]
		if !ok {
			a = &acc{}
			byDay[day] = a
		}
		a.count++
		a.sum += f.Rating
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	result := make([]DailyFeedback, 0, len(days))
	for _, day := range days {
		a := byDay[day]
		result = append(result, DailyFeedback{
			Date:          day,
			Count:         a.count,
			AverageRating: round2(float64(a.sum) / float64(a.count)),
		})
	}
	return result
}

// CaregiverRating is one caregiver's aggregate within a window.
type CaregiverRating struct {
	CaregiverID   string  `json:"caregiver_id"`
	Count         int     `json:"count"`
	AverageRating float64 `json:"average_rating"`
}

// AggregateByCaregiver groups feedback per caregiver and orders by average
// rating descending, caregiver id ascending as the deterministic tiebreak.
func AggregateByCaregiver(items []*domain.Feedback) []CaregiverRating {
	type acc struct {
		count int
		sum   int
	}
	byCaregiver := map[string]*acc{}
	for _, f := range items {
		a, ok := byCaregiver[f.CaregiverID]
		if !ok {
			a = &acc{}
			byCaregiver[f.CaregiverID] = a
		}
		a.count++
		a.sum += f.Rating
	}

	result := make([]CaregiverRating, 0, len(byCaregiver))
	for id, a := range byCaregiver {
		result = append(result, CaregiverRating{
			CaregiverID:   id,
			Count:         a.count,
			AverageRating: round2(float64(a.sum) / float64(a.count)),
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].AverageRating != result[j].AverageRating {
			return result[i].AverageRating > result[j].AverageRating
		}
		return result[i].CaregiverID < result[j].CaregiverID
	})
	return result
}

// WeekWindow normalizes t to its Monday 00:00 UTC and returns the inclusive
// Monday-to-Sunday window.
func WeekWindow(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	weekday := int(t.Weekday())
	if weekday == 0 { // Sunday
		weekday = 7
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, -(weekday - 1))
	end := start.AddDate(0, 0, 7).Add(-time.Nanosecond)
	return start, end
}
