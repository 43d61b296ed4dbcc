package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"care-session-service/internal/domain"
	"care-session-service/internal/repository"
)

// FeedbackService owns Feedback creation and the satisfaction analytics.
type FeedbackService struct {
	feedback repository.FeedbackRepository
	sessions repository.SessionsRepository
	logger   *zap.Logger
	now      func() time.Time
}

func NewFeedbackService(
	feedback repository.FeedbackRepository,
	sessions repository.SessionsRepository,
	logger *zap.Logger,
) *FeedbackService {
	return &FeedbackService{
		feedback: feedback,
		sessions: sessions,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateFeedback records one rating for one session. The caregiver id is
// denormalized from the session so caregiver analytics survive later session
// edits. The unique constraint on care_session_id is the real duplicate
// guard.
func (s *FeedbackService) CreateFeedback(ctx context.Context, schema repository.Schema, sessionID, patientID string, rating int, comment string) (*domain.Feedback, error) {
	if rating < domain.MinRating || rating > domain.MaxRating {
		return nil, domain.ErrInvalidRating
	}

	session, err := s.sessions.GetSession(ctx, schema, sessionID)
	if err != nil {
		return nil, err
	}

	if _, err := s.feedback.GetFeedbackBySession(ctx, schema, sessionID); err == nil {
		return nil, domain.ErrFeedbackExists
	} else if !errors.Is(err, domain.ErrFeedbackNotFound) {
		return nil, err
	}

	f := &domain.Feedback{
		ID:              uuid.NewString(),
		CareSessionID:   sessionID,
		PatientID:       patientID,
		CaregiverID:     session.CaregiverID,
		Rating:          rating,
		PatientFeedback: comment,
		CreatedAt:       s.now(),
	}
	if err := s.feedback.CreateFeedback(ctx, schema, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *FeedbackService) GetFeedback(ctx context.Context, schema repository.Schema, id string) (*domain.Feedback, error) {
	return s.feedback.GetFeedback(ctx, schema, id)
}

// ListFeedback returns one page, the total count, and the metrics summary
// computed over the returned page.
func (s *FeedbackService) ListFeedback(ctx context.Context, schema repository.Schema, filter repository.FeedbackFilter, page, size int) ([]*domain.Feedback, int, SatisfactionMetrics, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}

	items, total, err := s.feedback.ListFeedback(ctx, schema, filter, page, size)
	if err != nil {
		return nil, 0, SatisfactionMetrics{}, err
	}
	return items, total, ComputeMetrics(items), nil
}

// DeleteFeedback is the admin-only soft delete.
func (s *FeedbackService) DeleteFeedback(ctx context.Context, schema repository.Schema, id string) error {
	return s.feedback.SoftDeleteFeedback(ctx, schema, id)
}

// DailyAnalytics aggregates feedback per calendar day over [start, end].
func (s *FeedbackService) DailyAnalytics(ctx context.Context, schema repository.Schema, start, end time.Time) ([]DailyFeedback, error) {
	items, err := s.feedback.ListFeedbackBetween(ctx, schema, start, end)
	if err != nil {
		return nil, err
	}
	return AggregateDaily(items), nil
}

// WeeklyByCaregiver aggregates the Monday-to-Sunday week containing
// weekStart per caregiver.
func (s *FeedbackService) WeeklyByCaregiver(ctx context.Context, schema repository.Schema, weekStart time.Time) ([]CaregiverRating, error) {
	start, end := WeekWindow(weekStart)
	items, err := s.feedback.ListFeedbackBetween(ctx, schema, start, end)
	if err != nil {
		return nil, err
	}
	return AggregateByCaregiver(items), nil
}

// TopCaregivers ranks the week's caregivers by average rating descending,
// caregiver id ascending on ties.
func (s *FeedbackService) TopCaregivers(ctx context.Context, schema repository.Schema, weekStart time.Time, limit int) ([]CaregiverRating, error) {
	if limit <= 0 {
		limit = 5
	}
	ranked, err := s.WeeklyByCaregiver(ctx, schema, weekStart)
	if err != nil {
		return nil, err
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// PatientLifetime computes the metrics summary over every rating a patient
// ever left.
func (s *FeedbackService) PatientLifetime(ctx context.Context, schema repository.Schema, patientID string) (SatisfactionMetrics, error) {
	items, err := s.feedback.ListFeedbackForPatient(ctx, schema, patientID)
	if err != nil {
		return SatisfactionMetrics{}, err
	}
	return ComputeMetrics(items), nil
}
