package httpapi

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"care-session-service/internal/domain"
	"care-session-service/internal/repository"
	"care-session-service/internal/service"
)

// FeedbackHandler serves the /feedback resource and its analytics.
type FeedbackHandler struct {
	svc    *service.FeedbackService
	logger *zap.Logger
}

func NewFeedbackHandler(svc *service.FeedbackService, logger *zap.Logger) *FeedbackHandler {
	return &FeedbackHandler{svc: svc, logger: logger}
}

type feedbackResponse struct {
	ID              string    `json:"id"`
	CareSessionID   string    `json:"care_session_id"`
	PatientID       string    `json:"patient_id"`
	CaregiverID     string    `json:"caregiver_id"`
	Rating          int       `json:"rating"`
	Satisfaction    string    `json:"satisfaction"`
	PatientFeedback string    `json:"patient_feedback,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func toFeedbackResponse(f *domain.Feedback) feedbackResponse {
	return feedbackResponse{
		ID:              f.ID,
		CareSessionID:   f.CareSessionID,
		PatientID:       f.PatientID,
		CaregiverID:     f.CaregiverID,
		Rating:          f.Rating,
		Satisfaction:    string(domain.SatisfactionLevelFor(f.Rating)),
		PatientFeedback: f.PatientFeedback,
		CreatedAt:       f.CreatedAt,
	}
}

func (h *FeedbackHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, h.logger, domain.ErrUnauthenticated)
		return
	}

	var body struct {
		CareSessionID   string `json:"care_session_id"`
		Rating          int    `json:"rating"`
		PatientFeedback string `json:"patient_feedback"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil || body.CareSessionID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "care_session_id is required"})
		return
	}

	f, err := h.svc.CreateFeedback(r.Context(), identity.Schema, body.CareSessionID, identity.Claims.Subject, body.Rating, body.PatientFeedback)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toFeedbackResponse(f))
}

func (h *FeedbackHandler) Get(w http.ResponseWriter, r *http.Request, id string) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, h.logger, domain.ErrUnauthenticated)
		return
	}

	f, err := h.svc.GetFeedback(r.Context(), identity.Schema, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toFeedbackResponse(f))
}

func (h *FeedbackHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, h.logger, domain.ErrUnauthenticated)
		return
	}

	if err := h.svc.DeleteFeedback(r.Context(), identity.Schema, id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FeedbackHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, h.logger, domain.ErrUnauthenticated)
		return
	}

	q := r.URL.Query()
	filter := repository.FeedbackFilter{
		PatientID:   q.Get("patient_id"),
		CaregiverID: q.Get("caregiver_id"),
		Rating:      parseInt(q.Get("rating"), 0),
	}
	if t, ok := parseDate(q.Get("start_date")); ok {
		filter.StartDate = &t
	}
	if t, ok := parseDate(q.Get("end_date")); ok {
		filter.EndDate = &t
	}
	page := parseInt(q.Get("page"), 1)
	size := parseInt(q.Get("page_size"), 20)

	items, total, metrics, err := h.svc.ListFeedback(r.Context(), identity.Schema, filter, page, size)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	responses := make([]feedbackResponse, 0, len(items))
	for _, f := range items {
		responses = append(responses, toFeedbackResponse(f))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"feedback":  responses,
		"total":     total,
		"page":      page,
		"page_size": size,
		"metrics":   metrics,
	})
}

func (h *FeedbackHandler) DailyAnalytics(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, h.logger, domain.ErrUnauthenticated)
		return
	}

	q := r.URL.Query()
	start, okStart := parseDate(q.Get("start_date"))
	end, okEnd := parseDate(q.Get("end_date"))
	if !okStart || !okEnd || end.Before(start) {
		writeError(w, h.logger, domain.ErrInvalidPeriod)
		return
	}
	// Make the end date inclusive when given as a bare day.
	end = end.AddDate(0, 0, 1).Add(-time.Nanosecond)

	daily, err := h.svc.DailyAnalytics(r.Context(), identity.Schema, start, end)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"daily": daily})
}

func (h *FeedbackHandler) WeeklyAnalytics(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, h.logger, domain.ErrUnauthenticated)
		return
	}

	weekStart, ok := parseDate(r.URL.Query().Get("week_start"))
	if !ok {
		writeError(w, h.logger, domain.ErrInvalidPeriod)
		return
	}

	ranked, err := h.svc.WeeklyByCaregiver(r.Context(), identity.Schema, weekStart)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	start, end := service.WeekWindow(weekStart)
	writeJSON(w, http.StatusOK, map[string]any{
		"week_start": start.Format("2006-01-02"),
		"week_end":   end.Format("2006-01-02"),
		"caregivers": ranked,
	})
}

func (h *FeedbackHandler) TopCaregivers(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, h.logger, domain.ErrUnauthenticated)
		return
	}

	q := r.URL.Query()
	weekStart, ok := parseDate(q.Get("week_start"))
	if !ok {
		writeError(w, h.logger, domain.ErrInvalidPeriod)
		return
	}
	limit := parseInt(q.Get("limit"), 5)

	ranked, err := h.svc.TopCaregivers(r.Context(), identity.Schema, weekStart, limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"top_caregivers": ranked})
}

func (h *FeedbackHandler) PatientLifetime(w http.ResponseWriter, r *http.Request, patientID string) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, h.logger, domain.ErrUnauthenticated)
		return
	}

	metrics, err := h.svc.PatientLifetime(r.Context(), identity.Schema, patientID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"patient_id": patientID,
		"metrics":    metrics,
	})
}
