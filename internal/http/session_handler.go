package httpapi

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"care-session-service/internal/domain"
	"care-session-service/internal/repository"
	"care-session-service/internal/service"
)

// SessionHandler serves the /care-sessions resource.
type SessionHandler struct {
	svc    *service.SessionService
	logger *zap.Logger
}

func NewSessionHandler(svc *service.SessionService, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{svc: svc, logger: logger}
}

type sessionResponse struct {
	ID              string     `json:"id"`
	SessionCode     string     `json:"session_code"`
	PatientID       string     `json:"patient_id"`
	CaregiverID     string     `json:"caregiver_id"`
	CheckInTime     time.Time  `json:"check_in_time"`
	CheckOutTime    *time.Time `json:"check_out_time"`
	Status          string     `json:"status"`
	CaregiverNotes  string     `json:"caregiver_notes,omitempty"`
	DurationMinutes *int       `json:"duration_minutes"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func toSessionResponse(s *domain.CareSession) sessionResponse {
	return sessionResponse{
		ID:              s.ID,
		SessionCode:     s.SessionCode,
		PatientID:       s.PatientID,
		CaregiverID:     s.CaregiverID,
		CheckInTime:     s.CheckInTime,
		CheckOutTime:    s.CheckOutTime,
		Status:          string(s.Status),
		CaregiverNotes:  s.CaregiverNotes,
		DurationMinutes: s.DurationMinutes(),
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, h.logger, domain.ErrUnauthenticated)
		return
	}

	var body struct {
		TagID string `json:"tag_id"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil || body.TagID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "tag_id is required"})
		return
	}

	session, err := h.svc.CreateSession(r.Context(), identity.Schema, body.TagID, identity.Claims.Subject)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionResponse(session))
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request, id string) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, h.logger, domain.ErrUnauthenticated)
		return
	}

	session, err := h.svc.GetSession(r.Context(), identity.Schema, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

func (h *SessionHandler) Complete(w http.ResponseWriter, r *http.Request, id string) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, h.logger, domain.ErrUnauthenticated)
		return
	}

	var body struct {
		CaregiverNotes string `json:"caregiver_notes"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid request body"})
		return
	}

	session, err := h.svc.CompleteSession(r.Context(), identity.Schema, id, identity.Claims.Subject, body.CaregiverNotes)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request, id string) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, h.logger, domain.ErrUnauthenticated)
		return
	}

	var body struct {
		CheckInTime    *string `json:"check_in_time"`
		CheckOutTime   *string `json:"check_out_time"`
		Status         *string `json:"status"`
		CaregiverNotes *string `json:"caregiver_notes"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid request body"})
		return
	}

	upd := repository.SessionUpdate{CaregiverNotes: body.CaregiverNotes}
	if body.CheckInTime != nil {
		t, ok := parseDate(*body.CheckInTime)
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid check_in_time"})
			return
		}
		upd.CheckInTime = &t
	}
	if body.CheckOutTime != nil {
		t, ok := parseDate(*body.CheckOutTime)
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid check_out_time"})
			return
		}
		upd.CheckOutTime = &t
	}
	if body.Status != nil {
		status := domain.SessionStatus(*body.Status)
		upd.Status = &status
	}

	session, err := h.svc.UpdateSession(r.Context(), identity.Schema, id, upd)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, h.logger, domain.ErrUnauthenticated)
		return
	}

	if err := h.svc.DeleteSession(r.Context(), identity.Schema, id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, h.logger, domain.ErrUnauthenticated)
		return
	}

	q := r.URL.Query()
	filter := repository.SessionsFilter{
		CaregiverID: q.Get("caregiver_id"),
		PatientID:   q.Get("patient_id"),
		Status:      q.Get("status"),
	}
	if t, ok := parseDate(q.Get("start_date")); ok {
		filter.StartDate = &t
	}
	if t, ok := parseDate(q.Get("end_date")); ok {
		filter.EndDate = &t
	}
	page := parseInt(q.Get("page"), 1)
	size := parseInt(q.Get("page_size"), 20)

	sessions, total, err := h.svc.ListSessions(r.Context(), identity.Schema, filter, page, size)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	items := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		items = append(items, toSessionResponse(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions":  items,
		"total":     total,
		"page":      page,
		"page_size": size,
	})
}
