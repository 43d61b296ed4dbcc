package httpapi

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"care-session-service/internal/domain"
	"care-session-service/internal/repository"
	"care-session-service/internal/service"
)

// ReportHandler serves the /reports resource.
type ReportHandler struct {
	svc    *service.ReportService
	logger *zap.Logger
}

func NewReportHandler(svc *service.ReportService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{svc: svc, logger: logger}
}

type reportRowResponse struct {
	SessionID       string     `json:"session_id"`
	SessionCode     string     `json:"session_code"`
	PatientID       string     `json:"patient_id"`
	PatientName     string     `json:"patient_name"`
	CaregiverID     string     `json:"caregiver_id"`
	CaregiverName   string     `json:"caregiver_name"`
	CheckInTime     time.Time  `json:"check_in_time"`
	CheckOutTime    *time.Time `json:"check_out_time"`
	Status          string     `json:"status"`
	DurationMinutes *int       `json:"duration_minutes"`
	Rating          *int       `json:"rating"`
	PatientFeedback string     `json:"patient_feedback,omitempty"`
	CaregiverNotes  string     `json:"caregiver_notes,omitempty"`
}

func toReportRowResponse(row *repository.SessionReportRow) reportRowResponse {
	return reportRowResponse{
		SessionID:       row.SessionID,
		SessionCode:     row.SessionCode,
		PatientID:       row.PatientID,
		PatientName:     row.PatientName,
		CaregiverID:     row.CaregiverID,
		CaregiverName:   row.CaregiverName,
		CheckInTime:     row.CheckInTime,
		CheckOutTime:    row.CheckOutTime,
		Status:          string(row.Status),
		DurationMinutes: row.DurationMinutes,
		Rating:          row.Rating,
		PatientFeedback: row.PatientFeedback,
		CaregiverNotes:  row.CaregiverNotes,
	}
}

func (h *ReportHandler) writePage(w http.ResponseWriter, page *service.ReportPage) {
	items := make([]reportRowResponse, 0, len(page.Items))
	for _, row := range page.Items {
		items = append(items, toReportRowResponse(row))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reports":     items,
		"next_cursor": page.NextCursor,
	})
}

func (h *ReportHandler) periodWindow(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()
	start, okStart := parseDate(q.Get("start_date"))
	end, okEnd := parseDate(q.Get("end_date"))
	if !okStart || !okEnd {
		return time.Time{}, time.Time{}, domain.ErrInvalidPeriod
	}
	// A bare end date covers its whole day.
	if len(q.Get("end_date")) == len("2006-01-02") {
		end = end.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, domain.ErrInvalidPeriod
	}
	return start, end, nil
}

func (h *ReportHandler) Period(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, h.logger, domain.ErrUnauthenticated)
		return
	}

	start, end, err := h.periodWindow(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	limit := parseInt(r.URL.Query().Get("limit"), 50)
	cursor := r.URL.Query().Get("cursor")

	page, err := h.svc.PeriodReport(r.Context(), identity.Schema, start, end, limit, cursor)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.writePage(w, page)
}

func (h *ReportHandler) All(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, h.logger, domain.ErrUnauthenticated)
		return
	}

	limit := parseInt(r.URL.Query().Get("limit"), 50)
	cursor := r.URL.Query().Get("cursor")

	page, err := h.svc.AllSessionsReport(r.Context(), identity.Schema, limit, cursor)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.writePage(w, page)
}

func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request, id string) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, h.logger, domain.ErrUnauthenticated)
		return
	}

	row, err := h.svc.GetSessionReport(r.Context(), identity.Schema, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toReportRowResponse(row))
}

// collectAll walks every page for a download.
func (h *ReportHandler) collectAll(ctx context.Context, identity *Identity, fetch func(ctx context.Context, schema repository.Schema, limit int, cursor string) (*service.ReportPage, error)) ([]*repository.SessionReportRow, error) {
	const pageSize = 500
	rows := []*repository.SessionReportRow{}
	cursor := ""
	for {
		page, err := fetch(ctx, identity.Schema, pageSize, cursor)
		if err != nil {
			return nil, err
		}
		rows = append(rows, page.Items...)
		if page.NextCursor == nil {
			return rows, nil
		}
		cursor = *page.NextCursor
	}
}

func (h *ReportHandler) download(w http.ResponseWriter, r *http.Request, rows []*repository.SessionReportRow) {
	switch format := r.URL.Query().Get("format"); format {
	case "", "csv":
		data, err := GenerateSessionReportCSV(rows)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename="+downloadFilename("care_sessions", "csv"))
		_, _ = w.Write(data)
	case "xlsx":
		data, err := GenerateSessionReportXLSX(rows)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", "attachment; filename="+downloadFilename("care_sessions", "xlsx"))
		_, _ = w.Write(data)
	default:
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "format must be csv or xlsx"})
	}
}

func (h *ReportHandler) PeriodDownload(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, h.logger, domain.ErrUnauthenticated)
		return
	}

	start, end, err := h.periodWindow(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	rows, err := h.collectAll(r.Context(), identity, func(ctx context.Context, schema repository.Schema, limit int, cursor string) (*service.ReportPage, error) {
		return h.svc.PeriodReport(ctx, schema, start, end, limit, cursor)
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.download(w, r, rows)
}

func (h *ReportHandler) AllDownload(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, h.logger, domain.ErrUnauthenticated)
		return
	}

	rows, err := h.collectAll(r.Context(), identity, h.svc.AllSessionsReport)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.download(w, r, rows)
}
