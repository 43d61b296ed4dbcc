package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"care-session-service/internal/domain"
	"care-session-service/internal/repository"
)

// ReportPage is one cursor-paginated slice of report rows. NextCursor is nil
// when pagination ends.
type ReportPage struct {
	Items      []*repository.SessionReportRow
	NextCursor *string
}

// ReportService provides the read-only cross-entity reports.
type ReportService struct {
	reports repository.ReportsRepository
	logger  *zap.Logger
}

func NewReportService(reports repository.ReportsRepository, logger *zap.Logger) *ReportService {
	return &ReportService{reports: reports, logger: logger}
}

func (s *ReportService) page(ctx context.Context, schema repository.Schema, q repository.ReportQuery, cursor string) (*ReportPage, error) {
	if cursor != "" {
		key, err := repository.DecodeCursor(cursor)
		if err != nil {
			return nil, err
		}
		q.After = &key
	}

	items, next, err := s.reports.ListSessionReports(ctx, schema, q)
	if err != nil {
		return nil, err
	}

	page := &ReportPage{Items: items}
	if next != nil {
		encoded := repository.EncodeCursor(*next)
		page.NextCursor = &encoded
	}
	return page, nil
}

// PeriodReport pages sessions whose check-in falls inside [start, end],
// ordered by (check_in_time DESC, id DESC).
func (s *ReportService) PeriodReport(ctx context.Context, schema repository.Schema, start, end time.Time, limit int, cursor string) (*ReportPage, error) {
	if end.Before(start) {
		return nil, domain.ErrInvalidPeriod
	}
	return s.page(ctx, schema, repository.ReportQuery{
		StartDate: &start,
		EndDate:   &end,
		Limit:     limit,
	}, cursor)
}

// AllSessionsReport pages every session ordered by (created_at DESC, id DESC).
func (s *ReportService) AllSessionsReport(ctx context.Context, schema repository.Schema, limit int, cursor string) (*ReportPage, error) {
	return s.page(ctx, schema, repository.ReportQuery{
		Limit:       limit,
		ByCreatedAt: true,
	}, cursor)
}

// GetSessionReport returns one enriched row.
func (s *ReportService) GetSessionReport(ctx context.Context, schema repository.Schema, sessionID string) (*repository.SessionReportRow, error) {
	return s.reports.GetSessionReport(ctx, schema, sessionID)
}
