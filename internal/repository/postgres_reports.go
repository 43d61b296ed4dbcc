package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"care-session-service/internal/domain"
)

// PostgresReportsRepository implements the read-only report joins.
type PostgresReportsRepository struct {
	db *sql.DB
}

func NewPostgresReportsRepository(db *sql.DB) *PostgresReportsRepository {
	return &PostgresReportsRepository{db: db}
}

var _ ReportsRepository = (*PostgresReportsRepository)(nil)

func (r *PostgresReportsRepository) reportSelect(schema Schema) string {
	return fmt.Sprintf(`
		SELECT
			s.id::text,
			s.session_code,
			s.patient_id::text,
			COALESCE(TRIM(CONCAT(p.first_name, ' ', p.last_name)), ''),
			s.caregiver_id::text,
			COALESCE(TRIM(CONCAT(u.first_name, ' ', u.last_name)), ''),
			s.check_in_time,
			s.check_out_time,
			s.status,
			s.caregiver_notes,
			f.rating,
			f.patient_feedback,
			s.created_at
		FROM %s s
		LEFT JOIN %s p ON p.id = s.patient_id
		LEFT JOIN %s u ON u.id = s.caregiver_id
		LEFT JOIN %s f ON f.care_session_id = s.id AND f.deleted_at IS NULL
	`,
		schema.Qualify("care_sessions"),
		schema.Qualify("patients"),
		schema.Qualify("users"),
		schema.Qualify("feedback"),
	)
}

func scanReportRow(row interface{ Scan(...any) error }) (*SessionReportRow, error) {
	var item SessionReportRow
	var checkOut sql.NullTime
	var notes, comment sql.NullString
	var rating sql.NullInt64

	err := row.Scan(
		&item.SessionID,
		&item.SessionCode,
		&item.PatientID,
		&item.PatientName,
		&item.CaregiverID,
		&item.CaregiverName,
		&item.CheckInTime,
		&checkOut,
		&item.Status,
		&notes,
		&rating,
		&comment,
		&item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if checkOut.Valid {
		t := checkOut.Time
		item.CheckOutTime = &t
		minutes := int(t.Sub(item.CheckInTime).Seconds()) / 60
		item.DurationMinutes = &minutes
	}
	item.CaregiverNotes = notes.String
	if rating.Valid {
		v := int(rating.Int64)
		item.Rating = &v
	}
	item.PatientFeedback = comment.String
	return &item, nil
}

func (r *PostgresReportsRepository) ListSessionReports(ctx context.Context, schema Schema, q ReportQuery) ([]*SessionReportRow, *CursorKey, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}

	// The period report orders by check_in_time, the all-sessions report by
	// created_at. The id tiebreak makes the compound key total.
	orderCol := "s.check_in_time"
	if q.ByCreatedAt {
		orderCol = "s.created_at"
	}

	where := []string{"s.deleted_at IS NULL"}
	args := []any{}
	argIdx := 1

	if q.StartDate != nil {
		where = append(where, fmt.Sprintf("s.check_in_time >= $%d", argIdx))
		args = append(args, *q.StartDate)
		argIdx++
	}
	if q.EndDate != nil {
		where = append(where, fmt.Sprintf("s.check_in_time <= $%d", argIdx))
		args = append(args, *q.EndDate)
		argIdx++
	}
	if q.After != nil {
		// Strictly before the cursor position under (timestamp, id) DESC.
		where = append(where, fmt.Sprintf("(%s < $%d OR (%s = $%d AND s.id < $%d))",
			orderCol, argIdx, orderCol, argIdx, argIdx+1))
		args = append(args, q.After.Timestamp, q.After.ID)
		argIdx += 2
	}

	query := fmt.Sprintf(`%s
		WHERE %s
		ORDER BY %s DESC, s.id DESC
		LIMIT $%d
	`, r.reportSelect(schema), strings.Join(where, " AND "), orderCol, argIdx)
	args = append(args, q.Limit+1)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list session reports: %w", err)
	}
	defer rows.Close()

	items := []*SessionReportRow{}
	for rows.Next() {
		item, err := scanReportRow(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to iterate report rows: %w", err)
	}

	var next *CursorKey
	if len(items) > q.Limit {
		items = items[:q.Limit]
		last := items[len(items)-1]
		ts := last.CheckInTime
		if q.ByCreatedAt {
			ts = last.CreatedAt
		}
		next = &CursorKey{Timestamp: ts, ID: last.SessionID}
	}
	return items, next, nil
}

func (r *PostgresReportsRepository) GetSessionReport(ctx context.Context, schema Schema, sessionID string) (*SessionReportRow, error) {
	query := r.reportSelect(schema) + ` WHERE s.id = $1 AND s.deleted_at IS NULL`

	item, err := scanReportRow(r.db.QueryRowContext(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session report: %w", err)
	}
	return item, nil
}
