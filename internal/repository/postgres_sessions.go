package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"care-session-service/internal/domain"
)

// Constraint names from migrations/tenant_schema.sql. The partial unique
// index is the real duplicate-active-session guard; the service-level check
// is only a fast path.
const (
	constraintActivePatient = "uq_care_sessions_active_patient"
	constraintSessionCode   = "uq_care_sessions_session_code"
)

// PostgresSessionsRepository implements SessionsRepository on database/sql.
type PostgresSessionsRepository struct {
	db *sql.DB
}

func NewPostgresSessionsRepository(db *sql.DB) *PostgresSessionsRepository {
	return &PostgresSessionsRepository{db: db}
}

var _ SessionsRepository = (*PostgresSessionsRepository)(nil)

const sessionColumns = `
	id::text,
	session_code,
	patient_id::text,
	caregiver_id::text,
	check_in_time,
	check_out_time,
	status,
	caregiver_notes,
	created_at,
	updated_at,
	deleted_at`

func scanSession(row interface{ Scan(...any) error }) (*domain.CareSession, error) {
	var s domain.CareSession
	var checkOut sql.NullTime
	var notes sql.NullString
	var deletedAt sql.NullTime

	err := row.Scan(
		&s.ID,
		&s.SessionCode,
		&s.PatientID,
		&s.CaregiverID,
		&s.CheckInTime,
		&checkOut,
		&s.Status,
		&notes,
		&s.CreatedAt,
		&s.UpdatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}
	if checkOut.Valid {
		t := checkOut.Time
		s.CheckOutTime = &t
	}
	if notes.Valid {
		s.CaregiverNotes = notes.String
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		s.DeletedAt = &t
	}
	return &s, nil
}

func (r *PostgresSessionsRepository) CreateSession(ctx context.Context, schema Schema, s *domain.CareSession) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (
			id, session_code, patient_id, caregiver_id,
			check_in_time, check_out_time, status, caregiver_notes,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10)
	`, schema.Qualify("care_sessions"))

	_, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.SessionCode,
		s.PatientID,
		s.CaregiverID,
		s.CheckInTime,
		nullTime(s.CheckOutTime),
		s.Status,
		s.CaregiverNotes,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			if pqErr.Constraint == constraintActivePatient {
				return domain.ErrDuplicateActiveSession
			}
			return fmt.Errorf("session insert conflict on %s: %w", pqErr.Constraint, err)
		}
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *PostgresSessionsRepository) GetSession(ctx context.Context, schema Schema, id string) (*domain.CareSession, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1 AND deleted_at IS NULL
	`, sessionColumns, schema.Qualify("care_sessions"))

	s, err := scanSession(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

func (r *PostgresSessionsRepository) GetActiveSessionForPatient(ctx context.Context, schema Schema, patientID string) (*domain.CareSession, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE patient_id = $1 AND status = $2 AND deleted_at IS NULL
	`, sessionColumns, schema.Qualify("care_sessions"))

	s, err := scanSession(r.db.QueryRowContext(ctx, query, patientID, domain.SessionInProgress))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}
	return s, nil
}

func (r *PostgresSessionsRepository) ListSessions(ctx context.Context, schema Schema, filter SessionsFilter, page, size int) ([]*domain.CareSession, int, error) {
	where := []string{"deleted_at IS NULL"}
	args := []any{}
	argIdx := 1

	if filter.CaregiverID != "" {
		where = append(where, fmt.Sprintf("caregiver_id = $%d", argIdx))
		args = append(args, filter.CaregiverID)
		argIdx++
	}
	if filter.PatientID != "" {
		where = append(where, fmt.Sprintf("patient_id = $%d", argIdx))
		args = append(args, filter.PatientID)
		argIdx++
	}
	if filter.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}
	if filter.StartDate != nil {
		where = append(where, fmt.Sprintf("check_in_time >= $%d", argIdx))
		args = append(args, *filter.StartDate)
		argIdx++
	}
	if filter.EndDate != nil {
		where = append(where, fmt.Sprintf("check_in_time <= $%d", argIdx))
		args = append(args, *filter.EndDate)
		argIdx++
	}

	whereClause := strings.Join(where, " AND ")
	table := schema.Qualify("care_sessions")

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, table, whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count sessions: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s
		ORDER BY check_in_time DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, sessionColumns, table, whereClause, argIdx, argIdx+1)
	args = append(args, size, (page-1)*size)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []*domain.CareSession{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate sessions: %w", err)
	}

	return sessions, total, nil
}

func (r *PostgresSessionsRepository) UpdateSession(ctx context.Context, schema Schema, id string, upd SessionUpdate) (*domain.CareSession, error) {
	set := []string{}
	args := []any{}
	argIdx := 1

	if upd.CheckInTime != nil {
		set = append(set, fmt.Sprintf("check_in_time = $%d", argIdx))
		args = append(args, *upd.CheckInTime)
		argIdx++
	}
	if upd.CheckOutTime != nil {
		set = append(set, fmt.Sprintf("check_out_time = $%d", argIdx))
		args = append(args, *upd.CheckOutTime)
		argIdx++
	}
	if upd.Status != nil {
		set = append(set, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *upd.Status)
		argIdx++
	}
	if upd.CaregiverNotes != nil {
		set = append(set, fmt.Sprintf("caregiver_notes = NULLIF($%d, '')", argIdx))
		args = append(args, *upd.CaregiverNotes)
		argIdx++
	}
	if len(set) == 0 {
		return r.GetSession(ctx, schema, id)
	}
	set = append(set, "updated_at = NOW()")

	query := fmt.Sprintf(`
		UPDATE %s
		SET %s
		WHERE id = $%d AND deleted_at IS NULL
		RETURNING %s
	`, schema.Qualify("care_sessions"), strings.Join(set, ", "), argIdx, sessionColumns)
	args = append(args, id)

	s, err := scanSession(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to update session: %w", err)
	}
	return s, nil
}

func (r *PostgresSessionsRepository) SaveCompletions(ctx context.Context, schema Schema, sessions []*domain.CareSession) error {
	if len(sessions) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		UPDATE %s
		SET status = $2,
		    check_out_time = $3,
		    caregiver_notes = NULLIF($4, ''),
		    updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, schema.Qualify("care_sessions"))

	for _, s := range sessions {
		if _, err := tx.ExecContext(ctx, query, s.ID, s.Status, nullTime(s.CheckOutTime), s.CaregiverNotes); err != nil {
			return fmt.Errorf("failed to save completion for %s: %w", s.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit completions: %w", err)
	}
	return nil
}

func (r *PostgresSessionsRepository) SoftDeleteSession(ctx context.Context, schema Schema, id string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, schema.Qualify("care_sessions"))

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *PostgresSessionsRepository) MaxSessionCodeSuffix(ctx context.Context, schema Schema) (int, error) {
	query := fmt.Sprintf(`
		SELECT COALESCE(MAX(substring(session_code FROM 4)::int), 0)
		FROM %s
		WHERE session_code ~ '^CS-[0-9]+$'
	`, schema.Qualify("care_sessions"))

	var max int
	if err := r.db.QueryRowContext(ctx, query).Scan(&max); err != nil {
		return 0, fmt.Errorf("failed to get max session code: %w", err)
	}
	return max, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
