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

const constraintFeedbackSession = "uq_feedback_care_session"

// PostgresFeedbackRepository implements FeedbackRepository on database/sql.
type PostgresFeedbackRepository struct {
	db *sql.DB
}

func NewPostgresFeedbackRepository(db *sql.DB) *PostgresFeedbackRepository {
	return &PostgresFeedbackRepository{db: db}
}

var _ FeedbackRepository = (*PostgresFeedbackRepository)(nil)

const feedbackColumns = `
	id::text,
	care_session_id::text,
	patient_id::text,
	caregiver_id::text,
	rating,
	patient_feedback,
	created_at,
	deleted_at`

func scanFeedback(row interface{ Scan(...any) error }) (*domain.Feedback, error) {
	var f domain.Feedback
	var comment sql.NullString
	var deletedAt sql.NullTime

	err := row.Scan(
		&f.ID,
		&f.CareSessionID,
		&f.PatientID,
		&f.CaregiverID,
		&f.Rating,
		&comment,
		&f.CreatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}
	if comment.Valid {
		f.PatientFeedback = comment.String
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		f.DeletedAt = &t
	}
	return &f, nil
}

func (r *PostgresFeedbackRepository) CreateFeedback(ctx context.Context, schema Schema, f *domain.Feedback) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (
			id, care_session_id, patient_id, caregiver_id,
			rating, patient_feedback, created_at
		) VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)
	`, schema.Qualify("feedback"))

	_, err := r.db.ExecContext(ctx, query,
		f.ID,
		f.CareSessionID,
		f.PatientID,
		f.CaregiverID,
		f.Rating,
		f.PatientFeedback,
		f.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == constraintFeedbackSession {
			return domain.ErrFeedbackExists
		}
		return fmt.Errorf("failed to create feedback: %w", err)
	}
	return nil
}

func (r *PostgresFeedbackRepository) GetFeedback(ctx context.Context, schema Schema, id string) (*domain.Feedback, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1 AND deleted_at IS NULL
	`, feedbackColumns, schema.Qualify("feedback"))

	f, err := scanFeedback(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrFeedbackNotFound
		}
		return nil, fmt.Errorf("failed to get feedback: %w", err)
	}
	return f, nil
}

func (r *PostgresFeedbackRepository) GetFeedbackBySession(ctx context.Context, schema Schema, sessionID string) (*domain.Feedback, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE care_session_id = $1 AND deleted_at IS NULL
	`, feedbackColumns, schema.Qualify("feedback"))

	f, err := scanFeedback(r.db.QueryRowContext(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrFeedbackNotFound
		}
		return nil, fmt.Errorf("failed to get feedback by session: %w", err)
	}
	return f, nil
}

func (r *PostgresFeedbackRepository) ListFeedback(ctx context.Context, schema Schema, filter FeedbackFilter, page, size int) ([]*domain.Feedback, int, error) {
	where := []string{"deleted_at IS NULL"}
	args := []any{}
	argIdx := 1

	if filter.PatientID != "" {
		where = append(where, fmt.Sprintf("patient_id = $%d", argIdx))
		args = append(args, filter.PatientID)
		argIdx++
	}
	if filter.CaregiverID != "" {
		where = append(where, fmt.Sprintf("caregiver_id = $%d", argIdx))
		args = append(args, filter.CaregiverID)
		argIdx++
	}
	if filter.Rating != 0 {
		where = append(where, fmt.Sprintf("rating = $%d", argIdx))
		args = append(args, filter.Rating)
		argIdx++
	}
	if filter.StartDate != nil {
		where = append(where, fmt.Sprintf("created_at >= $%d", argIdx))
		args = append(args, *filter.StartDate)
		argIdx++
	}
	if filter.EndDate != nil {
		where = append(where, fmt.Sprintf("created_at <= $%d", argIdx))
		args = append(args, *filter.EndDate)
		argIdx++
	}

	whereClause := strings.Join(where, " AND ")
	table := schema.Qualify("feedback")

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, table, whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count feedback: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, feedbackColumns, table, whereClause, argIdx, argIdx+1)
	args = append(args, size, (page-1)*size)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer rows.Close()

	items := []*domain.Feedback{}
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan feedback: %w", err)
		}
		items = append(items, f)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate feedback: %w", err)
	}

	return items, total, nil
}

func (r *PostgresFeedbackRepository) ListFeedbackBetween(ctx context.Context, schema Schema, start, end time.Time) ([]*domain.Feedback, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE deleted_at IS NULL AND created_at >= $1 AND created_at <= $2
		ORDER BY created_at ASC
	`, feedbackColumns, schema.Qualify("feedback"))

	rows, err := r.db.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback between: %w", err)
	}
	defer rows.Close()

	items := []*domain.Feedback{}
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		items = append(items, f)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate feedback: %w", err)
	}
	return items, nil
}

func (r *PostgresFeedbackRepository) ListFeedbackForPatient(ctx context.Context, schema Schema, patientID string) ([]*domain.Feedback, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE deleted_at IS NULL AND patient_id = $1
		ORDER BY created_at ASC
	`, feedbackColumns, schema.Qualify("feedback"))

	rows, err := r.db.QueryContext(ctx, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list patient feedback: %w", err)
	}
	defer rows.Close()

	items := []*domain.Feedback{}
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		items = append(items, f)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate feedback: %w", err)
	}
	return items, nil
}

func (r *PostgresFeedbackRepository) SoftDeleteFeedback(ctx context.Context, schema Schema, id string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, schema.Qualify("feedback"))

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete feedback: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrFeedbackNotFound
	}
	return nil
}
