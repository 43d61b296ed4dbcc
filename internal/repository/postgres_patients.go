package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"care-session-service/internal/domain"
)

// PostgresPatientsRepository implements the patient read cache. Upserts are
// guarded by updated_at so an out-of-order redelivery never regresses a row.
type PostgresPatientsRepository struct {
	db *sql.DB
}

func NewPostgresPatientsRepository(db *sql.DB) *PostgresPatientsRepository {
	return &PostgresPatientsRepository{db: db}
}

var _ PatientsRepository = (*PostgresPatientsRepository)(nil)

const patientColumns = `
	id::text,
	first_name,
	last_name,
	email,
	active,
	updated_at,
	deleted_at`

func scanPatient(row interface{ Scan(...any) error }) (*domain.Patient, error) {
	var p domain.Patient
	var firstName, lastName, email sql.NullString
	var deletedAt sql.NullTime

	err := row.Scan(
		&p.ID,
		&firstName,
		&lastName,
		&email,
		&p.Active,
		&p.UpdatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}
	p.FirstName = firstName.String
	p.LastName = lastName.String
	p.Email = email.String
	if deletedAt.Valid {
		t := deletedAt.Time
		p.DeletedAt = &t
	}
	return &p, nil
}

func (r *PostgresPatientsRepository) GetPatient(ctx context.Context, schema Schema, id string) (*domain.Patient, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1
	`, patientColumns, schema.Qualify("patients"))

	p, err := scanPatient(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPatientNotFound
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return p, nil
}

func (r *PostgresPatientsRepository) GetPatientsByIDs(ctx context.Context, schema Schema, ids []string) (map[string]*domain.Patient, error) {
	result := map[string]*domain.Patient{}
	if len(ids) == 0 {
		return result, nil
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = ANY($1)
	`, patientColumns, schema.Qualify("patients"))

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get patients: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan patient: %w", err)
		}
		result[p.ID] = p
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate patients: %w", err)
	}
	return result, nil
}

func (r *PostgresPatientsRepository) UpsertPatient(ctx context.Context, schema Schema, p *domain.Patient) (bool, error) {
	// The WHERE on the conflict arm skips events older than the cached row.
	// Equal timestamps re-apply, which keeps replays idempotent.
	query := fmt.Sprintf(`
		INSERT INTO %s (id, first_name, last_name, email, active, updated_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULL)
		ON CONFLICT (id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			email = EXCLUDED.email,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at,
			deleted_at = NULL
		WHERE %s.updated_at <= EXCLUDED.updated_at
	`, schema.Qualify("patients"), pq.QuoteIdentifier("patients"))

	result, err := r.db.ExecContext(ctx, query,
		p.ID, p.FirstName, p.LastName, p.Email, p.Active, p.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to upsert patient: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *PostgresPatientsRepository) MarkPatientDeleted(ctx context.Context, schema Schema, id string, at time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET deleted_at = $2, active = false, updated_at = $2
		WHERE id = $1 AND updated_at <= $2
	`, schema.Qualify("patients"))

	if _, err := r.db.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("failed to mark patient deleted: %w", err)
	}
	return nil
}

func (r *PostgresPatientsRepository) SetPatientActive(ctx context.Context, schema Schema, id string, active bool, at time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET active = $2, updated_at = $3
		WHERE id = $1 AND updated_at <= $3
	`, schema.Qualify("patients"))

	if _, err := r.db.ExecContext(ctx, query, id, active, at); err != nil {
		return fmt.Errorf("failed to set patient active: %w", err)
	}
	return nil
}
