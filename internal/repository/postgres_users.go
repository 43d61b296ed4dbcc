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

// PostgresUsersRepository implements the caregiver read cache with the same
// updated_at guard as the patient cache.
type PostgresUsersRepository struct {
	db *sql.DB
}

func NewPostgresUsersRepository(db *sql.DB) *PostgresUsersRepository {
	return &PostgresUsersRepository{db: db}
}

var _ UsersRepository = (*PostgresUsersRepository)(nil)

const userColumns = `
	id::text,
	first_name,
	last_name,
	email,
	role,
	active,
	updated_at,
	deleted_at`

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	var u domain.User
	var firstName, lastName, email, role sql.NullString
	var deletedAt sql.NullTime

	err := row.Scan(
		&u.ID,
		&firstName,
		&lastName,
		&email,
		&role,
		&u.Active,
		&u.UpdatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}
	u.FirstName = firstName.String
	u.LastName = lastName.String
	u.Email = email.String
	u.Role = role.String
	if deletedAt.Valid {
		t := deletedAt.Time
		u.DeletedAt = &t
	}
	return &u, nil
}

func (r *PostgresUsersRepository) GetUser(ctx context.Context, schema Schema, id string) (*domain.User, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1
	`, userColumns, schema.Qualify("users"))

	u, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (r *PostgresUsersRepository) GetUsersByIDs(ctx context.Context, schema Schema, ids []string) (map[string]*domain.User, error) {
	result := map[string]*domain.User{}
	if len(ids) == 0 {
		return result, nil
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = ANY($1)
	`, userColumns, schema.Qualify("users"))

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		result[u.ID] = u
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return result, nil
}

func (r *PostgresUsersRepository) UpsertUser(ctx context.Context, schema Schema, u *domain.User) (bool, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, first_name, last_name, email, role, active, updated_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULL)
		ON CONFLICT (id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			email = EXCLUDED.email,
			role = EXCLUDED.role,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at,
			deleted_at = NULL
		WHERE %s.updated_at <= EXCLUDED.updated_at
	`, schema.Qualify("users"), pq.QuoteIdentifier("users"))

	result, err := r.db.ExecContext(ctx, query,
		u.ID, u.FirstName, u.LastName, u.Email, u.Role, u.Active, u.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to upsert user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *PostgresUsersRepository) MarkUserDeleted(ctx context.Context, schema Schema, id string, at time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET deleted_at = $2, active = false, updated_at = $2
		WHERE id = $1 AND updated_at <= $2
	`, schema.Qualify("users"))

	if _, err := r.db.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("failed to mark user deleted: %w", err)
	}
	return nil
}

func (r *PostgresUsersRepository) SetUserActive(ctx context.Context, schema Schema, id string, active bool, at time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET active = $2, updated_at = $3
		WHERE id = $1 AND updated_at <= $3
	`, schema.Qualify("users"))

	if _, err := r.db.ExecContext(ctx, query, id, active, at); err != nil {
		return fmt.Errorf("failed to set user active: %w", err)
	}
	return nil
}

func (r *PostgresUsersRepository) SetUserRole(ctx context.Context, schema Schema, id, role string, at time.Time) error {
	// Role moves away from caregiver → inactive; into caregiver → active.
	// The row itself stays for historical session attribution.
	query := fmt.Sprintf(`
		UPDATE %s
		SET role = $2, active = ($2 = $3), updated_at = $4
		WHERE id = $1 AND updated_at <= $4
	`, schema.Qualify("users"))

	if _, err := r.db.ExecContext(ctx, query, id, role, domain.RoleCaregiver, at); err != nil {
		return fmt.Errorf("failed to set user role: %w", err)
	}
	return nil
}
