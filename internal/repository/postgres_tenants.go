package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"care-session-service/internal/domain"
)

// PostgresTenantsRepository reads the central registry in the public schema.
// Used only for the admin tenant-override path.
type PostgresTenantsRepository struct {
	db *sql.DB
}

func NewPostgresTenantsRepository(db *sql.DB) *PostgresTenantsRepository {
	return &PostgresTenantsRepository{db: db}
}

var _ TenantsRepository = (*PostgresTenantsRepository)(nil)

func (r *PostgresTenantsRepository) GetTenantByOrgID(ctx context.Context, orgID string) (*domain.Tenant, error) {
	if orgID == "" {
		return nil, domain.ErrTenantNotFound
	}

	query := `
		SELECT org_id::text, schema_name, name, active
		FROM public.tenants
		WHERE org_id = $1 AND active = true
	`

	var t domain.Tenant
	err := r.db.QueryRowContext(ctx, query, orgID).Scan(&t.OrgID, &t.SchemaName, &t.Name, &t.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return &t, nil
}
