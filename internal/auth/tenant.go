package auth

import (
	"context"
	"fmt"

	"care-session-service/internal/domain"
	"care-session-service/internal/repository"
)

// RoleSuperAdmin may select any tenant via the override header.
const RoleSuperAdmin = "super_admin"

// TenantResolver turns verified claims (plus an optional admin override)
// into the tenant schema for the rest of the request. The result is computed
// fresh on every request, never cached.
type TenantResolver struct {
	tenants repository.TenantsRepository
}

func NewTenantResolver(tenants repository.TenantsRepository) *TenantResolver {
	return &TenantResolver{tenants: tenants}
}

// Resolve picks the schema:
//   - an elevated caller supplying an override id gets that tenant's schema
//     from the central registry (ErrTenantNotFound when absent),
//   - a schema claim is used directly,
//   - otherwise the schema is derived from the organization id
//     ("org_" prefix, dashes normalized),
//   - with nothing to go on the request is unauthenticated.
func (r *TenantResolver) Resolve(ctx context.Context, claims *Claims, override string) (repository.Schema, error) {
	if override != "" && claims.HasRole(RoleSuperAdmin) {
		tenant, err := r.tenants.GetTenantByOrgID(ctx, override)
		if err != nil {
			return "", err
		}
		schema, err := repository.NewSchema(tenant.SchemaName)
		if err != nil {
			return "", fmt.Errorf("tenant %s has invalid schema: %w", override, err)
		}
		return schema, nil
	}

	if claims.SchemaName != "" {
		schema, err := repository.NewSchema(claims.SchemaName)
		if err != nil {
			return "", fmt.Errorf("%w: bad schema claim", domain.ErrMissingTenant)
		}
		return schema, nil
	}

	if claims.OrganizationID != "" {
		schema, err := repository.SchemaForOrg(claims.OrganizationID)
		if err != nil {
			return "", fmt.Errorf("%w: bad organization id", domain.ErrMissingTenant)
		}
		return schema, nil
	}

	return "", domain.ErrMissingTenant
}
