package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"care-session-service/internal/domain"
	"care-session-service/internal/repository"
)

func TestResolve(t *testing.T) {
	ctx := context.Background()
	registry := repository.NewMemoryRepo()
	registry.PutTenant(domain.Tenant{
		OrgID:      "acme",
		SchemaName: "org_acme",
		Name:       "Acme Care",
		Active:     true,
	})
	resolver := NewTenantResolver(registry)

	t.Run("super admin override wins", func(t *testing.T) {
		claims := &Claims{
			Subject:    "admin-1",
			SchemaName: "org_own",
			Roles:      []string{RoleSuperAdmin},
		}
		schema, err := resolver.Resolve(ctx, claims, "acme")
		require.NoError(t, err)
		assert.Equal(t, repository.Schema("org_acme"), schema)
	})

	t.Run("override for unknown tenant", func(t *testing.T) {
		claims := &Claims{Roles: []string{RoleSuperAdmin}}
		_, err := resolver.Resolve(ctx, claims, "ghost")
		assert.ErrorIs(t, err, domain.ErrTenantNotFound)
	})

	t.Run("override ignored without super admin", func(t *testing.T) {
		claims := &Claims{SchemaName: "org_own", Roles: []string{"caregiver"}}
		schema, err := resolver.Resolve(ctx, claims, "acme")
		require.NoError(t, err)
		assert.Equal(t, repository.Schema("org_own"), schema)
	})

	t.Run("schema claim used directly", func(t *testing.T) {
		claims := &Claims{SchemaName: "org_own"}
		schema, err := resolver.Resolve(ctx, claims, "")
		require.NoError(t, err)
		assert.Equal(t, repository.Schema("org_own"), schema)
	})

	t.Run("derived from organization id", func(t *testing.T) {
		claims := &Claims{OrganizationID: "ACME-Care"}
		schema, err := resolver.Resolve(ctx, claims, "")
		require.NoError(t, err)
		assert.Equal(t, repository.Schema("org_acme_care"), schema)
	})

	t.Run("no tenant information", func(t *testing.T) {
		_, err := resolver.Resolve(ctx, &Claims{Subject: "u1"}, "")
		assert.ErrorIs(t, err, domain.ErrMissingTenant)
	})

	t.Run("malformed schema claim", func(t *testing.T) {
		claims := &Claims{SchemaName: `org"; drop`}
		_, err := resolver.Resolve(ctx, claims, "")
		assert.ErrorIs(t, err, domain.ErrMissingTenant)
	})
}
