package domain

// Tenant is a row in the central tenant registry (public.tenants).
// SchemaName is the database schema holding that organization's data.
type Tenant struct {
	OrgID      string `db:"org_id"` // external organization id, PRIMARY KEY
	SchemaName string `db:"schema_name"`
	Name       string `db:"name"`
	Active     bool   `db:"active"`
}
