package auth

// Claims is the verified identity extracted from a bearer token.
type Claims struct {
	Subject        string
	OrganizationID string
	// SchemaName is the explicit tenant schema claim, when the issuer sets
	// one. Older tenants only carry OrganizationID.
	SchemaName string
	Roles      []string
}

// HasRole reports whether the token carries role.
func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}
