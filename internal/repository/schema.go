package repository

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lib/pq"
)

// Schema is a validated tenant schema name. Every repository call takes one
// explicitly so tenant selection is never ambient state on the connection.
type Schema string

var schemaNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// NewSchema validates a raw schema name. Names are produced by the tenant
// registry or derived from organization ids, never taken verbatim from
// request input.
func NewSchema(name string) (Schema, error) {
	if name == "" {
		return "", fmt.Errorf("schema name is empty")
	}
	if len(name) > 63 {
		return "", fmt.Errorf("schema name too long: %q", name)
	}
	if !schemaNamePattern.MatchString(name) {
		return "", fmt.Errorf("invalid schema name: %q", name)
	}
	return Schema(name), nil
}

// SchemaForOrg derives the conventional schema name from an organization id
// ("org_" prefix, dashes normalized to underscores).
func SchemaForOrg(orgID string) (Schema, error) {
	normalized := strings.ToLower(strings.ReplaceAll(orgID, "-", "_"))
	return NewSchema("org_" + normalized)
}

// Qualify returns the quoted schema-qualified table reference for SQL text.
func (s Schema) Qualify(table string) string {
	return pq.QuoteIdentifier(string(s)) + "." + pq.QuoteIdentifier(table)
}

func (s Schema) String() string { return string(s) }
