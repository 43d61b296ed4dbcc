package auth

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Permission names used by the HTTP surface.
const (
	PermSessionCreate  = "care-session:create"
	PermSessionRead    = "care-session:read"
	PermSessionUpdate  = "care-session:update"
	PermSessionAdmin   = "care-session:admin"
	PermSessionReport  = "care-session:report"
	PermFeedbackCreate = "feedback:create"
	PermFeedbackRead   = "feedback:read"
)

// PermissionTable maps role names to permission sets. Built once at process
// start and injected; read-only afterwards, so concurrent use needs no
// locking.
type PermissionTable struct {
	roles map[string][]string
}

type permissionsFile struct {
	Roles map[string][]string `yaml:"roles"`
}

// LoadPermissionTable reads the YAML policy file.
func LoadPermissionTable(path string) (*PermissionTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read permissions file: %w", err)
	}
	var parsed permissionsFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse permissions file: %w", err)
	}
	if len(parsed.Roles) == 0 {
		return nil, fmt.Errorf("permissions file %s defines no roles", path)
	}
	return NewPermissionTable(parsed.Roles), nil
}

// NewPermissionTable builds a table from an explicit role map.
func NewPermissionTable(roles map[string][]string) *PermissionTable {
	copied := make(map[string][]string, len(roles))
	for role, perms := range roles {
		copied[role] = append([]string(nil), perms...)
	}
	return &PermissionTable{roles: copied}
}

// PermissionsFor returns the union of permissions for roles. Unknown roles
// contribute nothing; they are not an error.
func (t *PermissionTable) PermissionsFor(roles []string) map[string]bool {
	result := map[string]bool{}
	for _, role := range roles {
		for _, perm := range t.roles[role] {
			result[perm] = true
		}
	}
	return result
}
