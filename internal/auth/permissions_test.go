package auth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissionsFor(t *testing.T) {
	table := NewPermissionTable(map[string][]string{
		"caregiver": {PermSessionCreate, PermSessionRead},
		"org_admin": {PermSessionAdmin, PermSessionReport},
	})

	t.Run("union across roles", func(t *testing.T) {
		perms := table.PermissionsFor([]string{"caregiver", "org_admin"})
		assert.True(t, perms[PermSessionCreate])
		assert.True(t, perms[PermSessionAdmin])
		assert.False(t, perms[PermFeedbackCreate])
	})

	t.Run("unknown roles contribute nothing", func(t *testing.T) {
		perms := table.PermissionsFor([]string{"offline_access", "uma_authorization"})
		assert.Empty(t, perms)
	})

	t.Run("no roles", func(t *testing.T) {
		assert.Empty(t, table.PermissionsFor(nil))
	})
}

func TestLoadPermissionTable(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(dir, "permissions.yml")
		require.NoError(t, os.WriteFile(path, []byte(
			"roles:\n  caregiver:\n    - care-session:create\n    - care-session:read\n"), 0o644))

		table, err := LoadPermissionTable(path)
		require.NoError(t, err)
		perms := table.PermissionsFor([]string{"caregiver"})
		assert.True(t, perms[PermSessionCreate])
		assert.True(t, perms[PermSessionRead])
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadPermissionTable(filepath.Join(dir, "nope.yml"))
		assert.Error(t, err)
	})

	t.Run("empty roles", func(t *testing.T) {
		path := filepath.Join(dir, "empty.yml")
		require.NoError(t, os.WriteFile(path, []byte("roles: {}\n"), 0o644))
		_, err := LoadPermissionTable(path)
		assert.Error(t, err)
	})
}
