package repository

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSchema(t *testing.T) {
	valid := []string{"org_acme", "public", "_internal", "org_12ab"}
	for _, name := range valid {
		s, err := NewSchema(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, s.String())
	}

	invalid := []string{
		"",
		"Org_Acme",
		"org-acme",
		"1org",
		`org"; DROP TABLE care_sessions; --`,
		strings.Repeat("a", 64),
	}
	for _, name := range invalid {
		_, err := NewSchema(name)
		assert.Error(t, err, name)
	}
}

func TestSchemaForOrg(t *testing.T) {
	s, err := SchemaForOrg("ACME-Care-01")
	require.NoError(t, err)
	assert.Equal(t, Schema("org_acme_care_01"), s)

	_, err = SchemaForOrg(`evil"org`)
	assert.Error(t, err)
}

func TestQualify(t *testing.T) {
	s := Schema("org_acme")
	assert.Equal(t, `"org_acme"."care_sessions"`, s.Qualify("care_sessions"))
}
