package messaging

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"care-session-service/internal/domain"
	"care-session-service/internal/repository"
)

const testSchema = repository.Schema("org_acme")

func newConsumerFixture(t *testing.T) (*CacheSyncConsumer, *repository.MemoryRepo) {
	t.Helper()
	mem := repository.NewMemoryRepo()
	c := NewCacheSyncConsumer(mem, mem, nil, "wailsalutem.events", zap.NewNop())
	c.now = func() time.Time { return time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC) }
	return c, mem
}

func patientEvent(event, id, firstName string, updatedAt string) []byte {
	return []byte(fmt.Sprintf(
		`{"event":%q,"data":{"id":%q,"schema_name":"org_acme","first_name":%q,"last_name":"Doe","updated_at":%q}}`,
		event, id, firstName, updatedAt))
}

func TestHandleMessageUpsert(t *testing.T) {
	ctx := context.Background()
	c, mem := newConsumerFixture(t)

	err := c.HandleMessage("t", patientEvent(EventPatientCreated, "p1", "Ada", "2026-08-28T10:00:00Z"))
	require.NoError(t, err)

	p, err := mem.GetPatient(ctx, testSchema, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Ada Doe", p.FullName())
	assert.True(t, p.Active)

	t.Run("replay is idempotent", func(t *testing.T) {
		require.NoError(t, c.HandleMessage("t", patientEvent(EventPatientCreated, "p1", "Ada", "2026-08-28T10:00:00Z")))
		again, err := mem.GetPatient(ctx, testSchema, "p1")
		require.NoError(t, err)
		assert.Equal(t, *p, *again)
	})

	t.Run("stale update does not regress", func(t *testing.T) {
		require.NoError(t, c.HandleMessage("t", patientEvent(EventPatientUpdated, "p1", "Renamed", "2026-08-28T09:00:00Z")))
		got, err := mem.GetPatient(ctx, testSchema, "p1")
		require.NoError(t, err)
		assert.Equal(t, "Ada", got.FirstName)
	})

	t.Run("newer update applies", func(t *testing.T) {
		require.NoError(t, c.HandleMessage("t", patientEvent(EventPatientUpdated, "p1", "Renamed", "2026-08-28T11:00:00Z")))
		got, err := mem.GetPatient(ctx, testSchema, "p1")
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.FirstName)
	})
}

func TestHandleMessageDelete(t *testing.T) {
	ctx := context.Background()
	c, mem := newConsumerFixture(t)

	require.NoError(t, c.HandleMessage("t", patientEvent(EventPatientCreated, "p1", "Ada", "2026-08-28T10:00:00Z")))
	require.NoError(t, c.HandleMessage("t", []byte(
		`{"event":"patient.deleted","data":{"id":"p1","schema_name":"org_acme","updated_at":"2026-08-28T10:30:00Z"}}`)))

	// The row survives for historical joins, marked deleted and inactive.
	p, err := mem.GetPatient(ctx, testSchema, "p1")
	require.NoError(t, err)
	assert.NotNil(t, p.DeletedAt)
	assert.False(t, p.Active)
}

func TestHandleMessageRoleChange(t *testing.T) {
	ctx := context.Background()
	c, mem := newConsumerFixture(t)

	require.NoError(t, c.HandleMessage("t", []byte(
		`{"event":"user.created","data":{"id":"u1","schema_name":"org_acme","first_name":"Casey","role":"caregiver","updated_at":"2026-08-28T10:00:00Z"}}`)))

	require.NoError(t, c.HandleMessage("t", []byte(
		`{"event":"user.role_changed","data":{"id":"u1","schema_name":"org_acme","role":"office_manager","updated_at":"2026-08-28T10:30:00Z"}}`)))
	u, err := mem.GetUser(ctx, testSchema, "u1")
	require.NoError(t, err)
	assert.False(t, u.Active)
	assert.Equal(t, "office_manager", u.Role)

	require.NoError(t, c.HandleMessage("t", []byte(
		`{"event":"user.role_changed","data":{"id":"u1","schema_name":"org_acme","role":"caregiver","updated_at":"2026-08-28T11:00:00Z"}}`)))
	u, err = mem.GetUser(ctx, testSchema, "u1")
	require.NoError(t, err)
	assert.True(t, u.Active)
}

func TestHandleMessageDropsMalformedEvents(t *testing.T) {
	c, mem := newConsumerFixture(t)

	cases := map[string][]byte{
		"not json":       []byte("{{{"),
		"no event name":  []byte(`{"data":{"id":"p1","schema_name":"org_acme"}}`),
		"no data":        []byte(`{"event":"patient.created"}`),
		"no tenant":      []byte(`{"event":"patient.created","data":{"id":"p1"}}`),
		"no entity id":   []byte(`{"event":"patient.created","data":{"schema_name":"org_acme"}}`),
		"unknown event":  []byte(`{"event":"patient.archived","data":{"id":"p1","schema_name":"org_acme"}}`),
		"role sans role": []byte(`{"event":"user.role_changed","data":{"id":"u1","schema_name":"org_acme"}}`),
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			// Dropped, not retried: the handler acks by returning nil.
			assert.NoError(t, c.HandleMessage("t", payload))
		})
	}

	_, err := mem.GetPatient(context.Background(), testSchema, "p1")
	assert.ErrorIs(t, err, domain.ErrPatientNotFound)
}

func TestHandleMessageCamelCaseFallbacks(t *testing.T) {
	ctx := context.Background()
	c, mem := newConsumerFixture(t)

	require.NoError(t, c.HandleMessage("t", []byte(
		`{"event_type":"user.created","data":{"id":"u1","organizationId":"Acme","firstName":"Casey","lastName":"Green","role":"caregiver","updatedAt":"2026-08-28T10:00:00Z"}}`)))

	u, err := mem.GetUser(ctx, testSchema, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Casey Green", u.FullName())
	assert.True(t, u.UpdatedAt.Equal(time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)))
}
