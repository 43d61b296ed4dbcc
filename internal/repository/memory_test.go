package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"care-session-service/internal/domain"
)

func TestMemoryRepoUntouchedSchema(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryRepo()
	schema := Schema("org_fresh")

	_, err := mem.GetSession(ctx, schema, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = mem.GetActiveSessionForPatient(ctx, schema, "p1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = mem.GetPatient(ctx, schema, "p1")
	assert.ErrorIs(t, err, domain.ErrPatientNotFound)
	_, err = mem.GetUser(ctx, schema, "u1")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	_, err = mem.GetActiveTag(ctx, schema, "tag-1")
	assert.ErrorIs(t, err, domain.ErrTagNotFound)
	_, err = mem.GetFeedback(ctx, schema, "f1")
	assert.ErrorIs(t, err, domain.ErrFeedbackNotFound)

	sessions, total, err := mem.ListSessions(ctx, schema, SessionsFilter{}, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, sessions)
	assert.Zero(t, total)

	max, err := mem.MaxSessionCodeSuffix(ctx, schema)
	require.NoError(t, err)
	assert.Zero(t, max)

	rows, next, err := mem.ListSessionReports(ctx, schema, ReportQuery{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Nil(t, next)
}

func TestMemoryRepoConcurrentReads(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryRepo()

	// Concurrent reads against schemas nothing has written to yet. Reads
	// must not mutate shared state while holding only the read lock.
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		schema := Schema(fmt.Sprintf("org_t%d", i%4))
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = mem.GetSession(ctx, schema, "s1")
			_, _, _ = mem.ListSessions(ctx, schema, SessionsFilter{}, 1, 10)
			_, _ = mem.GetPatient(ctx, schema, "p1")
			_, _ = mem.GetUser(ctx, schema, "u1")
			_, _ = mem.GetActiveTag(ctx, schema, "tag-1")
			_, _, _ = mem.ListSessionReports(ctx, schema, ReportQuery{Limit: 10})
		}()
	}
	wg.Wait()

	// Reads never materialize a schema.
	_, ok := mem.lookup(Schema("org_t0"))
	assert.False(t, ok)
}
