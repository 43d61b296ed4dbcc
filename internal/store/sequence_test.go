package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatSessionCode(t *testing.T) {
	assert.Equal(t, "CS-0001", FormatSessionCode(1))
	assert.Equal(t, "CS-0042", FormatSessionCode(42))
	assert.Equal(t, "CS-10000", FormatSessionCode(10000))
}

func TestMemorySequences(t *testing.T) {
	ctx := context.Background()

	t.Run("counters are per schema", func(t *testing.T) {
		seq := NewMemorySequences(nil)
		a1, err := seq.NextSessionCode(ctx, "org_a")
		require.NoError(t, err)
		b1, err := seq.NextSessionCode(ctx, "org_b")
		require.NoError(t, err)
		a2, err := seq.NextSessionCode(ctx, "org_a")
		require.NoError(t, err)
		assert.Equal(t, "CS-0001", a1)
		assert.Equal(t, "CS-0001", b1)
		assert.Equal(t, "CS-0002", a2)
	})

	t.Run("seeds from existing max once", func(t *testing.T) {
		calls := 0
		seq := NewMemorySequences(func(_ context.Context, schema string) (int, error) {
			calls++
			return 7, nil
		})
		code, err := seq.NextSessionCode(ctx, "org_a")
		require.NoError(t, err)
		assert.Equal(t, "CS-0008", code)

		code, err = seq.NextSessionCode(ctx, "org_a")
		require.NoError(t, err)
		assert.Equal(t, "CS-0009", code)
		assert.Equal(t, 1, calls)
	})
}
