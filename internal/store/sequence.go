package store

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/go-redis/redis/v8"
)

// SeedFunc returns the largest numeric suffix already persisted for a tenant
// schema, 0 for an empty table.
type SeedFunc func(ctx context.Context, schema string) (int, error)

// SequenceAllocator hands out per-tenant session codes ("CS-0001", ...).
type SequenceAllocator interface {
	NextSessionCode(ctx context.Context, schema string) (string, error)
}

// FormatSessionCode renders a sequence number as a session code.
func FormatSessionCode(n int) string {
	return fmt.Sprintf("CS-%04d", n)
}

// RedisSequences allocates codes with INCR on a per-schema counter key. A
// missing key (first use, or Redis data loss) is reseeded from the store's
// max existing suffix, so the counter is self-healing.
type RedisSequences struct {
	c    *redis.Client
	seed SeedFunc
}

func NewRedisSequences(c *redis.Client, seed SeedFunc) *RedisSequences {
	return &RedisSequences{c: c, seed: seed}
}

var _ SequenceAllocator = (*RedisSequences)(nil)

func sequenceKey(schema string) string {
	return "care_sessions:seq:" + schema
}

func (r *RedisSequences) NextSessionCode(ctx context.Context, schema string) (string, error) {
	key := sequenceKey(schema)

	exists, err := r.c.Exists(ctx, key).Result()
	if err != nil {
		return "", fmt.Errorf("failed to check sequence key: %w", err)
	}
	if exists == 0 {
		max, err := r.seed(ctx, schema)
		if err != nil {
			return "", fmt.Errorf("failed to seed sequence: %w", err)
		}
		// SetNX so a concurrent seeder cannot clobber a counter that was
		// just created and already advanced.
		if err := r.c.SetNX(ctx, key, strconv.Itoa(max), 0).Err(); err != nil {
			return "", fmt.Errorf("failed to seed sequence key: %w", err)
		}
	}

	n, err := r.c.Incr(ctx, key).Result()
	if err != nil {
		return "", fmt.Errorf("failed to increment sequence: %w", err)
	}
	return FormatSessionCode(int(n)), nil
}

// MemorySequences is the allocator used with the in-memory repositories.
type MemorySequences struct {
	mu       sync.Mutex
	counters map[string]int
	seed     SeedFunc
}

func NewMemorySequences(seed SeedFunc) *MemorySequences {
	return &MemorySequences{counters: map[string]int{}, seed: seed}
}

var _ SequenceAllocator = (*MemorySequences)(nil)

func (m *MemorySequences) NextSessionCode(ctx context.Context, schema string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.counters[schema]; !ok && m.seed != nil {
		max, err := m.seed(ctx, schema)
		if err != nil {
			return "", err
		}
		m.counters[schema] = max
	}
	m.counters[schema]++
	return FormatSessionCode(m.counters[schema]), nil
}
