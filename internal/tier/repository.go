// AngelaMos | 2026
// repository.go

package tier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/tierform/internal/core"
)

// Repository retains session state between interactions.
type Repository interface {
	Get(ctx context.Context, id string) (*State, error)
	Save(ctx context.Context, state *State) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

type memoryRepository struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryRepository(ttl time.Duration) Repository {
	return newMemoryRepository(ttl, time.Now)
}

func newMemoryRepository(ttl time.Duration, now func() time.Time) *memoryRepository {
	return &memoryRepository{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     now,
	}
}

func (r *memoryRepository) Get(_ context.Context, id string) (*State, error) {
	r.mu.RLock()
	entry, ok := r.entries[id]
	r.mu.RUnlock()

	if !ok || r.expired(entry) {
		return nil, fmt.Errorf("get session: %w", core.ErrNotFound)
	}

	return decodeState(entry.data)
}

func (r *memoryRepository) Save(_ context.Context, state *State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[state.ID] = memoryEntry{
		data:      data,
		expiresAt: r.now().Add(r.ttl),
	}
	r.sweep()

	return nil
}

func (r *memoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok || r.expired(entry) {
		return fmt.Errorf("delete session: %w", core.ErrNotFound)
	}
	delete(r.entries, id)

	return nil
}

func (r *memoryRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, entry := range r.entries {
		if !r.expired(entry) {
			n++
		}
	}
	return n, nil
}

func (r *memoryRepository) Ping(_ context.Context) error {
	return nil
}

func (r *memoryRepository) expired(e memoryEntry) bool {
	return r.ttl > 0 && !r.now().Before(e.expiresAt)
}

// sweep drops expired entries. Caller holds the write lock.
func (r *memoryRepository) sweep() {
	for id, entry := range r.entries {
		if r.expired(entry) {
			delete(r.entries, id)
		}
	}
}

type redisRepository struct {
	rdb    *core.Redis
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisRepository(
	rdb *core.Redis,
	prefix string,
	ttl time.Duration,
) Repository {
	return &redisRepository{
		rdb:    rdb,
		client: rdb.Client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (r *redisRepository) key(id string) string {
	return r.prefix + id
}

func (r *redisRepository) Get(ctx context.Context, id string) (*State, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get session: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	return decodeState(data)
}

func (r *redisRepository) Save(ctx context.Context, state *State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	if err := r.client.Set(ctx, r.key(state.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	return nil
}

func (r *redisRepository) Delete(ctx context.Context, id string) error {
	n, err := r.client.Del(ctx, r.key(id)).Result()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete session: %w", core.ErrNotFound)
	}

	return nil
}

func (r *redisRepository) Count(ctx context.Context) (int, error) {
	n := 0
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}

	return n, nil
}

func (r *redisRepository) Ping(ctx context.Context) error {
	if err := r.rdb.Ping(ctx); err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	return nil
}

func decodeState(data []byte) (*State, error) {
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &state, nil
}
