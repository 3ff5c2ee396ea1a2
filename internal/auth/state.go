package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/Kyz7/blogaccount/internal/cache"
)

const stateTTL = 5 * time.Minute

// StateStore keeps OAuth state values until the callback consumes them. Each
// state is accepted at most once.
type StateStore interface {
	Save(ctx context.Context, state string, ttl time.Duration) error
	Consume(ctx context.Context, state string) (bool, error)
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate oauth state: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// MemoryStateStore is a process-local StateStore for single-instance deployments.
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string]time.Time
	now    func() time.Time
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[string]time.Time), now: time.Now}
}

func (s *MemoryStateStore) Save(_ context.Context, state string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.states[state] = now.Add(ttl)
	for k, v := range s.states {
		if now.After(v) {
			delete(s.states, k)
		}
	}
	return nil
}

func (s *MemoryStateStore) Consume(_ context.Context, state string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, exists := s.states[state]
	if !exists {
		return false, nil
	}
	delete(s.states, state)
	return !s.now().After(expiry), nil
}

// RedisStateStore shares OAuth state between instances.
type RedisStateStore struct {
	client *cache.Client
	prefix string
}

func NewRedisStateStore(client *cache.Client) *RedisStateStore {
	return &RedisStateStore{client: client, prefix: "oauth_state:"}
}

func (s *RedisStateStore) Save(ctx context.Context, state string, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+state, []byte("1"), ttl)
}

func (s *RedisStateStore) Consume(ctx context.Context, state string) (bool, error) {
	v, err := s.client.Take(ctx, s.prefix+state)
	if err != nil {
		return false, err
	}
	return v != nil, nil
}
