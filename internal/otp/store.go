package otp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Entry is one pending verification code.
type Entry struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
	Attempts  int       `json:"attempts"`
}

// Store is a TTL key-value store for pending codes. Backing it with a shared
// cache lets verification survive process restarts and span instances.
type Store interface {
	// Put writes an entry with a fresh TTL, replacing any previous one.
	Put(ctx context.Context, identifier string, entry Entry, ttl time.Duration) error
	// Get returns the entry, or nil when none exists (or it expired).
	Get(ctx context.Context, identifier string) (*Entry, error)
	// Update rewrites an entry keeping its remaining TTL.
	Update(ctx context.Context, identifier string, entry Entry) error
	Delete(ctx context.Context, identifier string) error
}

const keyPrefix = "otp:"

// RedisStore keeps codes in Redis so a multi-instance deployment shares them.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client *redis.Client) *RedisStore {
	if client == nil {
		panic("otp: redis client required")
	}
	return &RedisStore{client: client}
}

func (s *RedisStore) Put(ctx context.Context, identifier string, entry Entry, ttl time.Duration) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("otp: marshal entry: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+identifier, data, ttl).Err(); err != nil {
		return fmt.Errorf("otp: store entry: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, identifier string) (*Entry, error) {
	data, err := s.client.Get(ctx, keyPrefix+identifier).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("otp: fetch entry: %w", err)
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("otp: unmarshal entry: %w", err)
	}
	return &entry, nil
}

func (s *RedisStore) Update(ctx context.Context, identifier string, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("otp: marshal entry: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+identifier, data, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("otp: update entry: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, identifier string) error {
	if err := s.client.Del(ctx, keyPrefix+identifier).Err(); err != nil {
		return fmt.Errorf("otp: delete entry: %w", err)
	}
	return nil
}

// MemoryStore is a process-local store for tests and single-instance runs.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	entry     Entry
	staleAt   time.Time
	hasExpiry bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]memoryEntry{}, now: time.Now}
}

func (s *MemoryStore) Put(ctx context.Context, identifier string, entry Entry, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[identifier] = memoryEntry{entry: entry, staleAt: s.now().Add(ttl), hasExpiry: ttl > 0}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, identifier string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.entries[identifier]
	if !ok {
		return nil, nil
	}
	if stored.hasExpiry && s.now().After(stored.staleAt) {
		delete(s.entries, identifier)
		return nil, nil
	}
	entry := stored.entry
	return &entry, nil
}

func (s *MemoryStore) Update(ctx context.Context, identifier string, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.entries[identifier]
	if !ok {
		return fmt.Errorf("otp: update of missing entry %q", identifier)
	}
	stored.entry = entry
	s.entries[identifier] = stored
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, identifier)
	return nil
}

var _ Store = (*RedisStore)(nil)
var _ Store = (*MemoryStore)(nil)
