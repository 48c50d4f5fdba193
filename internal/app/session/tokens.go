package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenStore persists the session token across runs.
type TokenStore interface {
	// Load returns the persisted token, or "" when there is none.
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Delete(ctx context.Context) error
}

// MemoryTokenStore keeps the token for the lifetime of the process.
type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
}

func (m *MemoryTokenStore) Load(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryTokenStore) Save(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryTokenStore) Delete(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

// FileTokenStore keeps the token in a file readable only by its owner.
type FileTokenStore struct {
	Path string
}

func (f *FileTokenStore) Load(context.Context) (string, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("token file: failed to read: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (f *FileTokenStore) Save(_ context.Context, token string) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("token file: failed to create directory: %w", err)
	}

	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, []byte(token), 0o600); err != nil {
		return fmt.Errorf("token file: failed to write: %w", err)
	}

	if err := os.Rename(tmp, f.Path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("token file: failed to replace: %w", err)
	}

	return nil
}

func (f *FileTokenStore) Delete(context.Context) error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("token file: failed to delete: %w", err)
	}
	return nil
}

// RedisTokenStore keeps the token under a single Redis key, e.g. to share one
// session between several view servers.
type RedisTokenStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisTokenStore stores the token under "blogctl:token:<profile>".
// A zero ttl keeps the key until it is deleted.
func NewRedisTokenStore(client *redis.Client, profile string, ttl time.Duration) *RedisTokenStore {
	if profile == "" {
		profile = "default"
	}

	return &RedisTokenStore{
		client: client,
		key:    "blogctl:token:" + profile,
		ttl:    ttl,
	}
}

// NewRedisClient connects to addr and checks the connection.
func NewRedisClient(addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: failed to connect to %s: %w", addr, err)
	}

	return client, nil
}

func (r *RedisTokenStore) Load(ctx context.Context) (string, error) {
	val, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("token store: failed to read: %w", err)
	}
	return val, nil
}

func (r *RedisTokenStore) Save(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("token store: refusing to save an empty token")
	}
	return r.client.Set(ctx, r.key, token, r.ttl).Err()
}

func (r *RedisTokenStore) Delete(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}
