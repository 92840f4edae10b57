package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	appErrors "github.com/noah-isme/fraudlens-api/pkg/errors"
	"github.com/noah-isme/fraudlens-api/pkg/storage"
)

// Every KV store returns appErrors.ErrStoreMissing for an absent key.

// MemoryKVStore keeps values in process memory.
type MemoryKVStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryKVStore constructs an empty in-memory store.
func NewMemoryKVStore() *MemoryKVStore {
	return &MemoryKVStore{values: make(map[string][]byte)}
}

// Get returns a copy of the stored bytes.
func (s *MemoryKVStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	if !ok {
		return nil, appErrors.ErrStoreMissing
	}
	return append([]byte(nil), value...), nil
}

// Set replaces the stored bytes.
func (s *MemoryKVStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = append([]byte(nil), value...)
	return nil
}

// FileKVStore keeps one JSON file per key under a LocalStorage directory.
type FileKVStore struct {
	storage *storage.LocalStorage
}

// NewFileKVStore wraps the provided local storage.
func NewFileKVStore(store *storage.LocalStorage) *FileKVStore {
	return &FileKVStore{storage: store}
}

// Get reads the file backing key.
func (s *FileKVStore) Get(_ context.Context, key string) ([]byte, error) {
	data, err := s.storage.Read(fileNameForKey(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, appErrors.ErrStoreMissing
		}
		return nil, fmt.Errorf("read kv file %s: %w", key, err)
	}
	return data, nil
}

// Set atomically rewrites the file backing key.
func (s *FileKVStore) Set(_ context.Context, key string, value []byte) error {
	if _, err := s.storage.Save(fileNameForKey(key), value); err != nil {
		return fmt.Errorf("write kv file %s: %w", key, err)
	}
	return nil
}

// fileNameForKey flattens key into a single file name. Parent segments collapse
// into one underscore; LocalStorage still confines the result to its base dir.
func fileNameForKey(key string) string {
	replacer := strings.NewReplacer("../", "_", "..\\", "_", "/", "_", "\\", "_", "..", "_")
	return replacer.Replace(key) + ".json"
}

// RedisKVStore keeps values as plain Redis strings without expiry.
type RedisKVStore struct {
	client *redis.Client
}

// NewRedisKVStore constructs a Redis-backed store.
func NewRedisKVStore(client *redis.Client) *RedisKVStore {
	return &RedisKVStore{client: client}
}

// Get loads the value stored under key.
func (s *RedisKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, appErrors.ErrStoreMissing
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return raw, nil
}

// Set stores value under key.
func (s *RedisKVStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// PostgresKVStore persists values in the client_settings table.
type PostgresKVStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewPostgresKVStore constructs the store.
func NewPostgresKVStore(db *sqlx.DB) *PostgresKVStore {
	return &PostgresKVStore{db: db, now: time.Now}
}

// Get fetches the JSON value for key.
func (s *PostgresKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	const query = `SELECT value FROM client_settings WHERE key = $1`
	var value []byte
	if err := s.db.GetContext(ctx, &value, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrStoreMissing
		}
		return nil, fmt.Errorf("get client setting %s: %w", key, err)
	}
	return value, nil
}

// Set upserts the JSON value for key. The value must be valid JSON.
func (s *PostgresKVStore) Set(ctx context.Context, key string, value []byte) error {
	const query = `INSERT INTO client_settings (key, value, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (key)
DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
	if _, err := s.db.ExecContext(ctx, query, key, string(value), s.now().UTC()); err != nil {
		return fmt.Errorf("upsert client setting %s: %w", key, err)
	}
	return nil
}
