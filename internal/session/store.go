package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
)

// Store persists the pointer to the signed-in user.
type Store interface {
	// Load returns the stored user ID, or "" if there is none.
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, userID string) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the pointer in process.
type MemoryStore struct {
	mu     sync.Mutex
	userID string
}

func (s *MemoryStore) Load(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID, nil
}

func (s *MemoryStore) Save(ctx context.Context, userID string) error {
	s.mu.Lock()
	s.userID = userID
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	return s.Save(ctx, "")
}

// FileStore keeps the pointer in a small file, the CLI's equivalent of a
// browser's local storage entry.
type FileStore struct {
	fs   afero.Fs
	path string
}

// NewFileStore creates a FileStore at path on fs.
func NewFileStore(fs afero.Fs, path string) *FileStore {
	return &FileStore{fs: fs, path: path}
}

func (s *FileStore) Load(ctx context.Context) (string, error) {
	b, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func (s *FileStore) Save(ctx context.Context, userID string) error {
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}
	return afero.WriteFile(s.fs, s.path, []byte(userID+"\n"), 0o600)
}

func (s *FileStore) Clear(ctx context.Context) error {
	err := s.fs.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// RedisStore keeps the pointer under a per-client key.
type RedisStore struct {
	rdb *redis.Client
	key string
}

// NewRedisStore creates a RedisStore for clientID.
func NewRedisStore(rdb *redis.Client, prefix, clientID string) *RedisStore {
	return &RedisStore{rdb: rdb, key: prefix + ":session:" + clientID}
}

func (s *RedisStore) Load(ctx context.Context) (string, error) {
	id, err := s.rdb.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return id, err
}

func (s *RedisStore) Save(ctx context.Context, userID string) error {
	return s.rdb.Set(ctx, s.key, userID, 0).Err()
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return s.rdb.Del(ctx, s.key).Err()
}
