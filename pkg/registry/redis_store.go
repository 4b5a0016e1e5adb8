package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/glorpus-work/extpack/internal/logger"
	"github.com/glorpus-work/extpack/pkg/errutils"
)

const (
	defaultRedisURL = "redis://localhost:6379/0"

	keyModules    = "extpack:modules"
	keyLayouts    = "extpack:layouts"
	keyContainers = "extpack:containers"
)

// RedisStore keeps one Redis hash per definition kind, field = id, value = JSON record.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to the Redis server at url.
func NewRedisStore(url string) (*RedisStore, error) {
	if url == "" {
		url = defaultRedisURL
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %v: %w", err, errutils.ErrRegistryUnavailable)
	}
	return &RedisStore{client: client}, nil
}

// Close closes the underlying Redis client.
func (s *RedisStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *RedisStore) put(ctx context.Context, key string, id uuid.UUID, rec any) error {
	if s == nil || s.client == nil {
		return errutils.ErrRegistryUnavailable
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal definition: %w", err)
	}
	if err := s.client.HSet(ctx, key, id.String(), payload).Err(); err != nil {
		return fmt.Errorf("save %s %s: %w", key, id, err)
	}
	logger.Debug("Saved definition", logger.Fields{"key": key, "id": id})
	return nil
}

func (s *RedisStore) del(ctx context.Context, key string, id uuid.UUID) error {
	if s == nil || s.client == nil {
		return errutils.ErrRegistryUnavailable
	}
	if err := s.client.HDel(ctx, key, id.String()).Err(); err != nil {
		return fmt.Errorf("delete %s %s: %w", key, id, err)
	}
	logger.Debug("Deleted definition", logger.Fields{"key": key, "id": id})
	return nil
}

func get[T any](ctx context.Context, s *RedisStore, key, kind string, id uuid.UUID) (T, error) {
	var rec T
	if s == nil || s.client == nil {
		return rec, errutils.ErrRegistryUnavailable
	}
	payload, err := s.client.HGet(ctx, key, id.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return rec, notFound(kind, id)
	}
	if err != nil {
		return rec, fmt.Errorf("load %s %s: %w", key, id, err)
	}
	if err := json.Unmarshal(payload, &rec); err != nil {
		return rec, fmt.Errorf("decode %s %s: %w", key, id, err)
	}
	return rec, nil
}

func list[T any](ctx context.Context, s *RedisStore, key string, id func(T) uuid.UUID) ([]T, error) {
	if s == nil || s.client == nil {
		return nil, errutils.ErrRegistryUnavailable
	}
	all, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", key, err)
	}
	out := make([]T, 0, len(all))
	for field, payload := range all {
		var rec T
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("decode %s %s: %w", key, field, err)
		}
		out = append(out, rec)
	}
	sortByID(out, id)
	return out, nil
}

// SaveModuleDefinition writes rec into the module hash.
func (s *RedisStore) SaveModuleDefinition(ctx context.Context, rec ModuleRecord) error {
	return s.put(ctx, keyModules, rec.ID, rec)
}

// DeleteModuleDefinition removes the module field with id.
func (s *RedisStore) DeleteModuleDefinition(ctx context.Context, id uuid.UUID) error {
	return s.del(ctx, keyModules, id)
}

// SaveLayoutDefinition writes rec into the layout hash.
func (s *RedisStore) SaveLayoutDefinition(ctx context.Context, rec LayoutRecord) error {
	return s.put(ctx, keyLayouts, rec.ID, rec)
}

// DeleteLayoutDefinition removes the layout field with id.
func (s *RedisStore) DeleteLayoutDefinition(ctx context.Context, id uuid.UUID) error {
	return s.del(ctx, keyLayouts, id)
}

// SaveContainerDefinition writes rec into the container hash.
func (s *RedisStore) SaveContainerDefinition(ctx context.Context, rec ContainerRecord) error {
	return s.put(ctx, keyContainers, rec.ID, rec)
}

// DeleteContainerDefinition removes the container field with id.
func (s *RedisStore) DeleteContainerDefinition(ctx context.Context, id uuid.UUID) error {
	return s.del(ctx, keyContainers, id)
}

// Module returns the module with id.
func (s *RedisStore) Module(ctx context.Context, id uuid.UUID) (ModuleRecord, error) {
	return get[ModuleRecord](ctx, s, keyModules, "module", id)
}

// Modules returns every module sorted by id.
func (s *RedisStore) Modules(ctx context.Context) ([]ModuleRecord, error) {
	return list(ctx, s, keyModules, moduleID)
}

// Layout returns the layout with id.
func (s *RedisStore) Layout(ctx context.Context, id uuid.UUID) (LayoutRecord, error) {
	return get[LayoutRecord](ctx, s, keyLayouts, "layout", id)
}

// Layouts returns every layout sorted by id.
func (s *RedisStore) Layouts(ctx context.Context) ([]LayoutRecord, error) {
	return list(ctx, s, keyLayouts, layoutID)
}

// Container returns the container with id.
func (s *RedisStore) Container(ctx context.Context, id uuid.UUID) (ContainerRecord, error) {
	return get[ContainerRecord](ctx, s, keyContainers, "container", id)
}

// Containers returns every container sorted by id.
func (s *RedisStore) Containers(ctx context.Context) ([]ContainerRecord, error) {
	return list(ctx, s, keyContainers, containerID)
}
