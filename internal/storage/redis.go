package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/resep/internal/models"
	"github.com/redis/rueidis"
)

const redisBatchSize = 256

// upsertLua writes the recipe body and appends its id to the order list only when the key
// is new, so concurrent upserts of one id never push it twice.
// KEYS[1] recipe key, KEYS[2] order list; ARGV[1] body, ARGV[2] id. Returns 1 when created.
const upsertLua = `
local existed = redis.call('EXISTS', KEYS[1])
redis.call('SET', KEYS[1], ARGV[1])
if existed == 0 then
  redis.call('RPUSH', KEYS[2], ARGV[2])
  return 1
end
return 0
`

var upsertScript = rueidis.NewLuaScript(upsertLua)

// RedisConfig holds connection parameters for a Redis corpus store.
type RedisConfig struct {
	Addrs     []string
	Username  string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisStore implements Store on Redis. Each recipe is a JSON string under
// <prefix>recipe:<id>; the list <prefix>recipes holds ids in insertion order.
type RedisStore struct {
	client rueidis.Client
	prefix string
}

// NewRedisStore connects to Redis via rueidis.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create redis client: %w", err)
	}
	return newRedisStore(client, cfg.KeyPrefix), nil
}

func newRedisStore(client rueidis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) recipeKey(id string) string {
	return s.prefix + "recipe:" + id
}

func (s *RedisStore) orderKey() string {
	return s.prefix + "recipes"
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Do(ctx, s.client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *RedisStore) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if err := s.Ping(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for redis: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// AddRecipe stores r under a new UUID and appends it to the collection order.
func (s *RedisStore) AddRecipe(ctx context.Context, r *models.Recipe) (string, error) {
	body, err := encodeRecipe(r)
	if err != nil {
		return "", err
	}
	id := uuid.New().String()
	cmds := rueidis.Commands{
		s.client.B().Set().Key(s.recipeKey(id)).Value(body).Build(),
		s.client.B().Rpush().Key(s.orderKey()).Element(id).Build(),
	}
	for _, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return "", fmt.Errorf("failed to add recipe: %w", err)
		}
	}
	r.ID = id
	return id, nil
}

// SetRecipe creates or replaces the recipe under id atomically. An existing id keeps its position.
func (s *RedisStore) SetRecipe(ctx context.Context, id string, r *models.Recipe) error {
	if id == "" {
		return fmt.Errorf("recipe id is required")
	}
	body, err := encodeRecipe(r)
	if err != nil {
		return err
	}
	keys := []string{s.recipeKey(id), s.orderKey()}
	if err := upsertScript.Exec(ctx, s.client, keys, []string{body, id}).Error(); err != nil {
		return fmt.Errorf("failed to set recipe: %w", err)
	}
	r.ID = id
	return nil
}

// GetRecipe returns a recipe by ID.
func (s *RedisStore) GetRecipe(ctx context.Context, id string) (*models.Recipe, error) {
	body, err := s.client.Do(ctx, s.client.B().Get().Key(s.recipeKey(id)).Build()).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	return decodeRecipe(id, body)
}

// StreamAll walks the collection in insertion order, fetching documents in MGET batches.
// Ids whose document has disappeared are skipped.
func (s *RedisStore) StreamAll(ctx context.Context, fn func(*models.Recipe) error) error {
	ids, err := s.client.Do(ctx, s.client.B().Lrange().Key(s.orderKey()).Start(0).Stop(-1).Build()).AsStrSlice()
	if err != nil {
		return fmt.Errorf("failed to list recipe ids: %w", err)
	}
	for start := 0; start < len(ids); start += redisBatchSize {
		end := start + redisBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]
		keys := make([]string, len(batch))
		for i, id := range batch {
			keys[i] = s.recipeKey(id)
		}
		values, err := s.client.Do(ctx, s.client.B().Mget().Key(keys...).Build()).ToArray()
		if err != nil {
			return fmt.Errorf("failed to fetch recipes: %w", err)
		}
		for i, v := range values {
			if v.IsNil() {
				continue
			}
			body, err := v.ToString()
			if err != nil {
				return fmt.Errorf("failed to read recipe %s: %w", batch[i], err)
			}
			r, err := decodeRecipe(batch[i], body)
			if err != nil {
				return err
			}
			if err := fn(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// CountRecipes returns the length of the collection.
func (s *RedisStore) CountRecipes(ctx context.Context) (int64, error) {
	n, err := s.client.Do(ctx, s.client.B().Llen().Key(s.orderKey()).Build()).AsInt64()
	if err != nil {
		return 0, fmt.Errorf("failed to count recipes: %w", err)
	}
	return n, nil
}

// Close shuts down the client.
func (s *RedisStore) Close() error {
	s.client.Close()
	return nil
}
