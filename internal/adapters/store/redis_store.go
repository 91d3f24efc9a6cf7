package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mikey/phishing-filter/internal/core"
)

// RedisStore keeps serialized models in Redis under prefix:key
type RedisStore struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisStore connects to Redis and creates a new model store
func NewRedisStore(redisURL, prefix string, logger *zap.Logger) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{
		client: client,
		prefix: prefix,
		logger: logger,
	}, nil
}

func (s *RedisStore) redisKey(key string) string {
	return s.prefix + ":" + key
}

// Save stores a model; the previous value is replaced in a single SET
func (s *RedisStore) Save(ctx context.Context, model *core.TrainedModel, key string) error {
	payload, err := Encode(model)
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, s.redisKey(key), payload, 0).Err(); err != nil {
		return fmt.Errorf("failed to store model in Redis: %w", err)
	}

	s.logger.Debug("Model stored in Redis", zap.String("key", s.redisKey(key)), zap.Int("bytes", len(payload)))
	return nil
}

// Load retrieves the model stored under key
func (s *RedisStore) Load(ctx context.Context, key string) (*core.TrainedModel, error) {
	payload, err := s.client.Get(ctx, s.redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: no model stored under key %q", core.ErrModelNotFound, s.redisKey(key))
		}
		return nil, fmt.Errorf("failed to read model from Redis: %w", err)
	}

	return Decode(payload)
}

// Stop closes the Redis connection
func (s *RedisStore) Stop() {
	if err := s.client.Close(); err != nil {
		s.logger.Error("Failed to close Redis client", zap.Error(err))
	}
}

var _ core.ModelRepository = (*RedisStore)(nil)
