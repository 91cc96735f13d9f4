package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cargo-route-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

const optionKeyPrefix = "route-option:"

// RedisOptionStore keeps generated route options for a limited time so a
// caller can select one by id.
type RedisOptionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisOptionStore(client *redis.Client, ttl time.Duration) *RedisOptionStore {
	return &RedisOptionStore{client: client, ttl: ttl}
}

func (s *RedisOptionStore) SaveOptions(ctx context.Context, options []domain.RouteOption) error {
	if len(options) == 0 {
		return nil
	}

	pipe := s.client.TxPipeline()
	for _, o := range options {
		b, err := json.Marshal(o)
		if err != nil {
			return fmt.Errorf("failed to encode option %s: %w", o.ID, err)
		}
		pipe.Set(ctx, optionKeyPrefix+o.ID, b, s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save %d options: %w", len(options), err)
	}
	return nil
}

func (s *RedisOptionStore) GetOption(ctx context.Context, id string) (*domain.RouteOption, error) {
	b, err := s.client.Get(ctx, optionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("option %s: %w", id, domain.ErrOptionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get option %s: %w", id, err)
	}

	var o domain.RouteOption
	if err := json.Unmarshal(b, &o); err != nil {
		return nil, fmt.Errorf("failed to decode option %s: %w", id, err)
	}
	return &o, nil
}
