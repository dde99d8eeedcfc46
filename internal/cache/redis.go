package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"course-fee-gateway/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrMiss is returned when a record is not cached.
var ErrMiss = errors.New("cache miss")

type RecordCache interface {
	Get(ctx context.Context, orderID string) (*domain.RecordSummary, error)
	Set(ctx context.Context, summary *domain.RecordSummary) error
}

func InitRedis(ctx context.Context, addr, password string, logger *zap.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established", zap.String("addr", addr))
	return rdb, nil
}

type redisRecordCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRecordCache(rdb *redis.Client, ttl time.Duration) RecordCache {
	return &redisRecordCache{rdb: rdb, ttl: ttl}
}

func recordKey(orderID string) string {
	return fmt.Sprintf("record:%s", orderID)
}

func (c *redisRecordCache) Get(ctx context.Context, orderID string) (*domain.RecordSummary, error) {
	data, err := c.rdb.Get(ctx, recordKey(orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	var s domain.RecordSummary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode cached record: %w", err)
	}
	return &s, nil
}

// Set stores terminal records only. Pending records can still change.
func (c *redisRecordCache) Set(ctx context.Context, summary *domain.RecordSummary) error {
	if !summary.Status.Terminal() {
		return nil
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, recordKey(summary.OrderID), data, c.ttl).Err()
}

type noopCache struct{}

func NewNoopCache() RecordCache {
	return noopCache{}
}

func (noopCache) Get(context.Context, string) (*domain.RecordSummary, error) { return nil, ErrMiss }

func (noopCache) Set(context.Context, *domain.RecordSummary) error { return nil }
