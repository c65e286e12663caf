package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-coverage-api/internal/models"
)

const gridKeyPrefix = "distribution:grid:"

// CacheRepository provides helpers around Redis interactions, primarily
// for storing distribution grids between a run and its retrieval.
type CacheRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewCacheRepository constructs a cache repository.
func NewCacheRepository(client *redis.Client, logger *zap.Logger) *CacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheRepository{client: client, logger: logger}
}

// SaveGrid stores a distribution grid under its run ID.
func (r *CacheRepository) SaveGrid(ctx context.Context, grid *models.DistributionGrid, ttl time.Duration) error {
	if r.client == nil || grid == nil {
		return nil
	}
	payload, err := json.Marshal(grid)
	if err != nil {
		return fmt.Errorf("marshal distribution grid: %w", err)
	}
	key := gridKeyPrefix + grid.RunID
	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// GetGrid loads a distribution grid by run ID. A missing key returns
// (nil, nil) so callers can map it to a not-found response.
func (r *CacheRepository) GetGrid(ctx context.Context, runID string) (*models.DistributionGrid, error) {
	if r.client == nil {
		return nil, nil
	}
	key := gridKeyPrefix + runID
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	var grid models.DistributionGrid
	if err := json.Unmarshal(raw, &grid); err != nil {
		return nil, fmt.Errorf("unmarshal distribution grid for %s: %w", runID, err)
	}
	return &grid, nil
}

// DeleteByPattern removes cached entries matching the provided pattern.
func (r *CacheRepository) DeleteByPattern(ctx context.Context, pattern string) error {
	if r.client == nil {
		return nil
	}
	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if err := r.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("redis delete %s: %w", key, err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan pattern %s: %w", pattern, err)
	}
	return nil
}

// Close releases the underlying Redis connection if present.
func (r *CacheRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
