package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ferremas-fulfillment/internal/models"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// CachedComparison is the read-through cache entry for a product's price
// comparison. FetchedAt lets callers judge freshness; no invalidation is
// modeled beyond the TTL.
type CachedComparison struct {
	ProductID     int64                    `json:"product_id"`
	ProductLabel  string                   `json:"product_label"`
	FerremasPrice int64                    `json:"ferremas_price"`
	Results       []models.CompetitorPrice `json:"results"`
	FetchedAt     time.Time                `json:"fetched_at"`
}

func comparisonKey(productID int64) string {
	return fmt.Sprintf("comparison:%d", productID)
}

// GetComparison returns the cached comparison for a product, or nil on a
// cache miss.
func (c *Client) GetComparison(ctx context.Context, productID int64) (*CachedComparison, error) {
	raw, err := c.rdb.Get(ctx, comparisonKey(productID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var cached CachedComparison
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, fmt.Errorf("corrupt cached comparison: %w", err)
	}
	return &cached, nil
}

// SetComparison stores a comparison result with the given TTL.
func (c *Client) SetComparison(ctx context.Context, cached *CachedComparison, ttl time.Duration) error {
	raw, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to marshal comparison: %w", err)
	}
	return c.rdb.Set(ctx, comparisonKey(cached.ProductID), raw, ttl).Err()
}
