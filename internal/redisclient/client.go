package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Client mirrors committed stock quantities into Redis for read-side
// consumers (dashboards, other services) and backs alert deduplication.
// The engine's in-memory state stays authoritative; everything here is a
// best-effort copy.
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

func stockKey(plantID int64) string {
	return fmt.Sprintf("stock:%d", plantID)
}

// SetQuantity mirrors a committed quantity.
func (c *Client) SetQuantity(ctx context.Context, plantID int64, quantity int) error {
	return c.rdb.Set(ctx, stockKey(plantID), quantity, 0).Err()
}

// GetQuantity reads a mirrored quantity.
func (c *Client) GetQuantity(ctx context.Context, plantID int64) (int, error) {
	return c.rdb.Get(ctx, stockKey(plantID)).Int()
}

// Remove drops the mirrored quantity for a deleted plant.
func (c *Client) Remove(ctx context.Context, plantID int64) error {
	return c.rdb.Del(ctx, stockKey(plantID)).Err()
}

// MarkAlerted records that a low-stock alert went out for the plant and
// returns false if one was already recorded within the TTL.
func (c *Client) MarkAlerted(ctx context.Context, plantID int64, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lowstock:%d", plantID), "1", ttl).Result()
}
