// Package cache provides a Redis read-through cache for committed orders.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cimillas/client-ledger/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// OrderCache stores order snapshots by ID. Entries are invalidated by every
// order mutation and expire after the configured TTL.
type OrderCache struct {
	client      *redis.Client
	serviceName string
	ttl         time.Duration
}

func NewOrderCache(addr, serviceName string, ttl time.Duration) *OrderCache {
	return NewOrderCacheWithClient(redis.NewClient(&redis.Options{Addr: addr}), serviceName, ttl)
}

func NewOrderCacheWithClient(client *redis.Client, serviceName string, ttl time.Duration) *OrderCache {
	return &OrderCache{client: client, serviceName: serviceName, ttl: ttl}
}

// Ping verifies the connection.
func (c *OrderCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *OrderCache) Close() error {
	return c.client.Close()
}

// GetOrder returns nil, nil on a miss.
func (c *OrderCache) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	raw, err := c.client.Get(ctx, c.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get order %s: %w", id, err)
	}
	order, err := decodeOrder(raw)
	if err != nil {
		return nil, fmt.Errorf("cache decode order %s: %w", id, err)
	}
	return &order, nil
}

func (c *OrderCache) SetOrder(ctx context.Context, order domain.Order) error {
	raw, err := encodeOrder(order)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, c.key(order.ID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set order %s: %w", order.ID, err)
	}
	return nil
}

func (c *OrderCache) InvalidateOrder(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, c.key(id)).Err(); err != nil {
		return fmt.Errorf("cache invalidate order %s: %w", id, err)
	}
	return nil
}

func (c *OrderCache) key(id string) string {
	return GenerateKey(c.serviceName, "order", id)
}

func GenerateKey(serviceName, kind, id string) string {
	return fmt.Sprintf("%s:%s:%s", serviceName, kind, id)
}

type orderRecord struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	SupplierID  string          `json:"supplier_id"`
	ConsumerID  string          `json:"consumer_id"`
	Price       decimal.Decimal `json:"price"`
	Active      bool            `json:"active"`
	Version     int64           `json:"version"`
	AdmittedAt  time.Time       `json:"admitted_at"`
	ProcessedAt time.Time       `json:"processed_at"`
	CommittedAt time.Time       `json:"committed_at"`
}

func encodeOrder(o domain.Order) ([]byte, error) {
	return json.Marshal(orderRecord(o))
}

func decodeOrder(raw []byte) (domain.Order, error) {
	var rec orderRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.Order{}, err
	}
	return domain.Order(rec), nil
}
