package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type RecordCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRecordCache(client *redis.Client, ttl time.Duration) *RecordCache {
	return &RecordCache{client: client, ttl: ttl}
}

func (c *RecordCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func recordKey(id uuid.UUID) string { return "identification:" + id.String() }

// Get returns nil, nil on a cache miss.
func (c *RecordCache) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	data, err := c.client.Get(ctx, recordKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *RecordCache) Set(ctx context.Context, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, recordKey(rec.ID), data, c.ttl).Err()
}

func (c *RecordCache) Close() error {
	return c.client.Close()
}
