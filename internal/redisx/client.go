package redisx

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// MarkOnce claims key for ttl. first is false when someone already holds it.
func MarkOnce(ctx context.Context, rdb *redis.Client, key string, ttl time.Duration) (first bool, err error) {
	first, err = rdb.SetNX(ctx, key, "1", ttl).Result()
	return first, errors.Wrap(err, "setnx")
}

// PublishJSON encodes v and publishes it on channel.
func PublishJSON(ctx context.Context, rdb *redis.Client, channel string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encode message")
	}
	return errors.Wrap(rdb.Publish(ctx, channel, b).Err(), "publish")
}
