package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonwraymond/toolgate/config"
	"github.com/jonwraymond/toolgate/kv"
)

// openStore connects the configured backend. The returned close func
// releases the client.
func openStore(ctx context.Context, c config.StoreConfig) (kv.Store, func() error, error) {
	switch c.Backend {
	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		store := kv.NewRedis(rdb)

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := store.Ping(pingCtx)
		cancel()
		if err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("redis %s: %w", c.RedisAddr, err)
		}
		return store, rdb.Close, nil
	default:
		return kv.NewMemory(), func() error { return nil }, nil
	}
}
