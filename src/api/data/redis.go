package data

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stake-plus/crisistruth/src/logging"
)

// MustRedis parses url, connects and pings. It exits on failure.
func MustRedis(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		logging.Logger.Fatal("redis", "err", err)
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logging.Logger.Fatal("redis ping", "addr", opt.Addr, "err", err)
	}
	return rdb
}
