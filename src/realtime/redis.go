package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stake-plus/crisistruth/src/logging"
)

const channelPrefix = "crisistruth:changes:"

// RedisSource carries change events over Redis Pub/Sub, one channel per
// table, so every API instance behind a load balancer sees every write.
type RedisSource struct {
	rdb *redis.Client
}

func NewRedisSource(rdb *redis.Client) *RedisSource {
	return &RedisSource{rdb: rdb}
}

func channelFor(table string) string { return channelPrefix + table }

func (r *RedisSource) Publish(ctx context.Context, ev ChangeEvent) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode change event: %w", err)
	}
	if err := r.rdb.Publish(ctx, channelFor(ev.Table), payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Table, err)
	}
	return nil
}

// Subscribe blocks until Redis confirms the subscription or ctx ends, then
// delivers matching events on a dedicated goroutine until cancel is called.
// cancel may be called from inside h.
func (r *RedisSource) Subscribe(ctx context.Context, table string, filter Filter, h Handler) (func(), error) {
	ps := r.rdb.Subscribe(ctx, channelFor(table))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", table, err)
	}

	log := logging.Component("realtime").With("table", table, "filter", filter.String())
	done := make(chan struct{})
	var stopped, delivering atomic.Bool
	go func() {
		defer close(done)
		for msg := range ps.Channel() {
			if stopped.Load() {
				continue
			}
			var ev ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Warn("dropping undecodable change event", "err", err)
				continue
			}
			if !filter.Matches(ev.Row) {
				continue
			}
			delivering.Store(true)
			h(ev)
			delivering.Store(false)
		}
	}()

	// After cancel returns no new handler call starts. Waiting for the
	// delivery goroutine is skipped while a handler runs, since the handler
	// itself may be the caller.
	return func() {
		if !stopped.CompareAndSwap(false, true) {
			return
		}
		_ = ps.Close()
		if !delivering.Load() {
			<-done
		}
	}, nil
}
