package ai

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// loadStateKey is the Redis key carrying the shared load flag
	loadStateKey = "insights:load:high"
	// loadStateTTLFactor times the publish interval gives the key TTL, so a
	// dead worker's stale flag expires instead of pinning the signal
	loadStateTTLFactor = 3
)

// LoadStateStore is the slice of the Redis client the shared load signal
// needs. *redis.Client satisfies it.
type LoadStateStore interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// LoadPublisher periodically writes a worker's load-monitor verdict to Redis
// so processes that never call the model provider (the API server) can still
// consult a live signal.
type LoadPublisher struct {
	monitor  *LoadMonitor
	store    LoadStateStore
	interval time.Duration
	logger   *zap.Logger
}

// NewLoadPublisher creates a load publisher.
func NewLoadPublisher(monitor *LoadMonitor, store LoadStateStore, interval time.Duration, logger *zap.Logger) *LoadPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoadPublisher{monitor: monitor, store: store, interval: interval, logger: logger}
}

// Start publishes until ctx is cancelled.
func (p *LoadPublisher) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.publish(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.publish(ctx)
		}
	}
}

func (p *LoadPublisher) publish(ctx context.Context) {
	value := "0"
	if p.monitor.HighLoad() {
		value = "1"
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.store.Set(ctx, loadStateKey, value, loadStateTTLFactor*p.interval).Err(); err != nil {
		p.logger.Warn("load_state_publish_failed", zap.Error(err))
	}
}

// SharedLoadSignal reads the published load flag. A missing key, an expired
// key, or a Redis error all read as normal load, so losing the worker or
// Redis never degrades decisions by itself.
type SharedLoadSignal struct {
	store LoadStateStore
}

// NewSharedLoadSignal creates a load signal over the shared store.
func NewSharedLoadSignal(store LoadStateStore) *SharedLoadSignal {
	return &SharedLoadSignal{store: store}
}

var _ LoadSignal = (*SharedLoadSignal)(nil)

// HighLoad reports the last flag a worker published, defaulting to false.
func (s *SharedLoadSignal) HighLoad() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	value, err := s.store.Get(ctx, loadStateKey).Result()
	if err != nil {
		return false
	}
	return value == "1"
}
