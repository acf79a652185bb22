package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"go.uber.org/zap"

	"github.com/littlesteps/insights/internal/database"
)

// RateLimitReloader wraps the dual-window limiter and periodically reloads
// both window rates from the database.
type RateLimitReloader struct {
	next        http.Handler
	redisClient *redis.Client
	repo        *database.RatelimitConfigRepository
	log         *zap.Logger
	interval    time.Duration
	mu          sync.RWMutex
	current     http.Handler
}

// NewRateLimitReloader creates a rate limit middleware that loads config from the DB and hot-reloads it.
func NewRateLimitReloader(redisClient *redis.Client, repo *database.RatelimitConfigRepository, log *zap.Logger, reloadInterval time.Duration) *RateLimitReloader {
	return &RateLimitReloader{
		redisClient: redisClient,
		repo:        repo,
		log:         log,
		interval:    reloadInterval,
	}
}

// Middleware returns a middleware that wraps next with rate limiting and hot-reload.
func (r *RateLimitReloader) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		r.next = next
		r.load(context.Background())
		return r
	}
}

// Start runs the reload loop until ctx is cancelled. Call after Middleware() is applied.
func (r *RateLimitReloader) Start(ctx context.Context) {
	if r.interval <= 0 {
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.load(ctx)
		}
	}
}

func (r *RateLimitReloader) load(ctx context.Context) {
	if r.next == nil {
		return
	}

	hourRate := r.loadWindow(ctx, database.RatelimitKeyHour, defaultHourRate)
	minuteRate := r.loadWindow(ctx, database.RatelimitKeyMinute, defaultMinuteRate)

	dual, err := NewDualRateLimiter(r.redisClient, hourRate.Limit, minuteRate.Limit)
	if err != nil {
		r.log.Error("failed_to_build_rate_limiter",
			zap.Error(err),
		)
		return
	}
	h := RateLimit(dual)(r.next)

	r.mu.Lock()
	r.current = h
	r.mu.Unlock()
}

func (r *RateLimitReloader) loadWindow(ctx context.Context, key, fallback string) limiter.Rate {
	rate, err := loadRate(ctx, r.repo, key, fallback)
	if err != nil {
		r.log.Warn("failed_to_load_ratelimit_config_from_db_using_default",
			zap.Error(err),
			zap.String("window", key),
			zap.String("default_rate", fallback),
		)
		rate, err = limiter.NewRateFromFormatted(fallback)
		if err != nil {
			// Fallback rates are compile-time constants; this cannot happen
			// with a valid build.
			r.log.Error("failed_to_parse_default_rate_limit",
				zap.Error(err),
				zap.String("default_rate", fallback),
			)
		}
	}
	return rate
}

// ServeHTTP implements http.Handler.
func (r *RateLimitReloader) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mu.RLock()
	h := r.current
	r.mu.RUnlock()
	if h != nil {
		h.ServeHTTP(w, req)
		return
	}
	if r.next != nil {
		r.next.ServeHTTP(w, req)
	}
}
