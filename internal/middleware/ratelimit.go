package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/littlesteps/insights/internal/request"
)

const (
	// DefaultHourlyRateLimit is the default per-client request limit per hour
	DefaultHourlyRateLimit = 1000
	// DefaultMinuteRateLimit is the default per-client request limit per minute
	DefaultMinuteRateLimit = 60
)

// RedisRateLimiter wraps the Redis client backing the rate limit stores
type RedisRateLimiter struct {
	client *redis.Client
}

// NewRedisRateLimiter creates a new Redis-backed rate limiter
func NewRedisRateLimiter(redisURL string) (*RedisRateLimiter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisRateLimiter{client: client}, nil
}

// Close closes the Redis connection
func (r *RedisRateLimiter) Close() error {
	return r.client.Close()
}

// Ping checks if Redis is reachable
func (r *RedisRateLimiter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Client exposes the underlying Redis client for other stores.
func (r *RedisRateLimiter) Client() *redis.Client {
	return r.client
}

// DualRateLimiter enforces an hourly and a per-minute window at once. Both
// windows are checked on every request; violating either one rejects the
// request.
type DualRateLimiter struct {
	hour   *limiter.Limiter
	minute *limiter.Limiter
}

// NewDualRateLimiter creates a dual-window limiter over the given Redis client.
func NewDualRateLimiter(redisClient *redis.Client, perHour, perMinute int64) (*DualRateLimiter, error) {
	if perHour <= 0 {
		perHour = DefaultHourlyRateLimit
	}
	if perMinute <= 0 {
		perMinute = DefaultMinuteRateLimit
	}

	hourStore, err := redisstore.NewStoreWithOptions(redisClient, limiter.StoreOptions{Prefix: "ratelimit:hour"})
	if err != nil {
		return nil, fmt.Errorf("failed to create hourly rate limit store: %w", err)
	}
	minuteStore, err := redisstore.NewStoreWithOptions(redisClient, limiter.StoreOptions{Prefix: "ratelimit:minute"})
	if err != nil {
		return nil, fmt.Errorf("failed to create minute rate limit store: %w", err)
	}

	return &DualRateLimiter{
		hour:   limiter.New(hourStore, limiter.Rate{Period: time.Hour, Limit: perHour}),
		minute: limiter.New(minuteStore, limiter.Rate{Period: time.Minute, Limit: perMinute}),
	}, nil
}

// RateLimit creates middleware enforcing both rate limit windows, keyed by
// client IP. Redis errors fail open so a cache outage never blocks traffic.
func RateLimit(dual *DualRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := request.ClientIP(r)
			ctx := r.Context()

			hourCtx, err := dual.hour.Get(ctx, key)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			minuteCtx, err := dual.minute.Get(ctx, key)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit-Hour", strconv.FormatInt(hourCtx.Limit, 10))
			w.Header().Set("X-RateLimit-Remaining-Hour", strconv.FormatInt(hourCtx.Remaining, 10))
			w.Header().Set("X-RateLimit-Reset-Hour", strconv.FormatInt(hourCtx.Reset, 10))
			w.Header().Set("X-RateLimit-Limit-Minute", strconv.FormatInt(minuteCtx.Limit, 10))
			w.Header().Set("X-RateLimit-Remaining-Minute", strconv.FormatInt(minuteCtx.Remaining, 10))
			w.Header().Set("X-RateLimit-Reset-Minute", strconv.FormatInt(minuteCtx.Reset, 10))

			if hourCtx.Reached || minuteCtx.Reached {
				reset := minuteCtx.Reset
				if hourCtx.Reached && (!minuteCtx.Reached || hourCtx.Reset < reset) {
					reset = hourCtx.Reset
				}
				retryAfter := reset - time.Now().Unix()
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
