package middleware

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"

	"github.com/littlesteps/insights/internal/database"
	"github.com/littlesteps/insights/internal/models"
)

// Default formatted rates persisted on first start.
const (
	defaultHourRate   = "1000-H"
	defaultMinuteRate = "60-M"
)

// RateLimitFromDB builds the dual-window limiter from DB-stored rates. Keys
// missing from the config table are seeded with the defaults so operators can
// see and edit them.
func RateLimitFromDB(redisClient *redis.Client, repo *database.RatelimitConfigRepository) (*DualRateLimiter, error) {
	ctx := context.Background()

	hourRate, err := loadRate(ctx, repo, database.RatelimitKeyHour, defaultHourRate)
	if err != nil {
		return nil, err
	}
	minuteRate, err := loadRate(ctx, repo, database.RatelimitKeyMinute, defaultMinuteRate)
	if err != nil {
		return nil, err
	}

	return NewDualRateLimiter(redisClient, hourRate.Limit, minuteRate.Limit)
}

func loadRate(ctx context.Context, repo *database.RatelimitConfigRepository, key, fallback string) (limiter.Rate, error) {
	cfg, err := repo.Get(ctx, key)
	if err != nil {
		return limiter.Rate{}, err
	}

	rateStr := fallback
	if cfg != nil && cfg.Rate != "" {
		rateStr = cfg.Rate
	} else {
		if err := repo.Set(ctx, &models.RatelimitConfig{ConfigKey: key, Rate: fallback}); err != nil {
			return limiter.Rate{}, err
		}
	}

	rate, err := limiter.NewRateFromFormatted(rateStr)
	if err != nil {
		return limiter.Rate{}, fmt.Errorf("invalid %s rate %q: %w", key, rateStr, err)
	}
	return rate, nil
}
