package ai

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/littlesteps/insights/internal/models"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	// UsageRetention is how long usage records are kept before pruning
	UsageRetention = 30 * 24 * time.Hour
	// HighCostThreshold triggers a warning log for a single expensive call
	HighCostThreshold = 1.00
	// TopUserCount bounds the spend leaderboard in global stats
	TopUserCount = 10
)

// DefaultPricing is the per-model price per thousand tokens, in USD.
func DefaultPricing() map[string]float64 {
	return map[string]float64{
		"gpt-4":               0.03,
		"gpt-4-turbo-preview": 0.01,
		"gpt-4-vision":        0.03,
		"gpt-3.5-turbo":       0.0015,
	}
}

// LoadPricing reads per-model price overrides from a YAML file of the form
// `model-name: price-per-1k`. Missing file is not an error; defaults apply.
func LoadPricing(path string) (map[string]float64, error) {
	pricing := DefaultPricing()
	if path == "" {
		return pricing, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return pricing, nil
		}
		return nil, fmt.Errorf("failed to read pricing file: %w", err)
	}

	overrides := make(map[string]float64)
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse pricing file: %w", err)
	}
	for model, price := range overrides {
		pricing[model] = price
	}

	return pricing, nil
}

// UsageStore persists usage records so processes other than the one billing
// the call can aggregate them.
type UsageStore interface {
	RecordUsage(ctx context.Context, rec models.UsageRecord) error
}

// CostTracker records token/cost usage per model call and answers usage and
// budget queries. The in-process ledger is append/prune-only; writes are
// mutex-guarded because pruning and appending race. With a store attached,
// every record is also written through to the shared ledger.
type CostTracker struct {
	mu      sync.Mutex
	records []models.UsageRecord
	pricing map[string]float64
	store   UsageStore
	logger  *zap.Logger
	now     func() time.Time
}

// NewCostTracker creates a cost tracker with the given pricing table.
// A nil pricing map falls back to the defaults.
func NewCostTracker(pricing map[string]float64, logger *zap.Logger) *CostTracker {
	if pricing == nil {
		pricing = DefaultPricing()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CostTracker{
		pricing: pricing,
		logger:  logger,
		now:     time.Now,
	}
}

// WithStore attaches a persistent usage ledger. Returns the tracker so
// wiring reads as one expression.
func (t *CostTracker) WithStore(store UsageStore) *CostTracker {
	t.store = store
	return t
}

// Track appends a usage record for one billed model call and prunes records
// older than the retention window. Unknown model pricing logs a warning and
// contributes zero cost; Track never fails.
func (t *CostTracker) Track(userID uuid.UUID, model string, tokens int, endpoint string, success bool) models.UsageRecord {
	price, ok := t.pricing[model]
	if !ok {
		t.logger.Warn("unknown_model_pricing",
			zap.String("model", model),
			zap.String("endpoint", endpoint),
		)
		price = 0
	}

	cost := float64(tokens) / 1000 * price
	record := models.UsageRecord{
		UserID:    userID,
		Model:     model,
		Tokens:    tokens,
		Cost:      cost,
		Endpoint:  endpoint,
		Success:   success,
		Timestamp: t.now(),
	}

	if cost > HighCostThreshold {
		t.logger.Warn("high_cost_call",
			zap.String("user_id", userID.String()),
			zap.String("model", model),
			zap.Int("tokens", tokens),
			zap.Float64("cost", cost),
		)
	}

	t.mu.Lock()
	t.records = append(t.records, record)
	t.pruneLocked()
	t.mu.Unlock()

	if t.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := t.store.RecordUsage(ctx, record); err != nil {
			// The in-process record stands; a store outage must not fail
			// the model call being billed.
			t.logger.Warn("usage_store_write_failed",
				zap.Error(err),
				zap.String("user_id", userID.String()),
				zap.String("model", model),
			)
		}
	}

	return record
}

// pruneLocked drops records older than the retention window. Caller holds mu.
func (t *CostTracker) pruneLocked() {
	cutoff := t.now().Add(-UsageRetention)
	kept := t.records[:0]
	for _, r := range t.records {
		if r.Timestamp.After(cutoff) {
			kept = append(kept, r)
		}
	}
	t.records = kept
}

// UserUsage summarizes one user's spend over a rolling window.
func (t *CostTracker) UserUsage(userID uuid.UUID, period models.UsagePeriod) models.UserUsage {
	cutoff := t.now().Add(-period.Duration())

	t.mu.Lock()
	defer t.mu.Unlock()

	usage := models.UserUsage{
		Period:  period,
		ByModel: make(map[string]float64),
	}
	for _, r := range t.records {
		if r.UserID != userID || !r.Timestamp.After(cutoff) {
			continue
		}
		usage.TotalCost += r.Cost
		usage.TotalTokens += r.Tokens
		usage.CallCount++
		usage.ByModel[r.Model] += r.Cost
		usage.Timeline = append(usage.Timeline, models.TimelinePoint{
			Timestamp: r.Timestamp,
			Cost:      r.Cost,
			Tokens:    r.Tokens,
			Model:     r.Model,
		})
	}

	sort.Slice(usage.Timeline, func(i, j int) bool {
		return usage.Timeline[i].Timestamp.Before(usage.Timeline[j].Timestamp)
	})

	return usage
}

// CheckBudget reports month-to-date spend against a monthly budget using a
// linear day-of-month projection.
func (t *CostTracker) CheckBudget(userID uuid.UUID, monthlyBudget float64) models.BudgetStatus {
	now := t.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	daysInMonth := monthStart.AddDate(0, 1, -1).Day()
	daysElapsed := now.Day()

	t.mu.Lock()
	var spent float64
	for _, r := range t.records {
		if r.UserID == userID && !r.Timestamp.Before(monthStart) {
			spent += r.Cost
		}
	}
	t.mu.Unlock()

	projected := spent / float64(daysElapsed) * float64(daysInMonth)

	return models.BudgetStatus{
		Spent:          spent,
		Budget:         monthlyBudget,
		ProjectedSpend: projected,
		WithinBudget:   spent < monthlyBudget,
	}
}

// Stats returns the global usage aggregate: totals, top spenders, cost by
// model, and the success rate as a percentage.
func (t *CostTracker) Stats() models.GlobalStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	stats := models.GlobalStats{
		CostByModel: make(map[string]float64),
	}
	byUser := make(map[uuid.UUID]float64)
	succeeded := 0
	for _, r := range t.records {
		stats.TotalCost += r.Cost
		stats.TotalTokens += r.Tokens
		stats.TotalRequests++
		stats.CostByModel[r.Model] += r.Cost
		byUser[r.UserID] += r.Cost
		if r.Success {
			succeeded++
		}
	}

	for userID, cost := range byUser {
		stats.TopUsers = append(stats.TopUsers, models.UserSpend{UserID: userID, Cost: cost})
	}
	sort.Slice(stats.TopUsers, func(i, j int) bool {
		return stats.TopUsers[i].Cost > stats.TopUsers[j].Cost
	})
	if len(stats.TopUsers) > TopUserCount {
		stats.TopUsers = stats.TopUsers[:TopUserCount]
	}

	if stats.TotalRequests > 0 {
		stats.SuccessRate = float64(succeeded) / float64(stats.TotalRequests) * 100
	}

	return stats
}
