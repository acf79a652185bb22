package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/littlesteps/insights/internal/models"
)

// topUserCount bounds the spend leaderboard in global stats.
const topUserCount = 10

// UsageRepository persists per-call usage records so every process sees the
// same ledger: workers write records as they bill model calls, the API
// server aggregates them for the usage, budget, and stats endpoints.
type UsageRepository struct {
	db *DB
}

// NewUsageRepository creates a new usage repository.
func NewUsageRepository(db *DB) *UsageRepository {
	return &UsageRepository{db: db}
}

// RecordUsage inserts one usage record.
func (r *UsageRepository) RecordUsage(ctx context.Context, rec models.UsageRecord) error {
	query := `
		INSERT INTO usage_records (user_id, model, tokens, cost, endpoint, success, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.UserID, rec.Model, rec.Tokens, rec.Cost, rec.Endpoint, rec.Success, rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}
	return nil
}

// UserUsage summarizes one user's spend over a rolling window, including the
// per-call timeline in timestamp order.
func (r *UsageRepository) UserUsage(ctx context.Context, userID uuid.UUID, period models.UsagePeriod) (models.UserUsage, error) {
	cutoff := time.Now().Add(-period.Duration())
	usage := models.UserUsage{
		Period:  period,
		ByModel: make(map[string]float64),
	}

	query := `
		SELECT model, tokens, cost, created_at
		FROM usage_records
		WHERE user_id = $1 AND created_at > $2
		ORDER BY created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, userID, cutoff)
	if err != nil {
		return usage, fmt.Errorf("failed to query usage: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var point models.TimelinePoint
		if err := rows.Scan(&point.Model, &point.Tokens, &point.Cost, &point.Timestamp); err != nil {
			return usage, fmt.Errorf("failed to scan usage record: %w", err)
		}
		usage.TotalCost += point.Cost
		usage.TotalTokens += point.Tokens
		usage.CallCount++
		usage.ByModel[point.Model] += point.Cost
		usage.Timeline = append(usage.Timeline, point)
	}
	if err := rows.Err(); err != nil {
		return usage, fmt.Errorf("failed to iterate usage records: %w", err)
	}

	return usage, nil
}

// CheckBudget reports month-to-date spend against a monthly budget using a
// linear day-of-month projection.
func (r *UsageRepository) CheckBudget(ctx context.Context, userID uuid.UUID, monthlyBudget float64) (models.BudgetStatus, error) {
	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	daysInMonth := monthStart.AddDate(0, 1, -1).Day()
	daysElapsed := now.Day()

	var spent float64
	query := `
		SELECT COALESCE(SUM(cost), 0)
		FROM usage_records
		WHERE user_id = $1 AND created_at >= $2
	`
	if err := r.db.QueryRowContext(ctx, query, userID, monthStart).Scan(&spent); err != nil {
		return models.BudgetStatus{}, fmt.Errorf("failed to query monthly spend: %w", err)
	}

	return models.BudgetStatus{
		Spent:          spent,
		Budget:         monthlyBudget,
		ProjectedSpend: spent / float64(daysElapsed) * float64(daysInMonth),
		WithinBudget:   spent < monthlyBudget,
	}, nil
}

// Stats returns the global usage aggregate: totals, top spenders, cost by
// model, and the success rate as a percentage.
func (r *UsageRepository) Stats(ctx context.Context) (models.GlobalStats, error) {
	stats := models.GlobalStats{
		CostByModel: make(map[string]float64),
	}

	totalsQuery := `
		SELECT COALESCE(SUM(cost), 0), COALESCE(SUM(tokens), 0), COUNT(*),
		       COALESCE(SUM(CASE WHEN success THEN 1 ELSE 0 END), 0)
		FROM usage_records
	`
	var succeeded int
	if err := r.db.QueryRowContext(ctx, totalsQuery).Scan(
		&stats.TotalCost, &stats.TotalTokens, &stats.TotalRequests, &succeeded,
	); err != nil {
		return stats, fmt.Errorf("failed to query usage totals: %w", err)
	}
	if stats.TotalRequests > 0 {
		stats.SuccessRate = float64(succeeded) / float64(stats.TotalRequests) * 100
	}

	modelQuery := `SELECT model, SUM(cost) FROM usage_records GROUP BY model`
	modelRows, err := r.db.QueryContext(ctx, modelQuery)
	if err != nil {
		return stats, fmt.Errorf("failed to query cost by model: %w", err)
	}
	defer func() { _ = modelRows.Close() }()
	for modelRows.Next() {
		var model string
		var cost float64
		if err := modelRows.Scan(&model, &cost); err != nil {
			return stats, fmt.Errorf("failed to scan model cost: %w", err)
		}
		stats.CostByModel[model] = cost
	}
	if err := modelRows.Err(); err != nil {
		return stats, fmt.Errorf("failed to iterate model costs: %w", err)
	}

	topQuery := `
		SELECT user_id, SUM(cost) AS total
		FROM usage_records
		GROUP BY user_id
		ORDER BY total DESC
		LIMIT $1
	`
	topRows, err := r.db.QueryContext(ctx, topQuery, topUserCount)
	if err != nil {
		return stats, fmt.Errorf("failed to query top users: %w", err)
	}
	defer func() { _ = topRows.Close() }()
	for topRows.Next() {
		var spend models.UserSpend
		if err := topRows.Scan(&spend.UserID, &spend.Cost); err != nil {
			return stats, fmt.Errorf("failed to scan user spend: %w", err)
		}
		stats.TopUsers = append(stats.TopUsers, spend)
	}
	if err := topRows.Err(); err != nil {
		return stats, fmt.Errorf("failed to iterate top users: %w", err)
	}

	return stats, nil
}

// PruneOlderThan deletes usage records past the retention window.
func (r *UsageRepository) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM usage_records WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune usage records: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned usage records: %w", err)
	}
	return n, nil
}
