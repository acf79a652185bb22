package models

import (
	"time"

	"github.com/google/uuid"
)

// UsageRecord is one billed model call, appended on every gateway execution.
type UsageRecord struct {
	UserID    uuid.UUID `json:"user_id"`
	Model     string    `json:"model"`
	Tokens    int       `json:"tokens"`
	Cost      float64   `json:"cost"`
	Endpoint  string    `json:"endpoint"`
	Success   bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`
}

// UsagePeriod is a rolling usage query window.
type UsagePeriod string

const (
	// UsagePeriodHour covers the trailing hour
	UsagePeriodHour UsagePeriod = "hour"
	// UsagePeriodDay covers the trailing 24 hours
	UsagePeriodDay UsagePeriod = "day"
	// UsagePeriodWeek covers the trailing 7 days
	UsagePeriodWeek UsagePeriod = "week"
	// UsagePeriodMonth covers the trailing 30 days
	UsagePeriodMonth UsagePeriod = "month"
)

// Duration converts the period to its rolling window length.
// Unknown periods fall back to a day.
func (p UsagePeriod) Duration() time.Duration {
	switch p {
	case UsagePeriodHour:
		return time.Hour
	case UsagePeriodDay:
		return 24 * time.Hour
	case UsagePeriodWeek:
		return 7 * 24 * time.Hour
	case UsagePeriodMonth:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// TimelinePoint is one chronological entry in a user's cost timeline.
type TimelinePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Cost      float64   `json:"cost"`
	Tokens    int       `json:"tokens"`
	Model     string    `json:"model"`
}

// UserUsage summarizes a user's model spend over a rolling window.
type UserUsage struct {
	Period     UsagePeriod        `json:"period"`
	TotalCost  float64            `json:"total_cost"`
	TotalTokens int               `json:"total_tokens"`
	CallCount  int                `json:"call_count"`
	ByModel    map[string]float64 `json:"by_model"`
	Timeline   []TimelinePoint    `json:"timeline"`
}

// BudgetStatus reports monthly spend against a budget using a linear
// day-of-month projection.
type BudgetStatus struct {
	Spent          float64 `json:"spent"`
	Budget         float64 `json:"budget"`
	ProjectedSpend float64 `json:"projected_spend"`
	WithinBudget   bool    `json:"within_budget"`
}

// UserSpend pairs a user with a spend total for leaderboard queries.
type UserSpend struct {
	UserID uuid.UUID `json:"user_id"`
	Cost   float64   `json:"cost"`
}

// GlobalStats is the service-wide usage aggregate.
type GlobalStats struct {
	TotalCost     float64            `json:"total_cost"`
	TotalTokens   int                `json:"total_tokens"`
	TotalRequests int                `json:"total_requests"`
	TopUsers      []UserSpend        `json:"top_users"`
	CostByModel   map[string]float64 `json:"cost_by_model"`
	SuccessRate   float64            `json:"success_rate"` // percentage
}
