package ai

import (
	"time"

	"github.com/littlesteps/insights/internal/models"
	"go.uber.org/zap"
)

// Strategy is the recovery action chosen after a failed model call.
type Strategy string

const (
	// StrategyRetry re-executes the same request after a backoff delay
	StrategyRetry Strategy = "retry"
	// StrategyDowngrade re-executes on the next cheaper model
	StrategyDowngrade Strategy = "downgrade"
	// StrategyCached serves a previously cached response for a similar prompt
	StrategyCached Strategy = "cached"
	// StrategyDefault serves a tier-shaped stub response
	StrategyDefault Strategy = "default"
)

// RetrySchedule is the fixed backoff sequence, indexed by min(attempt-1, len-1).
var RetrySchedule = []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}

// downgradeChain orders models from most to least capable. Downgrading at
// the foot of the chain is not a valid strategy.
var downgradeChain = []string{"gpt-4", "gpt-4-turbo-preview", "gpt-3.5-turbo"}

// FallbackContext describes one failed attempt for strategy selection.
// AttemptNumber is 1-indexed and strictly increases per call chain.
type FallbackContext struct {
	Err           error
	AttemptNumber int
	Model         string
	Prompt        string
	Tier          models.Tier
}

// FallbackResult is the chosen recovery action. When Success is true the
// Response field holds a servable (possibly degraded) payload and the caller
// should stop attempting; otherwise the caller applies Strategy and retries.
type FallbackResult struct {
	Strategy Strategy       `json:"strategy"`
	Model    string         `json:"model,omitempty"` // downgrade target
	Backoff  time.Duration  `json:"backoff,omitempty"`
	Response map[string]any `json:"response,omitempty"`
	Success  bool           `json:"success"`
	Degraded bool           `json:"degraded"`
}

// FallbackHandler classifies a failure and proposes a recovery strategy.
// Callers always receive a well-formed result; the worst case is a clearly
// labeled default payload, never a raw error surfaced to the end user.
type FallbackHandler struct {
	cache  *ResponseCache
	logger *zap.Logger
}

// NewFallbackHandler creates a fallback handler backed by the given cache.
func NewFallbackHandler(cache *ResponseCache, logger *zap.Logger) *FallbackHandler {
	if cache == nil {
		cache = NewResponseCache(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackHandler{cache: cache, logger: logger}
}

// Cache exposes the handler's response cache so the gateway can populate it
// on successful calls.
func (h *FallbackHandler) Cache() *ResponseCache {
	return h.cache
}

// Backoff returns the retry delay for a 1-indexed attempt number.
func Backoff(attempt int) time.Duration {
	idx := attempt - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(RetrySchedule) {
		idx = len(RetrySchedule) - 1
	}
	return RetrySchedule[idx]
}

// DowngradeModel returns the next cheaper model, or "" at the foot of the chain.
func DowngradeModel(model string) string {
	for i, m := range downgradeChain {
		if m == model {
			if i+1 < len(downgradeChain) {
				return downgradeChain[i+1]
			}
			return ""
		}
	}
	return ""
}

// ShouldRetry reports whether another attempt is permitted: false for
// validation errors, exhausted schedules, and explicitly non-retryable errors.
func (h *FallbackHandler) ShouldRetry(fc FallbackContext) bool {
	if Classify(fc.Err) == ErrorClassValidation {
		return false
	}
	if fc.AttemptNumber >= len(RetrySchedule) {
		return false
	}
	if IsNonRetryable(fc.Err) {
		return false
	}
	return true
}

// Handle selects the recovery strategy for one failed attempt.
func (h *FallbackHandler) Handle(fc FallbackContext) FallbackResult {
	class := Classify(fc.Err)

	h.logger.Debug("fallback_strategy_selection",
		zap.String("class", string(class)),
		zap.Int("attempt", fc.AttemptNumber),
		zap.String("model", fc.Model),
	)

	switch class {
	case ErrorClassRateLimit:
		return h.handleRateLimit(fc)
	case ErrorClassTimeout:
		return h.handleRetryable(fc)
	case ErrorClassModelError:
		return h.handleModelError(fc)
	case ErrorClassNetwork:
		return h.handleNetwork(fc)
	case ErrorClassValidation:
		// Validation failures are never retried.
		return h.defaultResult(fc)
	default:
		return h.handleRetryable(fc)
	}
}

func (h *FallbackHandler) handleRateLimit(fc FallbackContext) FallbackResult {
	switch fc.AttemptNumber {
	case 1:
		if next := DowngradeModel(fc.Model); next != "" {
			return FallbackResult{Strategy: StrategyDowngrade, Model: next}
		}
		return h.defaultResult(fc)
	case 2:
		if cached, ok := h.cache.Get(fc.Prompt); ok {
			return FallbackResult{
				Strategy: StrategyCached,
				Response: cached,
				Success:  true,
				Degraded: true,
			}
		}
		return h.defaultResult(fc)
	default:
		return h.defaultResult(fc)
	}
}

func (h *FallbackHandler) handleRetryable(fc FallbackContext) FallbackResult {
	if h.ShouldRetry(fc) {
		return FallbackResult{Strategy: StrategyRetry, Backoff: Backoff(fc.AttemptNumber)}
	}
	return h.defaultResult(fc)
}

func (h *FallbackHandler) handleModelError(fc FallbackContext) FallbackResult {
	if fc.AttemptNumber <= 2 {
		if next := DowngradeModel(fc.Model); next != "" {
			return FallbackResult{Strategy: StrategyDowngrade, Model: next}
		}
	}
	return h.defaultResult(fc)
}

func (h *FallbackHandler) handleNetwork(fc FallbackContext) FallbackResult {
	switch fc.AttemptNumber {
	case 1:
		return FallbackResult{Strategy: StrategyRetry, Backoff: Backoff(fc.AttemptNumber)}
	case 2:
		if cached, ok := h.cache.Get(fc.Prompt); ok {
			return FallbackResult{
				Strategy: StrategyCached,
				Response: cached,
				Success:  true,
				Degraded: true,
			}
		}
		return h.defaultResult(fc)
	default:
		return h.defaultResult(fc)
	}
}

func (h *FallbackHandler) defaultResult(fc FallbackContext) FallbackResult {
	return FallbackResult{
		Strategy: StrategyDefault,
		Response: DefaultResponse(fc.Tier),
		Success:  true,
		Degraded: true,
	}
}

// DefaultResponse builds the tier-shaped stub payload served when every
// recovery path is exhausted.
func DefaultResponse(tier models.Tier) map[string]any {
	switch tier {
	case models.TierQuick:
		return map[string]any{
			"status":  "temporarily_unavailable",
			"insight": "Insights are temporarily unavailable. Please try again in a few minutes.",
		}
	default:
		return map[string]any{
			"status":   "temporarily_unavailable",
			"summary":  "Analysis is temporarily unavailable. Your observations are saved and will be processed shortly.",
			"patterns": []any{},
		}
	}
}
