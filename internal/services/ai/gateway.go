package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/littlesteps/insights/internal/models"
	"go.uber.org/zap"
)

// SystemRole is the fixed system message sent with every gateway execution.
const SystemRole = "You are a child development specialist. You analyze observations " +
	"of children's activity and respond with valid JSON only. Be specific and " +
	"evidence-based; never invent details that are not supported by the observation."

// ExecuteOptions configures one gateway execution.
type ExecuteOptions struct {
	UserID      uuid.UUID
	Model       string
	Temperature float64
	MaxTokens   int
	Tier        models.Tier
	ImageURL    string // when set, the user message becomes a multi-part payload
	Endpoint    string // cost-accounting label; defaults to "execute"
}

// GatewayResult is the normalized outcome of one execution. Err is a raw
// provider/parse message; a failed call is reported as Success=false, never
// as a panic or a raw error escaping to the end user.
type GatewayResult struct {
	Success   bool           `json:"success"`
	Data      map[string]any `json:"data,omitempty"`
	Err       string         `json:"error,omitempty"`
	Tokens    int            `json:"tokens"`
	Model     string         `json:"model"`
	Degraded  bool           `json:"degraded,omitempty"`
	Duration  time.Duration  `json:"duration"`
	Timestamp time.Time      `json:"timestamp"`

	// cause keeps the typed provider error so fallback classification can
	// see ProviderError markers that the Err string flattens away.
	cause error
}

// Cause returns the underlying error of a failed execution, or nil.
func (r *GatewayResult) Cause() error {
	return r.cause
}

// Gateway executes one prompt against the model provider and normalizes the
// success/error shape. It does not retry; retry/downgrade/fallback belongs
// to the caller (see Executor).
type Gateway struct {
	provider ModelProvider
	costs    *CostTracker
	cache    *ResponseCache
	load     *LoadMonitor
	logger   *zap.Logger
	debug    bool
}

// NewGateway creates a gateway. The cache and load monitor are optional;
// when present, successful responses are cached under the prompt's fuzzy key
// and every call feeds the load signal.
func NewGateway(provider ModelProvider, costs *CostTracker, cache *ResponseCache, load *LoadMonitor, logger *zap.Logger, debug bool) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		provider: provider,
		costs:    costs,
		cache:    cache,
		load:     load,
		logger:   logger,
		debug:    debug,
	}
}

// Execute runs one prompt. Provider errors and JSON parse failures are both
// reported as structured failures.
func (g *Gateway) Execute(ctx context.Context, prompt string, opts ExecuteOptions) *GatewayResult {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = "execute"
	}

	userMsg := Message{Role: "user", Content: prompt, ImageURL: opts.ImageURL}
	req := ChatRequest{
		Model:       opts.Model,
		Messages:    []Message{{Role: "system", Content: SystemRole}, userMsg},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		JSONMode:    true,
	}

	if g.debug {
		g.logger.Debug("llm_api_request",
			zap.String("endpoint", endpoint),
			zap.String("model", opts.Model),
			zap.String("tier", string(opts.Tier)),
			zap.Int("prompt_length", len(prompt)),
			zap.String("prompt_preview", SanitizePrompt(prompt, true)),
			zap.Bool("has_image", opts.ImageURL != ""),
			zap.String("user_id", opts.UserID.String()),
			zap.String("request_id", ExtractRequestID(ctx)),
		)
	}

	start := time.Now()
	completion, err := g.provider.Complete(ctx, req)
	duration := time.Since(start)

	if err != nil {
		g.record(opts, 0, endpoint, false, duration)
		g.logger.Warn("llm_api_error",
			zap.String("endpoint", endpoint),
			zap.String("model", opts.Model),
			zap.Error(err),
			zap.Duration("duration", duration),
			zap.String("user_id", opts.UserID.String()),
		)
		return &GatewayResult{
			Success:   false,
			Err:       err.Error(),
			Model:     opts.Model,
			Duration:  duration,
			Timestamp: time.Now(),
			cause:     err,
		}
	}

	g.record(opts, completion.TotalTokens, endpoint, true, duration)
	if g.debug {
		g.logger.Debug("llm_api_response",
			zap.String("endpoint", endpoint),
			zap.String("model", opts.Model),
			zap.Int("response_length", len(completion.Content)),
			zap.String("response_preview", SanitizeResponse(completion.Content, true)),
			zap.Int("tokens", completion.TotalTokens),
			zap.Duration("duration", duration),
			zap.String("user_id", opts.UserID.String()),
		)
	}

	data, parseErr := parseJSONObject(completion.Content)
	if parseErr != nil {
		// A parse failure is a structured failure, not an exception.
		return &GatewayResult{
			Success:   false,
			Err:       "failed to parse model response as JSON: " + parseErr.Error(),
			Tokens:    completion.TotalTokens,
			Model:     opts.Model,
			Duration:  duration,
			Timestamp: time.Now(),
			cause:     parseErr,
		}
	}

	if g.cache != nil {
		g.cache.Set(prompt, data)
	}

	return &GatewayResult{
		Success:   true,
		Data:      data,
		Tokens:    completion.TotalTokens,
		Model:     opts.Model,
		Duration:  duration,
		Timestamp: time.Now(),
	}
}

func (g *Gateway) record(opts ExecuteOptions, tokens int, endpoint string, success bool, duration time.Duration) {
	if g.costs != nil {
		g.costs.Track(opts.UserID, opts.Model, tokens, endpoint, success)
	}
	if g.load != nil {
		g.load.Record(success, duration)
	}
}

// parseJSONObject parses a model response body as a JSON object, tolerating
// stray prose around the braces the way models occasionally emit it.
func parseJSONObject(content string) (map[string]any, error) {
	raw := content
	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		start := bytes.Index([]byte(raw), []byte("{"))
		end := bytes.LastIndex([]byte(raw), []byte("}"))
		if start == -1 || end == -1 || end <= start {
			return nil, err
		}
		if err := json.Unmarshal([]byte(raw[start:end+1]), &data); err != nil {
			return nil, err
		}
	}
	if len(data) == 0 {
		return nil, errors.New("empty response object")
	}
	return data, nil
}

// Executor wraps a gateway with the fallback state machine: it re-executes
// with retry/downgrade strategies and terminates with a cached or default
// payload so the caller always receives a well-formed result.
type Executor struct {
	gateway  *Gateway
	fallback *FallbackHandler
	logger   *zap.Logger
	sleep    func(context.Context, time.Duration)
}

// NewExecutor creates an executor over the gateway and fallback handler.
func NewExecutor(gateway *Gateway, fallback *FallbackHandler, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		gateway:  gateway,
		fallback: fallback,
		logger:   logger,
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Execute runs the prompt through the gateway, applying fallback strategies
// on failure until a servable result is produced.
func (e *Executor) Execute(ctx context.Context, prompt string, opts ExecuteOptions) *GatewayResult {
	attempt := 1
	for {
		result := e.gateway.Execute(ctx, prompt, opts)
		if result.Success {
			return result
		}

		cause := result.cause
		if cause == nil {
			cause = errors.New(result.Err)
		}
		fb := e.fallback.Handle(FallbackContext{
			Err:           cause,
			AttemptNumber: attempt,
			Model:         opts.Model,
			Prompt:        prompt,
			Tier:          opts.Tier,
		})

		e.logger.Info("fallback_applied",
			zap.String("strategy", string(fb.Strategy)),
			zap.Int("attempt", attempt),
			zap.String("model", opts.Model),
			zap.String("error", result.Err),
		)

		switch fb.Strategy {
		case StrategyRetry:
			e.sleep(ctx, fb.Backoff)
			if ctx.Err() != nil {
				return e.degraded(opts, FallbackResult{Response: DefaultResponse(opts.Tier)})
			}
		case StrategyDowngrade:
			opts.Model = fb.Model
		default:
			// cached or default: terminal, servable payload
			return e.degraded(opts, fb)
		}
		attempt++
	}
}

func (e *Executor) degraded(opts ExecuteOptions, fb FallbackResult) *GatewayResult {
	return &GatewayResult{
		Success:   true,
		Data:      fb.Response,
		Model:     opts.Model,
		Degraded:  true,
		Timestamp: time.Now(),
	}
}
