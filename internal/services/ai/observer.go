package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/littlesteps/insights/internal/models"
	"go.uber.org/zap"
)

// ObserverConfig selects the model and budgets for pattern discovery.
type ObserverConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// DefaultObserverConfig returns the observer's standard configuration.
func DefaultObserverConfig() ObserverConfig {
	return ObserverConfig{
		Model:       "gpt-4",
		Temperature: 0.4,
		MaxTokens:   2500,
	}
}

// ObserverInput is one reader-complete record entering pattern discovery.
type ObserverInput struct {
	ChildID   uuid.UUID
	Extracted map[string]any
}

// ObserverAgent discovers cross-record patterns over a batch of reader
// outputs. Records are grouped by child only for prompt context; the whole
// batch goes through a single model call.
type ObserverAgent struct {
	executor *Executor
	config   ObserverConfig
	logger   *zap.Logger
}

// NewObserverAgent creates an observer agent over the resilient executor.
func NewObserverAgent(executor *Executor, config ObserverConfig, logger *zap.Logger) *ObserverAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ObserverAgent{executor: executor, config: config, logger: logger}
}

// Process runs pattern discovery over the batch. A total failure yields an
// empty pattern set rather than propagating the error.
func (a *ObserverAgent) Process(ctx context.Context, observations []ObserverInput) *models.ObserverOutput {
	start := time.Now()

	out := &models.ObserverOutput{
		Patterns:             map[string]any{},
		ConfidenceScores:     map[string]float64{},
		ObservationsAnalyzed: len(observations),
	}

	if len(observations) == 0 {
		out.ProcessingTime = time.Since(start)
		return out
	}

	prompt := a.buildDiscoveryPrompt(observations)
	result := a.executor.Execute(ctx, prompt, ExecuteOptions{
		Model:       a.config.Model,
		Temperature: a.config.Temperature,
		MaxTokens:   a.config.MaxTokens,
		Tier:        models.TierAnalysis,
		Endpoint:    "observer",
	})

	if !result.Success || result.Degraded {
		a.logger.Warn("observer_discovery_degraded",
			zap.Int("observations", len(observations)),
		)
		out.ProcessingTime = time.Since(start)
		return out
	}

	patterns := extractPatterns(result.Data)
	for name, detail := range patterns {
		out.Patterns[name] = detail
		out.ConfidenceScores[name] = patternConfidence(detail)
	}
	out.PatternCount = len(out.Patterns)
	out.ProcessingTime = time.Since(start)

	return out
}

// buildDiscoveryPrompt combines all reader findings, grouped per child for
// readability, into one discovery instruction.
func (a *ObserverAgent) buildDiscoveryPrompt(observations []ObserverInput) string {
	byChild := make(map[uuid.UUID][]map[string]any)
	for _, obs := range observations {
		byChild[obs.ChildID] = append(byChild[obs.ChildID], obs.Extracted)
	}

	childIDs := make([]uuid.UUID, 0, len(byChild))
	for id := range byChild {
		childIDs = append(childIDs, id)
	}
	sort.Slice(childIDs, func(i, j int) bool {
		return childIDs[i].String() < childIDs[j].String()
	})

	var b strings.Builder
	b.WriteString("Below are structured findings extracted from recent observations of children, grouped by child.\n\n")
	for i, childID := range childIDs {
		fmt.Fprintf(&b, "Child %d (%s):\n", i+1, childID)
		for _, extracted := range byChild[childID] {
			encoded, err := json.Marshal(extracted)
			if err != nil {
				continue
			}
			b.WriteString("- ")
			b.Write(encoded)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(`Discover patterns that emerge ACROSS these findings. Do not impose predetermined developmental categories; report only what the data itself shows.

Respond with a JSON object of the form:
{
  "patterns": {
    "<pattern name>": {
      "description": "<what the pattern is>",
      "children": ["<which children exhibit it, by the numbers above>"],
      "examples": ["<specific supporting examples>"],
      "frequency": <0..1, share of observations showing it>,
      "consistency": <0..1, how uniformly it appears>
    }
  }
}`)

	return b.String()
}

// extractPatterns pulls the patterns object out of the model response,
// tolerating a response that is itself the pattern map.
func extractPatterns(data map[string]any) map[string]any {
	if nested, ok := data["patterns"].(map[string]any); ok {
		return nested
	}
	return data
}

// patternConfidence starts at 0.5 and earns increments for example count,
// frequency, and consistency, capped at the global maximum.
func patternConfidence(detail any) float64 {
	confidence := 0.5

	m, ok := detail.(map[string]any)
	if !ok {
		return confidence
	}

	if examples, ok := m["examples"].([]any); ok && len(examples) >= 3 {
		confidence += 0.2
	}
	if freq, ok := toFloat(m["frequency"]); ok && freq > 0.5 {
		confidence += 0.15
	}
	if consistency, ok := toFloat(m["consistency"]); ok && consistency > 0.7 {
		confidence += 0.15
	}

	if confidence > models.MaxConfidence {
		confidence = models.MaxConfidence
	}
	return confidence
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
