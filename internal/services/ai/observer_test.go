package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestObserverProcess_EmptyBatch(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{script: []providerStep{{content: "{}", tokens: 1}}}
	observer := NewObserverAgent(newTestExecutor(provider, nil), DefaultObserverConfig(), nil)

	out := observer.Process(context.Background(), nil)
	if out.PatternCount != 0 || len(out.Patterns) != 0 {
		t.Errorf("empty batch must yield no patterns, got %+v", out)
	}
	if provider.calls != 0 {
		t.Errorf("empty batch must not reach the provider, got %d calls", provider.calls)
	}
}

func TestObserverProcess_DiscoversPatterns(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{script: []providerStep{
		{content: `{
			"patterns": {
				"collaborative_building": {
					"description": "children build structures together",
					"examples": ["block tower", "sand castle", "fort"],
					"frequency": 0.8,
					"consistency": 0.9
				},
				"weak_signal": {
					"description": "one-off mention",
					"examples": ["single event"]
				}
			}
		}`, tokens: 500},
	}}
	observer := NewObserverAgent(newTestExecutor(provider, nil), DefaultObserverConfig(), nil)

	inputs := []ObserverInput{
		{ChildID: uuid.New(), Extracted: map[string]any{"building": "tower"}},
		{ChildID: uuid.New(), Extracted: map[string]any{"building": "castle"}},
	}
	out := observer.Process(context.Background(), inputs)

	if out.PatternCount != 2 {
		t.Fatalf("expected 2 patterns, got %d", out.PatternCount)
	}
	if out.ObservationsAnalyzed != 2 {
		t.Errorf("expected 2 observations analyzed, got %d", out.ObservationsAnalyzed)
	}

	// Three examples, high frequency, high consistency: 0.5+0.2+0.15+0.15 capped.
	if got := out.ConfidenceScores["collaborative_building"]; got != 0.95 {
		t.Errorf("strong pattern confidence should cap at 0.95, got %f", got)
	}
	// One example, no frequency or consistency: baseline only.
	if got := out.ConfidenceScores["weak_signal"]; got != 0.5 {
		t.Errorf("weak pattern confidence should stay at 0.5, got %f", got)
	}
}

func TestObserverProcess_TopLevelPatternMap(t *testing.T) {
	t.Parallel()

	// Some responses skip the "patterns" wrapper; the agent tolerates that.
	provider := &scriptedProvider{script: []providerStep{
		{content: `{"independent_play": {"description": "plays alone contentedly"}}`, tokens: 200},
	}}
	observer := NewObserverAgent(newTestExecutor(provider, nil), DefaultObserverConfig(), nil)

	out := observer.Process(context.Background(), []ObserverInput{
		{ChildID: uuid.New(), Extracted: map[string]any{"play": "solo"}},
	})
	if out.PatternCount != 1 {
		t.Fatalf("expected 1 pattern, got %d", out.PatternCount)
	}
	if _, ok := out.Patterns["independent_play"]; !ok {
		t.Errorf("unexpected patterns: %v", out.Patterns)
	}
}

func TestObserverProcess_DegradedCallYieldsEmptyPatterns(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{script: []providerStep{
		{err: errors.New("invalid request: rejected")},
	}}
	observer := NewObserverAgent(newTestExecutor(provider, nil), DefaultObserverConfig(), nil)

	out := observer.Process(context.Background(), []ObserverInput{
		{ChildID: uuid.New(), Extracted: map[string]any{"play": "solo"}},
	})
	if out.PatternCount != 0 || len(out.Patterns) != 0 {
		t.Errorf("degraded discovery must yield no patterns, got %+v", out)
	}
	if out.ObservationsAnalyzed != 1 {
		t.Errorf("analyzed count reports the batch size even on failure, got %d", out.ObservationsAnalyzed)
	}
}

func TestBuildDiscoveryPrompt_GroupsByChild(t *testing.T) {
	t.Parallel()

	observer := NewObserverAgent(nil, DefaultObserverConfig(), nil)
	childA := uuid.New()
	childB := uuid.New()

	prompt := observer.buildDiscoveryPrompt([]ObserverInput{
		{ChildID: childA, Extracted: map[string]any{"a": 1}},
		{ChildID: childB, Extracted: map[string]any{"b": 2}},
		{ChildID: childA, Extracted: map[string]any{"c": 3}},
	})

	for _, id := range []uuid.UUID{childA, childB} {
		if !strings.Contains(prompt, id.String()) {
			t.Errorf("prompt should mention child %s", id)
		}
	}
	if !strings.Contains(prompt, "Discover patterns") {
		t.Error("prompt should carry the discovery instruction")
	}
}
