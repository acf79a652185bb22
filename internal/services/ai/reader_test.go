package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/littlesteps/insights/internal/models"
)

func textInput(content string) models.ObservationInput {
	return models.ObservationInput{
		Type:    models.ObservationTypeText,
		Content: content,
		Metadata: models.ObservationMeta{
			ChildID: uuid.New(),
			Date:    time.Date(2026, time.May, 12, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestReaderProcess_TextExtraction(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{script: []providerStep{
		{content: `{"block_stacking": "built a six-block tower", "persistence": "rebuilt it after it fell"}`, tokens: 200},
	}}
	reader := NewReaderAgent(newTestExecutor(provider, nil), DefaultReaderConfig(), nil)

	out := reader.Process(context.Background(), textInput("Maya stacked six blocks today"))
	if out.Confidence != 0.85 {
		t.Errorf("text baseline confidence should be 0.85, got %f", out.Confidence)
	}
	if out.Extracted["persistence"] != "rebuilt it after it fell" {
		t.Errorf("unexpected extraction: %v", out.Extracted)
	}
	if len(out.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", out.Warnings)
	}
}

func TestReaderProcess_RichExtractionCapsConfidence(t *testing.T) {
	t.Parallel()

	// More than 20 findings would push 0.85+0.1+0.05 past the cap.
	fields := make([]string, 0, 25)
	for i := 0; i < 25; i++ {
		fields = append(fields, fmt.Sprintf("%q: \"finding %d\"", fmt.Sprintf("observation_%d", i), i))
	}
	provider := &scriptedProvider{script: []providerStep{
		{content: "{" + strings.Join(fields, ",") + "}", tokens: 900},
	}}
	reader := NewReaderAgent(newTestExecutor(provider, nil), DefaultReaderConfig(), nil)

	out := reader.Process(context.Background(), textInput("a very detailed observation"))
	if out.Confidence != models.MaxConfidence {
		t.Errorf("confidence must cap at %f, got %f", models.MaxConfidence, out.Confidence)
	}
}

func TestReaderProcess_PhotoUsesVisionModel(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{script: []providerStep{
		{content: `{"drawing": "a house with windows"}`, tokens: 150},
	}}
	reader := NewReaderAgent(newTestExecutor(provider, nil), DefaultReaderConfig(), nil)

	input := textInput("https://media.example/photo.jpg")
	input.Type = models.ObservationTypePhoto

	out := reader.Process(context.Background(), input)
	if out.Confidence != 0.75 {
		t.Errorf("photo baseline confidence should be 0.75, got %f", out.Confidence)
	}
	if len(provider.models) != 1 || provider.models[0] != "gpt-4-vision" {
		t.Errorf("photo extraction should run the vision model, got %v", provider.models)
	}
}

func TestReaderProcess_VoiceCarriesBackendWarning(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{script: []providerStep{
		{content: `{"metadata_note": "recording captured during circle time"}`, tokens: 60},
	}}
	reader := NewReaderAgent(newTestExecutor(provider, nil), DefaultReaderConfig(), nil)

	input := textInput("https://media.example/voice.m4a")
	input.Type = models.ObservationTypeVoice

	out := reader.Process(context.Background(), input)
	if out.Confidence != 0.65 {
		t.Errorf("voice baseline confidence should be 0.65, got %f", out.Confidence)
	}
	var warned bool
	for _, w := range out.Warnings {
		if w == WarningVoiceBackend {
			warned = true
		}
	}
	if !warned {
		t.Errorf("voice extraction must warn about the missing backend, got %v", out.Warnings)
	}
}

func TestReaderProcess_UnknownTypeIsZeroConfidence(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{script: []providerStep{
		{content: `{"should": "not be called"}`, tokens: 10},
	}}
	reader := NewReaderAgent(newTestExecutor(provider, nil), DefaultReaderConfig(), nil)

	input := textInput("content")
	input.Type = models.ObservationType("hologram")

	out := reader.Process(context.Background(), input)
	if out.Confidence != 0 {
		t.Errorf("unknown type must be zero confidence, got %f", out.Confidence)
	}
	if provider.calls != 0 {
		t.Errorf("unknown type must not reach the provider, got %d calls", provider.calls)
	}
	if len(out.Warnings) == 0 {
		t.Error("unknown type should carry a warning")
	}
}

func TestReaderProcess_DegradedCallIsZeroConfidence(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{script: []providerStep{
		{err: errors.New("invalid request: rejected")},
	}}
	reader := NewReaderAgent(newTestExecutor(provider, nil), DefaultReaderConfig(), nil)

	out := reader.Process(context.Background(), textInput("an observation"))
	if out.Confidence != 0 {
		t.Errorf("degraded extraction must be zero confidence, got %f", out.Confidence)
	}
	var degradedWarning bool
	for _, w := range out.Warnings {
		if strings.Contains(w, "degraded") {
			degradedWarning = true
		}
	}
	if !degradedWarning {
		t.Errorf("degraded extraction should warn, got %v", out.Warnings)
	}
}
