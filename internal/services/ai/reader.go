package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/littlesteps/insights/internal/models"
	"go.uber.org/zap"
)

// Per-type confidence baselines. Text is the most reliable path; media
// paths lose confidence as the extraction backend gets more speculative.
var readerBaselines = map[models.ObservationType]float64{
	models.ObservationTypeText:      0.85,
	models.ObservationTypePhoto:     0.75,
	models.ObservationTypeWorksheet: 0.70,
	models.ObservationTypeVoice:     0.65,
	models.ObservationTypeVideo:     0.60,
}

const (
	// WarningVoiceBackend flags that voice transcription is not yet wired
	WarningVoiceBackend = "voice transcription backend not yet available; analysis based on metadata only"
	// WarningVideoBackend flags that video analysis is not yet wired
	WarningVideoBackend = "video analysis backend not yet available; analysis based on metadata only"
)

// ReaderConfig selects the models and budgets the reader runs with.
type ReaderConfig struct {
	Model       string
	VisionModel string
	Temperature float64
	MaxTokens   int
}

// DefaultReaderConfig returns the reader's standard configuration.
func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{
		Model:       "gpt-4",
		VisionModel: "gpt-4-vision",
		Temperature: 0.3,
		MaxTokens:   1500,
	}
}

// ReaderAgent extracts open-ended structured findings from a single
// observation. All five input types produce the same ReaderOutput shape
// regardless of divergent prompt content.
type ReaderAgent struct {
	executor *Executor
	config   ReaderConfig
	logger   *zap.Logger
}

// NewReaderAgent creates a reader agent over the resilient executor.
func NewReaderAgent(executor *Executor, config ReaderConfig, logger *zap.Logger) *ReaderAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReaderAgent{executor: executor, config: config, logger: logger}
}

// Process extracts findings from one observation. Errors never escape: a
// failed extraction is reported as a zero-confidence output.
func (a *ReaderAgent) Process(ctx context.Context, input models.ObservationInput) *models.ReaderOutput {
	start := time.Now()

	if !input.Type.Valid() {
		return &models.ReaderOutput{
			Extracted:      map[string]any{},
			Confidence:     0,
			Warnings:       []string{fmt.Sprintf("unknown observation type: %s", input.Type)},
			ProcessingTime: time.Since(start),
		}
	}

	prompt, opts, warnings := a.buildRequest(input)
	result := a.executor.Execute(ctx, prompt, opts)

	out := &models.ReaderOutput{
		Extracted:      result.Data,
		Warnings:       warnings,
		Model:          result.Model,
		ProcessingTime: time.Since(start),
	}

	if !result.Success || result.Degraded {
		// The call went through every fallback; whatever payload came back
		// is servable but it is not an extraction.
		out.Confidence = 0
		out.Warnings = append(out.Warnings, "extraction degraded: model call failed")
		a.logger.Warn("reader_extraction_degraded",
			zap.String("type", string(input.Type)),
			zap.String("child_id", input.Metadata.ChildID.String()),
		)
		return out
	}

	out.Confidence = readerConfidence(input.Type, result.Data)
	return out
}

// buildRequest dispatches on the observation type to produce the prompt and
// execution options.
func (a *ReaderAgent) buildRequest(input models.ObservationInput) (string, ExecuteOptions, []string) {
	opts := ExecuteOptions{
		Model:       a.config.Model,
		Temperature: a.config.Temperature,
		MaxTokens:   a.config.MaxTokens,
		Tier:        models.TierAnalysis,
		Endpoint:    "reader",
	}

	var prompt string
	var warnings []string

	switch input.Type {
	case models.ObservationTypeText:
		prompt = a.textPrompt(input)
	case models.ObservationTypePhoto:
		prompt = a.imagePrompt(input, "photo of a child's activity")
		opts.Model = a.config.VisionModel
		opts.ImageURL = input.Content
	case models.ObservationTypeWorksheet:
		prompt = a.imagePrompt(input, "scanned worksheet completed by a child")
		opts.Model = a.config.VisionModel
		opts.ImageURL = input.Content
	case models.ObservationTypeVoice:
		prompt = a.mediaStubPrompt(input, "voice recording")
		warnings = append(warnings, WarningVoiceBackend)
	case models.ObservationTypeVideo:
		prompt = a.mediaStubPrompt(input, "video recording")
		warnings = append(warnings, WarningVideoBackend)
	}

	return prompt, opts, warnings
}

const readerGuidance = `Extract everything notable about this child's development from the observation.

Do NOT force findings into predetermined categories like "cognitive", "social", or "physical" unless those groupings genuinely emerge from what you see. Let the structure of your findings follow the observation itself.

Respond with a JSON object where each key names something you noticed and its value describes the evidence. Include specific details: what the child did, said, or made.`

func (a *ReaderAgent) textPrompt(input models.ObservationInput) string {
	prompt := fmt.Sprintf("Observation (recorded %s):\n%s\n\n%s",
		input.Metadata.Date.Format("2006-01-02"), input.Content, readerGuidance)
	if input.Context != "" {
		prompt += "\n\nTeacher-provided context: " + input.Context
	}
	return prompt
}

func (a *ReaderAgent) imagePrompt(input models.ObservationInput, kind string) string {
	prompt := fmt.Sprintf("You are looking at a %s, recorded %s.\n\n%s",
		kind, input.Metadata.Date.Format("2006-01-02"), readerGuidance)
	if input.Context != "" {
		prompt += "\n\nTeacher-provided context: " + input.Context
	}
	return prompt
}

// mediaStubPrompt covers voice/video until their analysis backends exist:
// the model only sees metadata and any teacher context, so the output stays
// well-formed but lower-confidence.
func (a *ReaderAgent) mediaStubPrompt(input models.ObservationInput, kind string) string {
	prompt := fmt.Sprintf("A %s of a child's activity was recorded on %s. The recording itself cannot be analyzed yet.\n\n", kind, input.Metadata.Date.Format("2006-01-02"))
	if input.Context != "" {
		prompt += "Teacher-provided context: " + input.Context + "\n\n"
	}
	prompt += `Based only on the available metadata and context, respond with a JSON object noting what can reasonably be recorded about this observation and what should be revisited once the recording can be analyzed. Do not invent specifics about the recording's content.`
	return prompt
}

// readerConfidence applies the per-type baseline adjusted by extraction
// richness and capped at the global maximum.
func readerConfidence(t models.ObservationType, extracted map[string]any) float64 {
	confidence := readerBaselines[t]
	if len(extracted) > 10 {
		confidence += 0.1
	}
	if len(extracted) > 20 {
		confidence += 0.05
	}
	if confidence > models.MaxConfidence {
		confidence = models.MaxConfidence
	}
	return confidence
}
