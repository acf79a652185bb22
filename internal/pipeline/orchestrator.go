// Package pipeline sequences the two agent stages over stored observations:
// per-record extraction first, then cross-record pattern discovery once
// enough extracted records accumulate.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/littlesteps/insights/internal/database"
	"github.com/littlesteps/insights/internal/models"
	"github.com/littlesteps/insights/internal/services/ai"
)

// Config tunes the orchestrator's batching behavior.
type Config struct {
	// ObserverThreshold is the number of extraction-complete records that
	// must accumulate before the Observer stage runs.
	ObserverThreshold int
	// ObserverFetchLimit caps how many ready records one Observer run analyzes.
	ObserverFetchLimit int
	// BatchDelay is the pause between items in a sequential batch. It is the
	// sole backpressure mechanism toward the model provider.
	BatchDelay time.Duration
}

// DefaultConfig returns the standard orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		ObserverThreshold:  5,
		ObserverFetchLimit: 20,
		BatchDelay:         time.Second,
	}
}

// Orchestrator drives observations through the Reader and Observer stages,
// persisting stage outputs as they complete. (sourceType, sourceID) is the
// idempotency key: a record whose extraction already exists triggers zero
// additional model calls.
type Orchestrator struct {
	observations database.ObservationRepositoryInterface
	records      database.ProcessingRecordRepositoryInterface
	reader       *ai.ReaderAgent
	observer     *ai.ObserverAgent
	config       Config
	logger       *zap.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator creates an orchestrator with the given collaborators.
func NewOrchestrator(
	observations database.ObservationRepositoryInterface,
	records database.ProcessingRecordRepositoryInterface,
	reader *ai.ReaderAgent,
	observer *ai.ObserverAgent,
	config Config,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.ObserverThreshold <= 0 {
		config.ObserverThreshold = DefaultConfig().ObserverThreshold
	}
	if config.ObserverFetchLimit <= 0 {
		config.ObserverFetchLimit = DefaultConfig().ObserverFetchLimit
	}
	return &Orchestrator{
		observations: observations,
		records:      records,
		reader:       reader,
		observer:     observer,
		config:       config,
		logger:       logger,
		sleep:        sleepContext,
	}
}

// ProcessObservation runs the pipeline for one stored observation. The error
// return carries only caller-surfaced failures (missing observation, data
// store errors); model-call failures are folded into the result.
func (o *Orchestrator) ProcessObservation(ctx context.Context, id uuid.UUID) (*models.ProcessResult, error) {
	obs, err := o.observations.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch observation: %w", err)
	}
	if obs == nil {
		return nil, fmt.Errorf("%w: %s", ai.ErrObservationNotFound, id)
	}

	input := models.ObservationInput{
		Type:    obs.Type,
		Content: obs.Content,
		Metadata: models.ObservationMeta{
			ChildID: obs.ChildID,
			Date:    obs.ObservedAt,
		},
		Context: observationContext(obs),
	}

	return o.process(ctx, models.SourceTypeObservation, obs.ID, obs.ChildID, input)
}

// ProcessObservationWithMedia runs the pipeline for an uploaded attachment,
// keyed independently of any observation row. The Reader input type is chosen
// from the attachment's MIME type.
func (o *Orchestrator) ProcessObservationWithMedia(ctx context.Context, attachmentID uuid.UUID) (*models.ProcessResult, error) {
	att, err := o.observations.GetAttachment(ctx, attachmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch attachment: %w", err)
	}
	if att == nil {
		return nil, fmt.Errorf("%w: %s", ai.ErrAttachmentNotFound, attachmentID)
	}

	input := models.ObservationInput{
		Type:    mediaObservationType(att.MimeType),
		Content: att.URL,
		Metadata: models.ObservationMeta{
			ChildID: att.ChildID,
			Date:    att.CreatedAt,
		},
	}

	return o.process(ctx, models.SourceTypeAttachment, att.ID, att.ChildID, input)
}

// ProcessBatch pulls up to limit unprocessed observations and runs them
// sequentially with a fixed delay between items. One item's failure never
// aborts the batch.
func (o *Orchestrator) ProcessBatch(ctx context.Context, limit int) (*models.BatchResult, error) {
	observations, err := o.observations.GetUnprocessed(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unprocessed observations: %w", err)
	}

	batch := &models.BatchResult{}
	for i, obs := range observations {
		if i > 0 && o.config.BatchDelay > 0 {
			if err := o.sleep(ctx, o.config.BatchDelay); err != nil {
				return batch, err
			}
		}

		result, err := o.ProcessObservation(ctx, obs.ID)
		if err != nil {
			result = &models.ProcessResult{
				ObservationID: obs.ID,
				Success:       false,
				Error:         err.Error(),
			}
		}

		if result.Success {
			batch.Processed++
		} else {
			batch.Failed++
		}
		batch.Results = append(batch.Results, *result)
	}

	o.logger.Info("pipeline_batch_complete",
		zap.Int("processed", batch.Processed),
		zap.Int("failed", batch.Failed),
	)
	return batch, nil
}

// process runs the two-stage pipeline for one observation. A degraded
// extraction (zero confidence) is deliberately NOT persisted and reports
// Success false: writing it would make the idempotency check treat the
// observation as done, and a degraded result is exactly the one worth
// retrying once the provider recovers.
func (o *Orchestrator) process(ctx context.Context, sourceType string, sourceID, childID uuid.UUID, input models.ObservationInput) (*models.ProcessResult, error) {
	start := time.Now()

	record, err := o.records.FindExisting(ctx, sourceType, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing record: %w", err)
	}

	if record != nil && record.ReaderDone() {
		o.logger.Debug("pipeline_idempotent_hit",
			zap.String("source_type", sourceType),
			zap.String("source_id", sourceID.String()),
		)
		return &models.ProcessResult{
			ObservationID:       sourceID,
			Success:             true,
			Cached:              true,
			ReaderOutput:        record.ReaderOutput,
			ObserverOutput:      record.ObserverOutput,
			TotalProcessingTime: 0,
		}, nil
	}

	if record == nil {
		record = &models.ProcessingRecord{
			ID:         uuid.New(),
			SourceType: sourceType,
			SourceID:   sourceID,
			ChildID:    childID,
		}
		if err := o.records.Create(ctx, record); err != nil {
			return nil, fmt.Errorf("failed to create processing record: %w", err)
		}
	}

	readerOut := o.reader.Process(ctx, input)
	if readerOut.Confidence == 0 {
		// Leave the record without extraction so a later attempt retries
		// instead of short-circuiting on a degraded result.
		return &models.ProcessResult{
			ObservationID:       sourceID,
			Success:             false,
			Error:               readerError(readerOut),
			TotalProcessingTime: time.Since(start),
		}, nil
	}

	if err := o.records.UpdateReaderOutput(ctx, record.ID, readerOut); err != nil {
		return nil, fmt.Errorf("failed to persist extraction: %w", err)
	}

	observerOut, err := o.runObserverIfReady(ctx, record.ID)
	if err != nil {
		// Extraction already succeeded and persisted; report the item as
		// processed and let the next pipeline run pick the batch up again.
		o.logger.Warn("pipeline_observer_stage_failed", zap.Error(err))
		observerOut = nil
	}

	return &models.ProcessResult{
		ObservationID:       sourceID,
		Success:             true,
		ReaderOutput:        readerOut,
		ObserverOutput:      observerOut,
		TotalProcessingTime: time.Since(start),
	}, nil
}

// runObserverIfReady checks the backlog of extraction-complete records and,
// once the threshold is met, runs the Observer once over the whole ready
// batch and writes its output onto every member. Returns the output when the
// given record was part of the analyzed batch.
func (o *Orchestrator) runObserverIfReady(ctx context.Context, recordID uuid.UUID) (*models.ObserverOutput, error) {
	ready, err := o.records.GetRecordsForObserver(ctx, o.config.ObserverFetchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch observer backlog: %w", err)
	}
	if len(ready) < o.config.ObserverThreshold {
		return nil, nil
	}

	inputs := make([]ai.ObserverInput, 0, len(ready))
	for _, r := range ready {
		inputs = append(inputs, ai.ObserverInput{
			ChildID:   r.ChildID,
			Extracted: r.ReaderOutput.Extracted,
		})
	}

	o.logger.Info("pipeline_observer_run", zap.Int("batch_size", len(ready)))
	out := o.observer.Process(ctx, inputs)

	var member bool
	for _, r := range ready {
		if err := o.records.UpdateObserverOutput(ctx, r.ID, out); err != nil {
			return nil, fmt.Errorf("failed to persist pattern analysis: %w", err)
		}
		if r.ID == recordID {
			member = true
		}
	}

	if !member {
		return nil, nil
	}
	return out, nil
}

// observationContext folds the teacher-supplied framing and the child's age
// into one prompt context string.
func observationContext(obs *models.Observation) string {
	parts := make([]string, 0, 2)
	if obs.Context != "" {
		parts = append(parts, obs.Context)
	}
	if months := obs.AgeInMonths(); months > 0 {
		parts = append(parts, fmt.Sprintf("Child age: %d months.", months))
	}
	return strings.Join(parts, " ")
}

// mediaObservationType maps an attachment MIME type to a Reader input type.
func mediaObservationType(mimeType string) models.ObservationType {
	mt := strings.ToLower(mimeType)
	if strings.Contains(mt, "pdf") || strings.HasPrefix(mt, "image/") {
		return models.ObservationTypeWorksheet
	}
	return models.ObservationTypeText
}

func readerError(out *models.ReaderOutput) string {
	if len(out.Warnings) > 0 {
		return out.Warnings[len(out.Warnings)-1]
	}
	return "extraction failed"
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
