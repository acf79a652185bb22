package workers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/littlesteps/insights/internal/models"
	"github.com/littlesteps/insights/internal/pipeline"
	"github.com/littlesteps/insights/internal/queue"
	"github.com/littlesteps/insights/internal/services/ai"
)

// DefaultBatchLimit is the number of observations a batch job processes when
// the job does not specify its own limit.
const DefaultBatchLimit = 20

// PipelineProcessor consumes queue jobs and drives the observation pipeline.
type PipelineProcessor struct {
	orchestrator *pipeline.Orchestrator
	jobQueue     queue.JobQueue // For re-enqueueing jobs with delays
}

// NewPipelineProcessor creates a new pipeline processor.
func NewPipelineProcessor(orchestrator *pipeline.Orchestrator, jobQueue queue.JobQueue) *PipelineProcessor {
	return &PipelineProcessor{
		orchestrator: orchestrator,
		jobQueue:     jobQueue,
	}
}

// ProcessObservationJob runs the pipeline for one observation.
func (p *PipelineProcessor) ProcessObservationJob(ctx context.Context, job *queue.Job) error {
	if job.SourceID == nil {
		return fmt.Errorf("source_id is required for observation job")
	}

	result, err := p.orchestrator.ProcessObservation(ctx, *job.SourceID)
	if err != nil {
		return fmt.Errorf("failed to process observation: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("extraction failed for observation %s: %s", result.ObservationID, result.Error)
	}

	logResult(job, result)
	return nil
}

// ProcessAttachmentJob runs the pipeline for one uploaded attachment.
func (p *PipelineProcessor) ProcessAttachmentJob(ctx context.Context, job *queue.Job) error {
	if job.SourceID == nil {
		return fmt.Errorf("source_id is required for attachment job")
	}

	result, err := p.orchestrator.ProcessObservationWithMedia(ctx, *job.SourceID)
	if err != nil {
		return fmt.Errorf("failed to process attachment: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("extraction failed for attachment %s: %s", result.ObservationID, result.Error)
	}

	logResult(job, result)
	return nil
}

// ProcessBatchJob runs the pipeline over a batch of unprocessed observations.
func (p *PipelineProcessor) ProcessBatchJob(ctx context.Context, job *queue.Job) error {
	limit := job.BatchLimit
	if limit <= 0 {
		limit = DefaultBatchLimit
	}

	batch, err := p.orchestrator.ProcessBatch(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to process batch: %w", err)
	}

	log.Printf("Batch job %s complete: processed=%d failed=%d", job.ID, batch.Processed, batch.Failed)
	return nil
}

// ProcessJob processes a job based on its type
func (p *PipelineProcessor) ProcessJob(ctx context.Context, msg *queue.Message) error {
	job := msg.Job

	// Check if job should be processed now (respect NotBefore)
	if !job.ShouldProcess() {
		log.Printf("Job %s not ready yet (NotBefore: %v), skipping", job.ID, job.NotBefore)
		if ackErr := msg.Ack(); ackErr != nil {
			log.Printf("Failed to ack job for later processing: %v", ackErr)
		}
		return nil
	}

	switch job.Type {
	case queue.JobTypeProcessObservation:
		if err := p.ProcessObservationJob(ctx, job); err != nil {
			return p.handleJobError(ctx, msg, job, err, "observation")
		}
	case queue.JobTypeProcessAttachment:
		if err := p.ProcessAttachmentJob(ctx, job); err != nil {
			return p.handleJobError(ctx, msg, job, err, "attachment")
		}
	case queue.JobTypeProcessBatch:
		if err := p.ProcessBatchJob(ctx, job); err != nil {
			return p.handleJobError(ctx, msg, job, err, "batch")
		}
	default:
		if nackErr := msg.Nack(false); nackErr != nil { // Unknown job type, send to DLQ
			log.Printf("Failed to nack unknown job type: %v", nackErr)
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}

	if ackErr := msg.Ack(); ackErr != nil {
		return fmt.Errorf("failed to ack job: %w", ackErr)
	}
	return nil
}

// handleJobError routes job failures: missing sources go to the DLQ without
// retry, rate limits re-enqueue with a delay, everything else follows the
// standard retry-then-DLQ path.
func (p *PipelineProcessor) handleJobError(ctx context.Context, msg *queue.Message, job *queue.Job, err error, jobType string) error {
	// A missing observation or attachment never becomes present by retrying.
	if errors.Is(err, ai.ErrObservationNotFound) || errors.Is(err, ai.ErrAttachmentNotFound) {
		log.Printf("%s job %s references a missing source: %v, sending to DLQ", jobType, job.ID, err)
		if nackErr := msg.Nack(false); nackErr != nil {
			log.Printf("Failed to nack job to DLQ: %v", nackErr)
		}
		return fmt.Errorf("source not found: %w", err)
	}

	if ai.Classify(err) == ai.ErrorClassRateLimit {
		log.Printf("Rate limited for %s job %s: %v", jobType, job.ID, err)

		if job.CanRetry() && p.jobQueue != nil {
			notBefore := time.Now().Add(retryDelay(job.RetryCount))
			delayedJob := &queue.Job{
				ID:         job.ID,
				Type:       job.Type,
				UserID:     job.UserID,
				SourceID:   job.SourceID,
				BatchLimit: job.BatchLimit,
				NotBefore:  &notBefore,
				NotAfter:   job.NotAfter,
				Metadata:   job.Metadata,
				CreatedAt:  job.CreatedAt,
				RetryCount: job.RetryCount + 1,
				MaxRetries: job.MaxRetries,
			}

			if ackErr := msg.Ack(); ackErr != nil {
				log.Printf("Failed to ack rate limited job: %v", ackErr)
			}

			if enqueueErr := p.jobQueue.Enqueue(ctx, delayedJob); enqueueErr != nil {
				log.Printf("Failed to re-enqueue rate limited job %s: %v", job.ID, enqueueErr)
				return fmt.Errorf("rate limited, failed to re-enqueue: %w", enqueueErr)
			}

			log.Printf("Rate limited: re-enqueued %s job %s for retry at %v", jobType, job.ID, notBefore)
			return nil
		}
	}

	// For other errors, use standard retry logic
	if job.CanRetry() {
		job.IncrementRetry()
		log.Printf("%s job %s failed (attempt %d/%d): %v, will retry", jobType, job.ID, job.RetryCount, job.MaxRetries, err)
		if nackErr := msg.Nack(true); nackErr != nil {
			log.Printf("Failed to nack job: %v", nackErr)
		}
		return fmt.Errorf("job failed (will retry): %w", err)
	}

	// Max retries exceeded, send to DLQ
	log.Printf("%s job %s failed after %d retries: %v, sending to DLQ", jobType, job.ID, job.MaxRetries, err)
	if nackErr := msg.Nack(false); nackErr != nil {
		log.Printf("Failed to nack job to DLQ: %v", nackErr)
	}
	return fmt.Errorf("job failed (max retries): %w", err)
}

// retryDelay backs off by doubling per attempt, starting at one minute.
func retryDelay(retryCount int) time.Duration {
	delay := time.Minute
	for i := 0; i < retryCount && delay < 30*time.Minute; i++ {
		delay *= 2
	}
	return delay
}

func logResult(job *queue.Job, result *models.ProcessResult) {
	if result.Cached {
		log.Printf("Job %s: observation %s already processed", job.ID, result.ObservationID)
		return
	}
	log.Printf("Job %s: observation %s processed in %v", job.ID, result.ObservationID, result.TotalProcessingTime)
}
