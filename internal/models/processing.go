package models

import (
	"time"

	"github.com/google/uuid"
)

// Source types used as the first half of the processing idempotency key.
const (
	// SourceTypeObservation keys records created from the observations table
	SourceTypeObservation = "observation"
	// SourceTypeAttachment keys records created from uploaded media
	SourceTypeAttachment = "attachment"
)

// MaxConfidence caps every Reader/Observer confidence score.
const MaxConfidence = 0.95

// ReaderOutput is the structured extraction result for one observation.
// It is immutable once written; re-running requires explicit reprocessing.
type ReaderOutput struct {
	// Extracted is intentionally schema-free: the prompts forbid fixed
	// taxonomies, so the model's findings are kept as an open document.
	Extracted      map[string]any `json:"extracted"`
	Confidence     float64        `json:"confidence"` // [0, 0.95]; 0 iff extraction errored
	Warnings       []string       `json:"warnings,omitempty"`
	ProcessingTime time.Duration  `json:"processing_time"`
	Model          string         `json:"model"`
}

// ObserverOutput is the cross-record pattern summary written onto every
// record in an analyzed batch.
type ObserverOutput struct {
	Patterns             map[string]any     `json:"patterns"`
	PatternCount         int                `json:"pattern_count"`
	ConfidenceScores     map[string]float64 `json:"confidence_scores"`
	ObservationsAnalyzed int                `json:"observations_analyzed"`
	ProcessingTime       time.Duration      `json:"processing_time"`
}

// ProcessingRecord is the unit of pipeline work. At most one record exists
// per (SourceType, SourceID) pair; that pair is the idempotency key.
type ProcessingRecord struct {
	ID             uuid.UUID       `json:"id"`
	SourceType     string          `json:"source_type"`
	SourceID       uuid.UUID       `json:"source_id"`
	ChildID        uuid.UUID       `json:"child_id"`
	ReaderOutput   *ReaderOutput   `json:"reader_output,omitempty"`
	ObserverOutput *ObserverOutput `json:"observer_output,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ReaderDone reports whether the per-record extraction stage has completed.
func (r *ProcessingRecord) ReaderDone() bool {
	return r.ReaderOutput != nil
}

// ObserverPending reports whether the record is waiting for pattern analysis.
func (r *ProcessingRecord) ObserverPending() bool {
	return r.ReaderOutput != nil && r.ObserverOutput == nil
}

// ProcessResult is the per-item outcome of a pipeline run.
type ProcessResult struct {
	ObservationID       uuid.UUID       `json:"observation_id"`
	Success             bool            `json:"success"`
	Cached              bool            `json:"cached,omitempty"`
	Error               string          `json:"error,omitempty"`
	ReaderOutput        *ReaderOutput   `json:"reader_output,omitempty"`
	ObserverOutput      *ObserverOutput `json:"observer_output,omitempty"`
	TotalProcessingTime time.Duration   `json:"total_processing_time"`
}

// BatchResult aggregates per-item results; one item's failure never aborts
// the batch.
type BatchResult struct {
	Processed int             `json:"processed"`
	Failed    int             `json:"failed"`
	Results   []ProcessResult `json:"results"`
}
