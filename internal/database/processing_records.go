package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/littlesteps/insights/internal/models"
)

// ProcessingRecordRepository handles pipeline processing record operations.
// (source_type, source_id) carries a unique constraint: it is the pipeline's
// idempotency key.
type ProcessingRecordRepository struct {
	db *DB
}

// NewProcessingRecordRepository creates a new processing record repository.
func NewProcessingRecordRepository(db *DB) *ProcessingRecordRepository {
	return &ProcessingRecordRepository{db: db}
}

// Create inserts a new processing record for a source that has not been
// processed before.
func (r *ProcessingRecordRepository) Create(ctx context.Context, record *models.ProcessingRecord) error {
	query := `
		INSERT INTO processing_records (id, source_type, source_id, child_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		record.ID,
		record.SourceType,
		record.SourceID,
		record.ChildID,
		now,
		now,
	).Scan(&record.CreatedAt, &record.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create processing record: %w", err)
	}

	return nil
}

// FindExisting looks up the record for an idempotency key. Returns nil when
// no record exists.
func (r *ProcessingRecordRepository) FindExisting(ctx context.Context, sourceType string, sourceID uuid.UUID) (*models.ProcessingRecord, error) {
	query := `
		SELECT id, source_type, source_id, child_id, reader_output, observer_output, created_at, updated_at
		FROM processing_records
		WHERE source_type = $1 AND source_id = $2
	`

	record, err := r.scanRecord(r.db.QueryRowContext(ctx, query, sourceType, sourceID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find processing record: %w", err)
	}

	return record, nil
}

// UpdateReaderOutput writes the extraction result onto a record. The output
// is immutable after this write; reprocessing requires an explicit reset.
func (r *ProcessingRecordRepository) UpdateReaderOutput(ctx context.Context, id uuid.UUID, output *models.ReaderOutput) error {
	outputJSON, err := json.Marshal(output)
	if err != nil {
		return fmt.Errorf("failed to marshal reader output: %w", err)
	}

	query := `
		UPDATE processing_records
		SET reader_output = $2, updated_at = $3
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, outputJSON, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update reader output: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return fmt.Errorf("processing record not found: %s", id)
	}

	return nil
}

// UpdateObserverOutput writes the pattern summary onto a record; called once
// per record in an analyzed batch.
func (r *ProcessingRecordRepository) UpdateObserverOutput(ctx context.Context, id uuid.UUID, output *models.ObserverOutput) error {
	outputJSON, err := json.Marshal(output)
	if err != nil {
		return fmt.Errorf("failed to marshal observer output: %w", err)
	}

	query := `
		UPDATE processing_records
		SET observer_output = $2, updated_at = $3
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, outputJSON, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update observer output: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return fmt.Errorf("processing record not found: %s", id)
	}

	return nil
}

// GetRecordsForObserver returns reader-complete, observer-pending records
// in insertion order, up to limit.
func (r *ProcessingRecordRepository) GetRecordsForObserver(ctx context.Context, limit int) ([]*models.ProcessingRecord, error) {
	query := `
		SELECT id, source_type, source_id, child_id, reader_output, observer_output, created_at, updated_at
		FROM processing_records
		WHERE reader_output IS NOT NULL AND observer_output IS NULL
		ORDER BY created_at ASC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get records for observer: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*models.ProcessingRecord
	for rows.Next() {
		record, err := r.scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan processing record: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *ProcessingRecordRepository) scanRecord(row rowScanner) (*models.ProcessingRecord, error) {
	record := &models.ProcessingRecord{}
	var readerJSON, observerJSON []byte

	err := row.Scan(
		&record.ID,
		&record.SourceType,
		&record.SourceID,
		&record.ChildID,
		&readerJSON,
		&observerJSON,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(readerJSON) > 0 {
		record.ReaderOutput = &models.ReaderOutput{}
		if err := json.Unmarshal(readerJSON, record.ReaderOutput); err != nil {
			return nil, fmt.Errorf("failed to unmarshal reader output: %w", err)
		}
	}
	if len(observerJSON) > 0 {
		record.ObserverOutput = &models.ObserverOutput{}
		if err := json.Unmarshal(observerJSON, record.ObserverOutput); err != nil {
			return nil, fmt.Errorf("failed to unmarshal observer output: %w", err)
		}
	}

	return record, nil
}
