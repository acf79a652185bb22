package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/littlesteps/insights/internal/models"
)

// ObservationRepository reads the observation and attachment source tables.
// Writes to these tables belong to the upload/entry surfaces, not to this
// subsystem.
type ObservationRepository struct {
	db *DB
}

// NewObservationRepository creates a new observation repository.
func NewObservationRepository(db *DB) *ObservationRepository {
	return &ObservationRepository{db: db}
}

// GetByID retrieves one observation with the child birth-date join applied
// so callers can derive age in months.
func (r *ObservationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Observation, error) {
	obs := &models.Observation{}
	var birthDate sql.NullTime
	var observationContext sql.NullString

	query := `
		SELECT o.id, o.child_id, o.author_id, o.type, o.content, o.context,
		       c.birth_date, o.observed_at, o.created_at
		FROM observations o
		JOIN children c ON c.id = o.child_id
		WHERE o.id = $1
	`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&obs.ID,
		&obs.ChildID,
		&obs.AuthorID,
		&obs.Type,
		&obs.Content,
		&observationContext,
		&birthDate,
		&obs.ObservedAt,
		&obs.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get observation: %w", err)
	}

	if observationContext.Valid {
		obs.Context = observationContext.String
	}
	if birthDate.Valid {
		obs.ChildBirthDate = &birthDate.Time
	}

	return obs, nil
}

// GetUnprocessed returns observations that have no processing record yet,
// oldest first, up to limit.
func (r *ObservationRepository) GetUnprocessed(ctx context.Context, limit int) ([]*models.Observation, error) {
	query := `
		SELECT o.id, o.child_id, o.author_id, o.type, o.content, o.context,
		       c.birth_date, o.observed_at, o.created_at
		FROM observations o
		JOIN children c ON c.id = o.child_id
		LEFT JOIN processing_records p
		       ON p.source_type = 'observation' AND p.source_id = o.id
		WHERE p.id IS NULL
		ORDER BY o.created_at ASC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get unprocessed observations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var observations []*models.Observation
	for rows.Next() {
		obs := &models.Observation{}
		var birthDate sql.NullTime
		var observationContext sql.NullString

		err := rows.Scan(
			&obs.ID,
			&obs.ChildID,
			&obs.AuthorID,
			&obs.Type,
			&obs.Content,
			&observationContext,
			&birthDate,
			&obs.ObservedAt,
			&obs.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}

		if observationContext.Valid {
			obs.Context = observationContext.String
		}
		if birthDate.Valid {
			obs.ChildBirthDate = &birthDate.Time
		}
		observations = append(observations, obs)
	}

	return observations, rows.Err()
}

// GetAttachment retrieves one uploaded attachment. Returns nil when absent.
func (r *ObservationRepository) GetAttachment(ctx context.Context, id uuid.UUID) (*models.Attachment, error) {
	att := &models.Attachment{}

	query := `
		SELECT id, child_id, mime_type, url, created_at
		FROM attachments
		WHERE id = $1
	`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&att.ID,
		&att.ChildID,
		&att.MimeType,
		&att.URL,
		&att.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}

	return att, nil
}
