package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/littlesteps/insights/internal/models"
)

// TemplateRepository manages prompt templates. Templates are never hard
// deleted; Deactivate flips the active flag so historical usage records
// stay resolvable.
type TemplateRepository struct {
	db *DB
}

// NewTemplateRepository creates a new template repository.
func NewTemplateRepository(db *DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// List returns templates, optionally filtered to active ones only.
func (r *TemplateRepository) List(ctx context.Context, activeOnly bool) ([]*models.PromptTemplate, error) {
	query := `
		SELECT id, name, description, body, variables, active, created_by, created_at, updated_at
		FROM prompt_templates
	`
	if activeOnly {
		query += ` WHERE active = true`
	}
	query += ` ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var templates []*models.PromptTemplate
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, tpl)
	}

	return templates, rows.Err()
}

// GetByID retrieves one template. Returns nil when absent.
func (r *TemplateRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PromptTemplate, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, body, variables, active, created_by, created_at, updated_at
		FROM prompt_templates
		WHERE id = $1
	`, id)

	tpl, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return tpl, nil
}

// Create inserts a new template. Variables are extracted from the body
// before the insert so the stored list always matches the stored body.
func (r *TemplateRepository) Create(ctx context.Context, tpl *models.PromptTemplate) error {
	tpl.Variables = models.ExtractVariables(tpl.Body)

	query := `
		INSERT INTO prompt_templates (id, name, description, body, variables, active, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		tpl.ID,
		tpl.Name,
		tpl.Description,
		tpl.Body,
		pq.Array(tpl.Variables),
		tpl.Active,
		tpl.CreatedBy,
	).Scan(&tpl.CreatedAt, &tpl.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}

	return nil
}

// Update rewrites a template's editable fields and re-derives its variables.
func (r *TemplateRepository) Update(ctx context.Context, tpl *models.PromptTemplate) error {
	tpl.Variables = models.ExtractVariables(tpl.Body)

	query := `
		UPDATE prompt_templates
		SET name = $2, description = $3, body = $4, variables = $5, active = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		tpl.ID,
		tpl.Name,
		tpl.Description,
		tpl.Body,
		pq.Array(tpl.Variables),
		tpl.Active,
	).Scan(&tpl.UpdatedAt)
	if err == sql.ErrNoRows {
		return fmt.Errorf("template not found: %s", tpl.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update template: %w", err)
	}

	return nil
}

// Deactivate soft-deletes a template.
func (r *TemplateRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE prompt_templates
		SET active = false, updated_at = NOW()
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate template: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deactivate result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("template not found: %s", id)
	}

	return nil
}

func scanTemplate(row rowScanner) (*models.PromptTemplate, error) {
	tpl := &models.PromptTemplate{}
	var description sql.NullString

	err := row.Scan(
		&tpl.ID,
		&tpl.Name,
		&description,
		&tpl.Body,
		pq.Array(&tpl.Variables),
		&tpl.Active,
		&tpl.CreatedBy,
		&tpl.CreatedAt,
		&tpl.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan template: %w", err)
	}

	if description.Valid {
		tpl.Description = description.String
	}

	return tpl, nil
}
