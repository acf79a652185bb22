package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/littlesteps/insights/internal/models"
)

// ObservationRepositoryInterface defines the interface for observation repository operations
// This interface enables better testability by allowing mock implementations
type ObservationRepositoryInterface interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Observation, error)
	GetUnprocessed(ctx context.Context, limit int) ([]*models.Observation, error)
	GetAttachment(ctx context.Context, id uuid.UUID) (*models.Attachment, error)
}

// ProcessingRecordRepositoryInterface defines the interface for processing record repository operations
type ProcessingRecordRepositoryInterface interface {
	Create(ctx context.Context, record *models.ProcessingRecord) error
	FindExisting(ctx context.Context, sourceType string, sourceID uuid.UUID) (*models.ProcessingRecord, error)
	UpdateReaderOutput(ctx context.Context, id uuid.UUID, output *models.ReaderOutput) error
	UpdateObserverOutput(ctx context.Context, id uuid.UUID, output *models.ObserverOutput) error
	GetRecordsForObserver(ctx context.Context, limit int) ([]*models.ProcessingRecord, error)
}

// TemplateRepositoryInterface defines the interface for prompt template repository operations
type TemplateRepositoryInterface interface {
	List(ctx context.Context, activeOnly bool) ([]*models.PromptTemplate, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.PromptTemplate, error)
	Create(ctx context.Context, tpl *models.PromptTemplate) error
	Update(ctx context.Context, tpl *models.PromptTemplate) error
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// UserRepositoryInterface defines the interface for user repository operations
type UserRepositoryInterface interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// UsageRepositoryInterface defines the interface for usage ledger operations
type UsageRepositoryInterface interface {
	RecordUsage(ctx context.Context, rec models.UsageRecord) error
	UserUsage(ctx context.Context, userID uuid.UUID, period models.UsagePeriod) (models.UserUsage, error)
	CheckBudget(ctx context.Context, userID uuid.UUID, monthlyBudget float64) (models.BudgetStatus, error)
	Stats(ctx context.Context) (models.GlobalStats, error)
}

// Ensure concrete types implement the interfaces
var (
	_ ObservationRepositoryInterface      = (*ObservationRepository)(nil)
	_ ProcessingRecordRepositoryInterface = (*ProcessingRecordRepository)(nil)
	_ TemplateRepositoryInterface         = (*TemplateRepository)(nil)
	_ UserRepositoryInterface             = (*UserRepository)(nil)
	_ UsageRepositoryInterface            = (*UsageRepository)(nil)
)
