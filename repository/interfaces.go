// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/thorbis/campaigns/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
}

// CampaignRepository defines operations for email campaigns
type CampaignRepository interface {
	Repository[models.Campaign, models.CampaignFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Campaign, error)
	Update(ctx context.Context, campaign *models.Campaign) error
	UpdateFields(ctx context.Context, campaignID uint, fields map[string]any) error
	// UpdateStatusIfCurrent performs a guarded transition: the status column is
	// updated only when it still equals expected. Returns false when another
	// writer got there first.
	UpdateStatusIfCurrent(ctx context.Context, campaignID uint, expected, next models.CampaignStatus, extra map[string]any) (bool, error)
	ListScheduledDue(ctx context.Context, due time.Time, limit int) ([]*models.Campaign, error)
	Delete(ctx context.Context, campaignID uint) error
}

// CampaignSendRepository defines operations for per-recipient send records
type CampaignSendRepository interface {
	Repository[models.CampaignSend, models.CampaignSendFilter]
	ByCampaignAndEmail(ctx context.Context, campaignID uint, email string) (*models.CampaignSend, error)
	ListByCampaign(ctx context.Context, campaignID uint, limit, offset int) ([]*models.CampaignSend, error)
	CountByStatus(ctx context.Context, campaignID uint) (map[models.SendStatus]int64, error)
	MarkSent(ctx context.Context, sendID uint, providerMessageID string, sentAt time.Time) error
	MarkFailed(ctx context.Context, sendID uint, errorMessage string) error
	Update(ctx context.Context, send *models.CampaignSend) error
	DeleteByCampaign(ctx context.Context, campaignID uint) error
}

// SuppressionRepository defines operations for the email suppression list
type SuppressionRepository interface {
	Repository[models.EmailSuppression, models.EmailSuppressionFilter]
	ListByReasons(ctx context.Context, reasons []models.SuppressionReason) ([]*models.EmailSuppression, error)
	Upsert(ctx context.Context, suppression *models.EmailSuppression) error
}

// UserRepository defines recipient lookups over platform users
type UserRepository interface {
	Repository[models.User, models.UserFilter]
	ListWithEmail(ctx context.Context) ([]*models.User, error)
	ListSegment(ctx context.Context, filter models.UserFilter) ([]*models.User, error)
}

// CompanyRepository defines recipient lookups over companies
type CompanyRepository interface {
	Repository[models.Company, models.CompanyFilter]
	ListWithEmail(ctx context.Context) ([]*models.Company, error)
}

// WaitlistRepository defines recipient lookups over the waitlist
type WaitlistRepository interface {
	Repository[models.WaitlistEntry, models.WaitlistEntryFilter]
	ListPending(ctx context.Context) ([]*models.WaitlistEntry, error)
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByCampaign(ctx context.Context, campaignID uint, limit, offset int) ([]*models.AuditLog, error)
	ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error)
	ListFailedActions(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
}
