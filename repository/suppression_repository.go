package repository

import (
	"context"
	"strings"

	"github.com/thorbis/campaigns/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SuppressionRepositoryImpl implements the SuppressionRepository interface
type SuppressionRepositoryImpl struct {
	*BaseRepository[models.EmailSuppression, models.EmailSuppressionFilter]
}

// NewSuppressionRepository creates a new suppression repository
func NewSuppressionRepository(db *gorm.DB) SuppressionRepository {
	return &SuppressionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.EmailSuppression, models.EmailSuppressionFilter](db),
	}
}

// ListByReasons retrieves suppressions whose reason is in the given set
func (r *SuppressionRepositoryImpl) ListByReasons(ctx context.Context, reasons []models.SuppressionReason) ([]*models.EmailSuppression, error) {
	if len(reasons) == 0 {
		return nil, nil
	}

	filter := models.EmailSuppressionFilter{Reasons: reasons}
	return r.ByFilter(ctx, filter, "id ASC", 0, 0)
}

// Upsert inserts a suppression or refreshes the reason of an existing one
func (r *SuppressionRepositoryImpl) Upsert(ctx context.Context, suppression *models.EmailSuppression) error {
	db := r.getDB(ctx)
	suppression.Email = strings.ToLower(strings.TrimSpace(suppression.Email))
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"reason", "source"}),
	}).Create(suppression).Error
}

// ByFilter retrieves suppressions based on filter criteria
func (r *SuppressionRepositoryImpl) ByFilter(ctx context.Context, filter models.EmailSuppressionFilter, orderBy string, limit, offset int) ([]*models.EmailSuppression, error) {
	db := r.getDB(ctx)

	var suppressions []*models.EmailSuppression
	query := r.applyFilter(db, filter)

	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	err := query.Find(&suppressions).Error
	if err != nil {
		return nil, err
	}

	return suppressions, nil
}

// Count returns the number of suppressions matching the filter
func (r *SuppressionRepositoryImpl) Count(ctx context.Context, filter models.EmailSuppressionFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	var suppression models.EmailSuppression
	query := r.applyFilter(db.Model(&suppression), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *SuppressionRepositoryImpl) applyFilter(db *gorm.DB, filter models.EmailSuppressionFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.Email != nil {
		db = db.Where("email = ?", strings.ToLower(*filter.Email))
	}
	if len(filter.Reasons) > 0 {
		db = db.Where("reason IN ?", filter.Reasons)
	}

	return db
}
