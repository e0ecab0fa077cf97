package repository

import (
	"context"
	"strings"

	"github.com/thorbis/campaigns/models"
	"github.com/thorbis/campaigns/utils"
	"gorm.io/gorm"
)

// CompanyRepositoryImpl implements the CompanyRepository interface
type CompanyRepositoryImpl struct {
	*BaseRepository[models.Company, models.CompanyFilter]
}

// NewCompanyRepository creates a new company repository
func NewCompanyRepository(db *gorm.DB) CompanyRepository {
	return &CompanyRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Company, models.CompanyFilter](db),
	}
}

// ListWithEmail retrieves every company with a non-null email, in insertion order
func (r *CompanyRepositoryImpl) ListWithEmail(ctx context.Context) ([]*models.Company, error) {
	filter := models.CompanyFilter{HasEmail: utils.ToPtr(true)}
	return r.ByFilter(ctx, filter, "id ASC", 0, 0)
}

// ByFilter retrieves companies based on filter criteria
func (r *CompanyRepositoryImpl) ByFilter(ctx context.Context, filter models.CompanyFilter, orderBy string, limit, offset int) ([]*models.Company, error) {
	db := r.getDB(ctx)

	var companies []*models.Company
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

	err := query.Find(&companies).Error
	if err != nil {
		return nil, err
	}

	return companies, nil
}

// Count returns the number of companies matching the filter
func (r *CompanyRepositoryImpl) Count(ctx context.Context, filter models.CompanyFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	var company models.Company
	query := r.applyFilter(db.Model(&company), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *CompanyRepositoryImpl) applyFilter(db *gorm.DB, filter models.CompanyFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.Email != nil {
		db = db.Where("LOWER(email) = ?", strings.ToLower(*filter.Email))
	}
	if len(filter.Plans) > 0 {
		db = db.Where("plan IN ?", filter.Plans)
	}
	if len(filter.Statuses) > 0 {
		db = db.Where("status IN ?", filter.Statuses)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at <= ?", *filter.CreatedBefore)
	}
	if utils.IsTrue(filter.HasEmail) {
		db = db.Where("email IS NOT NULL AND email <> ''")
	}

	return db
}
