package repository

import (
	"context"
	"strings"

	"github.com/thorbis/campaigns/models"
	"github.com/thorbis/campaigns/utils"
	"gorm.io/gorm"
)

// UserRepositoryImpl implements the UserRepository interface
type UserRepositoryImpl struct {
	*BaseRepository[models.User, models.UserFilter]
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &UserRepositoryImpl{
		BaseRepository: NewBaseRepository[models.User, models.UserFilter](db),
	}
}

// ListWithEmail retrieves every user with a non-null email, in insertion order
func (r *UserRepositoryImpl) ListWithEmail(ctx context.Context) ([]*models.User, error) {
	filter := models.UserFilter{HasEmail: utils.ToPtr(true)}
	return r.ByFilter(ctx, filter, "id ASC", 0, 0)
}

// ListSegment retrieves users matching the segment predicates, non-null email only
func (r *UserRepositoryImpl) ListSegment(ctx context.Context, filter models.UserFilter) ([]*models.User, error) {
	filter.HasEmail = utils.ToPtr(true)
	return r.ByFilter(ctx, filter, "id ASC", 0, 0)
}

// ByFilter retrieves users based on filter criteria
func (r *UserRepositoryImpl) ByFilter(ctx context.Context, filter models.UserFilter, orderBy string, limit, offset int) ([]*models.User, error) {
	db := r.getDB(ctx)

	var users []*models.User
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

	err := query.Find(&users).Error
	if err != nil {
		return nil, err
	}

	return users, nil
}

// Count returns the number of users matching the filter
func (r *UserRepositoryImpl) Count(ctx context.Context, filter models.UserFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	var user models.User
	query := r.applyFilter(db.Model(&user), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *UserRepositoryImpl) applyFilter(db *gorm.DB, filter models.UserFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.Email != nil {
		db = db.Where("LOWER(email) = ?", strings.ToLower(*filter.Email))
	}
	if len(filter.Roles) > 0 {
		db = db.Where("role IN ?", filter.Roles)
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
