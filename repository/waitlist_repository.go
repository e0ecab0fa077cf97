package repository

import (
	"context"
	"strings"

	"github.com/thorbis/campaigns/models"
	"gorm.io/gorm"
)

// WaitlistRepositoryImpl implements the WaitlistRepository interface
type WaitlistRepositoryImpl struct {
	*BaseRepository[models.WaitlistEntry, models.WaitlistEntryFilter]
}

// NewWaitlistRepository creates a new waitlist repository
func NewWaitlistRepository(db *gorm.DB) WaitlistRepository {
	return &WaitlistRepositoryImpl{
		BaseRepository: NewBaseRepository[models.WaitlistEntry, models.WaitlistEntryFilter](db),
	}
}

// ListPending retrieves waitlist entries still waiting for access, in signup order
func (r *WaitlistRepositoryImpl) ListPending(ctx context.Context) ([]*models.WaitlistEntry, error) {
	filter := models.WaitlistEntryFilter{Statuses: []string{"pending"}}
	return r.ByFilter(ctx, filter, "id ASC", 0, 0)
}

// ByFilter retrieves waitlist entries based on filter criteria
func (r *WaitlistRepositoryImpl) ByFilter(ctx context.Context, filter models.WaitlistEntryFilter, orderBy string, limit, offset int) ([]*models.WaitlistEntry, error) {
	db := r.getDB(ctx)

	var entries []*models.WaitlistEntry
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

	err := query.Find(&entries).Error
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// Count returns the number of waitlist entries matching the filter
func (r *WaitlistRepositoryImpl) Count(ctx context.Context, filter models.WaitlistEntryFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	var entry models.WaitlistEntry
	query := r.applyFilter(db.Model(&entry), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *WaitlistRepositoryImpl) applyFilter(db *gorm.DB, filter models.WaitlistEntryFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.Email != nil {
		db = db.Where("LOWER(email) = ?", strings.ToLower(*filter.Email))
	}
	if len(filter.Statuses) > 0 {
		db = db.Where("status IN ?", filter.Statuses)
	}

	return db
}
