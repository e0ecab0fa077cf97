package repository

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/thorbis/campaigns/models"
	"github.com/thorbis/campaigns/utils"
	"gorm.io/gorm"
)

// CampaignRepositoryImpl implements the CampaignRepository interface
type CampaignRepositoryImpl struct {
	*BaseRepository[models.Campaign, models.CampaignFilter]
}

// NewCampaignRepository creates a new campaign repository
func NewCampaignRepository(db *gorm.DB) CampaignRepository {
	return &CampaignRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Campaign, models.CampaignFilter](db),
	}
}

// ByUUID retrieves a campaign by UUID
func (r *CampaignRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.Campaign, error) {
	parsedUUID, err := utils.ParseUUID(uuid)
	if err != nil {
		return nil, err
	}

	filter := models.CampaignFilter{UUID: &parsedUUID}
	campaigns, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(campaigns) == 0 {
		return nil, nil
	}

	return campaigns[0], nil
}

// Update updates a campaign
func (r *CampaignRepositoryImpl) Update(ctx context.Context, campaign *models.Campaign) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	// Set updated_at timestamp
	now := utils.UTCNow()
	campaign.UpdatedAt = &now

	err = db.Save(campaign).Error
	if err != nil {
		return err
	}

	return nil
}

// UpdateFields updates the given columns of a campaign
func (r *CampaignRepositoryImpl) UpdateFields(ctx context.Context, campaignID uint, fields map[string]any) error {
	db := r.getDB(ctx)
	fields["updated_at"] = utils.UTCNow()
	return db.Model(&models.Campaign{}).
		Where("id = ?", campaignID).
		Updates(fields).Error
}

// UpdateStatusIfCurrent performs a guarded status transition in a single
// statement. The WHERE clause carries the expected status, so two writers
// racing for the same transition cannot both win.
func (r *CampaignRepositoryImpl) UpdateStatusIfCurrent(ctx context.Context, campaignID uint, expected, next models.CampaignStatus, extra map[string]any) (bool, error) {
	db := r.getDB(ctx)

	updates := map[string]any{
		"status":     next,
		"updated_at": utils.UTCNow(),
	}
	for k, v := range extra {
		updates[k] = v
	}

	result := db.Model(&models.Campaign{}).
		Where("id = ? AND status = ?", campaignID, expected).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}

// ListScheduledDue retrieves scheduled campaigns whose send time has passed
func (r *CampaignRepositoryImpl) ListScheduledDue(ctx context.Context, due time.Time, limit int) ([]*models.Campaign, error) {
	db := r.getDB(ctx)

	var campaigns []*models.Campaign
	query := db.Where("status = ? AND scheduled_for IS NOT NULL AND scheduled_for <= ?", models.CampaignStatusScheduled, due).
		Order("scheduled_for ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	err := query.Find(&campaigns).Error
	if err != nil {
		return nil, err
	}

	return campaigns, nil
}

// Delete removes a campaign row
func (r *CampaignRepositoryImpl) Delete(ctx context.Context, campaignID uint) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Delete(&models.Campaign{}, campaignID).Error
	if err != nil {
		return err
	}

	return nil
}

// ByFilter retrieves campaigns based on filter criteria
func (r *CampaignRepositoryImpl) ByFilter(ctx context.Context, filter models.CampaignFilter, orderBy string, limit, offset int) ([]*models.Campaign, error) {
	db := r.getDB(ctx)

	var campaigns []*models.Campaign
	query := r.applyFilter(db, filter)

	// Apply ordering
	if orderBy != "" {
		query = query.Order(orderBy)
	}

	// Apply pagination
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	err := query.Find(&campaigns).Error
	if err != nil {
		return nil, err
	}

	return campaigns, nil
}

// Count returns the number of campaigns matching the filter
func (r *CampaignRepositoryImpl) Count(ctx context.Context, filter models.CampaignFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	var campaign models.Campaign
	query := r.applyFilter(db.Model(&campaign), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *CampaignRepositoryImpl) applyFilter(db *gorm.DB, filter models.CampaignFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if len(filter.Statuses) > 0 {
		db = db.Where("status IN ?", filter.Statuses)
	}
	if len(filter.AudienceTypes) > 0 {
		db = db.Where("audience_type IN ?", filter.AudienceTypes)
	}
	if filter.Search != nil && *filter.Search != "" {
		pattern := "%" + *filter.Search + "%"
		db = db.Where(
			"name ILIKE ? OR subject ILIKE ? OR EXISTS (SELECT 1 FROM unnest(tags) AS t WHERE t ILIKE ?)",
			pattern, pattern, pattern,
		)
	}
	if len(filter.Tags) > 0 {
		db = db.Where("tags && ?", pq.StringArray(filter.Tags))
	}
	if filter.CreatedBy != nil {
		db = db.Where("created_by = ?", *filter.CreatedBy)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at <= ?", *filter.CreatedBefore)
	}
	if filter.ScheduleAfter != nil {
		db = db.Where("scheduled_for > ?", *filter.ScheduleAfter)
	}
	if filter.ScheduleBefore != nil {
		db = db.Where("scheduled_for < ?", *filter.ScheduleBefore)
	}

	return db
}
