package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/thorbis/campaigns/models"
	"github.com/thorbis/campaigns/utils"
	"gorm.io/gorm"
)

// CampaignSendRepositoryImpl implements the CampaignSendRepository interface
type CampaignSendRepositoryImpl struct {
	*BaseRepository[models.CampaignSend, models.CampaignSendFilter]
}

// NewCampaignSendRepository creates a new campaign send repository
func NewCampaignSendRepository(db *gorm.DB) CampaignSendRepository {
	return &CampaignSendRepositoryImpl{
		BaseRepository: NewBaseRepository[models.CampaignSend, models.CampaignSendFilter](db),
	}
}

// ByCampaignAndEmail retrieves the send record of one recipient of one campaign
func (r *CampaignSendRepositoryImpl) ByCampaignAndEmail(ctx context.Context, campaignID uint, email string) (*models.CampaignSend, error) {
	db := r.getDB(ctx)

	var send models.CampaignSend
	err := db.Where("campaign_id = ? AND LOWER(email) = ?", campaignID, strings.ToLower(email)).
		Last(&send).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &send, nil
}

// ListByCampaign retrieves send records of a campaign with pagination
func (r *CampaignSendRepositoryImpl) ListByCampaign(ctx context.Context, campaignID uint, limit, offset int) ([]*models.CampaignSend, error) {
	filter := models.CampaignSendFilter{CampaignID: &campaignID}
	return r.ByFilter(ctx, filter, "id ASC", limit, offset)
}

// CountByStatus returns per-status counts of a campaign's send records
func (r *CampaignSendRepositoryImpl) CountByStatus(ctx context.Context, campaignID uint) (map[models.SendStatus]int64, error) {
	db := r.getDB(ctx)

	type row struct {
		Status models.SendStatus
		Total  int64
	}
	var rows []row
	err := db.Model(&models.CampaignSend{}).
		Select("status, COUNT(*) AS total").
		Where("campaign_id = ?", campaignID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[models.SendStatus]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Total
	}
	return out, nil
}

// MarkSent records a successful provider submission for one recipient
func (r *CampaignSendRepositoryImpl) MarkSent(ctx context.Context, sendID uint, providerMessageID string, sentAt time.Time) error {
	db := r.getDB(ctx)
	return db.Model(&models.CampaignSend{}).
		Where("id = ?", sendID).
		Updates(map[string]any{
			"status":              models.SendStatusSent,
			"provider_message_id": providerMessageID,
			"sent_at":             sentAt,
			"error_message":       nil,
			"updated_at":          utils.UTCNow(),
		}).Error
}

// MarkFailed records a failed provider submission for one recipient
func (r *CampaignSendRepositoryImpl) MarkFailed(ctx context.Context, sendID uint, errorMessage string) error {
	db := r.getDB(ctx)
	return db.Model(&models.CampaignSend{}).
		Where("id = ?", sendID).
		Updates(map[string]any{
			"status":        models.SendStatusFailed,
			"error_message": errorMessage,
			"updated_at":    utils.UTCNow(),
		}).Error
}

// Update updates a send record
func (r *CampaignSendRepositoryImpl) Update(ctx context.Context, send *models.CampaignSend) error {
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

	now := utils.UTCNow()
	send.UpdatedAt = &now

	err = db.Save(send).Error
	if err != nil {
		return err
	}

	return nil
}

// DeleteByCampaign removes all send records of a campaign
func (r *CampaignSendRepositoryImpl) DeleteByCampaign(ctx context.Context, campaignID uint) error {
	db := r.getDB(ctx)
	return db.Where("campaign_id = ?", campaignID).
		Delete(&models.CampaignSend{}).Error
}

// ByFilter retrieves send records based on filter criteria
func (r *CampaignSendRepositoryImpl) ByFilter(ctx context.Context, filter models.CampaignSendFilter, orderBy string, limit, offset int) ([]*models.CampaignSend, error) {
	db := r.getDB(ctx)

	var sends []*models.CampaignSend
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

	err := query.Find(&sends).Error
	if err != nil {
		return nil, err
	}

	return sends, nil
}

// Count returns the number of send records matching the filter
func (r *CampaignSendRepositoryImpl) Count(ctx context.Context, filter models.CampaignSendFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	var send models.CampaignSend
	query := r.applyFilter(db.Model(&send), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *CampaignSendRepositoryImpl) applyFilter(db *gorm.DB, filter models.CampaignSendFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.CampaignID != nil {
		db = db.Where("campaign_id = ?", *filter.CampaignID)
	}
	if filter.Email != nil {
		db = db.Where("LOWER(email) = ?", strings.ToLower(*filter.Email))
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.ProviderMessageID != nil {
		db = db.Where("provider_message_id = ?", *filter.ProviderMessageID)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at <= ?", *filter.CreatedBefore)
	}

	return db
}
