package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/thorbis/campaigns/utils"
	"gorm.io/gorm"
)

// SendStatus represents the delivery status of one recipient of a campaign
type SendStatus string

const (
	SendStatusPending      SendStatus = "pending"
	SendStatusSent         SendStatus = "sent"
	SendStatusFailed       SendStatus = "failed"
	SendStatusDelivered    SendStatus = "delivered"
	SendStatusOpened       SendStatus = "opened"
	SendStatusClicked      SendStatus = "clicked"
	SendStatusBounced      SendStatus = "bounced"
	SendStatusComplained   SendStatus = "complained"
	SendStatusUnsubscribed SendStatus = "unsubscribed"
)

// String returns the string representation of the status
func (s SendStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s SendStatus) Valid() bool {
	switch s {
	case SendStatusPending, SendStatusSent, SendStatusFailed,
		SendStatusDelivered, SendStatusOpened, SendStatusClicked,
		SendStatusBounced, SendStatusComplained, SendStatusUnsubscribed:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for SendStatus
func (s *SendStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = SendStatus(v)
	case []byte:
		*s = SendStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into SendStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for SendStatus
func (s SendStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid SendStatus: %s", s)
	}
	return string(s), nil
}

// CampaignSend represents one recipient of one campaign and their delivery outcome
type CampaignSend struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UUID       uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uk_email_campaign_sends_uuid" json:"uuid"`
	CampaignID uint       `gorm:"not null;index:idx_email_campaign_sends_campaign_id;uniqueIndex:uk_email_campaign_sends_campaign_email" json:"campaign_id"`
	Email      string     `gorm:"type:varchar(320);not null;uniqueIndex:uk_email_campaign_sends_campaign_email" json:"email"`
	Name       *string    `gorm:"type:varchar(255)" json:"name,omitempty"`
	Status     SendStatus `gorm:"type:email_send_status;not null;default:'pending';index:idx_email_campaign_sends_status" json:"status"`

	// Recipient provenance
	RecipientType AudienceType `gorm:"type:audience_type;not null" json:"recipient_type"`
	RecipientID   *string      `gorm:"type:varchar(100)" json:"recipient_id,omitempty"`

	// Provider outcome
	ProviderMessageID *string `gorm:"type:varchar(255);index:idx_email_campaign_sends_provider_message_id" json:"provider_message_id,omitempty"`
	ErrorMessage      *string `gorm:"type:text" json:"error_message,omitempty"`

	// Event timestamps reported by the mail provider
	SentAt         *time.Time `json:"sent_at,omitempty"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
	OpenedAt       *time.Time `json:"opened_at,omitempty"`
	ClickedAt      *time.Time `json:"clicked_at,omitempty"`
	BouncedAt      *time.Time `json:"bounced_at,omitempty"`
	ComplainedAt   *time.Time `json:"complained_at,omitempty"`
	UnsubscribedAt *time.Time `json:"unsubscribed_at,omitempty"`
	OpenCount      int        `gorm:"not null;default:0" json:"open_count"`
	ClickCount     int        `gorm:"not null;default:0" json:"click_count"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`

	// Relations
	Campaign *Campaign `gorm:"foreignKey:CampaignID;references:ID" json:"campaign,omitempty"`
}

// TableName returns the table name for the model
func (CampaignSend) TableName() string {
	return "email_campaign_sends"
}

// BeforeCreate is called before creating a new record
func (s *CampaignSend) BeforeCreate(tx *gorm.DB) error {
	if s.UUID == uuid.Nil {
		s.UUID = uuid.New()
	}
	if s.Status == "" {
		s.Status = SendStatusPending
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (s *CampaignSend) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	s.UpdatedAt = &now
	return nil
}

// WasAttempted reports whether the send loop already reached this recipient
func (s *CampaignSend) WasAttempted() bool {
	return s.Status != SendStatusPending
}

// CampaignSendFilter represents filter criteria for campaign send records
type CampaignSendFilter struct {
	ID                *uint       `json:"id,omitempty"`
	UUID              *uuid.UUID  `json:"uuid,omitempty"`
	CampaignID        *uint       `json:"campaign_id,omitempty"`
	Email             *string     `json:"email,omitempty"`
	Status            *SendStatus `json:"status,omitempty"`
	ProviderMessageID *string     `json:"provider_message_id,omitempty"`
	CreatedAfter      *time.Time  `json:"created_after,omitempty"`
	CreatedBefore     *time.Time  `json:"created_before,omitempty"`
}
