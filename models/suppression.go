package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/thorbis/campaigns/utils"
	"gorm.io/gorm"
)

// SuppressionReason represents why an email address must be excluded from sends
type SuppressionReason string

const (
	SuppressionReasonUnsubscribed SuppressionReason = "unsubscribed"
	SuppressionReasonBounced      SuppressionReason = "bounced"
	SuppressionReasonComplained   SuppressionReason = "complained"
)

// String returns the string representation of the reason
func (r SuppressionReason) String() string {
	return string(r)
}

// Valid checks if the reason is valid
func (r SuppressionReason) Valid() bool {
	switch r {
	case SuppressionReasonUnsubscribed, SuppressionReasonBounced, SuppressionReasonComplained:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for SuppressionReason
func (r *SuppressionReason) Scan(value any) error {
	if value == nil {
		*r = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*r = SuppressionReason(v)
	case []byte:
		*r = SuppressionReason(string(v))
	default:
		return fmt.Errorf("cannot scan %T into SuppressionReason", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for SuppressionReason
func (r SuppressionReason) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid SuppressionReason: %s", r)
	}
	return string(r), nil
}

// EmailSuppression represents one suppressed email address
type EmailSuppression struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	Email     string            `gorm:"type:varchar(320);not null;uniqueIndex:uk_email_suppressions_email" json:"email"`
	Reason    SuppressionReason `gorm:"type:suppression_reason;not null;index:idx_email_suppressions_reason" json:"reason"`
	Source    *string           `gorm:"type:varchar(100)" json:"source,omitempty"`
	CreatedAt time.Time         `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
}

// TableName returns the table name for the model
func (EmailSuppression) TableName() string {
	return "email_suppressions"
}

// BeforeCreate is called before creating a new record
func (s *EmailSuppression) BeforeCreate(tx *gorm.DB) error {
	s.Email = strings.ToLower(strings.TrimSpace(s.Email))
	if s.CreatedAt.IsZero() {
		s.CreatedAt = utils.UTCNow()
	}
	return nil
}

// EmailSuppressionFilter represents filter criteria for suppressions
type EmailSuppressionFilter struct {
	ID      *uint               `json:"id,omitempty"`
	Email   *string             `json:"email,omitempty"`
	Reasons []SuppressionReason `json:"reasons,omitempty"`
}
