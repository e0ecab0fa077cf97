package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/thorbis/campaigns/utils"
	"gorm.io/gorm"
)

// WaitlistEntry represents one signup on the product waitlist
type WaitlistEntry struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UUID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uk_waitlist_entries_uuid" json:"uuid"`
	Email     string     `gorm:"type:varchar(320);not null;uniqueIndex:uk_waitlist_entries_email" json:"email"`
	FirstName *string    `gorm:"type:varchar(255)" json:"first_name,omitempty"`
	LastName  *string    `gorm:"type:varchar(255)" json:"last_name,omitempty"`
	Status    string     `gorm:"type:varchar(50);not null;default:'pending';index:idx_waitlist_entries_status" json:"status"`
	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// TableName returns the table name for the model
func (WaitlistEntry) TableName() string {
	return "waitlist_entries"
}

// BeforeCreate is called before creating a new record
func (w *WaitlistEntry) BeforeCreate(tx *gorm.DB) error {
	if w.UUID == uuid.Nil {
		w.UUID = uuid.New()
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = utils.UTCNow()
	}
	return nil
}

// FullName returns "<first> <last>" trimmed, or empty when both parts are absent
func (w *WaitlistEntry) FullName() string {
	var first, last string
	if w.FirstName != nil {
		first = *w.FirstName
	}
	if w.LastName != nil {
		last = *w.LastName
	}
	return strings.TrimSpace(first + " " + last)
}

// WaitlistEntryFilter represents filter criteria for waitlist entries
type WaitlistEntryFilter struct {
	ID       *uint    `json:"id,omitempty"`
	Email    *string  `json:"email,omitempty"`
	Statuses []string `json:"statuses,omitempty"`
}
