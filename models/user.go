package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/thorbis/campaigns/utils"
	"gorm.io/gorm"
)

// User represents a platform user that campaigns can target
type User struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UUID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uk_users_uuid" json:"uuid"`
	Email     *string    `gorm:"type:varchar(320);uniqueIndex:uk_users_email" json:"email,omitempty"`
	FirstName *string    `gorm:"type:varchar(255)" json:"first_name,omitempty"`
	LastName  *string    `gorm:"type:varchar(255)" json:"last_name,omitempty"`
	Role      string     `gorm:"type:varchar(50);not null;default:'member';index:idx_users_role" json:"role"`
	Status    string     `gorm:"type:varchar(50);not null;default:'active';index:idx_users_status" json:"status"`
	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_users_created_at" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// TableName returns the table name for the model
func (User) TableName() string {
	return "users"
}

// BeforeCreate is called before creating a new record
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UUID == uuid.Nil {
		u.UUID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = utils.UTCNow()
	}
	return nil
}

// FullName returns "<first> <last>" trimmed, or empty when both parts are absent
func (u *User) FullName() string {
	var first, last string
	if u.FirstName != nil {
		first = *u.FirstName
	}
	if u.LastName != nil {
		last = *u.LastName
	}
	return strings.TrimSpace(first + " " + last)
}

// UserFilter represents filter criteria for users
type UserFilter struct {
	ID            *uint      `json:"id,omitempty"`
	Email         *string    `json:"email,omitempty"`
	Roles         []string   `json:"roles,omitempty"`
	Statuses      []string   `json:"statuses,omitempty"`
	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`
	HasEmail      *bool      `json:"has_email,omitempty"`
}
