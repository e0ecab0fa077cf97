// Package models contains domain entities and business models for the campaign service
package models

import (
	"time"

	"github.com/google/uuid"
)

// Admin represents an operator of the campaign console
type Admin struct {
	ID    uint      `gorm:"primaryKey" json:"id"`
	UUID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_admins_uuid" json:"uuid"`
	Email string    `gorm:"size:320;not null;uniqueIndex:uk_admins_email" json:"email"`
	Name  string    `gorm:"size:255;not null" json:"name"`

	IsActive    *bool      `gorm:"default:true;index:idx_admins_is_active" json:"is_active"`
	CreatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

func (Admin) TableName() string {
	return "admins"
}

// AdminFilter represents filter criteria for admin queries
type AdminFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	Email         *string
	IsActive      *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
