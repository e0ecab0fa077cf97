package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/thorbis/campaigns/utils"
	"gorm.io/gorm"
)

// Company represents a customer company that campaigns can target (one
// recipient per company, not per member)
type Company struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UUID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uk_companies_uuid" json:"uuid"`
	Name      string     `gorm:"type:varchar(255);not null" json:"name"`
	Email     *string    `gorm:"type:varchar(320);index:idx_companies_email" json:"email,omitempty"`
	Plan      string     `gorm:"type:varchar(50);not null;default:'free';index:idx_companies_plan" json:"plan"`
	Status    string     `gorm:"type:varchar(50);not null;default:'active';index:idx_companies_status" json:"status"`
	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// TableName returns the table name for the model
func (Company) TableName() string {
	return "companies"
}

// BeforeCreate is called before creating a new record
func (c *Company) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	return nil
}

// CompanyFilter represents filter criteria for companies
type CompanyFilter struct {
	ID            *uint      `json:"id,omitempty"`
	Email         *string    `json:"email,omitempty"`
	Plans         []string   `json:"plans,omitempty"`
	Statuses      []string   `json:"statuses,omitempty"`
	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`
	HasEmail      *bool      `json:"has_email,omitempty"`
}
