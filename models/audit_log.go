// Package models contains domain entities and business models for the campaign service
package models

import (
	"encoding/json"
	"time"
)

type AuditLog struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	AdminID      *uint           `gorm:"index:idx_audit_admin_id" json:"admin_id,omitempty"`
	CampaignID   *uint           `gorm:"index:idx_audit_campaign_id" json:"campaign_id,omitempty"`
	Campaign     *Campaign       `gorm:"foreignKey:CampaignID;references:ID" json:"campaign,omitempty"`
	Action       string          `gorm:"type:audit_action_enum;not null;index:idx_audit_action" json:"action"`
	Description  *string         `gorm:"type:text" json:"description,omitempty"`
	IPAddress    *string         `gorm:"type:inet;index:idx_audit_ip_address" json:"ip_address,omitempty"`
	UserAgent    *string         `gorm:"type:text" json:"user_agent,omitempty"`
	RequestID    *string         `gorm:"size:255;index:idx_audit_request_id" json:"request_id,omitempty"`
	Metadata     json.RawMessage `gorm:"type:jsonb;index:idx_audit_metadata,type:gin" json:"metadata,omitempty"`
	Success      *bool           `gorm:"default:true;index:idx_audit_success" json:"success"`
	ErrorMessage *string         `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time       `gorm:"default:CURRENT_TIMESTAMP;index:idx_audit_created_at" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}

// Audit action constants
const (
	AuditActionCampaignCreated       = "campaign_created"
	AuditActionCampaignUpdated       = "campaign_updated"
	AuditActionCampaignDeleted       = "campaign_deleted"
	AuditActionCampaignDuplicated    = "campaign_duplicated"
	AuditActionCampaignSent          = "campaign_sent"
	AuditActionCampaignSendFailed    = "campaign_send_failed"
	AuditActionCampaignScheduled     = "campaign_scheduled"
	AuditActionScheduleCancelled     = "campaign_schedule_cancelled"
	AuditActionCampaignPaused        = "campaign_paused"
	AuditActionCampaignResumed       = "campaign_resumed"
	AuditActionCampaignEventRecorded = "campaign_event_recorded"
	AuditActionCampaignExported      = "campaign_exported"
)

// AuditLogFilter represents filter criteria for audit log queries
type AuditLogFilter struct {
	ID            *uint
	AdminID       *uint
	CampaignID    *uint
	Action        *string
	Success       *bool
	IPAddress     *string
	RequestID     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (a *AuditLog) IsFailed() bool {
	return a.Success != nil && !*a.Success
}
