package dto

import (
	"time"
)

// SendCampaignRequest represents the request to send a draft campaign now
type SendCampaignRequest struct {
	UUID    string `json:"-"`
	AdminID uint   `json:"-"`
}

// SendCampaignResponse represents the outcome of a completed send loop
type SendCampaignResponse struct {
	Message         string      `json:"message"`
	Campaign        CampaignDTO `json:"campaign"`
	TotalRecipients int         `json:"total_recipients"`
	SentCount       int         `json:"sent_count"`
	FailedCount     int         `json:"failed_count"`
}

// ScheduleCampaignRequest represents the request to schedule a draft campaign
type ScheduleCampaignRequest struct {
	UUID         string     `json:"-"`
	AdminID      uint       `json:"-"`
	ScheduledFor *time.Time `json:"scheduled_for" validate:"required"`
}

// ScheduleCampaignResponse represents the outcome of scheduling
type ScheduleCampaignResponse struct {
	Message         string      `json:"message"`
	Campaign        CampaignDTO `json:"campaign"`
	TotalRecipients int         `json:"total_recipients"`
}

// CampaignActionResponse represents cancel/pause/resume outcomes
type CampaignActionResponse struct {
	Message  string      `json:"message"`
	Campaign CampaignDTO `json:"campaign"`
}

// CampaignEventRequest represents a provider webhook event for one recipient
type CampaignEventRequest struct {
	UUID              string     `json:"-"`
	Event             string     `json:"event" validate:"required,oneof=delivered opened clicked bounced complained unsubscribed"`
	Email             string     `json:"email" validate:"required,email"`
	ProviderMessageID *string    `json:"provider_message_id,omitempty"`
	OccurredAt        *time.Time `json:"occurred_at,omitempty"`
}

// CampaignEventResponse represents the outcome of recording an event
type CampaignEventResponse struct {
	Message string          `json:"message"`
	Send    CampaignSendDTO `json:"send"`
}

// ListCampaignSendsRequest represents a paginated list of one campaign's recipients
type ListCampaignSendsRequest struct {
	UUID  string `json:"-"`
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
}

// ListCampaignSendsResponse represents a paginated list of send records
type ListCampaignSendsResponse struct {
	Message    string            `json:"message"`
	Items      []CampaignSendDTO `json:"items"`
	Pagination PaginationInfo    `json:"pagination"`
}
