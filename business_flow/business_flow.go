// Package businessflow contains the business logic for the application.
package businessflow

import (
	"time"

	"github.com/thorbis/campaigns/app/dto"
	"github.com/thorbis/campaigns/models"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds all client-related information for audit logging
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	SessionID  string            `json:"session_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// SetSessionID sets the session ID
func (cm *ClientMetadata) SetSessionID(sessionID string) {
	cm.SessionID = sessionID
}

// ToCampaignDTO converts a campaign model to its API representation
func ToCampaignDTO(campaign models.Campaign) dto.CampaignDTO {
	out := dto.CampaignDTO{
		ID:                campaign.ID,
		UUID:              campaign.UUID.String(),
		Name:              campaign.Name,
		Status:            campaign.Status.String(),
		StatusDisplayName: campaign.GetStatusDisplayName(),
		Subject:           campaign.Subject,
		PreviewText:       campaign.PreviewText,
		HTMLContent:       campaign.HTMLContent,
		PlainTextContent:  campaign.PlainTextContent,
		TemplateID:        campaign.TemplateID,
		FromName:          campaign.FromName,
		FromEmail:         campaign.FromEmail,
		ReplyTo:           campaign.ReplyTo,
		AudienceType:      campaign.AudienceType.String(),
		AudienceFilter:    campaign.AudienceFilter,
		ScheduledFor:      campaign.ScheduledFor,
		SentAt:            campaign.SentAt,
		TotalRecipients:   campaign.TotalRecipients,
		SentCount:         campaign.SentCount,
		FailedCount:       campaign.FailedCount,
		DeliveredCount:    campaign.DeliveredCount,
		OpenedCount:       campaign.OpenedCount,
		UniqueOpens:       campaign.UniqueOpens,
		ClickedCount:      campaign.ClickedCount,
		UniqueClicks:      campaign.UniqueClicks,
		BouncedCount:      campaign.BouncedCount,
		ComplainedCount:   campaign.ComplainedCount,
		UnsubscribedCount: campaign.UnsubscribedCount,
		RevenueAttributed: campaign.RevenueAttributed,
		ConversionsCount:  campaign.ConversionsCount,
		OpenRate:          campaign.OpenRate(),
		ClickRate:         campaign.ClickRate(),
		Tags:              campaign.Tags,
		Notes:             campaign.Notes,
		CreatedAt:         campaign.CreatedAt.Format(time.RFC3339),
	}

	if campaign.UpdatedAt != nil {
		out.UpdatedAt = campaign.UpdatedAt.Format(time.RFC3339)
	}

	return out
}

// ToCampaignSendDTO converts a send record to its API representation
func ToCampaignSendDTO(send models.CampaignSend) dto.CampaignSendDTO {
	return dto.CampaignSendDTO{
		ID:                send.ID,
		UUID:              send.UUID.String(),
		CampaignID:        send.CampaignID,
		Email:             send.Email,
		Name:              send.Name,
		Status:            send.Status.String(),
		RecipientType:     send.RecipientType.String(),
		RecipientID:       send.RecipientID,
		ProviderMessageID: send.ProviderMessageID,
		ErrorMessage:      send.ErrorMessage,
		SentAt:            send.SentAt,
		DeliveredAt:       send.DeliveredAt,
		OpenedAt:          send.OpenedAt,
		ClickedAt:         send.ClickedAt,
		OpenCount:         send.OpenCount,
		ClickCount:        send.ClickCount,
		CreatedAt:         send.CreatedAt.Format(time.RFC3339),
	}
}
