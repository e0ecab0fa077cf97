package dto

import (
	"time"

	"github.com/thorbis/campaigns/models"
)

// CampaignDTO represents a campaign in API responses
type CampaignDTO struct {
	ID                uint                  `json:"id"`
	UUID              string                `json:"uuid"`
	Name              string                `json:"name"`
	Status            string                `json:"status"`
	StatusDisplayName string                `json:"status_display_name"`
	Subject           string                `json:"subject"`
	PreviewText       *string               `json:"preview_text,omitempty"`
	HTMLContent       *string               `json:"html_content,omitempty"`
	PlainTextContent  *string               `json:"plain_text_content,omitempty"`
	TemplateID        *string               `json:"template_id,omitempty"`
	FromName          string                `json:"from_name"`
	FromEmail         string                `json:"from_email"`
	ReplyTo           *string               `json:"reply_to,omitempty"`
	AudienceType      string                `json:"audience_type"`
	AudienceFilter    models.AudienceFilter `json:"audience_filter"`
	ScheduledFor      *time.Time            `json:"scheduled_for,omitempty"`
	SentAt            *time.Time            `json:"sent_at,omitempty"`
	TotalRecipients   int                   `json:"total_recipients"`
	SentCount         int                   `json:"sent_count"`
	FailedCount       int                   `json:"failed_count"`
	DeliveredCount    int                   `json:"delivered_count"`
	OpenedCount       int                   `json:"opened_count"`
	UniqueOpens       int                   `json:"unique_opens"`
	ClickedCount      int                   `json:"clicked_count"`
	UniqueClicks      int                   `json:"unique_clicks"`
	BouncedCount      int                   `json:"bounced_count"`
	ComplainedCount   int                   `json:"complained_count"`
	UnsubscribedCount int                   `json:"unsubscribed_count"`
	RevenueAttributed float64               `json:"revenue_attributed"`
	ConversionsCount  int                   `json:"conversions_count"`
	OpenRate          float64               `json:"open_rate"`
	ClickRate         float64               `json:"click_rate"`
	Tags              []string              `json:"tags"`
	Notes             *string               `json:"notes,omitempty"`
	CreatedAt         string                `json:"created_at"`
	UpdatedAt         string                `json:"updated_at,omitempty"`
}

// CampaignSendDTO represents one recipient's delivery record in API responses
type CampaignSendDTO struct {
	ID                uint       `json:"id"`
	UUID              string     `json:"uuid"`
	CampaignID        uint       `json:"campaign_id"`
	Email             string     `json:"email"`
	Name              *string    `json:"name,omitempty"`
	Status            string     `json:"status"`
	RecipientType     string     `json:"recipient_type"`
	RecipientID       *string    `json:"recipient_id,omitempty"`
	ProviderMessageID *string    `json:"provider_message_id,omitempty"`
	ErrorMessage      *string    `json:"error_message,omitempty"`
	SentAt            *time.Time `json:"sent_at,omitempty"`
	DeliveredAt       *time.Time `json:"delivered_at,omitempty"`
	OpenedAt          *time.Time `json:"opened_at,omitempty"`
	ClickedAt         *time.Time `json:"clicked_at,omitempty"`
	OpenCount         int        `json:"open_count"`
	ClickCount        int        `json:"click_count"`
	CreatedAt         string     `json:"created_at"`
}

// CreateCampaignRequest represents the request to create a new campaign
type CreateCampaignRequest struct {
	AdminID          uint                   `json:"-"`
	Name             string                 `json:"name" validate:"required,max=255"`
	Subject          string                 `json:"subject" validate:"required,max=500"`
	PreviewText      *string                `json:"preview_text,omitempty" validate:"omitempty,max=500"`
	HTMLContent      *string                `json:"html_content,omitempty"`
	PlainTextContent *string                `json:"plain_text_content,omitempty"`
	TemplateID       *string                `json:"template_id,omitempty" validate:"omitempty,max=100"`
	FromName         *string                `json:"from_name,omitempty" validate:"omitempty,max=255"`
	FromEmail        *string                `json:"from_email,omitempty" validate:"omitempty,email"`
	ReplyTo          *string                `json:"reply_to,omitempty" validate:"omitempty,email"`
	AudienceType     *string                `json:"audience_type,omitempty" validate:"omitempty,oneof=waitlist all_users all_companies segment custom"`
	AudienceFilter   *models.AudienceFilter `json:"audience_filter,omitempty"`
	Tags             []string               `json:"tags,omitempty"`
	Notes            *string                `json:"notes,omitempty"`
}

// CreateCampaignResponse represents the response to create a new campaign
type CreateCampaignResponse struct {
	Message  string      `json:"message"`
	Campaign CampaignDTO `json:"campaign"`
}

// UpdateCampaignRequest represents a partial update of a draft campaign
type UpdateCampaignRequest struct {
	UUID             string                 `json:"-"`
	AdminID          uint                   `json:"-"`
	Name             *string                `json:"name,omitempty" validate:"omitempty,max=255"`
	Subject          *string                `json:"subject,omitempty" validate:"omitempty,max=500"`
	PreviewText      *string                `json:"preview_text,omitempty" validate:"omitempty,max=500"`
	HTMLContent      *string                `json:"html_content,omitempty"`
	PlainTextContent *string                `json:"plain_text_content,omitempty"`
	TemplateID       *string                `json:"template_id,omitempty" validate:"omitempty,max=100"`
	FromName         *string                `json:"from_name,omitempty" validate:"omitempty,max=255"`
	FromEmail        *string                `json:"from_email,omitempty" validate:"omitempty,email"`
	ReplyTo          *string                `json:"reply_to,omitempty" validate:"omitempty,email"`
	AudienceType     *string                `json:"audience_type,omitempty" validate:"omitempty,oneof=waitlist all_users all_companies segment custom"`
	AudienceFilter   *models.AudienceFilter `json:"audience_filter,omitempty"`
	Tags             []string               `json:"tags,omitempty"`
	Notes            *string                `json:"notes,omitempty"`
}

// UpdateCampaignResponse represents the response to update an existing campaign
type UpdateCampaignResponse struct {
	Message  string      `json:"message"`
	Campaign CampaignDTO `json:"campaign"`
}

// GetCampaignRequest represents the request to get an existing campaign
type GetCampaignRequest struct {
	UUID    string `json:"-"`
	AdminID uint   `json:"-"`
}

// DuplicateCampaignResponse represents the response to duplicate a campaign
type DuplicateCampaignResponse struct {
	Message  string      `json:"message"`
	Campaign CampaignDTO `json:"campaign"`
}

// ListCampaignsFilter represents filter criteria for listing campaigns in request layer
type ListCampaignsFilter struct {
	Statuses      []string   `json:"statuses,omitempty"`
	AudienceTypes []string   `json:"audience_types,omitempty"`
	Search        *string    `json:"search,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
	DateFrom      *time.Time `json:"date_from,omitempty"`
	DateTo        *time.Time `json:"date_to,omitempty"`
}

// ListCampaignsRequest represents a paginated, sorted list request for campaigns
type ListCampaignsRequest struct {
	AdminID       uint                 `json:"-"`
	Page          int                  `json:"page"`
	Limit         int                  `json:"limit"`
	SortField     string               `json:"sort_field"`     // name, status, created_at, scheduled_for, sent_at, open_rate, click_rate
	SortDirection string               `json:"sort_direction"` // asc, desc
	Filter        *ListCampaignsFilter `json:"filter,omitempty"`
}

// PaginationInfo contains pagination metadata
type PaginationInfo struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

// ListCampaignsResponse represents a paginated list of campaigns
type ListCampaignsResponse struct {
	Message    string         `json:"message"`
	Items      []CampaignDTO  `json:"items"`
	Pagination PaginationInfo `json:"pagination"`
}

// CampaignListStatsResponse represents aggregate stats over all campaigns
type CampaignListStatsResponse struct {
	Total             int64   `json:"total"`
	DraftCount        int64   `json:"draft_count"`
	ScheduledCount    int64   `json:"scheduled_count"`
	SendingCount      int64   `json:"sending_count"`
	SentCount         int64   `json:"sent_count"`
	TotalRecipients   int64   `json:"total_recipients"`
	TotalUniqueOpens  int64   `json:"total_unique_opens"`
	TotalUniqueClicks int64   `json:"total_unique_clicks"`
	RevenueAttributed float64 `json:"revenue_attributed"`
}

// CampaignStatsResponse represents the per-status send breakdown of one campaign
type CampaignStatsResponse struct {
	Campaign CampaignDTO      `json:"campaign"`
	Sends    map[string]int64 `json:"sends"`
}
