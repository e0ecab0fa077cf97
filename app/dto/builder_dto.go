package dto

import (
	"time"

	"github.com/thorbis/campaigns/models"
)

// CampaignDraftDTO represents the campaign-in-progress held by a builder session
type CampaignDraftDTO struct {
	Name             string                `json:"name"`
	Subject          string                `json:"subject"`
	PreviewText      string                `json:"preview_text"`
	HTMLContent      string                `json:"html_content"`
	PlainTextContent string                `json:"plain_text_content"`
	TemplateID       *string               `json:"template_id,omitempty"`
	FromName         string                `json:"from_name"`
	FromEmail        string                `json:"from_email"`
	ReplyTo          string                `json:"reply_to"`
	AudienceType     *string               `json:"audience_type,omitempty"`
	AudienceFilter   models.AudienceFilter `json:"audience_filter"`
	Tags             []string              `json:"tags"`
	Notes            string                `json:"notes"`
	ScheduledFor     *time.Time            `json:"scheduled_for,omitempty"`
}

// BuilderStateDTO represents the full state of a builder session
type BuilderStateDTO struct {
	SessionID          string            `json:"session_id"`
	IsOpen             bool              `json:"is_open"`
	CurrentStep        string            `json:"current_step"`
	EditingCampaignID  *string           `json:"editing_campaign_id,omitempty"`
	IsDirty            bool              `json:"is_dirty"`
	ValidationErrors   map[string]string `json:"validation_errors"`
	Draft              CampaignDraftDTO  `json:"draft"`
}

// OpenBuilderRequest represents the request to open a builder session
type OpenBuilderRequest struct {
	AdminID    uint    `json:"-"`
	SessionID  string  `json:"-"`
	CampaignID *string `json:"campaign_id,omitempty"`
}

// BuilderStateResponse wraps the builder state in API responses
type BuilderStateResponse struct {
	Message string          `json:"message"`
	State   BuilderStateDTO `json:"state"`
}

// SetBuilderStepRequest represents a direct or clicked step change
type SetBuilderStepRequest struct {
	SessionID string `json:"-"`
	Step      string `json:"step" validate:"required,oneof=details content audience review"`
}

// UpdateDraftRequest represents a partial merge into the builder draft
type UpdateDraftRequest struct {
	SessionID        string                 `json:"-"`
	Name             *string                `json:"name,omitempty"`
	Subject          *string                `json:"subject,omitempty"`
	PreviewText      *string                `json:"preview_text,omitempty"`
	HTMLContent      *string                `json:"html_content,omitempty"`
	PlainTextContent *string                `json:"plain_text_content,omitempty"`
	TemplateID       *string                `json:"template_id,omitempty"`
	FromName         *string                `json:"from_name,omitempty"`
	FromEmail        *string                `json:"from_email,omitempty"`
	ReplyTo          *string                `json:"reply_to,omitempty"`
	AudienceType     *string                `json:"audience_type,omitempty" validate:"omitempty,oneof=waitlist all_users all_companies segment custom"`
	AudienceFilter   *models.AudienceFilter `json:"audience_filter,omitempty"`
	Tags             []string               `json:"tags,omitempty"`
	Notes            *string                `json:"notes,omitempty"`
	ScheduledFor     *time.Time             `json:"scheduled_for,omitempty"`
}

// ClearValidationErrorRequest removes one field's validation error
type ClearValidationErrorRequest struct {
	SessionID string `json:"-"`
	Field     string `json:"field" validate:"required"`
}

// BuilderScheduleRequest represents the terminal schedule action from review
type BuilderScheduleRequest struct {
	SessionID string     `json:"-"`
	AdminID   uint       `json:"-"`
	Date      *time.Time `json:"date,omitempty"`
}

// BuilderActionResponse represents the outcome of a terminal builder action
type BuilderActionResponse struct {
	Message  string           `json:"message"`
	State    BuilderStateDTO  `json:"state"`
	Campaign *CampaignDTO     `json:"campaign,omitempty"`
}
