package dto

import (
	"github.com/thorbis/campaigns/models"
)

// RecipientDTO represents one resolved recipient
type RecipientDTO struct {
	Email string  `json:"email"`
	Name  *string `json:"name,omitempty"`
	Type  string  `json:"type"`
	ID    *string `json:"id,omitempty"`
}

// PreviewAudienceRequest represents the request to preview an audience
type PreviewAudienceRequest struct {
	AudienceType   string                 `json:"audience_type" validate:"required,oneof=waitlist all_users all_companies segment custom"`
	AudienceFilter *models.AudienceFilter `json:"audience_filter,omitempty"`
}

// PreviewAudienceResponse returns the recipient count and a small sample
type PreviewAudienceResponse struct {
	Message string         `json:"message"`
	Count   int            `json:"count"`
	Sample  []RecipientDTO `json:"sample"`
}
