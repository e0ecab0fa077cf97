// Package businessflow contains the core business logic and use cases for campaign workflows
package businessflow

import (
	"strings"
	"time"

	"github.com/thorbis/campaigns/models"
	"github.com/thorbis/campaigns/utils"
)

// BuilderStep represents one step of the campaign builder wizard
type BuilderStep string

const (
	StepDetails  BuilderStep = "details"
	StepContent  BuilderStep = "content"
	StepAudience BuilderStep = "audience"
	StepReview   BuilderStep = "review"
)

// builderSteps is the fixed wizard order. Navigation never leaves this slice.
var builderSteps = []BuilderStep{StepDetails, StepContent, StepAudience, StepReview}

// String returns the string representation of the step
func (s BuilderStep) String() string {
	return string(s)
}

// Valid checks if the step is valid
func (s BuilderStep) Valid() bool {
	return s.Index() >= 0
}

// Index returns the position of the step in the wizard order, or -1
func (s BuilderStep) Index() int {
	for i, step := range builderSteps {
		if step == s {
			return i
		}
	}
	return -1
}

// Next returns the following step and whether one exists
func (s BuilderStep) Next() (BuilderStep, bool) {
	idx := s.Index()
	if idx < 0 || idx == len(builderSteps)-1 {
		return s, false
	}
	return builderSteps[idx+1], true
}

// Prev returns the preceding step and whether one exists
func (s BuilderStep) Prev() (BuilderStep, bool) {
	idx := s.Index()
	if idx <= 0 {
		return s, false
	}
	return builderSteps[idx-1], true
}

// ParseBuilderStep parses a wizard step name
func ParseBuilderStep(s string) (BuilderStep, error) {
	step := BuilderStep(s)
	if !step.Valid() {
		return "", ErrBuilderStepInvalid
	}
	return step, nil
}

// CampaignDraft is the campaign-in-progress held by a builder session
type CampaignDraft struct {
	Name             string                `json:"name"`
	Subject          string                `json:"subject"`
	PreviewText      string                `json:"preview_text"`
	HTMLContent      string                `json:"html_content"`
	PlainTextContent string                `json:"plain_text_content"`
	TemplateID       *string               `json:"template_id,omitempty"`
	FromName         string                `json:"from_name"`
	FromEmail        string                `json:"from_email"`
	ReplyTo          string                `json:"reply_to"`
	AudienceType     *models.AudienceType  `json:"audience_type,omitempty"`
	AudienceFilter   models.AudienceFilter `json:"audience_filter"`
	Tags             []string              `json:"tags"`
	Notes            string                `json:"notes"`
	ScheduledFor     *time.Time            `json:"scheduled_for,omitempty"`
}

// NewCampaignDraft returns a draft with the documented defaults: waitlist
// audience, all three suppression exclusions enabled, empty tags.
func NewCampaignDraft() CampaignDraft {
	return CampaignDraft{
		FromName:       utils.DefaultFromName,
		FromEmail:      utils.DefaultFromEmail,
		AudienceType:   utils.ToPtr(models.AudienceTypeWaitlist),
		AudienceFilter: models.DefaultAudienceFilter(),
		Tags:           []string{},
	}
}

// DraftFromCampaign populates a draft from a persisted campaign, field by
// field. A campaign without exclusion flags gets the baseline exclusion set.
func DraftFromCampaign(c *models.Campaign) CampaignDraft {
	draft := CampaignDraft{
		Name:           c.Name,
		Subject:        c.Subject,
		FromName:       c.FromName,
		FromEmail:      c.FromEmail,
		TemplateID:     c.TemplateID,
		AudienceFilter: c.AudienceFilter,
		Tags:           append([]string{}, c.Tags...),
		ScheduledFor:   c.ScheduledFor,
	}

	if c.PreviewText != nil {
		draft.PreviewText = *c.PreviewText
	}
	if c.HTMLContent != nil {
		draft.HTMLContent = *c.HTMLContent
	}
	if c.PlainTextContent != nil {
		draft.PlainTextContent = *c.PlainTextContent
	}
	if c.ReplyTo != nil {
		draft.ReplyTo = *c.ReplyTo
	}
	if c.Notes != nil {
		draft.Notes = *c.Notes
	}
	if c.AudienceType != "" {
		draft.AudienceType = utils.ToPtr(c.AudienceType)
	}
	if draft.AudienceFilter.ExcludeUnsubscribed == nil &&
		draft.AudienceFilter.ExcludeBounced == nil &&
		draft.AudienceFilter.ExcludeComplained == nil {
		exclusions := models.DefaultAudienceFilter()
		draft.AudienceFilter.ExcludeUnsubscribed = exclusions.ExcludeUnsubscribed
		draft.AudienceFilter.ExcludeBounced = exclusions.ExcludeBounced
		draft.AudienceFilter.ExcludeComplained = exclusions.ExcludeComplained
	}

	return draft
}

// BuilderState is the full state of one builder session
type BuilderState struct {
	IsOpen            bool              `json:"is_open"`
	CurrentStep       BuilderStep       `json:"current_step"`
	EditingCampaignID *string           `json:"editing_campaign_id,omitempty"`
	IsDirty           bool              `json:"is_dirty"`
	ValidationErrors  map[string]string `json:"validation_errors"`
	Draft             CampaignDraft     `json:"draft"`
}

// NewBuilderState returns a freshly opened session on the details step
func NewBuilderState() BuilderState {
	return BuilderState{
		IsOpen:           true,
		CurrentStep:      StepDetails,
		ValidationErrors: map[string]string{},
		Draft:            NewCampaignDraft(),
	}
}

// ValidateStep checks whether the draft satisfies one wizard step. It returns
// the full error map for that step; an empty map means the step passes. The
// review step carries no intrinsic validation of its own.
func ValidateStep(step BuilderStep, draft CampaignDraft) (map[string]string, bool) {
	errs := map[string]string{}

	switch step {
	case StepDetails:
		if strings.TrimSpace(draft.Name) == "" {
			errs["name"] = "Campaign name is required"
		}
		if strings.TrimSpace(draft.Subject) == "" {
			errs["subject"] = "Subject line is required"
		}
	case StepContent:
		if strings.TrimSpace(draft.HTMLContent) == "" && draft.TemplateID == nil {
			errs["content"] = "Email content or a template is required"
		}
	case StepAudience:
		if draft.AudienceType == nil {
			errs["audience"] = "Please select an audience"
		} else if *draft.AudienceType == models.AudienceTypeCustom &&
			draft.AudienceFilter.HasInvalidCustomEmails() {
			errs["audience"] = "Custom emails must be valid email addresses"
		}
	case StepReview:
		// no intrinsic validation; send/schedule revalidate the earlier steps
	}

	return errs, len(errs) == 0
}

// ValidateForLaunch revalidates details, content and audience in one pass, the
// way the terminal send/schedule actions do.
func ValidateForLaunch(draft CampaignDraft) (map[string]string, bool) {
	errs := map[string]string{}
	for _, step := range []BuilderStep{StepDetails, StepContent, StepAudience} {
		stepErrs, _ := ValidateStep(step, draft)
		for field, msg := range stepErrs {
			errs[field] = msg
		}
	}
	return errs, len(errs) == 0
}

// MergeDraft applies non-nil fields of an update onto the draft
func MergeDraft(draft CampaignDraft, update DraftUpdate) CampaignDraft {
	if update.Name != nil {
		draft.Name = *update.Name
	}
	if update.Subject != nil {
		draft.Subject = *update.Subject
	}
	if update.PreviewText != nil {
		draft.PreviewText = *update.PreviewText
	}
	if update.HTMLContent != nil {
		draft.HTMLContent = *update.HTMLContent
	}
	if update.PlainTextContent != nil {
		draft.PlainTextContent = *update.PlainTextContent
	}
	if update.TemplateID != nil {
		draft.TemplateID = update.TemplateID
	}
	if update.FromName != nil {
		draft.FromName = *update.FromName
	}
	if update.FromEmail != nil {
		draft.FromEmail = *update.FromEmail
	}
	if update.ReplyTo != nil {
		draft.ReplyTo = *update.ReplyTo
	}
	if update.AudienceType != nil {
		draft.AudienceType = update.AudienceType
	}
	if update.AudienceFilter != nil {
		draft.AudienceFilter = *update.AudienceFilter
		draft.AudienceFilter.NormalizeCustomEmails()
	}
	if update.Tags != nil {
		draft.Tags = append([]string{}, update.Tags...)
	}
	if update.Notes != nil {
		draft.Notes = *update.Notes
	}
	if update.ScheduledFor != nil {
		draft.ScheduledFor = update.ScheduledFor
	}
	return draft
}

// DraftUpdate is a partial draft mutation; nil fields are left untouched
type DraftUpdate struct {
	Name             *string
	Subject          *string
	PreviewText      *string
	HTMLContent      *string
	PlainTextContent *string
	TemplateID       *string
	FromName         *string
	FromEmail        *string
	ReplyTo          *string
	AudienceType     *models.AudienceType
	AudienceFilter   *models.AudienceFilter
	Tags             []string
	Notes            *string
	ScheduledFor     *time.Time
}
