package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/thorbis/campaigns/utils"
	"gorm.io/gorm"
)

// CampaignStatus represents the lifecycle status of an email campaign
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusScheduled CampaignStatus = "scheduled"
	CampaignStatusSending   CampaignStatus = "sending"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusSent      CampaignStatus = "sent"
)

// String returns the string representation of the status
func (s CampaignStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignStatusDraft, CampaignStatusScheduled,
		CampaignStatusSending, CampaignStatusPaused,
		CampaignStatusSent:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for CampaignStatus
func (s *CampaignStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = CampaignStatus(v)
	case []byte:
		*s = CampaignStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into CampaignStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for CampaignStatus
func (s CampaignStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid CampaignStatus: %s", s)
	}
	return string(s), nil
}

// AudienceType represents the coarse recipient-selection strategy of a campaign
type AudienceType string

const (
	AudienceTypeWaitlist     AudienceType = "waitlist"
	AudienceTypeAllUsers     AudienceType = "all_users"
	AudienceTypeAllCompanies AudienceType = "all_companies"
	AudienceTypeSegment      AudienceType = "segment"
	AudienceTypeCustom       AudienceType = "custom"
)

// String returns the string representation of the audience type
func (t AudienceType) String() string {
	return string(t)
}

// Valid checks if the audience type is valid
func (t AudienceType) Valid() bool {
	switch t {
	case AudienceTypeWaitlist, AudienceTypeAllUsers,
		AudienceTypeAllCompanies, AudienceTypeSegment,
		AudienceTypeCustom:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for AudienceType
func (t *AudienceType) Scan(value any) error {
	if value == nil {
		*t = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*t = AudienceType(v)
	case []byte:
		*t = AudienceType(string(v))
	default:
		return fmt.Errorf("cannot scan %T into AudienceType", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for AudienceType
func (t AudienceType) Value() (driver.Value, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid AudienceType: %s", t)
	}
	return string(t), nil
}

// AudienceFilter represents the declarative recipient-selection criteria of a campaign.
// Segment campaigns use the role/status/plan/date predicates; custom campaigns use
// the email list; the remaining audience types only read the exclusion flags.
type AudienceFilter struct {
	// Suppression exclusions
	ExcludeUnsubscribed *bool `json:"exclude_unsubscribed,omitempty"`
	ExcludeBounced      *bool `json:"exclude_bounced,omitempty"`
	ExcludeComplained   *bool `json:"exclude_complained,omitempty"`

	// Segment predicates (pushed down to the user/company stores)
	UserRoles       []string   `json:"user_roles,omitempty"`
	UserStatuses    []string   `json:"user_statuses,omitempty"`
	CompanyPlans    []string   `json:"company_plans,omitempty"`
	CompanyStatuses []string   `json:"company_statuses,omitempty"`
	CreatedAfter    *time.Time `json:"created_after,omitempty"`
	CreatedBefore   *time.Time `json:"created_before,omitempty"`

	// Custom audience
	CustomEmails []string `json:"custom_emails,omitempty"`
}

// DefaultAudienceFilter returns the baseline exclusion set applied to new drafts
func DefaultAudienceFilter() AudienceFilter {
	return AudienceFilter{
		ExcludeUnsubscribed: utils.ToPtr(true),
		ExcludeBounced:      utils.ToPtr(true),
		ExcludeComplained:   utils.ToPtr(true),
	}
}

// HasExclusions reports whether any suppression exclusion flag is enabled
func (f AudienceFilter) HasExclusions() bool {
	return utils.IsTrue(f.ExcludeUnsubscribed) ||
		utils.IsTrue(f.ExcludeBounced) ||
		utils.IsTrue(f.ExcludeComplained)
}

// NormalizeCustomEmails trims every custom email and drops blank entries.
// The slice is rebuilt so callers holding the original input are unaffected.
func (f *AudienceFilter) NormalizeCustomEmails() {
	if len(f.CustomEmails) == 0 {
		return
	}
	cleaned := make([]string, 0, len(f.CustomEmails))
	for _, email := range f.CustomEmails {
		email = strings.TrimSpace(email)
		if email == "" {
			continue
		}
		cleaned = append(cleaned, email)
	}
	f.CustomEmails = cleaned
}

// HasInvalidCustomEmails reports whether any custom email entry is blank or
// lacks an "@" after trimming
func (f AudienceFilter) HasInvalidCustomEmails() bool {
	for _, email := range f.CustomEmails {
		trimmed := strings.TrimSpace(email)
		if trimmed == "" || !strings.Contains(trimmed, "@") {
			return true
		}
	}
	return false
}

// Value implements the driver.Valuer interface for AudienceFilter
func (f AudienceFilter) Value() (driver.Value, error) {
	return json.Marshal(f)
}

// Scan implements the sql.Scanner interface for AudienceFilter
func (f *AudienceFilter) Scan(value any) error {
	if value == nil {
		*f = AudienceFilter{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into AudienceFilter", value)
	}

	return json.Unmarshal(bytes, f)
}

// Campaign represents an email campaign in the database
type Campaign struct {
	ID     uint           `gorm:"primaryKey" json:"id"`
	UUID   uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uk_email_campaigns_uuid" json:"uuid"`
	Name   string         `gorm:"type:varchar(255);not null" json:"name"`
	Status CampaignStatus `gorm:"type:email_campaign_status;not null;default:'draft';index:idx_email_campaigns_status" json:"status"`

	// Message
	Subject          string          `gorm:"type:varchar(500);not null" json:"subject"`
	PreviewText      *string         `gorm:"type:varchar(500)" json:"preview_text,omitempty"`
	HTMLContent      *string         `gorm:"type:text" json:"html_content,omitempty"`
	PlainTextContent *string         `gorm:"type:text" json:"plain_text_content,omitempty"`
	TemplateID       *string         `gorm:"type:varchar(100)" json:"template_id,omitempty"`
	TemplateData     json.RawMessage `gorm:"type:jsonb" json:"template_data,omitempty"`

	// Sender
	FromName  string  `gorm:"type:varchar(255);not null" json:"from_name"`
	FromEmail string  `gorm:"type:varchar(320);not null" json:"from_email"`
	ReplyTo   *string `gorm:"type:varchar(320)" json:"reply_to,omitempty"`

	// Audience
	AudienceType   AudienceType   `gorm:"type:audience_type;not null;default:'waitlist'" json:"audience_type"`
	AudienceFilter AudienceFilter `gorm:"type:jsonb;not null" json:"audience_filter"`

	// Scheduling and delivery
	ScheduledFor      *time.Time `gorm:"index:idx_email_campaigns_scheduled_for" json:"scheduled_for,omitempty"`
	SentAt            *time.Time `json:"sent_at,omitempty"`
	SendingStartedAt  *time.Time `json:"sending_started_at,omitempty"`
	SendingFinishedAt *time.Time `json:"sending_finished_at,omitempty"`

	// Delivery counters
	TotalRecipients   int     `gorm:"not null;default:0" json:"total_recipients"`
	SentCount         int     `gorm:"not null;default:0" json:"sent_count"`
	FailedCount       int     `gorm:"not null;default:0" json:"failed_count"`
	DeliveredCount    int     `gorm:"not null;default:0" json:"delivered_count"`
	OpenedCount       int     `gorm:"not null;default:0" json:"opened_count"`
	UniqueOpens       int     `gorm:"not null;default:0" json:"unique_opens"`
	ClickedCount      int     `gorm:"not null;default:0" json:"clicked_count"`
	UniqueClicks      int     `gorm:"not null;default:0" json:"unique_clicks"`
	BouncedCount      int     `gorm:"not null;default:0" json:"bounced_count"`
	ComplainedCount   int     `gorm:"not null;default:0" json:"complained_count"`
	UnsubscribedCount int     `gorm:"not null;default:0" json:"unsubscribed_count"`
	RevenueAttributed float64 `gorm:"not null;default:0" json:"revenue_attributed"`
	ConversionsCount  int     `gorm:"not null;default:0" json:"conversions_count"`

	// Metadata
	Tags      pq.StringArray `gorm:"type:text[]" json:"tags"`
	Notes     *string        `gorm:"type:text" json:"notes,omitempty"`
	CreatedBy *uint          `gorm:"index:idx_email_campaigns_created_by" json:"created_by,omitempty"`
	CreatedAt time.Time      `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_email_campaigns_created_at" json:"created_at"`
	UpdatedAt *time.Time     `json:"updated_at,omitempty"`

	// Relations
	Sends []CampaignSend `gorm:"foreignKey:CampaignID" json:"sends,omitempty"`
}

// TableName returns the table name for the model
func (Campaign) TableName() string {
	return "email_campaigns"
}

// BeforeCreate is called before creating a new record
func (c *Campaign) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.Status == "" {
		c.Status = CampaignStatusDraft
	}
	if c.AudienceType == "" {
		c.AudienceType = AudienceTypeWaitlist
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (c *Campaign) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	c.UpdatedAt = &now
	return nil
}

// IsEditable checks if the campaign can be edited
func (c *Campaign) IsEditable() bool {
	return c.Status == CampaignStatusDraft
}

// IsDeletable checks if the campaign can be deleted
func (c *Campaign) IsDeletable() bool {
	return c.Status == CampaignStatusDraft
}

// CanTransitionTo checks if the campaign can transition to the given status
func (c *Campaign) CanTransitionTo(newStatus CampaignStatus) bool {
	switch c.Status {
	case CampaignStatusDraft:
		return newStatus == CampaignStatusScheduled ||
			newStatus == CampaignStatusSending
	case CampaignStatusScheduled:
		return newStatus == CampaignStatusSending ||
			newStatus == CampaignStatusDraft
	case CampaignStatusSending:
		return newStatus == CampaignStatusSent ||
			newStatus == CampaignStatusPaused
	case CampaignStatusPaused:
		return newStatus == CampaignStatusSending
	default:
		return false
	}
}

// OpenRate returns uniqueOpens / totalRecipients, or 0 when nothing was sent
func (c *Campaign) OpenRate() float64 {
	if c.TotalRecipients == 0 {
		return 0
	}
	return float64(c.UniqueOpens) / float64(c.TotalRecipients)
}

// ClickRate returns uniqueClicks / totalRecipients, or 0 when nothing was sent
func (c *Campaign) ClickRate() float64 {
	if c.TotalRecipients == 0 {
		return 0
	}
	return float64(c.UniqueClicks) / float64(c.TotalRecipients)
}

// HasTag reports whether the campaign carries the given tag
func (c *Campaign) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// CampaignFilter represents filter criteria for campaigns
type CampaignFilter struct {
	ID             *uint            `json:"id,omitempty"`
	UUID           *uuid.UUID       `json:"uuid,omitempty"`
	Statuses       []CampaignStatus `json:"statuses,omitempty"`
	AudienceTypes  []AudienceType   `json:"audience_types,omitempty"`
	Search         *string          `json:"search,omitempty"`
	Tags           []string         `json:"tags,omitempty"`
	CreatedBy      *uint            `json:"created_by,omitempty"`
	CreatedAfter   *time.Time       `json:"created_after,omitempty"`
	CreatedBefore  *time.Time       `json:"created_before,omitempty"`
	ScheduleAfter  *time.Time       `json:"schedule_after,omitempty"`
	ScheduleBefore *time.Time       `json:"schedule_before,omitempty"`
}

// GetStatusDisplayName returns a human-readable status name
func (c *Campaign) GetStatusDisplayName() string {
	switch c.Status {
	case CampaignStatusDraft:
		return "Draft"
	case CampaignStatusScheduled:
		return "Scheduled"
	case CampaignStatusSending:
		return "Sending"
	case CampaignStatusPaused:
		return "Paused"
	case CampaignStatusSent:
		return "Sent"
	default:
		return "Unknown"
	}
}

// GetStatusColor returns a color code for the status (for UI purposes)
func (c *Campaign) GetStatusColor() string {
	switch c.Status {
	case CampaignStatusDraft:
		return "#6c757d" // gray
	case CampaignStatusScheduled:
		return "#ffc107" // yellow
	case CampaignStatusSending:
		return "#007bff" // blue
	case CampaignStatusPaused:
		return "#fd7e14" // orange
	case CampaignStatusSent:
		return "#28a745" // green
	default:
		return "#6c757d" // gray
	}
}
