package businessflow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/thorbis/campaigns/app/dto"
	"github.com/thorbis/campaigns/models"
	"github.com/thorbis/campaigns/repository"
	"github.com/thorbis/campaigns/utils"
)

// Recipient is one resolved member of a campaign audience
type Recipient struct {
	Email string              `json:"email"`
	Name  *string             `json:"name,omitempty"`
	Type  models.AudienceType `json:"type"`
	ID    *string             `json:"id,omitempty"`
}

// AudienceFlow resolves an audience type plus filter into concrete recipients
type AudienceFlow interface {
	ResolveRecipients(ctx context.Context, audienceType models.AudienceType, filter models.AudienceFilter) ([]Recipient, error)
	PreviewAudience(ctx context.Context, req *dto.PreviewAudienceRequest) (*dto.PreviewAudienceResponse, error)
}

// AudienceFlowImpl implements the audience resolution flow
type AudienceFlowImpl struct {
	waitlistRepo    repository.WaitlistRepository
	userRepo        repository.UserRepository
	companyRepo     repository.CompanyRepository
	suppressionRepo repository.SuppressionRepository
	rc              *redis.Client
	previewTTL      time.Duration
}

// NewAudienceFlow creates a new audience flow instance. rc may be nil.
func NewAudienceFlow(
	waitlistRepo repository.WaitlistRepository,
	userRepo repository.UserRepository,
	companyRepo repository.CompanyRepository,
	suppressionRepo repository.SuppressionRepository,
	rc *redis.Client,
	previewTTL time.Duration,
) AudienceFlow {
	if previewTTL <= 0 {
		previewTTL = 5 * time.Minute
	}
	return &AudienceFlowImpl{
		waitlistRepo:    waitlistRepo,
		userRepo:        userRepo,
		companyRepo:     companyRepo,
		suppressionRepo: suppressionRepo,
		rc:              rc,
		previewTTL:      previewTTL,
	}
}

// ResolveRecipients produces the recipient list for one audience type, in the
// order the underlying store returns rows. No sorting, no deduplication.
// Suppression filtering runs only when at least one exclusion flag is set.
func (f *AudienceFlowImpl) ResolveRecipients(ctx context.Context, audienceType models.AudienceType, filter models.AudienceFilter) ([]Recipient, error) {
	recipients, err := f.resolveRaw(ctx, audienceType, filter)
	if err != nil {
		return nil, err
	}

	if !filter.HasExclusions() {
		return recipients, nil
	}

	suppressed, err := f.suppressedEmails(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(suppressed) == 0 {
		return recipients, nil
	}

	kept := make([]Recipient, 0, len(recipients))
	for _, recipient := range recipients {
		if _, drop := suppressed[strings.ToLower(recipient.Email)]; drop {
			continue
		}
		kept = append(kept, recipient)
	}

	return kept, nil
}

// resolveRaw dispatches on the audience type
func (f *AudienceFlowImpl) resolveRaw(ctx context.Context, audienceType models.AudienceType, filter models.AudienceFilter) ([]Recipient, error) {
	switch audienceType {
	case models.AudienceTypeWaitlist:
		entries, err := f.waitlistRepo.ListPending(ctx)
		if err != nil {
			return nil, err
		}
		recipients := make([]Recipient, 0, len(entries))
		for _, entry := range entries {
			recipient := Recipient{
				Email: entry.Email,
				Type:  models.AudienceTypeWaitlist,
				ID:    utils.ToPtr(entry.UUID.String()),
			}
			if name := entry.FullName(); name != "" {
				recipient.Name = &name
			}
			recipients = append(recipients, recipient)
		}
		return recipients, nil

	case models.AudienceTypeAllUsers:
		users, err := f.userRepo.ListWithEmail(ctx)
		if err != nil {
			return nil, err
		}
		return usersToRecipients(users, models.AudienceTypeAllUsers), nil

	case models.AudienceTypeAllCompanies:
		companies, err := f.companyRepo.ListWithEmail(ctx)
		if err != nil {
			return nil, err
		}
		recipients := make([]Recipient, 0, len(companies))
		for _, company := range companies {
			if company.Email == nil || *company.Email == "" {
				continue
			}
			recipients = append(recipients, Recipient{
				Email: *company.Email,
				Name:  utils.ToPtr(company.Name),
				Type:  models.AudienceTypeAllCompanies,
				ID:    utils.ToPtr(company.UUID.String()),
			})
		}
		return recipients, nil

	case models.AudienceTypeSegment:
		users, err := f.userRepo.ListSegment(ctx, models.UserFilter{
			Roles:         filter.UserRoles,
			Statuses:      filter.UserStatuses,
			CreatedAfter:  filter.CreatedAfter,
			CreatedBefore: filter.CreatedBefore,
		})
		if err != nil {
			return nil, err
		}
		return usersToRecipients(users, models.AudienceTypeSegment), nil

	case models.AudienceTypeCustom:
		recipients := make([]Recipient, 0, len(filter.CustomEmails))
		for _, email := range filter.CustomEmails {
			// Campaigns persisted before the builder validated custom
			// entries may still carry blank or malformed addresses
			email = strings.TrimSpace(email)
			if email == "" || !strings.Contains(email, "@") {
				continue
			}
			recipients = append(recipients, Recipient{
				Email: email,
				Type:  models.AudienceTypeCustom,
			})
		}
		return recipients, nil

	default:
		return nil, ErrUnknownAudienceType
	}
}

// suppressedEmails builds the case-insensitive suppression set for the
// enabled exclusion flags
func (f *AudienceFlowImpl) suppressedEmails(ctx context.Context, filter models.AudienceFilter) (map[string]struct{}, error) {
	reasons := make([]models.SuppressionReason, 0, 3)
	if utils.IsTrue(filter.ExcludeUnsubscribed) {
		reasons = append(reasons, models.SuppressionReasonUnsubscribed)
	}
	if utils.IsTrue(filter.ExcludeBounced) {
		reasons = append(reasons, models.SuppressionReasonBounced)
	}
	if utils.IsTrue(filter.ExcludeComplained) {
		reasons = append(reasons, models.SuppressionReasonComplained)
	}

	suppressions, err := f.suppressionRepo.ListByReasons(ctx, reasons)
	if err != nil {
		return nil, err
	}

	suppressed := make(map[string]struct{}, len(suppressions))
	for _, suppression := range suppressions {
		suppressed[strings.ToLower(suppression.Email)] = struct{}{}
	}

	return suppressed, nil
}

// PreviewAudience returns the recipient count plus a small sample. Results
// are cached briefly so a builder session stepping through the wizard does
// not re-run the full resolution on every keystroke.
func (f *AudienceFlowImpl) PreviewAudience(ctx context.Context, req *dto.PreviewAudienceRequest) (*dto.PreviewAudienceResponse, error) {
	audienceType := models.AudienceType(req.AudienceType)
	if !audienceType.Valid() {
		return nil, NewBusinessError("AUDIENCE_TYPE_INVALID", "Unknown audience type", ErrUnknownAudienceType)
	}

	filter := models.DefaultAudienceFilter()
	if req.AudienceFilter != nil {
		filter = *req.AudienceFilter
	}

	cacheKey := previewCacheKey(audienceType, filter)
	if f.rc != nil {
		if raw, err := f.rc.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached dto.PreviewAudienceResponse
			if err := json.Unmarshal(raw, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	recipients, err := f.ResolveRecipients(ctx, audienceType, filter)
	if err != nil {
		return nil, NewBusinessError("AUDIENCE_PREVIEW_FAILED", "Failed to preview audience", err)
	}

	sampleSize := min(utils.AudiencePreviewSampleSize, len(recipients))
	sample := make([]dto.RecipientDTO, 0, sampleSize)
	for _, recipient := range recipients[:sampleSize] {
		sample = append(sample, dto.RecipientDTO{
			Email: recipient.Email,
			Name:  recipient.Name,
			Type:  recipient.Type.String(),
			ID:    recipient.ID,
		})
	}

	resp := &dto.PreviewAudienceResponse{
		Message: "Audience preview generated",
		Count:   len(recipients),
		Sample:  sample,
	}

	if f.rc != nil {
		if raw, err := json.Marshal(resp); err == nil {
			_ = f.rc.Set(ctx, cacheKey, raw, f.previewTTL).Err()
		}
	}

	return resp, nil
}

func usersToRecipients(users []*models.User, audienceType models.AudienceType) []Recipient {
	recipients := make([]Recipient, 0, len(users))
	for _, user := range users {
		if user.Email == nil || *user.Email == "" {
			continue
		}
		recipient := Recipient{
			Email: *user.Email,
			Type:  audienceType,
			ID:    utils.ToPtr(user.UUID.String()),
		}
		if name := user.FullName(); name != "" {
			recipient.Name = &name
		}
		recipients = append(recipients, recipient)
	}
	return recipients
}

func previewCacheKey(audienceType models.AudienceType, filter models.AudienceFilter) string {
	raw, _ := json.Marshal(filter)
	sum := sha256.Sum256(raw)
	return fmt.Sprintf("audience:preview:%s:%s", audienceType, hex.EncodeToString(sum[:8]))
}
