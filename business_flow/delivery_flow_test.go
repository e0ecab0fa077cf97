package businessflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thorbis/campaigns/app/dto"
	"github.com/thorbis/campaigns/app/services"
	"github.com/thorbis/campaigns/models"
	"github.com/thorbis/campaigns/utils"
)

type mockCampaignRepo struct {
	stubRepo[models.Campaign, models.CampaignFilter]
	campaign    *models.Campaign
	claimDenied bool
	due         []*models.Campaign
}

func (m *mockCampaignRepo) ByID(ctx context.Context, id uint) (*models.Campaign, error) {
	return m.campaign, nil
}

func (m *mockCampaignRepo) ByUUID(ctx context.Context, id string) (*models.Campaign, error) {
	if m.campaign == nil || m.campaign.UUID.String() != id {
		return nil, nil
	}
	return m.campaign, nil
}

func (m *mockCampaignRepo) Update(ctx context.Context, campaign *models.Campaign) error {
	m.campaign = campaign
	return nil
}

func (m *mockCampaignRepo) UpdateFields(ctx context.Context, campaignID uint, fields map[string]any) error {
	applyCampaignFields(m.campaign, fields)
	return nil
}

func (m *mockCampaignRepo) UpdateStatusIfCurrent(ctx context.Context, campaignID uint, expected, next models.CampaignStatus, extra map[string]any) (bool, error) {
	if m.claimDenied || m.campaign == nil || m.campaign.Status != expected {
		return false, nil
	}
	m.campaign.Status = next
	applyCampaignFields(m.campaign, extra)
	return true, nil
}

func (m *mockCampaignRepo) ListScheduledDue(ctx context.Context, due time.Time, limit int) ([]*models.Campaign, error) {
	return m.due, nil
}

func (m *mockCampaignRepo) Delete(ctx context.Context, campaignID uint) error { return nil }

func applyCampaignFields(c *models.Campaign, fields map[string]any) {
	if c == nil {
		return
	}
	for key, value := range fields {
		switch key {
		case "total_recipients":
			c.TotalRecipients = value.(int)
		case "sent_count":
			c.SentCount = int(value.(int64))
		case "failed_count":
			c.FailedCount = int(value.(int64))
		case "scheduled_for":
			if t, ok := value.(time.Time); ok {
				c.ScheduledFor = &t
			} else {
				c.ScheduledFor = nil
			}
		case "sending_started_at":
			if t, ok := value.(time.Time); ok {
				c.SendingStartedAt = &t
			} else {
				c.SendingStartedAt = nil
			}
		case "sent_at":
			if t, ok := value.(time.Time); ok {
				c.SentAt = &t
			}
		case "sending_finished_at":
			if t, ok := value.(time.Time); ok {
				c.SendingFinishedAt = &t
			}
		}
	}
}

type mockSendRepo struct {
	stubRepo[models.CampaignSend, models.CampaignSendFilter]
	sends []*models.CampaignSend
}

func (m *mockSendRepo) ByFilter(ctx context.Context, filter models.CampaignSendFilter, orderBy string, limit, offset int) ([]*models.CampaignSend, error) {
	out := make([]*models.CampaignSend, 0, len(m.sends))
	for _, send := range m.sends {
		if filter.Status != nil && send.Status != *filter.Status {
			continue
		}
		out = append(out, send)
	}
	return out, nil
}

func (m *mockSendRepo) SaveBatch(ctx context.Context, sends []*models.CampaignSend) error {
	for i, send := range sends {
		send.ID = uint(len(m.sends) + i + 1)
	}
	m.sends = append(m.sends, sends...)
	return nil
}

func (m *mockSendRepo) ByCampaignAndEmail(ctx context.Context, campaignID uint, email string) (*models.CampaignSend, error) {
	for _, send := range m.sends {
		if send.CampaignID == campaignID && send.Email == email {
			return send, nil
		}
	}
	return nil, nil
}

func (m *mockSendRepo) ListByCampaign(ctx context.Context, campaignID uint, limit, offset int) ([]*models.CampaignSend, error) {
	return m.sends, nil
}

func (m *mockSendRepo) CountByStatus(ctx context.Context, campaignID uint) (map[models.SendStatus]int64, error) {
	counts := map[models.SendStatus]int64{}
	for _, send := range m.sends {
		counts[send.Status]++
	}
	return counts, nil
}

func (m *mockSendRepo) MarkSent(ctx context.Context, sendID uint, providerMessageID string, sentAt time.Time) error {
	for _, send := range m.sends {
		if send.ID == sendID {
			send.Status = models.SendStatusSent
			send.ProviderMessageID = &providerMessageID
			send.SentAt = &sentAt
		}
	}
	return nil
}

func (m *mockSendRepo) MarkFailed(ctx context.Context, sendID uint, errorMessage string) error {
	for _, send := range m.sends {
		if send.ID == sendID {
			send.Status = models.SendStatusFailed
			send.ErrorMessage = &errorMessage
		}
	}
	return nil
}

func (m *mockSendRepo) Update(ctx context.Context, send *models.CampaignSend) error { return nil }

func (m *mockSendRepo) DeleteByCampaign(ctx context.Context, campaignID uint) error { return nil }

type mockAuditRepo struct {
	stubRepo[models.AuditLog, models.AuditLogFilter]
	entries []*models.AuditLog
}

func (m *mockAuditRepo) Save(ctx context.Context, entry *models.AuditLog) error {
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAuditRepo) ListByCampaign(ctx context.Context, campaignID uint, limit, offset int) ([]*models.AuditLog, error) {
	return m.entries, nil
}

func (m *mockAuditRepo) ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error) {
	return nil, nil
}

func (m *mockAuditRepo) ListFailedActions(ctx context.Context, limit, offset int) ([]*models.AuditLog, error) {
	return nil, nil
}

func (m *mockAuditRepo) hasAction(action string) bool {
	for _, entry := range m.entries {
		if entry.Action == action {
			return true
		}
	}
	return false
}

// fakeAudience returns a fixed recipient list without touching any store
type fakeAudience struct {
	recipients []Recipient
	err        error
}

func (f *fakeAudience) ResolveRecipients(ctx context.Context, audienceType models.AudienceType, filter models.AudienceFilter) ([]Recipient, error) {
	return f.recipients, f.err
}

func (f *fakeAudience) PreviewAudience(ctx context.Context, req *dto.PreviewAudienceRequest) (*dto.PreviewAudienceResponse, error) {
	return nil, nil
}

type deliveryFixture struct {
	campaignRepo *mockCampaignRepo
	sendRepo     *mockSendRepo
	suppressions *mockSuppressionRepo
	audits       *mockAuditRepo
	audience     *fakeAudience
	mailer       *services.MockMailer
	flow         DeliveryFlow
}

func newDeliveryFixture(campaign *models.Campaign, recipients []Recipient) *deliveryFixture {
	f := &deliveryFixture{
		campaignRepo: &mockCampaignRepo{campaign: campaign},
		sendRepo:     &mockSendRepo{},
		suppressions: &mockSuppressionRepo{},
		audits:       &mockAuditRepo{},
		audience:     &fakeAudience{recipients: recipients},
		mailer:       services.NewMockMailer(),
	}
	f.flow = NewDeliveryFlow(f.campaignRepo, f.sendRepo, f.suppressions, f.audits, f.audience, f.mailer, nil)
	return f
}

func deliveryCampaign(status models.CampaignStatus) *models.Campaign {
	html := "<p>hi</p>"
	return &models.Campaign{
		ID:           1,
		UUID:         uuid.New(),
		Name:         "Launch",
		Status:       status,
		Subject:      "We are live",
		FromName:     utils.DefaultFromName,
		FromEmail:    utils.DefaultFromEmail,
		HTMLContent:  &html,
		AudienceType: models.AudienceTypeCustom,
	}
}

func customRecipients(emails ...string) []Recipient {
	recipients := make([]Recipient, 0, len(emails))
	for _, email := range emails {
		recipients = append(recipients, Recipient{Email: email, Type: models.AudienceTypeCustom})
	}
	return recipients
}

func TestSendCampaignGuards(t *testing.T) {
	ctx := context.Background()
	metadata := NewClientMetadata("127.0.0.1", "test")

	t.Run("NotFound", func(t *testing.T) {
		f := newDeliveryFixture(deliveryCampaign(models.CampaignStatusDraft), nil)
		_, err := f.flow.SendCampaign(ctx, &dto.SendCampaignRequest{UUID: uuid.NewString()}, metadata)
		require.Error(t, err)
		assert.True(t, IsCampaignNotFound(err))
	})

	t.Run("OnlyDraftCanBeSent", func(t *testing.T) {
		campaign := deliveryCampaign(models.CampaignStatusSent)
		f := newDeliveryFixture(campaign, customRecipients("a@example.com"))
		_, err := f.flow.SendCampaign(ctx, &dto.SendCampaignRequest{UUID: campaign.UUID.String()}, metadata)
		require.Error(t, err)
		assert.True(t, IsOnlyDraftCanBeSent(err))
	})

	t.Run("NoRecipients", func(t *testing.T) {
		campaign := deliveryCampaign(models.CampaignStatusDraft)
		f := newDeliveryFixture(campaign, nil)
		_, err := f.flow.SendCampaign(ctx, &dto.SendCampaignRequest{UUID: campaign.UUID.String()}, metadata)
		require.Error(t, err)
		assert.True(t, IsNoRecipients(err))
		// The campaign is untouched when resolution comes back empty
		assert.Equal(t, models.CampaignStatusDraft, campaign.Status)
	})

	t.Run("ClaimConflict", func(t *testing.T) {
		campaign := deliveryCampaign(models.CampaignStatusDraft)
		f := newDeliveryFixture(campaign, customRecipients("a@example.com"))
		f.campaignRepo.claimDenied = true
		_, err := f.flow.SendCampaign(ctx, &dto.SendCampaignRequest{UUID: campaign.UUID.String()}, metadata)
		require.Error(t, err)
		assert.True(t, IsOnlyDraftCanBeSent(err))
		assert.Zero(t, f.mailer.SentCount())
	})
}

func TestScheduleCampaign(t *testing.T) {
	ctx := context.Background()
	metadata := NewClientMetadata("127.0.0.1", "test")

	t.Run("RequiresTime", func(t *testing.T) {
		campaign := deliveryCampaign(models.CampaignStatusDraft)
		f := newDeliveryFixture(campaign, customRecipients("a@example.com"))
		_, err := f.flow.ScheduleCampaign(ctx, &dto.ScheduleCampaignRequest{UUID: campaign.UUID.String()}, metadata)
		require.Error(t, err)
		assert.True(t, IsScheduleTimeNotPresent(err))
	})

	t.Run("RejectsPastAndNearTimes", func(t *testing.T) {
		campaign := deliveryCampaign(models.CampaignStatusDraft)
		f := newDeliveryFixture(campaign, customRecipients("a@example.com"))
		soon := utils.UTCNowAdd(time.Minute)
		_, err := f.flow.ScheduleCampaign(ctx, &dto.ScheduleCampaignRequest{
			UUID:         campaign.UUID.String(),
			ScheduledFor: &soon,
		}, metadata)
		require.Error(t, err)
		assert.True(t, IsScheduleTimeTooSoon(err))
	})

	t.Run("Schedules", func(t *testing.T) {
		campaign := deliveryCampaign(models.CampaignStatusDraft)
		f := newDeliveryFixture(campaign, customRecipients("a@example.com", "b@example.com"))
		at := utils.UTCNowAdd(time.Hour)

		resp, err := f.flow.ScheduleCampaign(ctx, &dto.ScheduleCampaignRequest{
			UUID:         campaign.UUID.String(),
			AdminID:      1,
			ScheduledFor: &at,
		}, metadata)
		require.NoError(t, err)

		assert.Equal(t, 2, resp.TotalRecipients)
		assert.Equal(t, models.CampaignStatusScheduled, campaign.Status)
		require.NotNil(t, campaign.ScheduledFor)
		assert.True(t, f.audits.hasAction(models.AuditActionCampaignScheduled))
		// Scheduling never sends anything
		assert.Zero(t, f.mailer.SentCount())
	})
}

func TestCancelScheduledCampaign(t *testing.T) {
	ctx := context.Background()
	metadata := NewClientMetadata("127.0.0.1", "test")

	t.Run("ReturnsToDraft", func(t *testing.T) {
		campaign := deliveryCampaign(models.CampaignStatusScheduled)
		campaign.ScheduledFor = utils.UTCNowAddPtr(time.Hour)
		f := newDeliveryFixture(campaign, nil)

		_, err := f.flow.CancelScheduledCampaign(ctx, &dto.GetCampaignRequest{UUID: campaign.UUID.String()}, metadata)
		require.NoError(t, err)
		assert.Equal(t, models.CampaignStatusDraft, campaign.Status)
		assert.Nil(t, campaign.ScheduledFor)
	})

	t.Run("NotScheduled", func(t *testing.T) {
		campaign := deliveryCampaign(models.CampaignStatusDraft)
		f := newDeliveryFixture(campaign, nil)

		_, err := f.flow.CancelScheduledCampaign(ctx, &dto.GetCampaignRequest{UUID: campaign.UUID.String()}, metadata)
		require.Error(t, err)
		assert.True(t, IsCampaignNotScheduled(err))
	})
}

func TestPauseCampaign(t *testing.T) {
	ctx := context.Background()
	metadata := NewClientMetadata("127.0.0.1", "test")

	t.Run("PausesSending", func(t *testing.T) {
		campaign := deliveryCampaign(models.CampaignStatusSending)
		f := newDeliveryFixture(campaign, nil)

		resp, err := f.flow.PauseCampaign(ctx, &dto.GetCampaignRequest{UUID: campaign.UUID.String()}, metadata)
		require.NoError(t, err)
		assert.Equal(t, models.CampaignStatusPaused, campaign.Status)
		assert.Equal(t, "paused", resp.Campaign.Status)
	})

	t.Run("OnlySendingCanPause", func(t *testing.T) {
		campaign := deliveryCampaign(models.CampaignStatusDraft)
		f := newDeliveryFixture(campaign, nil)

		_, err := f.flow.PauseCampaign(ctx, &dto.GetCampaignRequest{UUID: campaign.UUID.String()}, metadata)
		require.Error(t, err)
		assert.True(t, IsCampaignNotSending(err))
	})
}

func TestResumeCampaign(t *testing.T) {
	ctx := context.Background()
	metadata := NewClientMetadata("127.0.0.1", "test")

	t.Run("SendsRemainingPending", func(t *testing.T) {
		campaign := deliveryCampaign(models.CampaignStatusPaused)
		f := newDeliveryFixture(campaign, nil)

		// One recipient already went out before the pause; three are pending,
		// one of which the provider will reject.
		f.sendRepo.sends = []*models.CampaignSend{
			{ID: 1, CampaignID: 1, Email: "done@example.com", Status: models.SendStatusSent},
			{ID: 2, CampaignID: 1, Email: "a@example.com", Status: models.SendStatusPending},
			{ID: 3, CampaignID: 1, Email: "reject@example.com", Status: models.SendStatusPending},
			{ID: 4, CampaignID: 1, Email: "b@example.com", Status: models.SendStatusPending},
		}
		f.mailer.FailFor["reject@example.com"] = errors.New("mailbox unavailable")

		resp, err := f.flow.ResumeCampaign(ctx, &dto.GetCampaignRequest{UUID: campaign.UUID.String(), AdminID: 1}, metadata)
		require.NoError(t, err)

		// Attempted recipients are never retried
		assert.Equal(t, 2, f.mailer.SentCount())
		assert.Equal(t, models.SendStatusFailed, f.sendRepo.sends[2].Status)
		assert.Equal(t, models.SendStatusSent, f.sendRepo.sends[1].Status)
		assert.Equal(t, models.SendStatusSent, f.sendRepo.sends[3].Status)

		// Nothing left pending closes the campaign
		assert.Equal(t, models.CampaignStatusSent, campaign.Status)
		assert.Equal(t, 3, campaign.SentCount)
		assert.Equal(t, 1, campaign.FailedCount)
		require.NotNil(t, campaign.SentAt)
		assert.Equal(t, "sent", resp.Campaign.Status)
		assert.True(t, f.audits.hasAction(models.AuditActionCampaignResumed))
	})

	t.Run("OnlyPausedCanResume", func(t *testing.T) {
		campaign := deliveryCampaign(models.CampaignStatusSending)
		f := newDeliveryFixture(campaign, nil)

		_, err := f.flow.ResumeCampaign(ctx, &dto.GetCampaignRequest{UUID: campaign.UUID.String()}, metadata)
		require.Error(t, err)
		assert.True(t, IsCampaignNotPaused(err))
	})

	t.Run("MailInputCarriesCorrelationTagsAndTextFallback", func(t *testing.T) {
		campaign := deliveryCampaign(models.CampaignStatusPaused)
		campaign.HTMLContent = nil
		campaign.PlainTextContent = utils.ToPtr("Plain words only")
		f := newDeliveryFixture(campaign, nil)
		f.sendRepo.sends = []*models.CampaignSend{
			{ID: 1, CampaignID: 1, Email: "a@example.com", Status: models.SendStatusPending, RecipientType: models.AudienceTypeWaitlist},
		}

		_, err := f.flow.ResumeCampaign(ctx, &dto.GetCampaignRequest{UUID: campaign.UUID.String(), AdminID: 1}, metadata)
		require.NoError(t, err)
		require.Equal(t, 1, f.mailer.SentCount())

		sent := f.mailer.Sent[0]
		// A campaign without html content falls back to the wrapped plain text
		assert.Equal(t, "<p>Plain words only</p>", sent.HTMLContent)
		assert.Equal(t, "Plain words only", sent.PlainTextContent)
		assert.Equal(t, []services.EmailTag{
			{Name: "campaign_id", Value: campaign.UUID.String()},
			{Name: "recipient_type", Value: "waitlist"},
		}, sent.Tags)
	})
}

func TestDispatchDue(t *testing.T) {
	ctx := context.Background()

	t.Run("ZeroRecipientsRevertsToDraft", func(t *testing.T) {
		campaign := deliveryCampaign(models.CampaignStatusScheduled)
		campaign.ScheduledFor = utils.UTCNowAddPtr(-time.Minute)
		f := newDeliveryFixture(campaign, nil)
		f.campaignRepo.due = []*models.Campaign{campaign}

		dispatched, err := f.flow.DispatchDue(ctx, utils.UTCNow(), 10)
		require.NoError(t, err)

		assert.Zero(t, dispatched)
		assert.Equal(t, models.CampaignStatusDraft, campaign.Status)
		assert.Nil(t, campaign.ScheduledFor)
		assert.Nil(t, campaign.SendingStartedAt)
		assert.True(t, f.audits.hasAction(models.AuditActionCampaignSendFailed))
	})

	t.Run("ClaimConflictSkipsQuietly", func(t *testing.T) {
		campaign := deliveryCampaign(models.CampaignStatusScheduled)
		f := newDeliveryFixture(campaign, customRecipients("a@example.com"))
		f.campaignRepo.due = []*models.Campaign{campaign}
		f.campaignRepo.claimDenied = true

		dispatched, err := f.flow.DispatchDue(ctx, utils.UTCNow(), 10)
		require.NoError(t, err)

		assert.Zero(t, dispatched)
		assert.Equal(t, models.CampaignStatusScheduled, campaign.Status)
		assert.Empty(t, f.audits.entries)
		assert.Zero(t, f.mailer.SentCount())
	})

	t.Run("NothingDue", func(t *testing.T) {
		f := newDeliveryFixture(deliveryCampaign(models.CampaignStatusDraft), nil)

		dispatched, err := f.flow.DispatchDue(ctx, utils.UTCNow(), 10)
		require.NoError(t, err)
		assert.Zero(t, dispatched)
	})
}

func TestRecordCampaignEventValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("UnknownEvent", func(t *testing.T) {
		campaign := deliveryCampaign(models.CampaignStatusSent)
		f := newDeliveryFixture(campaign, nil)
		f.sendRepo.sends = []*models.CampaignSend{
			{ID: 1, CampaignID: 1, Email: "a@example.com", Status: models.SendStatusSent},
		}

		_, err := f.flow.RecordCampaignEvent(ctx, &dto.CampaignEventRequest{
			UUID:  campaign.UUID.String(),
			Event: "viewed",
			Email: "a@example.com",
		})
		require.Error(t, err)
		assert.True(t, IsUnknownCampaignEvent(err))
	})

	t.Run("MissingSendRecord", func(t *testing.T) {
		campaign := deliveryCampaign(models.CampaignStatusSent)
		f := newDeliveryFixture(campaign, nil)

		_, err := f.flow.RecordCampaignEvent(ctx, &dto.CampaignEventRequest{
			UUID:  campaign.UUID.String(),
			Event: "opened",
			Email: "stranger@example.com",
		})
		require.Error(t, err)
		assert.True(t, IsSendRecordNotFound(err))
	})
}
