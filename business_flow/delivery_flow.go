package businessflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/thorbis/campaigns/app/dto"
	"github.com/thorbis/campaigns/app/services"
	"github.com/thorbis/campaigns/models"
	"github.com/thorbis/campaigns/repository"
	"github.com/thorbis/campaigns/utils"
	"gorm.io/gorm"
)

var (
	emailsSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campaign_emails_sent_total",
		Help: "Total number of campaign emails accepted by the mail provider",
	})
	emailsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campaign_emails_failed_total",
		Help: "Total number of campaign emails the mail provider rejected",
	})
	campaignsLaunchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campaigns_launched_total",
		Help: "Total number of campaigns that entered the sending state",
	})
)

// pauseCheckEvery is how many recipients the send loop processes between
// status reloads. A pause lands before the next slice of the loop, never
// mid-message.
const pauseCheckEvery = 25

// DeliveryFlow handles send, schedule and delivery-event business logic
type DeliveryFlow interface {
	SendCampaign(ctx context.Context, req *dto.SendCampaignRequest, metadata *ClientMetadata) (*dto.SendCampaignResponse, error)
	ScheduleCampaign(ctx context.Context, req *dto.ScheduleCampaignRequest, metadata *ClientMetadata) (*dto.ScheduleCampaignResponse, error)
	CancelScheduledCampaign(ctx context.Context, req *dto.GetCampaignRequest, metadata *ClientMetadata) (*dto.CampaignActionResponse, error)
	PauseCampaign(ctx context.Context, req *dto.GetCampaignRequest, metadata *ClientMetadata) (*dto.CampaignActionResponse, error)
	ResumeCampaign(ctx context.Context, req *dto.GetCampaignRequest, metadata *ClientMetadata) (*dto.CampaignActionResponse, error)
	RecordCampaignEvent(ctx context.Context, req *dto.CampaignEventRequest) (*dto.CampaignEventResponse, error)
	ListCampaignSends(ctx context.Context, req *dto.ListCampaignSendsRequest) (*dto.ListCampaignSendsResponse, error)
	// DispatchDue claims and sends every scheduled campaign whose time has
	// arrived. Returns the number of campaigns dispatched.
	DispatchDue(ctx context.Context, due time.Time, limit int) (int, error)
}

// DeliveryFlowImpl implements the delivery business flow
type DeliveryFlowImpl struct {
	campaignRepo    repository.CampaignRepository
	sendRepo        repository.CampaignSendRepository
	suppressionRepo repository.SuppressionRepository
	auditRepo       repository.AuditLogRepository
	audienceFlow    AudienceFlow
	mailer          services.Mailer
	db              *gorm.DB
}

// NewDeliveryFlow creates a new delivery flow instance
func NewDeliveryFlow(
	campaignRepo repository.CampaignRepository,
	sendRepo repository.CampaignSendRepository,
	suppressionRepo repository.SuppressionRepository,
	auditRepo repository.AuditLogRepository,
	audienceFlow AudienceFlow,
	mailer services.Mailer,
	db *gorm.DB,
) DeliveryFlow {
	return &DeliveryFlowImpl{
		campaignRepo:    campaignRepo,
		sendRepo:        sendRepo,
		suppressionRepo: suppressionRepo,
		auditRepo:       auditRepo,
		audienceFlow:    audienceFlow,
		mailer:          mailer,
		db:              db,
	}
}

// SendCampaign launches a draft campaign immediately. The transition into
// sending is a guarded update, so two concurrent launches of the same
// campaign cannot both enter the loop.
func (s *DeliveryFlowImpl) SendCampaign(ctx context.Context, req *dto.SendCampaignRequest, metadata *ClientMetadata) (*dto.SendCampaignResponse, error) {
	campaign, err := s.campaignRepo.ByUUID(ctx, req.UUID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_SEND_FAILED", "Failed to send campaign", err)
	}
	if campaign == nil {
		return nil, NewBusinessError("CAMPAIGN_NOT_FOUND", "Campaign not found", ErrCampaignNotFound)
	}
	if campaign.Status != models.CampaignStatusDraft {
		return nil, NewBusinessError("CAMPAIGN_NOT_SENDABLE", "Only draft campaigns can be sent", ErrOnlyDraftCanBeSent)
	}

	recipients, err := s.audienceFlow.ResolveRecipients(ctx, campaign.AudienceType, campaign.AudienceFilter)
	if err != nil {
		return nil, NewBusinessError("AUDIENCE_RESOLUTION_FAILED", "Failed to resolve campaign audience", err)
	}
	if len(recipients) == 0 {
		return nil, NewBusinessError("NO_RECIPIENTS", "Campaign audience resolved to zero recipients", ErrNoRecipients)
	}

	claimed, err := s.campaignRepo.UpdateStatusIfCurrent(ctx, campaign.ID,
		models.CampaignStatusDraft, models.CampaignStatusSending,
		map[string]any{
			"sending_started_at": utils.UTCNow(),
			"total_recipients":   len(recipients),
		})
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_SEND_FAILED", "Failed to send campaign", err)
	}
	if !claimed {
		return nil, NewBusinessError("CAMPAIGN_NOT_SENDABLE", "Campaign was modified by another request", ErrOnlyDraftCanBeSent)
	}
	campaignsLaunchedTotal.Inc()

	sends, err := s.createSendRecords(ctx, campaign, recipients)
	if err != nil {
		errMsg := fmt.Sprintf("Failed to create send records for campaign %s: %v", campaign.UUID, err)
		_ = s.createAuditLog(ctx, &campaign.ID, req.AdminID, models.AuditActionCampaignSendFailed, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("CAMPAIGN_SEND_FAILED", "Failed to send campaign", err)
	}

	s.runSendLoop(ctx, campaign, sends)
	sentCount, failedCount, err := s.finalizeSend(ctx, campaign.ID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_SEND_FAILED", "Failed to finalize campaign send", err)
	}

	updated, err := s.campaignRepo.ByID(ctx, campaign.ID)
	if err != nil || updated == nil {
		return nil, NewBusinessError("CAMPAIGN_SEND_FAILED", "Failed to reload campaign after send", err)
	}

	msg := fmt.Sprintf("Campaign %s sent to %d recipients (%d failed)", campaign.UUID, sentCount, failedCount)
	_ = s.createAuditLog(ctx, &campaign.ID, req.AdminID, models.AuditActionCampaignSent, msg, true, nil, metadata)

	return &dto.SendCampaignResponse{
		Message:         "Campaign sent",
		Campaign:        ToCampaignDTO(*updated),
		TotalRecipients: len(recipients),
		SentCount:       sentCount,
		FailedCount:     failedCount,
	}, nil
}

// ScheduleCampaign moves a draft into the scheduled state for a future time
func (s *DeliveryFlowImpl) ScheduleCampaign(ctx context.Context, req *dto.ScheduleCampaignRequest, metadata *ClientMetadata) (*dto.ScheduleCampaignResponse, error) {
	campaign, err := s.campaignRepo.ByUUID(ctx, req.UUID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_SCHEDULE_FAILED", "Failed to schedule campaign", err)
	}
	if campaign == nil {
		return nil, NewBusinessError("CAMPAIGN_NOT_FOUND", "Campaign not found", ErrCampaignNotFound)
	}
	if campaign.Status != models.CampaignStatusDraft {
		return nil, NewBusinessError("CAMPAIGN_NOT_SCHEDULABLE", "Only draft campaigns can be scheduled", ErrOnlyDraftCanBeScheduled)
	}
	if req.ScheduledFor == nil {
		return nil, NewBusinessError("SCHEDULE_TIME_REQUIRED", "Schedule time is required", ErrScheduleTimeNotPresent)
	}
	if req.ScheduledFor.Before(utils.UTCNowAdd(utils.MinScheduleLead)) {
		return nil, NewBusinessError("SCHEDULE_TIME_TOO_SOON", "Schedule time is too soon", ErrScheduleTimeTooSoon)
	}

	recipients, err := s.audienceFlow.ResolveRecipients(ctx, campaign.AudienceType, campaign.AudienceFilter)
	if err != nil {
		return nil, NewBusinessError("AUDIENCE_RESOLUTION_FAILED", "Failed to resolve campaign audience", err)
	}
	if len(recipients) == 0 {
		return nil, NewBusinessError("NO_RECIPIENTS", "Campaign audience resolved to zero recipients", ErrNoRecipients)
	}

	claimed, err := s.campaignRepo.UpdateStatusIfCurrent(ctx, campaign.ID,
		models.CampaignStatusDraft, models.CampaignStatusScheduled,
		map[string]any{
			"scheduled_for":    req.ScheduledFor.UTC(),
			"total_recipients": len(recipients),
		})
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_SCHEDULE_FAILED", "Failed to schedule campaign", err)
	}
	if !claimed {
		return nil, NewBusinessError("CAMPAIGN_NOT_SCHEDULABLE", "Campaign was modified by another request", ErrOnlyDraftCanBeScheduled)
	}

	updated, err := s.campaignRepo.ByID(ctx, campaign.ID)
	if err != nil || updated == nil {
		return nil, NewBusinessError("CAMPAIGN_SCHEDULE_FAILED", "Failed to reload campaign after scheduling", err)
	}

	msg := fmt.Sprintf("Campaign %s scheduled for %s", campaign.UUID, req.ScheduledFor.UTC().Format(time.RFC3339))
	_ = s.createAuditLog(ctx, &campaign.ID, req.AdminID, models.AuditActionCampaignScheduled, msg, true, nil, metadata)

	return &dto.ScheduleCampaignResponse{
		Message:         "Campaign scheduled",
		Campaign:        ToCampaignDTO(*updated),
		TotalRecipients: len(recipients),
	}, nil
}

// CancelScheduledCampaign returns a scheduled campaign to draft
func (s *DeliveryFlowImpl) CancelScheduledCampaign(ctx context.Context, req *dto.GetCampaignRequest, metadata *ClientMetadata) (*dto.CampaignActionResponse, error) {
	campaign, err := s.campaignRepo.ByUUID(ctx, req.UUID)
	if err != nil {
		return nil, NewBusinessError("SCHEDULE_CANCEL_FAILED", "Failed to cancel schedule", err)
	}
	if campaign == nil {
		return nil, NewBusinessError("CAMPAIGN_NOT_FOUND", "Campaign not found", ErrCampaignNotFound)
	}

	claimed, err := s.campaignRepo.UpdateStatusIfCurrent(ctx, campaign.ID,
		models.CampaignStatusScheduled, models.CampaignStatusDraft,
		map[string]any{"scheduled_for": nil})
	if err != nil {
		return nil, NewBusinessError("SCHEDULE_CANCEL_FAILED", "Failed to cancel schedule", err)
	}
	if !claimed {
		return nil, NewBusinessError("CAMPAIGN_NOT_SCHEDULED", "Campaign is not scheduled", ErrCampaignNotScheduled)
	}

	updated, err := s.campaignRepo.ByID(ctx, campaign.ID)
	if err != nil || updated == nil {
		return nil, NewBusinessError("SCHEDULE_CANCEL_FAILED", "Failed to reload campaign", err)
	}

	msg := fmt.Sprintf("Campaign %s schedule cancelled", campaign.UUID)
	_ = s.createAuditLog(ctx, &campaign.ID, req.AdminID, models.AuditActionScheduleCancelled, msg, true, nil, metadata)

	return &dto.CampaignActionResponse{
		Message:  "Schedule cancelled",
		Campaign: ToCampaignDTO(*updated),
	}, nil
}

// PauseCampaign halts a sending campaign before its next batch. Messages
// already handed to the provider are not recalled.
func (s *DeliveryFlowImpl) PauseCampaign(ctx context.Context, req *dto.GetCampaignRequest, metadata *ClientMetadata) (*dto.CampaignActionResponse, error) {
	campaign, err := s.campaignRepo.ByUUID(ctx, req.UUID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_PAUSE_FAILED", "Failed to pause campaign", err)
	}
	if campaign == nil {
		return nil, NewBusinessError("CAMPAIGN_NOT_FOUND", "Campaign not found", ErrCampaignNotFound)
	}

	claimed, err := s.campaignRepo.UpdateStatusIfCurrent(ctx, campaign.ID,
		models.CampaignStatusSending, models.CampaignStatusPaused, nil)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_PAUSE_FAILED", "Failed to pause campaign", err)
	}
	if !claimed {
		return nil, NewBusinessError("CAMPAIGN_NOT_SENDING", "Campaign is not sending", ErrCampaignNotSending)
	}

	updated, err := s.campaignRepo.ByID(ctx, campaign.ID)
	if err != nil || updated == nil {
		return nil, NewBusinessError("CAMPAIGN_PAUSE_FAILED", "Failed to reload campaign", err)
	}

	msg := fmt.Sprintf("Campaign %s paused", campaign.UUID)
	_ = s.createAuditLog(ctx, &campaign.ID, req.AdminID, models.AuditActionCampaignPaused, msg, true, nil, metadata)

	return &dto.CampaignActionResponse{
		Message:  "Campaign paused",
		Campaign: ToCampaignDTO(*updated),
	}, nil
}

// ResumeCampaign continues a paused campaign over its remaining pending
// recipients. Recipients already attempted are never retried here.
func (s *DeliveryFlowImpl) ResumeCampaign(ctx context.Context, req *dto.GetCampaignRequest, metadata *ClientMetadata) (*dto.CampaignActionResponse, error) {
	campaign, err := s.campaignRepo.ByUUID(ctx, req.UUID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_RESUME_FAILED", "Failed to resume campaign", err)
	}
	if campaign == nil {
		return nil, NewBusinessError("CAMPAIGN_NOT_FOUND", "Campaign not found", ErrCampaignNotFound)
	}

	claimed, err := s.campaignRepo.UpdateStatusIfCurrent(ctx, campaign.ID,
		models.CampaignStatusPaused, models.CampaignStatusSending, nil)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_RESUME_FAILED", "Failed to resume campaign", err)
	}
	if !claimed {
		return nil, NewBusinessError("CAMPAIGN_NOT_PAUSED", "Campaign is not paused", ErrCampaignNotPaused)
	}

	pending, err := s.pendingSends(ctx, campaign.ID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_RESUME_FAILED", "Failed to load pending recipients", err)
	}

	s.runSendLoop(ctx, campaign, pending)
	if _, _, err := s.finalizeSend(ctx, campaign.ID); err != nil {
		return nil, NewBusinessError("CAMPAIGN_RESUME_FAILED", "Failed to finalize campaign send", err)
	}

	updated, err := s.campaignRepo.ByID(ctx, campaign.ID)
	if err != nil || updated == nil {
		return nil, NewBusinessError("CAMPAIGN_RESUME_FAILED", "Failed to reload campaign", err)
	}

	msg := fmt.Sprintf("Campaign %s resumed with %d pending recipients", campaign.UUID, len(pending))
	_ = s.createAuditLog(ctx, &campaign.ID, req.AdminID, models.AuditActionCampaignResumed, msg, true, nil, metadata)

	return &dto.CampaignActionResponse{
		Message:  "Campaign resumed",
		Campaign: ToCampaignDTO(*updated),
	}, nil
}

// RecordCampaignEvent applies one provider webhook event to a send record and
// rolls the campaign counters forward
func (s *DeliveryFlowImpl) RecordCampaignEvent(ctx context.Context, req *dto.CampaignEventRequest) (*dto.CampaignEventResponse, error) {
	campaign, err := s.campaignRepo.ByUUID(ctx, req.UUID)
	if err != nil {
		return nil, NewBusinessError("EVENT_RECORD_FAILED", "Failed to record campaign event", err)
	}
	if campaign == nil {
		return nil, NewBusinessError("CAMPAIGN_NOT_FOUND", "Campaign not found", ErrCampaignNotFound)
	}

	send, err := s.sendRepo.ByCampaignAndEmail(ctx, campaign.ID, req.Email)
	if err != nil {
		return nil, NewBusinessError("EVENT_RECORD_FAILED", "Failed to record campaign event", err)
	}
	if send == nil {
		return nil, NewBusinessError("SEND_RECORD_NOT_FOUND", "No send record for this recipient", ErrSendRecordNotFound)
	}

	occurredAt := utils.UTCNow()
	if req.OccurredAt != nil {
		occurredAt = req.OccurredAt.UTC()
	}
	if req.ProviderMessageID != nil {
		send.ProviderMessageID = req.ProviderMessageID
	}

	counters := map[string]any{}

	switch req.Event {
	case "delivered":
		if send.DeliveredAt == nil {
			send.DeliveredAt = &occurredAt
			counters["delivered_count"] = campaign.DeliveredCount + 1
		}
		if send.Status == models.SendStatusSent {
			send.Status = models.SendStatusDelivered
		}
	case "opened":
		if send.OpenedAt == nil {
			send.OpenedAt = &occurredAt
			counters["unique_opens"] = campaign.UniqueOpens + 1
		}
		send.OpenCount++
		counters["opened_count"] = campaign.OpenedCount + 1
		if send.Status == models.SendStatusSent || send.Status == models.SendStatusDelivered {
			send.Status = models.SendStatusOpened
		}
	case "clicked":
		if send.ClickedAt == nil {
			send.ClickedAt = &occurredAt
			counters["unique_clicks"] = campaign.UniqueClicks + 1
		}
		send.ClickCount++
		counters["clicked_count"] = campaign.ClickedCount + 1
		if send.Status == models.SendStatusSent || send.Status == models.SendStatusDelivered || send.Status == models.SendStatusOpened {
			send.Status = models.SendStatusClicked
		}
	case "bounced":
		if send.BouncedAt == nil {
			send.BouncedAt = &occurredAt
			counters["bounced_count"] = campaign.BouncedCount + 1
		}
		send.Status = models.SendStatusBounced
		s.suppress(ctx, campaign, req.Email, models.SuppressionReasonBounced)
	case "complained":
		if send.ComplainedAt == nil {
			send.ComplainedAt = &occurredAt
			counters["complained_count"] = campaign.ComplainedCount + 1
		}
		send.Status = models.SendStatusComplained
		s.suppress(ctx, campaign, req.Email, models.SuppressionReasonComplained)
	case "unsubscribed":
		if send.UnsubscribedAt == nil {
			send.UnsubscribedAt = &occurredAt
			counters["unsubscribed_count"] = campaign.UnsubscribedCount + 1
		}
		send.Status = models.SendStatusUnsubscribed
		s.suppress(ctx, campaign, req.Email, models.SuppressionReasonUnsubscribed)
	default:
		return nil, NewBusinessError("UNKNOWN_EVENT", "Unknown campaign event", ErrUnknownCampaignEvent)
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.sendRepo.Update(txCtx, send); err != nil {
			return err
		}
		if len(counters) > 0 {
			return s.campaignRepo.UpdateFields(txCtx, campaign.ID, counters)
		}
		return nil
	})
	if err != nil {
		return nil, NewBusinessError("EVENT_RECORD_FAILED", "Failed to record campaign event", err)
	}

	msg := fmt.Sprintf("Event %s recorded for %s on campaign %s", req.Event, req.Email, campaign.UUID)
	_ = s.createAuditLog(ctx, &campaign.ID, 0, models.AuditActionCampaignEventRecorded, msg, true, nil, nil)

	return &dto.CampaignEventResponse{
		Message: "Event recorded",
		Send:    ToCampaignSendDTO(*send),
	}, nil
}

// ListCampaignSends returns a paginated list of one campaign's send records
func (s *DeliveryFlowImpl) ListCampaignSends(ctx context.Context, req *dto.ListCampaignSendsRequest) (*dto.ListCampaignSendsResponse, error) {
	campaign, err := s.campaignRepo.ByUUID(ctx, req.UUID)
	if err != nil {
		return nil, NewBusinessError("LIST_SENDS_FAILED", "Failed to list campaign recipients", err)
	}
	if campaign == nil {
		return nil, NewBusinessError("CAMPAIGN_NOT_FOUND", "Campaign not found", ErrCampaignNotFound)
	}

	page := max(1, req.Page)
	limit := req.Limit
	if limit <= 0 {
		limit = utils.DefaultPageSize
	}
	if limit > utils.MaxPageSize {
		limit = utils.MaxPageSize
	}

	total, err := s.sendRepo.Count(ctx, models.CampaignSendFilter{CampaignID: &campaign.ID})
	if err != nil {
		return nil, NewBusinessError("LIST_SENDS_FAILED", "Failed to list campaign recipients", err)
	}

	sends, err := s.sendRepo.ListByCampaign(ctx, campaign.ID, limit, (page-1)*limit)
	if err != nil {
		return nil, NewBusinessError("LIST_SENDS_FAILED", "Failed to list campaign recipients", err)
	}

	items := make([]dto.CampaignSendDTO, 0, len(sends))
	for _, send := range sends {
		items = append(items, ToCampaignSendDTO(*send))
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))

	return &dto.ListCampaignSendsResponse{
		Message: "Campaign recipients retrieved successfully",
		Items:   items,
		Pagination: dto.PaginationInfo{
			Total:      total,
			Page:       page,
			Limit:      limit,
			TotalPages: totalPages,
		},
	}, nil
}

// DispatchDue is the scheduler entry point. Each due campaign is claimed with
// a guarded scheduled-to-sending update before anything else happens, so
// overlapping scheduler ticks cannot double-send.
func (s *DeliveryFlowImpl) DispatchDue(ctx context.Context, due time.Time, limit int) (int, error) {
	campaigns, err := s.campaignRepo.ListScheduledDue(ctx, due, limit)
	if err != nil {
		return 0, err
	}

	dispatched := 0
	for _, campaign := range campaigns {
		claimed, err := s.campaignRepo.UpdateStatusIfCurrent(ctx, campaign.ID,
			models.CampaignStatusScheduled, models.CampaignStatusSending,
			map[string]any{"sending_started_at": utils.UTCNow()})
		if err != nil {
			return dispatched, err
		}
		if !claimed {
			continue
		}
		campaignsLaunchedTotal.Inc()

		if err := s.dispatchOne(ctx, campaign); err != nil {
			errMsg := fmt.Sprintf("Scheduled dispatch of campaign %s failed: %v", campaign.UUID, err)
			_ = s.createAuditLog(ctx, &campaign.ID, 0, models.AuditActionCampaignSendFailed, errMsg, false, &errMsg, nil)
			continue
		}

		msg := fmt.Sprintf("Scheduled campaign %s dispatched", campaign.UUID)
		_ = s.createAuditLog(ctx, &campaign.ID, 0, models.AuditActionCampaignSent, msg, true, nil, nil)
		dispatched++
	}

	return dispatched, nil
}

// dispatchOne resolves, records and sends one already-claimed campaign
func (s *DeliveryFlowImpl) dispatchOne(ctx context.Context, campaign *models.Campaign) error {
	recipients, err := s.audienceFlow.ResolveRecipients(ctx, campaign.AudienceType, campaign.AudienceFilter)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		// Nothing to send anymore; hand the campaign back as a draft
		_, revertErr := s.campaignRepo.UpdateStatusIfCurrent(ctx, campaign.ID,
			models.CampaignStatusSending, models.CampaignStatusDraft,
			map[string]any{"scheduled_for": nil, "sending_started_at": nil})
		if revertErr != nil {
			return revertErr
		}
		return ErrNoRecipients
	}

	if err := s.campaignRepo.UpdateFields(ctx, campaign.ID, map[string]any{"total_recipients": len(recipients)}); err != nil {
		return err
	}

	sends, err := s.createSendRecords(ctx, campaign, recipients)
	if err != nil {
		return err
	}

	s.runSendLoop(ctx, campaign, sends)
	_, _, err = s.finalizeSend(ctx, campaign.ID)
	return err
}

// createSendRecords persists one pending send row per recipient
func (s *DeliveryFlowImpl) createSendRecords(ctx context.Context, campaign *models.Campaign, recipients []Recipient) ([]*models.CampaignSend, error) {
	sends := make([]*models.CampaignSend, 0, len(recipients))
	for _, recipient := range recipients {
		sends = append(sends, &models.CampaignSend{
			CampaignID:    campaign.ID,
			Email:         recipient.Email,
			Name:          recipient.Name,
			Status:        models.SendStatusPending,
			RecipientType: recipient.Type,
			RecipientID:   recipient.ID,
		})
	}

	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		return s.sendRepo.SaveBatch(txCtx, sends)
	})
	if err != nil {
		return nil, err
	}

	return sends, nil
}

// runSendLoop walks the recipients sequentially. A provider failure marks the
// one recipient failed and moves on. The loop re-reads the campaign status
// every pauseCheckEvery recipients and stops when the campaign left the
// sending state.
func (s *DeliveryFlowImpl) runSendLoop(ctx context.Context, campaign *models.Campaign, sends []*models.CampaignSend) {
	for i, send := range sends {
		if i > 0 && i%pauseCheckEvery == 0 && !s.stillSending(ctx, campaign.ID) {
			return
		}
		if send.WasAttempted() {
			continue
		}

		input := services.SendEmailInput{
			To:        send.Email,
			ToName:    send.Name,
			FromName:  campaign.FromName,
			FromEmail: campaign.FromEmail,
			ReplyTo:   campaign.ReplyTo,
			Subject:   campaign.Subject,
			Tags: []services.EmailTag{
				{Name: "campaign_id", Value: campaign.UUID.String()},
				{Name: "recipient_type", Value: send.RecipientType.String()},
			},
		}
		if campaign.HTMLContent != nil {
			input.HTMLContent = *campaign.HTMLContent
		}
		if campaign.PlainTextContent != nil {
			input.PlainTextContent = *campaign.PlainTextContent
		}
		if strings.TrimSpace(input.HTMLContent) == "" && input.PlainTextContent != "" {
			input.HTMLContent = "<p>" + input.PlainTextContent + "</p>"
		}

		messageID, err := s.mailer.SendEmail(ctx, input)
		if err != nil {
			emailsFailedTotal.Inc()
			_ = s.sendRepo.MarkFailed(ctx, send.ID, err.Error())
			send.Status = models.SendStatusFailed
			continue
		}

		emailsSentTotal.Inc()
		_ = s.sendRepo.MarkSent(ctx, send.ID, messageID, utils.UTCNow())
		send.Status = models.SendStatusSent
	}
}

// stillSending reports whether the campaign is still in the sending state
func (s *DeliveryFlowImpl) stillSending(ctx context.Context, campaignID uint) bool {
	campaign, err := s.campaignRepo.ByID(ctx, campaignID)
	if err != nil || campaign == nil {
		return false
	}
	return campaign.Status == models.CampaignStatusSending
}

// finalizeSend recomputes the sent and failed counters from the send records
// and, when no recipient is left pending, closes the campaign with a guarded
// sending-to-sent transition. A paused campaign keeps its counters updated
// but stays paused.
func (s *DeliveryFlowImpl) finalizeSend(ctx context.Context, campaignID uint) (int, int, error) {
	counts, err := s.sendRepo.CountByStatus(ctx, campaignID)
	if err != nil {
		return 0, 0, err
	}

	pending := counts[models.SendStatusPending]
	failed := counts[models.SendStatusFailed]
	var sent int64
	for status, count := range counts {
		if status == models.SendStatusPending || status == models.SendStatusFailed {
			continue
		}
		sent += count
	}

	if pending > 0 {
		err := s.campaignRepo.UpdateFields(ctx, campaignID, map[string]any{
			"sent_count":   sent,
			"failed_count": failed,
		})
		return int(sent), int(failed), err
	}

	now := utils.UTCNow()
	_, err = s.campaignRepo.UpdateStatusIfCurrent(ctx, campaignID,
		models.CampaignStatusSending, models.CampaignStatusSent,
		map[string]any{
			"sent_at":             now,
			"sending_finished_at": now,
			"sent_count":          sent,
			"failed_count":        failed,
		})
	return int(sent), int(failed), err
}

// pendingSends loads the not-yet-attempted recipients of a campaign
func (s *DeliveryFlowImpl) pendingSends(ctx context.Context, campaignID uint) ([]*models.CampaignSend, error) {
	status := models.SendStatusPending
	return s.sendRepo.ByFilter(ctx, models.CampaignSendFilter{
		CampaignID: &campaignID,
		Status:     &status,
	}, "id ASC", 0, 0)
}

// suppress upserts one address onto the suppression list, best effort
func (s *DeliveryFlowImpl) suppress(ctx context.Context, campaign *models.Campaign, email string, reason models.SuppressionReason) {
	source := fmt.Sprintf("campaign:%s", campaign.UUID)
	_ = s.suppressionRepo.Upsert(ctx, &models.EmailSuppression{
		Email:  strings.ToLower(strings.TrimSpace(email)),
		Reason: reason,
		Source: &source,
	})
}

// createAuditLog creates an audit log entry for the delivery operation
func (s *DeliveryFlowImpl) createAuditLog(ctx context.Context, campaignID *uint, adminID uint, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	ipAddress := ""
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		CampaignID:   campaignID,
		Action:       action,
		Description:  &description,
		Success:      utils.ToPtr(success),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		ErrorMessage: errorMsg,
	}
	if adminID != 0 {
		audit.AdminID = &adminID
	}

	requestID := ctx.Value(utils.RequestIDKey)
	if requestID != nil {
		requestIDStr, ok := requestID.(string)
		if ok {
			audit.RequestID = &requestIDStr
		}
	}

	if err := s.auditRepo.Save(ctx, audit); err != nil {
		return err
	}

	return nil
}
