// Package businessflow contains the core business logic and use cases for campaign workflows
package businessflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/thorbis/campaigns/app/dto"
	"github.com/thorbis/campaigns/models"
	"github.com/thorbis/campaigns/repository"
	"github.com/thorbis/campaigns/utils"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// CampaignFlow handles the campaign CRUD business logic
type CampaignFlow interface {
	CreateCampaign(ctx context.Context, req *dto.CreateCampaignRequest, metadata *ClientMetadata) (*dto.CreateCampaignResponse, error)
	UpdateCampaign(ctx context.Context, req *dto.UpdateCampaignRequest, metadata *ClientMetadata) (*dto.UpdateCampaignResponse, error)
	GetCampaign(ctx context.Context, req *dto.GetCampaignRequest) (*dto.CampaignDTO, error)
	DeleteCampaign(ctx context.Context, req *dto.GetCampaignRequest, metadata *ClientMetadata) error
	DuplicateCampaign(ctx context.Context, req *dto.GetCampaignRequest, metadata *ClientMetadata) (*dto.DuplicateCampaignResponse, error)
	ListCampaigns(ctx context.Context, req *dto.ListCampaignsRequest, metadata *ClientMetadata) (*dto.ListCampaignsResponse, error)
	GetListStats(ctx context.Context) (*dto.CampaignListStatsResponse, error)
	GetCampaignStats(ctx context.Context, req *dto.GetCampaignRequest) (*dto.CampaignStatsResponse, error)
	ExportCampaignReport(ctx context.Context, req *dto.GetCampaignRequest, metadata *ClientMetadata) ([]byte, string, error)
}

// CampaignFlowImpl implements the campaign business flow
type CampaignFlowImpl struct {
	campaignRepo repository.CampaignRepository
	sendRepo     repository.CampaignSendRepository
	auditRepo    repository.AuditLogRepository
	db           *gorm.DB
}

// NewCampaignFlow creates a new campaign flow instance
func NewCampaignFlow(
	campaignRepo repository.CampaignRepository,
	sendRepo repository.CampaignSendRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
) CampaignFlow {
	return &CampaignFlowImpl{
		campaignRepo: campaignRepo,
		sendRepo:     sendRepo,
		auditRepo:    auditRepo,
		db:           db,
	}
}

// CreateCampaign handles the complete campaign creation process
func (s *CampaignFlowImpl) CreateCampaign(ctx context.Context, req *dto.CreateCampaignRequest, metadata *ClientMetadata) (*dto.CreateCampaignResponse, error) {
	if err := s.validateCreateCampaignRequest(req); err != nil {
		return nil, NewBusinessError("CAMPAIGN_VALIDATION_FAILED", "Campaign validation failed", err)
	}

	campaign := s.buildCampaign(req)

	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		return s.campaignRepo.Save(txCtx, campaign)
	})
	if err != nil {
		errMsg := fmt.Sprintf("Failed to create campaign: %v", err)
		_ = s.createAuditLog(ctx, nil, req.AdminID, models.AuditActionCampaignCreated, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("CAMPAIGN_CREATION_FAILED", "Failed to create campaign", err)
	}

	msg := fmt.Sprintf("Campaign %s created", campaign.UUID)
	_ = s.createAuditLog(ctx, &campaign.ID, req.AdminID, models.AuditActionCampaignCreated, msg, true, nil, metadata)

	return &dto.CreateCampaignResponse{
		Message:  "Campaign created successfully",
		Campaign: ToCampaignDTO(*campaign),
	}, nil
}

// UpdateCampaign applies a partial update to a draft campaign
func (s *CampaignFlowImpl) UpdateCampaign(ctx context.Context, req *dto.UpdateCampaignRequest, metadata *ClientMetadata) (*dto.UpdateCampaignResponse, error) {
	if req.UUID == "" {
		return nil, NewBusinessError("CAMPAIGN_VALIDATION_FAILED", "Campaign validation failed", ErrCampaignUUIDRequired)
	}

	campaign, err := s.campaignRepo.ByUUID(ctx, req.UUID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_UPDATE_FAILED", "Failed to update campaign", err)
	}
	if campaign == nil {
		return nil, NewBusinessError("CAMPAIGN_NOT_FOUND", "Campaign not found", ErrCampaignNotFound)
	}
	if !campaign.IsEditable() {
		return nil, NewBusinessError("CAMPAIGN_NOT_EDITABLE", "Only draft campaigns can be edited", ErrCampaignNotEditable)
	}
	if !hasUpdateFields(req) {
		return nil, NewBusinessError("CAMPAIGN_VALIDATION_FAILED", "Campaign validation failed", ErrCampaignUpdateRequired)
	}

	applyUpdate(campaign, req)

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		return s.campaignRepo.Update(txCtx, campaign)
	})
	if err != nil {
		errMsg := fmt.Sprintf("Failed to update campaign %s: %v", req.UUID, err)
		_ = s.createAuditLog(ctx, &campaign.ID, req.AdminID, models.AuditActionCampaignUpdated, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("CAMPAIGN_UPDATE_FAILED", "Failed to update campaign", err)
	}

	msg := fmt.Sprintf("Campaign %s updated", campaign.UUID)
	_ = s.createAuditLog(ctx, &campaign.ID, req.AdminID, models.AuditActionCampaignUpdated, msg, true, nil, metadata)

	return &dto.UpdateCampaignResponse{
		Message:  "Campaign updated successfully",
		Campaign: ToCampaignDTO(*campaign),
	}, nil
}

// GetCampaign retrieves one campaign by UUID
func (s *CampaignFlowImpl) GetCampaign(ctx context.Context, req *dto.GetCampaignRequest) (*dto.CampaignDTO, error) {
	campaign, err := s.campaignRepo.ByUUID(ctx, req.UUID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_GET_FAILED", "Failed to get campaign", err)
	}
	if campaign == nil {
		return nil, NewBusinessError("CAMPAIGN_NOT_FOUND", "Campaign not found", ErrCampaignNotFound)
	}

	out := ToCampaignDTO(*campaign)
	return &out, nil
}

// DeleteCampaign removes a draft campaign and its send records
func (s *CampaignFlowImpl) DeleteCampaign(ctx context.Context, req *dto.GetCampaignRequest, metadata *ClientMetadata) error {
	campaign, err := s.campaignRepo.ByUUID(ctx, req.UUID)
	if err != nil {
		return NewBusinessError("CAMPAIGN_DELETE_FAILED", "Failed to delete campaign", err)
	}
	if campaign == nil {
		return NewBusinessError("CAMPAIGN_NOT_FOUND", "Campaign not found", ErrCampaignNotFound)
	}
	if !campaign.IsDeletable() {
		return NewBusinessError("CAMPAIGN_NOT_DELETABLE", "Only draft campaigns can be deleted", ErrCampaignNotDeletable)
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.sendRepo.DeleteByCampaign(txCtx, campaign.ID); err != nil {
			return err
		}
		return s.campaignRepo.Delete(txCtx, campaign.ID)
	})
	if err != nil {
		errMsg := fmt.Sprintf("Failed to delete campaign %s: %v", req.UUID, err)
		_ = s.createAuditLog(ctx, &campaign.ID, req.AdminID, models.AuditActionCampaignDeleted, errMsg, false, &errMsg, metadata)
		return NewBusinessError("CAMPAIGN_DELETE_FAILED", "Failed to delete campaign", err)
	}

	msg := fmt.Sprintf("Campaign %s deleted", campaign.UUID)
	_ = s.createAuditLog(ctx, &campaign.ID, req.AdminID, models.AuditActionCampaignDeleted, msg, true, nil, metadata)

	return nil
}

// DuplicateCampaign copies a campaign into a new draft. The copy gets a fresh
// UUID, a " (Copy)" suffix, and zeroed delivery counters and timestamps.
func (s *CampaignFlowImpl) DuplicateCampaign(ctx context.Context, req *dto.GetCampaignRequest, metadata *ClientMetadata) (*dto.DuplicateCampaignResponse, error) {
	source, err := s.campaignRepo.ByUUID(ctx, req.UUID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_DUPLICATE_FAILED", "Failed to duplicate campaign", err)
	}
	if source == nil {
		return nil, NewBusinessError("CAMPAIGN_NOT_FOUND", "Campaign not found", ErrCampaignNotFound)
	}

	copyCampaign := &models.Campaign{
		UUID:             uuid.New(),
		Name:             source.Name + " (Copy)",
		Status:           models.CampaignStatusDraft,
		Subject:          source.Subject,
		PreviewText:      source.PreviewText,
		HTMLContent:      source.HTMLContent,
		PlainTextContent: source.PlainTextContent,
		TemplateID:       source.TemplateID,
		TemplateData:     source.TemplateData,
		FromName:         source.FromName,
		FromEmail:        source.FromEmail,
		ReplyTo:          source.ReplyTo,
		AudienceType:     source.AudienceType,
		AudienceFilter:   source.AudienceFilter,
		Tags:             append([]string{}, source.Tags...),
		Notes:            source.Notes,
		CreatedBy:        utils.ToPtr(req.AdminID),
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		return s.campaignRepo.Save(txCtx, copyCampaign)
	})
	if err != nil {
		errMsg := fmt.Sprintf("Failed to duplicate campaign %s: %v", req.UUID, err)
		_ = s.createAuditLog(ctx, &source.ID, req.AdminID, models.AuditActionCampaignDuplicated, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("CAMPAIGN_DUPLICATE_FAILED", "Failed to duplicate campaign", err)
	}

	msg := fmt.Sprintf("Campaign %s duplicated as %s", source.UUID, copyCampaign.UUID)
	_ = s.createAuditLog(ctx, &copyCampaign.ID, req.AdminID, models.AuditActionCampaignDuplicated, msg, true, nil, metadata)

	return &dto.DuplicateCampaignResponse{
		Message:  "Campaign duplicated successfully",
		Campaign: ToCampaignDTO(*copyCampaign),
	}, nil
}

// ListCampaigns returns a filtered, sorted, paginated campaign list. The
// database narrows the candidate set; ordering runs through the projector so
// derived keys like open rate sort the same way everywhere.
func (s *CampaignFlowImpl) ListCampaigns(ctx context.Context, req *dto.ListCampaignsRequest, metadata *ClientMetadata) (*dto.ListCampaignsResponse, error) {
	// Normalize pagination
	page := max(1, req.Page)
	limit := req.Limit
	if limit <= 0 {
		limit = utils.DefaultPageSize
	}
	if limit > utils.MaxPageSize {
		limit = utils.MaxPageSize
	}

	filter, listFilters := buildListFilters(req.Filter)

	rows, err := s.campaignRepo.ByFilter(ctx, filter, "created_at DESC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("LIST_CAMPAIGNS_FAILED", "Failed to list campaigns", err)
	}

	campaigns := make([]models.Campaign, 0, len(rows))
	for _, row := range rows {
		campaigns = append(campaigns, *row)
	}

	campaigns = FilterCampaigns(campaigns, listFilters)
	campaigns = SortCampaigns(campaigns, req.SortField, req.SortDirection)

	total := int64(len(campaigns))
	offset := (page - 1) * limit
	if offset > len(campaigns) {
		offset = len(campaigns)
	}
	end := min(offset+limit, len(campaigns))

	items := make([]dto.CampaignDTO, 0, end-offset)
	for _, campaign := range campaigns[offset:end] {
		items = append(items, ToCampaignDTO(campaign))
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))

	return &dto.ListCampaignsResponse{
		Message: "Campaigns retrieved successfully",
		Items:   items,
		Pagination: dto.PaginationInfo{
			Total:      total,
			Page:       page,
			Limit:      limit,
			TotalPages: totalPages,
		},
	}, nil
}

// GetListStats aggregates counters over the full campaign set, unfiltered
func (s *CampaignFlowImpl) GetListStats(ctx context.Context) (*dto.CampaignListStatsResponse, error) {
	rows, err := s.campaignRepo.ByFilter(ctx, models.CampaignFilter{}, "id ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_STATS_FAILED", "Failed to aggregate campaign stats", err)
	}

	campaigns := make([]models.Campaign, 0, len(rows))
	for _, row := range rows {
		campaigns = append(campaigns, *row)
	}

	stats := AggregateCampaignStats(campaigns)

	return &dto.CampaignListStatsResponse{
		Total:             stats.Total,
		DraftCount:        stats.DraftCount,
		ScheduledCount:    stats.ScheduledCount,
		SendingCount:      stats.SendingCount,
		SentCount:         stats.SentCount,
		TotalRecipients:   stats.TotalRecipients,
		TotalUniqueOpens:  stats.TotalUniqueOpens,
		TotalUniqueClicks: stats.TotalUniqueClicks,
		RevenueAttributed: stats.RevenueAttributed,
	}, nil
}

// GetCampaignStats returns one campaign plus its per-status send breakdown
func (s *CampaignFlowImpl) GetCampaignStats(ctx context.Context, req *dto.GetCampaignRequest) (*dto.CampaignStatsResponse, error) {
	campaign, err := s.campaignRepo.ByUUID(ctx, req.UUID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_STATS_FAILED", "Failed to get campaign stats", err)
	}
	if campaign == nil {
		return nil, NewBusinessError("CAMPAIGN_NOT_FOUND", "Campaign not found", ErrCampaignNotFound)
	}

	counts, err := s.sendRepo.CountByStatus(ctx, campaign.ID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_STATS_FAILED", "Failed to get campaign stats", err)
	}

	sends := make(map[string]int64, len(counts))
	for status, count := range counts {
		sends[status.String()] = count
	}

	return &dto.CampaignStatsResponse{
		Campaign: ToCampaignDTO(*campaign),
		Sends:    sends,
	}, nil
}

// ExportCampaignReport renders an XLSX report: a summary sheet plus one row
// per recipient on a recipients sheet. Returns the file bytes and a filename.
func (s *CampaignFlowImpl) ExportCampaignReport(ctx context.Context, req *dto.GetCampaignRequest, metadata *ClientMetadata) ([]byte, string, error) {
	campaign, err := s.campaignRepo.ByUUID(ctx, req.UUID)
	if err != nil {
		return nil, "", NewBusinessError("CAMPAIGN_EXPORT_FAILED", "Failed to export campaign report", err)
	}
	if campaign == nil {
		return nil, "", NewBusinessError("CAMPAIGN_NOT_FOUND", "Campaign not found", ErrCampaignNotFound)
	}

	sends, err := s.sendRepo.ListByCampaign(ctx, campaign.ID, 0, 0)
	if err != nil {
		return nil, "", NewBusinessError("CAMPAIGN_EXPORT_FAILED", "Failed to export campaign report", err)
	}

	file := excelize.NewFile()
	defer func() { _ = file.Close() }()

	summary := "Summary"
	if err := file.SetSheetName(file.GetSheetName(0), summary); err != nil {
		return nil, "", NewBusinessError("CAMPAIGN_EXPORT_FAILED", "Failed to export campaign report", err)
	}

	summaryRows := [][]any{
		{"Campaign", campaign.Name},
		{"Subject", campaign.Subject},
		{"Status", campaign.GetStatusDisplayName()},
		{"Audience", campaign.AudienceType.String()},
		{"Total recipients", campaign.TotalRecipients},
		{"Sent", campaign.SentCount},
		{"Failed", campaign.FailedCount},
		{"Delivered", campaign.DeliveredCount},
		{"Unique opens", campaign.UniqueOpens},
		{"Unique clicks", campaign.UniqueClicks},
		{"Bounced", campaign.BouncedCount},
		{"Complained", campaign.ComplainedCount},
		{"Open rate", campaign.OpenRate()},
		{"Click rate", campaign.ClickRate()},
	}
	for i, row := range summaryRows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := file.SetSheetRow(summary, cell, &row); err != nil {
			return nil, "", NewBusinessError("CAMPAIGN_EXPORT_FAILED", "Failed to export campaign report", err)
		}
	}

	recipients := "Recipients"
	if _, err := file.NewSheet(recipients); err != nil {
		return nil, "", NewBusinessError("CAMPAIGN_EXPORT_FAILED", "Failed to export campaign report", err)
	}

	header := []any{"Email", "Name", "Status", "Provider Message ID", "Error", "Sent At", "Opened At", "Clicked At"}
	if err := file.SetSheetRow(recipients, "A1", &header); err != nil {
		return nil, "", NewBusinessError("CAMPAIGN_EXPORT_FAILED", "Failed to export campaign report", err)
	}

	for i, send := range sends {
		row := []any{
			send.Email,
			derefOr(send.Name, ""),
			send.Status.String(),
			derefOr(send.ProviderMessageID, ""),
			derefOr(send.ErrorMessage, ""),
			formatTime(send.SentAt),
			formatTime(send.OpenedAt),
			formatTime(send.ClickedAt),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := file.SetSheetRow(recipients, cell, &row); err != nil {
			return nil, "", NewBusinessError("CAMPAIGN_EXPORT_FAILED", "Failed to export campaign report", err)
		}
	}

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, "", NewBusinessError("CAMPAIGN_EXPORT_FAILED", "Failed to export campaign report", err)
	}

	msg := fmt.Sprintf("Campaign %s report exported", campaign.UUID)
	_ = s.createAuditLog(ctx, &campaign.ID, req.AdminID, models.AuditActionCampaignExported, msg, true, nil, metadata)

	filename := fmt.Sprintf("campaign-%s-%s.xlsx", sanitizeFilename(campaign.Name), utils.UTCNow().Format("20060102"))
	return buf.Bytes(), filename, nil
}

// validateCreateCampaignRequest validates the campaign creation request
func (s *CampaignFlowImpl) validateCreateCampaignRequest(req *dto.CreateCampaignRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return ErrCampaignNameRequired
	}
	if strings.TrimSpace(req.Subject) == "" {
		return ErrCampaignSubjectRequired
	}
	if req.AudienceType != nil && !models.AudienceType(*req.AudienceType).Valid() {
		return ErrUnknownAudienceType
	}
	return nil
}

// buildCampaign assembles a new draft campaign from the request
func (s *CampaignFlowImpl) buildCampaign(req *dto.CreateCampaignRequest) *models.Campaign {
	campaign := &models.Campaign{
		UUID:             uuid.New(),
		Name:             strings.TrimSpace(req.Name),
		Status:           models.CampaignStatusDraft,
		Subject:          strings.TrimSpace(req.Subject),
		PreviewText:      req.PreviewText,
		HTMLContent:      req.HTMLContent,
		PlainTextContent: req.PlainTextContent,
		TemplateID:       req.TemplateID,
		FromName:         utils.DefaultFromName,
		FromEmail:        utils.DefaultFromEmail,
		ReplyTo:          req.ReplyTo,
		AudienceType:     models.AudienceTypeWaitlist,
		AudienceFilter:   models.DefaultAudienceFilter(),
		Tags:             req.Tags,
		Notes:            req.Notes,
		CreatedBy:        utils.ToPtr(req.AdminID),
	}

	if req.FromName != nil && *req.FromName != "" {
		campaign.FromName = *req.FromName
	}
	if req.FromEmail != nil && *req.FromEmail != "" {
		campaign.FromEmail = *req.FromEmail
	}
	if req.AudienceType != nil {
		campaign.AudienceType = models.AudienceType(*req.AudienceType)
	}
	if req.AudienceFilter != nil {
		campaign.AudienceFilter = *req.AudienceFilter
		campaign.AudienceFilter.NormalizeCustomEmails()
	}
	if campaign.Tags == nil {
		campaign.Tags = []string{}
	}

	return campaign
}

// hasUpdateFields reports whether the partial update carries any field
func hasUpdateFields(req *dto.UpdateCampaignRequest) bool {
	return req.Name != nil || req.Subject != nil || req.PreviewText != nil ||
		req.HTMLContent != nil || req.PlainTextContent != nil || req.TemplateID != nil ||
		req.FromName != nil || req.FromEmail != nil || req.ReplyTo != nil ||
		req.AudienceType != nil || req.AudienceFilter != nil ||
		req.Tags != nil || req.Notes != nil
}

// applyUpdate merges the non-nil request fields onto the campaign
func applyUpdate(campaign *models.Campaign, req *dto.UpdateCampaignRequest) {
	if req.Name != nil {
		campaign.Name = strings.TrimSpace(*req.Name)
	}
	if req.Subject != nil {
		campaign.Subject = strings.TrimSpace(*req.Subject)
	}
	if req.PreviewText != nil {
		campaign.PreviewText = req.PreviewText
	}
	if req.HTMLContent != nil {
		campaign.HTMLContent = req.HTMLContent
	}
	if req.PlainTextContent != nil {
		campaign.PlainTextContent = req.PlainTextContent
	}
	if req.TemplateID != nil {
		campaign.TemplateID = req.TemplateID
	}
	if req.FromName != nil {
		campaign.FromName = *req.FromName
	}
	if req.FromEmail != nil {
		campaign.FromEmail = *req.FromEmail
	}
	if req.ReplyTo != nil {
		campaign.ReplyTo = req.ReplyTo
	}
	if req.AudienceType != nil {
		campaign.AudienceType = models.AudienceType(*req.AudienceType)
	}
	if req.AudienceFilter != nil {
		campaign.AudienceFilter = *req.AudienceFilter
		campaign.AudienceFilter.NormalizeCustomEmails()
	}
	if req.Tags != nil {
		campaign.Tags = append([]string{}, req.Tags...)
	}
	if req.Notes != nil {
		campaign.Notes = req.Notes
	}
}

// buildListFilters splits the request filter into the part the database
// narrows and the part the projector applies
func buildListFilters(filter *dto.ListCampaignsFilter) (models.CampaignFilter, CampaignListFilters) {
	var dbFilter models.CampaignFilter
	var listFilters CampaignListFilters

	if filter == nil {
		return dbFilter, listFilters
	}

	for _, status := range filter.Statuses {
		parsed := models.CampaignStatus(status)
		if parsed.Valid() {
			dbFilter.Statuses = append(dbFilter.Statuses, parsed)
			listFilters.Statuses = append(listFilters.Statuses, parsed)
		}
	}
	for _, audienceType := range filter.AudienceTypes {
		parsed := models.AudienceType(audienceType)
		if parsed.Valid() {
			dbFilter.AudienceTypes = append(dbFilter.AudienceTypes, parsed)
			listFilters.AudienceTypes = append(listFilters.AudienceTypes, parsed)
		}
	}
	if filter.Search != nil && *filter.Search != "" {
		dbFilter.Search = filter.Search
		listFilters.Search = *filter.Search
	}
	if len(filter.Tags) > 0 {
		dbFilter.Tags = filter.Tags
		listFilters.Tags = filter.Tags
	}
	if filter.DateFrom != nil {
		dbFilter.CreatedAfter = filter.DateFrom
		listFilters.DateFrom = filter.DateFrom
	}
	if filter.DateTo != nil {
		dbFilter.CreatedBefore = filter.DateTo
		listFilters.DateTo = filter.DateTo
	}

	return dbFilter, listFilters
}

// createAuditLog creates an audit log entry for the campaign operation
func (s *CampaignFlowImpl) createAuditLog(ctx context.Context, campaignID *uint, adminID uint, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	ipAddress := ""
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		AdminID:      &adminID,
		CampaignID:   campaignID,
		Action:       action,
		Description:  &description,
		Success:      utils.ToPtr(success),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		ErrorMessage: errorMsg,
	}

	// Extract request ID from context if available
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

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func sanitizeFilename(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '-', r == '_':
			return '-'
		default:
			return -1
		}
	}, name)
	if name == "" {
		name = "report"
	}
	return name
}
