package handlers

import (
	"log"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/thorbis/campaigns/app/dto"
	businessflow "github.com/thorbis/campaigns/business_flow"
)

// CampaignHandlerInterface defines the contract for campaign handlers
type CampaignHandlerInterface interface {
	CreateCampaign(c fiber.Ctx) error
	UpdateCampaign(c fiber.Ctx) error
	GetCampaign(c fiber.Ctx) error
	DeleteCampaign(c fiber.Ctx) error
	DuplicateCampaign(c fiber.Ctx) error
	ListCampaigns(c fiber.Ctx) error
	GetListStats(c fiber.Ctx) error
	GetCampaignStats(c fiber.Ctx) error
	ExportCampaignReport(c fiber.Ctx) error
}

// CampaignHandler handles campaign-related HTTP requests
type CampaignHandler struct {
	campaignFlow businessflow.CampaignFlow
	validator    *validator.Validate
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(campaignFlow businessflow.CampaignFlow) *CampaignHandler {
	return &CampaignHandler{
		campaignFlow: campaignFlow,
		validator:    validator.New(),
	}
}

func (h *CampaignHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *CampaignHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// CreateCampaign handles the campaign creation process
// @Summary Create Campaign
// @Description Create a new draft email campaign
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param request body dto.CreateCampaignRequest true "Campaign creation data"
// @Success 201 {object} dto.APIResponse{data=dto.CreateCampaignResponse} "Campaign created successfully"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid request"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns [post]
func (h *CampaignHandler) CreateCampaign(c fiber.Ctx) error {
	var req dto.CreateCampaignRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	adminID, ok := c.Locals("admin_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Admin ID not found in context", "MISSING_ADMIN_ID", nil)
	}
	req.AdminID = adminID

	result, err := h.campaignFlow.CreateCampaign(createRequestContext(c, "/api/v1/campaigns"), &req, metadata)
	if err != nil {
		log.Println("Campaign creation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign creation failed", "CAMPAIGN_CREATION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Campaign created successfully", result)
}

// UpdateCampaign handles the campaign update process
// @Summary Update Campaign
// @Description Apply a partial update to a draft campaign
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Param request body dto.UpdateCampaignRequest true "Campaign update data"
// @Success 200 {object} dto.APIResponse{data=dto.UpdateCampaignResponse} "Campaign updated successfully"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid request"
// @Failure 403 {object} dto.APIResponse "Campaign is not editable"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns/{uuid} [put]
func (h *CampaignHandler) UpdateCampaign(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	var req dto.UpdateCampaignRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	adminID, ok := c.Locals("admin_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Admin ID not found in context", "MISSING_ADMIN_ID", nil)
	}
	req.UUID = campaignUUID
	req.AdminID = adminID

	result, err := h.campaignFlow.UpdateCampaign(createRequestContext(c, "/api/v1/campaigns/"+campaignUUID), &req, metadata)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsCampaignNotEditable(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Only draft campaigns can be edited", "CAMPAIGN_NOT_EDITABLE", nil)
		}
		if businessflow.IsCampaignUpdateRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "At least one field must be provided", "EMPTY_UPDATE", nil)
		}

		log.Println("Campaign update failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign update failed", "CAMPAIGN_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign updated successfully", result)
}

// GetCampaign returns one campaign
// @Summary Get Campaign
// @Description Retrieve one campaign by UUID
// @Tags Campaigns
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.CampaignDTO} "Campaign retrieved successfully"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns/{uuid} [get]
func (h *CampaignHandler) GetCampaign(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	adminID, ok := c.Locals("admin_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Admin ID not found in context", "MISSING_ADMIN_ID", nil)
	}

	result, err := h.campaignFlow.GetCampaign(createRequestContext(c, "/api/v1/campaigns/"+campaignUUID), &dto.GetCampaignRequest{
		UUID:    campaignUUID,
		AdminID: adminID,
	})
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}

		log.Println("Campaign retrieval failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign retrieval failed", "CAMPAIGN_GET_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign retrieved successfully", result)
}

// DeleteCampaign removes a draft campaign
// @Summary Delete Campaign
// @Description Delete a draft campaign and its send records
// @Tags Campaigns
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse "Campaign deleted successfully"
// @Failure 403 {object} dto.APIResponse "Campaign is not deletable"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns/{uuid} [delete]
func (h *CampaignHandler) DeleteCampaign(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	adminID, ok := c.Locals("admin_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Admin ID not found in context", "MISSING_ADMIN_ID", nil)
	}

	err := h.campaignFlow.DeleteCampaign(createRequestContext(c, "/api/v1/campaigns/"+campaignUUID), &dto.GetCampaignRequest{
		UUID:    campaignUUID,
		AdminID: adminID,
	}, metadata)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsCampaignNotDeletable(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Only draft campaigns can be deleted", "CAMPAIGN_NOT_DELETABLE", nil)
		}

		log.Println("Campaign deletion failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign deletion failed", "CAMPAIGN_DELETE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign deleted successfully", nil)
}

// DuplicateCampaign copies a campaign into a new draft
// @Summary Duplicate Campaign
// @Description Copy a campaign into a new draft with zeroed counters
// @Tags Campaigns
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Success 201 {object} dto.APIResponse{data=dto.DuplicateCampaignResponse} "Campaign duplicated successfully"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns/{uuid}/duplicate [post]
func (h *CampaignHandler) DuplicateCampaign(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	adminID, ok := c.Locals("admin_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Admin ID not found in context", "MISSING_ADMIN_ID", nil)
	}

	result, err := h.campaignFlow.DuplicateCampaign(createRequestContext(c, "/api/v1/campaigns/"+campaignUUID+"/duplicate"), &dto.GetCampaignRequest{
		UUID:    campaignUUID,
		AdminID: adminID,
	}, metadata)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}

		log.Println("Campaign duplication failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign duplication failed", "CAMPAIGN_DUPLICATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Campaign duplicated successfully", result)
}

// ListCampaigns returns a filtered, sorted, paginated campaign list
// @Summary List Campaigns
// @Description List campaigns with optional filters, sorting and pagination
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param request body dto.ListCampaignsRequest true "List parameters"
// @Success 200 {object} dto.APIResponse{data=dto.ListCampaignsResponse} "Campaigns retrieved successfully"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid request"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns/list [post]
func (h *CampaignHandler) ListCampaigns(c fiber.Ctx) error {
	var req dto.ListCampaignsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	adminID, ok := c.Locals("admin_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Admin ID not found in context", "MISSING_ADMIN_ID", nil)
	}
	req.AdminID = adminID

	result, err := h.campaignFlow.ListCampaigns(createRequestContext(c, "/api/v1/campaigns/list"), &req, metadata)
	if err != nil {
		log.Println("Campaign listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign listing failed", "LIST_CAMPAIGNS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaigns retrieved successfully", result)
}

// GetListStats returns aggregate stats over all campaigns
// @Summary Campaign List Stats
// @Description Aggregate counters over the full campaign set
// @Tags Campaigns
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.CampaignListStatsResponse} "Stats retrieved successfully"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns/stats [get]
func (h *CampaignHandler) GetListStats(c fiber.Ctx) error {
	result, err := h.campaignFlow.GetListStats(createRequestContext(c, "/api/v1/campaigns/stats"))
	if err != nil {
		log.Println("Campaign stats aggregation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign stats aggregation failed", "CAMPAIGN_STATS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Stats retrieved successfully", result)
}

// GetCampaignStats returns one campaign's per-status send breakdown
// @Summary Campaign Stats
// @Description One campaign plus its per-status send breakdown
// @Tags Campaigns
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.CampaignStatsResponse} "Stats retrieved successfully"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns/{uuid}/stats [get]
func (h *CampaignHandler) GetCampaignStats(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	adminID, ok := c.Locals("admin_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Admin ID not found in context", "MISSING_ADMIN_ID", nil)
	}

	result, err := h.campaignFlow.GetCampaignStats(createRequestContext(c, "/api/v1/campaigns/"+campaignUUID+"/stats"), &dto.GetCampaignRequest{
		UUID:    campaignUUID,
		AdminID: adminID,
	})
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}

		log.Println("Campaign stats retrieval failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign stats retrieval failed", "CAMPAIGN_STATS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Stats retrieved successfully", result)
}

// ExportCampaignReport streams an XLSX report of one campaign
// @Summary Export Campaign Report
// @Description Download an XLSX report of the campaign and its recipients
// @Tags Campaigns
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param uuid path string true "Campaign UUID"
// @Success 200 {file} binary "XLSX report"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns/{uuid}/export [get]
func (h *CampaignHandler) ExportCampaignReport(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	adminID, ok := c.Locals("admin_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Admin ID not found in context", "MISSING_ADMIN_ID", nil)
	}

	data, filename, err := h.campaignFlow.ExportCampaignReport(createRequestContext(c, "/api/v1/campaigns/"+campaignUUID+"/export"), &dto.GetCampaignRequest{
		UUID:    campaignUUID,
		AdminID: adminID,
	}, metadata)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}

		log.Println("Campaign export failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign export failed", "CAMPAIGN_EXPORT_FAILED", nil)
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Set("Content-Length", strconv.Itoa(len(data)))
	return c.Send(data)
}
