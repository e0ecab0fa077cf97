package handlers

import (
	"context"
	"log"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/thorbis/campaigns/app/dto"
	businessflow "github.com/thorbis/campaigns/business_flow"
)

// DeliveryHandlerInterface defines the contract for delivery handlers
type DeliveryHandlerInterface interface {
	SendCampaign(c fiber.Ctx) error
	ScheduleCampaign(c fiber.Ctx) error
	CancelScheduledCampaign(c fiber.Ctx) error
	PauseCampaign(c fiber.Ctx) error
	ResumeCampaign(c fiber.Ctx) error
	RecordCampaignEvent(c fiber.Ctx) error
	ListCampaignSends(c fiber.Ctx) error
}

// DeliveryHandler handles send, schedule and event HTTP requests
type DeliveryHandler struct {
	deliveryFlow businessflow.DeliveryFlow
	validator    *validator.Validate
}

// NewDeliveryHandler creates a new delivery handler
func NewDeliveryHandler(deliveryFlow businessflow.DeliveryFlow) *DeliveryHandler {
	return &DeliveryHandler{
		deliveryFlow: deliveryFlow,
		validator:    validator.New(),
	}
}

func (h *DeliveryHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *DeliveryHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// deliveryError maps delivery business errors onto HTTP responses
func (h *DeliveryHandler) deliveryError(c fiber.Ctx, err error, fallbackMsg, fallbackCode string) error {
	if businessflow.IsCampaignNotFound(err) {
		return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
	}
	if businessflow.IsOnlyDraftCanBeSent(err) {
		return h.ErrorResponse(c, fiber.StatusConflict, "Only draft campaigns can be sent", "CAMPAIGN_NOT_SENDABLE", nil)
	}
	if businessflow.IsOnlyDraftCanBeScheduled(err) {
		return h.ErrorResponse(c, fiber.StatusConflict, "Only draft campaigns can be scheduled", "CAMPAIGN_NOT_SCHEDULABLE", nil)
	}
	if businessflow.IsCampaignNotScheduled(err) {
		return h.ErrorResponse(c, fiber.StatusConflict, "Campaign is not scheduled", "CAMPAIGN_NOT_SCHEDULED", nil)
	}
	if businessflow.IsCampaignNotSending(err) {
		return h.ErrorResponse(c, fiber.StatusConflict, "Campaign is not sending", "CAMPAIGN_NOT_SENDING", nil)
	}
	if businessflow.IsCampaignNotPaused(err) {
		return h.ErrorResponse(c, fiber.StatusConflict, "Campaign is not paused", "CAMPAIGN_NOT_PAUSED", nil)
	}
	if businessflow.IsNoRecipients(err) {
		return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Audience resolved to zero recipients", "NO_RECIPIENTS", nil)
	}
	if businessflow.IsScheduleTimeNotPresent(err) {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Schedule time is required", "SCHEDULE_TIME_REQUIRED", nil)
	}
	if businessflow.IsScheduleTimeTooSoon(err) {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Schedule time is too soon", "SCHEDULE_TIME_TOO_SOON", nil)
	}
	if businessflow.IsSendRecordNotFound(err) {
		return h.ErrorResponse(c, fiber.StatusNotFound, "No send record for this recipient", "SEND_RECORD_NOT_FOUND", nil)
	}
	if businessflow.IsUnknownCampaignEvent(err) {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Unknown campaign event", "UNKNOWN_EVENT", nil)
	}

	log.Println(fallbackMsg, err)
	return h.ErrorResponse(c, fiber.StatusInternalServerError, fallbackMsg, fallbackCode, nil)
}

// SendCampaign launches a draft campaign immediately
// @Summary Send Campaign
// @Description Launch a draft campaign and run the send loop
// @Tags Delivery
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.SendCampaignResponse} "Campaign sent"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 409 {object} dto.APIResponse "Campaign is not a draft"
// @Failure 422 {object} dto.APIResponse "Audience resolved to zero recipients"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns/{uuid}/send [post]
func (h *DeliveryHandler) SendCampaign(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	adminID, ok := c.Locals("admin_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Admin ID not found in context", "MISSING_ADMIN_ID", nil)
	}

	ctx := createRequestContextWithTimeout(c, "/api/v1/campaigns/send", sendTimeout)
	result, err := h.deliveryFlow.SendCampaign(ctx, &dto.SendCampaignRequest{
		UUID:    campaignUUID,
		AdminID: adminID,
	}, metadata)
	if err != nil {
		return h.deliveryError(c, err, "Campaign send failed", "CAMPAIGN_SEND_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign sent", result)
}

// ScheduleCampaign moves a draft campaign into the scheduled state
// @Summary Schedule Campaign
// @Tags Delivery
// @Accept json
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Param request body dto.ScheduleCampaignRequest true "Schedule parameters"
// @Success 200 {object} dto.APIResponse{data=dto.ScheduleCampaignResponse} "Campaign scheduled"
// @Failure 400 {object} dto.APIResponse "Schedule time missing or too soon"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 409 {object} dto.APIResponse "Campaign is not a draft"
// @Router /api/v1/campaigns/{uuid}/schedule [post]
func (h *DeliveryHandler) ScheduleCampaign(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	var req dto.ScheduleCampaignRequest
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

	result, err := h.deliveryFlow.ScheduleCampaign(createRequestContext(c, "/api/v1/campaigns/schedule"), &req, metadata)
	if err != nil {
		return h.deliveryError(c, err, "Campaign scheduling failed", "CAMPAIGN_SCHEDULE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign scheduled", result)
}

// CancelScheduledCampaign returns a scheduled campaign to draft
// @Summary Cancel Scheduled Campaign
// @Tags Delivery
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.CampaignActionResponse} "Schedule cancelled"
// @Failure 409 {object} dto.APIResponse "Campaign is not scheduled"
// @Router /api/v1/campaigns/{uuid}/cancel-schedule [post]
func (h *DeliveryHandler) CancelScheduledCampaign(c fiber.Ctx) error {
	return h.campaignAction(c, "cancel-schedule", h.deliveryFlow.CancelScheduledCampaign, "Schedule cancelled", "SCHEDULE_CANCEL_FAILED")
}

// PauseCampaign halts a sending campaign before its next batch
// @Summary Pause Campaign
// @Tags Delivery
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.CampaignActionResponse} "Campaign paused"
// @Failure 409 {object} dto.APIResponse "Campaign is not sending"
// @Router /api/v1/campaigns/{uuid}/pause [post]
func (h *DeliveryHandler) PauseCampaign(c fiber.Ctx) error {
	return h.campaignAction(c, "pause", h.deliveryFlow.PauseCampaign, "Campaign paused", "CAMPAIGN_PAUSE_FAILED")
}

// ResumeCampaign continues a paused campaign over its pending recipients
// @Summary Resume Campaign
// @Tags Delivery
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.CampaignActionResponse} "Campaign resumed"
// @Failure 409 {object} dto.APIResponse "Campaign is not paused"
// @Router /api/v1/campaigns/{uuid}/resume [post]
func (h *DeliveryHandler) ResumeCampaign(c fiber.Ctx) error {
	return h.campaignAction(c, "resume", h.deliveryFlow.ResumeCampaign, "Campaign resumed", "CAMPAIGN_RESUME_FAILED")
}

// RecordCampaignEvent ingests a provider webhook event for one recipient
// @Summary Record Campaign Event
// @Description Apply a delivered/opened/clicked/bounced/complained/unsubscribed event
// @Tags Delivery
// @Accept json
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Param request body dto.CampaignEventRequest true "Event data"
// @Success 200 {object} dto.APIResponse{data=dto.CampaignEventResponse} "Event recorded"
// @Failure 404 {object} dto.APIResponse "Campaign or send record not found"
// @Router /api/v1/campaigns/{uuid}/events [post]
func (h *DeliveryHandler) RecordCampaignEvent(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	var req dto.CampaignEventRequest
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

	req.UUID = campaignUUID

	result, err := h.deliveryFlow.RecordCampaignEvent(createRequestContext(c, "/api/v1/campaigns/events"), &req)
	if err != nil {
		return h.deliveryError(c, err, "Event recording failed", "EVENT_RECORD_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Event recorded", result)
}

// ListCampaignSends returns a paginated list of one campaign's recipients
// @Summary List Campaign Sends
// @Tags Delivery
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} dto.APIResponse{data=dto.ListCampaignSendsResponse} "Recipients retrieved"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Router /api/v1/campaigns/{uuid}/sends [get]
func (h *DeliveryHandler) ListCampaignSends(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	req := dto.ListCampaignSendsRequest{UUID: campaignUUID}
	if pageStr := c.Query("page"); pageStr != "" {
		if page, err := strconv.Atoi(pageStr); err == nil {
			req.Page = page
		}
	}
	if limitStr := c.Query("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			req.Limit = limit
		}
	}

	result, err := h.deliveryFlow.ListCampaignSends(createRequestContext(c, "/api/v1/campaigns/sends"), &req)
	if err != nil {
		return h.deliveryError(c, err, "Recipient listing failed", "LIST_SENDS_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Recipients retrieved", result)
}

// campaignAction runs one of the uuid-only delivery actions
func (h *DeliveryHandler) campaignAction(
	c fiber.Ctx,
	name string,
	action func(ctx context.Context, req *dto.GetCampaignRequest, metadata *businessflow.ClientMetadata) (*dto.CampaignActionResponse, error),
	successMsg, fallbackCode string,
) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	adminID, ok := c.Locals("admin_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Admin ID not found in context", "MISSING_ADMIN_ID", nil)
	}

	ctx := createRequestContext(c, "/api/v1/campaigns/"+name)
	if name == "resume" {
		// The resume action re-enters the send loop and can run long
		ctx = createRequestContextWithTimeout(c, "/api/v1/campaigns/"+name, sendTimeout)
	}

	result, err := action(ctx, &dto.GetCampaignRequest{
		UUID:    campaignUUID,
		AdminID: adminID,
	}, metadata)
	if err != nil {
		return h.deliveryError(c, err, successMsg+" failed", fallbackCode)
	}

	return h.SuccessResponse(c, fiber.StatusOK, successMsg, result)
}
