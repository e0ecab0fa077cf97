package handlers

import (
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/thorbis/campaigns/app/dto"
	businessflow "github.com/thorbis/campaigns/business_flow"
)

// BuilderHandlerInterface defines the contract for builder wizard handlers
type BuilderHandlerInterface interface {
	OpenBuilder(c fiber.Ctx) error
	CloseBuilder(c fiber.Ctx) error
	GetState(c fiber.Ctx) error
	SetStep(c fiber.Ctx) error
	StepClick(c fiber.Ctx) error
	NextStep(c fiber.Ctx) error
	BackStep(c fiber.Ctx) error
	UpdateDraft(c fiber.Ctx) error
	ClearValidationError(c fiber.Ctx) error
	SaveDraft(c fiber.Ctx) error
	SendFromBuilder(c fiber.Ctx) error
	ScheduleFromBuilder(c fiber.Ctx) error
}

// BuilderHandler handles builder wizard HTTP requests
type BuilderHandler struct {
	builderFlow businessflow.BuilderFlow
	validator   *validator.Validate
}

// NewBuilderHandler creates a new builder handler
func NewBuilderHandler(builderFlow businessflow.BuilderFlow) *BuilderHandler {
	return &BuilderHandler{
		builderFlow: builderFlow,
		validator:   validator.New(),
	}
}

func (h *BuilderHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *BuilderHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// sessionID reads the builder session from the path, generating one for opens
func (h *BuilderHandler) sessionID(c fiber.Ctx) string {
	return c.Params("session")
}

// builderError maps builder business errors onto HTTP responses
func (h *BuilderHandler) builderError(c fiber.Ctx, err error, fallbackMsg, fallbackCode string) error {
	if businessflow.IsBuilderNotOpen(err) {
		return h.ErrorResponse(c, fiber.StatusNotFound, "Builder session is not open", "BUILDER_NOT_OPEN", nil)
	}
	if businessflow.IsBuilderStepInvalid(err) {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Unknown builder step", "BUILDER_STEP_INVALID", nil)
	}
	if businessflow.IsForwardStepClick(err) {
		return h.ErrorResponse(c, fiber.StatusForbidden, "Forward step navigation must go through Next", "FORWARD_STEP_CLICK", nil)
	}
	if businessflow.IsBuilderStepBlocked(err) {
		return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Current step has validation errors", "BUILDER_STEP_BLOCKED", nil)
	}
	if businessflow.IsDraftValidationFail(err) {
		return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Draft has validation errors", "DRAFT_VALIDATION_FAILED", nil)
	}
	if businessflow.IsCampaignNotFound(err) {
		return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
	}
	if businessflow.IsScheduleTimeTooSoon(err) {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Schedule time is too soon", "SCHEDULE_TIME_TOO_SOON", nil)
	}
	if businessflow.IsNoRecipients(err) {
		return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Audience resolved to zero recipients", "NO_RECIPIENTS", nil)
	}

	log.Println(fallbackMsg, err)
	return h.ErrorResponse(c, fiber.StatusInternalServerError, fallbackMsg, fallbackCode, nil)
}

// OpenBuilder opens a builder session, optionally loading a campaign to edit
// @Summary Open Builder
// @Description Open a builder session for a new campaign or an existing draft
// @Tags Builder
// @Accept json
// @Produce json
// @Param request body dto.OpenBuilderRequest true "Open parameters"
// @Success 201 {object} dto.APIResponse{data=dto.BuilderStateResponse} "Builder opened"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/builder [post]
func (h *BuilderHandler) OpenBuilder(c fiber.Ctx) error {
	var req dto.OpenBuilderRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	adminID, ok := c.Locals("admin_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Admin ID not found in context", "MISSING_ADMIN_ID", nil)
	}
	req.AdminID = adminID
	req.SessionID = uuid.New().String()

	result, err := h.builderFlow.OpenBuilder(createRequestContext(c, "/api/v1/builder"), &req, metadata)
	if err != nil {
		return h.builderError(c, err, "Failed to open builder", "BUILDER_OPEN_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Builder opened", result)
}

// CloseBuilder closes a builder session and drops its state
// @Summary Close Builder
// @Tags Builder
// @Produce json
// @Param session path string true "Builder session ID"
// @Success 200 {object} dto.APIResponse "Builder closed"
// @Router /api/v1/builder/{session} [delete]
func (h *BuilderHandler) CloseBuilder(c fiber.Ctx) error {
	if err := h.builderFlow.CloseBuilder(createRequestContext(c, "/api/v1/builder"), h.sessionID(c)); err != nil {
		return h.builderError(c, err, "Failed to close builder", "BUILDER_CLOSE_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Builder closed", nil)
}

// GetState returns the current builder session state
// @Summary Builder State
// @Tags Builder
// @Produce json
// @Param session path string true "Builder session ID"
// @Success 200 {object} dto.APIResponse{data=dto.BuilderStateResponse} "Builder state"
// @Failure 404 {object} dto.APIResponse "Builder session is not open"
// @Router /api/v1/builder/{session} [get]
func (h *BuilderHandler) GetState(c fiber.Ctx) error {
	result, err := h.builderFlow.GetState(createRequestContext(c, "/api/v1/builder"), h.sessionID(c))
	if err != nil {
		return h.builderError(c, err, "Failed to get builder state", "BUILDER_STATE_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Builder state", result)
}

// SetStep moves the wizard directly to a step without validation
// @Summary Set Builder Step
// @Tags Builder
// @Accept json
// @Produce json
// @Param session path string true "Builder session ID"
// @Param request body dto.SetBuilderStepRequest true "Target step"
// @Success 200 {object} dto.APIResponse{data=dto.BuilderStateResponse} "Step changed"
// @Failure 400 {object} dto.APIResponse "Unknown builder step"
// @Router /api/v1/builder/{session}/step [put]
func (h *BuilderHandler) SetStep(c fiber.Ctx) error {
	req, err := h.bindStepRequest(c)
	if err != nil {
		return err
	}

	result, flowErr := h.builderFlow.SetStep(createRequestContext(c, "/api/v1/builder/step"), req)
	if flowErr != nil {
		return h.builderError(c, flowErr, "Failed to set builder step", "BUILDER_STEP_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Step changed", result)
}

// StepClick handles a click on the wizard step indicator. Only steps at or
// before the current one are reachable this way.
// @Summary Builder Step Click
// @Tags Builder
// @Accept json
// @Produce json
// @Param session path string true "Builder session ID"
// @Param request body dto.SetBuilderStepRequest true "Clicked step"
// @Success 200 {object} dto.APIResponse{data=dto.BuilderStateResponse} "Step changed"
// @Failure 403 {object} dto.APIResponse "Forward navigation must go through Next"
// @Router /api/v1/builder/{session}/step-click [post]
func (h *BuilderHandler) StepClick(c fiber.Ctx) error {
	req, err := h.bindStepRequest(c)
	if err != nil {
		return err
	}

	result, flowErr := h.builderFlow.HandleStepClick(createRequestContext(c, "/api/v1/builder/step-click"), req)
	if flowErr != nil {
		return h.builderError(c, flowErr, "Failed to handle step click", "BUILDER_STEP_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Step changed", result)
}

// NextStep validates the current step and advances on success
// @Summary Builder Next
// @Tags Builder
// @Produce json
// @Param session path string true "Builder session ID"
// @Success 200 {object} dto.APIResponse{data=dto.BuilderStateResponse} "Step advanced or validation errors set"
// @Router /api/v1/builder/{session}/next [post]
func (h *BuilderHandler) NextStep(c fiber.Ctx) error {
	result, err := h.builderFlow.HandleNext(createRequestContext(c, "/api/v1/builder/next"), h.sessionID(c))
	if err != nil {
		return h.builderError(c, err, "Failed to advance builder", "BUILDER_NEXT_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Builder advanced", result)
}

// BackStep moves the wizard one step back without validation
// @Summary Builder Back
// @Tags Builder
// @Produce json
// @Param session path string true "Builder session ID"
// @Success 200 {object} dto.APIResponse{data=dto.BuilderStateResponse} "Step moved back"
// @Router /api/v1/builder/{session}/back [post]
func (h *BuilderHandler) BackStep(c fiber.Ctx) error {
	result, err := h.builderFlow.HandleBack(createRequestContext(c, "/api/v1/builder/back"), h.sessionID(c))
	if err != nil {
		return h.builderError(c, err, "Failed to move builder back", "BUILDER_BACK_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Builder moved back", result)
}

// UpdateDraft merges partial fields into the builder draft
// @Summary Update Builder Draft
// @Tags Builder
// @Accept json
// @Produce json
// @Param session path string true "Builder session ID"
// @Param request body dto.UpdateDraftRequest true "Draft fields"
// @Success 200 {object} dto.APIResponse{data=dto.BuilderStateResponse} "Draft updated"
// @Router /api/v1/builder/{session}/draft [patch]
func (h *BuilderHandler) UpdateDraft(c fiber.Ctx) error {
	var req dto.UpdateDraftRequest
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

	req.SessionID = h.sessionID(c)

	result, err := h.builderFlow.UpdateDraft(createRequestContext(c, "/api/v1/builder/draft"), &req)
	if err != nil {
		return h.builderError(c, err, "Failed to update draft", "DRAFT_UPDATE_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Draft updated", result)
}

// ClearValidationError removes a single field's validation error
// @Summary Clear Builder Validation Error
// @Tags Builder
// @Accept json
// @Produce json
// @Param session path string true "Builder session ID"
// @Param request body dto.ClearValidationErrorRequest true "Field name"
// @Success 200 {object} dto.APIResponse{data=dto.BuilderStateResponse} "Error cleared"
// @Router /api/v1/builder/{session}/clear-error [post]
func (h *BuilderHandler) ClearValidationError(c fiber.Ctx) error {
	var req dto.ClearValidationErrorRequest
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

	req.SessionID = h.sessionID(c)

	result, err := h.builderFlow.ClearValidationError(createRequestContext(c, "/api/v1/builder/clear-error"), &req)
	if err != nil {
		return h.builderError(c, err, "Failed to clear validation error", "CLEAR_ERROR_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Error cleared", result)
}

// SaveDraft persists the builder draft as a campaign without launching it
// @Summary Save Builder Draft
// @Tags Builder
// @Produce json
// @Param session path string true "Builder session ID"
// @Success 200 {object} dto.APIResponse{data=dto.BuilderActionResponse} "Draft saved"
// @Router /api/v1/builder/{session}/save [post]
func (h *BuilderHandler) SaveDraft(c fiber.Ctx) error {
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	adminID, ok := c.Locals("admin_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Admin ID not found in context", "MISSING_ADMIN_ID", nil)
	}

	result, err := h.builderFlow.SaveDraft(createRequestContext(c, "/api/v1/builder/save"), h.sessionID(c), adminID, metadata)
	if err != nil {
		return h.builderError(c, err, "Failed to save draft", "DRAFT_SAVE_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Draft saved", result)
}

// SendFromBuilder validates the whole draft and launches it immediately
// @Summary Send From Builder
// @Tags Builder
// @Produce json
// @Param session path string true "Builder session ID"
// @Success 200 {object} dto.APIResponse{data=dto.BuilderActionResponse} "Campaign sent"
// @Failure 422 {object} dto.APIResponse "Draft has validation errors"
// @Router /api/v1/builder/{session}/send [post]
func (h *BuilderHandler) SendFromBuilder(c fiber.Ctx) error {
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	adminID, ok := c.Locals("admin_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Admin ID not found in context", "MISSING_ADMIN_ID", nil)
	}

	ctx := createRequestContextWithTimeout(c, "/api/v1/builder/send", sendTimeout)
	result, err := h.builderFlow.SendFromBuilder(ctx, h.sessionID(c), adminID, metadata)
	if err != nil {
		return h.builderError(c, err, "Failed to send campaign", "CAMPAIGN_SEND_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Campaign sent", result)
}

// ScheduleFromBuilder validates the whole draft and schedules it
// @Summary Schedule From Builder
// @Tags Builder
// @Accept json
// @Produce json
// @Param session path string true "Builder session ID"
// @Param request body dto.BuilderScheduleRequest true "Schedule date"
// @Success 200 {object} dto.APIResponse{data=dto.BuilderActionResponse} "Campaign scheduled"
// @Failure 422 {object} dto.APIResponse "Draft has validation errors"
// @Router /api/v1/builder/{session}/schedule [post]
func (h *BuilderHandler) ScheduleFromBuilder(c fiber.Ctx) error {
	var req dto.BuilderScheduleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	adminID, ok := c.Locals("admin_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Admin ID not found in context", "MISSING_ADMIN_ID", nil)
	}
	req.SessionID = h.sessionID(c)
	req.AdminID = adminID

	result, err := h.builderFlow.ScheduleFromBuilder(createRequestContext(c, "/api/v1/builder/schedule"), &req, metadata)
	if err != nil {
		return h.builderError(c, err, "Failed to schedule campaign", "CAMPAIGN_SCHEDULE_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Campaign scheduled", result)
}

// bindStepRequest binds and validates a step change request
func (h *BuilderHandler) bindStepRequest(c fiber.Ctx) (*dto.SetBuilderStepRequest, error) {
	var req dto.SetBuilderStepRequest
	if err := c.Bind().JSON(&req); err != nil {
		return nil, h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return nil, h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	req.SessionID = h.sessionID(c)
	return &req, nil
}
