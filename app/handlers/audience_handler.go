package handlers

import (
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/thorbis/campaigns/app/dto"
	businessflow "github.com/thorbis/campaigns/business_flow"
)

// AudienceHandlerInterface defines the contract for audience handlers
type AudienceHandlerInterface interface {
	PreviewAudience(c fiber.Ctx) error
}

// AudienceHandler handles audience-related HTTP requests
type AudienceHandler struct {
	audienceFlow businessflow.AudienceFlow
	validator    *validator.Validate
}

// NewAudienceHandler creates a new audience handler
func NewAudienceHandler(audienceFlow businessflow.AudienceFlow) *AudienceHandler {
	return &AudienceHandler{
		audienceFlow: audienceFlow,
		validator:    validator.New(),
	}
}

func (h *AudienceHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *AudienceHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// PreviewAudience resolves an audience and returns the count plus a sample
// @Summary Preview Audience
// @Description Resolve an audience type and filter into a recipient count and sample
// @Tags Audience
// @Accept json
// @Produce json
// @Param request body dto.PreviewAudienceRequest true "Audience parameters"
// @Success 200 {object} dto.APIResponse{data=dto.PreviewAudienceResponse} "Audience preview generated"
// @Failure 400 {object} dto.APIResponse "Unknown audience type"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/audience/preview [post]
func (h *AudienceHandler) PreviewAudience(c fiber.Ctx) error {
	var req dto.PreviewAudienceRequest
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

	result, err := h.audienceFlow.PreviewAudience(createRequestContext(c, "/api/v1/audience/preview"), &req)
	if err != nil {
		if businessflow.IsUnknownAudienceType(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Unknown audience type", "AUDIENCE_TYPE_INVALID", nil)
		}

		log.Println("Audience preview failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Audience preview failed", "AUDIENCE_PREVIEW_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Audience preview generated", result)
}
