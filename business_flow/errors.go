// Package businessflow contains the core business logic and use cases for campaign workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Campaign-related errors
	ErrCampaignNotFound        = errors.New("campaign not found")
	ErrCampaignNameRequired    = errors.New("campaign name is required")
	ErrCampaignSubjectRequired = errors.New("campaign subject is required")
	ErrCampaignContentRequired = errors.New("campaign content is required")
	ErrAudienceTypeRequired    = errors.New("audience type is required")
	ErrCampaignUpdateRequired  = errors.New("at least one field must be provided for update")
	ErrCampaignUUIDRequired    = errors.New("campaign UUID is required")
	ErrCampaignNotEditable     = errors.New("only draft campaigns can be edited")
	ErrCampaignNotDeletable    = errors.New("only draft campaigns can be deleted")

	// Delivery errors
	ErrOnlyDraftCanBeSent      = errors.New("only draft campaigns can be sent")
	ErrOnlyDraftCanBeScheduled = errors.New("only draft campaigns can be scheduled")
	ErrCampaignNotScheduled    = errors.New("campaign is not scheduled")
	ErrCampaignNotSending      = errors.New("campaign is not sending")
	ErrCampaignNotPaused       = errors.New("campaign is not paused")
	ErrNoRecipients            = errors.New("audience resolved to zero recipients")
	ErrScheduleTimeNotPresent  = errors.New("schedule time is not present")
	ErrScheduleTimeTooSoon     = errors.New("schedule time is too soon")
	ErrSendRecordNotFound      = errors.New("send record not found")
	ErrUnknownCampaignEvent    = errors.New("unknown campaign event")

	// Builder errors
	ErrBuilderNotOpen      = errors.New("builder is not open")
	ErrBuilderStepInvalid  = errors.New("builder step is invalid")
	ErrBuilderStepBlocked  = errors.New("builder step validation failed")
	ErrForwardStepClick    = errors.New("cannot jump forward past the current step")
	ErrDraftValidationFail = errors.New("draft validation failed")

	// Audience errors
	ErrUnknownAudienceType = errors.New("unknown audience type")

	// Cache errors
	ErrCacheNotAvailable = errors.New("cache not available")

	// Filter errors
	ErrInvalidPage           = errors.New("page must be at least 1")
	ErrInvalidPageSize       = errors.New("page size must be between 1 and 100")
	ErrStartDateAfterEndDate = errors.New("start date cannot be after end date")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsCampaignNotFound(err error) bool {
	return errors.Is(err, ErrCampaignNotFound)
}

func IsCampaignNotEditable(err error) bool {
	return errors.Is(err, ErrCampaignNotEditable)
}

func IsCampaignNotDeletable(err error) bool {
	return errors.Is(err, ErrCampaignNotDeletable)
}

func IsOnlyDraftCanBeSent(err error) bool {
	return errors.Is(err, ErrOnlyDraftCanBeSent)
}

func IsOnlyDraftCanBeScheduled(err error) bool {
	return errors.Is(err, ErrOnlyDraftCanBeScheduled)
}

func IsCampaignNotScheduled(err error) bool {
	return errors.Is(err, ErrCampaignNotScheduled)
}

func IsCampaignNotSending(err error) bool {
	return errors.Is(err, ErrCampaignNotSending)
}

func IsCampaignNotPaused(err error) bool {
	return errors.Is(err, ErrCampaignNotPaused)
}

func IsNoRecipients(err error) bool {
	return errors.Is(err, ErrNoRecipients)
}

func IsScheduleTimeNotPresent(err error) bool {
	return errors.Is(err, ErrScheduleTimeNotPresent)
}

func IsScheduleTimeTooSoon(err error) bool {
	return errors.Is(err, ErrScheduleTimeTooSoon)
}

func IsSendRecordNotFound(err error) bool {
	return errors.Is(err, ErrSendRecordNotFound)
}

func IsUnknownCampaignEvent(err error) bool {
	return errors.Is(err, ErrUnknownCampaignEvent)
}

func IsBuilderNotOpen(err error) bool {
	return errors.Is(err, ErrBuilderNotOpen)
}

func IsBuilderStepInvalid(err error) bool {
	return errors.Is(err, ErrBuilderStepInvalid)
}

func IsBuilderStepBlocked(err error) bool {
	return errors.Is(err, ErrBuilderStepBlocked)
}

func IsForwardStepClick(err error) bool {
	return errors.Is(err, ErrForwardStepClick)
}

func IsDraftValidationFail(err error) bool {
	return errors.Is(err, ErrDraftValidationFail)
}

func IsUnknownAudienceType(err error) bool {
	return errors.Is(err, ErrUnknownAudienceType)
}

func IsCampaignUpdateRequired(err error) bool {
	return errors.Is(err, ErrCampaignUpdateRequired)
}

func IsCampaignUUIDRequired(err error) bool {
	return errors.Is(err, ErrCampaignUUIDRequired)
}
