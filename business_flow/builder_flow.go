package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/thorbis/campaigns/app/dto"
	"github.com/thorbis/campaigns/models"
	"github.com/thorbis/campaigns/repository"
	"github.com/thorbis/campaigns/utils"
)

// BuilderObserver is notified after every committed mutation of a session
type BuilderObserver func(sessionID string, state BuilderState)

// BuilderStore holds builder sessions keyed by session ID. Mutations are
// applied atomically under the lock, so two transitions of the same session
// cannot interleave. Redis carries a best-effort copy for draft resume.
type BuilderStore struct {
	mu        sync.RWMutex
	sessions  map[string]*BuilderState
	observers []BuilderObserver
	rc        *redis.Client
	ttl       time.Duration
}

// NewBuilderStore creates a builder session store. rc may be nil.
func NewBuilderStore(rc *redis.Client, ttl time.Duration) *BuilderStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &BuilderStore{
		sessions: make(map[string]*BuilderState),
		rc:       rc,
		ttl:      ttl,
	}
}

// Subscribe registers an observer invoked after each committed mutation
func (s *BuilderStore) Subscribe(observer BuilderObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, observer)
}

// Get returns a copy of a session's state. When the session is not in memory
// it is restored from Redis if a persisted copy exists.
func (s *BuilderStore) Get(ctx context.Context, sessionID string) (BuilderState, bool) {
	s.mu.RLock()
	state, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return *state, true
	}

	if s.rc == nil {
		return BuilderState{}, false
	}

	raw, err := s.rc.Get(ctx, builderCacheKey(sessionID)).Bytes()
	if err != nil {
		return BuilderState{}, false
	}

	var restored BuilderState
	if err := json.Unmarshal(raw, &restored); err != nil {
		return BuilderState{}, false
	}

	s.mu.Lock()
	s.sessions[sessionID] = &restored
	s.mu.Unlock()

	return restored, true
}

// Mutate applies fn to a session's state under the lock and notifies
// observers with the committed result. The session is created when absent.
func (s *BuilderStore) Mutate(ctx context.Context, sessionID string, fn func(*BuilderState) error) (BuilderState, error) {
	s.mu.Lock()

	state, ok := s.sessions[sessionID]
	if !ok {
		fresh := BuilderState{ValidationErrors: map[string]string{}, Draft: NewCampaignDraft()}
		state = &fresh
		s.sessions[sessionID] = state
	}

	if err := fn(state); err != nil {
		s.mu.Unlock()
		return BuilderState{}, err
	}

	committed := *state
	observers := append([]BuilderObserver{}, s.observers...)
	s.mu.Unlock()

	for _, observer := range observers {
		observer(sessionID, committed)
	}

	s.writeThrough(ctx, sessionID, committed)

	return committed, nil
}

// Drop removes a session from memory and Redis
func (s *BuilderStore) Drop(ctx context.Context, sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if s.rc != nil {
		_ = s.rc.Del(ctx, builderCacheKey(sessionID)).Err()
	}
}

// writeThrough persists the committed state to Redis, best effort
func (s *BuilderStore) writeThrough(ctx context.Context, sessionID string, state BuilderState) {
	if s.rc == nil {
		return
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return
	}
	_ = s.rc.Set(ctx, builderCacheKey(sessionID), raw, s.ttl).Err()
}

func builderCacheKey(sessionID string) string {
	return fmt.Sprintf("builder:session:%s", sessionID)
}

// BuilderFlow handles the campaign builder wizard state machine
type BuilderFlow interface {
	OpenBuilder(ctx context.Context, req *dto.OpenBuilderRequest, metadata *ClientMetadata) (*dto.BuilderStateResponse, error)
	CloseBuilder(ctx context.Context, sessionID string) error
	GetState(ctx context.Context, sessionID string) (*dto.BuilderStateResponse, error)
	SetStep(ctx context.Context, req *dto.SetBuilderStepRequest) (*dto.BuilderStateResponse, error)
	HandleStepClick(ctx context.Context, req *dto.SetBuilderStepRequest) (*dto.BuilderStateResponse, error)
	HandleNext(ctx context.Context, sessionID string) (*dto.BuilderStateResponse, error)
	HandleBack(ctx context.Context, sessionID string) (*dto.BuilderStateResponse, error)
	UpdateDraft(ctx context.Context, req *dto.UpdateDraftRequest) (*dto.BuilderStateResponse, error)
	ClearValidationError(ctx context.Context, req *dto.ClearValidationErrorRequest) (*dto.BuilderStateResponse, error)
	SaveDraft(ctx context.Context, sessionID string, adminID uint, metadata *ClientMetadata) (*dto.BuilderActionResponse, error)
	SendFromBuilder(ctx context.Context, sessionID string, adminID uint, metadata *ClientMetadata) (*dto.BuilderActionResponse, error)
	ScheduleFromBuilder(ctx context.Context, req *dto.BuilderScheduleRequest, metadata *ClientMetadata) (*dto.BuilderActionResponse, error)
}

// BuilderFlowImpl implements the builder wizard flow
type BuilderFlowImpl struct {
	store        *BuilderStore
	campaignRepo repository.CampaignRepository
	deliveryFlow DeliveryFlow
	campaignFlow CampaignFlow
}

// NewBuilderFlow creates a new builder flow instance
func NewBuilderFlow(
	store *BuilderStore,
	campaignRepo repository.CampaignRepository,
	deliveryFlow DeliveryFlow,
	campaignFlow CampaignFlow,
) BuilderFlow {
	return &BuilderFlowImpl{
		store:        store,
		campaignRepo: campaignRepo,
		deliveryFlow: deliveryFlow,
		campaignFlow: campaignFlow,
	}
}

// OpenBuilder opens a session on the details step. When an existing campaign
// resolves, the draft is populated from it; otherwise the draft resets to
// defaults. Either way isDirty and validation errors are cleared.
func (f *BuilderFlowImpl) OpenBuilder(ctx context.Context, req *dto.OpenBuilderRequest, metadata *ClientMetadata) (*dto.BuilderStateResponse, error) {
	var editing *models.Campaign
	if req.CampaignID != nil && *req.CampaignID != "" {
		campaign, err := f.campaignRepo.ByUUID(ctx, *req.CampaignID)
		if err != nil {
			return nil, NewBusinessError("OPEN_BUILDER_FAILED", "Failed to open builder", err)
		}
		editing = campaign
	}

	state, err := f.store.Mutate(ctx, req.SessionID, func(s *BuilderState) error {
		*s = NewBuilderState()
		if editing != nil {
			s.Draft = DraftFromCampaign(editing)
			s.EditingCampaignID = utils.ToPtr(editing.UUID.String())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return f.stateResponse(req.SessionID, state, "Builder opened"), nil
}

// CloseBuilder closes the session and resets the draft
func (f *BuilderFlowImpl) CloseBuilder(ctx context.Context, sessionID string) error {
	f.store.Drop(ctx, sessionID)
	return nil
}

// GetState returns the current session state
func (f *BuilderFlowImpl) GetState(ctx context.Context, sessionID string) (*dto.BuilderStateResponse, error) {
	state, ok := f.store.Get(ctx, sessionID)
	if !ok || !state.IsOpen {
		return nil, NewBusinessError("BUILDER_NOT_OPEN", "Builder is not open", ErrBuilderNotOpen)
	}
	return f.stateResponse(sessionID, state, "Builder state retrieved"), nil
}

// SetStep jumps directly to a step, without validation. The HTTP surface uses
// it only for backward navigation; forward movement goes through HandleNext.
func (f *BuilderFlowImpl) SetStep(ctx context.Context, req *dto.SetBuilderStepRequest) (*dto.BuilderStateResponse, error) {
	step, err := ParseBuilderStep(req.Step)
	if err != nil {
		return nil, NewBusinessError("BUILDER_STEP_INVALID", "Builder step is invalid", err)
	}

	state, err := f.mutateOpen(ctx, req.SessionID, func(s *BuilderState) error {
		s.CurrentStep = step
		return nil
	})
	if err != nil {
		return nil, err
	}

	return f.stateResponse(req.SessionID, state, "Builder step changed"), nil
}

// HandleStepClick honors a click on the step indicator: allowed only when the
// target step's index does not exceed the current one.
func (f *BuilderFlowImpl) HandleStepClick(ctx context.Context, req *dto.SetBuilderStepRequest) (*dto.BuilderStateResponse, error) {
	step, err := ParseBuilderStep(req.Step)
	if err != nil {
		return nil, NewBusinessError("BUILDER_STEP_INVALID", "Builder step is invalid", err)
	}

	state, err := f.mutateOpen(ctx, req.SessionID, func(s *BuilderState) error {
		if step.Index() > s.CurrentStep.Index() {
			return ErrForwardStepClick
		}
		s.CurrentStep = step
		return nil
	})
	if err != nil {
		if IsForwardStepClick(err) {
			return nil, NewBusinessError("BUILDER_FORWARD_STEP", "Cannot jump forward past the current step", err)
		}
		return nil, err
	}

	return f.stateResponse(req.SessionID, state, "Builder step changed"), nil
}

// HandleNext validates the current step and advances on success. A failing
// step replaces the whole validation error map and leaves the step unchanged.
func (f *BuilderFlowImpl) HandleNext(ctx context.Context, sessionID string) (*dto.BuilderStateResponse, error) {
	var blocked bool
	state, err := f.mutateOpen(ctx, sessionID, func(s *BuilderState) error {
		errs, ok := ValidateStep(s.CurrentStep, s.Draft)
		if !ok {
			s.ValidationErrors = errs
			blocked = true
			return nil
		}
		if next, ok := s.CurrentStep.Next(); ok {
			s.CurrentStep = next
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	message := "Builder advanced"
	if blocked {
		message = "Step validation failed"
	}
	return f.stateResponse(sessionID, state, message), nil
}

// HandleBack moves to the previous step; no-op on the first step
func (f *BuilderFlowImpl) HandleBack(ctx context.Context, sessionID string) (*dto.BuilderStateResponse, error) {
	state, err := f.mutateOpen(ctx, sessionID, func(s *BuilderState) error {
		if prev, ok := s.CurrentStep.Prev(); ok {
			s.CurrentStep = prev
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return f.stateResponse(sessionID, state, "Builder moved back"), nil
}

// UpdateDraft merges partial fields into the draft and marks the session
// dirty. Validation errors are left untouched; clearing them is explicit.
func (f *BuilderFlowImpl) UpdateDraft(ctx context.Context, req *dto.UpdateDraftRequest) (*dto.BuilderStateResponse, error) {
	update, err := draftUpdateFromRequest(req)
	if err != nil {
		return nil, err
	}

	state, err := f.mutateOpen(ctx, req.SessionID, func(s *BuilderState) error {
		s.Draft = MergeDraft(s.Draft, update)
		s.IsDirty = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	return f.stateResponse(req.SessionID, state, "Draft updated"), nil
}

// ClearValidationError removes one field's error without touching the others
func (f *BuilderFlowImpl) ClearValidationError(ctx context.Context, req *dto.ClearValidationErrorRequest) (*dto.BuilderStateResponse, error) {
	state, err := f.mutateOpen(ctx, req.SessionID, func(s *BuilderState) error {
		delete(s.ValidationErrors, req.Field)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return f.stateResponse(req.SessionID, state, "Validation error cleared"), nil
}

// SaveDraft persists the draft as-is, with no validation
func (f *BuilderFlowImpl) SaveDraft(ctx context.Context, sessionID string, adminID uint, metadata *ClientMetadata) (*dto.BuilderActionResponse, error) {
	state, ok := f.store.Get(ctx, sessionID)
	if !ok || !state.IsOpen {
		return nil, NewBusinessError("BUILDER_NOT_OPEN", "Builder is not open", ErrBuilderNotOpen)
	}

	campaign, err := f.persistDraft(ctx, sessionID, state, adminID, metadata)
	if err != nil {
		return nil, err
	}

	committed, err := f.mutateOpen(ctx, sessionID, func(s *BuilderState) error {
		s.EditingCampaignID = utils.ToPtr(campaign.UUID)
		s.IsDirty = false
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &dto.BuilderActionResponse{
		Message:  "Draft saved",
		State:    toBuilderStateDTO(sessionID, committed),
		Campaign: campaign,
	}, nil
}

// SendFromBuilder revalidates details, content and audience, then hands the
// persisted draft to the delivery flow. A validation failure mutates only the
// error map, never the draft.
func (f *BuilderFlowImpl) SendFromBuilder(ctx context.Context, sessionID string, adminID uint, metadata *ClientMetadata) (*dto.BuilderActionResponse, error) {
	state, ok := f.store.Get(ctx, sessionID)
	if !ok || !state.IsOpen {
		return nil, NewBusinessError("BUILDER_NOT_OPEN", "Builder is not open", ErrBuilderNotOpen)
	}

	if errs, ok := ValidateForLaunch(state.Draft); !ok {
		committed, err := f.mutateOpen(ctx, sessionID, func(s *BuilderState) error {
			s.ValidationErrors = errs
			return nil
		})
		if err != nil {
			return nil, err
		}
		return &dto.BuilderActionResponse{
			Message: "Draft validation failed",
			State:   toBuilderStateDTO(sessionID, committed),
		}, NewBusinessError("DRAFT_VALIDATION_FAILED", "Draft validation failed", ErrDraftValidationFail)
	}

	campaign, err := f.persistDraft(ctx, sessionID, state, adminID, metadata)
	if err != nil {
		return nil, err
	}

	sendResp, err := f.deliveryFlow.SendCampaign(ctx, &dto.SendCampaignRequest{UUID: campaign.UUID, AdminID: adminID}, metadata)
	if err != nil {
		return nil, err
	}

	committed, err := f.mutateOpen(ctx, sessionID, func(s *BuilderState) error {
		s.EditingCampaignID = utils.ToPtr(campaign.UUID)
		s.IsDirty = false
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &dto.BuilderActionResponse{
		Message:  "Campaign sent",
		State:    toBuilderStateDTO(sessionID, committed),
		Campaign: &sendResp.Campaign,
	}, nil
}

// ScheduleFromBuilder is SendFromBuilder's scheduling variant: the same
// revalidation plus a non-empty date requirement, reported under "schedule".
func (f *BuilderFlowImpl) ScheduleFromBuilder(ctx context.Context, req *dto.BuilderScheduleRequest, metadata *ClientMetadata) (*dto.BuilderActionResponse, error) {
	state, ok := f.store.Get(ctx, req.SessionID)
	if !ok || !state.IsOpen {
		return nil, NewBusinessError("BUILDER_NOT_OPEN", "Builder is not open", ErrBuilderNotOpen)
	}

	errs, _ := ValidateForLaunch(state.Draft)
	if req.Date == nil {
		errs["schedule"] = "Please select a date"
	}
	if len(errs) > 0 {
		committed, err := f.mutateOpen(ctx, req.SessionID, func(s *BuilderState) error {
			s.ValidationErrors = errs
			return nil
		})
		if err != nil {
			return nil, err
		}
		return &dto.BuilderActionResponse{
			Message: "Draft validation failed",
			State:   toBuilderStateDTO(req.SessionID, committed),
		}, NewBusinessError("DRAFT_VALIDATION_FAILED", "Draft validation failed", ErrDraftValidationFail)
	}

	campaign, err := f.persistDraft(ctx, req.SessionID, state, req.AdminID, metadata)
	if err != nil {
		return nil, err
	}

	scheduleResp, err := f.deliveryFlow.ScheduleCampaign(ctx, &dto.ScheduleCampaignRequest{
		UUID:         campaign.UUID,
		AdminID:      req.AdminID,
		ScheduledFor: req.Date,
	}, metadata)
	if err != nil {
		return nil, err
	}

	committed, err := f.mutateOpen(ctx, req.SessionID, func(s *BuilderState) error {
		s.EditingCampaignID = utils.ToPtr(campaign.UUID)
		s.IsDirty = false
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &dto.BuilderActionResponse{
		Message:  "Campaign scheduled",
		State:    toBuilderStateDTO(req.SessionID, committed),
		Campaign: &scheduleResp.Campaign,
	}, nil
}

// persistDraft creates or updates the campaign backing this session
func (f *BuilderFlowImpl) persistDraft(ctx context.Context, sessionID string, state BuilderState, adminID uint, metadata *ClientMetadata) (*dto.CampaignDTO, error) {
	draft := state.Draft

	var audienceType *string
	if draft.AudienceType != nil {
		audienceType = utils.ToPtr(draft.AudienceType.String())
	}

	if state.EditingCampaignID != nil {
		resp, err := f.campaignFlow.UpdateCampaign(ctx, &dto.UpdateCampaignRequest{
			UUID:             *state.EditingCampaignID,
			AdminID:          adminID,
			Name:             &draft.Name,
			Subject:          &draft.Subject,
			PreviewText:      &draft.PreviewText,
			HTMLContent:      &draft.HTMLContent,
			PlainTextContent: &draft.PlainTextContent,
			TemplateID:       draft.TemplateID,
			FromName:         &draft.FromName,
			FromEmail:        &draft.FromEmail,
			ReplyTo:          &draft.ReplyTo,
			AudienceType:     audienceType,
			AudienceFilter:   &draft.AudienceFilter,
			Tags:             draft.Tags,
			Notes:            &draft.Notes,
		}, metadata)
		if err != nil {
			return nil, err
		}
		return &resp.Campaign, nil
	}

	resp, err := f.campaignFlow.CreateCampaign(ctx, &dto.CreateCampaignRequest{
		AdminID:          adminID,
		Name:             draft.Name,
		Subject:          draft.Subject,
		PreviewText:      &draft.PreviewText,
		HTMLContent:      &draft.HTMLContent,
		PlainTextContent: &draft.PlainTextContent,
		TemplateID:       draft.TemplateID,
		FromName:         &draft.FromName,
		FromEmail:        &draft.FromEmail,
		ReplyTo:          &draft.ReplyTo,
		AudienceType:     audienceType,
		AudienceFilter:   &draft.AudienceFilter,
		Tags:             draft.Tags,
		Notes:            &draft.Notes,
	}, metadata)
	if err != nil {
		return nil, err
	}
	return &resp.Campaign, nil
}

// mutateOpen mutates a session that must already be open
func (f *BuilderFlowImpl) mutateOpen(ctx context.Context, sessionID string, fn func(*BuilderState) error) (BuilderState, error) {
	if _, ok := f.store.Get(ctx, sessionID); !ok {
		return BuilderState{}, NewBusinessError("BUILDER_NOT_OPEN", "Builder is not open", ErrBuilderNotOpen)
	}

	return f.store.Mutate(ctx, sessionID, func(s *BuilderState) error {
		if !s.IsOpen {
			return ErrBuilderNotOpen
		}
		return fn(s)
	})
}

func (f *BuilderFlowImpl) stateResponse(sessionID string, state BuilderState, message string) *dto.BuilderStateResponse {
	return &dto.BuilderStateResponse{
		Message: message,
		State:   toBuilderStateDTO(sessionID, state),
	}
}

// toBuilderStateDTO maps a session state to its API representation
func toBuilderStateDTO(sessionID string, state BuilderState) dto.BuilderStateDTO {
	var audienceType *string
	if state.Draft.AudienceType != nil {
		audienceType = utils.ToPtr(state.Draft.AudienceType.String())
	}

	errs := make(map[string]string, len(state.ValidationErrors))
	for field, msg := range state.ValidationErrors {
		errs[field] = msg
	}

	return dto.BuilderStateDTO{
		SessionID:         sessionID,
		IsOpen:            state.IsOpen,
		CurrentStep:       state.CurrentStep.String(),
		EditingCampaignID: state.EditingCampaignID,
		IsDirty:           state.IsDirty,
		ValidationErrors:  errs,
		Draft: dto.CampaignDraftDTO{
			Name:             state.Draft.Name,
			Subject:          state.Draft.Subject,
			PreviewText:      state.Draft.PreviewText,
			HTMLContent:      state.Draft.HTMLContent,
			PlainTextContent: state.Draft.PlainTextContent,
			TemplateID:       state.Draft.TemplateID,
			FromName:         state.Draft.FromName,
			FromEmail:        state.Draft.FromEmail,
			ReplyTo:          state.Draft.ReplyTo,
			AudienceType:     audienceType,
			AudienceFilter:   state.Draft.AudienceFilter,
			Tags:             append([]string{}, state.Draft.Tags...),
			Notes:            state.Draft.Notes,
			ScheduledFor:     state.Draft.ScheduledFor,
		},
	}
}

// draftUpdateFromRequest converts the API partial update into a DraftUpdate
func draftUpdateFromRequest(req *dto.UpdateDraftRequest) (DraftUpdate, error) {
	update := DraftUpdate{
		Name:             req.Name,
		Subject:          req.Subject,
		PreviewText:      req.PreviewText,
		HTMLContent:      req.HTMLContent,
		PlainTextContent: req.PlainTextContent,
		TemplateID:       req.TemplateID,
		FromName:         req.FromName,
		FromEmail:        req.FromEmail,
		ReplyTo:          req.ReplyTo,
		AudienceFilter:   req.AudienceFilter,
		Tags:             req.Tags,
		Notes:            req.Notes,
		ScheduledFor:     req.ScheduledFor,
	}

	if req.AudienceType != nil {
		audienceType := models.AudienceType(*req.AudienceType)
		if !audienceType.Valid() {
			return DraftUpdate{}, NewBusinessError("AUDIENCE_TYPE_INVALID", "Unknown audience type", ErrUnknownAudienceType)
		}
		update.AudienceType = &audienceType
	}

	return update, nil
}
