package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thorbis/campaigns/app/dto"
	"github.com/thorbis/campaigns/models"
	"github.com/thorbis/campaigns/utils"
)

func newTestBuilderFlow() BuilderFlow {
	return NewBuilderFlow(NewBuilderStore(nil, time.Hour), nil, nil, nil)
}

func testMetadata() *ClientMetadata {
	return NewClientMetadata("127.0.0.1", "test-agent")
}

func TestBuilderStepOrder(t *testing.T) {
	assert.Equal(t, 0, StepDetails.Index())
	assert.Equal(t, 1, StepContent.Index())
	assert.Equal(t, 2, StepAudience.Index())
	assert.Equal(t, 3, StepReview.Index())
	assert.Equal(t, -1, BuilderStep("summary").Index())

	next, ok := StepDetails.Next()
	require.True(t, ok)
	assert.Equal(t, StepContent, next)

	_, ok = StepReview.Next()
	assert.False(t, ok)

	prev, ok := StepContent.Prev()
	require.True(t, ok)
	assert.Equal(t, StepDetails, prev)

	_, ok = StepDetails.Prev()
	assert.False(t, ok)
}

func TestValidateStep(t *testing.T) {
	t.Run("DetailsRequiresNameAndSubject", func(t *testing.T) {
		errs, ok := ValidateStep(StepDetails, CampaignDraft{Name: "   ", Subject: ""})
		assert.False(t, ok)
		assert.Equal(t, "Campaign name is required", errs["name"])
		assert.Equal(t, "Subject line is required", errs["subject"])

		errs, ok = ValidateStep(StepDetails, CampaignDraft{Name: "Launch", Subject: "Hello"})
		assert.True(t, ok)
		assert.Empty(t, errs)
	})

	t.Run("ContentAcceptsTemplateInsteadOfHTML", func(t *testing.T) {
		_, ok := ValidateStep(StepContent, CampaignDraft{})
		assert.False(t, ok)

		_, ok = ValidateStep(StepContent, CampaignDraft{HTMLContent: "<p>hi</p>"})
		assert.True(t, ok)

		_, ok = ValidateStep(StepContent, CampaignDraft{TemplateID: utils.ToPtr("welcome-v2")})
		assert.True(t, ok)
	})

	t.Run("AudienceRequiresSelection", func(t *testing.T) {
		errs, ok := ValidateStep(StepAudience, CampaignDraft{})
		assert.False(t, ok)
		assert.Equal(t, "Please select an audience", errs["audience"])

		_, ok = ValidateStep(StepAudience, CampaignDraft{AudienceType: utils.ToPtr(models.AudienceTypeWaitlist)})
		assert.True(t, ok)
	})

	t.Run("ReviewHasNoIntrinsicValidation", func(t *testing.T) {
		_, ok := ValidateStep(StepReview, CampaignDraft{})
		assert.True(t, ok)
	})
}

func TestOpenBuilderDefaults(t *testing.T) {
	flow := newTestBuilderFlow()
	ctx := context.Background()

	resp, err := flow.OpenBuilder(ctx, &dto.OpenBuilderRequest{SessionID: "s1"}, testMetadata())
	require.NoError(t, err)

	state := resp.State
	assert.True(t, state.IsOpen)
	assert.Equal(t, "details", state.CurrentStep)
	assert.False(t, state.IsDirty)
	assert.Empty(t, state.ValidationErrors)
	assert.Nil(t, state.EditingCampaignID)

	require.NotNil(t, state.Draft.AudienceType)
	assert.Equal(t, "waitlist", *state.Draft.AudienceType)
	assert.True(t, utils.IsTrue(state.Draft.AudienceFilter.ExcludeUnsubscribed))
	assert.True(t, utils.IsTrue(state.Draft.AudienceFilter.ExcludeBounced))
	assert.True(t, utils.IsTrue(state.Draft.AudienceFilter.ExcludeComplained))
	assert.Equal(t, utils.DefaultFromName, state.Draft.FromName)
	assert.Equal(t, utils.DefaultFromEmail, state.Draft.FromEmail)
	assert.Empty(t, state.Draft.Tags)
}

func TestBuilderNextBlocksOnValidation(t *testing.T) {
	flow := newTestBuilderFlow()
	ctx := context.Background()

	_, err := flow.OpenBuilder(ctx, &dto.OpenBuilderRequest{SessionID: "s1"}, testMetadata())
	require.NoError(t, err)

	// Empty details must not advance
	resp, err := flow.HandleNext(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "details", resp.State.CurrentStep)
	assert.Contains(t, resp.State.ValidationErrors, "name")
	assert.Contains(t, resp.State.ValidationErrors, "subject")

	// Filling the draft lets the wizard advance
	_, err = flow.UpdateDraft(ctx, &dto.UpdateDraftRequest{
		SessionID: "s1",
		Name:      utils.ToPtr("Launch"),
		Subject:   utils.ToPtr("We are live"),
	})
	require.NoError(t, err)

	resp, err = flow.HandleNext(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "content", resp.State.CurrentStep)
}

func TestBuilderStepClick(t *testing.T) {
	flow := newTestBuilderFlow()
	ctx := context.Background()

	_, err := flow.OpenBuilder(ctx, &dto.OpenBuilderRequest{SessionID: "s1"}, testMetadata())
	require.NoError(t, err)

	// Forward clicks past the current step are rejected
	_, err = flow.HandleStepClick(ctx, &dto.SetBuilderStepRequest{SessionID: "s1", Step: "audience"})
	require.Error(t, err)
	assert.True(t, IsForwardStepClick(err))

	// Advance to content, then clicking back to details is allowed
	_, err = flow.UpdateDraft(ctx, &dto.UpdateDraftRequest{
		SessionID: "s1",
		Name:      utils.ToPtr("Launch"),
		Subject:   utils.ToPtr("We are live"),
	})
	require.NoError(t, err)
	_, err = flow.HandleNext(ctx, "s1")
	require.NoError(t, err)

	resp, err := flow.HandleStepClick(ctx, &dto.SetBuilderStepRequest{SessionID: "s1", Step: "details"})
	require.NoError(t, err)
	assert.Equal(t, "details", resp.State.CurrentStep)

	// Unknown step names are rejected before touching the session
	_, err = flow.HandleStepClick(ctx, &dto.SetBuilderStepRequest{SessionID: "s1", Step: "summary"})
	require.Error(t, err)
	assert.True(t, IsBuilderStepInvalid(err))
}

func TestBuilderBackOnFirstStep(t *testing.T) {
	flow := newTestBuilderFlow()
	ctx := context.Background()

	_, err := flow.OpenBuilder(ctx, &dto.OpenBuilderRequest{SessionID: "s1"}, testMetadata())
	require.NoError(t, err)

	resp, err := flow.HandleBack(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "details", resp.State.CurrentStep)
}

func TestBuilderDraftUpdateMarksDirty(t *testing.T) {
	flow := newTestBuilderFlow()
	ctx := context.Background()

	_, err := flow.OpenBuilder(ctx, &dto.OpenBuilderRequest{SessionID: "s1"}, testMetadata())
	require.NoError(t, err)

	resp, err := flow.UpdateDraft(ctx, &dto.UpdateDraftRequest{
		SessionID: "s1",
		Name:      utils.ToPtr("Launch"),
	})
	require.NoError(t, err)
	assert.True(t, resp.State.IsDirty)
	assert.Equal(t, "Launch", resp.State.Draft.Name)
	// Untouched fields keep their defaults
	assert.Equal(t, utils.DefaultFromEmail, resp.State.Draft.FromEmail)

	// An invalid audience type never reaches the draft
	_, err = flow.UpdateDraft(ctx, &dto.UpdateDraftRequest{
		SessionID:    "s1",
		AudienceType: utils.ToPtr("everyone"),
	})
	require.Error(t, err)
	assert.True(t, IsUnknownAudienceType(err))
}

func TestBuilderClearValidationError(t *testing.T) {
	flow := newTestBuilderFlow()
	ctx := context.Background()

	_, err := flow.OpenBuilder(ctx, &dto.OpenBuilderRequest{SessionID: "s1"}, testMetadata())
	require.NoError(t, err)

	// Provoke both detail errors
	resp, err := flow.HandleNext(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, resp.State.ValidationErrors, 2)

	resp, err = flow.ClearValidationError(ctx, &dto.ClearValidationErrorRequest{SessionID: "s1", Field: "name"})
	require.NoError(t, err)
	assert.NotContains(t, resp.State.ValidationErrors, "name")
	assert.Contains(t, resp.State.ValidationErrors, "subject")
}

func TestScheduleFromBuilderRequiresDate(t *testing.T) {
	flow := newTestBuilderFlow()
	ctx := context.Background()

	_, err := flow.OpenBuilder(ctx, &dto.OpenBuilderRequest{SessionID: "s1"}, testMetadata())
	require.NoError(t, err)

	// A complete draft with a missing date fails only on the schedule field
	_, err = flow.UpdateDraft(ctx, &dto.UpdateDraftRequest{
		SessionID:   "s1",
		Name:        utils.ToPtr("Launch"),
		Subject:     utils.ToPtr("We are live"),
		HTMLContent: utils.ToPtr("<p>hi</p>"),
	})
	require.NoError(t, err)

	resp, err := flow.ScheduleFromBuilder(ctx, &dto.BuilderScheduleRequest{SessionID: "s1", AdminID: 1}, testMetadata())
	require.Error(t, err)
	assert.True(t, IsDraftValidationFail(err))
	require.NotNil(t, resp)
	assert.Equal(t, "Please select a date", resp.State.ValidationErrors["schedule"])
}

func TestSendFromBuilderValidationFailure(t *testing.T) {
	flow := newTestBuilderFlow()
	ctx := context.Background()

	_, err := flow.OpenBuilder(ctx, &dto.OpenBuilderRequest{SessionID: "s1"}, testMetadata())
	require.NoError(t, err)

	resp, err := flow.SendFromBuilder(ctx, "s1", 1, testMetadata())
	require.Error(t, err)
	assert.True(t, IsDraftValidationFail(err))
	require.NotNil(t, resp)
	assert.Contains(t, resp.State.ValidationErrors, "name")
	assert.Contains(t, resp.State.ValidationErrors, "subject")
	assert.Contains(t, resp.State.ValidationErrors, "content")
}

func TestCloseBuilder(t *testing.T) {
	flow := newTestBuilderFlow()
	ctx := context.Background()

	_, err := flow.OpenBuilder(ctx, &dto.OpenBuilderRequest{SessionID: "s1"}, testMetadata())
	require.NoError(t, err)

	require.NoError(t, flow.CloseBuilder(ctx, "s1"))

	_, err = flow.GetState(ctx, "s1")
	require.Error(t, err)
	assert.True(t, IsBuilderNotOpen(err))
}

func TestMergeDraft(t *testing.T) {
	draft := NewCampaignDraft()
	draft.Name = "Original"
	draft.Subject = "Original subject"

	merged := MergeDraft(draft, DraftUpdate{
		Name: utils.ToPtr("Renamed"),
		Tags: []string{"launch"},
	})

	assert.Equal(t, "Renamed", merged.Name)
	assert.Equal(t, []string{"launch"}, merged.Tags)
	// Nil fields leave the draft untouched
	assert.Equal(t, "Original subject", merged.Subject)
	assert.Equal(t, utils.DefaultFromEmail, merged.FromEmail)

	// The input draft is a value; the merge never mutates the caller's copy
	assert.Equal(t, "Original", draft.Name)
}

func TestCustomAudienceEmails(t *testing.T) {
	t.Run("MergeTrimsAndDropsBlankEntries", func(t *testing.T) {
		update := DraftUpdate{
			AudienceType: utils.ToPtr(models.AudienceTypeCustom),
			AudienceFilter: &models.AudienceFilter{
				CustomEmails: []string{"   ", "  padded@example.com  ", "kept@example.com"},
			},
		}

		merged := MergeDraft(NewCampaignDraft(), update)
		assert.Equal(t, []string{"padded@example.com", "kept@example.com"}, merged.AudienceFilter.CustomEmails)

		// The caller's filter is left as authored
		assert.Equal(t, "   ", update.AudienceFilter.CustomEmails[0])
	})

	t.Run("AudienceStepRejectsAddressesWithoutAtSign", func(t *testing.T) {
		draft := NewCampaignDraft()
		draft.AudienceType = utils.ToPtr(models.AudienceTypeCustom)
		draft.AudienceFilter.CustomEmails = []string{"valid@example.com", "no-at-sign"}

		errs, ok := ValidateStep(StepAudience, draft)
		assert.False(t, ok)
		assert.Equal(t, "Custom emails must be valid email addresses", errs["audience"])

		draft.AudienceFilter.CustomEmails = []string{"valid@example.com"}
		errs, ok = ValidateStep(StepAudience, draft)
		assert.True(t, ok)
		assert.Empty(t, errs)
	})

	t.Run("OnlyCustomAudiencesAreChecked", func(t *testing.T) {
		draft := NewCampaignDraft()
		draft.AudienceFilter.CustomEmails = []string{"stale-entry"}

		// Waitlist audiences never read the custom email list
		_, ok := ValidateStep(StepAudience, draft)
		assert.True(t, ok)
	})
}

func TestValidateForLaunch(t *testing.T) {
	errs, ok := ValidateForLaunch(CampaignDraft{})
	assert.False(t, ok)
	assert.Contains(t, errs, "name")
	assert.Contains(t, errs, "subject")
	assert.Contains(t, errs, "content")
	assert.Contains(t, errs, "audience")

	_, ok = ValidateForLaunch(CampaignDraft{
		Name:         "Launch",
		Subject:      "We are live",
		HTMLContent:  "<p>hi</p>",
		AudienceType: utils.ToPtr(models.AudienceTypeWaitlist),
	})
	assert.True(t, ok)
}

func TestDraftFromCampaignBackfillsExclusions(t *testing.T) {
	campaign := &models.Campaign{
		Name:         "Imported",
		Subject:      "Hello",
		FromName:     "Ops",
		FromEmail:    "ops@example.com",
		AudienceType: models.AudienceTypeAllUsers,
	}

	draft := DraftFromCampaign(campaign)
	require.NotNil(t, draft.AudienceType)
	assert.Equal(t, models.AudienceTypeAllUsers, *draft.AudienceType)
	assert.True(t, utils.IsTrue(draft.AudienceFilter.ExcludeUnsubscribed))
	assert.True(t, utils.IsTrue(draft.AudienceFilter.ExcludeBounced))
	assert.True(t, utils.IsTrue(draft.AudienceFilter.ExcludeComplained))
}
