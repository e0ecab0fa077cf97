package businessflow

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thorbis/campaigns/app/dto"
	"github.com/thorbis/campaigns/models"
	"github.com/thorbis/campaigns/utils"
	"github.com/xuri/excelize/v2"
)

type campaignFixture struct {
	campaignRepo *mockCampaignRepo
	sendRepo     *mockSendRepo
	audits       *mockAuditRepo
	flow         CampaignFlow
}

func newCampaignFixture(campaign *models.Campaign) *campaignFixture {
	f := &campaignFixture{
		campaignRepo: &mockCampaignRepo{campaign: campaign},
		sendRepo:     &mockSendRepo{},
		audits:       &mockAuditRepo{},
	}
	f.flow = NewCampaignFlow(f.campaignRepo, f.sendRepo, f.audits, nil)
	return f
}

func TestCreateCampaignValidation(t *testing.T) {
	ctx := context.Background()
	metadata := NewClientMetadata("127.0.0.1", "test")
	f := newCampaignFixture(nil)

	t.Run("NameRequired", func(t *testing.T) {
		_, err := f.flow.CreateCampaign(ctx, &dto.CreateCampaignRequest{
			Name:    "   ",
			Subject: "Hello",
		}, metadata)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrCampaignNameRequired)
	})

	t.Run("SubjectRequired", func(t *testing.T) {
		_, err := f.flow.CreateCampaign(ctx, &dto.CreateCampaignRequest{
			Name: "Launch",
		}, metadata)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrCampaignSubjectRequired)
	})

	t.Run("UnknownAudienceType", func(t *testing.T) {
		_, err := f.flow.CreateCampaign(ctx, &dto.CreateCampaignRequest{
			Name:         "Launch",
			Subject:      "Hello",
			AudienceType: utils.ToPtr("everyone"),
		}, metadata)
		require.Error(t, err)
		assert.True(t, IsUnknownAudienceType(err))
	})
}

func TestUpdateCampaignGuards(t *testing.T) {
	ctx := context.Background()
	metadata := NewClientMetadata("127.0.0.1", "test")

	t.Run("UUIDRequired", func(t *testing.T) {
		f := newCampaignFixture(nil)
		_, err := f.flow.UpdateCampaign(ctx, &dto.UpdateCampaignRequest{}, metadata)
		require.Error(t, err)
		assert.True(t, IsCampaignUUIDRequired(err))
	})

	t.Run("NotFound", func(t *testing.T) {
		f := newCampaignFixture(nil)
		_, err := f.flow.UpdateCampaign(ctx, &dto.UpdateCampaignRequest{
			UUID: uuid.NewString(),
			Name: utils.ToPtr("Renamed"),
		}, metadata)
		require.Error(t, err)
		assert.True(t, IsCampaignNotFound(err))
	})

	t.Run("OnlyDraftIsEditable", func(t *testing.T) {
		campaign := deliveryCampaign(models.CampaignStatusSent)
		f := newCampaignFixture(campaign)
		_, err := f.flow.UpdateCampaign(ctx, &dto.UpdateCampaignRequest{
			UUID: campaign.UUID.String(),
			Name: utils.ToPtr("Renamed"),
		}, metadata)
		require.Error(t, err)
		assert.True(t, IsCampaignNotEditable(err))
	})

	t.Run("EmptyUpdateRejected", func(t *testing.T) {
		campaign := deliveryCampaign(models.CampaignStatusDraft)
		f := newCampaignFixture(campaign)
		_, err := f.flow.UpdateCampaign(ctx, &dto.UpdateCampaignRequest{
			UUID: campaign.UUID.String(),
		}, metadata)
		require.Error(t, err)
		assert.True(t, IsCampaignUpdateRequired(err))
	})
}

func TestDeleteCampaignGuards(t *testing.T) {
	ctx := context.Background()
	metadata := NewClientMetadata("127.0.0.1", "test")

	t.Run("NotFound", func(t *testing.T) {
		f := newCampaignFixture(nil)
		err := f.flow.DeleteCampaign(ctx, &dto.GetCampaignRequest{UUID: uuid.NewString()}, metadata)
		require.Error(t, err)
		assert.True(t, IsCampaignNotFound(err))
	})

	t.Run("OnlyDraftIsDeletable", func(t *testing.T) {
		for _, status := range []models.CampaignStatus{
			models.CampaignStatusScheduled, models.CampaignStatusSending,
			models.CampaignStatusPaused, models.CampaignStatusSent,
		} {
			campaign := deliveryCampaign(status)
			f := newCampaignFixture(campaign)
			err := f.flow.DeleteCampaign(ctx, &dto.GetCampaignRequest{UUID: campaign.UUID.String()}, metadata)
			require.Error(t, err, "status %s", status)
			assert.True(t, IsCampaignNotDeletable(err), "status %s", status)
		}
	})
}

func TestGetCampaign(t *testing.T) {
	ctx := context.Background()

	campaign := deliveryCampaign(models.CampaignStatusDraft)
	f := newCampaignFixture(campaign)

	out, err := f.flow.GetCampaign(ctx, &dto.GetCampaignRequest{UUID: campaign.UUID.String()})
	require.NoError(t, err)
	assert.Equal(t, campaign.UUID.String(), out.UUID)
	assert.Equal(t, "draft", out.Status)
	assert.Equal(t, "Draft", out.StatusDisplayName)

	_, err = f.flow.GetCampaign(ctx, &dto.GetCampaignRequest{UUID: uuid.NewString()})
	require.Error(t, err)
	assert.True(t, IsCampaignNotFound(err))
}

func TestGetCampaignStats(t *testing.T) {
	ctx := context.Background()

	campaign := deliveryCampaign(models.CampaignStatusSent)
	f := newCampaignFixture(campaign)
	f.sendRepo.sends = []*models.CampaignSend{
		{ID: 1, CampaignID: 1, Email: "a@example.com", Status: models.SendStatusSent},
		{ID: 2, CampaignID: 1, Email: "b@example.com", Status: models.SendStatusOpened},
		{ID: 3, CampaignID: 1, Email: "c@example.com", Status: models.SendStatusFailed},
	}

	resp, err := f.flow.GetCampaignStats(ctx, &dto.GetCampaignRequest{UUID: campaign.UUID.String()})
	require.NoError(t, err)

	assert.Equal(t, int64(1), resp.Sends["sent"])
	assert.Equal(t, int64(1), resp.Sends["opened"])
	assert.Equal(t, int64(1), resp.Sends["failed"])
}

func TestExportCampaignReport(t *testing.T) {
	ctx := context.Background()
	metadata := NewClientMetadata("127.0.0.1", "test")

	campaign := deliveryCampaign(models.CampaignStatusSent)
	campaign.Name = "Spring Launch 2025"
	campaign.TotalRecipients = 2
	campaign.SentCount = 2
	f := newCampaignFixture(campaign)
	f.sendRepo.sends = []*models.CampaignSend{
		{ID: 1, CampaignID: 1, Email: "a@example.com", Status: models.SendStatusSent},
		{ID: 2, CampaignID: 1, Email: "b@example.com", Status: models.SendStatusOpened},
	}

	data, filename, err := f.flow.ExportCampaignReport(ctx, &dto.GetCampaignRequest{UUID: campaign.UUID.String(), AdminID: 1}, metadata)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(filename, "campaign-spring-launch-2025-"))
	assert.True(t, strings.HasSuffix(filename, ".xlsx"))

	// The produced workbook carries the summary and recipients sheets
	file, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = file.Close() }()

	assert.ElementsMatch(t, []string{"Summary", "Recipients"}, file.GetSheetList())

	name, err := file.GetCellValue("Summary", "B1")
	require.NoError(t, err)
	assert.Equal(t, "Spring Launch 2025", name)

	email, err := file.GetCellValue("Recipients", "A2")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", email)

	assert.True(t, f.audits.hasAction(models.AuditActionCampaignExported))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "spring-launch-2025", sanitizeFilename("  Spring Launch 2025 "))
	assert.Equal(t, "report", sanitizeFilename("!!!"))
	assert.Equal(t, "ab", sanitizeFilename("A/B"))
}
