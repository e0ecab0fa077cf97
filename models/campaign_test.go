package models

import (
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thorbis/campaigns/utils"
)

func TestCampaignStatus(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		for _, s := range []CampaignStatus{
			CampaignStatusDraft, CampaignStatusScheduled, CampaignStatusSending,
			CampaignStatusPaused, CampaignStatusSent,
		} {
			assert.True(t, s.Valid(), "expected %s to be valid", s)
		}
		assert.False(t, CampaignStatus("archived").Valid())
		assert.False(t, CampaignStatus("").Valid())
	})

	t.Run("Value", func(t *testing.T) {
		v, err := CampaignStatusDraft.Value()
		require.NoError(t, err)
		assert.Equal(t, "draft", v)

		_, err = CampaignStatus("bogus").Value()
		assert.Error(t, err)
	})

	t.Run("Scan", func(t *testing.T) {
		var s CampaignStatus
		require.NoError(t, s.Scan("sending"))
		assert.Equal(t, CampaignStatusSending, s)

		require.NoError(t, s.Scan([]byte("paused")))
		assert.Equal(t, CampaignStatusPaused, s)

		require.NoError(t, s.Scan(nil))
		assert.Equal(t, CampaignStatus(""), s)

		assert.Error(t, s.Scan(42))
	})
}

func TestCampaignTransitions(t *testing.T) {
	cases := []struct {
		from    CampaignStatus
		to      CampaignStatus
		allowed bool
	}{
		{CampaignStatusDraft, CampaignStatusScheduled, true},
		{CampaignStatusDraft, CampaignStatusSending, true},
		{CampaignStatusDraft, CampaignStatusSent, false},
		{CampaignStatusDraft, CampaignStatusPaused, false},
		{CampaignStatusScheduled, CampaignStatusSending, true},
		{CampaignStatusScheduled, CampaignStatusDraft, true},
		{CampaignStatusScheduled, CampaignStatusSent, false},
		{CampaignStatusSending, CampaignStatusSent, true},
		{CampaignStatusSending, CampaignStatusPaused, true},
		{CampaignStatusSending, CampaignStatusDraft, false},
		{CampaignStatusPaused, CampaignStatusSending, true},
		{CampaignStatusPaused, CampaignStatusDraft, false},
		{CampaignStatusSent, CampaignStatusDraft, false},
		{CampaignStatusSent, CampaignStatusSending, false},
	}

	for _, tc := range cases {
		c := &Campaign{Status: tc.from}
		assert.Equal(t, tc.allowed, c.CanTransitionTo(tc.to),
			"transition %s -> %s", tc.from, tc.to)
	}
}

func TestCampaignEditability(t *testing.T) {
	draft := &Campaign{Status: CampaignStatusDraft}
	assert.True(t, draft.IsEditable())
	assert.True(t, draft.IsDeletable())

	for _, s := range []CampaignStatus{
		CampaignStatusScheduled, CampaignStatusSending,
		CampaignStatusPaused, CampaignStatusSent,
	} {
		c := &Campaign{Status: s}
		assert.False(t, c.IsEditable(), "status %s must not be editable", s)
		assert.False(t, c.IsDeletable(), "status %s must not be deletable", s)
	}
}

func TestCampaignRates(t *testing.T) {
	t.Run("ZeroRecipients", func(t *testing.T) {
		c := &Campaign{UniqueOpens: 10, UniqueClicks: 5}
		assert.Zero(t, c.OpenRate())
		assert.Zero(t, c.ClickRate())
	})

	t.Run("Computed", func(t *testing.T) {
		c := &Campaign{TotalRecipients: 200, UniqueOpens: 50, UniqueClicks: 10}
		assert.InDelta(t, 0.25, c.OpenRate(), 1e-9)
		assert.InDelta(t, 0.05, c.ClickRate(), 1e-9)
	})
}

func TestCampaignHasTag(t *testing.T) {
	c := &Campaign{Tags: pq.StringArray{"launch", "newsletter"}}
	assert.True(t, c.HasTag("launch"))
	assert.False(t, c.HasTag("Launch"))
	assert.False(t, c.HasTag("promo"))
}

func TestAudienceFilter(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		f := DefaultAudienceFilter()
		assert.True(t, utils.IsTrue(f.ExcludeUnsubscribed))
		assert.True(t, utils.IsTrue(f.ExcludeBounced))
		assert.True(t, utils.IsTrue(f.ExcludeComplained))
		assert.True(t, f.HasExclusions())
	})

	t.Run("NoExclusions", func(t *testing.T) {
		f := AudienceFilter{ExcludeBounced: utils.ToPtr(false)}
		assert.False(t, f.HasExclusions())
	})

	t.Run("ValueScanRoundTrip", func(t *testing.T) {
		after := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
		f := AudienceFilter{
			ExcludeBounced: utils.ToPtr(true),
			UserRoles:      []string{"admin", "member"},
			CreatedAfter:   &after,
			CustomEmails:   []string{"a@example.com", "b@example.com"},
		}

		v, err := f.Value()
		require.NoError(t, err)

		var out AudienceFilter
		require.NoError(t, out.Scan(v))
		assert.Equal(t, f.UserRoles, out.UserRoles)
		assert.Equal(t, f.CustomEmails, out.CustomEmails)
		assert.True(t, utils.IsTrue(out.ExcludeBounced))
		require.NotNil(t, out.CreatedAfter)
		assert.True(t, after.Equal(*out.CreatedAfter))
	})

	t.Run("ScanNil", func(t *testing.T) {
		f := DefaultAudienceFilter()
		require.NoError(t, f.Scan(nil))
		assert.False(t, f.HasExclusions())
	})
}

func TestCampaignStatusDisplay(t *testing.T) {
	c := &Campaign{Status: CampaignStatusScheduled}
	assert.Equal(t, "Scheduled", c.GetStatusDisplayName())

	c.Status = CampaignStatus("bogus")
	assert.Equal(t, "Unknown", c.GetStatusDisplayName())
}
