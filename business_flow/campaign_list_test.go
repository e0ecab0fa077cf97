package businessflow

import (
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thorbis/campaigns/models"
	"github.com/thorbis/campaigns/utils"
)

func listFixture() []models.Campaign {
	created := func(day int) time.Time {
		return time.Date(2025, 8, day, 12, 0, 0, 0, time.UTC)
	}
	return []models.Campaign{
		{
			CreatedAt:       created(1),
			Name:            "Spring Launch",
			Subject:         "We are live",
			Status:          models.CampaignStatusSent,
			AudienceType:    models.AudienceTypeWaitlist,
			Tags:            pq.StringArray{"launch"},
			TotalRecipients: 100,
			UniqueOpens:     50,
			UniqueClicks:    10,
			SentAt:          utils.ToPtr(time.Date(2025, 8, 2, 9, 0, 0, 0, time.UTC)),
		},
		{
			CreatedAt:       created(2),
			Name:            "newsletter august",
			Subject:         "Monthly digest",
			Status:          models.CampaignStatusDraft,
			AudienceType:    models.AudienceTypeAllUsers,
			Tags:            pq.StringArray{"newsletter", "monthly"},
			TotalRecipients: 0,
		},
		{
			CreatedAt:       created(3),
			Name:            "Partner promo",
			Subject:         "A NEWSLETTER for partners",
			Status:          models.CampaignStatusScheduled,
			AudienceType:    models.AudienceTypeAllCompanies,
			ScheduledFor:    utils.ToPtr(time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)),
			TotalRecipients: 200,
			UniqueOpens:     20,
			UniqueClicks:    2,
		},
	}
}

func TestFilterCampaigns(t *testing.T) {
	campaigns := listFixture()

	t.Run("NoFiltersReturnsAll", func(t *testing.T) {
		out := FilterCampaigns(campaigns, CampaignListFilters{})
		assert.Len(t, out, 3)
	})

	t.Run("ByStatus", func(t *testing.T) {
		out := FilterCampaigns(campaigns, CampaignListFilters{
			Statuses: []models.CampaignStatus{models.CampaignStatusDraft, models.CampaignStatusScheduled},
		})
		require.Len(t, out, 2)
		assert.Equal(t, "newsletter august", out[0].Name)
		assert.Equal(t, "Partner promo", out[1].Name)
	})

	t.Run("ByAudienceType", func(t *testing.T) {
		out := FilterCampaigns(campaigns, CampaignListFilters{
			AudienceTypes: []models.AudienceType{models.AudienceTypeWaitlist},
		})
		require.Len(t, out, 1)
		assert.Equal(t, "Spring Launch", out[0].Name)
	})

	t.Run("SearchIsCaseInsensitiveAcrossNameSubjectTags", func(t *testing.T) {
		// "NEWSLETTER" matches a name, a subject, and a tag
		out := FilterCampaigns(campaigns, CampaignListFilters{Search: "NEWSLETTER"})
		assert.Len(t, out, 2)

		out = FilterCampaigns(campaigns, CampaignListFilters{Search: "spring"})
		require.Len(t, out, 1)
		assert.Equal(t, "Spring Launch", out[0].Name)

		out = FilterCampaigns(campaigns, CampaignListFilters{Search: "nothing-matches"})
		assert.Empty(t, out)
	})

	t.Run("ByTagsAnyMatch", func(t *testing.T) {
		out := FilterCampaigns(campaigns, CampaignListFilters{Tags: []string{"launch", "monthly"}})
		assert.Len(t, out, 2)
	})

	t.Run("ByCreatedDateRange", func(t *testing.T) {
		from := time.Date(2025, 8, 2, 0, 0, 0, 0, time.UTC)
		to := time.Date(2025, 8, 2, 23, 59, 59, 0, time.UTC)
		out := FilterCampaigns(campaigns, CampaignListFilters{DateFrom: &from, DateTo: &to})
		require.Len(t, out, 1)
		assert.Equal(t, "newsletter august", out[0].Name)
	})

	t.Run("CriteriaCombineWithAND", func(t *testing.T) {
		out := FilterCampaigns(campaigns, CampaignListFilters{
			Search:   "newsletter",
			Statuses: []models.CampaignStatus{models.CampaignStatusScheduled},
		})
		require.Len(t, out, 1)
		assert.Equal(t, "Partner promo", out[0].Name)
	})

	t.Run("InputNotMutated", func(t *testing.T) {
		FilterCampaigns(campaigns, CampaignListFilters{Search: "launch"})
		assert.Equal(t, "Spring Launch", campaigns[0].Name)
		assert.Len(t, campaigns, 3)
	})
}

func TestSortCampaigns(t *testing.T) {
	campaigns := listFixture()

	t.Run("ByNameCaseInsensitive", func(t *testing.T) {
		out := SortCampaigns(campaigns, SortByName, SortAsc)
		require.Len(t, out, 3)
		assert.Equal(t, "newsletter august", out[0].Name)
		assert.Equal(t, "Partner promo", out[1].Name)
		assert.Equal(t, "Spring Launch", out[2].Name)
	})

	t.Run("ByOpenRateDesc", func(t *testing.T) {
		out := SortCampaigns(campaigns, SortByOpenRate, SortDesc)
		// 0.5, 0.1, then the zero-recipient draft
		assert.Equal(t, "Spring Launch", out[0].Name)
		assert.Equal(t, "Partner promo", out[1].Name)
		assert.Equal(t, "newsletter august", out[2].Name)
	})

	t.Run("MissingTimesSortFirstAscending", func(t *testing.T) {
		out := SortCampaigns(campaigns, SortBySentAt, SortAsc)
		// Two campaigns without SentAt keep their relative order up front
		assert.Equal(t, "newsletter august", out[0].Name)
		assert.Equal(t, "Partner promo", out[1].Name)
		assert.Equal(t, "Spring Launch", out[2].Name)
	})

	t.Run("UnknownFieldPreservesOrder", func(t *testing.T) {
		out := SortCampaigns(campaigns, "popularity", SortDesc)
		require.Len(t, out, 3)
		for i := range campaigns {
			assert.Equal(t, campaigns[i].Name, out[i].Name)
		}
	})

	t.Run("ReturnsACopy", func(t *testing.T) {
		_ = SortCampaigns(campaigns, SortByName, SortAsc)
		assert.Equal(t, "Spring Launch", campaigns[0].Name)
	})
}

func TestAggregateCampaignStats(t *testing.T) {
	stats := AggregateCampaignStats(listFixture())

	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(1), stats.DraftCount)
	assert.Equal(t, int64(1), stats.ScheduledCount)
	assert.Equal(t, int64(0), stats.SendingCount)
	assert.Equal(t, int64(1), stats.SentCount)
	assert.Equal(t, int64(300), stats.TotalRecipients)
	assert.Equal(t, int64(70), stats.TotalUniqueOpens)
	assert.Equal(t, int64(12), stats.TotalUniqueClicks)

	assert.Equal(t, CampaignListStats{Total: 0}, AggregateCampaignStats(nil))
}
