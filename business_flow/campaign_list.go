package businessflow

import (
	"sort"
	"strings"
	"time"

	"github.com/thorbis/campaigns/models"
)

// CampaignListFilters is the ephemeral filter set of a campaign list view.
// All criteria are optional and AND-combined.
type CampaignListFilters struct {
	Statuses      []models.CampaignStatus
	AudienceTypes []models.AudienceType
	Search        string
	Tags          []string
	DateFrom      *time.Time
	DateTo        *time.Time
}

// Sort fields accepted by SortCampaigns
const (
	SortByName         = "name"
	SortByStatus       = "status"
	SortByCreatedAt    = "created_at"
	SortByScheduledFor = "scheduled_for"
	SortBySentAt       = "sent_at"
	SortByOpenRate     = "open_rate"
	SortByClickRate    = "click_rate"
)

// Sort directions accepted by SortCampaigns
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// FilterCampaigns returns the campaigns matching every provided criterion.
// The input slice is never mutated.
func FilterCampaigns(campaigns []models.Campaign, filters CampaignListFilters) []models.Campaign {
	out := make([]models.Campaign, 0, len(campaigns))
	for _, campaign := range campaigns {
		if !matchesFilters(campaign, filters) {
			continue
		}
		out = append(out, campaign)
	}
	return out
}

func matchesFilters(campaign models.Campaign, filters CampaignListFilters) bool {
	if len(filters.Statuses) > 0 && !containsStatus(filters.Statuses, campaign.Status) {
		return false
	}
	if len(filters.AudienceTypes) > 0 && !containsAudienceType(filters.AudienceTypes, campaign.AudienceType) {
		return false
	}
	if filters.Search != "" && !matchesSearch(campaign, filters.Search) {
		return false
	}
	if len(filters.Tags) > 0 && !hasAnyTag(campaign, filters.Tags) {
		return false
	}
	if filters.DateFrom != nil && campaign.CreatedAt.Before(*filters.DateFrom) {
		return false
	}
	if filters.DateTo != nil && campaign.CreatedAt.After(*filters.DateTo) {
		return false
	}
	return true
}

// matchesSearch is a case-insensitive substring match against the campaign
// name, subject, or any tag
func matchesSearch(campaign models.Campaign, search string) bool {
	needle := strings.ToLower(search)
	if strings.Contains(strings.ToLower(campaign.Name), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(campaign.Subject), needle) {
		return true
	}
	for _, tag := range campaign.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

// hasAnyTag reports whether the campaign carries at least one of the tags
func hasAnyTag(campaign models.Campaign, tags []string) bool {
	for _, tag := range tags {
		if campaign.HasTag(tag) {
			return true
		}
	}
	return false
}

func containsStatus(statuses []models.CampaignStatus, status models.CampaignStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func containsAudienceType(types []models.AudienceType, audienceType models.AudienceType) bool {
	for _, t := range types {
		if t == audienceType {
			return true
		}
	}
	return false
}

// SortCampaigns returns a sorted copy. The sort is stable: pairs the
// comparator cannot order (unknown sort field) keep their relative order.
// Missing scheduled_for and sent_at values compare as empty strings, so they
// sort first ascending.
func SortCampaigns(campaigns []models.Campaign, field, direction string) []models.Campaign {
	out := make([]models.Campaign, len(campaigns))
	copy(out, campaigns)

	compare := comparatorFor(field)
	if compare == nil {
		return out
	}

	desc := direction == SortDesc
	sort.SliceStable(out, func(i, j int) bool {
		c := compare(out[i], out[j])
		if desc {
			return c > 0
		}
		return c < 0
	})

	return out
}

func comparatorFor(field string) func(a, b models.Campaign) int {
	switch field {
	case SortByName:
		return func(a, b models.Campaign) int {
			return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		}
	case SortByStatus:
		return func(a, b models.Campaign) int {
			return strings.Compare(a.Status.String(), b.Status.String())
		}
	case SortByCreatedAt:
		return func(a, b models.Campaign) int {
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	case SortByScheduledFor:
		return func(a, b models.Campaign) int {
			return strings.Compare(timeKey(a.ScheduledFor), timeKey(b.ScheduledFor))
		}
	case SortBySentAt:
		return func(a, b models.Campaign) int {
			return strings.Compare(timeKey(a.SentAt), timeKey(b.SentAt))
		}
	case SortByOpenRate:
		return func(a, b models.Campaign) int {
			return compareFloat(a.OpenRate(), b.OpenRate())
		}
	case SortByClickRate:
		return func(a, b models.Campaign) int {
			return compareFloat(a.ClickRate(), b.ClickRate())
		}
	default:
		return nil
	}
}

func timeKey(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// CampaignListStats are the aggregate counters of a campaign collection
type CampaignListStats struct {
	Total             int64
	DraftCount        int64
	ScheduledCount    int64
	SendingCount      int64
	SentCount         int64
	TotalRecipients   int64
	TotalUniqueOpens  int64
	TotalUniqueClicks int64
	RevenueAttributed float64
}

// AggregateCampaignStats computes list-level stats over the full collection.
// Filtering never applies here; the caller passes every campaign it has.
func AggregateCampaignStats(campaigns []models.Campaign) CampaignListStats {
	var stats CampaignListStats
	stats.Total = int64(len(campaigns))

	for _, campaign := range campaigns {
		switch campaign.Status {
		case models.CampaignStatusDraft:
			stats.DraftCount++
		case models.CampaignStatusScheduled:
			stats.ScheduledCount++
		case models.CampaignStatusSending:
			stats.SendingCount++
		case models.CampaignStatusSent:
			stats.SentCount++
		}

		stats.TotalRecipients += int64(campaign.TotalRecipients)
		stats.TotalUniqueOpens += int64(campaign.UniqueOpens)
		stats.TotalUniqueClicks += int64(campaign.UniqueClicks)
		stats.RevenueAttributed += campaign.RevenueAttributed
	}

	return stats
}
