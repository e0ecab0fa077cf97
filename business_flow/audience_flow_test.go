package businessflow

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thorbis/campaigns/app/dto"
	"github.com/thorbis/campaigns/models"
	"github.com/thorbis/campaigns/utils"
)

// stubRepo satisfies the generic repository surface the audience flow never
// touches, so the mocks below only implement the lookups that matter.
type stubRepo[T any, F any] struct{}

func (stubRepo[T, F]) ByID(ctx context.Context, id uint) (*T, error) { return nil, nil }
func (stubRepo[T, F]) ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error) {
	return nil, nil
}
func (stubRepo[T, F]) Save(ctx context.Context, entity *T) error        { return nil }
func (stubRepo[T, F]) SaveBatch(ctx context.Context, entities []*T) error { return nil }
func (stubRepo[T, F]) Count(ctx context.Context, filter F) (int64, error) {
	return 0, nil
}

type mockWaitlistRepo struct {
	stubRepo[models.WaitlistEntry, models.WaitlistEntryFilter]
	entries []*models.WaitlistEntry
}

func (m *mockWaitlistRepo) ListPending(ctx context.Context) ([]*models.WaitlistEntry, error) {
	return m.entries, nil
}

type mockUserRepo struct {
	stubRepo[models.User, models.UserFilter]
	users       []*models.User
	lastSegment models.UserFilter
}

func (m *mockUserRepo) ListWithEmail(ctx context.Context) ([]*models.User, error) {
	return m.users, nil
}

func (m *mockUserRepo) ListSegment(ctx context.Context, filter models.UserFilter) ([]*models.User, error) {
	m.lastSegment = filter
	return m.users, nil
}

type mockCompanyRepo struct {
	stubRepo[models.Company, models.CompanyFilter]
	companies []*models.Company
}

func (m *mockCompanyRepo) ListWithEmail(ctx context.Context) ([]*models.Company, error) {
	return m.companies, nil
}

type mockSuppressionRepo struct {
	stubRepo[models.EmailSuppression, models.EmailSuppressionFilter]
	suppressions []*models.EmailSuppression
	calls        int
	lastReasons  []models.SuppressionReason
}

func (m *mockSuppressionRepo) ListByReasons(ctx context.Context, reasons []models.SuppressionReason) ([]*models.EmailSuppression, error) {
	m.calls++
	m.lastReasons = reasons
	return m.suppressions, nil
}

func (m *mockSuppressionRepo) Upsert(ctx context.Context, suppression *models.EmailSuppression) error {
	return nil
}

func newAudienceFixture() (*mockWaitlistRepo, *mockUserRepo, *mockCompanyRepo, *mockSuppressionRepo, AudienceFlow) {
	waitlist := &mockWaitlistRepo{}
	users := &mockUserRepo{}
	companies := &mockCompanyRepo{}
	suppressions := &mockSuppressionRepo{}
	flow := NewAudienceFlow(waitlist, users, companies, suppressions, nil, 0)
	return waitlist, users, companies, suppressions, flow
}

func waitlistEntry(email string, first string) *models.WaitlistEntry {
	entry := &models.WaitlistEntry{
		UUID:   uuid.New(),
		Email:  email,
		Status: "pending",
	}
	if first != "" {
		entry.FirstName = &first
	}
	return entry
}

func TestResolveRecipientsCustom(t *testing.T) {
	_, _, _, suppressions, flow := newAudienceFixture()

	filter := models.AudienceFilter{
		CustomEmails: []string{"c@example.com", "a@example.com", "b@example.com"},
	}

	recipients, err := flow.ResolveRecipients(context.Background(), models.AudienceTypeCustom, filter)
	require.NoError(t, err)

	// Custom audiences keep the authored order, untouched
	require.Len(t, recipients, 3)
	assert.Equal(t, "c@example.com", recipients[0].Email)
	assert.Equal(t, "a@example.com", recipients[1].Email)
	assert.Equal(t, "b@example.com", recipients[2].Email)

	// No exclusion flags set means the suppression list is never consulted
	assert.Zero(t, suppressions.calls)
}

func TestResolveRecipientsCustomMalformedEntries(t *testing.T) {
	_, _, _, _, flow := newAudienceFixture()

	filter := models.AudienceFilter{
		CustomEmails: []string{"   ", "no-at-sign", "  padded@example.com  ", "kept@example.com"},
	}

	recipients, err := flow.ResolveRecipients(context.Background(), models.AudienceTypeCustom, filter)
	require.NoError(t, err)

	// Blank and address-less entries are dropped, padded entries trimmed
	require.Len(t, recipients, 2)
	assert.Equal(t, "padded@example.com", recipients[0].Email)
	assert.Equal(t, "kept@example.com", recipients[1].Email)
}

func TestResolveRecipientsWaitlist(t *testing.T) {
	waitlist, _, _, _, flow := newAudienceFixture()
	waitlist.entries = []*models.WaitlistEntry{
		waitlistEntry("first@example.com", "Ada"),
		waitlistEntry("second@example.com", ""),
	}

	recipients, err := flow.ResolveRecipients(context.Background(), models.AudienceTypeWaitlist, models.AudienceFilter{})
	require.NoError(t, err)
	require.Len(t, recipients, 2)

	assert.Equal(t, "first@example.com", recipients[0].Email)
	require.NotNil(t, recipients[0].Name)
	assert.Equal(t, "Ada", *recipients[0].Name)
	assert.Equal(t, models.AudienceTypeWaitlist, recipients[0].Type)
	require.NotNil(t, recipients[0].ID)

	// Entries without a name produce a nil Name, not an empty string
	assert.Nil(t, recipients[1].Name)
}

func TestResolveRecipientsSkipsMissingEmails(t *testing.T) {
	_, users, companies, _, flow := newAudienceFixture()

	email := "user@example.com"
	users.users = []*models.User{
		{UUID: uuid.New(), Email: &email, Role: "member", Status: "active"},
		{UUID: uuid.New(), Email: nil, Role: "member", Status: "active"},
	}

	recipients, err := flow.ResolveRecipients(context.Background(), models.AudienceTypeAllUsers, models.AudienceFilter{})
	require.NoError(t, err)
	require.Len(t, recipients, 1)
	assert.Equal(t, "user@example.com", recipients[0].Email)

	companyEmail := "ops@acme.example.com"
	companies.companies = []*models.Company{
		{UUID: uuid.New(), Name: "Acme", Email: &companyEmail},
		{UUID: uuid.New(), Name: "No Contact", Email: nil},
	}

	recipients, err = flow.ResolveRecipients(context.Background(), models.AudienceTypeAllCompanies, models.AudienceFilter{})
	require.NoError(t, err)
	require.Len(t, recipients, 1)
	assert.Equal(t, "ops@acme.example.com", recipients[0].Email)
	require.NotNil(t, recipients[0].Name)
	assert.Equal(t, "Acme", *recipients[0].Name)
}

func TestResolveRecipientsSegmentFilter(t *testing.T) {
	_, users, _, _, flow := newAudienceFixture()

	filter := models.AudienceFilter{
		UserRoles:    []string{"admin"},
		UserStatuses: []string{"active"},
	}

	_, err := flow.ResolveRecipients(context.Background(), models.AudienceTypeSegment, filter)
	require.NoError(t, err)

	assert.Equal(t, []string{"admin"}, users.lastSegment.Roles)
	assert.Equal(t, []string{"active"}, users.lastSegment.Statuses)
}

func TestResolveRecipientsSuppression(t *testing.T) {
	_, _, _, suppressions, flow := newAudienceFixture()
	suppressions.suppressions = []*models.EmailSuppression{
		{Email: "Bounced@Example.com", Reason: models.SuppressionReasonBounced},
	}

	filter := models.AudienceFilter{
		ExcludeBounced: utils.ToPtr(true),
		CustomEmails:   []string{"keep@example.com", "bounced@example.com"},
	}

	recipients, err := flow.ResolveRecipients(context.Background(), models.AudienceTypeCustom, filter)
	require.NoError(t, err)

	// Suppression matching is case-insensitive
	require.Len(t, recipients, 1)
	assert.Equal(t, "keep@example.com", recipients[0].Email)

	// Only the enabled reasons are queried
	assert.Equal(t, []models.SuppressionReason{models.SuppressionReasonBounced}, suppressions.lastReasons)
}

func TestResolveRecipientsUnknownType(t *testing.T) {
	_, _, _, _, flow := newAudienceFixture()

	_, err := flow.ResolveRecipients(context.Background(), models.AudienceType("everyone"), models.AudienceFilter{})
	assert.ErrorIs(t, err, ErrUnknownAudienceType)
}

func TestPreviewAudience(t *testing.T) {
	t.Run("CountAndSample", func(t *testing.T) {
		_, _, _, _, flow := newAudienceFixture()

		emails := make([]string, 0, utils.AudiencePreviewSampleSize+5)
		for i := 0; i < utils.AudiencePreviewSampleSize+5; i++ {
			emails = append(emails, "r"+string(rune('a'+i))+"@example.com")
		}

		resp, err := flow.PreviewAudience(context.Background(), &dto.PreviewAudienceRequest{
			AudienceType:   "custom",
			AudienceFilter: &models.AudienceFilter{CustomEmails: emails},
		})
		require.NoError(t, err)

		assert.Equal(t, len(emails), resp.Count)
		assert.Len(t, resp.Sample, utils.AudiencePreviewSampleSize)
		assert.Equal(t, emails[0], resp.Sample[0].Email)
	})

	t.Run("InvalidAudienceType", func(t *testing.T) {
		_, _, _, _, flow := newAudienceFixture()

		_, err := flow.PreviewAudience(context.Background(), &dto.PreviewAudienceRequest{AudienceType: "everyone"})
		require.Error(t, err)
		assert.True(t, IsUnknownAudienceType(err))
	})
}
