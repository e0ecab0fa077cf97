// Package testing provides test utilities and database setup for testing the campaign system
package testing

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"github.com/thorbis/campaigns/models"
	"github.com/thorbis/campaigns/utils"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestAdmin creates an active admin account
func (tf *TestFixtures) CreateTestAdmin() (*models.Admin, error) {
	admin := &models.Admin{
		UUID:     uuid.New(),
		Email:    fmt.Sprintf("admin.%d@example.com", rand.Intn(10000000)),
		Name:     "Test Admin",
		IsActive: utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(admin).Error; err != nil {
		return nil, fmt.Errorf("failed to create test admin: %w", err)
	}

	return admin, nil
}

// CreateTestCampaign creates a draft campaign with sensible defaults
func (tf *TestFixtures) CreateTestCampaign() (*models.Campaign, error) {
	campaign := &models.Campaign{
		UUID:           uuid.New(),
		Name:           fmt.Sprintf("Test Campaign %d", rand.Intn(10000000)),
		Status:         models.CampaignStatusDraft,
		Subject:        "Hello from the test suite",
		FromName:       utils.DefaultFromName,
		FromEmail:      utils.DefaultFromEmail,
		AudienceType:   models.AudienceTypeWaitlist,
		AudienceFilter: models.DefaultAudienceFilter(),
	}

	if err := tf.DB.DB.Create(campaign).Error; err != nil {
		return nil, fmt.Errorf("failed to create test campaign: %w", err)
	}

	return campaign, nil
}

// CreateTestSendRecords creates pending send records for a campaign
func (tf *TestFixtures) CreateTestSendRecords(campaignID uint, count int) ([]*models.CampaignSend, error) {
	sends := make([]*models.CampaignSend, 0, count)
	for i := 0; i < count; i++ {
		send := &models.CampaignSend{
			UUID:          uuid.New(),
			CampaignID:    campaignID,
			Email:         fmt.Sprintf("recipient%d.%d@example.com", i, rand.Intn(10000000)),
			Status:        models.SendStatusPending,
			RecipientType: models.AudienceTypeWaitlist,
		}
		if err := tf.DB.DB.Create(send).Error; err != nil {
			return nil, fmt.Errorf("failed to create test send record %d: %w", i, err)
		}
		sends = append(sends, send)
	}

	return sends, nil
}

// CreateTestWaitlistEntries creates pending waitlist entries
func (tf *TestFixtures) CreateTestWaitlistEntries(count int) ([]*models.WaitlistEntry, error) {
	entries := make([]*models.WaitlistEntry, 0, count)
	for i := 0; i < count; i++ {
		first := fmt.Sprintf("Waitlist%d", i)
		entry := &models.WaitlistEntry{
			UUID:      uuid.New(),
			Email:     fmt.Sprintf("waitlist%d.%d@example.com", i, rand.Intn(10000000)),
			FirstName: &first,
			Status:    "pending",
		}
		if err := tf.DB.DB.Create(entry).Error; err != nil {
			return nil, fmt.Errorf("failed to create waitlist entry %d: %w", i, err)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// CreateTestUsers creates active users
func (tf *TestFixtures) CreateTestUsers(count int) ([]*models.User, error) {
	users := make([]*models.User, 0, count)
	for i := 0; i < count; i++ {
		email := fmt.Sprintf("user%d.%d@example.com", i, rand.Intn(10000000))
		first := fmt.Sprintf("User%d", i)
		user := &models.User{
			UUID:      uuid.New(),
			Email:     &email,
			FirstName: &first,
			Role:      "member",
			Status:    "active",
		}
		if err := tf.DB.DB.Create(user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user %d: %w", i, err)
		}
		users = append(users, user)
	}

	return users, nil
}

// CreateTestCompanies creates active companies
func (tf *TestFixtures) CreateTestCompanies(count int) ([]*models.Company, error) {
	companies := make([]*models.Company, 0, count)
	for i := 0; i < count; i++ {
		email := fmt.Sprintf("company%d.%d@example.com", i, rand.Intn(10000000))
		company := &models.Company{
			UUID:   uuid.New(),
			Name:   fmt.Sprintf("Test Company %d", i),
			Email:  &email,
			Plan:   "free",
			Status: "active",
		}
		if err := tf.DB.DB.Create(company).Error; err != nil {
			return nil, fmt.Errorf("failed to create company %d: %w", i, err)
		}
		companies = append(companies, company)
	}

	return companies, nil
}

// CreateTestSuppression creates a suppression record for an email
func (tf *TestFixtures) CreateTestSuppression(email string, reason models.SuppressionReason) (*models.EmailSuppression, error) {
	source := "test"
	suppression := &models.EmailSuppression{
		Email:  email,
		Reason: reason,
		Source: &source,
	}

	if err := tf.DB.DB.Create(suppression).Error; err != nil {
		return nil, fmt.Errorf("failed to create test suppression: %w", err)
	}

	return suppression, nil
}

// CreateTestAuditLog creates a test audit log entry
func (tf *TestFixtures) CreateTestAuditLog(adminID *uint, action string, success bool) (*models.AuditLog, error) {
	description := fmt.Sprintf("Test %s action", action)
	ipAddress := "127.0.0.1"
	userAgent := "Test User Agent"

	audit := &models.AuditLog{
		AdminID:     adminID,
		Action:      action,
		Description: &description,
		Success:     &success,
		IPAddress:   &ipAddress,
		UserAgent:   &userAgent,
	}

	if !success {
		errorMessage := "Test failed action"
		audit.ErrorMessage = &errorMessage
	}

	if err := tf.DB.DB.Create(audit).Error; err != nil {
		return nil, fmt.Errorf("failed to create test audit log: %w", err)
	}

	return audit, nil
}
