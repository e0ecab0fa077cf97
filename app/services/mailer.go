// Package services provides external service integrations and technical concerns like mail delivery and tokens
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/thorbis/campaigns/config"
)

// Mailer delivers transactional and campaign email through a provider API
type Mailer interface {
	SendEmail(ctx context.Context, input SendEmailInput) (string, error)
}

// SendEmailInput carries everything the provider needs for one message
type SendEmailInput struct {
	To               string
	ToName           *string
	FromName         string
	FromEmail        string
	ReplyTo          *string
	Subject          string
	HTMLContent      string
	PlainTextContent string
	Tags             []EmailTag
}

// EmailTag is one name/value pair attached to an outbound message for
// provider-side filtering and webhook correlation
type EmailTag struct {
	Name  string
	Value string
}

// ResendMailer implements Mailer against the Resend HTTP API
type ResendMailer struct {
	config *config.MailerConfig
	client *http.Client
}

// resendRequest represents the request payload for the Resend send endpoint
type resendRequest struct {
	From    string            `json:"from"`
	To      []string          `json:"to"`
	ReplyTo string            `json:"reply_to,omitempty"`
	Subject string            `json:"subject"`
	HTML    string            `json:"html,omitempty"`
	Text    string            `json:"text,omitempty"`
	Tags    []resendRequestTag `json:"tags,omitempty"`
}

type resendRequestTag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// resendResponse represents the success payload from the Resend send endpoint
type resendResponse struct {
	ID string `json:"id"`
}

// NewResendMailer creates a new Resend-backed mailer instance
func NewResendMailer(cfg *config.MailerConfig) Mailer {
	return &ResendMailer{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// SendEmail sends one email and returns the provider message ID
func (m *ResendMailer) SendEmail(ctx context.Context, input SendEmailInput) (string, error) {
	payload := resendRequest{
		From:    fmt.Sprintf("%s <%s>", input.FromName, input.FromEmail),
		To:      []string{input.To},
		Subject: input.Subject,
		HTML:    input.HTMLContent,
		Text:    input.PlainTextContent,
	}
	if input.ReplyTo != nil && *input.ReplyTo != "" {
		payload.ReplyTo = *input.ReplyTo
	}
	for _, tag := range input.Tags {
		payload.Tags = append(payload.Tags, resendRequestTag{Name: tag.Name, Value: tag.Value})
	}

	requestBody, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal email request: %w", err)
	}

	url := fmt.Sprintf("%s/emails", m.config.BaseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.config.APIKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send email request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("email delivery failed for %s: status %d: %s", input.To, resp.StatusCode, string(body))
	}

	var result resendResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode email response: %w", err)
	}

	return result.ID, nil
}

// MockMailer implements Mailer for testing
type MockMailer struct {
	mu         sync.Mutex
	Sent       []SendEmailInput
	FailFor    map[string]error
	nextID     int
}

// NewMockMailer creates a mock mailer instance
func NewMockMailer() *MockMailer {
	return &MockMailer{
		FailFor: map[string]error{},
	}
}

// SendEmail records the message and returns a synthetic message ID. Addresses
// registered in FailFor fail with the configured error instead.
func (m *MockMailer) SendEmail(ctx context.Context, input SendEmailInput) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.FailFor[input.To]; ok {
		return "", err
	}

	m.Sent = append(m.Sent, input)
	m.nextID++
	return fmt.Sprintf("mock-message-%d", m.nextID), nil
}

// SentCount returns how many messages were accepted
func (m *MockMailer) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}
