package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thorbis/campaigns/config"
)

func resendTestConfig(baseURL string) *config.MailerConfig {
	return &config.MailerConfig{
		Provider:  "resend",
		APIKey:    "re_test_key",
		BaseURL:   baseURL,
		FromEmail: "hello@thorbis.com",
		FromName:  "Thorbis",
		Timeout:   5 * time.Second,
	}
}

func TestResendMailerSendEmail(t *testing.T) {
	t.Run("SendsExpectedPayload", func(t *testing.T) {
		var captured resendRequest
		var authHeader string

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/emails", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			authHeader = r.Header.Get("Authorization")

			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resendResponse{ID: "msg_123"})
		}))
		defer server.Close()

		mailer := NewResendMailer(resendTestConfig(server.URL))

		replyTo := "support@thorbis.com"
		messageID, err := mailer.SendEmail(context.Background(), SendEmailInput{
			To:               "jordan@example.com",
			FromName:         "Thorbis",
			FromEmail:        "hello@thorbis.com",
			ReplyTo:          &replyTo,
			Subject:          "Welcome aboard",
			HTMLContent:      "<p>hi</p>",
			PlainTextContent: "hi",
			Tags: []EmailTag{
				{Name: "campaign_id", Value: "cmp_456"},
				{Name: "recipient_type", Value: "waitlist"},
			},
		})
		require.NoError(t, err)

		assert.Equal(t, "msg_123", messageID)
		assert.Equal(t, "Bearer re_test_key", authHeader)
		assert.Equal(t, "Thorbis <hello@thorbis.com>", captured.From)
		assert.Equal(t, []string{"jordan@example.com"}, captured.To)
		assert.Equal(t, "support@thorbis.com", captured.ReplyTo)
		assert.Equal(t, "Welcome aboard", captured.Subject)
		assert.Equal(t, "<p>hi</p>", captured.HTML)
		assert.Equal(t, "hi", captured.Text)
		require.Len(t, captured.Tags, 2)
		assert.Equal(t, "campaign_id", captured.Tags[0].Name)
		assert.Equal(t, "cmp_456", captured.Tags[0].Value)
		assert.Equal(t, "recipient_type", captured.Tags[1].Name)
		assert.Equal(t, "waitlist", captured.Tags[1].Value)
	})

	t.Run("ProviderErrorSurfacesStatusAndBody", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"message":"invalid to address"}`))
		}))
		defer server.Close()

		mailer := NewResendMailer(resendTestConfig(server.URL))

		_, err := mailer.SendEmail(context.Background(), SendEmailInput{
			To:        "broken",
			FromName:  "Thorbis",
			FromEmail: "hello@thorbis.com",
			Subject:   "Welcome",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "422")
		assert.Contains(t, err.Error(), "invalid to address")
	})

	t.Run("ContextCancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer server.Close()

		mailer := NewResendMailer(resendTestConfig(server.URL))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := mailer.SendEmail(ctx, SendEmailInput{
			To:        "jordan@example.com",
			FromName:  "Thorbis",
			FromEmail: "hello@thorbis.com",
			Subject:   "Welcome",
		})
		assert.Error(t, err)
	})
}

func TestMockMailer(t *testing.T) {
	mailer := NewMockMailer()

	id1, err := mailer.SendEmail(context.Background(), SendEmailInput{To: "a@example.com", Subject: "one"})
	require.NoError(t, err)
	id2, err := mailer.SendEmail(context.Background(), SendEmailInput{To: "b@example.com", Subject: "two"})
	require.NoError(t, err)

	assert.NotEqual(t, id1, id2)
	assert.Equal(t, 2, mailer.SentCount())
	assert.Equal(t, "a@example.com", mailer.Sent[0].To)

	// Registered failures are returned verbatim and never recorded
	boom := errors.New("mailbox unavailable")
	mailer.FailFor["c@example.com"] = boom

	_, err = mailer.SendEmail(context.Background(), SendEmailInput{To: "c@example.com"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, mailer.SentCount())
}
