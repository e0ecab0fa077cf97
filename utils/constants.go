package utils

import (
	"time"
)

// ContextKey is the type used for values stored on request contexts.
type ContextKey string

// Context keys populated by the HTTP layer and read by flows for audit logging.
const (
	RequestIDKey  ContextKey = "request_id"
	UserAgentKey  ContextKey = "user_agent"
	IPAddressKey  ContextKey = "ip_address"
	EndpointKey   ContextKey = "endpoint"
	TimeoutKey    ContextKey = "timeout"
	CancelFuncKey ContextKey = "cancel_func"
)

// Token and session time constants
const (
	// AccessTokenTTL is the time-to-live for access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// AccessTokenTTLSeconds is the time-to-live for access tokens in seconds (86400 seconds = 24 hours)
	AccessTokenTTLSeconds = 86400

	// RefreshTokenTTL is the time-to-live for refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Campaign constants
const (
	// MinScheduleLead is the minimum gap between now and a requested send time
	MinScheduleLead = 5 * time.Minute

	// AudiencePreviewSampleSize is the number of sample recipients returned by audience previews
	AudiencePreviewSampleSize = 5

	// DefaultPageSize is the default page size for campaign listings
	DefaultPageSize = 20

	// MaxPageSize caps the page size a client may request
	MaxPageSize = 100

	// DefaultFromEmail is used when a draft does not set an explicit sender
	DefaultFromEmail = "hello@thorbis.com"

	// DefaultFromName is used when a draft does not set an explicit sender name
	DefaultFromName = "Thorbis"
)
