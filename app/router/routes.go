// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cache"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/thorbis/campaigns/app/dto"
	"github.com/thorbis/campaigns/app/handlers"
	"github.com/thorbis/campaigns/app/middleware"
	"github.com/thorbis/campaigns/utils"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app             *fiber.App
	campaignHandler handlers.CampaignHandlerInterface
	builderHandler  handlers.BuilderHandlerInterface
	deliveryHandler handlers.DeliveryHandlerInterface
	audienceHandler handlers.AudienceHandlerInterface
	authMiddleware  *middleware.AuthMiddleware
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(
	campaignHandler handlers.CampaignHandlerInterface,
	builderHandler handlers.BuilderHandlerInterface,
	deliveryHandler handlers.DeliveryHandlerInterface,
	audienceHandler handlers.AudienceHandlerInterface,
	authMiddleware *middleware.AuthMiddleware,
) Router {
	app := fiber.New(fiber.Config{
		AppName:      "Thorbis Campaigns API",
		ServerHeader: "Thorbis-Campaigns",
		ErrorHandler: errorHandler,
		BodyLimit:    4 * 1024 * 1024, // 4MB
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Minute, // the synchronous send loop can run long
		IdleTimeout:  60 * time.Second,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return &FiberRouter{
		app:             app,
		campaignHandler: campaignHandler,
		builderHandler:  builderHandler,
		deliveryHandler: deliveryHandler,
		audienceHandler: audienceHandler,
		authMiddleware:  authMiddleware,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	log.Println("Setting up routes...")

	// Global middleware
	r.setupMiddleware()

	// Prometheus scrape endpoint outside the API group
	r.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API routes
	api := r.app.Group("/api/v1")

	// Health check route (no rate limiting)
	api.Get("/health", r.healthCheck)

	// API documentation route (development only)
	if os.Getenv("APP_ENV") == "development" || os.Getenv("APP_ENV") == "local" {
		api.Get("/docs", r.getAPIDocumentation)
		log.Println("API documentation enabled for development")
	}

	// Apply general rate limiting to all API routes (aligned with nginx)
	api.Use(limiter.New(limiter.Config{
		Max:        2000,            // Maximum 2000 requests (matches nginx api zone)
		Expiration: 1 * time.Minute, // Per minute
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP() // Rate limit by IP
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error: dto.ErrorDetail{
					Code: "RATE_LIMIT_EXCEEDED",
				},
			})
		},
		Next: func(c fiber.Ctx) bool {
			// Skip rate limiting for health checks
			return c.Path() == "/api/v1/health"
		},
	}))

	// Campaign CRUD, list and stats
	campaigns := api.Group("/campaigns", r.authMiddleware.Authenticate())
	campaigns.Post("/", r.campaignHandler.CreateCampaign)
	campaigns.Post("/list", r.campaignHandler.ListCampaigns)
	campaigns.Get("/stats", r.campaignHandler.GetListStats)
	campaigns.Get("/:uuid", r.campaignHandler.GetCampaign)
	campaigns.Put("/:uuid", r.campaignHandler.UpdateCampaign)
	campaigns.Delete("/:uuid", r.campaignHandler.DeleteCampaign)
	campaigns.Post("/:uuid/duplicate", r.campaignHandler.DuplicateCampaign)
	campaigns.Get("/:uuid/stats", r.campaignHandler.GetCampaignStats)
	campaigns.Get("/:uuid/export", r.campaignHandler.ExportCampaignReport)

	// Delivery actions
	campaigns.Post("/:uuid/send", r.deliveryHandler.SendCampaign)
	campaigns.Post("/:uuid/schedule", r.deliveryHandler.ScheduleCampaign)
	campaigns.Post("/:uuid/cancel-schedule", r.deliveryHandler.CancelScheduledCampaign)
	campaigns.Post("/:uuid/pause", r.deliveryHandler.PauseCampaign)
	campaigns.Post("/:uuid/resume", r.deliveryHandler.ResumeCampaign)
	campaigns.Get("/:uuid/sends", r.deliveryHandler.ListCampaignSends)

	// Provider webhooks carry no admin token
	api.Post("/campaigns/:uuid/events", r.authMiddleware.OptionalAuth(), r.deliveryHandler.RecordCampaignEvent)

	// Audience resolution
	audience := api.Group("/audience", r.authMiddleware.Authenticate())
	audience.Post("/preview", r.audienceHandler.PreviewAudience)

	// Builder wizard sessions
	builder := api.Group("/builder", r.authMiddleware.Authenticate())
	builder.Post("/", r.builderHandler.OpenBuilder)
	builder.Get("/:session", r.builderHandler.GetState)
	builder.Delete("/:session", r.builderHandler.CloseBuilder)
	builder.Put("/:session/step", r.builderHandler.SetStep)
	builder.Post("/:session/step-click", r.builderHandler.StepClick)
	builder.Post("/:session/next", r.builderHandler.NextStep)
	builder.Post("/:session/back", r.builderHandler.BackStep)
	builder.Patch("/:session/draft", r.builderHandler.UpdateDraft)
	builder.Post("/:session/clear-error", r.builderHandler.ClearValidationError)
	builder.Post("/:session/save", r.builderHandler.SaveDraft)
	builder.Post("/:session/send", r.builderHandler.SendFromBuilder)
	builder.Post("/:session/schedule", r.builderHandler.ScheduleFromBuilder)

	// Not found handler
	r.app.Use(r.notFoundHandler)

	log.Println("Routes configured successfully")
}

// SetupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return generateRequestID()
		},
	}))

	// Security headers middleware
	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "DENY",
		HSTSMaxAge:                31536000, // 1 year
		HSTSExcludeSubdomains:     false,
		ContentSecurityPolicy:     "default-src 'self'; frame-ancestors 'none';",
		ReferrerPolicy:            "strict-origin-when-cross-origin",
		CrossOriginEmbedderPolicy: "require-corp",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "cross-origin",
		OriginAgentCluster:        "?1",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}))

	// CORS middleware with production settings
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"https://thorbis.com",
			"https://admin.thorbis.com",
			"https://api.thorbis.com",
		},
		AllowMethods: []string{
			"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-Requested-With",
			"X-Request-ID",
			"Cache-Control",
		},
		ExposeHeaders: []string{
			"X-Request-ID",
			"X-Response-Time",
		},
		AllowCredentials: true,
		MaxAge:           utils.CORSMaxAge,
	}))

	// Compression middleware for performance
	r.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
		Next: func(c fiber.Ctx) bool {
			// XLSX exports are already compressed
			contentType := c.Get("Content-Type")
			return contains(contentType, "image/") ||
				contains(contentType, "spreadsheetml")
		},
	}))

	// Cache middleware for static content
	r.app.Use(cache.New(cache.Config{
		Next: func(c fiber.Ctx) bool {
			// Only cache GET requests to specific endpoints
			return c.Method() != "GET" ||
				!contains(c.Path(), "/health") &&
					!contains(c.Path(), "/docs")
		},
		Expiration:          30 * time.Minute,
		DisableCacheControl: false,
	}))

	// Advanced logging middleware
	r.app.Use(logger.New(logger.Config{
		Format:     `{"time":"${time}","pid":"${pid}","request_id":"${locals:requestid}","level":"info","method":"${method}","path":"${path}","protocol":"${protocol}","ip":"${ip}","user_agent":"${ua}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent},"referer":"${referer}"}` + "\n",
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
		Next: func(c fiber.Ctx) bool {
			// Skip logging for health checks and metrics scrapes
			return c.Path() == "/api/v1/health" || c.Path() == "/metrics"
		},
	}))

	// Prometheus HTTP metrics
	r.app.Use(middleware.Metrics())

	// Custom security middleware
	r.app.Use(r.securityMiddleware)

	// Recovery middleware with custom error handling
	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e interface{}) {
			// Log panic with request context
			log.Printf(`{"time":"%s","level":"error","request_id":"%s","event":"panic","error":"%v","path":"%s","method":"%s","ip":"%s"}`,
				utils.UTCNow().Format(time.RFC3339),
				c.Locals("requestid"),
				e,
				c.Path(),
				c.Method(),
				c.IP(),
			)
		},
	}))
}

// Custom security middleware
func (r *FiberRouter) securityMiddleware(c fiber.Ctx) error {
	c.Set("X-Response-Time", utils.UTCNow().Format(time.RFC3339))
	c.Set("Server", "Thorbis-Campaigns")

	return c.Next()
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	log.Printf("Starting server on %s", address)
	return r.app.Listen(address)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

// Health check endpoint
func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is healthy",
		Data: fiber.Map{
			"status":    "ok",
			"timestamp": utils.UTCNow().Unix(),
			"version":   "1.0.0",
			"service":   "campaigns-api",
		},
	})
}

// API documentation endpoint
func (r *FiberRouter) getAPIDocumentation(c fiber.Ctx) error {
	docs := GetRouteDocumentation()
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "API documentation retrieved successfully",
		Data: fiber.Map{
			"title":       "Thorbis Campaigns API Documentation",
			"version":     "1.0.0",
			"description": "Email campaign management API",
			"endpoints":   docs,
		},
	})
}

// Not found handler
func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	requestID := c.Locals("requestid")

	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestID,
			},
		},
	})
}

// Global error handler
func errorHandler(c fiber.Ctx, err error) error {
	// Default error code
	code := fiber.StatusInternalServerError

	// Retrieve the custom status code if it's a fiber.*Error
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	// Log the error
	log.Printf("Error %d: %v", code, err)

	// Get RequestID for tracing
	requestID := c.Locals("requestid")

	// Return JSON error response
	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: "An internal server error occurred",
		Error: dto.ErrorDetail{
			Code: "INTERNAL_ERROR",
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": requestID,
			},
		},
	})
}

// Helper functions

// generateRequestID creates a unique request ID
func generateRequestID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// contains checks if a string contains a substring
func contains(str, substr string) bool {
	return strings.Contains(str, substr)
}

// GetRouteDocumentation returns API documentation
func GetRouteDocumentation() []map[string]any {
	return []map[string]any{
		{
			"method":      "POST",
			"path":        "/api/v1/campaigns",
			"description": "Create a new draft email campaign",
			"parameters": map[string]any{
				"name":          "string (required) - Campaign name",
				"subject":       "string (required) - Email subject line",
				"html_content":  "string (optional) - Email HTML body",
				"template_id":   "string (optional) - Template identifier",
				"audience_type": "string (optional) - waitlist|all_users|all_companies|segment|custom",
			},
		},
		{
			"method":      "POST",
			"path":        "/api/v1/campaigns/list",
			"description": "List campaigns with filters, sorting and pagination",
			"parameters": map[string]any{
				"page":           "number (optional) - Page number, defaults to 1",
				"limit":          "number (optional) - Page size, defaults to 20",
				"sort_field":     "string (optional) - name|status|created_at|scheduled_for|sent_at|open_rate|click_rate",
				"sort_direction": "string (optional) - asc|desc",
				"filter":         "object (optional) - statuses, audience_types, search, tags, date range",
			},
		},
		{
			"method":      "POST",
			"path":        "/api/v1/campaigns/:uuid/send",
			"description": "Launch a draft campaign immediately",
			"parameters": map[string]any{
				"uuid": "string (required) - Campaign UUID in URL path",
			},
		},
		{
			"method":      "POST",
			"path":        "/api/v1/campaigns/:uuid/schedule",
			"description": "Schedule a draft campaign for a future time",
			"parameters": map[string]any{
				"uuid":          "string (required) - Campaign UUID in URL path",
				"scheduled_for": "string (required) - RFC3339 timestamp at least 5 minutes out",
			},
		},
		{
			"method":      "POST",
			"path":        "/api/v1/campaigns/:uuid/events",
			"description": "Record a mail provider event for one recipient",
			"parameters": map[string]any{
				"uuid":  "string (required) - Campaign UUID in URL path",
				"event": "string (required) - delivered|opened|clicked|bounced|complained|unsubscribed",
				"email": "string (required) - Recipient email address",
			},
		},
		{
			"method":      "POST",
			"path":        "/api/v1/builder",
			"description": "Open a campaign builder session",
			"parameters": map[string]any{
				"campaign_id": "string (optional) - Draft campaign UUID to edit",
			},
		},
		{
			"method":      "POST",
			"path":        "/api/v1/audience/preview",
			"description": "Resolve an audience into a recipient count and sample",
			"parameters": map[string]any{
				"audience_type":   "string (required) - waitlist|all_users|all_companies|segment|custom",
				"audience_filter": "object (optional) - Exclusions and segment criteria",
			},
		},
		{
			"method":      "GET",
			"path":        "/api/v1/health",
			"description": "Health check endpoint",
			"parameters":  map[string]any{},
		},
	}
}
