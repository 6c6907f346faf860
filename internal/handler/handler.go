package handler

import (
	"context"
	"net/http"

	"signal-bridge/internal/billing"
	"signal-bridge/internal/domain"
	"signal-bridge/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const serviceName = "signal-bridge"

type AlertProcessor interface {
	HandleAlert(ctx context.Context, sig domain.Signal, opts service.AlertOrder) service.AlertOutcome
}

type OrderDesk interface {
	QueueOrder(ctx context.Context, order domain.Order) (domain.Order, error)
	NextOrder(ctx context.Context) (domain.Order, bool)
	HandleResult(ctx context.Context, result domain.OrderResult) domain.AckOutcome
}

type LicenseAuthority interface {
	Check(ctx context.Context, key string) (domain.VerificationResult, error)
	Verify(ctx context.Context, key, device string) (domain.VerificationResult, error)
	Create(ctx context.Context, email string, days int) (*domain.License, error)
	SetStatus(ctx context.Context, key string, status domain.LicenseStatus) error
	SetExpiryDays(ctx context.Context, key string, days int, reactivate bool) (int64, error)
}

type BillingReconciler interface {
	HandleEvent(ctx context.Context, ev domain.BillingEvent) (domain.ReconcileResult, error)
}

type BillingGateway interface {
	CheckoutConfigured() bool
	WebhookConfigured() bool
	CreateCheckout(ctx context.Context, email string) (billing.CheckoutSession, error)
	ParseEvent(payload []byte, signature string) (domain.BillingEvent, error)
}

// AlertDefaults fill the optional alert fields.
type AlertDefaults struct {
	Symbol  string
	Lot     float64
	Magic   int
	Comment string
}

type Options struct {
	WebhookSecret string
	AdminToken    string
	LicenseDays   int
	Alerts        AlertDefaults
}

// Deps holds the collaborators. Any of them may be nil; the routes they back
// then answer 503.
type Deps struct {
	Alerts   AlertProcessor
	Orders   OrderDesk
	Licenses LicenseAuthority
	Billing  BillingReconciler
	Gateway  BillingGateway
}

type Handler struct {
	tracer trace.Tracer
	logger *zap.Logger
	deps   Deps
	opts   Options
}

func New(tracer trace.Tracer, logger *zap.Logger, deps Deps, opts Options) *Handler {
	if opts.LicenseDays <= 0 {
		opts.LicenseDays = 30
	}
	return &Handler{
		tracer: tracer,
		logger: logger,
		deps:   deps,
		opts:   opts,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/api/ping", h.Ping)

	r.POST("/tv-webhook", h.requireWebhookSecret(), h.TVWebhook)

	r.GET("/next_order", h.NextOrder)
	r.POST("/order_result", h.OrderResult)
	r.POST("/push_order", h.PushOrder)

	r.GET("/api/check_license", h.CheckLicense)
	r.POST("/api/verify", h.VerifyLicense)

	admin := r.Group("/api/admin", h.requireAdmin())
	admin.POST("/create_license", h.AdminCreateLicense)
	admin.POST("/deactivate", h.AdminDeactivate)
	admin.POST("/set_expiry", h.AdminSetExpiry)

	r.POST("/api/billing/create_checkout", h.CreateCheckout)
	r.POST("/api/stripe/webhook", h.StripeWebhook)
}

// Health godoc
// @Summary      Health check
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "service": serviceName})
}

// Ping godoc
// @Summary      License service ping
// @Tags         licenses
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/ping [get]
func (h *Handler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "service": "license_server"})
}

func unavailable(c *gin.Context, what string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": what + "_unavailable"})
}
