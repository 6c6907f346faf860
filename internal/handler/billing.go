package handler

import (
	"errors"
	"net/http"
	"strings"

	"signal-bridge/internal/billing"
	"signal-bridge/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// CreateCheckout godoc
// @Summary      Open a subscription checkout session
// @Tags         billing
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]interface{}
// @Router       /api/billing/create_checkout [post]
func (h *Handler) CreateCheckout(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.create-checkout")
	defer span.End()

	body, err := readBody(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "bad_json"})
		return
	}
	doc, err := objectBody(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "bad_json"})
		return
	}
	email := strings.TrimSpace(doc.Get("email").String())
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "missing_email"})
		return
	}
	if h.deps.Gateway == nil || !h.deps.Gateway.CheckoutConfigured() {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "stripe_not_configured"})
		return
	}

	sess, err := h.deps.Gateway.CreateCheckout(ctx, email)
	if errors.Is(err, billing.ErrCheckoutNotConfigured) {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "stripe_not_configured"})
		return
	}
	if err != nil {
		h.logger.Error("create checkout session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "stripe_error", "detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "checkout_url": sess.URL, "session_id": sess.ID})
}

// StripeWebhook godoc
// @Summary      Stripe lifecycle webhook
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        Stripe-Signature  header  string  true  "Stripe signature"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]interface{}
// @Router       /api/stripe/webhook [post]
func (h *Handler) StripeWebhook(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.stripe-webhook")
	defer span.End()

	if h.deps.Gateway == nil || !h.deps.Gateway.WebhookConfigured() {
		h.logger.Error("stripe webhook received but STRIPE_WEBHOOK_SECRET is not set")
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "webhook_secret_not_configured"})
		return
	}

	payload, err := readBody(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid_signature"})
		return
	}
	ev, err := h.deps.Gateway.ParseEvent(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		h.logger.Warn("stripe webhook rejected", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid_signature"})
		return
	}
	span.SetAttributes(attribute.String("event.type", string(ev.Type)))

	if h.deps.Billing == nil {
		unavailable(c, "billing_service")
		return
	}
	res, err := h.deps.Billing.HandleEvent(ctx, ev)
	if err != nil {
		// A non-2xx makes Stripe redeliver.
		h.logger.Error("billing event failed", zap.String("event_id", ev.ID), zap.String("type", string(ev.Type)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"received": false, "error": "processing_failed"})
		return
	}
	h.logger.Info("billing event handled",
		zap.String("event_id", ev.ID),
		zap.String("type", string(ev.Type)),
		zap.String("action", string(res.Action)),
		zap.Int64("affected", res.Affected),
	)
	c.JSON(http.StatusOK, gin.H{"received": true, "duplicate": res.Action == domain.ActionDuplicate})
}
