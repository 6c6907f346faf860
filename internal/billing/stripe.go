package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"signal-bridge/internal/domain"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/trace"
)

const Provider = "stripe"

var (
	ErrCheckoutNotConfigured = errors.New("stripe checkout not configured")
	ErrWebhookNotConfigured  = errors.New("stripe webhook secret not configured")
	ErrInvalidSignature      = errors.New("invalid stripe signature")
)

type Config struct {
	SecretKey     string
	PriceID       string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
}

type CheckoutSession struct {
	ID  string
	URL string
}

// Gateway wraps the Stripe API calls and webhook verification the license
// lifecycle depends on.
type Gateway struct {
	api    *client.API
	cfg    Config
	tracer trace.Tracer
}

// NewGateway builds a gateway. backends may be nil to use Stripe's default
// endpoints.
func NewGateway(cfg Config, backends *stripe.Backends, tracer trace.Tracer) *Gateway {
	g := &Gateway{cfg: cfg, tracer: tracer}
	if cfg.SecretKey != "" {
		g.api = client.New(cfg.SecretKey, backends)
	}
	return g
}

func (g *Gateway) CheckoutConfigured() bool {
	return g.api != nil && g.cfg.PriceID != ""
}

func (g *Gateway) WebhookConfigured() bool {
	return g.cfg.WebhookSecret != ""
}

// CreateCheckout opens a subscription checkout session prefilled with email.
func (g *Gateway) CreateCheckout(ctx context.Context, email string) (CheckoutSession, error) {
	ctx, span := g.tracer.Start(ctx, "stripe.create-checkout")
	defer span.End()

	if !g.CheckoutConfigured() {
		return CheckoutSession{}, ErrCheckoutNotConfigured
	}
	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		CustomerEmail: stripe.String(email),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(g.cfg.PriceID),
			Quantity: stripe.Int64(1),
		}},
		SuccessURL: stripe.String(g.cfg.SuccessURL),
		CancelURL:  stripe.String(g.cfg.CancelURL),
	}
	params.Context = ctx

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("create checkout session: %w", err)
	}
	return CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// ParseEvent verifies the Stripe-Signature header over the raw payload and
// reduces the event to the fields reconciliation needs.
func (g *Gateway) ParseEvent(payload []byte, signature string) (domain.BillingEvent, error) {
	if !g.WebhookConfigured() {
		return domain.BillingEvent{}, ErrWebhookNotConfigured
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.cfg.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return domain.BillingEvent{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := domain.BillingEvent{ID: event.ID, Type: domain.BillingEventType(event.Type)}
	if event.Data == nil {
		return out, nil
	}
	obj := gjson.ParseBytes(event.Data.Raw)

	switch out.Type {
	case domain.EventCheckoutCompleted:
		out.Email = firstNonEmpty(obj.Get("customer_details.email").String(), obj.Get("customer_email").String())
	case domain.EventInvoicePaymentSucceeded, domain.EventInvoicePaymentFailed:
		out.Email = strings.TrimSpace(obj.Get("customer_email").String())
	}
	out.CustomerID = customerID(obj.Get("customer"))
	return out, nil
}

// CustomerEmail looks up the email on a Stripe customer record.
func (g *Gateway) CustomerEmail(ctx context.Context, customerID string) (string, error) {
	ctx, span := g.tracer.Start(ctx, "stripe.customer-email")
	defer span.End()

	if g.api == nil {
		return "", ErrCheckoutNotConfigured
	}
	params := &stripe.CustomerParams{}
	params.Context = ctx
	cust, err := g.api.Customers.Get(customerID, params)
	if err != nil {
		return "", fmt.Errorf("retrieve customer %s: %w", customerID, err)
	}
	return strings.TrimSpace(cust.Email), nil
}

// customerID accepts both the id string and an expanded customer object.
func customerID(v gjson.Result) string {
	if v.IsObject() {
		return strings.TrimSpace(v.Get("id").String())
	}
	if v.Type == gjson.String {
		return strings.TrimSpace(v.Str)
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
