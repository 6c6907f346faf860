package handler

import (
	"errors"
	"net/http"
	"testing"

	"signal-bridge/internal/billing"
	"signal-bridge/internal/domain"
)

func TestCreateCheckout(t *testing.T) {
	gw := &stubGateway{checkoutOK: true, session: billing.CheckoutSession{ID: "cs_1", URL: "https://checkout/cs_1"}}
	r := newTestRouter(Deps{Gateway: gw}, Options{})

	w := do(r, http.MethodPost, "/api/billing/create_checkout", `{"email":" a@x.com "}`, nil)
	body := decodeJSON(t, w)
	if w.Code != http.StatusOK || body["ok"] != true || body["checkout_url"] != "https://checkout/cs_1" || body["session_id"] != "cs_1" {
		t.Fatalf("unexpected response %d %v", w.Code, body)
	}
	if gw.lastEmail != "a@x.com" {
		t.Fatalf("expected trimmed email, got %q", gw.lastEmail)
	}
}

func TestCreateCheckoutErrors(t *testing.T) {
	cases := []struct {
		name     string
		gw       *stubGateway
		body     string
		wantCode int
		wantErr  string
	}{
		{"bad json", &stubGateway{checkoutOK: true}, `nope`, http.StatusBadRequest, "bad_json"},
		{"missing email", &stubGateway{checkoutOK: true}, `{}`, http.StatusBadRequest, "missing_email"},
		{"not configured", &stubGateway{}, `{"email":"a@x.com"}`, http.StatusInternalServerError, "stripe_not_configured"},
		{"provider error", &stubGateway{checkoutOK: true, sessionErr: errors.New("card_declined")}, `{"email":"a@x.com"}`, http.StatusInternalServerError, "stripe_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(Deps{Gateway: tc.gw}, Options{})
			w := do(r, http.MethodPost, "/api/billing/create_checkout", tc.body, nil)
			if w.Code != tc.wantCode || decodeJSON(t, w)["error"] != tc.wantErr {
				t.Fatalf("expected %d %s, got %d %s", tc.wantCode, tc.wantErr, w.Code, w.Body.String())
			}
		})
	}
}

func TestStripeWebhook(t *testing.T) {
	gw := &stubGateway{webhookOK: true, event: domain.BillingEvent{ID: "evt_1", Type: domain.EventCheckoutCompleted, Email: "a@x.com"}}
	rec := &stubBilling{result: domain.ReconcileResult{Action: domain.ActionCreated, LicenseKey: "k"}}
	r := newTestRouter(Deps{Gateway: gw, Billing: rec}, Options{})

	w := do(r, http.MethodPost, "/api/stripe/webhook", `{}`, map[string]string{"Stripe-Signature": "t=1,v1=abc"})
	body := decodeJSON(t, w)
	if w.Code != http.StatusOK || body["received"] != true || body["duplicate"] != false {
		t.Fatalf("unexpected response %d %v", w.Code, body)
	}
	if gw.lastSig != "t=1,v1=abc" || len(rec.events) != 1 || rec.events[0].ID != "evt_1" {
		t.Fatalf("event not routed: sig=%q events=%+v", gw.lastSig, rec.events)
	}

	rec.result = domain.ReconcileResult{Action: domain.ActionDuplicate}
	body = decodeJSON(t, do(r, http.MethodPost, "/api/stripe/webhook", `{}`, nil))
	if body["duplicate"] != true {
		t.Fatalf("expected duplicate flag, got %v", body)
	}
}

func TestStripeWebhookErrors(t *testing.T) {
	r := newTestRouter(Deps{Gateway: &stubGateway{}, Billing: &stubBilling{}}, Options{})
	w := do(r, http.MethodPost, "/api/stripe/webhook", `{}`, nil)
	if w.Code != http.StatusInternalServerError || decodeJSON(t, w)["error"] != "webhook_secret_not_configured" {
		t.Fatalf("expected webhook_secret_not_configured, got %d %s", w.Code, w.Body.String())
	}

	rec := &stubBilling{}
	r = newTestRouter(Deps{Gateway: &stubGateway{webhookOK: true, parseErr: billing.ErrInvalidSignature}, Billing: rec}, Options{})
	w = do(r, http.MethodPost, "/api/stripe/webhook", `{}`, nil)
	if w.Code != http.StatusBadRequest || decodeJSON(t, w)["error"] != "invalid_signature" {
		t.Fatalf("expected invalid_signature, got %d %s", w.Code, w.Body.String())
	}
	if len(rec.events) != 0 {
		t.Fatal("unsigned events must not be reconciled")
	}

	rec.err = domain.ErrStorageUnavailable
	r = newTestRouter(Deps{Gateway: &stubGateway{webhookOK: true, event: domain.BillingEvent{ID: "e"}}, Billing: rec}, Options{})
	if w := do(r, http.MethodPost, "/api/stripe/webhook", `{}`, nil); w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 so the provider retries, got %d", w.Code)
	}

	rec.err = domain.ErrEventInFlight
	if w := do(r, http.MethodPost, "/api/stripe/webhook", `{}`, nil); w.Code != http.StatusInternalServerError {
		t.Fatalf("in-flight claim must not be acknowledged, got %d", w.Code)
	}
}
