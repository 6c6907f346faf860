package domain

import "time"

type LicenseStatus string

const (
	LicenseActive   LicenseStatus = "active"
	LicenseInactive LicenseStatus = "inactive"
	LicenseExpired  LicenseStatus = "expired"
)

func (s LicenseStatus) IsValid() bool {
	switch s {
	case LicenseActive, LicenseInactive, LicenseExpired:
		return true
	}
	return false
}

// License is a persisted, time-bounded access token. ExpiresAt of 0 means
// the license never expires. BoundDevice stays empty until the first
// verification binds it.
type License struct {
	ID          int64         `json:"id"`
	Key         string        `json:"license_key"`
	Email       string        `json:"email"`
	CustomerID  string        `json:"customer_id,omitempty"`
	BoundDevice string        `json:"bound_device"`
	Status      LicenseStatus `json:"status"`
	ExpiresAt   int64         `json:"expires_at"`
	CreatedAt   int64         `json:"created_at"`
	UpdatedAt   int64         `json:"updated_at"`
}

func (l License) IsExpired(now time.Time) bool {
	return l.ExpiresAt > 0 && now.Unix() > l.ExpiresAt
}

type VerifyReason string

const (
	ReasonOK                 VerifyReason = "ok"
	ReasonMissingKey         VerifyReason = "missing_license_key"
	ReasonNotFound           VerifyReason = "not_found"
	ReasonInactive           VerifyReason = "inactive"
	ReasonExpired            VerifyReason = "expired"
	ReasonWrongAccount       VerifyReason = "wrong_account"
	ReasonStorageUnavailable VerifyReason = "storage_unavailable"
)

type VerificationResult struct {
	Valid   bool
	Reason  VerifyReason
	License *License
}

const SecondsPerDay = 86400

type BillingEventType string

const (
	EventCheckoutCompleted       BillingEventType = "checkout.session.completed"
	EventInvoicePaymentSucceeded BillingEventType = "invoice.payment_succeeded"
	EventInvoicePaymentFailed    BillingEventType = "invoice.payment_failed"
	EventSubscriptionDeleted     BillingEventType = "customer.subscription.deleted"
)

// BillingEvent is a provider lifecycle event reduced to the fields the
// reconciler needs.
type BillingEvent struct {
	ID         string
	Type       BillingEventType
	Email      string
	CustomerID string
}

// BillingSubject identifies a license lineage. CustomerID wins when set;
// Email is the fallback for licenses created before customer ids existed.
type BillingSubject struct {
	Email      string
	CustomerID string
}

// EventClaim is the outcome of claiming a provider event id.
type EventClaim string

const (
	ClaimAcquired  EventClaim = "acquired"
	ClaimHeld      EventClaim = "held"
	ClaimProcessed EventClaim = "processed"
)

type ReconcileAction string

const (
	ActionCreated     ReconcileAction = "created"
	ActionExtended    ReconcileAction = "extended"
	ActionDeactivated ReconcileAction = "deactivated"
	ActionIgnored     ReconcileAction = "ignored"
	ActionDuplicate   ReconcileAction = "duplicate"
)

type ReconcileResult struct {
	Action     ReconcileAction
	LicenseKey string
	Affected   int64
}
