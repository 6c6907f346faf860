package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"signal-bridge/internal/domain"
	"signal-bridge/internal/metrics"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type BillingEventStore interface {
	Claim(ctx context.Context, provider, eventID, eventType string) (domain.EventClaim, error)
	MarkProcessed(ctx context.Context, provider, eventID, outcome string, at time.Time) error
	Release(ctx context.Context, provider, eventID string) error
}

type CustomerResolver interface {
	CustomerEmail(ctx context.Context, customerID string) (string, error)
}

// BillingService turns payment lifecycle events into license transitions.
type BillingService struct {
	tracer    trace.Tracer
	repo      LicenseRepository
	licenses  *LicenseService
	events    BillingEventStore
	customers CustomerResolver
	provider  string
	days      int
	logger    *zap.Logger
	now       func() time.Time
}

func NewBillingService(
	tracer trace.Tracer,
	licenses *LicenseService,
	events BillingEventStore,
	customers CustomerResolver,
	provider string,
	days int,
	logger *zap.Logger,
) *BillingService {
	if days <= 0 {
		days = 30
	}
	return &BillingService{
		tracer:    tracer,
		repo:      licenses.repo,
		licenses:  licenses,
		events:    events,
		customers: customers,
		provider:  provider,
		days:      days,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *BillingService) FindActiveLicenseByEmail(ctx context.Context, email string) (*domain.License, error) {
	return s.repo.FindActiveByEmail(ctx, strings.TrimSpace(email))
}

// CreateOrExtend grants days to the active license for email, creating one
// when none exists. The key is stable across extensions.
func (s *BillingService) CreateOrExtend(ctx context.Context, email string, days int) (string, error) {
	res, err := s.CreateOrExtendSubject(ctx, domain.BillingSubject{Email: email}, days)
	return res.LicenseKey, err
}

// CreateOrExtendSubject is CreateOrExtend keyed by customer id when the
// subject has one. New expiry is max(current expiry, now) + days.
func (s *BillingService) CreateOrExtendSubject(ctx context.Context, subject domain.BillingSubject, days int) (domain.ReconcileResult, error) {
	ctx, span := s.tracer.Start(ctx, "billing-service.create-or-extend")
	defer span.End()

	lic, err := s.findActive(ctx, subject)
	if errors.Is(err, domain.ErrLicenseNotFound) {
		created, err := s.licenses.createFor(ctx, subject, days)
		if err != nil {
			return domain.ReconcileResult{}, err
		}
		return domain.ReconcileResult{Action: domain.ActionCreated, LicenseKey: created.Key, Affected: 1}, nil
	}
	if err != nil {
		return domain.ReconcileResult{}, err
	}

	now := s.now()
	base := lic.ExpiresAt
	if base < now.Unix() {
		base = now.Unix()
	}
	newExpiry := base + int64(days)*domain.SecondsPerDay
	if _, err := s.repo.UpdateExpiry(ctx, lic.Key, newExpiry, now); err != nil {
		return domain.ReconcileResult{}, err
	}
	s.logger.Info("license extended",
		zap.String("email", lic.Email),
		zap.String("customer_id", subject.CustomerID),
		zap.Int64("expires_at", newExpiry),
	)
	return domain.ReconcileResult{Action: domain.ActionExtended, LicenseKey: lic.Key, Affected: 1}, nil
}

// DeactivateAllActive moves every active license for email to inactive.
func (s *BillingService) DeactivateAllActive(ctx context.Context, email string) (int64, error) {
	res, err := s.DeactivateSubject(ctx, domain.BillingSubject{Email: email})
	return res.Affected, err
}

func (s *BillingService) DeactivateSubject(ctx context.Context, subject domain.BillingSubject) (domain.ReconcileResult, error) {
	ctx, span := s.tracer.Start(ctx, "billing-service.deactivate")
	defer span.End()

	email := strings.TrimSpace(subject.Email)
	var (
		n   int64
		err error
	)
	if subject.CustomerID != "" {
		n, err = s.repo.DeactivateActiveByCustomer(ctx, subject.CustomerID, email, s.now())
	} else {
		n, err = s.repo.DeactivateActiveByEmail(ctx, email, s.now())
	}
	if err != nil {
		return domain.ReconcileResult{}, err
	}
	s.logger.Info("licenses deactivated",
		zap.String("email", email),
		zap.String("customer_id", subject.CustomerID),
		zap.Int64("affected", n),
	)
	return domain.ReconcileResult{Action: domain.ActionDeactivated, Affected: n}, nil
}

// findActive prefers the customer lineage and falls back to a license that
// was never linked to a customer, adopting it on the way.
func (s *BillingService) findActive(ctx context.Context, subject domain.BillingSubject) (*domain.License, error) {
	email := strings.TrimSpace(subject.Email)
	if subject.CustomerID == "" {
		return s.repo.FindActiveByEmail(ctx, email)
	}

	lic, err := s.repo.FindActiveByCustomer(ctx, subject.CustomerID)
	if !errors.Is(err, domain.ErrLicenseNotFound) || email == "" {
		return lic, err
	}
	lic, err = s.repo.FindActiveUnlinkedByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := s.repo.LinkCustomer(ctx, lic.Key, subject.CustomerID, s.now()); err != nil {
		return nil, err
	}
	lic.CustomerID = subject.CustomerID
	return lic, nil
}

// HandleEvent reconciles one provider event. Event ids are claimed first so
// redeliveries are acknowledged without granting twice. A failed handler
// releases its claim; a claim still held by another delivery is reported as
// ErrEventInFlight so the provider redelivers after the lease runs out.
func (s *BillingService) HandleEvent(ctx context.Context, ev domain.BillingEvent) (domain.ReconcileResult, error) {
	ctx, span := s.tracer.Start(ctx, "billing-service.handle-event")
	defer span.End()
	span.SetAttributes(attribute.String("event.type", string(ev.Type)), attribute.String("event.id", ev.ID))

	claimed := false
	if ev.ID != "" && s.events != nil {
		claim, err := s.events.Claim(ctx, s.provider, ev.ID, string(ev.Type))
		if err != nil {
			return domain.ReconcileResult{}, err
		}
		switch claim {
		case domain.ClaimProcessed:
			s.logger.Info("duplicate billing event skipped", zap.String("event_id", ev.ID), zap.String("type", string(ev.Type)))
			metrics.BillingEventsTotal.WithLabelValues(string(ev.Type), string(domain.ActionDuplicate)).Inc()
			return domain.ReconcileResult{Action: domain.ActionDuplicate}, nil
		case domain.ClaimHeld:
			s.logger.Warn("billing event claimed by another delivery", zap.String("event_id", ev.ID), zap.String("type", string(ev.Type)))
			return domain.ReconcileResult{}, fmt.Errorf("event %s: %w", ev.ID, domain.ErrEventInFlight)
		}
		claimed = true
	}

	res, err := s.reconcile(ctx, ev)
	if err != nil {
		if claimed {
			if relErr := s.events.Release(ctx, s.provider, ev.ID); relErr != nil {
				s.logger.Error("failed to release billing event", zap.String("event_id", ev.ID), zap.Error(relErr))
			}
		}
		return domain.ReconcileResult{}, err
	}

	if claimed {
		if err := s.events.MarkProcessed(ctx, s.provider, ev.ID, string(res.Action), s.now()); err != nil {
			s.logger.Warn("failed to mark billing event processed", zap.String("event_id", ev.ID), zap.Error(err))
		}
	}
	metrics.BillingEventsTotal.WithLabelValues(string(ev.Type), string(res.Action)).Inc()
	return res, nil
}

func (s *BillingService) reconcile(ctx context.Context, ev domain.BillingEvent) (domain.ReconcileResult, error) {
	subject := domain.BillingSubject{Email: strings.TrimSpace(ev.Email), CustomerID: strings.TrimSpace(ev.CustomerID)}

	switch ev.Type {
	case domain.EventCheckoutCompleted, domain.EventInvoicePaymentSucceeded:
		if subject.Email == "" && subject.CustomerID == "" {
			return ignored(), nil
		}
		return s.CreateOrExtendSubject(ctx, subject, s.days)

	case domain.EventInvoicePaymentFailed:
		if subject.Email == "" && subject.CustomerID == "" {
			return ignored(), nil
		}
		return s.DeactivateSubject(ctx, subject)

	case domain.EventSubscriptionDeleted:
		if subject.Email == "" && subject.CustomerID != "" && s.customers != nil {
			email, err := s.customers.CustomerEmail(ctx, subject.CustomerID)
			if err != nil {
				s.logger.Warn("customer email lookup failed", zap.String("customer_id", subject.CustomerID), zap.Error(err))
			}
			subject.Email = email
		}
		if subject.Email == "" && subject.CustomerID == "" {
			return ignored(), nil
		}
		return s.DeactivateSubject(ctx, subject)
	}
	return ignored(), nil
}

func ignored() domain.ReconcileResult {
	return domain.ReconcileResult{Action: domain.ActionIgnored}
}
