package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
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

const (
	licenseKeyBytes     = 16
	maxKeyGenerateTries = 3
)

type LicenseRepository interface {
	Insert(ctx context.Context, l domain.License) (*domain.License, error)
	FindByKey(ctx context.Context, key string) (*domain.License, error)
	FindActiveByEmail(ctx context.Context, email string) (*domain.License, error)
	FindActiveByCustomer(ctx context.Context, customerID string) (*domain.License, error)
	FindActiveUnlinkedByEmail(ctx context.Context, email string) (*domain.License, error)
	UpdateExpiry(ctx context.Context, key string, expiresAt int64, now time.Time) (int64, error)
	UpdateStatus(ctx context.Context, key string, status domain.LicenseStatus, now time.Time) (int64, error)
	LinkCustomer(ctx context.Context, key, customerID string, now time.Time) error
	BindDevice(ctx context.Context, key, device string, now time.Time) (bool, error)
	DeactivateActiveByEmail(ctx context.Context, email string, now time.Time) (int64, error)
	DeactivateActiveByCustomer(ctx context.Context, customerID, email string, now time.Time) (int64, error)
}

type LicenseService struct {
	tracer trace.Tracer
	repo   LicenseRepository
	logger *zap.Logger
	now    func() time.Time
	newKey func() (string, error)
}

func NewLicenseService(tracer trace.Tracer, repo LicenseRepository, logger *zap.Logger) *LicenseService {
	return &LicenseService{
		tracer: tracer,
		repo:   repo,
		logger: logger,
		now:    time.Now,
		newKey: generateLicenseKey,
	}
}

// generateLicenseKey returns 16 random bytes as unpadded base64url.
func generateLicenseKey() (string, error) {
	buf := make([]byte, licenseKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate license key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Create issues an active license for email valid for days from now.
func (s *LicenseService) Create(ctx context.Context, email string, days int) (*domain.License, error) {
	return s.createFor(ctx, domain.BillingSubject{Email: email}, days)
}

func (s *LicenseService) createFor(ctx context.Context, subject domain.BillingSubject, days int) (*domain.License, error) {
	ctx, span := s.tracer.Start(ctx, "license-service.create")
	defer span.End()

	email := strings.TrimSpace(subject.Email)
	if email == "" && subject.CustomerID == "" {
		return nil, &domain.ValidationError{Field: "email", Kind: domain.MissingField}
	}
	if days <= 0 {
		return nil, &domain.ValidationError{Field: "days", Kind: domain.OutOfRange}
	}

	now := s.now().Unix()
	var lastErr error
	for attempt := 0; attempt < maxKeyGenerateTries; attempt++ {
		key, err := s.newKey()
		if err != nil {
			return nil, err
		}
		lic, err := s.repo.Insert(ctx, domain.License{
			Key:        key,
			Email:      email,
			CustomerID: subject.CustomerID,
			Status:     domain.LicenseActive,
			ExpiresAt:  now + int64(days)*domain.SecondsPerDay,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		if errors.Is(err, domain.ErrDuplicateKey) {
			lastErr = err
			continue
		}
		if err != nil {
			return nil, err
		}
		s.logger.Info("license created",
			zap.String("email", email),
			zap.String("customer_id", subject.CustomerID),
			zap.Int64("expires_at", lic.ExpiresAt),
		)
		return lic, nil
	}
	return nil, fmt.Errorf("create license after %d attempts: %w", maxKeyGenerateTries, lastErr)
}

// Extend overwrites the expiry of key.
func (s *LicenseService) Extend(ctx context.Context, key string, expiresAt int64) error {
	ctx, span := s.tracer.Start(ctx, "license-service.extend")
	defer span.End()

	n, err := s.repo.UpdateExpiry(ctx, key, expiresAt, s.now())
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrLicenseNotFound
	}
	return nil
}

// SetStatus overwrites the status of key.
func (s *LicenseService) SetStatus(ctx context.Context, key string, status domain.LicenseStatus) error {
	ctx, span := s.tracer.Start(ctx, "license-service.set-status")
	defer span.End()

	if !status.IsValid() {
		return &domain.ValidationError{Field: "status", Kind: domain.OutOfRange}
	}
	n, err := s.repo.UpdateStatus(ctx, key, status, s.now())
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrLicenseNotFound
	}
	return nil
}

// SetExpiryDays moves the expiry of key to now + days and optionally puts it
// back to active. It returns the new expiry.
func (s *LicenseService) SetExpiryDays(ctx context.Context, key string, days int, reactivate bool) (int64, error) {
	expiresAt := s.now().Unix() + int64(days)*domain.SecondsPerDay
	if err := s.Extend(ctx, key, expiresAt); err != nil {
		return 0, err
	}
	if reactivate {
		if err := s.SetStatus(ctx, key, domain.LicenseActive); err != nil {
			return 0, err
		}
	}
	return expiresAt, nil
}

// BindDevice records device on key if nothing is bound yet. Unknown keys and
// empty devices are ignored.
func (s *LicenseService) BindDevice(ctx context.Context, key, device string) error {
	if key == "" || device == "" {
		return nil
	}
	bound, err := s.repo.BindDevice(ctx, key, device, s.now())
	if err != nil {
		return err
	}
	if bound {
		s.logger.Info("license bound to device", zap.String("device", device))
	}
	return nil
}

// Verify runs the full terminal check: existence, status, expiry, then the
// device binding.
func (s *LicenseService) Verify(ctx context.Context, key, device string) (domain.VerificationResult, error) {
	ctx, span := s.tracer.Start(ctx, "license-service.verify")
	defer span.End()

	res, lic, err := s.check(ctx, key)
	if err != nil || !res.Valid {
		return s.record(span, res), err
	}

	device = strings.TrimSpace(device)
	if device != "" && lic.BoundDevice == "" {
		if err := s.BindDevice(ctx, key, device); err != nil {
			return s.record(span, storageUnavailable()), err
		}
		// Another verification may have won the bind; the stored value decides.
		lic, err = s.repo.FindByKey(ctx, key)
		if err != nil {
			return s.record(span, storageUnavailable()), err
		}
		res.License = lic
	}
	if lic.BoundDevice != "" && lic.BoundDevice != device {
		return s.record(span, domain.VerificationResult{Reason: domain.ReasonWrongAccount, License: lic}), nil
	}
	return s.record(span, res), nil
}

// Check is Verify without the device step.
func (s *LicenseService) Check(ctx context.Context, key string) (domain.VerificationResult, error) {
	ctx, span := s.tracer.Start(ctx, "license-service.check")
	defer span.End()

	res, _, err := s.check(ctx, key)
	return s.record(span, res), err
}

func (s *LicenseService) check(ctx context.Context, key string) (domain.VerificationResult, *domain.License, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.VerificationResult{Reason: domain.ReasonMissingKey}, nil, nil
	}

	lic, err := s.repo.FindByKey(ctx, key)
	if errors.Is(err, domain.ErrLicenseNotFound) {
		return domain.VerificationResult{Reason: domain.ReasonNotFound}, nil, nil
	}
	if err != nil {
		return storageUnavailable(), nil, err
	}

	if lic.Status != domain.LicenseActive {
		return domain.VerificationResult{Reason: domain.ReasonInactive, License: lic}, lic, nil
	}

	now := s.now()
	if lic.IsExpired(now) {
		if _, err := s.repo.UpdateStatus(ctx, key, domain.LicenseExpired, now); err != nil {
			s.logger.Warn("failed to mark license expired", zap.Error(err))
		} else {
			lic.Status = domain.LicenseExpired
		}
		return domain.VerificationResult{Reason: domain.ReasonExpired, License: lic}, lic, nil
	}

	return domain.VerificationResult{Valid: true, Reason: domain.ReasonOK, License: lic}, lic, nil
}

func (s *LicenseService) record(span trace.Span, res domain.VerificationResult) domain.VerificationResult {
	span.SetAttributes(attribute.String("license.reason", string(res.Reason)))
	metrics.LicenseChecksTotal.WithLabelValues(string(res.Reason)).Inc()
	return res
}

func storageUnavailable() domain.VerificationResult {
	return domain.VerificationResult{Reason: domain.ReasonStorageUnavailable}
}
