package repository

import (
	"context"
	"errors"
	"time"

	"signal-bridge/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const licenseColumns = `id, license_key, email, customer_id, bound_device, status, expires_at, created_at, updated_at`

type LicenseRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewLicenseRepository(pool PgxPool, tracer trace.Tracer) *LicenseRepository {
	return &LicenseRepository{pool: pool, tracer: tracer}
}

// Insert stores a new license and returns it with its row id. A colliding
// license_key returns domain.ErrDuplicateKey.
func (r *LicenseRepository) Insert(ctx context.Context, l domain.License) (*domain.License, error) {
	ctx, span := r.tracer.Start(ctx, "license-repo.insert")
	defer span.End()

	row := r.pool.QueryRow(ctx,
		`INSERT INTO licenses (license_key, email, customer_id, bound_device, status, expires_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		l.Key, l.Email, l.CustomerID, l.BoundDevice, string(l.Status), l.ExpiresAt, l.CreatedAt, l.UpdatedAt,
	)
	if err := row.Scan(&l.ID); err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrDuplicateKey
		}
		return nil, storageErr("insert license", err)
	}
	return &l, nil
}

func (r *LicenseRepository) FindByKey(ctx context.Context, key string) (*domain.License, error) {
	ctx, span := r.tracer.Start(ctx, "license-repo.find-by-key")
	defer span.End()

	return r.scanOne(r.pool.QueryRow(ctx,
		`SELECT `+licenseColumns+` FROM licenses WHERE license_key = $1`,
		key,
	), "find license by key")
}

// FindActiveByEmail returns the oldest active license for email.
func (r *LicenseRepository) FindActiveByEmail(ctx context.Context, email string) (*domain.License, error) {
	ctx, span := r.tracer.Start(ctx, "license-repo.find-active-by-email")
	defer span.End()

	return r.scanOne(r.pool.QueryRow(ctx,
		`SELECT `+licenseColumns+` FROM licenses
		 WHERE email = $1 AND status = 'active'
		 ORDER BY id ASC LIMIT 1`,
		email,
	), "find active license by email")
}

func (r *LicenseRepository) FindActiveByCustomer(ctx context.Context, customerID string) (*domain.License, error) {
	ctx, span := r.tracer.Start(ctx, "license-repo.find-active-by-customer")
	defer span.End()

	return r.scanOne(r.pool.QueryRow(ctx,
		`SELECT `+licenseColumns+` FROM licenses
		 WHERE customer_id = $1 AND status = 'active'
		 ORDER BY id ASC LIMIT 1`,
		customerID,
	), "find active license by customer")
}

// FindActiveUnlinkedByEmail only considers licenses that were never tied to
// a provider customer.
func (r *LicenseRepository) FindActiveUnlinkedByEmail(ctx context.Context, email string) (*domain.License, error) {
	ctx, span := r.tracer.Start(ctx, "license-repo.find-active-unlinked-by-email")
	defer span.End()

	return r.scanOne(r.pool.QueryRow(ctx,
		`SELECT `+licenseColumns+` FROM licenses
		 WHERE email = $1 AND customer_id = '' AND status = 'active'
		 ORDER BY id ASC LIMIT 1`,
		email,
	), "find active unlinked license by email")
}

func (r *LicenseRepository) UpdateExpiry(ctx context.Context, key string, expiresAt int64, now time.Time) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "license-repo.update-expiry")
	defer span.End()

	tag, err := r.pool.Exec(ctx,
		`UPDATE licenses SET expires_at = $1, updated_at = $2 WHERE license_key = $3`,
		expiresAt, now.Unix(), key,
	)
	if err != nil {
		return 0, storageErr("update license expiry", err)
	}
	return tag.RowsAffected(), nil
}

func (r *LicenseRepository) UpdateStatus(ctx context.Context, key string, status domain.LicenseStatus, now time.Time) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "license-repo.update-status")
	defer span.End()
	span.SetAttributes(attribute.String("status", string(status)))

	tag, err := r.pool.Exec(ctx,
		`UPDATE licenses SET status = $1, updated_at = $2 WHERE license_key = $3`,
		string(status), now.Unix(), key,
	)
	if err != nil {
		return 0, storageErr("update license status", err)
	}
	return tag.RowsAffected(), nil
}

func (r *LicenseRepository) LinkCustomer(ctx context.Context, key, customerID string, now time.Time) error {
	ctx, span := r.tracer.Start(ctx, "license-repo.link-customer")
	defer span.End()

	_, err := r.pool.Exec(ctx,
		`UPDATE licenses SET customer_id = $1, updated_at = $2 WHERE license_key = $3 AND customer_id = ''`,
		customerID, now.Unix(), key,
	)
	if err != nil {
		return storageErr("link license customer", err)
	}
	return nil
}

// BindDevice sets bound_device only while it is still empty, so the first
// writer wins even under concurrent verifications. It reports whether this
// call performed the binding.
func (r *LicenseRepository) BindDevice(ctx context.Context, key, device string, now time.Time) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "license-repo.bind-device")
	defer span.End()

	tag, err := r.pool.Exec(ctx,
		`UPDATE licenses SET bound_device = $1, updated_at = $2 WHERE license_key = $3 AND bound_device = ''`,
		device, now.Unix(), key,
	)
	if err != nil {
		return false, storageErr("bind license device", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *LicenseRepository) DeactivateActiveByEmail(ctx context.Context, email string, now time.Time) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "license-repo.deactivate-by-email")
	defer span.End()

	tag, err := r.pool.Exec(ctx,
		`UPDATE licenses SET status = 'inactive', updated_at = $1 WHERE email = $2 AND status = 'active'`,
		now.Unix(), email,
	)
	if err != nil {
		return 0, storageErr("deactivate licenses by email", err)
	}
	return tag.RowsAffected(), nil
}

// DeactivateActiveByCustomer deactivates the customer's licenses plus any
// unlinked licenses filed under the same email.
func (r *LicenseRepository) DeactivateActiveByCustomer(ctx context.Context, customerID, email string, now time.Time) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "license-repo.deactivate-by-customer")
	defer span.End()

	tag, err := r.pool.Exec(ctx,
		`UPDATE licenses SET status = 'inactive', updated_at = $1
		 WHERE status = 'active'
		   AND (customer_id = $2 OR (customer_id = '' AND email <> '' AND email = $3))`,
		now.Unix(), customerID, email,
	)
	if err != nil {
		return 0, storageErr("deactivate licenses by customer", err)
	}
	return tag.RowsAffected(), nil
}

func (r *LicenseRepository) scanOne(row pgx.Row, op string) (*domain.License, error) {
	var l domain.License
	var status string
	err := row.Scan(
		&l.ID, &l.Key, &l.Email, &l.CustomerID, &l.BoundDevice,
		&status, &l.ExpiresAt, &l.CreatedAt, &l.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrLicenseNotFound
	}
	if err != nil {
		return nil, storageErr(op, err)
	}
	l.Status = domain.LicenseStatus(status)
	return &l, nil
}
