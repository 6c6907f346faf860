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

// DefaultClaimLease bounds how long an unprocessed claim blocks redeliveries.
const DefaultClaimLease = 10 * time.Minute

// BillingEventRepository records provider event ids so redelivered webhooks
// are processed once.
type BillingEventRepository struct {
	pool   PgxPool
	tracer trace.Tracer
	lease  time.Duration
}

func NewBillingEventRepository(pool PgxPool, tracer trace.Tracer) *BillingEventRepository {
	return &BillingEventRepository{pool: pool, tracer: tracer, lease: DefaultClaimLease}
}

// Claim takes ownership of an event id. An unprocessed claim older than the
// lease is taken over, so a crash or a failed release cannot pin the event.
func (r *BillingEventRepository) Claim(ctx context.Context, provider, eventID, eventType string) (domain.EventClaim, error) {
	ctx, span := r.tracer.Start(ctx, "billing-event-repo.claim")
	defer span.End()

	tag, err := r.pool.Exec(ctx,
		`INSERT INTO billing_events (provider, event_id, event_type, claimed_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (provider, event_id) DO UPDATE
		    SET claimed_at = NOW(), event_type = EXCLUDED.event_type
		  WHERE billing_events.processed_at IS NULL
		    AND billing_events.claimed_at < NOW() - make_interval(secs => $4)`,
		provider, eventID, eventType, r.lease.Seconds(),
	)
	if err != nil {
		return "", storageErr("claim billing event", err)
	}
	if tag.RowsAffected() == 1 {
		return domain.ClaimAcquired, nil
	}

	var processed bool
	err = r.pool.QueryRow(ctx,
		`SELECT processed_at IS NOT NULL FROM billing_events WHERE provider = $1 AND event_id = $2`,
		provider, eventID,
	).Scan(&processed)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ClaimHeld, nil
	}
	if err != nil {
		return "", storageErr("read billing event claim", err)
	}
	span.SetAttributes(attribute.Bool("processed", processed))
	if processed {
		return domain.ClaimProcessed, nil
	}
	return domain.ClaimHeld, nil
}

func (r *BillingEventRepository) MarkProcessed(ctx context.Context, provider, eventID, outcome string, at time.Time) error {
	ctx, span := r.tracer.Start(ctx, "billing-event-repo.mark-processed")
	defer span.End()

	_, err := r.pool.Exec(ctx,
		`UPDATE billing_events SET outcome = $1, processed_at = $2 WHERE provider = $3 AND event_id = $4`,
		outcome, at.UTC(), provider, eventID,
	)
	if err != nil {
		return storageErr("mark billing event processed", err)
	}
	return nil
}

// Release drops a claim whose handling failed so a redelivery can retry it.
func (r *BillingEventRepository) Release(ctx context.Context, provider, eventID string) error {
	ctx, span := r.tracer.Start(ctx, "billing-event-repo.release")
	defer span.End()

	_, err := r.pool.Exec(ctx,
		`DELETE FROM billing_events WHERE provider = $1 AND event_id = $2 AND processed_at IS NULL`,
		provider, eventID,
	)
	if err != nil {
		return storageErr("release billing event", err)
	}
	return nil
}

func (r *BillingEventRepository) DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "billing-event-repo.delete-processed-before")
	defer span.End()

	tag, err := r.pool.Exec(ctx,
		`DELETE FROM billing_events WHERE processed_at IS NOT NULL AND processed_at < $1`,
		cutoff.UTC(),
	)
	if err != nil {
		return 0, storageErr("prune billing events", err)
	}
	return tag.RowsAffected(), nil
}
