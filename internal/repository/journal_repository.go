package repository

import (
	"context"

	"signal-bridge/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

type JournalRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewJournalRepository(pool PgxPool, tracer trace.Tracer) *JournalRepository {
	return &JournalRepository{pool: pool, tracer: tracer}
}

func (r *JournalRepository) Append(ctx context.Context, e domain.JournalEntry) error {
	ctx, span := r.tracer.Start(ctx, "journal-repo.append")
	defer span.End()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO trade_journal
		     (logged_at, symbol, pattern, side, price, prz_low, prz_high, rsi, trend, status, sl, tp, lot, note)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		e.Time.UTC(), e.Symbol, e.Pattern, e.Side, e.Price,
		e.PRZLow, e.PRZHigh, e.RSI, e.Trend,
		e.Status, e.SL, e.TP, e.Lot, e.Note,
	)
	if err != nil {
		return storageErr("append journal entry", err)
	}
	return nil
}
