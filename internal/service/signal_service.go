package service

import (
	"context"
	"time"

	"signal-bridge/internal/bot"
	"signal-bridge/internal/domain"
	"signal-bridge/internal/metrics"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	AlertRejected = "rejected"
	AlertSent     = "sent"

	outboundOrderType = "ORDER"
)

type SignalEngine interface {
	Evaluate(sig domain.Signal) domain.Decision
	ComputeLevels(sig domain.Signal) (float64, float64)
}

type OrderPublisher interface {
	PublishOrder(ctx context.Context, order domain.OutboundOrder) error
}

// AlertOrder carries the per-alert execution settings.
type AlertOrder struct {
	Lot     float64
	Magic   int
	Comment string
}

type AlertOutcome struct {
	Status string
	Reason string
	Order  *domain.OutboundOrder
}

// SignalService is the alert pipeline: evaluate, compute levels, hand the
// order to the mailbox and the terminal queue, then notify and journal.
type SignalService struct {
	tracer    trace.Tracer
	engine    SignalEngine
	mailbox   OrderMailbox
	publisher OrderPublisher
	slippage  int
	sinks     sinks
	now       func() time.Time
}

func NewSignalService(
	tracer trace.Tracer,
	engine SignalEngine,
	mailbox OrderMailbox,
	publisher OrderPublisher,
	slippage int,
	notifier Notifier,
	journal JournalWriter,
	logger *zap.Logger,
) *SignalService {
	return &SignalService{
		tracer:    tracer,
		engine:    engine,
		mailbox:   mailbox,
		publisher: publisher,
		slippage:  slippage,
		sinks:     sinks{notifier: notifier, journal: journal, logger: logger},
		now:       time.Now,
	}
}

func (s *SignalService) HandleAlert(ctx context.Context, sig domain.Signal, opts AlertOrder) AlertOutcome {
	ctx, span := s.tracer.Start(ctx, "signal-service.handle-alert")
	defer span.End()
	span.SetAttributes(
		attribute.String("signal.symbol", sig.Symbol),
		attribute.String("signal.side", string(sig.Side)),
		attribute.String("signal.pattern", sig.Pattern),
	)

	entry := domain.JournalEntry{
		Time:    s.now(),
		Symbol:  sig.Symbol,
		Pattern: sig.Pattern,
		Side:    string(sig.Side),
		Price:   sig.Price,
		PRZLow:  sig.PRZLow,
		PRZHigh: sig.PRZHigh,
		RSI:     sig.RSI,
		Trend:   string(sig.Trend),
	}

	decision := s.engine.Evaluate(sig)
	if !decision.Accept {
		span.SetAttributes(attribute.String("signal.reject_reason", decision.Reason))
		metrics.SignalsTotal.WithLabelValues(sig.Symbol, string(sig.Side), AlertRejected).Inc()
		s.sinks.logger.Info("signal rejected",
			zap.String("symbol", sig.Symbol),
			zap.String("pattern", sig.Pattern),
			zap.String("side", string(sig.Side)),
			zap.String("reason", decision.Reason),
		)
		s.sinks.notify(ctx, bot.RejectedSignalMessage(sig, decision.Reason))
		entry.Status = domain.JournalRejected
		entry.Note = decision.Reason
		s.sinks.record(ctx, entry)
		return AlertOutcome{Status: AlertRejected, Reason: decision.Reason}
	}

	sl, tp := s.engine.ComputeLevels(sig)
	stored, replaced := s.mailbox.Push(domain.Order{
		Direction: sig.Side,
		Symbol:    sig.Symbol,
		Lot:       opts.Lot,
		SL:        sl,
		TP:        tp,
	})
	metrics.OrdersQueuedTotal.WithLabelValues("alert").Inc()
	if replaced {
		metrics.OrdersReplacedTotal.Inc()
	}

	order := domain.OutboundOrder{
		Type:     outboundOrderType,
		ID:       stored.ID,
		Symbol:   sig.Symbol,
		Side:     sig.Side,
		Lot:      opts.Lot,
		Price:    sig.Price,
		SL:       sl,
		TP:       tp,
		Slippage: s.slippage,
		Magic:    opts.Magic,
		Comment:  opts.Comment,
	}
	if s.publisher != nil {
		if err := s.publisher.PublishOrder(ctx, order); err != nil {
			metrics.PublishFailuresTotal.Inc()
			s.sinks.logger.Error("publish order to terminal queue failed", zap.String("id", order.ID), zap.Error(err))
		}
	}

	metrics.SignalsTotal.WithLabelValues(sig.Symbol, string(sig.Side), AlertSent).Inc()
	s.sinks.logger.Info("signal sent",
		zap.String("id", order.ID),
		zap.String("symbol", order.Symbol),
		zap.String("side", string(order.Side)),
		zap.Float64("sl", sl),
		zap.Float64("tp", tp),
		zap.Bool("replaced", replaced),
	)
	s.sinks.notify(ctx, bot.SentEntryMessage(sig, order))

	entry.Status = domain.JournalSent
	entry.SL, entry.TP, entry.Lot = sl, tp, opts.Lot
	s.sinks.record(ctx, entry)
	return AlertOutcome{Status: AlertSent, Order: &order}
}
