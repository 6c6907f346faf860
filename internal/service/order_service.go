package service

import (
	"context"
	"strings"
	"time"

	"signal-bridge/internal/bot"
	"signal-bridge/internal/domain"
	"signal-bridge/internal/metrics"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type OrderMailbox interface {
	Push(order domain.Order) (domain.Order, bool)
	Peek() (domain.Order, bool)
	Ack(result domain.OrderResult) domain.AckOutcome
}

type OrderDefaults struct {
	Symbol string
	Lot    float64
}

// OrderService runs the terminal hand-off: manual pushes, polls and result
// reports.
type OrderService struct {
	tracer   trace.Tracer
	mailbox  OrderMailbox
	defaults OrderDefaults
	sinks    sinks
	now      func() time.Time
}

func NewOrderService(
	tracer trace.Tracer,
	mailbox OrderMailbox,
	defaults OrderDefaults,
	notifier Notifier,
	journal JournalWriter,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		tracer:   tracer,
		mailbox:  mailbox,
		defaults: defaults,
		sinks:    sinks{notifier: notifier, journal: journal, logger: logger},
		now:      time.Now,
	}
}

// QueueOrder validates a manual order, fills defaults and replaces whatever
// is pending.
func (s *OrderService) QueueOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "order-service.queue")
	defer span.End()

	order.Direction = domain.Side(strings.ToUpper(strings.TrimSpace(string(order.Direction))))
	if !order.Direction.IsValid() {
		s.sinks.logger.Warn("order rejected: bad direction", zap.String("direction", string(order.Direction)))
		return domain.Order{}, &domain.ValidationError{Field: "direction", Kind: domain.OutOfRange}
	}
	if strings.TrimSpace(order.Symbol) == "" {
		order.Symbol = s.defaults.Symbol
	}
	if order.Lot <= 0 {
		order.Lot = s.defaults.Lot
	}

	stored, replaced := s.mailbox.Push(order)
	span.SetAttributes(attribute.String("order.id", stored.ID), attribute.Bool("order.replaced", replaced))
	metrics.OrdersQueuedTotal.WithLabelValues("manual").Inc()
	if replaced {
		metrics.OrdersReplacedTotal.Inc()
	}
	s.sinks.logger.Info("order queued",
		zap.String("id", stored.ID),
		zap.String("direction", string(stored.Direction)),
		zap.String("symbol", stored.Symbol),
		zap.Float64("lot", stored.Lot),
		zap.Bool("replaced", replaced),
	)

	s.sinks.notify(ctx, bot.PendingOrderMessage(stored))
	s.sinks.record(ctx, domain.JournalEntry{
		Time:   stored.CreatedAt,
		Symbol: stored.Symbol,
		Side:   string(stored.Direction),
		Status: domain.JournalQueued,
		SL:     stored.SL,
		TP:     stored.TP,
		Lot:    stored.Lot,
		Note:   "id=" + stored.ID,
	})
	return stored, nil
}

func (s *OrderService) NextOrder(ctx context.Context) (domain.Order, bool) {
	_, span := s.tracer.Start(ctx, "order-service.next")
	defer span.End()

	order, ok := s.mailbox.Peek()
	span.SetAttributes(attribute.Bool("order.pending", ok))
	return order, ok
}

// HandleResult routes a terminal report through the mailbox, then notifies
// and journals it.
func (s *OrderService) HandleResult(ctx context.Context, result domain.OrderResult) domain.AckOutcome {
	ctx, span := s.tracer.Start(ctx, "order-service.handle-result")
	defer span.End()

	out := s.mailbox.Ack(result)
	span.SetAttributes(
		attribute.String("result.kind", string(out.Kind)),
		attribute.Bool("result.cleared", out.Cleared),
		attribute.Bool("result.mismatch", out.Mismatch),
	)
	metrics.OrderResultsTotal.WithLabelValues(string(out.Kind)).Inc()

	fields := []zap.Field{
		zap.String("kind", string(out.Kind)),
		zap.String("result_id", result.OrderID),
		zap.Bool("cleared", out.Cleared),
	}
	if out.Mismatch {
		s.sinks.logger.Warn("terminal result does not match pending order",
			append(fields, zap.String("pending_id", out.Pending.ID))...)
		s.sinks.notify(ctx, bot.MismatchMessage(result, *out.Pending))
	} else {
		s.sinks.logger.Info("terminal result received", fields...)
		s.sinks.notify(ctx, bot.ResultMessage(result, out.Kind))
	}

	entry := domain.JournalEntry{
		Time:   s.now(),
		Symbol: result.Symbol,
		Side:   result.Direction,
		Status: domain.JournalResult,
		Note:   string(out.Kind) + " " + result.Raw,
	}
	if result.Lot != nil {
		entry.Lot = *result.Lot
	}
	if out.Cleared && out.Kind != domain.ResultKindClose {
		if entry.Symbol == "" {
			entry.Symbol = out.Pending.Symbol
		}
		if entry.Side == "" {
			entry.Side = string(out.Pending.Direction)
		}
		entry.SL, entry.TP = out.Pending.SL, out.Pending.TP
	}
	s.sinks.record(ctx, entry)
	return out
}
