package job

import (
	"context"
	"errors"
	"time"

	"signal-bridge/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const maxEventsPerTick = 100

type EventSource interface {
	PollEvent(ctx context.Context) (domain.OrderResult, bool, error)
}

type ResultHandler interface {
	HandleResult(ctx context.Context, result domain.OrderResult) domain.AckOutcome
}

// EventPump drains terminal events pushed onto the message queue and routes
// them through the same path as POST /order_result.
type EventPump struct {
	tracer   trace.Tracer
	source   EventSource
	handler  ResultHandler
	interval time.Duration
	logger   *zap.Logger
}

func NewEventPump(tracer trace.Tracer, source EventSource, handler ResultHandler, intervalSecs int, logger *zap.Logger) *EventPump {
	if intervalSecs <= 0 {
		intervalSecs = 1
	}
	return &EventPump{
		tracer:   tracer,
		source:   source,
		handler:  handler,
		interval: time.Duration(intervalSecs) * time.Second,
		logger:   logger,
	}
}

// Start blocks until ctx is cancelled.
func (p *EventPump) Start(ctx context.Context) {
	if p == nil || p.source == nil || p.handler == nil {
		<-ctx.Done()
		return
	}

	p.logger.Info("terminal event pump starting", zap.Duration("interval", p.interval))
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.drain(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("terminal event pump stopped")
			return
		case <-ticker.C:
			p.drain(ctx)
		}
	}
}

// drain pops queued events until the list is empty, the transport fails or
// the per-tick cap is reached. It returns the number handled.
func (p *EventPump) drain(ctx context.Context) int {
	ctx, span := p.tracer.Start(ctx, "event-pump.drain")
	defer span.End()

	handled := 0
	for i := 0; i < maxEventsPerTick; i++ {
		if ctx.Err() != nil {
			break
		}
		result, ok, err := p.source.PollEvent(ctx)
		if errors.Is(err, domain.ErrInvalidInput) {
			p.logger.Warn("dropping malformed terminal event", zap.Error(err))
			continue
		}
		if err != nil {
			p.logger.Error("poll terminal events", zap.Error(err))
			break
		}
		if !ok {
			break
		}
		out := p.handler.HandleResult(ctx, result)
		p.logger.Debug("terminal event handled",
			zap.String("kind", string(out.Kind)),
			zap.Bool("cleared", out.Cleared),
		)
		handled++
	}
	span.SetAttributes(attribute.Int("events.handled", handled))
	return handled
}
