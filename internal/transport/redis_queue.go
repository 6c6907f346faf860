package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"signal-bridge/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Queue is the push/pull channel pair to the trading terminal: orders are
// RPUSHed onto one list and result events are LPOPed from another.
type Queue struct {
	client   redis.Cmdable
	orderKey string
	eventKey string
	tracer   trace.Tracer
}

func NewQueue(client redis.Cmdable, orderKey, eventKey string, tracer trace.Tracer) *Queue {
	return &Queue{client: client, orderKey: orderKey, eventKey: eventKey, tracer: tracer}
}

// Connect opens a client for addr, which may be a host:port or a redis:// URL.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		opts = &redis.Options{Addr: addr}
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (q *Queue) PublishOrder(ctx context.Context, order domain.OutboundOrder) error {
	ctx, span := q.tracer.Start(ctx, "terminal-queue.publish-order")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", order.ID), attribute.String("order.symbol", order.Symbol))

	payload, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("encode order: %w", err)
	}
	if err := q.client.RPush(ctx, q.orderKey, payload).Err(); err != nil {
		return fmt.Errorf("publish order: %w", err)
	}
	return nil
}

// PollEvent pops one terminal event without blocking. ok is false when the
// list is empty. A payload that is not a JSON object is returned as an error
// after it has been removed from the list.
func (q *Queue) PollEvent(ctx context.Context) (result domain.OrderResult, ok bool, err error) {
	raw, err := q.client.LPop(ctx, q.eventKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.OrderResult{}, false, nil
	}
	if err != nil {
		return domain.OrderResult{}, false, fmt.Errorf("poll event: %w", err)
	}
	result, err = domain.DecodeOrderResult(raw)
	if err != nil {
		return domain.OrderResult{}, false, err
	}
	return result, true, nil
}
