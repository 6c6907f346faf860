package transport

import (
	"context"
	"encoding/json"
	"testing"

	"signal-bridge/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

func newTestQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewQueue(client, "terminal:orders", "terminal:events", trace.NewNoopTracerProvider().Tracer("test")), mr
}

func TestPublishOrderAppendsJSON(t *testing.T) {
	q, mr := newTestQueue(t)

	order := domain.OutboundOrder{
		Type: "ORDER", ID: "1", Symbol: "US30", Side: domain.SideBuy,
		Lot: 0.1, Price: 45000, SL: 44800, TP: 45400, Slippage: 20, Magic: 88001, Comment: "ProfitPro",
	}
	if err := q.PublishOrder(context.Background(), order); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	items, err := mr.List("terminal:orders")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 queued order, got %d", len(items))
	}
	var got domain.OutboundOrder
	if err := json.Unmarshal([]byte(items[0]), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != order {
		t.Fatalf("expected %+v, got %+v", order, got)
	}
}

func TestPublishOrderPreservesOrder(t *testing.T) {
	q, mr := newTestQueue(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := q.PublishOrder(ctx, domain.OutboundOrder{Type: "ORDER", ID: id}); err != nil {
			t.Fatalf("publish %s: %v", id, err)
		}
	}
	items, _ := mr.List("terminal:orders")
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	var first domain.OutboundOrder
	_ = json.Unmarshal([]byte(items[0]), &first)
	if first.ID != "a" {
		t.Fatalf("expected FIFO order, first was %s", first.ID)
	}
}

func TestPollEventEmpty(t *testing.T) {
	q, _ := newTestQueue(t)

	_, ok, err := q.PollEvent(context.Background())
	if err != nil || ok {
		t.Fatalf("expected empty poll, got ok=%v err=%v", ok, err)
	}
}

func TestPollEventDecodesAndConsumes(t *testing.T) {
	q, mr := newTestQueue(t)
	if _, err := mr.Push("terminal:events", `{"status":"OK","id":"42","deal":7}`, "garbage"); err != nil {
		t.Fatalf("push: %v", err)
	}

	r, ok, err := q.PollEvent(context.Background())
	if err != nil || !ok {
		t.Fatalf("expected event, got ok=%v err=%v", ok, err)
	}
	if r.OrderID != "42" || r.Status != domain.ResultStatusOK || r.Deal != "7" {
		t.Fatalf("unexpected result: %+v", r)
	}

	if _, _, err := q.PollEvent(context.Background()); err == nil {
		t.Fatal("expected decode error for malformed event")
	}
	if items, _ := mr.List("terminal:events"); len(items) != 0 {
		t.Fatalf("malformed event should be consumed, left %v", items)
	}
}

func TestPublishOrderTransportFailure(t *testing.T) {
	q, mr := newTestQueue(t)
	mr.Close()

	if err := q.PublishOrder(context.Background(), domain.OutboundOrder{Type: "ORDER"}); err == nil {
		t.Fatal("expected error when redis is down")
	}
}
