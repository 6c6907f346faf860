package mailbox

import (
	"sync"
	"testing"
	"time"

	"signal-bridge/internal/domain"
)

func fixedClock() func() time.Time {
	ts := time.UnixMilli(1_700_000_000_000)
	return func() time.Time { return ts }
}

func TestPeekEmpty(t *testing.T) {
	m := New(nil)
	if _, ok := m.Peek(); ok {
		t.Fatal("expected empty mailbox")
	}
	m.Clear()
	if _, ok := m.Peek(); ok {
		t.Fatal("expected empty mailbox after clear")
	}
}

func TestLastPushWins(t *testing.T) {
	m := New(fixedClock())
	a, replaced := m.Push(domain.Order{Direction: domain.SideBuy, Symbol: "US30", Lot: 1})
	if replaced {
		t.Fatal("first push should not replace anything")
	}
	b, replaced := m.Push(domain.Order{Direction: domain.SideSell, Symbol: "NAS100", Lot: 2})
	if !replaced {
		t.Fatal("second push should report replacement")
	}

	got, ok := m.Peek()
	if !ok {
		t.Fatal("expected pending order")
	}
	if got.ID != b.ID || got.Symbol != "NAS100" || got.Direction != domain.SideSell {
		t.Fatalf("expected order B, got %+v", got)
	}
	if a.ID == b.ID {
		t.Fatalf("expected unique ids even with a frozen clock, both %s", a.ID)
	}
}

func TestPeekIsIdempotent(t *testing.T) {
	m := New(nil)
	pushed, _ := m.Push(domain.Order{Direction: domain.SideBuy, Symbol: "US30", Lot: 0.1, SL: 1, TP: 2})
	for i := 0; i < 3; i++ {
		got, ok := m.Peek()
		if !ok || got != pushed {
			t.Fatalf("peek %d returned %+v ok=%v, want %+v", i, got, ok, pushed)
		}
	}
}

func TestPeekReturnsCopy(t *testing.T) {
	m := New(nil)
	m.Push(domain.Order{Direction: domain.SideBuy, Symbol: "US30", Lot: 1})
	got, _ := m.Peek()
	got.Symbol = "MUTATED"
	again, _ := m.Peek()
	if again.Symbol != "US30" {
		t.Fatalf("mailbox state leaked through peek copy: %+v", again)
	}
}

func TestAckClearsOnExecution(t *testing.T) {
	m := New(nil)
	pushed, _ := m.Push(domain.Order{Direction: domain.SideBuy, Symbol: "US30", Lot: 1})

	out := m.Ack(domain.OrderResult{Status: "ok", OrderID: pushed.ID})
	if !out.Cleared || out.Kind != domain.ResultKindExecuted {
		t.Fatalf("expected cleared execution, got %+v", out)
	}
	if out.Pending == nil || out.Pending.ID != pushed.ID {
		t.Fatalf("expected outcome to carry the cleared order, got %+v", out.Pending)
	}
	if _, ok := m.Peek(); ok {
		t.Fatal("expected mailbox to be empty after ack")
	}
}

func TestAckWithoutIDClears(t *testing.T) {
	m := New(nil)
	m.Push(domain.Order{Direction: domain.SideSell, Symbol: "US30", Lot: 1})
	out := m.Ack(domain.OrderResult{Status: "ERROR", Reason: "no money"})
	if !out.Cleared || out.Kind != domain.ResultKindError {
		t.Fatalf("expected legacy ack to clear, got %+v", out)
	}
}

func TestAckMismatchKeepsPending(t *testing.T) {
	m := New(nil)
	pushed, _ := m.Push(domain.Order{Direction: domain.SideBuy, Symbol: "US30", Lot: 1})
	out := m.Ack(domain.OrderResult{Status: "OK", OrderID: "stale"})
	if out.Cleared || !out.Mismatch {
		t.Fatalf("expected mismatch without clearing, got %+v", out)
	}
	got, ok := m.Peek()
	if !ok || got.ID != pushed.ID {
		t.Fatal("expected pending order to survive mismatched ack")
	}
}

func TestAckCloseEventClearsPending(t *testing.T) {
	m := New(nil)
	m.Push(domain.Order{Direction: domain.SideBuy, Symbol: "US30", Lot: 1})
	out := m.Ack(domain.OrderResult{Event: "close", Reason: "TP"})
	if !out.Cleared || out.Kind != domain.ResultKindClose {
		t.Fatalf("expected close event to clear the slot, got %+v", out)
	}
	if _, ok := m.Peek(); ok {
		t.Fatal("expected empty slot after close event")
	}
}

func TestAckOnEmptyMailbox(t *testing.T) {
	out := New(nil).Ack(domain.OrderResult{Status: "OK"})
	if out.Cleared || out.Pending != nil {
		t.Fatalf("expected no-op ack on empty mailbox, got %+v", out)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		in   domain.OrderResult
		want domain.ResultKind
	}{
		{domain.OrderResult{Status: "OK"}, domain.ResultKindExecuted},
		{domain.OrderResult{Status: "error"}, domain.ResultKindError},
		{domain.OrderResult{Event: "CLOSE", Status: "OK"}, domain.ResultKindClose},
		{domain.OrderResult{}, domain.ResultKindOther},
	}
	for _, tc := range cases {
		if got := Classify(tc.in); got != tc.want {
			t.Errorf("Classify(%+v) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestConcurrentPushPeekAck(t *testing.T) {
	m := New(nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				m.Push(domain.Order{Direction: domain.SideBuy, Symbol: "US30", Lot: 1})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				m.Peek()
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				m.Ack(domain.OrderResult{Status: "OK"})
			}
		}()
	}
	wg.Wait()
}
