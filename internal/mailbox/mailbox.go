package mailbox

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"signal-bridge/internal/domain"
)

// Mailbox holds at most one pending order for a polling consumer. A push
// replaces whatever is pending; there is no queue.
type Mailbox struct {
	now func() time.Time

	mu      sync.Mutex
	pending *domain.Order
	lastID  int64
}

func New(now func() time.Time) *Mailbox {
	if now == nil {
		now = time.Now
	}
	return &Mailbox{now: now}
}

// Push stores a copy of order, assigning a fresh id and creation time, and
// returns the stored copy. replaced reports whether an unconsumed order was
// dropped.
func (m *Mailbox) Push(order domain.Order) (stored domain.Order, replaced bool) {
	ts := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	id := ts.UnixMilli()
	if id <= m.lastID {
		id = m.lastID + 1
	}
	m.lastID = id

	order.ID = strconv.FormatInt(id, 10)
	order.CreatedAt = ts
	replaced = m.pending != nil
	m.pending = &order
	return order, replaced
}

// Peek returns a copy of the pending order without consuming it.
func (m *Mailbox) Peek() (domain.Order, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pending == nil {
		return domain.Order{}, false
	}
	return *m.pending, true
}

// Ack reconciles a terminal result with the pending order. Any result
// clears the slot unless it names a different order id.
func (m *Mailbox) Ack(result domain.OrderResult) domain.AckOutcome {
	kind := Classify(result)

	m.mu.Lock()
	defer m.mu.Unlock()

	out := domain.AckOutcome{Kind: kind}
	if m.pending == nil {
		return out
	}
	pending := *m.pending
	out.Pending = &pending

	if result.OrderID != "" && result.OrderID != pending.ID {
		out.Mismatch = true
		return out
	}
	m.pending = nil
	out.Cleared = true
	return out
}

func (m *Mailbox) Clear() {
	m.mu.Lock()
	m.pending = nil
	m.mu.Unlock()
}

func Classify(result domain.OrderResult) domain.ResultKind {
	if strings.EqualFold(result.Event, domain.ResultEventClose) {
		return domain.ResultKindClose
	}
	switch strings.ToUpper(result.Status) {
	case domain.ResultStatusOK:
		return domain.ResultKindExecuted
	case domain.ResultStatusError:
		return domain.ResultKindError
	}
	return domain.ResultKindOther
}
