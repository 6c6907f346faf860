package domain

import "time"

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

func (s Side) IsValid() bool {
	return s == SideBuy || s == SideSell
}

// Trend is the supertrend filter state carried by an alert. The zero value
// means the alert had no trend confirmation.
type Trend string

const (
	TrendNone Trend = ""
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
)

func (t Trend) IsValid() bool {
	return t == TrendNone || t == TrendUp || t == TrendDown
}

const DefaultRiskReward = "1:2"

// Signal is a normalized charting alert. Optional confirmations are nil when
// the alert did not carry them.
type Signal struct {
	Symbol     string   `json:"symbol"`
	Pattern    string   `json:"pattern"`
	Side       Side     `json:"side"`
	Price      float64  `json:"price"`
	PRZLow     *float64 `json:"prz_low,omitempty"`
	PRZHigh    *float64 `json:"prz_high,omitempty"`
	RSI        *float64 `json:"rsi,omitempty"`
	Trend      Trend    `json:"supertrend,omitempty"`
	RiskReward string   `json:"risk_reward"`
}

type Decision struct {
	Accept bool
	Reason string
}

// Order is the mailbox payload handed to the polling terminal. SL and TP of
// 0 mean unset.
type Order struct {
	ID        string    `json:"id"`
	Direction Side      `json:"direction"`
	Symbol    string    `json:"symbol"`
	Lot       float64   `json:"lot"`
	SL        float64   `json:"sl"`
	TP        float64   `json:"tp"`
	CreatedAt time.Time `json:"-"`
}

// OutboundOrder is the message-queue payload forwarded to the terminal.
type OutboundOrder struct {
	Type     string  `json:"type"`
	ID       string  `json:"id,omitempty"`
	Symbol   string  `json:"symbol"`
	Side     Side    `json:"side"`
	Lot      float64 `json:"lot"`
	Price    float64 `json:"price"`
	SL       float64 `json:"sl"`
	TP       float64 `json:"tp"`
	Slippage int     `json:"slippage"`
	Magic    int     `json:"magic"`
	Comment  string  `json:"comment"`
}

const ResultEventClose = "CLOSE"

const (
	ResultStatusOK    = "OK"
	ResultStatusError = "ERROR"
)

// OrderResult is what the terminal reports after executing (or failing) an
// order, or when a position closes.
type OrderResult struct {
	OrderID   string   `json:"id,omitempty"`
	Status    string   `json:"status,omitempty"`
	Event     string   `json:"event,omitempty"`
	Direction string   `json:"direction,omitempty"`
	Symbol    string   `json:"symbol,omitempty"`
	Lot       *float64 `json:"lot,omitempty"`
	Deal      string   `json:"deal,omitempty"`
	Order     string   `json:"order,omitempty"`
	Reason    string   `json:"reason,omitempty"`
	Profit    *float64 `json:"profit,omitempty"`
	Raw       string   `json:"-"`
}

type ResultKind string

const (
	ResultKindExecuted ResultKind = "executed"
	ResultKindError    ResultKind = "error"
	ResultKindClose    ResultKind = "close"
	ResultKindOther    ResultKind = "other"
)

// AckOutcome describes what the mailbox did with a reported result.
type AckOutcome struct {
	Kind     ResultKind
	Pending  *Order
	Cleared  bool
	Mismatch bool
}

// JournalEntry is one row of the trade journal.
type JournalEntry struct {
	Time    time.Time
	Symbol  string
	Pattern string
	Side    string
	Price   float64
	PRZLow  *float64
	PRZHigh *float64
	RSI     *float64
	Trend   string
	Status  string
	SL      float64
	TP      float64
	Lot     float64
	Note    string
}

const (
	JournalRejected = "REJECTED"
	JournalSent     = "SENT"
	JournalQueued   = "QUEUED"
	JournalResult   = "RESULT"
)
