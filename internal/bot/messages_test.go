package bot

import (
	"strings"
	"testing"

	"signal-bridge/internal/domain"
)

func f(v float64) *float64 { return &v }

func TestResultMessageByKind(t *testing.T) {
	r := domain.OrderResult{
		Symbol: "US30", Direction: "BUY", Lot: f(1), Deal: "123", Order: "456",
		Reason: "TP", Profit: f(123.45), Raw: `{"status":"OK"}`,
	}
	cases := map[domain.ResultKind]string{
		domain.ResultKindClose:    "Position closed",
		domain.ResultKindExecuted: "Order executed",
		domain.ResultKindError:    "Terminal execution error",
		domain.ResultKindOther:    "Raw terminal event",
	}
	for kind, want := range cases {
		if got := ResultMessage(r, kind); !strings.Contains(got, want) {
			t.Fatalf("%s: expected %q in %q", kind, want, got)
		}
	}
	if got := ResultMessage(r, domain.ResultKindClose); !strings.Contains(got, "<code>123.45</code>") {
		t.Fatalf("expected profit in close message: %q", got)
	}
}

func TestMessagesEscapeHTML(t *testing.T) {
	sig := domain.Signal{Pattern: "<Gartley>", Side: domain.SideSell, Symbol: "US30"}
	got := RejectedSignalMessage(sig, "trend_mismatch")
	if strings.Contains(got, "<Gartley>") || !strings.Contains(got, "&lt;Gartley&gt;") {
		t.Fatalf("expected escaped pattern: %q", got)
	}
}

func TestSentEntryMessageShowsLevels(t *testing.T) {
	sig := domain.Signal{Pattern: "Bat", Side: domain.SideBuy, Symbol: "US30", RiskReward: "1:2", RSI: f(45)}
	order := domain.OutboundOrder{Symbol: "US30", Side: domain.SideBuy, Price: 45000, SL: 44800, TP: 45400, Lot: 0.1}
	got := SentEntryMessage(sig, order)
	for _, want := range []string{"SL: 44800 | TP: 45400", "RSI: 45 | ST: -", "Lot: 0.1"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in %q", want, got)
		}
	}
}
