package bot

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"signal-bridge/internal/domain"
)

func esc(v string) string { return html.EscapeString(v) }

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func optNum(v *float64) string {
	if v == nil {
		return "-"
	}
	return num(*v)
}

func optStr(v string) string {
	if v == "" {
		return "-"
	}
	return esc(v)
}

func RejectedSignalMessage(sig domain.Signal, reason string) string {
	return fmt.Sprintf("❌ <b>Signal rejected</b> (%s %s %s): %s",
		esc(sig.Pattern), esc(string(sig.Side)), esc(sig.Symbol), esc(reason))
}

func SentEntryMessage(sig domain.Signal, order domain.OutboundOrder) string {
	lines := []string{
		"🚀 <b>Entry sent</b>",
		fmt.Sprintf("• %s %s", esc(order.Symbol), esc(string(order.Side))),
		fmt.Sprintf("• Pattern: %s", esc(sig.Pattern)),
		fmt.Sprintf("• Price: %s", num(order.Price)),
		fmt.Sprintf("• SL: %s | TP: %s", num(order.SL), num(order.TP)),
		fmt.Sprintf("• RSI: %s | ST: %s", optNum(sig.RSI), optStr(string(sig.Trend))),
		fmt.Sprintf("• RR: %s", esc(sig.RiskReward)),
		fmt.Sprintf("• Lot: %s", num(order.Lot)),
	}
	return strings.Join(lines, "\n")
}

func PendingOrderMessage(o domain.Order) string {
	lines := []string{
		"📥 <b>New pending order</b>",
		fmt.Sprintf("• Direction: <code>%s</code>", esc(string(o.Direction))),
		fmt.Sprintf("• Symbol: <code>%s</code>", esc(o.Symbol)),
		fmt.Sprintf("• Lot: <code>%s</code>", num(o.Lot)),
		fmt.Sprintf("• SL: <code>%s</code>", num(o.SL)),
		fmt.Sprintf("• TP: <code>%s</code>", num(o.TP)),
		fmt.Sprintf("• Internal ID: <code>%s</code>", esc(o.ID)),
	}
	return strings.Join(lines, "\n")
}

// ResultMessage renders a terminal report according to its kind.
func ResultMessage(r domain.OrderResult, kind domain.ResultKind) string {
	switch kind {
	case domain.ResultKindClose:
		return strings.Join([]string{
			"📤 <b>Position closed</b>",
			fmt.Sprintf("• Symbol: <code>%s</code>", optStr(r.Symbol)),
			fmt.Sprintf("• Lot: <code>%s</code>", optNum(r.Lot)),
			fmt.Sprintf("• Profit: <code>%s</code>", optNum(r.Profit)),
			fmt.Sprintf("• Reason: <code>%s</code>", optStr(r.Reason)),
			fmt.Sprintf("• Deal: <code>%s</code>", optStr(r.Deal)),
		}, "\n")
	case domain.ResultKindExecuted:
		return strings.Join([]string{
			"✅ <b>Order executed</b>",
			fmt.Sprintf("• Direction: <code>%s</code>", optStr(r.Direction)),
			fmt.Sprintf("• Symbol: <code>%s</code>", optStr(r.Symbol)),
			fmt.Sprintf("• Lot: <code>%s</code>", optNum(r.Lot)),
			fmt.Sprintf("• Deal: <code>%s</code>", optStr(r.Deal)),
			fmt.Sprintf("• Order: <code>%s</code>", optStr(r.Order)),
		}, "\n")
	case domain.ResultKindError:
		return strings.Join([]string{
			"❌ <b>Terminal execution error</b>",
			fmt.Sprintf("• Reason: <code>%s</code>", optStr(r.Reason)),
			fmt.Sprintf("• Payload: <code>%s</code>", esc(r.Raw)),
		}, "\n")
	}
	return fmt.Sprintf("ℹ️ <b>Raw terminal event</b>: <code>%s</code>", esc(r.Raw))
}

func MismatchMessage(r domain.OrderResult, pending domain.Order) string {
	return fmt.Sprintf("⚠️ <b>Result for unknown order</b> <code>%s</code>, pending order <code>%s</code> kept",
		esc(r.OrderID), esc(pending.ID))
}
