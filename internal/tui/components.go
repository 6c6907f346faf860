package tui

import (
	"fmt"
	"strconv"
	"time"

	"signal-bridge/internal/domain"
)

// FormatOrder renders a pending order as a single line.
func FormatOrder(o domain.Order) string {
	dirStyle := BuyStyle
	if o.Direction == domain.SideSell {
		dirStyle = SellStyle
	}
	return fmt.Sprintf("#%s  %s %-8s lot %s  SL %s  TP %s",
		o.ID,
		dirStyle.Render(string(o.Direction)),
		o.Symbol,
		formatNum(o.Lot),
		formatLevel(o.SL),
		formatLevel(o.TP),
	)
}

// FormatLicense renders a license lookup as a few lines.
func FormatLicense(key string, s LicenseStatus, now time.Time) string {
	verdict := ValidStyle.Render("VALID")
	if !s.Valid {
		verdict = InvalidStyle.Render("INVALID (" + s.Reason + ")")
	}
	email := s.Email
	if email == "" {
		email = "-"
	}
	return fmt.Sprintf("  Key:     %s\n  Status:  %s\n  Email:   %s\n  Expires: %s",
		key, verdict, email, formatExpiry(s.ExpiresAt, now))
}

func formatLevel(v float64) string {
	if v == 0 {
		return "-"
	}
	return formatNum(v)
}

func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatExpiry(unix int64, now time.Time) string {
	if unix == 0 {
		return "never"
	}
	at := time.Unix(unix, 0).UTC()
	left := at.Sub(now)
	if left <= 0 {
		return at.Format(time.DateTime) + " (expired)"
	}
	return fmt.Sprintf("%s (%dd left)", at.Format(time.DateTime), int(left.Hours()/24))
}
