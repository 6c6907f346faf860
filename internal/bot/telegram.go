package bot

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"signal-bridge/internal/domain"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

type OrderPeeker interface {
	Peek() (domain.Order, bool)
}

type LicenseChecker interface {
	Check(ctx context.Context, key string) (domain.VerificationResult, error)
}

type Settings struct {
	Token     string
	ChannelID int64
	Timeout   time.Duration
}

// StartTelegramBot connects the bot, registers its commands and starts long
// polling in the background. It returns nil when no token is configured.
func StartTelegramBot(s Settings, orders OrderPeeker, licenses LicenseChecker, logger *zap.Logger) (*Notifier, error) {
	if s.Token == "" {
		logger.Info("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return nil, nil
	}
	if s.Timeout <= 0 {
		s.Timeout = 5 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  s.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		// Long polling holds the request open, so the client must outlast it.
		Client: &http.Client{Timeout: 10*time.Second + s.Timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	notifier := NewNotifier(b, s.ChannelID, s.Timeout)

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/order", func(c tele.Context) error {
		return c.Send(pendingOrderReply(orders), tele.ModeHTML)
	})

	b.Handle("/license", func(c tele.Context) error {
		return c.Send(licenseReply(context.Background(), licenses, c.Args()))
	})

	b.Handle("/alerts", func(c tele.Context) error {
		chat := c.Chat()
		if chat == nil {
			return c.Send("Unable to detect chat")
		}

		mode, err := parseAlertMode(c.Args())
		if err != nil {
			return c.Send("Usage: /alerts on | /alerts off | /alerts status")
		}

		switch mode {
		case alertsOn:
			if notifier.SetAlerts(chat.ID, true) {
				return c.Send("Trade alerts enabled for this chat.")
			}
			return c.Send("Trade alerts are already enabled for this chat.")
		case alertsOff:
			if notifier.SetAlerts(chat.ID, false) {
				return c.Send("Trade alerts disabled for this chat.")
			}
			return c.Send("Trade alerts are already disabled for this chat.")
		}
		if notifier.AlertsEnabled(chat.ID) {
			return c.Send("Alerts status: ON")
		}
		return c.Send("Alerts status: OFF")
	})

	logger.Info("telegram bot started", zap.Int64("channel_id", s.ChannelID))
	go b.Start()
	return notifier, nil
}

func pendingOrderReply(orders OrderPeeker) string {
	if orders == nil {
		return "Order mailbox unavailable"
	}
	order, ok := orders.Peek()
	if !ok {
		return "No pending order."
	}
	return PendingOrderMessage(order)
}

func licenseReply(ctx context.Context, licenses LicenseChecker, args []string) string {
	if licenses == nil {
		return "License storage not configured."
	}
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return "Usage: /license <key>"
	}
	res, err := licenses.Check(ctx, strings.TrimSpace(args[0]))
	if err != nil {
		return "License storage unavailable, try again later."
	}
	if !res.Valid {
		return fmt.Sprintf("License invalid: %s", res.Reason)
	}
	msg := "License valid"
	if res.License != nil {
		if res.License.ExpiresAt > 0 {
			msg += fmt.Sprintf(", expires %s", time.Unix(res.License.ExpiresAt, 0).UTC().Format(time.RFC3339))
		} else {
			msg += ", never expires"
		}
	}
	return msg
}
