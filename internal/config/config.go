package config

import (
	"os"
	"strconv"
	"strings"
)

type LogConfig struct {
	Level    string
	Encoding string
}

type StripeConfig struct {
	SecretKey     string
	PriceID       string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
}

type Config struct {
	Port          string
	WebhookSecret string
	DatabaseURL   string
	RedisURL      string

	OrderQueueKey string
	EventQueueKey string
	EventPumpSecs int

	TelegramBotToken  string
	TelegramChatID    int64
	NotifyTimeoutSecs int

	DefaultSymbol  string
	DefaultLot     float64
	SlippagePoints int
	DefaultMagic   int
	DefaultComment string

	LicenseDays int
	AdminToken  string

	Stripe StripeConfig

	BillingEventRetentionDays int
	BillingRetentionCron      string

	CORSAllowOrigins []string
	OTLPEndpoint     string

	// Operator console over streamable HTTP; disabled without a token.
	ConsoleAuthToken       string
	ConsoleRateLimitPerMin int
	ConsoleRequestTimeout  int

	Log LogConfig
}

const defaultWebhookSecret = "change-me"

func Load() *Config {
	cfg := &Config{
		WebhookSecret:    strings.TrimSpace(os.Getenv("WEBHOOK_SECRET")),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         strings.TrimSpace(os.Getenv("REDIS_URL")),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		AdminToken:       strings.TrimSpace(os.Getenv("ADMIN_TOKEN")),
		OTLPEndpoint:     strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		Stripe: StripeConfig{
			SecretKey:     strings.TrimSpace(os.Getenv("STRIPE_SECRET_KEY")),
			PriceID:       strings.TrimSpace(os.Getenv("STRIPE_PRICE_ID")),
			WebhookSecret: strings.TrimSpace(os.Getenv("STRIPE_WEBHOOK_SECRET")),
			SuccessURL:    stringOr("STRIPE_SUCCESS_URL", "https://example.com/success?session_id={CHECKOUT_SESSION_ID}"),
			CancelURL:     stringOr("STRIPE_CANCEL_URL", "https://example.com/cancel"),
		},
	}

	cfg.Port = strings.TrimSpace(os.Getenv("PORT"))
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.WebhookSecret == "" {
		cfg.WebhookSecret = defaultWebhookSecret
	}
	if cfg.RedisURL == "" {
		cfg.RedisURL = "localhost:6379"
	}

	cfg.OrderQueueKey = stringOr("ORDER_QUEUE_KEY", "terminal:orders")
	cfg.EventQueueKey = stringOr("EVENT_QUEUE_KEY", "terminal:events")
	cfg.EventPumpSecs = positiveInt("EVENT_PUMP_SECS", 1)

	if v := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.TelegramChatID = n
		}
	}
	cfg.NotifyTimeoutSecs = positiveInt("NOTIFY_TIMEOUT_SECS", 5)

	cfg.DefaultSymbol = stringOr("DEFAULT_SYMBOL", "US30")
	cfg.DefaultLot = 0.10
	if v := strings.TrimSpace(os.Getenv("DEFAULT_LOT")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 {
			cfg.DefaultLot = n
		}
	}
	cfg.SlippagePoints = 20
	if v := strings.TrimSpace(os.Getenv("SLIPPAGE_POINTS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.SlippagePoints = n
		}
	}
	cfg.DefaultMagic = positiveInt("DEFAULT_MAGIC", 88001)
	cfg.DefaultComment = stringOr("DEFAULT_COMMENT", "ProfitPro")

	cfg.LicenseDays = positiveInt("LICENSE_DAYS", 30)

	cfg.BillingEventRetentionDays = positiveInt("BILLING_EVENT_RETENTION_DAYS", 90)
	cfg.BillingRetentionCron = stringOr("BILLING_RETENTION_CRON", "0 30 3 * * *")

	cfg.CORSAllowOrigins = parseOrigins(os.Getenv("CORS_ALLOW_ORIGINS"))

	cfg.ConsoleAuthToken = strings.TrimSpace(os.Getenv("MCP_AUTH_TOKEN"))
	cfg.ConsoleRateLimitPerMin = positiveInt("MCP_RATE_LIMIT_PER_MIN", 60)
	cfg.ConsoleRequestTimeout = positiveInt("MCP_REQUEST_TIMEOUT_SECS", 5)

	cfg.Log.Level = strings.ToLower(stringOr("LOG_LEVEL", "info"))
	cfg.Log.Encoding = strings.ToLower(stringOr("LOG_ENCODING", "json"))
	if cfg.Log.Encoding != "json" && cfg.Log.Encoding != "console" {
		cfg.Log.Encoding = "json"
	}

	return cfg
}

// Warnings lists missing or unsafe settings worth logging at boot.
func (c *Config) Warnings() []string {
	var out []string
	if c.WebhookSecret == defaultWebhookSecret {
		out = append(out, "WEBHOOK_SECRET not set, using the default secret")
	}
	if c.DatabaseURL == "" {
		out = append(out, "DATABASE_URL not set, licenses and trade journal disabled")
	}
	if c.TelegramBotToken == "" || c.TelegramChatID == 0 {
		out = append(out, "TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID not set, notifications disabled")
	}
	if c.AdminToken == "" {
		out = append(out, "ADMIN_TOKEN not set, admin endpoints are unauthenticated")
	}
	if c.Stripe.SecretKey == "" || c.Stripe.PriceID == "" {
		out = append(out, "STRIPE_SECRET_KEY or STRIPE_PRICE_ID not set, checkout disabled")
	}
	if c.Stripe.WebhookSecret == "" {
		out = append(out, "STRIPE_WEBHOOK_SECRET not set, billing webhook disabled")
	}
	return out
}

func (c *Config) NotificationsEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != 0
}

func stringOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func positiveInt(key string, fallback int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func parseOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		if _, ok := seen[origin]; ok {
			continue
		}
		seen[origin] = struct{}{}
		out = append(out, origin)
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
