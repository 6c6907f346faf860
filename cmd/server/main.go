package main

import (
	"context"
	"log"
	"net/http"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"
	"time"

	"signal-bridge/internal/billing"
	"signal-bridge/internal/bot"
	"signal-bridge/internal/config"
	"signal-bridge/internal/db"
	"signal-bridge/internal/handler"
	"signal-bridge/internal/job"
	"signal-bridge/internal/logger"
	"signal-bridge/internal/mailbox"
	"signal-bridge/internal/mcp"
	"signal-bridge/internal/metrics"
	"signal-bridge/internal/repository"
	"signal-bridge/internal/service"
	signalengine "signal-bridge/internal/signal"
	"signal-bridge/internal/transport"
	"signal-bridge/pkg/tracing"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	_ "signal-bridge/docs"
)

const serviceName = "signal-bridge"

var (
	loadEnvFunc            = godotenv.Load
	loadConfigFunc         = config.Load
	newLoggerFunc          = logger.New
	initTracerFunc         = tracing.InitTracer
	initPostgresFunc       = db.InitPostgres
	runMigrationsFunc      = func(ctx context.Context, pool repository.PgxPool) error { return repository.RunMigrations(ctx, pool) }
	connectRedisFunc       = transport.Connect
	newStripeGatewayFunc   = billing.NewGateway
	startTelegramBotFunc   = bot.StartTelegramBot
	startEventPumpFunc     = func(p *job.EventPump, ctx context.Context) { go p.Start(ctx) }
	newConsoleServerFunc   = mcp.NewServer
	newRouterFunc          = gin.New
	setupSignalNotify      = ossignal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           Signal Bridge API
// @version         1.0
// @description     Alert ingress, terminal hand-off and license service.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	_ = loadEnvFunc()

	cfg := loadConfigFunc()

	zlog, err := newLoggerFunc(cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()
	for _, w := range cfg.Warnings() {
		zlog.Warn(w)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init tracing
	tp, tracer, err := initTracerFunc(ctx, cfg.OTLPEndpoint, serviceName)
	if err != nil {
		zlog.Fatal("failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			zlog.Warn("error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Postgres backs licenses, billing dedup and the journal
	pool, err := initPostgresFunc(ctx, cfg.DatabaseURL)
	if err != nil {
		zlog.Error("postgres unavailable, license and journal features disabled", zap.Error(err))
	}
	if pool != nil {
		defer pool.Close()
		if err := runMigrationsFunc(ctx, pool); err != nil {
			zlog.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// Redis carries orders to the terminal and its events back
	var (
		publisher service.OrderPublisher
		events    job.EventSource
	)
	redisClient, err := connectRedisFunc(ctx, cfg.RedisURL)
	if err != nil {
		zlog.Warn("redis unavailable, terminal queue disabled", zap.Error(err))
	} else {
		defer func() { _ = redisClient.Close() }()
		queue := transport.NewQueue(redisClient, cfg.OrderQueueKey, cfg.EventQueueKey, tracer)
		publisher, events = queue, queue
	}

	gateway := newStripeGatewayFunc(billing.Config{
		SecretKey:     cfg.Stripe.SecretKey,
		PriceID:       cfg.Stripe.PriceID,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		SuccessURL:    cfg.Stripe.SuccessURL,
		CancelURL:     cfg.Stripe.CancelURL,
	}, nil, tracer)

	var (
		licenseService *service.LicenseService
		billingService *service.BillingService
		journal        service.JournalWriter
		retention      *job.BillingRetention
	)
	if pool != nil {
		licenseRepo := repository.NewLicenseRepository(pool, tracer)
		eventRepo := repository.NewBillingEventRepository(pool, tracer)
		journal = repository.NewJournalRepository(pool, tracer)
		licenseService = service.NewLicenseService(tracer, licenseRepo, zlog)
		billingService = service.NewBillingService(tracer, licenseService, eventRepo, gateway, billing.Provider, cfg.LicenseDays, zlog)
		retention = job.NewBillingRetention(ctx, eventRepo, cfg.BillingEventRetentionDays, cfg.BillingRetentionCron, zlog)
	}

	box := mailbox.New(time.Now)

	// Start Telegram bot
	var checker bot.LicenseChecker
	if licenseService != nil {
		checker = licenseService
	}
	notifier, err := startTelegramBotFunc(bot.Settings{
		Token:     cfg.TelegramBotToken,
		ChannelID: cfg.TelegramChatID,
		Timeout:   time.Duration(cfg.NotifyTimeoutSecs) * time.Second,
	}, box, checker, zlog)
	if err != nil {
		zlog.Error("telegram bot failed to start, notifications disabled", zap.Error(err))
	}
	var notify service.Notifier
	if notifier != nil {
		notify = notifier
	}

	signalService := service.NewSignalService(tracer, signalengine.NewEngine(), box, publisher, cfg.SlippagePoints, notify, journal, zlog)
	orderService := service.NewOrderService(tracer, box, service.OrderDefaults{
		Symbol: cfg.DefaultSymbol,
		Lot:    cfg.DefaultLot,
	}, notify, journal, zlog)

	// Background jobs (stopped by ctx cancel)
	startEventPumpFunc(job.NewEventPump(tracer, events, orderService, cfg.EventPumpSecs, zlog), ctx)
	if err := retention.Start(); err != nil {
		zlog.Error("billing retention not scheduled", zap.Error(err))
	}
	defer retention.Stop()

	deps := handler.Deps{Alerts: signalService, Orders: orderService, Gateway: gateway}
	if licenseService != nil {
		deps.Licenses = licenseService
		deps.Billing = billingService
	}
	h := handler.New(tracer, zlog, deps, handler.Options{
		WebhookSecret: cfg.WebhookSecret,
		AdminToken:    cfg.AdminToken,
		LicenseDays:   cfg.LicenseDays,
		Alerts: handler.AlertDefaults{
			Symbol:  cfg.DefaultSymbol,
			Lot:     cfg.DefaultLot,
			Magic:   cfg.DefaultMagic,
			Comment: cfg.DefaultComment,
		},
	})

	r := buildRouter(cfg, zlog, h)
	mountConsole(r, cfg, tracer, deps.Licenses, orderService)

	srv := &http.Server{
		Addr:              httpAddr(cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info("http server listening", zap.String("addr", srv.Addr))
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("listen", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	zlog.Info("shutting down server")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		zlog.Error("server forced to shutdown", zap.Error(err))
	}

	zlog.Info("server exiting")
}

func buildRouter(cfg *config.Config, zlog *zap.Logger, h *handler.Handler) *gin.Engine {
	r := newRouterFunc()
	r.Use(gin.Recovery())
	r.Use(handler.RequestLogger(zlog))
	r.Use(otelgin.Middleware(serviceName))
	r.Use(cors.New(corsConfig(cfg.CORSAllowOrigins)))

	h.RegisterRoutes(r)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	return r
}

// mountConsole exposes the operator tool server at /mcp when a console token
// is configured.
func mountConsole(r *gin.Engine, cfg *config.Config, tracer trace.Tracer, licenses handler.LicenseAuthority, orders mcp.OrderDesk) bool {
	if cfg.ConsoleAuthToken == "" {
		return false
	}
	var inspector mcp.LicenseInspector
	if licenses != nil {
		inspector = licenses
	}
	srv := newConsoleServerFunc(tracer, inspector, orders, mcp.ServerConfig{
		RequestTimeout: time.Duration(cfg.ConsoleRequestTimeout) * time.Second,
	})
	console := gin.WrapH(mcp.NewHTTPTransportHandler(srv, mcp.HTTPHandlerConfig{
		AuthToken:       cfg.ConsoleAuthToken,
		RateLimitPerMin: cfg.ConsoleRateLimitPerMin,
	}))
	r.Any("/mcp", console)
	return true
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Webhook-Secret", "X-Request-ID", "Stripe-Signature"},
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	c.AllowOrigins = origins
	if len(origins) == 0 {
		c.AllowAllOrigins = true
	}
	return c
}

func httpAddr(port string) string {
	port = strings.TrimSpace(port)
	if port == "" {
		return ":8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}
