package main

import (
	"context"
	"log"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"batiflow/docs"
	"batiflow/internal/config"
	"batiflow/internal/database"
	"batiflow/internal/database/migration"
	handlers "batiflow/internal/http/handler"
	"batiflow/internal/http/middleware"
	"batiflow/internal/identifier"
	"batiflow/internal/logger"
	"batiflow/internal/mail"
	otelinit "batiflow/internal/otel"
	"batiflow/internal/payment"
	"batiflow/internal/repository/postgres"
	"batiflow/internal/service"
	"batiflow/internal/storage"
)

// @title BatiFlow API
// @version 1.0
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	zlog, err := logger.New()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zlog.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otelinit.Init(ctx, zlog)
	if err != nil {
		zlog.Fatalw("failed to initialize tracing", "error", err)
	}

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		zlog.Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, zlog); err != nil {
		zlog.Fatalw("failed to migrate database", "error", err)
	}

	// S3-compatible object storage for signature images (MinIO-supported)
	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		zlog.Fatalw("failed to initialize object storage", "error", err)
	}

	sender, err := mail.NewResend(cfg.Resend)
	if err != nil {
		zlog.Fatalw("failed to initialize mail sender", "error", err)
	}

	provider := payment.NewStripe(cfg.Stripe, zlog)

	// Repositories
	docRepo := postgres.NewDocumentPostgres(db)
	clientRepo := postgres.NewClientPostgres(db)
	settingsRepo := postgres.NewTenantSettingsPostgres(db)
	sessionRepo := postgres.NewSignatureSessionPostgres(db)
	otpRepo := postgres.NewSignatureOTPPostgres(db)
	paymentRepo := postgres.NewPaymentPostgres(db)
	auditRepo := postgres.NewAuditPostgres(db)
	emailRepo := postgres.NewEmailOutboxPostgres(db)
	taskRepo := postgres.NewTaskOutboxPostgres(db)

	// Services
	extractor := identifier.New(zlog)
	allocator := service.NewNumberAllocator(docRepo, zlog)
	docSvc := service.NewDocumentService(docRepo, clientRepo, allocator, zlog)
	sigSvc := service.NewSignatureService(
		sessionRepo, otpRepo, docRepo, clientRepo, auditRepo, emailRepo, taskRepo,
		objStore, extractor, cfg.Signature, zlog,
	)
	paySvc := service.NewPaymentService(
		paymentRepo, docRepo, clientRepo, settingsRepo, auditRepo,
		provider, cfg.Billing, cfg.Stripe, zlog,
	)

	// Background workers: transactional mail delivery and the task outbox
	// that carries the post-signature cascade.
	mailer := service.NewMailer(emailRepo, sender,
		time.Duration(cfg.Workers.MailerIntervalSec)*time.Second, zlog)
	outbox := service.NewOutboxWorker(taskRepo, sessionRepo, docRepo, emailRepo, paySvc,
		time.Duration(cfg.Workers.OutboxIntervalSec)*time.Second, zlog)
	go mailer.Run(ctx)
	go outbox.Run(ctx)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	promMiddleware, err := middleware.NewPrometheusMiddleware(registry)
	if err != nil {
		zlog.Fatalw("failed to register metrics", "error", err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	// Global middleware: request IDs first so everything downstream can log
	// them, then tracing, metrics and the request log.
	app.Use(middleware.RequestID())
	app.Use(otelfiber.Middleware())
	app.Use(promMiddleware.Handler())
	app.Use(middleware.Logger(zlog))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// Swagger UI host/scheme follow the incoming request. Registered before
	// the routes so it runs ahead of the /docs handler.
	app.Use("/docs", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}
		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}
		return c.Next()
	})

	handlers.RegisterRoutes(app, db, docSvc, sigSvc, paySvc)

	go func() {
		<-ctx.Done()
		zlog.Infow("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			zlog.Errorw("server shutdown failed", "error", err)
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			zlog.Errorw("tracing shutdown failed", "error", err)
		}
	}()

	addr := ":" + cfg.Port
	zlog.Infow("starting server", "addr", addr)
	if err := app.Listen(addr); err != nil {
		zlog.Fatalw("server stopped", "error", err)
	}
}
