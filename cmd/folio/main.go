// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/olegiv/folio-go/internal/cache"
	"github.com/olegiv/folio-go/internal/config"
	"github.com/olegiv/folio-go/internal/logging"
	"github.com/olegiv/folio-go/internal/mail"
	"github.com/olegiv/folio-go/internal/middleware"
	"github.com/olegiv/folio-go/internal/render"
	"github.com/olegiv/folio-go/internal/scheduler"
	"github.com/olegiv/folio-go/internal/server"
	"github.com/olegiv/folio-go/internal/service"
	"github.com/olegiv/folio-go/internal/session"
	"github.com/olegiv/folio-go/internal/store"
	"github.com/olegiv/folio-go/internal/version"
	"github.com/olegiv/folio-go/web"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	// Parse CLI flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Folio - portfolio and project blog\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  FOLIO_SESSION_SECRET   Session and CSRF key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  FOLIO_DATABASE_URL     sqlite:<path> or postgres://... (default: sqlite:./data/folio.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  FOLIO_SERVER_PORT      Server port (default: 5000)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  FOLIO_ENV              Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  FOLIO_MAIL_ADDRESS     Mailbox that receives contact messages\n")
		_, _ = fmt.Fprintf(os.Stderr, "  FOLIO_MAIL_PASSWORD    SMTP password for FOLIO_MAIL_ADDRESS\n")
		_, _ = fmt.Fprintf(os.Stderr, "  FOLIO_ADMIN_EMAIL      Account promoted to admin at startup (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  FOLIO_REDIS_URL        Redis URL for the project cache (optional)\n")
	_, _ = fmt.Fprintf(os.Stderr, "  FOLIO_TRUST_PROXY      Honour X-Forwarded-For from a reverse proxy (default: false)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	versionInfo := &version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}

	if *showVersion {
		_, _ = fmt.Println(versionInfo.String())
		os.Exit(0)
	}

	if err := run(versionInfo); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(versionInfo *version.Info) error {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	slog.SetDefault(slog.New(textHandler))

	// Ensure data directory exists
	dataDir := store.DataDir(cfg.DatabaseURL)
	if dataDir != "" {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}

	slog.Info("initializing database", "database", redactDSN(cfg.DatabaseURL))
	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}()

	slog.Info("running database migrations", "dialect", db.Dialect)
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Upgrade logger to also write WARN and ERROR logs to the event log
	logger := slog.New(logging.NewEventLogHandler(textHandler, db))
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := store.PromoteAdmin(ctx, db.Queries(), cfg.AdminEmail); err != nil {
		return err
	}

	sessionManager := session.New(db, cfg.IsDevelopment())
	slog.Info("session manager initialized", "lifetime", session.Lifetime)

	backend, cacheInfo := cache.New(cache.Config{
		RedisURL:        cfg.RedisURL,
		Prefix:          cfg.CachePrefix,
		DefaultTTL:      cfg.CacheDuration(),
		CleanupInterval: time.Minute,
	})
	defer func() { _ = backend.Close() }()
	slog.Info("cache initialized", "backend", cacheInfo.Backend, "fallback", cacheInfo.IsFallback)
	projectCache := cache.NewProjectCache(backend, db.Queries(), cfg.CacheDuration())

	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		return fmt.Errorf("getting templates fs: %w", err)
	}
	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		return fmt.Errorf("getting static fs: %w", err)
	}
	renderer, err := render.New(render.Config{
		TemplatesFS:    templatesFS,
		SessionManager: sessionManager,
		SiteName:       cfg.SiteName,
	})
	if err != nil {
		return fmt.Errorf("initializing renderer: %w", err)
	}
	slog.Info("template renderer initialized")

	// Contact mail relay
	var sender mail.Sender
	if cfg.MailEnabled() {
		sender = mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.MailAddress,
			Password: cfg.MailPassword,
			Timeout:  mail.DefaultSendTimeout,
		})
		slog.Info("smtp relay configured", "host", cfg.SMTPHost, "port", cfg.SMTPPort)
	} else {
		sender = mail.NewLogSender(logger)
		slog.Info("smtp relay not configured, contact messages will be logged")
	}
	mailCfg := mail.DefaultConfig()
	mailCfg.Workers = cfg.MailWorkers
	dispatcher := mail.NewDispatcher(db, sender, cfg.MailAddress, logger, mailCfg)
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	eventService := service.NewEventService(db)

	sched := scheduler.New(logger, 0)
	if err := sched.Add(scheduler.MailRetryJob(dispatcher, logger)); err != nil {
		return fmt.Errorf("registering mail retry job: %w", err)
	}
	if err := sched.Add(scheduler.EventPurgeJob(eventService, cfg.EventRetentionDays, logger)); err != nil {
		return fmt.Errorf("registering event purge job: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	// Deliveries left over from a previous run
	if _, err := dispatcher.RetryDue(ctx); err != nil {
		slog.Warn("failed to re-queue pending mail deliveries", "error", err)
	}

	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	defer loginProtection.Close()
	slog.Info("login protection initialized",
		"ip_rate_limit", "0.5 req/s",
		"max_failed_attempts", 5,
		"lockout_duration", "15m",
	)

	handler, err := server.NewRouter(server.Config{
		DB:              db,
		Sessions:        sessionManager,
		Renderer:        renderer,
		Accounts:        service.NewAccountService(db),
		Projects:        service.NewProjectService(db, projectCache),
		Contacts:        service.NewContactService(db, dispatcher, eventService),
		Events:          eventService,
		LoginProtection: loginProtection,
		Version:         versionInfo,
		StaticFS:        staticFS,
		DataDir:         dataDir,
		CSRFKey:         []byte(cfg.SessionSecret)[:config.MinSessionSecretLength],
		IsDevelopment:   cfg.IsDevelopment(),
		TrustProxy:      cfg.TrustProxy,
		MetricsEnabled:  cfg.MetricsEnabled,
		RateLimit:       10,
		RateBurst:       20,
	})
	if err != nil {
		return fmt.Errorf("building router: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", versionInfo.Short())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// redactDSN hides credentials in a database URL for logging.
func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	return u.Redacted()
}
