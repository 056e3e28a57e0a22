package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"learnsprout/internal/app"
	"learnsprout/internal/config"
	"learnsprout/internal/database"
	"learnsprout/internal/events"
	"learnsprout/internal/handlers"
	"learnsprout/internal/identity"
	"learnsprout/internal/logger"
	"learnsprout/internal/mailer"
	"learnsprout/internal/security"
	"learnsprout/internal/web"
)

const (
	cleanupInterval = time.Hour
	digestInterval  = 7 * 24 * time.Hour
	shutdownTimeout = 15 * time.Second
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	handlers.SetErrorLogger(log)

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracker := handlers.NewStartupTracker(
		handlers.StepDatabase,
		handlers.StepMigrations,
		handlers.StepCatalog,
		handlers.StepTemplates,
		handlers.StepServices,
	)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      tracker,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", "addr", "http://localhost"+server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", "error", err)
		}
	}()

	rt, err := initialize(ctx, cfg, tracker, log)
	if err != nil {
		log.Fatal("startup failed", "error", err)
	}
	defer rt.close()

	go cleanupExpired(ctx, rt.services, log)
	if cfg.DigestEnabled {
		go runDigests(ctx, rt.services, log)
	}

	<-ctx.Done()
	log.Info("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

// runtime holds what must be released on shutdown
type runtime struct {
	db       *database.DB
	bus      events.Bus
	limiter  *security.RateLimiter
	services *app.Services
	log      *logger.Logger
}

func (rt *runtime) close() {
	rt.limiter.Stop()
	if err := rt.bus.Close(); err != nil {
		rt.log.Warn("event bus close failed", "error", err)
	}
	if err := rt.db.Close(); err != nil {
		rt.log.Warn("database close failed", "error", err)
	}
}

// initialize runs every startup step and swaps the router in behind tracker
func initialize(ctx context.Context, cfg *config.Config, tracker *handlers.StartupTracker, log *logger.Logger) (*runtime, error) {
	tracker.Begin(handlers.StepDatabase)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	log.Info("database connection established", "type", cfg.DatabaseType)
	tracker.Complete(handlers.StepDatabase)

	tracker.Begin(handlers.StepMigrations)
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("migrations completed")
	tracker.Complete(handlers.StepMigrations)

	tracker.Begin(handlers.StepServices)
	sender, err := mailer.New(ctx, cfg, log)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create email sender: %w", err)
	}
	bus, err := app.NewBus(ctx, cfg, log)
	if err != nil {
		db.Close()
		return nil, err
	}
	svc := app.NewServices(cfg, db, sender, bus, log)
	if err := bus.StartForwarder(ctx, svc.Plans.HandleEvent); err != nil {
		bus.Close()
		db.Close()
		return nil, fmt.Errorf("failed to start event forwarder: %w", err)
	}

	var verifier *identity.Verifier
	if cfg.IdentityEnabled() {
		verifier, err = identity.NewVerifier(identity.Options{
			JWKSURL:    cfg.IdentityJWKSURL,
			HMACSecret: cfg.IdentityHMACSecret,
			Issuer:     cfg.IdentityIssuer,
			Audience:   cfg.IdentityAudience,
		})
		if err != nil {
			bus.Close()
			db.Close()
			return nil, fmt.Errorf("failed to create identity verifier: %w", err)
		}
		log.Info("identity tokens enabled", "issuer", cfg.IdentityIssuer)
	}
	limiter := security.NewRateLimiter(10, time.Minute)
	rt := &runtime{db: db, bus: bus, limiter: limiter, services: svc, log: log}
	tracker.Complete(handlers.StepServices)

	tracker.Begin(handlers.StepCatalog)
	seeded, err := svc.Catalog.SeedIfEmpty()
	if err != nil {
		rt.close()
		return nil, fmt.Errorf("failed to seed catalog: %w", err)
	}
	if seeded {
		log.Info("default activity catalog loaded")
	}
	tracker.Complete(handlers.StepCatalog)

	tracker.Begin(handlers.StepTemplates)
	templates, err := web.Templates()
	if err != nil {
		rt.close()
		return nil, err
	}
	tracker.Complete(handlers.StepTemplates)

	static := web.Static()
	mw := handlers.NewMiddleware(svc.Auth, verifier, security.NewCSRFSigner(cfg.CSRFSecret), limiter, log)
	providers := map[string]handlers.OAuthProvider{
		"google": handlers.GoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret),
	}
	services := handlers.APIServices{
		Auth:         svc.Auth,
		Children:     svc.Children,
		Assessments:  svc.Assessments,
		Plans:        svc.Plans,
		Progress:     svc.Progress,
		Materials:    svc.Materials,
		Family:       svc.Family,
		Institutions: svc.Institutions,
		Catalog:      svc.Catalog,
	}

	h := &handlers.Handlers{
		Middleware: mw,
		Auth:       handlers.NewAuthHandler(svc.Auth, svc.Email, templates, mw, providers, cfg.OAuthRedirectBaseURL, log),
		Pages: handlers.NewPageHandler(handlers.PageServices{
			Children:     svc.Children,
			Assessments:  svc.Assessments,
			Plans:        svc.Plans,
			Progress:     svc.Progress,
			Materials:    svc.Materials,
			Family:       svc.Family,
			Institutions: svc.Institutions,
			Catalog:      svc.Catalog,
		}, templates, static, mw, log),
		API: handlers.NewAPIHandler(services, log),
		Admin: handlers.NewAdminHandler(handlers.AdminDeps{
			Config:       cfg,
			Auth:         svc.Auth,
			Email:        svc.Email,
			Digest:       svc.Digest,
			Plans:        svc.Plans,
			Institutions: svc.Institutions,
			Backup:       svc.Backup,
			Users:        svc.Repos.Users,
			Children:     svc.Repos.Children,
		}, templates, mw, log),
		Startup: tracker,
		Static:  static,
	}

	tracker.MarkReady(h.Routes(log))
	log.Info("server ready")
	return rt, nil
}

// cleanupExpired periodically removes expired sessions and reset tokens
func cleanupExpired(ctx context.Context, svc *app.Services, log *logger.Logger) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if err := svc.Auth.PurgeExpired(); err != nil {
			log.Error("expired credential cleanup failed", "error", err)
		}
	}
}

// runDigests generates upcoming plans and emails the weekly digest once a week
func runDigests(ctx context.Context, svc *app.Services, log *logger.Logger) {
	ticker := time.NewTicker(digestInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		generated, err := svc.Plans.AutoGenerate(ctx)
		if err != nil {
			log.Error("plan auto-generation failed", "error", err)
		}
		report, err := svc.Digest.Run(ctx)
		if err != nil {
			log.Error("weekly digest failed", "error", err)
			continue
		}
		log.Info("weekly digest sent", "plans_generated", generated, "sent", report.Sent, "failed", report.Failed)
	}
}
