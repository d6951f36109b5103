package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"trustchain/internal/audit"
	certhandler "trustchain/internal/certificate/handler"
	"trustchain/internal/certificate/reconciler"
	certservice "trustchain/internal/certificate/service"
	certstore "trustchain/internal/certificate/store"
	identityhandler "trustchain/internal/identity/handler"
	identityservice "trustchain/internal/identity/service"
	identitystore "trustchain/internal/identity/store"
	"trustchain/internal/ledger"
	"trustchain/internal/platform/config"
	"trustchain/internal/platform/database"
	"trustchain/internal/platform/health"
	"trustchain/internal/platform/logger"
	"trustchain/internal/platform/metrics"
	"trustchain/internal/platform/middleware"
	"trustchain/internal/token"
	httptransport "trustchain/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing trustchain",
		"addr", cfg.Addr,
		"ledger_url", cfg.LedgerURL,
	)

	pool, err := database.New(database.DefaultConfig(cfg.DatabaseURL))
	if err != nil {
		log.Error("database init failed", "error", err)
		os.Exit(1)
	}

	var (
		certs   certstore.Store
		issuers identitystore.Store
	)
	if pool != nil {
		certs = certstore.NewPostgres(pool.DB())
		issuers = identitystore.NewPostgres(pool.DB())
		defer pool.Close() //nolint:errcheck // best-effort cleanup on exit
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		certs = certstore.NewInMemoryStore()
		issuers = identitystore.NewInMemoryStore()
	}

	var ledgerClient ledger.Client
	if cfg.LedgerURL != "" {
		ledgerClient = ledger.NewHTTPClient(cfg.LedgerURL, ledger.WithTimeout(cfg.LedgerTimeout))
	} else {
		log.Warn("LEDGER_URL not set, using in-memory ledger")
		ledgerClient = ledger.NewMemoryLedger()
	}

	m := metrics.New()

	auditor := audit.NewPublisher(audit.NewInMemoryStore(),
		audit.WithAsyncBuffer(256),
		audit.WithPublisherLogger(log),
	)
	defer auditor.Close()

	tokens := token.NewService(cfg.JWTSigningKey, cfg.TokenTTL)

	identitySvc := identityservice.NewService(issuers, tokens,
		identityservice.WithLogger(log),
		identityservice.WithAuditor(auditor),
		identityservice.WithMetrics(m),
	)
	certSvc := certservice.NewService(certs, ledgerClient, issuers,
		certservice.WithLogger(log),
		certservice.WithAuditor(auditor),
		certservice.WithMetrics(m),
	)

	// The reconciler retries ledger anchoring for records that were stored
	// while the ledger was unavailable. It stops when the root context does.
	rec := reconciler.New(certs, ledgerClient,
		reconciler.WithInterval(cfg.ReconcileInterval),
		reconciler.WithBatchSize(cfg.ReconcileBatch),
		reconciler.WithLogger(log),
		reconciler.WithMetrics(m),
		reconciler.WithAuditor(auditor),
	)

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()
	go rec.Run(rootCtx)

	healthHandler := health.New()
	if pool != nil {
		healthHandler.RegisterCheck("database", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Health(ctx)
		})
	}

	router := httptransport.NewRouter(
		certhandler.New(certSvc, log),
		identityhandler.New(identitySvc, log),
		healthHandler,
		tokenValidator{tokens},
		m,
		log,
	)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info("starting http server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown on SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	log.Info("shutting down server gracefully")
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}

// tokenValidator adapts the token service to the auth middleware contract.
type tokenValidator struct {
	tokens *token.Service
}

func (v tokenValidator) Validate(tokenString string) (*middleware.AuthClaims, error) {
	claims, err := v.tokens.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.AuthClaims{
		IssuerID: claims.IssuerID,
		Role:     claims.Role,
	}, nil
}
