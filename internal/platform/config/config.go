package config

import (
	"os"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr          string
	DatabaseURL   string // empty selects the in-memory stores
	LedgerURL     string // empty selects the in-memory ledger
	LedgerTimeout time.Duration
	JWTSigningKey string
	TokenTTL      time.Duration

	ReconcileInterval time.Duration
	ReconcileBatch    int
}

// Defaults applied when the environment does not override them.
var (
	DefaultLedgerTimeout     = 10 * time.Second
	DefaultTokenTTL          = time.Hour
	DefaultReconcileInterval = 30 * time.Second
	DefaultReconcileBatch    = 100
)

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	cfg := Server{
		Addr:              envOr("TRUSTCHAIN_ADDR", ":8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		LedgerURL:         os.Getenv("LEDGER_URL"),
		LedgerTimeout:     durationOr("LEDGER_TIMEOUT", DefaultLedgerTimeout),
		JWTSigningKey:     os.Getenv("JWT_SIGNING_KEY"),
		TokenTTL:          durationOr("TOKEN_TTL", DefaultTokenTTL),
		ReconcileInterval: durationOr("RECONCILE_INTERVAL", DefaultReconcileInterval),
		ReconcileBatch:    DefaultReconcileBatch,
	}
	if cfg.JWTSigningKey == "" {
		// Use a default for development - must be overridden in production
		cfg.JWTSigningKey = "dev-secret-key-change-in-production"
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
