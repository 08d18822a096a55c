package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// Ledger backends.
const (
	BackendJournal  = "journal"
	BackendPostgres = "postgres"
)

type Config struct {
	Port          string
	Env           string
	LedgerBackend string
	JournalPath   string
	DBSource      string

	StripeSecretKey string
	StripeBaseURL   string

	CardNetworkURL string
	CardNetworkKey string
}

func Load() (*Config, error) {
	// A missing .env is fine in production; the process env wins either way.
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using process environment")
	}

	cfg := &Config{
		Port:            getEnv("SERVER_PORT", "8080"),
		Env:             getEnv("ENVIRONMENT", "development"),
		LedgerBackend:   getEnv("LEDGER_BACKEND", BackendJournal),
		JournalPath:     getEnv("LEDGER_JOURNAL_PATH", "transactions.journal"),
		DBSource:        os.Getenv("DB_SOURCE"),
		StripeSecretKey: os.Getenv("STRIPE_SECRET_KEY"),
		StripeBaseURL:   os.Getenv("STRIPE_BASE_URL"),
		CardNetworkURL:  os.Getenv("CARD_NETWORK_URL"),
		CardNetworkKey:  os.Getenv("CARD_NETWORK_KEY"),
	}

	switch cfg.LedgerBackend {
	case BackendJournal:
	case BackendPostgres:
		if cfg.DBSource == "" {
			return nil, fmt.Errorf("DB_SOURCE is required when LEDGER_BACKEND=postgres")
		}
	default:
		return nil, fmt.Errorf("unknown LEDGER_BACKEND %q", cfg.LedgerBackend)
	}

	if cfg.StripeSecretKey == "" {
		return nil, fmt.Errorf("STRIPE_SECRET_KEY environment variable is required")
	}
	if cfg.CardNetworkURL == "" {
		return nil, fmt.Errorf("CARD_NETWORK_URL environment variable is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
