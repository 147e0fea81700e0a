package campaignd

import (
	"fmt"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/campaigns/pkg/ledger"
)

const (
	StoreBackendGORM = "gorm"
	StoreBackendPGX  = "pgx"

	PayoutModeManual = "manual"
	PayoutModeNATS   = "nats"

	defaultDatabaseURL   = "sqlite:///tmp/campaigns.db"
	defaultListenAddr    = ":7000"
	defaultJWTIssuer     = "campaignd"
	defaultPayoutSubject = "payouts.requested"
	defaultPayoutTimeout = 5 * time.Second
)

// Config aggregates runtime settings for the ledger daemon.
type Config struct {
	DatabaseURL      string
	StoreBackend     string
	ListenAddr       string
	OwnerAddress     string
	JWTSigningKey    string
	JWTIssuer        string
	StrictValidation bool
	NATSURL          string
	PayoutMode       string
	PayoutSubject    string
	PayoutTimeout    time.Duration
}

// Validate applies defaults and rejects inconsistent settings.
func (cfg *Config) Validate() error {
	cfg.DatabaseURL = defaultIfEmpty(cfg.DatabaseURL, defaultDatabaseURL)
	cfg.StoreBackend = strings.ToLower(defaultIfEmpty(cfg.StoreBackend, StoreBackendGORM))
	cfg.ListenAddr = defaultIfEmpty(cfg.ListenAddr, defaultListenAddr)
	cfg.JWTIssuer = defaultIfEmpty(cfg.JWTIssuer, defaultJWTIssuer)
	cfg.PayoutMode = strings.ToLower(defaultIfEmpty(cfg.PayoutMode, PayoutModeManual))
	cfg.PayoutSubject = defaultIfEmpty(cfg.PayoutSubject, defaultPayoutSubject)
	cfg.NATSURL = strings.TrimSpace(cfg.NATSURL)
	if cfg.PayoutTimeout <= 0 {
		cfg.PayoutTimeout = defaultPayoutTimeout
	}
	if _, err := ledger.NewAddress(cfg.OwnerAddress); err != nil {
		return fmt.Errorf("owner address: %w", err)
	}
	if len(cfg.JWTSigningKey) == 0 {
		return fmt.Errorf("jwt signing key is required")
	}
	switch cfg.StoreBackend {
	case StoreBackendGORM:
	case StoreBackendPGX:
		if !isPostgresURL(cfg.DatabaseURL) {
			return fmt.Errorf("store backend %q requires a postgres database url", cfg.StoreBackend)
		}
	default:
		return fmt.Errorf("unsupported store backend %q", cfg.StoreBackend)
	}
	switch cfg.PayoutMode {
	case PayoutModeManual:
	case PayoutModeNATS:
		if cfg.NATSURL == "" {
			return fmt.Errorf("payout mode %q requires a nats url", cfg.PayoutMode)
		}
	default:
		return fmt.Errorf("unsupported payout mode %q", cfg.PayoutMode)
	}
	return nil
}

func defaultIfEmpty(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}
