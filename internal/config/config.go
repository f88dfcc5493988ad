package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN       string `env:"DB_DSN,required"`
	Environment string `env:"ENV" envDefault:"development"`

	// ReservationQuantum is the fixed duration every reservation
	// sub-window must have.
	ReservationQuantum time.Duration `env:"RESERVATION_QUANTUM" envDefault:"15m"`

	// ReconcileInterval is the period of the session state reconciler.
	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" envDefault:"5m"`

	// SlotCancelCascade controls whether cancelling a slot also cancels
	// its active reservations. Off by default: students keep their
	// booking administratively until it is cancelled explicitly.
	SlotCancelCascade bool `env:"SLOT_CANCEL_CASCADE" envDefault:"false"`

	MeetingBaseURL string `env:"MEETING_BASE_URL" envDefault:"https://meet.jit.si"`
	MigrationsPath string `env:"MIGRATIONS_PATH" envDefault:"migrations"`
}

func Load() (*Config, error) {
	// Load .env if present, otherwise rely on the process environment.
	if err := godotenv.Load(".env"); err != nil {
		log.Println("no .env file found, using environment variables")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.ReservationQuantum <= 0 {
		return nil, fmt.Errorf("RESERVATION_QUANTUM must be positive, got %s", cfg.ReservationQuantum)
	}
	if cfg.ReconcileInterval <= 0 {
		return nil, fmt.Errorf("RECONCILE_INTERVAL must be positive, got %s", cfg.ReconcileInterval)
	}

	return cfg, nil
}
