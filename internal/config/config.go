package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/sandwich-alignment/alignment/internal/models"
	"github.com/sandwich-alignment/alignment/internal/providers"
)

// Config is the process configuration read from the environment.
// Command-line flags override these values.
type Config struct {
	Port          string `env:"PORT"           envDefault:"8888"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
	// DatabasePath selects the SQLite store; empty keeps submissions in memory
	DatabasePath string `env:"DATABASE_PATH"`
	CatalogPath  string `env:"CATALOG_PATH"   envDefault:"data/sandwiches.json"`

	GeneratorProvider string `env:"GENERATOR_PROVIDER" envDefault:"openai"`
	GeneratorModel    string `env:"GENERATOR_MODEL"`

	// ConsensusMinPlacements is the smallest board that counts toward consensus
	ConsensusMinPlacements int    `env:"CONSENSUS_MIN_PLACEMENTS" envDefault:"5"`
	SubmissionSource       string `env:"SUBMISSION_SOURCE"`

	// SessionTTL expires idle board sessions; MaxSessions caps how many are held
	SessionTTL  time.Duration `env:"SESSION_TTL"  envDefault:"24h"`
	MaxSessions int           `env:"MAX_SESSIONS" envDefault:"10000"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses a Config and fills derived defaults
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.SubmissionSource == "" {
		cfg.SubmissionSource = models.SourceUserSubmitted
	}
	if cfg.GeneratorModel == "" {
		cfg.GeneratorModel = providers.DefaultModel(cfg.GeneratorProvider)
	}
	if cfg.ConsensusMinPlacements < 0 {
		return Config{}, fmt.Errorf("CONSENSUS_MIN_PLACEMENTS must not be negative")
	}
	return cfg, nil
}
