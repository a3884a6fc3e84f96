package config

import (
	"testing"
	"time"

	"github.com/sandwich-alignment/alignment/internal/models"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "ADMIN_PASSWORD", "DATABASE_PATH", "CATALOG_PATH", "GENERATOR_PROVIDER",
		"GENERATOR_MODEL", "CONSENSUS_MIN_PLACEMENTS", "SUBMISSION_SOURCE", "SESSION_TTL", "MAX_SESSIONS",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "8888" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.CatalogPath != "data/sandwiches.json" {
		t.Errorf("CatalogPath = %q", cfg.CatalogPath)
	}
	if cfg.ConsensusMinPlacements != 5 {
		t.Errorf("ConsensusMinPlacements = %d", cfg.ConsensusMinPlacements)
	}
	if cfg.SubmissionSource != models.SourceUserSubmitted {
		t.Errorf("SubmissionSource = %q", cfg.SubmissionSource)
	}
	if cfg.GeneratorModel != "gpt-4o-mini" {
		t.Errorf("GeneratorModel = %q", cfg.GeneratorModel)
	}
	if cfg.SessionTTL != 24*time.Hour || cfg.MaxSessions != 10000 {
		t.Errorf("sessions: ttl %v, max %d", cfg.SessionTTL, cfg.MaxSessions)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("ADMIN_PASSWORD", "hunter2")
	t.Setenv("DATABASE_PATH", "/tmp/alignment.db")
	t.Setenv("GENERATOR_PROVIDER", "ollama")
	t.Setenv("GENERATOR_MODEL", "")
	t.Setenv("CONSENSUS_MIN_PLACEMENTS", "3")
	t.Setenv("SESSION_TTL", "90m")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "9000" || cfg.AdminPassword != "hunter2" || cfg.DatabasePath != "/tmp/alignment.db" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.GeneratorModel != "mistral-small3.2:24b" {
		t.Errorf("GeneratorModel = %q", cfg.GeneratorModel)
	}
	if cfg.ConsensusMinPlacements != 3 {
		t.Errorf("ConsensusMinPlacements = %d", cfg.ConsensusMinPlacements)
	}
	if cfg.SessionTTL != 90*time.Minute {
		t.Errorf("SessionTTL = %v", cfg.SessionTTL)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name, value string
	}{
		{"not a number", "many"},
		{"negative", "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CONSENSUS_MIN_PLACEMENTS", tt.value)
			if _, err := Load(); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
