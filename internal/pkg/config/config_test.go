package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte("postgres:\n  dsn: postgres://localhost/soccerview\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Matching.SimilarityThreshold != 0.70 {
		t.Errorf("SimilarityThreshold = %v, want 0.70", cfg.Matching.SimilarityThreshold)
	}
	if cfg.Matching.AmbiguityGap != 0.05 {
		t.Errorf("AmbiguityGap = %v, want 0.05", cfg.Matching.AmbiguityGap)
	}
	if cfg.Elo.KFactor != 32 || cfg.Elo.StartingRating != 1500 {
		t.Errorf("elo defaults = %v/%v", cfg.Elo.KFactor, cfg.Elo.StartingRating)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/override")
	t.Setenv("TIMEOUT_MINUTES", "7")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Postgres.DSN != "postgres://env/override" {
		t.Errorf("DSN = %q", cfg.Postgres.DSN)
	}
	if cfg.Scraper.TimeoutMinutes != 7 {
		t.Errorf("TimeoutMinutes = %d, want 7", cfg.Scraper.TimeoutMinutes)
	}
}

func TestLoadRequiresDSN(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := Load(""); err == nil {
		t.Error("Load without DSN should fail")
	}
}
