package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != 8010 {
		t.Errorf("default port = %d, want 8010", cfg.Server.Port)
	}
	if cfg.Hub.URL != "http://localhost:8001" {
		t.Errorf("default hub url = %s", cfg.Hub.URL)
	}
	if cfg.Hub.FetchLimit != 100 {
		t.Errorf("default fetch limit = %d, want 100", cfg.Hub.FetchLimit)
	}
	if cfg.Pipeline.SimilarityThreshold != 0.2 {
		t.Errorf("default similarity threshold = %f, want 0.2", cfg.Pipeline.SimilarityThreshold)
	}
	if cfg.Pipeline.MinEmergenceScore != 50 {
		t.Errorf("default min emergence score = %f, want 50", cfg.Pipeline.MinEmergenceScore)
	}
	if cfg.Pipeline.ScoringMode != "weighted" {
		t.Errorf("default scoring mode = %s, want weighted", cfg.Pipeline.ScoringMode)
	}
	if cfg.Scheduler.Interval != time.Hour {
		t.Errorf("default interval = %v, want 1h", cfg.Scheduler.Interval)
	}
	if cfg.Storage.Engine != "sqlite" {
		t.Errorf("default storage engine = %s, want sqlite", cfg.Storage.Engine)
	}
	if cfg.Publish.Enabled {
		t.Error("publishing must default to disabled")
	}
	if cfg.Security.SecurityMode != "development" {
		t.Errorf("default security mode = %s, want development", cfg.Security.SecurityMode)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("COLLIDER_PORT", "9000")
	t.Setenv("COLLIDER_HUB_URL", "http://hub.internal:8080")
	t.Setenv("COLLIDER_SIMILARITY_THRESHOLD", "0.35")
	t.Setenv("COLLIDER_SCORING_MODE", "basic")
	t.Setenv("COLLIDER_INTERVAL", "30m")
	t.Setenv("COLLIDER_SAVE_TO_HUB", "true")
	t.Setenv("COLLIDER_STORAGE_ENGINE", "postgres")
	t.Setenv("COLLIDER_PUBLISH_ENABLED", "yes")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Hub.URL != "http://hub.internal:8080" {
		t.Errorf("hub url = %s", cfg.Hub.URL)
	}
	if cfg.Pipeline.SimilarityThreshold != 0.35 {
		t.Errorf("similarity threshold = %f, want 0.35", cfg.Pipeline.SimilarityThreshold)
	}
	if cfg.Pipeline.ScoringMode != "basic" {
		t.Errorf("scoring mode = %s, want basic", cfg.Pipeline.ScoringMode)
	}
	if cfg.Scheduler.Interval != 30*time.Minute {
		t.Errorf("interval = %v, want 30m", cfg.Scheduler.Interval)
	}
	if !cfg.Hub.SaveBack {
		t.Error("save-back override not applied")
	}
	if cfg.Storage.Engine != "postgres" {
		t.Errorf("storage engine = %s, want postgres", cfg.Storage.Engine)
	}
	if !cfg.Publish.Enabled {
		t.Error("publish enabled override not applied")
	}
}

func TestLoadConfigInvalidValuesFallBack(t *testing.T) {
	t.Setenv("COLLIDER_PORT", "not-a-number")
	t.Setenv("COLLIDER_SIMILARITY_THRESHOLD", "high")
	t.Setenv("COLLIDER_INTERVAL", "-5m")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != 8010 {
		t.Errorf("invalid port should fall back to 8010, got %d", cfg.Server.Port)
	}
	if cfg.Pipeline.SimilarityThreshold != 0.2 {
		t.Errorf("invalid threshold should fall back to 0.2, got %f", cfg.Pipeline.SimilarityThreshold)
	}
	if cfg.Scheduler.Interval != time.Hour {
		t.Errorf("non-positive interval should fall back to 1h, got %v", cfg.Scheduler.Interval)
	}
}
