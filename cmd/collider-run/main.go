// Command collider-run executes a single collision cycle and prints the
// resulting report as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/scrypster/collider/internal/collision"
	"github.com/scrypster/collider/internal/config"
	"github.com/scrypster/collider/internal/fusion"
	"github.com/scrypster/collider/internal/hub"
	"github.com/scrypster/collider/internal/storage"
	"github.com/scrypster/collider/internal/storage/postgres"
	"github.com/scrypster/collider/internal/storage/sqlite"
	"github.com/scrypster/collider/internal/system"
	"github.com/scrypster/collider/internal/vectorizer"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	lexicon := vectorizer.DefaultLexicon()
	if cfg.Pipeline.LexiconPath != "" {
		lexicon, err = vectorizer.LoadLexicon(cfg.Pipeline.LexiconPath)
		if err != nil {
			log.Fatalf("Failed to load lexicon: %v", err)
		}
	}
	vec := vectorizer.NewLexiconVectorizer(lexicon)

	hubClient := hub.NewClient(hub.Config{
		BaseURL: cfg.Hub.URL,
		Timeout: cfg.Hub.Timeout,
	})

	store, err := openStore(cfg, vec.Dimension())
	if err != nil {
		log.Fatalf("Failed to open artifact store: %v", err)
	}
	if store != nil {
		defer store.Close()
	}

	sys := system.New(
		system.Config{
			FetchLimit:       cfg.Hub.FetchLimit,
			HighQualityScore: cfg.Pipeline.HighQualityScore,
			SaveToHub:        cfg.Hub.SaveBack,
		},
		hubClient,
		vec,
		collision.NewDetector(cfg.Pipeline.SimilarityThreshold, cfg.Pipeline.MaxPairs),
		fusion.NewEngine(cfg.Pipeline.MinEmergenceScore, fusion.ScoringMode(cfg.Pipeline.ScoringMode)),
		sink(store),
		nil,
		hubClient,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	report, err := sys.RunOnce(ctx)
	if err != nil {
		log.Printf("ERROR: cycle failed: %v", err)
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal report: %v", err)
	}
	fmt.Println(string(out))

	if report.Failure != "" {
		os.Exit(1)
	}
}

// openStore opens the configured artifact store, or returns nil when
// persistence is disabled.
func openStore(cfg *config.Config, dimension int) (storage.ArtifactStore, error) {
	switch cfg.Storage.Engine {
	case "sqlite":
		if err := os.MkdirAll(cfg.Storage.DataPath, 0o755); err != nil {
			return nil, err
		}
		return sqlite.NewArtifactStore(filepath.Join(cfg.Storage.DataPath, "collider.db"))
	case "postgres":
		return postgres.NewArtifactStore(cfg.Storage.PostgresDSN, dimension)
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown storage engine %q", cfg.Storage.Engine)
	}
}

// sink converts a possibly-nil concrete store into the orchestrator's
// optional sink, avoiding a non-nil interface wrapping a nil pointer.
func sink(store storage.ArtifactStore) system.ArtifactSink {
	if store == nil {
		return nil
	}
	return store
}
