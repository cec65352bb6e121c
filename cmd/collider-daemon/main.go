// Command collider-daemon runs the collision pipeline continuously: a
// scheduler re-runs the cycle on a fixed interval while an HTTP server
// exposes status, a run-now trigger, and a websocket feed of cycle
// reports. Qualifying emerged capsules are persisted and optionally
// published to Moltbook.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/scrypster/collider/internal/collision"
	"github.com/scrypster/collider/internal/config"
	"github.com/scrypster/collider/internal/fusion"
	"github.com/scrypster/collider/internal/hub"
	"github.com/scrypster/collider/internal/moltbook"
	"github.com/scrypster/collider/internal/scheduler"
	"github.com/scrypster/collider/internal/server"
	"github.com/scrypster/collider/internal/storage"
	"github.com/scrypster/collider/internal/storage/postgres"
	"github.com/scrypster/collider/internal/storage/sqlite"
	"github.com/scrypster/collider/internal/system"
	"github.com/scrypster/collider/internal/vectorizer"
	"github.com/scrypster/collider/pkg/types"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	var publisher system.PublishSink
	if cfg.Publish.Enabled {
		publisher = moltbook.NewPublisher(moltbook.Config{
			BaseURL:     cfg.Publish.BaseURL,
			APIKey:      cfg.Publish.APIKey,
			Submolt:     cfg.Publish.Submolt,
			MaxPerBatch: cfg.Publish.MaxPer,
			PostsPerSec: cfg.Publish.PerSec,
		})
		log.Printf("Moltbook publishing enabled (submolt: %s)", cfg.Publish.Submolt)
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
		publisher,
		hubClient,
	)

	addr, wsHub, err := server.Start(ctx, cfg, sys)
	if err != nil {
		log.Fatalf("Failed to start HTTP server: %v", err)
	}
	log.Printf("Status surface available at http://%s/api/status", addr)

	sys.OnCycle(func(report types.CycleReport) {
		wsHub.Broadcast(report)
	})

	sched := scheduler.New(cfg.Scheduler.Interval, cfg.Scheduler.Backoff, sys.Cycle)

	errCh := make(chan error, 1)
	go func() {
		errCh <- sched.Start(ctx)
	}()

	select {
	case <-ctx.Done():
		log.Println("Shutting down...")
		sched.Stop()
		<-errCh
	case err := <-errCh:
		if err != nil && err != context.Canceled {
			log.Printf("ERROR: scheduler exited: %v", err)
		}
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
