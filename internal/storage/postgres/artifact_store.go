// Package postgres implements the emerged-capsule store on PostgreSQL.
// When the pgvector extension is available, fused embeddings are stored in
// a vector column so emerged capsules can later be queried by cosine
// distance; without it the store degrades to metadata-only persistence.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq" // also registers the postgres driver
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/scrypster/collider/pkg/types"
)

// schema creates the emerged_capsules table.
const schema = `
CREATE TABLE IF NOT EXISTS emerged_capsules (
	id              TEXT PRIMARY KEY,
	title           TEXT NOT NULL,
	domain          TEXT NOT NULL,
	topics          TEXT[] NOT NULL DEFAULT '{}',
	insight         TEXT NOT NULL DEFAULT '',
	evidence        TEXT[] NOT NULL DEFAULT '{}',
	action_items    TEXT[] NOT NULL DEFAULT '{}',
	parent_ids      TEXT[] NOT NULL DEFAULT '{}',
	collision_type  TEXT NOT NULL,
	emergence_score DOUBLE PRECISION NOT NULL,
	generated_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_emerged_generated_at ON emerged_capsules(generated_at DESC);
`

// vectorMigration adds the pgvector embedding column. Applied only when
// the extension is present. The dimension is fixed per deployment by the
// vectorizer lexicon.
const vectorMigration = `
ALTER TABLE emerged_capsules ADD COLUMN IF NOT EXISTS embedding_vec vector(%d);
`

// Upsert statements. Re-saving an id replaces every column, matching the
// sqlite store's semantics.
const (
	upsertWithVector = `
		INSERT INTO emerged_capsules
			(id, title, domain, topics, insight, evidence, action_items,
			 parent_ids, collision_type, emergence_score, generated_at, embedding_vec)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			domain = excluded.domain,
			topics = excluded.topics,
			insight = excluded.insight,
			evidence = excluded.evidence,
			action_items = excluded.action_items,
			parent_ids = excluded.parent_ids,
			collision_type = excluded.collision_type,
			emergence_score = excluded.emergence_score,
			embedding_vec = excluded.embedding_vec,
			generated_at = excluded.generated_at
	`

	upsertWithoutVector = `
		INSERT INTO emerged_capsules
			(id, title, domain, topics, insight, evidence, action_items,
			 parent_ids, collision_type, emergence_score, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			domain = excluded.domain,
			topics = excluded.topics,
			insight = excluded.insight,
			evidence = excluded.evidence,
			action_items = excluded.action_items,
			parent_ids = excluded.parent_ids,
			collision_type = excluded.collision_type,
			emergence_score = excluded.emergence_score,
			generated_at = excluded.generated_at
	`
)

// ArtifactStore implements storage.ArtifactStore using PostgreSQL.
type ArtifactStore struct {
	db                *sql.DB
	pgvectorAvailable bool
	dimension         int
}

// NewArtifactStore connects to PostgreSQL at dsn and creates the schema.
// dimension is the embedding length produced by the active vectorizer; it
// sizes the pgvector column. A server without the pgvector extension is
// not an error, vector storage is simply disabled.
func NewArtifactStore(dsn string, dimension int) (*ArtifactStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: failed to connect: %w", err)
	}

	s := &ArtifactStore{db: db, dimension: dimension}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: failed to create schema: %w", err)
	}

	// Try to enable the pgvector extension. This may fail on servers
	// without pgvector installed; log a warning and continue without
	// vector support.
	if _, err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		log.Printf("postgres: pgvector extension not available (embedding storage disabled): %v", err)
		s.pgvectorAvailable = false
		return s, nil
	}
	s.pgvectorAvailable = true

	if dimension > 0 {
		if _, err := db.Exec(fmt.Sprintf(vectorMigration, dimension)); err != nil {
			log.Printf("postgres: failed to add embedding column (embedding storage disabled): %v", err)
			s.pgvectorAvailable = false
		}
	} else {
		s.pgvectorAvailable = false
	}

	return s, nil
}

// SaveArtifacts upserts the given capsules in one transaction. Fused
// embeddings are stored when pgvector is available and the embedding
// matches the configured dimension.
func (s *ArtifactStore) SaveArtifacts(ctx context.Context, capsules []types.EmergedCapsule) error {
	if len(capsules) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, capsule := range capsules {
		if err := s.saveOne(ctx, tx, capsule); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: failed to commit: %w", err)
	}
	return nil
}

// saveOne upserts one capsule inside the transaction.
func (s *ArtifactStore) saveOne(ctx context.Context, tx *sql.Tx, capsule types.EmergedCapsule) error {
	if s.pgvectorAvailable && len(capsule.Embedding) == s.dimension {
		// pgvector stores float32.
		f32 := make([]float32, len(capsule.Embedding))
		for i, v := range capsule.Embedding {
			f32[i] = float32(v)
		}
		vec := pgvector.NewVector(f32)

		_, err := tx.ExecContext(ctx, upsertWithVector,
			capsule.ID, capsule.Title, capsule.Domain, pq.Array(capsule.Topics),
			capsule.Insight, pq.Array(capsule.Evidence), pq.Array(capsule.ActionItems),
			pq.Array(capsule.ParentIDs), string(capsule.Type), capsule.EmergenceScore,
			capsule.GeneratedAt, vec)
		if err != nil {
			return fmt.Errorf("postgres: failed to save capsule %s: %w", capsule.ID, err)
		}
		return nil
	}

	_, err := tx.ExecContext(ctx, upsertWithoutVector,
		capsule.ID, capsule.Title, capsule.Domain, pq.Array(capsule.Topics),
		capsule.Insight, pq.Array(capsule.Evidence), pq.Array(capsule.ActionItems),
		pq.Array(capsule.ParentIDs), string(capsule.Type), capsule.EmergenceScore,
		capsule.GeneratedAt)
	if err != nil {
		return fmt.Errorf("postgres: failed to save capsule %s: %w", capsule.ID, err)
	}
	return nil
}

// ListArtifacts returns up to limit stored capsules, newest first.
func (s *ArtifactStore) ListArtifacts(ctx context.Context, limit int) ([]types.EmergedCapsule, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, domain, topics, insight, evidence, action_items,
		       parent_ids, collision_type, emergence_score, generated_at
		FROM emerged_capsules
		ORDER BY generated_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query capsules: %w", err)
	}
	defer rows.Close()

	var capsules []types.EmergedCapsule
	for rows.Next() {
		var capsule types.EmergedCapsule
		var collisionType string
		var generatedAt time.Time

		if err := rows.Scan(&capsule.ID, &capsule.Title, &capsule.Domain,
			pq.Array(&capsule.Topics), &capsule.Insight, pq.Array(&capsule.Evidence),
			pq.Array(&capsule.ActionItems), pq.Array(&capsule.ParentIDs),
			&collisionType, &capsule.EmergenceScore, &generatedAt); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan capsule: %w", err)
		}

		capsule.Type = types.CollisionType(collisionType)
		capsule.GeneratedAt = generatedAt
		capsules = append(capsules, capsule)
	}
	return capsules, rows.Err()
}

// Close closes the database.
func (s *ArtifactStore) Close() error {
	return s.db.Close()
}
