// Package sqlite implements the emerged-capsule store on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/scrypster/collider/pkg/types"
)

// Schema creates the emerged_capsules table.
const Schema = `
CREATE TABLE IF NOT EXISTS emerged_capsules (
	id              TEXT PRIMARY KEY,
	title           TEXT NOT NULL,
	domain          TEXT NOT NULL,
	topics          TEXT NOT NULL DEFAULT '[]',
	insight         TEXT NOT NULL DEFAULT '',
	evidence        TEXT NOT NULL DEFAULT '[]',
	action_items    TEXT NOT NULL DEFAULT '[]',
	parent_ids      TEXT NOT NULL DEFAULT '[]',
	collision_type  TEXT NOT NULL,
	emergence_score REAL NOT NULL,
	generated_at    TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_emerged_generated_at ON emerged_capsules(generated_at DESC);
CREATE INDEX IF NOT EXISTS idx_emerged_score ON emerged_capsules(emergence_score DESC);
`

// ArtifactStore implements storage.ArtifactStore using SQLite.
type ArtifactStore struct {
	db *sql.DB
}

// NewArtifactStore opens (or creates) the SQLite database at dsn,
// configures WAL mode, and creates the schema.
func NewArtifactStore(dsn string) (*ArtifactStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	// SQLite only supports one concurrent writer. A single open connection
	// serialises writes and avoids SQLITE_BUSY errors; WAL mode lets
	// readers proceed without blocking the writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to set busy timeout: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to create schema: %w", err)
	}

	return &ArtifactStore{db: db}, nil
}

// SaveArtifacts upserts the given capsules in one transaction.
func (s *ArtifactStore) SaveArtifacts(ctx context.Context, capsules []types.EmergedCapsule) error {
	if len(capsules) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO emerged_capsules
			(id, title, domain, topics, insight, evidence, action_items,
			 parent_ids, collision_type, emergence_score, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
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
	`)
	if err != nil {
		return fmt.Errorf("sqlite: failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, capsule := range capsules {
		topics, _ := json.Marshal(capsule.Topics)
		evidence, _ := json.Marshal(capsule.Evidence)
		actions, _ := json.Marshal(capsule.ActionItems)
		parents, _ := json.Marshal(capsule.ParentIDs)

		if _, err := stmt.ExecContext(ctx,
			capsule.ID, capsule.Title, capsule.Domain, string(topics),
			capsule.Insight, string(evidence), string(actions), string(parents),
			string(capsule.Type), capsule.EmergenceScore, capsule.GeneratedAt,
		); err != nil {
			return fmt.Errorf("sqlite: failed to save capsule %s: %w", capsule.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: failed to commit: %w", err)
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
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query capsules: %w", err)
	}
	defer rows.Close()

	var capsules []types.EmergedCapsule
	for rows.Next() {
		var capsule types.EmergedCapsule
		var topics, evidence, actions, parents, collisionType string
		var generatedAt time.Time

		if err := rows.Scan(&capsule.ID, &capsule.Title, &capsule.Domain,
			&topics, &capsule.Insight, &evidence, &actions, &parents,
			&collisionType, &capsule.EmergenceScore, &generatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan capsule: %w", err)
		}

		json.Unmarshal([]byte(topics), &capsule.Topics)
		json.Unmarshal([]byte(evidence), &capsule.Evidence)
		json.Unmarshal([]byte(actions), &capsule.ActionItems)
		json.Unmarshal([]byte(parents), &capsule.ParentIDs)
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
