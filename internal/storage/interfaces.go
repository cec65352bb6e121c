// Package storage defines the persistence interface for emerged capsules
// and is implemented by the sqlite and postgres sub-packages.
package storage

import (
	"context"

	"github.com/scrypster/collider/pkg/types"
)

// ArtifactStore persists emerged capsules. It is a best-effort sink: the
// orchestrator logs write failures but never fails a cycle on them.
type ArtifactStore interface {
	// SaveArtifacts writes the given capsules. Already-stored ids are
	// overwritten rather than duplicated.
	SaveArtifacts(ctx context.Context, capsules []types.EmergedCapsule) error

	// ListArtifacts returns up to limit stored capsules, newest first.
	ListArtifacts(ctx context.Context, limit int) ([]types.EmergedCapsule, error)

	// Close releases the underlying database resources.
	Close() error
}
