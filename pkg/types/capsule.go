// Package types defines the shared data model for the capsule collision
// system: source capsules fetched from the hub, their vectorized form,
// detected collision pairs, and the emerged capsules produced by fusion.
package types

import "time"

// CollisionType classifies the relationship between two colliding capsules.
type CollisionType string

const (
	// CollisionCrossDomain means the two capsules come from different domains.
	CollisionCrossDomain CollisionType = "cross_domain"

	// CollisionComplementary means same domain with overlapping topics.
	CollisionComplementary CollisionType = "complementary"

	// CollisionSameDomain means same domain with no topic overlap.
	CollisionSameDomain CollisionType = "same_domain"
)

// CapsuleRecord is a knowledge capsule as stored by the hub.
// The collision pipeline reads records and never mutates them.
type CapsuleRecord struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Domain      string        `json:"domain"`
	Topics      []string      `json:"topics"`
	Insight     string        `json:"insight"`
	Evidence    []string      `json:"evidence"`
	ActionItems []string      `json:"action_items"`
	Authors     []string      `json:"authors,omitempty"`
	Quality     QualitySignal `json:"quality_score,omitempty"` // externally supplied, normalized at decode
	CreatedAt   time.Time     `json:"created_at,omitempty"`
}

// CapsuleVector is the vectorized form of a CapsuleRecord, owned by a single
// collision cycle. Embedding is fixed-length and L2-normalized; an all-zero
// embedding is a valid low-information signature.
type CapsuleVector struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Domain      string    `json:"domain"`
	Topics      []string  `json:"topics"`
	Insight     string    `json:"insight"`
	Evidence    []string  `json:"evidence"`
	ActionItems []string  `json:"action_items"`
	Embedding   []float64 `json:"embedding"`
	Quality     float64   `json:"quality_score,omitempty"`
}

// CollisionPair is a candidate relationship between two distinct capsule
// vectors whose similarity cleared the detection threshold. Pairs are
// unordered: (A,B) and (B,A) are the same pair.
type CollisionPair struct {
	A            CapsuleVector `json:"capsule_a"`
	B            CapsuleVector `json:"capsule_b"`
	Similarity   float64       `json:"similarity"`
	Type         CollisionType `json:"collision_type"`
	SharedTopics []string      `json:"shared_topics"`
}

// EmergedCapsule is a new capsule synthesized from a colliding pair.
type EmergedCapsule struct {
	ID             string        `json:"id"`
	Title          string        `json:"title"`
	Domain         string        `json:"domain"`
	Topics         []string      `json:"topics"`
	Insight        string        `json:"insight"`
	Evidence       []string      `json:"evidence"`
	ActionItems    []string      `json:"action_items"`
	ParentIDs      []string      `json:"parent_ids"`
	Type           CollisionType `json:"collision_type"`
	EmergenceScore float64       `json:"emergence_score"`
	Embedding      []float64     `json:"embedding,omitempty"` // fused vector, weighted scoring mode only
	GeneratedAt    time.Time     `json:"generated_at"`
}

// CycleReport summarizes one collision cycle.
type CycleReport struct {
	RunTime         time.Time             `json:"run_time"`
	SourceCapsules  int                   `json:"source_capsules"`
	CollisionPairs  int                   `json:"collision_pairs"`
	EmergedCapsules int                   `json:"emerged_capsules"`
	HighQuality     int                   `json:"high_quality"`
	ByType          map[CollisionType]int `json:"by_type"`
	Persisted       int                   `json:"persisted,omitempty"`
	Published       int                   `json:"published,omitempty"`
	Failure         string                `json:"failure,omitempty"`
}

// Totals are running counters kept by the orchestrator across cycles.
type Totals struct {
	Runs       int `json:"total_runs"`
	Collisions int `json:"total_collisions"`
	Emerged    int `json:"total_emerged"`
	Failures   int `json:"total_failures"`
}
