// Package fusion synthesizes new capsules from colliding pairs and scores
// their emergence quality.
//
// Synthesis is templated text assembly, deliberately not generative: the
// same pair always fuses into the same capsule, which keeps the pipeline
// testable end to end.
package fusion

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/scrypster/collider/pkg/types"
)

// ScoringMode selects the emergence scoring formula.
type ScoringMode string

const (
	// ScoringBasic uses the collision type, similarity, shared topics and
	// combined evidence count.
	ScoringBasic ScoringMode = "basic"

	// ScoringWeighted adds a term for the parents' externally supplied
	// quality signals on top of the basic terms, and also produces a fused
	// embedding for the emerged capsule.
	ScoringWeighted ScoringMode = "weighted"
)

// Caps applied during synthesis.
const (
	maxTopics      = 10
	maxListEntries = 5
	perParentItems = 2
)

// Engine fuses collision pairs into emerged capsules.
type Engine struct {
	minScore float64
	mode     ScoringMode
	now      func() time.Time
	newID    func() string
}

// NewEngine creates a fusion engine. Pairs scoring below minScore are
// declined. An unrecognized mode falls back to ScoringBasic.
func NewEngine(minScore float64, mode ScoringMode) *Engine {
	if mode != ScoringWeighted {
		mode = ScoringBasic
	}
	return &Engine{
		minScore: minScore,
		mode:     mode,
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
}

// Fuse merges the pair into a new capsule. The second return value is
// false when the pair's emergence score is below the engine's minimum,
// which is a normal decline, not an error.
func (e *Engine) Fuse(pair types.CollisionPair) (*types.EmergedCapsule, bool) {
	score := e.Score(pair)
	if score < e.minScore {
		return nil, false
	}

	a, b := pair.A, pair.B

	emerged := &types.EmergedCapsule{
		ID:             e.newID(),
		Title:          fuseTitle(pair),
		Domain:         a.Domain + "+" + b.Domain,
		Topics:         fuseTopics(a, b),
		Insight:        fuseInsight(pair),
		Evidence:       fuseEvidence(a, b),
		ActionItems:    fuseActions(a, b),
		ParentIDs:      []string{a.ID, b.ID},
		Type:           pair.Type,
		EmergenceScore: score,
		GeneratedAt:    e.now().UTC(),
	}

	if e.mode == ScoringWeighted {
		emerged.Embedding = FuseEmbedding(a.Embedding, b.Embedding, pair.Similarity)
	}

	return emerged, true
}

// Score computes the additive emergence score for a pair. The result is
// always within [0, 100]: every term is non-negative and the sum is capped.
//
// Basic terms:
//
//	+30 cross_domain / +20 complementary / +0 same_domain
//	+ similarity × 30
//	+ min(10 × |sharedTopics|, 20)
//	+ min(5 × (|evidenceA| + |evidenceB|), 20)
//
// Weighted mode adds min(0.3 × (qualityA + qualityB), 20) on top.
func (e *Engine) Score(pair types.CollisionPair) float64 {
	var score float64

	switch pair.Type {
	case types.CollisionCrossDomain:
		score += 30
	case types.CollisionComplementary:
		score += 20
	}

	score += pair.Similarity * 30
	score += math.Min(float64(len(pair.SharedTopics))*10, 20)
	score += math.Min(float64(len(pair.A.Evidence)+len(pair.B.Evidence))*5, 20)

	if e.mode == ScoringWeighted {
		quality := pair.A.Quality + pair.B.Quality
		if quality > 0 {
			score += math.Min(quality*0.3, 20)
		}
	}

	return math.Min(score, 100)
}

// FuseEmbedding mixes two parent embeddings as a convex combination using
// the pair similarity as the mixing ratio, then re-normalizes. Provided for
// chained fusion; an empty parent yields the other parent unchanged.
func FuseEmbedding(u, v []float64, ratio float64) []float64 {
	if len(u) == 0 {
		return v
	}
	if len(v) == 0 || len(u) != len(v) {
		return u
	}

	fused := make([]float64, len(u))
	var sum float64
	for i := range u {
		fused[i] = u[i]*(1-ratio) + v[i]*ratio
		sum += fused[i] * fused[i]
	}

	if sum > 0 {
		norm := math.Sqrt(sum)
		for i := range fused {
			fused[i] /= norm
		}
	}
	return fused
}

// fuseTitle composes the emerged capsule's title from the pair.
func fuseTitle(pair types.CollisionPair) string {
	a, b := pair.A, pair.B
	switch pair.Type {
	case types.CollisionCrossDomain:
		return fmt.Sprintf("Cross-domain fusion: %s + %s", a.Domain, b.Domain)
	case types.CollisionComplementary:
		return fmt.Sprintf("Fusion: %s + %s", truncate(a.Title, 25), truncate(b.Title, 25))
	default:
		return fmt.Sprintf("Deepened: %s + %s", truncate(a.Title, 30), truncate(b.Title, 30))
	}
}

// fuseInsight assembles the synthesized narrative: relationship type,
// bounded excerpts of both parents, shared topics, and a closing sentence
// naming the fusion's implication.
func fuseInsight(pair types.CollisionPair) string {
	a, b := pair.A, pair.B
	var parts []string

	if pair.Type == types.CollisionCrossDomain {
		parts = append(parts, fmt.Sprintf("[Cross-domain analysis] Exploring the link between %s and %s:", a.Domain, b.Domain))
		parts = append(parts, fmt.Sprintf("- %s perspective: %s...", a.Domain, truncate(a.Insight, 200)))
		parts = append(parts, fmt.Sprintf("- %s perspective: %s...", b.Domain, truncate(b.Insight, 200)))
		if len(pair.SharedTopics) > 0 {
			parts = append(parts, "Shared focus: "+strings.Join(capList(pair.SharedTopics, 5), ", "))
		}
		subject := "multiple dimensions"
		if len(pair.SharedTopics) > 0 {
			subject = pair.SharedTopics[0]
		}
		parts = append(parts, fmt.Sprintf("Fused insight: the two domains connect deeply around %s and warrant joint study.", subject))
	} else {
		parts = append(parts, "[Knowledge fusion] Combined analysis of two capsules:")
		parts = append(parts, fmt.Sprintf("- %s: %s...", a.Title, truncate(a.Insight, 150)))
		parts = append(parts, fmt.Sprintf("- %s: %s...", b.Title, truncate(b.Insight, 150)))
		parts = append(parts, "Fused insight: the two capsules complement each other into a more complete picture.")
	}

	return strings.Join(parts, "\n")
}

// fuseEvidence takes up to two items from each parent, marks their origin,
// and appends a provenance line. Parent-A items come first, then
// parent-B's, then the synthetic line; the combined list is capped.
func fuseEvidence(a, b types.CapsuleVector) []string {
	var evidence []string
	for _, e := range capList(a.Evidence, perParentItems) {
		evidence = append(evidence, "[A] "+e)
	}
	for _, e := range capList(b.Evidence, perParentItems) {
		evidence = append(evidence, "[B] "+e)
	}
	evidence = append(evidence, fmt.Sprintf("Derived from cross-record fusion: %s + %s", truncate(a.Title, 30), truncate(b.Title, 30)))
	return capList(evidence, maxListEntries)
}

// fuseActions merges up to two action items per parent plus a synthetic
// follow-up, capped like evidence.
func fuseActions(a, b types.CapsuleVector) []string {
	var actions []string
	actions = append(actions, capList(a.ActionItems, perParentItems)...)
	actions = append(actions, capList(b.ActionItems, perParentItems)...)
	actions = append(actions, "Plan next steps based on the fused analysis")
	return capList(actions, maxListEntries)
}

// fuseTopics unions the parents' topics, parent-A order first, capped at
// maxTopics.
func fuseTopics(a, b types.CapsuleVector) []string {
	var topics []string
	seen := make(map[string]bool)
	for _, t := range append(append([]string{}, a.Topics...), b.Topics...) {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		topics = append(topics, t)
	}
	return capList(topics, maxTopics)
}

// capList returns at most n leading entries of list.
func capList(list []string, n int) []string {
	if len(list) > n {
		return list[:n]
	}
	return list
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
