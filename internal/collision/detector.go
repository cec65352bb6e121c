// Package collision enumerates candidate pairs of capsule vectors whose
// similarity clears a threshold, classifies each pair's relationship, and
// filters out near-duplicate records.
package collision

import (
	"math"
	"sort"
	"strings"

	"github.com/scrypster/collider/pkg/types"
)

// titleOverlapLimit is the Jaccard word-set overlap above which two titles
// are considered the same record wearing different ids.
const titleOverlapLimit = 0.5

// Detector finds collision pairs in a set of capsule vectors.
// Enumeration is a pairwise O(n²) scan; corpora are tens to low hundreds
// of capsules per cycle.
type Detector struct {
	threshold float64
	maxPairs  int
}

// NewDetector creates a detector. threshold is the minimum cosine
// similarity for a pair to count as a collision; maxPairs caps the number
// of pairs returned per scan (<= 0 means unlimited).
func NewDetector(threshold float64, maxPairs int) *Detector {
	return &Detector{threshold: threshold, maxPairs: maxPairs}
}

// FindPairs returns every unordered pair of distinct vectors whose
// similarity meets the threshold, sorted by descending similarity and
// truncated to the configured maximum.
//
// Pairs where both sides carry the same id, or whose titles overlap enough
// to be near-duplicates, are discarded before similarity is computed. Each
// unordered id pair appears at most once in the output.
func (d *Detector) FindPairs(vectors []types.CapsuleVector) []types.CollisionPair {
	var pairs []types.CollisionPair
	seen := make(map[string]bool)

	for i := 0; i < len(vectors); i++ {
		for j := i + 1; j < len(vectors); j++ {
			a, b := vectors[i], vectors[j]

			if a.ID == b.ID {
				continue
			}
			if similarTitles(a.Title, b.Title) {
				continue
			}

			key := pairKey(a.ID, b.ID)
			if seen[key] {
				continue
			}

			similarity := CosineSimilarity(a.Embedding, b.Embedding)
			if similarity < d.threshold {
				continue
			}
			seen[key] = true

			pairs = append(pairs, types.CollisionPair{
				A:            a,
				B:            b,
				Similarity:   similarity,
				Type:         classify(a, b),
				SharedTopics: sharedTopics(a, b),
			})
		}
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].Similarity > pairs[j].Similarity
	})

	if d.maxPairs > 0 && len(pairs) > d.maxPairs {
		pairs = pairs[:d.maxPairs]
	}
	return pairs
}

// CosineSimilarity computes dot(u,v) / (‖u‖·‖v‖). It is 0 when either
// vector has zero norm or the lengths differ, never a division fault.
func CosineSimilarity(u, v []float64) float64 {
	if len(u) == 0 || len(v) == 0 || len(u) != len(v) {
		return 0
	}

	var dot, normU, normV float64
	for i := range u {
		dot += u[i] * v[i]
		normU += u[i] * u[i]
		normV += v[i] * v[i]
	}

	if normU == 0 || normV == 0 {
		return 0
	}
	return dot / (math.Sqrt(normU) * math.Sqrt(normV))
}

// similarTitles reports whether two titles are near-duplicates: the
// Jaccard overlap of their lowercase word sets exceeds titleOverlapLimit.
func similarTitles(title1, title2 string) bool {
	words1 := wordSet(title1)
	words2 := wordSet(title2)

	if len(words1) == 0 || len(words2) == 0 {
		return false
	}

	intersection := 0
	for w := range words1 {
		if words2[w] {
			intersection++
		}
	}
	union := len(words1) + len(words2) - intersection

	return float64(intersection)/float64(union) > titleOverlapLimit
}

// wordSet tokenizes a title by whitespace into a lowercase word set.
func wordSet(title string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(title)) {
		set[w] = true
	}
	return set
}

// classify assigns the collision type: cross_domain when the domains
// differ, complementary when the domains match and topics overlap,
// same_domain otherwise.
func classify(a, b types.CapsuleVector) types.CollisionType {
	if a.Domain != b.Domain {
		return types.CollisionCrossDomain
	}
	if len(sharedTopics(a, b)) > 0 {
		return types.CollisionComplementary
	}
	return types.CollisionSameDomain
}

// sharedTopics returns the topic intersection, preserving the first
// vector's topic order so results are deterministic for a given input.
func sharedTopics(a, b types.CapsuleVector) []string {
	inB := make(map[string]bool, len(b.Topics))
	for _, t := range b.Topics {
		inB[t] = true
	}

	var shared []string
	seen := make(map[string]bool)
	for _, t := range a.Topics {
		if inB[t] && !seen[t] {
			shared = append(shared, t)
			seen[t] = true
		}
	}
	return shared
}

// pairKey builds an unordered key over two capsule ids.
func pairKey(idA, idB string) string {
	if idA > idB {
		idA, idB = idB, idA
	}
	return idA + "\x00" + idB
}
