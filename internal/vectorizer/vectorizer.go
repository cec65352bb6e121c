// Package vectorizer turns capsule text into fixed-length numeric
// signatures that the collision detector can compare.
//
// The built-in implementation is a hand-defined lexical signature, not a
// learned embedding: one scalar per domain keyword bucket plus one binary
// indicator per salient topic token, L2-normalized. Anything that produces
// fixed-length, comparable, L2-normalizable vectors can be swapped in
// behind the TextToVector interface.
package vectorizer

import (
	"math"
	"strings"

	"github.com/scrypster/collider/pkg/types"
)

// TextToVector converts capsule records into capsule vectors.
// Implementations must be deterministic and must emit embeddings of a
// constant length for the lifetime of the instance.
type TextToVector interface {
	Vectorize(record types.CapsuleRecord) types.CapsuleVector
	Dimension() int
}

// LexiconVectorizer vectorizes capsules against a fixed keyword lexicon.
// It is a pure function of the record's text fields and the lexicon; the
// same record always produces a bit-identical embedding.
type LexiconVectorizer struct {
	lexicon Lexicon
}

// NewLexiconVectorizer creates a vectorizer for the given lexicon.
// An empty lexicon is valid and produces zero-length embeddings, which
// compare as maximally dissimilar to everything.
func NewLexiconVectorizer(lexicon Lexicon) *LexiconVectorizer {
	return &LexiconVectorizer{lexicon: lexicon}
}

// Dimension returns the constant embedding length: one slot per domain
// bucket plus one slot per salient topic token.
func (v *LexiconVectorizer) Dimension() int {
	return len(v.lexicon.Buckets) + len(v.lexicon.SalientTopics)
}

// Vectorize converts a capsule record into its vectorized form. Missing or
// empty text fields degrade to a low-information embedding; no input is an
// error.
func (v *LexiconVectorizer) Vectorize(record types.CapsuleRecord) types.CapsuleVector {
	blob := record.Title + " " + record.Insight + " " + strings.Join(record.Topics, " ")

	return types.CapsuleVector{
		ID:          record.ID,
		Title:       record.Title,
		Domain:      record.Domain,
		Topics:      record.Topics,
		Insight:     record.Insight,
		Evidence:    record.Evidence,
		ActionItems: record.ActionItems,
		Embedding:   v.embed(blob),
		Quality:     float64(record.Quality),
	}
}

// embed builds the raw signature for a text blob and L2-normalizes it.
func (v *LexiconVectorizer) embed(blob string) []float64 {
	lower := strings.ToLower(blob)
	embedding := make([]float64, 0, v.Dimension())

	// One presence/frequency scalar per domain bucket, normalized by
	// bucket size so large buckets do not dominate.
	for _, bucket := range v.lexicon.Buckets {
		hits := 0
		for _, kw := range bucket.Keywords {
			if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
				hits++
			}
		}
		size := len(bucket.Keywords)
		if size == 0 {
			size = 1
		}
		embedding = append(embedding, float64(hits)/float64(size))
	}

	// One binary indicator per salient topic token. The match is a literal
	// case-sensitive occurrence so acronym tokens like "BCI" only fire on
	// the acronym itself.
	for _, topic := range v.lexicon.SalientTopics {
		if topic != "" && strings.Contains(blob, topic) {
			embedding = append(embedding, 1)
		} else {
			embedding = append(embedding, 0)
		}
	}

	return normalize(embedding)
}

// normalize L2-normalizes the vector in place. A zero vector is returned
// unchanged: it is a valid maximally-dissimilar signature, not an error.
func normalize(vec []float64) []float64 {
	var sum float64
	for _, x := range vec {
		sum += x * x
	}
	if sum == 0 {
		return vec
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}
