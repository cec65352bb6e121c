package vectorizer

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DomainBucket is one named keyword set in the lexicon. Each bucket
// contributes exactly one embedding dimension.
type DomainBucket struct {
	Domain   string   `yaml:"domain"`
	Keywords []string `yaml:"keywords"`
}

// Lexicon is the full vectorizer configuration: an ordered list of domain
// buckets followed by salient topic tokens. Order matters: it fixes the
// embedding layout, so two vectorizers built from the same lexicon produce
// comparable vectors.
type Lexicon struct {
	Buckets       []DomainBucket `yaml:"buckets"`
	SalientTopics []string       `yaml:"salient_topics"`
}

// DefaultLexicon returns the built-in lexicon covering the domains the
// capsule hub commonly serves.
func DefaultLexicon() Lexicon {
	return Lexicon{
		Buckets: []DomainBucket{
			{Domain: "neuroscience", Keywords: []string{"neural", "brain", "cortex", "neuron", "signal", "motor", "sensory", "plasticity"}},
			{Domain: "ai", Keywords: []string{"ai", "machine learning", "deep learning", "algorithm", "decoding", "model", "neural network", "end-to-end"}},
			{Domain: "ethics", Keywords: []string{"ethics", "privacy", "fairness", "rights", "enhancement", "boundary", "cognition"}},
			{Domain: "materials", Keywords: []string{"material", "electrode", "flexible", "biocompatible", "nano", "conductive"}},
			{Domain: "medical", Keywords: []string{"clinical", "rehabilitation", "therapy", "patient", "movement disorder"}},
			{Domain: "physics", Keywords: []string{"gravity", "physics", "mechanics", "quantum", "motion"}},
			{Domain: "technology", Keywords: []string{"technology", "invention", "innovation", "device", "system"}},
			{Domain: "biotech", Keywords: []string{"biology", "synthetic", "genetic", "gene", "life"}},
		},
		SalientTopics: []string{
			"BCI", "decoding", "privacy", "ethics", "fusion", "breakthrough",
			"learning", "feedback", "signal", "control", "interface", "brain",
			"AI", "ML", "deep learning", "real-time",
		},
	}
}

// LoadLexicon reads a lexicon from a YAML file. A lexicon without buckets
// or salient topics is rejected: it would make every embedding zero-length.
func LoadLexicon(path string) (Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Lexicon{}, fmt.Errorf("lexicon: failed to read %s: %w", path, err)
	}

	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return Lexicon{}, fmt.Errorf("lexicon: failed to parse %s: %w", path, err)
	}

	if len(lex.Buckets) == 0 && len(lex.SalientTopics) == 0 {
		return Lexicon{}, fmt.Errorf("lexicon: %s defines no buckets and no salient topics", path)
	}

	return lex, nil
}
