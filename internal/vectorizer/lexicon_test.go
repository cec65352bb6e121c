package vectorizer

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadLexicon(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lexicon.yaml")

	content := `
buckets:
  - domain: neuroscience
    keywords: [neural, brain]
  - domain: ai
    keywords: [model, decoding]
salient_topics: [BCI, privacy]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write lexicon file: %v", err)
	}

	lex, err := LoadLexicon(path)
	if err != nil {
		t.Fatalf("LoadLexicon failed: %v", err)
	}

	if len(lex.Buckets) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(lex.Buckets))
	}
	if lex.Buckets[0].Domain != "neuroscience" || lex.Buckets[1].Domain != "ai" {
		t.Error("bucket order must follow the file")
	}
	if len(lex.SalientTopics) != 2 {
		t.Errorf("expected 2 salient topics, got %d", len(lex.SalientTopics))
	}

	v := NewLexiconVectorizer(lex)
	if v.Dimension() != 4 {
		t.Errorf("Dimension() = %d, want 4", v.Dimension())
	}
}

func TestLoadLexiconRejectsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.yaml")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatalf("failed to write lexicon file: %v", err)
	}

	if _, err := LoadLexicon(path); err == nil {
		t.Error("expected error for a lexicon with no buckets and no topics")
	}
}

func TestLoadLexiconMissingFile(t *testing.T) {
	if _, err := LoadLexicon("/nonexistent/lexicon.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDefaultLexiconIsUsable(t *testing.T) {
	lex := DefaultLexicon()
	if len(lex.Buckets) == 0 || len(lex.SalientTopics) == 0 {
		t.Fatal("default lexicon must define buckets and salient topics")
	}

	v := NewLexiconVectorizer(lex)
	if v.Dimension() != len(lex.Buckets)+len(lex.SalientTopics) {
		t.Error("dimension must equal buckets plus salient topics")
	}
}
