package types

import (
	"encoding/json"
	"math"
	"testing"
)

func TestQualitySignal_ScalarForm(t *testing.T) {
	var q QualitySignal
	if err := json.Unmarshal([]byte(`42.5`), &q); err != nil {
		t.Fatalf("unmarshal scalar failed: %v", err)
	}
	if float64(q) != 42.5 {
		t.Errorf("expected 42.5, got %f", float64(q))
	}
}

func TestQualitySignal_StructuredForm(t *testing.T) {
	var q QualitySignal
	data := []byte(`{"truth": 80, "goodness": 60, "beauty": 70, "intelligence": 90}`)
	if err := json.Unmarshal(data, &q); err != nil {
		t.Fatalf("unmarshal breakdown failed: %v", err)
	}
	if math.Abs(float64(q)-75) > 1e-9 {
		t.Errorf("expected mean 75, got %f", float64(q))
	}
}

func TestQualitySignal_EmptyAndNull(t *testing.T) {
	var q QualitySignal
	if err := json.Unmarshal([]byte(`{}`), &q); err != nil {
		t.Fatalf("unmarshal empty object failed: %v", err)
	}
	if q != 0 {
		t.Errorf("empty object should normalize to 0, got %f", float64(q))
	}

	q = 7
	if err := json.Unmarshal([]byte(`null`), &q); err != nil {
		t.Fatalf("unmarshal null failed: %v", err)
	}
	if q != 0 {
		t.Errorf("null should normalize to 0, got %f", float64(q))
	}
}

func TestQualitySignal_RejectsOtherShapes(t *testing.T) {
	var q QualitySignal
	if err := json.Unmarshal([]byte(`"high"`), &q); err == nil {
		t.Error("expected error for string quality signal")
	}
}

func TestQualitySignal_MarshalsAsScalar(t *testing.T) {
	out, err := json.Marshal(QualitySignal(12.5))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(out) != "12.5" {
		t.Errorf("expected 12.5, got %s", out)
	}
}

func TestCapsuleRecord_DecodesQualityVariants(t *testing.T) {
	data := []byte(`{
		"id": "cap-1",
		"title": "t",
		"domain": "ai",
		"topics": ["a"],
		"insight": "i",
		"evidence": [],
		"action_items": [],
		"quality_score": {"truth": 40, "goodness": 60}
	}`)

	var rec CapsuleRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("unmarshal record failed: %v", err)
	}
	if float64(rec.Quality) != 50 {
		t.Errorf("expected normalized quality 50, got %f", float64(rec.Quality))
	}
}
