package postgres

import (
	"fmt"
	"strings"
	"testing"
)

// Queries against a live server are covered by deployments; these tests
// pin the statement shapes.

func TestUpsertsReplaceEveryColumn(t *testing.T) {
	columns := []string{
		"title", "domain", "topics", "insight", "evidence",
		"action_items", "parent_ids", "collision_type",
		"emergence_score", "generated_at",
	}

	for name, stmt := range map[string]string{
		"with vector":    upsertWithVector,
		"without vector": upsertWithoutVector,
	} {
		for _, col := range columns {
			want := fmt.Sprintf("%s = excluded.%s", col, col)
			if !strings.Contains(stmt, want) {
				t.Errorf("upsert %s does not replace column %s on conflict", name, col)
			}
		}
	}

	if !strings.Contains(upsertWithVector, "embedding_vec = excluded.embedding_vec") {
		t.Error("vector upsert does not replace the embedding column on conflict")
	}
}

func TestSchemaCoversUpsertColumns(t *testing.T) {
	for _, col := range []string{
		"id", "title", "domain", "topics", "insight", "evidence",
		"action_items", "parent_ids", "collision_type",
		"emergence_score", "generated_at",
	} {
		if !strings.Contains(schema, col) {
			t.Errorf("schema is missing column %s", col)
		}
	}
}
