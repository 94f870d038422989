package vectorstore

import (
	"context"
	"math"
	"testing"

	"crewpilot/internal/rag/interfaces"
	"crewpilot/internal/rag/schema"
)

func doc(id string, embedding []float32, md map[string]interface{}) *schema.Document {
	return &schema.Document{ID: id, Text: "text of " + id, Embedding: embedding, Metadata: md}
}

func TestCosineSimilarity(t *testing.T) {
	if got := CosineSimilarity([]float32{1, 0}, []float32{1, 0}); math.Abs(float64(got)-1) > 1e-6 {
		t.Errorf("identical vectors = %f, want 1", got)
	}
	if got := CosineSimilarity([]float32{1, 0}, []float32{0, 1}); math.Abs(float64(got)) > 1e-6 {
		t.Errorf("orthogonal vectors = %f, want 0", got)
	}
	if got := CosineSimilarity([]float32{1, 0}, []float32{1}); got != 0 {
		t.Errorf("mismatched lengths = %f, want 0", got)
	}
	if got := CosineSimilarity([]float32{0, 0}, []float32{1, 0}); got != 0 {
		t.Errorf("zero vector = %f, want 0", got)
	}
}

func TestMemoryStore_QueryRanking(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	err := store.Add(ctx, []*schema.Document{
		doc("a", []float32{1, 0}, nil),
		doc("b", []float32{0.9, 0.1}, nil),
		doc("c", []float32{0, 1}, nil),
		doc("no-embedding", nil, nil), // dropped on Add
	})
	if err != nil {
		t.Fatal(err)
	}
	if store.Len() != 3 {
		t.Fatalf("Len() = %d, want 3 (doc without embedding must be dropped)", store.Len())
	}

	results, err := store.Query(ctx, []float32{1, 0}, 2, interfaces.SearchFilters{})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Document.ID != "a" || results[1].Document.ID != "b" {
		t.Errorf("ranking = %s, %s; want a, b", results[0].Document.ID, results[1].Document.ID)
	}
	if results[0].Score < results[1].Score {
		t.Error("results are not sorted by descending score")
	}
}

func TestMemoryStore_QueryEmpty(t *testing.T) {
	store := NewMemoryStore()
	results, err := store.Query(context.Background(), []float32{1, 0}, 3, interfaces.SearchFilters{})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("empty store returned %d results", len(results))
	}
}

func TestMatchesFilters(t *testing.T) {
	res := &schema.SearchResult{Document: doc("a", []float32{1}, map[string]interface{}{
		schema.MetadataKeyDocumentType: "Building Regulation",
		schema.MetadataKeyDistrictSpecific: map[string]interface{}{
			"mentioned_districts": []interface{}{"Stuttgart-Mitte"},
		},
	})}

	cases := []struct {
		name    string
		filters interfaces.SearchFilters
		want    bool
	}{
		{"no filters", interfaces.SearchFilters{}, true},
		{"district match", interfaces.SearchFilters{District: "Stuttgart-Mitte"}, true},
		{"district miss", interfaces.SearchFilters{District: "Vaihingen"}, false},
		{"doc type substring, case-insensitive", interfaces.SearchFilters{DocumentType: "regulation"}, true},
		{"doc type miss", interfaces.SearchFilters{DocumentType: "form"}, false},
		{"both match", interfaces.SearchFilters{District: "Stuttgart-Mitte", DocumentType: "building"}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MatchesFilters(res, tc.filters); got != tc.want {
				t.Errorf("MatchesFilters() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMemoryStore_QueryWithFilters(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	err := store.Add(ctx, []*schema.Document{
		doc("close-but-wrong-district", []float32{1, 0}, map[string]interface{}{
			schema.MetadataKeyDistrictSpecific: map[string]interface{}{
				"mentioned_districts": []interface{}{"Vaihingen"},
			},
		}),
		doc("right-district", []float32{0.5, 0.5}, map[string]interface{}{
			schema.MetadataKeyDistrictSpecific: map[string]interface{}{
				"mentioned_districts": []interface{}{"Stuttgart-Mitte"},
			},
		}),
	})
	if err != nil {
		t.Fatal(err)
	}

	results, err := store.Query(ctx, []float32{1, 0}, 1, interfaces.SearchFilters{District: "Stuttgart-Mitte"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Document.ID != "right-district" {
		t.Errorf("filtered query returned %+v, want right-district", results)
	}
}
