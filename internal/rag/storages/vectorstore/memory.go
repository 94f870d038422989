package vectorstore

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"crewpilot/internal/rag/interfaces"
	"crewpilot/internal/rag/schema"
)

// MemoryStore is an in-process VectorStore over precomputed embeddings.
// Scoring is cosine similarity; metadata filters are applied after
// scoring, so the candidate pool is widened before filtering.
type MemoryStore struct {
	mu   sync.RWMutex
	docs []*schema.Document
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Add appends documents, keeping only those that carry an embedding.
func (s *MemoryStore) Add(ctx context.Context, docs []*schema.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, doc := range docs {
		if len(doc.Embedding) > 0 {
			s.docs = append(s.docs, doc)
		}
	}
	return nil
}

// Len returns the number of stored vectors.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Query scores every stored vector against the query embedding and
// returns the topK best matches that pass the filters.
func (s *MemoryStore) Query(ctx context.Context, embedding []float32, topK int, filters interfaces.SearchFilters) ([]*schema.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.docs) == 0 || topK <= 0 {
		return nil, nil
	}

	scored := make([]*schema.SearchResult, 0, len(s.docs))
	for _, doc := range s.docs {
		scored = append(scored, &schema.SearchResult{
			Document: doc,
			Score:    CosineSimilarity(embedding, doc.Embedding),
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	results := make([]*schema.SearchResult, 0, topK)
	for _, res := range scored {
		if len(results) == topK {
			break
		}
		if !MatchesFilters(res, filters) {
			continue
		}
		results = append(results, res)
	}
	return results, nil
}

// MatchesFilters reports whether a result passes the given metadata filters.
func MatchesFilters(res *schema.SearchResult, filters interfaces.SearchFilters) bool {
	if filters.District != "" {
		found := false
		for _, d := range res.MentionedDistricts() {
			if d == filters.District {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if filters.DocumentType != "" {
		docType, _ := res.Document.Metadata[schema.MetadataKeyDocumentType].(string)
		if !strings.Contains(strings.ToLower(docType), strings.ToLower(filters.DocumentType)) {
			return false
		}
	}

	return true
}

// CosineSimilarity computes the cosine similarity of two vectors.
// Mismatched lengths and zero vectors score 0.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// compile-time check to ensure MemoryStore implements the VectorStore interface
var _ interfaces.VectorStore = (*MemoryStore)(nil)
