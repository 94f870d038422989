package docstore

import (
	"context"
	"sync"

	"crewpilot/internal/rag/interfaces"
	"crewpilot/internal/rag/schema"
)

// InMemoryDocStore is a thread-safe, in-memory implementation of the DocStore interface.
type InMemoryDocStore struct {
	mu   sync.RWMutex
	docs map[string]*schema.Document
}

// NewInMemoryDocStore creates a new instance of InMemoryDocStore.
func NewInMemoryDocStore() *InMemoryDocStore {
	return &InMemoryDocStore{
		docs: make(map[string]*schema.Document),
	}
}

// Add adds a map of documents to the store.
func (s *InMemoryDocStore) Add(ctx context.Context, docs map[string]*schema.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, doc := range docs {
		s.docs[id] = doc
	}
	return nil
}

// Get retrieves a map of documents from the store by their IDs.
func (s *InMemoryDocStore) Get(ctx context.Context, ids []string) (map[string]*schema.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]*schema.Document)
	for _, id := range ids {
		if doc, ok := s.docs[id]; ok {
			result[id] = doc
		}
	}
	return result, nil
}

// All returns every document in the store.
func (s *InMemoryDocStore) All(ctx context.Context) ([]*schema.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]*schema.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		docs = append(docs, doc)
	}
	return docs, nil
}

// Delete removes documents from the store by their IDs.
func (s *InMemoryDocStore) Delete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		delete(s.docs, id)
	}
	return nil
}

// compile-time check to ensure InMemoryDocStore implements the DocStore interface
var _ interfaces.DocStore = (*InMemoryDocStore)(nil)
