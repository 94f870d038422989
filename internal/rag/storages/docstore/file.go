package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"crewpilot/internal/rag/interfaces"
	"crewpilot/internal/rag/schema"
)

// cacheFileName is the on-disk cache of ingested chunks with their
// precomputed embeddings.
const cacheFileName = "documents_cache.json"

// FileDocStore persists document chunks, embeddings included, as a JSON
// file under a cache directory. It keeps the corpus available across
// restarts without re-ingesting or re-embedding anything.
type FileDocStore struct {
	mu   sync.RWMutex
	path string
	docs map[string]*schema.Document
}

// NewFileDocStore creates a FileDocStore rooted at cacheDir and loads
// any previously cached corpus.
func NewFileDocStore(cacheDir string) (*FileDocStore, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir %s: %w", cacheDir, err)
	}

	s := &FileDocStore{
		path: filepath.Join(cacheDir, cacheFileName),
		docs: make(map[string]*schema.Document),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileDocStore) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read document cache %s: %w", s.path, err)
	}

	var docs []*schema.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return fmt.Errorf("failed to decode document cache %s: %w", s.path, err)
	}
	for _, doc := range docs {
		s.docs[doc.ID] = doc
	}
	return nil
}

// flush writes the whole corpus back to disk. Callers must hold the lock.
func (s *FileDocStore) flush() error {
	docs := make([]*schema.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		docs = append(docs, doc)
	}

	data, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("failed to encode document cache: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write document cache: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Add adds a map of documents to the store and persists the corpus.
func (s *FileDocStore) Add(ctx context.Context, docs map[string]*schema.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, doc := range docs {
		s.docs[id] = doc
	}
	return s.flush()
}

// Get retrieves a map of documents from the store by their IDs.
func (s *FileDocStore) Get(ctx context.Context, ids []string) (map[string]*schema.Document, error) {
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
func (s *FileDocStore) All(ctx context.Context) ([]*schema.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]*schema.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		docs = append(docs, doc)
	}
	return docs, nil
}

// Delete removes documents from the store by their IDs and persists the
// remaining corpus.
func (s *FileDocStore) Delete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		delete(s.docs, id)
	}
	return s.flush()
}

// compile-time check to ensure FileDocStore implements the DocStore interface
var _ interfaces.DocStore = (*FileDocStore)(nil)
