package interfaces

import (
	"context"

	"crewpilot/internal/rag/schema"
)

// Loader is the interface for loading data from a source (e.g., file, URL)
// and converting it into a list of Document objects.
type Loader interface {
	Load(ctx context.Context, path string) ([]*schema.Document, error)
}

// Splitter is the interface for splitting a list of Documents into smaller chunks.
type Splitter interface {
	Split(ctx context.Context, docs []*schema.Document) ([]*schema.Document, error)
}

// DocStore is the interface for storing and retrieving document chunks by their ID.
type DocStore interface {
	Add(ctx context.Context, docs map[string]*schema.Document) error
	Get(ctx context.Context, ids []string) (map[string]*schema.Document, error)
	All(ctx context.Context) ([]*schema.Document, error)
	Delete(ctx context.Context, ids []string) error
}

// SearchFilters narrows a vector query by chunk metadata.
// Zero values mean no filtering on that dimension.
type SearchFilters struct {
	// District keeps only chunks whose metadata mentions the district.
	District string
	// DocumentType keeps only chunks whose document_type contains the
	// value (case-insensitive substring match).
	DocumentType string
}

// VectorStore is the interface for storing and querying document vectors.
type VectorStore interface {
	Add(ctx context.Context, docs []*schema.Document) error
	Query(ctx context.Context, embedding []float32, topK int, filters SearchFilters) ([]*schema.SearchResult, error)
}

// EmbeddingModel is the interface for a text embedding model.
type EmbeddingModel interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// LLM is the interface for a large language model that can generate text.
type LLM interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
