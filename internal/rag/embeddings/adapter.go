package embeddings

import (
	"context"

	"crewpilot/internal/embedding"
	"crewpilot/internal/rag/interfaces"
)

// Adapter bridges the provider-level embedding client to the pipeline's
// EmbeddingModel interface.
type Adapter struct {
	model embedding.Embedding
}

// NewAdapter wraps an embedding client for use in the RAG pipelines.
func NewAdapter(model embedding.Embedding) *Adapter {
	return &Adapter{model: model}
}

// Embed generates embeddings for a batch of texts.
func (a *Adapter) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return a.model.EmbedBatch(ctx, texts)
}

// compile-time check to ensure Adapter implements the EmbeddingModel interface
var _ interfaces.EmbeddingModel = (*Adapter)(nil)
