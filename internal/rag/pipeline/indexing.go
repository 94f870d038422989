package pipeline

import (
	"context"
	"fmt"

	"crewpilot/internal/rag/interfaces"
	"crewpilot/internal/rag/schema"
	"crewpilot/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// Progress reports a step of an indexing run.
type Progress struct {
	Message  string `json:"message"`
	Progress int32  `json:"progress"`
}

// IndexingPipeline orchestrates the process of loading, splitting, embedding, and storing documents.
type IndexingPipeline struct {
	splitter    interfaces.Splitter
	embedder    interfaces.EmbeddingModel
	docStore    interfaces.DocStore
	vectorStore interfaces.VectorStore
	log         *logger.Logger
}

// NewIndexingPipeline creates a new IndexingPipeline.
func NewIndexingPipeline(
	splitter interfaces.Splitter,
	embedder interfaces.EmbeddingModel,
	docStore interfaces.DocStore,
	vectorStore interfaces.VectorStore,
	log *logger.Logger,
) *IndexingPipeline {
	return &IndexingPipeline{
		splitter:    splitter,
		embedder:    embedder,
		docStore:    docStore,
		vectorStore: vectorStore,
		log:         log,
	}
}

// Run executes the entire indexing pipeline for a given data source.
// progressChan is optional; when non-nil it receives step updates and is
// closed before Run returns.
func (p *IndexingPipeline) Run(ctx context.Context, loader interfaces.Loader, path string, progressChan chan<- *Progress) (int, error) {
	if progressChan != nil {
		defer close(progressChan)
	}
	report := func(msg string, pct int32) {
		if progressChan != nil {
			progressChan <- &Progress{Message: msg, Progress: pct}
		}
	}

	p.log.Info(fmt.Sprintf("Starting indexing for path: %s", path))
	report(fmt.Sprintf("Starting indexing for: %s", path), 0)

	// 1. Load the data
	initialDocs, err := loader.Load(ctx, path)
	if err != nil {
		p.log.Error(fmt.Sprintf("Failed to load data: %v", err))
		return 0, err
	}
	report(fmt.Sprintf("Loaded %d initial documents", len(initialDocs)), 10)

	// 2. Split documents into chunks
	chunks, err := p.splitter.Split(ctx, initialDocs)
	if err != nil {
		p.log.Error(fmt.Sprintf("Failed to split documents: %v", err))
		return 0, err
	}
	report(fmt.Sprintf("Split into %d chunks", len(chunks)), 25)

	if len(chunks) == 0 {
		report("Nothing to index", 100)
		return 0, nil
	}

	// 3. Embed the chunks
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	embeddings, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		p.log.Error(fmt.Sprintf("Failed to embed chunks: %v", err))
		return 0, err
	}
	if len(embeddings) != len(chunks) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(embeddings), len(chunks))
	}
	for i, chunk := range chunks {
		chunk.Embedding = embeddings[i]
	}
	report("Successfully embedded all chunks", 60)

	// 4. Store the chunks concurrently
	eg, gCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		chunkMap := make(map[string]*schema.Document, len(chunks))
		for _, chunk := range chunks {
			chunkMap[chunk.ID] = chunk
		}
		p.log.Info("Adding chunks to DocStore...")
		if err := p.docStore.Add(gCtx, chunkMap); err != nil {
			p.log.Error(fmt.Sprintf("Failed to add chunks to DocStore: %v", err))
			return err
		}
		return nil
	})

	eg.Go(func() error {
		p.log.Info("Adding chunks to VectorStore...")
		if err := p.vectorStore.Add(gCtx, chunks); err != nil {
			p.log.Error(fmt.Sprintf("Failed to add chunks to VectorStore: %v", err))
			return err
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		return 0, err
	}

	p.log.Info(fmt.Sprintf("Successfully finished indexing for: %s", path))
	report(fmt.Sprintf("Successfully finished indexing for: %s", path), 100)
	return len(chunks), nil
}

// Warm loads an already-embedded corpus from the doc store into the
// vector store. It is called once at startup so precomputed embeddings
// are searchable without re-ingesting anything.
func (p *IndexingPipeline) Warm(ctx context.Context) (int, error) {
	docs, err := p.docStore.All(ctx)
	if err != nil {
		return 0, err
	}

	var embedded []*schema.Document
	for _, doc := range docs {
		if len(doc.Embedding) > 0 {
			embedded = append(embedded, doc)
		}
	}
	if len(embedded) == 0 {
		return 0, nil
	}

	if err := p.vectorStore.Add(ctx, embedded); err != nil {
		return 0, err
	}
	p.log.Info(fmt.Sprintf("Warmed vector store with %d cached chunks", len(embedded)))
	return len(embedded), nil
}
