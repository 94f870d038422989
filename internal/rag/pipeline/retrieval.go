package pipeline

import (
	"context"
	"fmt"
	"strings"

	"crewpilot/internal/rag/interfaces"
	"crewpilot/internal/rag/schema"
	"crewpilot/pkg/logger"
)

// RetrievalPipeline orchestrates the process of retrieving relevant documents for a given query.
type RetrievalPipeline struct {
	embedder    interfaces.EmbeddingModel
	vectorStore interfaces.VectorStore
	log         *logger.Logger
}

// NewRetrievalPipeline creates a new RetrievalPipeline.
func NewRetrievalPipeline(
	embedder interfaces.EmbeddingModel,
	vectorStore interfaces.VectorStore,
	log *logger.Logger,
) *RetrievalPipeline {
	return &RetrievalPipeline{
		embedder:    embedder,
		vectorStore: vectorStore,
		log:         log,
	}
}

// Run executes the retrieval pipeline with optional metadata filters.
func (p *RetrievalPipeline) Run(ctx context.Context, query string, topK int, filters interfaces.SearchFilters) ([]*schema.SearchResult, error) {
	p.log.Info(fmt.Sprintf("Starting retrieval for query: '%s'", query))

	// 1. Embed the query
	queryEmbeddings, err := p.embedder.Embed(ctx, []string{query})
	if err != nil || len(queryEmbeddings) == 0 {
		p.log.Error(fmt.Sprintf("Failed to embed query: %v", err))
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	// 2. Query the VectorStore
	results, err := p.vectorStore.Query(ctx, queryEmbeddings[0], topK, filters)
	if err != nil {
		p.log.Error(fmt.Sprintf("Failed to query vector store: %v", err))
		return nil, err
	}
	if len(results) == 0 {
		p.log.Info("No documents found in vector store for the given query.")
		return []*schema.SearchResult{}, nil
	}

	p.log.Info(fmt.Sprintf("Retrieved %d documents from vector store", len(results)))
	return results, nil
}

// contextTopK is the candidate count used when assembling LLM context.
const contextTopK = 4

// ContextForQuery retrieves the best-matching chunks and assembles them
// into a prompt context block. Each chunk is prefixed with a numbered
// detailed citation and any district-specific information it carries.
// Chunks are appended until maxChars is reached.
func (p *RetrievalPipeline) ContextForQuery(ctx context.Context, query string, maxChars int, includeCitations bool) (string, error) {
	results, err := p.Run(ctx, query, contextTopK, interfaces.SearchFilters{})
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "No relevant documents found for this query.", nil
	}

	var contextParts []string
	totalLength := 0

	for i, result := range results {
		var block string
		if includeCitations {
			var sb strings.Builder
			fmt.Fprintf(&sb, "[Source %d] %s\n\nContent: %s", i+1, result.DetailedCitation(), result.Document.Text)

			if districts := result.MentionedDistricts(); len(districts) > 0 {
				fmt.Fprintf(&sb, "\n\nDistrict(s): %s", strings.Join(districts, ", "))
			}
			rules := result.DistrictRules()
			if len(rules) > 2 {
				rules = rules[:2]
			}
			for _, rule := range rules {
				fmt.Fprintf(&sb, "\n• %s: %s", rule.District, rule.Rule)
			}
			block = sb.String()
		} else {
			block = result.Document.Text
		}

		if totalLength+len(block) > maxChars {
			break
		}
		contextParts = append(contextParts, block)
		totalLength += len(block)
	}

	separator := "\n\n" + strings.Repeat("=", 50) + "\n\n"
	return separator + strings.Join(contextParts, separator), nil
}
