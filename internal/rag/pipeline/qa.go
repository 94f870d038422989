package pipeline

import (
	"context"
	"fmt"
	"strings"

	"crewpilot/internal/rag/interfaces"
	"crewpilot/internal/rag/schema"
	"crewpilot/pkg/logger"
)

// QAPipeline is responsible for generating an answer based on a query and retrieved documents.
type QAPipeline struct {
	llm interfaces.LLM
	log *logger.Logger
}

// NewQAPipeline creates a new QAPipeline.
func NewQAPipeline(llm interfaces.LLM, log *logger.Logger) *QAPipeline {
	return &QAPipeline{
		llm: llm,
		log: log,
	}
}

// Run takes a query and a list of retrieved results, builds a prompt, and calls the LLM to generate an answer.
func (p *QAPipeline) Run(ctx context.Context, query string, results []*schema.SearchResult) (string, error) {
	p.log.Info(fmt.Sprintf("Building prompt for query: '%s' with %d documents", query, len(results)))

	prompt := p.buildPrompt(query, results)

	p.log.Info("Sending prompt to LLM to generate answer...")
	answer, err := p.llm.Generate(ctx, prompt)
	if err != nil {
		p.log.Error(fmt.Sprintf("LLM failed to generate answer: %v", err))
		return "", err
	}

	p.log.Info("Successfully generated answer from LLM.")
	return answer, nil
}

// buildPrompt constructs a prompt string from a query and a list of context documents.
// Each context block carries its citation so the model can reference sources.
func (p *QAPipeline) buildPrompt(query string, results []*schema.SearchResult) string {
	var sb strings.Builder

	sb.WriteString("Based on the following context, please answer the question. Cite the sources you use.\n\nContext:\n")

	for i, res := range results {
		sb.WriteString("---\n")
		fmt.Fprintf(&sb, "Context %d (%s):\n%s\n", i+1, res.DetailedCitation(), res.Document.Text)
	}

	sb.WriteString("---\n\n")
	fmt.Fprintf(&sb, "Question: %s", query)

	return sb.String()
}
