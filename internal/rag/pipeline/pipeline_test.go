package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"crewpilot/internal/rag/interfaces"
	"crewpilot/internal/rag/schema"
	"crewpilot/internal/rag/storages/vectorstore"
	"crewpilot/pkg/logger"
)

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

type fakeAnswerer struct {
	prompt string
}

func (f *fakeAnswerer) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return "the answer", nil
}

func testLog() *logger.Logger {
	return logger.New("test", "", "")
}

func regulationChunk(id, text string, embedding []float32) *schema.Document {
	return &schema.Document{
		ID:        id,
		Text:      text,
		Embedding: embedding,
		Metadata: map[string]interface{}{
			schema.MetadataKeyDocumentType: "Regulation",
			schema.MetadataKeyDocumentName: "LBO Baden-Wuerttemberg",
			schema.MetadataKeyPageNumber:   float64(5),
			schema.MetadataKeyDistrictSpecific: map[string]interface{}{
				"mentioned_districts": []interface{}{"Stuttgart-Mitte"},
				"specific_rules": []interface{}{
					map[string]interface{}{"district": "Stuttgart-Mitte", "rule": "max height 22m"},
				},
			},
		},
	}
}

func TestRetrievalPipeline_Run(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	ctx := context.Background()

	err := store.Add(ctx, []*schema.Document{
		regulationChunk("a", "Abstandsflächen nach § 5", []float32{1, 0}),
		regulationChunk("b", "Barrierefreiheit nach § 39", []float32{0, 1}),
	})
	if err != nil {
		t.Fatal(err)
	}

	p := NewRetrievalPipeline(&fakeEmbedder{}, store, testLog())

	results, err := p.Run(ctx, "Abstandsflächen", 1, interfaces.SearchFilters{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(results) != 1 || results[0].Document.ID != "a" {
		t.Errorf("Run() = %+v, want document a", results)
	}
}

func TestRetrievalPipeline_EmbedderFailure(t *testing.T) {
	p := NewRetrievalPipeline(&fakeEmbedder{err: errors.New("model offline")}, vectorstore.NewMemoryStore(), testLog())
	if _, err := p.Run(context.Background(), "query", 3, interfaces.SearchFilters{}); err == nil {
		t.Error("expected error when embedding fails")
	}
}

func TestContextForQuery_WithCitations(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	ctx := context.Background()

	err := store.Add(ctx, []*schema.Document{
		regulationChunk("a", "Gebäude müssen Abstandsflächen einhalten.", []float32{1, 0}),
	})
	if err != nil {
		t.Fatal(err)
	}

	p := NewRetrievalPipeline(&fakeEmbedder{}, store, testLog())

	got, err := p.ContextForQuery(ctx, "Abstandsflächen", 2000, true)
	if err != nil {
		t.Fatalf("ContextForQuery() error = %v", err)
	}

	for _, want := range []string{
		"[Source 1]",
		"Regulation: LBO Baden-Wuerttemberg",
		"Page 5",
		"Content: Gebäude müssen Abstandsflächen einhalten.",
		"District(s): Stuttgart-Mitte",
		"• Stuttgart-Mitte: max height 22m",
		strings.Repeat("=", 50),
	} {
		if !strings.Contains(got, want) {
			t.Errorf("context missing %q:\n%s", want, got)
		}
	}
}

func TestContextForQuery_BudgetStopsAppending(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	ctx := context.Background()

	err := store.Add(ctx, []*schema.Document{
		regulationChunk("a", strings.Repeat("x", 100), []float32{1, 0}),
		regulationChunk("b", strings.Repeat("y", 100), []float32{0.9, 0.1}),
	})
	if err != nil {
		t.Fatal(err)
	}

	p := NewRetrievalPipeline(&fakeEmbedder{}, store, testLog())

	// Budget fits the first block but not the second.
	got, err := p.ContextForQuery(ctx, "query", 150, false)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "xxx") {
		t.Error("first chunk missing from context")
	}
	if strings.Contains(got, "yyy") {
		t.Error("second chunk should have been dropped by the character budget")
	}
}

func TestContextForQuery_NoResults(t *testing.T) {
	p := NewRetrievalPipeline(&fakeEmbedder{}, vectorstore.NewMemoryStore(), testLog())

	got, err := p.ContextForQuery(context.Background(), "anything", 2000, true)
	if err != nil {
		t.Fatal(err)
	}
	if got != "No relevant documents found for this query." {
		t.Errorf("ContextForQuery() = %q", got)
	}
}

func TestQAPipeline_PromptAndAnswer(t *testing.T) {
	llm := &fakeAnswerer{}
	p := NewQAPipeline(llm, testLog())

	results := []*schema.SearchResult{
		{Document: regulationChunk("a", "Abstandsflächen nach § 5", []float32{1, 0})},
	}

	answer, err := p.Run(context.Background(), "Welche Abstandsflächen gelten?", results)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if answer != "the answer" {
		t.Errorf("answer = %q", answer)
	}

	for _, want := range []string{
		"Context 1 (Regulation: LBO Baden-Wuerttemberg",
		"Abstandsflächen nach § 5",
		"Question: Welche Abstandsflächen gelten?",
	} {
		if !strings.Contains(llm.prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, llm.prompt)
		}
	}
}
