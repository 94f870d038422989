package llms

import (
	"context"
	"fmt"

	"crewpilot/internal/llm"
	"crewpilot/internal/models"
	"crewpilot/internal/rag/interfaces"
)

// Adapter bridges the chat-oriented LLM client to the pipeline's
// prompt-in, text-out LLM interface.
type Adapter struct {
	client llm.LLM
}

// NewAdapter wraps an LLM client for use in the RAG pipelines.
func NewAdapter(client llm.LLM) *Adapter {
	return &Adapter{client: client}
}

// Generate sends a single-prompt request and returns the joined text of
// the response.
func (a *Adapter) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.GenerateContent(ctx, &models.GenerateContentRequest{
		Content: []models.Content{models.NewTextContent(models.SpeakerUser, prompt)},
		Role:    models.SpeakerUser,
	})
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Content) == 0 {
		return "", fmt.Errorf("empty response from model")
	}
	return resp.JoinText(), nil
}

// compile-time check to ensure Adapter implements the LLM interface
var _ interfaces.LLM = (*Adapter)(nil)
