package llm

import (
	"testing"

	"crewpilot/internal/models"
)

func TestToOpenAIRequest(t *testing.T) {
	client := &OpenAI{model: "llama-3.3-70b-versatile"}

	req := client.toOpenAIRequest(&models.GenerateContentRequest{
		Content: []models.Content{
			models.NewTextContent(models.SpeakerUser, "question"),
			models.NewTextContent(models.SpeakerModel, "answer"),
		},
		MaxTokens:   256,
		Temperature: 0.7,
	})

	if req.Model != "llama-3.3-70b-versatile" {
		t.Errorf("Model = %q", req.Model)
	}
	if req.MaxTokens != 256 {
		t.Errorf("MaxTokens = %d, want 256", req.MaxTokens)
	}
	if req.Temperature == nil || *req.Temperature != 0.7 {
		t.Errorf("Temperature = %v, want pointer to 0.7", req.Temperature)
	}

	if len(req.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(req.Messages))
	}
	if req.Messages[0].Role != "user" || req.Messages[0].Content != "question" {
		t.Errorf("message[0] = %+v", req.Messages[0])
	}
	// "model" 角色映射为 OpenAI 的 "assistant"。
	if req.Messages[1].Role != "assistant" || req.Messages[1].Content != "answer" {
		t.Errorf("message[1] = %+v", req.Messages[1])
	}
}

func TestToOpenAIRequest_DefaultTemperature(t *testing.T) {
	client := &OpenAI{model: "m"}

	req := client.toOpenAIRequest(&models.GenerateContentRequest{
		Content: []models.Content{models.NewTextContent(models.SpeakerUser, "q")},
	})
	if req.Temperature != nil {
		t.Errorf("Temperature = %v, want nil for server default", req.Temperature)
	}
}
