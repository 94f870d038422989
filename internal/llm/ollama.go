package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"crewpilot/internal/models"

	olla "github.com/ollama/ollama/api"
)

// Ollama 是一个用于 Ollama API 的 LLM 客户端。
type Ollama struct {
	client *olla.Client // Ollama 客户端实例。
	model  string       // 要使用的模型名称。
}

var _ LLM = (*Ollama)(nil)

// NewOllama 创建一个新的 Ollama 客户端。
// baseURL 为空时默认为 "http://localhost:11434"。
func NewOllama(model, baseURL string) (*Ollama, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	// 创建一个带有超时设置的 HTTP 客户端。
	hc := &http.Client{
		Timeout: 120 * time.Second,
	}

	return &Ollama{client: olla.NewClient(parsedURL, hc), model: model}, nil
}

// GenerateContent 使用 Ollama API 生成内容。
func (o *Ollama) GenerateContent(ctx context.Context, req *models.GenerateContentRequest) (*models.GenerateContentResponse, error) {
	prompt := o.toOllamaPrompt(req)

	var result *olla.GenerateResponse

	err := o.client.Generate(ctx, &olla.GenerateRequest{
		Model:  o.model,
		Prompt: prompt,
		Stream: &[]bool{false}[0], // 设置为非流式传输。
	}, func(resp olla.GenerateResponse) error {
		result = &resp
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to generate content with ollama: %w", err)
	}

	return o.toGenerateContentResponse(result), nil
}

// GenerateContentStream 使用 Ollama API 以流式方式生成内容。
func (o *Ollama) GenerateContentStream(ctx context.Context, req *models.GenerateContentRequest) (<-chan *models.GenerateContentResponse, error) {
	prompt := o.toOllamaPrompt(req)
	respChan := make(chan *models.GenerateContentResponse)

	go func() {
		defer close(respChan)

		_ = o.client.Generate(ctx, &olla.GenerateRequest{
			Model:  o.model,
			Prompt: prompt,
			Stream: &[]bool{true}[0], // 设置为流式传输。
		}, func(resp olla.GenerateResponse) error {
			respChan <- o.toGenerateContentResponse(&resp)
			return nil
		})
	}()

	return respChan, nil
}

// toOllamaPrompt 将内部 GenerateContentRequest 转换为 Ollama 提示字符串。
func (o *Ollama) toOllamaPrompt(req *models.GenerateContentRequest) string {
	var sb strings.Builder
	for _, content := range req.Content {
		for _, part := range content.Parts {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

// toGenerateContentResponse 将 Ollama GenerateResponse 转换为内部 GenerateContentResponse 结构体。
func (o *Ollama) toGenerateContentResponse(resp *olla.GenerateResponse) *models.GenerateContentResponse {
	return &models.GenerateContentResponse{
		Content: []models.Content{
			{
				Parts: []*models.Part{{Text: resp.Response}},
				Role:  models.SpeakerModel,
			},
		},
		ModelVersion: resp.Model,
	}
}
