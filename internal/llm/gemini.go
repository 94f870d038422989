package llm

import (
	"context"
	"errors"

	"crewpilot/internal/models"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Gemini 是一个实现了 LLM 接口的结构体，用于与 Gemini API 交互。
type Gemini struct {
	model *genai.GenerativeModel // Gemini 生成模型实例。
}

var _ LLM = (*Gemini)(nil)

// NewGemini 创建一个新的 Gemini 客户端。
func NewGemini(ctx context.Context, model, apiKey string) (*Gemini, error) {
	// 使用 API 密钥创建 GenAI 客户端。
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	return &Gemini{model: client.GenerativeModel(model)}, nil
}

// GenerateContent 向 Gemini API 发送请求并返回响应。
// 每次调用都是无状态的，历史消息由调用方放进请求内容里。
func (g *Gemini) GenerateContent(ctx context.Context, req *models.GenerateContentRequest) (*models.GenerateContentResponse, error) {
	resp, err := g.model.GenerateContent(ctx, toGenaiParts(req.Content)...)
	if err != nil {
		return nil, err
	}

	return fromGenaiResponse(resp), nil
}

// GenerateContentStream 向 Gemini API 发送请求并返回响应通道。
func (g *Gemini) GenerateContentStream(ctx context.Context, req *models.GenerateContentRequest) (<-chan *models.GenerateContentResponse, error) {
	ch := make(chan *models.GenerateContentResponse)
	iter := g.model.GenerateContentStream(ctx, toGenaiParts(req.Content)...)

	go func() {
		defer close(ch)
		for {
			resp, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				return
			}
			if err != nil {
				return
			}
			ch <- fromGenaiResponse(resp)
		}
	}()

	return ch, nil
}

// toGenaiParts 将内部 Content 结构体转换为 GenAI Part 切片。
func toGenaiParts(content []models.Content) []genai.Part {
	var parts []genai.Part
	for _, c := range content {
		for _, p := range c.Parts {
			if p.Text != "" {
				parts = append(parts, genai.Text(p.Text))
			}
		}
	}
	return parts
}

// fromGenaiResponse 将 GenAI GenerateContentResponse 转换为内部 GenerateContentResponse 结构体。
func fromGenaiResponse(resp *genai.GenerateContentResponse) *models.GenerateContentResponse {
	if resp == nil {
		return nil
	}
	var content []models.Content
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			content = append(content, fromGenaiContent(cand.Content))
		}
	}
	return &models.GenerateContentResponse{
		Content: content,
	}
}

// fromGenaiContent 将 GenAI Content 结构体转换为内部 Content 结构体。
func fromGenaiContent(content *genai.Content) models.Content {
	var parts []*models.Part
	for _, p := range content.Parts {
		if text, ok := p.(genai.Text); ok {
			parts = append(parts, &models.Part{Text: string(text)})
		}
	}
	return models.Content{
		Parts: parts,
		Role:  models.SpeakerRole(content.Role),
	}
}
