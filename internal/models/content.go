package models

import "time"

// SpeakerRole 定义了消息发送者的角色。
type SpeakerRole string

const (
	SpeakerUser      SpeakerRole = "user"      // 用户角色。
	SpeakerAssistant SpeakerRole = "assistant" // 助手角色。
	SpeakerSystem    SpeakerRole = "system"    // 系统角色。
	SpeakerModel     SpeakerRole = "model"     // 模型角色。
)

// Content 包含了构成单个消息的多个部分。
type Content struct {
	// 可选。构成单个消息的部分列表。
	Parts []*Part `json:"parts,omitempty"`
	// 可选。内容的生产者。必须是 'user'、'system' 或 'model'。
	Role SpeakerRole `json:"role,omitempty"`
}

// Part 定义了消息的单个部分。crew 任务只产生文本，
// 因此这里只保留文本载荷。
type Part struct {
	// 可选。文本部分（可以是代码或 JSON）。
	Text string `json:"text,omitempty"`
}

// NewTextContent 以给定角色构造一条纯文本消息。
func NewTextContent(role SpeakerRole, text string) Content {
	return Content{
		Role:  role,
		Parts: []*Part{{Text: text}},
	}
}

// JoinText 将一条消息的全部文本部分拼接为单个字符串。
func (c Content) JoinText() string {
	var out string
	for _, p := range c.Parts {
		if p != nil {
			out += p.Text
		}
	}
	return out
}

// GenerateContentRequest 定义了生成内容的请求结构。
type GenerateContentRequest struct {
	Content     []Content   `json:"content,omitempty"` // 请求的内容列表。
	Role        SpeakerRole // 请求发送者的角色。
	MaxTokens   int         `json:"maxTokens,omitempty"`   // 生成内容的最大 token 数。
	Temperature float32     `json:"temperature,omitempty"` // 采样温度。
}

// GenerateContentResponse 定义了生成内容的响应结构。
type GenerateContentResponse struct {
	Content      []Content `json:"content,omitempty"`      // 响应的内容列表。
	CreateTime   time.Time `json:"createTime,omitempty"`   // 响应创建时间。
	ResponseID   string    `json:"responseId,omitempty"`   // 响应ID。
	ModelVersion string    `json:"modelVersion,omitempty"` // 模型版本。
}

// JoinText 将响应的全部文本内容拼接为单个字符串。
func (r *GenerateContentResponse) JoinText() string {
	var out string
	for _, c := range r.Content {
		out += c.JoinText()
	}
	return out
}
