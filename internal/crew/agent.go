package crew

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"crewpilot/internal/llm"
	"crewpilot/internal/models"
	"crewpilot/pkg/logger"
)

// Agent 把一个角色设定和 LLM 客户端绑定为可执行任务的单元。
type Agent struct {
	Name string
	Spec AgentSpec

	client llm.LLM
	log    *logger.Logger
}

// NewAgent 创建一个 Agent。
func NewAgent(name string, spec AgentSpec, client llm.LLM, log *logger.Logger) *Agent {
	return &Agent{
		Name:   name,
		Spec:   spec,
		client: client,
		log:    log,
	}
}

// maxOutputTokens 限制单次任务输出的长度。
const maxOutputTokens = 512

// ExecuteTask 执行一个任务: 构建提示词、调用模型、提取并校验 JSON 输出。
// schema 校验失败不会让任务失败——结果会携带类型回退对象并记录失败原因。
func (a *Agent) ExecuteTask(ctx context.Context, taskName string, task TaskSpec, inputs map[string]interface{}, ragContext, priorContext string) models.TaskResult {
	start := time.Now()
	result := models.TaskResult{
		TaskName: taskName,
		Agent:    a.Name,
		Attempts: 1,
	}

	prompt := a.BuildTaskPrompt(taskName, task, inputs, ragContext, priorContext)

	resp, err := a.client.GenerateContent(ctx, &models.GenerateContentRequest{
		Content:     []models.Content{models.NewTextContent(models.SpeakerUser, prompt)},
		Role:        models.SpeakerUser,
		MaxTokens:   maxOutputTokens,
		Temperature: 0,
	})
	if err != nil {
		// 模型调用失败与校验失败不同，记录在独立字段上，
		// 由上层的重试策略处理。
		result.TransportError = err.Error()
		result.Fallback = true
		result.Output = task.OutputSchema.Fallback()
		result.Duration = time.Since(start)
		return result
	}

	result.RawOutput = resp.JoinText()

	output, err := task.OutputSchema.ParseAndValidate(result.RawOutput)
	if err != nil {
		a.log.WithPayload(map[string]interface{}{
			"task":  taskName,
			"error": err.Error(),
		}).Warn("任务输出未通过 schema 校验，使用类型回退输出")
		result.ValidationError = err.Error()
		result.Fallback = true
		result.Output = task.OutputSchema.Fallback()
	} else {
		result.Output = output
	}

	result.Duration = time.Since(start)
	return result
}

// BuildTaskPrompt 构建任务提示词: 角色设定 + 任务描述 + 输入数据 +
// schema 说明 + 带类型默认值的示例对象，并可附加检索上下文与前序任务输出。
func (a *Agent) BuildTaskPrompt(taskName string, task TaskSpec, inputs map[string]interface{}, ragContext, priorContext string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are %s.\nGoal: %s\nBackstory: %s\n\n", a.Spec.Role, a.Spec.Goal, a.Spec.Backstory)
	fmt.Fprintf(&sb, "Task: %s\nDescription: %s\n", taskName, task.Description)
	if task.ExpectedOutput != "" {
		fmt.Fprintf(&sb, "Expected output: %s\n", task.ExpectedOutput)
	}

	if len(task.Parameters) > 0 {
		sb.WriteString("\nInput fields:\n")
		for _, k := range sortedKeys(task.Parameters) {
			fmt.Fprintf(&sb, "- %s: %s\n", k, task.Parameters[k])
		}
	}

	if len(inputs) > 0 {
		inputJSON, _ := json.MarshalIndent(inputs, "", "  ")
		fmt.Fprintf(&sb, "\nInput data:\n%s\n", inputJSON)
	}

	if ragContext != "" {
		fmt.Fprintf(&sb, "\nReference context:\n%s\n", ragContext)
	}

	if priorContext != "" {
		fmt.Fprintf(&sb, "\nResults from previous tasks:\n%s\n", priorContext)
	}

	schemaFields := make(map[string]string, len(task.OutputSchema))
	for field, typ := range task.OutputSchema {
		schemaFields[field] = string(typ)
	}
	schemaJSON, _ := json.MarshalIndent(schemaFields, "", "  ")
	exampleJSON, _ := json.MarshalIndent(task.OutputSchema.Example(), "", "  ")

	fmt.Fprintf(&sb, `
Instructions:
1. Return a single valid JSON object matching exactly this schema:
%s
2. Do NOT include any text, explanation, or characters outside the JSON object.
3. Use correct types: booleans for true/false, arrays for lists, numbers for numeric fields.
4. If any data is missing, provide default values:
   - For booleans: false
   - For lists: []
   - For numbers: 0
   - For strings: ""
5. Here is an example template to follow:
%s

Return only the JSON object. Do not truncate or add extra commentary.`, schemaJSON, exampleJSON)

	return strings.TrimSpace(sb.String())
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
