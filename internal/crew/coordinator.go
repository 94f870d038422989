package crew

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"crewpilot/internal/llm"
	"crewpilot/internal/models"
	"crewpilot/pkg/logger"
)

// Route 是协调器的一次路由决策。
type Route struct {
	Agent string // 选中的 agent
	Task  string // 选中的任务，为空表示交由 manager 直接回答
}

// Coordinator 负责把查询路由到合适的 agent/任务，并在 hierarchical
// 模式下由 manager 决定任务执行顺序。
type Coordinator struct {
	spec   *CrewSpec
	client llm.LLM
	log    *logger.Logger
}

// NewCoordinator 创建一个 Coordinator。
func NewCoordinator(spec *CrewSpec, client llm.LLM, log *logger.Logger) *Coordinator {
	return &Coordinator{spec: spec, client: client, log: log}
}

// RouteQuery 按 crew.yaml 中的关键词规则路由查询。
// 没有规则命中时回落到 manager agent，任务为空。
func (c *Coordinator) RouteQuery(query string) Route {
	queryLower := strings.ToLower(query)

	for _, rule := range c.spec.Routes {
		for _, keyword := range rule.Keywords {
			if strings.Contains(queryLower, strings.ToLower(keyword)) {
				return Route{Agent: rule.Agent, Task: rule.Task}
			}
		}
	}

	return Route{Agent: c.spec.ManagerAgent}
}

// PickNextTask 让 manager 从剩余任务中选出下一个要执行的任务。
// manager 输出无法解析或选择了不存在的任务时，退回到剩余任务中的第一个。
func (c *Coordinator) PickNextTask(ctx context.Context, remaining []string, results []models.TaskResult) string {
	if len(remaining) == 0 {
		return ""
	}
	if len(remaining) == 1 {
		return remaining[0]
	}

	prompt := c.buildDelegationPrompt(remaining, results)
	resp, err := c.client.GenerateContent(ctx, &models.GenerateContentRequest{
		Content:     []models.Content{models.NewTextContent(models.SpeakerUser, prompt)},
		Role:        models.SpeakerUser,
		MaxTokens:   64,
		Temperature: 0,
	})
	if err != nil {
		c.log.WithPayload(map[string]interface{}{"error": err.Error()}).Warn("manager 委派调用失败，按定义顺序执行")
		return remaining[0]
	}

	choice := strings.TrimSpace(strings.Trim(ExtractJSON(resp.JoinText()), `"`))
	var parsed struct {
		Task string `json:"task"`
	}
	if err := json.Unmarshal([]byte(choice), &parsed); err == nil && parsed.Task != "" {
		choice = parsed.Task
	}

	for _, name := range remaining {
		if name == choice {
			return name
		}
	}

	c.log.WithPayload(map[string]interface{}{"choice": choice}).Warn("manager 选择了未知任务，按定义顺序执行")
	return remaining[0]
}

// buildDelegationPrompt 构建 manager 的委派提示词。
func (c *Coordinator) buildDelegationPrompt(remaining []string, results []models.TaskResult) string {
	manager := c.spec.Agents[c.spec.ManagerAgent]

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s.\nGoal: %s\n\n", manager.Role, manager.Goal)
	sb.WriteString("Decide which task should run next.\n\nRemaining tasks:\n")
	for _, name := range remaining {
		task := c.spec.Tasks[name]
		fmt.Fprintf(&sb, "- %s: %s\n", name, task.Description)
	}

	if len(results) > 0 {
		sb.WriteString("\nCompleted tasks:\n")
		for _, res := range results {
			fmt.Fprintf(&sb, "- %s (agent: %s)\n", res.TaskName, res.Agent)
		}
	}

	sb.WriteString("\nReturn a JSON object of the form {\"task\": \"<task name>\"} and nothing else.")
	return sb.String()
}
