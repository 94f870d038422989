package crew

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"crewpilot/internal/llm"
	"crewpilot/internal/models"
	"crewpilot/pkg/logger"
)

// ContextProvider 为任务提供检索上下文。
type ContextProvider interface {
	ContextForQuery(ctx context.Context, query string, maxChars int, includeCitations bool) (string, error)
}

// MemoryWriter 在任务完成后写入运行记忆。写入失败只记录日志，
// 不影响运行结果。
type MemoryWriter interface {
	Remember(ctx context.Context, runID string, result models.TaskResult) error
}

// RunnerOptions 控制一次 crew 运行的行为。
type RunnerOptions struct {
	Retry               models.RetryPolicy // 任务模型调用失败时的重试策略
	MaxDelegationRounds int                // hierarchical 模式下 manager 最多的委派轮数
	TaskTimeout         time.Duration      // 单个任务的超时时间，0 表示不限制
	ContextBudget       int                // 检索上下文的最大字符数
}

// Runner 按 crew 定义执行一次完整运行。
type Runner struct {
	spec        *CrewSpec
	agents      map[string]*Agent
	coordinator *Coordinator
	contexts    ContextProvider // 可为 nil
	memory      MemoryWriter    // 可为 nil
	opts        RunnerOptions
	log         *logger.Logger
}

// NewRunner 根据 crew 定义构建一个 Runner，并为每个 agent 绑定 LLM 客户端。
func NewRunner(spec *CrewSpec, client llm.LLM, contexts ContextProvider, memory MemoryWriter, opts RunnerOptions, log *logger.Logger) *Runner {
	agents := make(map[string]*Agent, len(spec.Agents))
	for name, agentSpec := range spec.Agents {
		agents[name] = NewAgent(name, agentSpec, client, log)
	}
	if opts.MaxDelegationRounds <= 0 {
		opts.MaxDelegationRounds = len(spec.TaskOrder)
	}

	return &Runner{
		spec:        spec,
		agents:      agents,
		coordinator: NewCoordinator(spec, client, log),
		contexts:    contexts,
		memory:      memory,
		opts:        opts,
		log:         log,
	}
}

// Run 执行整个 crew 并返回每个任务的结果。任务输出校验失败不会中止
// 运行；只有模型调用在重试耗尽后仍失败时才返回错误。
func (r *Runner) Run(ctx context.Context, runID string, inputs map[string]interface{}) ([]models.TaskResult, error) {
	switch r.spec.Process {
	case ProcessHierarchical:
		return r.runHierarchical(ctx, runID, inputs)
	default:
		return r.runSequential(ctx, runID, inputs)
	}
}

// runSequential 按定义顺序执行任务，前序结果拼接为后序任务的上下文。
func (r *Runner) runSequential(ctx context.Context, runID string, inputs map[string]interface{}) ([]models.TaskResult, error) {
	var results []models.TaskResult

	for _, taskName := range r.spec.TaskOrder {
		result, err := r.executeWithRetry(ctx, runID, taskName, inputs, results)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}

	return results, nil
}

// runHierarchical 由 manager 决定任务顺序，直到所有任务完成或达到
// 最大委派轮数。
func (r *Runner) runHierarchical(ctx context.Context, runID string, inputs map[string]interface{}) ([]models.TaskResult, error) {
	remaining := append([]string(nil), r.spec.TaskOrder...)
	var results []models.TaskResult

	for round := 0; len(remaining) > 0 && round < r.opts.MaxDelegationRounds; round++ {
		taskName := r.coordinator.PickNextTask(ctx, remaining, results)
		if taskName == "" {
			break
		}

		result, err := r.executeWithRetry(ctx, runID, taskName, inputs, results)
		if err != nil {
			return results, err
		}
		results = append(results, result)

		for i, name := range remaining {
			if name == taskName {
				remaining = append(remaining[:i], remaining[i+1:]...)
				break
			}
		}
	}

	if len(remaining) > 0 {
		r.log.WithPayload(map[string]interface{}{
			"remaining": remaining,
		}).Warn("达到最大委派轮数，仍有任务未执行")
	}

	return results, nil
}

// executeWithRetry 执行单个任务，模型调用失败时按退避策略重试。
func (r *Runner) executeWithRetry(ctx context.Context, runID, taskName string, inputs map[string]interface{}, prior []models.TaskResult) (models.TaskResult, error) {
	task := r.spec.Tasks[taskName]
	agent := r.agents[task.Agent]

	ragContext := r.retrieveContext(ctx, taskName, task, inputs)
	priorContext := formatPriorResults(prior)

	delay := parseInitialDelay(r.opts.Retry.InitialDelay)
	attempts := r.opts.Retry.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	var result models.TaskResult
	for attempt := 1; attempt <= attempts; attempt++ {
		taskCtx := ctx
		var cancel context.CancelFunc
		if r.opts.TaskTimeout > 0 {
			taskCtx, cancel = context.WithTimeout(ctx, r.opts.TaskTimeout)
		}
		result = agent.ExecuteTask(taskCtx, taskName, task, inputs, ragContext, priorContext)
		if cancel != nil {
			cancel()
		}
		result.Attempts = attempt

		// 只有模型调用本身失败才重试；空输出或校验失败都以
		// 类型回退结果收尾，不会中止运行。
		if result.TransportError == "" {
			break
		}
		if attempt == attempts {
			return result, fmt.Errorf("任务 %q 在 %d 次尝试后仍失败: %s", taskName, attempt, result.TransportError)
		}

		r.log.WithPayload(map[string]interface{}{
			"task":    taskName,
			"attempt": attempt,
			"error":   result.TransportError,
		}).Warn("任务执行失败，准备重试")

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(delay):
		}
		if r.opts.Retry.BackoffCoeff > 1 {
			delay = time.Duration(float64(delay) * r.opts.Retry.BackoffCoeff)
		}
	}

	if r.memory != nil && agent.Spec.Memory {
		if err := r.memory.Remember(ctx, runID, result); err != nil {
			r.log.WithPayload(map[string]interface{}{
				"task":  taskName,
				"error": err.Error(),
			}).Warn("写入运行记忆失败")
		}
	}

	return result, nil
}

// retrieveContext 为任务取回检索上下文，失败时返回空串。
func (r *Runner) retrieveContext(ctx context.Context, taskName string, task TaskSpec, inputs map[string]interface{}) string {
	if r.contexts == nil {
		return ""
	}

	query := task.Description
	if len(inputs) > 0 {
		if inputJSON, err := json.Marshal(inputs); err == nil {
			query = query + "\n" + string(inputJSON)
		}
	}

	budget := r.opts.ContextBudget
	if budget <= 0 {
		budget = 2000
	}

	ragContext, err := r.contexts.ContextForQuery(ctx, query, budget, true)
	if err != nil {
		r.log.WithPayload(map[string]interface{}{
			"task":  taskName,
			"error": err.Error(),
		}).Warn("检索上下文失败，任务在无上下文的情况下执行")
		return ""
	}
	return ragContext
}

// formatPriorResults 把已完成任务的结构化输出拼接为上下文。
func formatPriorResults(results []models.TaskResult) string {
	if len(results) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, res := range results {
		outputJSON, err := json.MarshalIndent(res.Output, "", "  ")
		if err != nil {
			continue
		}
		fmt.Fprintf(&sb, "%s (by %s):\n%s\n\n", res.TaskName, res.Agent, outputJSON)
	}
	return strings.TrimSpace(sb.String())
}

func parseInitialDelay(raw string) time.Duration {
	if raw == "" {
		return time.Second
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return time.Second
	}
	return d
}
