package models

import (
	"time"
)

// RunStatus 定义了一次 crew 运行的几种可能状态
type RunStatus string

const (
	RunStatusPending RunStatus = "pending"
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

// RunRecord 代表一次持久化的 crew 运行记录
type RunRecord struct {
	ID          string                 `bson:"_id" json:"id"`                    // 运行唯一ID (UUID string)
	CrewName    string                 `bson:"crew_name" json:"crewName"`        // 所执行的 crew 名称
	UserID      string                 `bson:"user_id" json:"userID"`            // 提交运行的用户ID
	Status      RunStatus              `bson:"status" json:"status"`             // 运行当前状态
	Inputs      map[string]interface{} `bson:"inputs" json:"inputs"`             // 运行的输入参数
	Results     []TaskResult           `bson:"results" json:"results"`           // 各任务的执行结果
	ReportPaths []string               `bson:"report_paths" json:"reportPaths"`  // 生成的 markdown 报告路径
	Error       string                 `bson:"error" json:"error,omitempty"`     // 运行失败时的错误信息
	SubmittedAt time.Time              `bson:"submitted_at" json:"submittedAt"`  // 运行提交时间
	CompletedAt time.Time              `bson:"completed_at" json:"completedAt"`  // 运行完成时间
}

// TaskResult 记录单个任务的执行结果。
// 即使模型输出无法通过 schema 校验，任务也不会使整次运行失败，
// 而是记录 ValidationError 并以 Fallback 标记回退输出。
type TaskResult struct {
	TaskName        string                 `bson:"task_name" json:"taskName"`               // 任务名称
	Agent           string                 `bson:"agent" json:"agent"`                      // 执行任务的 agent 名称
	RawOutput       string                 `bson:"raw_output" json:"rawOutput"`             // 模型的原始文本输出
	Output          map[string]interface{} `bson:"output" json:"output"`                    // 通过校验后的结构化输出
	ValidationError string                 `bson:"validation_error,omitempty" json:"validationError,omitempty"` // schema 校验失败的原因
	TransportError  string                 `bson:"transport_error,omitempty" json:"transportError,omitempty"`   // 模型调用本身失败的原因（区别于校验失败，可重试）
	Fallback        bool                   `bson:"fallback" json:"fallback"`                // 是否使用了类型回退输出
	Attempts        int                    `bson:"attempts" json:"attempts"`                // 实际执行次数（含重试）
	Duration        time.Duration          `bson:"duration" json:"duration"`                // 任务执行耗时
}

// RetryPolicy 定义了任务失败后的重试策略。
type RetryPolicy struct {
	MaxRetries   int     `json:"maxRetries" yaml:"maxRetries"`     // 最大重试次数。
	BackoffCoeff float64 `json:"backoffCoeff" yaml:"backoffCoeff"` // 退避系数 (例如: 2.0)。
	InitialDelay string  `json:"initialDelay" yaml:"initialDelay"` // 初始延迟 (例如: "1s")。
}
