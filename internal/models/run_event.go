package models

import "time"

// RunEventType 定义了运行事件的类型。
type RunEventType string

const (
	RunEventSubmitted RunEventType = "submitted" // 运行已提交
	RunEventStarted   RunEventType = "started"   // 运行开始执行
	RunEventFinished  RunEventType = "finished"  // 运行结束（成功或失败）
)

// RunEvent 是发布到 Kafka 的 crew 运行事件。
// 下游消费者（例如通知服务或审计服务）依赖该结构的 JSON 编码。
type RunEvent struct {
	Type      RunEventType `json:"type"`
	RunID     string       `json:"runID"`
	CrewName  string       `json:"crewName"`
	UserID    string       `json:"userID,omitempty"`
	Status    RunStatus    `json:"status"`
	Error     string       `json:"error,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}
