package memory

import (
	"context"

	"crewpilot/internal/crew"
	"crewpilot/internal/models"
	"crewpilot/pkg/logger"
)

// Memory 组合短期、长期与实体三层记忆。任何一层都可以为 nil，
// 表示对应的后端未启用。写入是尽力而为的: 单层失败只记录日志。
type Memory struct {
	shortTerm *ShortTermStore
	longTerm  *LongTermStore
	entities  *EntityStore
	log       *logger.Logger
}

// New 创建一个 Memory。
func New(shortTerm *ShortTermStore, longTerm *LongTermStore, entities *EntityStore, log *logger.Logger) *Memory {
	return &Memory{
		shortTerm: shortTerm,
		longTerm:  longTerm,
		entities:  entities,
		log:       log,
	}
}

// Enabled 报告是否至少有一层记忆后端可用。
func (m *Memory) Enabled() bool {
	return m.shortTerm != nil || m.longTerm != nil || m.entities != nil
}

// Remember 把任务结果写入所有可用的记忆层。
// 写入失败不会向上传播——记忆是运行的副产品，不能让它阻塞运行。
func (m *Memory) Remember(ctx context.Context, runID string, result models.TaskResult) error {
	if m.shortTerm != nil {
		if err := m.shortTerm.Append(ctx, runID, result); err != nil {
			m.log.WithError(models.ErrorInfo{Message: err.Error()}).Warn("短期记忆写入失败")
		}
	}
	if m.longTerm != nil {
		if err := m.longTerm.Save(ctx, runID, result); err != nil {
			m.log.WithError(models.ErrorInfo{Message: err.Error()}).Warn("长期记忆写入失败")
		}
	}
	if m.entities != nil {
		if err := m.entities.RecordTask(ctx, runID, result); err != nil {
			m.log.WithError(models.ErrorInfo{Message: err.Error()}).Warn("实体记忆写入失败")
		}
	}
	return nil
}

// 编译期检查: Memory 实现了 crew.MemoryWriter。
var _ crew.MemoryWriter = (*Memory)(nil)
