package service

import (
	"context"
	"fmt"
	"time"

	"crewpilot/internal/crew"
	"crewpilot/internal/database/kafka"
	"crewpilot/internal/llm"
	"crewpilot/internal/models"
	"crewpilot/internal/report"
	"crewpilot/pkg/logger"

	"github.com/google/uuid"
)

// RunEventsTopic 是运行事件发布到的 Kafka 主题。
const RunEventsTopic = "crew_runs"

// RunService 管理 crew 运行的完整生命周期: 提交、异步执行、
// 状态持久化、报告生成与事件发布。
type RunService struct {
	registry *crew.Registry
	client   llm.LLM
	contexts crew.ContextProvider // 可为 nil
	memory   crew.MemoryWriter    // 可为 nil
	store    RunStore
	reports  *report.Writer
	archiver *report.Archiver   // 可为 nil
	events   *kafka.KafkaClient // 可为 nil
	opts     crew.RunnerOptions
	log      *logger.Logger
}

// NewRunService 创建一个 RunService。
func NewRunService(
	registry *crew.Registry,
	client llm.LLM,
	contexts crew.ContextProvider,
	memory crew.MemoryWriter,
	store RunStore,
	reports *report.Writer,
	archiver *report.Archiver,
	events *kafka.KafkaClient,
	opts crew.RunnerOptions,
	log *logger.Logger,
) *RunService {
	return &RunService{
		registry: registry,
		client:   client,
		contexts: contexts,
		memory:   memory,
		store:    store,
		reports:  reports,
		archiver: archiver,
		events:   events,
		opts:     opts,
		log:      log,
	}
}

// Crews 返回所有已注册的 crew 名称。
func (s *RunService) Crews() []string {
	return s.registry.Names()
}

// Submit 提交一次 crew 运行。记录先以 pending 状态持久化，
// 随后在后台 goroutine 中执行，调用方立即拿到运行ID。
func (s *RunService) Submit(ctx context.Context, crewName, userID string, inputs map[string]interface{}) (*models.RunRecord, error) {
	spec, ok := s.registry.Get(crewName)
	if !ok {
		return nil, fmt.Errorf("crew %q 未注册", crewName)
	}

	record := &models.RunRecord{
		ID:          uuid.NewString(),
		CrewName:    crewName,
		UserID:      userID,
		Status:      models.RunStatusPending,
		Inputs:      inputs,
		SubmittedAt: time.Now().UTC(),
	}
	if err := s.store.Save(ctx, record); err != nil {
		return nil, err
	}

	s.publishEvent(record, models.RunEventSubmitted)

	// 后台 goroutine 会持续修改 record，调用方拿到的必须是
	// 启动执行前的快照，避免与序列化等读取产生竞争。
	snapshot := *record
	go s.execute(spec, record)

	return &snapshot, nil
}

// GetRun 返回一条运行记录。
func (s *RunService) GetRun(ctx context.Context, id string) (*models.RunRecord, error) {
	return s.store.Get(ctx, id)
}

// ListRuns 返回最近的运行记录，crewName 为空时返回全部 crew 的记录。
func (s *RunService) ListRuns(ctx context.Context, crewName string, limit int64) ([]*models.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.store.List(ctx, crewName, limit)
}

// execute 在后台执行一次运行并持久化结果。
func (s *RunService) execute(spec *crew.CrewSpec, record *models.RunRecord) {
	ctx, cancel := context.WithCancel(context.Background())
	if timeout := s.runTimeout(spec); timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), timeout)
	}
	defer cancel()

	log := logger.New("crewpilot", record.ID, "")
	log.WithPayload(map[string]interface{}{"crew": spec.Name}).Info("运行开始执行")

	record.Status = models.RunStatusRunning
	s.updateRecord(ctx, record)
	s.publishEvent(record, models.RunEventStarted)

	runner := crew.NewRunner(spec, s.client, s.contexts, s.memory, s.opts, log)
	results, err := runner.Run(ctx, record.ID, record.Inputs)

	record.Results = results
	record.CompletedAt = time.Now().UTC()
	if err != nil {
		record.Status = models.RunStatusFailed
		record.Error = err.Error()
		log.WithError(models.ErrorInfo{Message: err.Error()}).Error("运行执行失败")
	} else {
		record.Status = models.RunStatusSuccess
		log.WithPayload(map[string]interface{}{"tasks": len(results)}).Info("运行执行成功")
	}

	// 即使运行失败，也为已完成的任务生成报告。
	if len(record.Results) > 0 {
		paths, reportErr := s.reports.WriteRun(spec, record)
		record.ReportPaths = paths
		if reportErr != nil {
			log.WithError(models.ErrorInfo{Message: reportErr.Error()}).Error("生成运行报告失败")
		} else if s.archiver != nil {
			if archiveErr := s.archiver.Archive(ctx, record.ID, paths); archiveErr != nil {
				log.WithError(models.ErrorInfo{Message: archiveErr.Error()}).Warn("归档运行报告失败")
			}
		}
	}

	s.updateRecord(ctx, record)
	s.publishEvent(record, models.RunEventFinished)
}

// runTimeout 给整次运行一个上限，覆盖所有任务与重试。
func (s *RunService) runTimeout(spec *crew.CrewSpec) time.Duration {
	if s.opts.TaskTimeout <= 0 {
		return 0
	}
	attempts := s.opts.Retry.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	return s.opts.TaskTimeout*time.Duration(len(spec.TaskOrder)*attempts) + time.Minute
}

// updateRecord 持久化运行记录，失败只记录日志。
func (s *RunService) updateRecord(ctx context.Context, record *models.RunRecord) {
	if err := s.store.Update(ctx, record); err != nil {
		s.log.WithError(models.ErrorInfo{Message: err.Error()}).Error("更新运行记录失败")
	}
}

// publishEvent 把运行事件发布到 Kafka。事件是尽力而为的:
// Kafka 未启用或发布失败都不影响运行本身。
func (s *RunService) publishEvent(record *models.RunRecord, eventType models.RunEventType) {
	if s.events == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	event := &models.RunEvent{
		Type:      eventType,
		RunID:     record.ID,
		CrewName:  record.CrewName,
		UserID:    record.UserID,
		Status:    record.Status,
		Error:     record.Error,
		Timestamp: time.Now().UTC(),
	}
	if err := s.events.PublishRunEvent(ctx, RunEventsTopic, event); err != nil {
		s.log.WithError(models.ErrorInfo{Message: err.Error()}).Warn("发布运行事件失败")
	}
}
