package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"crewpilot/internal/models"

	"github.com/go-redis/redis/v8"
)

// shortTermTTL 是短期记忆的保留时长。
const shortTermTTL = 24 * time.Hour

// ShortTermStore 把一次运行中各任务的结果暂存在 Redis 中，
// 供同一次运行以及近期的对话查询使用。
type ShortTermStore struct {
	client *redis.Client
}

// NewShortTermStore 创建一个 ShortTermStore。
func NewShortTermStore(client *redis.Client) *ShortTermStore {
	return &ShortTermStore{client: client}
}

func runKey(runID string) string {
	return fmt.Sprintf("crew:run:%s:results", runID)
}

// Append 把一个任务结果追加到运行的结果列表，并刷新过期时间。
func (s *ShortTermStore) Append(ctx context.Context, runID string, result models.TaskResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("序列化任务结果失败: %w", err)
	}

	key := runKey(runID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, payload)
	pipe.Expire(ctx, key, shortTermTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("写入短期记忆失败: %w", err)
	}
	return nil
}

// Recent 返回一次运行已记录的全部任务结果。
func (s *ShortTermStore) Recent(ctx context.Context, runID string) ([]models.TaskResult, error) {
	raw, err := s.client.LRange(ctx, runKey(runID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("读取短期记忆失败: %w", err)
	}

	results := make([]models.TaskResult, 0, len(raw))
	for _, item := range raw {
		var result models.TaskResult
		if err := json.Unmarshal([]byte(item), &result); err != nil {
			continue
		}
		results = append(results, result)
	}
	return results, nil
}
