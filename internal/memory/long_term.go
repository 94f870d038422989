package memory

import (
	"context"
	"fmt"
	"time"

	"crewpilot/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const longTermCollection = "long_term_memory"

// longTermEntry 是长期记忆的一条持久化记录。
type longTermEntry struct {
	RunID      string            `bson:"run_id"`
	TaskName   string            `bson:"task_name"`
	Agent      string            `bson:"agent"`
	Result     models.TaskResult `bson:"result"`
	RecordedAt time.Time         `bson:"recorded_at"`
}

// LongTermStore 把任务结果永久保存在 MongoDB 中，
// 供跨运行的经验查询使用。
type LongTermStore struct {
	collection *mongo.Collection
}

// NewLongTermStore 创建一个 LongTermStore。
func NewLongTermStore(client *mongo.Client, database string) *LongTermStore {
	return &LongTermStore{
		collection: client.Database(database).Collection(longTermCollection),
	}
}

// Save 保存一个任务结果。
func (s *LongTermStore) Save(ctx context.Context, runID string, result models.TaskResult) error {
	entry := longTermEntry{
		RunID:      runID,
		TaskName:   result.TaskName,
		Agent:      result.Agent,
		Result:     result,
		RecordedAt: time.Now().UTC(),
	}
	if _, err := s.collection.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("写入长期记忆失败: %w", err)
	}
	return nil
}

// History 返回某个任务最近的历史结果，按时间倒序。
func (s *LongTermStore) History(ctx context.Context, taskName string, limit int64) ([]models.TaskResult, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "recorded_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := s.collection.Find(ctx, bson.M{"task_name": taskName}, opts)
	if err != nil {
		return nil, fmt.Errorf("查询长期记忆失败: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []longTermEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("解码长期记忆失败: %w", err)
	}

	results := make([]models.TaskResult, 0, len(entries))
	for _, entry := range entries {
		results = append(results, entry.Result)
	}
	return results, nil
}
