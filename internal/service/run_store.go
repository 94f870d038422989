package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"crewpilot/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrRunNotFound 表示查询的运行记录不存在。
var ErrRunNotFound = fmt.Errorf("run not found")

const runCollection = "crew_runs"

// RunStore 抽象运行记录的持久化。MongoDB 可用时使用 MongoRunStore，
// 否则降级为进程内的 MemoryRunStore。
type RunStore interface {
	Save(ctx context.Context, record *models.RunRecord) error
	Update(ctx context.Context, record *models.RunRecord) error
	Get(ctx context.Context, id string) (*models.RunRecord, error)
	List(ctx context.Context, crewName string, limit int64) ([]*models.RunRecord, error)
}

// MongoRunStore 把运行记录保存在 MongoDB 的 crew_runs 集合中。
type MongoRunStore struct {
	collection *mongo.Collection
}

// NewMongoRunStore 创建一个 MongoRunStore。
func NewMongoRunStore(client *mongo.Client, database string) *MongoRunStore {
	return &MongoRunStore{
		collection: client.Database(database).Collection(runCollection),
	}
}

func (s *MongoRunStore) Save(ctx context.Context, record *models.RunRecord) error {
	if _, err := s.collection.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("写入运行记录失败: %w", err)
	}
	return nil
}

func (s *MongoRunStore) Update(ctx context.Context, record *models.RunRecord) error {
	result, err := s.collection.ReplaceOne(ctx, bson.M{"_id": record.ID}, record)
	if err != nil {
		return fmt.Errorf("更新运行记录失败: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrRunNotFound
	}
	return nil
}

func (s *MongoRunStore) Get(ctx context.Context, id string) (*models.RunRecord, error) {
	var record models.RunRecord
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&record)
	if err == mongo.ErrNoDocuments {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询运行记录失败: %w", err)
	}
	return &record, nil
}

func (s *MongoRunStore) List(ctx context.Context, crewName string, limit int64) ([]*models.RunRecord, error) {
	filter := bson.M{}
	if crewName != "" {
		filter["crew_name"] = crewName
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "submitted_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("查询运行记录失败: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*models.RunRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("解码运行记录失败: %w", err)
	}
	return records, nil
}

// MemoryRunStore 是进程内的运行记录存储，用于未配置 MongoDB 的部署。
// 服务重启后记录丢失。
type MemoryRunStore struct {
	mutex   sync.RWMutex
	records map[string]*models.RunRecord
}

// NewMemoryRunStore 创建一个 MemoryRunStore。
func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{records: make(map[string]*models.RunRecord)}
}

func (s *MemoryRunStore) Save(ctx context.Context, record *models.RunRecord) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	clone := *record
	s.records[record.ID] = &clone
	return nil
}

func (s *MemoryRunStore) Update(ctx context.Context, record *models.RunRecord) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.records[record.ID]; !ok {
		return ErrRunNotFound
	}
	clone := *record
	s.records[record.ID] = &clone
	return nil
}

func (s *MemoryRunStore) Get(ctx context.Context, id string) (*models.RunRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	clone := *record
	return &clone, nil
}

func (s *MemoryRunStore) List(ctx context.Context, crewName string, limit int64) ([]*models.RunRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	records := make([]*models.RunRecord, 0, len(s.records))
	for _, record := range s.records {
		if crewName != "" && record.CrewName != crewName {
			continue
		}
		clone := *record
		records = append(records, &clone)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].SubmittedAt.After(records[j].SubmittedAt)
	})
	if limit > 0 && int64(len(records)) > limit {
		records = records[:limit]
	}
	return records, nil
}

var (
	_ RunStore = (*MongoRunStore)(nil)
	_ RunStore = (*MemoryRunStore)(nil)
)
