package memory

import (
	"context"
	"fmt"

	"crewpilot/internal/database/neo4j"
	"crewpilot/internal/models"
)

// Relation 是实体记忆中的一条有向关系。
type Relation struct {
	Source string // 源实体名称
	Target string // 目标实体名称
	Type   string // 关系类型 (Cypher 关系名)
	RunID  string // 产生该关系的运行ID
}

// EntityStore 把运行过程中的实体关系写入 Neo4j:
// 运行、任务与 agent 构成一张可回溯的执行图。
type EntityStore struct {
	client *neo4j.Neo4jClient
}

// NewEntityStore 创建一个 EntityStore。
func NewEntityStore(client *neo4j.Neo4jClient) *EntityStore {
	return &EntityStore{client: client}
}

// AddRelations 把一组关系写入图中。节点按名称与运行ID去重。
func (s *EntityStore) AddRelations(ctx context.Context, relations []*Relation) error {
	for _, rel := range relations {
		query := `
		MERGE (source {name: $source_name, run_id: $run_id})
		MERGE (target {name: $target_name, run_id: $run_id})
		MERGE (source)-[:` + rel.Type + `]->(target)
		`
		params := map[string]interface{}{
			"source_name": rel.Source,
			"target_name": rel.Target,
			"run_id":      rel.RunID,
		}
		if _, err := s.client.RunCypherQuery(ctx, query, params); err != nil {
			return fmt.Errorf("写入实体关系失败: %w", err)
		}
	}
	return nil
}

// RecordTask 把一个任务结果转换为执行图中的关系。
func (s *EntityStore) RecordTask(ctx context.Context, runID string, result models.TaskResult) error {
	relations := []*Relation{
		{Source: result.Agent, Target: result.TaskName, Type: "EXECUTED", RunID: runID},
		{Source: runID, Target: result.TaskName, Type: "INCLUDES", RunID: runID},
	}
	return s.AddRelations(ctx, relations)
}

// GetRelations 返回一次运行的全部实体关系。
func (s *EntityStore) GetRelations(ctx context.Context, runID string) ([]*Relation, error) {
	query := `
	MATCH (source {run_id: $run_id})-[r]->(target {run_id: $run_id})
	RETURN source.name AS source, type(r) AS type, target.name AS target
	`
	params := map[string]interface{}{
		"run_id": runID,
	}
	result, err := s.client.ReadCypherQuery(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("读取实体关系失败: %w", err)
	}

	var relations []*Relation
	for result.Next(ctx) {
		record := result.Record()
		source, _ := record.Get("source")
		target, _ := record.Get("target")
		relType, _ := record.Get("type")

		rel, ok := relationFromValues(source, relType, target, runID)
		if !ok {
			continue
		}
		relations = append(relations, rel)
	}

	return relations, nil
}

// relationFromValues 把一条查询结果转换为 Relation。
// 任一字段缺失或不是字符串（例如名称为 null 的节点）时跳过该记录。
func relationFromValues(source, relType, target interface{}, runID string) (*Relation, bool) {
	sourceName, ok := source.(string)
	if !ok {
		return nil, false
	}
	targetName, ok := target.(string)
	if !ok {
		return nil, false
	}
	typeName, ok := relType.(string)
	if !ok {
		return nil, false
	}
	return &Relation{
		Source: sourceName,
		Target: targetName,
		Type:   typeName,
		RunID:  runID,
	}, true
}
