package milvus

import (
	"context"
	"fmt"
	"log"
	"sync"

	"crewpilot/internal/config"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

var (
	instance *MilvusClient
	once     sync.Once
	initErr  error
)

// MilvusClient 包含了 Milvus 客户端实例和相关配置。
type MilvusClient struct {
	Client client.Client        // Milvus 客户端实例。
	Config *config.MilvusConfig // Milvus 配置。
}

// GetClient 使用单例模式创建并返回一个 Milvus 客户端实例。
func GetClient(ctx context.Context, cfg *config.MilvusConfig) (*MilvusClient, error) {
	once.Do(func() {
		// 使用配置中的地址创建 Milvus 客户端。
		c, err := client.NewClient(ctx, client.Config{Address: cfg.Address})
		if err != nil {
			initErr = fmt.Errorf("无法连接到 Milvus: %w", err)
			return
		}
		log.Println("✅ 成功连接到 Milvus!")
		instance = &MilvusClient{Client: c, Config: cfg}
	})
	return instance, initErr
}

// Close 安全地关闭与 Milvus 的连接。
func (c *MilvusClient) Close() {
	if c.Client != nil {
		c.Client.Close()
		log.Println("ℹ️ 已安全关闭 Milvus 连接。")
	}
}

// HealthCheck 检查 Milvus 连接的健康状况。
func (c *MilvusClient) HealthCheck(ctx context.Context) error {
	if c == nil || c.Client == nil {
		return fmt.Errorf("Milvus 客户端未初始化")
	}
	if _, err := c.Client.ListCollections(ctx); err != nil {
		return fmt.Errorf("Milvus health check failed: %w", err)
	}
	return nil
}

// EnsureCollection 确保文档集合存在，不存在时按固定 Schema 创建。
// 字段: id (VarChar, PK), chunk (VarChar), metadata (VarChar, JSON 序列化),
// embedding (FloatVector, 维度来自配置)。
func (c *MilvusClient) EnsureCollection(ctx context.Context) error {
	collName := c.Config.Collection
	exists, err := c.Client.HasCollection(ctx, collName)
	if err != nil {
		return fmt.Errorf("检查集合是否存在时出错: %w", err)
	}

	if !exists {
		schema := entity.NewSchema().
			WithName(collName).
			WithDescription("document chunks with precomputed embeddings").
			WithField(entity.NewField().WithName("id").
				WithDataType(entity.FieldTypeVarChar).WithMaxLength(64).WithIsPrimaryKey(true)).
			WithField(entity.NewField().WithName("chunk").
				WithDataType(entity.FieldTypeVarChar).WithMaxLength(65535)).
			WithField(entity.NewField().WithName("metadata").
				WithDataType(entity.FieldTypeVarChar).WithMaxLength(65535)).
			WithField(entity.NewField().WithName("embedding").
				WithDataType(entity.FieldTypeFloatVector).WithDim(int64(c.Config.Dim)))

		if err := c.Client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("创建集合失败: %w", err)
		}

		// 余弦相似度通过归一化向量 + 内积实现。
		idx, err := entity.NewIndexIvfFlat(entity.IP, 128)
		if err != nil {
			return fmt.Errorf("构建索引实体失败: %w", err)
		}
		if err := c.Client.CreateIndex(ctx, collName, "embedding", idx, false); err != nil {
			return fmt.Errorf("为字段 'embedding' 创建索引失败: %w", err)
		}
		log.Printf("✅ 成功创建集合: %s", collName)
	}

	if err := c.Client.LoadCollection(ctx, collName, false); err != nil {
		return fmt.Errorf("加载 Milvus 集合 '%s' 失败: %w", collName, err)
	}
	return nil
}

// InsertBatch 批量写入文档分块及其向量。
func (c *MilvusClient) InsertBatch(ctx context.Context, ids, chunks, metadatas []string, vectors [][]float32) error {
	if len(chunks) != len(vectors) || len(chunks) != len(ids) || len(chunks) != len(metadatas) {
		return fmt.Errorf("mismatch between ids (%d), chunks (%d), metadatas (%d) and vectors (%d)",
			len(ids), len(chunks), len(metadatas), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}

	idCol := entity.NewColumnVarChar("id", ids)
	chunkCol := entity.NewColumnVarChar("chunk", chunks)
	metaCol := entity.NewColumnVarChar("metadata", metadatas)
	vectorCol := entity.NewColumnFloatVector("embedding", c.Config.Dim, vectors)

	if _, err := c.Client.Insert(ctx, c.Config.Collection, "", idCol, chunkCol, metaCol, vectorCol); err != nil {
		return fmt.Errorf("failed to batch insert data into Milvus: %w", err)
	}

	log.Printf("✅ Successfully inserted %d records into collection '%s'.", len(chunks), c.Config.Collection)
	return nil
}

// Search 执行向量相似度搜索，返回分块文本、元数据与得分。
func (c *MilvusClient) Search(ctx context.Context, topK int, vector []float32, expr string) ([]client.SearchResult, error) {
	collName := c.Config.Collection

	sp, _ := entity.NewIndexIvfFlatSearchParam(10)
	searchVectors := []entity.Vector{entity.FloatVector(vector)}

	results, err := c.Client.Search(
		ctx,
		collName,
		nil,
		expr,
		[]string{"chunk", "metadata"},
		searchVectors,
		"embedding",
		entity.IP,
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("在集合 '%s' 中搜索失败: %w", collName, err)
	}
	return results, nil
}

// Flush 手动触发一次刷新操作，将内存中的数据写入磁盘。
func (c *MilvusClient) Flush(ctx context.Context) error {
	if err := c.Client.Flush(ctx, c.Config.Collection, false); err != nil {
		return fmt.Errorf("刷新集合 '%s' 失败: %w", c.Config.Collection, err)
	}
	return nil
}
