package neo4j

import (
	"context"
	"fmt"
	"log"
	"sync"

	"crewpilot/internal/config"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

var (
	instance *Neo4jClient
	once     sync.Once
	initErr  error
)

// Neo4jClient 包含了 Neo4j 驱动实例和从 YAML 加载的相关配置。
type Neo4jClient struct {
	Driver neo4j.DriverWithContext // Neo4j 驱动实例。
	Config *config.Neo4jConfig     // Neo4j 配置。
}

// GetClient 使用单例模式创建并返回一个新的 Neo4j 驱动实例。
func GetClient(ctx context.Context, cfg *config.Neo4jConfig) (*Neo4jClient, error) {
	once.Do(func() {
		// 使用用户名和密码创建认证 token。
		auth := neo4j.BasicAuth(cfg.Username, cfg.Password, "")

		// 创建驱动实例。
		driver, err := neo4j.NewDriverWithContext(cfg.Uri, auth)
		if err != nil {
			initErr = fmt.Errorf("无法创建 Neo4j 驱动: %w", err)
			return
		}

		// 验证与数据库的连接是否成功。
		if err := driver.VerifyConnectivity(ctx); err != nil {
			driver.Close(ctx) // 如果验证失败，需要关闭已创建的驱动以释放资源。
			initErr = fmt.Errorf("无法连接到 Neo4j 数据库: %w", err)
			return
		}

		log.Println("✅ 成功连接到 Neo4j!")
		instance = &Neo4jClient{Driver: driver, Config: cfg}
	})
	return instance, initErr
}

// RunCypherQuery 在写会话中执行一条 Cypher 语句。
func (c *Neo4jClient) RunCypherQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.ResultWithContext, error) {
	session := c.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: c.Config.Database,
	})
	defer session.Close(ctx)

	return session.Run(ctx, query, params)
}

// ReadCypherQuery 在只读会话中执行一条 Cypher 语句。
func (c *Neo4jClient) ReadCypherQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.ResultWithContext, error) {
	session := c.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: c.Config.Database,
	})
	defer session.Close(ctx)

	return session.Run(ctx, query, params)
}

// Close 安全地关闭 Neo4j 驱动。
func (c *Neo4jClient) Close(ctx context.Context) error {
	if c.Driver != nil {
		return c.Driver.Close(ctx)
	}
	return nil
}

// HealthCheck 检查 Neo4j 连接的健康状况。
func HealthCheck(ctx context.Context) error {
	if instance == nil || instance.Driver == nil {
		return fmt.Errorf("Neo4j 客户端未初始化")
	}
	return instance.Driver.VerifyConnectivity(ctx)
}
