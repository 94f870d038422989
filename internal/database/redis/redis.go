package redis

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"crewpilot/internal/config"

	"github.com/go-redis/redis/v8"
)

var (
	client  *redis.Client
	once    sync.Once
	initErr error
)

// connectTimeout 限制首次建连时 Ping 的等待时间，
// 避免 Redis 不可达时拖慢服务启动。
const connectTimeout = 5 * time.Second

// GetClient 使用单例模式初始化并返回一个 Redis 客户端实例。
// Redis 在本服务中承载 crew 运行的短期记忆（带 TTL 的近期任务输出），
// 连接在整个应用生命周期中只被建立一次。
func GetClient(cfg *config.RedisConfig) (*redis.Client, error) {
	once.Do(func() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			initErr = fmt.Errorf("无法连接到 Redis: %w", err)
			return
		}

		log.Printf("✅ 成功连接到 Redis (db=%d)，短期记忆已就绪!", cfg.DB)
		client = rdb
	})

	return client, initErr
}

// Close 安全地关闭单例的 Redis 连接。
func Close() error {
	if client != nil {
		return client.Close()
	}
	return nil
}

// HealthCheck 检查 Redis 连接的健康状况。
func HealthCheck(ctx context.Context) error {
	if client == nil {
		return fmt.Errorf("Redis 客户端未初始化")
	}
	return client.Ping(ctx).Err()
}
