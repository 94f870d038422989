package config

import (
	"fmt"
	"os"

	"crewpilot/internal/models"

	"gopkg.in/yaml.v3"
)

// AppInfo 对应 'app' 部分，包含应用程序的基本信息。
type AppInfo struct {
	Name        string `yaml:"name"`        // 应用程序名称
	Version     string `yaml:"version"`     // 应用程序版本
	Environment string `yaml:"environment"` // 运行环境 (例如: "development", "production")
}

// ServerConfig 定义了 HTTP 服务器的配置。
type ServerConfig struct {
	Address string `yaml:"address"` // 监听地址 (例如: ":8000")
}

// LoggerConfig 定义了日志记录器的配置。
type LoggerConfig struct {
	Level string `yaml:"level"` // 日志级别 (例如: "info", "debug", "warn", "error")
}

// AuthConfig 用于配置 API 认证。
type AuthConfig struct {
	Enabled   bool   `yaml:"enabled"`   // 是否启用 JWT 认证
	JwtSecret string `yaml:"jwtSecret"` // JWT 密钥
	TokenTTL  int    `yaml:"tokenTTL"`  // JWT 令牌的有效期（秒）
}

// ModelConfig 包含单个模型提供商的配置。
type ModelConfig struct {
	Model   string `yaml:"model"`   // 模型名称
	APIKey  string `yaml:"apiKey"`  // API 密钥
	BaseURL string `yaml:"baseURL"` // 服务基础 URL (可选，OpenAI 兼容服务如 Groq 需要)
}

// LLMConfig 包含了不同LLM提供商的配置。
type LLMConfig struct {
	Provider string      `yaml:"provider"` // LLM提供商 (例如: "openai", "gemini", "ollama")
	OpenAI   ModelConfig `yaml:"openai"`   // OpenAI 兼容模型配置 (含 Groq)
	Gemini   ModelConfig `yaml:"gemini"`   // Gemini 模型配置
	Ollama   ModelConfig `yaml:"ollama"`   // Ollama 模型配置
}

// EmbeddingConfig 包含了不同Embedding提供商的配置。
type EmbeddingConfig struct {
	Provider    string      `yaml:"provider"`    // Embedding提供商 (例如: "openai", "gemini", "ollama", "huggingface")
	OpenAI      ModelConfig `yaml:"openai"`      // OpenAI 兼容模型配置
	Gemini      ModelConfig `yaml:"gemini"`      // Gemini 模型配置
	Ollama      ModelConfig `yaml:"ollama"`      // Ollama 模型配置
	HuggingFace ModelConfig `yaml:"huggingface"` // HuggingFace Inference API 配置
}

// CrewConfig 定义了 crew 编排相关的配置。
type CrewConfig struct {
	DefinitionsDir      string             `yaml:"definitionsDir"`      // crew 定义 (agents.yaml/tasks.yaml/crew.yaml) 所在目录
	OutputDir           string             `yaml:"outputDir"`           // 报告输出目录
	DefaultProcess      string             `yaml:"defaultProcess"`      // 默认执行流程: "sequential" 或 "hierarchical"
	MaxDelegationRounds int                `yaml:"maxDelegationRounds"` // hierarchical 流程中 manager 的最大委派轮数
	TaskTimeoutSeconds  int                `yaml:"taskTimeoutSeconds"`  // 单个任务的超时（秒）
	Retry               models.RetryPolicy `yaml:"retry"`               // 任务模型调用失败时的重试策略
}

// RAGConfig 定义了检索增强相关的配置。
type RAGConfig struct {
	DataDir         string   `yaml:"dataDir"`         // 待摄取文档所在目录
	CacheDir        string   `yaml:"cacheDir"`        // 文档缓存目录 (documents_cache.json 等)
	MemoryDir       string   `yaml:"memoryDir"`       // 运行期记忆文件目录
	IncludePatterns []string `yaml:"includePatterns"` // 摄取时匹配的 glob 模式 (例如: "**/*.pdf")
	ChunkSize       int      `yaml:"chunkSize"`       // 分块大小 (token)
	ChunkOverlap    int      `yaml:"chunkOverlap"`    // 分块重叠 (token)
	TopK            int      `yaml:"topK"`            // 检索返回的候选数
	ContextBudget   int      `yaml:"contextBudget"`   // 组装上下文的最大字符数
	VectorBackend   string   `yaml:"vectorBackend"`   // 向量后端: "memory" 或 "milvus"
}

// RedisConfig 定义了 Redis 数据库的连接配置。
type RedisConfig struct {
	Address  string `yaml:"address"`  // Redis 服务器地址 (例如: "localhost:6379")
	Password string `yaml:"password"` // Redis 密码
	DB       int    `yaml:"db"`       // Redis 数据库编号
}

// MongoConfig 定义了 MongoDB 数据库的连接配置。
type MongoConfig struct {
	Address  string `yaml:"address"`  // MongoDB 服务器地址
	Username string `yaml:"username"` // 用户名
	Password string `yaml:"password"` // 密码
	Database string `yaml:"database"` // 数据库名称
}

// Neo4jConfig 定义了 Neo4j 图数据库的连接配置。
type Neo4jConfig struct {
	Uri      string `yaml:"uri"`      // Neo4j 数据库URI (例如: "bolt://localhost:7687")
	Username string `yaml:"username"` // 用户名
	Password string `yaml:"password"` // 密码
	Database string `yaml:"database"` // 数据库名称
}

// MilvusConfig 定义了 Milvus 数据库的连接配置。
type MilvusConfig struct {
	Address    string `yaml:"address"`    // Milvus 服务地址
	Collection string `yaml:"collection"` // 集合名称
	Dim        int    `yaml:"dim"`        // 向量维度
}

// MinIOConfig 定义了 MinIO 对象存储的连接配置。
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`  // MinIO 服务端点
	AccessKey string `yaml:"accessKey"` // 访问密钥
	SecretKey string `yaml:"secretKey"` // Secret 密钥
	Bucket    string `yaml:"bucket"`    // 默认存储桶名称
	Secure    bool   `yaml:"secure"`    // 是否使用HTTPS
}

// KafkaConfig 定义了 Kafka 消息队列的连接配置。
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"` // Kafka Broker 地址列表
	Topics  []string `yaml:"topics"`  // Kafka 主题列表
}

// DatabaseConfigs 包含所有数据库的配置。
// 任何一项留空即表示该组件未启用，服务会在无外部依赖的情况下降级运行。
type DatabaseConfigs struct {
	Redis   RedisConfig  `yaml:"redis"`   // Redis 数据库配置
	MongoDB MongoConfig  `yaml:"mongodb"` // MongoDB 数据库配置
	Neo4j   Neo4jConfig  `yaml:"neo4j"`   // Neo4j 图数据库配置
	Milvus  MilvusConfig `yaml:"milvus"`  // Milvus 数据库配置
	MinIO   MinIOConfig  `yaml:"minio"`   // MinIO 对象存储配置
	Kafka   KafkaConfig  `yaml:"kafka"`   // Kafka 消息队列配置
}

// MiddlewareConfig 包含所有中间件的配置。
type MiddlewareConfig struct {
	RateLimiter    RateLimiterConfig    `yaml:"rateLimiter"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker"`
}

// RateLimiterConfig 定义了限流器的配置。
type RateLimiterConfig struct {
	Enabled        bool                 `yaml:"enabled"`
	Algorithm      string               `yaml:"algorithm"` // 支持: "fixedWindow", "slidingLog", "slidingCounter", "leakyBucket", "tokenBucket"
	FixedWindow    FixedWindowConfig    `yaml:"fixedWindow"`
	SlidingLog     SlidingLogConfig     `yaml:"slidingLog"`
	SlidingCounter SlidingCounterConfig `yaml:"slidingCounter"`
	LeakyBucket    LeakyBucketConfig    `yaml:"leakyBucket"`
	TokenBucket    TokenBucketConfig    `yaml:"tokenBucket"`
}

// FixedWindowConfig 定义了固定窗口计数器算法的配置。
type FixedWindowConfig struct {
	Limit  int    `yaml:"limit"`
	Window string `yaml:"window"` // 例如: "1m", "30s"
}

// SlidingLogConfig 定义了滑动窗口日志算法的配置。
type SlidingLogConfig struct {
	Limit  int    `yaml:"limit"`
	Window string `yaml:"window"`
}

// SlidingCounterConfig 定义了滑动窗口计数器算法的配置。
type SlidingCounterConfig struct {
	Limit      int    `yaml:"limit"`
	Window     string `yaml:"window"`
	NumBuckets int    `yaml:"numBuckets"`
}

// LeakyBucketConfig 定义了漏桶算法的配置。
type LeakyBucketConfig struct {
	Rate     float64 `yaml:"rate"` // 每秒速率
	Capacity int     `yaml:"capacity"`
}

// TokenBucketConfig 定义了令牌桶算法的配置。
type TokenBucketConfig struct {
	Rate     float64 `yaml:"rate"` // 每秒速率
	Capacity int     `yaml:"capacity"`
}

// CircuitBreakerConfig 定义了熔断器的配置。
type CircuitBreakerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	FailureThreshold uint32 `yaml:"failureThreshold"`
	SuccessThreshold uint32 `yaml:"successThreshold"`
	Timeout          string `yaml:"timeout"` // 例如: "30s"
}

// AppConfig 是整个 YAML 文件的根结构，包含了应用程序的所有配置。
type AppConfig struct {
	App        AppInfo          `yaml:"app"`        // 应用程序信息
	Server     ServerConfig     `yaml:"server"`     // HTTP 服务器配置
	Auth       AuthConfig       `yaml:"auth"`       // 认证配置
	LLM        LLMConfig        `yaml:"llm"`        // LLM 配置部分
	Embedding  EmbeddingConfig  `yaml:"embedding"`  // Embedding 配置部分
	Crew       CrewConfig       `yaml:"crew"`       // crew 编排配置
	RAG        RAGConfig        `yaml:"rag"`        // 检索增强配置
	Logger     LoggerConfig     `yaml:"logger"`     // 日志记录器配置
	Databases  DatabaseConfigs  `yaml:"databases"`  // 数据库配置
	Middleware MiddlewareConfig `yaml:"middleware"` // 中间件配置
}

// LoadConfig 函数从指定路径加载并解析 YAML 配置文件。
//
// 参数:
//
//	path: YAML 配置文件的路径。
//
// 返回值:
//
//	*AppConfig: 解析后的应用程序配置结构体。
//	error: 如果文件读取或解析失败，则返回错误。
func LoadConfig(path string) (*AppConfig, error) {
	// 读取 YAML 文件内容。
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("无法读取 YAML 文件 '%s': %w", path, err)
	}
	var cfg AppConfig
	// 将 YAML 内容解析到 cfg 结构体中。
	err = yaml.Unmarshal(yamlFile, &cfg)
	if err != nil {
		return nil, fmt.Errorf("解析 YAML 文件失败: %w", err)
	}

	cfg.applyDefaults()

	// 宿主平台通过 PORT 环境变量指定监听端口，优先于配置文件。
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Address = ":" + port
	}

	return &cfg, nil
}

// applyDefaults 为未设置的配置项填充默认值。
// 默认值保持与容器部署约定一致：监听 8000 端口，
// 工作目录为 memory/、data/ 和 government_cache/。
func (c *AppConfig) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8000"
	}
	if c.Crew.DefinitionsDir == "" {
		c.Crew.DefinitionsDir = "config/crews"
	}
	if c.Crew.OutputDir == "" {
		c.Crew.OutputDir = "output"
	}
	if c.Crew.DefaultProcess == "" {
		c.Crew.DefaultProcess = "sequential"
	}
	if c.Crew.MaxDelegationRounds == 0 {
		c.Crew.MaxDelegationRounds = 10
	}
	if c.Crew.TaskTimeoutSeconds == 0 {
		c.Crew.TaskTimeoutSeconds = 120
	}
	if c.Crew.Retry.MaxRetries == 0 {
		c.Crew.Retry.MaxRetries = 2
	}
	if c.Crew.Retry.BackoffCoeff == 0 {
		c.Crew.Retry.BackoffCoeff = 2.0
	}
	if c.Crew.Retry.InitialDelay == "" {
		c.Crew.Retry.InitialDelay = "1s"
	}
	if c.RAG.DataDir == "" {
		c.RAG.DataDir = "data"
	}
	if c.RAG.CacheDir == "" {
		c.RAG.CacheDir = "government_cache"
	}
	if c.RAG.MemoryDir == "" {
		c.RAG.MemoryDir = "memory"
	}
	if len(c.RAG.IncludePatterns) == 0 {
		c.RAG.IncludePatterns = []string{"**/*.pdf", "**/*.md", "**/*.txt", "**/*.xlsx"}
	}
	if c.RAG.ChunkSize == 0 {
		c.RAG.ChunkSize = 512
	}
	if c.RAG.ChunkOverlap == 0 {
		c.RAG.ChunkOverlap = 64
	}
	if c.RAG.TopK == 0 {
		c.RAG.TopK = 5
	}
	if c.RAG.ContextBudget == 0 {
		c.RAG.ContextBudget = 2000
	}
	if c.RAG.VectorBackend == "" {
		c.RAG.VectorBackend = "memory"
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
}

// WorkDirs 返回服务启动时需要确保存在的工作目录。
func (c *AppConfig) WorkDirs() []string {
	return []string{c.RAG.MemoryDir, c.RAG.DataDir, c.RAG.CacheDir, c.Crew.OutputDir}
}
