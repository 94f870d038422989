package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crewpilot/internal/api"
	"crewpilot/internal/config"
	"crewpilot/internal/crew"
	kafkadb "crewpilot/internal/database/kafka"
	milvusdb "crewpilot/internal/database/milvus"
	miniodb "crewpilot/internal/database/minio"
	mongodb "crewpilot/internal/database/mongo"
	neo4jdb "crewpilot/internal/database/neo4j"
	redisdb "crewpilot/internal/database/redis"
	"crewpilot/internal/embedding"
	"crewpilot/internal/llm"
	"crewpilot/internal/memory"
	"crewpilot/internal/rag/embeddings"
	"crewpilot/internal/rag/interfaces"
	"crewpilot/internal/rag/llms"
	"crewpilot/internal/rag/pipeline"
	"crewpilot/internal/rag/splitters"
	"crewpilot/internal/rag/storages/docstore"
	"crewpilot/internal/rag/storages/vectorstore"
	"crewpilot/internal/report"
	"crewpilot/internal/service"
	"crewpilot/pkg/logger"

	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize logger
	level, err := logrus.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.Init(level)
	appLogger := logger.New("crewpilot", "", "")
	appLogger.Info("Logger initialized")

	// 确保工作目录存在
	for _, dir := range cfg.WorkDirs() {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			appLogger.Fatal("创建工作目录失败: " + err.Error())
		}
	}

	ctx := context.Background()
	checks := map[string]api.HealthChecker{}

	// 初始化外部组件。配置留空的组件不启用，服务降级运行。
	var runStore service.RunStore = service.NewMemoryRunStore()
	var shortTerm *memory.ShortTermStore
	var longTerm *memory.LongTermStore
	var entities *memory.EntityStore

	if cfg.Databases.Redis.Address != "" {
		redisClient, err := redisdb.GetClient(&cfg.Databases.Redis)
		if err != nil {
			appLogger.Fatal(err.Error())
		}
		defer redisdb.Close()
		shortTerm = memory.NewShortTermStore(redisClient)
		checks["redis"] = redisdb.HealthCheck
	}

	if cfg.Databases.MongoDB.Address != "" {
		mongoClient, err := mongodb.GetClient(&cfg.Databases.MongoDB)
		if err != nil {
			appLogger.Fatal(err.Error())
		}
		defer mongodb.Close(ctx)
		runStore = service.NewMongoRunStore(mongoClient, cfg.Databases.MongoDB.Database)
		longTerm = memory.NewLongTermStore(mongoClient, cfg.Databases.MongoDB.Database)
		checks["mongodb"] = mongodb.HealthCheck
	}

	if cfg.Databases.Neo4j.Uri != "" {
		neo4jClient, err := neo4jdb.GetClient(ctx, &cfg.Databases.Neo4j)
		if err != nil {
			appLogger.Fatal(err.Error())
		}
		defer neo4jClient.Close(ctx)
		entities = memory.NewEntityStore(neo4jClient)
		checks["neo4j"] = neo4jdb.HealthCheck
	}

	var archiver *report.Archiver
	if cfg.Databases.MinIO.Endpoint != "" {
		minioClient, err := miniodb.GetClient(&cfg.Databases.MinIO)
		if err != nil {
			appLogger.Fatal(err.Error())
		}
		if err := miniodb.EnsureBucket(ctx, &cfg.Databases.MinIO); err != nil {
			appLogger.Fatal(err.Error())
		}
		archiver = report.NewArchiver(minioClient, cfg.Databases.MinIO.Bucket, appLogger)
		checks["minio"] = miniodb.HealthCheck
	}

	var events *kafkadb.KafkaClient
	if len(cfg.Databases.Kafka.Brokers) > 0 {
		events, err = kafkadb.GetClient(&cfg.Databases.Kafka)
		if err != nil {
			appLogger.Fatal(err.Error())
		}
		defer events.Close()
		checks["kafka"] = events.HealthCheck
	}

	// 初始化 LLM 与 Embedding 模型
	llmClient, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		appLogger.Fatal("初始化 LLM 客户端失败: " + err.Error())
	}
	embedModel, err := embedding.NewEmdModel(cfg.Embedding)
	if err != nil {
		appLogger.Fatal("初始化 Embedding 模型失败: " + err.Error())
	}

	// 组装 RAG 管道
	splitter, err := splitters.NewTokenSplitter(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	docStore, err := docstore.NewFileDocStore(cfg.RAG.CacheDir)
	if err != nil {
		appLogger.Fatal("初始化文档缓存失败: " + err.Error())
	}

	var vecStore interfaces.VectorStore = vectorstore.NewMemoryStore()
	if cfg.RAG.VectorBackend == "milvus" {
		milvusClient, err := milvusdb.GetClient(ctx, &cfg.Databases.Milvus)
		if err != nil {
			appLogger.Fatal(err.Error())
		}
		defer milvusClient.Close()
		vecStore, err = vectorstore.NewMilvusStore(ctx, milvusClient, appLogger)
		if err != nil {
			appLogger.Fatal(err.Error())
		}
		checks["milvus"] = milvusClient.HealthCheck
	}

	embedAdapter := embeddings.NewAdapter(embedModel)
	indexing := pipeline.NewIndexingPipeline(splitter, embedAdapter, docStore, vecStore, appLogger)
	retrieval := pipeline.NewRetrievalPipeline(embedAdapter, vecStore, appLogger)
	qa := pipeline.NewQAPipeline(llms.NewAdapter(llmClient), appLogger)

	// 把缓存中已有向量的文档块加载进向量库
	if warmed, err := indexing.Warm(ctx); err != nil {
		appLogger.WithPayload(map[string]interface{}{"error": err.Error()}).Warn("预热向量库失败")
	} else if warmed > 0 {
		appLogger.WithPayload(map[string]interface{}{"chunks": warmed}).Info("向量库预热完成")
	}

	// 加载 crew 定义
	registry := crew.NewRegistry()
	if err := registry.LoadDir(cfg.Crew.DefinitionsDir); err != nil {
		appLogger.Fatal("加载 crew 定义失败: " + err.Error())
	}
	appLogger.WithPayload(map[string]interface{}{"crews": registry.Names()}).Info("crew 定义加载完成")

	// 组装运行记忆
	var memWriter crew.MemoryWriter
	mem := memory.New(shortTerm, longTerm, entities, appLogger)
	if mem.Enabled() {
		memWriter = mem
	}

	// 组装服务层 (Store -> Service -> Handler)
	opts := crew.RunnerOptions{
		Retry:               cfg.Crew.Retry,
		MaxDelegationRounds: cfg.Crew.MaxDelegationRounds,
		TaskTimeout:         time.Duration(cfg.Crew.TaskTimeoutSeconds) * time.Second,
		ContextBudget:       cfg.RAG.ContextBudget,
	}
	reports := report.NewWriter(cfg.Crew.OutputDir, appLogger)
	runService := service.NewRunService(registry, llmClient, retrieval, memWriter, runStore, reports, archiver, events, opts, appLogger)
	searchService := service.NewSearchService(retrieval, qa, cfg.RAG.TopK)
	ingestService, err := service.NewIngestService(indexing, cfg.RAG.IncludePatterns, appLogger)
	if err != nil {
		appLogger.Fatal(err.Error())
	}

	handler := api.NewHandler(runService, searchService, ingestService, cfg.RAG.DataDir, checks)
	router, err := api.SetupRouter(handler, cfg)
	if err != nil {
		appLogger.Fatal("初始化路由失败: " + err.Error())
	}

	// 启动 HTTP 服务器并优雅关闭
	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}

	go func() {
		appLogger.Info("Starting server on " + cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal(err.Error())
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("收到退出信号，正在关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("服务器关闭失败: " + err.Error())
	}
	appLogger.Info("服务器已退出")
}
