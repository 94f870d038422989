package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"crewpilot/internal/config"
	milvusdb "crewpilot/internal/database/milvus"
	"crewpilot/internal/embedding"
	"crewpilot/internal/rag/embeddings"
	"crewpilot/internal/rag/interfaces"
	"crewpilot/internal/rag/pipeline"
	"crewpilot/internal/rag/splitters"
	"crewpilot/internal/rag/storages/docstore"
	"crewpilot/internal/rag/storages/vectorstore"
	"crewpilot/internal/service"
	"crewpilot/pkg/logger"

	"github.com/sirupsen/logrus"
)

// ingest 离线摄取文档: 加载、分块、嵌入并写入文档缓存。
// 服务启动时会从缓存预热向量库，因此摄取可以提前在任何机器上完成。
func main() {
	configPath := flag.String("config", "config.yaml", "配置文件路径")
	dir := flag.String("dir", "", "要摄取的目录或文件，默认为配置中的数据目录")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	level, err := logrus.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.Init(level)
	appLogger := logger.New("ingest", "", "")

	target := *dir
	if target == "" {
		target = cfg.RAG.DataDir
	}

	ctx := context.Background()

	embedModel, err := embedding.NewEmdModel(cfg.Embedding)
	if err != nil {
		appLogger.Fatal("初始化 Embedding 模型失败: " + err.Error())
	}
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
	}

	indexing := pipeline.NewIndexingPipeline(splitter, embeddings.NewAdapter(embedModel), docStore, vecStore, appLogger)
	ingestService, err := service.NewIngestService(indexing, cfg.RAG.IncludePatterns, appLogger)
	if err != nil {
		appLogger.Fatal(err.Error())
	}

	chunks, err := ingestService.IngestDir(ctx, target)
	if err != nil {
		appLogger.Fatal("摄取失败: " + err.Error())
	}

	fmt.Fprintf(os.Stdout, "已摄取 %s，共写入 %d 个分块\n", target, chunks)
}
