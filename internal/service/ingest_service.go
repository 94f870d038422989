package service

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"crewpilot/internal/models"
	"crewpilot/internal/rag/loaders"
	"crewpilot/internal/rag/pipeline"
	"crewpilot/pkg/logger"
)

// IngestService 把本地文档摄取到向量库中。文件按扩展名或内容
// 类型分派给对应的 loader，不支持的类型会被跳过。
type IngestService struct {
	indexing *pipeline.IndexingPipeline
	matcher  *loaders.Matcher
	log      *logger.Logger
}

// NewIngestService 创建一个 IngestService。includePatterns 限定目录
// 摄取时匹配的文件 (例如 "**/*.pdf")。
func NewIngestService(indexing *pipeline.IndexingPipeline, includePatterns []string, log *logger.Logger) (*IngestService, error) {
	matcher, err := loaders.NewMatcher(includePatterns)
	if err != nil {
		return nil, err
	}
	return &IngestService{
		indexing: indexing,
		matcher:  matcher,
		log:      log,
	}, nil
}

// Ingest 摄取一个目标，返回写入的分块数。目标可以是
// http(s) URL、单个文件或一个目录。
func (s *IngestService) Ingest(ctx context.Context, target string) (int, error) {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return s.indexing.Run(ctx, loaders.NewWebLoader(), target, nil)
	}
	return s.IngestDir(ctx, target)
}

// IngestFile 摄取单个文件，返回写入的分块数。
func (s *IngestService) IngestFile(ctx context.Context, path string, progressChan chan<- *pipeline.Progress) (int, error) {
	loader, err := loaders.ForFile(path)
	if err != nil {
		if progressChan != nil {
			close(progressChan)
		}
		return 0, err
	}
	return s.indexing.Run(ctx, loader, path, progressChan)
}

// IngestDir 递归摄取目录中所有匹配 include 模式的文件，
// 返回写入的分块总数。单个文件失败只记录日志，不中断整个摄取。
func (s *IngestService) IngestDir(ctx context.Context, dir string) (int, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return 0, fmt.Errorf("无法访问摄取目录 %s: %w", dir, err)
	}
	if !info.IsDir() {
		return s.IngestFile(ctx, dir, nil)
	}

	total := 0
	walkErr := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !s.matcher.Match(path) {
			return nil
		}

		chunks, err := s.IngestFile(ctx, path, nil)
		if err != nil {
			s.log.WithError(models.ErrorInfo{Message: err.Error()}).
				WithPayload(map[string]interface{}{"file": path}).
				Warn("文件摄取失败，已跳过")
			return nil
		}
		total += chunks
		return nil
	})
	if walkErr != nil {
		return total, fmt.Errorf("遍历摄取目录失败: %w", walkErr)
	}

	s.log.WithPayload(map[string]interface{}{
		"dir":    dir,
		"chunks": total,
	}).Info("目录摄取完成")
	return total, nil
}
