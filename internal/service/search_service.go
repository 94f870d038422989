package service

import (
	"context"
	"fmt"

	"crewpilot/internal/rag/interfaces"
	"crewpilot/internal/rag/pipeline"
	"crewpilot/internal/rag/schema"
)

// SearchService 提供基于预计算向量库的检索与问答。
type SearchService struct {
	retrieval *pipeline.RetrievalPipeline
	qa        *pipeline.QAPipeline
	topK      int
}

// NewSearchService 创建一个 SearchService。
func NewSearchService(retrieval *pipeline.RetrievalPipeline, qa *pipeline.QAPipeline, topK int) *SearchService {
	if topK <= 0 {
		topK = 5
	}
	return &SearchService{
		retrieval: retrieval,
		qa:        qa,
		topK:      topK,
	}
}

// Search 检索与查询最相关的文档块。topK 为 0 时使用默认值，
// district 与 documentType 为可选的元数据过滤条件。
func (s *SearchService) Search(ctx context.Context, query string, topK int, district, documentType string) ([]*schema.SearchResult, error) {
	if query == "" {
		return nil, fmt.Errorf("查询不能为空")
	}
	if topK <= 0 {
		topK = s.topK
	}
	filters := interfaces.SearchFilters{
		District:     district,
		DocumentType: documentType,
	}
	return s.retrieval.Run(ctx, query, topK, filters)
}

// Chat 先检索再让模型基于上下文回答，返回答案与引用的来源。
func (s *SearchService) Chat(ctx context.Context, query string) (string, []*schema.SearchResult, error) {
	if query == "" {
		return "", nil, fmt.Errorf("查询不能为空")
	}

	results, err := s.retrieval.Run(ctx, query, s.topK, interfaces.SearchFilters{})
	if err != nil {
		return "", nil, err
	}

	answer, err := s.qa.Run(ctx, query, results)
	if err != nil {
		return "", nil, err
	}
	return answer, results, nil
}
