package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"crewpilot/internal/rag/schema"
	"crewpilot/internal/service"

	"github.com/gin-gonic/gin"
)

// HealthChecker 检查单个外部组件的健康状况。
type HealthChecker func(ctx context.Context) error

// Handler 封装了所有 API endpoint 的处理函数。
type Handler struct {
	runs    *service.RunService
	search  *service.SearchService
	ingest  *service.IngestService
	dataDir string
	checks  map[string]HealthChecker
}

// NewHandler 创建一个新的 Handler 实例。checks 中的每个条目对应
// 一个已启用的外部组件，出现在 /health 的响应里。
func NewHandler(runs *service.RunService, search *service.SearchService, ingest *service.IngestService, dataDir string, checks map[string]HealthChecker) *Handler {
	return &Handler{
		runs:    runs,
		search:  search,
		ingest:  ingest,
		dataDir: dataDir,
		checks:  checks,
	}
}

// --- Crew Run Handlers ---

// ListCrews 返回所有已注册的 crew 名称。
func (h *Handler) ListCrews(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"crews": h.runs.Crews()})
}

// SubmitRunRequest 定义了提交运行请求的 JSON 结构。
type SubmitRunRequest struct {
	Inputs map[string]interface{} `json:"inputs"`
}

// SubmitRun 提交一次 crew 运行，立即返回 pending 状态的记录。
func (h *Handler) SubmitRun(c *gin.Context) {
	var req SubmitRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("userID")
	record, err := h.runs.Submit(c.Request.Context(), c.Param("name"), userID, req.Inputs)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, record)
}

// GetRun 返回一条运行记录。
func (h *Handler) GetRun(c *gin.Context) {
	record, err := h.runs.GetRun(c.Request.Context(), c.Param("id"))
	if err == service.ErrRunNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "运行记录不存在"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, record)
}

// ListRuns 返回最近的运行记录，支持 crew 与 limit 查询参数。
func (h *Handler) ListRuns(c *gin.Context) {
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
	records, err := h.runs.ListRuns(c.Request.Context(), c.Query("crew"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": records})
}

// --- Search and Chat Handlers ---

// SearchRequest 定义了检索请求的 JSON 结构。
type SearchRequest struct {
	Query        string `json:"query" binding:"required"`
	TopK         int    `json:"top_k"`
	District     string `json:"district"`
	DocumentType string `json:"document_type"`
}

// SearchResultResponse 是检索结果的响应结构。向量不随响应返回。
type SearchResultResponse struct {
	DocumentID string                 `json:"document_id"`
	Content    string                 `json:"content"`
	Score      float64                `json:"score"`
	Citation   string                 `json:"citation"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Search 在预计算向量库中检索与查询最相关的文档块。
func (h *Handler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results, err := h.search.Search(c.Request.Context(), req.Query, req.TopK, req.District, req.DocumentType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": toSearchResponses(results)})
}

// ChatRequest 定义了问答请求的 JSON 结构。
type ChatRequest struct {
	Query string `json:"query" binding:"required"`
}

// Chat 先检索再生成答案，响应中带有引用的来源。
func (h *Handler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	answer, sources, err := h.search.Chat(c.Request.Context(), req.Query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"answer":  answer,
		"sources": toSearchResponses(sources),
	})
}

func toSearchResponses(results []*schema.SearchResult) []SearchResultResponse {
	responses := make([]SearchResultResponse, 0, len(results))
	for _, result := range results {
		responses = append(responses, SearchResultResponse{
			DocumentID: result.Document.ID,
			Content:    result.Document.Text,
			Score:      float64(result.Score),
			Citation:   result.DetailedCitation(),
			Metadata:   result.Document.Metadata,
		})
	}
	return responses
}

// --- Ingest Handler ---

// IngestRequest 定义了摄取请求的 JSON 结构。
// Path 可以是文件、目录或 http(s) URL，为空时摄取配置的数据目录。
type IngestRequest struct {
	Path string `json:"path"`
}

// Ingest 同步摄取一个文件、目录或 URL，返回写入的分块数。
func (h *Handler) Ingest(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	path := req.Path
	if path == "" {
		path = h.dataDir
	}

	chunks, err := h.ingest.Ingest(c.Request.Context(), path)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"path": path, "chunks": chunks})
}

// --- Health Handler ---

// Health 逐个检查已启用的外部组件，任何一个不健康都返回 503。
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	components := make(map[string]string, len(h.checks))
	healthy := true
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			components[name] = "unhealthy: " + err.Error()
			healthy = false
		} else {
			components[name] = "healthy"
		}
	}

	status := http.StatusOK
	overall := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "unhealthy"
	}
	c.JSON(status, gin.H{"status": overall, "components": components})
}
