package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"

	"crewpilot/internal/database/milvus"
	"crewpilot/internal/rag/interfaces"
	"crewpilot/internal/rag/schema"
	"crewpilot/pkg/logger"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// MilvusStore adapts the shared Milvus client to the VectorStore
// interface. Chunk metadata is stored as a JSON column and filtered
// after the vector search, matching the memory backend's behaviour.
type MilvusStore struct {
	log    *logger.Logger
	client *milvus.MilvusClient
}

// NewMilvusStore creates a new MilvusStore adapter and makes sure the
// backing collection exists.
func NewMilvusStore(ctx context.Context, milvusClient *milvus.MilvusClient, log *logger.Logger) (*MilvusStore, error) {
	if milvusClient == nil || milvusClient.Client == nil {
		return nil, fmt.Errorf("milvus client is not initialized")
	}
	if err := milvusClient.EnsureCollection(ctx); err != nil {
		return nil, err
	}
	return &MilvusStore{
		log:    log,
		client: milvusClient,
	}, nil
}

// Add inserts a list of documents into the Milvus collection.
func (s *MilvusStore) Add(ctx context.Context, docs []*schema.Document) error {
	if len(docs) == 0 {
		return nil
	}

	ids := make([]string, 0, len(docs))
	chunks := make([]string, 0, len(docs))
	metadatas := make([]string, 0, len(docs))
	vectors := make([][]float32, 0, len(docs))

	for _, doc := range docs {
		if len(doc.Embedding) == 0 {
			continue
		}
		meta, err := json.Marshal(map[string]interface{}{
			"metadata": doc.Metadata,
			"source":   doc.Source,
			"citation": doc.Citation,
		})
		if err != nil {
			return fmt.Errorf("failed to encode chunk metadata: %w", err)
		}
		ids = append(ids, doc.ID)
		chunks = append(chunks, doc.Text)
		metadatas = append(metadatas, string(meta))
		vectors = append(vectors, doc.Embedding)
	}

	s.log.WithPayload(map[string]interface{}{"chunks": len(ids)}).Info("Inserting documents into Milvus")
	return s.client.InsertBatch(ctx, ids, chunks, metadatas, vectors)
}

// Query performs a vector search and applies the metadata filters to the
// returned candidates. The candidate pool is doubled so filtering still
// leaves enough results.
func (s *MilvusStore) Query(ctx context.Context, embedding []float32, topK int, filters interfaces.SearchFilters) ([]*schema.SearchResult, error) {
	searchResults, err := s.client.Search(ctx, topK*2, embedding, "")
	if err != nil {
		return nil, err
	}

	var results []*schema.SearchResult
	for _, res := range searchResults {
		var idData, chunkData, metaData []string
		for _, field := range res.Fields {
			col, ok := field.(*entity.ColumnVarChar)
			if !ok {
				continue
			}
			switch field.Name() {
			case "id":
				idData = col.Data()
			case "chunk":
				chunkData = col.Data()
			case "metadata":
				metaData = col.Data()
			}
		}

		for i := 0; i < res.ResultCount; i++ {
			doc := &schema.Document{}
			if i < len(idData) {
				doc.ID = idData[i]
			}
			if i < len(chunkData) {
				doc.Text = chunkData[i]
			}
			if i < len(metaData) {
				var wrapper struct {
					Metadata map[string]interface{} `json:"metadata"`
					Source   string                 `json:"source"`
					Citation string                 `json:"citation"`
				}
				if err := json.Unmarshal([]byte(metaData[i]), &wrapper); err == nil {
					doc.Metadata = wrapper.Metadata
					doc.Source = wrapper.Source
					doc.Citation = wrapper.Citation
				}
			}

			result := &schema.SearchResult{Document: doc, Score: res.Scores[i]}
			if !MatchesFilters(result, filters) {
				continue
			}
			results = append(results, result)
			if len(results) == topK {
				return results, nil
			}
		}
	}

	return results, nil
}

// compile-time check to ensure MilvusStore implements the VectorStore interface
var _ interfaces.VectorStore = (*MilvusStore)(nil)
