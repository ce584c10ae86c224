package knowledge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glucomind-ai/assistant/pkg/common/logger"
)

// Passage is one indexed knowledge-base chunk with its precomputed embedding.
type Passage struct {
	ID               string    `json:"id"`
	Text             string    `json:"text"`
	SourceDocumentID string    `json:"source_document_id"`
	Embedding        []float32 `json:"embedding"`
}

// Index is the pre-built passage index, loaded once at startup and read-only
// afterwards, so it is safe to share across requests without locking.
type Index struct {
	Model     string    `json:"model"`
	Dimension int       `json:"dimension"`
	Passages  []Passage `json:"passages"`
}

// LoadIndex reads the serialized index from disk. Index construction itself
// happens offline in the ingestion tooling.
func LoadIndex(path string) (*Index, error) {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read knowledge index: %w", err)
	}

	var index Index
	if err := json.Unmarshal(content, &index); err != nil {
		return nil, fmt.Errorf("parse knowledge index: %w", err)
	}

	if len(index.Passages) == 0 {
		return nil, fmt.Errorf("knowledge index %s has no passages", path)
	}
	for i, p := range index.Passages {
		if len(p.Embedding) != index.Dimension {
			return nil, fmt.Errorf("passage %d (%s): embedding dimension %d, index declares %d",
				i, p.ID, len(p.Embedding), index.Dimension)
		}
	}

	logger.WithComponent("knowledge").WithFields(map[string]interface{}{
		"passages":  len(index.Passages),
		"dimension": index.Dimension,
		"model":     index.Model,
	}).Info("knowledge index loaded")

	return &index, nil
}
