package knowledge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
	"sort"
	"time"

	"github.com/glucomind-ai/assistant/pkg/common/logger"
	"github.com/glucomind-ai/assistant/pkg/common/models"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// MissFallback is the exact text rendered in the knowledge section whenever
// no passage clears the relevance threshold. Downstream prompt assembly and
// the frontend both key on it, so it must not drift.
const MissFallback = "抱歉，知识库中暂时没有关于该问题的相关信息。"

// Embedder turns a query into a vector in the index's embedding space.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Retriever ranks index passages against a query by cosine similarity.
// Query embeddings are memoized in Redis; the singleflight group guarantees
// at most one upstream embedding call per key under concurrent first access.
type Retriever struct {
	index     *Index
	embedder  Embedder
	threshold float64
	cache     *redis.Client
	cacheTTL  time.Duration
	flight    singleflight.Group
}

func NewRetriever(index *Index, embedder Embedder, threshold float64, cache *redis.Client, cacheTTL time.Duration) *Retriever {
	return &Retriever{
		index:     index,
		embedder:  embedder,
		threshold: threshold,
		cache:     cache,
		cacheTTL:  cacheTTL,
	}
}

// Search returns at most k passages ordered by descending similarity. An
// empty slice is an explicit miss: nothing scored above the threshold.
func (r *Retriever) Search(ctx context.Context, query string, k int) ([]models.RetrievedPassage, error) {
	if query == "" || k <= 0 {
		return nil, nil
	}

	queryVec, err := r.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	scored := make([]models.RetrievedPassage, 0, len(r.index.Passages))
	for _, passage := range r.index.Passages {
		score := cosineSimilarity(queryVec, passage.Embedding)
		if score < r.threshold {
			continue
		}
		scored = append(scored, models.RetrievedPassage{
			Text:             passage.Text,
			SimilarityScore:  score,
			SourceDocumentID: passage.SourceDocumentID,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].SimilarityScore > scored[j].SimilarityScore
	})
	if len(scored) > k {
		scored = scored[:k]
	}

	if len(scored) == 0 {
		logger.WithComponent("knowledge").WithField("query_len", len(query)).Debug("retrieval miss")
	}

	return scored, nil
}

func (r *Retriever) embedQuery(ctx context.Context, query string) ([]float32, error) {
	key := "emb:" + r.index.Model + ":" + hashQuery(query)

	if r.cache != nil {
		if cached, err := r.cache.Get(ctx, key).Bytes(); err == nil {
			var vec []float32
			if err := json.Unmarshal(cached, &vec); err == nil && len(vec) == r.index.Dimension {
				return vec, nil
			}
		}
	}

	result, err, _ := r.flight.Do(key, func() (interface{}, error) {
		vec, err := r.embedder.Embed(ctx, query)
		if err != nil {
			return nil, err
		}
		if r.cache != nil {
			if payload, err := json.Marshal(vec); err == nil {
				if err := r.cache.Set(ctx, key, payload, r.cacheTTL).Err(); err != nil {
					logger.WithComponent("knowledge").WithError(err).Debug("embedding cache write failed")
				}
			}
		}
		return vec, nil
	})
	if err != nil {
		return nil, err
	}

	return result.([]float32), nil
}

func hashQuery(query string) string {
	sum := sha256.Sum256([]byte(query))
	return hex.EncodeToString(sum[:])
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
