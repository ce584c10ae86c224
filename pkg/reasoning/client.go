package reasoning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/glucomind-ai/assistant/pkg/common/logger"
)

// Client calls an OpenAI-compatible endpoint (DashScope compatible mode) for
// both chat completions and query embeddings. It is the single external
// collaborator boundary of the pipeline.
type Client struct {
	apiKey         string
	baseURL        string
	modelName      string
	embeddingModel string
	httpClient     *http.Client
}

func NewClient(apiKey, baseURL, modelName, embeddingModel string, timeout time.Duration) *Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &Client{
		apiKey:         apiKey,
		baseURL:        strings.TrimRight(baseURL, "/"),
		modelName:      modelName,
		embeddingModel: embeddingModel,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// Reason sends the composed context and returns the raw generated answer.
// Failures are classified but never retried here.
func (c *Client) Reason(ctx context.Context, prompt string) (string, error) {
	payload := map[string]interface{}{
		"model": c.modelName,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": 0.3,
	}

	body, err := c.post(ctx, "/chat/completions", payload)
	if err != nil {
		return "", err
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", &Error{Kind: FailureUpstreamError, Err: fmt.Errorf("decode completion: %w", err)}
	}

	if len(result.Choices) == 0 || strings.TrimSpace(result.Choices[0].Message.Content) == "" {
		return "", &Error{Kind: FailureEmptyResponse}
	}

	return result.Choices[0].Message.Content, nil
}

// Embed returns the embedding vector for text using the configured model.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	payload := map[string]interface{}{
		"model": c.embeddingModel,
		"input": text,
	}

	body, err := c.post(ctx, "/embeddings", payload)
	if err != nil {
		return nil, err
	}

	var result struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &Error{Kind: FailureUpstreamError, Err: fmt.Errorf("decode embedding: %w", err)}
	}
	if len(result.Data) == 0 || len(result.Data[0].Embedding) == 0 {
		return nil, &Error{Kind: FailureEmptyResponse}
	}

	return result.Data[0].Embedding, nil
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, &Error{Kind: FailureUpstreamError, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return nil, &Error{Kind: FailureUpstreamError, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{
			Kind: FailureUpstreamError,
			Err:  fmt.Errorf("upstream %s returned status %d: %s", path, resp.StatusCode, truncate(string(body), 200)),
		}
	}

	logger.WithComponent("reasoning").WithFields(map[string]interface{}{
		"path":       path,
		"elapsed_ms": time.Since(start).Milliseconds(),
	}).Debug("upstream call completed")

	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
