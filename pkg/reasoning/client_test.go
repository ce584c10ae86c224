package reasoning

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestReasonReturnsAnswer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"建议规律监测血糖。"}}]}`))
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, "qwen-plus", "text-embedding-v2", 5*time.Second)
	answer, err := client.Reason(context.Background(), "如何控制血糖？")
	if err != nil {
		t.Fatalf("reason failed: %v", err)
	}
	if answer != "建议规律监测血糖。" {
		t.Fatalf("unexpected answer %q", answer)
	}
}

func TestReasonClassifiesEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := NewClient("k", server.URL, "qwen-plus", "text-embedding-v2", 5*time.Second)
	_, err := client.Reason(context.Background(), "问题")

	var rerr *Error
	if !errors.As(err, &rerr) || rerr.Kind != FailureEmptyResponse {
		t.Fatalf("expected empty response failure, got %v", err)
	}
	if !Retryable(err) {
		t.Fatal("empty responses should be retryable")
	}
}

func TestReasonClassifiesUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient("k", server.URL, "qwen-plus", "text-embedding-v2", 5*time.Second)
	_, err := client.Reason(context.Background(), "问题")

	var rerr *Error
	if !errors.As(err, &rerr) || rerr.Kind != FailureUpstreamError {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if Retryable(err) {
		t.Fatal("a plain 500 is not retryable")
	}
}

func TestReasonClassifiesTimeout(t *testing.T) {
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer server.Close()
	defer close(block)

	client := NewClient("k", server.URL, "qwen-plus", "text-embedding-v2", 5*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Reason(ctx, "问题")

	var rerr *Error
	if !errors.As(err, &rerr) || rerr.Kind != FailureTimeout {
		t.Fatalf("expected timeout failure, got %v", err)
	}
	if !Retryable(err) {
		t.Fatal("timeouts should be retryable")
	}
}

func TestEmbedReturnsVector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`{"data":[{"embedding":[0.1,0.2,0.3]}]}`))
	}))
	defer server.Close()

	client := NewClient("k", server.URL, "qwen-plus", "text-embedding-v2", 5*time.Second)
	vec, err := client.Embed(context.Background(), "高血压")
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if len(vec) != 3 || vec[1] != 0.2 {
		t.Fatalf("unexpected vector %v", vec)
	}
}

func TestRetryableRejectsForeignErrors(t *testing.T) {
	if Retryable(errors.New("some other error")) {
		t.Fatal("foreign errors are never retryable")
	}
	if Retryable(nil) {
		t.Fatal("nil is not retryable")
	}
}
