package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.ServerPort != "8080" {
		t.Fatalf("unexpected default port %q", cfg.ServerPort)
	}
	if cfg.ContextBudgetChars != 6000 {
		t.Fatalf("unexpected default context budget %d", cfg.ContextBudgetChars)
	}
	if cfg.RelevanceThreshold != 0.35 {
		t.Fatalf("unexpected default relevance threshold %f", cfg.RelevanceThreshold)
	}
	if !cfg.EnableSafetyCheck {
		t.Fatal("safety check must default to enabled")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("RETRIEVAL_TOP_K", "3")
	t.Setenv("SECTION_TIMEOUT", "2s")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092")

	cfg := Load()
	if cfg.ServerPort != "9000" {
		t.Fatalf("expected env override, got %q", cfg.ServerPort)
	}
	if cfg.RetrievalTopK != 3 {
		t.Fatalf("expected top-k 3, got %d", cfg.RetrievalTopK)
	}
	if cfg.SectionTimeout != 2*time.Second {
		t.Fatalf("expected 2s section timeout, got %v", cfg.SectionTimeout)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "broker-2:9092" {
		t.Fatalf("expected brokers split on comma, got %v", cfg.KafkaBrokers)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*Config){
		"context budget":      func(c *Config) { c.ContextBudgetChars = 0 },
		"top k":               func(c *Config) { c.RetrievalTopK = -1 },
		"relevance threshold": func(c *Config) { c.RelevanceThreshold = 1.5 },
		"reasoning timeout":   func(c *Config) { c.ReasoningTimeout = 0 },
		"section timeout":     func(c *Config) { c.SectionTimeout = -time.Second },
	}
	for name, mutate := range cases {
		cfg := Load()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("expected validation error for %s", name)
		}
	}
}
