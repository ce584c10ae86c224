package terminology

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizeRewritesColloquialTerms(t *testing.T) {
	cat := DefaultCatalog()

	cases := map[string]string{
		"我父亲得过心梗，我血糖高怎么办？": "我父亲得过心肌梗死，我高血糖怎么办？",
		"T2DM患者能用二甲双胍吗":    "2型糖尿病患者能用二甲双胍吗",
		"中风后如何康复":          "脑卒中后如何康复",
		"没有任何术语的问题":        "没有任何术语的问题",
	}
	for input, want := range cases {
		if got := cat.Normalize(input); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestNormalizePrefersLongestTerm(t *testing.T) {
	cat := DefaultCatalog()

	got := cat.Normalize("急性心梗需要急诊处理")
	if got != "急性心肌梗死需要急诊处理" {
		t.Fatalf("expected longest-term match to win, got %q", got)
	}
}

func TestLookup(t *testing.T) {
	cat := DefaultCatalog()

	canonical, ok := cat.Lookup("房颤")
	if !ok || canonical != "心房颤动" {
		t.Fatalf("Lookup(房颤) = %q, %v", canonical, ok)
	}
	if _, ok := cat.Lookup("不存在的术语"); ok {
		t.Fatal("expected miss for unknown term")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terms.yaml")
	content := "terms:\n  心梗: 心肌梗死\n  拉肚子: 腹泻\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	cat, err := Load(path)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if got := cat.Normalize("孩子拉肚子还心梗"); got != "孩子腹泻还心肌梗死" {
		t.Fatalf("unexpected normalization %q", got)
	}
}

func TestLoadRejectsEmptyCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, []byte("terms: {}\n"), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for empty catalog")
	}
}
