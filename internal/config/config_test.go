package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Engine.MaxIterations != 10 {
		t.Errorf("expected default max_iterations 10, got %d", cfg.Engine.MaxIterations)
	}

	if cfg.Engine.ReasoningRetries != 2 {
		t.Errorf("expected default reasoning_retries 2, got %d", cfg.Engine.ReasoningRetries)
	}

	if cfg.Anthropic.MaxTokens != 4096 {
		t.Errorf("expected default max_tokens 4096, got %d", cfg.Anthropic.MaxTokens)
	}

	if cfg.Timeouts.Todo != 2*time.Minute {
		t.Errorf("expected todo timeout 2m, got %v", cfg.Timeouts.Todo)
	}

	if cfg.TUI.RefreshRate != 100*time.Millisecond {
		t.Errorf("expected refresh rate 100ms, got %v", cfg.TUI.RefreshRate)
	}
}

func TestLoadFromPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
anthropic:
  api_key: test-key
  model: claude-sonnet-4-20250514
  max_tokens: 2048
engine:
  max_iterations: 5
  reasoning_retries: 1
  use_heuristic: true
timeouts:
  todo: 30s
  reasoning: 45s
state:
  path: /tmp/cotflow-test.db
tui:
  refresh_rate: 200ms
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Anthropic.APIKey != "test-key" {
		t.Errorf("api_key = %q", cfg.Anthropic.APIKey)
	}
	if cfg.Anthropic.Model != "claude-sonnet-4-20250514" {
		t.Errorf("model = %q", cfg.Anthropic.Model)
	}
	if cfg.Anthropic.MaxTokens != 2048 {
		t.Errorf("max_tokens = %d", cfg.Anthropic.MaxTokens)
	}
	if cfg.Engine.MaxIterations != 5 {
		t.Errorf("max_iterations = %d", cfg.Engine.MaxIterations)
	}
	if !cfg.Engine.UseHeuristic {
		t.Error("use_heuristic not set")
	}
	if cfg.Timeouts.Todo != 30*time.Second {
		t.Errorf("todo timeout = %v", cfg.Timeouts.Todo)
	}
	if cfg.Timeouts.Reasoning != 45*time.Second {
		t.Errorf("reasoning timeout = %v", cfg.Timeouts.Reasoning)
	}
	if cfg.State.Path != "/tmp/cotflow-test.db" {
		t.Errorf("state path = %q", cfg.State.Path)
	}
	if cfg.TUI.RefreshRate != 200*time.Millisecond {
		t.Errorf("refresh_rate = %v", cfg.TUI.RefreshRate)
	}
}

func TestLoadFromPathAppliesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("anthropic:\n  api_key: k\n"), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Engine.MaxIterations != 10 {
		t.Errorf("default max_iterations not applied, got %d", cfg.Engine.MaxIterations)
	}
	if cfg.Anthropic.MaxTokens != 4096 {
		t.Errorf("default max_tokens not applied, got %d", cfg.Anthropic.MaxTokens)
	}
}

func TestLoadFromPathExpandsEnv(t *testing.T) {
	t.Setenv("COTFLOW_TEST_KEY", "expanded-key")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("anthropic:\n  api_key: ${COTFLOW_TEST_KEY}\n"), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Anthropic.APIKey != "expanded-key" {
		t.Errorf("api_key = %q, want expanded env value", cfg.Anthropic.APIKey)
	}
}

func TestLoadFromPathMissingFile(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
