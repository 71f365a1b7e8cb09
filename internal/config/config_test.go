package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Expected defaults to load, got error: %v", err)
	}

	if cfg.Port != 7860 {
		t.Errorf("Expected default port 7860, got %d", cfg.Port)
	}
	if cfg.OutputDir != "/app/output" {
		t.Errorf("Expected default output dir '/app/output', got '%s'", cfg.OutputDir)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("Expected default model 'gpt-4o-mini', got '%s'", cfg.LLM.Model)
	}
	if cfg.Sandbox.Timeout != 30*time.Second {
		t.Errorf("Expected default sandbox timeout 30s, got %s", cfg.Sandbox.Timeout)
	}
	if cfg.DrainGrace != 10*time.Second {
		t.Errorf("Expected default drain grace 10s, got %s", cfg.DrainGrace)
	}
	if cfg.Addr() != "0.0.0.0:7860" {
		t.Errorf("Expected addr '0.0.0.0:7860', got '%s'", cfg.Addr())
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TASKFORGE_PORT", "9000")
	t.Setenv("TASKFORGE_OUTPUT_DIR", "/tmp/out")
	t.Setenv("TASKFORGE_LLM_MODEL", "gpt-4o")
	t.Setenv("TASKFORGE_LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Expected env overrides to load, got error: %v", err)
	}

	if cfg.Port != 9000 {
		t.Errorf("Expected port 9000 from env, got %d", cfg.Port)
	}
	if cfg.OutputDir != "/tmp/out" {
		t.Errorf("Expected output dir '/tmp/out' from env, got '%s'", cfg.OutputDir)
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Errorf("Expected model 'gpt-4o' from env, got '%s'", cfg.LLM.Model)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected log level 'debug' from env, got '%s'", cfg.LogLevel)
	}
}

func TestLoad_APIKeyFromEnv(t *testing.T) {
	t.Setenv("TASKFORGE_LLM_API_KEY", "sk-from-env")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Expected config to load, got error: %v", err)
	}

	if cfg.LLM.APIKey != "sk-from-env" {
		t.Errorf("Expected API key from TASKFORGE_LLM_API_KEY, got '%s'", cfg.LLM.APIKey)
	}
}

func TestLoad_ExplicitKeyWinsOverFallback(t *testing.T) {
	t.Setenv("TASKFORGE_LLM_API_KEY", "sk-explicit")
	t.Setenv("OPENAI_API_KEY", "sk-fallback")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Expected config to load, got error: %v", err)
	}

	if cfg.LLM.APIKey != "sk-explicit" {
		t.Errorf("Expected explicit key to win, got '%s'", cfg.LLM.APIKey)
	}
}

func TestLoad_APIKeyFallback(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Expected config to load, got error: %v", err)
	}

	if cfg.LLM.APIKey != "sk-test" {
		t.Errorf("Expected API key from OPENAI_API_KEY, got '%s'", cfg.LLM.APIKey)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	tmpDir := t.TempDir()

	content := `port: 8080
output_dir: /data/output
llm:
  model: llama-3.3-70b
  base_url: https://api.example.com/v1
sandbox:
  image: python:3.11-slim
  timeout: 45s
drain_grace: 5s
`
	filePath := filepath.Join(tmpDir, "taskforge.yaml")
	if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(filePath)
	if err != nil {
		t.Fatalf("Expected config file to load, got error: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.Port)
	}
	if cfg.LLM.BaseURL != "https://api.example.com/v1" {
		t.Errorf("Expected base URL from file, got '%s'", cfg.LLM.BaseURL)
	}
	if cfg.Sandbox.Timeout != 45*time.Second {
		t.Errorf("Expected sandbox timeout 45s, got %s", cfg.Sandbox.Timeout)
	}
	if cfg.DrainGrace != 5*time.Second {
		t.Errorf("Expected drain grace 5s, got %s", cfg.DrainGrace)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("nonexistent-config.yaml")
	if err == nil {
		t.Fatal("Expected error for non-existent config file, got nil")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("Expected 'not found' in error, got: %v", err)
	}
}

func TestValidator_SharedInstance(t *testing.T) {
	if Validator() == nil {
		t.Fatal("Expected a shared validator instance, got nil")
	}
	if Validator() != validate {
		t.Error("Expected Validator() to return the package instance")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		contains string
	}{
		{
			name:     "port out of range",
			content:  "port: 70000\n",
			contains: "Port",
		},
		{
			name:     "bad log level",
			content:  "log_level: verbose\n",
			contains: "LogLevel",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filePath := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(filePath, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}

			_, err := Load(filePath)
			if err == nil {
				t.Fatal("Expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("Expected error mentioning '%s', got: %v", tt.contains, err)
			}
		})
	}
}
