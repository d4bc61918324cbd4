// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var envKeys = []string{
	"GROQ_API_KEY", "GROQ_BASE_URL", "FIREBASE_API_KEY", "FILE_STORE_TYPE",
	"TRANSCRIPT_STORE_TYPE", "TRANSCRIPT_STORE_DSN", "LOG_LEVEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	clearEnv(t)
	cfg := Default()

	if cfg.Server.Port != 8080 || cfg.Server.Timeout != 60*time.Second {
		t.Errorf("server defaults = %+v", cfg.Server)
	}
	if cfg.Chat.BaseURL != DefaultGroqBaseURL {
		t.Errorf("BaseURL = %q", cfg.Chat.BaseURL)
	}
	if cfg.Chat.Model != "llama-3.1-8b-instant" || cfg.Chat.VisionModel != "llama-3.2-11b-vision-preview" {
		t.Errorf("models = %q / %q", cfg.Chat.Model, cfg.Chat.VisionModel)
	}
	if cfg.Chat.Temperature != 0.7 {
		t.Errorf("Temperature = %v", cfg.Chat.Temperature)
	}
	if cfg.Chat.APIKey != "" {
		t.Error("APIKey should be empty without GROQ_API_KEY")
	}
	if cfg.Transcripts.MaxMessages != 500 || cfg.Transcripts.Type != "memory" {
		t.Errorf("transcripts = %+v", cfg.Transcripts)
	}
	if cfg.FileStore.Type != "memory" {
		t.Errorf("file store type = %q", cfg.FileStore.Type)
	}
}

func TestLoad_SparseFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server:
  port: 9090
  h2c: true
chat:
  temperature: 0.2
transcripts:
  type: sqlite
  dsn: file:doodle.db
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 || !cfg.Server.H2C {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Host default lost: %q", cfg.Server.Host)
	}
	if cfg.Chat.Temperature != 0.2 || cfg.Chat.Model != "llama-3.1-8b-instant" {
		t.Errorf("chat = %+v", cfg.Chat)
	}
	if cfg.Transcripts.Type != "sqlite" || cfg.Transcripts.MaxMessages != 500 {
		t.Errorf("transcripts = %+v", cfg.Transcripts)
	}
	if got := cfg.Transcripts.Params()["max_messages"]; got != "500" {
		t.Errorf("max_messages param = %q", got)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("GROQ_API_KEY", "gsk_env")
	t.Setenv("FILE_STORE_TYPE", "s3")
	t.Setenv("TRANSCRIPT_STORE_DSN", "redis://localhost:6379/0")
	t.Setenv("LOG_LEVEL", "debug")

	path := writeConfig(t, `
chat:
  api_key: gsk_file
file_store:
  type: filesystem
  s3_bucket: uploads
logging:
  level: warn
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Chat.APIKey != "gsk_env" {
		t.Errorf("APIKey = %q", cfg.Chat.APIKey)
	}
	if cfg.FileStore.Type != "s3" || cfg.FileStore.Params()["bucket"] != "uploads" {
		t.Errorf("file store = %+v", cfg.FileStore)
	}
	if cfg.Transcripts.DSN != "redis://localhost:6379/0" {
		t.Errorf("DSN = %q", cfg.Transcripts.DSN)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %q", cfg.Logging.Level)
	}
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name string
		body string
	}{
		{"bad yaml", "server: [unclosed"},
		{"port range", "server:\n  port: 70000\n"},
		{"temperature range", "chat:\n  temperature: 3\n"},
		{"negative upload", "extract:\n  max_upload_bytes: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
