// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultGroqBaseURL is Groq's OpenAI-compatible endpoint.
const DefaultGroqBaseURL = "https://api.groq.com/openai/v1"

// Config represents the main configuration
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Chat        ChatConfig        `yaml:"chat"`
	Extract     ExtractConfig     `yaml:"extract"`
	FileStore   FileStoreConfig   `yaml:"file_store"`
	Transcripts TranscriptsConfig `yaml:"transcripts"`
	Auth        AuthConfig        `yaml:"auth"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host    string        `yaml:"host"`
	Port    int           `yaml:"port"`
	Timeout time.Duration `yaml:"timeout"`
	H2C     bool          `yaml:"h2c"` // serve cleartext HTTP/2 alongside HTTP/1.1
}

// ChatConfig configures the upstream chat-completions provider.
type ChatConfig struct {
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"` // empty selects the mock client
	Model       string        `yaml:"model"`
	VisionModel string        `yaml:"vision_model"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ExtractConfig bounds document uploads.
type ExtractConfig struct {
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

// FileStoreConfig selects and configures the file store backend.
type FileStoreConfig struct {
	Type       string `yaml:"type"` // "memory" (default), "filesystem" or "s3"
	BaseDir    string `yaml:"base_dir"`
	S3Bucket   string `yaml:"s3_bucket"`
	S3Region   string `yaml:"s3_region"`
	S3Prefix   string `yaml:"s3_prefix"`
	S3Endpoint string `yaml:"s3_endpoint"`
}

// Params flattens the backend options for the provider registry.
func (c FileStoreConfig) Params() map[string]string {
	return map[string]string{
		"base_dir": c.BaseDir,
		"bucket":   c.S3Bucket,
		"region":   c.S3Region,
		"prefix":   c.S3Prefix,
		"endpoint": c.S3Endpoint,
	}
}

// TranscriptsConfig selects the transcript store backend.
type TranscriptsConfig struct {
	Type        string `yaml:"type"` // "memory" (default), "sqlite", "postgres" or "redis"
	DSN         string `yaml:"dsn"`
	MaxMessages int    `yaml:"max_messages"`
}

// Params flattens the backend options for the provider registry.
func (c TranscriptsConfig) Params() map[string]string {
	return map[string]string{
		"dsn":          c.DSN,
		"max_messages": strconv.Itoa(c.MaxMessages),
	}
}

// AuthConfig configures the identity provider and sessions.
type AuthConfig struct {
	FirebaseAPIKey string        `yaml:"firebase_api_key"`
	Endpoint       string        `yaml:"endpoint"` // identity toolkit override, used against emulators
	SessionTTL     time.Duration `yaml:"session_ttl"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a YAML file on top of Default(), then applies environment
// overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns default configuration with environment overrides applied.
func Default() *Config {
	cfg := defaults()
	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Chat.Temperature < 0 || c.Chat.Temperature > 2 {
		return fmt.Errorf("chat.temperature %v out of range [0, 2]", c.Chat.Temperature)
	}
	if c.Extract.MaxUploadBytes < 0 {
		return fmt.Errorf("extract.max_upload_bytes must not be negative")
	}
	if c.Transcripts.MaxMessages < 0 {
		return fmt.Errorf("transcripts.max_messages must not be negative")
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8080,
			Timeout: 60 * time.Second,
		},
		Chat: ChatConfig{
			BaseURL:     DefaultGroqBaseURL,
			Model:       "llama-3.1-8b-instant",
			VisionModel: "llama-3.2-11b-vision-preview",
			Temperature: 0.7,
			Timeout:     60 * time.Second,
		},
		Extract: ExtractConfig{
			MaxUploadBytes: 20 << 20,
		},
		FileStore: FileStoreConfig{
			Type:    "memory",
			BaseDir: "./data/files",
		},
		Transcripts: TranscriptsConfig{
			Type:        "memory",
			MaxMessages: 500,
		},
		Auth: AuthConfig{
			SessionTTL: 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("GROQ_API_KEY"); v != "" {
		cfg.Chat.APIKey = v
	}
	if v := os.Getenv("GROQ_BASE_URL"); v != "" {
		cfg.Chat.BaseURL = v
	}
	if v := os.Getenv("FIREBASE_API_KEY"); v != "" {
		cfg.Auth.FirebaseAPIKey = v
	}
	if v := os.Getenv("FILE_STORE_TYPE"); v != "" {
		cfg.FileStore.Type = v
	}
	if v := os.Getenv("TRANSCRIPT_STORE_TYPE"); v != "" {
		cfg.Transcripts.Type = v
	}
	if v := os.Getenv("TRANSCRIPT_STORE_DSN"); v != "" {
		cfg.Transcripts.DSN = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// applyDefaults fills zero values left by a sparse YAML file.
func applyDefaults(cfg *Config) {
	d := defaults()
	if cfg.Chat.BaseURL == "" {
		cfg.Chat.BaseURL = d.Chat.BaseURL
	}
	if cfg.Chat.Model == "" {
		cfg.Chat.Model = d.Chat.Model
	}
	if cfg.Chat.VisionModel == "" {
		cfg.Chat.VisionModel = d.Chat.VisionModel
	}
	if cfg.Extract.MaxUploadBytes == 0 {
		cfg.Extract.MaxUploadBytes = d.Extract.MaxUploadBytes
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = d.FileStore.Type
	}
	if cfg.Transcripts.Type == "" {
		cfg.Transcripts.Type = d.Transcripts.Type
	}
	if cfg.Transcripts.MaxMessages == 0 {
		cfg.Transcripts.MaxMessages = d.Transcripts.MaxMessages
	}
	if cfg.Auth.SessionTTL == 0 {
		cfg.Auth.SessionTTL = d.Auth.SessionTTL
	}
}
