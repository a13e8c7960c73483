// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads dailyrag settings from defaults, an optional YAML
// file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/poiesic/dailyrag/ai"
	"github.com/poiesic/dailyrag/answer"
	"github.com/poiesic/dailyrag/article"
	"github.com/poiesic/dailyrag/cache"
	"github.com/poiesic/dailyrag/core"
	"github.com/poiesic/dailyrag/ingestion"
	"gopkg.in/yaml.v3"
)

// AppName names the xdg subdirectories used by dailyrag.
const AppName = "dailyrag"

// EnvOllamaHost overrides the AI service address.
const EnvOllamaHost = "OLLAMA_HOST"

// AIConfig selects the embedding and chat services.
type AIConfig struct {
	// Host is used for both services unless a specific host is set.
	Host           string `yaml:"host"`
	EmbeddingHost  string `yaml:"embedding_host,omitempty"`
	ChatHost       string `yaml:"chat_host,omitempty"`
	EmbeddingModel string `yaml:"embedding_model"`
	ChatModel      string `yaml:"chat_model"`
}

// WebConfig configures the question form server.
type WebConfig struct {
	Addr           string   `yaml:"addr"`
	Title          string   `yaml:"title"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
}

// Config is the complete runtime configuration.
type Config struct {
	CacheRoot     string        `yaml:"cache_root"`
	RetentionDays int           `yaml:"retention_days"`
	SourceBaseURL string        `yaml:"source_base_url"`
	Extractor     string        `yaml:"extractor"`
	FetchTimeout  time.Duration `yaml:"fetch_timeout"`
	ChunkSize     int           `yaml:"chunk_size"`
	ChunkOverlap  int           `yaml:"chunk_overlap"`
	BatchSize     int           `yaml:"batch_size"`
	Workers       int           `yaml:"workers,omitempty"`
	TopN          int           `yaml:"top_n"`
	QueryTimeout  time.Duration `yaml:"query_timeout,omitempty"`
	AI            AIConfig      `yaml:"ai"`
	Web           WebConfig     `yaml:"web"`
}

// DefaultPath returns the config file location under the xdg config home.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// DefaultCacheRoot returns the index cache location under the xdg data home.
func DefaultCacheRoot() string {
	return filepath.Join(xdg.DataHome, AppName, "db")
}

// Default returns the built-in configuration.
func Default() *Config {
	defaults := ai.DefaultConfig()
	return &Config{
		CacheRoot:     DefaultCacheRoot(),
		RetentionDays: cache.DefaultRetentionDays,
		SourceBaseURL: core.DefaultSourceBaseURL,
		Extractor:     article.FormatText,
		FetchTimeout:  article.DefaultFetchTimeout,
		ChunkSize:     ingestion.DefaultChunkSize,
		ChunkOverlap:  ingestion.DefaultChunkOverlap,
		BatchSize:     ingestion.DefaultBatchSize,
		TopN:          answer.DefaultTopN,
		AI: AIConfig{
			Host:           ai.DefaultHost,
			EmbeddingModel: defaults.EmbeddingModel,
			ChatModel:      defaults.ChatModel,
		},
		Web: WebConfig{
			Addr:  "127.0.0.1:8080",
			Title: "RAG with qwen2.5",
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path means DefaultPath, which may be
// absent. An explicitly named file must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// Defaults only
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg.ApplyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv applies environment overrides using lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if host, ok := lookup(EnvOllamaHost); ok && host != "" {
		c.AI.Host = host
		c.AI.EmbeddingHost = ""
		c.AI.ChatHost = ""
	}
}

// AIServices returns the provider configuration, normalized.
func (c *Config) AIServices() *ai.Config {
	opts := []ai.ConfigOption{
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithChatModel(c.AI.ChatModel),
	}
	if c.AI.Host != "" {
		opts = append(opts, ai.WithHost(c.AI.Host))
	}
	if c.AI.EmbeddingHost != "" {
		opts = append(opts, ai.WithEmbeddingHost(c.AI.EmbeddingHost))
	}
	if c.AI.ChatHost != "" {
		opts = append(opts, ai.WithChatHost(c.AI.ChatHost))
	}

	cfg := ai.NewConfig(opts...)
	cfg.Normalize()
	return cfg
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if c.CacheRoot == "" {
		return fmt.Errorf("%w: cache_root is required", ErrInvalidConfig)
	}
	if c.RetentionDays < 0 {
		return fmt.Errorf("%w: retention_days must not be negative, got %d", ErrInvalidConfig, c.RetentionDays)
	}
	u, err := url.Parse(c.SourceBaseURL)
	if err != nil {
		return fmt.Errorf("%w: source_base_url: %w", ErrInvalidConfig, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: source_base_url scheme must be http or https, got %q", ErrInvalidConfig, u.Scheme)
	}
	if _, err := article.NewExtractor(c.Extractor); err != nil {
		return fmt.Errorf("%w: extractor: %w", ErrInvalidConfig, err)
	}
	if c.FetchTimeout < 0 || c.QueryTimeout < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", ErrInvalidConfig)
	}
	if c.ChunkSize < 1 || c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap must be in [0, chunk_size), got size %d overlap %d",
			ErrInvalidConfig, c.ChunkSize, c.ChunkOverlap)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("%w: batch_size must be at least 1, got %d", ErrInvalidConfig, c.BatchSize)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.TopN < 1 {
		return fmt.Errorf("%w: top_n must be at least 1, got %d", ErrInvalidConfig, c.TopN)
	}
	if err := c.AIServices().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
