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

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/poiesic/dailyrag"
	"github.com/poiesic/dailyrag/ai/openai"
	"github.com/poiesic/dailyrag/cache"
	"github.com/poiesic/dailyrag/config"
	"github.com/poiesic/dailyrag/core"
	"github.com/poiesic/dailyrag/reembed"
	"github.com/poiesic/dailyrag/storage/badger"
	"github.com/poiesic/dailyrag/web"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "dailyrag",
		Usage: "Ask questions about today's article",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file (default: " + config.DefaultPath() + ")",
				EnvVars: []string{"DAILYRAG_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Dotenv file to load before reading the config",
				Value: ".env",
			},
		},
		Before: func(c *cli.Context) error {
			if err := setupLogger(c); err != nil {
				return err
			}
			return loadEnvFile(c.String("env-file"))
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Build or reuse today's index and serve the question form",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address (overrides web.addr)",
					},
				},
			},
			{
				Name:      "ask",
				Usage:     "Answer one question about today's article",
				ArgsUsage: "<question>",
				Action:    askCommand,
			},
			{
				Name:      "search",
				Usage:     "Show the chunks most similar to a query",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "top",
						Aliases: []string{"n"},
						Usage:   "Number of chunks to show",
						Value:   5,
					},
				},
			},
			{
				Name:   "list",
				Usage:  "List cached indexes",
				Action: listCommand,
			},
			{
				Name:   "prune",
				Usage:  "Remove cached indexes older than the retention window",
				Action: pruneCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Only print what would be removed",
					},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Reembed a cached index with another embedding model",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "date",
						Aliases: []string{"d"},
						Usage:   "Date key of the index (dd.mm.yy, default today)",
					},
					&cli.StringFlag{
						Name:     "embedding-model",
						Usage:    "Embedding model name",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL (overrides the config)",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks to process in each batch",
						Value: reembed.DefaultBatchSize,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N chunks",
						Value: 50,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func openAssistant(ctx context.Context, c *cli.Context) (*dailyrag.Assistant, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	assistant, err := dailyrag.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare index: %w", err)
	}
	return assistant, nil
}

func serveCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	addr := cfg.Web.Addr
	if c.IsSet("addr") {
		addr = c.String("addr")
	}

	assistant, err := dailyrag.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to prepare index: %w", err)
	}
	defer assistant.Close()

	handler, err := web.NewHandler(assistant, web.NewPage(cfg.Web.Title, assistant.Key().String()))
	if err != nil {
		return err
	}

	if !slog.Default().Enabled(ctx, slog.LevelDebug) {
		gin.SetMode(gin.ReleaseMode)
	}

	slog.Info("serving", "addr", addr, "date", assistant.Key(), "reused", assistant.Reused())
	return web.Serve(ctx, addr, web.NewRouter(handler, cfg.Web.AllowedOrigins))
}

func askCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return fmt.Errorf("a question is required")
	}

	ctx := context.Background()
	assistant, err := openAssistant(ctx, c)
	if err != nil {
		return err
	}
	defer assistant.Close()

	text, err := assistant.Ask(ctx, question)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, text)
	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("a query is required")
	}
	if c.Int("top") < 1 {
		return fmt.Errorf("top must be greater than 0")
	}

	ctx := context.Background()
	assistant, err := openAssistant(ctx, c)
	if err != nil {
		return err
	}
	defer assistant.Close()

	results, err := assistant.Search(ctx, query, c.Int("top"))
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintf(w, "Found %d hits\n", len(results))
	for i, hit := range results {
		fmt.Fprintf(w, "%d: '%s' (%d)[%0.3f]\n", i, hit.Chunk.Content, hit.Chunk.Position, hit.Score)
	}
	return nil
}

func newCacheManager(c *cli.Context) (*cache.Manager, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	return cache.NewManager(cfg.CacheRoot, cache.WithRetentionDays(cfg.RetentionDays))
}

func listCommand(c *cli.Context) error {
	manager, err := newCacheManager(c)
	if err != nil {
		return err
	}

	entries, err := manager.Entries()
	if err != nil {
		return err
	}

	w := c.App.Writer
	if len(entries) == 0 {
		fmt.Fprintf(w, "No cached indexes in %s\n", manager.Root())
		return nil
	}
	for _, entry := range entries {
		if !entry.Reuse {
			fmt.Fprintf(w, "%s\tincomplete\n", entry.Key)
			continue
		}
		manifest, err := manager.Manifest(entry)
		if err != nil {
			fmt.Fprintf(w, "%s\tcorrupt: %v\n", entry.Key, err)
			continue
		}
		fmt.Fprintf(w, "%s\t%d chunks\t%s\t%s\n", entry.Key, manifest.Chunks, manifest.EmbeddingModel, manifest.SourceURL)
	}
	return nil
}

func pruneCommand(c *cli.Context) error {
	manager, err := newCacheManager(c)
	if err != nil {
		return err
	}

	now := time.Now()
	var keys []core.DateKey
	verb := "Removed"
	if c.Bool("dry-run") {
		verb = "Would remove"
		keys, err = manager.Expired(now)
	} else {
		keys, err = manager.Prune(now)
	}
	if err != nil {
		return err
	}

	w := c.App.Writer
	if len(keys) == 0 {
		fmt.Fprintf(w, "Nothing older than %d days\n", manager.RetentionDays())
		return nil
	}
	for _, key := range keys {
		fmt.Fprintf(w, "%s %s\n", verb, key)
	}
	return nil
}

func reembedCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	manager, err := cache.NewManager(cfg.CacheRoot, cache.WithRetentionDays(cfg.RetentionDays))
	if err != nil {
		return err
	}

	key := core.TodayKey(time.Now())
	if c.IsSet("date") {
		key = core.DateKey(c.String("date"))
	}
	entry, err := manager.Resolve(key)
	if err != nil {
		return err
	}
	manifest, err := manager.Manifest(entry)
	if err != nil {
		return err
	}

	reembedConfig := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	if err := validateReembedConfig(reembedConfig); err != nil {
		return err
	}

	aiConfig := cfg.AIServices()
	aiConfig.EmbeddingModel = c.String("embedding-model")
	if c.IsSet("embedding-host") {
		aiConfig.EmbeddingHost = c.String("embedding-host")
	}
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	embedder, err := openai.NewEmbedder(aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	backend, err := badger.OpenBackend(entry.StorePath(), false)
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer backend.Close()

	reembedder, err := reembed.NewReembedder(
		badger.NewChunkRepository(backend),
		badger.NewCheckpointRepository(backend),
		embedder,
		aiConfig.EmbeddingModel,
		reembedConfig,
		os.Stderr,
	)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Index: %s (%s)\n", entry.Key, entry.StorePath())
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", aiConfig.EmbeddingHost)
	fmt.Fprintf(os.Stderr, "Embedding model: %s -> %s\n", manifest.EmbeddingModel, aiConfig.EmbeddingModel)
	fmt.Fprintln(os.Stderr)

	if _, err := reembedder.Run(ctx); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}

	manifest.EmbeddingModel = aiConfig.EmbeddingModel
	if err := manager.Commit(entry, *manifest); err != nil {
		return fmt.Errorf("failed to update index marker: %w", err)
	}
	return nil
}

func validateReembedConfig(cfg *reembed.Config) error {
	if cfg.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if cfg.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if cfg.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}
	return nil
}

// loadEnvFile loads variables such as OLLAMA_HOST from a dotenv file.
// A missing file is not an error. Variables already set are kept.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
