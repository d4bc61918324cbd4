// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	httpAdapter "github.com/doodlechat/doodle-gw/pkg/adapters/http"
	"github.com/doodlechat/doodle-gw/pkg/auth"
	"github.com/doodlechat/doodle-gw/pkg/core/api"
	"github.com/doodlechat/doodle-gw/pkg/core/config"
	"github.com/doodlechat/doodle-gw/pkg/core/services"
	"github.com/doodlechat/doodle-gw/pkg/core/state"
	"github.com/doodlechat/doodle-gw/pkg/extractor"
	"github.com/doodlechat/doodle-gw/pkg/filestore"
	"github.com/doodlechat/doodle-gw/pkg/observability/logging"

	// File store backends
	_ "github.com/doodlechat/doodle-gw/pkg/filestore/filesystem"
	_ "github.com/doodlechat/doodle-gw/pkg/filestore/memory"
	_ "github.com/doodlechat/doodle-gw/pkg/filestore/s3"

	// Transcript store backends
	_ "github.com/doodlechat/doodle-gw/pkg/storage/memory"
	_ "github.com/doodlechat/doodle-gw/pkg/storage/postgres"
	_ "github.com/doodlechat/doodle-gw/pkg/storage/redis"
	_ "github.com/doodlechat/doodle-gw/pkg/storage/sqlite"
)

var (
	// Version is set via ldflags during build
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	port := flag.Int("port", 0, "HTTP port to listen on (overrides config)")
	version := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *version {
		fmt.Printf("Doodle Gateway Server\nVersion: %s\nBuild Time: %s\n", Version, BuildTime)
		os.Exit(0)
	}

	// .env is optional; real environment variables win.
	dotenvErr := godotenv.Load()

	cfg, usedDefaults, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config %s: %v\n", *configPath, err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	logger.Info("Starting Doodle Gateway Server",
		"version", Version,
		"build_time", BuildTime)
	if dotenvErr != nil && !errors.Is(dotenvErr, fs.ErrNotExist) {
		logger.Warn("Failed to load .env file", "error", dotenvErr)
	}
	if usedDefaults {
		logger.Info("Config file not found, using defaults", "path", *configPath)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

// loadConfig reads path. A missing file yields the defaults; a file that
// fails to parse or validate is an error.
func loadConfig(path string) (cfg *config.Config, usedDefaults bool, err error) {
	cfg, err = config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return config.Default(), true, nil
	}
	if err != nil {
		return nil, false, err
	}
	return cfg, false, nil
}

func run(cfg *config.Config, logger *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	files, err := filestore.Providers.New(ctx, cfg.FileStore.Type, cfg.FileStore.Params())
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}
	defer files.Close(context.Background())
	logger.Info("Initialized file store", "type", cfg.FileStore.Type)

	transcripts, err := state.Providers.New(ctx, cfg.Transcripts.Type, cfg.Transcripts.Params())
	if err != nil {
		return fmt.Errorf("init transcript store: %w", err)
	}
	defer transcripts.Close()
	logger.Info("Initialized transcript store", "type", cfg.Transcripts.Type, "max_messages", cfg.Transcripts.MaxMessages)

	var client api.ChatCompletionClient
	if cfg.Chat.APIKey == "" {
		logger.Warn("GROQ_API_KEY is not set, using mock chat client")
		client = api.NewMockChatCompletionClient()
	} else {
		client = api.NewOpenAIClient(cfg.Chat.BaseURL, cfg.Chat.APIKey, cfg.Chat.Timeout)
		logger.Info("Initialized chat client", "base_url", cfg.Chat.BaseURL, "model", cfg.Chat.Model)
	}

	var identity auth.IdentityProvider
	if cfg.Auth.FirebaseAPIKey == "" {
		logger.Warn("FIREBASE_API_KEY is not set, authentication is disabled")
	} else {
		fp, err := auth.NewFirebaseProvider(ctx, auth.FirebaseOptions{
			APIKey:   cfg.Auth.FirebaseAPIKey,
			Endpoint: cfg.Auth.Endpoint,
		})
		if err != nil {
			return fmt.Errorf("init identity provider: %w", err)
		}
		identity = fp
		logger.Info("Initialized Firebase identity provider")
	}

	chatOpts := services.ChatOptions{
		Model:       cfg.Chat.Model,
		VisionModel: cfg.Chat.VisionModel,
		Temperature: cfg.Chat.Temperature,
	}
	ex := extractor.New()

	var handler http.Handler = httpAdapter.New(logger, httpAdapter.Options{
		Chat:           services.NewChatService(client, chatOpts),
		Files:          services.NewFileService(files, ex, cfg.Extract.MaxUploadBytes),
		Models:         services.NewModelsService(chatOpts),
		Extractor:      ex,
		Transcripts:    transcripts,
		Identity:       identity,
		Sessions:       auth.NewSessionManager(cfg.Auth.SessionTTL),
		MaxUploadBytes: cfg.Extract.MaxUploadBytes,
	})
	if cfg.Server.H2C {
		handler = h2c.NewHandler(handler, &http2.Server{})
		logger.Info("Cleartext HTTP/2 enabled")
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
