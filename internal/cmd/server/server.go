// Package server wires configuration and lifecycle for the API server binary.
package server

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/saveurhq/tastebook/internal/ai"
	"github.com/saveurhq/tastebook/internal/platform/config"
	"github.com/saveurhq/tastebook/internal/platform/otel"
	"github.com/saveurhq/tastebook/internal/platform/timeouts"
	"github.com/saveurhq/tastebook/internal/server"
	"github.com/saveurhq/tastebook/internal/session"
	"github.com/saveurhq/tastebook/internal/storage/sqlite"
)

const (
	defaultAddr = ":8080"
	defaultDB   = "tastebook.db"
)

// Config holds the server command configuration.
type Config struct {
	Addr              string        `env:"TASTEBOOK_ADDR"`
	DBPath            string        `env:"TASTEBOOK_DB_PATH"`
	SessionIssuer     string        `env:"TASTEBOOK_SESSION_ISSUER"`
	SessionAudience   string        `env:"TASTEBOOK_SESSION_AUDIENCE"`
	SessionPrivateKey string        `env:"TASTEBOOK_SESSION_PRIVATE_KEY"`
	SessionTTL        time.Duration `env:"TASTEBOOK_SESSION_TTL"`
	GeminiAPIKey      string        `env:"TASTEBOOK_GEMINI_API_KEY"`
}

// ParseConfig parses environment variables and flag overrides into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{
		Addr:            defaultAddr,
		DBPath:          defaultDB,
		SessionIssuer:   "tastebook",
		SessionAudience: "tastebook-api",
	}
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if cfg.SessionPrivateKey == "" {
		return Config{}, fmt.Errorf("TASTEBOOK_SESSION_PRIVATE_KEY is required")
	}
	return cfg, nil
}

// Run starts the API server and blocks until ctx is canceled.
func Run(ctx context.Context, cfg Config) error {
	shutdownTracing, err := otel.Setup(ctx, "tastebook-server")
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Printf("shutdown tracing: %v", err)
		}
	}()

	sessions, err := session.NewConfig(cfg.SessionIssuer, cfg.SessionAudience, cfg.SessionPrivateKey, cfg.SessionTTL, nil)
	if err != nil {
		return fmt.Errorf("init sessions: %w", err)
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("close storage: %v", err)
		}
	}()

	opts := []server.Option{}
	if cfg.GeminiAPIKey != "" {
		provider, err := ai.NewGemini(ctx, ai.GeminiConfig{APIKey: cfg.GeminiAPIKey})
		if err != nil {
			return fmt.Errorf("init ai provider: %w", err)
		}
		opts = append(opts, server.WithAIFlows(ai.NewFlows(provider)))
	} else {
		log.Printf("ai flows disabled: TASTEBOOK_GEMINI_API_KEY is not set")
	}

	api := server.New(store, sessions, opts...)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Printf("listening addr=%s db=%s", cfg.Addr, cfg.DBPath)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http: %w", err)
		}
		return nil
	})
	return group.Wait()
}
