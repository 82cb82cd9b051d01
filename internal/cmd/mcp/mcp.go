// Package mcp parses MCP command flags and serves the draw tools over stdio.
package mcp

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	entrypoint "github.com/louisbranch/secretsanta/internal/platform/cmd"
	"github.com/louisbranch/secretsanta/internal/platform/logging"
	"github.com/louisbranch/secretsanta/internal/services/exchange/mcptools"
	"github.com/louisbranch/secretsanta/internal/services/exchange/service"
	"github.com/louisbranch/secretsanta/internal/services/exchange/storage/sqlite"
)

// Config holds MCP command configuration.
type Config struct {
	DBPath      string `env:"DB_PATH"`
	MaxAttempts int    `env:"MAX_ATTEMPTS" envDefault:"32"`
	Version     string `env:"MCP_VERSION"  envDefault:"dev"`
	Logging     logging.Config
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite path for completed draws (empty disables get_draw)")
	fs.IntVar(&cfg.MaxAttempts, "max-attempts", cfg.MaxAttempts, "engine runs per draw before giving up")
	fs.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "log level (debug, info, warn, error)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run serves the MCP tools on stdio until the client disconnects or ctx ends.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceMCP, func(ctx context.Context) error {
		server, closeStore, err := newServer(cfg)
		if err != nil {
			return err
		}
		defer closeStore()
		return mcptools.Serve(ctx, server, nil)
	})
}

func newServer(cfg Config) (*sdkmcp.Server, func(), error) {
	logger, err := logging.New(entrypoint.ServiceMCP, cfg.Logging)
	if err != nil {
		return nil, nil, err
	}

	svcConfig := service.Config{MaxAttempts: cfg.MaxAttempts, Logger: logger.Named("draw")}
	closeStore := func() { _ = logger.Sync() }
	if path := strings.TrimSpace(cfg.DBPath); path != "" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("create storage dir: %w", err)
			}
		}
		store, err := sqlite.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open exchange sqlite store: %w", err)
		}
		svcConfig.Store = store
		closeStore = func() {
			if err := store.Close(); err != nil {
				logger.Warn("close exchange store", zap.Error(err))
			}
			_ = logger.Sync()
		}
	}
	return mcptools.NewServer(service.New(svcConfig), cfg.Version), closeStore, nil
}
