// Package server parses exchange server flags and composes the HTTP entrypoint.
package server

import (
	"context"
	"flag"
	"fmt"
	"strings"

	entrypoint "github.com/louisbranch/secretsanta/internal/platform/cmd"
	"github.com/louisbranch/secretsanta/internal/platform/logging"
	exchange "github.com/louisbranch/secretsanta/internal/services/exchange/app"
)

// Config holds exchange server command configuration.
type Config struct {
	HTTPAddr       string   `env:"HTTP_ADDR"        envDefault:":8080"`
	GRPCAddr       string   `env:"GRPC_ADDR"        envDefault:":8081"`
	DBPath         string   `env:"DB_PATH"          envDefault:"data/secretsanta.db"`
	MaxUploadBytes int64    `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`
	MaxAttempts    int      `env:"MAX_ATTEMPTS"     envDefault:"32"`
	CORSOrigins    []string `env:"CORS_ORIGINS"     envDefault:"*" envSeparator:","`
	Logging        logging.Config
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	origins := strings.Join(cfg.CORSOrigins, ",")
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "gRPC health listen address (empty disables)")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite path for completed draws (empty disables persistence)")
	fs.Int64Var(&cfg.MaxUploadBytes, "max-upload-bytes", cfg.MaxUploadBytes, "maximum multipart upload size")
	fs.IntVar(&cfg.MaxAttempts, "max-attempts", cfg.MaxAttempts, "engine runs per draw before giving up")
	fs.StringVar(&origins, "cors-origins", origins, "comma-separated allowed browser origins")
	fs.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "log level (debug, info, warn, error)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	cfg.CORSOrigins = splitList(origins)
	return cfg, nil
}

// Run builds the exchange app and serves it until ctx ends.
func Run(ctx context.Context, cfg Config) error {
	logger, err := logging.New(entrypoint.ServiceExchange, cfg.Logging)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceExchange, func(ctx context.Context) error {
		if err := exchange.Run(ctx, exchange.Config{
			HTTPAddr:       cfg.HTTPAddr,
			GRPCAddr:       cfg.GRPCAddr,
			DBPath:         cfg.DBPath,
			MaxUploadBytes: cfg.MaxUploadBytes,
			MaxAttempts:    cfg.MaxAttempts,
			CORSOrigins:    cfg.CORSOrigins,
			Logger:         logger,
		}); err != nil {
			return fmt.Errorf("serve exchange: %w", err)
		}
		return nil
	})
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
