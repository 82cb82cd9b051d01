// Package server wires the exchange HTTP surface, gRPC health and storage
// lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"

	platformgrpc "github.com/louisbranch/secretsanta/internal/platform/grpc"
	"github.com/louisbranch/secretsanta/internal/platform/logging"
	"github.com/louisbranch/secretsanta/internal/platform/timeouts"
	"github.com/louisbranch/secretsanta/internal/services/exchange/metrics"
	"github.com/louisbranch/secretsanta/internal/services/exchange/service"
	"github.com/louisbranch/secretsanta/internal/services/exchange/storage/sqlite"
)

// HealthService is the gRPC health name reported by the exchange process.
const HealthService = "secretsanta.exchange"

// Config defines the inputs for the exchange process.
type Config struct {
	HTTPAddr string
	// GRPCAddr serves gRPC health checks. Empty disables gRPC.
	GRPCAddr string
	// DBPath stores completed draws. Empty keeps draws in the response only.
	DBPath            string
	MaxUploadBytes    int64
	MaxAttempts       int
	CORSOrigins       []string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	Logger            *zap.Logger
}

// Server hosts the exchange HTTP API and the gRPC health endpoint.
type Server struct {
	logger          *zap.Logger
	shutdownTimeout time.Duration
	httpListener    net.Listener
	httpServer      *http.Server
	grpcListener    net.Listener
	grpcServer      *gogrpc.Server
	health          *health.Server
	store           *sqlite.Store
}

// NewServer opens storage and binds the listeners described by config.
func NewServer(config Config) (*Server, error) {
	httpAddr := strings.TrimSpace(config.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	if config.ReadHeaderTimeout <= 0 {
		config.ReadHeaderTimeout = timeouts.ReadHeader
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = timeouts.Shutdown
	}
	logger := logging.OrNop(config.Logger)

	s := &Server{logger: logger, shutdownTimeout: config.ShutdownTimeout}
	var store *sqlite.Store
	if path := strings.TrimSpace(config.DBPath); path != "" {
		var err error
		if store, err = openStore(path); err != nil {
			return nil, err
		}
		s.store = store
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	svcConfig := service.Config{
		MaxAttempts: config.MaxAttempts,
		Metrics:     metrics.New(reg),
		Logger:      logger.Named("draw"),
	}
	if store != nil {
		svcConfig.Store = store
	}
	svc := service.New(svcConfig)

	httpListener, err := net.Listen("tcp", httpAddr)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("listen on %s: %w", httpAddr, err)
	}
	s.httpListener = httpListener
	s.httpServer = &http.Server{
		Handler: NewHandler(HandlerConfig{
			Service:        svc,
			Gatherer:       reg,
			Logger:         logger.Named("http"),
			MaxUploadBytes: config.MaxUploadBytes,
			CORSOrigins:    config.CORSOrigins,
		}),
		ReadHeaderTimeout: config.ReadHeaderTimeout,
		ReadTimeout:       timeouts.Upload,
	}

	if grpcAddr := strings.TrimSpace(config.GRPCAddr); grpcAddr != "" {
		grpcListener, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("listen on %s: %w", grpcAddr, err)
		}
		s.grpcListener = grpcListener
		s.grpcServer, s.health = platformgrpc.NewHealthServer(HealthService)
	}
	return s, nil
}

// Run creates and serves an exchange server until the context ends.
func Run(ctx context.Context, config Config) error {
	server, err := NewServer(config)
	if err != nil {
		return fmt.Errorf("init exchange server: %w", err)
	}
	defer server.Close()

	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve exchange: %w", err)
	}
	return nil
}

// HTTPAddr returns the bound HTTP listener address.
func (s *Server) HTTPAddr() string {
	if s == nil || s.httpListener == nil {
		return ""
	}
	return s.httpListener.Addr().String()
}

// GRPCAddr returns the bound gRPC listener address, or "" when gRPC is off.
func (s *Server) GRPCAddr() string {
	if s == nil || s.grpcListener == nil {
		return ""
	}
	return s.grpcListener.Addr().String()
}

// ListenAndServe runs the HTTP and gRPC servers until the context ends or
// either server fails, then shuts both down.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("exchange server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	g, gctx := errgroup.WithContext(ctx)
	s.logger.Info("exchange server listening", zap.String("http_addr", s.HTTPAddr()), zap.String("grpc_addr", s.GRPCAddr()))
	g.Go(func() error {
		err := s.httpServer.Serve(s.httpListener)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	})
	if s.grpcServer != nil {
		g.Go(func() error {
			err := s.grpcServer.Serve(s.grpcListener)
			if err == nil || errors.Is(err, gogrpc.ErrServerStopped) {
				return nil
			}
			return fmt.Errorf("serve gRPC: %w", err)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		if s.grpcServer != nil {
			s.health.Shutdown()
			s.grpcServer.GracefulStop()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// Close releases listeners and storage.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	if s.grpcListener != nil {
		_ = s.grpcListener.Close()
	}
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	if s.httpListener != nil {
		_ = s.httpListener.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn("close exchange store", zap.Error(err))
		}
	}
}

func openStore(path string) (*sqlite.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open exchange sqlite store: %w", err)
	}
	return store, nil
}
