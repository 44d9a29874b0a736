package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/GoSim-25-26J-441/tsi/internal/engine"
	"github.com/GoSim-25-26J-441/tsi/internal/tsid"
	"github.com/GoSim-25-26J-441/tsi/pkg/config"
	"github.com/GoSim-25-26J-441/tsi/pkg/logger"
)

func loadCatalog(path string) (*engine.Catalog, error) {
	if path == "" {
		return engine.LoadEmbedded()
	}
	return engine.LoadFile(path)
}

func main() {
	var configPath string
	var grpcAddr string
	var httpAddr string
	var logLevel string

	flag.StringVar(&configPath, "config", "", "path to YAML config file")
	flag.StringVar(&grpcAddr, "grpc-addr", "", "gRPC listen address (overrides config)")
	flag.StringVar(&httpAddr, "http-addr", "", "HTTP listen address (overrides config)")
	flag.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if grpcAddr != "" {
		cfg.Server.GRPCAddr = grpcAddr
	}
	if httpAddr != "" {
		cfg.Server.HTTPAddr = httpAddr
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	logger.SetDefault(logger.NewWithFormat(cfg.Log.Format, cfg.Log.Level, os.Stdout))

	catalog, err := loadCatalog(cfg.Catalog.Path)
	if err != nil {
		logger.Error("failed to load engine catalog", "path", cfg.Catalog.Path, "error", err)
		os.Exit(1)
	}

	service, err := tsid.NewService(catalog, cfg)
	if err != nil {
		logger.Error("invalid optimizer config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	store := tsid.NewRunStore()
	notifier := tsid.NewNotifier(cfg.Callback).WithMetrics(service.Metrics())
	executor := tsid.NewRunExecutor(store, service, notifier)

	grpcServer := grpc.NewServer()
	tsid.RegisterOptimizerServiceServer(grpcServer, tsid.NewOptimizerGRPCServer(service))
	healthServer := health.NewServer()
	healthServer.SetServingStatus(tsid.OptimizerServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	grpcLis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen for gRPC", "addr", cfg.Server.GRPCAddr, "error", err)
		stop()
		os.Exit(1)
	}

	httpSrv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           tsid.NewHTTPServer(service, store, executor, cfg.Server).Handler(),
		ReadHeaderTimeout: cfg.Server.ReadTimeout(),
		ReadTimeout:       cfg.Server.ReadTimeout(),
		WriteTimeout:      cfg.Server.WriteTimeout(),
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info("gRPC server listening", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(grpcLis); err != nil {
			logger.Error("gRPC server error", "error", err)
			stop()
		}
	}()

	go func() {
		logger.Info("HTTP server listening", "addr", cfg.Server.HTTPAddr, "engines", catalog.Len())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown requested")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace())
	defer cancel()

	healthServer.Shutdown()
	grpcServer.GracefulStop()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}
	if err := executor.Shutdown(shutdownCtx); err != nil {
		logger.Warn("runs still active at shutdown", "error", err)
	}
	notifier.Wait()
}
