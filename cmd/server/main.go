// Command noteshub-server starts the notes HTTP API and the gRPC health endpoint.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/and161185/noteshub/internal/config"
	"github.com/and161185/noteshub/internal/federation"
	"github.com/and161185/noteshub/internal/limiter"
	"github.com/and161185/noteshub/internal/metrics"
	"github.com/and161185/noteshub/internal/migrate"
	"github.com/and161185/noteshub/internal/policy"
	"github.com/and161185/noteshub/internal/repository/postgres"
	grpcserver "github.com/and161185/noteshub/internal/server/grpc"
	httpserver "github.com/and161185/noteshub/internal/server/http"
	"github.com/and161185/noteshub/internal/service"
	"github.com/and161185/noteshub/internal/token"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	cfg, err := config.Load(os.Args[1:], os.Getenv)
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("http", cfg.HTTPAddr),
		zap.String("grpc_health", cfg.GRPCHealthAddr),
	)

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	for _, w := range cfg.Warnings() {
		logger.Warn("config", zap.String("warning", w))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	if err := migrate.Up(ctx, cfg.DatabaseDSN, logger); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}

	db, err := postgres.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	// Repositories
	userRepo := postgres.NewUserRepo(db)
	noteRepo := postgres.NewNoteRepo(db)

	tokens, err := token.New([]byte(cfg.JWTSecret), cfg.TokenTTL)
	if err != nil {
		return err
	}

	opts := []service.AuthOption{service.WithLogger(logger)}
	if cfg.LoginMaxFails > 0 {
		opts = append(opts, service.WithLimiter(limiter.NewPG(db.Pool, cfg.LoginWindow, cfg.LoginMaxFails, cfg.LoginBlockFor)))
	}
	if cfg.GoogleClientID != "" {
		opts = append(opts, service.WithGoogle(federation.NewGoogle(ctx, cfg.GoogleClientID, cfg.GoogleIssuer)))
	}

	// Services
	authSvc, err := service.NewAuthService(userRepo, tokens, opts...)
	if err != nil {
		return err
	}
	if err := authSvc.BootstrapAdmin(ctx, cfg.PrimaryAdminEmail, cfg.BootstrapAdminPassword); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	api := httpserver.New(httpserver.Deps{
		Auth:    authSvc,
		Authn:   service.NewAuthenticator(userRepo, tokens, logger),
		Notes:   service.NewNoteService(noteRepo, logger),
		Users:   service.NewUserService(userRepo),
		Admin:   service.NewAdminService(userRepo, policy.New(cfg.PrimaryAdminEmail), logger),
		Metrics: metrics.New(nil),
		Log:     logger,
	})
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("listening (http)", zap.String("addr", cfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var healthSrv *grpc.Server
	if cfg.GRPCHealthAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCHealthAddr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.GRPCHealthAddr, err)
		}
		healthSrv = grpcserver.NewServer(db, logger)
		go func() {
			logger.Info("listening (grpc health)", zap.String("addr", cfg.GRPCHealthAddr))
			errCh <- healthSrv.Serve(lis)
		}()
	}

	// Wait for stop
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if healthSrv != nil {
		done := make(chan struct{})
		go func() {
			healthSrv.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-shutCtx.Done():
			healthSrv.Stop()
		}
	}
	return httpSrv.Shutdown(shutCtx)
}
