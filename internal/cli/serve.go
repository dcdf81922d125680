package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex-career/backend/internal/client"
	"github.com/apex-career/backend/internal/handler"
	"github.com/apex-career/backend/internal/metrics"
	"github.com/apex-career/backend/internal/ratelimit"
	"github.com/apex-career/backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.Auth.UsesDefaultSecret() {
		log.Warn("SECRET_KEY is not set; signing tokens with the built-in development key")
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer pg.Pool.Close()

	if err := pg.Migrate(ctx); err != nil {
		return err
	}

	m, err := metrics.New()
	if err != nil {
		return err
	}

	limiter, closeLimiter, err := ratelimit.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeLimiter() }()

	authSvc, err := service.NewAuthService(pg, cfg.Auth, limiter, m)
	if err != nil {
		return err
	}

	deps := handler.RouterDeps{
		App:      cfg.App,
		Logger:   log,
		Metrics:  m,
		Auth:     authSvc,
		Chat:     service.NewChatService(pg),
		Analysis: service.NewAnalysisService(),
		DB:       pg,
	}
	if cfg.OIDC.Enabled() {
		oidcClient, err := client.NewOIDCClient(ctx, cfg.OIDC)
		if err != nil {
			return err
		}
		deps.OIDC = oidcClient
		log.Info("single sign-on enabled", zap.String("issuer", cfg.OIDC.IssuerURL))
	}

	if cfg.Log.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.App.Port),
		Handler:           handler.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
