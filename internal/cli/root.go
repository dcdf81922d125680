// Package cli holds the apex command tree: serve (default), migrate and user administration.
package cli

import (
	"context"
	"fmt"

	"github.com/apex-career/backend/internal/config"
	"github.com/apex-career/backend/internal/db"
	"github.com/apex-career/backend/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "apex",
		Short:         "Apex Career Navigator API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
	root.AddCommand(newServeCommand(), newMigrateCommand(), newUserCommand())
	return root
}

// Execute runs the command tree and returns the first error.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// bootstrap loads configuration and installs the process logger.
func bootstrap() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	log := logger.New(logger.Config{
		Env:         cfg.Log.Env,
		Level:       cfg.Log.Level,
		ServiceName: "apex-backend",
		Version:     cfg.App.Version,
	})
	logger.Set(log)
	return cfg, log, nil
}

func openDatabase(ctx context.Context, cfg config.Config) (*db.Postgres, error) {
	pool, err := db.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &db.Postgres{Pool: pool}, nil
}
