// Command feedreachctl обслуживание FeedReach: миграции, администраторы,
// рассылки и демо-данные.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/ignatzorin/feedreach-backend/internal/config"
	"github.com/ignatzorin/feedreach-backend/internal/db"
	"github.com/ignatzorin/feedreach-backend/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:           "feedreachctl",
		Short:         "Утилиты обслуживания FeedReach",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init(logLevel)
			logger.SetTextFormatter()
		},
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Уровень логов (debug, info, warn, error)")

	cmd.AddCommand(migrateCmd(), promoteCmd(), broadcastCmd(), seedCmd())
	return cmd
}

// connect загружает конфигурацию и открывает базу.
func connect(ctx context.Context) (*config.Config, *sqlx.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("конфигурация: %w", err)
	}
	conn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("база: %w", err)
	}
	return cfg, conn, nil
}
