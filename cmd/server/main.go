package main // Entry point package

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/volunteer-hub/internal/config"
	"github.com/iliyamo/volunteer-hub/internal/database"
	"github.com/iliyamo/volunteer-hub/internal/logging"
	"github.com/iliyamo/volunteer-hub/internal/queue"
	"github.com/iliyamo/volunteer-hub/internal/repository"
)

// app holds what every subcommand needs once configuration is loaded.
type app struct {
	cfg config.Config
	log *zap.Logger
}

var (
	envFile string
	a       *app
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "volunteerhub",
		Short:         "Volunteer Hub API server",
		Long:          `Volunteer Hub matches volunteers to events by skill and keeps their participation history.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a != nil && a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(consumeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// initApp loads .env and the environment, then builds the logger.
func initApp() error {
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Env, cfg.LogDir)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	a = &app{cfg: cfg, log: log}
	return nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func openDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	return database.Open(ctx, database.Options{
		User: cfg.DBUser,
		Pass: cfg.DBPass,
		Host: cfg.DBHost,
		Port: cfg.DBPort,
		Name: cfg.DBName,
	})
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded MySQL schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			db, err := openDB(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			n, err := database.Migrate(ctx, db)
			if err != nil {
				return err
			}
			a.log.Info("schema applied", zap.Int("statements", n))
			return nil
		},
	}
}

func consumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "consume",
		Short: "Run only the notification consumer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.RabbitURL == "" {
				return fmt.Errorf("RABBITMQ_URL is off; nothing to consume")
			}
			ctx, cancel := signalContext()
			defer cancel()
			db, err := openDB(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			c := &queue.Consumer{URL: a.cfg.RabbitURL, Writer: repository.NewNotificationRepo(db), Log: a.log}
			a.log.Info("notification consumer starting", zap.String("queue", queue.NotificationQueue))
			if err := c.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			a.log.Info("notification consumer stopped")
			return nil
		},
	}
}
