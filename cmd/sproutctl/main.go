// Command sproutctl runs LearnSprout maintenance tasks against the configured database.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"learnsprout/internal/app"
	"learnsprout/internal/config"
	"learnsprout/internal/database"
	"learnsprout/internal/events"
	"learnsprout/internal/logger"
	"learnsprout/internal/mailer"
)

var logMode string

var rootCmd = &cobra.Command{
	Use:   "sproutctl",
	Short: "LearnSprout maintenance tool",
	Long: `Run maintenance tasks against the database configured through the
environment (DB_TYPE, DB_PATH, DATABASE_URL) or a .env file.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logMode, "log-mode", "", "log mode: dev or prod (default LOG_MODE)")
	rootCmd.AddCommand(migrateCmd, seedCmd, backupCmd, setRoleCmd, digestCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// env is what every command needs: configuration, a logger and a migrated database
type env struct {
	cfg *config.Config
	log *logger.Logger
	db  *database.DB
}

func openEnv() (*env, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	mode := cfg.LogMode
	if logMode != "" {
		mode = logMode
	}
	log, err := logger.New(mode)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	db, err := app.OpenDatabase(cfg, log)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log, db: db}, nil
}

func (e *env) close() {
	if err := e.db.Close(); err != nil {
		e.log.Warn("database close failed", "error", err)
	}
	e.log.Sync()
}

// services wires the full service layer with an in-process event bus
func (e *env) services(ctx context.Context) (*app.Services, func(), error) {
	sender, err := mailer.New(ctx, e.cfg, e.log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create email sender: %w", err)
	}
	bus := events.NewMemoryBus(e.log, 0)
	svc := app.NewServices(e.cfg, e.db, sender, bus, e.log)
	return svc, func() { _ = bus.Close() }, nil
}
