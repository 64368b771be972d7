package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shaiso/leadmailer/internal/config"
	"github.com/shaiso/leadmailer/internal/domain"
	"github.com/shaiso/leadmailer/internal/repo"
	"github.com/shaiso/leadmailer/internal/telemetry"
)

// NewRunOnceCmd создаёт команду run-once: один цикл диспетчера и выход.
// Удобна для запуска из внешнего cron.
func NewRunOnceCmd(loadConfig func() (*config.Config, error), outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "run-once",
		Short: "Run a single dispatch cycle and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := telemetry.SetupLogger(cfg.ServiceName)

			app, err := NewApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			report := app.Dispatcher.RunCycle(cmd.Context())
			outputFn().Report(report)

			return reportError(report)
		},
	}
}

// NewMigrateCmd создаёт команду migrate.
func NewMigrateCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := telemetry.SetupLogger(cfg.ServiceName)

			pool, err := repo.NewPool(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer pool.Close()

			return repo.Migrate(cmd.Context(), pool, logger)
		},
	}
}

// reportError превращает неуспешный цикл в ошибку команды.
// Неудачные отдельные пары цикл не проваливают.
func reportError(r *domain.CycleReport) error {
	switch r.Status {
	case domain.CycleStatusFailed:
		return fmt.Errorf("cycle %s failed: %s", r.ID, r.Reason)
	case domain.CycleStatusSkipped:
		return fmt.Errorf("cycle skipped: %s", r.Reason)
	}
	return nil
}
