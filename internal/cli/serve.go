package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/shaiso/leadmailer/internal/api"
	"github.com/shaiso/leadmailer/internal/config"
	"github.com/shaiso/leadmailer/internal/mq"
	"github.com/shaiso/leadmailer/internal/repo"
	"github.com/shaiso/leadmailer/internal/scheduler"
	"github.com/shaiso/leadmailer/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd создаёт команду serve: периодический диспетчер, ops API и
// consumer lead.created в одном процессе.
func NewServeCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the periodic dispatcher with the ops API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			logger := telemetry.SetupLogger(cfg.ServiceName)
			logger.Info("starting leadmailer",
				"env", cfg.Env,
				"interval", cfg.DispatchInterval,
				"sending_enabled", cfg.SendingEnabled,
			)

			ctx := cmd.Context()
			app, err := NewApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			if migrate {
				if err := repo.Migrate(ctx, app.Pool, logger); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
			}

			return serve(ctx, app)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "Apply database migrations before start")

	return cmd
}

func serve(ctx context.Context, app *App) error {
	logger := app.Logger
	cfg := app.Config

	handler := api.NewHandler(api.Config{
		Cycler:       app.Dispatcher,
		Qualifier:    app.Qualifier,
		Unsubscriber: app.Leads,
		Gatherer:     app.Registry,
		ServiceName:  cfg.ServiceName,
		Logger:       logger,
	})

	server := &http.Server{
		Addr:              cfg.OpsAddr(),
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	driver := scheduler.NewDriver(app.Dispatcher, cfg.DispatchInterval, logger)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		driver.Start(ctx)
		<-ctx.Done()
		driver.Stop()
		return nil
	})

	g.Go(func() error {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ops server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
		return nil
	})

	if app.AMQP != nil {
		consumer := mq.NewConsumer(app.AMQP, logger, mq.ConsumerConfig{
			Queue:   mq.QueueLeadsQualify,
			Handler: app.QualifyHandler(),
		})
		g.Go(func() error {
			err := consumer.Run(ctx)
			if err != nil && ctx.Err() == nil {
				return fmt.Errorf("lead consumer: %w", err)
			}
			return nil
		})
	}

	err := g.Wait()
	logger.Info("stopped")
	return err
}
