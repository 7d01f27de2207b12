package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/iliyamo/wod-leaderboard/internal/config"
	"github.com/iliyamo/wod-leaderboard/internal/database"
	"github.com/iliyamo/wod-leaderboard/internal/queue"
	"github.com/iliyamo/wod-leaderboard/internal/repository"
	"github.com/iliyamo/wod-leaderboard/internal/router"
	"github.com/iliyamo/wod-leaderboard/internal/service"
)

func serveCmd() *cobra.Command {
	var autoMigrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			log.Info("starting wodboard", "port", cfg.Port, "db", cfg.DB.Driver)

			db, err := database.Open(cfg.DB)
			if err != nil {
				return err
			}
			defer db.Close()

			if autoMigrate {
				n, err := database.Migrate(cmd.Context(), db, cfg.DB.Driver)
				if err != nil {
					return err
				}
				log.Info("migrations applied", "count", n)
			}

			rdb := config.NewRedisClient(cfg.Redis)
			if rdb == nil {
				log.Warn("redis unavailable, rate limiting and caching disabled", "addr", cfg.Redis.Address())
			} else {
				defer rdb.Close()
			}

			var pub queue.Publisher = queue.NopPublisher{}
			if cfg.Broker.Enabled {
				pub = queue.NewAMQPPublisher(cfg.Broker.URL, cfg.Broker.Exchange, log)
			}
			defer pub.Close()

			otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
				propagation.TraceContext{}, propagation.Baggage{},
			))

			workoutRepo := repository.NewWorkoutRepo(db, cfg.DB.Driver)
			resultRepo := repository.NewResultRepo(db, cfg.DB.Driver)
			e := router.New(router.Deps{
				Config:   cfg,
				Workouts: service.NewWorkoutService(workoutRepo, pub, log, cfg.BcryptCost),
				Results:  service.NewResultService(resultRepo, workoutRepo, pub, log, cfg.BcryptCost),
				Redis:    rdb,
				Log:      log,
			})

			server := &http.Server{
				Addr:         ":" + cfg.Port,
				Handler:      e,
				ReadTimeout:  cfg.HTTP.ReadTimeout,
				WriteTimeout: cfg.HTTP.WriteTimeout,
			}

			serverErrors := make(chan error, 1)
			go func() {
				log.Info("server listening", "addr", server.Addr)
				serverErrors <- server.ListenAndServe()
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			select {
			case err := <-serverErrors:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			case <-ctx.Done():
				log.Info("shutdown signal received")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					log.Error("server shutdown error", "err", err)
					_ = server.Close()
				}
				log.Info("server stopped gracefully")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&autoMigrate, "migrate", true, "apply pending schema migrations before serving")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := database.Open(cfg.DB)
			if err != nil {
				return err
			}
			defer db.Close()
			n, err := database.Migrate(cmd.Context(), db, cfg.DB.Driver)
			if err != nil {
				return err
			}
			log.Info("migrations applied", "count", n, "db", cfg.DB.Driver)
			return nil
		},
	}
}

func auditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Consume activity events into the audit log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			consumer := &queue.AuditConsumer{
				URL:      cfg.Broker.URL,
				Exchange: cfg.Broker.Exchange,
				Queue:    cfg.Broker.Queue,
				LogPath:  cfg.Broker.AuditLog,
				Log:      log,
			}
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}
