package cli

import (
	"os"
	"os/signal"
	"syscall"

	"ecofinds/internal/config"
	"ecofinds/internal/services"
	"ecofinds/internal/storage"
	"ecofinds/pkg/rabbitmq"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newServeCommand(rt *runtime) *cobra.Command {
	var port string
	var consume bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rt.open(cmd.Context())
			if err != nil {
				return err
			}
			if port == "" {
				port = rt.cfg.AppPort
			}

			if consume && a.MQ != nil {
				patterns := []string{services.EventPurchaseCreated, "listing.*"}
				if err := a.MQ.Consume("ecofinds.audit", patterns, rabbitmq.LogEvent); err != nil {
					logrus.WithError(err).Warn("Failed to start event consumer")
				}
			}

			server := a.HTTP()
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(quit)

			errc := make(chan error, 1)
			go func() {
				logrus.WithFields(logrus.Fields{"port": port, "backend": rt.cfg.StorageBackend}).Info("Starting server")
				errc <- server.Listen(port)
			}()

			select {
			case err := <-errc:
				return err
			case <-quit:
			case <-cmd.Context().Done():
			}
			logrus.Info("Shutting down server...")
			if err := server.Shutdown(); err != nil {
				logrus.WithError(err).Error("Error during Fiber shutdown")
			}
			logrus.Info("Server gracefully stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "Listen address (default APP_PORT)")
	cmd.Flags().BoolVar(&consume, "consume-events", true, "Log marketplace events from RabbitMQ when it is configured")
	return cmd
}

func newMigrateCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch rt.cfg.StorageBackend {
			case config.BackendMemory, config.BackendRedis:
				rt.printf("Backend %s has no schema to migrate.\n", rt.cfg.StorageBackend)
				return nil
			}
			// Opening a relational backend migrates it.
			if _, err := rt.open(cmd.Context()); err != nil {
				return err
			}
			rt.printf("Schema is up to date (%s).\n", rt.cfg.StorageBackend)
			return nil
		},
	}
}

func newSeedCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Add the demo listings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rt.open(cmd.Context())
			if err != nil {
				return err
			}
			n, err := storage.Seed(cmd.Context(), a.Repos)
			if err != nil {
				return err
			}
			if n == 0 {
				rt.printf("Demo listings already present.\n")
				return nil
			}
			rt.printf("Seeded %d demo listings.\n", n)
			return nil
		},
	}
}
