// Package app wires configuration, storage and services into one value the
// commands share.
package app

import (
	"context"
	"net/http"
	"path/filepath"

	"ecofinds/internal/blob"
	"ecofinds/internal/config"
	"ecofinds/internal/server"
	"ecofinds/internal/services"
	"ecofinds/internal/session"
	"ecofinds/internal/storage"
	"ecofinds/pkg/rabbitmq"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// App is a fully wired marketplace.
type App struct {
	Config  *config.Config
	Repos   *storage.Repositories
	Fs      afero.Fs
	Blobs   *blob.FSStore
	MQ      *rabbitmq.Client // nil when events are disabled
	Auth    *services.AuthService
	Catalog *services.CatalogService
	Cart    *services.CartService
}

// New opens storage and builds the services. fs holds uploaded images and
// the CLI session file.
func New(ctx context.Context, cfg *config.Config, fs afero.Fs) (*App, error) {
	repos, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config: cfg,
		Repos:  repos,
		Fs:     fs,
		Blobs:  blob.NewFSStore(fs, cfg.UploadDir, cfg.UploadsURL()),
	}

	var events services.EventPublisher
	if cfg.RabbitMQURL != "" {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			logrus.WithError(err).Warn("Domain events disabled")
		} else {
			a.MQ = mq
			events = mq
		}
	}

	a.Auth = services.NewAuthService(repos.Users, a.Blobs, cfg.JWTSecret)
	a.Catalog = services.NewCatalogService(repos.Products, repos.Users, repos.Cart, a.Blobs, events)
	a.Cart = services.NewCartService(repos.Cart, repos.Products, repos.Purchases, events)
	return a, nil
}

// Close releases the broker and storage connections.
func (a *App) Close() error {
	if a.MQ != nil {
		if err := a.MQ.Close(); err != nil {
			logrus.WithError(err).Warn("Error closing RabbitMQ client")
		}
	}
	return a.Repos.Close()
}

// HTTP builds the API server over the app's services.
func (a *App) HTTP() *fiber.App {
	var uploads http.FileSystem = afero.NewHttpFs(a.Fs).Dir(filepath.Clean(a.Config.UploadDir))
	return server.New(a.Auth, a.Catalog, a.Cart, server.Options{
		Uploads: uploads,
		Health:  a.health,
	})
}

func (a *App) health() map[string]string {
	status := map[string]string{"storage": a.Config.StorageBackend}
	if a.MQ != nil {
		status["events"] = "connected"
	} else {
		status["events"] = "disabled"
	}
	return status
}

// SessionStore returns where the CLI keeps its signed-in user. The key-value
// backend shares it through Redis; the others use a local file.
func (a *App) SessionStore(clientID string) session.Store {
	if a.Repos.Redis != nil {
		return session.NewRedisStore(a.Repos.Redis, a.Config.KeyPrefix, clientID)
	}
	return session.NewFileStore(a.Fs, a.Config.SessionFile)
}
