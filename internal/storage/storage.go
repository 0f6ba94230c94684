// Package storage opens the configured persistence backend and hands out its repositories.
package storage

import (
	"context"
	"fmt"
	"time"

	"ecofinds/internal/config"
	"ecofinds/internal/models"
	"ecofinds/internal/repositories"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Repositories bundles one backend's implementations of every repository.
type Repositories struct {
	Users     repositories.UserRepository
	Products  repositories.ProductRepository
	Cart      repositories.CartRepository
	Purchases repositories.PurchaseRepository

	// Redis is set for the key-value backend.
	Redis *redis.Client
	// DB is set for the relational backends.
	DB *gorm.DB

	closers []func() error
}

// Close releases the backend's connections.
func (r *Repositories) Close() error {
	var firstErr error
	for _, c := range r.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NewMemory returns in-memory repositories.
func NewMemory() *Repositories {
	return &Repositories{
		Users:     repositories.NewMockUserRepository(),
		Products:  repositories.NewMockProductRepository(),
		Cart:      repositories.NewMockCartRepository(),
		Purchases: repositories.NewMockPurchaseRepository(),
	}
}

// NewKV returns Redis-backed repositories under prefix.
func NewKV(rdb *redis.Client, prefix string) *Repositories {
	return &Repositories{
		Users:     repositories.NewKVUserRepository(rdb, prefix),
		Products:  repositories.NewKVProductRepository(rdb, prefix),
		Cart:      repositories.NewKVCartRepository(rdb, prefix),
		Purchases: repositories.NewKVPurchaseRepository(rdb, prefix),
		Redis:     rdb,
	}
}

// NewGORM returns relational repositories over db.
func NewGORM(db *gorm.DB) *Repositories {
	return &Repositories{
		Users:     repositories.NewGORMUserRepository(db),
		Products:  repositories.NewGORMProductRepository(db),
		Cart:      repositories.NewGORMCartRepository(db),
		Purchases: repositories.NewGORMPurchaseRepository(db),
		DB:        db,
	}
}

// Open connects to the backend named in cfg.
func Open(ctx context.Context, cfg *config.Config) (*Repositories, error) {
	switch cfg.StorageBackend {
	case config.BackendMemory:
		return NewMemory(), nil
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		repos := NewKV(rdb, cfg.KeyPrefix)
		repos.closers = append(repos.closers, rdb.Close)
		return repos, nil
	}

	dialector, err := Dialector(cfg.StorageBackend, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	db, err := OpenDB(dialector)
	if err != nil {
		return nil, err
	}
	closeDB := func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	if err := Migrate(db); err != nil {
		closeDB()
		return nil, err
	}
	repos := NewGORM(db)
	repos.closers = append(repos.closers, closeDB)
	return repos, nil
}

// Dialector picks the gorm driver for a relational backend.
func Dialector(backend, dsn string) (gorm.Dialector, error) {
	switch backend {
	case config.BackendPostgres:
		return postgres.Open(dsn), nil
	case config.BackendMySQL:
		return mysql.Open(dsn), nil
	case config.BackendSQLite:
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("%q is not a relational backend", backend)
	}
}

// OpenDB opens a gorm connection that reports duplicate keys as
// gorm.ErrDuplicatedKey and logs slow queries through logrus.
func OpenDB(dialector gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger: logger.New(logrus.StandardLogger(), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Migrate creates or updates the tables of every record kind.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.Product{}, &models.CartItem{}, &models.Purchase{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
