package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Supported storage backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMySQL    = "mysql"
	BackendSQLite   = "sqlite"
)

// Config holds the application configuration.
type Config struct {
	AppPort        string
	StorageBackend string
	DatabaseDSN    string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	KeyPrefix      string
	JWTSecret      string
	RabbitMQURL    string // Empty disables domain events
	UploadDir      string
	PublicBaseURL  string
	SessionFile    string
	LogLevel       string
	IsProd         bool
}

// New returns a viper instance with every default set and the environment bound.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("STORAGE_BACKEND", BackendSQLite)
	v.SetDefault("DATABASE_DSN", "ecofinds.db")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("KEY_PREFIX", "ecofinds")
	v.SetDefault("JWT_SECRET", "change-me")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("UPLOAD_DIR", "./uploads")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8080")
	v.SetDefault("SESSION_FILE", ".ecofinds/session")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("IS_PROD", false)
	v.AutomaticEnv()
	return v
}

// Load reads an optional .env file and an optional config file into v and
// returns the resulting Config.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	_ = godotenv.Load() // Load .env file if present

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	cfg := &Config{
		AppPort:        v.GetString("APP_PORT"),
		StorageBackend: strings.ToLower(v.GetString("STORAGE_BACKEND")),
		DatabaseDSN:    v.GetString("DATABASE_DSN"),
		RedisAddr:      v.GetString("REDIS_ADDR"),
		RedisPassword:  v.GetString("REDIS_PASSWORD"),
		RedisDB:        v.GetInt("REDIS_DB"),
		KeyPrefix:      v.GetString("KEY_PREFIX"),
		JWTSecret:      v.GetString("JWT_SECRET"),
		RabbitMQURL:    v.GetString("RABBITMQ_URL"),
		UploadDir:      v.GetString("UPLOAD_DIR"),
		PublicBaseURL:  strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/"),
		SessionFile:    v.GetString("SESSION_FILE"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		IsProd:         v.GetBool("IS_PROD"),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StorageBackend {
	case BackendMemory, BackendRedis, BackendPostgres, BackendMySQL, BackendSQLite:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.IsProd && c.JWTSecret == "change-me" {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	return nil
}

// UploadsURL is the public prefix uploaded images are served under.
func (c *Config) UploadsURL() string {
	return c.PublicBaseURL + "/uploads"
}

// SetupLogging configures the global logrus logger.
func (c *Config) SetupLogging() {
	if c.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		logrus.WithField("level", c.LogLevel).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}
