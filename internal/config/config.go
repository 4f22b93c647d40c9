package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment names recognised in APP_ENV.
const (
	EnvDevelopment = "dev"
	EnvTest        = "test"
	EnvProduction  = "prod"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
}

type ServerConfig struct {
	Port            string
	Env             string // dev, test or prod
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	TrustedOrigins  []string // CORS allowed origins
}

// DatabaseConfig holds the resolved connection parameters. When DATABASE_URL
// is set it takes precedence and is parsed back into the discrete fields, so
// the rest of the application only ever deals with one canonical form.
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MaxOpenConns   int
	MaxIdleConns   int
	SkipMigrations bool
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Load reads configuration from environment variables.
// A .env file is loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Env:             getEnv("APP_ENV", EnvDevelopment),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
			TrustedOrigins:  getSliceEnv("TRUSTED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", ""),
			DBName:         getEnv("DB_NAME", "lendsqr"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			SkipMigrations: getBoolEnv("SKIP_MIGRATIONS", false),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
	}

	switch cfg.Server.Env {
	case EnvDevelopment, EnvTest, EnvProduction:
	default:
		return nil, fmt.Errorf("unknown APP_ENV %q (expected dev, test or prod)", cfg.Server.Env)
	}

	// DATABASE_URL wins over the discrete DB_* fields when both are present.
	if rawURL := os.Getenv("DATABASE_URL"); rawURL != "" {
		if err := cfg.Database.applyURL(rawURL); err != nil {
			return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
		}
	}

	cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns = poolSizes(cfg.Server.Env)

	return cfg, nil
}

// poolSizes returns the connection pool bounds for an environment.
// Production gets a real pool, dev and test stay small.
func poolSizes(env string) (maxOpen, maxIdle int) {
	switch env {
	case EnvProduction:
		return 25, 5
	case EnvTest:
		return 2, 1
	default:
		return 5, 2
	}
}

func (c *DatabaseConfig) applyURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	if host, port, err := net.SplitHostPort(u.Host); err == nil {
		c.Host = host
		c.Port = port
	} else if u.Host != "" {
		c.Host = u.Host
	}
	if u.User != nil {
		c.User = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			c.Password = pw
		}
	}
	if name := strings.TrimPrefix(u.Path, "/"); name != "" {
		c.DBName = name
	}
	if mode := u.Query().Get("sslmode"); mode != "" {
		c.SSLMode = mode
	}

	return nil
}

// DSN returns the connection string for the target database.
func (c *DatabaseConfig) DSN() string {
	return c.dsn(c.DBName)
}

// AdminDSN returns a connection string against the postgres maintenance
// database, used only while checking for / creating the target database.
func (c *DatabaseConfig) AdminDSN() string {
	return c.dsn("postgres")
}

func (c *DatabaseConfig) dsn(dbName string) string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, dbName, c.SSLMode,
	)
}

// Address returns the Redis connection address (host:port).
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDevelopment returns true if the environment is set to dev.
func (c *ServerConfig) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// IsTest returns true if the environment is set to test.
// Migrations never auto-run in test mode; harnesses apply them explicitly.
func (c *ServerConfig) IsTest() bool {
	return c.Env == EnvTest
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	seconds, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return time.Duration(seconds) * time.Second
}

func getSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}
