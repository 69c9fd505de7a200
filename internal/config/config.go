package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Supported database drivers.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server   ServerConfig
	App      AppConfig
	Database DatabaseConfig
	Cache    CacheConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"merch-inventory-dashboard"`
	Title       string `envconfig:"APP_TITLE" default:"Sports Merchandise Inventory System"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"text"` // text or json
}

// DatabaseConfig holds the connection settings for the inventory store.
// Host, User, Password and Name are the four settings the dashboard needs;
// everything else has a working default.
type DatabaseConfig struct {
	Driver   string `envconfig:"DB_DRIVER" default:"mysql"` // mysql, postgres or sqlite
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT"`
	Name     string `envconfig:"DB_NAME" default:"inventory"`
	User     string `envconfig:"DB_USER" default:"root"`
	Password string `envconfig:"DB_PASSWORD" default:""`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	// SQLite settings
	Path string `envconfig:"DB_PATH" default:"./data/inventory.db"`

	// CreateInventory also creates the inventory table when it is missing.
	// Production databases are expected to have it already.
	CreateInventory bool `envconfig:"DB_CREATE_INVENTORY" default:"false"`

	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
}

// CacheConfig holds cache settings used for sell idempotency tokens.
type CacheConfig struct {
	Type           string        `envconfig:"CACHE_TYPE" default:"memory"` // memory or redis
	IdempotencyTTL time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	KeyPrefix     string `envconfig:"REDIS_KEY_PREFIX" default:"merch:inventory"`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// DriverName returns the database/sql driver name registered for Driver.
func (d *DatabaseConfig) DriverName() string {
	return d.Driver
}

// port returns the configured port or the driver's well-known default.
func (d *DatabaseConfig) port() int {
	if d.Port != 0 {
		return d.Port
	}
	if d.Driver == DriverPostgres {
		return 5432
	}
	return 3306
}

// DSN returns the data source name for the configured driver.
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case DriverPostgres:
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(d.User, d.Password),
			Host:     fmt.Sprintf("%s:%d", d.Host, d.port()),
			Path:     d.Name,
			RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
		}
		return u.String()
	case DriverSQLite:
		// BEGIN IMMEDIATE takes the write lock up front so a sale's read and
		// decrement cannot interleave with another writer.
		return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate&_time_format=sqlite", d.Path)
	default:
		mc := mysql.NewConfig()
		mc.User = d.User
		mc.Passwd = d.Password
		mc.Net = "tcp"
		mc.Addr = fmt.Sprintf("%s:%d", d.Host, d.port())
		mc.DBName = d.Name
		mc.ParseTime = true
		// Report matched rather than changed rows so an UPDATE that rewrites
		// identical values is not mistaken for a missing item.
		mc.ClientFoundRows = true
		return mc.FormatDSN()
	}
}

// Validate checks settings that envconfig cannot express.
func (d *DatabaseConfig) Validate() error {
	switch d.Driver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want mysql, postgres or sqlite)", d.Driver)
	}
	if d.Driver == DriverSQLite && d.Path == "" {
		return fmt.Errorf("DB_PATH is required for the sqlite driver")
	}
	return nil
}

// Validate checks the cache type.
func (c *CacheConfig) Validate() error {
	switch c.Type {
	case "memory", "redis":
		return nil
	default:
		return fmt.Errorf("unsupported CACHE_TYPE %q (want memory or redis)", c.Type)
	}
}

// IsDevelopment reports whether APP_ENV is "development".
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Database.Validate(); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Cache.Validate(); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
