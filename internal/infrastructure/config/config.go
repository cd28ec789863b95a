package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Env         string `env:"ENV,          default=development"`
	LogLevel    string `env:"LOG_LEVEL,    default=info"`
	SystemTheme string `env:"SYSTEM_THEME, default=light"`

	API     APIConfig
	Store   StoreConfig
	Control ControlConfig
	Sync    SyncConfig
	Dev     DevServerConfig
}

// APIConfig points the client at the remote backend.
type APIConfig struct {
	BaseURL   string        `env:"API_BASE_URL,   default=http://localhost:3000/api"`
	Timeout   time.Duration `env:"API_TIMEOUT,    default=10s"`
	RateLimit float64       `env:"API_RATE_LIMIT, default=10"`
	RateBurst int           `env:"API_RATE_BURST, default=20"`
}

// StoreConfig selects the KV backend the containers persist to.
type StoreConfig struct {
	Backend     string `env:"STORE_BACKEND, default=sqlite"`
	SQLitePath  string `env:"SQLITE_PATH,   default=innerpath.db"`
	RedisAddr   string `env:"REDIS_ADDR,    default=localhost:6379"`
	RedisDB     int    `env:"REDIS_DB,      default=0"`
	RedisPrefix string `env:"REDIS_PREFIX,  default=innerpath:"`
	MongoURI    string `env:"MONGO_URI,     default=mongodb://localhost:27017"`
	MongoDB     string `env:"MONGO_DB,      default=innerpath"`
}

// ControlConfig configures the localhost control API of the daemon.
type ControlConfig struct {
	Addr   string `env:"CONTROL_ADDR,   default=127.0.0.1:7070"`
	Secret string `env:"CONTROL_SECRET"`
}

type SyncConfig struct {
	Schedule string `env:"SYNC_SCHEDULE, default=@every 5m"`
}

// DevServerConfig configures the in-memory reference backend.
type DevServerConfig struct {
	Port      string        `env:"DEVSERVER_PORT,       default=3000"`
	JWTSecret string        `env:"DEVSERVER_JWT_SECRET, default=dev-secret"`
	TokenTTL  time.Duration `env:"DEVSERVER_TOKEN_TTL,  default=1h"`

	// AdminEmail seeds a SUPER_ADMIN account when set.
	AdminEmail    string `env:"DEVSERVER_ADMIN_EMAIL"`
	AdminPassword string `env:"DEVSERVER_ADMIN_PASSWORD, default=change-me-please"`
}

// Backends accepted by STORE_BACKEND.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

// IsDevelopment reports whether human-friendly output should be used.
func (c *Config) IsDevelopment() bool { return c.Env == "development" }

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadWith(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadWith reads configuration through l and validates it.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	switch cfg.Store.Backend {
	case BackendMemory, BackendSQLite, BackendRedis, BackendMongo:
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.Store.Backend)
	}
	if cfg.SystemTheme != "light" && cfg.SystemTheme != "dark" {
		return nil, fmt.Errorf("SYSTEM_THEME must be light or dark, got %q", cfg.SystemTheme)
	}
	return &cfg, nil
}
