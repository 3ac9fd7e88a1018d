package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the storefront service configuration. It comes from an optional
// YAML file, then a .env file, then STOREFRONT_* environment variables.
type Config struct {
	Server struct {
		Address         string        `yaml:"address"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Database struct {
		// DSN of the hosted Postgres store. Empty runs the service guest-only.
		DSN           string `yaml:"dsn"`
		RunMigrations bool   `yaml:"run_migrations"`
	} `yaml:"database"`

	Auth struct {
		// JWTSecret verifies HS256 tokens issued by the auth provider.
		JWTSecret string `yaml:"jwt_secret"`
		// RequireAdmin restricts product writes to admins. Unset means on
		// whenever tokens can be verified; see AdminGate.
		RequireAdmin *bool `yaml:"require_admin"`
	} `yaml:"auth"`

	Sessions struct {
		MaxDevices int           `yaml:"max_devices"`
		IdleTTL    time.Duration `yaml:"idle_ttl"`
	} `yaml:"sessions"`

	Storage struct {
		DeviceDir string `yaml:"device_dir"`
	} `yaml:"storage"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// DotEnvFile is read by Load when present.
var DotEnvFile = ".env"

// Default returns the configuration used when nothing else is set.
func Default() Config {
	var cfg Config
	cfg.Server.Address = ":8082"
	cfg.Server.ShutdownTimeout = 10 * time.Second
	cfg.Storage.DeviceDir = "data/devices"
	cfg.Sessions.MaxDevices = 10000
	cfg.Sessions.IdleTTL = 30 * time.Minute
	cfg.Log.Level = "info"
	return cfg
}

// Load builds the configuration from path (may be empty), the .env file and
// the environment, then validates it.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("failed to load %s: %w", DotEnvFile, err)
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("STOREFRONT_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("STOREFRONT_SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid STOREFRONT_SHUTDOWN_TIMEOUT %q: %w", v, err)
		}
		cfg.Server.ShutdownTimeout = d
	}
	if v := os.Getenv("STOREFRONT_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("STOREFRONT_RUN_MIGRATIONS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid STOREFRONT_RUN_MIGRATIONS %q: %w", v, err)
		}
		cfg.Database.RunMigrations = b
	}
	if v := os.Getenv("STOREFRONT_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("STOREFRONT_REQUIRE_ADMIN"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid STOREFRONT_REQUIRE_ADMIN %q: %w", v, err)
		}
		cfg.Auth.RequireAdmin = &b
	}
	if v := os.Getenv("STOREFRONT_MAX_SESSIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid STOREFRONT_MAX_SESSIONS %q: %w", v, err)
		}
		cfg.Sessions.MaxDevices = n
	}
	if v := os.Getenv("STOREFRONT_SESSION_IDLE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid STOREFRONT_SESSION_IDLE_TTL %q: %w", v, err)
		}
		cfg.Sessions.IdleTTL = d
	}
	if v := os.Getenv("STOREFRONT_DEVICE_DIR"); v != "" {
		cfg.Storage.DeviceDir = v
	}
	if v := os.Getenv("STOREFRONT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	return nil
}

// Validate checks that the settings can be served together.
func (c Config) Validate() error {
	if c.Server.Address == "" {
		return errors.New("server.address must be set")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("server.shutdown_timeout must be positive")
	}
	if c.Storage.DeviceDir == "" {
		return errors.New("storage.device_dir must be set")
	}
	if c.Sessions.MaxDevices <= 0 {
		return errors.New("sessions.max_devices must be positive")
	}
	if c.Sessions.IdleTTL <= 0 {
		return errors.New("sessions.idle_ttl must be positive")
	}
	explicitGate := c.Auth.RequireAdmin != nil && *c.Auth.RequireAdmin
	if c.Database.DSN == "" {
		if c.Database.RunMigrations {
			return errors.New("database.run_migrations requires database.dsn")
		}
		if explicitGate {
			return errors.New("auth.require_admin requires database.dsn")
		}
		if c.Auth.JWTSecret != "" {
			return errors.New("auth.jwt_secret requires database.dsn: signed-in carts live in the database")
		}
	}
	if explicitGate && c.Auth.JWTSecret == "" {
		return errors.New("auth.require_admin requires auth.jwt_secret")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// AdminGate reports whether product writes need an admin token. When
// auth.require_admin is not set it follows whether tokens can be verified
// against the profiles table.
func (c Config) AdminGate() bool {
	if c.Auth.RequireAdmin != nil {
		return *c.Auth.RequireAdmin
	}
	return c.Database.DSN != "" && c.Auth.JWTSecret != ""
}

// SlogLevel parses Log.Level ("debug", "info", "warn", "error").
func (c Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return lvl, fmt.Errorf("invalid log.level %q: %w", c.Log.Level, err)
	}
	return lvl, nil
}
