// Package config loads application configuration from an optional YAML file
// and PORTAL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables read by Load.
// Nested keys are separated by a double underscore: PORTAL_JWT__SECRET_KEY.
const EnvPrefix = "PORTAL_"

// Config holds application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
	JWT      JWTConfig      `koanf:"jwt"`
	Cookie   CookieConfig   `koanf:"cookie"`
	CORS     CORSConfig     `koanf:"cors"`
	Redis    RedisConfig    `koanf:"redis"`
	Uploads  UploadsConfig  `koanf:"uploads"`
	Auth     AuthConfig     `koanf:"auth"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              string        `koanf:"port"`
	MetricsPort       string        `koanf:"metrics_port"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
	RequestTimeout    time.Duration `koanf:"request_timeout"`
}

// DatabaseConfig holds PostgreSQL settings.
type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
	ConnectAttempts int           `koanf:"connect_attempts"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
	MigrationsDir   string        `koanf:"migrations_dir"`
	// SeedFile, when set, is executed after migrations. Off by default: the
	// bundled seeds/users.sql creates accounts with well-known passwords.
	SeedFile string `koanf:"seed_file"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// JWTConfig holds session token settings.
type JWTConfig struct {
	SecretKey     string        `koanf:"secret_key"`
	Issuer        string        `koanf:"issuer"`
	TokenDuration time.Duration `koanf:"token_duration"`
}

// CookieConfig holds auth cookie settings.
type CookieConfig struct {
	Secure bool   `koanf:"secure"`
	Domain string `koanf:"domain"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// RedisConfig holds token denylist settings. An empty Addr disables revocation.
type RedisConfig struct {
	Addr     string        `koanf:"addr"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	Timeout  time.Duration `koanf:"timeout"`
}

// UploadsConfig holds image upload settings.
type UploadsConfig struct {
	Dir       string `koanf:"dir"`
	URLPrefix string `koanf:"url_prefix"`
	MaxSize   int64  `koanf:"max_size"`
}

// AuthConfig holds password hashing settings.
type AuthConfig struct {
	HashCost            int `koanf:"hash_cost"`
	MaxConcurrentHashes int `koanf:"max_concurrent_hashes"`
}

// Default returns configuration with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              "8080",
			MetricsPort:       "9090",
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
			RequestTimeout:    60 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnectTimeout:  30 * time.Second,
			ConnectAttempts: 5,
			MigrationsDir:   "migrations",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		JWT: JWTConfig{
			Issuer:        "resettlement-portal",
			TokenDuration: 8 * time.Hour,
		},
		Cookie: CookieConfig{
			Secure: true,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Redis: RedisConfig{
			Timeout: 2 * time.Second,
		},
		Uploads: UploadsConfig{
			Dir:       "uploads",
			URLPrefix: "/uploads",
			MaxSize:   5 << 20,
		},
		Auth: AuthConfig{
			HashCost: 10,
		},
	}
}

// Load reads configuration. Values are layered as defaults, then the YAML
// file at path (skipped when path is empty), then environment variables.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(key string) string {
		key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			Result:           cfg,
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects settings the application cannot start with.
// Missing credentials are not errors: the affected features report 503.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or text, got %q", c.Log.Format))
	}
	if c.JWT.TokenDuration <= 0 {
		errs = append(errs, errors.New("jwt.token_duration must be positive"))
	}
	if c.Auth.HashCost < 4 || c.Auth.HashCost > 31 {
		errs = append(errs, fmt.Errorf("auth.hash_cost must be between 4 and 31, got %d", c.Auth.HashCost))
	}
	if c.Uploads.MaxSize <= 0 {
		errs = append(errs, errors.New("uploads.max_size must be positive"))
	}
	return errors.Join(errs...)
}

// Warnings describes missing settings that leave parts of the API degraded.
func (c *Config) Warnings() []string {
	var warnings []string
	if c.Database.URL == "" {
		warnings = append(warnings, "database.url is not set: user and content endpoints will respond with 503")
	}
	if c.JWT.SecretKey == "" {
		warnings = append(warnings, "jwt.secret_key is not set: authentication endpoints will respond with 503")
	}
	if c.Redis.Addr == "" {
		warnings = append(warnings, "redis.addr is not set: logout will not revoke issued tokens")
	}
	if c.Database.SeedFile != "" {
		warnings = append(warnings, "database.seed_file is set: demo accounts with well-known passwords will be created")
	}
	return warnings
}

// LogWarnings logs every entry of Warnings.
func (c *Config) LogWarnings(logger *slog.Logger) {
	for _, w := range c.Warnings() {
		logger.Warn(w)
	}
}
