package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	HTTP     HTTPConfig     `toml:"http"`
	GRPC     GRPCConfig     `toml:"grpc"`
	Auth     AuthConfig     `toml:"auth"`
	Log      LogConfig      `toml:"log"`
	Seed     SeedConfig     `toml:"seed"`
}

// DatabaseConfig contains database-related settings.
type DatabaseConfig struct {
	Driver       string `toml:"driver"` // "sqlite3" or "mysql"
	Path         string `toml:"path"`   // SQLite database file path
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	Name         string `toml:"name"`
	MaxOpenConns int    `toml:"max_open_conns"`
}

// HTTPConfig contains REST server settings.
type HTTPConfig struct {
	Address        string   `toml:"address"` // e.g. ":3000"
	AllowOrigins   []string `toml:"allow_origins"`
	AuthRateLimit  float64  `toml:"auth_rate_limit"` // requests per second per client on /api/auth
	AuthRateBurst  int      `toml:"auth_rate_burst"`
	RequestTimeout Duration `toml:"request_timeout"`
}

// GRPCConfig contains the health probe listener settings. An empty address disables it.
type GRPCConfig struct {
	Address        string   `toml:"address"`
	HealthInterval Duration `toml:"health_interval"`
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	JWTSecret string   `toml:"jwt_secret"`
	TokenTTL  Duration `toml:"token_ttl"`
}

// LogConfig selects the log level and output format ("text" or "json").
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// SeedConfig is used by the seed command.
type SeedConfig struct {
	AdminPassword string `toml:"admin_password"`
}

// Duration lets TOML files carry values such as "8h".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

const devSecret = "dev-secret-change-me"

func defaults() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:       "sqlite3",
			Path:         "app.db",
			Host:         "127.0.0.1",
			Port:         3306,
			Name:         "escalas",
			MaxOpenConns: 10,
		},
		HTTP: HTTPConfig{
			Address:        ":3000",
			AllowOrigins:   []string{"*"},
			AuthRateLimit:  5,
			AuthRateBurst:  10,
			RequestTimeout: Duration{30 * time.Second},
		},
		GRPC: GRPCConfig{
			HealthInterval: Duration{10 * time.Second},
		},
		Auth: AuthConfig{
			TokenTTL: Duration{8 * time.Hour},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Seed: SeedConfig{
			AdminPassword: "admin123",
		},
	}
}

// Load loads configuration from an optional TOML file and environment variables.
// Environment variables win over the file. JWT_SECRET must end up non-empty.
func Load(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}

	// Validate critical settings
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is not set; required for production")
	}

	return cfg, nil
}

// LoadWithDefaults is like Load but uses a safe default for JWT_SECRET in development.
// WARNING: Only use in development! Use Load() in production.
func LoadWithDefaults(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = devSecret
	}
	return cfg, nil
}

func load(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Database.Driver, "DB_DRIVER")
	setString(&cfg.Database.Path, "DB_PATH")
	setString(&cfg.Database.Host, "DB_HOST")
	setString(&cfg.Database.User, "DB_USER")
	setString(&cfg.Database.Password, "DB_PASSWORD")
	setString(&cfg.Database.Name, "DB_NAME")
	setString(&cfg.GRPC.Address, "GRPC_ADDRESS")
	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")
	setString(&cfg.Seed.AdminPassword, "ADMIN_PASSWORD")

	if port, ok := os.LookupEnv("PORT"); ok && port != "" {
		cfg.HTTP.Address = ":" + port
	}
	setString(&cfg.HTTP.Address, "HTTP_ADDRESS")

	if v, ok := os.LookupEnv("CORS_ORIGINS"); ok {
		cfg.HTTP.AllowOrigins = splitList(v)
	}

	var err error
	if cfg.Database.Port, err = getEnvInt("DB_PORT", cfg.Database.Port); err != nil {
		return err
	}
	if cfg.Database.MaxOpenConns, err = getEnvInt("DB_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns); err != nil {
		return err
	}
	if cfg.HTTP.AuthRateBurst, err = getEnvInt("AUTH_RATE_BURST", cfg.HTTP.AuthRateBurst); err != nil {
		return err
	}
	if cfg.HTTP.AuthRateLimit, err = getEnvFloat("AUTH_RATE_LIMIT", cfg.HTTP.AuthRateLimit); err != nil {
		return err
	}
	if cfg.Auth.TokenTTL.Duration, err = getEnvDuration("TOKEN_TTL", cfg.Auth.TokenTTL.Duration); err != nil {
		return err
	}
	return nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "sqlite3", "mysql":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want sqlite3 or mysql)", c.Database.Driver)
	}
	if c.Auth.TokenTTL.Duration <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	return nil
}

// setString overwrites dst when the variable is present.
func setString(dst *string, key string) {
	if value, exists := os.LookupEnv(key); exists {
		*dst = value
	}
}

// getEnvInt retrieves an environment variable as an integer with a default fallback.
func getEnvInt(key string, defaultVal int) (int, error) {
	if value, exists := os.LookupEnv(key); exists {
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
		}
		return intVal, nil
	}
	return defaultVal, nil
}

func getEnvFloat(key string, defaultVal float64) (float64, error) {
	if value, exists := os.LookupEnv(key); exists {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number for %s: %w", key, err)
		}
		return f, nil
	}
	return defaultVal, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	if value, exists := os.LookupEnv(key); exists {
		d, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
		}
		return d, nil
	}
	return defaultVal, nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// String returns a string representation of the config (sensitive values are masked).
func (c *Config) String() string {
	dbTarget := c.Database.Path
	if c.Database.Driver == "mysql" {
		dbTarget = fmt.Sprintf("%s@%s:%d/%s", c.Database.User, c.Database.Host, c.Database.Port, c.Database.Name)
	}
	grpcAddr := c.GRPC.Address
	if grpcAddr == "" {
		grpcAddr = "disabled"
	}
	return fmt.Sprintf("Config{DB: %s(%s), HTTP: %s, gRPC health: %s, TokenTTL: %s, Auth: *** (masked) ***}",
		c.Database.Driver, dbTarget, c.HTTP.Address, grpcAddr, c.Auth.TokenTTL.Duration)
}
