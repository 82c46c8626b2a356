package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration. Values come from the YAML file
// named by TASKBOARD_CONFIG, if any, overridden by environment variables.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	JWT      JWTConfig      `yaml:"jwt"`
	Server   ServerConfig   `yaml:"server"`
	Hub      HubConfig      `yaml:"hub"`
	Notifier NotifierConfig `yaml:"notifier"`
	Log      LogConfig      `yaml:"log"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"` //nolint:gosec // G117: DB connection config
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int    `yaml:"max_conns"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"` //nolint:gosec // G117: Redis connection config
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

// JWTConfig holds JWT authentication settings.
type JWTConfig struct {
	Secret    string        `yaml:"secret"` //nolint:gosec // G117: JWT signing secret config
	AccessTTL time.Duration `yaml:"access_ttl"`
}

// ServerConfig holds API server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	CORSOrigins  []string      `yaml:"cors_origins"`
}

// HubConfig holds broadcast hub settings.
type HubConfig struct {
	Addr           string        `yaml:"addr"`
	OriginPatterns []string      `yaml:"origin_patterns"`
	SendQueue      int           `yaml:"send_queue"`
	PingInterval   time.Duration `yaml:"ping_interval"`
	RedisIngress   bool          `yaml:"redis_ingress"`
}

// Notifier transports.
const (
	TransportHTTP  = "http"
	TransportRedis = "redis"
	TransportNone  = "none"
)

// NotifierConfig selects how the API server reaches the hub.
type NotifierConfig struct {
	HubURL    string        `yaml:"hub_url"`
	Transport string        `yaml:"transport"`
	Timeout   time.Duration `yaml:"timeout"`
}

// LogConfig holds zerolog settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults returns the configuration used when neither a file nor the
// environment says otherwise. Safe for local development only.
func Defaults() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "taskboard",
			DBName:   "taskboard_dev",
			SSLMode:  "disable",
			MaxConns: 25,
		},
		Redis: RedisConfig{
			Addr:    "localhost:6379",
			Channel: "taskboard:broadcast",
		},
		JWT: JWTConfig{
			AccessTTL: 15 * time.Minute,
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			CORSOrigins:  []string{"http://localhost:5173"},
		},
		Hub: HubConfig{
			Addr:           ":8090",
			OriginPatterns: []string{"localhost:*"},
			SendQueue:      256,
			PingInterval:   30 * time.Second,
		},
		Notifier: NotifierConfig{
			HubURL:    "http://localhost:8090",
			Transport: TransportHTTP,
			Timeout:   5 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads the optional YAML file, applies environment overrides and
// validates the result.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("TASKBOARD_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, fmt.Errorf("config.Load: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	var err error

	if c.Database.Port, err = getEnvInt("TASKBOARD_DB_PORT", c.Database.Port); err != nil {
		return err
	}
	if c.Database.MaxConns, err = getEnvInt("TASKBOARD_DB_MAX_CONNS", c.Database.MaxConns); err != nil {
		return err
	}
	if c.Redis.DB, err = getEnvInt("TASKBOARD_REDIS_DB", c.Redis.DB); err != nil {
		return err
	}
	if c.JWT.AccessTTL, err = getEnvDuration("TASKBOARD_JWT_ACCESS_TTL", c.JWT.AccessTTL); err != nil {
		return err
	}
	if c.Server.ReadTimeout, err = getEnvDuration("TASKBOARD_SERVER_READ_TIMEOUT", c.Server.ReadTimeout); err != nil {
		return err
	}
	if c.Server.WriteTimeout, err = getEnvDuration("TASKBOARD_SERVER_WRITE_TIMEOUT", c.Server.WriteTimeout); err != nil {
		return err
	}
	if c.Hub.SendQueue, err = getEnvInt("TASKBOARD_HUB_SEND_QUEUE", c.Hub.SendQueue); err != nil {
		return err
	}
	if c.Hub.PingInterval, err = getEnvDuration("TASKBOARD_HUB_PING_INTERVAL", c.Hub.PingInterval); err != nil {
		return err
	}
	if c.Hub.RedisIngress, err = getEnvBool("TASKBOARD_HUB_REDIS_INGRESS", c.Hub.RedisIngress); err != nil {
		return err
	}
	if c.Notifier.Timeout, err = getEnvDuration("TASKBOARD_NOTIFIER_TIMEOUT", c.Notifier.Timeout); err != nil {
		return err
	}

	c.Database.Host = getEnv("TASKBOARD_DB_HOST", c.Database.Host)
	c.Database.User = getEnv("TASKBOARD_DB_USER", c.Database.User)
	c.Database.Password = getEnv("TASKBOARD_DB_PASSWORD", c.Database.Password)
	c.Database.DBName = getEnv("TASKBOARD_DB_NAME", c.Database.DBName)
	c.Database.SSLMode = getEnv("TASKBOARD_DB_SSLMODE", c.Database.SSLMode)
	c.Redis.Addr = getEnv("TASKBOARD_REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("TASKBOARD_REDIS_PASSWORD", c.Redis.Password)
	c.Redis.Channel = getEnv("TASKBOARD_REDIS_CHANNEL", c.Redis.Channel)
	c.JWT.Secret = getEnv("TASKBOARD_JWT_SECRET", c.JWT.Secret)
	c.Server.Addr = getEnv("TASKBOARD_SERVER_ADDR", c.Server.Addr)
	c.Server.CORSOrigins = getEnvList("TASKBOARD_CORS_ORIGINS", c.Server.CORSOrigins)
	c.Hub.Addr = getEnv("TASKBOARD_HUB_ADDR", c.Hub.Addr)
	c.Hub.OriginPatterns = getEnvList("TASKBOARD_HUB_ORIGIN_PATTERNS", c.Hub.OriginPatterns)
	c.Notifier.HubURL = getEnv("TASKBOARD_NOTIFIER_HUB_URL", c.Notifier.HubURL)
	c.Notifier.Transport = strings.ToLower(getEnv("TASKBOARD_NOTIFIER_TRANSPORT", c.Notifier.Transport))
	c.Log.Level = getEnv("TASKBOARD_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("TASKBOARD_LOG_FORMAT", c.Log.Format)

	return nil
}

// validate checks value bounds shared by every command.
func (c *Config) validate() error {
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("TASKBOARD_DB_PORT must be 1-65535, got %d", c.Database.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("TASKBOARD_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
	}
	if c.JWT.AccessTTL <= 0 {
		return fmt.Errorf("TASKBOARD_JWT_ACCESS_TTL must be positive, got %s", c.JWT.AccessTTL)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("TASKBOARD_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("TASKBOARD_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Hub.SendQueue < 1 {
		return fmt.Errorf("TASKBOARD_HUB_SEND_QUEUE must be >= 1, got %d", c.Hub.SendQueue)
	}
	if c.Hub.PingInterval <= 0 {
		return fmt.Errorf("TASKBOARD_HUB_PING_INTERVAL must be positive, got %s", c.Hub.PingInterval)
	}
	if c.Notifier.Timeout <= 0 {
		return fmt.Errorf("TASKBOARD_NOTIFIER_TIMEOUT must be positive, got %s", c.Notifier.Timeout)
	}

	switch c.Notifier.Transport {
	case TransportHTTP:
		if c.Notifier.HubURL == "" {
			log.Warn().Msg("TASKBOARD_NOTIFIER_HUB_URL is empty; board events will not be published")
		}
	case TransportRedis, TransportNone:
	default:
		return fmt.Errorf("TASKBOARD_NOTIFIER_TRANSPORT must be http, redis or none, got %q", c.Notifier.Transport)
	}

	return nil
}

// ValidateAPI checks the settings only the API server needs.
func (c *Config) ValidateAPI() error {
	// JWT secret is required (no insecure default).
	if c.JWT.Secret == "" {
		return errors.New("TASKBOARD_JWT_SECRET is required")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("TASKBOARD_JWT_SECRET must be at least 32 characters")
	}

	if c.Database.SSLMode == "disable" {
		log.Warn().Msg("TASKBOARD_DB_SSLMODE=disable is insecure for production; set to 'require' or 'verify-full'")
	}

	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s=%q as bool: %w", key, v, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
