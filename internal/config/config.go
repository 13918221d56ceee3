package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application settings.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	Lockout      LockoutConfig      `mapstructure:"lockout"`
	Verification VerificationConfig `mapstructure:"verification"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Notifier     NotifierConfig     `mapstructure:"notifier"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Log          LogConfig          `mapstructure:"log"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// Mode is the gin mode: "debug" or "release".
	Mode           string   `mapstructure:"mode"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig holds the PostgreSQL connection settings. An empty Host
// means no database: users are kept in memory.
type DatabaseConfig struct {
	Host           string `mapstructure:"host"`
	Port           string `mapstructure:"port"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	DBName         string `mapstructure:"dbname"`
	SSLMode        string `mapstructure:"sslmode"`
	MigrationsPath string `mapstructure:"migrations_path"`
}

// RedisConfig holds the unified Redis settings.
// Supported modes: single, sentinel, cluster.
type RedisConfig struct {
	Mode string `mapstructure:"mode"`

	// Addrs is used by every mode; single mode takes the first entry.
	Addrs []string `mapstructure:"addrs"`

	// Addr is the single-mode address used when Addrs is empty.
	Addr string `mapstructure:"addr"`

	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	MasterName string `mapstructure:"master_name"`
	MaxRetries int    `mapstructure:"max_retries"`

	// Backoffs in milliseconds.
	MinRetryBackoff int `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"`
}

// JWTConfig holds the token settings.
type JWTConfig struct {
	Secret          string        `mapstructure:"secret"`
	Expiration      time.Duration `mapstructure:"expiration"`
	Issuer          string        `mapstructure:"issuer"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type LockoutConfig struct {
	MaxFailures int           `mapstructure:"max_failures"`
	Duration    time.Duration `mapstructure:"duration"`
}

type VerificationConfig struct {
	CodeTTL         time.Duration `mapstructure:"code_ttl"`
	SendInterval    time.Duration `mapstructure:"send_interval"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// StorageConfig selects where revocations and codes live: "memory" (process
// lifetime, the default), "redis" or "postgres" (both shared between instances).
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
}

// NotifierConfig selects and configures the outbound code delivery driver:
// noop, resend, smtp or amqp.
type NotifierConfig struct {
	Driver       string     `mapstructure:"driver"`
	From         string     `mapstructure:"from"`
	Nickname     string     `mapstructure:"nickname"`
	ResendAPIKey string     `mapstructure:"resend_api_key"`
	SMTP         SMTPConfig `mapstructure:"smtp"`
	AMQP         AMQPConfig `mapstructure:"amqp"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type AMQPConfig struct {
	URL   string `mapstructure:"url"`
	Queue string `mapstructure:"queue"`
}

// RateLimitConfig configures the per-IP limits on /login and /send-code and
// the overall per-IP limit on the /auth group. They need Redis and are
// skipped without it.
type RateLimitConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Login     int           `mapstructure:"login"`
	SendCode  int           `mapstructure:"send_code"`
	AuthGroup int           `mapstructure:"auth_group"`
	Window    time.Duration `mapstructure:"window"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"

	minJWTSecretLength = 32
)

// PostgresConnectionString builds the gorm/pgx DSN.
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		dsnValue(d.Host), dsnValue(d.Port), dsnValue(d.User), dsnValue(d.Password), dsnValue(d.DBName), dsnValue(d.SSLMode),
	)
}

// PostgresURL builds the URL form used by golang-migrate and lib/pq.
// Credentials are percent-encoded.
func (d *DatabaseConfig) PostgresURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, d.Port),
		Path:     "/" + d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

// dsnValue quotes a keyword/value DSN value when it is empty or contains
// spaces, quotes or backslashes.
func dsnValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// Enabled reports whether a database is configured.
func (d *DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

// Enabled reports whether Redis is configured.
func (r *RedisConfig) Enabled() bool {
	return r.Addr != "" || len(r.Addrs) > 0
}

// IsRelease reports whether the server runs in gin release mode.
func (s *ServerConfig) IsRelease() bool {
	return s.Mode == "release"
}

// Load reads the configuration from configPath (optional) and the environment.
func Load(configPath string) (*Config, error) {
	cfg, err := read(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDatabase reads only what database tooling needs; the rest of the
// configuration is not validated.
func LoadDatabase(configPath string) (*DatabaseConfig, error) {
	cfg, err := read(configPath)
	if err != nil {
		return nil, err
	}
	if !cfg.Database.Enabled() {
		return nil, fmt.Errorf("database host is not configured (check DATABASE_HOST env var)")
	}
	return &cfg.Database, nil
}

func read(configPath string) (*Config, error) {
	vip := viper.New()

	setDefaults(vip)
	bindEnv(vip)

	if configPath != "" {
		vip.SetConfigFile(configPath)
		if err := vip.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file %q: %w", configPath, err)
			}
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	normalize(&cfg)
	return &cfg, nil
}

func setDefaults(vip *viper.Viper) {
	vip.SetDefault("server.port", "8080")
	vip.SetDefault("server.read_timeout", 10*time.Second)
	vip.SetDefault("server.write_timeout", 10*time.Second)
	vip.SetDefault("server.mode", "debug")
	vip.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	vip.SetDefault("database.port", "5432")
	vip.SetDefault("database.sslmode", "disable")
	vip.SetDefault("database.migrations_path", "migrations")

	vip.SetDefault("redis.mode", "single")

	vip.SetDefault("jwt.expiration", 7*24*time.Hour)
	vip.SetDefault("jwt.issuer", "animemaster-api")
	vip.SetDefault("jwt.cleanup_interval", time.Hour)

	vip.SetDefault("lockout.max_failures", 5)
	vip.SetDefault("lockout.duration", 30*time.Minute)

	vip.SetDefault("verification.code_ttl", 10*time.Minute)
	vip.SetDefault("verification.send_interval", 60*time.Second)
	vip.SetDefault("verification.cleanup_interval", 5*time.Minute)

	vip.SetDefault("storage.backend", StorageMemory)

	vip.SetDefault("notifier.driver", "noop")
	vip.SetDefault("notifier.nickname", "AnimeMaster")
	vip.SetDefault("notifier.smtp.port", 587)
	vip.SetDefault("notifier.amqp.queue", "verification_emails")

	vip.SetDefault("rate_limit.enabled", true)
	vip.SetDefault("rate_limit.login", 10)
	vip.SetDefault("rate_limit.send_code", 5)
	vip.SetDefault("rate_limit.auth_group", 60)
	vip.SetDefault("rate_limit.window", time.Minute)

	vip.SetDefault("log.level", "info")
}

func bindEnv(vip *viper.Viper) {
	for key, env := range map[string]string{
		"server.port":            "SERVER_PORT",
		"server.mode":            "GIN_MODE",
		"server.allowed_origins": "ALLOWED_ORIGINS",

		"database.host":     "DATABASE_HOST",
		"database.port":     "DATABASE_PORT",
		"database.user":     "DATABASE_USER",
		"database.password": "DATABASE_PASSWORD",
		"database.dbname":   "DATABASE_DBNAME",
		"database.sslmode":  "DATABASE_SSLMODE",

		"redis.mode":        "REDIS_MODE",
		"redis.addrs":       "REDIS_ADDRS",
		"redis.addr":        "REDIS_ADDR",
		"redis.password":    "REDIS_PASSWORD",
		"redis.db":          "REDIS_DB",
		"redis.master_name": "REDIS_MASTER_NAME",

		"jwt.secret":           "JWT_SECRET",
		"jwt.expiration":       "JWT_EXPIRATION",
		"jwt.issuer":           "JWT_ISSUER",
		"jwt.cleanup_interval": "JWT_CLEANUP_INTERVAL",

		"lockout.max_failures": "LOCKOUT_MAX_FAILURES",
		"lockout.duration":     "LOCKOUT_DURATION",

		"verification.code_ttl":      "VERIFICATION_CODE_TTL",
		"verification.send_interval": "VERIFICATION_SEND_INTERVAL",

		"storage.backend": "STORAGE_BACKEND",

		"notifier.driver":         "NOTIFIER_DRIVER",
		"notifier.from":           "NOTIFIER_FROM",
		"notifier.nickname":       "NOTIFIER_NICKNAME",
		"notifier.resend_api_key": "RESEND_API_KEY",
		"notifier.smtp.host":      "SMTP_HOST",
		"notifier.smtp.port":      "SMTP_PORT",
		"notifier.smtp.username":  "SMTP_USERNAME",
		"notifier.smtp.password":  "SMTP_PASSWORD",
		"notifier.amqp.url":       "AMQP_URL",
		"notifier.amqp.queue":     "AMQP_QUEUE",

		"rate_limit.enabled":    "RATE_LIMIT_ENABLED",
		"rate_limit.auth_group": "RATE_LIMIT_AUTH_GROUP",

		"log.level": "LOG_LEVEL",
	} {
		_ = vip.BindEnv(key, env)
	}
}

// normalize splits comma-separated list values that arrive from env vars.
func normalize(cfg *Config) {
	cfg.Redis.Addrs = splitList(cfg.Redis.Addrs)
	cfg.Server.AllowedOrigins = splitList(cfg.Server.AllowedOrigins)
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate checks required and dependent settings.
func (c *Config) Validate() error {
	if len(c.JWT.Secret) < minJWTSecretLength {
		return fmt.Errorf("jwt secret must be at least %d bytes (check JWT_SECRET env var)", minJWTSecretLength)
	}
	if c.JWT.Expiration <= 0 {
		return fmt.Errorf("jwt expiration must be positive")
	}

	switch c.Storage.Backend {
	case StorageMemory:
	case StorageRedis:
		if !c.Redis.Enabled() {
			return fmt.Errorf("storage backend %q requires redis configuration (check REDIS_ADDR env var)", c.Storage.Backend)
		}
	case StoragePostgres:
		if !c.Database.Enabled() {
			return fmt.Errorf("storage backend %q requires a database (check DATABASE_HOST env var)", c.Storage.Backend)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if c.Database.Enabled() && (c.Database.DBName == "" || c.Database.User == "") {
		return fmt.Errorf("database configuration (dbname, user) is incomplete (check DATABASE_DBNAME, DATABASE_USER env vars)")
	}
	if c.Server.IsRelease() {
		if !c.Database.Enabled() {
			return fmt.Errorf("a database is required in release mode (check DATABASE_HOST env var)")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database password is required in release mode (check DATABASE_PASSWORD env var)")
		}
	}
	return nil
}
