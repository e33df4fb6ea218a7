package app

import (
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/aussiebroadwan/authd/internal/auth/service"
	"github.com/aussiebroadwan/authd/pkg/jwtx"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

type Config struct {
	Env          string             `koanf:"env"` // dev, staging, prod
	Log          LogConfig          `koanf:"log"`
	HTTP         HTTPConfig         `koanf:"http"`
	App          AppConfig          `koanf:"app"`
	DB           DBConfig           `koanf:"db"`
	Sessions     SessionsConfig     `koanf:"sessions"`
	Redis        RedisConfig        `koanf:"redis"`
	JWT          JWTConfig          `koanf:"jwt"`
	Pepper       PepperConfig       `koanf:"pepper"`
	Mail         MailConfig         `koanf:"mail"`
	SMTP         SMTPConfig         `koanf:"smtp"`
	Housekeeping HousekeepingConfig `koanf:"housekeeping"`
}

type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json, text
}

type HTTPConfig struct {
	Port          int           `koanf:"port"`
	ShutdownGrace time.Duration `koanf:"shutdown_grace"`
}

type AppConfig struct {
	// Origin prefixes the links placed in verification and reset mail.
	Origin string `koanf:"origin"`
}

type DBConfig struct {
	Driver string `koanf:"driver"` // sqlite, postgres
	DSN    string `koanf:"dsn"`    // file path for sqlite, connection URL for postgres
}

type SessionsConfig struct {
	Backend string `koanf:"backend"` // sql, redis
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	Prefix   string `koanf:"prefix"`
}

type JWTConfig struct {
	Issuer        string        `koanf:"issuer"`
	AccessSecret  string        `koanf:"access_secret"`
	RefreshSecret string        `koanf:"refresh_secret"`
	AccessTTL     time.Duration `koanf:"access_ttl"`
	RefreshTTL    time.Duration `koanf:"refresh_ttl"`
}

type PepperConfig struct {
	File string `koanf:"file"`
}

type MailConfig struct {
	Driver  string `koanf:"driver"` // log, smtp
	From    string `koanf:"from"`
	Retries int    `koanf:"retries"`
}

type SMTPConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

type HousekeepingConfig struct {
	Interval time.Duration `koanf:"interval"`
}

// BindFlags registers every config key on fs. Defaults are read from the
// AUTHD_* environment so that a bare binary can be configured by env alone.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("env", getEnvOrDefault("AUTHD_ENV", "dev"), "deployment environment (dev, staging, prod)")
	fs.String("log.level", getEnvOrDefault("AUTHD_LOG_LEVEL", "info"), "log level (debug, info, warn, error)")
	fs.String("log.format", getEnvOrDefault("AUTHD_LOG_FORMAT", "json"), "log format (json, text)")

	fs.Int("http.port", getEnvIntOrDefault("AUTHD_HTTP_PORT", 8080), "HTTP listen port")
	fs.Duration("http.shutdown_grace", getEnvDurationOrDefault("AUTHD_SHUTDOWN_GRACE", 10*time.Second), "graceful shutdown timeout")
	fs.String("app.origin", getEnvOrDefault("AUTHD_APP_ORIGIN", "http://localhost:3000"), "frontend origin used in mailed links")

	fs.String("db.driver", getEnvOrDefault("AUTHD_DB_DRIVER", "sqlite"), "database driver (sqlite, postgres)")
	fs.String("db.dsn", getEnvOrDefault("AUTHD_DB_DSN", "authd.db"), "sqlite file path or postgres URL")
	fs.String("sessions.backend", getEnvOrDefault("AUTHD_SESSIONS_BACKEND", "sql"), "session store (sql, redis)")

	fs.String("redis.addr", getEnvOrDefault("AUTHD_REDIS_ADDR", "localhost:6379"), "redis address")
	fs.String("redis.password", os.Getenv("AUTHD_REDIS_PASSWORD"), "redis password")
	fs.Int("redis.db", getEnvIntOrDefault("AUTHD_REDIS_DB", 0), "redis database number")
	fs.String("redis.prefix", getEnvOrDefault("AUTHD_REDIS_PREFIX", "authd"), "redis key prefix")

	fs.String("jwt.issuer", getEnvOrDefault("AUTHD_JWT_ISSUER", "authd"), "token issuer claim")
	fs.String("jwt.access_secret", os.Getenv("AUTHD_JWT_ACCESS_SECRET"), "HMAC secret for access tokens")
	fs.String("jwt.refresh_secret", os.Getenv("AUTHD_JWT_REFRESH_SECRET"), "HMAC secret for refresh tokens")
	fs.Duration("jwt.access_ttl", getEnvDurationOrDefault("AUTHD_JWT_ACCESS_TTL", jwtx.DefaultAccessTokenTTL), "access token lifetime")
	fs.Duration("jwt.refresh_ttl", getEnvDurationOrDefault("AUTHD_JWT_REFRESH_TTL", jwtx.DefaultRefreshTokenTTL), "refresh token lifetime")

	fs.String("pepper.file", getEnvOrDefault("AUTHD_PEPPER_FILE", "pepper"), "path of the password pepper, created when missing")

	fs.String("mail.driver", getEnvOrDefault("AUTHD_MAIL_DRIVER", "log"), "mail transport (log, smtp)")
	fs.String("mail.from", getEnvOrDefault("AUTHD_MAIL_FROM", "authd <no-reply@localhost>"), "sender address")
	fs.Int("mail.retries", getEnvIntOrDefault("AUTHD_MAIL_RETRIES", 3), "send retries on transient failure")

	fs.String("smtp.host", getEnvOrDefault("AUTHD_SMTP_HOST", "localhost"), "SMTP relay host")
	fs.Int("smtp.port", getEnvIntOrDefault("AUTHD_SMTP_PORT", 587), "SMTP relay port")
	fs.String("smtp.username", os.Getenv("AUTHD_SMTP_USERNAME"), "SMTP username, PLAIN auth when set")
	fs.String("smtp.password", os.Getenv("AUTHD_SMTP_PASSWORD"), "SMTP password")

	fs.Duration("housekeeping.interval", getEnvDurationOrDefault("AUTHD_HOUSEKEEPING_INTERVAL", time.Hour), "expired record sweep interval")
}

// LoadConfig layers flag defaults, the optional YAML file at path and any
// explicitly set flags, in that order of precedence.
func LoadConfig(path string, fs *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.Code("CONFIG_INVALID").With("path", path).Wrapf(err, "load config file")
		}
	}

	// Unchanged flags only fill keys the file left unset.
	if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
		return Config{}, oops.Code("CONFIG_INVALID").Wrapf(err, "load flags")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_INVALID").Wrapf(err, "decode config")
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the service cannot start with. Missing token
// secrets are tolerated in dev, where ephemeral ones are generated.
func (c Config) Validate() error {
	if !slices.Contains([]string{"sqlite", "postgres"}, c.DB.Driver) {
		return oops.Code("CONFIG_INVALID").Errorf("db.driver must be sqlite or postgres, got %q", c.DB.Driver)
	}
	if c.DB.DSN == "" {
		return oops.Code("CONFIG_INVALID").Errorf("db.dsn is required")
	}
	if !slices.Contains([]string{"sql", "redis"}, c.Sessions.Backend) {
		return oops.Code("CONFIG_INVALID").Errorf("sessions.backend must be sql or redis, got %q", c.Sessions.Backend)
	}
	if !slices.Contains([]string{"log", "smtp"}, c.Mail.Driver) {
		return oops.Code("CONFIG_INVALID").Errorf("mail.driver must be log or smtp, got %q", c.Mail.Driver)
	}
	if c.Mail.Retries < 0 {
		return oops.Code("CONFIG_INVALID").Errorf("mail.retries must not be negative")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return oops.Code("CONFIG_INVALID").Errorf("http.port %d out of range", c.HTTP.Port)
	}
	if c.App.Origin == "" {
		return oops.Code("CONFIG_INVALID").Errorf("app.origin is required")
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("jwt ttls must be positive")
	}
	if c.JWT.RefreshTTL < service.SessionTTL {
		return oops.Code("CONFIG_INVALID").Errorf("jwt.refresh_ttl must cover the %s session lifetime", service.SessionTTL)
	}

	if c.Env != "dev" && (c.JWT.AccessSecret == "" || c.JWT.RefreshSecret == "") {
		return oops.Code("CONFIG_INVALID").Errorf("jwt.access_secret and jwt.refresh_secret are required outside dev")
	}
	if c.JWT.AccessSecret != "" && c.JWT.AccessSecret == c.JWT.RefreshSecret {
		return oops.Code("CONFIG_INVALID").Errorf("jwt.access_secret and jwt.refresh_secret must differ")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
