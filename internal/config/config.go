// AngelaMos | 2026
// config.go

package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App       AppConfig       `koanf:"app"`
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	JWT       JWTConfig       `koanf:"jwt"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	CORS      CORSConfig      `koanf:"cors"`
	Log       LogConfig       `koanf:"log"`
	Otel      OtelConfig      `koanf:"otel"`
	Auth      AuthConfig      `koanf:"auth"`
	Mail      MailConfig      `koanf:"mail"`
	Broker    BrokerConfig    `koanf:"broker"`
	Events    EventsConfig    `koanf:"events"`
	Uploads   UploadsConfig   `koanf:"uploads"`
	Seed      SeedConfig      `koanf:"seed"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `koanf:"driver"`
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
}

type RedisConfig struct {
	URL            string        `koanf:"url"`
	PoolSize       int           `koanf:"pool_size"`
	MinIdleConns   int           `koanf:"min_idle_conns"`
	DialTimeout    time.Duration `koanf:"dial_timeout"`
	ConnectRetries int           `koanf:"connect_retries"`
}

type JWTConfig struct {
	PrivateKeyPath     string        `koanf:"private_key_path"`
	PublicKeyPath      string        `koanf:"public_key_path"`
	AccessTokenExpire  time.Duration `koanf:"access_token_expire"`
	RefreshTokenExpire time.Duration `koanf:"refresh_token_expire"`
	Issuer             string        `koanf:"issuer"`
	Audience           string        `koanf:"audience"`
}

type AuthConfig struct {
	OTPTTL time.Duration `koanf:"otp_ttl"`
	Argon2 Argon2Config  `koanf:"argon2"`
}

// Argon2Config is the password hashing work factor. Hashes made with other
// parameters are upgraded on the next successful login.
type Argon2Config struct {
	Time      uint32 `koanf:"time"`
	MemoryKiB uint32 `koanf:"memory_kib"`
	Threads   uint8  `koanf:"threads"`
}

type MailConfig struct {
	Transport string     `koanf:"transport"`
	From      string     `koanf:"from"`
	SMTP      SMTPConfig `koanf:"smtp"`
}

type SMTPConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Username    string        `koanf:"username"`
	Password    string        `koanf:"password"`
	SSL         bool          `koanf:"ssl"`
	DialTimeout time.Duration `koanf:"dial_timeout"`
}

type BrokerConfig struct {
	URL            string        `koanf:"url"`
	Queue          string        `koanf:"queue"`
	PublishTimeout time.Duration `koanf:"publish_timeout"`
}

type EventsConfig struct {
	ReactionTimeout   time.Duration `koanf:"reaction_timeout"`
	ReconcileInterval time.Duration `koanf:"reconcile_interval"`
	ReconcileBatch    int           `koanf:"reconcile_batch"`
	MaxAttempts       int           `koanf:"max_attempts"`
}

type UploadsConfig struct {
	Dir         string `koanf:"dir"`
	MaxMemory   int64  `koanf:"max_memory"`
	MaxFileSize int64  `koanf:"max_file_size"`

	AllowedExtensions []string `koanf:"allowed_extensions"`
}

type SeedConfig struct {
	AdminEmail        string `koanf:"admin_email"`
	AdminPassword     string `koanf:"admin_password"`
	DeveloperEmail    string `koanf:"developer_email"`
	DeveloperPassword string `koanf:"developer_password"`
}

type RateLimitConfig struct {
	Requests           int           `koanf:"requests"`
	Window             time.Duration `koanf:"window"`
	Burst              int           `koanf:"burst"`
	CredentialRequests int           `koanf:"credential_requests"`
	CredentialBurst    int           `koanf:"credential_burst"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	MailTransportLog   = "log"
	MailTransportSMTP  = "smtp"
	MailTransportQueue = "queue"
)

var (
	cfg  *Config
	once sync.Once
)

func Load(configPath string) (*Config, error) {
	var loadErr error

	once.Do(func() {
		k := koanf.New(".")

		if err := loadDefaults(k); err != nil {
			loadErr = fmt.Errorf("load defaults: %w", err)
			return
		}

		if configPath != "" {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				loadErr = fmt.Errorf("load config file: %w", err)
				return
			}
		}

		if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
			loadErr = fmt.Errorf("load env vars: %w", err)
			return
		}

		cfg = &Config{}
		if err := k.Unmarshal("", cfg); err != nil {
			loadErr = fmt.Errorf("unmarshal config: %w", err)
			return
		}

		if err := validate(cfg); err != nil {
			loadErr = fmt.Errorf("validate config: %w", err)
			return
		}
	})

	if loadErr != nil {
		return nil, loadErr
	}

	return cfg, nil
}

func Get() *Config {
	if cfg == nil {
		panic("config not loaded: call Load() first")
	}
	return cfg
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":        "Tenant Backend",
		"app.version":     "1.0.0",
		"app.environment": "development",

		"server.host":             "0.0.0.0",
		"server.port":             8080,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",

		"database.driver":             "postgres",
		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",

		"redis.pool_size":       10,
		"redis.min_idle_conns":  5,
		"redis.dial_timeout":    "5s",
		"redis.connect_retries": 3,

		"jwt.access_token_expire":  "15m",
		"jwt.refresh_token_expire": "168h",
		"jwt.issuer":               "tenant-backend",
		"jwt.audience":             "tenant-backend-api",
		"jwt.private_key_path":     "keys/private.pem",
		"jwt.public_key_path":      "keys/public.pem",

		"rate_limit.requests":            100,
		"rate_limit.window":              "1m",
		"rate_limit.burst":               20,
		"rate_limit.credential_requests": 10,
		"rate_limit.credential_burst":    5,

		"cors.allowed_origins": []string{"http://localhost:3000"},
		"cors.allowed_methods": []string{
			"GET",
			"POST",
			"PUT",
			"PATCH",
			"DELETE",
			"OPTIONS",
		},
		"cors.allowed_headers": []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
		},
		"cors.allow_credentials": true,
		"cors.max_age":           300,

		"log.level":  "info",
		"log.format": "json",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "tenant-backend",

		"auth.otp_ttl":           "1h",
		"auth.argon2.time":       1,
		"auth.argon2.memory_kib": 64 * 1024,
		"auth.argon2.threads":    4,

		"mail.transport":         "log",
		"mail.from":              "no-reply@localhost",
		"mail.smtp.port":         465,
		"mail.smtp.ssl":          true,
		"mail.smtp.dial_timeout": "10s",

		"broker.queue":           "email_queue",
		"broker.publish_timeout": "10s",

		"events.reaction_timeout":   "30s",
		"events.reconcile_interval": "0s",
		"events.reconcile_batch":    50,
		"events.max_attempts":       10,

		"uploads.dir":           "uploads",
		"uploads.max_memory":    10 << 20,
		"uploads.max_file_size": 5 << 20,

		"uploads.allowed_extensions": []string{".jpg", ".jpeg", ".png", ".webp", ".pdf"},

		"seed.admin_email":     "admin@example.com",
		"seed.developer_email": "developer@example.com",
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"DATABASE_DRIVER":             "database.driver",
	"DATABASE_URL":                "database.url",
	"REDIS_URL":                   "redis.url",
	"ENVIRONMENT":                 "app.environment",
	"HOST":                        "server.host",
	"PORT":                        "server.port",
	"LOG_LEVEL":                   "log.level",
	"LOG_FORMAT":                  "log.format",
	"JWT_PRIVATE_KEY_PATH":        "jwt.private_key_path",
	"JWT_PUBLIC_KEY_PATH":         "jwt.public_key_path",
	"JWT_ACCESS_TOKEN_EXPIRE":     "jwt.access_token_expire",
	"JWT_REFRESH_TOKEN_EXPIRE":    "jwt.refresh_token_expire",
	"JWT_ISSUER":                  "jwt.issuer",
	"JWT_AUDIENCE":                "jwt.audience",
	"RATE_LIMIT_REQUESTS":         "rate_limit.requests",
	"RATE_LIMIT_WINDOW":           "rate_limit.window",
	"RATE_LIMIT_BURST":            "rate_limit.burst",
	"OTEL_ENDPOINT":               "otel.endpoint",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "otel.endpoint",
	"OTEL_SERVICE_NAME":           "otel.service_name",
	"OTEL_ENABLED":                "otel.enabled",
	"OTEL_INSECURE":               "otel.insecure",
	"OTEL_SAMPLE_RATE":            "otel.sample_rate",
	"AUTH_OTP_TTL":                "auth.otp_ttl",
	"AUTH_ARGON2_MEMORY_KIB":      "auth.argon2.memory_kib",
	"MAIL_TRANSPORT":              "mail.transport",
	"MAIL_FROM":                   "mail.from",
	"SMTP_HOST":                   "mail.smtp.host",
	"SMTP_PORT":                   "mail.smtp.port",
	"SMTP_USERNAME":               "mail.smtp.username",
	"SMTP_PASSWORD":               "mail.smtp.password",
	"SMTP_SSL":                    "mail.smtp.ssl",
	"RABBITMQ_URL":                "broker.url",
	"RABBITMQ_QUEUE":              "broker.queue",
	"EVENTS_REACTION_TIMEOUT":     "events.reaction_timeout",
	"EVENTS_RECONCILE_INTERVAL":   "events.reconcile_interval",
	"EVENTS_MAX_ATTEMPTS":         "events.max_attempts",
	"UPLOADS_DIR":                 "uploads.dir",
	"SEED_ADMIN_EMAIL":            "seed.admin_email",
	"SEED_ADMIN_PASSWORD":         "seed.admin_password",
	"SEED_DEVELOPER_EMAIL":        "seed.developer_email",
	"SEED_DEVELOPER_PASSWORD":     "seed.developer_password",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

func validate(c *Config) error {
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.JWT.PrivateKeyPath == "" {
		return fmt.Errorf("JWT_PRIVATE_KEY_PATH is required")
	}

	if c.JWT.PublicKeyPath == "" {
		return fmt.Errorf("JWT_PUBLIC_KEY_PATH is required")
	}

	if c.CORS.AllowCredentials {
		for _, origin := range c.CORS.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf(
					"CORS wildcard '*' cannot be used with AllowCredentials",
				)
			}
		}
	}

	if c.App.Environment == "production" {
		if c.Otel.Enabled && c.Otel.Insecure {
			return fmt.Errorf("OTEL_INSECURE must be false in production")
		}
	}

	switch c.Mail.Transport {
	case MailTransportLog:
	case MailTransportSMTP:
		if c.Mail.SMTP.Host == "" {
			return fmt.Errorf("SMTP_HOST is required for smtp mail transport")
		}
	case MailTransportQueue:
		if c.Broker.URL == "" {
			return fmt.Errorf("RABBITMQ_URL is required for queue mail transport")
		}
	default:
		return fmt.Errorf("unknown mail.transport %q", c.Mail.Transport)
	}

	if c.Auth.OTPTTL <= 0 {
		return fmt.Errorf("auth.otp_ttl must be positive")
	}

	if c.Auth.Argon2.MemoryKiB < 8*1024 {
		return fmt.Errorf("auth.argon2.memory_kib must be at least 8192")
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
