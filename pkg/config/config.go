package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Gateway      GatewayConfig
	Orders       OrdersConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Metrics      MetricsConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Orders.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"TRIPMARKET_APP_ENV" required:"true"`
	Port         string   `envconfig:"TRIPMARKET_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"TRIPMARKET_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"TRIPMARKET_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"TRIPMARKET_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"TRIPMARKET_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"TRIPMARKET_DB_DSN"`
	Driver string `envconfig:"TRIPMARKET_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TRIPMARKET_DB_HOST"`
	LegacyPort     int    `envconfig:"TRIPMARKET_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TRIPMARKET_DB_USER"`
	LegacyPassword string `envconfig:"TRIPMARKET_DB_PASSWORD"`
	LegacyName     string `envconfig:"TRIPMARKET_DB_NAME"`
	LegacySSLMode  string `envconfig:"TRIPMARKET_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TRIPMARKET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TRIPMARKET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TRIPMARKET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TRIPMARKET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TRIPMARKET_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TRIPMARKET_REDIS_ADDR"`
	Password     string        `envconfig:"TRIPMARKET_REDIS_PASSWORD"`
	DB           int           `envconfig:"TRIPMARKET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TRIPMARKET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TRIPMARKET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TRIPMARKET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TRIPMARKET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TRIPMARKET_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"TRIPMARKET_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"TRIPMARKET_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"TRIPMARKET_JWT_EXPIRATION_MINUTES" required:"true"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TRIPMARKET_AUTO_MIGRATE" default:"false"`
}

// GatewayConfig points at the external payment gateway.
type GatewayConfig struct {
	BaseURL          string        `envconfig:"TRIPMARKET_GATEWAY_BASE_URL" required:"true"`
	APIKey           string        `envconfig:"TRIPMARKET_GATEWAY_API_KEY" required:"true"`
	WebhookSecret    string        `envconfig:"TRIPMARKET_GATEWAY_WEBHOOK_SECRET" required:"true"`
	CallbackURL      string        `envconfig:"TRIPMARKET_GATEWAY_CALLBACK_URL" required:"true"`
	Timeout          time.Duration `envconfig:"TRIPMARKET_GATEWAY_TIMEOUT" default:"10s"`
	CurrencyExponent int32         `envconfig:"TRIPMARKET_GATEWAY_CURRENCY_EXPONENT" default:"0"`
}

// OrdersConfig holds the order lifecycle windows.
type OrdersConfig struct {
	PendingTTL           time.Duration `envconfig:"TRIPMARKET_ORDERS_PENDING_TTL" default:"5m"`
	SweepInterval        time.Duration `envconfig:"TRIPMARKET_ORDERS_SWEEP_INTERVAL" default:"60s"`
	SweepLockTTL         time.Duration `envconfig:"TRIPMARKET_ORDERS_SWEEP_LOCK_TTL" default:"55s"`
	SweepRestoreMode     string        `envconfig:"TRIPMARKET_ORDERS_SWEEP_RESTORE_MODE" default:"decremented"`
	RefundWindow         time.Duration `envconfig:"TRIPMARKET_ORDERS_REFUND_WINDOW" default:"168h"`
	RestoreStockOnRefund bool          `envconfig:"TRIPMARKET_ORDERS_RESTORE_STOCK_ON_REFUND" default:"true"`
	WebhookIdempotentTTL time.Duration `envconfig:"TRIPMARKET_ORDERS_WEBHOOK_IDEMPOTENCY_TTL" default:"24h"`
}

const (
	SweepRestoreDecremented = "decremented"
	SweepRestoreAlways      = "always"
)

func (o OrdersConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(o.SweepRestoreMode)) {
	case SweepRestoreDecremented, SweepRestoreAlways:
	default:
		return fmt.Errorf("%s must be %q or %q", EnvOrdersSweepRestoreMode, SweepRestoreDecremented, SweepRestoreAlways)
	}
	if o.PendingTTL <= 0 {
		return fmt.Errorf("%s must be positive", EnvOrdersPendingTTL)
	}
	if o.RefundWindow <= 0 {
		return fmt.Errorf("%s must be positive", EnvOrdersRefundWindow)
	}
	return nil
}

// RestoreAlways reports whether the sweeper restores stock for every canceled order.
func (o OrdersConfig) RestoreAlways() bool {
	return strings.EqualFold(strings.TrimSpace(o.SweepRestoreMode), SweepRestoreAlways)
}

type GCPConfig struct {
	ProjectID       string `envconfig:"TRIPMARKET_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"TRIPMARKET_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	OrdersTopic string `envconfig:"TRIPMARKET_PUBSUB_ORDERS_TOPIC" default:"tm-order-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"TRIPMARKET_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"TRIPMARKET_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"TRIPMARKET_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type MetricsConfig struct {
	Port string `envconfig:"TRIPMARKET_METRICS_PORT" default:"9090"`
}

// RateLimitConfig throttles buyer write endpoints per user.
type RateLimitConfig struct {
	Window     time.Duration `envconfig:"TRIPMARKET_RATE_LIMIT_WINDOW" default:"1m"`
	WriteLimit int           `envconfig:"TRIPMARKET_RATE_LIMIT_WRITES" default:"30"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
