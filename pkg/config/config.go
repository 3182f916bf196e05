package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "BUNDLEHUB"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "BUNDLEHUB_DB_DSN"
	EnvDBHost = "BUNDLEHUB_DB_HOST"
	EnvDBUser = "BUNDLEHUB_DB_USER"
	EnvDBName = "BUNDLEHUB_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	Paystack     PaystackConfig
	Vendor       VendorConfig
	Cart         CartConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BUNDLEHUB_APP_ENV" required:"true"`
	Port         string `envconfig:"BUNDLEHUB_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BUNDLEHUB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BUNDLEHUB_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"BUNDLEHUB_DB_DSN"`
	Driver string `envconfig:"BUNDLEHUB_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BUNDLEHUB_DB_HOST"`
	LegacyPort     int    `envconfig:"BUNDLEHUB_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BUNDLEHUB_DB_USER"`
	LegacyPassword string `envconfig:"BUNDLEHUB_DB_PASSWORD"`
	LegacyName     string `envconfig:"BUNDLEHUB_DB_NAME"`
	LegacySSLMode  string `envconfig:"BUNDLEHUB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BUNDLEHUB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BUNDLEHUB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BUNDLEHUB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BUNDLEHUB_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BUNDLEHUB_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BUNDLEHUB_REDIS_ADDR"`
	Password     string        `envconfig:"BUNDLEHUB_REDIS_PASSWORD"`
	DB           int           `envconfig:"BUNDLEHUB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BUNDLEHUB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BUNDLEHUB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BUNDLEHUB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BUNDLEHUB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BUNDLEHUB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"BUNDLEHUB_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BUNDLEHUB_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"BUNDLEHUB_JWT_EXPIRATION_MINUTES" default:"1440"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"BUNDLEHUB_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"BUNDLEHUB_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"BUNDLEHUB_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"BUNDLEHUB_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"BUNDLEHUB_ARGON_KEY_LEN" default:"32"`
}

type PaystackConfig struct {
	SecretKey   string `envconfig:"BUNDLEHUB_PAYSTACK_SECRET_KEY"`
	BaseURL     string `envconfig:"BUNDLEHUB_PAYSTACK_BASE_URL" default:"https://api.paystack.co"`
	CallbackURL string `envconfig:"BUNDLEHUB_PAYSTACK_CALLBACK_URL"`
	Currency    string `envconfig:"BUNDLEHUB_PAYSTACK_CURRENCY" default:"GHS"`

	IdempotencyTTL time.Duration `envconfig:"BUNDLEHUB_PAYSTACK_IDEMPOTENCY_TTL" default:"24h"`
}

type VendorConfig struct {
	BaseURL        string        `envconfig:"BUNDLEHUB_VENDOR_BASE_URL"`
	APIKey         string        `envconfig:"BUNDLEHUB_VENDOR_API_KEY"`
	WebhookURL     string        `envconfig:"BUNDLEHUB_VENDOR_WEBHOOK_URL"`
	RequestTimeout time.Duration `envconfig:"BUNDLEHUB_VENDOR_REQUEST_TIMEOUT" default:"30s"`
	MaxAttempts    int           `envconfig:"BUNDLEHUB_VENDOR_MAX_ATTEMPTS" default:"2"`
}

type CartConfig struct {
	TTL time.Duration `envconfig:"BUNDLEHUB_CART_TTL" default:"72h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"BUNDLEHUB_GCP_PROJECT_ID"`
	ApplicationCredentials string `envconfig:"BUNDLEHUB_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"BUNDLEHUB_PUBSUB_ORDERS_TOPIC" default:"bh-order-events"`
	OrdersSubscription string `envconfig:"BUNDLEHUB_PUBSUB_ORDERS_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"BUNDLEHUB_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"BUNDLEHUB_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"BUNDLEHUB_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"BUNDLEHUB_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"BUNDLEHUB_AUTO_MIGRATE" default:"false"`
}

// Configured reports whether Paystack credentials are present. Features that
// need the gateway fail with a configuration error when this is false.
func (p PaystackConfig) Configured() bool {
	return strings.TrimSpace(p.SecretKey) != ""
}

// Configured reports whether the vendor API can be called.
func (v VendorConfig) Configured() bool {
	return strings.TrimSpace(v.BaseURL) != "" && strings.TrimSpace(v.APIKey) != ""
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
