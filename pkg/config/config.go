package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix = "ADEZY"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv = "ADEZY_APP_ENV"
	EnvDBDSN  = "ADEZY_DB_DSN"
	EnvDBHost = "ADEZY_DB_HOST"
	EnvDBUser = "ADEZY_DB_USER"
	EnvDBName = "ADEZY_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Wallet       WalletConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Wallet.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ADEZY_APP_ENV" required:"true"`
	LogLevel     string `envconfig:"ADEZY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ADEZY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"ADEZY_SERVICE_KIND" default:"engine"`
}

type DBConfig struct {
	DSN    string `envconfig:"ADEZY_DB_DSN"`
	Driver string `envconfig:"ADEZY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ADEZY_DB_HOST"`
	LegacyPort     int    `envconfig:"ADEZY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ADEZY_DB_USER"`
	LegacyPassword string `envconfig:"ADEZY_DB_PASSWORD"`
	LegacyName     string `envconfig:"ADEZY_DB_NAME"`
	LegacySSLMode  string `envconfig:"ADEZY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ADEZY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ADEZY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ADEZY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ADEZY_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SerializableRetries int `envconfig:"ADEZY_DB_SERIALIZABLE_RETRIES" default:"3"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ADEZY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ADEZY_REDIS_ADDR"`
	Password     string        `envconfig:"ADEZY_REDIS_PASSWORD"`
	DB           int           `envconfig:"ADEZY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ADEZY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ADEZY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ADEZY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ADEZY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ADEZY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// WalletConfig controls virtual credit provisioning.
type WalletConfig struct {
	// StartingCredits is granted when a balance row is first created for a user.
	StartingCredits string `envconfig:"ADEZY_WALLET_STARTING_CREDITS" default:"5000.00"`
}

// StartingCreditsAmount parses the configured starting credits.
func (w WalletConfig) StartingCreditsAmount() decimal.Decimal {
	amount, err := decimal.NewFromString(w.StartingCredits)
	if err != nil {
		return decimal.Zero
	}
	return amount
}

func (w WalletConfig) validate() error {
	amount, err := decimal.NewFromString(w.StartingCredits)
	if err != nil {
		return fmt.Errorf("invalid starting credits %q: %w", w.StartingCredits, err)
	}
	if amount.IsNegative() {
		return fmt.Errorf("starting credits must not be negative")
	}
	return nil
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ADEZY_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ADEZY_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"ADEZY_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ADEZY_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"ADEZY_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"ADEZY_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"ADEZY_PUBSUB_DOMAIN_TOPIC" required:"true"`
	DomainSubscription string `envconfig:"ADEZY_PUBSUB_DOMAIN_SUBSCRIPTION" required:"true"`
	WalletTopic        string `envconfig:"ADEZY_PUBSUB_WALLET_TOPIC" required:"true"`
	WalletSubscription string `envconfig:"ADEZY_PUBSUB_WALLET_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"ADEZY_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"ADEZY_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"ADEZY_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
