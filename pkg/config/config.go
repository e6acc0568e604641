package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Ledger       LedgerConfig
	Cron         CronConfig
	HTTP         HTTPConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Ledger.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FRANCHISEFUND_APP_ENV" required:"true"`
	Port         string `envconfig:"FRANCHISEFUND_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FRANCHISEFUND_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"FRANCHISEFUND_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"FRANCHISEFUND_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"FRANCHISEFUND_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"FRANCHISEFUND_DB_DSN"`
	Driver string `envconfig:"FRANCHISEFUND_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FRANCHISEFUND_DB_HOST"`
	LegacyPort     int    `envconfig:"FRANCHISEFUND_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FRANCHISEFUND_DB_USER"`
	LegacyPassword string `envconfig:"FRANCHISEFUND_DB_PASSWORD"`
	LegacyName     string `envconfig:"FRANCHISEFUND_DB_NAME"`
	LegacySSLMode  string `envconfig:"FRANCHISEFUND_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FRANCHISEFUND_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FRANCHISEFUND_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FRANCHISEFUND_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FRANCHISEFUND_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQuery time.Duration `envconfig:"FRANCHISEFUND_DB_SLOW_QUERY" default:"500ms"`
	// TxAttempts bounds retries of a transaction aborted by a serialization
	// failure or deadlock.
	TxAttempts int `envconfig:"FRANCHISEFUND_DB_TX_ATTEMPTS" default:"3"`
}

// IsSQLite reports whether the sqlite driver was selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"FRANCHISEFUND_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FRANCHISEFUND_REDIS_ADDR"`
	Password     string        `envconfig:"FRANCHISEFUND_REDIS_PASSWORD"`
	DB           int           `envconfig:"FRANCHISEFUND_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FRANCHISEFUND_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FRANCHISEFUND_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FRANCHISEFUND_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FRANCHISEFUND_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FRANCHISEFUND_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"FRANCHISEFUND_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FRANCHISEFUND_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"FRANCHISEFUND_JWT_EXPIRATION_MINUTES" required:"true"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"FRANCHISEFUND_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"FRANCHISEFUND_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"FRANCHISEFUND_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"FRANCHISEFUND_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"FRANCHISEFUND_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	LedgerTopic            string `envconfig:"FRANCHISEFUND_PUBSUB_LEDGER_TOPIC" required:"true"`
	ApprovalsTopic         string `envconfig:"FRANCHISEFUND_PUBSUB_APPROVALS_TOPIC" default:"ff-approval-events"`
	SettlementSubscription string `envconfig:"FRANCHISEFUND_PUBSUB_SETTLEMENT_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize        int `envconfig:"FRANCHISEFUND_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS   int `envconfig:"FRANCHISEFUND_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts      int `envconfig:"FRANCHISEFUND_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays    int `envconfig:"FRANCHISEFUND_OUTBOX_RETENTION_DAYS" default:"30"`
	DLQRetentionDays int `envconfig:"FRANCHISEFUND_OUTBOX_DLQ_RETENTION_DAYS" default:"90"`
}

// LedgerConfig holds the money and lifecycle policy knobs of the ledger.
type LedgerConfig struct {
	CommissionRate    string        `envconfig:"FRANCHISEFUND_LEDGER_COMMISSION_RATE" default:"0.02"`
	FundingWindowDays int           `envconfig:"FRANCHISEFUND_LEDGER_FUNDING_WINDOW_DAYS" default:"60"`
	AttentionWindow   time.Duration `envconfig:"FRANCHISEFUND_LEDGER_ATTENTION_WINDOW" default:"168h"`
	DefaultEscrowTTL  time.Duration `envconfig:"FRANCHISEFUND_LEDGER_DEFAULT_ESCROW_TTL" default:"720h"`
	CanonicalCurrency string        `envconfig:"FRANCHISEFUND_LEDGER_CANONICAL_CURRENCY" default:"USD"`
	// DisplayRates is a comma separated list of CUR:rate pairs quoted against
	// the canonical currency, e.g. "EUR:0.92,GBP:0.79".
	DisplayRates string        `envconfig:"FRANCHISEFUND_LEDGER_DISPLAY_RATES"`
	RateCacheTTL time.Duration `envconfig:"FRANCHISEFUND_LEDGER_RATE_CACHE_TTL" default:"15m"`
}

// Commission returns the parsed commission rate.
func (l LedgerConfig) Commission() decimal.Decimal {
	rate, err := decimal.NewFromString(strings.TrimSpace(l.CommissionRate))
	if err != nil {
		return decimal.RequireFromString(DefaultCommissionRate)
	}
	return rate
}

// ParsedDisplayRates returns the configured display rates keyed by ISO code.
func (l LedgerConfig) ParsedDisplayRates() (map[string]decimal.Decimal, error) {
	rates := map[string]decimal.Decimal{}
	raw := strings.TrimSpace(l.DisplayRates)
	if raw == "" {
		return rates, nil
	}
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid display rate %q", pair)
		}
		code := strings.ToUpper(strings.TrimSpace(parts[0]))
		rate, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid display rate for %s: %w", code, err)
		}
		if !rate.IsPositive() {
			return nil, fmt.Errorf("display rate for %s must be positive", code)
		}
		rates[code] = rate
	}
	return rates, nil
}

func (l LedgerConfig) validate() error {
	rate, err := decimal.NewFromString(strings.TrimSpace(l.CommissionRate))
	if err != nil {
		return fmt.Errorf("%s: %w", EnvLedgerCommissionRate, err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("%s must be in [0, 1)", EnvLedgerCommissionRate)
	}
	if l.FundingWindowDays <= 0 {
		return fmt.Errorf("%s must be positive", EnvLedgerFundingWindowDays)
	}
	if _, err := l.ParsedDisplayRates(); err != nil {
		return err
	}
	return nil
}

type CronConfig struct {
	Interval time.Duration `envconfig:"FRANCHISEFUND_CRON_INTERVAL" default:"1m"`
	LockTTL  time.Duration `envconfig:"FRANCHISEFUND_CRON_LOCK_TTL" default:"5m"`
}

// HTTPConfig covers the edge policies of the public API.
type HTTPConfig struct {
	CORSOrigins     []string      `envconfig:"FRANCHISEFUND_HTTP_CORS_ORIGINS"`
	RateLimitWindow time.Duration `envconfig:"FRANCHISEFUND_HTTP_RATE_LIMIT_WINDOW" default:"1m"`
	RateLimitActor  int           `envconfig:"FRANCHISEFUND_HTTP_RATE_LIMIT_ACTOR" default:"120"`
	RateLimitIP     int           `envconfig:"FRANCHISEFUND_HTTP_RATE_LIMIT_IP" default:"60"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = DefaultSQLiteDSN
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
