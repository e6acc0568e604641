package config

const (
	EnvPrefix = "FRANCHISEFUND"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	DefaultSQLiteDSN      = "file:franchisefund.db?_busy_timeout=5000"
	DefaultCommissionRate = "0.02"
)

const (
	EnvAppEnv = "FRANCHISEFUND_APP_ENV"
	EnvPort   = "FRANCHISEFUND_APP_PORT"

	EnvDBDSN    = "FRANCHISEFUND_DB_DSN"
	EnvDBDriver = "FRANCHISEFUND_DB_DRIVER"
	EnvDBHost   = "FRANCHISEFUND_DB_HOST"
	EnvDBUser   = "FRANCHISEFUND_DB_USER"
	EnvDBName   = "FRANCHISEFUND_DB_NAME"

	EnvRedisURL = "FRANCHISEFUND_REDIS_URL"

	EnvJWTSecret  = "FRANCHISEFUND_JWT_SECRET"
	EnvJWTIssuer  = "FRANCHISEFUND_JWT_ISSUER"
	EnvJWTExpMins = "FRANCHISEFUND_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID = "FRANCHISEFUND_GCP_PROJECT_ID"

	EnvPubSubLedgerTopic       = "FRANCHISEFUND_PUBSUB_LEDGER_TOPIC"
	EnvPubSubSettlementSub     = "FRANCHISEFUND_PUBSUB_SETTLEMENT_SUBSCRIPTION"
	EnvLedgerCommissionRate    = "FRANCHISEFUND_LEDGER_COMMISSION_RATE"
	EnvLedgerFundingWindowDays = "FRANCHISEFUND_LEDGER_FUNDING_WINDOW_DAYS"
	EnvLedgerDisplayRates      = "FRANCHISEFUND_LEDGER_DISPLAY_RATES"

	EnvHTTPCORSOrigins = "FRANCHISEFUND_HTTP_CORS_ORIGINS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
