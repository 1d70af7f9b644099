package config

const EnvPrefix = "PORTAL"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv   = "PORTAL_APP_ENV"
	EnvPort     = "PORTAL_APP_PORT"
	EnvLogLevel = "PORTAL_LOG_LEVEL"

	EnvDBDSN    = "PORTAL_DB_DSN"
	EnvDBDriver = "PORTAL_DB_DRIVER"
	EnvDBHost   = "PORTAL_DB_HOST"
	EnvDBPort   = "PORTAL_DB_PORT"
	EnvDBUser   = "PORTAL_DB_USER"
	EnvDBPass   = "PORTAL_DB_PASSWORD"
	EnvDBName   = "PORTAL_DB_NAME"
	EnvDBSSL    = "PORTAL_DB_SSLMODE"

	EnvRedisURL = "PORTAL_REDIS_URL"

	EnvJWTSecret  = "PORTAL_JWT_SECRET"
	EnvJWTIssuer  = "PORTAL_JWT_ISSUER"
	EnvJWTExpMins = "PORTAL_JWT_EXPIRATION_MINUTES"

	EnvUseSQLite   = "PORTAL_USE_SQLITE"
	EnvAutoMigrate = "PORTAL_AUTO_MIGRATE"

	EnvRateLimitClaimWindow = "PORTAL_RATE_LIMIT_CLAIM_WINDOW"
	EnvRateLimitClaimLimit  = "PORTAL_RATE_LIMIT_CLAIM_LIMIT"

	EnvGCPProjectID = "PORTAL_GCP_PROJECT_ID"

	EnvPubSubLedgerTopic       = "PORTAL_PUBSUB_LEDGER_TOPIC"
	EnvPubSubNotificationTopic = "PORTAL_PUBSUB_NOTIFICATION_TOPIC"

	EnvOutboxMaxAttempts = "PORTAL_OUTBOX_MAX_ATTEMPTS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
