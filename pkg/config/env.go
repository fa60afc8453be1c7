package config

const EnvPrefix = "QUARTERMASTER"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	EnvAppEnv    = "QUARTERMASTER_APP_ENV"
	EnvPort      = "QUARTERMASTER_APP_PORT"
	EnvLogLevel  = "QUARTERMASTER_LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"

	EnvDBDSN  = "QUARTERMASTER_DB_DSN"
	EnvDBHost = "QUARTERMASTER_DB_HOST"
	EnvDBUser = "QUARTERMASTER_DB_USER"
	EnvDBName = "QUARTERMASTER_DB_NAME"

	EnvRedisURL = "QUARTERMASTER_REDIS_URL"

	EnvJWTSecret  = "QUARTERMASTER_JWT_SECRET"
	EnvJWTIssuer  = "QUARTERMASTER_JWT_ISSUER"
	EnvJWTExpMins = "QUARTERMASTER_JWT_EXPIRATION_MINUTES"

	EnvUseSQLite   = "QUARTERMASTER_USE_SQLITE"
	EnvAutoMigrate = "QUARTERMASTER_AUTO_MIGRATE"

	EnvInspectionAutoClose = "QUARTERMASTER_INSPECTION_AUTO_CLOSE_AFTER"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
