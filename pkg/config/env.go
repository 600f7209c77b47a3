package config

const EnvPrefix = "COMANDA"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	// DefaultSQLiteDSN backs local runs with COMANDA_USE_SQLITE and no DSN.
	DefaultSQLiteDSN = "file:comanda.db?_foreign_keys=on"
)

const (
	AvailabilityAssumeAvailable   = "assume-available"
	AvailabilityAssumeUnavailable = "assume-unavailable"
)

const (
	EnvAppEnv    = "COMANDA_APP_ENV"
	EnvPort      = "COMANDA_APP_PORT"
	EnvDBDSN     = "COMANDA_DB_DSN"
	EnvDBHost    = "COMANDA_DB_HOST"
	EnvDBUser    = "COMANDA_DB_USER"
	EnvDBName    = "COMANDA_DB_NAME"
	EnvRedisURL  = "COMANDA_REDIS_URL"
	EnvUseSQLite = "COMANDA_USE_SQLITE"

	EnvJWTSecret = "COMANDA_JWT_SECRET"
	EnvJWTIssuer = "COMANDA_JWT_ISSUER"

	EnvLookupCodePrefix           = "COMANDA_LOOKUP_CODE_PREFIX"
	EnvDeliveryWindowStart        = "COMANDA_CHECKOUT_DELIVERY_WINDOW_START"
	EnvDeliveryWindowEnd          = "COMANDA_CHECKOUT_DELIVERY_WINDOW_END"
	EnvAvailabilityOnCheckFailure = "COMANDA_AVAILABILITY_ON_CHECK_FAILURE"
	EnvTakeoverTTL                = "COMANDA_TAKEOVER_TTL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
