package config

const (
	// EnvPrefix is empty because every struct tag carries the full variable name.
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DefaultSessionCookieName = "haulbook_session"

	EnvAppEnv    = "HAULBOOK_APP_ENV"
	EnvPort      = "HAULBOOK_APP_PORT"
	EnvPublicURL = "HAULBOOK_PUBLIC_URL"

	EnvDBDSN  = "HAULBOOK_DB_DSN"
	EnvDBHost = "HAULBOOK_DB_HOST"
	EnvDBUser = "HAULBOOK_DB_USER"
	EnvDBName = "HAULBOOK_DB_NAME"

	EnvRedisURL = "HAULBOOK_REDIS_URL"

	EnvJWTSecret  = "HAULBOOK_JWT_SECRET"
	EnvJWTIssuer  = "HAULBOOK_JWT_ISSUER"
	EnvJWTExpMins = "HAULBOOK_JWT_EXPIRATION_MINUTES"

	EnvCancellationThresholdHours = "HAULBOOK_CANCELLATION_THRESHOLD_HOURS"
	EnvCancellationFee            = "HAULBOOK_CANCELLATION_FEE"
	EnvTaxRate                    = "HAULBOOK_TAX_RATE"
	EnvServiceAreaPrefixes        = "HAULBOOK_SERVICE_AREA_PREFIXES"

	EnvGCSBucket = "HAULBOOK_GCS_BUCKET_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
