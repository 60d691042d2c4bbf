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
	App            AppConfig
	DB             DBConfig
	Redis          RedisConfig
	JWT            JWTConfig
	Password       PasswordConfig
	AuthRateLimit  AuthRateLimitConfig
	FeatureFlags   FeatureFlagsConfig
	Booking        BookingConfig
	GCP            GCPConfig
	GCS            GCSConfig
	Media          MediaConfig
	Stripe         StripeConfig
	Sendgrid       SendgridConfig
	BootstrapAdmin BootstrapAdminConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Booking.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"HAULBOOK_APP_ENV" required:"true"`
	Port         string   `envconfig:"HAULBOOK_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"HAULBOOK_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"HAULBOOK_LOG_WARN_STACK" default:"false"`
	LogFormat    string   `envconfig:"HAULBOOK_LOG_FORMAT" default:"json"`
	PublicURL    string   `envconfig:"HAULBOOK_PUBLIC_URL" default:"http://localhost:3000"`
	CORSOrigins  []string `envconfig:"HAULBOOK_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// BookingURL renders the customer facing link for a quotation token.
func (a AppConfig) BookingURL(token string) string {
	return strings.TrimRight(a.PublicURL, "/") + "/booking/" + url.PathEscape(token)
}

type DBConfig struct {
	DSN    string `envconfig:"HAULBOOK_DB_DSN"`
	Driver string `envconfig:"HAULBOOK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"HAULBOOK_DB_HOST"`
	LegacyPort     int    `envconfig:"HAULBOOK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"HAULBOOK_DB_USER"`
	LegacyPassword string `envconfig:"HAULBOOK_DB_PASSWORD"`
	LegacyName     string `envconfig:"HAULBOOK_DB_NAME"`
	LegacySSLMode  string `envconfig:"HAULBOOK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"HAULBOOK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"HAULBOOK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"HAULBOOK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"HAULBOOK_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"HAULBOOK_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"HAULBOOK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"HAULBOOK_REDIS_ADDR"`
	Password     string        `envconfig:"HAULBOOK_REDIS_PASSWORD"`
	DB           int           `envconfig:"HAULBOOK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"HAULBOOK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"HAULBOOK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"HAULBOOK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"HAULBOOK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"HAULBOOK_REDIS_WRITE_TIMEOUT" default:"5s"`
	KeyPrefix    string        `envconfig:"HAULBOOK_REDIS_KEY_PREFIX" default:"haulbook"`
}

type JWTConfig struct {
	Secret            string `envconfig:"HAULBOOK_JWT_SECRET" required:"true"`
	PreviousSecret    string `envconfig:"HAULBOOK_JWT_PREVIOUS_SECRET"`
	Issuer            string `envconfig:"HAULBOOK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"HAULBOOK_JWT_EXPIRATION_MINUTES" default:"480"`
	CookieName        string `envconfig:"HAULBOOK_SESSION_COOKIE_NAME" default:"haulbook_session"`
	CookieDomain      string `envconfig:"HAULBOOK_SESSION_COOKIE_DOMAIN"`
}

// SessionTTL returns the lifetime of an admin session token.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"HAULBOOK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"HAULBOOK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"HAULBOOK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"HAULBOOK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"HAULBOOK_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"HAULBOOK_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginUsernameLimit int           `envconfig:"HAULBOOK_AUTH_RATE_LIMIT_LOGIN_USERNAME_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"HAULBOOK_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	TrustProxyHeaders  bool          `envconfig:"HAULBOOK_TRUST_PROXY_HEADERS" default:"true"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"HAULBOOK_AUTO_MIGRATE" default:"false"`
}

// BookingConfig holds the business rules for quotes and cancellations.
type BookingConfig struct {
	CancellationThresholdHours int      `envconfig:"HAULBOOK_CANCELLATION_THRESHOLD_HOURS" default:"24"`
	CancellationFee            string   `envconfig:"HAULBOOK_CANCELLATION_FEE" default:"50.00"`
	TaxRate                    string   `envconfig:"HAULBOOK_TAX_RATE" default:"0.12"`
	Currency                   string   `envconfig:"HAULBOOK_CURRENCY" default:"cad"`
	ServiceAreaPrefixes        []string `envconfig:"HAULBOOK_SERVICE_AREA_PREFIXES" default:"V3,V4,V5,V6,V7"`
}

func (b BookingConfig) CancellationThreshold() time.Duration {
	return time.Duration(b.CancellationThresholdHours) * time.Hour
}

func (b BookingConfig) CancellationFeeAmount() decimal.Decimal {
	fee, err := decimal.NewFromString(strings.TrimSpace(b.CancellationFee))
	if err != nil {
		return decimal.Zero
	}
	return fee
}

func (b BookingConfig) TaxRateValue() decimal.Decimal {
	rate, err := decimal.NewFromString(strings.TrimSpace(b.TaxRate))
	if err != nil {
		return decimal.Zero
	}
	return rate
}

func (b BookingConfig) validate() error {
	if b.CancellationThresholdHours < 0 {
		return fmt.Errorf("%s must not be negative", EnvCancellationThresholdHours)
	}
	fee, err := decimal.NewFromString(strings.TrimSpace(b.CancellationFee))
	if err != nil || fee.IsNegative() {
		return fmt.Errorf("%s must be a non-negative decimal", EnvCancellationFee)
	}
	rate, err := decimal.NewFromString(strings.TrimSpace(b.TaxRate))
	if err != nil || rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%s must be a decimal between 0 and 1", EnvTaxRate)
	}
	if len(b.ServiceAreaPrefixes) == 0 {
		return fmt.Errorf("%s must list at least one prefix", EnvServiceAreaPrefixes)
	}
	return nil
}

type GCPConfig struct {
	ProjectID              string `envconfig:"HAULBOOK_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"HAULBOOK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"HAULBOOK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName    string `envconfig:"HAULBOOK_GCS_BUCKET_NAME"`
	PublicBaseURL string `envconfig:"HAULBOOK_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
}

// Enabled reports whether photo uploads have somewhere to go.
func (g GCSConfig) Enabled() bool {
	return strings.TrimSpace(g.BucketName) != ""
}

type MediaConfig struct {
	MaxUploadMB int `envconfig:"HAULBOOK_MAX_UPLOAD_MB" default:"10"`
}

func (m MediaConfig) MaxUploadBytes() int64 {
	if m.MaxUploadMB <= 0 {
		return 10 << 20
	}
	return int64(m.MaxUploadMB) << 20
}

type StripeConfig struct {
	APIKey string `envconfig:"HAULBOOK_STRIPE_API_KEY"`
	Secret string `envconfig:"HAULBOOK_STRIPE_SECRET"`
	Env    string `envconfig:"HAULBOOK_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type SendgridConfig struct {
	APIKey      string `envconfig:"HAULBOOK_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"HAULBOOK_SENDGRID_FROM_EMAIL" default:"bookings@example.com"`
	FromName    string `envconfig:"HAULBOOK_SENDGRID_FROM_NAME" default:"Haulbook"`
	AdminEmail  string `envconfig:"HAULBOOK_ADMIN_NOTIFICATION_EMAIL"`
}

type BootstrapAdminConfig struct {
	Username string `envconfig:"HAULBOOK_BOOTSTRAP_ADMIN_USERNAME"`
	Email    string `envconfig:"HAULBOOK_BOOTSTRAP_ADMIN_EMAIL"`
	Password string `envconfig:"HAULBOOK_BOOTSTRAP_ADMIN_PASSWORD"`
}

func (b BootstrapAdminConfig) Enabled() bool {
	return b.Username != "" && b.Email != "" && b.Password != ""
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
