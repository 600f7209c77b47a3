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
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Lookup       LookupConfig
	Checkout     CheckoutConfig
	Messaging    MessagingConfig
	Cron         CronConfig
	CORS         CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DBDriverSQLite
		if cfg.DB.DSN == "" {
			cfg.DB.DSN = DefaultSQLiteDSN
		}
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Checkout.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"COMANDA_APP_ENV" required:"true"`
	Port         string `envconfig:"COMANDA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"COMANDA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"COMANDA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"COMANDA_DB_DSN"`
	Driver string `envconfig:"COMANDA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"COMANDA_DB_HOST"`
	LegacyPort     int    `envconfig:"COMANDA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"COMANDA_DB_USER"`
	LegacyPassword string `envconfig:"COMANDA_DB_PASSWORD"`
	LegacyName     string `envconfig:"COMANDA_DB_NAME"`
	LegacySSLMode  string `envconfig:"COMANDA_DB_SSLMODE" default:"require"`

	MaxOpenConns    int           `envconfig:"COMANDA_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"COMANDA_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"COMANDA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"COMANDA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"COMANDA_REDIS_URL"`
	Address      string        `envconfig:"COMANDA_REDIS_ADDR"`
	Password     string        `envconfig:"COMANDA_REDIS_PASSWORD"`
	DB           int           `envconfig:"COMANDA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"COMANDA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"COMANDA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"COMANDA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"COMANDA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"COMANDA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig verifies staff access tokens minted by the hosted auth provider.
type JWTConfig struct {
	Secret            string `envconfig:"COMANDA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"COMANDA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"COMANDA_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"COMANDA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"COMANDA_AUTO_MIGRATE" default:"false"`
}

type LookupConfig struct {
	CodePrefix      string        `envconfig:"COMANDA_LOOKUP_CODE_PREFIX" default:"DEL"`
	RateLimitWindow time.Duration `envconfig:"COMANDA_LOOKUP_RATE_LIMIT_WINDOW" default:"1m"`
	RateLimitPerIP  int           `envconfig:"COMANDA_LOOKUP_RATE_LIMIT_PER_IP" default:"30"`
}

type CheckoutConfig struct {
	DeliveryFee         string `envconfig:"COMANDA_CHECKOUT_DELIVERY_FEE" default:"0.00"`
	DeliveryWindowStart string `envconfig:"COMANDA_CHECKOUT_DELIVERY_WINDOW_START"`
	DeliveryWindowEnd   string `envconfig:"COMANDA_CHECKOUT_DELIVERY_WINDOW_END"`
	Timezone            string `envconfig:"COMANDA_CHECKOUT_TIMEZONE" default:"America/Sao_Paulo"`
	OnCheckFailure      string `envconfig:"COMANDA_AVAILABILITY_ON_CHECK_FAILURE" default:"assume-available"`
}

func (c CheckoutConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.OnCheckFailure)) {
	case AvailabilityAssumeAvailable, AvailabilityAssumeUnavailable:
	default:
		return fmt.Errorf("%s must be %q or %q", EnvAvailabilityOnCheckFailure, AvailabilityAssumeAvailable, AvailabilityAssumeUnavailable)
	}
	if (c.DeliveryWindowStart == "") != (c.DeliveryWindowEnd == "") {
		return fmt.Errorf("%s and %s must be set together", EnvDeliveryWindowStart, EnvDeliveryWindowEnd)
	}
	return nil
}

// Location resolves the configured timezone, falling back to UTC.
func (c CheckoutConfig) Location() *time.Location {
	if strings.TrimSpace(c.Timezone) == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type MessagingConfig struct {
	BaseURL       string        `envconfig:"COMANDA_ZAPI_BASE_URL" default:"https://api.z-api.io"`
	InstanceID    string        `envconfig:"COMANDA_ZAPI_INSTANCE_ID"`
	Token         string        `envconfig:"COMANDA_ZAPI_TOKEN"`
	ClientToken   string        `envconfig:"COMANDA_ZAPI_CLIENT_TOKEN"`
	WebhookSecret string        `envconfig:"COMANDA_WEBHOOK_SECRET"`
	TakeoverTTL   time.Duration `envconfig:"COMANDA_TAKEOVER_TTL" default:"5m"`
	DedupeTTL     time.Duration `envconfig:"COMANDA_WEBHOOK_DEDUPE_TTL" default:"24h"`
}

// Enabled reports whether provider credentials are present.
func (m MessagingConfig) Enabled() bool {
	return strings.TrimSpace(m.InstanceID) != "" && strings.TrimSpace(m.Token) != ""
}

type CronConfig struct {
	Interval time.Duration `envconfig:"COMANDA_CRON_INTERVAL" default:"1m"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"COMANDA_CORS_ALLOWED_ORIGINS" default:"http://localhost:5173"`
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
