package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv                  = "STOREFRONT_APP_ENV"
	EnvPort                    = "STOREFRONT_APP_PORT"
	EnvDBDSN                   = "STOREFRONT_DB_DSN"
	EnvDBHost                  = "STOREFRONT_DB_HOST"
	EnvDBUser                  = "STOREFRONT_DB_USER"
	EnvDBName                  = "STOREFRONT_DB_NAME"
	EnvRedisURL                = "STOREFRONT_REDIS_URL"
	EnvJWTSecret               = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer               = "STOREFRONT_JWT_ISSUER"
	EnvJWTExpMins              = "STOREFRONT_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes  = "STOREFRONT_REFRESH_TOKEN_TTL_MINUTES"
	EnvUseSQLite               = "STOREFRONT_USE_SQLITE"
	EnvCartMergeOnLogin        = "STOREFRONT_CART_MERGE_ON_LOGIN"
	EnvOutboxBroker            = "STOREFRONT_OUTBOX_BROKER"
	EnvKafkaBrokers            = "STOREFRONT_KAFKA_BROKERS"
	EnvGCPProjectID            = "STOREFRONT_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic       = "STOREFRONT_PUBSUB_ORDERS_TOPIC"
	EnvSessionCookieName       = "STOREFRONT_SESSION_COOKIE_NAME"
	EnvSessionCookieMaxAgeDays = "STOREFRONT_SESSION_COOKIE_MAX_AGE_DAYS"
)

// Supported database drivers.
const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

// Supported outbox sinks.
const (
	OutboxBrokerLog    = "log"
	OutboxBrokerPubSub = "pubsub"
	OutboxBrokerKafka  = "kafka"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Session       SessionConfig
	Cart          CartConfig
	Outbox        OutboxConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Kafka         KafkaConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DBDriverSQLite
		if cfg.DB.SQLitePath == "" {
			cfg.DB.SQLitePath = "storefront.db"
		}
		return &cfg, nil
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`

	ShutdownTimeout time.Duration `envconfig:"STOREFRONT_SHUTDOWN_TIMEOUT" default:"15s"`
	RequestTimeout  time.Duration `envconfig:"STOREFRONT_REQUEST_TIMEOUT" default:"10s"`

	CORSAllowedOrigins []string `envconfig:"STOREFRONT_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN        string `envconfig:"STOREFRONT_DB_DSN"`
	Driver     string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`
	SQLitePath string `envconfig:"STOREFRONT_SQLITE_PATH"`

	LegacyHost     string `envconfig:"STOREFRONT_DB_HOST"`
	LegacyPort     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOREFRONT_DB_USER"`
	LegacyPassword string `envconfig:"STOREFRONT_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOREFRONT_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"STOREFRONT_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"STOREFRONT_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"STOREFRONT_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"STOREFRONT_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"STOREFRONT_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"STOREFRONT_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"STOREFRONT_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"STOREFRONT_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginPhoneLimit    int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_PHONE_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterPhoneLimit int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_REGISTER_PHONE_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"STOREFRONT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
}

// SessionConfig controls how anonymous cart tokens are persisted on the client.
type SessionConfig struct {
	CookieName       string `envconfig:"STOREFRONT_SESSION_COOKIE_NAME" default:"cart_session_id"`
	HeaderName       string `envconfig:"STOREFRONT_SESSION_HEADER_NAME" default:"X-Session-Token"`
	CookieMaxAgeDays int    `envconfig:"STOREFRONT_SESSION_COOKIE_MAX_AGE_DAYS" default:"365"`
	CookieSecure     bool   `envconfig:"STOREFRONT_SESSION_COOKIE_SECURE" default:"true"`
}

// CookieMaxAge returns the cookie lifetime in seconds.
func (s SessionConfig) CookieMaxAge() int {
	if s.CookieMaxAgeDays <= 0 {
		return 0
	}
	return int((time.Duration(s.CookieMaxAgeDays) * 24 * time.Hour).Seconds())
}

type CartConfig struct {
	MergeOnLogin bool `envconfig:"STOREFRONT_CART_MERGE_ON_LOGIN" default:"false"`
	MaxQuantity  int  `envconfig:"STOREFRONT_CART_MAX_QUANTITY" default:"999"`
}

type OutboxConfig struct {
	Broker         string `envconfig:"STOREFRONT_OUTBOX_BROKER" default:"log"`
	BatchSize      int    `envconfig:"STOREFRONT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"STOREFRONT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"STOREFRONT_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// NormalizedBroker returns the lower-cased broker name, defaulting to log.
func (o OutboxConfig) NormalizedBroker() string {
	broker := strings.ToLower(strings.TrimSpace(o.Broker))
	if broker == "" {
		return OutboxBrokerLog
	}
	return broker
}

type GCPConfig struct {
	ProjectID string `envconfig:"STOREFRONT_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic string `envconfig:"STOREFRONT_PUBSUB_ORDERS_TOPIC" default:"storefront-order-events"`
}

type KafkaConfig struct {
	Brokers     []string `envconfig:"STOREFRONT_KAFKA_BROKERS"`
	OrdersTopic string   `envconfig:"STOREFRONT_KAFKA_ORDERS_TOPIC" default:"storefront.order-events"`
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
