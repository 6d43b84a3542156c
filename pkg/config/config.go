package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	Shopify       ShopifyConfig
	Sync          SyncConfig
	SyncRateLimit SyncRateLimitConfig
	Webhook       WebhookConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Shopify.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SHOPDESK_APP_ENV" required:"true"`
	Port         string `envconfig:"SHOPDESK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SHOPDESK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SHOPDESK_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"SHOPDESK_APP_AUTO_MIGRATE" default:"false"`
	// CORSOrigins supplements the built-in development origins.
	CORSOrigins []string `envconfig:"SHOPDESK_APP_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SHOPDESK_DB_DSN"`
	Driver string `envconfig:"SHOPDESK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SHOPDESK_DB_HOST"`
	LegacyPort     int    `envconfig:"SHOPDESK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SHOPDESK_DB_USER"`
	LegacyPassword string `envconfig:"SHOPDESK_DB_PASSWORD"`
	LegacyName     string `envconfig:"SHOPDESK_DB_NAME"`
	LegacySSLMode  string `envconfig:"SHOPDESK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SHOPDESK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SHOPDESK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SHOPDESK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SHOPDESK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SHOPDESK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SHOPDESK_REDIS_ADDR"`
	Password     string        `envconfig:"SHOPDESK_REDIS_PASSWORD"`
	DB           int           `envconfig:"SHOPDESK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SHOPDESK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHOPDESK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHOPDESK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHOPDESK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SHOPDESK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// ShopifyConfig describes the upstream Admin REST API connection.
type ShopifyConfig struct {
	ShopDomain  string `envconfig:"SHOPDESK_SHOPIFY_SHOP_DOMAIN" required:"true"`
	AccessToken string `envconfig:"SHOPDESK_SHOPIFY_ACCESS_TOKEN" required:"true"`

	// APIVersions is the descending fallback list tried on a 404 version
	// mismatch. The first entry is the primary version.
	APIVersions []string `envconfig:"SHOPDESK_SHOPIFY_API_VERSIONS" default:"2024-10,2024-07,2024-04,2024-01"`

	CDNHost string `envconfig:"SHOPDESK_SHOPIFY_CDN_HOST" default:"https://cdn.shopify.com"`

	RequestTimeout time.Duration `envconfig:"SHOPDESK_SHOPIFY_REQUEST_TIMEOUT" default:"20s"`
	// Delay inserted between successive page or batch requests.
	ThrottleDelay time.Duration `envconfig:"SHOPDESK_SHOPIFY_THROTTLE_DELAY" default:"400ms"`
	RetryAttempts int           `envconfig:"SHOPDESK_SHOPIFY_RETRY_ATTEMPTS" default:"3"`
	RetryDelay    time.Duration `envconfig:"SHOPDESK_SHOPIFY_RETRY_DELAY" default:"1s"`
}

func (s *ShopifyConfig) validate() error {
	if len(s.APIVersions) == 0 {
		return fmt.Errorf("%s must list at least one version", EnvShopifyAPIVersions)
	}
	token := strings.TrimSpace(s.AccessToken)
	if !strings.HasPrefix(token, "shpat_") && !strings.HasPrefix(token, "shpca_") {
		// Operators routinely paste API keys instead of admin tokens. Flag
		// early, the upstream 401 is much harder to diagnose.
		return fmt.Errorf("%s does not look like an admin access token (expected shpat_/shpca_ prefix, got %d chars)", EnvShopifyAccessToken, len(token))
	}
	return nil
}

// SyncConfig tunes the polling loop and bulk resync drivers.
type SyncConfig struct {
	Interval        time.Duration `envconfig:"SHOPDESK_SYNC_INTERVAL" default:"5m"`
	PageLimit       int           `envconfig:"SHOPDESK_SYNC_PAGE_LIMIT" default:"250"`
	MaxEmptyPages   int           `envconfig:"SHOPDESK_SYNC_MAX_EMPTY_PAGES" default:"2"`
	ImageBatchSize  int           `envconfig:"SHOPDESK_SYNC_IMAGE_BATCH_SIZE" default:"50"`
	ImageRefetchCap int           `envconfig:"SHOPDESK_SYNC_IMAGE_REFETCH_CAP" default:"200"`
	ResyncDelay     time.Duration `envconfig:"SHOPDESK_SYNC_RESYNC_DELAY" default:"300ms"`
}

// SyncRateLimitConfig throttles the manual sync trigger endpoints so
// operators cannot burn through the upstream API quota.
type SyncRateLimitConfig struct {
	Window  time.Duration `envconfig:"SHOPDESK_SYNC_TRIGGER_WINDOW" default:"1m"`
	IPLimit int           `envconfig:"SHOPDESK_SYNC_TRIGGER_IP_LIMIT" default:"6"`
}

// WebhookConfig tunes webhook handling.
type WebhookConfig struct {
	IdempotencyTTL time.Duration `envconfig:"SHOPDESK_WEBHOOK_IDEMPOTENCY_TTL" default:"24h"`
	// Secret signs incoming Shopify webhooks. Empty disables verification,
	// which is only acceptable in local development.
	Secret string `envconfig:"SHOPDESK_WEBHOOK_SECRET"`
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
