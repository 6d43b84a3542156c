package config

// EnvPrefix is passed to envconfig; individual fields carry fully prefixed
// names so the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "SHOPDESK_DB_DSN"
	EnvDBHost = "SHOPDESK_DB_HOST"
	EnvDBUser = "SHOPDESK_DB_USER"
	EnvDBName = "SHOPDESK_DB_NAME"

	EnvShopifyAccessToken = "SHOPDESK_SHOPIFY_ACCESS_TOKEN"
	EnvShopifyAPIVersions = "SHOPDESK_SHOPIFY_API_VERSIONS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
