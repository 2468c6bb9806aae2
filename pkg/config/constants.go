package config

const EnvPrefix = "BAKEHOUSE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	StoreBackendMemory = "memory"
	StoreBackendRedis  = "redis"
	StoreBackendSQL    = "sql"
)

const (
	EnvAppEnv                = "BAKEHOUSE_APP_ENV"
	EnvPort                  = "BAKEHOUSE_APP_PORT"
	EnvStoreBackend          = "BAKEHOUSE_STORE_BACKEND"
	EnvStoreNamespace        = "BAKEHOUSE_STORE_NAMESPACE"
	EnvStoreMaxBytes         = "BAKEHOUSE_STORE_MAX_BYTES"
	EnvDBDSN                 = "BAKEHOUSE_DB_DSN"
	EnvDBHost                = "BAKEHOUSE_DB_HOST"
	EnvDBUser                = "BAKEHOUSE_DB_USER"
	EnvDBName                = "BAKEHOUSE_DB_NAME"
	EnvRedisURL              = "BAKEHOUSE_REDIS_URL"
	EnvRedisAddr             = "BAKEHOUSE_REDIS_ADDR"
	EnvSessionSecret         = "BAKEHOUSE_SESSION_SECRET"
	EnvTaxRate               = "BAKEHOUSE_TAX_RATE"
	EnvFreeShippingThreshold = "BAKEHOUSE_FREE_SHIPPING_THRESHOLD"
	EnvGiftWrapFee           = "BAKEHOUSE_GIFT_WRAP_FEE"
	EnvStandardShipping      = "BAKEHOUSE_STANDARD_SHIPPING"
	EnvExpressShipping       = "BAKEHOUSE_EXPRESS_SHIPPING"
	EnvLocalDeliveryShipping = "BAKEHOUSE_LOCAL_DELIVERY_SHIPPING"
	EnvLocalDeliveryPrefixes = "BAKEHOUSE_LOCAL_DELIVERY_PREFIXES"
	EnvOrderPrefix           = "BAKEHOUSE_ORDER_PREFIX"
)

var dbEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
