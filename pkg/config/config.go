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
	App       AppConfig
	Store     StoreConfig
	DB        DBConfig
	Redis     RedisConfig
	Session   SessionConfig
	Pricing   PricingConfig
	Checkout  CheckoutConfig
	Inventory InventoryConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Store.validate(); err != nil {
		return nil, err
	}
	if cfg.Store.Backend == StoreBackendSQL {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	if cfg.Store.Backend == StoreBackendRedis && cfg.Redis.URL == "" && cfg.Redis.Address == "" {
		return nil, fmt.Errorf("%s or %s is required for the redis store backend", EnvRedisURL, EnvRedisAddr)
	}
	if err := cfg.Pricing.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BAKEHOUSE_APP_ENV" required:"true"`
	Port         string `envconfig:"BAKEHOUSE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"BAKEHOUSE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BAKEHOUSE_LOG_WARN_STACK" default:"false"`
	// AdminToken guards the inventory admin routes; empty leaves them unmounted.
	AdminToken  string   `envconfig:"BAKEHOUSE_ADMIN_TOKEN"`
	CORSOrigins []string `envconfig:"BAKEHOUSE_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// StoreConfig selects the key-value backend that stands in for browser storage.
type StoreConfig struct {
	Backend   string `envconfig:"BAKEHOUSE_STORE_BACKEND" default:"memory"`
	Namespace string `envconfig:"BAKEHOUSE_STORE_NAMESPACE" default:"bakehouse"`
	// MaxBytes caps the memory backend; zero means unlimited.
	MaxBytes    int  `envconfig:"BAKEHOUSE_STORE_MAX_BYTES" default:"0"`
	AutoMigrate bool `envconfig:"BAKEHOUSE_STORE_AUTO_MIGRATE" default:"false"`
}

func (s StoreConfig) validate() error {
	switch s.Backend {
	case StoreBackendMemory, StoreBackendRedis, StoreBackendSQL:
	default:
		return fmt.Errorf("unsupported store backend %q", s.Backend)
	}
	if strings.TrimSpace(s.Namespace) == "" {
		return fmt.Errorf("%s must not be empty", EnvStoreNamespace)
	}
	if s.MaxBytes < 0 {
		return fmt.Errorf("%s must be non-negative", EnvStoreMaxBytes)
	}
	return nil
}

type DBConfig struct {
	DSN    string `envconfig:"BAKEHOUSE_DB_DSN"`
	Driver string `envconfig:"BAKEHOUSE_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"BAKEHOUSE_DB_HOST"`
	Port     int    `envconfig:"BAKEHOUSE_DB_PORT" default:"5432"`
	User     string `envconfig:"BAKEHOUSE_DB_USER"`
	Password string `envconfig:"BAKEHOUSE_DB_PASSWORD"`
	Name     string `envconfig:"BAKEHOUSE_DB_NAME"`
	SSLMode  string `envconfig:"BAKEHOUSE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BAKEHOUSE_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"BAKEHOUSE_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"BAKEHOUSE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BAKEHOUSE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BAKEHOUSE_REDIS_URL"`
	Address      string        `envconfig:"BAKEHOUSE_REDIS_ADDR"`
	Password     string        `envconfig:"BAKEHOUSE_REDIS_PASSWORD"`
	DB           int           `envconfig:"BAKEHOUSE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BAKEHOUSE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BAKEHOUSE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BAKEHOUSE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BAKEHOUSE_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"BAKEHOUSE_REDIS_WRITE_TIMEOUT" default:"3s"`
	// TTL applies to every stored session key; zero keeps keys forever.
	TTL time.Duration `envconfig:"BAKEHOUSE_REDIS_TTL" default:"720h"`
}

// SessionConfig signs the guest session tokens handed to shoppers.
type SessionConfig struct {
	Secret   string        `envconfig:"BAKEHOUSE_SESSION_SECRET" required:"true"`
	Issuer   string        `envconfig:"BAKEHOUSE_SESSION_ISSUER" default:"bakehouse"`
	TokenTTL time.Duration `envconfig:"BAKEHOUSE_SESSION_TOKEN_TTL" default:"720h"`
}

type PricingConfig struct {
	TaxRate               decimal.Decimal `envconfig:"BAKEHOUSE_TAX_RATE" default:"0.08"`
	FreeShippingThreshold decimal.Decimal `envconfig:"BAKEHOUSE_FREE_SHIPPING_THRESHOLD" default:"50"`
	GiftWrapFee           decimal.Decimal `envconfig:"BAKEHOUSE_GIFT_WRAP_FEE" default:"4.99"`
	StandardShipping      decimal.Decimal `envconfig:"BAKEHOUSE_STANDARD_SHIPPING" default:"5.99"`
	ExpressShipping       decimal.Decimal `envconfig:"BAKEHOUSE_EXPRESS_SHIPPING" default:"12.99"`
	LocalDeliveryShipping decimal.Decimal `envconfig:"BAKEHOUSE_LOCAL_DELIVERY_SHIPPING" default:"3.50"`
	// LocalDeliveryPrefixes are the ZIP3 prefixes served by local delivery.
	LocalDeliveryPrefixes []string `envconfig:"BAKEHOUSE_LOCAL_DELIVERY_PREFIXES" default:"941"`
}

func (p PricingConfig) validate() error {
	checks := map[string]decimal.Decimal{
		EnvTaxRate:               p.TaxRate,
		EnvFreeShippingThreshold: p.FreeShippingThreshold,
		EnvGiftWrapFee:           p.GiftWrapFee,
		EnvStandardShipping:      p.StandardShipping,
		EnvExpressShipping:       p.ExpressShipping,
		EnvLocalDeliveryShipping: p.LocalDeliveryShipping,
	}
	for name, value := range checks {
		if value.IsNegative() {
			return fmt.Errorf("%s must be non-negative", name)
		}
	}
	if p.TaxRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%s must be a fraction between 0 and 1", EnvTaxRate)
	}
	for _, prefix := range p.LocalDeliveryPrefixes {
		if len(strings.TrimSpace(prefix)) != 3 {
			return fmt.Errorf("%s entries must be three digit zip prefixes", EnvLocalDeliveryPrefixes)
		}
	}
	return nil
}

type CheckoutConfig struct {
	OrderPrefix     string        `envconfig:"BAKEHOUSE_ORDER_PREFIX" default:"BKH"`
	ProcessingDelay time.Duration `envconfig:"BAKEHOUSE_CHECKOUT_PROCESSING_DELAY" default:"0s"`
}

type InventoryConfig struct {
	SeedFile string `envconfig:"BAKEHOUSE_INVENTORY_SEED_FILE"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range dbEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
