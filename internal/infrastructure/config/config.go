package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Log         LogConfig
	HTTP        HTTPConfig
	Fulfillment FulfillmentConfig
	Payment     PaymentConfig
	Catalog     CatalogConfig
	Checkout    CheckoutConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
	PublicBaseURL    string // external URL for payment return redirects
}

// FulfillmentConfig holds the signed-RPC upstream settings
type FulfillmentConfig struct {
	APIBaseURL     string
	AppKey         string
	Token          string
	Platform       string
	TimeoutSeconds int
	MaxRetries     int
	RetryBackoff   time.Duration
}

// PaymentConfig holds payment provider settings
type PaymentConfig struct {
	StripeSecretKey     string
	StripeWebhookSecret string
	Currency            string
	SuccessPath         string
	CancelPath          string
}

// CatalogConfig holds catalog aggregation settings
type CatalogConfig struct {
	WarehouseCode       string
	DeliveryWayCode     string
	DisplayPageSize     int
	UpstreamPageSize    int
	CacheTTL            time.Duration
	MirrorRefreshEvery  time.Duration
	SnapshotFile        string
	WarmupOnStart       bool
	MirrorRefreshOnBoot bool
}

// CheckoutConfig holds order pipeline settings
type CheckoutConfig struct {
	WebhookEventTTL time.Duration // dedup window for processed webhook event IDs
	OrderNumberTag  string        // prefix for generated order numbers
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with LOCO_ prefix (e.g., LOCO_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("LOCO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
			PublicBaseURL:    v.GetString("http.public_base_url"),
		},
		Fulfillment: FulfillmentConfig{
			APIBaseURL:     v.GetString("fulfillment.api_base_url"),
			AppKey:         v.GetString("fulfillment.app_key"),
			Token:          v.GetString("fulfillment.token"),
			Platform:       v.GetString("fulfillment.platform"),
			TimeoutSeconds: v.GetInt("fulfillment.timeout_seconds"),
			MaxRetries:     v.GetInt("fulfillment.max_retries"),
			RetryBackoff:   v.GetDuration("fulfillment.retry_backoff"),
		},
		Payment: PaymentConfig{
			StripeSecretKey:     v.GetString("payment.stripe_secret_key"),
			StripeWebhookSecret: v.GetString("payment.stripe_webhook_secret"),
			Currency:            v.GetString("payment.currency"),
			SuccessPath:         v.GetString("payment.success_path"),
			CancelPath:          v.GetString("payment.cancel_path"),
		},
		Catalog: CatalogConfig{
			WarehouseCode:       v.GetString("catalog.warehouse_code"),
			DeliveryWayCode:     v.GetString("catalog.delivery_way_code"),
			DisplayPageSize:     v.GetInt("catalog.display_page_size"),
			UpstreamPageSize:    v.GetInt("catalog.upstream_page_size"),
			CacheTTL:            v.GetDuration("catalog.cache_ttl"),
			MirrorRefreshEvery:  v.GetDuration("catalog.mirror_refresh_every"),
			SnapshotFile:        v.GetString("catalog.snapshot_file"),
			WarmupOnStart:       v.GetBool("catalog.warmup_on_start"),
			MirrorRefreshOnBoot: v.GetBool("catalog.mirror_refresh_on_boot"),
		},
		Checkout: CheckoutConfig{
			WebhookEventTTL: v.GetDuration("checkout.webhook_event_ttl"),
			OrderNumberTag:  v.GetString("checkout.order_number_tag"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "storefront"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "storefront"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB, webhook bodies are small
	}
	if cfg.HTTP.PublicBaseURL == "" {
		cfg.HTTP.PublicBaseURL = "http://localhost:8080"
	}
	// CORS origins deliberately have no wildcard fallback; an empty list
	// means no cross-origin requests until explicitly configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "X-Request-ID", "X-Session-ID"}
	}
	if cfg.Fulfillment.Platform == "" {
		cfg.Fulfillment.Platform = "OWNERERP"
	}
	if cfg.Fulfillment.TimeoutSeconds == 0 {
		cfg.Fulfillment.TimeoutSeconds = 30
	}
	if cfg.Fulfillment.MaxRetries == 0 {
		cfg.Fulfillment.MaxRetries = 3
	}
	if cfg.Fulfillment.RetryBackoff == 0 {
		cfg.Fulfillment.RetryBackoff = 500 * time.Millisecond
	}
	if cfg.Payment.Currency == "" {
		cfg.Payment.Currency = "gbp"
	}
	if cfg.Payment.SuccessPath == "" {
		cfg.Payment.SuccessPath = "/checkout/return"
	}
	if cfg.Payment.CancelPath == "" {
		cfg.Payment.CancelPath = "/checkout/cancelled"
	}
	if cfg.Catalog.WarehouseCode == "" {
		cfg.Catalog.WarehouseCode = "UKGF"
	}
	if cfg.Catalog.DeliveryWayCode == "" {
		cfg.Catalog.DeliveryWayCode = "OSF1010520"
	}
	if cfg.Catalog.DisplayPageSize == 0 {
		cfg.Catalog.DisplayPageSize = 20
	}
	if cfg.Catalog.UpstreamPageSize == 0 {
		cfg.Catalog.UpstreamPageSize = 50
	}
	if cfg.Catalog.CacheTTL == 0 {
		cfg.Catalog.CacheTTL = 5 * time.Minute
	}
	if cfg.Catalog.MirrorRefreshEvery == 0 {
		cfg.Catalog.MirrorRefreshEvery = time.Hour
	}
	if cfg.Catalog.SnapshotFile == "" {
		cfg.Catalog.SnapshotFile = "data/catalog_snapshot.json"
	}
	if cfg.Checkout.WebhookEventTTL == 0 {
		cfg.Checkout.WebhookEventTTL = 24 * time.Hour
	}
	if cfg.Checkout.OrderNumberTag == "" {
		cfg.Checkout.OrderNumberTag = "ORD"
	}
}

// validate performs validation on the configuration. Missing upstream
// credentials fail startup rather than surfacing later as signature errors.
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Catalog.DisplayPageSize <= 0 {
		return fmt.Errorf("catalog.display_page_size must be positive")
	}
	if c.Catalog.UpstreamPageSize <= 0 {
		return fmt.Errorf("catalog.upstream_page_size must be positive")
	}

	if c.App.Env == "production" {
		if c.Fulfillment.APIBaseURL == "" {
			return fmt.Errorf("fulfillment.api_base_url is required in production")
		}
		if c.Fulfillment.AppKey == "" {
			return fmt.Errorf("fulfillment.app_key is required in production")
		}
		if c.Fulfillment.Token == "" {
			return fmt.Errorf("fulfillment.token is required in production")
		}
		if c.Payment.StripeSecretKey == "" {
			return fmt.Errorf("payment.stripe_secret_key is required in production")
		}
		if c.Payment.StripeWebhookSecret == "" {
			return fmt.Errorf("payment.stripe_webhook_secret is required in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if !strings.HasPrefix(c.HTTP.PublicBaseURL, "https://") {
			return fmt.Errorf("http.public_base_url must be https in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the Redis host:port address
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
