package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Redis     RedisConfig
	Broadcast BroadcastConfig
	Store     StoreConfig
	Net       NetConfig
	Sync      SyncConfig
	Cart      CartConfig
	Theme     ThemeConfig
	Push      PushConfig
	Telemetry TelemetryConfig
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

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	CORSAllowOrigins []string
	TrustedProxies   []string
}

// RedisConfig holds Redis connection settings for the broadcast channel
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// BroadcastConfig holds cross-replica broadcast settings
type BroadcastConfig struct {
	Channel      string // pub/sub channel name shared by all replicas
	RedisEnabled bool   // false falls back to the in-process channel
}

// StoreConfig holds the durable local key-value store settings
type StoreConfig struct {
	Path string // sqlite file path, ":memory:" for ephemeral
}

// NetConfig holds reachability probe settings
type NetConfig struct {
	ProbeURL     string        // lightweight health endpoint
	ProbeTimeout time.Duration // hard limit per probe (default 5s)
	PollInterval time.Duration // probe cadence while offline (default 30s)
}

// SyncConfig holds sync queue settings
type SyncConfig struct {
	DrainInterval     time.Duration // periodic drain cadence (default 5m)
	SettleDelay       time.Duration // wait after reconnect before draining (default 2s)
	MaxConcurrent     int           // simultaneous in-flight items (default 3)
	DefaultMaxRetries int           // per-item attempt limit (default 3)
	Retention         time.Duration // terminal item retention (default 7d)
	SweepInterval     time.Duration // eviction sweep cadence (default 24h)
}

// CartConfig holds the pricing policy the cart consumes
type CartConfig struct {
	TaxRate               float64
	FreeShippingThreshold float64
	FlatShippingFee       float64
	Currency              string
}

// ThemeConfig holds theme loader settings
type ThemeConfig struct {
	BaseURL       string        // theme persistence endpoint
	CacheTTL      time.Duration // per-entry cache lifetime
	CacheCapacity int           // max cached themes
}

// PushConfig holds the upstream cart channel settings
type PushConfig struct {
	Enabled bool
	URL     string // websocket endpoint
}

// TelemetryConfig holds OpenTelemetry tracing configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
}

// Load loads configuration from a TOML file and environment variables.
// Priority (highest to lowest): STOREFRONT_* env vars, config.toml, defaults.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("STOREFRONT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
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
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Broadcast: BroadcastConfig{
			Channel:      v.GetString("broadcast.channel"),
			RedisEnabled: v.GetBool("broadcast.redis_enabled"),
		},
		Store: StoreConfig{
			Path: v.GetString("store.path"),
		},
		Net: NetConfig{
			ProbeURL:     v.GetString("net.probe_url"),
			ProbeTimeout: v.GetDuration("net.probe_timeout"),
			PollInterval: v.GetDuration("net.poll_interval"),
		},
		Sync: SyncConfig{
			DrainInterval:     v.GetDuration("sync.drain_interval"),
			SettleDelay:       v.GetDuration("sync.settle_delay"),
			MaxConcurrent:     v.GetInt("sync.max_concurrent"),
			DefaultMaxRetries: v.GetInt("sync.default_max_retries"),
			Retention:         v.GetDuration("sync.retention"),
			SweepInterval:     v.GetDuration("sync.sweep_interval"),
		},
		Cart: CartConfig{
			TaxRate:               v.GetFloat64("cart.tax_rate"),
			FreeShippingThreshold: v.GetFloat64("cart.free_shipping_threshold"),
			FlatShippingFee:       v.GetFloat64("cart.flat_shipping_fee"),
			Currency:              v.GetString("cart.currency"),
		},
		Theme: ThemeConfig{
			BaseURL:       v.GetString("theme.base_url"),
			CacheTTL:      v.GetDuration("theme.cache_ttl"),
			CacheCapacity: v.GetInt("theme.cache_capacity"),
		},
		Push: PushConfig{
			Enabled: v.GetBool("push.enabled"),
			URL:     v.GetString("push.url"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "storefront")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("http.read_timeout", "15s")
	v.SetDefault("http.write_timeout", "15s")
	v.SetDefault("http.idle_timeout", "60s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	v.SetDefault("broadcast.channel", "storefront:cart")
	v.SetDefault("broadcast.redis_enabled", false)

	v.SetDefault("store.path", "storefront.db")

	v.SetDefault("net.probe_url", "http://localhost:8080/healthz")
	v.SetDefault("net.probe_timeout", "5s")
	v.SetDefault("net.poll_interval", "30s")

	v.SetDefault("sync.drain_interval", "5m")
	v.SetDefault("sync.settle_delay", "2s")
	v.SetDefault("sync.max_concurrent", 3)
	v.SetDefault("sync.default_max_retries", 3)
	v.SetDefault("sync.retention", "168h")
	v.SetDefault("sync.sweep_interval", "24h")

	v.SetDefault("cart.tax_rate", 0.22)
	v.SetDefault("cart.free_shipping_threshold", 50.0)
	v.SetDefault("cart.flat_shipping_fee", 5.99)
	v.SetDefault("cart.currency", "USD")

	v.SetDefault("theme.base_url", "http://localhost:8081/api/themes")
	v.SetDefault("theme.cache_ttl", "10m")
	v.SetDefault("theme.cache_capacity", 64)

	v.SetDefault("push.enabled", false)
	v.SetDefault("push.url", "ws://localhost:8082/cart")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.collector_endpoint", "localhost:4317")
	v.SetDefault("telemetry.sampling_ratio", 1.0)
	v.SetDefault("telemetry.service_name", "storefront-backend")
	v.SetDefault("telemetry.insecure", true)
}

// Validate checks configuration consistency
func (c *Config) Validate() error {
	if c.App.Port == "" {
		return fmt.Errorf("app.port is required")
	}
	if c.Cart.TaxRate < 0 || c.Cart.TaxRate >= 1 {
		return fmt.Errorf("cart.tax_rate must be in [0, 1), got %v", c.Cart.TaxRate)
	}
	if c.Cart.FlatShippingFee < 0 {
		return fmt.Errorf("cart.flat_shipping_fee cannot be negative")
	}
	if c.Cart.Currency == "" {
		return fmt.Errorf("cart.currency is required")
	}
	if c.Sync.MaxConcurrent < 1 {
		return fmt.Errorf("sync.max_concurrent must be at least 1")
	}
	if c.Sync.DefaultMaxRetries < 1 {
		return fmt.Errorf("sync.default_max_retries must be at least 1")
	}
	if c.Net.ProbeTimeout <= 0 {
		return fmt.Errorf("net.probe_timeout must be positive")
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	if c.Theme.CacheCapacity < 1 {
		return fmt.Errorf("theme.cache_capacity must be at least 1")
	}
	if c.Telemetry.Enabled && c.Telemetry.CollectorEndpoint == "" {
		return fmt.Errorf("telemetry.collector_endpoint is required when telemetry is enabled")
	}
	return nil
}

// IsProduction reports whether the app runs in production mode
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
