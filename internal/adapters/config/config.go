package config

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"sync"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const envPrefix = "STOREFRONT_ACCESS"

// ServerConfig holds the local HTTP and gRPC listener settings.
// Note: Fields should be exported (start with uppercase) to be unmarshalled by Viper.
type ServerConfig struct {
	Host       string `mapstructure:"host"`
	HTTPPort   int    `mapstructure:"http_port"`
	GRPCPort   int    `mapstructure:"grpc_port"`
	InstanceID string `mapstructure:"instance_id"` // Empty means a random UUID per process
	APIKey     string `mapstructure:"api_key"`     // Optional, guards the local /v1 surface when set
}

// StorefrontConfig points the agent at the storefront backend API.
type StorefrontConfig struct {
	BaseURL         string `mapstructure:"base_url"`
	PermissionsPath string `mapstructure:"permissions_path"`
	FavoritesPath   string `mapstructure:"favorites_path"`
	ProductsPath    string `mapstructure:"products_path"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
	RetryCount      int    `mapstructure:"retry_count"`
}

// StorageConfig selects the persistent key/value substrate.
type StorageConfig struct {
	Backend    string `mapstructure:"backend"` // memory | sqlite | redis
	QuotaBytes int    `mapstructure:"quota_bytes"`
	SQLitePath string `mapstructure:"sqlite_path"`
	KeyPrefix  string `mapstructure:"key_prefix"` // Namespace for the redis backend
}

// RedisConfig holds Redis-related configurations.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"` // Optional
	DB       int    `mapstructure:"db"`       // Optional
}

// NATSConfig holds NATS-related configurations.
type NATSConfig struct {
	URL  string `mapstructure:"url"`
	Name string `mapstructure:"name"`
}

// BroadcastConfig selects how favorites changes travel between agent processes.
type BroadcastConfig struct {
	Backend string `mapstructure:"backend"` // none | redis | nats
	Channel string `mapstructure:"channel"` // Redis pub/sub channel
	Subject string `mapstructure:"subject"` // NATS subject
}

// AccessConfig holds the local super-admin rules and permission caching.
type AccessConfig struct {
	SuperAdminEmails      []string `mapstructure:"super_admin_emails"`
	SuperAdminRoles       []string `mapstructure:"super_admin_roles"`
	PermissionsTTLSeconds int      `mapstructure:"permissions_ttl_seconds"`
}

// CacheConfig holds TTL cache and product reference cache settings.
type CacheConfig struct {
	Namespace                 string `mapstructure:"namespace"`
	DefaultTTLSeconds         int    `mapstructure:"default_ttl_seconds"`
	ProductSnapshotTTLSeconds int    `mapstructure:"product_snapshot_ttl_seconds"`
	ProductCap                int    `mapstructure:"product_cap"`
	ProductFetchBatchSize     int    `mapstructure:"product_fetch_batch_size"`
	ProductFetchParallelism   int    `mapstructure:"product_fetch_parallelism"`
}

// LogConfig holds logging-related configurations.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// AppConfig holds application-specific configurations.
type AppConfig struct {
	ServiceName            string `mapstructure:"service_name"`
	Version                string `mapstructure:"version"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds"`
	PingIntervalSeconds    int    `mapstructure:"ping_interval_seconds"`
	WriteTimeoutSeconds    int    `mapstructure:"write_timeout_seconds"`
}

// Config holds all configuration for the application.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Storefront StorefrontConfig `mapstructure:"storefront"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Redis      RedisConfig      `mapstructure:"redis"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Broadcast  BroadcastConfig  `mapstructure:"broadcast"`
	Access     AccessConfig     `mapstructure:"access"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Log        LogConfig        `mapstructure:"log"`
	App        AppConfig        `mapstructure:"app"`
}

// Provider defines an interface for accessing application configuration.
// This allows for easy mocking in tests and decouples the app from Viper.
type Provider interface {
	Get() *Config
}

// setDefaults registers every key so that environment overrides work without a config file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.http_port", 8787)
	v.SetDefault("server.grpc_port", 8788)
	v.SetDefault("server.instance_id", "")
	v.SetDefault("server.api_key", "")

	v.SetDefault("storefront.base_url", "http://localhost:3000")
	v.SetDefault("storefront.permissions_path", "/api/permissions/me")
	v.SetDefault("storefront.favorites_path", "/api/favorites")
	v.SetDefault("storefront.products_path", "/api/products")
	v.SetDefault("storefront.timeout_seconds", 10)
	v.SetDefault("storefront.retry_count", 0)

	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.quota_bytes", 5*1024*1024)
	v.SetDefault("storage.sqlite_path", "storefront-access.db")
	v.SetDefault("storage.key_prefix", "storefront_access:")

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.name", "storefront-access")

	v.SetDefault("broadcast.backend", "none")
	v.SetDefault("broadcast.channel", "storefront:favorites")
	v.SetDefault("broadcast.subject", "storefront.favorites")

	v.SetDefault("access.super_admin_emails", []string{})
	v.SetDefault("access.super_admin_roles", []string{"super_admin", "superadmin"})
	v.SetDefault("access.permissions_ttl_seconds", 300)

	v.SetDefault("cache.namespace", "")
	v.SetDefault("cache.default_ttl_seconds", 300)
	v.SetDefault("cache.product_snapshot_ttl_seconds", 600)
	v.SetDefault("cache.product_cap", 2000)
	v.SetDefault("cache.product_fetch_batch_size", 50)
	v.SetDefault("cache.product_fetch_parallelism", 4)

	v.SetDefault("log.level", "info")

	v.SetDefault("app.service_name", "storefront-access")
	v.SetDefault("app.version", "dev")
	v.SetDefault("app.shutdown_timeout_seconds", 10)
	v.SetDefault("app.ping_interval_seconds", 30)
	v.SetDefault("app.write_timeout_seconds", 5)
}

// viperProvider implements the Provider interface using Viper.
type viperProvider struct {
	mu     sync.RWMutex
	config *Config
	logger *zap.Logger // zap directly, domain.Logger is built from this config
}

// NewViperProvider creates and initializes a new configuration provider using Viper.
// It loads configuration from file and environment variables, and sets up hot-reloading
// on SIGHUP and on config file changes. appCtx bounds the SIGHUP watcher.
func NewViperProvider(appCtx context.Context, logger *zap.Logger) (Provider, error) {
	v := viper.New()
	setDefaults(v)

	configName := os.Getenv("VIPER_CONFIG_NAME")
	if configName == "" {
		configName = "config"
	}
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	if configPath := os.Getenv("VIPER_CONFIG_PATH"); configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_")) // server.http_port -> STOREFRONT_ACCESS_SERVER_HTTP_PORT

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.Warn("Config file not found; relying on defaults and environment variables", zap.Error(err))
		} else {
			logger.Error("Failed to read config file", zap.Error(err))
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg, err := unmarshal(v)
	if err != nil {
		logger.Error("Failed to unmarshal config", zap.Error(err))
		return nil, err
	}

	p := &viperProvider{
		config: cfg,
		logger: logger,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP)
	go func() {
		defer signal.Stop(sigChan)
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("Panic recovered in SIGHUP handler goroutine",
					zap.String("goroutine_name", "SIGHUPConfigReloader"),
					zap.Any("panic_info", r),
					zap.String("stacktrace", string(debug.Stack())),
				)
			}
		}()
		for {
			select {
			case sig := <-sigChan:
				p.logger.Info("SIGHUP received, attempting to reload configuration...", zap.String("signal", sig.String()))
				if err := v.ReadInConfig(); err != nil {
					p.logger.Error("Failed to re-read config file on SIGHUP", zap.Error(err))
					continue
				}
				p.reload(v, "SIGHUP")
			case <-appCtx.Done():
				p.logger.Info("SIGHUPConfigReloader goroutine shutting down due to context cancellation.")
				return
			}
		}
	}()

	if v.ConfigFileUsed() != "" {
		v.OnConfigChange(func(e fsnotify.Event) {
			defer func() {
				if r := recover(); r != nil {
					p.logger.Error("Panic recovered in OnConfigChange callback",
						zap.String("event_name", e.Name),
						zap.String("event_op", e.Op.String()),
						zap.Any("panic_info", r),
						zap.String("stacktrace", string(debug.Stack())),
					)
				}
			}()
			p.logger.Info("Config file changed", zap.String("name", e.Name), zap.String("op", e.Op.String()))
			p.reload(v, "file change event")
		})
		v.WatchConfig()
	}

	p.logger.Info("Configuration loaded successfully", zap.String("config_file_used", v.ConfigFileUsed()))
	return p, nil
}

func (p *viperProvider) reload(v *viper.Viper, trigger string) {
	newCfg, err := unmarshal(v)
	if err != nil {
		p.logger.Error("Failed to unmarshal reloaded config", zap.String("trigger", trigger), zap.Error(err))
		return
	}
	p.mu.Lock()
	p.config = newCfg
	p.mu.Unlock()
	p.logger.Info("Configuration reloaded successfully", zap.String("trigger", trigger))
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// Get returns the current configuration.
func (p *viperProvider) Get() *Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.config
}

// staticProvider serves a fixed configuration.
type staticProvider struct {
	config *Config
}

// NewStaticProvider wraps an already built Config, mostly for tests and embedding.
func NewStaticProvider(cfg *Config) Provider {
	return &staticProvider{config: cfg}
}

func (p *staticProvider) Get() *Config { return p.config }

// Defaults returns the configuration used when neither a file nor the environment set anything.
func Defaults() *Config {
	v := viper.New()
	setDefaults(v)
	cfg, err := unmarshal(v)
	if err != nil {
		// Only reachable if the defaults above stop matching the struct tags.
		panic(err)
	}
	return cfg
}
