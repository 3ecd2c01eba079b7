package bootstrap

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/storefront-access-service/internal/adapters/config"
	appgrpc "gitlab.com/timkado/api/storefront-access-service/internal/adapters/grpc"
	apphttp "gitlab.com/timkado/api/storefront-access-service/internal/adapters/http"
	"gitlab.com/timkado/api/storefront-access-service/internal/adapters/logger"
	"gitlab.com/timkado/api/storefront-access-service/internal/adapters/memory"
	appnats "gitlab.com/timkado/api/storefront-access-service/internal/adapters/nats"
	appredis "gitlab.com/timkado/api/storefront-access-service/internal/adapters/redis"
	"gitlab.com/timkado/api/storefront-access-service/internal/adapters/sqlite"
	"gitlab.com/timkado/api/storefront-access-service/internal/adapters/storefront"
	wsadapter "gitlab.com/timkado/api/storefront-access-service/internal/adapters/websocket"
	"gitlab.com/timkado/api/storefront-access-service/internal/application"
	"gitlab.com/timkado/api/storefront-access-service/internal/domain"
)

// Storage and broadcast backend names accepted in config.
const (
	backendMemory = "memory"
	backendSQLite = "sqlite"
	backendRedis  = "redis"
	backendNATS   = "nats"
	backendNone   = "none"
)

// InstanceID identifies this agent process; it is the origin of every favorites event it publishes.
type InstanceID string

// InitialZapLoggerProvider provides a basic *zap.Logger instance, primarily for config initialization.
// It returns the logger, a cleanup function (for syncing), and an error if creation fails.
func InitialZapLoggerProvider() (*zap.Logger, func(), error) {
	logger, err := zap.NewProduction()
	if err != nil {
		logger, err = zap.NewDevelopment()
		if err != nil {
			logger = zap.NewExample()
			fmt.Fprintf(os.Stderr, "Failed to create initial zap logger (production and development failed, falling back to example): %v\n", err)
		}
	}

	cleanup := func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to sync initial zap logger: %v\n", syncErr)
		}
	}
	return logger, cleanup, nil
}

// App struct is defined here for Wire to use.
type App struct {
	configProvider config.Provider
	logger         domain.Logger
	httpServeMux   *http.ServeMux
	httpServer     *http.Server
	grpcServer     *appgrpc.Server
	handlers       *apphttp.Handlers
	identities     domain.IdentitySource
	wsRouter       *wsadapter.Router
	favorites      *application.FavoritesSynchronizer
	relayService   *application.FavoritesRelayService
	store          domain.KeyValueStore
	redisClient    *redis.Client // nil unless a redis backend is configured
}

// NewApp is the constructor for App, also for Wire.
func NewApp(
	cfgProvider config.Provider,
	appLogger domain.Logger,
	mux *http.ServeMux,
	server *http.Server,
	grpcSrv *appgrpc.Server,
	handlers *apphttp.Handlers,
	identities domain.IdentitySource,
	wsRouter *wsadapter.Router,
	favorites *application.FavoritesSynchronizer,
	relayService *application.FavoritesRelayService,
	store domain.KeyValueStore,
	redisClient *redis.Client,
) (*App, func(), error) {
	app := &App{
		configProvider: cfgProvider,
		logger:         appLogger,
		httpServeMux:   mux,
		httpServer:     server,
		grpcServer:     grpcSrv,
		handlers:       handlers,
		identities:     identities,
		wsRouter:       wsRouter,
		favorites:      favorites,
		relayService:   relayService,
		store:          store,
		redisClient:    redisClient,
	}

	cleanup := func() {
		app.logger.Info(context.Background(), "Running app cleanup...")
		if err := app.relayService.Stop(); err != nil {
			app.logger.Warn(context.Background(), "Favorites relay stop failed", "error", err.Error())
		}
		app.grpcServer.GracefulStop()
	}
	return app, cleanup, nil
}

// ConfigProvider provides the application configuration.
func ConfigProvider(appCtx context.Context, logger *zap.Logger) (config.Provider, error) {
	return config.NewViperProvider(appCtx, logger)
}

// InstanceIDProvider returns server.instance_id, or a random UUID when it is not set.
func InstanceIDProvider(cfgProvider config.Provider) InstanceID {
	if id := cfgProvider.Get().Server.InstanceID; id != "" {
		return InstanceID(id)
	}
	return InstanceID(uuid.NewString())
}

// LoggerProvider provides the application logger.
func LoggerProvider(cfgProvider config.Provider, instanceID InstanceID) (domain.Logger, error) {
	return logger.NewZapAdapter(cfgProvider, cfgProvider.Get().App.ServiceName, string(instanceID))
}

// ClockProvider provides the wall clock.
func ClockProvider() domain.Clock {
	return domain.SystemClock{}
}

// HTTPServeMuxProvider provides the main HTTP multiplexer.
func HTTPServeMuxProvider() *http.ServeMux {
	return http.NewServeMux()
}

// HTTPGracefulServerProvider provides a new HTTP server configured for graceful shutdown.
// No server-wide WriteTimeout: favorites streams stay open and set per-message write deadlines.
func HTTPGracefulServerProvider(cfgProvider config.Provider, mux *http.ServeMux) *http.Server {
	appCfg := cfgProvider.Get()

	readTimeout := 10 * time.Second
	idleTimeout := 60 * time.Second

	return &http.Server{
		Addr:        net.JoinHostPort(appCfg.Server.Host, strconv.Itoa(appCfg.Server.HTTPPort)),
		Handler:     mux,
		ReadTimeout: readTimeout,
		IdleTimeout: idleTimeout,
	}
}

func usesRedis(cfg *config.Config) bool {
	return cfg.Storage.Backend == backendRedis || cfg.Broadcast.Backend == backendRedis
}

// RedisClientProvider provides a Redis client and a cleanup function.
// It returns a nil client when neither storage nor broadcast uses Redis.
func RedisClientProvider(cfgProvider config.Provider, appLogger domain.Logger) (*redis.Client, func(), error) {
	appCfg := cfgProvider.Get()
	if !usesRedis(appCfg) {
		return nil, func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     appCfg.Redis.Address,
		Password: appCfg.Redis.Password,
		DB:       appCfg.Redis.DB,
	})
	_, err := client.Ping(context.Background()).Result()
	if err != nil {
		appLogger.Error(context.Background(), "Failed to connect to Redis", "error", err.Error(), "address", appCfg.Redis.Address)
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to Redis at %s: %w", appCfg.Redis.Address, err)
	}
	cleanup := func() {
		client.Close()
		appLogger.Info(context.Background(), "Redis connection closed")
	}
	appLogger.Info(context.Background(), "Successfully connected to Redis", "address", appCfg.Redis.Address)
	return client, cleanup, nil
}

// KeyValueStoreProvider opens the persistent substrate selected by storage.backend.
func KeyValueStoreProvider(cfgProvider config.Provider, redisClient *redis.Client, appLogger domain.Logger) (domain.KeyValueStore, func(), error) {
	storageCfg := cfgProvider.Get().Storage
	ctx := context.Background()

	switch storageCfg.Backend {
	case "", backendMemory:
		appLogger.Info(ctx, "Using in-memory storage", "quota_bytes", storageCfg.QuotaBytes)
		return memory.NewKVStore(storageCfg.QuotaBytes), func() {}, nil
	case backendSQLite:
		store, err := sqlite.Open(storageCfg.SQLitePath, storageCfg.QuotaBytes)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite storage at %s: %w", storageCfg.SQLitePath, err)
		}
		appLogger.Info(ctx, "Using sqlite storage", "path", storageCfg.SQLitePath, "quota_bytes", storageCfg.QuotaBytes)
		cleanup := func() {
			if err := store.Close(); err != nil {
				appLogger.Error(context.Background(), "Failed to close sqlite storage", "error", err.Error())
			}
		}
		return store, cleanup, nil
	case backendRedis:
		appLogger.Info(ctx, "Using redis storage", "key_prefix", storageCfg.KeyPrefix)
		return appredis.NewKVStore(redisClient, appLogger, storageCfg.KeyPrefix), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", storageCfg.Backend)
	}
}

// RelayHubProvider provides the in-process relay used when broadcast.backend is none.
func RelayHubProvider() *memory.RelayHub {
	return memory.NewRelayHub()
}

// FavoritesRelayProvider connects the cross-process favorites relay selected by broadcast.backend.
func FavoritesRelayProvider(ctx context.Context, cfgProvider config.Provider, appLogger domain.Logger, redisClient *redis.Client, hub *memory.RelayHub) (domain.FavoritesRelay, func(), error) {
	broadcastCfg := cfgProvider.Get().Broadcast

	switch broadcastCfg.Backend {
	case "", backendNone:
		return hub.Join(), func() {}, nil
	case backendRedis:
		return appredis.NewFavoritesPubSubAdapter(redisClient, appLogger, broadcastCfg.Channel), func() {}, nil
	case backendNATS:
		return appnats.NewFavoritesRelayAdapter(ctx, cfgProvider, appLogger)
	default:
		return nil, nil, fmt.Errorf("unknown broadcast backend %q", broadcastCfg.Backend)
	}
}

// FavoritesBusProvider provides the process-wide favorites bus.
func FavoritesBusProvider(appLogger domain.Logger) *memory.FavoritesBus {
	return memory.NewFavoritesBus(appLogger)
}

// StorefrontClientProvider provides the storefront API client.
func StorefrontClientProvider(cfgProvider config.Provider, appLogger domain.Logger) *storefront.Client {
	return storefront.NewClient(cfgProvider, appLogger)
}

// TTLCacheProvider provides the shared TTL cache.
func TTLCacheProvider(cfgProvider config.Provider, store domain.KeyValueStore, clock domain.Clock, appLogger domain.Logger) *application.TTLCache {
	cacheCfg := cfgProvider.Get().Cache
	return application.NewTTLCache(store, clock, appLogger, cacheCfg.Namespace, time.Duration(cacheCfg.DefaultTTLSeconds)*time.Second)
}

// IdentityStoreProvider provides the identity store.
func IdentityStoreProvider(store domain.KeyValueStore, appLogger domain.Logger) *application.IdentityStore {
	return application.NewIdentityStore(store, appLogger)
}

// PermissionResolverProvider provides the permission resolver.
func PermissionResolverProvider(identity domain.IdentitySource, fetcher domain.PermissionFetcher, cache *application.TTLCache, clock domain.Clock, cfgProvider config.Provider, appLogger domain.Logger) *application.PermissionResolver {
	return application.NewPermissionResolver(identity, fetcher, cache, clock, cfgProvider, appLogger)
}

// NotifierProvider provides the stream notifier that doubles as the auth prompter.
func NotifierProvider(appLogger domain.Logger) *wsadapter.Notifier {
	return wsadapter.NewNotifier(appLogger)
}

// FavoritesSynchronizerProvider provides the favorites synchronizer and unsubscribes it on cleanup.
func FavoritesSynchronizerProvider(api domain.FavoritesAPI, identity domain.IdentitySource, bus domain.FavoritesBus, cache *application.TTLCache, prompter domain.AuthPrompter, appLogger domain.Logger, instanceID InstanceID) (*application.FavoritesSynchronizer, func()) {
	synchronizer := application.NewFavoritesSynchronizer(api, identity, bus, cache, prompter, appLogger, string(instanceID))
	return synchronizer, synchronizer.Close
}

// ProductCacheProvider provides the product reference cache, hydrated from storage.
func ProductCacheProvider(ctx context.Context, cfgProvider config.Provider, store domain.KeyValueStore, clock domain.Clock, appLogger domain.Logger) *application.ProductCache {
	cacheCfg := cfgProvider.Get().Cache
	return application.NewProductCache(ctx, store, clock, appLogger, cacheCfg.ProductCap, time.Duration(cacheCfg.ProductSnapshotTTLSeconds)*time.Second)
}

// ProductResolverProvider provides the product resolver.
func ProductResolverProvider(cfgProvider config.Provider, cache *application.ProductCache, catalog domain.ProductCatalog, appLogger domain.Logger) *application.ProductResolver {
	cacheCfg := cfgProvider.Get().Cache
	return application.NewProductResolver(cache, catalog, appLogger, cacheCfg.ProductFetchBatchSize, cacheCfg.ProductFetchParallelism)
}

// SessionServiceProvider provides the session service.
func SessionServiceProvider(identities *application.IdentityStore, permissions *application.PermissionResolver, favorites *application.FavoritesSynchronizer, appLogger domain.Logger) *application.SessionService {
	return application.NewSessionService(identities, permissions, favorites, appLogger)
}

// FavoritesRelayServiceProvider provides the bus-to-relay bridge.
func FavoritesRelayServiceProvider(bus domain.FavoritesBus, relay domain.FavoritesRelay, instanceID InstanceID, appLogger domain.Logger) *application.FavoritesRelayService {
	return application.NewFavoritesRelayService(bus, relay, string(instanceID), appLogger)
}

// HTTPHandlersProvider provides the /v1 handlers.
func HTTPHandlersProvider(sessions *application.SessionService, access *application.PermissionResolver, favorites *application.FavoritesSynchronizer, products *application.ProductResolver, appLogger domain.Logger) *apphttp.Handlers {
	return apphttp.NewHandlers(sessions, access, favorites, products, appLogger)
}

// WebsocketHandlerProvider provides the favorites stream handler.
func WebsocketHandlerProvider(appLogger domain.Logger, cfgProvider config.Provider, bus domain.FavoritesBus, favorites *application.FavoritesSynchronizer, notifier *wsadapter.Notifier) *wsadapter.Handler {
	return wsadapter.NewHandler(appLogger, cfgProvider, bus, favorites, notifier)
}

// WebsocketRouterProvider provides the websocket router.
func WebsocketRouterProvider(appLogger domain.Logger, cfgProvider config.Provider, wsHandler *wsadapter.Handler) *wsadapter.Router {
	return wsadapter.NewRouter(appLogger, cfgProvider, wsHandler)
}

// GRPCServerProvider provides the gRPC health server.
func GRPCServerProvider(appCtx context.Context, appLogger domain.Logger, cfgProvider config.Provider) *appgrpc.Server {
	return appgrpc.NewServer(appCtx, appLogger, cfgProvider)
}

// ProviderSet is the Wire provider set for the entire application.
var ProviderSet = wire.NewSet(
	InitialZapLoggerProvider,
	ConfigProvider,
	InstanceIDProvider,
	LoggerProvider,
	ClockProvider,
	HTTPServeMuxProvider,
	HTTPGracefulServerProvider,

	// Infrastructure Adapters
	RedisClientProvider,
	KeyValueStoreProvider,
	RelayHubProvider,
	FavoritesRelayProvider,
	FavoritesBusProvider,
	wire.Bind(new(domain.FavoritesBus), new(*memory.FavoritesBus)),
	StorefrontClientProvider,
	wire.Bind(new(domain.PermissionFetcher), new(*storefront.Client)),
	wire.Bind(new(domain.FavoritesAPI), new(*storefront.Client)),
	wire.Bind(new(domain.ProductCatalog), new(*storefront.Client)),
	NotifierProvider,
	wire.Bind(new(domain.AuthPrompter), new(*wsadapter.Notifier)),

	// Application Services
	TTLCacheProvider,
	IdentityStoreProvider,
	wire.Bind(new(domain.IdentitySource), new(*application.IdentityStore)),
	PermissionResolverProvider,
	FavoritesSynchronizerProvider,
	ProductCacheProvider,
	ProductResolverProvider,
	SessionServiceProvider,
	FavoritesRelayServiceProvider,

	// Transport
	HTTPHandlersProvider,
	WebsocketHandlerProvider,
	WebsocketRouterProvider,
	GRPCServerProvider,
	NewApp,
)
