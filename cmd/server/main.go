package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	cartapp "github.com/storefront/backend/internal/application/cart"
	themeapp "github.com/storefront/backend/internal/application/theme"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/infrastructure/broadcast"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/event"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/netcheck"
	"github.com/storefront/backend/internal/infrastructure/push"
	"github.com/storefront/backend/internal/infrastructure/storage"
	"github.com/storefront/backend/internal/infrastructure/syncqueue"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/storefront/backend/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting storefront backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing
	tracer, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer", zap.Error(err))
		}
	}()

	// Durable local store
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	kv, err := storage.NewSQLiteKV(cfg.Store.Path, gormLog)
	if err != nil {
		log.Fatal("Failed to open local store", zap.Error(err))
	}
	defer func() {
		if err := kv.Close(); err != nil {
			log.Error("Error closing local store", zap.Error(err))
		}
	}()

	// Cross-replica broadcast channel
	var channel broadcast.Channel
	if cfg.Broadcast.RedisEnabled {
		client := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		channel, err = broadcast.NewRedisChannel(client, cfg.Broadcast.Channel, log)
		if err != nil {
			log.Fatal("Failed to connect broadcast channel", zap.Error(err))
		}
		log.Info("Using redis broadcast channel", zap.String("channel", cfg.Broadcast.Channel))
	} else {
		channel = broadcast.NewMemoryChannel()
		log.Info("Using in-process broadcast channel")
	}
	defer func() {
		if err := channel.Close(); err != nil {
			log.Error("Error closing broadcast channel", zap.Error(err))
		}
	}()

	// Connectivity detector
	detector := netcheck.NewDetector(netcheck.Config{
		ProbeURL:     cfg.Net.ProbeURL,
		ProbeTimeout: cfg.Net.ProbeTimeout,
		PollInterval: cfg.Net.PollInterval,
	}, nil, log)
	detector.Start(ctx)
	defer detector.Stop()

	// Sync queue
	queue, err := syncqueue.New(ctx, syncqueue.Config{
		DrainInterval:     cfg.Sync.DrainInterval,
		SettleDelay:       cfg.Sync.SettleDelay,
		MaxConcurrent:     cfg.Sync.MaxConcurrent,
		DefaultMaxRetries: cfg.Sync.DefaultMaxRetries,
		Retention:         cfg.Sync.Retention,
		SweepInterval:     cfg.Sync.SweepInterval,
	}, kv, detector, log)
	if err != nil {
		log.Fatal("Failed to load sync queue", zap.Error(err))
	}
	queue.Start(ctx)
	defer queue.Stop()

	detector.OnChange(func(online bool) {
		if online {
			queue.OnReconnect(ctx)
		}
	})

	bus := event.NewInMemoryEventBus(log)

	// Upstream realtime channel
	var pusher push.Pusher
	var pushClient *push.Client
	if cfg.Push.Enabled {
		pushClient = push.NewClient(cfg.Push.URL, log)
		if err := pushClient.Connect(ctx); err != nil {
			log.Warn("Upstream cart channel unavailable, starting offline", zap.Error(err))
			detector.Report(false)
		}
		pusher = pushClient
		defer func() {
			_ = pushClient.Close()
		}()
	}

	// Cart reconciler
	policy := cart.Policy{
		TaxRate:               decimal.NewFromFloat(cfg.Cart.TaxRate),
		FreeShippingThreshold: decimal.NewFromFloat(cfg.Cart.FreeShippingThreshold),
		FlatShippingFee:       decimal.NewFromFloat(cfg.Cart.FlatShippingFee),
		Currency:              cfg.Cart.Currency,
	}
	cartService, err := cartapp.NewService(policy, kv, channel, cartapp.Options{
		Pusher: pusher,
		Queue:  queue,
		Bus:    bus,
		Net:    detector,
	}, log)
	if err != nil {
		log.Fatal("Failed to create cart service", zap.Error(err))
	}

	if pushClient != nil {
		pushClient.On(push.EventPriceUpdate, cartService.HandlePriceUpdate)
		pushClient.On(push.EventStockUpdate, cartService.HandleStockUpdate)
		pushClient.On(push.EventCartUpdated, cartService.HandleCartUpdated)

		detector.OnChange(func(online bool) {
			if online && !pushClient.Connected() {
				if err := pushClient.Connect(ctx); err != nil {
					log.Warn("Cart channel reconnect failed", zap.Error(err))
				}
			}
		})
	}

	// Theme loader
	themeLoader := themeapp.NewLoader(
		themeapp.NewHTTPFetcher(cfg.Theme.BaseURL, &http.Client{Timeout: 10 * time.Second}),
		themeapp.NewCache(cfg.Theme.CacheTTL, cfg.Theme.CacheCapacity),
		log,
	)

	// HTTP server
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()
	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	engine.Use(middleware.CORSWithConfig(corsCfg))

	if cfg.Telemetry.Enabled {
		engine.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	}

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Invalid trusted proxies", zap.Error(err))
		}
	}

	handler.NewHealthHandler().Register(engine)

	router.NewRouter(engine).
		Register(handler.NewCartHandler(cartService)).
		Register(handler.NewSyncHandler(queue, detector)).
		Register(handler.NewThemeHandler(themeLoader)).
		Setup()

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		os.Exit(1)
	}

	log.Info("Server exited gracefully")
}
