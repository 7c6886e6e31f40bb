package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/agrolink/geo-discovery-service/internal/app/discovery"
	"github.com/agrolink/geo-discovery-service/internal/geocoder"
	"github.com/agrolink/geo-discovery-service/internal/geocoder/nominatim"
	"github.com/agrolink/geo-discovery-service/internal/http"
	"github.com/agrolink/geo-discovery-service/internal/http/handlers"
	"github.com/agrolink/geo-discovery-service/internal/observability"
	"github.com/agrolink/geo-discovery-service/internal/platform/config"
	"github.com/agrolink/geo-discovery-service/internal/platform/db"
	healthdb "github.com/agrolink/geo-discovery-service/internal/platform/db/health"
	productsdb "github.com/agrolink/geo-discovery-service/internal/platform/db/products"
	sellersdb "github.com/agrolink/geo-discovery-service/internal/platform/db/sellers"
	"github.com/agrolink/geo-discovery-service/internal/platform/db/txrunner"
	"github.com/agrolink/geo-discovery-service/internal/platform/db/uow"
	"github.com/agrolink/geo-discovery-service/internal/platform/logger"
	"github.com/agrolink/geo-discovery-service/internal/platform/middleware"
	sellerscache "github.com/agrolink/geo-discovery-service/internal/platform/redis/cache"
	healthredis "github.com/agrolink/geo-discovery-service/internal/platform/redis/health"
	"github.com/agrolink/geo-discovery-service/internal/platform/redis/queue"
	"github.com/agrolink/geo-discovery-service/internal/workers/outboxrelay"
	webhookworker "github.com/agrolink/geo-discovery-service/internal/workers/webhook"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		return
	}

	logLevel := logger.ParseLogLevel(cfg.Log.Level)
	log := logger.New(os.Stdout, logLevel, "GEO")

	ctx := context.Background()
	log.Info(ctx, "startup", "GOMAXPROCS", runtime.GOMAXPROCS(0))
	log.BuildInfo(ctx)

	// --- DB ---
	sqlDB, err := db.Open(ctx, db.Config{
		URL:             cfg.DB.URL,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.DB.ConnMaxIdleTime,
		PingTimeout:     cfg.DB.PingTimeout,
	})
	if err != nil {
		log.Error(ctx, "startup", "status", "db init failed", "error", err)
		return
	}
	defer sqlDB.Close()

	if err := db.StatusCheck(ctx, sqlDB); err != nil {
		log.Error(ctx, "startup", "status", "db not ready", "error", err)
		return
	}

	// --- Redis Cache ---
	cacheRdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.CacheDB,
	})
	defer cacheRdb.Close()

	if err := cacheRdb.Ping(ctx).Err(); err != nil {
		log.Error(ctx, "startup", "status", "redis cache init failed", "error", err)
		return
	}

	// --- Redis Queue ---
	queueRdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.QueueDB,
	})
	defer queueRdb.Close()

	if err := queueRdb.Ping(ctx).Err(); err != nil {
		log.Error(ctx, "startup", "status", "redis queue init failed", "error", err)
		return
	}

	metrics := observability.NewMetrics()

	// --- Geocoder ---
	geo := geocoder.NewCached(
		nominatim.NewClient(
			cfg.Geocoder.UserAgent,
			nominatim.WithBaseURL(cfg.Geocoder.BaseURL),
			nominatim.WithCountryBias(cfg.Geocoder.CountryBias),
			nominatim.WithTimeout(cfg.Geocoder.Timeout),
		),
		cfg.Geocoder.CacheSize,
		geocoder.WithCacheObserver(func(method string, hit bool) {
			result := "miss"
			if hit {
				result = "hit"
			}
			metrics.GeocodeCache.WithLabelValues(method, result).Inc()
		}),
	)

	// --- Discovery module wiring ---
	baseSellers := sellersdb.New(sqlDB)
	baseProducts := productsdb.New(sqlDB)

	cachedSellers := sellerscache.New(
		cacheRdb,
		baseSellers,
		sellerscache.WithTTL(cfg.Cache.ListTTL),
		sellerscache.WithLogger(log),
	)

	sellersUow := uow.New(sqlDB)
	sellersTxRunner := txrunner.NewSellersTxRunner(
		sellersUow,
		txrunner.WithAfterCommit(func(ctx context.Context) {
			cachedSellers.BumpVersion(ctx)
		}),
	)

	svc := discovery.NewService(cachedSellers, baseProducts, geo, sellersTxRunner, metrics)

	nearbyHandler := handlers.NewNearby(svc, middleware.APIKey(cfg.Security.APIKey))
	locationsHandler := handlers.NewLocations(svc)
	sellersHandler := handlers.NewSellers(svc)

	// --- System ---
	sysHandler := handlers.NewSystem(
		log,
		handlers.Dependency{
			Name:   "postgres",
			Pinger: healthdb.NewPostgresPinger(sqlDB),
		},
		handlers.Dependency{
			Name:   "redis_queue",
			Pinger: healthredis.NewRedisPinger(queueRdb),
		},
		handlers.Dependency{
			Name:   "redis_cache",
			Pinger: healthredis.NewRedisPinger(cacheRdb),
		},
	)

	// --- HTTP ---
	router := http.NewRouter(log, logLevel, nearbyHandler, locationsHandler, sellersHandler, sysHandler)
	s := http.NewServer(cfg.HTTP.Addr, router, logger.NewStdLogger(log, logger.LevelError))

	serverErrors := make(chan error, 1)
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		log.Info(ctx, "startup", "status", "server started", "addr", cfg.HTTP.Addr)
		serverErrors <- s.Start()
	}()

	// --- Workers ---
	workerCtx, workerCancel := context.WithCancel(ctx)

	outboxRelay := outboxrelay.New(sqlDB, queue.New(queueRdb, cfg.Workers.OutboxRelay.Stream), log)
	webhookWorker := webhookworker.New(
		queueRdb,
		cfg.Workers.Webhook.Stream,
		cfg.Workers.Webhook.Group,
		cfg.Workers.Webhook.Consumer,
		cfg.Workers.Webhook.URL,
		log,
	)

	g, gctx := errgroup.WithContext(workerCtx)

	g.Go(func() error { return outboxRelay.Run(gctx) })
	g.Go(func() error { return webhookWorker.Run(gctx) })

	select {
	case err := <-serverErrors:
		log.Error(ctx, "startup", "status", "server failed", "error", err)

	case sig := <-shutdown:
		log.Info(ctx, "shutdown", "status", "shutdown started", "signal", sig)
		defer log.Info(ctx, "shutdown", "status", "shutdown complete", "signal", sig)

		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		workerCancel()

		if err := s.Shutdown(shutdownCtx); err != nil {
			log.Error(ctx, "could not stop server gracefully", "error", err)
			_ = s.Close()
		}
	}

	if err := g.Wait(); err != nil {
		log.Error(ctx, "shutdown", "status", "workers failed to stop gracefully", "error", err)
	}
}
