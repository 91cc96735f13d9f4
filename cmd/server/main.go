package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"cargo-route-service/internal/adapters/cache"
	"cargo-route-service/internal/adapters/distance"
	"cargo-route-service/internal/adapters/notifier"
	"cargo-route-service/internal/adapters/repositories"
	"cargo-route-service/internal/api"
	"cargo-route-service/internal/config"
	"cargo-route-service/internal/platform/db"
	"cargo-route-service/internal/platform/logger"
	"cargo-route-service/internal/ports"
	"cargo-route-service/internal/services"
	"cargo-route-service/internal/workers/cascaderetry"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// store is everything the services need from persistence.
type store interface {
	ports.TariffRepository
	ports.DepositRepository
	ports.CarrierRepository
	ports.RouteRepository
	ports.Transactor
}

// main is the application composition root.
// It wires concrete adapters (Postgres, Redis, ORS) behind ports and starts the HTTP server.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatal(err)
	}
	if err := logger.Init(cfg.Environment, cfg.LogLevel); err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Get().Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.AppConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	health := map[string]func(ctx context.Context) error{}

	var (
		st            store
		geocodeCache  ports.GeocodeCache
		distanceCache ports.DistanceCache
	)
	switch cfg.Store {
	case "postgres":
		sqlDB, err := db.Open(cfg.Database.URL)
		if err != nil {
			return err
		}
		defer sqlDB.Close()

		if err := repositories.Migrate(ctx, sqlDB); err != nil {
			return err
		}
		health["postgres"] = sqlDB.PingContext
		st = repositories.NewPostgresStore(sqlDB)
		geocodeCache = cache.NewSQLGeocodeCache(sqlDB)
		distanceCache = cache.NewSQLDistanceCache(sqlDB)
	case "memory":
		mem, err := memoryStore(ctx, cfg.SeedPath)
		if err != nil {
			return err
		}
		st = mem
	default:
		return fmt.Errorf("unknown STORE %q", cfg.Store)
	}

	rdb, err := db.OpenRedis(ctx, cfg.Redis.URL)
	if err != nil {
		return err
	}
	defer rdb.Close()
	health["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }

	ors, err := distance.NewORSClient(distance.ORSOptions{
		APIKey:  cfg.ORS.APIKey,
		BaseURL: cfg.ORS.BaseURL,
		Profile: cfg.ORS.Profile,
		Country: cfg.ORS.Country,
		Timeout: cfg.ORS.Timeout,
	})
	if err != nil {
		return err
	}

	tariffs := cache.NewTariffCache(st, cfg.Planning.TariffCacheTTL)
	resolver := services.NewGeoResolver(ors, geocodeCache)
	distances, err := services.NewDistanceEngine(ors, distanceCache, cfg.Planning.AverageSpeedKmh)
	if err != nil {
		return err
	}
	pricing := services.NewTariffEngine(tariffs, st)
	options := cache.NewRedisOptionStore(rdb, cfg.Planning.OptionTTL)
	generator := services.NewRouteOptionGenerator(resolver, distances, pricing, st, options, services.PlanningPolicy{
		DetourBudgetKm:       cfg.Planning.DetourBudgetKm,
		MaxDepositCandidates: cfg.Planning.MaxDepositCandidates,
		DistanceConcurrency:  cfg.Planning.DistanceConcurrency,
	})

	shipments, err := shipmentNotifier(cfg.Shipment, rdb)
	if err != nil {
		return err
	}
	queue := notifier.NewRedisNotificationQueue(rdb, cfg.Shipment.RetryQueue)
	lifecycle := services.NewLegLifecycle(st, shipments, queue)

	go cascaderetry.Run(ctx, queue, shipments, cfg.Shipment.RetryInterval, cfg.Shipment.RetryMaxAttempts)

	router := api.NewRouter(api.Deps{
		Resolver:   resolver,
		Distances:  distances,
		Prices:     pricing,
		Options:    generator,
		Selector:   services.NewRouteDecomposer(st, options),
		Routes:     st,
		Lifecycle:  lifecycle,
		Legs:       st,
		Health:     health,
		CORSOrigin: cfg.CORSAllowedOrigins,
	})

	// Timeouts are tuned for cold-cache option synthesis (external API latency).
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Get().Info("server listening", zap.String("addr", srv.Addr), zap.String("store", cfg.Store))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Get().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func memoryStore(ctx context.Context, seedPath string) (*repositories.MemoryStore, error) {
	seed, err := repositories.LoadSeed(seedPath)
	if err != nil {
		return nil, err
	}
	mem := repositories.NewMemoryStore()
	if err := mem.Seed(ctx, seed); err != nil {
		return nil, err
	}
	return mem, nil
}

func shipmentNotifier(cfg config.ShipmentConfig, rdb *redis.Client) (ports.ShipmentNotifier, error) {
	switch cfg.Notifier {
	case "http":
		return notifier.NewHTTPShipmentNotifier(cfg.ServiceURL, cfg.ServiceBearerToken, cfg.Timeout)
	case "redis":
		return notifier.NewRedisStreamNotifier(rdb, cfg.Stream), nil
	default:
		return nil, fmt.Errorf("unknown SHIPMENT_NOTIFIER %q", cfg.Notifier)
	}
}
