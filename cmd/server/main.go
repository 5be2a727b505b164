package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/ogurasousui/employee-location-tracker/internal/adapters/geocoding"
	"github.com/ogurasousui/employee-location-tracker/internal/adapters/http/handler"
	"github.com/ogurasousui/employee-location-tracker/internal/adapters/repository/memory"
	"github.com/ogurasousui/employee-location-tracker/internal/adapters/repository/postgres"
	"github.com/ogurasousui/employee-location-tracker/internal/adapters/repository/seed"
	"github.com/ogurasousui/employee-location-tracker/internal/core/employee"
	"github.com/ogurasousui/employee-location-tracker/internal/core/location"
	"github.com/ogurasousui/employee-location-tracker/internal/platform/config"
	pg "github.com/ogurasousui/employee-location-tracker/internal/platform/db/postgres"
	"github.com/ogurasousui/employee-location-tracker/internal/platform/logger"
	"github.com/ogurasousui/employee-location-tracker/internal/platform/metrics"
	"github.com/ogurasousui/employee-location-tracker/internal/platform/server"
	"github.com/ogurasousui/employee-location-tracker/internal/platform/telemetry"
)

type transactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type storage struct {
	employees employee.Repository
	locations location.Repository
	tx        transactionManager
	close     func()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "assets/local.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logg := logger.New(cfg.Logging)
	defer func() { _ = logg.Sync() }()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logg *zap.Logger) error {
	shutdownTelemetry := telemetry.Setup(ctx, cfg.Telemetry, logg)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logg.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	store, err := openStorage(ctx, cfg, m)
	if err != nil {
		return err
	}
	defer store.close()

	if cfg.Storage.SeedDemo {
		if err := seed.Load(ctx, store.employees, store.locations, time.Now()); err != nil {
			return err
		}
		logg.Info("demo data loaded")
	}

	geocoder, closeGeocoder, err := newGeocoder(ctx, cfg, logg, m)
	if err != nil {
		return err
	}
	defer closeGeocoder()

	employeeSvc := employee.NewService(store.employees, nil, store.tx)
	locationSvc := location.NewService(store.locations, geocoder, store.tx,
		location.WithGeocodeFailureHandler(func(ctx context.Context, lat, lng float64, err error) {
			logger.FromContext(ctx).Warn("reverse geocoding failed, using coordinates",
				zap.Float64("latitude", lat), zap.Float64("longitude", lng), zap.Error(err))
			m.IncrementGeocode(metrics.GeocodeFallback)
		}),
	)

	router := handler.NewRouter(handler.Dependencies{
		Employees: employeeSvc,
		Locations: locationSvc,
		Logger:    logg,
		Metrics:   m,
		Gatherer:  reg,
	})

	srv := server.New(router, cfg.Server.ShutdownTimeout, logg, grpc.StatsHandler(otelgrpc.NewServerHandler()))
	logg.Info("starting servers",
		zap.String("http_addr", cfg.Server.HTTPAddr),
		zap.String("grpc_addr", cfg.Server.GRPCAddr),
		zap.String("storage", cfg.Storage.Driver))
	return srv.Run(ctx, cfg.Server.HTTPAddr, cfg.Server.GRPCAddr)
}

func openStorage(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*storage, error) {
	if cfg.Storage.Driver != config.StoragePostgres {
		return &storage{
			employees: memory.NewEmployeeRepository(),
			locations: memory.NewLocationRepository(),
			close:     func() {},
		}, nil
	}

	dbPool, err := pg.NewPool(ctx, cfg.Database, pg.WithQueryObserver(func(elapsed time.Duration, _ error) {
		m.ObserveDBQuery(elapsed)
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database pool: %w", err)
	}

	return &storage{
		employees: postgres.NewEmployeeRepository(dbPool),
		locations: postgres.NewLocationRepository(dbPool),
		tx:        pg.NewTransactionManager(dbPool),
		close:     dbPool.Close,
	}, nil
}

func newGeocoder(ctx context.Context, cfg *config.Config, logg *zap.Logger, m *metrics.Metrics) (location.Geocoder, func(), error) {
	if !cfg.Geocoding.Enabled {
		return nil, func() {}, nil
	}

	client := geocoding.NewClient(cfg.Geocoding)
	if cfg.Redis.Addr == "" {
		return client, func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	cached := geocoding.NewCachedGeocoder(client, geocoding.NewRedisCache(rdb), cfg.Redis.TTL, logg, m)
	return cached, func() { _ = rdb.Close() }, nil
}
