package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cimillas/client-ledger/internal/app"
	"github.com/cimillas/client-ledger/internal/cache"
	"github.com/cimillas/client-ledger/internal/clock"
	"github.com/cimillas/client-ledger/internal/config"
	"github.com/cimillas/client-ledger/internal/metrics"
	"github.com/cimillas/client-ledger/internal/storage/postgres"
	"github.com/cimillas/client-ledger/internal/storage/sqlite"
	transporthttp "github.com/cimillas/client-ledger/internal/transport/http"
	"github.com/cimillas/client-ledger/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	startupTimeout = 10 * time.Second
	cacheService   = "ledger"
)

type stores struct {
	clients app.ClientRepository
	orders  app.OrderRepository
	ready   []transporthttp.Pinger
	closers []func()
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openStores connects the configured backend. Postgres migrations are applied
// on every start; the SQLite schema is created by Open.
func openStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (*stores, error) {
	ctx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	switch cfg.StoreDriver {
	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("using sqlite store", "path", cfg.SQLitePath)
		return &stores{
			clients: store,
			orders:  store,
			ready:   []transporthttp.Pinger{store},
			closers: []func(){func() { _ = store.Close() }},
		}, nil
	default:
		pool, err := connectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if _, err := migrations.Apply(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		logger.Info("using postgres store")
		return &stores{
			clients: postgres.NewClientRepository(pool),
			orders:  postgres.NewOrderRepository(pool),
			ready:   []transporthttp.Pinger{pool},
			closers: []func(){pool.Close},
		}, nil
	}
}

func connectPostgres(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return pool, nil
}

type services struct {
	clients   *app.ClientService
	lifecycle *app.LifecycleService
	orders    *app.OrderService
}

// buildServices wires the application services over st. The order cache is
// attached only when REDIS_ADDR is set and answers a ping.
func buildServices(ctx context.Context, cfg config.Config, logger *slog.Logger, st *stores, reg prometheus.Registerer) (*services, error) {
	window, err := clock.NewRandomWindow(cfg.WindowMin, cfg.WindowMax, cfg.WindowUnit)
	if err != nil {
		return nil, fmt.Errorf("processing window: %w", err)
	}
	clk := clock.NewSystem()

	opts := []app.OrderServiceOption{
		app.WithLogger(logger),
		app.WithMaxInFlight(cfg.MaxInFlight),
	}
	if reg != nil {
		opts = append(opts, app.WithMetrics(metrics.NewRecorder(reg)))
	}
	if cfg.RedisAddr != "" {
		oc := cache.NewOrderCache(cfg.RedisAddr, cacheService, cfg.OrderCacheTTL)
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := oc.Ping(pingCtx)
		cancel()
		if err != nil {
			logger.Warn("order cache unavailable, serving reads from the store", "addr", cfg.RedisAddr, "error", err)
			_ = oc.Close()
		} else {
			logger.Info("order cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.OrderCacheTTL)
			opts = append(opts, app.WithOrderCache(oc))
			st.closers = append(st.closers, func() { _ = oc.Close() })
		}
	}

	return &services{
		clients:   app.NewClientService(st.clients, clk, logger),
		lifecycle: app.NewLifecycleService(st.clients, clk, logger),
		orders:    app.NewOrderService(st.orders, st.clients, clk, window, opts...),
	}, nil
}
