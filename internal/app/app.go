// Package app wires configuration, storage and services for the fiado binaries.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MrJamesThe3rd/fiado/internal/account"
	accountStore "github.com/MrJamesThe3rd/fiado/internal/account/store"
	"github.com/MrJamesThe3rd/fiado/internal/audit"
	auditStore "github.com/MrJamesThe3rd/fiado/internal/audit/store"
	"github.com/MrJamesThe3rd/fiado/internal/config"
	"github.com/MrJamesThe3rd/fiado/internal/database"
	"github.com/MrJamesThe3rd/fiado/internal/guard"
	guardStore "github.com/MrJamesThe3rd/fiado/internal/guard/store"
	"github.com/MrJamesThe3rd/fiado/internal/logger"
	"github.com/MrJamesThe3rd/fiado/internal/metrics"
	"github.com/MrJamesThe3rd/fiado/internal/notify"
	"github.com/MrJamesThe3rd/fiado/internal/payment"
	paymentStore "github.com/MrJamesThe3rd/fiado/internal/payment/store"
	"github.com/MrJamesThe3rd/fiado/internal/sale"
	saleStore "github.com/MrJamesThe3rd/fiado/internal/sale/store"
)

// App holds everything a command needs. It is built once per process.
type App struct {
	Config   *config.Config
	Log      *zap.Logger
	DB       *sql.DB
	Queue    *notify.Queue // nil when Redis is disabled
	Registry *prometheus.Registry

	Accounts *account.Service
	Sales    *sale.Service
	Payments *payment.Service
	Trail    *audit.Trail

	rdb      *redis.Client
	resolver *guard.Resolver
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log := logger.New(logger.Config{
		Env:         cfg.Log.Env,
		Level:       cfg.Log.Level,
		ServiceName: cfg.App.Name,
		Version:     cfg.App.Version,
	})

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Log: log, DB: db, Registry: prometheus.NewRegistry()}

	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m, err := metrics.New(a.Registry)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("registering metrics: %w", err)
	}

	var notifier notify.Notifier = notify.NewLogNotifier(log)

	if cfg.Redis.Enabled {
		if a.rdb, err = notify.NewRedisClient(ctx, cfg.Redis.URL); err != nil {
			a.Close()
			return nil, err
		}

		a.Queue = notify.NewQueue(a.rdb, cfg.Redis.NotifyQueue)
		notifier = a.Queue
	}

	var (
		trail  = audit.NewTrail(auditStore.New(db), log, m)
		sender = notify.NewSender(notifier, log, m)
	)

	a.Trail = trail
	a.resolver = guard.NewResolver(guardStore.New(db), cfg.Guard.CacheTTL)
	a.Accounts = account.NewService(accountStore.New(db), trail, log, m)
	a.Sales = sale.NewService(saleStore.New(db), trail, sender, log, m)
	a.Payments = payment.NewService(paymentStore.New(db), trail, sender, log, m)

	return a, nil
}

// Identity resolves the acting user from its id.
func (a *App) Identity(ctx context.Context, as string) (guard.Identity, error) {
	if as == "" {
		return guard.Identity{}, fmt.Errorf("no acting user, set --as or FIADO_AS")
	}

	userID, err := uuid.Parse(as)
	if err != nil {
		return guard.Identity{}, fmt.Errorf("invalid acting user id: %w", err)
	}

	return a.resolver.Resolve(ctx, userID)
}

func (a *App) Close() {
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.Log.Warn("closing redis", zap.Error(err))
		}
	}

	if err := a.DB.Close(); err != nil {
		a.Log.Warn("closing database", zap.Error(err))
	}

	_ = a.Log.Sync()
}
