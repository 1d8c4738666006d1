package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"h2olog/internal/amqp"
	"h2olog/internal/backend"
	"h2olog/internal/cache"
	"h2olog/internal/config"
	"h2olog/internal/confirm"
	"h2olog/internal/insight"
	"h2olog/internal/log"
	"h2olog/internal/services"
	"h2olog/internal/storage"
)

const (
	insightCacheSize = 16
	insightCacheTTL  = time.Hour
)

// App is the set of collaborators every front end works with.
type App struct {
	Config    *config.Config
	Logger    *log.Logger
	Location  *time.Location
	Blobs     storage.BlobStore
	Entries   *services.EntryStore
	Settings  *services.SettingsStore
	Dashboard *services.Dashboard
	Requester *insight.Requester
	Insights  *insight.Service
	Confirm   *confirm.Gate
	Caches    *cache.Manager

	// Broker and Publisher are nil when AMQP is disabled or unreachable.
	Broker    *amqp.Client
	Publisher *services.ChangePublisher

	cleanup backend.CleanupFunc
}

// NewApp opens the configured storage and wires the stores, the insight
// service and the optional change publisher.
func NewApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	if logger == nil {
		logger = log.Discard()
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Location: loc,
		Blobs:    res.Store,
		cleanup:  res.Cleanup,
	}

	a.Entries = services.NewEntryStore(ctx, res.Store, logger)
	a.Settings = services.NewSettingsStore(ctx, res.Store, logger)
	a.Dashboard = services.NewDashboard(a.Entries, a.Settings, services.DashboardConfig{
		Location:  loc,
		TrendDays: cfg.TrendDays,
		LowIntake: cfg.LowIntakeML,
	})

	gen, err := insight.NewGenerator(insight.ClientConfig{
		Provider: cfg.InsightProvider,
		APIKey:   cfg.InsightAPIKey,
		Model:    cfg.InsightModel,
		BaseURL:  cfg.InsightBaseURL,
		Timeout:  cfg.InsightTimeout,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Requester = insight.NewRequester(gen, insight.RequesterConfig{
		Language: cfg.InsightLanguage,
		Location: loc,
	}, logger)
	results := cache.NewLRUCache[insight.Result](insightCacheSize, insightCacheTTL)
	a.Insights = insight.NewService(a.Requester, a.Entries, results, cfg.InsightTimeout)

	a.Confirm = confirm.NewGate(confirm.DefaultTTL)
	cacheLog := logger.WithComponent(log.ComponentCache)
	a.Caches = cache.NewManager(func(removed int) {
		cacheLog.Debug("Expired cache items removed", "count", removed)
	})
	a.Caches.Register(results)
	a.Caches.Register(a.Confirm)

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without change events", log.FieldError, err)
		} else {
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
			a.Broker = client
			a.Publisher = services.NewChangePublisher(client, logger)
			a.Entries.Subscribe(a.Publisher.Listener())
			a.Settings.Subscribe(a.Publisher.Listener())
		}
	}

	return a, nil
}

// Close flushes pending change events and releases storage and broker
// connections.
func (a *App) Close() error {
	var errs []error
	if a.Insights != nil {
		a.Insights.Wait()
	}
	if a.Publisher != nil {
		a.Publisher.Flush()
	}
	if a.Broker != nil {
		if err := a.Broker.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close broker: %w", err))
		}
	}
	if a.cleanup != nil {
		if err := a.cleanup(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	return errors.Join(errs...)
}
