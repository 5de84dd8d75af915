package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cryptofolio/src/api"
	apicontrollers "cryptofolio/src/api/controllers"
	apihandlers "cryptofolio/src/api/handlers"
	"cryptofolio/src/broadcast"
	"cryptofolio/src/clients/coingecko"
	"cryptofolio/src/config"
	"cryptofolio/src/database"
	"cryptofolio/src/repositories"
	"cryptofolio/src/services"
	"cryptofolio/src/utils"
	redis_utils "cryptofolio/src/utils/redis"
	"cryptofolio/src/worker"
	workercontrollers "cryptofolio/src/worker/controllers"
	workerhandlers "cryptofolio/src/worker/handlers"

	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.LoadConfig("./settings", os.Getenv("ENV"))
	if err != nil {
		log.Println(err, "Error while loading config")
		return
	}
	logger := utils.NewLogger(utils.ParseLevel(cfg.Logging.Level), cfg.Logging.File != "", cfg.Logging.File)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := build(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Error("Couldn't build application")
		return
	}
	errC := app.run(logger)

	select {
	case err := <-errC:
		if err != nil {
			logger.WithError(err).Error("Error while running")
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	app.shutdown(shutdownCtx, logger)
}

type application struct {
	httpServer *http.Server
	sync       *services.SyncService
	jobs       *workercontrollers.Controller
	hub        *broadcast.Hub
	closers    []func()
}

func build(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*application, error) {
	app := &application{}

	store, err := openStore(ctx, cfg, logger, app)
	if err != nil {
		return nil, err
	}

	var mirror services.SnapshotMirror
	if cfg.Databases.Redis.Enabled {
		redisHandler, err := redis_utils.NewRedisHandler(ctx, cfg, "cryptofolio:snapshot:")
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, snapshots cached in memory only")
		} else {
			mirror = redisHandler
			app.closers = append(app.closers, func() { _ = redisHandler.Close() })
		}
	}

	client, err := coingecko.NewClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	cache := services.NewPriceCache(client, mirror, cfg.Sync.SnapshotTTL, logger)
	app.hub = broadcast.NewHub(logger, broadcast.DefaultBufferSize)

	portfolios := services.NewPortfolioService(store, app.hub, logger)
	transactions := services.NewTransactionService(store, app.hub, logger)
	assets := services.NewAssetService(store, cache, logger)
	app.sync = services.NewSyncService(store, client, cache, portfolios, app.hub, services.SyncOptions{
		Interval: cfg.Sync.Interval,
	}, logger)

	if cfg.Service.Seed {
		if err := services.NewSeedService(store, portfolios, logger).Seed(ctx); err != nil {
			return nil, err
		}
	}

	if cfg.Service.Type == config.WORKER {
		app.jobs = workercontrollers.NewController(app.sync, portfolios, logger)
		if cfg.Sync.RevaluationInterval > 0 {
			if err := app.jobs.ScheduleRevaluation(ctx, cfg.Sync.RevaluationInterval); err != nil {
				return nil, err
			}
		}
		handler := workerhandlers.NewHandler(app.jobs, app.hub, logger)
		app.httpServer = worker.NewHTTPServer(worker.NewServer(handler), cfg.Service.Port)
	} else {
		controller := apicontrollers.NewController(apicontrollers.Dependencies{
			Assets:       assets,
			Portfolios:   portfolios,
			Transactions: transactions,
			Sync:         app.sync,
			Market:       client,
			VsCurrency:   cfg.ExternalClients.CoinGecko.VsCurrency,
		})
		handler := apihandlers.NewHandler(controller, app.hub, logger)
		app.httpServer = api.NewHTTPServer(api.NewServer(handler), cfg.Service.Port)
	}

	if cfg.Sync.AutoStart {
		if _, _, err := app.sync.Start(ctx); err != nil {
			logger.WithError(err).Error("Failed to start real-time updates")
		}
	}
	return app, nil
}

// openStore connects to Postgres, or keeps everything in memory when the
// configured driver is "memory".
func openStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger, app *application) (repositories.Store, error) {
	if cfg.Databases.SQL.Driver == "memory" {
		logger.Warn("Using in-memory store, data is lost on restart")
		return repositories.NewMemoryStore(), nil
	}
	pool, err := database.SetupDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, pool.Close)
	return repositories.NewPostgresStore(pool), nil
}

func (a *application) run(logger *logrus.Logger) <-chan error {
	errC := make(chan error, 1)
	go func() {
		logger.WithField("addr", a.httpServer.Addr).Info("Starting server")

		// "ListenAndServe always returns a non-nil error. After Shutdown or Close, the returned error is
		// ErrServerClosed."
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errC <- err
		}
	}()
	return errC
}

func (a *application) shutdown(ctx context.Context, logger *logrus.Logger) {
	if err := a.httpServer.Shutdown(ctx); err != nil {
		logger.WithError(err).Warn("HTTP server shutdown")
	}
	if a.jobs != nil {
		a.jobs.Shutdown(ctx)
	}
	a.sync.Shutdown(ctx)
	a.hub.Close()
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	logger.Info("Server stopped")
}
