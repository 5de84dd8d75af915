package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"cryptofolio/src/broadcast"
	"cryptofolio/src/clients/coingecko"
	"cryptofolio/src/models"
	"cryptofolio/src/repositories"
	"cryptofolio/src/scheduler"
	"cryptofolio/src/schemas"
	"cryptofolio/src/utils"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	DefaultSyncInterval = 30 * time.Second
	DefaultWSEndpoint   = "/ws"
	defaultTopLimit     = 50
)

// EventHub is the broadcaster the sync cycle reports to.
type EventHub interface {
	broadcast.Publisher
	SubscriberCount() int
}

type SyncServiceI interface {
	Start(ctx context.Context) (*schemas.CycleStats, bool, error)
	Stop(ctx context.Context) bool
	IsRunning() bool
	Status(ctx context.Context) schemas.RealtimeStatusResponse
	RunCycle(ctx context.Context) schemas.CycleStats
	SyncInitialData(ctx context.Context) schemas.CycleStats
	ClearCache(ctx context.Context)
	APIHealth(ctx context.Context) schemas.APIHealthResponse
	TestConnectivity(ctx context.Context, limit int, topOnly bool) schemas.TestAPIResponse
	BroadcastStored(ctx context.Context) (*schemas.BroadcastResponse, error)
	BroadcastTest() models.Asset
}

type SyncOptions struct {
	Interval     time.Duration
	CycleTimeout time.Duration
	WSEndpoint   string
}

// SyncService refreshes stored asset prices from the market-data API on a
// fixed interval while it is running. Every pass, scheduled or manual, runs
// under the same lock so two passes never overlap.
type SyncService struct {
	store      repositories.Store
	client     coingecko.MarketDataClientI
	cache      PriceCacheI
	portfolios PortfolioServiceI
	hub        EventHub
	opts       SyncOptions
	log        *logrus.Logger
	now        func() time.Time

	rootCtx    context.Context
	rootCancel context.CancelFunc

	running atomic.Bool
	cycles  atomic.Int64
	cycleMu sync.Mutex

	stateMu sync.Mutex
	task    *scheduler.ScheduledTask
	last    *schemas.CycleStats
}

func NewSyncService(
	store repositories.Store,
	client coingecko.MarketDataClientI,
	cache PriceCacheI,
	portfolios PortfolioServiceI,
	hub EventHub,
	opts SyncOptions,
	logger *logrus.Logger,
) *SyncService {
	if opts.Interval <= 0 {
		opts.Interval = DefaultSyncInterval
	}
	if opts.CycleTimeout <= 0 {
		opts.CycleTimeout = 2 * opts.Interval
	}
	if opts.WSEndpoint == "" {
		opts.WSEndpoint = DefaultWSEndpoint
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	rootCtx, cancel := context.WithCancel(context.Background())
	return &SyncService{
		store:      store,
		client:     client,
		cache:      cache,
		portfolios: portfolios,
		hub:        hub,
		opts:       opts,
		log:        logger,
		now:        time.Now,
		rootCtx:    rootCtx,
		rootCancel: cancel,
	}
}

func (s *SyncService) IsRunning() bool { return s.running.Load() }

// Start schedules the periodic cycle and performs an initial sync. It reports
// false without error when updates were already running.
func (s *SyncService) Start(ctx context.Context) (*schemas.CycleStats, bool, error) {
	s.stateMu.Lock()
	if s.running.Load() {
		s.stateMu.Unlock()
		s.log.Info("Real-time updates already running")
		return nil, false, nil
	}
	task, err := scheduler.NewScheduledTask(scheduler.EverySpec(s.opts.Interval), s.log, s.tick)
	if err != nil {
		s.stateMu.Unlock()
		return nil, false, fmt.Errorf("failed to schedule sync: %w", err)
	}
	s.task = task
	s.running.Store(true)
	s.stateMu.Unlock()

	s.log.WithField("interval", s.opts.Interval.String()).Info("Real-time updates started")
	s.hub.Publish(broadcast.NewStatusEvent("started", "Real-time updates started"))

	stats := s.SyncInitialData(ctx)
	return &stats, true, nil
}

// Stop cancels future cycles and waits for an in-flight one to finish.
func (s *SyncService) Stop(ctx context.Context) bool {
	s.stateMu.Lock()
	if !s.running.Load() {
		s.stateMu.Unlock()
		return false
	}
	s.running.Store(false)
	task := s.task
	s.task = nil
	s.stateMu.Unlock()

	if task != nil {
		task.Cancel(ctx)
	}
	s.log.Info("Real-time updates stopped")
	s.hub.Publish(broadcast.NewStatusEvent("stopped", "Real-time updates stopped"))
	return true
}

// Shutdown stops the scheduler and aborts any cycle still talking to the upstream.
func (s *SyncService) Shutdown(ctx context.Context) {
	s.rootCancel()
	s.Stop(ctx)
}

func (s *SyncService) tick() {
	ctx, cancel := context.WithTimeout(s.rootCtx, s.opts.CycleTimeout)
	defer cancel()
	s.RunCycle(ctx)
}

// RunCycle performs one scheduled pass. It does nothing while stopped.
func (s *SyncService) RunCycle(ctx context.Context) schemas.CycleStats {
	if !s.running.Load() {
		s.log.Debug("Real-time updates disabled, skipping cycle")
		return schemas.CycleStats{StartedAt: s.now(), Skipped: true, Reason: "stopped"}
	}

	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()
	if !s.running.Load() {
		return schemas.CycleStats{StartedAt: s.now(), Skipped: true, Reason: "stopped"}
	}
	return s.record(s.cycle(ctx, true))
}

// SyncInitialData copies the current market snapshot onto the stored assets
// without health check, notifications or revaluation.
func (s *SyncService) SyncInitialData(ctx context.Context) schemas.CycleStats {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()
	return s.record(s.cycle(ctx, false))
}

func (s *SyncService) record(stats schemas.CycleStats) schemas.CycleStats {
	stats.Duration = s.now().Sub(stats.StartedAt).String()
	s.cycles.Add(1)

	s.stateMu.Lock()
	last := stats
	s.last = &last
	s.stateMu.Unlock()
	return stats
}

func (s *SyncService) cycle(ctx context.Context, notify bool) schemas.CycleStats {
	stats := schemas.CycleStats{StartedAt: s.now()}
	log := s.log.WithField("notify", notify)

	if notify && !s.client.IsHealthy(ctx) {
		stats.Skipped = true
		stats.Reason = "market data API unavailable"
		log.Warn("Market data API is not healthy, skipping cycle")
		return stats
	}

	tracked := s.client.TrackedCoins()
	market := s.client.FetchMarket(ctx, tracked, len(tracked))
	stats.Received = len(market)
	if len(market) == 0 {
		stats.Skipped = true
		stats.Reason = "no market data received"
		log.Warn("No market data received, aborting cycle")
		return stats
	}
	log.WithField("received", len(market)).Info("Applying market data")

	updated := make([]int64, 0, len(market))
	for _, snapshot := range market {
		if err := ctx.Err(); err != nil {
			stats.Reason = "cycle interrupted: " + err.Error()
			log.WithError(err).Warn("Cycle interrupted")
			break
		}

		asset, err := s.store.Assets().UpdateMarketFields(ctx, snapshot.Symbol, snapshot.MarketFields())
		if errors.Is(err, utils.ErrNotFound) {
			stats.NotFound++
			log.WithField("symbol", snapshot.Symbol).Debug("Crypto not tracked locally")
			continue
		}
		if err != nil {
			stats.Failed++
			log.WithError(err).WithField("symbol", snapshot.Symbol).Error("Failed to update crypto")
			continue
		}

		stats.Updated++
		updated = append(updated, asset.ID)
		log.WithFields(logrus.Fields{"symbol": asset.Symbol, "price": asset.CurrentPrice.String()}).Debug("Crypto updated")

		if notify {
			s.hub.Publish(broadcast.NewEvent(broadcast.AssetUpdate, asset))
			stats.Notified++
		}
	}

	if notify && len(updated) > 0 && s.portfolios != nil {
		valuations, err := s.portfolios.RevalueHolding(ctx, updated)
		if err != nil {
			log.WithError(err).Error("Failed to revalue portfolios")
		}
		stats.PortfoliosRevalued = len(valuations)
	}
	log.WithFields(logrus.Fields{
		"received":  stats.Received,
		"updated":   stats.Updated,
		"not_found": stats.NotFound,
		"failed":    stats.Failed,
	}).Info("Market data cycle finished")
	return stats
}

func (s *SyncService) ClearCache(ctx context.Context) {
	s.cache.InvalidateAll(ctx)
}

func (s *SyncService) Status(ctx context.Context) schemas.RealtimeStatusResponse {
	s.stateMu.Lock()
	var last *schemas.CycleStats
	if s.last != nil {
		l := *s.last
		last = &l
	}
	s.stateMu.Unlock()

	return schemas.RealtimeStatusResponse{
		RealTimeUpdates:   s.running.Load(),
		APIHealthy:        s.client.IsHealthy(ctx),
		Interval:          s.opts.Interval.String(),
		WebsocketEndpoint: s.opts.WSEndpoint,
		Subscribers:       s.hub.SubscriberCount(),
		CachedSnapshots:   s.cache.Len(),
		CyclesRun:         s.cycles.Load(),
		LastCycle:         last,
	}
}

func (s *SyncService) APIHealth(ctx context.Context) schemas.APIHealthResponse {
	healthy := s.client.IsHealthy(ctx)
	message := "Market data API is working"
	if !healthy {
		message = "Market data API is not responding"
	}
	return schemas.APIHealthResponse{Healthy: healthy, APIURL: s.client.BaseURL(), Message: message}
}

// TestConnectivity checks the API and fetches either the tracked coins or,
// with topOnly, the largest coins by market cap.
func (s *SyncService) TestConnectivity(ctx context.Context, limit int, topOnly bool) schemas.TestAPIResponse {
	resp := schemas.TestAPIResponse{Data: []models.Asset{}}
	if limit > 0 {
		l := limit
		resp.RequestedLimit = &l
	}

	resp.APIHealthy = s.client.IsHealthy(ctx)
	if !resp.APIHealthy {
		resp.Message = "Market data API is not responding, it may be rate limiting or unavailable"
		resp.Suggestion = "Wait a few minutes and try again"
		return resp
	}

	if topOnly {
		if limit <= 0 {
			limit = defaultTopLimit
		}
		resp.Mode = "top_by_market_cap"
		resp.Data = s.client.FetchTopByMarketCap(ctx, limit)
	} else {
		ids := s.client.TrackedCoins()
		if limit > 0 && limit < len(ids) {
			ids = ids[:limit]
		}
		resp.Mode = "supported_coins"
		resp.Data = s.client.FetchMarket(ctx, ids, len(ids))
	}

	resp.Success = true
	resp.Count = len(resp.Data)
	if resp.Count == 0 {
		resp.Message = "API is up but returned no coins, requests may be rate limited"
		resp.Suggestion = "Wait a few minutes before trying again"
		return resp
	}
	resp.Message = fmt.Sprintf("API working, %d coins returned", resp.Count)
	return resp
}

// BroadcastStored publishes every stored asset as an asset_update.
func (s *SyncService) BroadcastStored(ctx context.Context) (*schemas.BroadcastResponse, error) {
	assets, err := s.store.Assets().List(ctx, repositories.AssetFilter{})
	if err != nil {
		return nil, err
	}
	if len(assets) == 0 {
		return nil, fmt.Errorf("no cryptos stored: %w", utils.ErrNotFound)
	}
	for i := range assets {
		s.hub.Publish(broadcast.NewEvent(broadcast.AssetUpdate, &assets[i]))
	}
	return &schemas.BroadcastResponse{
		Success: true,
		Count:   len(assets),
		Sent:    len(assets),
		Message: fmt.Sprintf("Sent %d cryptos to %d subscribers", len(assets), s.hub.SubscriberCount()),
	}, nil
}

// BroadcastTest publishes a synthetic asset so clients can verify their connection.
func (s *SyncService) BroadcastTest() models.Asset {
	asset := models.Asset{
		Name:         "Bitcoin Test",
		Symbol:       "BTC",
		CurrentPrice: decimal.NewFromInt(50000),
		MarketCap:    decimal.NewNullDecimal(decimal.NewFromInt(1000000000)),
		Volume24h:    decimal.NewNullDecimal(decimal.NewFromInt(50000000)),
		Change24h:    decimal.NewNullDecimal(decimal.RequireFromString("2.5")),
		UpdatedAt:    s.now().UTC(),
	}
	s.hub.Publish(broadcast.NewEvent(broadcast.AssetUpdate, asset))
	return asset
}
