package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"cryptofolio/src/clients/coingecko"
	"cryptofolio/src/models"
	"cryptofolio/src/utils"
	redis_utils "cryptofolio/src/utils/redis"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultSnapshotTTL = 5 * time.Minute

	mirrorTimeout = 2 * time.Second
)

// SnapshotMirror is an optional shared cache layer, satisfied by redis_utils.RedisHandler.
type SnapshotMirror interface {
	Get(ctx context.Context, key string, result interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeleteAll(ctx context.Context) error
}

type PriceCacheI interface {
	Get(ctx context.Context, coinID string) (*models.Asset, error)
	Invalidate(ctx context.Context, coinID string)
	InvalidateAll(ctx context.Context)
	Len() int
}

// PriceCache memoizes coin snapshots. Concurrent misses on the same coin
// share one upstream call and failures are never cached.
type PriceCache struct {
	client coingecko.MarketDataClientI
	mirror SnapshotMirror
	ttl    time.Duration
	now    func() time.Time
	log    *logrus.Logger

	mu         sync.RWMutex
	entries    map[string]*utils.Cache[*models.Asset]
	generation uint64
	keyGen     map[string]uint64
	group      singleflight.Group
}

// NewPriceCache creates a cache in front of client. mirror may be nil.
func NewPriceCache(client coingecko.MarketDataClientI, mirror SnapshotMirror, ttl time.Duration, logger *logrus.Logger) *PriceCache {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &PriceCache{
		client:  client,
		mirror:  mirror,
		ttl:     ttl,
		now:     time.Now,
		log:     logger,
		entries: map[string]*utils.Cache[*models.Asset]{},
		keyGen:  map[string]uint64{},
	}
}

// SetClock replaces the time source used for entry expiry.
func (pc *PriceCache) SetClock(now func() time.Time) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.now = now
}

func mirrorKey(coinID string) string {
	return "snapshot:" + coinID
}

func (pc *PriceCache) lookup(coinID string) (*models.Asset, bool) {
	pc.mu.RLock()
	entry, ok := pc.entries[coinID]
	pc.mu.RUnlock()
	if !ok {
		return nil, false
	}
	asset, ok := entry.Get()
	if !ok {
		return nil, false
	}
	return asset.Clone(), true
}

// cacheGen identifies the state of the cache and of one key when a fetch began.
type cacheGen struct {
	all uint64
	key uint64
}

// store writes a whole entry unless the cache or the key was invalidated
// after gen was read. It reports whether the entry was written.
func (pc *PriceCache) store(coinID string, asset *models.Asset, gen cacheGen) bool {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if gen.all != pc.generation || gen.key != pc.keyGen[coinID] {
		return false
	}
	entry := utils.NewCacheWithClock[*models.Asset](pc.now)
	entry.Set(asset.Clone(), pc.ttl)
	pc.entries[coinID] = entry
	return true
}

func (pc *PriceCache) currentGeneration(coinID string) cacheGen {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return cacheGen{all: pc.generation, key: pc.keyGen[coinID]}
}

// Get returns the snapshot for coinID, fetching it on a miss.
func (pc *PriceCache) Get(ctx context.Context, coinID string) (*models.Asset, error) {
	if asset, ok := pc.lookup(coinID); ok {
		return asset, nil
	}

	generation := pc.currentGeneration(coinID)
	v, err, shared := pc.group.Do(coinID, func() (interface{}, error) {
		if asset, ok := pc.lookup(coinID); ok {
			return asset, nil
		}
		if asset, ok := pc.fromMirror(ctx, coinID); ok {
			pc.store(coinID, asset, generation)
			return asset, nil
		}

		asset, err := pc.client.FetchSnapshot(ctx, coinID)
		if err != nil {
			return nil, err
		}
		if pc.store(coinID, asset, generation) {
			pc.toMirror(ctx, coinID, asset)
		}
		return asset, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		pc.log.WithField("coin", coinID).Debug("Shared in-flight snapshot fetch")
	}
	return v.(*models.Asset).Clone(), nil
}

func (pc *PriceCache) fromMirror(ctx context.Context, coinID string) (*models.Asset, bool) {
	if pc.mirror == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, mirrorTimeout)
	defer cancel()

	var asset models.Asset
	if err := pc.mirror.Get(ctx, mirrorKey(coinID), &asset); err != nil {
		if !errors.Is(err, redis_utils.ErrKeyNotFound) {
			pc.log.WithError(err).WithField("coin", coinID).Warn("Snapshot mirror read failed")
		}
		return nil, false
	}
	return &asset, true
}

func (pc *PriceCache) toMirror(ctx context.Context, coinID string, asset *models.Asset) {
	if pc.mirror == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, mirrorTimeout)
	defer cancel()
	if err := pc.mirror.Set(ctx, mirrorKey(coinID), asset, pc.ttl); err != nil {
		pc.log.WithError(err).WithField("coin", coinID).Warn("Snapshot mirror write failed")
	}
}

func (pc *PriceCache) Invalidate(ctx context.Context, coinID string) {
	pc.mu.Lock()
	delete(pc.entries, coinID)
	pc.keyGen[coinID]++
	pc.mu.Unlock()
	pc.group.Forget(coinID)

	if pc.mirror != nil {
		ctx, cancel := context.WithTimeout(ctx, mirrorTimeout)
		defer cancel()
		if err := pc.mirror.Delete(ctx, mirrorKey(coinID)); err != nil {
			pc.log.WithError(err).WithField("coin", coinID).Warn("Snapshot mirror delete failed")
		}
	}
}

// InvalidateAll drops every snapshot and the cached upstream health status.
func (pc *PriceCache) InvalidateAll(ctx context.Context) {
	pc.mu.Lock()
	n := len(pc.entries)
	pc.entries = map[string]*utils.Cache[*models.Asset]{}
	pc.keyGen = map[string]uint64{}
	pc.generation++
	pc.mu.Unlock()

	pc.client.ResetHealth()

	if pc.mirror != nil {
		ctx, cancel := context.WithTimeout(ctx, mirrorTimeout)
		defer cancel()
		if err := pc.mirror.DeleteAll(ctx); err != nil {
			pc.log.WithError(err).Warn("Snapshot mirror flush failed")
		}
	}
	pc.log.WithField("entries", n).Info("Price cache cleared")
}

// Len counts the entries that have not expired.
func (pc *PriceCache) Len() int {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	n := 0
	for _, entry := range pc.entries {
		if _, ok := entry.Get(); ok {
			n++
		}
	}
	return n
}
