package services_test

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"cryptofolio/src/broadcast"
	"cryptofolio/src/models"
	"cryptofolio/src/repositories"
	redis_utils "cryptofolio/src/utils/redis"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func nullDec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(dec(s))
}

// recorder is an EventHub that keeps every published event.
type recorder struct {
	mu     sync.Mutex
	events []broadcast.Event
}

func (r *recorder) Publish(e broadcast.Event) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return 1
}

func (r *recorder) SubscriberCount() int { return 0 }

func (r *recorder) ofKind(kind broadcast.Kind) []broadcast.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []broadcast.Event{}
	for _, e := range r.events {
		if e.Type == kind {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) all() []broadcast.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]broadcast.Event(nil), r.events...)
}

func (r *recorder) statuses() []string {
	out := []string{}
	for _, e := range r.ofKind(broadcast.StatusUpdate) {
		out = append(out, e.Data.(broadcast.StatusData).Status)
	}
	return out
}

func createAsset(t *testing.T, store repositories.Store, name, symbol, price string) *models.Asset {
	t.Helper()
	a := &models.Asset{Name: name, Symbol: symbol, CurrentPrice: dec(price)}
	require.NoError(t, store.Assets().Create(context.Background(), a))
	return a
}

func createPortfolio(t *testing.T, store repositories.Store, name string) *models.Portfolio {
	t.Helper()
	p := &models.Portfolio{Name: name, Description: name + " holdings"}
	require.NoError(t, store.Portfolios().Create(context.Background(), p))
	return p
}

// mapMirror stands in for Redis, storing JSON like the real handler does.
type mapMirror struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMapMirror() *mapMirror {
	return &mapMirror{data: map[string][]byte{}}
}

func (m *mapMirror) Get(_ context.Context, key string, result interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	if !ok {
		return redis_utils.ErrKeyNotFound
	}
	return json.Unmarshal(raw, result)
}

func (m *mapMirror) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = raw
	return nil
}

func (m *mapMirror) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *mapMirror) DeleteAll(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = map[string][]byte{}
	return nil
}

func (m *mapMirror) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}
