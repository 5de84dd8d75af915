// Package broadcast fans real-time events out to WebSocket subscribers.
package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"nhooyr.io/websocket"
)

type Kind string

const (
	AssetUpdate     Kind = "asset_update"
	MarketUpdate    Kind = "market_update"
	StatusUpdate    Kind = "status_update"
	ErrorEvent      Kind = "error"
	PortfolioUpdate Kind = "portfolio_update"
)

const (
	DefaultBufferSize   = 64
	DefaultWriteTimeout = 5 * time.Second
)

// Event is the envelope sent to every subscriber.
type Event struct {
	Type      Kind   `json:"type"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data"`
}

type StatusData struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type ErrorData struct {
	Error string `json:"error"`
}

func NewEvent(kind Kind, data any) Event {
	return Event{Type: kind, Timestamp: time.Now().UTC().Format(time.RFC3339), Data: data}
}

func NewStatusEvent(status, message string) Event {
	return NewEvent(StatusUpdate, StatusData{Status: status, Message: message})
}

func NewErrorEvent(message string) Event {
	return NewEvent(ErrorEvent, ErrorData{Error: message})
}

// Publisher is what producers of events depend on.
type Publisher interface {
	Publish(event Event) int
}

// Subscriber receives encoded events on C until it is unsubscribed.
type Subscriber struct {
	ID string
	C  <-chan []byte
	ch chan []byte
}

// Hub delivers each event to every subscriber with a non-blocking send.
// A subscriber whose buffer is full misses the event.
type Hub struct {
	mu           sync.RWMutex
	subs         map[string]*Subscriber
	bufferSize   int
	writeTimeout time.Duration
	dropped      atomic.Int64
	published    atomic.Int64
	log          *logrus.Logger
}

func NewHub(logger *logrus.Logger, bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Hub{
		subs:         map[string]*Subscriber{},
		bufferSize:   bufferSize,
		writeTimeout: DefaultWriteTimeout,
		log:          logger,
	}
}

func (h *Hub) Subscribe() *Subscriber {
	ch := make(chan []byte, h.bufferSize)
	sub := &Subscriber{ID: uuid.NewString(), C: ch, ch: ch}

	h.mu.Lock()
	h.subs[sub.ID] = sub
	total := len(h.subs)
	h.mu.Unlock()

	h.log.WithFields(logrus.Fields{"subscriber": sub.ID, "subscribers": total}).Info("Subscriber connected")
	return sub
}

// Unsubscribe removes the subscriber and closes its channel. Unknown ids are ignored.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	sub, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
		close(sub.ch)
	}
	total := len(h.subs)
	h.mu.Unlock()

	if ok {
		h.log.WithFields(logrus.Fields{"subscriber": id, "subscribers": total}).Info("Subscriber disconnected")
	}
}

// Publish encodes the event once and returns how many subscribers accepted it.
func (h *Hub) Publish(event Event) int {
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	payload, ok := h.encode(event)
	if !ok {
		return 0
	}
	h.published.Add(1)

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for id, sub := range h.subs {
		select {
		case sub.ch <- payload:
			delivered++
		default:
			h.dropped.Add(1)
			h.log.WithFields(logrus.Fields{"subscriber": id, "type": event.Type}).Warn("Subscriber buffer full, dropping event")
		}
	}
	return delivered
}

func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped is the number of deliveries skipped because a buffer was full.
func (h *Hub) Dropped() int64 { return h.dropped.Load() }

func (h *Hub) Published() int64 { return h.published.Load() }

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, sub := range h.subs {
		delete(h.subs, id)
		close(sub.ch)
	}
}

// ServeWS upgrades the request and streams events to the client until either
// side goes away. Messages from the client are ignored.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		h.log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "unexpected close")

	sub := h.Subscribe()
	defer h.Unsubscribe(sub.ID)

	ctx := conn.CloseRead(r.Context())

	if hello, ok := h.encode(NewStatusEvent("connected", "Subscribed to real-time updates")); ok {
		if err := h.write(ctx, conn, hello); err != nil {
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.C:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			if err := h.write(ctx, conn, msg); err != nil {
				if !errors.Is(err, context.Canceled) {
					h.log.WithError(err).WithField("subscriber", sub.ID).Debug("WebSocket write failed")
				}
				return
			}
		}
	}
}

func (h *Hub) encode(event Event) ([]byte, bool) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.WithError(err).WithField("type", event.Type).Error("Failed to encode event")
		return nil, false
	}
	return payload, true
}

func (h *Hub) write(ctx context.Context, conn *websocket.Conn, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, h.writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, msg)
}
