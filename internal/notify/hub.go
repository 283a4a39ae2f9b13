// Package notify fans inbound messages out to connected inbox websockets.
package notify

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/PratikDhanave/intake-edge/internal/models"
)

const (
	subscriberBuffer = 32
	writeTimeout     = 5 * time.Second
	pingInterval     = 30 * time.Second
)

// Hub broadcasts messages to every subscriber. Slow subscribers lose
// messages rather than block the publisher.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan models.InboundMessage]struct{}
	logger zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{subs: map[chan models.InboundMessage]struct{}{}, logger: logger}
}

// Subscribe returns a message channel and a cancel func that must be called
// once the caller stops reading.
func (h *Hub) Subscribe() (<-chan models.InboundMessage, func()) {
	ch := make(chan models.InboundMessage, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
		})
	}
}

// Subscribers reports the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Publish delivers m to every subscriber without blocking.
func (h *Hub) Publish(m models.InboundMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- m:
		default:
			h.logger.Warn().Str("provider_sid", m.ProviderSID).Msg("inbox subscriber full, message dropped")
		}
	}
}

// ServeHTTP upgrades the request and streams messages as JSON text frames
// until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		h.logger.Warn().Err(err).Msg("inbox websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")

	msgs, cancel := h.Subscribe()
	defer cancel()

	// Inbound frames are ignored; CloseRead keeps control frames flowing and
	// cancels ctx when the peer closes.
	ctx := conn.CloseRead(r.Context())

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-ticker.C:
			if err := h.ping(ctx, conn); err != nil {
				return
			}
		case m := <-msgs:
			wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, conn, m)
			wcancel()
			if err != nil {
				h.logger.Debug().Err(err).Msg("inbox websocket write failed")
				return
			}
		}
	}
}

func (h *Hub) ping(ctx context.Context, conn *websocket.Conn) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Ping(ctx)
}
