package services

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"txmon/models"
)

const (
	subscriberQueueSize = 64
	writeWait           = 10 * time.Second
	pingPeriod          = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type subscriber struct {
	conn *websocket.Conn
	send chan models.PortStatus
}

// Hub streams published port states to WebSocket subscribers.
type Hub struct {
	clock  clock.Clock
	logger *zap.Logger

	mu          sync.RWMutex
	subscribers map[*subscriber]struct{}
}

// NewHub returns a hub without subscribers.
func NewHub(clk clock.Clock, logger *zap.Logger) *Hub {
	return &Hub{
		clock:       clk,
		logger:      logger,
		subscribers: make(map[*subscriber]struct{}),
	}
}

// Publish queues the state for every subscriber. Subscribers that fall
// behind are disconnected.
func (h *Hub) Publish(_ context.Context, alias string, state models.PortState) error {
	status := models.PortStatus{Alias: alias, State: state, UpdatedAt: h.clock.Now()}

	var slow []*subscriber
	h.mu.RLock()
	for sub := range h.subscribers {
		select {
		case sub.send <- status:
		default:
			slow = append(slow, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range slow {
		h.logger.Warn("websocket subscriber is too slow, closing", zap.String("remote", sub.conn.RemoteAddr().String()))
		h.remove(sub)
	}
	return nil
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// ServeWS upgrades the request and streams states until the peer goes away.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	sub := &subscriber{conn: conn, send: make(chan models.PortStatus, subscriberQueueSize)}
	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	h.mu.Unlock()
	h.logger.Info("websocket subscriber connected", zap.String("remote", conn.RemoteAddr().String()))

	go h.writeLoop(sub)

	// Incoming messages are ignored; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(sub)
}

func (h *Hub) writeLoop(sub *subscriber) {
	ping := h.clock.Ticker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case status, ok := <-sub.send:
			if !ok {
				return
			}
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteJSON(status); err != nil {
				h.logger.Warn("websocket write failed", zap.Error(err))
				h.remove(sub)
				return
			}
		case <-ping.C:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(sub)
				return
			}
		}
	}
}

// remove unregisters sub and closes its connection once.
func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	_, ok := h.subscribers[sub]
	if ok {
		delete(h.subscribers, sub)
		close(sub.send)
	}
	h.mu.Unlock()

	if ok {
		_ = sub.conn.Close()
		h.logger.Info("websocket subscriber disconnected", zap.String("remote", sub.conn.RemoteAddr().String()))
	}
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.RLock()
	subs := make([]*subscriber, 0, len(h.subscribers))
	for sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		h.remove(sub)
	}
}
