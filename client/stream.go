package client

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"txmon/models"
)

const (
	initialRetryDelay = 5 * time.Second
	maxRetryDelay     = 60 * time.Second
)

// StreamClient follows the /ws state stream of a txmon daemon and
// reconnects with a growing delay when the connection drops.
type StreamClient struct {
	url    string
	token  string
	clock  clock.Clock
	logger *zap.Logger
	dialer *websocket.Dialer

	lastDisconnected time.Time
}

// NewStreamClient accepts a bare host:port or an http(s) base URL.
func NewStreamClient(baseURL, token string, clk clock.Clock, logger *zap.Logger) *StreamClient {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamClient{
		url:    StreamURL(baseURL),
		token:  token,
		clock:  clk,
		logger: logger,
		dialer: websocket.DefaultDialer,
	}
}

// StreamURL turns a daemon address into its WebSocket endpoint.
func StreamURL(baseURL string) string {
	baseURL = strings.TrimSuffix(baseURL, "/")
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(baseURL, "https://") + "/ws"
	case strings.HasPrefix(baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(baseURL, "http://") + "/ws"
	default:
		return "ws://" + baseURL + "/ws"
	}
}

// URL returns the endpoint the client dials.
func (c *StreamClient) URL() string {
	return c.url
}

// Run delivers every received status to handle until ctx is done.
func (c *StreamClient) Run(ctx context.Context, handle func(models.PortStatus)) error {
	headers := http.Header{}
	if c.token != "" {
		headers.Set("Authorization", "Bearer "+c.token)
	}

	retryDelay := initialRetryDelay
	firstConnection := true
	for {
		conn, _, err := c.dialer.DialContext(ctx, c.url, headers)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Warn("failed to connect to state stream", zap.String("url", c.url), zap.Error(err), zap.Duration("retry", retryDelay))
			if !c.sleep(ctx, retryDelay) {
				return nil
			}
			if retryDelay < maxRetryDelay {
				retryDelay *= 2
			}
			continue
		}

		retryDelay = initialRetryDelay
		if firstConnection {
			c.logger.Info("connected to state stream", zap.String("url", c.url))
			firstConnection = false
		} else {
			c.logger.Info("reconnected to state stream", zap.Duration("after", c.clock.Since(c.lastDisconnected)))
		}

		c.receive(ctx, conn, handle)
		_ = conn.Close()
		c.lastDisconnected = c.clock.Now()
		if ctx.Err() != nil {
			return nil
		}
		c.logger.Warn("state stream closed, reconnecting", zap.Duration("retry", initialRetryDelay))
		if !c.sleep(ctx, initialRetryDelay) {
			return nil
		}
	}
}

func (c *StreamClient) receive(ctx context.Context, conn *websocket.Conn, handle func(models.PortStatus)) {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Debug("state stream read failed", zap.Error(err))
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var status models.PortStatus
		if err := json.Unmarshal(message, &status); err != nil {
			c.logger.Warn("malformed state message", zap.ByteString("message", message), zap.Error(err))
			continue
		}
		handle(status)
	}
}

func (c *StreamClient) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-c.clock.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
