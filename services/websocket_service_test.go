package services

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"txmon/models"
)

func newHubServer(t *testing.T) (*Hub, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hub := NewHub(clock.NewMock(), zap.NewNop())
	router := gin.New()
	router.GET("/ws", hub.ServeWS)
	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestHubStreamsStates(t *testing.T) {
	hub, url := newHubServer(t)
	conn := dial(t, url)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, hub.Publish(context.Background(), "P1", models.StateNotOK))

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	var got models.PortStatus
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "P1", got.Alias)
	assert.Equal(t, models.StateNotOK, got.State)

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	var raw map[string]any
	require.NoError(t, hub.Publish(context.Background(), "P2", models.StateUnknown))
	require.NoError(t, conn.ReadJSON(&raw))
	assert.Equal(t, "UNKNOWN", raw["state"])
}

func TestHubForgetsClosedSubscribers(t *testing.T) {
	hub, url := newHubServer(t)
	conn := dial(t, url)
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool { return hub.Subscribers() == 0 }, time.Second, time.Millisecond)
	assert.NoError(t, hub.Publish(context.Background(), "P1", models.StateOK))
}

func TestHubCloseDisconnects(t *testing.T) {
	hub, url := newHubServer(t)
	conn := dial(t, url)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, time.Millisecond)

	hub.Close()

	assert.Zero(t, hub.Subscribers())
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
