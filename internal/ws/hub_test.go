package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"matchwell/config"
	"matchwell/internal/auth"
	"matchwell/internal/logging"
	"matchwell/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishToUser(t *testing.T) {
	h := NewHub()
	a1, a2, b := NewClient("a", 1), NewClient("a", 1), NewClient("b", 1)
	h.Register(a1)
	h.Register(a2)
	h.Register(b)
	assert.Equal(t, 3, h.ClientCount())

	assert.Equal(t, 2, h.publish("a", map[string]string{"type": "notification"}))
	assert.JSONEq(t, `{"type":"notification"}`, string(<-a1.Send))
	assert.Len(t, b.Send, 0)

	// a2 has not drained its single slot yet
	assert.Equal(t, 1, h.publish("a", "again"))
	assert.Equal(t, 0, h.publish("nobody", "x"))

	a1.Close()
	a1.Close()
	assert.Equal(t, 2, h.ClientCount())
	assert.NotPanics(t, func() { h.PublishToUser("a", "after close") })
}

type knownUsers map[string]bool

func (k knownUsers) Exists(_ context.Context, id string) (bool, error) { return k[id], nil }

type brokenUsers struct{}

func (brokenUsers) Exists(context.Context, string) (bool, error) { return false, errors.New("db down") }

func wsServer(t *testing.T, cfg *config.JWTConfig, users middleware.UserChecker, hub *Hub) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws/notifications", UpgradeNotificationsWS(cfg, users, hub, logging.Discard()))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/notifications"
}

func TestUpgradeNotificationsWS_RejectsMissingUser(t *testing.T) {
	cfg := &config.JWTConfig{AccessSecret: "s", Issuer: "matchwell"}
	tok, err := auth.GenerateAccessToken(cfg, "gone", "", time.Minute)
	require.NoError(t, err)

	hub := NewHub()
	base := wsServer(t, cfg, knownUsers{"u1": true}, hub)
	_, resp, err := websocket.DefaultDialer.Dial(base+"?token="+tok, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	base = wsServer(t, cfg, brokenUsers{}, hub)
	_, resp, err = websocket.DefaultDialer.Dial(base+"?token="+tok, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Zero(t, hub.ClientCount())
}

func TestUpgradeNotificationsWS(t *testing.T) {
	cfg := &config.JWTConfig{AccessSecret: "s", Issuer: "matchwell"}
	hub := NewHub()
	base := wsServer(t, cfg, knownUsers{"u1": true}, hub)

	_, resp, err := websocket.DefaultDialer.Dial(base, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	tok, err := auth.GenerateAccessToken(cfg, "u1", "", time.Minute)
	require.NoError(t, err)
	conn, _, err := websocket.DefaultDialer.Dial(base+"?token="+tok, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	hub.PublishToUser("u1", map[string]string{"type": "notification", "message": "hi"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var got map[string]string
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "hi", got["message"])
}
