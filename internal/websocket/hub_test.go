package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func TestHub_DeliversOnlySubscribedTables(t *testing.T) {
	hub := startHub(t)

	users := &Client{hub: hub, send: make(chan []byte, 4), tables: ParseTables("users")}
	all := &Client{hub: hub, send: make(chan []byte, 4), tables: ParseTables("")}
	hub.register <- users
	hub.register <- all

	hub.Publish(ChangeEvent{Table: "visitors", Type: OpInsert, ID: "v1"})
	hub.Publish(ChangeEvent{Table: "users", Type: OpUpdate, ID: "u1"})

	var got ChangeEvent
	select {
	case msg := <-users.send:
		require.NoError(t, json.Unmarshal(msg, &got))
	case <-time.After(time.Second):
		t.Fatal("users subscriber received nothing")
	}
	assert.Equal(t, "users", got.Table)
	assert.Equal(t, "u1", got.ID)
	assert.False(t, got.At.IsZero())

	for _, want := range []string{"visitors", "users"} {
		select {
		case msg := <-all.send:
			require.NoError(t, json.Unmarshal(msg, &got))
			assert.Equal(t, want, got.Table)
		case <-time.After(time.Second):
			t.Fatalf("unfiltered subscriber missed %s", want)
		}
	}
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub := startHub(t)

	slow := &Client{hub: hub, send: make(chan []byte), tables: ParseTables("")}
	hub.register <- slow
	hub.Publish(ChangeEvent{Table: "users", Type: OpDelete, ID: "u1"})

	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHub_StoppedHubDoesNotBlockClients(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	c := &Client{hub: hub, send: make(chan []byte, 1)}
	require.True(t, hub.join(c))
	cancel()
	select {
	case <-hub.done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}

	finished := make(chan struct{})
	go func() {
		hub.leave(c)
		assert.False(t, hub.join(&Client{hub: hub, send: make(chan []byte, 1)}))
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("register/unregister blocked after shutdown")
	}
	assert.Zero(t, hub.ClientCount())
}

func TestParseTables(t *testing.T) {
	assert.Equal(t, map[string]bool{"users": true, "visitors": true}, ParseTables(" users, ,visitors"))
	assert.Empty(t, ParseTables(""))
}

func TestServeWs_RejectsUnauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := startHub(t)
	secret := []byte("test-secret")

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { ServeWs(hub, c, secret, "admin") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	userToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1", "role": "user", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(secret)
	require.NoError(t, err)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws?token="+userToken, nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}
