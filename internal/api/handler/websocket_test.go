package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebSocketHandler_RejectsMissingToken(t *testing.T) {
	env := setupHandlerEnv(t)

	w := performRequest(env.router, "GET", "/api/v1/ws", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = performRequest(env.router, "GET", "/api/v1/ws?token=garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebSocketHandler_Origin(t *testing.T) {
	env := setupHandlerEnv(t)
	_, token := env.userWithToken(t)

	srv := httptest.NewServer(env.router)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws?token=" + token

	t.Run("no origin header", func(t *testing.T) {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		conn.Close()
	})

	t.Run("localhost allowed", func(t *testing.T) {
		header := http.Header{"Origin": []string{"http://localhost:5173"}}
		conn, _, err := websocket.DefaultDialer.Dial(url, header)
		require.NoError(t, err)
		conn.Close()
	})

	t.Run("foreign origin rejected", func(t *testing.T) {
		dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
		header := http.Header{"Origin": []string{"https://evil.example"}}
		_, resp, err := dialer.Dial(url, header)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}
