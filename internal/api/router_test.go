package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/qs3c/playoga_server/config"
	"github.com/qs3c/playoga_server/internal/pkg/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()

	cfg := &config.Config{
		JWT: config.JWTConfig{Secret: "test-secret-key"},
		CORS: config.CORSConfig{
			AllowedOrigins:        []string{"https://playoga.in"},
			AllowedOriginSuffixes: []string{".playoga.in"},
			FallbackOrigin:        "https://playoga.in",
			AllowedMethods:        []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:        []string{"Authorization", "Content-Type"},
		},
	}
	cfg.Defaults()

	registry := prometheus.NewRegistry()
	m := metrics.NewPaymentMetrics(registry)
	m.IncOrderCreated("INR")

	// 这里只验证路由层，handler 不会被调用到
	r := NewRouter(Handlers{}, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), cfg, zap.NewNop())
	return r.Setup()
}

func TestRouter_Health(t *testing.T) {
	engine := setupRouter(t)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRouter_Metrics(t *testing.T) {
	engine := setupRouter(t)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "playoga_"))
}

func TestRouter_Preflight(t *testing.T) {
	engine := setupRouter(t)

	req := httptest.NewRequest("OPTIONS", "/api/v1/payments/verify", nil)
	req.Header.Set("Origin", "https://app.playoga.in")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.playoga.in", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_ProtectedRoutesRequireToken(t *testing.T) {
	engine := setupRouter(t)

	routes := []struct{ method, path string }{
		{"POST", "/api/v1/coupons/validate"},
		{"POST", "/api/v1/payments/orders"},
		{"POST", "/api/v1/payments/verify"},
		{"GET", "/api/v1/payments"},
		{"GET", "/api/v1/wallet"},
		{"POST", "/api/v1/wallet/withdrawals"},
		{"POST", "/api/v1/referrals/code"},
		{"POST", "/api/v1/points/award"},
		{"GET", "/api/v1/points"},
		{"GET", "/api/v1/subscription"},
		{"GET", "/api/v1/auth/me"},
	}

	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(rt.method, rt.path, nil))

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())
		})
	}
}
