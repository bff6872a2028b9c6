package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/playoga_server/config"
)

// CORS 跨域中间件
// 允许的来源：精确匹配、域名后缀、本地开发端口；其余来源回落到 FallbackOrigin
func CORS(cfg config.CORSConfig) gin.HandlerFunc {
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		if allowOrigin := resolveOrigin(cfg, origin); allowOrigin != "" {
			c.Header("Access-Control-Allow-Origin", allowOrigin)
			c.Header("Vary", "Origin")
		}

		c.Header("Access-Control-Allow-Methods", methods)
		c.Header("Access-Control-Allow-Headers", headers)
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func resolveOrigin(cfg config.CORSConfig, origin string) string {
	if origin == "" {
		return ""
	}

	for _, allowed := range cfg.AllowedOrigins {
		if allowed == "*" || origin == allowed {
			return origin
		}
	}

	host := origin
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	for _, suffix := range cfg.AllowedOriginSuffixes {
		if suffix != "" && strings.HasSuffix(host, suffix) {
			return origin
		}
	}

	if cfg.AllowLocalhost && strings.HasPrefix(origin, "http://localhost:") {
		return origin
	}

	return cfg.FallbackOrigin
}

// OriginAllowed 来源是否在允许列表内（不含回落来源）
func OriginAllowed(cfg config.CORSConfig, origin string) bool {
	return origin != "" && resolveOrigin(cfg, origin) == origin
}
