// Package server wires the API handlers, middleware, and static assets into
// a gin engine.
package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SetupRouter configures the gin engine with CORS, request logging, the API
// routes, the WebSocket endpoint, and the static frontend fallback.
func SetupRouter(api *API, log *zap.SugaredLogger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	if log != nil {
		r.Use(requestLogger(log))
	}

	corsCfg := cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Content-Type", "Authorization"},
		MaxAge:          12 * time.Hour,
	}
	r.Use(cors.New(corsCfg))

	r.GET("/api/token", api.Token)
	r.GET("/api/network", api.Network)
	r.GET("/api/host-ip", api.HostIP)
	r.POST("/api/files", api.Upload)
	r.GET("/api/files", api.List)
	r.GET("/api/files/:id", api.Download)
	r.GET("/ws", api.WebSocket)

	// Everything else is the bundled frontend.
	static := http.FileServer(http.Dir(api.cfg.StaticDir))
	r.NoRoute(gin.WrapH(static))

	return r
}

// requestLogger logs each request with method, path, status, and latency.
func requestLogger(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Infow("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"ip", c.ClientIP(),
		)
	}
}
