package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GeoFlame/GeoChat/internal/chat"
	"github.com/GeoFlame/GeoChat/internal/config"
	"github.com/GeoFlame/GeoChat/internal/metrics"
	"github.com/GeoFlame/GeoChat/internal/mw"
	"github.com/GeoFlame/GeoChat/internal/ws"

	"golang.org/x/time/rate"
)

// SetupRouter 统一初始化 Gin 中间件、房间目录接口与 WebSocket 端点。
func SetupRouter(cfg config.Config, svc *chat.Service) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(metrics.GinMiddleware())
	r.Use(mw.CORS(cfg.Env))
	// 控制单个 IP+路由的速率，挡住目录接口被刷。
	r.Use(mw.RateLimit(rate.Every(time.Second/20), 40))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": svc.PublicRooms()})
	})

	r.GET("/ws", ws.Serve(svc))

	// 聊天页面与静态资源，行为与上面的接口路径错开。
	webDir := filepath.Join(".", "web")
	r.NoRoute(func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Status(http.StatusNotFound)
			return
		}
		rel := strings.TrimPrefix(filepath.Clean(c.Request.URL.Path), "/")
		if rel == "" {
			rel = "index.html"
		}
		target := filepath.Join(webDir, rel)
		if fi, err := os.Stat(target); err == nil && !fi.IsDir() {
			c.File(target)
			return
		}
		if strings.Contains(rel, ".") {
			c.Status(http.StatusNotFound)
			return
		}
		c.File(filepath.Join(webDir, "index.html"))
	})
	return r
}
