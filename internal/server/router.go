package server

import (
	"net/http"

	"roomchat/internal/api"
	"roomchat/internal/auth"
	"roomchat/internal/config"
	"roomchat/internal/metrics"
	"roomchat/internal/mw"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter 统一初始化 Gin 中间件与 REST API。所有业务接口挂在 /api 下。
func SetupRouter(cfg config.Config, h *Handler, resolver *auth.SessionResolver) *gin.Engine {
	r := gin.New()
	r.Use(gin.CustomRecovery(recovery))
	r.Use(mw.RequestID())
	r.Use(metrics.GinMiddleware())
	r.Use(mw.CORS(cfg.Env, cfg.CORSOrigins))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, api.Envelope{Message: "Not found", Code: http.StatusNotFound})
	})
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	g := r.Group("/api")
	g.POST("/auth/register", h.Register)
	g.POST("/auth/login", h.Login)
	g.POST("/auth/logout", h.Logout)

	// 需要会话的接口：cookie 优先，其次 Bearer Token。
	authed := g.Group("")
	authed.Use(auth.RequireSession(resolver, metrics.AuthFailure))
	authed.GET("/auth/me", h.Me)
	authed.GET("/room/list", h.ListRooms)
	authed.POST("/room/add", h.CreateRoom)
	authed.POST("/room/delete", h.DeleteRoom)
	authed.GET("/room/message/list", h.ListMessages)
	authed.POST("/message/add", h.SendMessage)
	authed.POST("/message/delete", h.DeleteMessage)
	return r
}
