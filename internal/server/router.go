package server

import (
	"context"
	"net/http"
	"time"

	"billboard-realtime/internal/auth"
	"billboard-realtime/internal/handler"
	"billboard-realtime/internal/hub"
	"billboard-realtime/internal/middleware"
	"billboard-realtime/internal/store"

	"github.com/gin-gonic/gin"
)

type Deps struct {
	Store       *store.Store
	Hub         *hub.Hub
	SocketIO    http.Handler
	TokenConfig auth.TokenConfig
	Version     string

	EnableDevTokens bool
}

func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())

	r.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := deps.Store.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "database unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "instance": deps.Hub.InstanceID()})
	})

	version := &handler.VersionHandler{Version: deps.Version, Stats: deps.Hub}
	r.GET("/version", version.Check)

	if deps.SocketIO != nil {
		socket := gin.WrapH(deps.SocketIO)
		r.GET("/socket.io", socket)
		r.GET("/socket.io/", socket)
	}

	if deps.EnableDevTokens {
		devTokens := &handler.DevTokenHandler{
			TokenConfig: deps.TokenConfig,
			Limiter:     middleware.NewRateLimiter(10, time.Minute),
		}
		r.POST("/v1/auth/token", devTokens.Issue)
	}

	protected := r.Group("/v1")
	protected.Use(middleware.RequireAuth(deps.TokenConfig))
	protected.Use(middleware.RateLimit(middleware.NewRateLimiter(300, time.Minute)))

	conversations := &handler.ConversationHandler{Store: deps.Store, Dispatcher: deps.Hub}
	protected.POST("/conversations", conversations.Create)
	protected.GET("/conversations", conversations.List)
	protected.GET("/conversations/:id/messages", conversations.Messages)
	protected.POST("/conversations/:id/messages", conversations.Send)

	messages := &handler.MessageHandler{Store: deps.Store, Dispatcher: deps.Hub}
	protected.POST("/messages/:id/read", messages.MarkRead)

	notifications := &handler.NotificationHandler{Store: deps.Store}
	protected.GET("/notifications", notifications.List)
	protected.POST("/notifications/:id/read", notifications.MarkRead)

	billboards := &handler.BillboardHandler{Store: deps.Store, Dispatcher: deps.Hub}
	protected.POST("/billboards", middleware.RequireRole(auth.RoleOwner, auth.RoleAdmin), billboards.Create)
	protected.GET("/billboards/:id", billboards.Get)
	protected.PATCH("/billboards/:id/status", middleware.RequireRole(auth.RoleAdmin), billboards.UpdateStatus)

	presence := &handler.PresenceHandler{Presence: deps.Hub}
	protected.GET("/presence", presence.List)
	protected.GET("/presence/:userId", presence.Get)

	return r
}
