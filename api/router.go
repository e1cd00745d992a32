// Package api exposes the relay over HTTP: a websocket session endpoint for
// participants and a small authenticated admin surface for chat lifecycle
// and search.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"babel-relay/auth"
	"babel-relay/services"

	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	ConnectionBufferSize int
	DeliveryTimeout      time.Duration
}

func NewRouter(log *slog.Logger, service services.IChatService,
	tokens *auth.TokenManager, cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	admin := NewAdminHandler(log, service, tokens)
	ws := NewWebSocketHandler(log, service, cfg.ConnectionBufferSize, cfg.DeliveryTimeout)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.POST("/auth/token", admin.IssueToken)
	router.GET("/ws", ws.Handle)

	protected := router.Group("/", RequireAuth(tokens))
	protected.GET("/chats", admin.ListChats)
	protected.POST("/chats", admin.CreateChat)
	protected.DELETE("/chats/:chatId", admin.DeleteChat)
	protected.GET("/chats/:chatId/search", admin.SearchChat)

	return router
}
