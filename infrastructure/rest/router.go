// Package rest exposes the chat over REST and websocket with gin.
package rest

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

func NewRouter(log *slog.Logger, handler *ChatHandler, tokens TokenValidator) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(log))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authed := r.Group("", AuthMiddleware(tokens))
	authed.GET("/ws/:room_id", handler.Connect)

	api := authed.Group("/api/v1/chat")
	api.POST("/rooms", handler.CreateRoom)
	api.GET("/rooms", handler.ListRooms)
	api.GET("/rooms/:room_id/messages", handler.History)
	api.POST("/rooms/:room_id/read", handler.MarkRead)
	api.GET("/unread-counts", handler.UnreadCounts)
	return r
}
