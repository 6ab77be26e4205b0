package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/roomcast/server/internal/auth"
	"github.com/roomcast/server/internal/config"
	"github.com/roomcast/server/internal/core"
	"github.com/roomcast/server/internal/presence"
	"github.com/roomcast/server/internal/store"
)

// NewServer builds the HTTP server: REST API plus the websocket gateway.
func NewServer(hub *core.Hub, authService *auth.Service, st store.Store, status presence.Status, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})

	apiHandlers := NewAPIHandlers(authService, logger)
	roomHandlers := NewRoomHandlers(st, hub, logger)
	messageHandlers := NewMessageHandlers(st, logger)
	userHandlers := NewUserHandlers(st, status, logger)

	api := router.Group("/api")
	api.POST("/register", apiHandlers.Register)
	api.POST("/login", apiHandlers.Login)

	protected := api.Group("", AuthMiddleware(authService, logger))
	protected.POST("/rooms", roomHandlers.CreateRoom)
	protected.GET("/rooms", roomHandlers.ListRooms)
	protected.GET("/rooms/:name/members", roomHandlers.ListMembers)
	protected.GET("/messages", messageHandlers.ListMessages)
	protected.GET("/users/online", userHandlers.ListOnline)

	router.GET("/ws", gin.WrapH(NewWSHandler(hub, authService, cfg, logger)))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
