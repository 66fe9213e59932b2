package http

import (
	"fmt"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/handlers"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomchat-server/internal/auth"
	"github.com/vovakirdan/roomchat-server/internal/chat"
	"github.com/vovakirdan/roomchat-server/internal/config"
	"github.com/vovakirdan/roomchat-server/internal/core"
	"github.com/vovakirdan/roomchat-server/internal/transport/jsonrpc"
)

// NewServer builds the HTTP server with RPC, REST, JSON-RPC and WebSocket routes.
func NewServer(hub *core.Hub, chatService *chat.Service, authService *auth.Service, cfg *config.Config, logger *zerolog.Logger) (*stdhttp.Server, error) {
	rpcServer, err := jsonrpc.NewServer(chatService)
	if err != nil {
		return nil, fmt.Errorf("jsonrpc server: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	apiHandlers := NewAPIHandlers(authService, logger)
	api := router.Group("/api")
	{
		api.POST("/register", apiHandlers.Register)
		api.POST("/login", apiHandlers.Login)
	}

	optionalAuth := OptionalAuth(authService, logger)

	rpcHandlers := NewRPCHandlers(chatService, logger)
	rpcGroup := router.Group("/rpc", optionalAuth)
	{
		rpcGroup.POST("/chat.createRoom", rpcHandlers.CreateRoom)
		rpcGroup.GET("/chat.getRoom", rpcHandlers.GetRoom)
		rpcGroup.POST("/chat.sendMessage", rpcHandlers.SendMessage)
		rpcGroup.GET("/chat.getMessages", rpcHandlers.GetMessages)
		rpcGroup.POST("/chat.deleteMessage", RequireAuth(), rpcHandlers.DeleteMessage)
		rpcGroup.GET("/auth.me", RequireAuth(), rpcHandlers.Me)
	}

	roomHandlers := NewRoomHandlers(chatService, logger)
	rooms := router.Group("/rooms", optionalAuth)
	{
		rooms.POST("", roomHandlers.CreateRoom)
		rooms.GET("", roomHandlers.ListRooms)
	}

	router.POST("/jsonrpc", optionalAuth, gin.WrapH(rpcServer))

	cors := handlers.CORS(
		handlers.AllowedOrigins(cfg.CORSOrigins),
		handlers.AllowedMethods([]string{stdhttp.MethodGet, stdhttp.MethodPost, stdhttp.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", HeaderRequestID}),
	)

	// the socket needs the raw connection, so it stays outside gin and CORS
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(hub, chatService, authService, cfg.MaxMessageBytes, logger))
	mux.Handle("/", cors(router))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}, nil
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
