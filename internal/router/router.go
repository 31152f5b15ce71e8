// Package router 组装 gin 引擎与路由
package router

import (
	"pulse_chat_server/internal/config"
	"pulse_chat_server/internal/handler"
	"pulse_chat_server/internal/infrastructure/logger"
	"pulse_chat_server/internal/infrastructure/metrics"
	"pulse_chat_server/internal/infrastructure/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers 路由需要的全部 handler
type Handlers struct {
	Auth         *handler.AuthHandler
	Room         *handler.RoomHandler
	Message      *handler.MessageHandler
	Call         *handler.CallHandler
	Notification *handler.NotificationHandler
	Ws           *handler.WsHandler
}

// NewRouter 创建并装配 gin 引擎
func NewRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(logger.GinLogger(), logger.GinRecovery(true))
	r.Use(metrics.GinMiddleware())

	conf := config.GetConfig()
	if conf.MainConfig.CertFile != "" && conf.MainConfig.KeyFile != "" {
		r.Use(middleware.TlsHandler(conf.MainConfig.Host, conf.MainConfig.Port))
	}

	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
	}))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if conf.StaticSrcConfig.StaticFilePath != "" {
		r.Static("/static/file", conf.StaticSrcConfig.StaticFilePath)
	}
	if conf.StaticSrcConfig.StaticAvatarPath != "" {
		r.Static("/static/avatar", conf.StaticSrcConfig.StaticAvatarPath)
	}

	registerAuthRoutes(r, h)
	registerApiRoutes(r, h)
	registerWsRoutes(r, h)
	return r
}

// registerAuthRoutes 无需认证的接口
func registerAuthRoutes(r *gin.Engine, h *Handlers) {
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
	}
}

// registerApiRoutes 需要 Access Token 的接口
func registerApiRoutes(r *gin.Engine, h *Handlers) {
	api := r.Group("/api", middleware.JWTAuth())
	{
		room := api.Group("/room")
		{
			room.POST("/direct", h.Room.StartChat)
			room.POST("/group", h.Room.CreateGroup)
			room.POST("/member/add", h.Room.AddMember)
			room.POST("/member/remove", h.Room.RemoveMember)
			room.POST("/rename", h.Room.Rename)
			room.GET("/members", h.Room.Members)
			room.GET("/list", h.Room.List)
		}

		message := api.Group("/message")
		{
			message.GET("/history", h.Message.History)
			message.POST("/send", h.Message.Send)
			message.POST("/read", h.Message.MarkRead)
			message.POST("/delete", h.Message.Delete)
			message.POST("/upload", h.Message.Upload)
		}

		call := api.Group("/call")
		{
			call.GET("/history", h.Call.History)
		}

		notification := api.Group("/notification")
		{
			notification.GET("/list", h.Notification.List)
			notification.POST("/read", h.Notification.MarkRead)
		}
	}
}

// registerWsRoutes WebSocket 接入点，令牌在升级后校验
func registerWsRoutes(r *gin.Engine, h *Handlers) {
	r.GET("/ws", h.Ws.Connect)
}
