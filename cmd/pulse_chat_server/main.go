package main

import (
	"time"

	"pulse_chat_server/internal/config"
	dao "pulse_chat_server/internal/dao/mysql"
	myredis "pulse_chat_server/internal/dao/redis"
	"pulse_chat_server/internal/handler"
	"pulse_chat_server/internal/https_server"
	"pulse_chat_server/internal/infrastructure/blob"
	"pulse_chat_server/internal/infrastructure/logger"
	"pulse_chat_server/internal/infrastructure/middleware"
	"pulse_chat_server/internal/router"
	"pulse_chat_server/internal/service"
	"pulse_chat_server/pkg/util/jwt"
	"pulse_chat_server/pkg/util/snowflake"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	conf := config.GetConfig()

	if err := logger.Init(&conf.LogConfig, gin.ReleaseMode); err != nil {
		panic(err)
	}
	defer func() { _ = zap.L().Sync() }()

	snowflake.Init(conf.SnowflakeConfig.MachineID)
	jwt.Init(conf.JWTConfig.Secret, conf.JWTConfig.AccessTokenExpiry, conf.JWTConfig.RefreshTokenExpiry)

	dao.Init()
	myredis.Init()

	provider := service.NewProvider(dao.Repos)

	if err := handler.InitTrans("zh"); err != nil {
		zap.L().Fatal("校验翻译器初始化失败", zap.Error(err))
	}

	uploader, err := blob.NewLocalStore(conf.StaticSrcConfig.StaticFilePath)
	if err != nil {
		zap.L().Fatal("附件存储初始化失败", zap.Error(err))
	}

	admitPerMin := conf.WsConfig.AdmitRatePerMin
	if admitPerMin <= 0 {
		admitPerMin = 30
	}
	wsLimiter := middleware.NewRateLimiter(rate.Limit(float64(admitPerMin)/60.0), admitPerMin, 10*time.Minute)

	engine := router.NewRouter(&router.Handlers{
		Auth:         handler.NewAuthHandler(provider.Users),
		Room:         handler.NewRoomHandler(provider.Rooms),
		Message:      handler.NewMessageHandler(provider.Messages, provider.Receipts, uploader),
		Call:         handler.NewCallHandler(provider.Calls),
		Notification: handler.NewNotificationHandler(provider.Notifications),
		Ws:           handler.NewWsHandler(provider.Server, wsLimiter),
	})

	https_server.Run(engine, func() {
		wsLimiter.Stop()
		provider.Server.Stop()
	})
}
