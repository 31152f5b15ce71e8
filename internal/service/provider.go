// Package service 聚合各业务服务并完成装配
package service

import (
	"time"

	"pulse_chat_server/internal/config"
	"pulse_chat_server/internal/dao/mysql/repository"
	myredis "pulse_chat_server/internal/dao/redis"
	"pulse_chat_server/internal/service/call"
	"pulse_chat_server/internal/service/chat"
	"pulse_chat_server/internal/service/dispatch"
	"pulse_chat_server/internal/service/message"
	"pulse_chat_server/internal/service/notification"
	"pulse_chat_server/internal/service/presence"
	"pulse_chat_server/internal/service/receipt"
	"pulse_chat_server/internal/service/registry"
	"pulse_chat_server/internal/service/room"
	"pulse_chat_server/internal/service/user"
)

// Provider 全部业务服务的装配结果
type Provider struct {
	Server        *chat.Server
	Registry      *registry.Service
	Presence      *presence.Service
	Users         *user.Service
	Rooms         *room.Service
	Messages      *message.Service
	Receipts      *receipt.Service
	Calls         *call.Service
	Notifications *notification.Service
}

// NewProvider 按依赖顺序装配服务
// 接入层与注册表/在线状态互相依赖，扇出入口后置注入
func NewProvider(repos *repository.Repositories) *Provider {
	conf := config.GetConfig()
	kv := myredis.NewKVStore()

	registrySvc := registry.NewService(kv, repos.Call, conf.WsConfig.ReplaceGrace())
	presenceSvc := presence.NewService(repos.User, repos.Room, registrySvc, conf.WsConfig.OfflineDelay())

	var broker chat.Broker
	if conf.KafkaConfig.MessageMode == "kafka" {
		broker = chat.NewKafkaBroker()
	} else {
		broker = chat.NewChannelBroker()
	}
	server := chat.NewServer(broker, registrySvc, presenceSvc)
	registrySvc.SetFanout(server)
	presenceSvc.SetFanout(server)

	notifySvc := notification.NewService(repos.Notification, server)
	async := myredis.NewAsyncCacheService()

	messageSvc := message.NewService(repos.Room, repos.Message, server, async)
	receiptSvc := receipt.NewService(repos.Room, repos.Message, server, async)
	callSvc := call.NewService(repos.Room, repos.Call, server, registrySvc, kv, notifySvc, conf.WsConfig.OfferDedupWindow())

	roomSvc := room.NewService(repos.Room, repos.User, repos.Message)
	roomSvc.SetNotifier(notifySvc)

	refreshTTL := time.Duration(conf.JWTConfig.RefreshTokenExpiry) * time.Hour
	userSvc := user.NewService(repos.User, kv, refreshTTL)

	server.SetFrameHandler(dispatch.NewDispatcher(messageSvc, receiptSvc, callSvc))
	server.Start()

	return &Provider{
		Server:        server,
		Registry:      registrySvc,
		Presence:      presenceSvc,
		Users:         userSvc,
		Rooms:         roomSvc,
		Messages:      messageSvc,
		Receipts:      receiptSvc,
		Calls:         callSvc,
		Notifications: notifySvc,
	}
}
