// Package notification 实现通知扇出
// 先落库再推送：推送是尽力而为，离线用户上线后靠列表接口补齐
package notification

import (
	"time"

	"pulse_chat_server/internal/dao/mysql/repository"
	"pulse_chat_server/internal/dto/respond"
	"pulse_chat_server/internal/model"
	"pulse_chat_server/internal/service/chat"
	"pulse_chat_server/pkg/util/snowflake"

	"go.uber.org/zap"
)

// Service 通知服务
type Service struct {
	notifications repository.NotificationRepository
	fanout        chat.Fanout
}

// NewService 创建通知服务
func NewService(notifications repository.NotificationRepository, fanout chat.Fanout) *Service {
	return &Service{notifications: notifications, fanout: fanout}
}

// Notify 创建并推送一条通知
// 自己触发给自己的事件直接丢弃；落库失败则整体失败，推送失败只记日志
func (s *Service) Notify(ownerUuid, actorUuid, kind, payload string) {
	if ownerUuid == actorUuid {
		return
	}

	n := &model.Notification{
		Uuid:    snowflake.GenerateID(),
		OwnerId: ownerUuid,
		ActorId: actorUuid,
		Kind:    kind,
		Payload: payload,
	}
	if err := s.notifications.Create(n); err != nil {
		zap.L().Error("通知落库失败",
			zap.String("ownerUuid", ownerUuid),
			zap.String("kind", kind),
			zap.Error(err))
		return
	}

	if s.fanout == nil {
		return
	}
	frame, err := respond.MarshalFrame(respond.FrameNotification, respond.NotificationFrame{
		Uuid:      n.Uuid,
		ActorId:   actorUuid,
		Kind:      kind,
		Payload:   payload,
		CreatedAt: time.Now().Format(time.RFC3339),
	})
	if err != nil {
		return
	}
	env := &chat.Envelope{
		Kind:    respond.FrameNotification,
		Targets: []string{ownerUuid},
		Frame:   frame,
	}
	if err := s.fanout.Publish(env); err != nil {
		zap.L().Warn("通知推送失败", zap.String("ownerUuid", ownerUuid), zap.Error(err))
	}
}

// List 拉取通知列表
func (s *Service) List(ownerUuid string, limit int) ([]respond.NotificationRespond, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	items, err := s.notifications.ListByOwner(ownerUuid, limit)
	if err != nil {
		return nil, err
	}

	out := make([]respond.NotificationRespond, 0, len(items))
	for _, n := range items {
		out = append(out, respond.NotificationRespond{
			Uuid:      n.Uuid,
			ActorId:   n.ActorId,
			Kind:      n.Kind,
			Payload:   n.Payload,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt.Format(time.RFC3339),
		})
	}
	return out, nil
}

// MarkRead 标记通知已读，只允许操作自己的通知
func (s *Service) MarkRead(ownerUuid string, uuids []int64) error {
	if len(uuids) == 0 {
		return nil
	}
	return s.notifications.MarkRead(ownerUuid, uuids)
}
