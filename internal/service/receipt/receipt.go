// Package receipt 实现已读回执
// 一次标记共享同一个 read_at 时间戳，未读数从源表重算而不是递增
package receipt

import (
	"time"

	"pulse_chat_server/internal/dao/mysql/repository"
	"pulse_chat_server/internal/dto/respond"
	"pulse_chat_server/internal/service/chat"
	"pulse_chat_server/pkg/errorx"

	"go.uber.org/zap"
)

// AsyncRunner 与 message 包同型的异步入口
type AsyncRunner interface {
	SubmitTask(action func())
}

// Service 已读回执服务
type Service struct {
	rooms    repository.RoomRepository
	messages repository.MessageRepository
	fanout   chat.Fanout
	async    AsyncRunner
}

// NewService 创建回执服务
func NewService(rooms repository.RoomRepository, messages repository.MessageRepository, fanout chat.Fanout, async AsyncRunner) *Service {
	return &Service{rooms: rooms, messages: messages, fanout: fanout, async: async}
}

// MarkRead 把房间内发给 reader 的未读消息全部置为已读
// 没有未读消息时静默成功，不落库也不广播
func (s *Service) MarkRead(readerUuid, roomUuid string) error {
	ok, err := s.rooms.IsMember(roomUuid, readerUuid)
	if err != nil {
		return err
	}
	if !ok {
		return errorx.ErrForbidden
	}

	ids, err := s.messages.UnreadIds(roomUuid, readerUuid)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	readAt := time.Now()
	if err := s.messages.MarkRead(ids, readAt); err != nil {
		return err
	}

	s.broadcast(roomUuid, readerUuid, ids, readAt)
	s.refreshCachedUnread(roomUuid)
	return nil
}

// broadcast 把回执推给房间全体成员
func (s *Service) broadcast(roomUuid, readerUuid string, ids []int64, readAt time.Time) {
	members, err := s.rooms.MemberIds(roomUuid)
	if err != nil {
		zap.L().Error("查询房间成员失败", zap.String("roomUuid", roomUuid), zap.Error(err))
		return
	}

	frame, err := respond.MarshalFrame(respond.FrameMarkAsRead, respond.MarkAsReadFrame{
		RoomUuid:     roomUuid,
		ReaderId:     readerUuid,
		MessageUuids: ids,
		ReadAt:       readAt.Format(time.RFC3339),
	})
	if err != nil {
		return
	}

	env := &chat.Envelope{
		Kind:    respond.FrameMarkAsRead,
		Targets: members,
		Frame:   frame,
	}
	if err := s.fanout.Publish(env); err != nil {
		zap.L().Error("回执广播失败", zap.String("roomUuid", roomUuid), zap.Error(err))
	}
}

func (s *Service) refreshCachedUnread(roomUuid string) {
	if s.async == nil {
		return
	}
	s.async.SubmitTask(func() {
		count, err := s.messages.CountUnread(roomUuid, "")
		if err != nil {
			return
		}
		if err := s.rooms.UpdateCachedUnread(roomUuid, count); err != nil {
			zap.L().Error("回写未读缓存失败", zap.String("roomUuid", roomUuid), zap.Error(err))
		}
	})
}
