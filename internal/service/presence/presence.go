// Package presence 从连接注册表推导用户在线状态
// 状态本身不独立存储，注册表有条目即在线
package presence

import (
	"time"

	"pulse_chat_server/internal/dao/mysql/repository"
	"pulse_chat_server/internal/dto/respond"
	"pulse_chat_server/internal/service/chat"

	"go.uber.org/zap"
)

// OnlineChecker 注册表在线查询
type OnlineChecker interface {
	IsOnline(userUuid string) (bool, error)
}

// Service 在线状态服务
type Service struct {
	users        repository.UserRepository
	rooms        repository.RoomRepository
	checker      OnlineChecker
	fanout       chat.Fanout
	offlineDelay time.Duration
}

// NewService 创建在线状态服务
func NewService(users repository.UserRepository, rooms repository.RoomRepository, checker OnlineChecker, offlineDelay time.Duration) *Service {
	return &Service{
		users:        users,
		rooms:        rooms,
		checker:      checker,
		offlineDelay: offlineDelay,
	}
}

// SetFanout 注入扇出入口
func (s *Service) SetFanout(f chat.Fanout) {
	s.fanout = f
}

// MarkOnline 连接建立后调用
// 重复上线（多端）也照常广播，客户端按幂等处理
func (s *Service) MarkOnline(userUuid string) {
	if err := s.users.UpdatePresence(userUuid, true, time.Time{}); err != nil {
		zap.L().Error("写入在线状态失败", zap.String("userUuid", userUuid), zap.Error(err))
	}
	s.broadcastStatus(userUuid, true, time.Time{})
}

// MarkOffline 连接断开后调用
// 延迟复查注册表，吸收刷新页面造成的断开又立刻重连
func (s *Service) MarkOffline(userUuid string) {
	go func() {
		time.Sleep(s.offlineDelay)

		online, err := s.checker.IsOnline(userUuid)
		if err != nil {
			zap.L().Error("离线复查失败", zap.String("userUuid", userUuid), zap.Error(err))
			return
		}
		if online {
			return
		}

		lastSeen := time.Now()
		if err := s.users.UpdatePresence(userUuid, false, lastSeen); err != nil {
			zap.L().Error("写入离线状态失败", zap.String("userUuid", userUuid), zap.Error(err))
		}
		s.broadcastStatus(userUuid, false, lastSeen)
	}()
}

// broadcastStatus 把状态变更推给同房成员
func (s *Service) broadcastStatus(userUuid string, online bool, lastSeen time.Time) {
	if s.fanout == nil {
		return
	}

	peers, err := s.rooms.PeerIds(userUuid)
	if err != nil {
		zap.L().Error("查询同房成员失败", zap.String("userUuid", userUuid), zap.Error(err))
		return
	}
	if len(peers) == 0 {
		return
	}

	payload := respond.UserStatusFrame{UserUuid: userUuid, Online: online}
	if !online {
		payload.LastSeen = lastSeen.Format(time.RFC3339)
	}
	frame, err := respond.MarshalFrame(respond.FrameUserStatus, payload)
	if err != nil {
		return
	}

	env := &chat.Envelope{
		Kind:    respond.FrameUserStatus,
		Targets: peers,
		Frame:   frame,
	}
	if err := s.fanout.Publish(env); err != nil {
		zap.L().Error("在线状态广播失败", zap.String("userUuid", userUuid), zap.Error(err))
	}
}
