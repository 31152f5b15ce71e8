// Package room 管理单聊/群聊房间与成员关系
// 每个房间创建时生成独立的 AES-256 密钥，消息加密都用它
package room

import (
	"time"

	"pulse_chat_server/internal/dao/mysql/repository"
	"pulse_chat_server/internal/dto/respond"
	"pulse_chat_server/internal/model"
	"pulse_chat_server/pkg/aes"
	"pulse_chat_server/pkg/constants"
	"pulse_chat_server/pkg/errorx"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notifier 通知入口，由 notification 服务实现
type Notifier interface {
	Notify(ownerUuid, actorUuid, kind, payload string)
}

// Service 房间服务
type Service struct {
	rooms    repository.RoomRepository
	users    repository.UserRepository
	messages repository.MessageRepository
	notifier Notifier
}

// NewService 创建房间服务
func NewService(rooms repository.RoomRepository, users repository.UserRepository, messages repository.MessageRepository) *Service {
	return &Service{rooms: rooms, users: users, messages: messages}
}

// SetNotifier 注入通知入口
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// CreateDirect 发起与某用户的单聊
// 幂等：同一对用户不论谁发起，始终复用同一个房间
func (s *Service) CreateDirect(userUuid, peerUuid string) (*model.Room, error) {
	if userUuid == peerUuid {
		return nil, errorx.New(errorx.CodeInvalidParam, "不能与自己建立单聊")
	}
	if _, err := s.users.FindByUuid(peerUuid); err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.New(errorx.CodeUserNotExist, "对方用户不存在")
		}
		return nil, err
	}

	existing, err := s.rooms.FindDirectByMembers(userUuid, peerUuid)
	if err == nil {
		return existing, nil
	}
	if !errorx.IsNotFound(err) {
		return nil, err
	}

	key, err := aes.NewKey()
	if err != nil {
		return nil, errorx.Wrap(err, errorx.CodeServerBusy, "生成房间密钥")
	}
	room := &model.Room{
		Uuid:          uuid.NewString(),
		IsGroup:       false,
		OwnerId:       userUuid,
		EncryptionKey: key,
	}
	if err := s.rooms.Create(room, []string{userUuid, peerUuid}); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.Notify(peerUuid, userUuid, constants.NotifyNewChat, room.Uuid)
	}
	zap.L().Info("单聊房间创建", zap.String("roomUuid", room.Uuid))
	return room, nil
}

// CreateGroup 创建群聊，创建者自动成为群主和成员
func (s *Service) CreateGroup(ownerUuid, name string, memberUuids []string) (*model.Room, error) {
	members := map[string]struct{}{ownerUuid: {}}
	for _, m := range memberUuids {
		members[m] = struct{}{}
	}
	if len(members) < 2 {
		return nil, errorx.New(errorx.CodeInvalidParam, "群聊至少需要两名成员")
	}

	all := make([]string, 0, len(members))
	for m := range members {
		if _, err := s.users.FindByUuid(m); err != nil {
			if errorx.IsNotFound(err) {
				return nil, errorx.New(errorx.CodeUserNotExist, "成员不存在")
			}
			return nil, err
		}
		all = append(all, m)
	}

	key, err := aes.NewKey()
	if err != nil {
		return nil, errorx.Wrap(err, errorx.CodeServerBusy, "生成房间密钥")
	}
	room := &model.Room{
		Uuid:          uuid.NewString(),
		IsGroup:       true,
		OwnerId:       ownerUuid,
		Name:          name,
		EncryptionKey: key,
	}
	if err := s.rooms.Create(room, all); err != nil {
		return nil, err
	}

	for _, m := range all {
		if m != ownerUuid && s.notifier != nil {
			s.notifier.Notify(m, ownerUuid, constants.NotifyNewChat, room.Uuid)
		}
	}
	zap.L().Info("群聊房间创建", zap.String("roomUuid", room.Uuid), zap.Int("members", len(all)))
	return room, nil
}

// AddMember 拉人进群，操作者必须是群成员
func (s *Service) AddMember(operatorUuid, roomUuid, userUuid string) error {
	room, err := s.rooms.FindByUuid(roomUuid)
	if err != nil {
		return err
	}
	if !room.IsGroup {
		return errorx.New(errorx.CodeInvalidParam, "单聊房间不支持成员变更")
	}
	if err := s.requireMember(roomUuid, operatorUuid); err != nil {
		return err
	}
	if _, err := s.users.FindByUuid(userUuid); err != nil {
		if errorx.IsNotFound(err) {
			return errorx.New(errorx.CodeUserNotExist, "用户不存在")
		}
		return err
	}

	already, err := s.rooms.IsMember(roomUuid, userUuid)
	if err != nil {
		return err
	}
	if already {
		return nil
	}
	if err := s.rooms.AddMember(roomUuid, userUuid); err != nil {
		return err
	}
	if s.notifier != nil {
		s.notifier.Notify(userUuid, operatorUuid, constants.NotifyNewChat, roomUuid)
	}
	return nil
}

// RemoveMember 移除成员
// 群主只能由群主移除他人；群主本人不可被移除；成员数不降到 2 以下
func (s *Service) RemoveMember(operatorUuid, roomUuid, userUuid string) error {
	room, err := s.rooms.FindByUuid(roomUuid)
	if err != nil {
		return err
	}
	if !room.IsGroup {
		return errorx.New(errorx.CodeInvalidParam, "单聊房间不支持成员变更")
	}
	if userUuid == room.OwnerId {
		return errorx.New(errorx.CodeForbidden, "群主不可被移除")
	}
	if operatorUuid != room.OwnerId && operatorUuid != userUuid {
		return errorx.New(errorx.CodeForbidden, "只有群主可以移除其他成员")
	}

	count, err := s.rooms.MemberCount(roomUuid)
	if err != nil {
		return err
	}
	if count <= 2 {
		return errorx.New(errorx.CodeInvalidParam, "群聊成员不能少于两人")
	}
	return s.rooms.RemoveMember(roomUuid, userUuid)
}

// RenameGroup 重命名群聊，仅群主可操作
func (s *Service) RenameGroup(operatorUuid, roomUuid, name string) error {
	room, err := s.rooms.FindByUuid(roomUuid)
	if err != nil {
		return err
	}
	if !room.IsGroup {
		return errorx.New(errorx.CodeInvalidParam, "单聊房间不支持重命名")
	}
	if operatorUuid != room.OwnerId {
		return errorx.New(errorx.CodeForbidden, "只有群主可以重命名")
	}
	return s.rooms.Rename(roomUuid, name)
}

// GetMembers 房间成员列表，调用者必须在房间内
func (s *Service) GetMembers(callerUuid, roomUuid string) ([]respond.MemberRespond, error) {
	if err := s.requireMember(roomUuid, callerUuid); err != nil {
		return nil, err
	}
	ids, err := s.rooms.MemberIds(roomUuid)
	if err != nil {
		return nil, err
	}

	out := make([]respond.MemberRespond, 0, len(ids))
	for _, id := range ids {
		user, err := s.users.FindByUuid(id)
		if err != nil {
			if errorx.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		out = append(out, respond.MemberRespond{
			UserUuid: user.Uuid,
			Username: user.Username,
			Avatar:   user.Avatar,
			IsOnline: user.IsOnline,
		})
	}
	return out, nil
}

// ListRooms 用户的房间列表，未读数按接收者视角重算
func (s *Service) ListRooms(userUuid string) ([]respond.RoomRespond, error) {
	rooms, err := s.rooms.RoomsOf(userUuid)
	if err != nil {
		return nil, err
	}

	out := make([]respond.RoomRespond, 0, len(rooms))
	for _, r := range rooms {
		unread, err := s.messages.CountUnread(r.Uuid, userUuid)
		if err != nil {
			return nil, err
		}
		item := respond.RoomRespond{
			Uuid:        r.Uuid,
			IsGroup:     r.IsGroup,
			OwnerId:     r.OwnerId,
			Name:        r.Name,
			UnreadCount: unread,
		}
		if r.LastMessageAt.Valid {
			item.LastMessageAt = r.LastMessageAt.Time.Format(time.RFC3339)
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *Service) requireMember(roomUuid, userUuid string) error {
	ok, err := s.rooms.IsMember(roomUuid, userUuid)
	if err != nil {
		return err
	}
	if !ok {
		return errorx.ErrForbidden
	}
	return nil
}
