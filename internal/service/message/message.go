// Package message 实现加密消息管线
// 明文只在进程内存在：入库前用房间密钥加密，投递和历史读取时解密
package message

import (
	"time"

	"pulse_chat_server/internal/dao/mysql/repository"
	"pulse_chat_server/internal/dto/request"
	"pulse_chat_server/internal/dto/respond"
	"pulse_chat_server/internal/model"
	"pulse_chat_server/internal/service/chat"
	"pulse_chat_server/pkg/aes"
	"pulse_chat_server/pkg/constants"
	"pulse_chat_server/pkg/errorx"
	"pulse_chat_server/pkg/util/snowflake"

	"go.uber.org/zap"
)

// AsyncRunner 非关键路径任务的异步执行入口
// 生产环境是 Redis worker pool，测试里同步执行
type AsyncRunner interface {
	SubmitTask(action func())
}

// Service 消息服务
type Service struct {
	rooms    repository.RoomRepository
	messages repository.MessageRepository
	fanout   chat.Fanout
	async    AsyncRunner
}

// NewService 创建消息服务
func NewService(rooms repository.RoomRepository, messages repository.MessageRepository, fanout chat.Fanout, async AsyncRunner) *Service {
	return &Service{rooms: rooms, messages: messages, fanout: fanout, async: async}
}

// Send 发送消息
// 加密落库后对全体成员扇出，每个接收者的帧带自己视角的未读数，
// 发送者的帧未读数恒为 0 且回显 temp_id
func (s *Service) Send(senderUuid string, req *request.ChatMessageFrame) error {
	room, err := s.rooms.FindByUuid(req.RoomUuid)
	if err != nil {
		return err
	}
	if err := s.requireMember(req.RoomUuid, senderUuid); err != nil {
		return err
	}
	if req.Content == "" && req.AttachmentUrl == "" {
		return errorx.New(errorx.CodeInvalidParam, "消息内容为空")
	}

	ciphertext, err := aes.Encrypt(req.Content, room.EncryptionKey)
	if err != nil {
		return errorx.Wrap(err, errorx.CodeServerBusy, "消息加密失败")
	}

	now := time.Now()
	msg := &model.Message{
		Uuid:          snowflake.GenerateID(),
		RoomUuid:      req.RoomUuid,
		SenderId:      senderUuid,
		Ciphertext:    ciphertext,
		AttachmentUrl: req.AttachmentUrl,
		SentAt:        now,
	}
	if err := s.messages.Create(msg); err != nil {
		return err
	}
	if err := s.rooms.UpdateLastMessageAt(req.RoomUuid, now); err != nil {
		zap.L().Error("更新房间最后消息时间失败", zap.String("roomUuid", req.RoomUuid), zap.Error(err))
	}

	if err := s.fanoutMessage(room, msg, req.Content, req.TempId); err != nil {
		return err
	}

	s.refreshCachedUnread(req.RoomUuid)
	return nil
}

// Delete 墓碑化一条消息，仅发送者可删
// 重复删除是幂等的成功，不再二次广播
func (s *Service) Delete(userUuid string, messageUuid int64) error {
	msg, err := s.messages.FindByUuid(messageUuid)
	if err != nil {
		return err
	}
	if msg.SenderId != userUuid {
		return errorx.ErrForbidden
	}
	if msg.IsDeleted {
		return nil
	}

	room, err := s.rooms.FindByUuid(msg.RoomUuid)
	if err != nil {
		return err
	}

	// 墓碑也加密存储，读取路径保持单一解码逻辑
	tombstone, err := aes.Encrypt(constants.DELETED_SENTINEL, room.EncryptionKey)
	if err != nil {
		return errorx.Wrap(err, errorx.CodeServerBusy, "墓碑加密失败")
	}
	if err := s.messages.Tombstone(messageUuid, tombstone); err != nil {
		return err
	}

	msg.IsDeleted = true
	msg.AttachmentUrl = ""
	if err := s.fanoutMessage(room, msg, constants.DELETED_SENTINEL, ""); err != nil {
		return err
	}

	s.refreshCachedUnread(msg.RoomUuid)
	return nil
}

// History 拉取房间历史，内容解密后返回
func (s *Service) History(userUuid, roomUuid string, limit int) ([]respond.MessageRespond, error) {
	room, err := s.rooms.FindByUuid(roomUuid)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(roomUuid, userUuid); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	msgs, err := s.messages.FindByRoom(roomUuid, limit)
	if err != nil {
		return nil, err
	}

	out := make([]respond.MessageRespond, 0, len(msgs))
	for _, m := range msgs {
		content, err := aes.Decrypt(m.Ciphertext, room.EncryptionKey)
		if err != nil {
			zap.L().Error("历史消息解密失败", zap.Int64("uuid", m.Uuid), zap.Error(err))
			continue
		}
		item := respond.MessageRespond{
			Uuid:          m.Uuid,
			RoomUuid:      m.RoomUuid,
			SenderId:      m.SenderId,
			Content:       content,
			AttachmentUrl: m.AttachmentUrl,
			SentAt:        m.SentAt.Format(time.RFC3339),
			IsRead:        m.IsRead,
			IsDeleted:     m.IsDeleted,
		}
		if m.ReadAt.Valid {
			item.ReadAt = m.ReadAt.Time.Format(time.RFC3339)
		}
		out = append(out, item)
	}
	return out, nil
}

// fanoutMessage 对房间全体成员构造各自视角的帧并发布
func (s *Service) fanoutMessage(room *model.Room, msg *model.Message, content, tempId string) error {
	members, err := s.rooms.MemberIds(room.Uuid)
	if err != nil {
		return err
	}

	frames := make(map[string][]byte, len(members))
	for _, member := range members {
		payload := respond.ChatMessageFrame{
			Uuid:          msg.Uuid,
			RoomUuid:      msg.RoomUuid,
			SenderId:      msg.SenderId,
			Content:       content,
			AttachmentUrl: msg.AttachmentUrl,
			SentAt:        msg.SentAt.Format(time.RFC3339),
			IsDeleted:     msg.IsDeleted,
		}
		if member == msg.SenderId {
			payload.TempId = tempId
		} else {
			unread, err := s.messages.CountUnread(room.Uuid, member)
			if err != nil {
				// 单个成员的未读查询失败只降级该成员的计数，不阻断整体投递
				zap.L().Error("重算成员未读数失败",
					zap.String("roomUuid", room.Uuid),
					zap.String("member", member),
					zap.Error(err))
			} else {
				payload.UnreadCount = unread
			}
		}
		frame, err := respond.MarshalFrame(respond.FrameChatMessage, payload)
		if err != nil {
			zap.L().Error("序列化消息帧失败",
				zap.String("roomUuid", room.Uuid),
				zap.String("member", member),
				zap.Error(err))
			continue
		}
		frames[member] = frame
	}

	env := &chat.Envelope{
		Kind:    respond.FrameChatMessage,
		Targets: members,
		Frames:  frames,
	}
	return s.fanout.Publish(env)
}

// refreshCachedUnread 异步回写房间级未读缓存
func (s *Service) refreshCachedUnread(roomUuid string) {
	if s.async == nil {
		return
	}
	s.async.SubmitTask(func() {
		count, err := s.messages.CountUnread(roomUuid, "")
		if err != nil {
			zap.L().Error("重算未读缓存失败", zap.String("roomUuid", roomUuid), zap.Error(err))
			return
		}
		if err := s.rooms.UpdateCachedUnread(roomUuid, count); err != nil {
			zap.L().Error("回写未读缓存失败", zap.String("roomUuid", roomUuid), zap.Error(err))
		}
	})
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
