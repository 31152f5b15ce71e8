// Package registry 维护跨实例共享的连接注册表
// 每个用户一个 Redis 哈希，field 是连接号，value 是连接元数据 JSON
// TTL 兜底回收实例崩溃后留下的脏条目
package registry

import (
	"encoding/json"
	"time"

	"pulse_chat_server/internal/dto/respond"
	"pulse_chat_server/internal/service/chat"
	"pulse_chat_server/pkg/constants"
	"pulse_chat_server/pkg/errorx"

	"go.uber.org/zap"
)

// Store 注册表需要的最小键值操作集
// 生产环境由 Redis 实现，测试用内存 map
type Store interface {
	HSet(key, field, value string) error
	HGetAll(key string) (map[string]string, error)
	HDel(key string, fields ...string) error
	Expire(key string, ttl time.Duration) error
}

// CallChecker 判断用户是否在通话中
// 通话中的用户不发顶替信号，避免掐断正在进行的通话
type CallChecker interface {
	HasOngoingForUser(userUuid string) (bool, error)
}

// Entry 注册表条目
type Entry struct {
	ConnectionId  string    `json:"connection_id"`
	UserId        string    `json:"user_id"`
	SessionId     string    `json:"session_id"`
	EstablishedAt time.Time `json:"established_at"`
}

// Service 连接注册表服务
type Service struct {
	store  Store
	calls  CallChecker
	fanout chat.Fanout
	grace  time.Duration
	ttl    time.Duration
}

// NewService 创建注册表服务
// fanout 依赖接入层，接入层又依赖本服务，所以经 SetFanout 后置注入
func NewService(store Store, calls CallChecker, grace time.Duration) *Service {
	return &Service{
		store: store,
		calls: calls,
		grace: grace,
		ttl:   constants.CONN_TTL,
	}
}

// SetFanout 注入扇出入口
func (s *Service) SetFanout(f chat.Fanout) {
	s.fanout = f
}

func connKey(userUuid string) string {
	return "ws:conn:" + userUuid
}

// Admit 登记新连接，返回该用户此前有效且会话不同的连接号
// 同一 session 的重连（刷新页面）不触发顶替
// 哈希里的畸形条目就地清理，不让一条坏数据拖垮整个用户
func (s *Service) Admit(userUuid, connId, sessionId string) ([]string, error) {
	key := connKey(userUuid)

	previous, err := s.ListActive(userUuid)
	if err != nil {
		return nil, err
	}

	entry := Entry{
		ConnectionId:  connId,
		UserId:        userUuid,
		SessionId:     sessionId,
		EstablishedAt: time.Now(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.CodeServerBusy, "marshal registry entry")
	}
	if err := s.store.HSet(key, connId, string(data)); err != nil {
		return nil, err
	}
	if err := s.store.Expire(key, s.ttl); err != nil {
		zap.L().Warn("注册表续期失败", zap.String("userUuid", userUuid), zap.Error(err))
	}

	prevIds := make([]string, 0, len(previous))
	for _, e := range previous {
		if e.SessionId == sessionId {
			continue
		}
		prevIds = append(prevIds, e.ConnectionId)
	}
	return prevIds, nil
}

// Revoke 注销连接
func (s *Service) Revoke(userUuid, connId string) error {
	return s.store.HDel(connKey(userUuid), connId)
}

// ListActive 列出用户当前登记的连接
// 解析失败的条目删除并跳过
func (s *Service) ListActive(userUuid string) ([]Entry, error) {
	key := connKey(userUuid)
	fields, err := s.store.HGetAll(key)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(fields))
	var malformed []string
	for field, value := range fields {
		var e Entry
		if err := json.Unmarshal([]byte(value), &e); err != nil || e.ConnectionId == "" {
			malformed = append(malformed, field)
			continue
		}
		entries = append(entries, e)
	}

	if len(malformed) > 0 {
		zap.L().Warn("清理畸形注册表条目",
			zap.String("userUuid", userUuid),
			zap.Int("count", len(malformed)))
		if err := s.store.HDel(key, malformed...); err != nil {
			zap.L().Error("清理注册表失败", zap.String("userUuid", userUuid), zap.Error(err))
		}
	}
	return entries, nil
}

// IsOnline 注册表里有有效条目即视为在线
func (s *Service) IsOnline(userUuid string) (bool, error) {
	entries, err := s.ListActive(userUuid)
	if err != nil {
		return false, err
	}
	return len(entries) > 0, nil
}

// SignalReplacement 宽限期后向旧连接发顶替信号
// 用户在通话中则跳过，信号只是提示，旧连接不强制关闭
func (s *Service) SignalReplacement(userUuid, newConnId string, oldConnIds []string) {
	if s.fanout == nil || len(oldConnIds) == 0 {
		return
	}

	go func() {
		time.Sleep(s.grace)

		if s.calls != nil {
			ongoing, err := s.calls.HasOngoingForUser(userUuid)
			if err != nil {
				zap.L().Error("查询通话状态失败", zap.String("userUuid", userUuid), zap.Error(err))
			} else if ongoing {
				zap.L().Debug("用户在通话中，跳过顶替信号", zap.String("userUuid", userUuid))
				return
			}
		}

		frame, err := respond.MarshalFrame(respond.FrameConnectionReplace, respond.ConnectionReplaceFrame{
			NewConnectionId: newConnId,
		})
		if err != nil {
			return
		}
		env := &chat.Envelope{
			Kind:      respond.FrameConnectionReplace,
			Targets:   []string{userUuid},
			OnlyConns: oldConnIds,
			Frame:     frame,
		}
		if err := s.fanout.Publish(env); err != nil {
			zap.L().Error("顶替信号发布失败", zap.String("userUuid", userUuid), zap.Error(err))
		}
	}()
}
