package chat

import (
	"net/http"

	"pulse_chat_server/internal/dto/respond"
	"pulse_chat_server/internal/infrastructure/metrics"
	"pulse_chat_server/pkg/constants"
	"pulse_chat_server/pkg/util/jwt"
	"pulse_chat_server/pkg/util/snowflake"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Registry 连接注册表，Server 在连接建立/断开时登记
type Registry interface {
	// Admit 登记新连接，返回该用户此前已登记的连接号
	Admit(userUuid, connId, sessionId string) (previous []string, err error)
	// Revoke 注销连接
	Revoke(userUuid, connId string) error
	// SignalReplacement 宽限期后向旧连接发顶替信号
	SignalReplacement(userUuid, newConnId string, oldConnIds []string)
}

// Presence 在线状态钩子
type Presence interface {
	MarkOnline(userUuid string)
	MarkOffline(userUuid string)
}

// FrameHandler 入站帧分发器，由 dispatch 包实现
type FrameHandler interface {
	HandleFrame(conn *UserConn, raw []byte)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server WebSocket 接入层
// 实现 Fanout：本实例直接投递，同时经 Broker 复制给其它实例
type Server struct {
	connMgr    *ConnManager
	broker     Broker
	registry   Registry
	presence   Presence
	handler    FrameHandler
	instanceId int64
}

// NewServer 创建接入层实例
func NewServer(broker Broker, registry Registry, presence Presence) *Server {
	return &Server{
		connMgr:    NewConnManager(),
		broker:     broker,
		registry:   registry,
		presence:   presence,
		instanceId: snowflake.MachineID(),
	}
}

// SetFrameHandler 注入帧分发器
// 分发器依赖各业务 Service，Service 又依赖本 Server 的 Fanout，所以后置注入
func (s *Server) SetFrameHandler(h FrameHandler) {
	s.handler = h
}

// ConnManager 暴露连接表（测试与指标用）
func (s *Server) ConnManager() *ConnManager {
	return s.connMgr
}

// Start 启动 Broker 订阅循环
func (s *Server) Start() {
	s.broker.Subscribe(s.onBrokerData)
	zap.L().Info("chat server started", zap.Int64("instance", s.instanceId))
}

// Stop 关闭全部连接和 Broker
func (s *Server) Stop() {
	s.connMgr.Range(func(c *UserConn) bool {
		c.Close()
		return true
	})
	if err := s.broker.Close(); err != nil {
		zap.L().Error("关闭 broker 失败", zap.Error(err))
	}
}

// Publish 实现 Fanout
// 本实例立即投递，信封带上实例号经 Broker 复制，回流时按实例号去重
func (s *Server) Publish(env *Envelope) error {
	env.Origin = s.instanceId
	s.deliverLocal(env)

	data, err := env.Encode()
	if err != nil {
		return err
	}
	return s.broker.Publish(data)
}

// onBrokerData 收到其它实例（或回流）的信封
func (s *Server) onBrokerData(data []byte) {
	env, err := DecodeEnvelope(data)
	if err != nil {
		zap.L().Error("信封解码失败", zap.Error(err))
		return
	}
	if env.Origin == s.instanceId {
		return
	}
	s.deliverLocal(env)
}

// deliverLocal 把信封投给本实例持有的目标连接
// 顶替信封投递后由服务端直接终结旧连接，收敛不依赖客户端配合
func (s *Server) deliverLocal(env *Envelope) {
	if len(env.OnlyConns) > 0 {
		for _, connId := range env.OnlyConns {
			conn, ok := s.connMgr.Get(connId)
			if !ok {
				continue
			}
			conn.Deliver(env.frameFor(conn.UserUuid))
			if env.Kind == respond.FrameConnectionReplace {
				conn.CloseWith(constants.CloseReplaced, "connection replaced")
				s.logout(conn)
			}
		}
		return
	}

	if len(env.Targets) == 0 {
		s.connMgr.Range(func(conn *UserConn) bool {
			if frame := env.frameFor(conn.UserUuid); len(frame) > 0 {
				conn.Deliver(frame)
			}
			return true
		})
		return
	}

	for _, userUuid := range env.Targets {
		frame := env.frameFor(userUuid)
		if len(frame) == 0 {
			continue
		}
		for _, conn := range s.connMgr.ConnsOf(userUuid) {
			conn.Deliver(frame)
		}
	}
}

// HandleUpgrade 处理 WebSocket 握手
// 先升级再校验令牌，令牌无效用 4003 关闭，升级失败记为握手错误
func (s *Server) HandleUpgrade(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.L().Warn("WebSocket 升级失败", zap.Error(err))
		return
	}

	token := c.Query("token")
	claims, err := jwt.ParseAccessToken(token)
	if err != nil {
		msg := websocket.FormatCloseMessage(constants.CloseInvalidToken, "invalid token")
		_ = conn.WriteMessage(websocket.CloseMessage, msg)
		_ = conn.Close()
		return
	}

	sessionId := c.Query("session_id")
	if sessionId == "" {
		sessionId = uuid.NewString()
	}

	uc := NewUserConn(uuid.NewString(), claims.UserID, sessionId, conn)
	s.login(uc)

	go uc.writeLoop()
	go uc.readLoop(s)
}

// login 登记连接并发布上线副作用
func (s *Server) login(c *UserConn) {
	s.connMgr.Add(c)
	metrics.WsConnections.Inc()

	previous, err := s.registry.Admit(c.UserUuid, c.ConnId, c.SessionId)
	if err != nil {
		zap.L().Error("连接登记失败", zap.String("userUuid", c.UserUuid), zap.Error(err))
	}

	frame, err := respond.MarshalFrame(respond.FrameConnectionEstablished, respond.ConnectionEstablishedFrame{
		ConnectionId: c.ConnId,
		UserUuid:     c.UserUuid,
	})
	if err == nil {
		c.Deliver(frame)
	}

	if len(previous) > 0 {
		s.registry.SignalReplacement(c.UserUuid, c.ConnId, previous)
	}

	s.presence.MarkOnline(c.UserUuid)

	zap.L().Info("连接建立",
		zap.String("connId", c.ConnId),
		zap.String("userUuid", c.UserUuid))
}

// logout 注销连接并发布下线副作用
// 读循环退出和服务端顶替关闭都会走到这里，副作用只生效一次
func (s *Server) logout(c *UserConn) {
	c.logoutOnce.Do(func() {
		c.Close()
		s.connMgr.Remove(c)
		metrics.WsConnections.Dec()

		if err := s.registry.Revoke(c.UserUuid, c.ConnId); err != nil {
			zap.L().Error("连接注销失败", zap.String("userUuid", c.UserUuid), zap.Error(err))
		}

		s.presence.MarkOffline(c.UserUuid)

		zap.L().Info("连接断开",
			zap.String("connId", c.ConnId),
			zap.String("userUuid", c.UserUuid))
	})
}

// handleFrame 入站帧入口
func (s *Server) handleFrame(c *UserConn, raw []byte) {
	if s.handler == nil {
		SendError(c, 1005, "service unavailable")
		return
	}
	s.handler.HandleFrame(c, raw)
}

// SendError 给单条连接回错误帧，连接保持打开
func SendError(c *UserConn, code int, message string) {
	frame, err := respond.MarshalFrame(respond.FrameError, respond.ErrorFrame{
		Code:    code,
		Message: message,
	})
	if err != nil {
		return
	}
	c.Deliver(frame)
}
