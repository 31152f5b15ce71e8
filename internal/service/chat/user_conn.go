package chat

import (
	"sync"
	"time"

	"pulse_chat_server/internal/infrastructure/metrics"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 64 * 1024
)

// UserConn 一条已认证的 WebSocket 连接
// 读写各一个 goroutine，出站帧经 SendTo 通道串行写出
type UserConn struct {
	ConnId    string
	UserUuid  string
	SessionId string

	conn   *websocket.Conn
	SendTo chan []byte

	closeOnce  sync.Once
	logoutOnce sync.Once
	closed     chan struct{}
}

// NewUserConn 创建连接对象
func NewUserConn(connId, userUuid, sessionId string, conn *websocket.Conn) *UserConn {
	return &UserConn{
		ConnId:    connId,
		UserUuid:  userUuid,
		SessionId: sessionId,
		conn:      conn,
		SendTo:    make(chan []byte, 100),
		closed:    make(chan struct{}),
	}
}

// Deliver 投递一帧，连接已关或通道满则丢弃
// 实时帧宁可丢也不能阻塞扇出循环
func (c *UserConn) Deliver(frame []byte) {
	select {
	case <-c.closed:
	case c.SendTo <- frame:
	default:
		zap.L().Warn("连接发送缓冲已满，丢弃一帧",
			zap.String("connId", c.ConnId),
			zap.String("userUuid", c.UserUuid))
		metrics.FanoutFailed.Inc()
	}
}

// CloseWith 以指定状态码关闭连接
func (c *UserConn) CloseWith(code int, reason string) {
	c.closeOnce.Do(func() {
		close(c.closed)
		if c.conn == nil {
			return
		}
		msg := websocket.FormatCloseMessage(code, reason)
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		_ = c.conn.Close()
	})
}

// Close 正常关闭
func (c *UserConn) Close() {
	c.CloseWith(websocket.CloseNormalClosure, "")
}

// readLoop 读循环，收到的帧交给 server 分发
// 退出即触发连接注销
func (c *UserConn) readLoop(s *Server) {
	defer s.logout(c)

	c.conn.SetReadLimit(maxMsgSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Debug("连接异常断开", zap.String("connId", c.ConnId), zap.Error(err))
			}
			return
		}
		metrics.WsMessagesTotal.Inc()
		s.handleFrame(c, raw)
	}
}

// writeLoop 写循环，串行写出并维持心跳
func (c *UserConn) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case frame, ok := <-c.SendTo:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
			metrics.FanoutDelivered.Inc()
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closed:
			return
		}
	}
}
