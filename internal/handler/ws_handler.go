package handler

import (
	"net/http"

	"pulse_chat_server/internal/infrastructure/middleware"
	"pulse_chat_server/internal/service/chat"

	"github.com/gin-gonic/gin"
)

// WsHandler WebSocket 接入
// 握手按客户端 IP 限流，令牌校验在升级后由接入层完成
type WsHandler struct {
	server  *chat.Server
	limiter *middleware.RateLimiter
}

func NewWsHandler(server *chat.Server, limiter *middleware.RateLimiter) *WsHandler {
	return &WsHandler{server: server, limiter: limiter}
}

// Connect GET /ws?token=&session_id=
func (h *WsHandler) Connect(c *gin.Context) {
	if h.limiter != nil && !h.limiter.Allow(c.ClientIP()) {
		c.AbortWithStatus(http.StatusTooManyRequests)
		return
	}
	h.server.HandleUpgrade(c)
}
