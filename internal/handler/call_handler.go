package handler

import (
	"strconv"

	"pulse_chat_server/internal/service/call"

	"github.com/gin-gonic/gin"
)

// CallHandler 通话记录查询
// 信令本身走 WebSocket，这里只有历史
type CallHandler struct {
	calls *call.Service
}

func NewCallHandler(calls *call.Service) *CallHandler {
	return &CallHandler{calls: calls}
}

// History GET /api/call/history?limit=
func (h *CallHandler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	records, err := h.calls.History(currentUser(c), limit)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, records)
}
