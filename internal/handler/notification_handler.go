package handler

import (
	"strconv"

	"pulse_chat_server/internal/dto/request"
	"pulse_chat_server/internal/service/notification"

	"github.com/gin-gonic/gin"
)

// NotificationHandler 通知列表与已读
type NotificationHandler struct {
	notifications *notification.Service
}

func NewNotificationHandler(notifications *notification.Service) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List GET /api/notification/list?limit=
func (h *NotificationHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	items, err := h.notifications.List(currentUser(c), limit)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items)
}

// MarkRead POST /api/notification/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	var req request.MarkNotificationReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		FailParam(c, translateErr(err))
		return
	}
	if err := h.notifications.MarkRead(currentUser(c), []int64{req.Uuid}); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, nil)
}
