package handler

import (
	"io"

	"pulse_chat_server/internal/dto/request"
	"pulse_chat_server/internal/infrastructure/blob"
	"pulse_chat_server/internal/service/message"
	"pulse_chat_server/internal/service/receipt"
	"pulse_chat_server/pkg/constants"

	"github.com/gin-gonic/gin"
)

// MessageHandler 消息相关的 HTTP 接口
// 发送和已读有 WebSocket 主通道，这里是非 WS 客户端的回退入口
type MessageHandler struct {
	messages *message.Service
	receipts *receipt.Service
	uploader blob.Uploader
}

func NewMessageHandler(messages *message.Service, receipts *receipt.Service, uploader blob.Uploader) *MessageHandler {
	return &MessageHandler{messages: messages, receipts: receipts, uploader: uploader}
}

// Send POST /api/message/send
// 与 WS chat_message 帧等价，投递仍经 WebSocket 扇出
func (h *MessageHandler) Send(c *gin.Context) {
	var req request.ChatMessageFrame
	if err := c.ShouldBindJSON(&req); err != nil {
		FailParam(c, translateErr(err))
		return
	}
	if err := h.messages.Send(currentUser(c), &req); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, nil)
}

// MarkRead POST /api/message/read
func (h *MessageHandler) MarkRead(c *gin.Context) {
	var req request.MarkAsReadFrame
	if err := c.ShouldBindJSON(&req); err != nil {
		FailParam(c, translateErr(err))
		return
	}
	if err := h.receipts.MarkRead(currentUser(c), req.RoomUuid); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, nil)
}

// History GET /api/message/history?room_uuid=&limit=
func (h *MessageHandler) History(c *gin.Context) {
	var req request.HistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		FailParam(c, translateErr(err))
		return
	}
	msgs, err := h.messages.History(currentUser(c), req.RoomUuid, req.Limit)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, msgs)
}

// Delete POST /api/message/delete
// 删除走 HTTP，墓碑帧仍经 WebSocket 广播给房间成员
func (h *MessageHandler) Delete(c *gin.Context) {
	var req request.DeleteMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		FailParam(c, translateErr(err))
		return
	}
	if err := h.messages.Delete(currentUser(c), req.MessageUuid); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, nil)
}

// Upload POST /api/message/upload
// 附件先上传拿 URL，再在 chat_message 帧里引用
func (h *MessageHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		FailParam(c, "缺少上传文件")
		return
	}
	if file.Size > constants.FILE_MAX_SIZE*1024 {
		FailParam(c, "文件超出大小限制")
		return
	}

	f, err := file.Open()
	if err != nil {
		Fail(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		Fail(c, err)
		return
	}

	url, err := h.uploader.Upload(data, file.Filename)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"url": url})
}
