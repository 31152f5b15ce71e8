// Package dispatch 把入站 WebSocket 帧路由到各业务服务
// 任何帧级失败只给出错的连接回错误帧，连接保持打开
package dispatch

import (
	"encoding/json"

	"pulse_chat_server/internal/dto/request"
	"pulse_chat_server/internal/service/call"
	"pulse_chat_server/internal/service/chat"
	"pulse_chat_server/internal/service/message"
	"pulse_chat_server/internal/service/receipt"
	"pulse_chat_server/pkg/errorx"

	"go.uber.org/zap"
)

// Dispatcher 实现 chat.FrameHandler
type Dispatcher struct {
	messages *message.Service
	receipts *receipt.Service
	calls    *call.Service
}

// NewDispatcher 创建帧分发器
func NewDispatcher(messages *message.Service, receipts *receipt.Service, calls *call.Service) *Dispatcher {
	return &Dispatcher{messages: messages, receipts: receipts, calls: calls}
}

// HandleFrame 解析外层信封并按类型分发
func (d *Dispatcher) HandleFrame(conn *chat.UserConn, raw []byte) {
	var frame request.WsFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		chat.SendError(conn, errorx.CodeInvalidParam, "malformed frame")
		return
	}

	var err error
	switch frame.Type {
	case request.FrameChatMessage:
		var req request.ChatMessageFrame
		if err = decode(frame.Data, &req); err == nil {
			err = d.messages.Send(conn.UserUuid, &req)
		}
	case request.FrameMarkAsRead:
		var req request.MarkAsReadFrame
		if err = decode(frame.Data, &req); err == nil {
			err = d.receipts.MarkRead(conn.UserUuid, req.RoomUuid)
		}
	case request.FrameCallOffer:
		var req request.CallOfferFrame
		if err = decode(frame.Data, &req); err == nil {
			err = d.calls.Start(conn.UserUuid, &req)
		}
	case request.FrameCallAnswer:
		var req request.CallAnswerFrame
		if err = decode(frame.Data, &req); err == nil {
			err = d.calls.Answer(conn.UserUuid, &req)
		}
	case request.FrameIceCandidate:
		var req request.IceCandidateFrame
		if err = decode(frame.Data, &req); err == nil {
			err = d.calls.RelayICE(conn.UserUuid, &req)
		}
	case request.FrameCallEnded:
		var req request.CallEndedFrame
		if err = decode(frame.Data, &req); err == nil {
			err = d.calls.End(conn.UserUuid, &req)
		}
	default:
		chat.SendError(conn, errorx.CodeInvalidParam, "unknown frame type: "+frame.Type)
		return
	}

	if err != nil {
		zap.L().Debug("帧处理失败",
			zap.String("type", frame.Type),
			zap.String("userUuid", conn.UserUuid),
			zap.Error(err))
		chat.SendError(conn, errorx.GetCode(err), err.Error())
	}
}

func decode(data json.RawMessage, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return errorx.Wrap(err, errorx.CodeInvalidParam, "malformed frame payload")
	}
	return nil
}
