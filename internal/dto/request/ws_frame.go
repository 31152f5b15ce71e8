// Package request 定义客户端入站的请求结构
package request

import "encoding/json"

// WS 帧类型（客户端 -> 服务端）
const (
	FrameChatMessage  = "chat_message"
	FrameMarkAsRead   = "mark_as_read"
	FrameCallOffer    = "call_offer"
	FrameCallAnswer   = "call_answer"
	FrameIceCandidate = "ice_candidate"
	FrameCallEnded    = "call_ended"
)

// WsFrame WebSocket 入站帧的外层信封
// Data 延迟到按 Type 分发后再解析
type WsFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ChatMessageFrame 发送聊天消息
// TempId 由客户端生成，服务端原样回显给发送者做乐观更新对账
type ChatMessageFrame struct {
	RoomUuid      string `json:"room_uuid"`
	Content       string `json:"content"`
	AttachmentUrl string `json:"attachment_url"`
	TempId        string `json:"temp_id"`
}

// MarkAsReadFrame 将某房间内发给自己的未读消息标记为已读
type MarkAsReadFrame struct {
	RoomUuid string `json:"room_uuid"`
}

// CallOfferFrame 发起通话，携带 SDP offer
type CallOfferFrame struct {
	RoomUuid string `json:"room_uuid"`
	CallKind string `json:"call_kind"`
	Sdp      string `json:"sdp"`
}

// CallAnswerFrame 应答通话
// Accept 为 false 表示拒接
type CallAnswerFrame struct {
	CallId string `json:"call_id"`
	Accept bool   `json:"accept"`
	Sdp    string `json:"sdp"`
}

// IceCandidateFrame 转发 ICE candidate
type IceCandidateFrame struct {
	CallId    string `json:"call_id"`
	Candidate string `json:"candidate"`
}

// CallEndedFrame 挂断通话
type CallEndedFrame struct {
	CallId string `json:"call_id"`
}
