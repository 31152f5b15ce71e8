// Package respond 定义服务端出站的响应结构
package respond

import "encoding/json"

// WS 帧类型（服务端 -> 客户端）
const (
	FrameConnectionEstablished = "connection_established"
	FrameConnectionReplace     = "connection_replace"
	FrameChatMessage           = "chat_message"
	FrameMarkAsRead            = "mark_as_read"
	FrameUserStatus            = "user_status"
	FrameCallOffer             = "call_offer"
	FrameCallAnswer            = "call_answer"
	FrameIceCandidate          = "ice_candidate"
	FrameCallEnded             = "call_ended"
	FrameCallHistoryUpdate     = "call_history_update"
	FrameNotification          = "notification"
	FrameError                 = "error"
)

// WsFrame WebSocket 出站帧的外层信封
type WsFrame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// MarshalFrame 打包一个出站帧为 JSON 字节
func MarshalFrame(frameType string, data interface{}) ([]byte, error) {
	return json.Marshal(WsFrame{Type: frameType, Data: data})
}

// ConnectionEstablishedFrame 连接握手成功后的首帧
type ConnectionEstablishedFrame struct {
	ConnectionId string `json:"connection_id"`
	UserUuid     string `json:"user_uuid"`
}

// ConnectionReplaceFrame 通知旧连接已被同账号新连接取代
type ConnectionReplaceFrame struct {
	NewConnectionId string `json:"new_connection_id"`
}

// ChatMessageFrame 投递聊天消息
// UnreadCount 是收件人视角的房间未读数，发送者收到的恒为 0
// TempId 仅在回显给发送者时非空
type ChatMessageFrame struct {
	Uuid          int64  `json:"uuid"`
	RoomUuid      string `json:"room_uuid"`
	SenderId      string `json:"sender_id"`
	Content       string `json:"content"`
	AttachmentUrl string `json:"attachment_url,omitempty"`
	SentAt        string `json:"sent_at"`
	IsDeleted     bool   `json:"is_deleted"`
	UnreadCount   int64  `json:"unread_count"`
	TempId        string `json:"temp_id,omitempty"`
}

// MarkAsReadFrame 已读回执广播
type MarkAsReadFrame struct {
	RoomUuid     string  `json:"room_uuid"`
	ReaderId     string  `json:"reader_id"`
	MessageUuids []int64 `json:"message_uuids"`
	ReadAt       string  `json:"read_at"`
}

// UserStatusFrame 用户在线状态变更
type UserStatusFrame struct {
	UserUuid string `json:"user_uuid"`
	Online   bool   `json:"online"`
	LastSeen string `json:"last_seen,omitempty"`
}

// CallOfferFrame 转发通话邀请
type CallOfferFrame struct {
	CallId   string `json:"call_id"`
	RoomUuid string `json:"room_uuid"`
	CallerId string `json:"caller_id"`
	CallKind string `json:"call_kind"`
	Sdp      string `json:"sdp"`
}

// CallAnswerFrame 转发通话应答
type CallAnswerFrame struct {
	CallId     string `json:"call_id"`
	AnswererId string `json:"answerer_id"`
	Accept     bool   `json:"accept"`
	Sdp        string `json:"sdp,omitempty"`
}

// IceCandidateFrame 转发 ICE candidate
type IceCandidateFrame struct {
	CallId    string `json:"call_id"`
	SenderId  string `json:"sender_id"`
	Candidate string `json:"candidate"`
}

// CallEndedFrame 通话结束通知
type CallEndedFrame struct {
	CallId   string `json:"call_id"`
	EndedBy  string `json:"ended_by"`
	Status   string `json:"status"`
	Duration int    `json:"duration"`
}

// CallHistoryUpdateFrame 通话记录落库后的增量推送
type CallHistoryUpdateFrame struct {
	Record CallRecordRespond `json:"record"`
}

// NotificationFrame 实时通知推送
type NotificationFrame struct {
	Uuid      int64  `json:"uuid"`
	ActorId   string `json:"actor_id"`
	Kind      string `json:"kind"`
	Payload   string `json:"payload"`
	CreatedAt string `json:"created_at"`
}

// ErrorFrame 帧级错误，只发给出错的那条连接，连接不关闭
type ErrorFrame struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
