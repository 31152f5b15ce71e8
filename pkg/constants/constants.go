package constants

import "time"

const (
	CHANNEL_SIZE  = 100   // 连接发送通道与广播通道的缓冲大小
	FILE_MAX_SIZE = 50000 // 附件最大大小 (KB)

	// DELETED_SENTINEL 消息墓碑内容
	// 软删除时替换原文，记录本身保留以维持房间内消息顺序
	DELETED_SENTINEL = "[Deleted]"

	// CONN_TTL 注册表条目兜底过期时间
	// 进程非正常退出时靠它回收泄漏的连接条目
	CONN_TTL = time.Hour

	REFRESH_TOKEN_EXPIRY_HOURS = 168 // Refresh Token 有效期（小时）
)

// 通话状态
const (
	CallOngoing   = "ongoing"
	CallCompleted = "completed"
	CallMissed    = "missed"
	CallRejected  = "rejected"
)

// 通话类型
const (
	CallAudio = "audio"
	CallVideo = "video"
)

// 通知事件类型
const (
	NotifyFollow  = "follow"
	NotifyMention = "mention"
	NotifyLike    = "like"
	NotifyComment = "comment"
	NotifyCall    = "call"
	NotifyNewChat = "new_chat"
	NotifyLive    = "live"
)

// WebSocket 关闭码
// 握手阶段凭证无效用 4003，其他握手失败用 4001
// 连接被新登录顶替时服务端用 4002 主动关闭
const (
	CloseInvalidToken = 4003
	CloseReplaced     = 4002
	CloseHandshakeErr = 4001
)
