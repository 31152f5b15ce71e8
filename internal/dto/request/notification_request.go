package request

// MarkNotificationReadRequest 标记单条通知为已读
type MarkNotificationReadRequest struct {
	Uuid int64 `json:"uuid" binding:"required"`
}
