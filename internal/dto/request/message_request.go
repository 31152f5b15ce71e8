package request

// HistoryRequest 拉取房间历史消息
type HistoryRequest struct {
	RoomUuid string `json:"room_uuid" form:"room_uuid" binding:"required"`
	Limit    int    `json:"limit" form:"limit"`
	Offset   int    `json:"offset" form:"offset"`
}

// DeleteMessageRequest 删除（墓碑化）一条消息
type DeleteMessageRequest struct {
	MessageUuid int64 `json:"message_uuid" binding:"required"`
}
