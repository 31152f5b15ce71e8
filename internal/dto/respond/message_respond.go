package respond

// MessageRespond 历史消息条目，内容已解密
type MessageRespond struct {
	Uuid          int64  `json:"uuid"`
	RoomUuid      string `json:"room_uuid"`
	SenderId      string `json:"sender_id"`
	Content       string `json:"content"`
	AttachmentUrl string `json:"attachment_url,omitempty"`
	SentAt        string `json:"sent_at"`
	IsRead        bool   `json:"is_read"`
	ReadAt        string `json:"read_at,omitempty"`
	IsDeleted     bool   `json:"is_deleted"`
}
