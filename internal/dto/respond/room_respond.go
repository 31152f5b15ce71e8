package respond

// RoomRespond 房间信息
type RoomRespond struct {
	Uuid          string `json:"uuid"`
	IsGroup       bool   `json:"is_group"`
	OwnerId       string `json:"owner_id"`
	Name          string `json:"name"`
	LastMessageAt string `json:"last_message_at,omitempty"`
	UnreadCount   int64  `json:"unread_count"`
}

// MemberRespond 房间成员
type MemberRespond struct {
	UserUuid string `json:"user_uuid"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
	IsOnline bool   `json:"is_online"`
}
