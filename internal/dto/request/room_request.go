package request

// StartChatRequest 发起（或复用）与某用户的单聊房间
type StartChatRequest struct {
	PeerUuid string `json:"peer_uuid" binding:"required"`
}

// CreateGroupRequest 创建群聊房间
type CreateGroupRequest struct {
	Name        string   `json:"name" binding:"required,min=1,max=64"`
	MemberUuids []string `json:"member_uuids" binding:"required,min=1"`
}

// MemberRequest 添加/移除群成员
type MemberRequest struct {
	RoomUuid string `json:"room_uuid" binding:"required"`
	UserUuid string `json:"user_uuid" binding:"required"`
}

// RenameGroupRequest 重命名群聊
type RenameGroupRequest struct {
	RoomUuid string `json:"room_uuid" binding:"required"`
	Name     string `json:"name" binding:"required,min=1,max=64"`
}
