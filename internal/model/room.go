package model

import (
	"database/sql"

	"gorm.io/gorm"
)

// Room 会话房间模型
// 单聊房间对同一对成员全局唯一；群聊必须有群主
type Room struct {
	gorm.Model
	Uuid    string `gorm:"column:uuid;uniqueIndex;type:char(36);not null;comment:房间唯一id"`
	IsGroup bool   `gorm:"column:is_group;default:false;comment:是否群聊"`

	// OwnerId 群主 uuid，仅群聊使用
	// 群主不可退群、不可被移除
	OwnerId string `gorm:"column:owner_id;type:char(36);comment:群主uuid"`
	Name    string `gorm:"column:name;type:varchar(100);comment:群名称"`

	// EncryptionKey 房间对称密钥，base64
	// 建房时随机生成并固定，不从成员 id 推导
	EncryptionKey string `gorm:"column:encryption_key;type:char(64);not null;comment:房间密钥"`

	LastMessageAt sql.NullTime `gorm:"column:last_message_at;comment:最近消息时间"`

	// CachedUnreadCount 展示用缓存值
	// 真实未读数永远按消息表重新计算，此字段只做会话列表加速
	CachedUnreadCount int `gorm:"column:cached_unread_count;default:0;comment:未读数缓存"`
}

func (Room) TableName() string {
	return "room"
}
