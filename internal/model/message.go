package model

import (
	"database/sql"
	"time"

	"gorm.io/gorm"
)

// Message 消息模型
// 落库内容永远是密文；房间内消息按 sent_at 全序排列，
// 投递展示不得按其他键重排
type Message struct {
	gorm.Model

	// Uuid 雪花 ID，JSON 中以字符串传输
	Uuid int64 `gorm:"column:uuid;uniqueIndex;type:bigint;not null;comment:消息雪花ID"`

	RoomUuid string `gorm:"column:room_uuid;index;type:char(36);not null;comment:房间uuid"`
	SenderId string `gorm:"column:sender_id;index;type:char(36);not null;comment:发送者uuid"`

	// Ciphertext 房间密钥加密后的内容，base64
	Ciphertext string `gorm:"column:ciphertext;type:TEXT;not null;comment:消息密文"`

	// AttachmentUrl blob 存储返回的附件地址，软删除时清空
	AttachmentUrl string `gorm:"column:attachment_url;type:varchar(255);comment:附件url"`

	SentAt time.Time    `gorm:"column:sent_at;index;not null;comment:发送时间"`
	IsRead bool         `gorm:"column:is_read;default:false;comment:是否已读"`
	ReadAt sql.NullTime `gorm:"column:read_at;comment:已读时间"`

	// IsDeleted 软删除墓碑，记录保留以维持排序完整性
	IsDeleted bool `gorm:"column:is_deleted;default:false;comment:是否已删除"`
}

func (Message) TableName() string {
	return "message"
}
