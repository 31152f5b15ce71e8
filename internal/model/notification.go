package model

import "gorm.io/gorm"

// Notification 通知模型
// 追加写入，唯一可变字段是 is_read；推送失败不影响落库
type Notification struct {
	gorm.Model
	Uuid    int64  `gorm:"column:uuid;uniqueIndex;type:bigint;not null;comment:通知雪花ID"`
	OwnerId string `gorm:"column:owner_id;index;type:char(36);not null;comment:接收者uuid"`
	ActorId string `gorm:"column:actor_id;type:char(36);comment:触发者uuid"`

	// Kind 事件类型: follow/mention/like/comment/call/new_chat/live
	Kind string `gorm:"column:kind;type:char(20);not null;comment:事件类型"`

	// Payload 按事件类型区分的 JSON 载荷
	Payload string `gorm:"column:payload;type:TEXT;comment:事件载荷"`

	IsRead bool `gorm:"column:is_read;default:false;comment:是否已读"`
}

func (Notification) TableName() string {
	return "notification"
}
