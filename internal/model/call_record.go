package model

import (
	"database/sql"
	"time"

	"gorm.io/gorm"
)

// CallRecord 通话记录
// 状态机: ongoing -> completed | missed | rejected（终态）
// duration 由服务端推导，completed 之外的终态一律归零
type CallRecord struct {
	gorm.Model
	Uuid       string `gorm:"column:uuid;uniqueIndex;type:char(36);not null;comment:通话唯一id"`
	RoomUuid   string `gorm:"column:room_uuid;index;type:char(36);not null;comment:房间uuid"`
	CallerId   string `gorm:"column:caller_id;index;type:char(36);not null;comment:主叫uuid"`
	ReceiverId string `gorm:"column:receiver_id;index;type:char(36);not null;comment:被叫uuid"`

	// CallKind audio | video
	CallKind string `gorm:"column:call_kind;type:char(10);not null;comment:通话类型"`

	Status    string       `gorm:"column:status;type:char(10);not null;default:ongoing;comment:通话状态"`
	StartTime time.Time    `gorm:"column:start_time;not null;comment:开始时间"`
	EndTime   sql.NullTime `gorm:"column:end_time;comment:结束时间"`

	// Duration 通话时长（秒）
	Duration int `gorm:"column:duration;default:0;comment:通话时长秒"`
}

func (CallRecord) TableName() string {
	return "call_record"
}
