package model

import "gorm.io/gorm"

// RoomMember 房间成员关系
type RoomMember struct {
	gorm.Model
	RoomUuid string `gorm:"column:room_uuid;index;uniqueIndex:idx_room_user;type:char(36);not null;comment:房间uuid"`
	UserUuid string `gorm:"column:user_uuid;index;uniqueIndex:idx_room_user;type:char(36);not null;comment:成员uuid"`
}

func (RoomMember) TableName() string {
	return "room_member"
}
