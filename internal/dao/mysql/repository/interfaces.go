// Package repository 定义数据访问层接口和聚合结构
// 采用 Repository 模式将数据访问逻辑与业务逻辑分离
package repository

import (
	"time"

	"pulse_chat_server/internal/model"

	"gorm.io/gorm"
)

// UserRepository 用户数据访问接口
type UserRepository interface {
	Create(user *model.UserInfo) error
	FindByUuid(uuid string) (*model.UserInfo, error)
	FindByUsername(username string) (*model.UserInfo, error)
	FindByUsernames(usernames []string) ([]model.UserInfo, error)
	// UpdatePresence 写入推导出的在线状态
	// lastSeen 仅在转为离线时传入非零值
	UpdatePresence(uuid string, online bool, lastSeen time.Time) error
}

// RoomRepository 房间与成员关系数据访问接口
type RoomRepository interface {
	Create(room *model.Room, memberUuids []string) error
	FindByUuid(uuid string) (*model.Room, error)
	// FindDirectByMembers 查找包含两个指定成员的单聊房间
	// 成员顺序无关；不存在时返回 CodeNotFound
	FindDirectByMembers(userA, userB string) (*model.Room, error)
	MemberIds(roomUuid string) ([]string, error)
	IsMember(roomUuid, userUuid string) (bool, error)
	AddMember(roomUuid, userUuid string) error
	RemoveMember(roomUuid, userUuid string) error
	MemberCount(roomUuid string) (int64, error)
	Rename(roomUuid, name string) error
	UpdateLastMessageAt(roomUuid string, t time.Time) error
	UpdateCachedUnread(roomUuid string, count int64) error
	RoomsOf(userUuid string) ([]model.Room, error)
	// PeerIds 用户所有房间的去重同房成员，用于在线状态广播
	PeerIds(userUuid string) ([]string, error)
}

// MessageRepository 消息数据访问接口
type MessageRepository interface {
	Create(message *model.Message) error
	FindByUuid(uuid int64) (*model.Message, error)
	// FindByRoom 按 sent_at 升序返回房间消息，保持投递顺序稳定
	FindByRoom(roomUuid string, limit int) ([]model.Message, error)
	// CountUnread 对单个接收者重算未读数：未读、非本人发送、未删除
	CountUnread(roomUuid, recipientUuid string) (int64, error)
	UnreadIds(roomUuid, recipientUuid string) ([]int64, error)
	MarkRead(uuids []int64, readAt time.Time) error
	// Tombstone 软删除：密文替换为墓碑、附件清空、is_deleted 置位
	Tombstone(uuid int64, ciphertext string) error
}

// CallRepository 通话记录数据访问接口
type CallRepository interface {
	Create(record *model.CallRecord) error
	FindByUuid(uuid string) (*model.CallRecord, error)
	// End 以 end_time IS NULL 为条件的单次终结写入
	// 返回 false 表示记录已被终结，调用方应读取现状并原样返回
	End(uuid, status string, endTime time.Time, duration int) (bool, error)
	HasOngoingForUser(userUuid string) (bool, error)
	HistoryForUser(userUuid string, limit int) ([]model.CallRecord, error)
}

// NotificationRepository 通知数据访问接口
type NotificationRepository interface {
	Create(notification *model.Notification) error
	ListByOwner(ownerUuid string, limit int) ([]model.Notification, error)
	MarkRead(ownerUuid string, uuids []int64) error
}

// Repositories 聚合所有 Repository，供 Service 层依赖注入
type Repositories struct {
	User         UserRepository
	Room         RoomRepository
	Message      MessageRepository
	Call         CallRepository
	Notification NotificationRepository
}

// NewRepositories 创建 Repository 聚合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Room:         NewRoomRepository(db),
		Message:      NewMessageRepository(db),
		Call:         NewCallRepository(db),
		Notification: NewNotificationRepository(db),
	}
}
