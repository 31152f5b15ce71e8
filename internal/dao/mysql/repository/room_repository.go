package repository

import (
	"database/sql"
	"time"

	"pulse_chat_server/internal/model"

	"gorm.io/gorm"
)

type roomRepository struct {
	db *gorm.DB
}

// NewRoomRepository 创建房间 Repository
func NewRoomRepository(db *gorm.DB) RoomRepository {
	return &roomRepository{db: db}
}

// Create 在一个事务里创建房间和初始成员
func (r *roomRepository) Create(room *model.Room, memberUuids []string) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(room).Error; err != nil {
			return err
		}
		for _, uid := range memberUuids {
			if err := tx.Create(&model.RoomMember{RoomUuid: room.Uuid, UserUuid: uid}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return wrapDBError(err, "创建房间")
}

func (r *roomRepository) FindByUuid(uuid string) (*model.Room, error) {
	var room model.Room
	if err := r.db.Where("uuid = ?", uuid).First(&room).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询房间 uuid=%s", uuid)
	}
	return &room, nil
}

// FindDirectByMembers 用两次 join 定位同时包含两个成员的单聊房间
// 成员顺序无关，所以 (A,B) 和 (B,A) 命中同一行
func (r *roomRepository) FindDirectByMembers(userA, userB string) (*model.Room, error) {
	var room model.Room
	err := r.db.
		Joins("JOIN room_member m1 ON m1.room_uuid = room.uuid AND m1.user_uuid = ?", userA).
		Joins("JOIN room_member m2 ON m2.room_uuid = room.uuid AND m2.user_uuid = ?", userB).
		Where("room.is_group = ?", false).
		First(&room).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "查询单聊房间 users=%s,%s", userA, userB)
	}
	return &room, nil
}

func (r *roomRepository) MemberIds(roomUuid string) ([]string, error) {
	var ids []string
	if err := r.db.Model(&model.RoomMember{}).Where("room_uuid = ?", roomUuid).
		Pluck("user_uuid", &ids).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询房间成员 room=%s", roomUuid)
	}
	return ids, nil
}

func (r *roomRepository) IsMember(roomUuid, userUuid string) (bool, error) {
	var count int64
	if err := r.db.Model(&model.RoomMember{}).
		Where("room_uuid = ? AND user_uuid = ?", roomUuid, userUuid).
		Count(&count).Error; err != nil {
		return false, wrapDBErrorf(err, "查询成员关系 room=%s user=%s", roomUuid, userUuid)
	}
	return count > 0, nil
}

func (r *roomRepository) AddMember(roomUuid, userUuid string) error {
	if err := r.db.Create(&model.RoomMember{RoomUuid: roomUuid, UserUuid: userUuid}).Error; err != nil {
		return wrapDBErrorf(err, "添加成员 room=%s user=%s", roomUuid, userUuid)
	}
	return nil
}

// RemoveMember 硬删除成员行
// 软删除会和 (room,user) 唯一索引冲突，导致成员无法重新加入
func (r *roomRepository) RemoveMember(roomUuid, userUuid string) error {
	if err := r.db.Unscoped().
		Where("room_uuid = ? AND user_uuid = ?", roomUuid, userUuid).
		Delete(&model.RoomMember{}).Error; err != nil {
		return wrapDBErrorf(err, "移除成员 room=%s user=%s", roomUuid, userUuid)
	}
	return nil
}

func (r *roomRepository) MemberCount(roomUuid string) (int64, error) {
	var count int64
	if err := r.db.Model(&model.RoomMember{}).Where("room_uuid = ?", roomUuid).
		Count(&count).Error; err != nil {
		return 0, wrapDBErrorf(err, "统计房间成员 room=%s", roomUuid)
	}
	return count, nil
}

func (r *roomRepository) Rename(roomUuid, name string) error {
	if err := r.db.Model(&model.Room{}).Where("uuid = ?", roomUuid).
		Update("name", name).Error; err != nil {
		return wrapDBErrorf(err, "重命名房间 room=%s", roomUuid)
	}
	return nil
}

func (r *roomRepository) UpdateLastMessageAt(roomUuid string, t time.Time) error {
	if err := r.db.Model(&model.Room{}).Where("uuid = ?", roomUuid).
		Update("last_message_at", sql.NullTime{Time: t, Valid: true}).Error; err != nil {
		return wrapDBErrorf(err, "更新房间消息时间 room=%s", roomUuid)
	}
	return nil
}

func (r *roomRepository) UpdateCachedUnread(roomUuid string, count int64) error {
	if err := r.db.Model(&model.Room{}).Where("uuid = ?", roomUuid).
		Update("cached_unread_count", count).Error; err != nil {
		return wrapDBErrorf(err, "更新未读缓存 room=%s", roomUuid)
	}
	return nil
}

func (r *roomRepository) RoomsOf(userUuid string) ([]model.Room, error) {
	var rooms []model.Room
	err := r.db.
		Joins("JOIN room_member m ON m.room_uuid = room.uuid AND m.user_uuid = ?", userUuid).
		Order("room.last_message_at DESC").
		Find(&rooms).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "查询用户房间列表 user=%s", userUuid)
	}
	return rooms, nil
}

// PeerIds 用户所有房间里的其他成员（去重）
func (r *roomRepository) PeerIds(userUuid string) ([]string, error) {
	var ids []string
	err := r.db.Model(&model.RoomMember{}).
		Distinct("user_uuid").
		Where("user_uuid <> ?", userUuid).
		Where("room_uuid IN (?)", r.db.Model(&model.RoomMember{}).
			Select("room_uuid").Where("user_uuid = ?", userUuid)).
		Pluck("user_uuid", &ids).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "查询同房成员 user=%s", userUuid)
	}
	return ids, nil
}
