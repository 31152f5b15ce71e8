package repository

import (
	"database/sql"
	"time"

	"pulse_chat_server/internal/model"
	"pulse_chat_server/pkg/errorx"

	"gorm.io/gorm"
)

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建消息 Repository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(message *model.Message) error {
	if err := r.db.Create(message).Error; err != nil {
		return wrapDBError(err, "创建消息")
	}
	return nil
}

func (r *messageRepository) FindByUuid(uuid int64) (*model.Message, error) {
	var message model.Message
	if err := r.db.Where("uuid = ?", uuid).First(&message).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询消息 uuid=%d", uuid)
	}
	return &message, nil
}

// FindByRoom 按 sent_at 升序返回
// 投递顺序契约：永远按发送时间排序，不按任何其他键重排
func (r *messageRepository) FindByRoom(roomUuid string, limit int) ([]model.Message, error) {
	var messages []model.Message
	q := r.db.Where("room_uuid = ?", roomUuid).Order("sent_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&messages).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询房间消息 room=%s", roomUuid)
	}
	return messages, nil
}

// CountUnread 对单个接收者从源数据重算未读数
// 永远不做增量加减，重复投递不会污染计数
func (r *messageRepository) CountUnread(roomUuid, recipientUuid string) (int64, error) {
	var count int64
	err := r.db.Model(&model.Message{}).
		Where("room_uuid = ? AND is_read = ? AND is_deleted = ? AND sender_id <> ?",
			roomUuid, false, false, recipientUuid).
		Count(&count).Error
	if err != nil {
		return 0, wrapDBErrorf(err, "统计未读 room=%s user=%s", roomUuid, recipientUuid)
	}
	return count, nil
}

func (r *messageRepository) UnreadIds(roomUuid, recipientUuid string) ([]int64, error) {
	var ids []int64
	err := r.db.Model(&model.Message{}).
		Where("room_uuid = ? AND is_read = ? AND is_deleted = ? AND sender_id <> ?",
			roomUuid, false, false, recipientUuid).
		Order("sent_at ASC").
		Pluck("uuid", &ids).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "查询未读消息 room=%s user=%s", roomUuid, recipientUuid)
	}
	return ids, nil
}

// MarkRead 批量置已读，共用同一个 read_at
func (r *messageRepository) MarkRead(uuids []int64, readAt time.Time) error {
	if len(uuids) == 0 {
		return nil
	}
	err := r.db.Model(&model.Message{}).
		Where("uuid IN ?", uuids).
		Updates(map[string]any{
			"is_read": true,
			"read_at": sql.NullTime{Time: readAt, Valid: true},
		}).Error
	if err != nil {
		return wrapDBError(err, "批量置已读")
	}
	return nil
}

// Tombstone 软删除为墓碑
// 记录保留，密文换成墓碑内容，附件清空
func (r *messageRepository) Tombstone(uuid int64, ciphertext string) error {
	res := r.db.Model(&model.Message{}).
		Where("uuid = ?", uuid).
		Updates(map[string]any{
			"ciphertext":     ciphertext,
			"attachment_url": "",
			"is_deleted":     true,
		})
	if res.Error != nil {
		return wrapDBErrorf(res.Error, "删除消息 uuid=%d", uuid)
	}
	if res.RowsAffected == 0 {
		return errorx.Wrapf(gorm.ErrRecordNotFound, errorx.CodeNotFound, "消息 %d 不存在", uuid)
	}
	return nil
}
