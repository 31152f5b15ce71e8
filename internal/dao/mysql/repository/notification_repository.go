package repository

import (
	"pulse_chat_server/internal/model"

	"gorm.io/gorm"
)

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository 创建通知 Repository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(notification *model.Notification) error {
	if err := r.db.Create(notification).Error; err != nil {
		return wrapDBError(err, "创建通知")
	}
	return nil
}

func (r *notificationRepository) ListByOwner(ownerUuid string, limit int) ([]model.Notification, error) {
	var notifications []model.Notification
	q := r.db.Where("owner_id = ?", ownerUuid).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&notifications).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询通知列表 owner=%s", ownerUuid)
	}
	return notifications, nil
}

// MarkRead 批量置已读，owner 条件防止越权
func (r *notificationRepository) MarkRead(ownerUuid string, uuids []int64) error {
	if len(uuids) == 0 {
		return nil
	}
	err := r.db.Model(&model.Notification{}).
		Where("owner_id = ? AND uuid IN ?", ownerUuid, uuids).
		Update("is_read", true).Error
	if err != nil {
		return wrapDBErrorf(err, "通知置已读 owner=%s", ownerUuid)
	}
	return nil
}
