package repository

import (
	"database/sql"
	"time"

	"pulse_chat_server/internal/model"
	"pulse_chat_server/pkg/constants"

	"gorm.io/gorm"
)

type callRepository struct {
	db *gorm.DB
}

// NewCallRepository 创建通话记录 Repository
func NewCallRepository(db *gorm.DB) CallRepository {
	return &callRepository{db: db}
}

func (r *callRepository) Create(record *model.CallRecord) error {
	if err := r.db.Create(record).Error; err != nil {
		return wrapDBError(err, "创建通话记录")
	}
	return nil
}

func (r *callRepository) FindByUuid(uuid string) (*model.CallRecord, error) {
	var record model.CallRecord
	if err := r.db.Where("uuid = ?", uuid).First(&record).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询通话 uuid=%s", uuid)
	}
	return &record, nil
}

// End 终结通话
// 以 end_time IS NULL 为条件做单次写入，并发或重复的 end_call
// 只有第一个生效，后来者拿到 false 后按既有记录返回
func (r *callRepository) End(uuid, status string, endTime time.Time, duration int) (bool, error) {
	res := r.db.Model(&model.CallRecord{}).
		Where("uuid = ? AND end_time IS NULL", uuid).
		Updates(map[string]any{
			"status":   status,
			"end_time": sql.NullTime{Time: endTime, Valid: true},
			"duration": duration,
		})
	if res.Error != nil {
		return false, wrapDBErrorf(res.Error, "终结通话 uuid=%s", uuid)
	}
	return res.RowsAffected > 0, nil
}

// HasOngoingForUser 用户当前是否处于进行中的通话
// 连接替换逻辑用它来放过通话中的旧连接
func (r *callRepository) HasOngoingForUser(userUuid string) (bool, error) {
	var count int64
	err := r.db.Model(&model.CallRecord{}).
		Where("status = ? AND (caller_id = ? OR receiver_id = ?)",
			constants.CallOngoing, userUuid, userUuid).
		Count(&count).Error
	if err != nil {
		return false, wrapDBErrorf(err, "查询进行中通话 user=%s", userUuid)
	}
	return count > 0, nil
}

func (r *callRepository) HistoryForUser(userUuid string, limit int) ([]model.CallRecord, error) {
	var records []model.CallRecord
	q := r.db.Where("caller_id = ? OR receiver_id = ?", userUuid, userUuid).
		Order("start_time DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&records).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询通话历史 user=%s", userUuid)
	}
	return records, nil
}
