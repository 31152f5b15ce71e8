// Package model 定义数据库实体模型
package model

import (
	"database/sql"

	"gorm.io/gorm"
)

// UserInfo 用户模型
// 实时子系统只依赖认证与在线状态字段，资料管理属于外部系统
type UserInfo struct {
	gorm.Model
	Uuid     string `gorm:"column:uuid;uniqueIndex;type:char(36);not null;comment:用户唯一id"`
	Username string `gorm:"column:username;uniqueIndex;type:varchar(30);not null;comment:用户名"`
	Password string `gorm:"column:password;type:varchar(100);not null;comment:bcrypt密码哈希"`
	Avatar   string `gorm:"column:avatar;type:varchar(255);comment:头像url"`

	// IsOnline 由在线状态服务维护，永远从连接注册表推导后写入
	// 任何连接都不得直接翻转这个字段
	IsOnline bool         `gorm:"column:is_online;default:false;comment:是否在线"`
	LastSeen sql.NullTime `gorm:"column:last_seen;comment:最后在线时间，仅在转为离线时更新"`
}

func (UserInfo) TableName() string {
	return "user_info"
}
