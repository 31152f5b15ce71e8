// Package dao 提供数据访问层的初始化和全局数据库实例管理
// 负责建立 MySQL 连接、自动迁移表结构、初始化 Repository 层
package dao

import (
	"fmt"

	"pulse_chat_server/internal/config"
	"pulse_chat_server/internal/dao/mysql/repository"
	"pulse_chat_server/internal/model"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// GormDB 全局 GORM 数据库实例
var GormDB *gorm.DB

// Repos 全局 Repository 实例集合，供 Service 层依赖注入
var Repos *repository.Repositories

// Init 初始化数据库连接和 Repository 层
func Init() {
	conf := config.GetConfig()

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		conf.MysqlConfig.User,
		conf.MysqlConfig.Password,
		conf.MysqlConfig.Host,
		conf.MysqlConfig.Port,
		conf.MysqlConfig.DatabaseName,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		zap.L().Fatal("连接数据库失败", zap.Error(err))
	}

	if err := AutoMigrate(db); err != nil {
		zap.L().Fatal("表结构迁移失败", zap.Error(err))
	}

	GormDB = db
	Repos = repository.NewRepositories(db)
	zap.L().Info("数据库初始化完成", zap.String("db", conf.MysqlConfig.DatabaseName))
}

// AutoMigrate 迁移全部实体表
// 测试用 sqlite 建库时也走这份清单
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.UserInfo{},
		&model.Room{},
		&model.RoomMember{},
		&model.Message{},
		&model.CallRecord{},
		&model.Notification{},
	)
}
