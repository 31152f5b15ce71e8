// Package config 提供应用程序的配置加载和管理功能
// 使用 TOML 格式的配置文件，支持多路径查找
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// MainConfig 主配置，包含应用基本信息
type MainConfig struct {
	AppName  string `toml:"appName"`  // 应用名称，用于日志标识等
	Host     string `toml:"host"`     // 服务器监听地址
	Port     int    `toml:"port"`     // 服务器监听端口
	CertFile string `toml:"certFile"` // TLS 证书路径，留空则走明文 HTTP
	KeyFile  string `toml:"keyFile"`  // TLS 私钥路径
}

// MysqlConfig MySQL 数据库连接配置
type MysqlConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	DatabaseName string `toml:"databaseName"`
}

// RedisConfig Redis 连接配置
// 连接注册表和通话去重键都存在这里，多实例共享
type RedisConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Password string `toml:"password"`
	Db       int    `toml:"db"`
}

// LogConfig 日志配置，使用 lumberjack 进行日志轮转
type LogConfig struct {
	LogPath    string `toml:"logPath"`    // 日志文件存储目录
	FileName   string `toml:"fileName"`   // 日志文件名
	MaxSize    int    `toml:"maxSize"`    // 单个日志文件最大大小（MB）
	MaxBackups int    `toml:"maxBackups"` // 保留旧日志文件的最大个数
	MaxAge     int    `toml:"maxAge"`     // 保留旧日志文件的最大天数
	Level      string `toml:"level"`      // 日志级别：debug, info, warn, error
}

// KafkaConfig Kafka 消息队列配置
// messageMode 为 "channel" 时单进程内直接分发，为 "kafka" 时跨实例广播
type KafkaConfig struct {
	MessageMode string `toml:"messageMode"` // "channel" 或 "kafka"
	HostPort    string `toml:"hostPort"`    // Kafka 地址，如 "localhost:9092"
	EventTopic  string `toml:"eventTopic"`  // 实时事件广播主题
	Partition   int    `toml:"partition"`   // 分区数
	Timeout     int    `toml:"timeout"`     // 读批次超时（秒）
}

// StaticSrcConfig 静态资源路径配置
// 本地 blob 存储实现把附件落到这个目录
type StaticSrcConfig struct {
	StaticAvatarPath string `toml:"staticAvatarPath"` // 头像文件存储路径
	StaticFilePath   string `toml:"staticFilePath"`   // 附件文件存储路径
}

// JWTConfig JWT 认证配置
type JWTConfig struct {
	Secret             string `toml:"secret"`             // JWT 签名密钥
	AccessTokenExpiry  int    `toml:"accessTokenExpiry"`  // Access Token 有效期（分钟）
	RefreshTokenExpiry int    `toml:"refreshTokenExpiry"` // Refresh Token 有效期（小时）
}

// SnowflakeConfig 雪花算法配置
type SnowflakeConfig struct {
	MachineID int64 `toml:"machineId"` // 节点 ID，范围 0-1023，分布式部署时每台机器需唯一
}

// WsConfig 实时连接相关的可调参数
// 替换宽限期和去重窗口是尽力而为的启发式，不是硬契约，所以放进配置
type WsConfig struct {
	ReplaceGraceMs  int `toml:"replaceGraceMs"`  // 旧连接收到替换信号前的宽限期（毫秒），默认 500
	OfferDedupSec   int `toml:"offerDedupSec"`   // 同一 call_id 对同一目标的去重窗口（秒），默认 60
	OfflineDelayMs  int `toml:"offlineDelayMs"`  // 判定离线前的复查延迟（毫秒），吸收刷新页面的重连抖动
	AdmitRatePerMin int `toml:"admitRatePerMin"` // 单用户每分钟允许的握手次数
}

// ReplaceGrace 替换宽限期（带默认值）
func (w WsConfig) ReplaceGrace() time.Duration {
	if w.ReplaceGraceMs <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(w.ReplaceGraceMs) * time.Millisecond
}

// OfferDedupWindow 去重窗口（带默认值）
func (w WsConfig) OfferDedupWindow() time.Duration {
	if w.OfferDedupSec <= 0 {
		return 60 * time.Second
	}
	return time.Duration(w.OfferDedupSec) * time.Second
}

// OfflineDelay 离线复查延迟（带默认值）
func (w WsConfig) OfflineDelay() time.Duration {
	if w.OfflineDelayMs <= 0 {
		return 2 * time.Second
	}
	return time.Duration(w.OfflineDelayMs) * time.Millisecond
}

// Config 应用程序总配置，聚合所有子配置
type Config struct {
	MainConfig      `toml:"mainConfig"`
	MysqlConfig     `toml:"mysqlConfig"`
	RedisConfig     `toml:"redisConfig"`
	LogConfig       `toml:"logConfig"`
	KafkaConfig     `toml:"kafkaConfig"`
	StaticSrcConfig `toml:"staticSrcConfig"`
	JWTConfig       `toml:"jwtConfig"`
	SnowflakeConfig `toml:"snowflakeConfig"`
	WsConfig        `toml:"wsConfig"`
}

// config 全局配置单例，延迟加载
var config *Config

// LoadConfig 从多个候选路径加载配置文件
// 按顺序尝试加载，找到第一个可用的配置文件即停止
func LoadConfig() error {
	paths := []string{
		"configs/config_local.toml",
		"configs/config.toml",
		"../../configs/config_local.toml",
		"../../configs/config.toml",
	}

	if config == nil {
		config = new(Config)
	}
	for _, path := range paths {
		if _, err := toml.DecodeFile(path, config); err == nil {
			return nil
		}
	}

	return fmt.Errorf("could not find configuration file in any of the search paths")
}

// GetConfig 获取全局配置实例（单例模式）
// 首次调用时会自动加载配置文件
func GetConfig() *Config {
	if config == nil {
		config = new(Config)
		_ = LoadConfig() // 加载失败时使用零值配置，各组件自带默认值
	}
	return config
}
