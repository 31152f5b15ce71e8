// Package redis 提供 Redis 缓存操作的封装
// 本文件包含 Hash（哈希）类型的操作，连接注册表按用户一个哈希键存储
package redis

import (
	"time"

	"pulse_chat_server/pkg/errorx"
)

// HSet 设置哈希字段
// Redis 命令: HSET key field value
func HSet(key, field, value string) error {
	if err := redisClient.HSet(ctx, key, field, value).Err(); err != nil {
		return errorx.Wrapf(err, errorx.CodeCacheError, "redis hset key %s field %s", key, field)
	}
	return nil
}

// HGetAll 获取哈希的全部字段
// Redis 命令: HGETALL key，键不存在返回空 map
func HGetAll(key string) (map[string]string, error) {
	fields, err := redisClient.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, errorx.Wrapf(err, errorx.CodeCacheError, "redis hgetall key %s", key)
	}
	return fields, nil
}

// HDel 删除哈希的一个或多个字段
// Redis 命令: HDEL key field [field ...]
func HDel(key string, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	if err := redisClient.HDel(ctx, key, fields...).Err(); err != nil {
		return errorx.Wrapf(err, errorx.CodeCacheError, "redis hdel key %s", key)
	}
	return nil
}

// ExpireKey 设置键的过期时间
// 注册表条目靠 TTL 兜底回收进程崩溃留下的脏数据
func ExpireKey(key string, ttl time.Duration) error {
	if err := redisClient.Expire(ctx, key, ttl).Err(); err != nil {
		return errorx.Wrapf(err, errorx.CodeCacheError, "redis expire key %s", key)
	}
	return nil
}
