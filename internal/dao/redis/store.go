package redis

import "time"

// KVStore 以对象形式暴露注册表和去重所需的最小操作集
// Service 层依赖自己声明的小接口，测试时替换为内存实现
type KVStore struct{}

// NewKVStore 返回共享存储句柄
func NewKVStore() *KVStore {
	return &KVStore{}
}

func (s *KVStore) HSet(key, field, value string) error {
	return HSet(key, field, value)
}

func (s *KVStore) HGetAll(key string) (map[string]string, error) {
	return HGetAll(key)
}

func (s *KVStore) HDel(key string, fields ...string) error {
	return HDel(key, fields...)
}

func (s *KVStore) Expire(key string, ttl time.Duration) error {
	return ExpireKey(key, ttl)
}

func (s *KVStore) SetNX(key, value string, ttl time.Duration) (bool, error) {
	return SetNX(key, value, ttl)
}

func (s *KVStore) SetKeyEx(key, value string, ttl time.Duration) error {
	return SetKeyEx(key, value, ttl)
}

func (s *KVStore) GetKey(key string) (string, error) {
	return GetKey(key)
}
