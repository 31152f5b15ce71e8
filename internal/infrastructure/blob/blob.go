// Package blob 封装附件存储协作方
// 消息管线只保存 Upload 返回的 URL，存储本身是外部关注点
package blob

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Uploader 附件上传接口
type Uploader interface {
	// Upload 保存附件字节，返回可访问的 URL
	Upload(data []byte, filename string) (string, error)
}

// LocalStore 本地静态目录实现
// 文件写入 staticFilePath，URL 走 /static/file/ 路由
type LocalStore struct {
	dir string
}

// NewLocalStore 创建本地存储，目录不存在时自动创建
func NewLocalStore(dir string) (*LocalStore, error) {
	if dir == "" {
		dir = "static/files"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir %s: %w", dir, err)
	}
	return &LocalStore{dir: dir}, nil
}

// Upload 落盘并返回相对 URL
// 文件名加 uuid 前缀避免覆盖同名上传
func (s *LocalStore) Upload(data []byte, filename string) (string, error) {
	name := uuid.NewString() + "_" + filepath.Base(filename)
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write blob %s: %w", path, err)
	}
	zap.L().Debug("blob stored", zap.String("path", path), zap.Int("size", len(data)))
	return "/static/file/" + name, nil
}
