package user

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	dao "pulse_chat_server/internal/dao/mysql"
	"pulse_chat_server/internal/dao/mysql/repository"
	"pulse_chat_server/internal/dto/request"
	"pulse_chat_server/pkg/errorx"
	"pulse_chat_server/pkg/util/jwt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type memTokenCache struct {
	mu   sync.Mutex
	data map[string]string
}

func (c *memTokenCache) SetKeyEx(key, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = make(map[string]string)
	}
	c.data[key] = value
	return nil
}

func (c *memTokenCache) GetKey(key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data[key], nil
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	jwt.Init("test-secret", 30, 168)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("打开测试数据库: %v", err)
	}
	if err := dao.AutoMigrate(db); err != nil {
		t.Fatalf("迁移表结构: %v", err)
	}
	repos := repository.NewRepositories(db)
	return NewService(repos.User, &memTokenCache{}, time.Hour)
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService(t)

	reg, err := svc.Register(&request.RegisterRequest{Username: "alice", Password: "secret-pass"})
	if err != nil {
		t.Fatalf("注册: %v", err)
	}
	if reg.AccessToken == "" || reg.RefreshToken == "" {
		t.Fatal("注册应返回令牌对")
	}

	// 密码不以明文存储
	u, err := svc.GetByUuid(reg.Uuid)
	if err != nil {
		t.Fatalf("查询用户: %v", err)
	}
	if u.Password == "secret-pass" {
		t.Fatal("密码以明文落库")
	}

	// 重复用户名被拒
	if _, err := svc.Register(&request.RegisterRequest{Username: "alice", Password: "other"}); err == nil {
		t.Fatal("重复用户名应被拒绝")
	}

	login, err := svc.Login(&request.LoginRequest{Username: "alice", Password: "secret-pass"})
	if err != nil {
		t.Fatalf("登录: %v", err)
	}
	if login.Uuid != reg.Uuid {
		t.Fatalf("登录用户不一致: %s != %s", login.Uuid, reg.Uuid)
	}

	if _, err := svc.Login(&request.LoginRequest{Username: "alice", Password: "wrong"}); errorx.GetCode(err) != errorx.CodeInvalidPassword {
		t.Fatalf("错误密码应返回 CodeInvalidPassword, got %v", err)
	}
	if _, err := svc.Login(&request.LoginRequest{Username: "nobody", Password: "x"}); errorx.GetCode(err) != errorx.CodeUserNotExist {
		t.Fatalf("未知用户应返回 CodeUserNotExist, got %v", err)
	}
}

func TestRefreshRotatesTokens(t *testing.T) {
	svc := newTestService(t)

	reg, err := svc.Register(&request.RegisterRequest{Username: "bob", Password: "secret-pass"})
	if err != nil {
		t.Fatalf("注册: %v", err)
	}

	pair, err := svc.Refresh(&request.RefreshTokenRequest{RefreshToken: reg.RefreshToken})
	if err != nil {
		t.Fatalf("刷新令牌: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("刷新应返回新令牌对")
	}

	// Access Token 不能当 Refresh Token 用
	if _, err := svc.Refresh(&request.RefreshTokenRequest{RefreshToken: reg.AccessToken}); errorx.GetCode(err) != errorx.CodeUnauthorized {
		t.Fatalf("access token 刷新应被拒绝, got %v", err)
	}
}
