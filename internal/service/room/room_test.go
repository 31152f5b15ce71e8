package room

import (
	"path/filepath"
	"testing"

	dao "pulse_chat_server/internal/dao/mysql"
	"pulse_chat_server/internal/dao/mysql/repository"
	"pulse_chat_server/internal/model"
	"pulse_chat_server/pkg/errorx"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRepos(t *testing.T) *repository.Repositories {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("打开测试数据库: %v", err)
	}
	if err := dao.AutoMigrate(db); err != nil {
		t.Fatalf("迁移表结构: %v", err)
	}
	return repository.NewRepositories(db)
}

func seedUser(t *testing.T, repos *repository.Repositories, username string) string {
	t.Helper()
	u := &model.UserInfo{Uuid: uuid.NewString(), Username: username, Password: "x"}
	if err := repos.User.Create(u); err != nil {
		t.Fatalf("创建用户 %s: %v", username, err)
	}
	return u.Uuid
}

func TestCreateDirectIdempotentBothOrders(t *testing.T) {
	repos := newTestRepos(t)
	svc := NewService(repos.Room, repos.User, repos.Message)
	alice := seedUser(t, repos, "alice")
	bob := seedUser(t, repos, "bob")

	first, err := svc.CreateDirect(alice, bob)
	if err != nil {
		t.Fatalf("首次创建单聊: %v", err)
	}
	if first.EncryptionKey == "" {
		t.Fatal("房间缺少加密密钥")
	}

	again, err := svc.CreateDirect(alice, bob)
	if err != nil {
		t.Fatalf("重复创建单聊: %v", err)
	}
	if again.Uuid != first.Uuid {
		t.Fatalf("同方向重复创建得到新房间: %s != %s", again.Uuid, first.Uuid)
	}

	reversed, err := svc.CreateDirect(bob, alice)
	if err != nil {
		t.Fatalf("反方向创建单聊: %v", err)
	}
	if reversed.Uuid != first.Uuid {
		t.Fatalf("反方向创建得到新房间: %s != %s", reversed.Uuid, first.Uuid)
	}
}

func TestCreateDirectRejectsSelfAndUnknownPeer(t *testing.T) {
	repos := newTestRepos(t)
	svc := NewService(repos.Room, repos.User, repos.Message)
	alice := seedUser(t, repos, "alice")

	if _, err := svc.CreateDirect(alice, alice); err == nil {
		t.Fatal("与自己建立单聊应当失败")
	}
	if _, err := svc.CreateDirect(alice, uuid.NewString()); errorx.GetCode(err) != errorx.CodeUserNotExist {
		t.Fatalf("未知用户应返回 CodeUserNotExist, got %v", err)
	}
}

func TestGroupMemberRules(t *testing.T) {
	repos := newTestRepos(t)
	svc := NewService(repos.Room, repos.User, repos.Message)
	owner := seedUser(t, repos, "owner")
	m1 := seedUser(t, repos, "m1")
	m2 := seedUser(t, repos, "m2")
	outsider := seedUser(t, repos, "outsider")

	group, err := svc.CreateGroup(owner, "team", []string{m1, m2})
	if err != nil {
		t.Fatalf("创建群聊: %v", err)
	}

	// 群主不可被移除
	if err := svc.RemoveMember(owner, group.Uuid, owner); !errorx.IsForbidden(err) {
		t.Fatalf("移除群主应被拒绝, got %v", err)
	}
	// 非群主不能移除他人
	if err := svc.RemoveMember(m1, group.Uuid, m2); !errorx.IsForbidden(err) {
		t.Fatalf("非群主移除他人应被拒绝, got %v", err)
	}
	// 群主移除成员
	if err := svc.RemoveMember(owner, group.Uuid, m2); err != nil {
		t.Fatalf("群主移除成员: %v", err)
	}
	// 成员数已到下限
	if err := svc.RemoveMember(owner, group.Uuid, m1); err == nil {
		t.Fatal("成员数降到两人以下应被拒绝")
	}
	// 重新拉人，软删除不应挡住再次加入
	if err := svc.AddMember(owner, group.Uuid, m2); err != nil {
		t.Fatalf("重新拉回成员: %v", err)
	}
	// 非成员不能查看成员列表
	if _, err := svc.GetMembers(outsider, group.Uuid); !errorx.IsForbidden(err) {
		t.Fatalf("非成员查看成员列表应被拒绝, got %v", err)
	}

	members, err := svc.GetMembers(owner, group.Uuid)
	if err != nil {
		t.Fatalf("查看成员列表: %v", err)
	}
	if len(members) != 3 {
		t.Fatalf("成员数应为 3, got %d", len(members))
	}
}

func TestRenameGroupOwnerOnly(t *testing.T) {
	repos := newTestRepos(t)
	svc := NewService(repos.Room, repos.User, repos.Message)
	owner := seedUser(t, repos, "owner")
	m1 := seedUser(t, repos, "m1")

	group, err := svc.CreateGroup(owner, "before", []string{m1})
	if err != nil {
		t.Fatalf("创建群聊: %v", err)
	}

	if err := svc.RenameGroup(m1, group.Uuid, "hijacked"); !errorx.IsForbidden(err) {
		t.Fatalf("非群主重命名应被拒绝, got %v", err)
	}
	if err := svc.RenameGroup(owner, group.Uuid, "after"); err != nil {
		t.Fatalf("群主重命名: %v", err)
	}

	r, err := repos.Room.FindByUuid(group.Uuid)
	if err != nil {
		t.Fatalf("查询房间: %v", err)
	}
	if r.Name != "after" {
		t.Fatalf("房间名未更新: %s", r.Name)
	}
}
