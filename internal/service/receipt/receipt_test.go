package receipt

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	dao "pulse_chat_server/internal/dao/mysql"
	"pulse_chat_server/internal/dao/mysql/repository"
	"pulse_chat_server/internal/model"
	"pulse_chat_server/internal/service/chat"
	"pulse_chat_server/internal/dto/respond"
	"pulse_chat_server/pkg/aes"
	"pulse_chat_server/pkg/errorx"
	"pulse_chat_server/pkg/util/snowflake"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeFanout struct {
	envs []*chat.Envelope
}

func (f *fakeFanout) Publish(env *chat.Envelope) error {
	f.envs = append(f.envs, env)
	return nil
}

type syncRunner struct{}

func (syncRunner) SubmitTask(action func()) { action() }

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

func seedRoomWithMessages(t *testing.T, repos *repository.Repositories, sender, reader string, n int) *model.Room {
	t.Helper()
	key, err := aes.NewKey()
	if err != nil {
		t.Fatalf("生成密钥: %v", err)
	}
	room := &model.Room{Uuid: uuid.NewString(), OwnerId: sender, EncryptionKey: key}
	if err := repos.Room.Create(room, []string{sender, reader}); err != nil {
		t.Fatalf("创建房间: %v", err)
	}
	for i := 0; i < n; i++ {
		msg := &model.Message{
			Uuid:       snowflake.GenerateID(),
			RoomUuid:   room.Uuid,
			SenderId:   sender,
			Ciphertext: "cipher",
			SentAt:     time.Now(),
		}
		if err := repos.Message.Create(msg); err != nil {
			t.Fatalf("写入消息: %v", err)
		}
	}
	return room
}

func TestMarkReadSharesTimestampAndBroadcastsOnce(t *testing.T) {
	repos := newTestRepos(t)
	fanout := &fakeFanout{}
	svc := NewService(repos.Room, repos.Message, fanout, syncRunner{})

	sender, reader := uuid.NewString(), uuid.NewString()
	room := seedRoomWithMessages(t, repos, sender, reader, 3)

	if err := svc.MarkRead(reader, room.Uuid); err != nil {
		t.Fatalf("标记已读: %v", err)
	}

	unread, err := repos.Message.CountUnread(room.Uuid, reader)
	if err != nil {
		t.Fatalf("重算未读: %v", err)
	}
	if unread != 0 {
		t.Fatalf("已读后未读数应为 0, got %d", unread)
	}

	// 同一批消息共享同一个 read_at
	msgs, err := repos.Message.FindByRoom(room.Uuid, 10)
	if err != nil {
		t.Fatalf("读取消息: %v", err)
	}
	var readAt time.Time
	for i, m := range msgs {
		if !m.IsRead || !m.ReadAt.Valid {
			t.Fatalf("消息 %d 未标记已读", i)
		}
		if i == 0 {
			readAt = m.ReadAt.Time
		} else if !m.ReadAt.Time.Equal(readAt) {
			t.Fatalf("read_at 不一致: %v != %v", m.ReadAt.Time, readAt)
		}
	}

	if len(fanout.envs) != 1 {
		t.Fatalf("应广播一次回执, got %d", len(fanout.envs))
	}
	var outer respond.WsFrame
	if err := json.Unmarshal(fanout.envs[0].Frame, &outer); err != nil {
		t.Fatalf("解析回执帧: %v", err)
	}
	if outer.Type != respond.FrameMarkAsRead {
		t.Fatalf("帧类型应为 mark_as_read, got %s", outer.Type)
	}
}

func TestMarkReadNoopWhenNothingUnread(t *testing.T) {
	repos := newTestRepos(t)
	fanout := &fakeFanout{}
	svc := NewService(repos.Room, repos.Message, fanout, syncRunner{})

	sender, reader := uuid.NewString(), uuid.NewString()
	room := seedRoomWithMessages(t, repos, sender, reader, 1)

	if err := svc.MarkRead(reader, room.Uuid); err != nil {
		t.Fatalf("首次标记已读: %v", err)
	}
	if err := svc.MarkRead(reader, room.Uuid); err != nil {
		t.Fatalf("重复标记应静默成功: %v", err)
	}
	if len(fanout.envs) != 1 {
		t.Fatalf("无未读时不应再广播, got %d", len(fanout.envs))
	}
}

func TestMarkReadIgnoresOwnMessages(t *testing.T) {
	repos := newTestRepos(t)
	fanout := &fakeFanout{}
	svc := NewService(repos.Room, repos.Message, fanout, syncRunner{})

	sender, reader := uuid.NewString(), uuid.NewString()
	room := seedRoomWithMessages(t, repos, sender, reader, 1)

	// 发送者视角：房间里没有发给自己的未读
	if err := svc.MarkRead(sender, room.Uuid); err != nil {
		t.Fatalf("发送者标记已读: %v", err)
	}
	if len(fanout.envs) != 0 {
		t.Fatal("自己发的消息不应触发回执广播")
	}
	unread, _ := repos.Message.CountUnread(room.Uuid, reader)
	if unread != 1 {
		t.Fatalf("接收者未读数不应被发送者操作影响, got %d", unread)
	}
}

func TestMarkReadRejectsNonMember(t *testing.T) {
	repos := newTestRepos(t)
	fanout := &fakeFanout{}
	svc := NewService(repos.Room, repos.Message, fanout, syncRunner{})

	sender, reader := uuid.NewString(), uuid.NewString()
	room := seedRoomWithMessages(t, repos, sender, reader, 1)

	if err := svc.MarkRead(uuid.NewString(), room.Uuid); !errorx.IsForbidden(err) {
		t.Fatalf("非成员标记已读应被拒绝, got %v", err)
	}
}
