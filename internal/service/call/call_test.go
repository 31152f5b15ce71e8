package call

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	dao "pulse_chat_server/internal/dao/mysql"
	"pulse_chat_server/internal/dao/mysql/repository"
	"pulse_chat_server/internal/dto/request"
	"pulse_chat_server/internal/dto/respond"
	"pulse_chat_server/internal/model"
	"pulse_chat_server/internal/service/chat"
	"pulse_chat_server/internal/service/notification"
	"pulse_chat_server/pkg/aes"
	"pulse_chat_server/pkg/constants"
	"pulse_chat_server/pkg/errorx"

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

func (f *fakeFanout) kinds() []string {
	out := make([]string, 0, len(f.envs))
	for _, e := range f.envs {
		out = append(out, e.Kind)
	}
	return out
}

func (f *fakeFanout) hasKind(kind string) bool {
	for _, e := range f.envs {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

type fakeChecker struct {
	online map[string]bool
}

func (c *fakeChecker) IsOnline(userUuid string) (bool, error) {
	return c.online[userUuid], nil
}

type fakeDedup struct {
	keys map[string]string
}

func (d *fakeDedup) SetNX(key, value string, _ time.Duration) (bool, error) {
	if d.keys == nil {
		d.keys = make(map[string]string)
	}
	if _, ok := d.keys[key]; ok {
		return false, nil
	}
	d.keys[key] = value
	return true, nil
}

type testEnv struct {
	repos    *repository.Repositories
	fanout   *fakeFanout
	checker  *fakeChecker
	svc      *Service
	caller   string
	receiver string
	room     *model.Room
}

func newTestEnv(t *testing.T) *testEnv {
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
	repos := repository.NewRepositories(db)

	caller, receiver := uuid.NewString(), uuid.NewString()
	key, _ := aes.NewKey()
	room := &model.Room{Uuid: uuid.NewString(), OwnerId: caller, EncryptionKey: key}
	if err := repos.Room.Create(room, []string{caller, receiver}); err != nil {
		t.Fatalf("创建房间: %v", err)
	}

	fanout := &fakeFanout{}
	checker := &fakeChecker{online: map[string]bool{caller: true, receiver: true}}
	notifier := notification.NewService(repos.Notification, nil)
	svc := NewService(repos.Room, repos.Call, fanout, checker, &fakeDedup{}, notifier, time.Minute)

	return &testEnv{
		repos:    repos,
		fanout:   fanout,
		checker:  checker,
		svc:      svc,
		caller:   caller,
		receiver: receiver,
		room:     room,
	}
}

func (e *testEnv) latestRecord(t *testing.T) *model.CallRecord {
	t.Helper()
	records, err := e.repos.Call.HistoryForUser(e.caller, 10)
	if err != nil || len(records) == 0 {
		t.Fatalf("读取通话记录: %v", err)
	}
	return &records[0]
}

func TestStartDeliversOfferToReceiver(t *testing.T) {
	env := newTestEnv(t)

	err := env.svc.Start(env.caller, &request.CallOfferFrame{
		RoomUuid: env.room.Uuid,
		CallKind: constants.CallVideo,
		Sdp:      "offer-sdp",
	})
	if err != nil {
		t.Fatalf("发起通话: %v", err)
	}

	if len(env.fanout.envs) != 1 || env.fanout.envs[0].Kind != respond.FrameCallOffer {
		t.Fatalf("应只投递 call_offer, got %v", env.fanout.kinds())
	}
	offerEnv := env.fanout.envs[0]
	if len(offerEnv.Targets) != 1 || offerEnv.Targets[0] != env.receiver {
		t.Fatalf("offer 目标应为被叫, got %v", offerEnv.Targets)
	}

	record := env.latestRecord(t)
	if record.Status != constants.CallOngoing {
		t.Fatalf("通话状态应为 ongoing, got %s", record.Status)
	}
}

func TestStartDedupsRepeatOffers(t *testing.T) {
	env := newTestEnv(t)

	req := &request.CallOfferFrame{RoomUuid: env.room.Uuid, CallKind: constants.CallAudio, Sdp: "sdp"}
	if err := env.svc.Start(env.caller, req); err != nil {
		t.Fatalf("首次发起: %v", err)
	}
	if err := env.svc.Start(env.caller, req); err == nil {
		t.Fatal("去重窗口内重复发起应失败")
	}
	if len(env.fanout.envs) != 1 {
		t.Fatalf("重复发起不应再投 offer, got %v", env.fanout.kinds())
	}
}

func TestStartOfflineReceiverRecordsMissedWithoutSignal(t *testing.T) {
	env := newTestEnv(t)
	env.checker.online[env.receiver] = false

	err := env.svc.Start(env.caller, &request.CallOfferFrame{
		RoomUuid: env.room.Uuid,
		CallKind: constants.CallAudio,
		Sdp:      "sdp",
	})
	if err != nil {
		t.Fatalf("对离线用户发起: %v", err)
	}

	if env.fanout.hasKind(respond.FrameCallOffer) {
		t.Fatal("对离线用户不应投递 offer")
	}

	record := env.latestRecord(t)
	if record.Status != constants.CallMissed {
		t.Fatalf("状态应为 missed, got %s", record.Status)
	}
	if record.Duration != 0 {
		t.Fatalf("未接通话时长应为 0, got %d", record.Duration)
	}

	// 未接来电落一条通知给被叫
	items, err := env.repos.Notification.ListByOwner(env.receiver, 10)
	if err != nil {
		t.Fatalf("读取通知: %v", err)
	}
	if len(items) != 1 || items[0].Kind != constants.NotifyCall {
		t.Fatalf("应有一条未接来电通知, got %+v", items)
	}
}

func TestAnswerRejectTerminatesAsRejected(t *testing.T) {
	env := newTestEnv(t)

	if err := env.svc.Start(env.caller, &request.CallOfferFrame{RoomUuid: env.room.Uuid, CallKind: constants.CallAudio, Sdp: "sdp"}); err != nil {
		t.Fatalf("发起通话: %v", err)
	}
	record := env.latestRecord(t)

	// 非被叫应答被拒
	if err := env.svc.Answer(uuid.NewString(), &request.CallAnswerFrame{CallId: record.Uuid, Accept: true}); !errorx.IsForbidden(err) {
		t.Fatalf("非被叫应答应被拒绝, got %v", err)
	}

	if err := env.svc.Answer(env.receiver, &request.CallAnswerFrame{CallId: record.Uuid, Accept: false}); err != nil {
		t.Fatalf("拒接: %v", err)
	}

	after := env.latestRecord(t)
	if after.Status != constants.CallRejected || after.Duration != 0 {
		t.Fatalf("拒接后状态应为 rejected/0s, got %s/%d", after.Status, after.Duration)
	}
}

func TestEndIsIdempotent(t *testing.T) {
	env := newTestEnv(t)

	if err := env.svc.Start(env.caller, &request.CallOfferFrame{RoomUuid: env.room.Uuid, CallKind: constants.CallVideo, Sdp: "sdp"}); err != nil {
		t.Fatalf("发起通话: %v", err)
	}
	record := env.latestRecord(t)

	if err := env.svc.Answer(env.receiver, &request.CallAnswerFrame{CallId: record.Uuid, Accept: true, Sdp: "answer"}); err != nil {
		t.Fatalf("接听: %v", err)
	}

	if err := env.svc.End(env.caller, &request.CallEndedFrame{CallId: record.Uuid}); err != nil {
		t.Fatalf("挂断: %v", err)
	}
	envCount := len(env.fanout.envs)
	if !env.fanout.hasKind(respond.FrameCallEnded) || !env.fanout.hasKind(respond.FrameCallHistoryUpdate) {
		t.Fatalf("挂断应广播 call_ended 与 call_history_update, got %v", env.fanout.kinds())
	}

	// 另一端重复挂断：成功但不再广播也不改写记录
	if err := env.svc.End(env.receiver, &request.CallEndedFrame{CallId: record.Uuid}); err != nil {
		t.Fatalf("重复挂断应幂等成功: %v", err)
	}
	if len(env.fanout.envs) != envCount {
		t.Fatalf("重复挂断不应再广播, got %v", env.fanout.kinds())
	}

	after := env.latestRecord(t)
	if after.Status != constants.CallCompleted {
		t.Fatalf("状态应为 completed, got %s", after.Status)
	}
	if !after.EndTime.Valid {
		t.Fatal("结束时间应已写入")
	}
}

func TestRelayICEOnlyBetweenParticipants(t *testing.T) {
	env := newTestEnv(t)

	if err := env.svc.Start(env.caller, &request.CallOfferFrame{RoomUuid: env.room.Uuid, CallKind: constants.CallAudio, Sdp: "sdp"}); err != nil {
		t.Fatalf("发起通话: %v", err)
	}
	record := env.latestRecord(t)

	if err := env.svc.RelayICE(uuid.NewString(), &request.IceCandidateFrame{CallId: record.Uuid, Candidate: "c"}); !errorx.IsForbidden(err) {
		t.Fatalf("外人转发 ICE 应被拒绝, got %v", err)
	}

	if err := env.svc.RelayICE(env.receiver, &request.IceCandidateFrame{CallId: record.Uuid, Candidate: "c"}); err != nil {
		t.Fatalf("被叫转发 ICE: %v", err)
	}

	last := env.fanout.envs[len(env.fanout.envs)-1]
	if last.Kind != respond.FrameIceCandidate {
		t.Fatalf("最后一个信封应为 ice_candidate, got %s", last.Kind)
	}
	if len(last.Targets) != 1 || last.Targets[0] != env.caller {
		t.Fatalf("ICE 应转发给对端, got %v", last.Targets)
	}

	var outer respond.WsFrame
	if err := json.Unmarshal(last.Frame, &outer); err != nil {
		t.Fatalf("解析 ICE 帧: %v", err)
	}
	if outer.Type != respond.FrameIceCandidate {
		t.Fatalf("帧类型应为 ice_candidate, got %s", outer.Type)
	}
}

func TestStartRejectsGroupRoomAndOutsider(t *testing.T) {
	env := newTestEnv(t)

	key, _ := aes.NewKey()
	group := &model.Room{Uuid: uuid.NewString(), IsGroup: true, OwnerId: env.caller, Name: "g", EncryptionKey: key}
	third := uuid.NewString()
	if err := env.repos.Room.Create(group, []string{env.caller, env.receiver, third}); err != nil {
		t.Fatalf("创建群聊: %v", err)
	}

	if err := env.svc.Start(env.caller, &request.CallOfferFrame{RoomUuid: group.Uuid, CallKind: constants.CallAudio}); err == nil {
		t.Fatal("群聊房间发起通话应失败")
	}
	if err := env.svc.Start(uuid.NewString(), &request.CallOfferFrame{RoomUuid: env.room.Uuid, CallKind: constants.CallAudio}); !errorx.IsForbidden(err) {
		t.Fatalf("非成员发起通话应被拒绝, got %v", err)
	}
	if len(env.fanout.envs) != 0 {
		t.Fatal("失败的发起不应产生信令")
	}
}
