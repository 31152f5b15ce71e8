package registry

import (
	"sync"
	"testing"
	"time"

	"pulse_chat_server/internal/service/chat"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]map[string]string
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]map[string]string)}
}

func (s *memStore) HSet(key, field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data[key] == nil {
		s.data[key] = make(map[string]string)
	}
	s.data[key][field] = value
	return nil
}

func (s *memStore) HGetAll(key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.data[key]))
	for k, v := range s.data[key] {
		out[k] = v
	}
	return out, nil
}

func (s *memStore) HDel(key string, fields ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range fields {
		delete(s.data[key], f)
	}
	return nil
}

func (s *memStore) Expire(string, time.Duration) error { return nil }

type memFanout struct {
	mu   sync.Mutex
	envs []*chat.Envelope
}

func (f *memFanout) Publish(env *chat.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.envs = append(f.envs, env)
	return nil
}

func (f *memFanout) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.envs)
}

func (f *memFanout) last() *chat.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.envs) == 0 {
		return nil
	}
	return f.envs[len(f.envs)-1]
}

type stubCalls struct {
	ongoing bool
}

func (c *stubCalls) HasOngoingForUser(string) (bool, error) { return c.ongoing, nil }

func waitFor(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestAdmitReturnsPreviousConnections(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, &stubCalls{}, time.Millisecond)

	prev, err := svc.Admit("user-1", "conn-a", "sess-1")
	if err != nil {
		t.Fatalf("首次登记: %v", err)
	}
	if len(prev) != 0 {
		t.Fatalf("首次登记不应有旧连接, got %v", prev)
	}

	prev, err = svc.Admit("user-1", "conn-b", "sess-2")
	if err != nil {
		t.Fatalf("二次登记: %v", err)
	}
	if len(prev) != 1 || prev[0] != "conn-a" {
		t.Fatalf("应返回旧连接 conn-a, got %v", prev)
	}

	// 同一 session 的重连不计入待顶替连接
	prev, err = svc.Admit("user-1", "conn-c", "sess-2")
	if err != nil {
		t.Fatalf("同会话重连登记: %v", err)
	}
	if len(prev) != 1 || prev[0] != "conn-a" {
		t.Fatalf("同会话连接应被跳过, got %v", prev)
	}

	entries, err := svc.ListActive("user-1")
	if err != nil {
		t.Fatalf("列出连接: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("注册表应有三条连接, got %d", len(entries))
	}
}

func TestRevokeAndIsOnline(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, &stubCalls{}, time.Millisecond)

	if _, err := svc.Admit("user-1", "conn-a", "s"); err != nil {
		t.Fatalf("登记: %v", err)
	}
	online, _ := svc.IsOnline("user-1")
	if !online {
		t.Fatal("登记后应在线")
	}

	if err := svc.Revoke("user-1", "conn-a"); err != nil {
		t.Fatalf("注销: %v", err)
	}
	online, _ = svc.IsOnline("user-1")
	if online {
		t.Fatal("注销后应离线")
	}
}

func TestListActivePrunesMalformedEntries(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, &stubCalls{}, time.Millisecond)

	if _, err := svc.Admit("user-1", "conn-a", "s"); err != nil {
		t.Fatalf("登记: %v", err)
	}
	_ = store.HSet(connKey("user-1"), "conn-bad", "{not json")
	_ = store.HSet(connKey("user-1"), "conn-empty", "{}")

	entries, err := svc.ListActive("user-1")
	if err != nil {
		t.Fatalf("列出连接: %v", err)
	}
	if len(entries) != 1 || entries[0].ConnectionId != "conn-a" {
		t.Fatalf("畸形条目应被跳过, got %+v", entries)
	}

	// 畸形条目应被就地清理
	fields, _ := store.HGetAll(connKey("user-1"))
	if len(fields) != 1 {
		t.Fatalf("畸形条目应被删除, got %v", fields)
	}
}

func TestSignalReplacementTargetsOldConnsAfterGrace(t *testing.T) {
	store := newMemStore()
	fanout := &memFanout{}
	svc := NewService(store, &stubCalls{}, 5*time.Millisecond)
	svc.SetFanout(fanout)

	svc.SignalReplacement("user-1", "conn-new", []string{"conn-old"})

	if !waitFor(t, func() bool { return fanout.count() == 1 }) {
		t.Fatal("宽限期后应发出顶替信号")
	}
	env := fanout.last()
	if len(env.OnlyConns) != 1 || env.OnlyConns[0] != "conn-old" {
		t.Fatalf("信号应只发给旧连接, got %v", env.OnlyConns)
	}
	if len(env.Targets) != 1 || env.Targets[0] != "user-1" {
		t.Fatalf("信号目标应为该用户, got %v", env.Targets)
	}
}

func TestSignalReplacementSkippedDuringCall(t *testing.T) {
	store := newMemStore()
	fanout := &memFanout{}
	svc := NewService(store, &stubCalls{ongoing: true}, time.Millisecond)
	svc.SetFanout(fanout)

	svc.SignalReplacement("user-1", "conn-new", []string{"conn-old"})

	time.Sleep(50 * time.Millisecond)
	if fanout.count() != 0 {
		t.Fatal("通话中不应发顶替信号")
	}
}
