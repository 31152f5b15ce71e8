package chat

import (
	"sync"
)

// ConnManager 本实例的连接表
// 按连接号索引全量连接，按用户号维护二级索引（一人多端）
type ConnManager struct {
	conns sync.Map // connId -> *UserConn

	mu     sync.RWMutex
	byUser map[string]map[string]*UserConn // userUuid -> connId -> conn
}

// NewConnManager 创建连接表
func NewConnManager() *ConnManager {
	return &ConnManager{
		byUser: make(map[string]map[string]*UserConn),
	}
}

// Add 登记连接
func (m *ConnManager) Add(conn *UserConn) {
	m.conns.Store(conn.ConnId, conn)

	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.byUser[conn.UserUuid]
	if !ok {
		set = make(map[string]*UserConn)
		m.byUser[conn.UserUuid] = set
	}
	set[conn.ConnId] = conn
}

// Remove 注销连接，返回该用户本实例剩余连接数
func (m *ConnManager) Remove(conn *UserConn) int {
	m.conns.Delete(conn.ConnId)

	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.byUser[conn.UserUuid]
	if !ok {
		return 0
	}
	delete(set, conn.ConnId)
	if len(set) == 0 {
		delete(m.byUser, conn.UserUuid)
		return 0
	}
	return len(set)
}

// Get 按连接号取连接
func (m *ConnManager) Get(connId string) (*UserConn, bool) {
	v, ok := m.conns.Load(connId)
	if !ok {
		return nil, false
	}
	return v.(*UserConn), true
}

// ConnsOf 某用户在本实例的全部连接
func (m *ConnManager) ConnsOf(userUuid string) []*UserConn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set := m.byUser[userUuid]
	out := make([]*UserConn, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

// Range 遍历本实例全部连接
func (m *ConnManager) Range(fn func(conn *UserConn) bool) {
	m.conns.Range(func(_, v interface{}) bool {
		return fn(v.(*UserConn))
	})
}

// Count 本实例连接数
func (m *ConnManager) Count() int {
	n := 0
	m.conns.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}
