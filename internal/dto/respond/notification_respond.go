package respond

// NotificationRespond 通知列表条目
type NotificationRespond struct {
	Uuid      int64  `json:"uuid"`
	ActorId   string `json:"actor_id"`
	Kind      string `json:"kind"`
	Payload   string `json:"payload"`
	IsRead    bool   `json:"is_read"`
	CreatedAt string `json:"created_at"`
}
