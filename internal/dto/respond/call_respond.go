package respond

// CallRecordRespond 通话记录
type CallRecordRespond struct {
	Uuid       string `json:"uuid"`
	RoomUuid   string `json:"room_uuid"`
	CallerId   string `json:"caller_id"`
	ReceiverId string `json:"receiver_id"`
	CallKind   string `json:"call_kind"`
	Status     string `json:"status"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time,omitempty"`
	Duration   int    `json:"duration"`
}
