// Package chat 实现 WebSocket 接入层与跨实例消息扇出
// Server 维护本实例的连接表，Envelope 经 Broker 在实例间复制
package chat

import "encoding/json"

// Envelope 一次扇出的投递单元
// Targets 为空表示广播给全部在线连接
// Frames 存在时按用户覆盖 Frame（收件人视角字段不同，如未读数）
// OnlyConns 非空时只投给指定连接（连接顶替信号用）
type Envelope struct {
	Kind      string            `json:"kind"`
	Origin    int64             `json:"origin,omitempty"`
	Targets   []string          `json:"targets,omitempty"`
	OnlyConns []string          `json:"only_conns,omitempty"`
	Frame     []byte            `json:"frame,omitempty"`
	Frames    map[string][]byte `json:"frames,omitempty"`
}

// Encode 序列化信封，供 Broker 跨实例传输
func (e *Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEnvelope 反序列化信封
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// frameFor 取某用户应收到的帧字节
func (e *Envelope) frameFor(userUuid string) []byte {
	if e.Frames != nil {
		if frame, ok := e.Frames[userUuid]; ok {
			return frame
		}
	}
	return e.Frame
}

// Fanout 服务层依赖的扇出入口
// 由 Server 实现，测试里用内存假实现替换
type Fanout interface {
	Publish(env *Envelope) error
}
