package chat

import "pulse_chat_server/pkg/constants"

// Broker 实例间信封复制通道
// 单机部署用 ChannelBroker，多实例部署用 KafkaBroker
type Broker interface {
	// Publish 把编码后的信封发布给其它实例
	Publish(data []byte) error
	// Subscribe 注册回调，收到其它实例发布的信封时触发
	Subscribe(handler func(data []byte))
	// Close 关闭底层资源
	Close() error
}

// ChannelBroker 进程内通道实现
// 单实例部署时信封只需回流给本进程的投递循环
type ChannelBroker struct {
	ch      chan []byte
	done    chan struct{}
	handler func(data []byte)
}

// NewChannelBroker 创建进程内 Broker
func NewChannelBroker() *ChannelBroker {
	return &ChannelBroker{
		ch:   make(chan []byte, constants.CHANNEL_SIZE),
		done: make(chan struct{}),
	}
}

func (b *ChannelBroker) Publish(data []byte) error {
	select {
	case b.ch <- data:
	case <-b.done:
	}
	return nil
}

func (b *ChannelBroker) Subscribe(handler func(data []byte)) {
	b.handler = handler
	go func() {
		for {
			select {
			case data := <-b.ch:
				b.handler(data)
			case <-b.done:
				return
			}
		}
	}()
}

func (b *ChannelBroker) Close() error {
	close(b.done)
	return nil
}
