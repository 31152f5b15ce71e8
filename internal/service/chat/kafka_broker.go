package chat

import (
	"context"
	"fmt"
	"time"

	"pulse_chat_server/internal/config"
	"pulse_chat_server/pkg/util/snowflake"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaBroker 跨实例信封复制
// 每个实例用独立的 consumer group（机器号后缀），
// 保证一条信封被所有实例各消费一次，而不是组内只消费一次
type KafkaBroker struct {
	writer *kafka.Writer
	reader *kafka.Reader
	cancel context.CancelFunc
}

// NewKafkaBroker 创建 Kafka Broker
func NewKafkaBroker() *KafkaBroker {
	conf := config.GetConfig().KafkaConfig

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(conf.HostPort),
		Topic:                  conf.EventTopic,
		Balancer:               &kafka.Hash{},
		WriteTimeout:           1 * time.Second,
		RequiredAcks:           kafka.RequireNone,
		AllowAutoTopicCreation: true,
	}

	groupId := fmt.Sprintf("pulse_chat_fanout_%d", snowflake.MachineID())
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:          []string{conf.HostPort},
		Topic:            conf.EventTopic,
		GroupID:          groupId,
		CommitInterval:   time.Second,
		StartOffset:      kafka.LastOffset,
		MaxWait:          500 * time.Millisecond,
		ReadBatchTimeout: time.Duration(conf.Timeout) * time.Second,
	})

	zap.L().Info("Kafka broker ready",
		zap.String("topic", conf.EventTopic),
		zap.String("group", groupId))

	return &KafkaBroker{writer: writer, reader: reader}
}

func (b *KafkaBroker) Publish(data []byte) error {
	return b.writer.WriteMessages(context.Background(), kafka.Message{
		Value: data,
	})
}

func (b *KafkaBroker) Subscribe(handler func(data []byte)) {
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel

	go func() {
		for {
			msg, err := b.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				zap.L().Error("Kafka read failed", zap.Error(err))
				time.Sleep(time.Second)
				continue
			}
			handler(msg.Value)
		}
	}()
}

func (b *KafkaBroker) Close() error {
	if b.cancel != nil {
		b.cancel()
	}
	if err := b.reader.Close(); err != nil {
		zap.L().Error("关闭 Kafka reader 失败", zap.Error(err))
	}
	return b.writer.Close()
}
