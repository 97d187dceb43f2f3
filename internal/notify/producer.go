package notify

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// Kafkaプロデューサ（同期送信）。
// アウトボックスのMarkPublishedは送信成功後にしか呼ばないので、
// fire-and-forgetではなくWriteMessagesの結果を返す。
type Producer struct {
	w *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

// Publish はkeyで同一注文を同一パーティションへ寄せる。
func (p *Producer) Publish(ctx context.Context, key, value []byte) error {
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: value,
	})
}

func (p *Producer) Close() error {
	return p.w.Close()
}
