package kafka

import (
	"context"
	"strings"

	"github.com/segmentio/kafka-go"
)

// Topic carries accepted guestbook messages for downstream consumers
// (moderation feeds, notifications).
const Topic = "guestbook.messages"

type KafkaProducerImpl struct {
	writer *kafka.Writer
}

// NewKafkaProducer builds a producer for the comma-separated broker
// list. Returns nil when no brokers are configured, which disables
// publishing upstream.
func NewKafkaProducer(brokers func() string) *KafkaProducerImpl {
	list := brokers()
	if list == "" {
		return nil
	}

	return &KafkaProducerImpl{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(strings.Split(list, ",")...),
			Topic:    Topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (kp *KafkaProducerImpl) SendMessage(key, message []byte) error {
	return kp.writer.WriteMessages(context.Background(),
		kafka.Message{
			Key:   key,
			Value: message,
		},
	)
}

func (kp *KafkaProducerImpl) Close() error {
	return kp.writer.Close()
}
