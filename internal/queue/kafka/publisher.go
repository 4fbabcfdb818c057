package kafka

import (
	"context"
	"fmt"
	"sync"

	"github.com/segmentio/kafka-go"

	"github.com/Gunvolt24/datapipe/internal/ports"
)

// Проверка, что Publisher удовлетворяет порту публикации.
var _ ports.Publisher = (*Publisher)(nil)

// writer — минимальный контракт над kafka.Writer.
type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher — запись событий в топик <prefix><queue>.
type Publisher struct {
	writer      writer
	topicPrefix string
	closeOnce   sync.Once
}

// NewPublisher — writer без фиксированного топика: топик задаётся в каждом сообщении.
func NewPublisher(brokers []string, topicPrefix string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			RequiredAcks:           kafka.RequireAll,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		},
		topicPrefix: topicPrefix,
	}
}

// Topic — имя топика для очереди.
func (p *Publisher) Topic(queue string) string { return p.topicPrefix + queue }

func (p *Publisher) Publish(ctx context.Context, queue, body string) error {
	msg := kafka.Message{Topic: p.Topic(queue), Value: []byte(body)}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish topic=%s: %w", msg.Topic, err)
	}
	return nil
}

func (p *Publisher) Close() (retErr error) {
	p.closeOnce.Do(func() {
		retErr = p.writer.Close()
	})
	return retErr
}
