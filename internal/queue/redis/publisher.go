package redis

import (
	"context"
	"fmt"

	"github.com/go-redis/redis"

	"github.com/Gunvolt24/datapipe/internal/ports"
)

var _ ports.Publisher = (*Publisher)(nil)

// Publisher — RPUSH в список keyPrefix+queue.
type Publisher struct {
	db        *redis.Client
	keyPrefix string
}

func NewPublisher(db *redis.Client, keyPrefix string) *Publisher {
	return &Publisher{db: db, keyPrefix: keyPrefix}
}

func (p *Publisher) Publish(ctx context.Context, queue, body string) error {
	key := p.keyPrefix + queue
	if err := p.db.WithContext(ctx).RPush(key, body).Err(); err != nil {
		return fmt.Errorf("redis publish key=%s: %w", key, err)
	}
	return nil
}

// Close — клиент общий, закрывается владельцем.
func (p *Publisher) Close() error { return nil }
