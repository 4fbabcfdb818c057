package kafka

import (
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// SourceConfig — настройки чтения одного топика-очереди.
type SourceConfig struct {
	Brokers     []string
	Topic       string
	GroupID     string
	StartOffset string        // first|last
	FetchWait   time.Duration // сколько ждать сообщений в одном Reserve

	// Backoff на ошибках брокера внутри окна FetchWait.
	RetryInitial time.Duration
	RetryMax     time.Duration
}

// ReaderConfig — конфиг kafka.Reader с ручным коммитом оффсетов.
func (c *SourceConfig) ReaderConfig() kafka.ReaderConfig {
	rc := kafka.ReaderConfig{
		Brokers:        c.Brokers,
		GroupID:        c.GroupID,
		Topic:          c.Topic,
		CommitInterval: 0,
	}

	switch strings.ToLower(strings.TrimSpace(c.StartOffset)) {
	case "first":
		rc.StartOffset = kafka.FirstOffset
	default:
		rc.StartOffset = kafka.LastOffset
	}

	return rc
}
