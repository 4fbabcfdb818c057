//go:build integration

package testutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// UniqueQueuePrefix — уникальный префикс топиков-очередей и группа читателей для одного теста.
// Пример: base="dp-pipeline" → "dp-pipeline-1a2b3c4d5e6f-" и "dp-pipeline-1a2b3c4d5e6f".
func UniqueQueuePrefix(base string) (topicPrefix, group string) {
	group = base + "-" + UniqSuffix()
	return group + "-", group
}

// EnsureTopics — создаёт топики очередей (существующие — не ошибка) и ждёт их готовности.
// Параметр broker может быть:
//   - "host:port"
//   - "PLAINTEXT://host:port" (как отдаёт testcontainers)
//   - "host1:port1,host2:port2" (берётся первый)
func EnsureTopics(ctx context.Context, broker string, topics ...string) error {
	addr := firstBootstrap(broker)

	conn, err := kafka.Dial("tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	// топики создаёт контроллер кластера
	ctrl, err := conn.Controller()
	if err != nil {
		return err
	}
	admin, err := kafka.Dial("tcp", net.JoinHostPort(ctrl.Host, strconv.Itoa(ctrl.Port)))
	if err != nil {
		return err
	}
	defer admin.Close()

	configs := make([]kafka.TopicConfig, 0, len(topics))
	for _, topic := range topics {
		// одна партиция: порядок очереди совпадает с порядком публикации
		configs = append(configs, kafka.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1})
	}
	if err := admin.CreateTopics(configs...); err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
		return err
	}

	for _, topic := range topics {
		if err := waitTopicReady(ctx, addr, topic); err != nil {
			return err
		}
	}
	return nil
}

// firstBootstrap берёт первый адрес из bootstrap-строки и снимает схему вида "PLAINTEXT://".
func firstBootstrap(raw string) string {
	first := strings.TrimSpace(strings.Split(raw, ",")[0])
	if strings.Contains(first, "://") {
		if u, err := url.Parse(first); err == nil && u.Host != "" {
			return u.Host
		}
	}
	return first
}

func waitTopicReady(ctx context.Context, broker, topic string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	var lastErr error
	for {
		c, err := kafka.Dial("tcp", broker)
		if err == nil {
			parts, perr := c.ReadPartitions(topic)
			_ = c.Close()
			if perr == nil && len(parts) > 0 {
				return nil
			}
			err = perr
		}
		lastErr = err

		select {
		case <-ctx.Done():
			if lastErr != nil {
				return fmt.Errorf("topic %q not ready: %w", topic, lastErr)
			}
			return fmt.Errorf("topic %q not ready: %w", topic, ctx.Err())
		case <-ticker.C:
		}
	}
}
