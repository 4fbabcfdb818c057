package app

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/go-redis/redis"

	"github.com/Gunvolt24/datapipe/config"
	"github.com/Gunvolt24/datapipe/internal/ports"
	"github.com/Gunvolt24/datapipe/internal/queue/ironmq"
	"github.com/Gunvolt24/datapipe/internal/queue/kafka"
	"github.com/Gunvolt24/datapipe/internal/queue/redis"
)

// queues — источники по событиям (в порядке cfg.Queue.Events) и общий издатель.
type queues struct {
	sources   []ports.MessageSource
	publisher ports.Publisher
	closers   []func() error
}

// Close — закрыть всё в обратном порядке; ошибки собираются вместе.
func (q *queues) Close() error {
	var errs []error
	for i := len(q.closers) - 1; i >= 0; i-- {
		if err := q.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// buildQueues — бэкенд очереди по конфигурации.
func buildQueues(ctx context.Context, cfg *config.Config, log ports.Logger) (*queues, error) {
	switch cfg.Queue.Backend {
	case config.BackendKafka:
		return kafkaQueues(cfg, log), nil
	case config.BackendRedis:
		return redisQueues(ctx, cfg, log)
	case config.BackendIronMQ:
		return ironmqQueues(cfg, log), nil
	default:
		return nil, fmt.Errorf("unknown queue backend %q", cfg.Queue.Backend)
	}
}

func kafkaQueues(cfg *config.Config, log ports.Logger) *queues {
	pub := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.TopicPrefix)
	q := &queues{publisher: pub}
	for _, event := range cfg.Queue.Events {
		src := kafka.NewSource(event, &kafka.SourceConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        pub.Topic(event),
			GroupID:      cfg.Kafka.GroupID,
			StartOffset:  cfg.Kafka.StartOffset,
			FetchWait:    cfg.Kafka.FetchWait,
			RetryInitial: cfg.Kafka.RetryInitial,
			RetryMax:     cfg.Kafka.RetryMax,
		}, log)
		q.sources = append(q.sources, src)
		q.closers = append(q.closers, src.Close)
	}
	q.closers = append(q.closers, pub.Close)
	return q
}

func redisQueues(ctx context.Context, cfg *config.Config, log ports.Logger) (*queues, error) {
	db := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := db.WithContext(ctx).Ping().Err(); err != nil {
		// Не фатально: источник переживает недоступность Redis, как загрузчик — недоступность БД.
		log.Warnf(ctx, "redis ping failed addr=%s: %v", cfg.Redis.Addr, err)
	}

	q := &queues{publisher: redis.NewPublisher(db, cfg.Redis.KeyPrefix), closers: []func() error{db.Close}}
	for _, event := range cfg.Queue.Events {
		src := redis.NewSource(db, cfg.Redis.KeyPrefix, event)
		if cfg.Queue.AckMode == config.AckModeCommit {
			n, err := src.Recover(ctx)
			if err != nil {
				log.Warnf(ctx, "recover in-flight messages key=%s: %v", src.Key(), err)
			} else if n > 0 {
				log.Infof(ctx, "recovered %d in-flight messages key=%s", n, src.Key())
			}
		}
		q.sources = append(q.sources, src)
	}
	return q, nil
}

func ironmqQueues(cfg *config.Config, log ports.Logger) *queues {
	client := ironmq.NewClient(ironmq.Config{
		Host:      cfg.IronMQ.Host,
		ProjectID: cfg.IronMQ.ProjectID,
		Token:     cfg.IronMQ.Token,
		RetryMax:  cfg.IronMQ.RetryMax,
		Timeout:   cfg.IronMQ.Timeout,
	}, log)

	q := &queues{publisher: ironmq.NewPublisher(client)}
	for _, event := range cfg.Queue.Events {
		q.sources = append(q.sources, ironmq.NewSource(client, event))
	}
	return q
}
