// Package kafka — очередь событий поверх топиков Kafka: один топик на тип события,
// "удаление" сообщения — коммит его оффсета в consumer group.
package kafka

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Gunvolt24/datapipe/internal/ports"
)

// Проверка, что Source удовлетворяет портам очереди.
var (
	_ ports.MessageSource = (*Source)(nil)
	_ ports.Acknowledger  = (*Source)(nil)
)

// reader — минимальный контракт над kafka.Reader, чтобы подменять его моками в тестах.
type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Config() kafka.ReaderConfig
	Close() error
}

// Source — очередь одного типа события.
// pending — выданные в режиме подтверждения, но не закоммиченные сообщения;
// redeliver — возвращённые Release, их Reserve отдаёт первыми.
type Source struct {
	name         string
	reader       reader
	log          ports.Logger
	fetchWait    time.Duration
	retryInitial time.Duration
	retryMax     time.Duration
	jitterRand   *rand.Rand

	mu        sync.Mutex
	pending   []kafka.Message
	redeliver []kafka.Message
	closeOnce sync.Once
}

// NewSource — конструктор. name — логическое имя очереди (тип события).
func NewSource(name string, cfg *SourceConfig, log ports.Logger) *Source {
	return newSource(name, kafka.NewReader(cfg.ReaderConfig()), cfg, log)
}

func newSource(name string, r reader, cfg *SourceConfig, log ports.Logger) *Source {
	// Параметры по умолчанию (если не заданы в конфиге)
	fw := cfg.FetchWait
	if fw <= 0 {
		fw = 500 * time.Millisecond
	}

	rInit := cfg.RetryInitial
	if rInit <= 0 {
		rInit = 50 * time.Millisecond
	}

	rMax := cfg.RetryMax
	if rMax <= 0 {
		rMax = fw
	}

	return &Source{
		name:         name,
		reader:       r,
		log:          log,
		fetchWait:    fw,
		retryInitial: rInit,
		retryMax:     rMax,
		// jitterRand — источник случайности, чтобы рассинхронизировать экспоненциальный backoff.
		jitterRand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Source) Name() string { return s.name }

// Reserve — до max сообщений, собранных за окно FetchWait.
// Пустое окно — пустой результат без ошибки. deleteOnReserve — сразу коммитим оффсеты.
func (s *Source) Reserve(ctx context.Context, max int, deleteOnReserve bool) ([]ports.Message, error) {
	if max <= 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := s.takeRedelivered(max)
	fetched, err := s.fetch(ctx, max-len(batch))
	batch = append(batch, fetched...)
	if len(batch) == 0 && err != nil {
		return nil, fmt.Errorf("kafka fetch topic=%s: %w", s.reader.Config().Topic, err)
	}
	if len(batch) == 0 {
		return nil, nil
	}

	if deleteOnReserve {
		// Коммит не удался — сообщения могут прийти ещё раз после ребаланса (at-least-once).
		s.commitSafely(ctx, batch)
	} else {
		s.pending = append(s.pending, batch...)
	}
	return toMessages(batch), nil
}

// fetch читает до n сообщений; ошибки брокера ретраятся с backoff, пока не истечёт окно.
func (s *Source) fetch(ctx context.Context, n int) ([]kafka.Message, error) {
	if n <= 0 {
		return nil, nil
	}
	fctx, cancel := context.WithTimeout(ctx, s.fetchWait)
	defer cancel()

	var (
		out     []kafka.Message
		lastErr error
		retry   = s.retryInitial
	)
	for len(out) < n {
		msg, err := s.reader.FetchMessage(fctx)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			if fctx.Err() != nil {
				// Окно выборки истекло — отдаём что успели.
				return out, lastErr
			}
			lastErr = err
			sleep := s.withJitterEqual(retry)
			s.log.Warnf(ctx, "fetch failed queue=%s: %v (will retry in %s)", s.name, err, sleep)
			if !sleepWithBackoff(fctx, sleep) {
				return out, lastErr
			}
			retry = s.nextBackoff(retry)
			continue
		}
		lastErr, retry = nil, s.retryInitial
		out = append(out, msg)
	}
	return out, nil
}

func (s *Source) takeRedelivered(max int) []kafka.Message {
	n := min(max, len(s.redeliver))
	if n == 0 {
		return nil
	}
	out := make([]kafka.Message, n, max)
	copy(out, s.redeliver[:n])
	s.redeliver = s.redeliver[n:]
	return out
}

// Ack — закоммитить всё, что выдано в режиме подтверждения.
func (s *Source) Ack(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return nil
	}
	pending := s.pending
	s.pending = nil
	if err := s.reader.CommitMessages(ctx, pending...); err != nil {
		return fmt.Errorf("kafka commit queue=%s: %w", s.name, err)
	}
	return nil
}

// Release — вернуть незакоммиченное: reader уже ушёл дальше по партиции,
// поэтому сообщения держим в памяти и отдаём следующим Reserve.
func (s *Source) Release(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return nil
	}
	s.redeliver = append(s.pending, s.redeliver...)
	s.pending = nil
	return nil
}

// Close - закрывает reader. Вызывается при остановке приложения.
func (s *Source) Close() (retErr error) {
	s.closeOnce.Do(func() {
		retErr = s.reader.Close()
	})
	return retErr
}

func toMessages(batch []kafka.Message) []ports.Message {
	out := make([]ports.Message, 0, len(batch))
	for i := range batch {
		out = append(out, ports.Message{
			ID:   fmt.Sprintf("%d:%d", batch[i].Partition, batch[i].Offset),
			Body: string(batch[i].Value),
		})
	}
	return out
}
