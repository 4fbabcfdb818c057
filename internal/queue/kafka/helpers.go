package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// commitSafely пытается закоммитить оффсеты и логирует ошибку.
func (s *Source) commitSafely(ctx context.Context, msgs []kafka.Message) {
	if err := s.reader.CommitMessages(ctx, msgs...); err != nil {
		last := msgs[len(msgs)-1]
		s.log.Warnf(ctx, "commit failed queue=%s offset=%d: %v", s.name, last.Offset, err)
	}
}

// sleepWithBackoff ждет backoff или останавливается по контексту.
func sleepWithBackoff(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// nextBackoff возвращает следующее время ожидания повтора с учетом retryMax.
func (s *Source) nextBackoff(current time.Duration) time.Duration {
	return min(current*2, s.retryMax)
}

// withJitterEqual — половина задержки фиксирована, вторая половина случайна.
func (s *Source) withJitterEqual(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	half := d / 2
	jitter := time.Duration(s.jitterRand.Int63n(int64(d-half) + 1))
	return half + jitter
}
