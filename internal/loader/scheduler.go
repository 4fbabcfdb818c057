package loader

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/Gunvolt24/datapipe/internal/ports"
	"github.com/Gunvolt24/datapipe/internal/stream"
	"github.com/Gunvolt24/datapipe/pkg/ctxmeta"
)

// SchedulerConfig — каденс загрузки одной таблицы.
type SchedulerConfig struct {
	Interval    time.Duration // номинальный период между стартами циклов
	MinInterval time.Duration // нижняя граница паузы между циклами
}

// Scheduler — бесконечный цикл загрузки одной таблицы с примерно постоянным периодом.
// Каждый экземпляр владеет своим адаптером; общих изменяемых данных между экземплярами нет.
type Scheduler struct {
	cycle       CycleRunner
	adapter     *stream.Adapter
	table       string
	interval    time.Duration
	minInterval time.Duration
	slots       *semaphore.Weighted
	log         ports.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) bool
}

// NewScheduler — конструктор. slots (может быть nil) ограничивает число одновременно
// выполняемых циклов по всем таблицам.
func NewScheduler(
	cycle CycleRunner,
	adapter *stream.Adapter,
	table string,
	cfg SchedulerConfig,
	slots *semaphore.Weighted,
	log ports.Logger,
) *Scheduler {
	minInterval := cfg.MinInterval
	if minInterval <= 0 {
		minInterval = time.Second
	}
	return &Scheduler{
		cycle:       cycle,
		adapter:     adapter,
		table:       table,
		interval:    cfg.Interval,
		minInterval: minInterval,
		slots:       slots,
		log:         log,
		now:         time.Now,
		sleep:       sleepCtx,
	}
}

// Table — имя обслуживаемой таблицы.
func (s *Scheduler) Table() string { return s.table }

// NextSleep — пауза после цикла: max(interval - elapsed, minInterval).
// Нижняя граница не даёт крутиться вхолостую, если цикл длиннее периода.
func NextSleep(interval, minInterval, elapsed time.Duration) time.Duration {
	return max(interval-elapsed, minInterval)
}

// Run — цикл "загрузка → пауза" до отмены контекста. Начатый цикл загрузки
// не прерывается: отмена учитывается только во время ожидания.
func (s *Scheduler) Run(ctx context.Context) error {
	ctx = ctxmeta.WithTable(ctx, s.table)
	s.log.Infof(ctx, "loader started table=%s queue=%s interval=%s min_interval=%s",
		s.table, s.adapter.Name(), s.interval, s.minInterval)

	for {
		start := s.now()
		if !s.runOnce(ctx) {
			return ctx.Err()
		}
		elapsed := s.now().Sub(start)

		if !s.sleep(ctx, NextSleep(s.interval, s.minInterval, elapsed)) {
			return ctx.Err()
		}
	}
}

// runOnce — один цикл под слотом воркера; false — контекст отменён до старта.
func (s *Scheduler) runOnce(ctx context.Context) bool {
	if s.slots != nil {
		if err := s.slots.Acquire(ctx, 1); err != nil {
			return false
		}
		defer s.slots.Release(1)
	}

	res := s.cycle.Run(context.WithoutCancel(ctx), s.adapter, s.table)
	if res.Outcome == OutcomeSkipped {
		s.log.Warnf(ctx, "load cycle skipped table=%s (missing adapter, db params or table)", s.table)
	}
	return true
}

// sleepCtx ждёт d или останавливается по контексту.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
