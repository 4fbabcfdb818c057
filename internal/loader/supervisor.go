package loader

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Gunvolt24/datapipe/internal/ports"
	"github.com/Gunvolt24/datapipe/pkg/ctxmeta"
	"github.com/Gunvolt24/datapipe/pkg/metrics"
)

// Проверка, что Supervisor удовлетворяет интерфейсу фонового компонента.
var _ ports.Runner = (*Supervisor)(nil)

// errWorkerReturned — воркер вышел сам, без отмены контекста.
var errWorkerReturned = errors.New("worker returned")

// Worker — воркер одной таблицы (Scheduler).
type Worker interface {
	Table() string
	Run(ctx context.Context) error
}

// Supervisor — запускает по воркеру на таблицу и перезапускает воркер,
// если тот завершился (panic или возврат) до отмены контекста.
type Supervisor struct {
	workers      []Worker
	restartDelay time.Duration
	log          ports.Logger
}

// NewSupervisor — конструктор. restartDelay — пауза перед перезапуском упавшего воркера.
func NewSupervisor(workers []Worker, restartDelay time.Duration, log ports.Logger) *Supervisor {
	if restartDelay <= 0 {
		restartDelay = time.Second
	}
	return &Supervisor{workers: workers, restartDelay: restartDelay, log: log}
}

// Run — блокируется до отмены контекста и остановки всех воркеров.
func (s *Supervisor) Run(ctx context.Context) error {
	var g errgroup.Group
	for _, w := range s.workers {
		w := w
		g.Go(func() error {
			s.supervise(ctx, w)
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}

func (s *Supervisor) supervise(ctx context.Context, w Worker) {
	wctx := ctxmeta.WithTable(ctx, w.Table())
	for {
		err := runSafely(ctx, w)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			err = errWorkerReturned
		}

		metrics.WorkerRestarts.WithLabelValues(w.Table()).Inc()
		s.log.Errorf(wctx, "loader table=%s exited unexpectedly: %v (restart in %s)", w.Table(), err, s.restartDelay)
		if !sleepCtx(ctx, s.restartDelay) {
			return
		}
	}
}

// runSafely — запуск воркера с перехватом panic.
func runSafely(ctx context.Context, w Worker) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return w.Run(ctx)
}
