package loader

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Gunvolt24/datapipe/internal/ports"
	"github.com/Gunvolt24/datapipe/internal/stream"
	"github.com/Gunvolt24/datapipe/pkg/ctxmeta"
	"github.com/Gunvolt24/datapipe/pkg/metrics"
)

// FieldSeparator — разделитель полей строк событий.
const FieldSeparator = ','

// Outcome — итог одного цикла загрузки.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeDataError Outcome = "data_error"
	OutcomeDBError   Outcome = "db_error"
	OutcomeSkipped   Outcome = "skipped"
)

// CycleResult — сведения об одном цикле; нужны планировщику только для расчёта паузы.
type CycleResult struct {
	Table   string
	Start   time.Time
	Elapsed time.Duration
	Outcome Outcome
	Rows    int64
	Err     error
}

// CycleRunner — один цикл загрузки таблицы из адаптера.
type CycleRunner interface {
	Run(ctx context.Context, src *stream.Adapter, table string) CycleResult
}

// Проверка, что Cycle удовлетворяет CycleRunner.
var _ CycleRunner = (*Cycle)(nil)

// Cycle — одна попытка COPY: новое соединение, загрузка, commit/rollback, закрытие.
// Ошибки наружу не выходят никогда — только в CycleResult и в лог.
type Cycle struct {
	connector ports.Connector
	params    ports.DBParams
	chunkSize int
	timeout   time.Duration
	log       ports.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewCycle — конструктор. timeout <= 0 — без ограничения на цикл.
func NewCycle(
	connector ports.Connector,
	params ports.DBParams,
	chunkSize int,
	timeout time.Duration,
	log ports.Logger,
) *Cycle {
	return &Cycle{
		connector: connector,
		params:    params,
		chunkSize: chunkSize,
		timeout:   timeout,
		log:       log,
		tracer:    otel.Tracer("github.com/Gunvolt24/datapipe/internal/loader"),
		now:       time.Now,
	}
}

// Run — выполнить цикл. Без адаптера, параметров БД или имени таблицы — ничего не делает.
func (c *Cycle) Run(ctx context.Context, src *stream.Adapter, table string) (res CycleResult) {
	res = CycleResult{Table: table, Start: c.now(), Outcome: OutcomeSkipped}
	if src == nil || table == "" || c.params.IsZero() || c.connector == nil {
		return res
	}

	ctx = ctxmeta.WithTable(ctx, table)
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	ctx, span := c.tracer.Start(ctx, "load.cycle", trace.WithAttributes(
		attribute.String("db.table", table),
		attribute.String("queue.name", src.Name()),
	))
	defer func() {
		res.Elapsed = c.now().Sub(res.Start)
		metrics.LoadCycles.WithLabelValues(table, string(res.Outcome)).Inc()
		metrics.LoadCycleDuration.WithLabelValues(table).Observe(res.Elapsed.Seconds())
		span.SetAttributes(attribute.Int64("db.rows", res.Rows), attribute.String("load.outcome", string(res.Outcome)))
		if res.Err != nil {
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, string(res.Outcome))
		}
		span.End()
	}()

	sess, err := c.connector.Connect(ctx, c.params)
	if err != nil {
		c.log.Warnf(ctx, "connect failed table=%s: %v", table, err)
		res.Outcome, res.Err = OutcomeDBError, err
		c.settle(ctx, src, res.Outcome)
		return res
	}
	defer func() {
		// Соединение могло уже порваться — ошибку закрытия глушим.
		_ = sess.Close(context.WithoutCancel(ctx))
	}()

	rows, err := sess.CopyFrom(ctx, src.Reader(ctx, c.chunkSize), table, FieldSeparator)
	switch {
	case err == nil:
		if cErr := sess.Commit(ctx); cErr != nil {
			c.log.Warnf(ctx, "commit failed table=%s: %v", table, cErr)
			res.Outcome, res.Err = OutcomeDBError, cErr
			break
		}
		res.Outcome, res.Rows = OutcomeSuccess, rows
		metrics.LoadRowsCopied.WithLabelValues(table).Add(float64(rows))
	case IsDataError(err):
		// Плохая строка: откатываем всю порцию, уже скопированное в этом цикле теряется.
		if rbErr := sess.Rollback(ctx); rbErr != nil {
			c.log.Warnf(ctx, "rollback failed table=%s: %v", table, rbErr)
		}
		c.log.Warnf(ctx, "bad data table=%s: %v (rolled back)", table, err)
		res.Outcome, res.Err = OutcomeDataError, err
	default:
		c.log.Warnf(ctx, "copy failed table=%s: %v", table, err)
		res.Outcome, res.Err = OutcomeDBError, err
	}

	c.settle(ctx, src, res.Outcome)

	if res.Outcome == OutcomeSuccess && res.Rows > 0 {
		c.log.Infof(ctx, "loaded table=%s rows=%d took=%s", table, res.Rows, c.now().Sub(res.Start))
	}
	return res
}

// settle — подтвердить или вернуть сообщения в очередь по итогу цикла.
func (c *Cycle) settle(ctx context.Context, src *stream.Adapter, outcome Outcome) {
	switch outcome {
	case OutcomeSuccess:
		if err := src.Acknowledge(ctx); err != nil {
			c.log.Warnf(ctx, "ack failed queue=%s: %v (messages may be loaded twice)", src.Name(), err)
		}
	case OutcomeDataError:
		dropped := src.DropReserved()
		if src.AckMode() {
			c.log.Warnf(ctx, "dropping rejected batch queue=%s unsent=%d", src.Name(), dropped)
		}
		if err := src.Acknowledge(ctx); err != nil {
			c.log.Warnf(ctx, "ack of rejected batch failed queue=%s: %v", src.Name(), err)
		}
	default:
		if err := src.Release(ctx); err != nil {
			c.log.Warnf(ctx, "release failed queue=%s: %v", src.Name(), err)
		}
	}
}

// IsDataError — ошибка данных при COPY (SQLSTATE класса 22): строка не разобралась под схему таблицы.
func IsDataError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgerrcode.IsDataException(pgErr.Code)
}
