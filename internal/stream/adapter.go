// Package stream — представление очереди с пакетной выборкой в виде последовательного
// построчного потока, пригодного для COPY FROM STDIN.
package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Gunvolt24/datapipe/internal/ports"
	"github.com/Gunvolt24/datapipe/pkg/metrics"
)

// Unbounded — размер чтения "всё, что доступно сейчас".
const Unbounded = -1

// DefaultFetchMax — сколько сообщений запрашивать за один Reserve по умолчанию.
const DefaultFetchMax = 100

// ErrUnsupportedSize — ReadLineSize поддерживает только Unbounded.
var ErrUnsupportedSize = fmt.Errorf("readline with bounded size: %w", errors.ErrUnsupported)

// Adapter — обёртка над одной очередью: кэш ещё не выданных сообщений
// и остаток строки, разрезанной предыдущим Read.
// Не потокобезопасен: принадлежит ровно одному воркеру таблицы.
type Adapter struct {
	source          ports.MessageSource
	fetchMax        int
	deleteOnReserve bool

	cache    []string
	leftover string

	// readLine — источник строк для Read; в тестах подменяется.
	readLine func(ctx context.Context) (string, error)
}

// Option — настройка Adapter.
type Option func(*Adapter)

// WithAckMode — резервировать без удаления; сообщения подтверждаются через Acknowledge.
func WithAckMode() Option {
	return func(a *Adapter) { a.deleteOnReserve = false }
}

// New — конструктор. source может быть nil: тогда пополнение кэша отключено.
func New(source ports.MessageSource, fetchMax int, opts ...Option) *Adapter {
	if fetchMax <= 0 {
		fetchMax = DefaultFetchMax
	}
	a := &Adapter{
		source:          source,
		fetchMax:        fetchMax,
		deleteOnReserve: true,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.readLine = a.ReadLine
	return a
}

// Name — имя очереди (для логов и метрик).
func (a *Adapter) Name() string {
	if a == nil || a.source == nil {
		return ""
	}
	return a.source.Name()
}

// AckMode — включён ли режим подтверждения.
func (a *Adapter) AckMode() bool { return !a.deleteOnReserve }

// Pending — число сообщений в кэше.
func (a *Adapter) Pending() int { return len(a.cache) }

// populate — ровно одна попытка пополнить кэш из очереди. Пустые тела не кэшируются.
func (a *Adapter) populate(ctx context.Context) error {
	if a.source == nil {
		return nil
	}
	name := a.source.Name()

	msgs, err := a.source.Reserve(ctx, a.fetchMax, a.deleteOnReserve)
	if err != nil {
		metrics.QueueReserveFailed.WithLabelValues(name).Inc()
		return fmt.Errorf("reserve from %s: %w", name, err)
	}
	metrics.QueueMessagesReserved.WithLabelValues(name).Add(float64(len(msgs)))

	for i := range msgs {
		if msgs[i].Body != "" {
			a.cache = append(a.cache, msgs[i].Body)
		}
	}
	return nil
}

// ReadLine — следующая строка с "\n" на конце; "" — данных сейчас нет.
func (a *Adapter) ReadLine(ctx context.Context) (string, error) {
	return a.ReadLineSize(ctx, Unbounded)
}

// ReadLineSize — как ReadLine; size, отличный от Unbounded, не поддерживается.
func (a *Adapter) ReadLineSize(ctx context.Context, size int) (string, error) {
	if size != Unbounded {
		return "", ErrUnsupportedSize
	}

	if len(a.cache) == 0 {
		if err := a.populate(ctx); err != nil {
			return "", err
		}
	}
	if len(a.cache) == 0 {
		return "", nil
	}

	next := a.cache[0]
	a.cache[0] = ""
	a.cache = a.cache[1:]
	return next + "\n", nil
}

// Read — до size байт потока; size < 0 — всё доступное. Сначала выдаётся остаток
// прошлой строки, затем новые строки; строка, не влезающая целиком, режется,
// хвост становится новым остатком. size == 0 ничего не меняет.
// При ошибке очереди возвращает уже собранные данные вместе с ошибкой.
func (a *Adapter) Read(ctx context.Context, size int) (string, error) {
	if size == 0 {
		return "", nil
	}
	unbounded := size < 0
	left := size

	var b strings.Builder

	if a.leftover != "" {
		if unbounded || len(a.leftover) <= left {
			b.WriteString(a.leftover)
			left -= len(a.leftover)
			a.leftover = ""
		} else {
			b.WriteString(a.leftover[:left])
			a.leftover = a.leftover[left:]
			left = 0
		}
	}

	for unbounded || left > 0 {
		line, err := a.readLine(ctx)
		if err != nil {
			return b.String(), err
		}
		if line == "" {
			break
		}

		if unbounded || len(line) <= left {
			b.WriteString(line)
			left -= len(line)
			continue
		}
		b.WriteString(line[:left])
		a.leftover = line[left:]
		left = 0
	}

	return b.String(), nil
}

// DropPartial — выбросить остаток строки, начало которой ушло в неудачную загрузку.
func (a *Adapter) DropPartial() { a.leftover = "" }

// DropReserved — после отвергнутой порции: выбросить остаток строки, а в режиме подтверждения
// и ещё не выданные сообщения, ведь Acknowledge подтвердит их вместе с порцией.
// Возвращает число выброшенных сообщений.
func (a *Adapter) DropReserved() int {
	a.DropPartial()
	if a.deleteOnReserve {
		return 0
	}
	n := len(a.cache)
	a.cache = nil
	return n
}

// Acknowledge — подтвердить всё зарезервированное (только в режиме подтверждения).
func (a *Adapter) Acknowledge(ctx context.Context) error {
	ack, ok := a.acknowledger()
	if !ok {
		return nil
	}
	return ack.Ack(ctx)
}

// Release — вернуть неподтверждённые сообщения в очередь после неудачной загрузки.
// В деструктивном режиме кэш сохраняется до следующего цикла, сбрасывается только остаток строки.
func (a *Adapter) Release(ctx context.Context) error {
	a.DropPartial()
	ack, ok := a.acknowledger()
	if !ok {
		return nil
	}
	// Всё из кэша вернётся в очередь — не выдаём это повторно.
	a.cache = nil
	return ack.Release(ctx)
}

func (a *Adapter) acknowledger() (ports.Acknowledger, bool) {
	if a.deleteOnReserve || a.source == nil {
		return nil, false
	}
	ack, ok := a.source.(ports.Acknowledger)
	return ack, ok
}
