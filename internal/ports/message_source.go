package ports

import "context"

// Message — одно сообщение очереди. Body — уже сериализованная CSV-строка события.
type Message struct {
	ID      string // идентификатор сообщения в бэкенде
	Body    string // полезная нагрузка (одна строка без перевода строки)
	Receipt string // дескриптор резервации (IronMQ reservation_id и т.п.), может быть пустым
}

// MessageSource — очередь с пакетной выборкой.
// Reserve резервирует до max сообщений; при deleteOnReserve=true они удаляются из очереди
// в рамках того же вызова (деструктивный pop). Пустой результат без ошибки — очередь пуста.
type MessageSource interface {
	Name() string
	Reserve(ctx context.Context, max int, deleteOnReserve bool) ([]Message, error)
}

// Acknowledger — необязательное расширение MessageSource для режима подтверждения:
// сообщения, зарезервированные без удаления, подтверждаются (Ack) или возвращаются (Release).
type Acknowledger interface {
	Ack(ctx context.Context) error
	Release(ctx context.Context) error
}
