package domain

import (
	"strconv"
	"strings"
)

// Имена поддерживаемых событий. Имя события одновременно является именем очереди и таблицы.
const (
	EventCrashReport = "crash_report"
	EventPurchase    = "purchase"
	EventInstall     = "install"
)

// EventKind — описание типа события: имя и (необязательное) поле с содержимым.
type EventKind struct {
	Name        string // имя события (= очередь = таблица)
	ContentName string // имя JSON-поля с содержимым; пусто — содержимого нет
}

// Kinds — реестр известных типов событий.
var Kinds = map[string]EventKind{
	EventCrashReport: {Name: EventCrashReport, ContentName: "message"},
	EventPurchase:    {Name: EventPurchase, ContentName: "sku"},
	EventInstall:     {Name: EventInstall},
}

// KindByName — тип события по имени; (kind, false), если событие не зарегистрировано.
func KindByName(name string) (EventKind, bool) {
	if name == "" {
		return EventKind{}, false
	}
	k, ok := Kinds[name]
	return k, ok
}

// Event — провалидированное событие, готовое к отправке в очередь.
type Event struct {
	Name       string
	UserID     int64
	Timestamp  int64
	Content    string
	HasContent bool
}

// copyEscaper — экранирование для текстового формата COPY: разделитель и переводы строк
// внутри содержимого не должны разрывать строку.
var copyEscaper = strings.NewReplacer(`\`, `\\`, ",", `\,`, "\n", `\n`, "\r", `\r`)

// Line — строка для очереди: user_id,timestamp[,content].
// Имя события в строку не входит: таблица определяется очередью.
func (e *Event) Line() string {
	line := strconv.FormatInt(e.UserID, 10) + "," + strconv.FormatInt(e.Timestamp, 10)
	if e.HasContent {
		line += "," + copyEscaper.Replace(e.Content)
	}
	return line
}
