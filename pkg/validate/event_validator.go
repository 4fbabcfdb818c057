package validate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/Gunvolt24/datapipe/internal/domain"
	"github.com/Gunvolt24/datapipe/internal/ports"
)

// Проверка, что EventValidator удовлетворяет порту.
var _ ports.EventValidator = (*EventValidator)(nil)

// DefaultInputMaxLen — максимальная длина тела запроса в символах.
const DefaultInputMaxLen = 2048

// EventValidator — разбор и проверка JSON-события.
type EventValidator struct {
	maxLen int
}

// NewEventValidator — конструктор; maxLen <= 0 — DefaultInputMaxLen.
// Возвращает *EventError (errors.Is(err, ErrInvalidEvent)) при любой проблеме.
func NewEventValidator(maxLen int) *EventValidator {
	if maxLen <= 0 {
		maxLen = DefaultInputMaxLen
	}
	return &EventValidator{maxLen: maxLen}
}

// Validate — проверка порядка: наличие тела, длина, JSON-объект, event_name,
// зарегистрированный тип, user_id/timestamp, поле содержимого.
func (v *EventValidator) Validate(_ context.Context, raw []byte) (*domain.Event, error) {
	if raw == nil {
		return nil, newEventError(CodeNoContent, "")
	}
	if !utf8.Valid(raw) {
		return nil, newEventError(CodeBadJSON, "utf-8")
	}
	if n := utf8.RuneCount(raw); n == 0 || n > v.maxLen {
		return nil, newEventError(CodeInputLength, fmt.Sprint(n))
	}

	fields, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	name, err := eventName(fields)
	if err != nil {
		return nil, err
	}
	kind, ok := domain.KindByName(name)
	if !ok {
		return nil, newEventError(CodeUnsupportedEvent, name)
	}

	// Сначала наличие обязательных ключей, потом их типы.
	for _, key := range []string{"user_id", "timestamp"} {
		if _, ok := fields[key]; !ok {
			return nil, newEventError(CodeKeyMissing, key)
		}
	}

	ev := &domain.Event{Name: kind.Name}
	if ev.UserID, err = intField(fields, "user_id"); err != nil {
		return nil, err
	}
	if ev.Timestamp, err = intField(fields, "timestamp"); err != nil {
		return nil, err
	}
	if kind.ContentName != "" {
		if ev.Content, err = stringField(fields, kind.ContentName); err != nil {
			return nil, err
		}
		ev.HasContent = true
	}
	return ev, nil
}

// decodeObject — JSON-объект верхнего уровня; числа сохраняются как json.Number.
func decodeObject(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &EventError{Code: CodeBadJSON, Err: err}
	}
	// гарантируем отсутствие данных после объекта
	if err := dec.Decode(new(any)); err != io.EOF {
		return nil, newEventError(CodeBadJSON, "trailing data")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, newEventError(CodeBadJSON, strings.TrimSpace(string(raw)))
	}
	return obj, nil
}

func eventName(fields map[string]any) (string, error) {
	v, ok := fields["event_name"]
	if !ok || v == nil || v == "" || v == false {
		return "", newEventError(CodeKeyMissing, "event_name")
	}
	name, ok := v.(string)
	if !ok {
		return "", newEventError(CodeUnsupportedEvent, fmt.Sprint(v))
	}
	return name, nil
}

func intField(fields map[string]any, key string) (int64, error) {
	v, ok := fields[key]
	if !ok {
		return 0, newEventError(CodeKeyMissing, key)
	}
	num, ok := v.(json.Number)
	if !ok {
		return 0, newEventError(CodeValueType, key)
	}
	// Int64 отвергает дроби, экспоненту и выход за диапазон.
	n, err := num.Int64()
	if err != nil {
		return 0, &EventError{Code: CodeValueType, Key: key, Err: err}
	}
	return n, nil
}

func stringField(fields map[string]any, key string) (string, error) {
	v, ok := fields[key]
	if !ok {
		return "", newEventError(CodeKeyMissing, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", newEventError(CodeValueType, key)
	}
	return s, nil
}
