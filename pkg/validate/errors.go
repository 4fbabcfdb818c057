package validate

import (
	"errors"
	"fmt"
)

// ErrInvalidEvent — базовая (sentinel error) ошибка валидации события.
var ErrInvalidEvent = errors.New("event validation failed")

// Code — код ответа приёма событий.
type Code int

const (
	CodeOK               Code = 0
	CodeGeneral          Code = 1
	CodeNoContent        Code = 2
	CodeBadJSON          Code = 3
	CodeKeyMissing       Code = 4
	CodeValueType        Code = 5
	CodeInputLength      Code = 6
	CodeUnsupportedEvent Code = 7
	CodeInternal         Code = 100
)

var codeMessages = map[Code]string{
	CodeOK:               "ok",
	CodeGeneral:          "Unidentified general event error",
	CodeNoContent:        "No message content found",
	CodeBadJSON:          "Bad json structure",
	CodeKeyMissing:       "mandatory key missing",
	CodeValueType:        "invalid value type",
	CodeInputLength:      "input too long or too short",
	CodeUnsupportedEvent: "unsupported event",
	CodeInternal:         "internal error",
}

// Message — текст для status_message.
func (c Code) Message() string {
	if m, ok := codeMessages[c]; ok {
		return m
	}
	return codeMessages[CodeGeneral]
}

// EventError — ошибка приёма события с кодом ответа и ключом-уточнением.
// errors.Is(err, ErrInvalidEvent) истинно для всех кодов, кроме CodeInternal.
type EventError struct {
	Code Code
	Key  string
	Err  error // причина (для CodeInternal — ошибка публикации)
}

func newEventError(code Code, key string) *EventError {
	return &EventError{Code: code, Key: key}
}

// Internal — ошибка инфраструктуры при приёме корректного события.
func Internal(err error) *EventError {
	return &EventError{Code: CodeInternal, Err: err}
}

// StatusMessage — "message(key)".
func (e *EventError) StatusMessage() string {
	return fmt.Sprintf("%s(%s)", e.Code.Message(), e.Key)
}

func (e *EventError) Error() string {
	if e.Err != nil {
		return e.StatusMessage() + ": " + e.Err.Error()
	}
	return e.StatusMessage()
}

func (e *EventError) Unwrap() []error {
	var errs []error
	if e.Code != CodeInternal {
		errs = append(errs, ErrInvalidEvent)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}
