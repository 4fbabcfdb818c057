package usecase

import (
	"context"
	"errors"

	"github.com/Gunvolt24/datapipe/internal/ports"
	"github.com/Gunvolt24/datapipe/pkg/metrics"
	"github.com/Gunvolt24/datapipe/pkg/validate"
)

// Проверка, что EventService удовлетворяет порту приёма событий.
var _ ports.EventIngestService = (*EventService)(nil)

const unknownEvent = "unknown"

// EventService — приём событий (без знаний о транспорте): валидация и публикация
// строки события в очередь с именем события.
type EventService struct {
	validator ports.EventValidator
	publisher ports.Publisher
	log       ports.Logger
}

// NewEventService — DI-конструктор.
func NewEventService(validator ports.EventValidator, publisher ports.Publisher, log ports.Logger) *EventService {
	return &EventService{validator: validator, publisher: publisher, log: log}
}

// Ingest — принять сырое тело запроса.
// Ошибки: *validate.EventError с кодом валидации либо validate.CodeInternal при сбое очереди.
func (s *EventService) Ingest(ctx context.Context, raw []byte) error {
	event, err := s.validator.Validate(ctx, raw)
	if err != nil {
		metrics.EventsIngested.WithLabelValues(unknownEvent, "invalid").Inc()
		var ee *validate.EventError
		if !errors.As(err, &ee) {
			// Чужой валидатор: считаем ошибку общей ошибкой события.
			ee = &validate.EventError{Code: validate.CodeGeneral, Err: err}
		}
		s.log.Warnf(ctx, "event rejected: %v", err)
		return ee
	}

	if err := s.publisher.Publish(ctx, event.Name, event.Line()); err != nil {
		metrics.EventsIngested.WithLabelValues(event.Name, "failed").Inc()
		s.log.Errorf(ctx, "publish failed event=%s user_id=%d: %v", event.Name, event.UserID, err)
		return validate.Internal(err)
	}

	metrics.EventsIngested.WithLabelValues(event.Name, "ok").Inc()
	return nil
}
