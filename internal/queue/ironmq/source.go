package ironmq

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Gunvolt24/datapipe/internal/ports"
)

// Проверка, что Source удовлетворяет портам очереди.
var (
	_ ports.MessageSource = (*Source)(nil)
	_ ports.Acknowledger  = (*Source)(nil)
	_ ports.Publisher     = (*Publisher)(nil)
)

// Source — одна очередь IronMQ. pending — резервации, ожидающие Ack/Release.
type Source struct {
	client *Client
	name   string

	mu      sync.Mutex
	pending []messageJSON
}

func NewSource(client *Client, name string) *Source {
	return &Source{client: client, name: name}
}

func (s *Source) Name() string { return s.name }

// Reserve — один запрос reservations; max ограничивается MaxReserve.
func (s *Source) Reserve(ctx context.Context, max int, deleteOnReserve bool) ([]ports.Message, error) {
	if max <= 0 {
		return nil, nil
	}
	msgs, err := s.client.Reserve(ctx, s.name, min(max, MaxReserve), deleteOnReserve)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, nil
	}

	out := make([]ports.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, ports.Message{ID: m.ID, Body: m.Body, Receipt: m.ReservationID})
	}
	if !deleteOnReserve {
		s.mu.Lock()
		for _, m := range msgs {
			s.pending = append(s.pending, messageJSON{ID: m.ID, ReservationID: m.ReservationID})
		}
		s.mu.Unlock()
	}
	return out, nil
}

// Ack — удалить все ожидающие резервации одним запросом.
func (s *Source) Ack(ctx context.Context) error {
	pending := s.takePending()
	if len(pending) == 0 {
		return nil
	}
	if err := s.client.Delete(ctx, s.name, pending); err != nil {
		return fmt.Errorf("ironmq ack queue=%s: %w", s.name, err)
	}
	return nil
}

// Release — вернуть ожидающие резервации в очередь. Не вернувшиеся вернутся сами
// по истечении таймаута резервации. Release кладёт сообщение в голову очереди,
// поэтому идём с конца: исходный порядок сохраняется.
func (s *Source) Release(ctx context.Context) error {
	var errs []error
	pending := s.takePending()
	for i := len(pending) - 1; i >= 0; i-- {
		m := pending[i]
		if err := s.client.Release(ctx, s.name, m); err != nil && !errors.Is(err, errNotFound) {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("ironmq release queue=%s: %w", s.name, err)
	}
	return nil
}

func (s *Source) takePending() []messageJSON {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.pending
	s.pending = nil
	return p
}

// Publisher — post в очередь с именем события.
type Publisher struct {
	client *Client
}

func NewPublisher(client *Client) *Publisher { return &Publisher{client: client} }

func (p *Publisher) Publish(ctx context.Context, queue, body string) error {
	if err := p.client.Post(ctx, queue, body); err != nil {
		return fmt.Errorf("ironmq publish queue=%s: %w", queue, err)
	}
	return nil
}

func (p *Publisher) Close() error { return nil }
