package ports

import (
	"context"

	"github.com/Gunvolt24/datapipe/internal/domain"
)

// EventValidator — разбор и проверка сырого JSON события.
type EventValidator interface {
	Validate(ctx context.Context, raw []byte) (*domain.Event, error)
}
