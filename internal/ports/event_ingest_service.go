package ports

import "context"

// EventIngestService — приём события: валидация и публикация в очередь.
type EventIngestService interface {
	Ingest(ctx context.Context, raw []byte) error
}
