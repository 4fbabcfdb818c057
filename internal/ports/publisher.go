package ports

import "context"

// Publisher — запись строки события в очередь с заданным именем.
type Publisher interface {
	Publish(ctx context.Context, queue, body string) error
	Close() error
}
