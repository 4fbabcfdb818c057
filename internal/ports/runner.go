package ports

import "context"

// Runner — фоновый компонент приложения (загрузчики таблиц и т.п.).
type Runner interface {
	Run(ctx context.Context) error
}
