package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Gunvolt24/datapipe/config"
	"github.com/Gunvolt24/datapipe/internal/app"
)

// envFileVar — переменная с путём к дополнительному env-файлу.
const envFileVar = "DATAPIPE_CNF"

func main() {
	// Локальные переопределения для разработки; отсутствие файла — не ошибка.
	_ = godotenv.Load(".env.local")
	if path := os.Getenv(envFileVar); path != "" {
		if err := godotenv.Load(path); err != nil {
			fmt.Fprintf(os.Stderr, "load %s=%s: %v\n", envFileVar, path, err)
			os.Exit(1)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, cleanup, err := app.Bootstrap(ctx, &cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap: %v\n", err)
		os.Exit(1)
	}

	runErr := a.Run(ctx)
	cleanup()
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "run: %v\n", runErr)
		os.Exit(1)
	}
}
