package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/Gunvolt24/datapipe/config"
	"github.com/Gunvolt24/datapipe/internal/loader"
	"github.com/Gunvolt24/datapipe/internal/ports"
	"github.com/Gunvolt24/datapipe/internal/repo/postgres"
	"github.com/Gunvolt24/datapipe/internal/stream"
	rest "github.com/Gunvolt24/datapipe/internal/transport/http"
	"github.com/Gunvolt24/datapipe/internal/usecase"
	"github.com/Gunvolt24/datapipe/pkg/logger"
	"github.com/Gunvolt24/datapipe/pkg/metrics"
	"github.com/Gunvolt24/datapipe/pkg/telemetry"
	"github.com/Gunvolt24/datapipe/pkg/validate"
)

// readinessTimeout — сколько ждать ping БД в /readyz.
const readinessTimeout = 2 * time.Second

// App — собранное приложение и его внешние интерфейсы (HTTP, загрузчик).
type App struct {
	Logger          ports.Logger  // логгер
	HTTPServer      *http.Server  // HTTP-сервер приёма событий
	Loader          ports.Runner  // воркеры загрузки таблиц
	gracefulTimeout time.Duration // время ожидания завершения HTTP-сервера
}

// Cleanup — функция освобождения ресурсов.
type Cleanup func()

// applyGinMode — устанавливает режим Gin по строке;
// неизвестное значение → debug и предупреждение в лог.
func applyGinMode(ctx context.Context, mode string, log ports.Logger) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	case "", "debug":
		gin.SetMode(gin.DebugMode)
	default:
		gin.SetMode(gin.DebugMode)
		log.Warnf(ctx, "unknown GIN_MODE=%q, fallback to debug", mode)
	}
}

// Bootstrap — собирает зависимости и возвращает приложение, функцию очистки и ошибку.
func Bootstrap(ctx context.Context, cfg *config.Config) (*App, Cleanup, error) {
	// Логгер (dev/prod режим задаётся конфигурацией).
	logg, cleanupLogger, err := logger.NewZapLogger(cfg.Logger.IsProd)
	if err != nil {
		return nil, func() {}, err
	}

	// Регистрация метрик (Prometheus).
	metrics.MustRegister()

	// Трейсинг OTEL (при включённой конфигурации); по умолчанию — no-op.
	shutdownTrace := func(context.Context) error { return nil }
	if cfg.Tracing.Enabled {
		setup, tErr := telemetry.SetupTracing(ctx, cfg.Tracing.ServiceName, cfg.Tracing.Endpoint, cfg.Tracing.SampleRatio)
		if tErr != nil {
			logg.Warnf(ctx, "failed to setup tracing: %v", tErr)
		} else {
			logg.Infof(ctx, "otel tracing enabled service=%s endpoint=%s sample=%.2f",
				cfg.Tracing.ServiceName, cfg.Tracing.Endpoint, cfg.Tracing.SampleRatio)
			shutdownTrace = setup
		}
	}

	params := cfg.DBParams()
	dsn := postgres.DSN(params)

	// Миграции таблиц. Ошибка не фатальна: БД может подняться позже,
	// а циклы загрузки переживают её недоступность.
	if cfg.Postgres.AutoMigrate {
		if mErr := postgres.Migrate(ctx, dsn, logg); mErr != nil {
			logg.Warnf(ctx, "auto-migrate failed: %v", mErr)
		}
	}

	// Пул для /readyz.
	probe, err := postgres.NewProbePool(ctx, dsn, cfg.Postgres.MaxConns)
	if err != nil {
		_ = shutdownTrace(context.Background())
		_ = cleanupLogger()
		return nil, func() {}, err
	}

	// Очереди: источники по событиям и издатель для приёма.
	qs, err := buildQueues(ctx, cfg, logg)
	if err != nil {
		probe.Close()
		_ = shutdownTrace(context.Background())
		_ = cleanupLogger()
		return nil, func() {}, err
	}

	// Загрузчик: адаптер и планировщик на таблицу, общий лимит одновременных циклов.
	var adapterOpts []stream.Option
	if cfg.Queue.AckMode == config.AckModeCommit {
		adapterOpts = append(adapterOpts, stream.WithAckMode())
	}
	cycle := loader.NewCycle(postgres.NewConnector(cfg.Postgres.ConnectTimeout), params,
		cfg.Load.ChunkSize, cfg.Load.CycleTimeout, logg)
	slots := semaphore.NewWeighted(int64(cfg.Load.Workers))
	schedCfg := loader.SchedulerConfig{Interval: cfg.Load.Interval, MinInterval: cfg.Load.MinInterval}

	workers := make([]loader.Worker, 0, len(qs.sources))
	for _, src := range qs.sources {
		adapter := stream.New(src, cfg.Queue.FetchMsgNum, adapterOpts...)
		workers = append(workers, loader.NewScheduler(cycle, adapter, src.Name(), schedCfg, slots, logg))
	}
	supervisor := loader.NewSupervisor(workers, cfg.Load.RestartDelay, logg)

	// Приём событий.
	eventService := usecase.NewEventService(validate.NewEventValidator(cfg.HTTP.InputMaxLen), qs.publisher, logg)

	// Режим Gin.
	applyGinMode(ctx, cfg.HTTP.GinMode, logg)

	// Имя сервиса для otelgin (только при включённом трейсинге).
	otelServiceName := ""
	if cfg.Tracing.Enabled {
		otelServiceName = cfg.Tracing.ServiceName
	}

	// Роутер и HTTP-сервер.
	httpHandler := rest.NewHandler(eventService, logg, cfg.HTTP.HandlerTimeout, cfg.HTTP.InputMaxLen).
		WithReadiness(postgres.Ping(probe, readinessTimeout))
	router := rest.NewRouter(httpHandler, otelServiceName)

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	logg.Infof(ctx, "loader configured backend=%s ack_mode=%s events=%v workers=%d interval=%s min_interval=%s",
		cfg.Queue.Backend, cfg.Queue.AckMode, cfg.Queue.Events, cfg.Load.Workers, cfg.Load.Interval, cfg.Load.MinInterval)

	app := &App{
		Logger:          logg,
		HTTPServer:      httpSrv,
		Loader:          supervisor,
		gracefulTimeout: cfg.HTTP.GracefulTimeout,
	}

	// Очистка ресурсов (в обратном порядке).
	cleanup := func() {
		if qErr := qs.Close(); qErr != nil {
			logg.Warnf(ctx, "queue close error: %v", qErr)
		}
		probe.Close()
		if terr := shutdownTrace(context.Background()); terr != nil {
			logg.Warnf(ctx, "shutdown tracing: %v", terr)
		}
		if cerr := cleanupLogger(); cerr != nil {
			logg.Warnf(ctx, "cleanup logger: %v", cerr)
		}
	}

	return app, cleanup, nil
}

// Run — запускает HTTP-сервер и загрузчик; ждёт отмены контекста или ошибки и останавливает их.
// Текущие циклы загрузки дорабатывают до конца: их контекст не отменяется.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	// Загрузчик.
	g.Go(func() error {
		a.Logger.Infof(ctx, "loader starting")
		err := a.Loader.Run(gctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	})

	// HTTP-сервер.
	g.Go(func() error {
		a.Logger.Infof(ctx, "http server starting (addr=%s)", a.HTTPServer.Addr)
		if err := a.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Warnf(ctx, "http server failed: %v", err)
			return err
		}
		return nil
	})

	// Остановка по сигналу или фоновой ошибке.
	g.Go(func() error {
		<-gctx.Done()
		a.Logger.Infof(ctx, "shutdown requested, starting graceful shutdown")

		gt := a.gracefulTimeout
		if gt <= 0 {
			gt = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), gt)
		defer cancel()

		if err := a.HTTPServer.Shutdown(shutdownCtx); err != nil {
			a.Logger.Warnf(ctx, "http server shutdown failed: %v", err)
		} else {
			a.Logger.Infof(ctx, "http server stopped gracefully")
		}
		return nil
	})

	err := g.Wait()
	a.Logger.Infof(ctx, "service stopped")
	return err
}
