//go:build integration

package testutil

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/redpanda"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Gunvolt24/datapipe/internal/ports"
)

// Учётные данные тестовой БД событий.
const (
	pgDatabase = "events"
	pgUser     = "app"
	pgPassword = "app"
)

// Общий логгер для testcontainers.
var tcLogger = log.New(os.Stdout, "[tc] ", log.LstdFlags)

func shortID(c tc.Container) string {
	id := c.GetContainerID()
	return id[:min(len(id), 12)]
}

// stageHook — строка в лог на одном этапе жизни контейнера.
func stageHook(stage string) tc.ContainerHook {
	return func(_ context.Context, c tc.Container) error {
		tcLogger.Printf("%s id=%s", stage, shortID(c))
		return nil
	}
}

func lifecycleLogging() tc.CustomizeRequestOption {
	return tc.WithLifecycleHooks(tc.ContainerLifecycleHooks{
		PreCreates: []tc.ContainerRequestHook{
			func(_ context.Context, req tc.ContainerRequest) error {
				tcLogger.Printf("creating image=%s", req.Image)
				return nil
			},
		},
		PostStarts:     []tc.ContainerHook{stageHook("started")},
		PostReadies:    []tc.ContainerHook{stageHook("ready")},
		PreTerminates:  []tc.ContainerHook{stageHook("terminating")},
		PostTerminates: []tc.ContainerHook{stageHook("terminated")},
	})
}

// ----------------------------------------------------------------------------
// Postgres
// ----------------------------------------------------------------------------

// PGContainer — БД для загрузчика: DSN для миграций, пул для проверок, Params для Connector.
type PGContainer struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	DSN       string
	Params    ports.DBParams
}

func StartPostgresTC(ctx context.Context) (*PGContainer, func(context.Context) error, error) {
	pg, err := postgres.Run(
		ctx,
		"postgres:16-alpine",
		lifecycleLogging(),
		tc.WithExposedPorts("5432/tcp"),
		postgres.WithDatabase(pgDatabase),
		postgres.WithUsername(pgUser),
		postgres.WithPassword(pgPassword),
		tc.WithWaitStrategy(
			wait.ForAll(
				wait.ForListeningPort("5432/tcp"),
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			).WithDeadline(60*time.Second),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("run postgres: %w", err)
	}

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = pg.Terminate(ctx)
		return nil, nil, fmt.Errorf("conn string: %w", err)
	}

	// Пул только для проверок в тестах: загрузчик открывает своё соединение на каждый цикл.
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		_ = pg.Terminate(ctx)
		return nil, nil, fmt.Errorf("new pool: %w", err)
	}

	cc := pool.Config().ConnConfig
	params := ports.DBParams{
		Host:     cc.Host,
		Port:     int(cc.Port),
		Name:     pgDatabase,
		User:     pgUser,
		Password: pgPassword,
		SSLMode:  "disable",
	}

	stop := func(c context.Context) error {
		pool.Close()
		return pg.Terminate(c)
	}
	return &PGContainer{Container: pg, Pool: pool, DSN: dsn, Params: params}, stop, nil
}

// ----------------------------------------------------------------------------
// Kafka (redpanda)
// ----------------------------------------------------------------------------

type KafkaEnv struct {
	Container *redpanda.Container
	Brokers   []string
	BaseTopic string
}

func StartKafkaTC(ctx context.Context, baseTopic string) (*KafkaEnv, func(context.Context) error, error) {
	rp, err := redpanda.Run(
		ctx,
		"docker.redpanda.com/redpandadata/redpanda:v23.3.8",
		lifecycleLogging(),
		redpanda.WithAutoCreateTopics(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("run redpanda: %w", err)
	}

	seed, err := rp.KafkaSeedBroker(ctx)
	if err != nil {
		_ = tc.TerminateContainer(rp)
		return nil, nil, fmt.Errorf("seed broker: %w", err)
	}

	stop := func(_ context.Context) error { return tc.TerminateContainer(rp) }
	return &KafkaEnv{Container: rp, Brokers: []string{seed}, BaseTopic: baseTopic}, stop, nil
}
