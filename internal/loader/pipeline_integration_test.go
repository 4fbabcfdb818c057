//go:build integration

package loader_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Gunvolt24/datapipe/internal/domain"
	"github.com/Gunvolt24/datapipe/internal/loader"
	qkafka "github.com/Gunvolt24/datapipe/internal/queue/kafka"
	pgrepo "github.com/Gunvolt24/datapipe/internal/repo/postgres"
	"github.com/Gunvolt24/datapipe/internal/stream"
	"github.com/Gunvolt24/datapipe/internal/testutil"
)

type nopLogger struct{}

func (nopLogger) Infof(context.Context, string, ...any)  {}
func (nopLogger) Warnf(context.Context, string, ...any)  {}
func (nopLogger) Errorf(context.Context, string, ...any) {}

// Сквозной сценарий: события в Kafka → адаптер → COPY в Postgres.
func TestPipeline_KafkaToPostgres_TC(t *testing.T) {
	ctxStart, cancelStart := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancelStart()

	pg, stopPG, err := testutil.StartPostgresTC(ctxStart)
	require.NoError(t, err)
	t.Cleanup(func() { _ = stopPG(context.Background()) })

	kf, stopKF, err := testutil.StartKafkaTC(ctxStart, "events-itc")
	require.NoError(t, err)
	t.Cleanup(func() { _ = stopKF(context.Background()) })

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	require.NoError(t, pgrepo.Migrate(ctx, pg.DSN, nopLogger{}))

	prefix, group := testutil.UniqueQueuePrefix("dp-pipeline")
	pub := qkafka.NewPublisher(kf.Brokers, prefix)
	defer pub.Close()
	topic := pub.Topic(domain.EventPurchase)
	require.NoError(t, testutil.EnsureTopics(ctx, kf.Brokers[0], topic))

	// Содержимое с разделителем и переводом строки не должно разрывать строку COPY.
	events := []domain.Event{
		testutil.MakePurchase(),
		testutil.MakePurchase(func(e *domain.Event) { e.Content = "sku,with\ncomma" }),
		testutil.MakePurchase(),
	}
	for i := range events {
		require.NoError(t, pub.Publish(ctx, domain.EventPurchase, events[i].Line()))
	}

	src := qkafka.NewSource(domain.EventPurchase, &qkafka.SourceConfig{
		Brokers:     kf.Brokers,
		Topic:       topic,
		GroupID:     group,
		StartOffset: "first",
		FetchWait:   2 * time.Second,
	}, nopLogger{})
	defer src.Close()

	adapter := stream.New(src, 100, stream.WithAckMode())
	cycle := loader.NewCycle(pgrepo.NewConnector(10*time.Second), pg.Params, 64, 0, nopLogger{})

	// Сообщения могут прийти не в первом окне выборки — крутим циклы до полного набора.
	var copied int64
	deadline := time.Now().Add(30 * time.Second)
	for copied < int64(len(events)) && time.Now().Before(deadline) {
		res := cycle.Run(ctx, adapter, domain.EventPurchase)
		require.Equal(t, loader.OutcomeSuccess, res.Outcome, "cycle error: %v", res.Err)
		copied += res.Rows
	}
	require.EqualValues(t, len(events), copied)

	for _, ev := range events {
		var sku string
		err := pg.Pool.QueryRow(ctx,
			`SELECT sku FROM purchase WHERE user_id = $1 AND "timestamp" = $2`, ev.UserID, ev.Timestamp,
		).Scan(&sku)
		require.NoError(t, err)
		require.Equal(t, ev.Content, sku)
	}
}
