package redis_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis"
	goredis "github.com/go-redis/redis"
	"github.com/stretchr/testify/require"

	"github.com/Gunvolt24/datapipe/internal/ports"
	"github.com/Gunvolt24/datapipe/internal/queue/redis"
)

func withRedis(t *testing.T, action func(db *goredis.Client, srv *miniredis.Miniredis)) {
	t.Helper()
	srv, err := miniredis.Run()
	require.NoError(t, err)
	defer srv.Close()

	db := goredis.NewClient(&goredis.Options{Addr: srv.Addr()})
	defer db.Close()

	action(db, srv)
}

func bodies(msgs []ports.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Body)
	}
	return out
}

func TestSource_DestructiveReserve(t *testing.T) {
	withRedis(t, func(db *goredis.Client, srv *miniredis.Miniredis) {
		ctx := context.Background()
		pub := redis.NewPublisher(db, "datapipe:")
		for _, b := range []string{"1,1,a", "2,2,b", "3,3,c"} {
			require.NoError(t, pub.Publish(ctx, "purchase", b))
		}

		src := redis.NewSource(db, "datapipe:", "purchase")
		require.Equal(t, "purchase", src.Name())

		got, err := src.Reserve(ctx, 2, true)
		require.NoError(t, err)
		require.Equal(t, []string{"1,1,a", "2,2,b"}, bodies(got))

		got, err = src.Reserve(ctx, 2, true)
		require.NoError(t, err)
		require.Equal(t, []string{"3,3,c"}, bodies(got))

		got, err = src.Reserve(ctx, 2, true)
		require.NoError(t, err)
		require.Empty(t, got)
		require.False(t, srv.Exists("datapipe:purchase"))
	})
}

func TestSource_AckMode_ReleaseRestoresOrder(t *testing.T) {
	withRedis(t, func(db *goredis.Client, srv *miniredis.Miniredis) {
		ctx := context.Background()
		src := redis.NewSource(db, "q:", "install")
		for _, b := range []string{"1,1", "2,2", "3,3"} {
			_, err := srv.Push(src.Key(), b)
			require.NoError(t, err)
		}

		got, err := src.Reserve(ctx, 2, false)
		require.NoError(t, err)
		require.Equal(t, []string{"1,1", "2,2"}, bodies(got))

		inflight, err := srv.List("q:install:inflight")
		require.NoError(t, err)
		require.Equal(t, []string{"1,1", "2,2"}, inflight)

		require.NoError(t, src.Release(ctx))
		rest, err := srv.List(src.Key())
		require.NoError(t, err)
		require.Equal(t, []string{"1,1", "2,2", "3,3"}, rest)
		require.False(t, srv.Exists("q:install:inflight"))
	})
}

func TestSource_AckMode_Ack(t *testing.T) {
	withRedis(t, func(db *goredis.Client, srv *miniredis.Miniredis) {
		ctx := context.Background()
		src := redis.NewSource(db, "q:", "crash_report")
		_, err := srv.Push(src.Key(), "1,1,boom")
		require.NoError(t, err)

		got, err := src.Reserve(ctx, 10, false)
		require.NoError(t, err)
		require.Len(t, got, 1)

		require.NoError(t, src.Ack(ctx))
		require.False(t, srv.Exists("q:crash_report:inflight"))
		require.False(t, srv.Exists(src.Key()))

		// Нечего возвращать
		n, err := src.Recover(ctx)
		require.NoError(t, err)
		require.Zero(t, n)
	})
}

func TestSource_RecoverAfterCrash(t *testing.T) {
	withRedis(t, func(db *goredis.Client, srv *miniredis.Miniredis) {
		ctx := context.Background()
		src := redis.NewSource(db, "q:", "purchase")
		_, _ = srv.Push("q:purchase:inflight", "1,1,a", "2,2,b")
		_, _ = srv.Push(src.Key(), "3,3,c")

		n, err := src.Recover(ctx)
		require.NoError(t, err)
		require.EqualValues(t, 2, n)

		got, err := src.Reserve(ctx, 10, true)
		require.NoError(t, err)
		require.Equal(t, []string{"1,1,a", "2,2,b", "3,3,c"}, bodies(got))
	})
}

func TestSource_ServerDown(t *testing.T) {
	withRedis(t, func(db *goredis.Client, srv *miniredis.Miniredis) {
		srv.Close()

		src := redis.NewSource(db, "q:", "purchase")
		_, err := src.Reserve(context.Background(), 1, true)
		require.Error(t, err)
		_, err = src.Reserve(context.Background(), 1, false)
		require.Error(t, err)
	})
}
