package stream

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/Gunvolt24/datapipe/internal/ports"
	"github.com/Gunvolt24/datapipe/internal/ports/mocks"
)

// sliceSource — очередь-заглушка: каждый Reserve отдаёт следующий заранее заданный пакет.
type sliceSource struct {
	batches [][]ports.Message
	calls   int
}

func (s *sliceSource) Name() string { return "test" }

func (s *sliceSource) Reserve(_ context.Context, _ int, _ bool) ([]ports.Message, error) {
	s.calls++
	if len(s.batches) == 0 {
		return nil, nil
	}
	b := s.batches[0]
	s.batches = s.batches[1:]
	return b, nil
}

func msgs(bodies ...string) []ports.Message {
	out := make([]ports.Message, 0, len(bodies))
	for _, b := range bodies {
		out = append(out, ports.Message{Body: b})
	}
	return out
}

func TestReadLine_PrimedCacheNoRefill(t *testing.T) {
	a := New(nil, 10)
	a.cache = []string{"hello", "world"}

	ctx := context.Background()
	for _, want := range []string{"hello\n", "world\n", ""} {
		got, err := a.ReadLine(ctx)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestRead_LeftoverAcrossCalls(t *testing.T) {
	a := New(nil, 10)
	a.readLine = func(context.Context) (string, error) { return "hello\n", nil }

	ctx := context.Background()
	steps := []struct {
		size         int
		want         string
		wantLeftover string
	}{
		{3, "hel", "lo\n"},
		{5, "lo\nhe", "llo\n"},
		{12, "llo\nhello\nhe", "llo\n"},
		{11, "llo\nhello\nh", "ello\n"},
		{1, "e", "llo\n"},
		{0, "", "llo\n"},
	}
	for _, st := range steps {
		got, err := a.Read(ctx, st.size)
		require.NoError(t, err)
		require.Equal(t, st.want, got, "Read(%d)", st.size)
		require.Equal(t, st.wantLeftover, a.leftover, "leftover after Read(%d)", st.size)
	}
}

func TestReadLine_OneRefillPerCall_SkipsEmptyBodies(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockMessageSource(ctrl)
	src.EXPECT().Name().Return("purchase").AnyTimes()

	gomock.InOrder(
		src.EXPECT().Reserve(gomock.Any(), 5, true).Return(msgs("1,10,a", "", "2,20,b"), nil),
		src.EXPECT().Reserve(gomock.Any(), 5, true).Return(nil, nil),
		src.EXPECT().Reserve(gomock.Any(), 5, true).Return(msgs("3,30,c"), nil),
	)

	a := New(src, 5)
	ctx := context.Background()

	for _, want := range []string{"1,10,a\n", "2,20,b\n", "", "3,30,c\n"} {
		got, err := a.ReadLine(ctx)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestReadLineSize_BoundedIsUnsupported(t *testing.T) {
	a := New(nil, 1)
	a.cache = []string{"x"}

	_, err := a.ReadLineSize(context.Background(), 10)
	require.ErrorIs(t, err, ErrUnsupportedSize)
	require.ErrorIs(t, err, errors.ErrUnsupported)
	require.Equal(t, 1, a.Pending(), "cache must stay untouched")
}

func TestRead_ReconstructsLineStream(t *testing.T) {
	bodies := []string{"1,100,short", "22,200", "333,300,a much longer content line", "4,4,x", "55555,5,yy"}
	want := strings.Join(bodies, "\n") + "\n"

	for _, size := range []int{1, 2, 3, 5, 7, 11, 64, 1024} {
		src := &sliceSource{batches: [][]ports.Message{msgs(bodies[:2]...), msgs(bodies[2:]...)}}
		a := New(src, 2)

		var got strings.Builder
		for {
			chunk, err := a.Read(context.Background(), size)
			require.NoError(t, err)
			require.LessOrEqual(t, len(chunk), size)
			if chunk == "" {
				break
			}
			got.WriteString(chunk)
		}
		require.Equal(t, want, got.String(), "size=%d", size)
		require.Empty(t, a.leftover)
	}
}

func TestRead_UnboundedDrainsEverything(t *testing.T) {
	src := &sliceSource{batches: [][]ports.Message{msgs("a", "b"), msgs("c")}}
	a := New(src, 2)

	got, err := a.Read(context.Background(), Unbounded)
	require.NoError(t, err)
	require.Equal(t, "a\nb\nc\n", got)
	// два пакета + одна пустая попытка
	require.Equal(t, 3, src.calls)

	got, err = a.Read(context.Background(), -5)
	require.NoError(t, err)
	require.Equal(t, "", got)
}

func TestRead_ReserveErrorPropagates(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockMessageSource(ctrl)
	src.EXPECT().Name().Return("install").AnyTimes()

	boom := errors.New("queue unreachable")
	gomock.InOrder(
		src.EXPECT().Reserve(gomock.Any(), gomock.Any(), true).Return(msgs("1,1"), nil),
		src.EXPECT().Reserve(gomock.Any(), gomock.Any(), true).Return(nil, boom),
	)

	a := New(src, 10)
	got, err := a.Read(context.Background(), 100)
	require.ErrorIs(t, err, boom)
	require.Equal(t, "1,1\n", got)
}

func TestReader_ChunkBoundAndEOF(t *testing.T) {
	lines := []string{"10,1,alpha", "20,2,beta", "30,3,gamma"}
	src := &sliceSource{batches: [][]ports.Message{msgs(lines...)}}
	a := New(src, 10)

	r := a.Reader(context.Background(), 4)
	buf := make([]byte, 64)

	var got strings.Builder
	for {
		n, err := r.Read(buf)
		require.LessOrEqual(t, n, 4)
		got.Write(buf[:n])
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
	}
	require.Equal(t, strings.Join(lines, "\n")+"\n", got.String())
}

func TestReader_ReadAll(t *testing.T) {
	src := &sliceSource{batches: [][]ports.Message{msgs("a", "b", "c")}}
	a := New(src, 10)

	raw, err := io.ReadAll(a.Reader(context.Background(), 0))
	require.NoError(t, err)
	require.Equal(t, "a\nb\nc\n", string(raw))
}

// ackSource — MockMessageSource + MockAcknowledger в одном значении.
type ackSource struct {
	*mocks.MockMessageSource
	*mocks.MockAcknowledger
}

func TestAckMode_AcknowledgeAndRelease(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := ackSource{mocks.NewMockMessageSource(ctrl), mocks.NewMockAcknowledger(ctrl)}
	src.MockMessageSource.EXPECT().Name().Return("crash_report").AnyTimes()

	src.MockMessageSource.EXPECT().Reserve(gomock.Any(), 3, false).Return(msgs("1,1,a", "2,2,b"), nil)
	src.MockAcknowledger.EXPECT().Release(gomock.Any()).Return(nil)

	a := New(src, 3, WithAckMode())
	require.True(t, a.AckMode())

	got, err := a.Read(context.Background(), 4)
	require.NoError(t, err)
	require.Equal(t, "1,1,", got)
	require.Equal(t, 1, a.Pending())

	require.NoError(t, a.Release(context.Background()))
	require.Zero(t, a.Pending())
	require.Empty(t, a.leftover)

	src.MockAcknowledger.EXPECT().Ack(gomock.Any()).Return(nil)
	require.NoError(t, a.Acknowledge(context.Background()))
}

func TestDestructiveMode_ReleaseKeepsCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := ackSource{mocks.NewMockMessageSource(ctrl), mocks.NewMockAcknowledger(ctrl)}
	src.MockMessageSource.EXPECT().Name().Return("crash_report").AnyTimes()
	src.MockMessageSource.EXPECT().Reserve(gomock.Any(), 3, true).Return(msgs("1,1,a", "2,2,b"), nil)
	// Ack/Release не ожидаются: в деструктивном режиме подтверждать нечего.

	a := New(src, 3)
	_, err := a.Read(context.Background(), 4)
	require.NoError(t, err)

	require.NoError(t, a.Release(context.Background()))
	require.NoError(t, a.Acknowledge(context.Background()))
	require.Equal(t, 1, a.Pending())
	require.Empty(t, a.leftover)
}

func TestDropReserved_ByMode(t *testing.T) {
	tests := []struct {
		name        string
		opts        []Option
		wantDropped int
		wantPending int
	}{
		{"ack mode drops unsent", []Option{WithAckMode()}, 2, 0},
		{"destructive keeps cache", nil, 0, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &sliceSource{batches: [][]ports.Message{msgs("x,1", "2,2,b", "3,3,c")}}
			a := New(src, 10, tt.opts...)

			got, err := a.Read(context.Background(), 2)
			require.NoError(t, err)
			require.Equal(t, "x,", got)

			require.Equal(t, tt.wantDropped, a.DropReserved())
			require.Equal(t, tt.wantPending, a.Pending())
			require.Empty(t, a.leftover)
		})
	}
}
