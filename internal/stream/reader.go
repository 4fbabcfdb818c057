package stream

import (
	"context"
	"io"
)

// chunkReader — io.Reader поверх Adapter для потребителя COPY.
type chunkReader struct {
	ctx   context.Context
	a     *Adapter
	chunk int
}

// Reader — io.Reader, каждый Read которого запрашивает у адаптера не более chunk байт
// (chunk <= 0 — ограничение только размером буфера). "" от адаптера → io.EOF.
func (a *Adapter) Reader(ctx context.Context, chunk int) io.Reader {
	return &chunkReader{ctx: ctx, a: a, chunk: chunk}
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	size := len(p)
	if r.chunk > 0 && r.chunk < size {
		size = r.chunk
	}

	s, err := r.a.Read(r.ctx, size)
	n := copy(p, s)
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}
