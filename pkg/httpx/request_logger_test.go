package httpx_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Gunvolt24/datapipe/pkg/httpx"
)

type line struct {
	level string
	msg   string
}

// recLogger — логгер, запоминающий строки.
type recLogger struct {
	mu    sync.Mutex
	lines []line
}

func (l *recLogger) add(level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, line{level: level, msg: fmt.Sprintf(format, args...)})
}

func (l *recLogger) Infof(_ context.Context, f string, a ...any)  { l.add("info", f, a...) }
func (l *recLogger) Warnf(_ context.Context, f string, a ...any)  { l.add("warn", f, a...) }
func (l *recLogger) Errorf(_ context.Context, f string, a ...any) { l.add("error", f, a...) }

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)

	log := &recLogger{}
	r := gin.New()
	r.Use(httpx.RequestLogger(log))
	r.POST("/", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/readyz", func(c *gin.Context) { c.Status(http.StatusServiceUnavailable) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)),
		httptest.NewRequest(http.MethodGet, "/ping", http.NoBody),
		httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody),
		httptest.NewRequest(http.MethodGet, "/boom", http.NoBody),
	} {
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	if len(log.lines) != 2 {
		t.Fatalf("service routes must not be logged, got %+v", log.lines)
	}
	if log.lines[0].level != "info" || !strings.Contains(log.lines[0].msg, "method=POST path=/ status=200") ||
		!strings.Contains(log.lines[0].msg, "in=2") {
		t.Fatalf("unexpected ingest line: %+v", log.lines[0])
	}
	if log.lines[1].level != "warn" || !strings.Contains(log.lines[1].msg, "status=500") {
		t.Fatalf("5xx must be a warning: %+v", log.lines[1])
	}
}
