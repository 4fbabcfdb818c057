package rest_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"

	"github.com/Gunvolt24/datapipe/internal/ports/mocks"
	rest "github.com/Gunvolt24/datapipe/internal/transport/http"
	"github.com/Gunvolt24/datapipe/pkg/validate"
)

type noopLogger struct{}

func (noopLogger) Infof(context.Context, string, ...any)  {}
func (noopLogger) Warnf(context.Context, string, ...any)  {}
func (noopLogger) Errorf(context.Context, string, ...any) {}

type status struct {
	Code    int    `json:"status_code"`
	Message string `json:"status_message"`
}

func newRouter(t *testing.T, svc *mocks.MockEventIngestService, maxLen int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return rest.NewRouter(rest.NewHandler(svc, noopLogger{}, 0, maxLen), "")
}

func postEvent(t *testing.T, r http.Handler, body string) status {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d, body=%s", w.Code, w.Body.String())
	}
	var got status
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid json %q: %v", w.Body.String(), err)
	}
	return got
}

func TestIngest_OK(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockEventIngestService(ctrl)

	body := `{"event_name":"install","user_id":1,"timestamp":2}`
	svc.EXPECT().Ingest(gomock.Any(), []byte(body)).Return(nil)

	got := postEvent(t, newRouter(t, svc, 0), body)
	if got.Code != 0 || got.Message != "ok" {
		t.Fatalf("unexpected response: %+v", got)
	}
}

func TestIngest_ValidationError_Status200(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockEventIngestService(ctrl)

	svc.EXPECT().Ingest(gomock.Any(), gomock.Any()).
		Return(&validate.EventError{Code: validate.CodeKeyMissing, Key: "user_id"})

	got := postEvent(t, newRouter(t, svc, 0), `{"event_name":"install"}`)
	if got.Code != 4 || got.Message != "mandatory key missing(user_id)" {
		t.Fatalf("unexpected response: %+v", got)
	}
}

func TestIngest_UntypedError_Internal(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockEventIngestService(ctrl)

	svc.EXPECT().Ingest(gomock.Any(), gomock.Any()).Return(errors.New("boom"))

	got := postEvent(t, newRouter(t, svc, 0), `{}`)
	if got.Code != 100 {
		t.Fatalf("want internal code, got %+v", got)
	}
}

func TestIngest_EmptyBody_NilPayload(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockEventIngestService(ctrl)

	svc.EXPECT().Ingest(gomock.Any(), gomock.Nil()).
		Return(&validate.EventError{Code: validate.CodeNoContent})

	got := postEvent(t, newRouter(t, svc, 0), "")
	if got.Code != 2 {
		t.Fatalf("want no content code, got %+v", got)
	}
}

func TestIngest_BodyLimitedForValidator(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockEventIngestService(ctrl)

	// maxLen=2 символа → читается не больше 2*4+1 байт, этого хватает, чтобы увидеть превышение.
	svc.EXPECT().Ingest(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, raw []byte) error {
		if len(raw) != 9 {
			t.Errorf("want 9 bytes, got %d", len(raw))
		}
		return &validate.EventError{Code: validate.CodeInputLength, Key: "9"}
	})

	got := postEvent(t, newRouter(t, svc, 2), strings.Repeat("x", 100))
	if got.Code != 6 {
		t.Fatalf("want input length code, got %+v", got)
	}
}

func TestIngest_GetNotAllowed_405(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := newRouter(t, mocks.NewMockEventIngestService(ctrl), 0)

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("want 405, got %d, body=%s", w.Code, w.Body.String())
	}
	if allow := w.Header().Get("Allow"); allow != "POST" {
		t.Fatalf("want Allow: POST, got %q", allow)
	}
}

func TestNoRoute_404(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := newRouter(t, mocks.NewMockEventIngestService(ctrl), 0)

	req := httptest.NewRequest(http.MethodGet, "/no-such-route", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d, body=%s", w.Code, w.Body.String())
	}
}

func TestPing_200(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := newRouter(t, mocks.NewMockEventIngestService(ctrl), 0)

	req := httptest.NewRequest(http.MethodGet, "/ping", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK || w.Body.String() != "pong" {
		t.Fatalf("want 200 pong, got %d %q", w.Code, w.Body.String())
	}
}

func TestReadyz(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockEventIngestService(ctrl)

	tests := []struct {
		name  string
		check rest.ReadinessCheck
		want  int
	}{
		{"no_check", nil, http.StatusOK},
		{"ready", func(context.Context) error { return nil }, http.StatusOK},
		{"db_down", func(context.Context) error { return errors.New("down") }, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := rest.NewHandler(svc, noopLogger{}, 0, 0).WithReadiness(tt.check)
			r := rest.NewRouter(h, "")

			req := httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Fatalf("want %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestMetrics_200(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := newRouter(t, mocks.NewMockEventIngestService(ctrl), 0)

	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}
	if w.Body.Len() == 0 {
		t.Fatal("metrics body is empty")
	}
}
