package rest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/Gunvolt24/datapipe/internal/ports"
	"github.com/Gunvolt24/datapipe/pkg/httpx"
	"github.com/Gunvolt24/datapipe/pkg/validate"
)

// maxRuneBytes — максимальная длина одного символа UTF-8 в байтах.
const maxRuneBytes = 4

// ReadinessCheck — проверка готовности зависимостей (например, ping БД).
type ReadinessCheck func(ctx context.Context) error

// statusResponse — ответ на приём события; HTTP-статус всегда 200.
type statusResponse struct {
	StatusCode    validate.Code `json:"status_code"`
	StatusMessage string        `json:"status_message"`
}

// Handler — HTTP-обработчики приёма событий.
type Handler struct {
	service        ports.EventIngestService
	log            ports.Logger
	handlerTimeout time.Duration
	inputMaxLen    int
	ready          ReadinessCheck
}

// NewHandler — конструктор. handlerTimeout <= 0 — без ограничения;
// inputMaxLen <= 0 — validate.DefaultInputMaxLen.
func NewHandler(service ports.EventIngestService, log ports.Logger, handlerTimeout time.Duration, inputMaxLen int) *Handler {
	if inputMaxLen <= 0 {
		inputMaxLen = validate.DefaultInputMaxLen
	}
	return &Handler{service: service, log: log, handlerTimeout: handlerTimeout, inputMaxLen: inputMaxLen}
}

// WithReadiness — подключить проверку для /readyz.
func (h *Handler) WithReadiness(check ReadinessCheck) *Handler {
	h.ready = check
	return h
}

// NewRouter — роутер с middleware; otelServiceName пустой — без трейсинга запросов.
func NewRouter(h *Handler, otelServiceName string) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery())
	if otelServiceName != "" {
		r.Use(otelgin.Middleware(otelServiceName))
	}
	r.Use(httpx.RequestIDMiddleware())
	r.Use(httpx.RequestLogger(h.log))

	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/readyz", h.readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/", h.ingest)

	return r
}

func (h *Handler) ingest(c *gin.Context) {
	ctx := c.Request.Context()
	if h.handlerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.handlerTimeout)
		defer cancel()
	}

	raw, err := h.readBody(c)
	if err != nil {
		h.log.Warnf(ctx, "read body failed: %v", err)
		c.JSON(http.StatusOK, errorResponse(&validate.EventError{Code: validate.CodeGeneral, Err: err}))
		return
	}

	if err := h.service.Ingest(ctx, raw); err != nil {
		var ee *validate.EventError
		if !errors.As(err, &ee) {
			ee = validate.Internal(err)
		}
		c.JSON(http.StatusOK, errorResponse(ee))
		return
	}

	c.JSON(http.StatusOK, statusResponse{StatusCode: validate.CodeOK, StatusMessage: validate.CodeOK.Message()})
}

// readBody — тело запроса, ограниченное так, чтобы валидатор увидел превышение длины;
// пустое тело — nil.
func (h *Handler) readBody(c *gin.Context) ([]byte, error) {
	if c.Request.Body == nil {
		return nil, nil
	}
	limit := int64(h.inputMaxLen)*maxRuneBytes + 1
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, limit))
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return raw, nil
}

func (h *Handler) readyz(c *gin.Context) {
	if h.ready == nil {
		c.String(http.StatusOK, "ok")
		return
	}
	if err := h.ready(c.Request.Context()); err != nil {
		h.log.Warnf(c.Request.Context(), "readiness check failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "not ready"})
		return
	}
	c.String(http.StatusOK, "ok")
}

func errorResponse(ee *validate.EventError) statusResponse {
	return statusResponse{StatusCode: ee.Code, StatusMessage: ee.StatusMessage()}
}
