package httpx

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Gunvolt24/datapipe/internal/ports"
)

// quietPaths — служебные маршруты, которые дёргают пробы и Prometheus.
var quietPaths = map[string]struct{}{
	"/metrics": {},
	"/ping":    {},
	"/readyz":  {},
}

// RequestLogger — middleware для логирования HTTP-запросов.
// request_id и trace_id добавляет сам логгер из контекста; 5xx пишутся как warning.
func RequestLogger(log ports.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if _, quiet := quietPaths[path]; quiet {
			return
		}
		if path == "" {
			path = c.Request.URL.Path
		}

		logf := log.Infof
		if c.Writer.Status() >= http.StatusInternalServerError {
			logf = log.Warnf
		}
		logf(
			c.Request.Context(),
			"request method=%s path=%s status=%d ip=%s duration=%s in=%d out=%d",
			c.Request.Method,
			path,
			c.Writer.Status(),
			c.ClientIP(),
			time.Since(start),
			c.Request.ContentLength,
			c.Writer.Size(),
		)
	}
}
