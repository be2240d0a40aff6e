package server

import (
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/gravitas-games/hexrange/pkg/logger"
)

// requestLogger logs one line per request through the shared logrus logger
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		logger.Log.WithFields(logrus.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      humanize.Bytes(uint64(ww.BytesWritten())),
			"elapsed":    time.Since(start).Round(time.Microsecond),
			"remote":     r.RemoteAddr,
		}).Debug("HTTP request")
	})
}
