package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/rehber/rehber/internal/telemetry"
	"github.com/rehber/rehber/internal/util/logger"
)

// RequestAuditMW logs one line per request and forwards a RequestAuditEvent
// to the shipper when one is configured.
type RequestAuditMW struct {
	Shipper telemetry.Publisher
	log     *zap.SugaredLogger
}

func NewRequestAuditMW(shipper telemetry.Publisher) *RequestAuditMW {
	if shipper == nil {
		shipper = telemetry.NopPublisher{}
	}
	return &RequestAuditMW{Shipper: shipper, log: logger.GetLogger()}
}

func (m *RequestAuditMW) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		route := routePattern(r)
		reqID := chimw.GetReqID(r.Context())

		m.log.Infow("request_audit",
			"request_id", reqID,
			"method", r.Method,
			"route", route,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"latency_ms", elapsed.Milliseconds(),
		)
		m.Shipper.Publish(telemetry.RequestAuditEvent{
			Timestamp:  start.UTC(),
			RequestID:  reqID,
			Method:     r.Method,
			Route:      route,
			Path:       r.URL.Path,
			Status:     status,
			Bytes:      ww.BytesWritten(),
			DurationMs: elapsed.Milliseconds(),
			RemoteAddr: remoteAddrIP(r.RemoteAddr).String(),
		})
	})
}
