package middleware

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"vendor-tracking/internal/shared/util"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades pass through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// Logging writes one access line per request, tagged with the request id
// when RequestID runs first.
func Logging(logger *util.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			path := r.URL.Path
			if id := GetRequestID(r.Context()); id != "" {
				path += " [req=" + id + "]"
			}
			logger.HTTP(rec.status, time.Since(start), r.RemoteAddr, r.Method, path)
		})
	}
}
