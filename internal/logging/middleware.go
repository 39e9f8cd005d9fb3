package logging

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// requestIDHeader is read from clients and echoed on every response.
const requestIDHeader = "X-Request-ID"

// maxRequestIDLen bounds a client-supplied request id; longer ones are
// replaced rather than logged.
const maxRequestIDLen = 64

// statusRecorder remembers the status a handler sent. The first
// WriteHeader wins; a bare Write implies 200.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.wroteHeader {
		return
	}
	sr.status, sr.wroteHeader = code, true
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	sr.WriteHeader(http.StatusOK)
	return sr.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the real writer.
func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

// Hijack passes the WebSocket upgrade through. The request is logged as
// 101 once the handler returns.
func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := sr.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("logging: hijack not supported")
	}
	sr.status, sr.wroteHeader = http.StatusSwitchingProtocols, true
	return hj.Hijack()
}

// RequestIDs gives every request an id, keeping a sane one the client sent.
func RequestIDs(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), id)))
	})
}

// AccessLog logs one http_request event per served request.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sr, r)
		HTTPRequest(r.Context(), r.Method, r.URL.Path, r.RemoteAddr, sr.status, time.Since(start))
	})
}

// HTTPMiddleware is RequestIDs around AccessLog, so access lines carry the id.
func HTTPMiddleware(next http.Handler) http.Handler {
	return RequestIDs(AccessLog(next))
}
