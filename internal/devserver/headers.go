package devserver

import (
	"io"
	"net/http"
)

// Header values added to every response.
const (
	AllowOriginAll      = "*"
	NoStoreCacheControl = "no-store, no-cache, must-revalidate"
)

// DevHeaders returns the headers added to every response.
func DevHeaders() http.Header {
	h := make(http.Header, 2)
	h.Set("Access-Control-Allow-Origin", AllowOriginAll)
	h.Set("Cache-Control", NoStoreCacheControl)
	return h
}

// WithHeaders sets headers on every response at the moment the status line
// is written, after the wrapped handler has had its say. net/http strips
// Cache-Control from error responses, so setting them up front is not enough.
func WithHeaders(headers http.Header) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hw := &headerWriter{ResponseWriter: w, headers: headers}
			next.ServeHTTP(hw, r)
			if !hw.wroteHeader {
				// Handler wrote nothing; still send the headers.
				hw.WriteHeader(http.StatusOK)
			}
		})
	}
}

type headerWriter struct {
	http.ResponseWriter
	headers     http.Header
	wroteHeader bool
}

func (w *headerWriter) WriteHeader(code int) {
	if !w.wroteHeader && code >= 200 {
		w.wroteHeader = true
		dst := w.ResponseWriter.Header()
		for k, v := range w.headers {
			dst[k] = append([]string(nil), v...)
		}
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *headerWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// ReadFrom keeps the underlying writer's sendfile path reachable.
func (w *headerWriter) ReadFrom(r io.Reader) (int64, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if rf, ok := w.ResponseWriter.(io.ReaderFrom); ok {
		return rf.ReadFrom(r)
	}
	return io.Copy(w.ResponseWriter, r)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *headerWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
