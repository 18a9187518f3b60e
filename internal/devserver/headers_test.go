package devserver

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWithHeaders_AppliedOnEveryPath(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    int
	}{
		{
			name:    "write only",
			handler: func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) },
			want:    http.StatusOK,
		},
		{
			name:    "explicit status",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) },
			want:    http.StatusTeapot,
		},
		{
			name:    "nothing written",
			handler: func(w http.ResponseWriter, r *http.Request) {},
			want:    http.StatusOK,
		},
		{
			name: "handler deletes cache header before error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Cache-Control", "max-age=3600")
				w.Header().Del("Cache-Control")
				http.Error(w, "gone", http.StatusGone)
			},
			want: http.StatusGone,
		},
		{
			name: "handler sets its own cache header",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Cache-Control", "max-age=3600")
				_, _ = w.Write([]byte("cached?"))
			},
			want: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := WithHeaders(DevHeaders())(tt.handler)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			assertDevHeaders(t, rec)
		})
	}
}

func TestWithHeaders_WritesStatusOnce(t *testing.T) {
	h := WithHeaders(DevHeaders())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("a"))
		_, _ = w.Write([]byte("b"))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202", rec.Code)
	}
	if rec.Body.String() != "ab" {
		t.Errorf("body = %q, want ab", rec.Body.String())
	}
	if got := len(rec.Header().Values("Cache-Control")); got != 1 {
		t.Errorf("Cache-Control values = %d, want 1", got)
	}
}

func TestDevHeaders_Independent(t *testing.T) {
	a := DevHeaders()
	a.Set("Access-Control-Allow-Origin", "https://example.com")
	if got := DevHeaders().Get("Access-Control-Allow-Origin"); got != AllowOriginAll {
		t.Errorf("DevHeaders() shares state: got %q", got)
	}
}

// readFromRecorder records whether ReadFrom reached it.
type readFromRecorder struct {
	*httptest.ResponseRecorder
	readFrom bool
}

func (r *readFromRecorder) ReadFrom(src io.Reader) (int64, error) {
	r.readFrom = true
	return io.Copy(r.ResponseRecorder, src)
}

func TestWithHeaders_ForwardsReadFrom(t *testing.T) {
	h := WithHeaders(DevHeaders())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rf, ok := w.(io.ReaderFrom)
		if !ok {
			t.Fatal("wrapped writer does not implement io.ReaderFrom")
		}
		if _, err := rf.ReadFrom(strings.NewReader("payload")); err != nil {
			t.Fatalf("ReadFrom: %v", err)
		}
	}))

	rec := &readFromRecorder{ResponseRecorder: httptest.NewRecorder()}
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if !rec.readFrom {
		t.Error("ReadFrom was not forwarded to the underlying writer")
	}
	if rec.Body.String() != "payload" {
		t.Errorf("body = %q, want payload", rec.Body.String())
	}
	assertDevHeaders(t, rec.ResponseRecorder)
}

func TestWithHeaders_ReadFromWithoutUnderlyingSupport(t *testing.T) {
	h := WithHeaders(DevHeaders())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.(io.ReaderFrom).ReadFrom(strings.NewReader("plain"))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Body.String() != "plain" {
		t.Errorf("body = %q, want plain", rec.Body.String())
	}
	assertDevHeaders(t, rec)
}
