package devserver

import (
	"net/http"
	"strings"
)

// WASMType is the content type browsers require for streaming instantiation.
const WASMType = "application/wasm"

// ContentTypeResolver returns the content type to force for a request path.
// ok is false when the platform MIME database should decide.
type ContentTypeResolver func(urlPath string) (contentType string, ok bool)

// WASMContentType forces application/wasm for paths ending in .wasm.
func WASMContentType(urlPath string) (string, bool) {
	if strings.HasSuffix(urlPath, ".wasm") {
		return WASMType, true
	}
	return "", false
}

// ForceContentType presets Content-Type for paths the resolver claims.
// http.FileServer keeps a preset type; error responses replace it.
func ForceContentType(resolve ContentTypeResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ct, ok := resolve(r.URL.Path); ok {
				w.Header().Set("Content-Type", ct)
			}
			next.ServeHTTP(w, r)
		})
	}
}
