package devserver

import (
	"net/http"
	"path"
	"strings"
)

const indexPage = "index.html"

// FileHandler serves the tree below root with net/http static file
// semantics: cleaned paths that never leave root, index.html for
// directories, the default listing otherwise, and 404 for missing files.
//
// Unlike http.FileServer, an explicit request for .../index.html is served
// as-is instead of being redirected to the directory, and is a 404 when no
// such regular file exists.
func FileHandler(root string) http.Handler {
	dir := http.Dir(root)
	files := http.FileServer(dir)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/"+indexPage) {
			serveIndex(w, r, dir)
			return
		}
		files.ServeHTTP(w, r)
	})
}

// serveIndex serves an index.html file directly.
func serveIndex(w http.ResponseWriter, r *http.Request, dir http.Dir) {
	name := path.Clean("/" + r.URL.Path)
	f, err := dir.Open(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil || fi.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeContent(w, r, fi.Name(), fi.ModTime(), f)
}
