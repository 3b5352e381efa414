package view

import (
	"bytes"
	"embed"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/js"
)

//go:embed static/login.css static/login.js
var staticFS embed.FS

type asset struct {
	body        []byte
	contentType string
	etag        string
}

var assets = map[string]asset{}

// loadedAt doubles as Last-Modified for every asset; they only change with a deploy.
var loadedAt = time.Now()

func init() {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("application/javascript", js.Minify)

	for name, mediaType := range map[string]string{
		"login.css": "text/css",
		"login.js":  "application/javascript",
	} {
		src, err := staticFS.ReadFile(path.Join("static", name))
		if err != nil {
			panic(err)
		}
		out, err := m.Bytes(mediaType, src)
		if err != nil {
			panic(err)
		}
		assets[name] = asset{
			body:        out,
			contentType: mediaType + "; charset=utf-8",
			etag:        `"` + strconv.FormatUint(xxhash.Sum64(out), 36) + `"`,
		}
	}
}

// Script returns the unminified client script.
func Script() []byte {
	src, _ := staticFS.ReadFile("static/login.js")
	return src
}

// Asset returns the minified body of a static asset by file name.
func Asset(name string) ([]byte, bool) {
	a, ok := assets[name]
	if !ok {
		return nil, false
	}
	return a.body, true
}

// Assets serves the minified stylesheet and script. The request path must
// already have the asset prefix stripped.
func Assets() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Exact match on the cleaned path; nested paths are not assets.
		a, ok := assets[path.Clean("/" + r.URL.Path)[1:]]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", a.contentType)
		w.Header().Set("ETag", a.etag)
		w.Header().Set("Cache-Control", "public, max-age=3600")
		http.ServeContent(w, r, "", loadedAt, bytes.NewReader(a.body))
	})
}
