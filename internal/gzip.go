package internal

import (
	"compress/gzip"
	"net/http"
	"strings"
)

// GzipMiddleware compresses responses for clients that advertise gzip
// support. Compressed responses carry no Content-Length, so handlers that
// need an exact byte count on the wire (audio delivery does) must not be
// wrapped with this.
func GzipMiddleware(level int, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !acceptsGzip(r) {
			next.ServeHTTP(w, r)
			return
		}

		gz, err := gzip.NewWriterLevel(w, level)
		if err != nil {
			// only reachable with an out-of-range level constant
			panic(err)
		}
		defer gz.Close()

		// set before the handler runs so http.ServeContent skips
		// Content-Length
		w.Header().Set("Content-Encoding", "gzip")

		next.ServeHTTP(&gzipResponseWriter{ResponseWriter: w, sink: gz}, r)
	})
}

func acceptsGzip(r *http.Request) bool {
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		name, _, _ := strings.Cut(strings.TrimSpace(enc), ";")
		if name == "gzip" {
			return true
		}
	}

	return false
}

type gzipResponseWriter struct {
	http.ResponseWriter
	sink *gzip.Writer
}

func (w *gzipResponseWriter) Write(b []byte) (int, error) {
	return w.sink.Write(b)
}
