// Package assetserver serves model payloads and decoder modules to viewers.
package assetserver

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Directories under the server root.
const (
	ModelsDir   = "models"
	DecodersDir = "decoders"
)

var contentTypes = map[string]string{
	".glb":  "model/gltf-binary",
	".gltf": "model/gltf+json",
	".bin":  "application/octet-stream",
	".wasm": "application/wasm",
	".js":   "text/javascript",
}

// NewRouter returns the router for files under root.
func NewRouter(root string, log *zap.Logger) *mux.Router {
	if log == nil {
		log = zap.NewNop()
	}

	r := mux.NewRouter()
	// Match on the escaped path so an encoded separator reaches validName
	// instead of being cleaned into a redirect.
	r.UseEncodedPath()
	r.Use(logRequests(log))
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "OK")
	}).Methods("GET")
	r.HandleFunc("/models/{name}", serveDir(filepath.Join(root, ModelsDir), "no-cache")).Methods("GET", "HEAD")
	r.HandleFunc("/decoders/{name}", serveDir(filepath.Join(root, DecodersDir), "public, max-age=86400")).Methods("GET", "HEAD")
	return r
}

// validName rejects anything that could leave the served directory.
func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && !strings.Contains(name, "..")
}

func serveDir(dir, cacheControl string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, err := url.PathUnescape(mux.Vars(r)["name"])
		if err != nil || !validName(name) {
			http.Error(w, "invalid name", http.StatusBadRequest)
			return
		}

		f, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil || info.IsDir() {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		if ct, ok := contentTypes[strings.ToLower(filepath.Ext(name))]; ok {
			w.Header().Set("Content-Type", ct)
		}
		w.Header().Set("Cache-Control", cacheControl)
		w.Header().Set("Access-Control-Allow-Origin", "*")
		http.ServeContent(w, r, name, info.ModTime(), f)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func logRequests(log *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("elapsed", time.Since(start)))
		})
	}
}
