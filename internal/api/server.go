// Package api exposes the annotation dataset over HTTP: CRUD on
// annotations, COCO JSON import/export, batch segmentation conversion, and
// per-annotation mask renders.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/cocoset/internal/config"
	"github.com/banshee-data/cocoset/internal/store/sqlite"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server serves the annotation API over a sqlite-backed store.
type Server struct {
	store *sqlite.Store
	cfg   *config.Config

	// workers bounds the compute fan-out of batch conversions.
	workers int
}

// NewServer creates an API server over the given store. cfg is the effective
// server configuration exposed on /api/config; nil means all defaults.
// workers bounds the parallelism of batch conversions; values below 1 fall
// back to 1.
func NewServer(store *sqlite.Store, cfg *config.Config, workers int) *Server {
	if workers < 1 {
		workers = 1
	}
	if cfg == nil {
		cfg = config.Empty()
	}
	return &Server{store: store, cfg: cfg, workers: workers}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// ServeMux returns the route table for the annotation API.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/annotations", s.handleAnnotations)
	mux.HandleFunc("/api/annotations/convert", s.handleConvert)
	mux.HandleFunc("/api/annotations/export", s.handleExport)
	mux.HandleFunc("/api/annotations/import", s.handleImport)
	mux.HandleFunc("/api/annotations/", s.handleAnnotationByID)
	mux.HandleFunc("/api/config", s.showConfig)
	return mux
}

// showConfig reports the effective server configuration, resolved through
// the same defaults the server started with.
func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"listen_addr":     s.cfg.GetListenAddr(),
		"db_path":         s.cfg.GetDBPath(),
		"migrations_dir":  s.cfg.GetMigrationsDir(),
		"convert_workers": s.workers,
		"plot_dir":        s.cfg.GetPlotDir(),
	})
}

// writeJSONError writes a JSON error response.
func (s *Server) writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": message,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}
