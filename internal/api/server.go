package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/IshaanNene/ItemSnap/internal/config"
	"github.com/IshaanNene/ItemSnap/internal/export"
	"github.com/IshaanNene/ItemSnap/internal/observability"
	"github.com/IshaanNene/ItemSnap/internal/storage"
	"github.com/IshaanNene/ItemSnap/internal/types"
)

const maxBodyBytes = 4 << 20

type ctxKey struct{}

// RequestID returns the id assigned to the request carrying ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Server exposes the extraction handler, the batch list and exports over HTTP.
type Server struct {
	router  *mux.Router
	handler *Handler
	batch   *storage.Batch
	metrics *observability.Metrics
	cfg     *config.Config
	logger  *slog.Logger
	srv     *http.Server
	ln      net.Listener
	now     func() time.Time
}

// NewServer creates a new API server. metrics may be nil.
func NewServer(cfg *config.Config, handler *Handler, batch *storage.Batch, metrics *observability.Metrics, logger *slog.Logger) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		handler: handler,
		batch:   batch,
		metrics: metrics,
		cfg:     cfg,
		logger:  logger.With("component", "api_server"),
		now:     time.Now,
	}
	if metrics != nil {
		metrics.BatchSize.Store(int64(batch.Len()))
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.Use(s.requestIDMiddleware, s.loggingMiddleware)

	s.router.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/api/message", s.handleMessage).Methods(http.MethodPost)
	s.router.HandleFunc("/api/export", s.handleExportRecord).Methods(http.MethodPost)

	batch := s.router.PathPrefix("/api/batch").Subrouter()
	batch.HandleFunc("", s.handleListBatch).Methods(http.MethodGet)
	batch.HandleFunc("", s.handleAddBatch).Methods(http.MethodPost)
	batch.HandleFunc("", s.handleClearBatch).Methods(http.MethodDelete)
	batch.HandleFunc("/export", s.handleExportBatch).Methods(http.MethodGet)

	if s.cfg.Metrics.Enabled && s.metrics != nil {
		s.router.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}
}

// Handler returns the routed handler wrapped with CORS.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.API.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Content-Disposition", "X-Request-ID"},
	})
	return c.Handler(s.router)
}

// Start binds the configured port and serves in the background. A port
// that cannot be bound is reported here rather than from the serve loop.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.API.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.ln = ln
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("API server starting", "addr", ln.Addr().String())

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()
	return nil
}

// Addr is the bound listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			"id", RequestID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": config.Version,
		"batch":   s.batch.Len(),
	})
}

// handleMessage always answers 200 with the message envelope; success or
// failure is carried in the body.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req types.ExtractRequest
	if err := decodeJSON(r, &req); err != nil {
		s.jsonResponse(w, http.StatusBadRequest, types.Failed(err))
		return
	}
	s.jsonResponse(w, http.StatusOK, s.handler.Handle(r.Context(), req))
}

func (s *Server) handleListBatch(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.batch.Records())
}

func (s *Server) handleAddBatch(w http.ResponseWriter, r *http.Request) {
	var rec types.ProductRecord
	if err := decodeJSON(r, &rec); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err)
		return
	}
	if rec.URL == "" {
		s.errorResponse(w, http.StatusBadRequest, errors.New("record url is required"))
		return
	}
	rec.Normalize()

	added, err := s.batch.Upsert(r.Context(), &rec)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err)
		return
	}
	if s.metrics != nil {
		if added {
			s.metrics.RecordsAdded.Add(1)
		} else {
			s.metrics.RecordsUpdated.Add(1)
		}
		s.metrics.BatchSize.Store(int64(s.batch.Len()))
	}

	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	s.jsonResponse(w, status, map[string]any{"added": added, "count": s.batch.Len()})
}

func (s *Server) handleClearBatch(w http.ResponseWriter, r *http.Request) {
	if err := s.batch.Clear(r.Context()); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err)
		return
	}
	if s.metrics != nil {
		s.metrics.BatchSize.Store(0)
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"count": 0})
}

func (s *Server) handleExportBatch(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, err)
		return
	}
	recs := s.batch.Records()
	if len(recs) == 0 {
		s.errorResponse(w, http.StatusNotFound, types.ErrEmptyBatch)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteBatch(&buf, recs, format); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err)
		return
	}
	s.attachment(w, export.Filename("batch", format, s.now()), format, buf.Bytes())
}

func (s *Server) handleExportRecord(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, err)
		return
	}
	var rec types.ProductRecord
	if err := decodeJSON(r, &rec); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err)
		return
	}
	rec.Normalize()

	var buf bytes.Buffer
	if err := export.WriteRecord(&buf, &rec, format); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err)
		return
	}
	s.attachment(w, export.Filename("product", format, s.now()), format, buf.Bytes())
}

func (s *Server) attachment(w http.ResponseWriter, name string, format export.Format, body []byte) {
	if s.metrics != nil {
		s.metrics.ExportsTotal.Add(1)
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, err error) {
	s.jsonResponse(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("encode response failed", "error", err)
	}
}
