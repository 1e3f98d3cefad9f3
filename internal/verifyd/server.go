// Package verifyd is the verification service: it admits jobs, probes the
// target, simulates the multi-region fan-out and serves the job, history
// and event-stream endpoints the client consumes.
package verifyd

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	_ "modernc.org/sqlite"

	"github.com/raysh454/kakunin/internal/logging"
	"github.com/raysh454/kakunin/internal/model"
	_ "github.com/raysh454/kakunin/internal/verifyd/docs"
	"github.com/raysh454/kakunin/internal/verifyd/prober"
)

// Server is the HTTP front of the verification service.
type Server struct {
	cfg           *Config
	engine        *Engine
	store         *Store
	router        chi.Router
	upgrader      websocket.Upgrader
	logger        logging.Logger
	db            *sql.DB
	screenshotDir string
}

// NewServer wires the store, prober and engine and registers all routes.
func NewServer(cfg *Config) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewStdoutLogger("verifyd")
	}

	dataDir, err := expandPath(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure data dir %s: %w", dataDir, err)
	}
	screenshotDir := filepath.Join(dataDir, "screenshots")
	if err := os.MkdirAll(screenshotDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure screenshot dir: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dataDir, "verifyd.db"))
	if err != nil {
		return nil, fmt.Errorf("open scan db: %w", err)
	}
	store, err := NewStore(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	proberCfg := cfg.Prober
	if proberCfg == nil {
		proberCfg = prober.DefaultConfig()
	}
	if proberCfg.ScreenshotDir == "" {
		proberCfg.ScreenshotDir = screenshotDir
	}
	prb, err := prober.New(proberCfg, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &Server{
		cfg:    cfg,
		engine: NewEngine(cfg, store, prb, logger),
		store:  store,
		router: chi.NewRouter(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:        logger,
		db:            db,
		screenshotDir: screenshotDir,
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := s.router
	r.Use(s.corsMiddleware)

	// CORS preflight
	r.Options("/api/v1/verify", s.optionsHandler("POST"))
	r.Options("/api/v1/job/{jobID}", s.optionsHandler("GET"))
	r.Options("/api/v1/job/{jobID}/details", s.optionsHandler("GET"))
	r.Options("/api/v1/status", s.optionsHandler("GET"))
	r.Options("/api/v1/history", s.optionsHandler("GET"))
	r.Options("/api/v1/scans", s.optionsHandler("GET"))

	// Verification API
	r.Group(func(api chi.Router) {
		api.Use(s.requireAPIKey)
		api.Post("/api/v1/verify", s.handleVerify)
		api.Get("/api/v1/job/{jobID}", s.handleJob)
		api.Get("/api/v1/job/{jobID}/details", s.handleJobDetails)
		api.Get("/api/v1/status", s.handleStatus)
		api.Get("/api/v1/history", s.handleHistory)
		api.Get("/api/v1/scans", s.handleScans)
	})

	// Job event stream
	r.Get("/ws/job/{jobID}", s.handleJobSocket)

	// Interactive API docs
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	// Captured screenshots
	r.Handle("/screenshots/*",
		http.StripPrefix("/screenshots/", http.FileServer(http.Dir(s.screenshotDir))))

	// Simulation control
	r.Get("/sim/settings", s.handleGetSim)
	r.Post("/sim/settings", s.handleSetSim)
}

// ServeHTTP logs every request before delegating to the router. Bodies are
// re-wrapped so handlers can still read them.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fields := []logging.Field{
		{Key: "method", Value: r.Method},
		{Key: "path", Value: r.URL.Path},
	}
	if r.URL.RawQuery != "" {
		fields = append(fields, logging.Field{Key: "query", Value: r.URL.RawQuery})
	}
	if r.Body != nil && r.Method != http.MethodGet {
		if body, err := io.ReadAll(r.Body); err == nil {
			r.Body = io.NopCloser(bytes.NewReader(body))
			if len(body) > 0 {
				fields = append(fields, logging.Field{Key: "body", Value: string(body)})
			}
		}
	}
	s.logger.Debug("http request", fields...)
	s.router.ServeHTTP(w, r)
}

// HTTPServer returns an http.Server for the configured listen address.
// WriteTimeout stays zero so websocket streams are not cut off.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:        s.cfg.ListenAddr,
		Handler:     s,
		ReadTimeout: 15 * time.Second,
	}
}

// Close stops the engine and releases the database.
func (s *Server) Close() error {
	if err := s.engine.Close(); err != nil {
		s.logger.Warn("failed to close engine",
			logging.Field{Key: "error", Value: err.Error()})
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	s.logger.Info("server closed")
	return nil
}

// ─── middleware ─────────────────────────────────────────────────────────

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")
		w.Header().Set("Access-Control-Max-Age", "86400")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods+", OPTIONS")
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(r) {
			writeError(w, http.StatusUnauthorized, "invalid api key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authorized checks X-API-Key, falling back to the apiKey query parameter
// for websocket clients that cannot set headers.
func (s *Server) authorized(r *http.Request) bool {
	if s.cfg.APIKey == "" {
		return true
	}
	key := r.Header.Get("X-API-Key")
	if key == "" {
		key = r.URL.Query().Get("apiKey")
	}
	return key == s.cfg.APIKey
}

// ─── verification handlers ──────────────────────────────────────────────

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req model.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.EffectiveMode() == model.ModeBatch {
		resp, err := s.engine.SubmitBatch(r.Context(), &req)
		if err != nil {
			s.logger.Warn("rejected batch submission",
				logging.Field{Key: "error", Value: err.Error()})
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Info("batch admitted",
			logging.Field{Key: "total", Value: resp.Summary.Total},
			logging.Field{Key: "failed", Value: resp.Summary.Failed})
		writeJSON(w, http.StatusOK, resp)
		return
	}

	resp, err := s.engine.Submit(r.Context(), &req)
	if err != nil {
		if errors.Is(err, ErrQuotaExhausted) {
			writeError(w, http.StatusPaymentRequired, err.Error())
			return
		}
		s.logger.Warn("rejected submission",
			logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	snap := s.engine.Snapshot(jobID, false)
	if snap == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleJobDetails(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	snap := s.engine.Snapshot(jobID, true)
	if snap == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	// Details materialize once the first region starts; until then the
	// endpoint answers an explicit null body.
	if snap.Status == model.JobPending {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("null"))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Status())
}

// ─── history handlers ───────────────────────────────────────────────────

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := intQuery(q, "page", 1)
	limit := intQuery(q, "limit", DefaultPageLimit)

	filters := model.HistoryFilters{
		Status:      q.Get("status"),
		Continent:   q.Get("continent"),
		URLContains: q.Get("url"),
		TeamID:      q.Get("teamId"),
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from timestamp")
			return
		}
		filters.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to timestamp")
			return
		}
		filters.To = t
	}

	items, total, limit, err := s.store.QueryHistory(r.Context(), filters, page, limit)
	if err != nil {
		s.logger.Warn("history query failed",
			logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, "failed to query history")
		return
	}
	if items == nil {
		items = []model.ScanRecord{}
	}
	if page < 1 {
		page = 1
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + limit - 1) / limit
	}
	hasNext := page < totalPages
	hasPrev := page > 1

	writeJSON(w, http.StatusOK, model.HistoryResponse{
		Success:    true,
		Items:      items,
		Page:       page,
		Limit:      limit,
		Total:      &total,
		TotalPages: &totalPages,
		HasNext:    &hasNext,
		HasPrev:    &hasPrev,
	})
}

func (s *Server) handleScans(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := intQuery(q, "limit", DefaultPageLimit)
	offset := intQuery(q, "offset", 0)

	scans, total, err := s.store.ListScans(r.Context(), limit, offset)
	if err != nil {
		s.logger.Warn("scan listing failed",
			logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, "failed to list scans")
		return
	}
	if scans == nil {
		scans = []model.ScanRecord{}
	}

	writeJSON(w, http.StatusOK, model.ScanListResponse{
		Success: true,
		Scans:   scans,
		Total:   &total,
	})
}

// ─── websocket handler ──────────────────────────────────────────────────

// handleJobSocket streams a job's events. The current details snapshot is
// written first, then events until the job finishes and the stream closes.
func (s *Server) handleJobSocket(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "invalid api key")
		return
	}
	jobID := chi.URLParam(r, "jobID")
	events, ok := s.engine.Events(jobID)
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed",
			logging.Field{Key: "jobID", Value: jobID},
			logging.Field{Key: "error", Value: err.Error()})
		return
	}
	defer conn.Close()

	if snap := s.engine.Snapshot(jobID, true); snap != nil {
		if err := conn.WriteJSON(snap); err != nil {
			return
		}
	}

	for ev := range events {
		if err := conn.WriteJSON(ev); err != nil {
			s.logger.Debug("websocket write failed, dropping subscriber",
				logging.Field{Key: "jobID", Value: jobID})
			return
		}
	}
}

// ─── sim control handlers ───────────────────────────────────────────────

func (s *Server) handleGetSim(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Sim())
}

func (s *Server) handleSetSim(w http.ResponseWriter, r *http.Request) {
	var settings SimSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := s.engine.ApplySim(settings); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"settings": s.engine.Sim(),
	})
}

// ─── helpers ────────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func intQuery(q url.Values, key string, def int) int {
	v := q.Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func expandPath(p string) (string, error) {
	if strings.HasPrefix(p, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
	}
	return p, nil
}
